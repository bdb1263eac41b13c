// Package codec implements the transaction envelope wire format: a base64
// string wrapping a deterministically CBOR-encoded pair of payload bytes and
// an ordered signature list. The payload is kept as raw bytes through a
// decode/encode cycle so an unchanged envelope re-encodes byte-identically
// and every signature covers exactly the bytes the verifier issued.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/ports"
)

// wireEnvelope is the outer CBOR structure of an envelope.
type wireEnvelope struct {
	Payload    cbor.RawMessage `cbor:"tx"`
	Signatures []wireSignature `cbor:"signatures"`
}

// wirePayload is the CBOR structure of the signed payload.
type wirePayload struct {
	Source     string          `cbor:"source"`
	MinTime    int64           `cbor:"min_time"`
	MaxTime    int64           `cbor:"max_time"`
	Nonce      []byte          `cbor:"nonce"`
	Operations []wireOperation `cbor:"operations"`
}

type wireOperation struct {
	Name  string `cbor:"name"`
	Value []byte `cbor:"value"`
}

type wireSignature struct {
	Hint      []byte `cbor:"hint"`
	Signature []byte `cbor:"signature"`
}

// CBORCodec implements ports.Codec with deterministic CBOR encoding.
type CBORCodec struct {
	encMode cbor.EncMode
}

// NewCBORCodec creates a codec using CBOR core deterministic encoding.
func NewCBORCodec() *CBORCodec {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		// CoreDetEncOptions are valid by construction.
		panic(fmt.Sprintf("codec: deterministic enc mode: %v", err))
	}
	return &CBORCodec{encMode: encMode}
}

var _ ports.Codec = (*CBORCodec)(nil)

// Decode parses envelope bytes under the given network passphrase into a
// structural view.
func (c *CBORCodec) Decode(envelope string, networkID string) (*core.Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedEnvelope, err)
	}

	var wire wireEnvelope
	if err := cbor.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedEnvelope, err)
	}
	if len(wire.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", core.ErrMalformedEnvelope)
	}

	var payload wirePayload
	if err := cbor.Unmarshal(wire.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedEnvelope, err)
	}

	env := &core.Envelope{
		Source:       payload.Source,
		TimeBounds:   core.TimeBounds{Min: payload.MinTime, Max: payload.MaxTime},
		Nonce:        payload.Nonce,
		PayloadBytes: []byte(wire.Payload),
		NetworkID:    networkID,
	}
	for _, op := range payload.Operations {
		env.Operations = append(env.Operations, core.Operation{Name: op.Name, Value: op.Value})
	}
	for _, sig := range wire.Signatures {
		if len(sig.Hint) != 4 {
			return nil, fmt.Errorf("%w: signature hint must be 4 bytes", core.ErrMalformedEnvelope)
		}
		var hint [4]byte
		copy(hint[:], sig.Hint)
		env.Signatures = append(env.Signatures, core.DecoratedSignature{Hint: hint, Signature: sig.Signature})
	}

	return env, nil
}

// Encode serializes a structural view back into envelope bytes. When the view
// carries raw payload bytes they are reused untouched; otherwise the payload
// is built from the structured fields (used when minting new challenges).
func (c *CBORCodec) Encode(env *core.Envelope) (string, error) {
	payload := env.PayloadBytes
	if len(payload) == 0 {
		built, err := c.encMode.Marshal(payloadFromView(env))
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrEncodingFailed, err)
		}
		payload = built
	}

	wire := wireEnvelope{
		Payload:    cbor.RawMessage(payload),
		Signatures: make([]wireSignature, 0, len(env.Signatures)),
	}
	for _, sig := range env.Signatures {
		hint := make([]byte, 4)
		copy(hint, sig.Hint[:])
		wire.Signatures = append(wire.Signatures, wireSignature{Hint: hint, Signature: sig.Signature})
	}

	raw, err := c.encMode.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrEncodingFailed, err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// AppendSignature re-serializes the envelope with the new signature appended
// after all existing ones. The view itself is not mutated.
func (c *CBORCodec) AppendSignature(env *core.Envelope, sig core.DecoratedSignature) (string, error) {
	extended := *env
	extended.Signatures = make([]core.DecoratedSignature, 0, len(env.Signatures)+1)
	extended.Signatures = append(extended.Signatures, env.Signatures...)
	extended.Signatures = append(extended.Signatures, sig)

	return c.Encode(&extended)
}

func payloadFromView(env *core.Envelope) wirePayload {
	payload := wirePayload{
		Source:     env.Source,
		MinTime:    env.TimeBounds.Min,
		MaxTime:    env.TimeBounds.Max,
		Nonce:      env.Nonce,
		Operations: make([]wireOperation, 0, len(env.Operations)),
	}
	for _, op := range env.Operations {
		payload.Operations = append(payload.Operations, wireOperation{Name: op.Name, Value: op.Value})
	}
	return payload
}
