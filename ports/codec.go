package ports

import "github.com/layer-3/anchorkit/core"

// Codec encodes and decodes the base64 transaction envelope format.
//
// Decoding and re-encoding an unchanged envelope must be byte-identical;
// AppendSignature must preserve all existing signatures and their order.
type Codec interface {
	// Decode parses envelope bytes under the given network passphrase into
	// a structural view.
	Decode(envelope string, networkID string) (*core.Envelope, error)

	// Encode serializes a structural view back into envelope bytes.
	Encode(env *core.Envelope) (string, error)

	// AppendSignature re-serializes the envelope with one more signature
	// appended after all existing ones.
	AppendSignature(env *core.Envelope, sig core.DecoratedSignature) (string, error)
}
