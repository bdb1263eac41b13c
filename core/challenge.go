package core

import "time"

// TimeBounds is the validity window of a challenge. Zero Max means no upper
// bound; the anchors this kit talks to always set one.
type TimeBounds struct {
	Min int64 // Unix seconds, not valid before
	Max int64 // Unix seconds, not valid after
}

// Expired reports whether the window has closed at the given instant.
func (tb TimeBounds) Expired(now time.Time) bool {
	return tb.Max != 0 && now.Unix() > tb.Max
}

// Within reports whether the given instant falls inside the window.
func (tb TimeBounds) Within(now time.Time) bool {
	u := now.Unix()
	if u < tb.Min {
		return false
	}
	return !tb.Expired(now)
}

// Challenge is the verifier-issued artifact that must be co-signed by the
// subject and the origin before it can be exchanged for an access token.
// It is never persisted; it lives for one handshake and is replaced by the
// token on submission.
type Challenge struct {
	Envelope   string     // base64 transaction envelope, grows as signatures are appended
	NetworkID  string     // network passphrase the envelope is scoped to
	Source     string     // subject account the challenge was issued for
	TimeBounds TimeBounds // validity window chosen by the verifier
}

// Expired reports whether the challenge can no longer be submitted.
func (c Challenge) Expired(now time.Time) bool {
	return c.TimeBounds.Expired(now)
}
