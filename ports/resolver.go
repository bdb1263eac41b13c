package ports

import "context"

// Endpoints is the set of protocol endpoints a domain advertises in its
// service directory. A field is empty when the directory does not advertise
// the corresponding key; the flow that needs the missing endpoint raises the
// error, so a transfer-only resolution never fails on a missing auth key.
type Endpoints struct {
	WebAuth  string // challenge-response web auth endpoint
	Transfer string // interactive transfer endpoint
}

// Resolver resolves a domain to its advertised protocol endpoints.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (Endpoints, error)
}
