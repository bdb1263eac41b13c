// Package resolver resolves a domain to the protocol endpoints it advertises
// in its service directory document.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/ports"
)

// DirectoryPath is the well-known location of the service directory document.
const DirectoryPath = "/.well-known/anchor.toml"

// directoryDocument is the typed view of the TOML directory. Missing keys
// unmarshal to empty strings; the flow that needs the missing endpoint
// decides whether that is an error.
type directoryDocument struct {
	WebAuthEndpoint string `toml:"WEB_AUTH_ENDPOINT"`
	TransferServer  string `toml:"TRANSFER_SERVER"`
}

// TOMLResolver fetches and parses a domain's directory document. Resolved
// endpoints are cached per domain so the repeated resolutions within one
// handshake reuse a single fetch.
type TOMLResolver struct {
	client ports.Doer
	scheme string

	mu    sync.Mutex
	cache map[string]ports.Endpoints
}

// NewTOMLResolver creates a resolver. An empty scheme defaults to https;
// tests pass "http" to talk to local servers.
func NewTOMLResolver(client ports.Doer, scheme string) *TOMLResolver {
	if scheme == "" {
		scheme = "https"
	}
	return &TOMLResolver{
		client: client,
		scheme: scheme,
		cache:  make(map[string]ports.Endpoints),
	}
}

var _ ports.Resolver = (*TOMLResolver)(nil)

// Resolve returns the endpoints the domain advertises.
func (r *TOMLResolver) Resolve(ctx context.Context, domain string) (ports.Endpoints, error) {
	r.mu.Lock()
	cached, ok := r.cache[domain]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s://%s%s", r.scheme, domain, DirectoryPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.Endpoints{}, fmt.Errorf("%w: %v", core.ErrDirectoryUnreachable, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return ports.Endpoints{}, fmt.Errorf("%w: %v", core.ErrDirectoryUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.Endpoints{}, fmt.Errorf("%w: directory returned %d", core.ErrDirectoryUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.Endpoints{}, fmt.Errorf("%w: %v", core.ErrDirectoryUnreachable, err)
	}

	var doc directoryDocument
	if err := toml.Unmarshal(body, &doc); err != nil {
		return ports.Endpoints{}, fmt.Errorf("%w: %v", core.ErrDirectoryUnreachable, err)
	}

	endpoints := ports.Endpoints{
		WebAuth:  doc.WebAuthEndpoint,
		Transfer: doc.TransferServer,
	}

	r.mu.Lock()
	r.cache[domain] = endpoints
	r.mu.Unlock()

	return endpoints, nil
}
