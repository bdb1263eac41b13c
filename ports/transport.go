package ports

import "net/http"

// Doer is the transport contract: perform one HTTP request and return the
// response or an error. *http.Client satisfies it. Retry and backoff policy
// belongs to the Doer implementation, never to the protocol core.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
