package authflow

import (
	"net/http"
)

// apiKeyTransport attaches a static API key to every outgoing request using
// the x-goog-api-key header.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

// Compile-time check that apiKeyTransport implements http.RoundTripper.
var _ http.RoundTripper = (*apiKeyTransport)(nil)

// NewAPIKeyTransport returns a RoundTripper that injects the given API key
// into every request. base defaults to http.DefaultTransport.
func NewAPIKeyTransport(key string, base http.RoundTripper) http.RoundTripper {
	return &apiKeyTransport{key: key, base: base}
}

// RoundTrip clones the request and sets the API-key header; the original
// request is never mutated, per the RoundTripper contract.
func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("x-goog-api-key", t.key)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
