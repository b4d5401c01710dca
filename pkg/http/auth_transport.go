package http

import "net/http"

// TokenProvider supplies the current bearer token for outbound requests.
// An empty return means no Authorization header is attached.
type TokenProvider func() string

type authTransport struct {
	tokenFn   TokenProvider
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	if token := t.tokenFn(); token != "" {
		reqCopy.Header.Set("Authorization", "Bearer "+token)
	}

	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken attaches a static bearer token to every request.
func WithAuthToken(token string) HttpOpts {
	return WithTokenProvider(func() string { return token })
}

// WithTokenProvider resolves the bearer token per request. Tokens rotate
// when the operator re-authenticates, so the provider is consulted on
// every round trip rather than captured at client construction.
func WithTokenProvider(tokenFn TokenProvider) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			tokenFn:   tokenFn,
			transport: rt,
		}
	})
}
