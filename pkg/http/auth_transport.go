package http

import "net/http"

// headerAuthTransport sets a credential header on every outgoing request
type headerAuthTransport struct {
	header    string
	value     string
	transport http.RoundTripper
}

func (t *headerAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.value == "" {
		return t.transport.RoundTrip(req)
	}

	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.header, t.value)

	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken sends token as a bearer Authorization header
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return withAuthHeader("Authorization", "")
	}
	return withAuthHeader("Authorization", "Bearer "+token)
}

// WithAPIKey sends key in the Google API key header. An empty key sends nothing.
func WithAPIKey(key string) HttpOpts {
	return withAuthHeader(APIKeyHeader, key)
}

const APIKeyHeader = "x-goog-api-key"

func withAuthHeader(header, value string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerAuthTransport{
			header:    header,
			value:     value,
			transport: rt,
		}
	})
}
