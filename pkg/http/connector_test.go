package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestDoRequest_SendsJSONAndDecodesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/echo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "json" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"cells"}` {
			t.Errorf("unexpected body %s", body)
		}
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()})

	var out struct {
		Reply string `json:"reply"`
	}
	err := c.DoRequest(context.Background(), http.MethodPost, "/v1/echo",
		map[string]string{"name": "cells"}, &out, WithQuery("alt", "json"))
	if err != nil {
		t.Fatalf("DoRequest: %v", err)
	}
	if out.Reply != "ok" {
		t.Fatalf("expected reply ok, got %q", out.Reply)
	}
}

func TestDoRequest_ReturnsHTTPErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(strings.Repeat("x", maxErrorBody+100)))
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()})

	err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", httpErr.StatusCode)
	}
	if len(httpErr.Message) != maxErrorBody {
		t.Fatalf("error body must be truncated, got %d bytes", len(httpErr.Message))
	}
}

func TestDoRequest_ReturnsNetworkErrorWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: url, Logger: zap.NewNop()})

	err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestWithAPIKey_SetsHeaderAndLogRedacts(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(APIKeyHeader)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()},
		WithRequestLogging(),
		WithAPIKey("secret"),
	)

	if err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("DoRequest: %v", err)
	}
	if got != "secret" {
		t.Fatalf("expected api key header, got %q", got)
	}

	h := http.Header{}
	h.Set(APIKeyHeader, "secret")
	if redactHeaders(h).Get(APIKeyHeader) == "secret" {
		t.Fatalf("api key must be redacted in logs")
	}
	if h.Get(APIKeyHeader) != "secret" {
		t.Fatalf("redaction must not mutate the request headers")
	}
}

func TestWithAPIKey_EmptyKeySendsNoHeader(t *testing.T) {
	present := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()}, WithAPIKey(""))
	if err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("DoRequest: %v", err)
	}
	if present {
		t.Fatalf("empty key must not produce a header")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithBaseTransport_WrapsCustomRoundTripper(t *testing.T) {
	var calls int
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"name":"stub"}`)),
			Request:    r,
		}, nil
	})

	c := NewConnector(&ConnectorConfig{BaseURL: "http://example.invalid", Logger: zap.NewNop()},
		WithBaseTransport(base),
		WithAPIKey("secret"),
	)

	var out struct {
		Name string `json:"name"`
	}
	if err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, &out); err != nil {
		t.Fatalf("DoRequest: %v", err)
	}
	if calls != 1 || out.Name != "stub" {
		t.Fatalf("expected stub transport to serve the request, calls=%d out=%+v", calls, out)
	}
}
