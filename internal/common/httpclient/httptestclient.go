package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// HandlerTransport is an http.RoundTripper that serves requests from an
// http.Handler through httptest.NewRecorder, without touching the network.
type HandlerTransport struct {
	Handler http.Handler
	calls   atomic.Int64
}

// RoundTrip implements http.RoundTripper.
func (t *HandlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rr := httptest.NewRecorder()
	t.Handler.ServeHTTP(rr, req)
	res := rr.Result()
	res.Request = req
	if res.Body == nil {
		res.Body = io.NopCloser(bytes.NewReader(nil))
	}
	return res, nil
}

// Calls returns how many requests reached the handler.
func (t *HandlerTransport) Calls() int64 {
	return t.calls.Load()
}

// NewTestClient creates a client that sends every request to handler.
func NewTestClient(config Configurator, handler http.Handler, opts ...ClientOptions) (*HTTPClient, *HandlerTransport) {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	ht := &HandlerTransport{Handler: handler}
	o.Transport = ht
	return NewClientWithOptions(config, o), ht
}
