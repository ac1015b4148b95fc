package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	jsonitor "github.com/json-iterator/go"
	"github.com/prismctl/prismctl/internal/common/apperrors"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

const (
	// ReadChunkSize bounds a single read of a response body.
	ReadChunkSize = 64 * 1024

	// DefaultTimeout applies when neither the request nor the configurator sets one.
	DefaultTimeout = 60 * time.Second

	ContentTypeJSON = "application/json"
)

// HTTPClient represents a transport bound to one connection.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
	journal    Journal
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	Journal   Journal                 // receives every exchange; nil discards
	Transport http.RoundTripper       // overrides the network transport
	Getenv    func(key string) string // proxy environment lookup, os.Getenv when nil
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return NewClientWithOptions(config, o)
}

// NewClientWithOptions creates a new HTTP client using the provided configuration and options.
func NewClientWithOptions(config Configurator, opts ClientOptions) *HTTPClient {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	rt := opts.Transport
	if rt == nil {
		proxy := config.GetProxySettings()
		rt = &http.Transport{
			Proxy: func(req *http.Request) (*url.URL, error) {
				return SelectProxy(proxy, req.URL, getenv)
			},
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !config.GetValidateCerts(), //nolint:gosec // user controlled via validate_certs
			},
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	journal := opts.Journal
	if journal == nil {
		journal = nopJournal{}
	}

	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Transport: rt},
		journal:    journal,
	}
}

// FetchRequest describes one request. Body is JSON encoded when the content type
// is JSON and Body is not already []byte, string or io.Reader.
type FetchRequest struct {
	URL     string
	Method  string
	Body    any
	Headers http.Header
	Cookies []*http.Cookie
	Timeout time.Duration
}

// UploadRequest describes a streaming upload of Length bytes from Source.
type UploadRequest struct {
	URL     string
	Method  string
	Source  io.Reader
	Length  int64
	Headers http.Header
	Timeout time.Duration
}

// FetchResponse is what the server answered.
type FetchResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// OK reports a status below 300.
func (r *FetchResponse) OK() bool {
	return r.StatusCode < http.StatusMultipleChoices
}

// Fetch makes an HTTP request. A response with any status is returned without
// error; errors are reserved for requests that got no response at all.
func (c *HTTPClient) Fetch(ctx context.Context, r FetchRequest) (*FetchResponse, error) {
	headers := c.headers(r.Headers)
	body, err := encodeBody(r.Body, headers.Get("Content-Type"))
	if err != nil {
		return nil, ErrBadRequest.MsgErr(fmt.Sprintf("unable to encode body for %s %s", r.Method, r.URL), err)
	}
	return c.do(ctx, r.Method, r.URL, body, -1, headers, r.Cookies, r.Timeout, r.Body)
}

// Upload streams the source as the request body.
func (c *HTTPClient) Upload(ctx context.Context, r UploadRequest) (*FetchResponse, error) {
	if r.Source == nil {
		return nil, ErrBadRequest.Msg("upload source is nil")
	}
	headers := c.headers(r.Headers)
	headers.Set("Content-Length", fmt.Sprintf("%d", r.Length))
	return c.do(ctx, r.Method, r.URL, r.Source, r.Length, headers, nil, r.Timeout, fmt.Sprintf("<stream %d bytes>", r.Length))
}

func (c *HTTPClient) headers(in http.Header) http.Header {
	h := in.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", ContentTypeJSON)
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", ContentTypeJSON)
	}
	if h.Get("Authorization") == "" {
		if user, pass := c.config.GetCredentials(); user != "" && pass != "" {
			h.Set("Authorization", BasicAuth(user, pass))
		}
	}
	return h
}

// BasicAuth returns the value of a basic Authorization header.
func BasicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body io.Reader, length int64,
	headers http.Header, cookies []*http.Cookie, timeout time.Duration, logBody any) (*FetchResponse, error) {

	if timeout <= 0 {
		timeout = c.config.GetTimeout()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, ErrBadRequest.MsgErr(fmt.Sprintf("invalid request %s %s", method, rawURL), err)
	}
	req.Header = headers
	if length >= 0 {
		req.ContentLength = length
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	reqID := c.journal.LogRequest(ctx, method, rawURL, req.Header, logBody, timeout)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.journal.LogError(reqID, "request failed", err)
		return nil, classify(err, method, rawURL)
	}
	defer resp.Body.Close()

	data, err := readAll(resp.Body)
	if err != nil {
		c.journal.LogError(reqID, "reading response body failed", err)
		if isTimeout(err) {
			return nil, ErrRequestTimeout.MsgErr(fmt.Sprintf("%s %s: reading response timed out", method, rawURL), err)
		}
		return nil, ErrReadBody.MsgErr(fmt.Sprintf("%s %s: %v", method, rawURL, err), err)
	}
	c.journal.LogResponse(reqID, resp.StatusCode, resp.Header, data, time.Since(start))

	return &FetchResponse{
		StatusCode: resp.StatusCode,
		Body:       data,
		Header:     resp.Header,
	}, nil
}

// readAll concatenates bounded reads so large payloads are never truncated.
func readAll(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	buf := make([]byte, ReadChunkSize)
	for {
		n, err := r.Read(buf)
		out.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			return out.Bytes(), nil
		}
		if err != nil {
			return out.Bytes(), err
		}
	}
}

func encodeBody(body any, contentType string) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	}
	if !strings.HasPrefix(strings.ToLower(contentType), ContentTypeJSON) {
		return nil, fmt.Errorf("cannot send %T as %q", body, contentType)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func classify(err error, method, rawURL string) error {
	msg := fmt.Sprintf("%s %s: %v", method, rawURL, err)
	base := ErrConnect
	if isTimeout(err) {
		base = ErrRequestTimeout
	}
	return base.MsgErr(msg, err).
		With(apperrors.DetailURL, rawURL).
		With(apperrors.DetailMethod, method)
}

type nopJournal struct{}

func (nopJournal) LogRequest(context.Context, string, string, http.Header, any, time.Duration) string {
	return ""
}
func (nopJournal) LogResponse(string, int, http.Header, []byte, time.Duration) {}
func (nopJournal) LogError(string, string, error)                             {}
func (nopJournal) LogInfo(string, map[string]any)                             {}

// Journal returns the journal exchanges are written to.
func (c *HTTPClient) Journal() Journal {
	return c.journal
}
