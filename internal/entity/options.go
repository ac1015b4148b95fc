package entity

import (
	"net/http"
	"net/url"
	"time"
)

type callOptions struct {
	endpoint    string
	query       url.Values
	method      string
	body        any
	headers     http.Header
	timeout     time.Duration
	raiseError  bool
	noResponse  bool
	includeETag bool
	useBaseURL  bool
}

// CallOption tunes a single call.
type CallOption func(*callOptions)

func newCallOptions(method string, opts []CallOption) callOptions {
	o := callOptions{method: method, raiseError: true}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Endpoint appends a path segment after the uuid (or after the base URL).
func Endpoint(e string) CallOption {
	return func(o *callOptions) { o.endpoint = e }
}

// Query merges q into the query string of the call.
func Query(q url.Values) CallOption {
	return func(o *callOptions) { o.query = q }
}

// Method overrides the HTTP method of the call.
func Method(m string) CallOption {
	return func(o *callOptions) { o.method = m }
}

// Body sets a request body on calls that do not take one positionally (Delete).
func Body(b any) CallOption {
	return func(o *callOptions) { o.body = b }
}

// Header adds a header to this call only.
func Header(key, value string) CallOption {
	return func(o *callOptions) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Add(key, value)
	}
}

// IfMatch sends the ETag obtained from a previous read.
func IfMatch(etag string) CallOption {
	return Header("If-Match", etag)
}

// Timeout sets the per-call timeout.
func Timeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// NoRaise returns whatever the server answered, even on an error status.
func NoRaise() CallOption {
	return func(o *callOptions) { o.raiseError = false }
}

// NoResponse replaces the parsed body of a successful call with {"status_code": N}.
func NoResponse() CallOption {
	return func(o *callOptions) { o.noResponse = true }
}

// IncludeETag attaches the ETag response header to the result.
func IncludeETag() CallOption {
	return func(o *callOptions) { o.includeETag = true }
}

// UseBaseURL makes List post to the base URL instead of base_url/list.
func UseBaseURL() CallOption {
	return func(o *callOptions) { o.useBaseURL = true }
}
