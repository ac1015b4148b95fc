package entity

import (
	"fmt"
	"net/http"
	"strings"

	jsonitor "github.com/json-iterator/go"
	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// Response is the normalized result of a call. JSON holds the parsed body; it is
// nil when the body was empty or not JSON.
type Response struct {
	StatusCode int
	JSON       []byte
	Raw        []byte
	ETag       string
	Header     http.Header
}

// IsNull reports a body that did not parse as JSON.
func (r *Response) IsNull() bool {
	return r == nil || len(r.JSON) == 0
}

// Get evaluates a gjson path on the parsed body.
func (r *Response) Get(path string) gjson.Result {
	if r.IsNull() {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.JSON, path)
}

// Decode unmarshals the parsed body into v.
func (r *Response) Decode(v any) error {
	if r.IsNull() {
		return ErrConvert.New("response body is null")
	}
	return json.Unmarshal(r.JSON, v)
}

// Map returns the parsed body as a generic value, nil when null.
func (r *Response) Map() map[string]any {
	if r.IsNull() {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.JSON, &m); err != nil {
		return nil
	}
	return m
}

// MarshalJSON renders the parsed body, or null.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.IsNull() {
		return []byte("null"), nil
	}
	return r.JSON, nil
}

func newResponse(status int, header http.Header, body []byte) *Response {
	r := &Response{StatusCode: status, Raw: body, Header: header}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && gjson.Valid(trimmed) {
		r.JSON = []byte(trimmed)
	}
	return r
}

func (r *Response) withETag() *Response {
	r.ETag = r.Header.Get("ETag")
	if r.ETag == "" || !r.Get("@this").IsObject() {
		return r
	}
	if out, err := sjson.SetBytes(r.JSON, "etag", r.ETag); err == nil {
		r.JSON = out
	}
	return r
}

// statusOnly replaces the body with {"status_code": N}.
func (r *Response) statusOnly() *Response {
	return &Response{
		StatusCode: r.StatusCode,
		JSON:       []byte(fmt.Sprintf(`{"status_code":%d}`, r.StatusCode)),
		Raw:        r.Raw,
		ETag:       r.ETag,
		Header:     r.Header,
	}
}

// messagePaths are tried in order to find a human readable server message.
var messagePaths = []string{
	"message",
	"message_list.0.message",
	"message_list.0.reason",
	"data.error.0.message",
	"error_detail",
	"status.message_list.0.message",
	"error.message",
	"error",
}

// ServerMessage extracts the first non-empty server supplied message.
func (r *Response) ServerMessage() string {
	for _, p := range messagePaths {
		if v := r.Get(p); v.Exists() && v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// failure builds the error reported for a response with status >= 300.
func failure(r *Response, method, url string) error {
	base := ErrFetch
	if r.StatusCode == http.StatusConflict || r.StatusCode == http.StatusPreconditionFailed {
		base = ErrRefused
	}
	msg := r.ServerMessage()
	if msg == "" {
		msg = http.StatusText(r.StatusCode)
	}
	var response any = string(r.Raw)
	if !r.IsNull() {
		response = r.Map()
	}
	return base.New(fmt.Sprintf("%s %s: status %d: %s", method, url, r.StatusCode, msg)).
		SetStatusCode(r.StatusCode).
		With(apperrors.DetailURL, url).
		With(apperrors.DetailMethod, method).
		With(apperrors.DetailStatusCode, r.StatusCode).
		With(apperrors.DetailMessage, msg).
		With(apperrors.DetailResponse, response)
}
