// Package entity is the generic client for one resource collection of the
// product API. It assembles URLs from base_url + resource_type, attaches
// headers and cookies, dispatches through the HTTP transport, normalizes
// responses and implements list pagination with optional client-side filtering.
// A Client is immutable after construction and owns nothing but its transport.
package entity

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/prismctl/prismctl/internal/common/httpclient"
)

// Target supplies the scheme://host[:port] part of every URL.
type Target interface {
	GetServerURL() string
}

// Client is a handle to one resource collection on one connection.
type Client struct {
	baseURL    string
	transport  httpclient.HTTPClientInterface
	headers    http.Header
	cookies    []*http.Cookie
	apiVersion *semver.Version
}

// Option configures a Client at construction.
type Option func(*Client)

// WithHeaders adds default headers sent on every call.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, vs := range h {
			for _, v := range vs {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithContentType overrides the default application/json content type.
func WithContentType(ct string) Option {
	return func(c *Client) {
		c.headers.Set("Content-Type", ct)
	}
}

// WithCookies adds cookies sent on every call.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(c *Client) {
		c.cookies = append(c.cookies, cookies...)
	}
}

// WithAPIVersion records the API version of the collection ("3.1", "v4.0").
// Unparsable versions are ignored.
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		if sv, err := semver.NewVersion(v); err == nil {
			c.apiVersion = sv
		}
	}
}

// New returns a client for resourceType on target. resourceType is the path of
// the collection, for example "/api/nutanix/v3/vms".
func New(target Target, transport httpclient.HTTPClientInterface, resourceType string, opts ...Option) *Client {
	c := &Client{
		baseURL:   joinURL(target.GetServerURL(), resourceType),
		transport: transport,
		headers: http.Header{
			"Content-Type": {httpclient.ContentTypeJSON},
			"Accept":       {httpclient.ContentTypeJSON},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns scheme://host[:port]/resource_type.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIVersion returns the collection API version, nil when unknown.
func (c *Client) APIVersion() *semver.Version {
	return c.apiVersion
}

// IsV4 reports whether the collection speaks the v4 response shape.
func (c *Client) IsV4() bool {
	return c.apiVersion != nil && c.apiVersion.Major() >= 4
}

// BuildURL appends uuid and endpoint to the base URL and merges query into its
// query string. Keys in query replace keys already present.
func (c *Client) BuildURL(uuid, endpoint string, query url.Values) string {
	return buildURL(c.baseURL, query, uuid, endpoint)
}

func buildURL(base string, query url.Values, parts ...string) string {
	raw := joinURL(base, parts...)
	if len(query) == 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// joinURL joins components with exactly one slash between them. Empty
// components are skipped.
func joinURL(base string, parts ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}
