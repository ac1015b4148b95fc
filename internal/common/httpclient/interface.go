// Package httpclient is the HTTP transport used by every entity client. It issues
// one request and hands back status, headers and the fully read body; it never
// interprets status codes. TLS verification, proxy selection, basic
// authentication, streaming uploads and journaling of every exchange live here.
package httpclient

import (
	"context"
	"net/http"
	"time"
)

// Configurator provides the connection-level settings a transport needs.
// connection.Connection is the production implementation.
type Configurator interface {
	GetServerURL() string
	GetCredentials() (username, password string)
	GetValidateCerts() bool
	GetProxySettings() ProxySettings
	GetTimeout() time.Duration
}

// Journal receives every request, response and transport failure, plus
// informational notes from the layers above. debuglog.Logger implements it.
type Journal interface {
	LogRequest(ctx context.Context, method, url string, headers http.Header, body any, timeout time.Duration) string
	LogResponse(requestID string, status int, headers http.Header, body []byte, duration time.Duration)
	LogError(requestID, message string, err error)
	LogInfo(message string, extra map[string]any)
}

// JournalOf returns the journal of t, or one that discards everything when t
// keeps none.
func JournalOf(t HTTPClientInterface) Journal {
	if j, ok := t.(interface{ Journal() Journal }); ok {
		return j.Journal()
	}
	return nopJournal{}
}

// HTTPClientInterface is what entity clients depend on. Both methods return a
// non-nil response whenever the server answered, whatever the status.
type HTTPClientInterface interface {
	// Fetch sends a request with an optional body and reads the whole response.
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)

	// Upload streams req.Source as the request body and reads the whole response.
	Upload(ctx context.Context, req UploadRequest) (*FetchResponse, error)
}

var _ HTTPClientInterface = &HTTPClient{}
