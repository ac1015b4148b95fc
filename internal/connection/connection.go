package connection

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/debuglog"
)

// Connection is one target host with its credentials, TLS and proxy policy.
// Credentials leave a Connection only as the Authorization header built by
// the transport.
type Connection struct {
	Scheme        string
	Host          string
	Port          int
	ValidateCerts bool
	Proxy         httpclient.ProxySettings
	Timeout       time.Duration
	Debug         bool
	LogFile       string

	username string
	password string
}

var _ httpclient.Configurator = &Connection{}

// New builds a Connection from decoded parameters.
func New(p *Params) *Connection {
	verify := true
	if p.ValidateCerts != nil {
		verify = *p.ValidateCerts
	}
	debug := false
	if p.Debug != nil {
		debug = *p.Debug
	}
	scheme, host := p.Scheme, p.Host
	if s, rest, ok := strings.Cut(host, "://"); ok {
		scheme, host = s, rest
	}
	host = strings.TrimRight(host, "/")
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Connection{
		Scheme:        scheme,
		Host:          host,
		Port:          p.Port,
		ValidateCerts: verify,
		Proxy: httpclient.ProxySettings{
			HTTPSProxy: p.HTTPSProxy,
			HTTPProxy:  p.HTTPProxy,
			AllProxy:   p.AllProxy,
			NoProxy:    p.NoProxy,
			Username:   p.ProxyUsername,
			Password:   p.ProxyPassword,
		},
		Timeout:  time.Duration(p.Timeout) * time.Second,
		Debug:    debug,
		LogFile:  p.LogFile,
		username: p.Username,
		password: p.Password,
	}
}

// Load decodes params (with profile and environment fallback) into a Connection.
func Load(params, profile map[string]any, getenv func(string) string) (*Connection, error) {
	p, err := DecodeParams(params, profile, getenv)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// GetServerURL returns scheme://host[:port] without a trailing slash.
func (c *Connection) GetServerURL() string {
	host := c.Host
	if c.Port > 0 {
		host = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(c.Port))
	}
	return c.Scheme + "://" + host
}

// GetCredentials returns the basic auth username and password.
func (c *Connection) GetCredentials() (string, string) {
	return c.username, c.password
}

// GetValidateCerts reports whether server certificates are verified.
func (c *Connection) GetValidateCerts() bool {
	return c.ValidateCerts
}

// GetProxySettings returns the explicit proxy settings. Environment
// variables are consulted by the transport for anything left empty.
func (c *Connection) GetProxySettings() httpclient.ProxySettings {
	return c.Proxy
}

// GetTimeout returns the per-request HTTP timeout. Zero leaves the
// transport default in place.
func (c *Connection) GetTimeout() time.Duration {
	return c.Timeout
}

// HasCredentials reports whether basic auth will be sent.
func (c *Connection) HasCredentials() bool {
	return c.username != "" && c.password != ""
}

// Journal returns the debug logger configured for this connection, consulting
// NUTANIX_DEBUG and NUTANIX_LOG_FILE for anything not set explicitly.
func (c *Connection) Journal(getenv func(string) string) *debuglog.Logger {
	return debuglog.FromEnv(debuglog.Options{Enabled: c.Debug, Path: c.LogFile}, getenv)
}

// Transport returns an HTTP transport bound to this connection.
func (c *Connection) Transport(opts ...httpclient.ClientOptions) *httpclient.HTTPClient {
	return httpclient.NewClient(c, opts...)
}

// String never includes the password.
func (c *Connection) String() string {
	user := c.username
	if user == "" {
		user = "<none>"
	}
	return fmt.Sprintf("%s (user=%s, validate_certs=%t)", c.GetServerURL(), user, c.ValidateCerts)
}
