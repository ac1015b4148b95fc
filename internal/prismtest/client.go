package prismtest

import (
	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/connection"
)

// Host is the host every test connection points at.
const Host = "test.com"

// Conn returns a connection to https://test.com with basic credentials.
func Conn() *connection.Connection {
	return connection.New(&connection.Params{
		Host:     Host,
		Username: "admin",
		Password: "nutanix/4u",
	})
}

// Client returns a transport that serves every request from s.
func (s *Server) Client(opts ...httpclient.ClientOptions) (*httpclient.HTTPClient, *httpclient.HandlerTransport) {
	return httpclient.NewTestClient(Conn(), s.Router, opts...)
}
