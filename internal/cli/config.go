package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/connection"
	"github.com/rs/zerolog/log"
)

// DefaultConfigFile is the name of the profile file in the user config directory.
const DefaultConfigFile = "profiles.toml"

// GetDefaultConfigPath returns the default profile file path, e.g.
// ~/.config/prismctl/profiles.toml on Linux.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "prismctl", DefaultConfigFile), nil
}

// newTransport builds the transport of a connection. Tests replace it.
var newTransport = func(conn *connection.Connection) httpclient.HTTPClientInterface {
	return conn.Transport(httpclient.ClientOptions{Journal: conn.Journal(os.Getenv)})
}

// target is one resolved connection.
type target struct {
	conn      *connection.Connection
	transport httpclient.HTTPClientInterface
}

// connect resolves the connection of params: explicit connection keys in
// params, then the selected profile, then NUTANIX_* variables.
func connect(params map[string]any) (*target, error) {
	profile, err := connection.LoadProfile(opts.configFile, opts.profile)
	if err != nil {
		return nil, err
	}
	conn, err := connection.Load(params, profile, os.Getenv)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("connection", conn.String()).Msg("connecting")
	return &target{conn: conn, transport: newTransport(conn)}, nil
}
