package connection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(map[string]any{
		"nutanix_host":     "test.com",
		"nutanix_username": "admin",
		"nutanix_password": "secret",
	}, nil, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "https://test.com:9440", c.GetServerURL())
	assert.True(t, c.GetValidateCerts())
	assert.Equal(t, 60*time.Second, c.GetTimeout())
	u, p := c.GetCredentials()
	assert.Equal(t, "admin", u)
	assert.Equal(t, "secret", p)
	assert.True(t, c.HasCredentials())
	assert.NotContains(t, c.String(), "secret")
}

func TestLoadPrecedence(t *testing.T) {
	env := envOf(map[string]string{
		"NUTANIX_HOST":     "env-host",
		"NUTANIX_PORT":     "1111",
		"NUTANIX_USERNAME": "env-user",
		"NUTANIX_PASSWORD": "env-pass",
		"VALIDATE_CERTS":   "false",
	})
	profile := map[string]any{"nutanix_host": "profile-host", "nutanix_port": int64(2222)}
	params := map[string]any{"nutanix_port": "3333", "nutanix_username": nil}

	c, err := Load(params, profile, env)
	require.NoError(t, err)
	assert.Equal(t, "profile-host", c.Host)
	assert.Equal(t, 3333, c.Port)
	u, _ := c.GetCredentials()
	assert.Equal(t, "env-user", u)
	assert.False(t, c.ValidateCerts)
}

func TestLoadSchemeAndPort(t *testing.T) {
	c, err := Load(map[string]any{"nutanix_host": "http://10.0.0.1/", "nutanix_port": 0}, nil, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1", c.GetServerURL())

	c, err = Load(map[string]any{"nutanix_host": "fd00::1", "nutanix_port": 9440}, nil, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "https://[fd00::1]:9440", c.GetServerURL())
}

func TestLoadProxiesAndDebug(t *testing.T) {
	c, err := Load(map[string]any{
		"nutanix_host":     "pc",
		"https_proxy":      "http://proxy:3128",
		"no_proxy":         ".corp",
		"proxy_username":   "pu",
		"proxy_password":   "pp",
		"nutanix_debug":    true,
		"nutanix_log_file": "/tmp/x.log",
	}, nil, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "http://proxy:3128", c.Proxy.HTTPSProxy)
	assert.Equal(t, ".corp", c.Proxy.NoProxy)
	assert.Equal(t, "pu", c.Proxy.Username)
	j := c.Journal(envOf(nil))
	assert.True(t, j.Enabled())
	assert.Equal(t, "/tmp/x.log", j.Path())
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(map[string]any{}, nil, envOf(nil))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInput, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "nutanix_host")

	_, err = Load(map[string]any{"nutanix_host": "h", "nutanix_port": 70000}, nil, envOf(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nutanix_port")

	_, err = Load(map[string]any{"nutanix_host": "h", "nutanix_port": "abc"}, nil, envOf(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profiles.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
default = "lab"

[profiles.lab]
nutanix_host = "10.0.0.10"
nutanix_username = "admin"
validate_certs = false

[profiles.prod]
nutanix_host = "pc.prod"
`), 0600))

	p, err := LoadProfile(file, "")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.10", p["nutanix_host"])

	p, err = LoadProfile(file, "prod")
	require.NoError(t, err)
	assert.Equal(t, "pc.prod", p["nutanix_host"])

	_, err = LoadProfile(file, "missing")
	assert.ErrorIs(t, err, ErrProfile)

	p, err = LoadProfile(filepath.Join(dir, "none.toml"), "")
	require.NoError(t, err)
	assert.Nil(t, p)

	c, err := Load(map[string]any{}, must(LoadProfile(file, "lab")), envOf(nil))
	require.NoError(t, err)
	assert.False(t, c.ValidateCerts)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("PRISMCTL_TEST_DOTENV=from-file\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("PRISMCTL_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(file))
	assert.Equal(t, "from-file", os.Getenv("PRISMCTL_TEST_DOTENV"))
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}

func must(m map[string]any, err error) map[string]any {
	if err != nil {
		panic(err)
	}
	return m
}
