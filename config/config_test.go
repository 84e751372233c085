package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	require.NoError(t, Load("", &c))

	assert.Equal(t, Default, c)
	assert.NoError(t, c.Validate())
	assert.Equal(t, "0.0.0.0:8080", c.Addr())
	assert.Equal(t, logrus.InfoLevel, c.Level())

	p := c.Pool()
	assert.Equal(t, "172.16.0", p.Network)
	assert.Equal(t, "172.16.0.1", p.Gateway)
	assert.EqualValues(t, 2, p.RangeStart)
	assert.EqualValues(t, 254, p.RangeEnd)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ippool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_port: 9090
network: 10.0.0
gateway: 10.0.0.1
range_start: 10
range_end: 20
base_path: ""
log_level: warn
shutdown_timeout: 3s
cors:
  enable: true
  allowed_origins:
    - https://console.example.com
`), 0o644))

	var c Config
	require.NoError(t, Load(path, &c))
	require.NoError(t, c.Validate())

	assert.Equal(t, 9090, c.ListenPort)
	assert.Equal(t, "0.0.0.0", c.ListenAddress)
	assert.Equal(t, "10.0.0", c.Network)
	assert.EqualValues(t, 10, c.RangeStart)
	assert.EqualValues(t, 20, c.RangeEnd)
	assert.Empty(t, c.BasePath)
	assert.Equal(t, logrus.WarnLevel, c.Level())
	assert.Equal(t, 3*time.Second, c.ShutdownTimeout)
	assert.True(t, c.CORS.Enable)
	assert.Equal(t, []string{"https://console.example.com"}, c.CORS.AllowedOrigins)
}

func TestLoadMissingFile(t *testing.T) {
	var c Config
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &c)
	assert.Error(t, err)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ippool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_port: [not, a, port]\n"), 0o644))

	var c Config
	assert.Error(t, Load(path, &c))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ippool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: 10.0.0\ngateway: 10.0.0.1\n"), 0o644))

	t.Setenv("IPPOOL_NETWORK", "192.168.7")
	t.Setenv("IPPOOL_GATEWAY", "192.168.7.1")
	t.Setenv("IPPOOL_LISTEN_PORT", "8181")
	t.Setenv("IPPOOL_RANGE_END", "100")
	t.Setenv("IPPOOL_DEBUG", "true")
	t.Setenv("IPPOOL_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	var c Config
	require.NoError(t, Load(path, &c))
	require.NoError(t, c.Validate())

	assert.Equal(t, "192.168.7", c.Network)
	assert.Equal(t, "192.168.7.1", c.Gateway)
	assert.Equal(t, 8181, c.ListenPort)
	assert.EqualValues(t, 100, c.RangeEnd)
	assert.Equal(t, logrus.DebugLevel, c.Level())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORS.AllowedOrigins)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("IPPOOL_LISTEN_PORT", "eighty")

	var c Config
	assert.Error(t, Load("", &c))
}

func TestValidate(t *testing.T) {
	c := Default
	c.ListenPort = 0
	c.ListenAddress = "localhost:80"
	c.Network = "10.0"
	c.Gateway = "gateway"
	c.RangeStart = 50
	c.RangeEnd = 40
	c.BasePath = "api/"
	c.LogLevel = "chatty"
	c.ShutdownTimeout = 0

	err := c.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 8)
}

func TestValidateBasePath(t *testing.T) {
	for path, ok := range map[string]bool{
		"":         true,
		"/api/v1":  true,
		"/":        false,
		"api":      false,
		"/api/v1/": false,
	} {
		c := Default
		c.BasePath = path
		if ok {
			assert.NoError(t, c.Validate(), path)
		} else {
			assert.Error(t, c.Validate(), path)
		}
	}
}
