// Package config holds the process configuration of the ippool server.
//
// Values are resolved in order: Default, an optional YAML file, then
// IPPOOL_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/spluca/ippool"
)

const envPrefix = "IPPOOL"

type CORSConfig struct {
	Enable         bool     `yaml:"enable"`
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
}

type Config struct {
	ListenAddress string `yaml:"listen_address" split_words:"true"`
	ListenPort    int    `yaml:"listen_port" split_words:"true"`

	// Network is the first three octets of the /24 to serve, or its CIDR.
	Network    string `yaml:"network"`
	Gateway    string `yaml:"gateway"`
	RangeStart uint8  `yaml:"range_start" split_words:"true"`
	RangeEnd   uint8  `yaml:"range_end" split_words:"true"`

	// BasePath prefixes every HTTP route. Empty mounts them at the root.
	BasePath string `yaml:"base_path" split_words:"true"`

	LogLevel string `yaml:"log_level" split_words:"true"`
	// Debug forces debug logging regardless of LogLevel.
	Debug bool `yaml:"debug"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`

	CORS CORSConfig `yaml:"cors"`
}

var Default = Config{
	ListenAddress:   "0.0.0.0",
	ListenPort:      8080,
	Network:         "172.16.0",
	Gateway:         "172.16.0.1",
	RangeStart:      ippool.DefaultRangeStart,
	RangeEnd:        ippool.DefaultRangeEnd,
	BasePath:        "/api/v1",
	LogLevel:        "info",
	ShutdownTimeout: 10 * time.Second,
}

// Load fills conf from Default, the YAML file at path (skipped when path is
// empty) and the environment. A missing file is an error: the caller asked
// for it explicitly.
func Load(path string, conf *Config) error {
	*conf = Default
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return errors.Wrapf(err, "parsing config file %s", path)
		}
	}
	if err := envconfig.Process(envPrefix, conf); err != nil {
		return errors.Wrap(err, "processing environment")
	}
	return nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.ListenPort < 1 || c.ListenPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("listen port %d out of range", c.ListenPort))
	}
	if c.ListenAddress != "" {
		if _, err := netip.ParseAddr(c.ListenAddress); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid listen address %q", c.ListenAddress))
		}
	}
	if _, err := ippool.ParseNetwork(c.Network); err != nil {
		result = multierror.Append(result, err)
	}
	if gw, err := netip.ParseAddr(c.Gateway); err != nil || !gw.Is4() {
		result = multierror.Append(result, fmt.Errorf("invalid gateway address %q", c.Gateway))
	}
	if c.RangeStart > c.RangeEnd {
		result = multierror.Append(result, fmt.Errorf("range start %d is after range end %d", c.RangeStart, c.RangeEnd))
	}
	if c.BasePath != "" && (!strings.HasPrefix(c.BasePath, "/") || strings.HasSuffix(c.BasePath, "/")) {
		result = multierror.Append(result, fmt.Errorf("base path %q must start with / and not end with one", c.BasePath))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if c.ShutdownTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}

	return result.ErrorOrNil()
}

// Addr is the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(c.ListenPort))
}

// Level is the effective log level. Call after Validate.
func (c *Config) Level() logrus.Level {
	if c.Debug {
		return logrus.DebugLevel
	}
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (c *Config) Pool() ippool.Config {
	return ippool.Config{
		Network:    c.Network,
		Gateway:    c.Gateway,
		RangeStart: c.RangeStart,
		RangeEnd:   c.RangeEnd,
	}
}
