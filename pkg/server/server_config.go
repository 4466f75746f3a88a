package server

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ModuleName is the configuration key holding ServerConfig.
const ModuleName = "server"

// DefaultPath is where the settings are published when ServerConfig.Path is empty.
const DefaultPath = "/env.json"

// ModulePath is where the settings are published as an ES module.
const ModulePath = "/env.js"

// ServerConfig is the "server" configuration module.
type ServerConfig struct {
	Address string `yaml:"address" json:"address" toml:"address" xml:"address"`
	Path    string `yaml:"path" json:"path" toml:"path" xml:"path"`
	// AllowedHosts restricts the Host header outside debug mode. Empty allows any host.
	AllowedHosts          []string `yaml:"allowed_hosts" json:"allowed_hosts" toml:"allowed_hosts" xml:"allowed_hosts"`
	ContentSecurityPolicy string   `yaml:"content_security_policy" json:"content_security_policy" toml:"content_security_policy" xml:"content_security_policy"`
}

// Validate requires an address that resolves as TCP and, when set, a path starting with "/"
// other than ModulePath.
func (c ServerConfig) Validate() error {
	if c.Address == "" {
		return errors.New("address must be set and non-empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", c.Address); err != nil {
		return errors.Wrap(err, "invalid address")
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return errors.Errorf("path %q must start with /", c.Path)
	}
	if c.Path == ModulePath {
		return errors.Errorf("path %q is reserved", c.Path)
	}
	return nil
}

func (c ServerConfig) path() string {
	if c.Path == "" {
		return DefaultPath
	}
	return c.Path
}
