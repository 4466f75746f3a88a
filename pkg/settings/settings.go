// Package settings turns the "app" configuration module into the resolved settings
// (API base URL and application name) shared with the rest of the program.
//
// Settings are resolved once, at startup, and then passed to whoever needs them.
package settings

import (
	_ "embed"

	"github.com/animalet/appenv/pkg/config"
	"github.com/animalet/appenv/pkg/environment"
	"github.com/animalet/appenv/pkg/resolver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ModuleName is the configuration key holding AppConfig.
const ModuleName = "app"

// Environment variables read by the default configuration.
const (
	EnvVarEnvironment       = "PUBLIC_APP_ENV"
	EnvVarDomainProduction  = "PUBLIC_APP_DOMAIN_PROD"
	EnvVarDomainStaging     = "PUBLIC_APP_DOMAIN_STAG"
	EnvVarDomainDevelopment = "PUBLIC_APP_DOMAIN_DEV"
	EnvVarName              = "PUBLIC_APP_NAME"
)

//go:embed default.yaml
var defaultConfig []byte

// AppConfig is the "app" configuration module.
type AppConfig struct {
	Environment string           `yaml:"environment" json:"environment" toml:"environment" xml:"environment"`
	Domains     resolver.Domains `yaml:"domains" json:"domains" toml:"domains" xml:"domains"`
	Name        string           `yaml:"name" json:"name" toml:"name" xml:"name"`
	// Strict rejects unknown environment tags and an empty domain for the selected environment
	// instead of falling back to development.
	Strict bool `yaml:"strict" json:"strict" toml:"strict" xml:"strict"`
}

// Validate implements config.Validatable. Only strict configurations can be invalid.
func (c AppConfig) Validate() error {
	if !c.Strict {
		return nil
	}
	_, err := resolver.ResolveStrict(c.input())
	return err
}

func (c AppConfig) input() resolver.Input {
	return resolver.Input{
		Tag:     c.Environment,
		Domains: c.Domains,
		AppName: c.Name,
	}
}

// Settings is the resolved configuration. It is a value with no exported fields: once built
// it cannot change, and it can be read from any goroutine.
type Settings struct {
	resolved resolver.Resolved
}

// New resolves c. Lenient configurations never fail; an unrecognized environment tag is logged
// and resolved as development.
func New(c AppConfig) (Settings, error) {
	var resolved resolver.Resolved
	if c.Strict {
		var err error
		if resolved, err = resolver.ResolveStrict(c.input()); err != nil {
			return Settings{}, errors.Wrap(err, "unable to resolve application settings")
		}
	} else {
		if _, known := environment.Lenient(c.Environment); !known {
			log.Warn().
				Str("environment", c.Environment).
				Msg("Unrecognized environment, falling back to development")
		}
		resolved = resolver.Resolve(c.input())
		if c.Domains.For(resolved.Environment) == "" {
			log.Warn().
				Str("field", "domains."+resolved.Environment.String()).
				Msg("No domain configured for the selected environment")
		}
	}

	log.Info().
		Stringer("environment", resolved.Environment).
		Str("api_url", resolved.APIURL).
		Str("app_name", resolved.AppName).
		Msg("Application settings resolved")
	return Settings{resolved: resolved}, nil
}

// Load resolves the "app" module of cfg.
func Load(cfg *config.Config) (Settings, error) {
	appCfg, err := config.Get[AppConfig](cfg, ModuleName)
	if err != nil {
		return Settings{}, errors.Wrap(err, "failed to load application configuration")
	}
	if appCfg == nil {
		return Settings{}, errors.Errorf("no %q module in configuration", ModuleName)
	}
	return New(*appCfg)
}

// DefaultConfig returns the configuration used when no file is given: every input is read
// from the PUBLIC_APP_* environment variables.
func DefaultConfig() (*config.Config, error) {
	return config.NewConfigFromBytes(defaultConfig, config.YamlFormat)
}

// FromEnvironment resolves settings from the PUBLIC_APP_* environment variables.
func FromEnvironment() (Settings, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return Settings{}, errors.Wrap(err, "invalid default configuration")
	}
	return Load(cfg)
}

// APIURL returns the base URL of the backend, e.g. "https://api.example.com".
func (s Settings) APIURL() string {
	return s.resolved.APIURL
}

// AppName returns the display name of the application.
func (s Settings) AppName() string {
	return s.resolved.AppName
}

// Environment returns the environment the settings were resolved for.
func (s Settings) Environment() environment.Environment {
	return s.resolved.Environment
}

// Resolved returns a copy of the underlying resolution.
func (s Settings) Resolved() resolver.Resolved {
	return s.resolved
}
