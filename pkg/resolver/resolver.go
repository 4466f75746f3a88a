// Package resolver derives the API base URL of an application from its environment tag
// and the domain configured for each environment.
//
// Resolution is a pure function of its input: the same Input always yields the same Resolved,
// nothing is cached and nothing is reached over the network.
package resolver

import (
	"github.com/animalet/appenv/pkg/environment"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownEnvironment is returned by ResolveStrict for tags outside the known set.
	ErrUnknownEnvironment = errors.New("unknown environment tag")
	// ErrEmptyDomain is returned by ResolveStrict when the selected environment has no domain.
	ErrEmptyDomain = errors.New("domain is empty")
)

// Domains holds the host (and optional port) of the backend for each environment, without scheme.
type Domains struct {
	Production  string `yaml:"production" json:"production" toml:"production" xml:"production"`
	Staging     string `yaml:"staging" json:"staging" toml:"staging" xml:"staging"`
	Development string `yaml:"development" json:"development" toml:"development" xml:"development"`
}

// For returns the domain configured for env.
func (d Domains) For(env environment.Environment) string {
	switch env {
	case environment.Production:
		return d.Production
	case environment.Staging:
		return d.Staging
	case environment.Development:
		return d.Development
	default:
		return d.Development
	}
}

// Input gathers everything Resolve needs.
type Input struct {
	Tag     string
	Domains Domains
	AppName string
}

// Resolved is the outcome of a resolution. It is never mutated once produced.
type Resolved struct {
	APIURL      string                  `json:"apiUrl" yaml:"apiUrl" toml:"apiUrl"`
	AppName     string                  `json:"appName" yaml:"appName" toml:"appName"`
	Environment environment.Environment `json:"environment" yaml:"environment" toml:"environment"`
}

// BaseURL joins the scheme of env with domain. The domain is used verbatim.
func BaseURL(env environment.Environment, domain string) string {
	return env.Scheme() + "://" + domain
}

// Resolve selects the API URL for in.Tag: "production" and "staging" map to https on their own
// domain, every other tag (empty included) maps to http on the development domain.
// It performs no validation and cannot fail.
func Resolve(in Input) Resolved {
	env, _ := environment.Lenient(in.Tag)
	return resolve(env, in)
}

// ResolveStrict is Resolve for callers that want misconfiguration reported instead of absorbed:
// the tag must be one of the known environments and the selected domain must not be empty.
func ResolveStrict(in Input) (Resolved, error) {
	env, err := environment.Parse(in.Tag)
	if err != nil {
		return Resolved{}, errors.Wrapf(ErrUnknownEnvironment, "%q", in.Tag)
	}
	if in.Domains.For(env) == "" {
		return Resolved{}, errors.Wrapf(ErrEmptyDomain, "no domain configured for %s", env)
	}
	return resolve(env, in), nil
}

func resolve(env environment.Environment, in Input) Resolved {
	return Resolved{
		APIURL:      BaseURL(env, in.Domains.For(env)),
		AppName:     in.AppName,
		Environment: env,
	}
}
