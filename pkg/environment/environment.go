// Package environment defines the closed set of deployment targets an application can be resolved for.
package environment

import "github.com/pkg/errors"

// Environment identifies a deployment target. The zero value is Development.
type Environment uint8

const (
	Development Environment = iota
	Staging
	Production
)

// Tags recognized in configuration. Matching is exact and case-sensitive.
const (
	DevelopmentTag = "development"
	StagingTag     = "staging"
	ProductionTag  = "production"
)

// ErrUnknown is returned when a tag does not name one of the known environments.
var ErrUnknown = errors.New("unknown environment")

// All returns every known environment, most permissive first.
func All() []Environment {
	return []Environment{Development, Staging, Production}
}

// Parse maps a tag to its Environment. Anything other than the three known tags is an error.
func Parse(tag string) (Environment, error) {
	switch tag {
	case ProductionTag:
		return Production, nil
	case StagingTag:
		return Staging, nil
	case DevelopmentTag:
		return Development, nil
	default:
		return Development, errors.Wrapf(ErrUnknown, "%q", tag)
	}
}

// Lenient maps a tag to its Environment, treating every unrecognized tag (including the empty one)
// as Development. known reports whether the tag was one of the recognized ones, so callers can
// surface the fallback instead of taking it silently.
func Lenient(tag string) (env Environment, known bool) {
	env, err := Parse(tag)
	return env, err == nil
}

// String returns the tag of the environment.
func (e Environment) String() string {
	switch e {
	case Production:
		return ProductionTag
	case Staging:
		return StagingTag
	case Development:
		return DevelopmentTag
	default:
		return "unknown"
	}
}

// Scheme returns the URL scheme used to reach the backend in this environment.
func (e Environment) Scheme() string {
	if e.IsSecure() {
		return "https"
	}
	return "http"
}

// IsSecure reports whether the environment is served over TLS.
func (e Environment) IsSecure() bool {
	switch e {
	case Production, Staging:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Environment) MarshalText() ([]byte, error) {
	switch e {
	case Development, Staging, Production:
		return []byte(e.String()), nil
	default:
		return nil, errors.Errorf("invalid environment value %d", uint8(e))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike Lenient it rejects unknown tags.
func (e *Environment) UnmarshalText(text []byte) error {
	env, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = env
	return nil
}
