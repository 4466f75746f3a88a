package secrets

import (
	"os"

	"github.com/rs/zerolog/log"
)

// Environment reads process environment variables. An unset variable is the empty string, the way
// a bundler inlines a missing PUBLIC_APP_* variable; whether that matters is decided by whoever
// uses the value.
type Environment struct{}

func (Environment) Lookup(key string) (string, error) {
	value, set := os.LookupEnv(key)
	log.Debug().Str("env_var", key).Bool("set", set).Msg("Read environment variable")
	return value, nil
}
