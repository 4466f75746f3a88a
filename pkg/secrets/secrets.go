// Package secrets supplies the values of "${prefix:key}" placeholders found in configuration.
//
// The prefix selects a Provider: "env" (the default, used when there is no prefix) reads the
// process environment, and "file", "vault" and "aws" read values kept outside the configuration
// file once the application has registered them.
package secrets

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultPrefix is used for properties without a prefix.
const DefaultPrefix = "env"

// ErrNotFound is returned by providers that have no value for a key.
var ErrNotFound = errors.New("not found")

// Provider looks up one key. Implementations must be safe for concurrent use.
type Provider interface {
	Lookup(key string) (string, error)
}

// LookupError is the error returned by Resolve.
type LookupError struct {
	Prefix string
	Key    string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s:%s: %v", e.Prefix, e.Key, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

var registry = struct {
	sync.RWMutex
	providers map[string]Provider
}{providers: map[string]Provider{DefaultPrefix: Environment{}}}

// Register binds p to prefix. The prefix must not include the colon.
func Register(prefix string, p Provider) {
	registry.Lock()
	defer registry.Unlock()

	if _, bound := registry.providers[prefix]; bound {
		log.Warn().Str("prefix", prefix).Msg("Replacing secret provider")
	}
	registry.providers[prefix] = p
}

// Unregister removes the provider bound to prefix, if any.
func Unregister(prefix string) {
	registry.Lock()
	defer registry.Unlock()
	delete(registry.providers, prefix)
}

// Lookup returns the provider bound to prefix.
func Lookup(prefix string) (Provider, bool) {
	registry.RLock()
	defer registry.RUnlock()
	p, ok := registry.providers[prefix]
	return p, ok
}

// Prefixes returns the bound prefixes, sorted.
func Prefixes() []string {
	registry.RLock()
	defer registry.RUnlock()
	prefixes := make([]string, 0, len(registry.providers))
	for prefix := range registry.providers {
		prefixes = append(prefixes, prefix)
	}
	slices.Sort(prefixes)
	return prefixes
}

// Resolve returns the value of a placeholder body such as "vault:DOMAIN_PROD" or "PUBLIC_APP_ENV".
// Only the first colon separates the prefix, so "aws:a:b" reads key "a:b". Failures are *LookupError.
func Resolve(property string) (string, error) {
	prefix, key, found := strings.Cut(property, ":")
	if !found {
		prefix, key = DefaultPrefix, property
	}

	p, ok := Lookup(prefix)
	if !ok {
		return "", &LookupError{Prefix: prefix, Key: key, Err: errors.Errorf("no secret provider registered for prefix %q", prefix)}
	}
	value, err := p.Lookup(key)
	if err != nil {
		return "", &LookupError{Prefix: prefix, Key: key, Err: err}
	}
	return value, nil
}
