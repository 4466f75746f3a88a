package secrets

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const fetchTimeout = 10 * time.Second

// document is one remote secret holding several keys, e.g. the three domains and the app name.
// It is fetched on the first lookup; the result, failure included, is kept for the life of the process.
type document struct {
	fetch func(ctx context.Context) (map[string]any, error)

	once   sync.Once
	values map[string]any
	err    error
}

func (d *document) lookup(key string) (string, error) {
	d.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		d.values, d.err = d.fetch(ctx)
	})
	if d.err != nil {
		return "", d.err
	}

	raw, ok := d.values[key]
	if !ok {
		return "", ErrNotFound
	}
	value, ok := raw.(string)
	if !ok {
		return "", errors.Errorf("value is %T, not a string", raw)
	}
	return value, nil
}
