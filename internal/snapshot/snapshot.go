// Package snapshot detaches configuration values from their caller: a component built from a
// snapshot does not see later writes through slices, maps or pointers the caller still holds.
package snapshot

import (
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Copy returns v with every slice, map and pointer reachable from it duplicated.
func Copy[T any](v T) (T, error) {
	var detached T
	if err := deepcopy.Copy(&detached, v); err != nil {
		return detached, errors.Wrapf(err, "cannot snapshot %T", v)
	}
	return detached, nil
}

// Of is Copy for constructors. Configuration types are plain data, so a failure is a bug and panics.
func Of[T any](v T) T {
	detached, err := Copy(v)
	if err != nil {
		panic(err)
	}
	return detached
}
