package registry

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/dreamware/valgate/internal/validator"
)

// Picker chooses a uniformly distributed index in [0, n). n is always > 0.
// *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// defaultPicker uses the runtime-seeded, goroutine-safe top-level generator so
// concurrent selections share no state inside the registry.
type defaultPicker struct{}

func (defaultPicker) IntN(n int) int { return rand.IntN(n) }

// SelectionKind identifies why no validator could be selected.
type SelectionKind int

const (
	// UnknownValidator means an explicit name matched nothing.
	UnknownValidator SelectionKind = iota
	// UnknownLocation means an explicit location has no validators.
	UnknownLocation
	// Empty means the registry has no validators at all.
	Empty
)

// SelectionError is returned by Select when no validator matches the hints.
// Value holds the trimmed name or location the caller asked for.
type SelectionError struct {
	Value string
	Kind  SelectionKind
}

func (e *SelectionError) Error() string {
	switch e.Kind {
	case UnknownValidator:
		return fmt.Sprintf("validator '%s' not found", e.Value)
	case UnknownLocation:
		return fmt.Sprintf("no validator available for location '%s'", e.Value)
	default:
		return "no validators available"
	}
}

// Select picks exactly one validator for a request.
//
// Policy, in strict order:
//  1. a non-blank name selects that validator or fails with UnknownValidator;
//     the location is ignored once a name is given
//  2. a non-blank location selects a random member of that group or fails
//     with UnknownLocation
//  3. otherwise a random validator from the whole registry is returned
//
// Random draws are independent across calls and go through the registry's
// Picker.
func (r *Registry) Select(name, location string) (validator.Validator, error) {
	if name = strings.TrimSpace(name); name != "" {
		v, ok := r.ByName(name)
		if !ok {
			return validator.Validator{}, &SelectionError{Kind: UnknownValidator, Value: name}
		}
		return v, nil
	}

	if location = strings.TrimSpace(location); location != "" {
		group := r.byLocation[validator.NormalizeKey(location)]
		if len(group) == 0 {
			return validator.Validator{}, &SelectionError{Kind: UnknownLocation, Value: location}
		}
		return r.At(group[r.picker.IntN(len(group))]), nil
	}

	if len(r.validators) == 0 {
		return validator.Validator{}, &SelectionError{Kind: Empty}
	}
	return r.At(r.picker.IntN(len(r.validators))), nil
}
