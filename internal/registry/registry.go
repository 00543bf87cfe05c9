// Package registry holds the immutable, indexed set of validators the gateway
// forwards to. See doc.go for complete package documentation.
package registry

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/dreamware/valgate/internal/validator"
)

// ErrEmpty is returned when a registry would be built from zero validators.
var ErrEmpty = errors.New("no validators configured")

// DuplicateNameError reports two validators whose names normalize to the same key.
// Name is the display name of the second (offending) validator.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate validator name '%s'", e.Name)
}

// Registry is the authoritative, read-only set of validators known to the
// gateway, together with the indexes used to select one per request.
//
// Architecture:
//
//	┌──────────────────────────────────────────┐
//	│               Registry                   │
//	├──────────────────────────────────────────┤
//	│  validators: []Validator (config order)  │
//	│  byName:     "frankfurt-1" → 0           │
//	│  byLocation: "frankfurt"   → [0, 3]      │
//	├──────────────────────────────────────────┤
//	│  name     → byName     → validator       │
//	│  location → byLocation → random member   │
//	│  (none)   → random over all validators   │
//	└──────────────────────────────────────────┘
//
// Concurrency Model:
//   - Built once by New; never mutated afterwards
//   - No locks: any number of goroutines may read concurrently
//   - Slices handed to callers are copies
//
// Performance Characteristics:
//   - ByName: O(1) map lookup
//   - InLocation: O(k) copy of the matching positions
//   - Select: O(1) plus one random draw
type Registry struct {
	// byName maps the normalized name of every validator to its position.
	// It is a bijection over normalized names; New rejects collisions.
	byName map[string]int

	// byLocation groups positions by normalized location.
	// Every position refers to an element of validators.
	byLocation map[string][]int

	// picker draws the random index for location and whole-registry selection.
	picker Picker

	// validators keeps the configuration order for listing.
	validators []validator.Validator
}

// Option customizes a Registry at construction time.
type Option func(*Registry)

// WithPicker replaces the random source used by Select. Tests use it with a
// seeded generator to make random selection reproducible.
func WithPicker(p Picker) Option {
	return func(r *Registry) {
		if p != nil {
			r.picker = p
		}
	}
}

// New builds a registry from the full ordered list of validators.
//
// Construction is all-or-nothing:
//   - an empty list yields ErrEmpty
//   - the first pair of names that normalize to the same key yields a
//     *DuplicateNameError carrying the later display name
//
// The input slice is copied; later changes to it do not affect the registry.
//
// Example:
//
//	reg, err := registry.New(validators)
//	if err != nil {
//	    return fmt.Errorf("build registry: %w", err)
//	}
func New(validators []validator.Validator, opts ...Option) (*Registry, error) {
	if len(validators) == 0 {
		return nil, ErrEmpty
	}

	r := &Registry{
		validators: slices.Clone(validators),
		byName:     make(map[string]int, len(validators)),
		byLocation: make(map[string][]int),
		picker:     defaultPicker{},
	}

	for idx, v := range r.validators {
		nameKey := validator.NormalizeKey(v.Name())
		if _, exists := r.byName[nameKey]; exists {
			return nil, &DuplicateNameError{Name: v.Name()}
		}
		r.byName[nameKey] = idx

		locKey := validator.NormalizeKey(v.Location())
		r.byLocation[locKey] = append(r.byLocation[locKey], idx)
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Len returns the number of validators. It is never zero for a registry
// returned by New.
func (r *Registry) Len() int {
	return len(r.validators)
}

// Validators returns every validator in configuration order.
func (r *Registry) Validators() []validator.Validator {
	return slices.Clone(r.validators)
}

// Summaries returns the public projection of every validator in configuration
// order. This is what the discovery endpoint serves.
func (r *Registry) Summaries() []validator.Summary {
	out := make([]validator.Summary, 0, len(r.validators))
	for _, v := range r.validators {
		out = append(out, v.Summary())
	}
	return out
}

// ByName looks a validator up by name, ignoring case and surrounding whitespace.
func (r *Registry) ByName(name string) (validator.Validator, bool) {
	idx, ok := r.byName[validator.NormalizeKey(name)]
	if !ok {
		return validator.Validator{}, false
	}
	return r.validators[idx], true
}

// InLocation returns the positions of the validators whose location matches,
// ignoring case and surrounding whitespace. The result is nil for an unknown
// location.
func (r *Registry) InLocation(location string) []int {
	return slices.Clone(r.byLocation[validator.NormalizeKey(location)])
}

// At returns the validator at position idx as reported by InLocation.
func (r *Registry) At(idx int) validator.Validator {
	return r.validators[idx]
}

// Locations returns the normalized location keys in sorted order.
func (r *Registry) Locations() []string {
	keys := make([]string, 0, len(r.byLocation))
	for k := range r.byLocation {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
