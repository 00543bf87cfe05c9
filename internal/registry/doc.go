// Package registry implements the validator registry and the selection policy
// used for every proxied request.
//
// # Overview
//
// The registry is built exactly once at startup from a configuration source
// and is read-only for the lifetime of the process. It is handed to the HTTP
// layer by pointer; there is no package-level state.
//
// # Loading
//
// LoadFile reads a CSV (default) or YAML file, turns each row into a
// validator with validator.Build and assembles the registry with New. Loading
// is all-or-nothing: a single invalid row, an empty result or two names that
// collide after normalization abort it.
//
//	reg, err := registry.LoadFile("config/validators.csv")
//	if err != nil {
//	    logger.Fatal("load validators", zap.Error(err))
//	}
//
// # Selection
//
// Select implements the routing policy:
//
//	Select("Frankfurt-1", "")  → the validator named frankfurt-1 (any case)
//	Select("", "frankfurt")    → a random validator in location frankfurt
//	Select("", "")             → a random validator
//
// Failures are *SelectionError values whose Kind tells the caller which hint
// could not be satisfied.
//
// # Randomness
//
// Random draws go through the Picker interface. The default implementation
// uses the top-level math/rand/v2 functions, which are safe for concurrent use
// and seeded by the runtime. Tests pass WithPicker(rand.New(...)) for
// reproducible sequences.
//
// # Concurrency
//
// A Registry is never mutated after New returns, so all methods are safe for
// concurrent use without locks.
package registry
