package ports

import (
	"math/rand"

	"subpower/domain/core"
)

// RNGPort provides seeded random number generation for deterministic draws
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a
	// named operation
	SeededStream(name string, seed int64) *rand.Rand

	// Stream creates a deterministic RNG stream for one work item. Distinct
	// (family, replicate) pairs receive uncorrelated streams derived from the
	// same run-level seed, so repeating a batch with one seed reproduces its
	// curves exactly regardless of scheduling.
	Stream(family core.FamilyName, replicate int, baseSeed int64) *rand.Rand
}
