package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// ConfigHash fingerprints an estimation configuration for run manifests
type ConfigHash Hash

// NewConfigHash creates a config fingerprint
func NewConfigHash(data []byte) ConfigHash { return ConfigHash(NewHash(data)) }

// String returns the string representation
func (h ConfigHash) String() string { return Hash(h).String() }

// ComputeConfigHash fingerprints the estimation parameters that determine a
// run's output, so persisted summaries can be traced back to their settings
func ComputeConfigHash(alpha float64, counts []int, numIter, numRuns int, seed int64) ConfigHash {
	var data strings.Builder
	data.WriteString(fmt.Sprintf("alpha=%g;", alpha))
	for _, c := range counts {
		data.WriteString(fmt.Sprintf("%d,", c))
	}
	data.WriteString(fmt.Sprintf(";iter=%d;runs=%d;seed=%d", numIter, numRuns, seed))
	return NewConfigHash([]byte(data.String()))
}
