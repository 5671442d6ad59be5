package dataset

import (
	"fmt"
	"math"

	"subpower/domain/core"
)

// DistanceMatrix is a square symmetric matrix of pairwise relations between
// observations. Entries are not independent of each other, which is why
// relational data is only ever subsampled without replacement.
type DistanceMatrix struct {
	Data [][]float64 `json:"data"`
}

// NewDistanceMatrix validates and wraps a square symmetric matrix with a
// zero diagonal
func NewDistanceMatrix(data [][]float64) (*DistanceMatrix, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", core.ErrMatrixShape)
	}
	for i, row := range data {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", core.ErrMatrixShape, i, len(row), n)
		}
		if data[i][i] != 0 {
			return nil, fmt.Errorf("%w: diagonal entry %d is %g", core.ErrMatrixShape, i, data[i][i])
		}
		for j := 0; j < i; j++ {
			if math.Abs(data[i][j]-data[j][i]) > 1e-12 {
				return nil, fmt.Errorf("%w: entry (%d,%d) differs from (%d,%d)", core.ErrMatrixShape, i, j, j, i)
			}
		}
	}
	return &DistanceMatrix{Data: data}, nil
}

// Size returns the number of observations
func (m *DistanceMatrix) Size() int {
	return len(m.Data)
}

// At returns the distance between observations i and j
func (m *DistanceMatrix) At(i, j int) float64 {
	return m.Data[i][j]
}

// Filter extracts the submatrix over the given identifiers, in order. The
// same identifier list applied to two paired matrices preserves the pairing.
func (m *DistanceMatrix) Filter(ids []int) (*DistanceMatrix, error) {
	n := m.Size()
	sub := make([][]float64, len(ids))
	for i, a := range ids {
		if a < 0 || a >= n {
			return nil, core.NewValidationError("distance_matrix", fmt.Sprintf("id %d outside [0,%d)", a, n))
		}
		sub[i] = make([]float64, len(ids))
		for j, b := range ids {
			sub[i][j] = m.Data[a][b]
		}
	}
	return &DistanceMatrix{Data: sub}, nil
}

// Condensed returns the strictly-upper-triangle entries in row-major order.
// Two filtered paired matrices yield aligned condensed vectors.
func (m *DistanceMatrix) Condensed() []float64 {
	n := m.Size()
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, m.Data[i][j])
		}
	}
	return out
}
