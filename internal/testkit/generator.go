package testkit

import (
	"math"
	"math/rand"

	"subpower/domain/dataset"
)

// NormalGroups generates one vector per mean, each of n observations drawn
// from Normal(mean, sd)
func NormalGroups(rng *rand.Rand, n int, sd float64, means ...float64) [][]float64 {
	groups := make([][]float64, len(means))
	for gi, mean := range means {
		values := make([]float64, n)
		for i := range values {
			values[i] = mean + sd*rng.NormFloat64()
		}
		groups[gi] = values
	}
	return groups
}

// CorrelatedPairs generates two vectors of length n with population
// correlation rho
func CorrelatedPairs(rng *rand.Rand, n int, rho float64) ([]float64, []float64) {
	x := make([]float64, n)
	y := make([]float64, n)
	scale := math.Sqrt(1 - rho*rho)
	for i := range x {
		x[i] = rng.NormFloat64()
		y[i] = rho*x[i] + scale*rng.NormFloat64()
	}
	return x, y
}

// ClusteredPoints generates n points per cluster center in 2D with unit
// noise, returning all points in center order
func ClusteredPoints(rng *rand.Rand, n int, centers ...[2]float64) [][2]float64 {
	points := make([][2]float64, 0, n*len(centers))
	for _, c := range centers {
		for i := 0; i < n; i++ {
			points = append(points, [2]float64{
				c[0] + rng.NormFloat64(),
				c[1] + rng.NormFloat64(),
			})
		}
	}
	return points
}

// EuclideanDistances builds a distance matrix over 2D points
func EuclideanDistances(points [][2]float64) *dataset.DistanceMatrix {
	n := len(points)
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := points[i][0] - points[j][0]
			dy := points[i][1] - points[j][1]
			d := math.Hypot(dx, dy)
			data[i][j] = d
			data[j][i] = d
		}
	}
	m, err := dataset.NewDistanceMatrix(data)
	if err != nil {
		// construction above is square symmetric by construction
		panic(err)
	}
	return m
}

// ClusteredDistanceReplicate builds a distance-matrix replicate with n
// observations per cluster and one id group per cluster
func ClusteredDistanceReplicate(rng *rand.Rand, n int, centers ...[2]float64) *dataset.Replicate {
	points := ClusteredPoints(rng, n, centers...)
	groups := make([]dataset.IDGroup, len(centers))
	for gi := range centers {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = gi*n + i
		}
		groups[gi] = dataset.IDGroup{Label: string(rune('A' + gi)), IDs: ids}
	}
	return &dataset.Replicate{
		Groups:    groups,
		Distances: EuclideanDistances(points),
	}
}
