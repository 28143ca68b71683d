package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// UpperFence returns Q3 + 1.5·IQR of values, the usual boxplot outlier bound.
// It returns +Inf for an empty input.
func UpperFence(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	return q3 + 1.5*(q3-q1)
}

// KMeans1D groups scalar values into k clusters with Lloyd's algorithm.
//
// Centers are seeded at evenly spaced quantiles of the data so the result
// is deterministic. The returned centers are sorted ascending and labels[i]
// is the index into centers of the cluster holding values[i]. Clusters left
// without members are dropped, so tied values can yield fewer than k
// centers. When k exceeds the number of values it is reduced to len(values);
// k <= 0 or an empty input yields nil results.
func KMeans1D(values []float64, k int) (centers []float64, labels []int) {
	if k > len(values) {
		k = len(values)
	}
	if k <= 0 {
		return nil, nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	centers = make([]float64, k)
	for c := 0; c < k; c++ {
		p := (float64(c) + 0.5) / float64(k)
		centers[c] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}

	labels = make([]int, len(values))
	sums := make([]float64, k)
	counts := make([]int, k)

	const maxIter = 100
	for iter := 0; iter < maxIter; iter++ {
		assign(values, centers, labels)

		for c := range sums {
			sums[c], counts[c] = 0, 0
		}
		for i, v := range values {
			sums[labels[i]] += v
			counts[labels[i]]++
		}

		moved := 0.0
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			next := sums[c] / float64(counts[c])
			moved = math.Max(moved, math.Abs(next-centers[c]))
			centers[c] = next
		}
		if moved <= 1e-9*math.Max(1, floats.Max(sorted)) {
			break
		}
	}

	// Final labels come from the nearest sorted center, like a vector
	// quantization pass over the converged codebook.
	for {
		sort.Float64s(centers)
		assign(values, centers, labels)
		kept := dropEmpty(centers, labels)
		if len(kept) == len(centers) {
			break
		}
		centers = kept
	}

	return centers, labels
}

// dropEmpty returns the centers that label at least one value.
func dropEmpty(centers []float64, labels []int) []float64 {
	used := make([]bool, len(centers))
	for _, l := range labels {
		used[l] = true
	}
	kept := make([]float64, 0, len(centers))
	for c, center := range centers {
		if used[c] {
			kept = append(kept, center)
		}
	}
	return kept
}

// assign labels every value with its nearest center, first center on ties.
func assign(values, centers []float64, labels []int) {
	for i, v := range values {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := math.Abs(v - center); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
	}
}
