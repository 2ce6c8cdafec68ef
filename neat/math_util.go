package neat

import (
	"fmt"
	"math"
)

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// --- Statistical Functions ---

// Mean calculates the average of a slice of float64 values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return Sum(values) / float64(len(values))
}

// Stdev calculates the sample standard deviation of a slice of float64 values.
func Stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0.0 // Standard deviation is undefined for less than 2 values
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// Sum calculates the sum of a slice of float64 values.
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// MaxFloat calculates the maximum value in a slice of float64 values.
// Returns negative infinity if the slice is empty.
func MaxFloat(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// --- Index helpers ---

// sequence returns 0..n-1.
func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// excludeIndices returns a copy of values without the elements at the given
// positions. Every position must be in range and distinct, so the result is
// exactly len(exclude) shorter; anything else is an ErrDimensionMismatch.
func excludeIndices[T any](values []T, exclude []int) ([]T, error) {
	if len(exclude) > len(values) {
		return nil, fmt.Errorf("excluding %d of %d elements: %w", len(exclude), len(values), ErrDimensionMismatch)
	}
	skip := make(map[int]struct{}, len(exclude))
	for _, i := range exclude {
		if i < 0 || i >= len(values) {
			return nil, fmt.Errorf("index %d out of range [0,%d): %w", i, len(values), ErrDimensionMismatch)
		}
		skip[i] = struct{}{}
	}
	out := make([]T, 0, len(values)-len(exclude))
	for i, v := range values {
		if _, ok := skip[i]; !ok {
			out = append(out, v)
		}
	}
	if len(out) != len(values)-len(exclude) {
		return nil, fmt.Errorf("excluding %d indices left %d of %d elements: %w",
			len(exclude), len(out), len(values), ErrDimensionMismatch)
	}
	return out, nil
}

// removeValue deletes the first occurrence of v from values.
func removeValue(values []int, v int) []int {
	for i, x := range values {
		if x == v {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}
