package neat

import (
	"fmt"
	"math"
	"sort"
)

// DefaultActivation is assigned to founding nodes when the topology
// descriptor does not name one.
const DefaultActivation = "tanh"

// ActivationType defines the type for activation functions.
type ActivationType func(x float64) float64

// ActivationFunctions maps function names to the actual activation functions.
// This allows configuration to specify activations by name.
var ActivationFunctions = map[string]ActivationType{
	"tanh":     Tanh,
	"sigmoid":  Sigmoid,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"gaussian": Gaussian,
	"absolute": Absolute,
	"abs":      Absolute, // Alias for absolute
	"sine":     Sine,
	"step":     Step,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// ActivationNames returns the registered activation names, sorted.
func ActivationNames() []string {
	names := make([]string, 0, len(ActivationFunctions))
	for name := range ActivationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Standard Activation Function Implementations ---

// Tanh activation function.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Sigmoid is the logistic function 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped activation function (clamps output between -1 and 1).
func Clamped(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}

// Gaussian activation function.
func Gaussian(x float64) float64 {
	return math.Exp(-x * x / 2.0)
}

// Absolute value activation function.
func Absolute(x float64) float64 {
	return math.Abs(x)
}

// Sine activation function.
func Sine(x float64) float64 {
	return math.Sin(x)
}

// Step returns 1 for positive input and 0 otherwise.
func Step(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}
