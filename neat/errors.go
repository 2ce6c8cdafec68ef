package neat

import "errors"

var (
	// ErrShapeMismatch is returned when an evaluator receives a number of inputs
	// that differs from the genotype's input node count.
	ErrShapeMismatch = errors.New("input shape mismatch")
	// ErrCycleDetected is returned when feed-forward evaluation re-enters a node
	// that is still being resolved.
	ErrCycleDetected = errors.New("cycle detected in genotype")
	// ErrDimensionMismatch is returned when excluding or merging index sets
	// would not change a slice length by exactly the expected amount.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnknownNode is returned when a link refers to a node the genotype does not hold.
	ErrUnknownNode     = errors.New("unknown node")
	ErrEmptyPopulation = errors.New("empty population")
)
