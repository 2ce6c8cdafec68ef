package neat

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// CrossoverOperator produces a child genotype from two parents.
type CrossoverOperator interface {
	Apply(first, second Organism, rng *rand.Rand) (*Genotype, error)
	Name() string
}

// UniformCrossover inherits each aligned gene from either parent with equal
// probability and the disjoint genes of the parent with the higher fitness.
type UniformCrossover struct{}

// Apply implements CrossoverOperator.
func (UniformCrossover) Apply(first, second Organism, rng *rand.Rand) (*Genotype, error) {
	return first.Genotype().Crossover(second.Genotype(), first.Fitness(), second.Fitness(), rng)
}

// Name implements CrossoverOperator.
func (UniformCrossover) Name() string { return "uniform" }

// KPointsCrossover walks the aligned genes in segments, switching the parent
// it copies from every stride genes, with
// stride = ceil(matches / U{1, ..., matches-1}). Disjoint genes come from the
// parent with the higher adjusted fitness, the second parent winning ties.
type KPointsCrossover struct{}

// Name implements CrossoverOperator.
func (KPointsCrossover) Name() string { return "kpoints" }

// Apply implements CrossoverOperator.
func (KPointsCrossover) Apply(first, second Organism, rng *rand.Rand) (*Genotype, error) {
	a, b := first.Genotype(), second.Genotype()
	m := newGeneMerger(a, b)
	pairs := alignByInnovation(a.links, b.links)

	divisor := 1
	if len(pairs) > 2 {
		divisor = 1 + rng.Intn(len(pairs)-1)
	}
	stride := int(math.Ceil(float64(len(pairs)) / float64(divisor)))

	importFromFirst := true
	for i, p := range pairs {
		if (i+1)%stride == 0 {
			importFromFirst = !importFromFirst
		}
		src, link := b, b.links[p.second]
		if importFromFirst {
			src, link = a, a.links[p.first]
		}
		if err := m.take(src, link); err != nil {
			return nil, fmt.Errorf("k-points crossover: %w", err)
		}
	}
	return m.finish(first.AdjustedFitness() > second.AdjustedFitness()), nil
}

// --------------------------- OperatorPool ---------------------------

// WeightedOperator is a crossover operator together with the probability of
// it being selected and a progression value hosts may use to track how well
// the operator performs.
type WeightedOperator struct {
	Operator          CrossoverOperator
	SelectProbability float64
	Progression       float64
}

// String returns a string representation of the WeightedOperator.
func (w *WeightedOperator) String() string {
	return fmt.Sprintf("%s - Progression: %.4f, P: %.4f", w.Operator.Name(), w.Progression, w.SelectProbability)
}

// OperatorPool picks crossover operators by roulette-wheel selection over
// their select probabilities.
type OperatorPool struct {
	operators []*WeightedOperator
}

// NewOperatorPool creates a pool from the given operators.
func NewOperatorPool(ops ...*WeightedOperator) (*OperatorPool, error) {
	if len(ops) == 0 {
		return nil, errors.New("operator pool needs at least one operator")
	}
	total := 0.0
	for _, op := range ops {
		if op.SelectProbability < 0 {
			return nil, fmt.Errorf("operator %s has negative select probability", op.Operator.Name())
		}
		total += op.SelectProbability
	}
	if total == 0 {
		return nil, errors.New("operator pool select probabilities sum to zero")
	}
	return &OperatorPool{operators: ops}, nil
}

// NewOperatorPoolFromConfig builds the standard uniform/k-points pool.
func NewOperatorPoolFromConfig(cfg CrossoverConfig) (*OperatorPool, error) {
	return NewOperatorPool(
		&WeightedOperator{Operator: UniformCrossover{}, SelectProbability: cfg.UniformProb},
		&WeightedOperator{Operator: KPointsCrossover{}, SelectProbability: cfg.KPointsProb},
	)
}

// Select draws an operator with probability proportional to its select probability.
func (p *OperatorPool) Select(rng *rand.Rand) *WeightedOperator {
	total := 0.0
	for _, op := range p.operators {
		total += op.SelectProbability
	}
	r := rng.Float64() * total
	for _, op := range p.operators {
		if r < op.SelectProbability {
			return op
		}
		r -= op.SelectProbability
	}
	return p.operators[len(p.operators)-1]
}

// SetProbability changes the select probability of the named operator.
func (p *OperatorPool) SetProbability(name string, probability float64) error {
	if probability < 0 {
		return fmt.Errorf("operator %s: select probability cannot be negative", name)
	}
	for _, op := range p.operators {
		if op.Operator.Name() == name {
			op.SelectProbability = probability
			return nil
		}
	}
	return fmt.Errorf("operator %s is not pooled", name)
}

// Operators returns the pooled operators.
func (p *OperatorPool) Operators() []*WeightedOperator {
	return append([]*WeightedOperator(nil), p.operators...)
}

// String returns a string representation of the OperatorPool.
func (p *OperatorPool) String() string {
	parts := make([]string, len(p.operators))
	for i, op := range p.operators {
		parts[i] = op.String()
	}
	return strings.Join(parts, "; ")
}
