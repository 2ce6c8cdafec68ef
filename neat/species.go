package neat

import (
	"fmt"
	"math"
)

// Organism is the capability the engine needs from a member of the
// population. Hosts typically wrap their own agent type to satisfy it.
type Organism interface {
	// Genotype returns the genes the organism's network was built from.
	Genotype() *Genotype
	// Fitness returns the current fitness. After speciation this is the shared fitness.
	Fitness() float64
	SetFitness(fitness float64)
	// AdjustedFitness returns the fitness used to rank parents for disjoint
	// gene inheritance in k-point crossover.
	AdjustedFitness() float64
}

// Individual is a ready-made Organism. It remembers the raw fitness it was
// given before fitness sharing rewrote it.
type Individual struct {
	Key        int
	genotype   *Genotype
	fitness    float64
	rawFitness float64
}

// NewIndividual creates an individual with zero fitness.
func NewIndividual(key int, g *Genotype) *Individual {
	return &Individual{Key: key, genotype: g}
}

// Genotype returns the individual's genes.
func (ind *Individual) Genotype() *Genotype { return ind.genotype }

// Fitness returns the current, possibly shared, fitness.
func (ind *Individual) Fitness() float64 { return ind.fitness }

// SetFitness overwrites the current fitness.
func (ind *Individual) SetFitness(fitness float64) { ind.fitness = fitness }

// AdjustedFitness returns the current fitness; for an Individual adjusted and
// shared fitness are the same value.
func (ind *Individual) AdjustedFitness() float64 { return ind.fitness }

// SetRawFitness records an evaluation result as both raw and current fitness.
func (ind *Individual) SetRawFitness(fitness float64) {
	ind.rawFitness = fitness
	ind.fitness = fitness
}

// RawFitness returns the fitness recorded by SetRawFitness.
func (ind *Individual) RawFitness() float64 { return ind.rawFitness }

// String returns a string representation of the Individual.
func (ind *Individual) String() string {
	return fmt.Sprintf("Individual(Key: %d, Fitness: %.4f, Raw: %.4f, Nodes: %d, Links: %d)",
		ind.Key, ind.fitness, ind.rawFitness, ind.genotype.NodeCount(), ind.genotype.LinkCount())
}

// --------------------------- Species ---------------------------

// Species is a cluster of topologically compatible organisms.
type Species struct {
	Key            int
	members        []Organism
	representative *Genotype
	expected       int

	previousChampion        *Genotype
	previousChampionFitness float64
}

// NewSpecies creates a species whose representative is the founder's genotype.
func NewSpecies(key int, founder Organism) *Species {
	s := &Species{Key: key, representative: founder.Genotype()}
	s.Add(founder)
	return s
}

// Belongs reports whether the candidate is closer than threshold to the
// species representative.
func (s *Species) Belongs(candidate Organism, threshold float64) bool {
	if s.representative == nil {
		return false
	}
	return candidate.Genotype().GetTopologicalDistance(s.representative) < threshold
}

// Add appends an organism to the species.
func (s *Species) Add(o Organism) {
	s.members = append(s.members, o)
}

// Reset empties the member list. The current champion is remembered as the
// previous champion and its genotype becomes the representative used to test
// the next generation; organisms themselves are not retained.
func (s *Species) Reset() {
	if champ := s.Champion(); champ != nil {
		s.previousChampion = champ.Genotype()
		s.previousChampionFitness = champ.Fitness()
		s.representative = champ.Genotype()
	}
	s.members = nil
}

// Members returns the organisms of the species.
func (s *Species) Members() []Organism {
	return append([]Organism(nil), s.members...)
}

// Count returns the number of members.
func (s *Species) Count() int { return len(s.members) }

// Representative returns the genotype candidates are compared against.
func (s *Species) Representative() *Genotype { return s.representative }

// FitnessSum returns the sum of the members' current fitness.
func (s *Species) FitnessSum() float64 {
	sum := 0.0
	for _, m := range s.members {
		sum += m.Fitness()
	}
	return sum
}

// AverageFitness returns the members' mean current fitness.
func (s *Species) AverageFitness() float64 {
	if len(s.members) == 0 {
		return 0
	}
	return s.FitnessSum() / float64(len(s.members))
}

// Champion returns the member with the highest fitness, the earliest member
// winning ties, or nil for an empty species.
func (s *Species) Champion() Organism {
	var champ Organism
	best := math.Inf(-1)
	for _, m := range s.members {
		if m.Fitness() > best {
			best = m.Fitness()
			champ = m
		}
	}
	return champ
}

// PreviousChampion returns the champion genotype of the previous generation
// and its fitness, or nil before the first Reset.
func (s *Species) PreviousChampion() (*Genotype, float64) {
	return s.previousChampion, s.previousChampionFitness
}

// Expected returns the number of offspring allotted for the next generation.
func (s *Species) Expected() int { return s.expected }

// SetExpected sets the number of offspring allotted for the next generation.
func (s *Species) SetExpected(n int) { s.expected = n }

// String returns a string representation of the Species.
func (s *Species) String() string {
	return fmt.Sprintf("Species(Key: %d, Members: %d, Fitness sum: %.4f, Expected: %d)",
		s.Key, len(s.members), s.FitnessSum(), s.expected)
}
