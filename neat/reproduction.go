package neat

import (
	"fmt"
	"math/rand"
	"sort"
)

// SelectionPolicy picks a parent among the members of a species.
type SelectionPolicy interface {
	Select(members []Organism, rng *rand.Rand) Organism
}

// RouletteSelection picks members with probability proportional to their
// current fitness. Members with non-positive fitness are never picked unless
// no member has positive fitness, in which case the pick is uniform.
type RouletteSelection struct{}

// Select implements SelectionPolicy.
func (RouletteSelection) Select(members []Organism, rng *rand.Rand) Organism {
	if len(members) == 0 {
		return nil
	}
	total := 0.0
	for _, m := range members {
		if f := m.Fitness(); f > 0 {
			total += f
		}
	}
	if total <= 0 {
		return members[rng.Intn(len(members))]
	}
	r := rng.Float64() * total
	for _, m := range members {
		f := m.Fitness()
		if f <= 0 {
			continue
		}
		if r < f {
			return m
		}
		r -= f
	}
	return members[len(members)-1]
}

// Reproduction creates offspring from a speciated population.
type Reproduction struct {
	Breeding    BreedingParameters
	Operators   *OperatorPool
	Selection   SelectionPolicy
	Innovations *InnovationRegistry
	Rand        *rand.Rand
	Elitism     int // Number of species whose champion is copied unchanged

	nextKey int
}

// NewReproduction creates a reproduction manager whose first individual key is 1.
func NewReproduction(breeding BreedingParameters, operators *OperatorPool, innovations *InnovationRegistry, rng *rand.Rand) *Reproduction {
	return &Reproduction{
		Breeding:    breeding,
		Operators:   operators,
		Selection:   RouletteSelection{},
		Innovations: innovations,
		Rand:        rng,
		nextKey:     1,
	}
}

// getNextKey gets the next available individual key and increments the internal counter.
func (r *Reproduction) getNextKey() int {
	key := r.nextKey
	r.nextKey++
	return key
}

// CreateNewPopulation creates popSize individuals from the founding descriptor.
func (r *Reproduction) CreateNewPopulation(desc TopologyDescriptor, popSize int) ([]*Individual, error) {
	r.Innovations.Reserve(len(desc.Links))
	individuals := make([]*Individual, 0, popSize)
	for i := 0; i < popSize; i++ {
		g, err := NewGenotype(desc, r.Rand)
		if err != nil {
			return nil, fmt.Errorf("failed to create founding genotype: %w", err)
		}
		individuals = append(individuals, NewIndividual(r.getNextKey(), g))
	}
	return individuals, nil
}

// Reproduce produces the next generation. Each species breeds as many
// offspring as it is expected to; any shortfall against popSize is bred by
// the species holding the current fittest organism.
func (r *Reproduction) Reproduce(b *Biocenosis, popSize int) ([]*Individual, error) {
	species := b.Species()
	if len(species) == 0 {
		return nil, fmt.Errorf("reproduction: %w", ErrEmptyPopulation)
	}

	quotas := make([]int, len(species))
	total := 0
	for i, s := range species {
		quotas[i] = s.Expected()
		total += quotas[i]
	}
	if deficit := popSize - total; deficit > 0 {
		quotas[r.fittestSpecies(b, species)] += deficit
	}

	offspring := make([]*Individual, 0, popSize)
	for _, i := range r.eliteOrder(species) {
		if len(offspring) >= popSize || quotas[i] == 0 {
			continue
		}
		champ := species[i].Champion()
		offspring = append(offspring, NewIndividual(r.getNextKey(), champ.Genotype().Clone()))
		quotas[i]--
	}

	for i, s := range species {
		members := s.Members()
		for n := 0; n < quotas[i] && len(offspring) < popSize; n++ {
			child, err := r.breed(members)
			if err != nil {
				return nil, fmt.Errorf("species %d: %w", s.Key, err)
			}
			offspring = append(offspring, NewIndividual(r.getNextKey(), child))
		}
	}
	return offspring, nil
}

func (r *Reproduction) breed(members []Organism) (*Genotype, error) {
	first := r.Selection.Select(members, r.Rand)
	second := r.Selection.Select(members, r.Rand)
	op := r.Operators.Select(r.Rand)
	child, err := op.Operator.Apply(first, second, r.Rand)
	if err != nil {
		return nil, fmt.Errorf("%s crossover failed: %w", op.Operator.Name(), err)
	}
	child.Mutate(r.Breeding, r.Rand, r.Innovations)
	return child, nil
}

// fittestSpecies returns the index of the species holding the current fittest organism.
func (r *Reproduction) fittestSpecies(b *Biocenosis, species []*Species) int {
	fittest := b.CurrentFittest()
	if fittest == nil {
		return 0
	}
	for i, s := range species {
		if s == b.SpeciesOf(fittest) {
			return i
		}
	}
	return 0
}

// eliteOrder returns the indexes of the Elitism species with the best champions.
func (r *Reproduction) eliteOrder(species []*Species) []int {
	if r.Elitism <= 0 {
		return nil
	}
	order := sequence(len(species))
	sort.SliceStable(order, func(i, j int) bool {
		return rawFitness(species[order[i]].Champion()) > rawFitness(species[order[j]].Champion())
	})
	if len(order) > r.Elitism {
		order = order[:r.Elitism]
	}
	return order
}
