package neat

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// rawFitnessProvider is implemented by organisms that remember their fitness
// from before fitness sharing, such as Individual.
type rawFitnessProvider interface {
	RawFitness() float64
}

// Biocenosis partitions a population into species of compatible organisms.
// It is rebuilt every generation by Speciate.
type Biocenosis struct {
	species   []*Species
	threshold float64
	indexer   int // Next species key
}

// NewBiocenosis creates an empty biocenosis with the given compatibility threshold.
func NewBiocenosis(threshold float64) *Biocenosis {
	return &Biocenosis{threshold: threshold, indexer: 1}
}

// Speciate assigns every organism to the first species, in creation order,
// that accepts it, creating species on demand. It then shares fitness inside
// each species, computes the expected offspring of every species and purges
// species that are expected to produce none.
//
// Fitness sharing overwrites each organism's fitness with fitness / species size.
func (b *Biocenosis) Speciate(population []Organism) {
	for _, s := range b.species {
		s.Reset()
	}
	for _, o := range population {
		b.addToSpeciesOrCreate(o)
	}
	b.computeExpected()
}

func (b *Biocenosis) addToSpeciesOrCreate(o Organism) {
	for _, s := range b.species {
		if s.Belongs(o, b.threshold) {
			s.Add(o)
			return
		}
	}
	b.species = append(b.species, NewSpecies(b.indexer, o))
	b.indexer++
}

func (b *Biocenosis) computeExpected() {
	for _, s := range b.species {
		n := float64(s.Count())
		for _, m := range s.members {
			m.SetFitness(m.Fitness() / n)
		}
	}

	sum := 0.0
	for _, s := range b.species {
		sum += s.FitnessSum()
	}
	total := b.TotalIndividualCount()
	average := 0.0
	if total > 0 {
		average = sum / float64(total)
	}

	for _, s := range b.species {
		if average > 0 {
			s.SetExpected(int(math.Floor(s.FitnessSum() / average)))
		} else {
			// No fitness signal at all: every species keeps its size.
			s.SetExpected(s.Count())
		}
	}
	b.purge()
}

func (b *Biocenosis) purge() {
	kept := b.species[:0]
	for _, s := range b.species {
		if s.Expected() > 0 {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(b.species); i++ {
		b.species[i] = nil
	}
	b.species = kept
}

// ExpectedIndividualCount returns the offspring expected across all species.
func (b *Biocenosis) ExpectedIndividualCount() int {
	count := 0
	for _, s := range b.species {
		count += s.Expected()
	}
	return count
}

// TotalIndividualCount returns the number of organisms held by all species.
func (b *Biocenosis) TotalIndividualCount() int {
	count := 0
	for _, s := range b.species {
		count += s.Count()
	}
	return count
}

// CurrentFittest returns the species champion with the highest raw fitness,
// the earliest species winning ties, or nil when there are no species.
func (b *Biocenosis) CurrentFittest() Organism {
	var fittest Organism
	best := math.Inf(-1)
	for _, s := range b.species {
		champ := s.Champion()
		if champ == nil {
			continue
		}
		if f := rawFitness(champ); f > best {
			best = f
			fittest = champ
		}
	}
	return fittest
}

// Species returns the live species in creation order.
func (b *Biocenosis) Species() []*Species {
	return append([]*Species(nil), b.species...)
}

// SpeciesOf returns the species holding the organism, or nil.
func (b *Biocenosis) SpeciesOf(o Organism) *Species {
	for _, s := range b.species {
		for _, m := range s.members {
			if m == o {
				return s
			}
		}
	}
	return nil
}

// Threshold returns the compatibility threshold.
func (b *Biocenosis) Threshold() float64 { return b.threshold }

// SizeStats returns the mean and standard deviation of species sizes.
func (b *Biocenosis) SizeStats() (mean, stdev float64) {
	sizes := make([]float64, len(b.species))
	for i, s := range b.species {
		sizes[i] = float64(s.Count())
	}
	return Mean(sizes), Stdev(sizes)
}

// String returns a string representation of the Biocenosis.
func (b *Biocenosis) String() string {
	return fmt.Sprintf("Sharing threshold: %.3f, Number of species: %d, Tot: %s",
		b.threshold, len(b.species), humanize.Comma(int64(b.ExpectedIndividualCount())))
}

func rawFitness(o Organism) float64 {
	if r, ok := o.(rawFitnessProvider); ok {
		return r.RawFitness()
	}
	return o.Fitness()
}
