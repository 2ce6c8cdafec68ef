package neat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// FitnessFunc evaluates the individuals of one generation. It must record
// each result with Individual.SetRawFitness.
type FitnessFunc func(ctx context.Context, individuals []*Individual) error

// ChampionSink receives the best genotype of every generation.
type ChampionSink interface {
	RecordChampion(ctx context.Context, runID string, generation int, fitness float64, g *Genotype) error
}

// Population holds the state of one evolutionary run.
type Population struct {
	Config       *Config
	Individuals  []*Individual // Current generation
	Biocenosis   *Biocenosis
	Reproduction *Reproduction
	Innovations  *InnovationRegistry
	Rand         *rand.Rand
	Generation   int
	RunID        string

	Best        *Genotype // Best genotype found so far, by raw fitness
	BestFitness float64

	Logger    *slog.Logger
	Champions ChampionSink // Optional
}

// NewRunID returns a fresh identifier for an evolutionary run.
func NewRunID() string {
	return uuid.NewString()
}

// NewPopulation creates the founding generation described by config. The
// run's random source is seeded from config.Run.Seed.
func NewPopulation(config *Config) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	desc, err := config.Descriptor()
	if err != nil {
		return nil, err
	}
	operators, err := NewOperatorPoolFromConfig(config.Crossover)
	if err != nil {
		return nil, fmt.Errorf("failed to create operator pool: %w", err)
	}

	rng := rand.New(rand.NewSource(config.Run.Seed))
	innovations := NewInnovationRegistry()
	reproduction := NewReproduction(config.Breeding, operators, innovations, rng)
	reproduction.Elitism = config.Run.Elitism

	individuals, err := reproduction.CreateNewPopulation(desc, config.Run.PopulationSize)
	if err != nil {
		return nil, err
	}

	return &Population{
		Config:       config,
		Individuals:  individuals,
		Biocenosis:   NewBiocenosis(config.Speciation.SharingThreshold),
		Reproduction: reproduction,
		Innovations:  innovations,
		Rand:         rng,
		RunID:        NewRunID(),
		BestFitness:  math.Inf(-1),
		Logger:       slog.Default(),
	}, nil
}

// RunGeneration executes a single generation: evaluate, track the best
// genotype, speciate and reproduce. It returns the best genotype when the
// fitness threshold is met this generation, otherwise nil.
func (p *Population) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (*Genotype, error) {
	p.Generation++
	start := time.Now()
	logger := p.logger().With("run_id", p.RunID, "generation", p.Generation)

	if len(p.Individuals) == 0 {
		return nil, fmt.Errorf("generation %d: %w", p.Generation, ErrEmptyPopulation)
	}

	// Innovations of this generation's mutations are shared only among its offspring.
	p.Innovations.ResetGenerationBucket()

	if err := fitnessFunc(ctx, p.Individuals); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	current := p.bestIndividual()
	if current.RawFitness() > p.BestFitness {
		p.Best = current.Genotype().Clone()
		p.BestFitness = current.RawFitness()
		logger.Info("new best genotype",
			"key", current.Key,
			"fitness", p.BestFitness,
			"nodes", p.Best.NodeCount(),
			"links", p.Best.LinkCount())
	}
	if p.Champions != nil {
		if err := p.Champions.RecordChampion(ctx, p.RunID, p.Generation, current.RawFitness(), current.Genotype()); err != nil {
			return nil, fmt.Errorf("failed to archive champion of generation %d: %w", p.Generation, err)
		}
	}

	if !p.Config.Run.NoFitnessTermination && p.BestFitness >= p.Config.Run.FitnessThreshold {
		return p.Best, nil
	}

	organisms := make([]Organism, len(p.Individuals))
	for i, ind := range p.Individuals {
		organisms[i] = ind
	}
	p.Biocenosis.Speciate(organisms)
	mean, stdev := p.Biocenosis.SizeStats()
	logger.Debug("speciated",
		"species", len(p.Biocenosis.Species()),
		"mean_size", mean,
		"stdev_size", stdev)

	offspring, err := p.Reproduction.Reproduce(p.Biocenosis, p.Config.Run.PopulationSize)
	if err != nil {
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}
	p.Individuals = offspring

	logger.Info("generation finished",
		"best_fitness", current.RawFitness(),
		"species", len(p.Biocenosis.Species()),
		"offspring", humanize.Comma(int64(len(offspring))),
		"innovations", humanize.Comma(int64(p.Innovations.Current()-1)),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil, nil
}

// Run executes generations until the fitness threshold is met, the configured
// number of generations has run or ctx is cancelled. It returns the best
// genotype found.
func (p *Population) Run(ctx context.Context, fitnessFunc FitnessFunc) (*Genotype, error) {
	for p.Generation < p.Config.Run.Generations {
		if err := ctx.Err(); err != nil {
			return p.Best, err
		}
		winner, err := p.RunGeneration(ctx, fitnessFunc)
		if err != nil {
			return p.Best, err
		}
		if winner != nil {
			p.logger().Info("fitness threshold reached",
				"run_id", p.RunID,
				"generation", p.Generation,
				"fitness", p.BestFitness)
			return winner, nil
		}
		if every := p.Config.Run.CheckpointEvery; every > 0 && p.Generation%every == 0 {
			path := fmt.Sprintf("%s%d", p.Config.Run.CheckpointPrefix, p.Generation)
			if err := p.SaveCheckpoint(path); err != nil {
				return p.Best, err
			}
		}
	}
	return p.Best, nil
}

// FitnessStats returns the mean and maximum raw fitness of the current generation.
func (p *Population) FitnessStats() (mean, best float64) {
	values := make([]float64, len(p.Individuals))
	for i, ind := range p.Individuals {
		values[i] = ind.RawFitness()
	}
	return Mean(values), MaxFloat(values)
}

// bestIndividual returns the individual with the highest raw fitness, the
// earliest winning ties.
func (p *Population) bestIndividual() *Individual {
	best := p.Individuals[0]
	for _, ind := range p.Individuals[1:] {
		if ind.RawFitness() > best.RawFitness() {
			best = ind
		}
	}
	return best
}

func (p *Population) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
