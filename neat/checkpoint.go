package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// genotypeData is the gob form of a Genotype. Adjacency is rebuilt on load.
type genotypeData struct {
	Nodes []NodeGene
	Links []LinkGene
}

func newGenotypeData(g *Genotype) genotypeData {
	return genotypeData{Nodes: g.Nodes(), Links: g.Links()}
}

type individualData struct {
	Key      int
	Genotype genotypeData
}

// PopulationSaveData holds the parts of a Population written to a checkpoint.
// The Config is not saved; it is reloaded from the original file. Species
// membership is rebuilt by the first speciation after loading.
type PopulationSaveData struct {
	RunID       string
	Generation  int
	NextKey     int
	Registry    RegistryState
	Individuals []individualData
	Best        *genotypeData
	BestFitness float64
}

// SaveCheckpoint writes the population to a gzip compressed gob file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)

	saveData := PopulationSaveData{
		RunID:       p.RunID,
		Generation:  p.Generation,
		NextKey:     p.Reproduction.nextKey,
		Registry:    p.Innovations.State(),
		Individuals: make([]individualData, len(p.Individuals)),
		BestFitness: p.BestFitness,
	}
	for i, ind := range p.Individuals {
		saveData.Individuals[i] = individualData{Key: ind.Key, Genotype: newGenotypeData(ind.Genotype())}
	}
	if p.Best != nil {
		best := newGenotypeData(p.Best)
		saveData.Best = &best
	}

	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint '%s': %w", filePath, err)
	}

	p.logger().Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

// LoadCheckpoint loads a Population from a checkpoint file. It requires the
// original configuration file to reconstruct the Config.
func LoadCheckpoint(checkpointPath string, configPath string) (*Population, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}
	return LoadCheckpointWithConfig(checkpointPath, config)
}

// LoadCheckpointWithConfig loads a Population from a checkpoint file using an
// already loaded Config. The random source cannot be saved, so it is reseeded
// from the configured seed and the checkpoint's generation.
func LoadCheckpointWithConfig(checkpointPath string, config *Config) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	var saveData PopulationSaveData
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	operators, err := NewOperatorPoolFromConfig(config.Crossover)
	if err != nil {
		return nil, fmt.Errorf("failed to create operator pool: %w", err)
	}
	rng := rand.New(rand.NewSource(config.Run.Seed + int64(saveData.Generation)))
	innovations := RestoreInnovationRegistry(saveData.Registry)
	reproduction := NewReproduction(config.Breeding, operators, innovations, rng)
	reproduction.Elitism = config.Run.Elitism
	if saveData.NextKey > reproduction.nextKey {
		reproduction.nextKey = saveData.NextKey
	}

	individuals := make([]*Individual, len(saveData.Individuals))
	for i, data := range saveData.Individuals {
		g, err := RebuildGenotype(data.Genotype.Nodes, data.Genotype.Links)
		if err != nil {
			return nil, fmt.Errorf("individual %d: %w", data.Key, err)
		}
		individuals[i] = NewIndividual(data.Key, g)
	}

	p := &Population{
		Config:       config,
		Individuals:  individuals,
		Biocenosis:   NewBiocenosis(config.Speciation.SharingThreshold),
		Reproduction: reproduction,
		Innovations:  innovations,
		Rand:         rng,
		Generation:   saveData.Generation,
		RunID:        saveData.RunID,
		BestFitness:  math.Inf(-1),
	}
	if saveData.Best != nil {
		best, err := RebuildGenotype(saveData.Best.Nodes, saveData.Best.Links)
		if err != nil {
			return nil, fmt.Errorf("best genotype: %w", err)
		}
		p.Best = best
		p.BestFitness = saveData.BestFitness
	}

	p.logger().Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}
