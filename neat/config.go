package neat

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores the configuration of an evolutionary run.
type Config struct {
	Run        RunConfig
	Topology   TopologyConfig
	Breeding   BreedingParameters
	Speciation SpeciationConfig
	Crossover  CrossoverConfig
	Archive    ArchiveConfig
}

// RunConfig holds parameters of the generation loop.
type RunConfig struct {
	Seed                 int64   `ini:"seed"`
	PopulationSize       int     `ini:"population_size"`
	Generations          int     `ini:"generations"`
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
	Workers              int     `ini:"workers"` // Parallel evaluators; 0 means one per CPU
	Elitism              int     `ini:"elitism"` // Species champions copied unchanged into the next generation
	CheckpointEvery      int     `ini:"checkpoint_every"`
	CheckpointPrefix     string  `ini:"checkpoint_prefix"`
}

// TopologyConfig describes the founding topology of every organism.
type TopologyConfig struct {
	NumInputs  int    `ini:"num_inputs"`
	NumHidden  int    `ini:"num_hidden"`
	NumOutputs int    `ini:"num_outputs"`
	Links      string `ini:"links"` // Space separated "from-to" pairs of 1-based founding indexes, or "full"
	Activation string `ini:"activation"`
}

// BreedingParameters holds the mutation probabilities applied by Genotype.Mutate.
type BreedingParameters struct {
	SplitLinkProb    float64 `ini:"split_link_prob"`    // Per genotype, per generation
	AddLinkProb      float64 `ini:"add_link_prob"`      // Per genotype, per generation
	WeightChangeProb float64 `ini:"weight_change_prob"` // Per link
}

// Validate checks that every probability lies in [0, 1].
func (bp BreedingParameters) Validate() error {
	for name, p := range map[string]float64{
		"split_link_prob":    bp.SplitLinkProb,
		"add_link_prob":      bp.AddLinkProb,
		"weight_change_prob": bp.WeightChangeProb,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}
	return nil
}

// SpeciationConfig holds parameters related to speciation.
type SpeciationConfig struct {
	SharingThreshold float64 `ini:"sharing_threshold"`
}

// CrossoverConfig holds the selection probabilities of the crossover operators.
type CrossoverConfig struct {
	UniformProb float64 `ini:"uniform_prob"`
	KPointsProb float64 `ini:"kpoints_prob"`
}

// ArchiveConfig selects where champions are archived.
type ArchiveConfig struct {
	Driver string `ini:"driver"` // "memory" or "sqlite"
	Path   string `ini:"path"`
}

// LoadConfig loads configuration parameters from an INI file.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return parseConfig(cfg)
}

// ParseConfig loads configuration parameters from INI source bytes.
func ParseConfig(data []byte) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return parseConfig(cfg)
}

func parseConfig(cfg *ini.File) (*Config, error) {
	config := DefaultConfig()

	sections := []struct {
		name   string
		target interface{}
	}{
		{"Run", &config.Run},
		{"Topology", &config.Topology},
		{"Breeding", &config.Breeding},
		{"Speciation", &config.Speciation},
		{"Crossover", &config.Crossover},
		{"Archive", &config.Archive},
	}
	for _, s := range sections {
		if !cfg.HasSection(s.name) {
			continue
		}
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.Topology.Links = cleanIniString(config.Topology.Links)
	config.Topology.Activation = cleanIniString(config.Topology.Activation)
	config.Archive.Driver = strings.ToLower(cleanIniString(config.Archive.Driver))
	config.Archive.Path = cleanIniString(config.Archive.Path)
	config.Run.CheckpointPrefix = cleanIniString(config.Run.CheckpointPrefix)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a configuration with every option at its default.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Seed:             1,
			PopulationSize:   50,
			Generations:      100,
			Elitism:          1,
			CheckpointPrefix: "neat-checkpoint-",
		},
		Topology: TopologyConfig{
			Links:      "full",
			Activation: DefaultActivation,
		},
		Breeding: BreedingParameters{
			SplitLinkProb:    0.03,
			AddLinkProb:      0.05,
			WeightChangeProb: 0.8,
		},
		Speciation: SpeciationConfig{SharingThreshold: 3.0},
		Crossover:  CrossoverConfig{UniformProb: 0.5, KPointsProb: 0.5},
		Archive:    ArchiveConfig{Driver: "memory"},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Run.PopulationSize <= 0 {
		return fmt.Errorf("config error: population_size must be positive")
	}
	if c.Run.Generations < 0 {
		return fmt.Errorf("config error: generations cannot be negative")
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("config error: workers cannot be negative")
	}
	if c.Run.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if c.Run.CheckpointEvery < 0 {
		return fmt.Errorf("config error: checkpoint_every cannot be negative")
	}
	if c.Topology.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if c.Topology.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if c.Topology.NumHidden < 0 {
		return fmt.Errorf("config error: num_hidden cannot be negative")
	}
	if _, err := GetActivation(c.Topology.Activation); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.Descriptor(); err != nil {
		return err
	}
	if err := c.Breeding.Validate(); err != nil {
		return err
	}
	if c.Speciation.SharingThreshold < 0 {
		return fmt.Errorf("config error: sharing_threshold cannot be negative")
	}
	if c.Crossover.UniformProb < 0 || c.Crossover.KPointsProb < 0 {
		return fmt.Errorf("config error: crossover probabilities cannot be negative")
	}
	if c.Crossover.UniformProb+c.Crossover.KPointsProb == 0 {
		return fmt.Errorf("config error: at least one crossover operator must have a positive probability")
	}
	switch c.Archive.Driver {
	case "", "memory":
	case "sqlite":
		if c.Archive.Path == "" {
			return fmt.Errorf("config error: archive path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config error: invalid archive driver '%s', must be one of 'memory', 'sqlite'", c.Archive.Driver)
	}
	return nil
}

// Descriptor builds the founding TopologyDescriptor from the [Topology] section.
func (c *Config) Descriptor() (TopologyDescriptor, error) {
	t := c.Topology
	if strings.EqualFold(t.Links, "full") && t.NumHidden == 0 {
		desc := FullyConnected(t.NumInputs, t.NumOutputs)
		desc.Activation = t.Activation
		return desc, nil
	}

	desc := TopologyDescriptor{
		InputCount:  t.NumInputs,
		HiddenCount: t.NumHidden,
		OutputCount: t.NumOutputs,
		Activation:  t.Activation,
	}
	if strings.EqualFold(t.Links, "full") {
		// Inputs to hidden, hidden to outputs.
		for i := 1; i <= t.NumInputs; i++ {
			for h := 1; h <= t.NumHidden; h++ {
				desc.Links = append(desc.Links, LinkDescriptor{From: i, To: t.NumInputs + h})
			}
		}
		for h := 1; h <= t.NumHidden; h++ {
			for o := 1; o <= t.NumOutputs; o++ {
				desc.Links = append(desc.Links, LinkDescriptor{From: t.NumInputs + h, To: t.NumInputs + t.NumHidden + o})
			}
		}
		return desc, nil
	}

	total := desc.NodeTotal()
	for _, pair := range strings.Fields(t.Links) {
		from, to, ok := strings.Cut(pair, "-")
		if !ok {
			return TopologyDescriptor{}, fmt.Errorf("config error: invalid link '%s', expected 'from-to'", pair)
		}
		f, errFrom := strconv.Atoi(from)
		tt, errTo := strconv.Atoi(to)
		if errFrom != nil || errTo != nil {
			return TopologyDescriptor{}, fmt.Errorf("config error: invalid link '%s', endpoints must be integers", pair)
		}
		if f < 1 || f > total || tt < 1 || tt > total {
			return TopologyDescriptor{}, fmt.Errorf("config error: link '%s' references a node outside 1..%d", pair, total)
		}
		desc.Links = append(desc.Links, LinkDescriptor{From: f, To: tt})
	}
	return desc, nil
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
