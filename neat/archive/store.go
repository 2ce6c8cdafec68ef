// Package archive stores the champions of evolutionary runs.
package archive

import (
	"context"
	"fmt"

	"github.com/baldhumanity/tweann-go/neat"
)

// Store persists champion records.
type Store interface {
	Init(ctx context.Context) error
	SaveChampion(ctx context.Context, record ChampionRecord) error
	GetChampion(ctx context.Context, runID string, generation int) (ChampionRecord, bool, error)
	ListChampions(ctx context.Context, runID string) ([]ChampionRecord, error)
	Close() error
}

// Open creates an uninitialised store for the given driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported archive driver: %s", driver)
	}
}

// Sink adapts a Store to neat.ChampionSink.
type Sink struct {
	Store Store
}

var _ neat.ChampionSink = Sink{}

// RecordChampion implements neat.ChampionSink.
func (s Sink) RecordChampion(ctx context.Context, runID string, generation int, fitness float64, g *neat.Genotype) error {
	return s.Store.SaveChampion(ctx, NewChampionRecord(runID, generation, fitness, g))
}
