package archive

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore keeps champions in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	champions   map[string]map[int]ChampionRecord // run id -> generation -> record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.champions = make(map[string]map[int]ChampionRecord)
	return nil
}

func (s *MemoryStore) SaveChampion(_ context.Context, record ChampionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	run, ok := s.champions[record.RunID]
	if !ok {
		run = make(map[int]ChampionRecord)
		s.champions[record.RunID] = run
	}
	run[record.Generation] = record
	return nil
}

func (s *MemoryStore) GetChampion(_ context.Context, runID string, generation int) (ChampionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return ChampionRecord{}, false, errors.New("store is not initialized")
	}
	record, ok := s.champions[runID][generation]
	return record, ok, nil
}

func (s *MemoryStore) ListChampions(_ context.Context, runID string) ([]ChampionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}
	records := make([]ChampionRecord, 0, len(s.champions[runID]))
	for _, r := range s.champions[runID] {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Generation < records[j].Generation })
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
