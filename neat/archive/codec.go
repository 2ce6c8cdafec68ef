package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/baldhumanity/tweann-go/neat"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// VersionedRecord is embedded in every stored record.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func currentVersion() VersionedRecord {
	return VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

type NodeRecord struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Activation string `json:"activation"`
}

type LinkRecord struct {
	From       int     `json:"from"`
	To         int     `json:"to"`
	Weight     float64 `json:"weight"`
	Innovation int     `json:"innovation"`
	Enabled    bool    `json:"enabled"`
}

// Snapshot is the serialisable form of a genotype. Node and link order is
// preserved, so the input and output order of the rebuilt genotype matches.
type Snapshot struct {
	VersionedRecord
	Nodes []NodeRecord `json:"nodes"`
	Links []LinkRecord `json:"links"`
}

// FromGenotype captures a genotype.
func FromGenotype(g *neat.Genotype) Snapshot {
	s := Snapshot{VersionedRecord: currentVersion()}
	for _, n := range g.Nodes() {
		s.Nodes = append(s.Nodes, NodeRecord{ID: n.ID, Type: n.Type.String(), Activation: n.Activation})
	}
	for _, l := range g.Links() {
		s.Links = append(s.Links, LinkRecord{
			From:       l.From,
			To:         l.To,
			Weight:     l.Weight,
			Innovation: l.Innovation,
			Enabled:    l.Enabled,
		})
	}
	return s
}

// Genotype rebuilds the captured genotype.
func (s Snapshot) Genotype() (*neat.Genotype, error) {
	if err := checkVersion(s.VersionedRecord); err != nil {
		return nil, err
	}
	nodes := make([]neat.NodeGene, len(s.Nodes))
	for i, n := range s.Nodes {
		nodeType, err := parseNodeType(n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.ID, err)
		}
		nodes[i] = neat.NewNodeGene(n.ID, nodeType, n.Activation)
	}
	links := make([]neat.LinkGene, len(s.Links))
	for i, l := range s.Links {
		links[i] = neat.LinkGene{
			From:       l.From,
			To:         l.To,
			Weight:     l.Weight,
			Innovation: l.Innovation,
			Enabled:    l.Enabled,
		}
	}
	return neat.RebuildGenotype(nodes, links)
}

func parseNodeType(name string) (neat.NodeType, error) {
	for _, t := range []neat.NodeType{neat.InputNode, neat.HiddenNode, neat.OutputNode} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", name)
}

// ChampionRecord is the best genotype of one generation of a run.
type ChampionRecord struct {
	VersionedRecord
	RunID      string    `json:"run_id"`
	Generation int       `json:"generation"`
	Fitness    float64   `json:"fitness"`
	RecordedAt time.Time `json:"recorded_at"`
	Genotype   Snapshot  `json:"genotype"`
}

// NewChampionRecord captures g as the champion of a generation.
func NewChampionRecord(runID string, generation int, fitness float64, g *neat.Genotype) ChampionRecord {
	return ChampionRecord{
		VersionedRecord: currentVersion(),
		RunID:           runID,
		Generation:      generation,
		Fitness:         fitness,
		RecordedAt:      time.Now().UTC(),
		Genotype:        FromGenotype(g),
	}
}

func EncodeChampion(r ChampionRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeChampion(data []byte) (ChampionRecord, error) {
	var record ChampionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ChampionRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return ChampionRecord{}, err
	}
	if err := checkVersion(record.Genotype.VersionedRecord); err != nil {
		return ChampionRecord{}, err
	}
	return record, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
