package neat

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

const (
	// Compatibility coefficients of GetTopologicalDistance.
	distanceLinkCoefficient   = 1.0
	distanceWeightCoefficient = 0.3
)

// Genotype is the gene set of one candidate network. Nodes and links are kept
// in arenas: links name their endpoints by node id and every node caches the
// positions of its incoming and outgoing links.
//
// A Genotype is owned by a single organism and is not safe for concurrent
// mutation.
type Genotype struct {
	nodes   []NodeGene
	nodeIdx map[int]int // node id -> position in nodes

	inputs  []int // positions in nodes, in insertion order
	hidden  []int
	outputs []int

	links   []LinkGene
	linkIdx map[LinkKey]int // (from, to) -> position in links
}

// NewEmptyGenotype creates a genotype with no nodes and no links.
func NewEmptyGenotype() *Genotype {
	return &Genotype{
		nodeIdx: make(map[int]int),
		linkIdx: make(map[LinkKey]int),
	}
}

// NewGenotype builds a founding genotype from a descriptor. Seed links get the
// innovation numbers 1..len(desc.Links) in descriptor order and a weight drawn
// uniformly from [-1, 1].
func NewGenotype(desc TopologyDescriptor, rng *rand.Rand) (*Genotype, error) {
	if desc.InputCount < 0 || desc.HiddenCount < 0 || desc.OutputCount < 0 {
		return nil, fmt.Errorf("invalid topology descriptor: negative node count (%d/%d/%d)",
			desc.InputCount, desc.HiddenCount, desc.OutputCount)
	}
	activation := desc.Activation
	if activation == "" {
		activation = DefaultActivation
	}

	g := NewEmptyGenotype()
	total := desc.NodeTotal()
	for i := 0; i < total; i++ {
		nodeType := HiddenNode
		switch {
		case i < desc.InputCount:
			nodeType = InputNode
		case i >= total-desc.OutputCount:
			nodeType = OutputNode
		}
		g.AddNode(NewNodeGene(-i-1, nodeType, activation))
	}

	for n, ld := range desc.Links {
		from, to := -ld.From, -ld.To
		if !g.HasNode(from) || !g.HasNode(to) {
			return nil, fmt.Errorf("seed link %d->%d: %w", ld.From, ld.To, ErrUnknownNode)
		}
		g.addLink(NewLinkGene(from, to, rng.Float64()*2-1, n+1))
	}
	return g, nil
}

// --------------------------- Queries ---------------------------

// NodeCount returns the total number of nodes.
func (g *Genotype) NodeCount() int { return len(g.nodes) }

// LinkCount returns the number of links.
func (g *Genotype) LinkCount() int { return len(g.links) }

// InputCount returns the number of input nodes.
func (g *Genotype) InputCount() int { return len(g.inputs) }

// HiddenCount returns the number of hidden nodes.
func (g *Genotype) HiddenCount() int { return len(g.hidden) }

// OutputCount returns the number of output nodes.
func (g *Genotype) OutputCount() int { return len(g.outputs) }

// HasNode reports whether a node with the given id exists.
func (g *Genotype) HasNode(id int) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Node returns the node with the given id.
func (g *Genotype) Node(id int) (NodeGene, bool) {
	pos, ok := g.nodeIdx[id]
	if !ok {
		return NodeGene{}, false
	}
	return g.nodes[pos], true
}

// HasLink reports whether a link from -> to exists.
func (g *Genotype) HasLink(from, to int) bool {
	_, ok := g.linkIdx[LinkKey{From: from, To: to}]
	return ok
}

// Link returns the link from -> to.
func (g *Genotype) Link(from, to int) (LinkGene, bool) {
	pos, ok := g.linkIdx[LinkKey{From: from, To: to}]
	if !ok {
		return LinkGene{}, false
	}
	return g.links[pos], true
}

// Nodes returns a copy of every node, in insertion order.
func (g *Genotype) Nodes() []NodeGene {
	out := make([]NodeGene, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.CopyNoLinks()
	}
	return out
}

// Links returns a copy of the link list.
func (g *Genotype) Links() []LinkGene {
	return append([]LinkGene(nil), g.links...)
}

// Inputs returns the input node ids in evaluation order.
func (g *Genotype) Inputs() []int { return g.ids(g.inputs) }

// Hidden returns the hidden node ids in insertion order.
func (g *Genotype) Hidden() []int { return g.ids(g.hidden) }

// Outputs returns the output node ids in evaluation order.
func (g *Genotype) Outputs() []int { return g.ids(g.outputs) }

// Incoming returns the links ending at the given node.
func (g *Genotype) Incoming(id int) []LinkGene {
	pos, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	out := make([]LinkGene, 0, len(g.nodes[pos].incoming))
	for _, li := range g.nodes[pos].incoming {
		out = append(out, g.links[li])
	}
	return out
}

// Outgoing returns the links starting at the given node.
func (g *Genotype) Outgoing(id int) []LinkGene {
	pos, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	out := make([]LinkGene, 0, len(g.nodes[pos].outgoing))
	for _, li := range g.nodes[pos].outgoing {
		out = append(out, g.links[li])
	}
	return out
}

func (g *Genotype) ids(positions []int) []int {
	out := make([]int, len(positions))
	for i, pos := range positions {
		out[i] = g.nodes[pos].ID
	}
	return out
}

// --------------------------- Construction ---------------------------

// AddNode inserts a copy of node unless a node with the same id is already
// present, in which case the stored node is returned unchanged.
func (g *Genotype) AddNode(node NodeGene) NodeGene {
	if pos, ok := g.nodeIdx[node.ID]; ok {
		return g.nodes[pos]
	}
	pos := len(g.nodes)
	stored := node.CopyNoLinks()
	g.nodes = append(g.nodes, stored)
	g.nodeIdx[stored.ID] = pos
	switch stored.Type {
	case InputNode:
		g.inputs = append(g.inputs, pos)
	case OutputNode:
		g.outputs = append(g.outputs, pos)
	default:
		g.hidden = append(g.hidden, pos)
	}
	return stored
}

// AddLinkAndNodes adds a copy of link together with its endpoints, unless a
// link between the same two nodes already exists. Endpoints missing from this
// genotype are copied from the given nodes without their adjacency. The link's
// From and To are taken from the node ids; weight, innovation and enabled
// state are kept. It reports whether a link was added.
func (g *Genotype) AddLinkAndNodes(link LinkGene, from, to NodeGene) bool {
	link.From, link.To = from.ID, to.ID
	if g.HasLink(link.From, link.To) {
		return false
	}
	g.AddNode(to)
	g.AddNode(from)
	g.addLink(LinkGene{
		From:       link.From,
		To:         link.To,
		Weight:     link.Weight,
		Innovation: link.Innovation,
		Enabled:    link.Enabled,
	})
	return true
}

// addLinkFrom copies a link of src, with its endpoint nodes, into g.
func (g *Genotype) addLinkFrom(src *Genotype, link LinkGene) {
	from, okFrom := src.Node(link.From)
	to, okTo := src.Node(link.To)
	if !okFrom || !okTo {
		// Parents always hold the endpoints of their own links.
		panic(fmt.Sprintf("link %d->%d has no endpoint in its genotype", link.From, link.To))
	}
	g.AddLinkAndNodes(link, from, to)
}

// addLink appends a link whose endpoints are known to exist and updates the
// adjacency of both endpoints.
func (g *Genotype) addLink(link LinkGene) {
	pos := len(g.links)
	g.links = append(g.links, link)
	g.linkIdx[link.Key()] = pos
	fromPos := g.nodeIdx[link.From]
	toPos := g.nodeIdx[link.To]
	g.nodes[fromPos].outgoing = append(g.nodes[fromPos].outgoing, pos)
	g.nodes[toPos].incoming = append(g.nodes[toPos].incoming, pos)
}

// Clone returns an independent deep copy of the genotype.
func (g *Genotype) Clone() *Genotype {
	c := NewEmptyGenotype()
	for _, n := range g.nodes {
		c.AddNode(n)
	}
	for _, l := range g.links {
		c.addLink(l)
	}
	return c
}

// RebuildGenotype assembles a genotype from stored node and link genes, in
// the given order. It is the inverse of Nodes and Links.
func RebuildGenotype(nodes []NodeGene, links []LinkGene) (*Genotype, error) {
	g := NewEmptyGenotype()
	for _, n := range nodes {
		if g.HasNode(n.ID) {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		g.AddNode(n)
	}
	for _, l := range links {
		if !g.HasNode(l.From) || !g.HasNode(l.To) {
			return nil, fmt.Errorf("link %d->%d: %w", l.From, l.To, ErrUnknownNode)
		}
		if g.HasLink(l.From, l.To) {
			return nil, fmt.Errorf("duplicate link %d->%d", l.From, l.To)
		}
		g.addLink(l)
	}
	return g, nil
}

// --------------------------- Crossover & distance ---------------------------

// Crossover combines this genotype with partner into a new genotype. Links
// sharing an innovation number are inherited from either parent with equal
// probability; the remaining links come only from the parent with the higher
// fitness, the partner winning ties.
func (g *Genotype) Crossover(partner *Genotype, thisFitness, partnerFitness float64, rng *rand.Rand) (*Genotype, error) {
	m := newGeneMerger(g, partner)
	for _, p := range alignByInnovation(g.links, partner.links) {
		src, link := g, g.links[p.first]
		if rng.Float64() >= 0.5 {
			src, link = partner, partner.links[p.second]
		}
		if err := m.take(src, link); err != nil {
			return nil, fmt.Errorf("crossover: %w", err)
		}
	}
	return m.finish(thisFitness > partnerFitness), nil
}

// geneMerger builds a child from two parents, tracking which links of each
// parent have not been inherited yet.
type geneMerger struct {
	child            *Genotype
	first, second    *Genotype
	remaining        []int // positions in first.links
	partnerRemaining []int // positions in second.links
}

func newGeneMerger(first, second *Genotype) *geneMerger {
	child := NewEmptyGenotype()
	// Inputs and outputs form the network interface; the child keeps them in
	// parent order even when no inherited link touches them.
	for _, parent := range []*Genotype{first, second} {
		for _, pos := range parent.inputs {
			child.AddNode(parent.nodes[pos])
		}
		for _, pos := range parent.outputs {
			child.AddNode(parent.nodes[pos])
		}
	}
	return &geneMerger{
		child:            child,
		first:            first,
		second:           second,
		remaining:        sequence(len(first.links)),
		partnerRemaining: sequence(len(second.links)),
	}
}

// take copies an aligned link into the child and drops every link with the
// same innovation number from both remaining lists.
func (m *geneMerger) take(src *Genotype, link LinkGene) error {
	m.child.addLinkFrom(src, link)
	var err error
	if m.remaining, err = dropInnovation(m.first.links, m.remaining, link.Innovation); err != nil {
		return err
	}
	m.partnerRemaining, err = dropInnovation(m.second.links, m.partnerRemaining, link.Innovation)
	return err
}

// finish appends the disjoint and excess links of one parent and returns the child.
func (m *geneMerger) finish(fromFirst bool) *Genotype {
	if fromFirst {
		for _, li := range m.remaining {
			m.child.addLinkFrom(m.first, m.first.links[li])
		}
	} else {
		for _, li := range m.partnerRemaining {
			m.child.addLinkFrom(m.second, m.second.links[li])
		}
	}
	return m.child
}

// GetTopologicalDistance returns the compatibility distance between two
// genotypes: the normalised link count difference plus the mean absolute
// weight difference of aligned links.
func (g *Genotype) GetTopologicalDistance(other *Genotype) float64 {
	maxLinks := max(g.LinkCount(), other.LinkCount())
	distance := 0.0
	if maxLinks > 0 {
		diff := math.Abs(float64(g.LinkCount() - other.LinkCount()))
		distance += distanceLinkCoefficient * diff / float64(maxLinks)
	}

	pairs := alignByInnovation(g.links, other.links)
	if len(pairs) == 0 {
		return distance
	}
	diffSum := 0.0
	for _, p := range pairs {
		diffSum += math.Abs(g.links[p.first].Weight - other.links[p.second].Weight)
	}
	return distance + distanceWeightCoefficient*diffSum/float64(len(pairs))
}

// linkPair holds the positions of two aligned links.
type linkPair struct {
	first  int
	second int
}

// alignByInnovation pairs links of a and b with equal innovation numbers.
// For every link of a, b is scanned from just after the previous match and
// the first equal link found is consumed. Lists ordered by innovation number
// align completely; for unordered lists a match lying before the cursor is
// treated as disjoint.
func alignByInnovation(a, b []LinkGene) []linkPair {
	var pairs []linkPair
	cursor := 0
	for i := range a {
		for j := cursor; j < len(b); j++ {
			if a[i].Innovation == b[j].Innovation {
				pairs = append(pairs, linkPair{first: i, second: j})
				cursor = j + 1
				break
			}
		}
	}
	return pairs
}

// dropInnovation removes from remaining every link position whose link
// carries the given innovation number.
func dropInnovation(links []LinkGene, remaining []int, innovation int) ([]int, error) {
	var exclude []int
	for i, li := range remaining {
		if links[li].Innovation == innovation {
			exclude = append(exclude, i)
		}
	}
	return excludeIndices(remaining, exclude)
}

// --------------------------- Mutation ---------------------------

// Mutate applies, each behind its own probability draw and in this order, a
// split-link mutation, an add-link mutation and per-link weight mutation.
// Structural changes take their innovation numbers and node ids from reg.
func (g *Genotype) Mutate(params BreedingParameters, rng *rand.Rand, reg *InnovationRegistry) {
	if rng.Float64() < params.SplitLinkProb {
		g.mutateSplitLink(rng, reg)
	}
	if rng.Float64() < params.AddLinkProb {
		g.mutateAddLink(rng, reg)
	}
	g.mutateWeights(params.WeightChangeProb, rng)
}

// mutateSplitLink turns a random link A->B into A->C->B. The original link
// keeps its weight and now starts at C; A->C has weight 1.
func (g *Genotype) mutateSplitLink(rng *rand.Rand, reg *InnovationRegistry) {
	if len(g.links) == 0 {
		return
	}
	li := rng.Intn(len(g.links))
	split := g.links[li]
	target, _ := g.Node(split.To)

	splitIn := reg.GetGenerationInnovationNumber(MutationSignature{Kind: SplitLinkIn, From: split.From, To: split.To})
	splitOut := reg.GetGenerationInnovationNumber(MutationSignature{Kind: SplitLinkOut, From: split.From, To: split.To})

	node := g.AddNode(NewNodeGene(reg.NextNodeID(), HiddenNode, target.Activation))

	// Redirect A->B to C->B.
	fromPos := g.nodeIdx[split.From]
	g.nodes[fromPos].outgoing = removeValue(g.nodes[fromPos].outgoing, li)
	delete(g.linkIdx, split.Key())
	g.links[li].From = node.ID
	g.links[li].Innovation = splitOut
	g.linkIdx[g.links[li].Key()] = li
	nodePos := g.nodeIdx[node.ID]
	g.nodes[nodePos].outgoing = append(g.nodes[nodePos].outgoing, li)

	g.addLink(NewLinkGene(split.From, node.ID, 1.0, splitIn))
}

// mutateAddLink connects a random input or hidden node to a random output or
// hidden node. Hidden targets whose id is lower than the source id are
// skipped as a cheap guard against cycles; it is not a full acyclicity check.
func (g *Genotype) mutateAddLink(rng *rand.Rand, reg *InnovationRegistry) {
	sources := make([]int, 0, len(g.inputs)+len(g.hidden))
	sources = append(sources, g.inputs...)
	sources = append(sources, g.hidden...)
	if len(sources) == 0 {
		return
	}
	from := g.nodes[sources[rng.Intn(len(sources))]]

	targets := make([]int, 0, len(g.outputs)+len(g.hidden))
	for _, pos := range g.outputs {
		if g.nodes[pos].ID != from.ID {
			targets = append(targets, pos)
		}
	}
	for _, pos := range g.hidden {
		if g.nodes[pos].ID > from.ID {
			targets = append(targets, pos)
		}
	}
	if len(targets) == 0 {
		return
	}
	to := g.nodes[targets[rng.Intn(len(targets))]]
	if g.HasLink(from.ID, to.ID) {
		return
	}
	innovation := reg.GetGenerationInnovationNumber(MutationSignature{Kind: AddLink, From: from.ID, To: to.ID})
	g.addLink(NewLinkGene(from.ID, to.ID, 1.0, innovation))
}

// mutateWeights gives every link a chance of re-randomising a weight. The
// weight that changes belongs to a link picked uniformly at random, not
// necessarily the one being visited.
func (g *Genotype) mutateWeights(prob float64, rng *rand.Rand) {
	for range g.links {
		if rng.Float64() < prob {
			g.links[rng.Intn(len(g.links))].Weight = rng.Float64()*2 - 1
		}
	}
}

// --------------------------- Diagnostics ---------------------------

// Validate checks the structural invariants of the genotype.
func (g *Genotype) Validate() error {
	for id, pos := range g.nodeIdx {
		if pos >= len(g.nodes) || g.nodes[pos].ID != id {
			return fmt.Errorf("node index for %d is stale", id)
		}
	}
	if len(g.nodeIdx) != len(g.nodes) {
		return fmt.Errorf("duplicate node ids: %d nodes, %d distinct ids", len(g.nodes), len(g.nodeIdx))
	}
	for _, part := range []struct {
		positions []int
		nodeType  NodeType
	}{{g.inputs, InputNode}, {g.hidden, HiddenNode}, {g.outputs, OutputNode}} {
		for _, pos := range part.positions {
			if g.nodes[pos].Type != part.nodeType {
				return fmt.Errorf("node %d is %s but held as %s", g.nodes[pos].ID, g.nodes[pos].Type, part.nodeType)
			}
		}
	}
	if len(g.inputs)+len(g.hidden)+len(g.outputs) != len(g.nodes) {
		return fmt.Errorf("role partitions hold %d nodes, genotype has %d",
			len(g.inputs)+len(g.hidden)+len(g.outputs), len(g.nodes))
	}
	for _, l := range g.links {
		if !g.HasNode(l.From) || !g.HasNode(l.To) {
			return fmt.Errorf("link %d->%d: %w", l.From, l.To, ErrUnknownNode)
		}
	}
	if len(g.linkIdx) != len(g.links) {
		return fmt.Errorf("duplicate links: %d links, %d distinct endpoint pairs", len(g.links), len(g.linkIdx))
	}
	return nil
}

// String returns a human readable dump of the genotype, grouped by target node.
func (g *Genotype) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Inputs: %d, Outputs: %d, Hidden: %d, Total: %d, Link count: %d\n",
		g.InputCount(), g.OutputCount(), g.HiddenCount(), g.NodeCount(), g.LinkCount())
	for _, n := range g.nodes {
		if len(n.incoming) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "To node %d:\n", n.ID)
		for _, li := range n.incoming {
			sb.WriteString(g.links[li].String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
