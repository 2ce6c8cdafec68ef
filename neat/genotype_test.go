package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// xorNodes returns two inputs (-1, -2) and one output (-3).
func xorNodes() []NodeGene {
	return []NodeGene{
		NewNodeGene(-1, InputNode, "identity"),
		NewNodeGene(-2, InputNode, "identity"),
		NewNodeGene(-3, OutputNode, "identity"),
	}
}

func buildGenotype(t *testing.T, nodes []NodeGene, links ...LinkGene) *Genotype {
	t.Helper()
	g, err := RebuildGenotype(nodes, links)
	require.NoError(t, err)
	return g
}

func TestNewGenotypeFoundingIDs(t *testing.T) {
	desc := TopologyDescriptor{
		InputCount:  2,
		HiddenCount: 1,
		OutputCount: 1,
		Links:       []LinkDescriptor{{From: 1, To: 3}, {From: 2, To: 3}, {From: 3, To: 4}},
	}
	g, err := NewGenotype(desc, newTestRand())
	require.NoError(t, err)

	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, []int{-1, -2}, g.Inputs())
	assert.Equal(t, []int{-3}, g.Hidden())
	assert.Equal(t, []int{-4}, g.Outputs())
	require.Equal(t, 3, g.LinkCount())

	for i, l := range g.Links() {
		assert.Equal(t, i+1, l.Innovation)
		assert.True(t, l.Enabled)
		assert.GreaterOrEqual(t, l.Weight, -1.0)
		assert.LessOrEqual(t, l.Weight, 1.0)
	}
	assert.True(t, g.HasLink(-3, -4))
	assert.Len(t, g.Incoming(-3), 2)
	assert.Len(t, g.Outgoing(-3), 1)

	n, ok := g.Node(-1)
	require.True(t, ok)
	assert.Equal(t, DefaultActivation, n.Activation)
	assert.NoError(t, g.Validate())
}

func TestNewGenotypeIsDeterministicForSeed(t *testing.T) {
	desc := FullyConnected(3, 2)
	a, err := NewGenotype(desc, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := NewGenotype(desc, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, a.Links(), b.Links())
}

func TestNewGenotypeRejectsUnknownSeedNode(t *testing.T) {
	desc := TopologyDescriptor{InputCount: 2, OutputCount: 1, Links: []LinkDescriptor{{From: 1, To: 9}}}
	_, err := NewGenotype(desc, newTestRand())
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestAddNodeAndLinkAreIdempotent(t *testing.T) {
	g := NewEmptyGenotype()
	in := NewNodeGene(-1, InputNode, "identity")
	out := NewNodeGene(-2, OutputNode, "identity")

	g.AddNode(in)
	g.AddNode(in)
	assert.Equal(t, 1, g.NodeCount())

	assert.True(t, g.AddLinkAndNodes(NewLinkGene(-1, -2, 0.5, 1), in, out))
	assert.False(t, g.AddLinkAndNodes(NewLinkGene(-1, -2, 0.9, 7), in, out))
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.LinkCount())

	l, ok := g.Link(-1, -2)
	require.True(t, ok)
	assert.Equal(t, 0.5, l.Weight)
	assert.Equal(t, 1, l.Innovation)
	assert.NoError(t, g.Validate())
}

func TestAddNodeKeepsExistingNode(t *testing.T) {
	g := NewEmptyGenotype()
	g.AddNode(NewNodeGene(3, HiddenNode, "tanh"))
	stored := g.AddNode(NewNodeGene(3, HiddenNode, "relu"))
	assert.Equal(t, "tanh", stored.Activation)
	assert.Equal(t, 1, g.HiddenCount())
}

func TestAddLinkMutationOnEmptySeed(t *testing.T) {
	g, err := NewGenotype(TopologyDescriptor{InputCount: 2, OutputCount: 1}, newTestRand())
	require.NoError(t, err)
	require.Equal(t, 3, g.NodeCount())
	require.Equal(t, 0, g.LinkCount())

	reg := NewInnovationRegistry()
	g.Mutate(BreedingParameters{AddLinkProb: 1}, newTestRand(), reg)

	require.Equal(t, 1, g.LinkCount())
	l := g.Links()[0]
	assert.Contains(t, []int{-1, -2}, l.From)
	assert.Equal(t, -3, l.To)
	assert.Equal(t, 1.0, l.Weight)
	assert.Equal(t, 1, l.Innovation)
	assert.NoError(t, g.Validate())
}

func TestAddLinkMutationSkipsExistingLink(t *testing.T) {
	g := buildGenotype(t, []NodeGene{
		NewNodeGene(-1, InputNode, "identity"),
		NewNodeGene(-2, OutputNode, "identity"),
	}, NewLinkGene(-1, -2, 0.3, 1))

	reg := NewInnovationRegistry()
	reg.Reserve(1)
	g.Mutate(BreedingParameters{AddLinkProb: 1}, newTestRand(), reg)

	assert.Equal(t, 1, g.LinkCount())
	assert.Equal(t, 2, reg.Current())
}

func TestSplitLinkMutation(t *testing.T) {
	g, err := NewGenotype(FullyConnected(1, 1), newTestRand())
	require.NoError(t, err)
	original, ok := g.Link(-1, -2)
	require.True(t, ok)

	reg := NewInnovationRegistry()
	reg.Reserve(1)
	g.Mutate(BreedingParameters{SplitLinkProb: 1}, newTestRand(), reg)

	require.Equal(t, 3, g.NodeCount())
	require.Equal(t, []int{1}, g.Hidden())
	hidden, _ := g.Node(1)
	assert.Equal(t, HiddenNode, hidden.Type)
	assert.Equal(t, DefaultActivation, hidden.Activation)

	assert.False(t, g.HasLink(-1, -2))
	in, ok := g.Link(-1, 1)
	require.True(t, ok)
	assert.Equal(t, 1.0, in.Weight)
	assert.Equal(t, 2, in.Innovation)

	out, ok := g.Link(1, -2)
	require.True(t, ok)
	assert.Equal(t, original.Weight, out.Weight)
	assert.Equal(t, 3, out.Innovation)

	assert.Len(t, g.Outgoing(-1), 1)
	assert.Len(t, g.Incoming(-2), 1)
	assert.NoError(t, g.Validate())
}

func TestSplitLinkOnEmptyGenotypeIsNoop(t *testing.T) {
	g := buildGenotype(t, xorNodes())
	g.Mutate(BreedingParameters{SplitLinkProb: 1}, newTestRand(), NewInnovationRegistry())
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 0, g.LinkCount())
}

func TestSameSplitSharesInnovationsWithinGeneration(t *testing.T) {
	reg := NewInnovationRegistry()
	reg.Reserve(1)
	params := BreedingParameters{SplitLinkProb: 1}

	a, err := NewGenotype(FullyConnected(1, 1), newTestRand())
	require.NoError(t, err)
	b := a.Clone()
	a.Mutate(params, newTestRand(), reg)
	b.Mutate(params, newTestRand(), reg)

	innovations := func(g *Genotype) []int {
		var out []int
		for _, l := range g.Links() {
			out = append(out, l.Innovation)
		}
		return out
	}
	assert.Equal(t, innovations(a), innovations(b))
	assert.NotEqual(t, a.Hidden(), b.Hidden())

	reg.ResetGenerationBucket()
	c, err := NewGenotype(FullyConnected(1, 1), newTestRand())
	require.NoError(t, err)
	c.Mutate(params, newTestRand(), reg)
	assert.NotEqual(t, innovations(a), innovations(c))
}

func TestWeightMutationKeepsStructure(t *testing.T) {
	g, err := NewGenotype(FullyConnected(3, 2), newTestRand())
	require.NoError(t, err)
	before := g.Links()

	g.Mutate(BreedingParameters{WeightChangeProb: 1}, newTestRand(), NewInnovationRegistry())

	after := g.Links()
	require.Len(t, after, len(before))
	changed := 0
	for i := range after {
		assert.Equal(t, before[i].Key(), after[i].Key())
		assert.Equal(t, before[i].Innovation, after[i].Innovation)
		assert.GreaterOrEqual(t, after[i].Weight, -1.0)
		assert.LessOrEqual(t, after[i].Weight, 1.0)
		if after[i].Weight != before[i].Weight {
			changed++
		}
	}
	assert.Positive(t, changed)
}

func TestWeightMutationPicksRandomLinks(t *testing.T) {
	desc := FullyConnected(2, 2)
	untouched := 0
	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g, err := NewGenotype(desc, rng)
		require.NoError(t, err)
		require.Equal(t, 4, g.LinkCount())
		before := g.Links()

		// Every draw succeeds, but each one rewrites a randomly picked link,
		// so the same link can be hit twice while another is left alone.
		g.Mutate(BreedingParameters{WeightChangeProb: 1}, rng, NewInnovationRegistry())

		for i, l := range g.Links() {
			if l.Weight == before[i].Weight {
				untouched++
				break
			}
		}
	}
	assert.Positive(t, untouched)
}

func TestAddLinkMutationTargets(t *testing.T) {
	nodes := []NodeGene{
		NewNodeGene(-1, InputNode, "identity"),
		NewNodeGene(-2, OutputNode, "identity"),
		NewNodeGene(3, HiddenNode, "identity"),
		NewNodeGene(7, HiddenNode, "identity"),
	}
	seen := map[LinkKey]int{}
	for seed := int64(0); seed < 200; seed++ {
		g := buildGenotype(t, nodes)
		g.Mutate(BreedingParameters{AddLinkProb: 1}, rand.New(rand.NewSource(seed)), NewInnovationRegistry())
		require.Equal(t, 1, g.LinkCount())

		l := g.Links()[0]
		seen[l.Key()]++
		assert.NotEqual(t, l.From, l.To, "self link")
		target, ok := g.Node(l.To)
		require.True(t, ok)
		assert.NotEqual(t, InputNode, target.Type, "link into input %v", l)
		source, _ := g.Node(l.From)
		assert.NotEqual(t, OutputNode, source.Type, "link out of output %v", l)
		if target.Type == HiddenNode {
			assert.Greater(t, l.To, l.From, "hidden target below source %v", l)
		}
	}
	assert.Zero(t, seen[LinkKey{From: 7, To: 3}])
	assert.Positive(t, seen[LinkKey{From: 3, To: 7}])
	assert.Positive(t, seen[LinkKey{From: -1, To: 3}])
}

func TestCrossoverAlignedGeneComesFromOneParent(t *testing.T) {
	a, err := NewGenotype(FullyConnected(2, 1), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	b, err := NewGenotype(FullyConnected(2, 1), rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	rng := newTestRand()
	for i := 0; i < 20; i++ {
		child, err := a.Crossover(b, 1, 1, rng)
		require.NoError(t, err)
		require.NoError(t, child.Validate())
		require.Equal(t, 2, child.LinkCount())

		for _, l := range child.Links() {
			wa, _ := a.Link(l.From, l.To)
			wb, _ := b.Link(l.From, l.To)
			assert.Contains(t, []float64{wa.Weight, wb.Weight}, l.Weight)
		}
		seen := map[int]int{}
		for _, l := range child.Links() {
			seen[l.Innovation]++
		}
		assert.Equal(t, map[int]int{1: 1, 2: 1}, seen)
	}
}

func TestCrossoverDisjointGenesFromFitterParent(t *testing.T) {
	a := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1))
	b := buildGenotype(t, xorNodes(), NewLinkGene(-2, -3, -0.5, 2))

	child, err := a.Crossover(b, 2, 1, newTestRand())
	require.NoError(t, err)
	assert.Equal(t, 3, child.NodeCount())
	assert.Equal(t, []int{-1, -2}, child.Inputs())
	require.Equal(t, 1, child.LinkCount())
	assert.True(t, child.HasLink(-1, -3))

	child, err = a.Crossover(b, 1, 2, newTestRand())
	require.NoError(t, err)
	require.Equal(t, 1, child.LinkCount())
	assert.True(t, child.HasLink(-2, -3))

	// Ties go to the partner.
	child, err = a.Crossover(b, 1, 1, newTestRand())
	require.NoError(t, err)
	assert.True(t, child.HasLink(-2, -3))
}

func TestCrossoverKeepsAllLinksOfFitterParentWithDisjointInnovations(t *testing.T) {
	a := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1), NewLinkGene(-2, -3, 0.2, 2))
	b := buildGenotype(t, xorNodes())

	child, err := a.Crossover(b, 3, 1, newTestRand())
	require.NoError(t, err)
	assert.Equal(t, a.LinkCount()+b.LinkCount(), child.LinkCount())
	assert.Equal(t, a.Links(), child.Links())
}

func TestCrossoverKeepsDisabledLinks(t *testing.T) {
	disabled := NewLinkGene(-1, -3, 0.5, 1)
	disabled.Enabled = false
	a := buildGenotype(t, xorNodes(), disabled, NewLinkGene(-2, -3, 0.2, 2))
	b := buildGenotype(t, xorNodes())

	child, err := a.Crossover(b, 2, 1, newTestRand())
	require.NoError(t, err)
	l, ok := child.Link(-1, -3)
	require.True(t, ok)
	assert.False(t, l.Enabled)
	l, ok = child.Link(-2, -3)
	require.True(t, ok)
	assert.True(t, l.Enabled)

	g := NewEmptyGenotype()
	from, _ := a.Node(-1)
	to, _ := a.Node(-3)
	require.True(t, g.AddLinkAndNodes(disabled, from, to))
	assert.False(t, g.Links()[0].Enabled)
}

func TestCrossoverChildIsIndependent(t *testing.T) {
	a, err := NewGenotype(FullyConnected(2, 1), newTestRand())
	require.NoError(t, err)
	child, err := a.Crossover(a.Clone(), 1, 0, newTestRand())
	require.NoError(t, err)

	child.Mutate(BreedingParameters{SplitLinkProb: 1}, newTestRand(), NewInnovationRegistry())
	assert.Equal(t, 3, a.NodeCount())
	assert.Equal(t, 2, a.LinkCount())
}

func TestAlignByInnovationMissesOutOfOrderMatches(t *testing.T) {
	a := []LinkGene{NewLinkGene(-1, -3, 0, 1), NewLinkGene(-2, -3, 0, 2)}
	b := []LinkGene{NewLinkGene(-2, -3, 0, 2), NewLinkGene(-1, -3, 0, 1)}

	pairs := alignByInnovation(a, b)
	assert.Equal(t, []linkPair{{first: 0, second: 1}}, pairs)
	assert.Len(t, alignByInnovation(a, a), 2)
}

func TestTopologicalDistance(t *testing.T) {
	a := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1), NewLinkGene(-2, -3, -0.5, 2))
	b := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.1, 1), NewLinkGene(-2, -3, -0.1, 2))
	c := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1))

	assert.Zero(t, a.GetTopologicalDistance(a.Clone()))
	assert.InDelta(t, 0.12, a.GetTopologicalDistance(b), 1e-9)
	assert.InDelta(t, a.GetTopologicalDistance(b), b.GetTopologicalDistance(a), 1e-12)
	assert.InDelta(t, 0.5, a.GetTopologicalDistance(c), 1e-9)

	empty := buildGenotype(t, xorNodes())
	assert.Zero(t, empty.GetTopologicalDistance(buildGenotype(t, xorNodes())))
	assert.InDelta(t, 1.0, c.GetTopologicalDistance(empty), 1e-9)
}

func TestRebuildGenotypeRejectsBadInput(t *testing.T) {
	_, err := RebuildGenotype(xorNodes(), []LinkGene{NewLinkGene(-1, 5, 1, 1)})
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = RebuildGenotype(append(xorNodes(), NewNodeGene(-1, InputNode, "tanh")), nil)
	assert.Error(t, err)

	_, err = RebuildGenotype(xorNodes(), []LinkGene{NewLinkGene(-1, -3, 1, 1), NewLinkGene(-1, -3, 2, 2)})
	assert.Error(t, err)
}

func TestValidateDetectsRoleMismatch(t *testing.T) {
	g := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1))
	require.NoError(t, g.Validate())
	g.nodes[0].Type = HiddenNode
	assert.Error(t, g.Validate())
}

func TestGenotypeString(t *testing.T) {
	g := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1), NewLinkGene(-2, -3, -0.5, 2))
	s := g.String()
	assert.Contains(t, s, "Link count: 2")
	assert.Contains(t, s, "To node -3:")
	assert.NotContains(t, s, "To node -1:")
}

func TestExcludeIndices(t *testing.T) {
	out, err := excludeIndices([]int{10, 20, 30, 40}, []int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 30}, out)

	_, err = excludeIndices([]int{10, 20}, []int{1, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = excludeIndices([]int{10, 20}, []int{2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = excludeIndices([]int{10}, []int{0, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
