package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScoredIndividual(key int, g *Genotype, fitness float64) *Individual {
	ind := NewIndividual(key, g)
	ind.SetRawFitness(fitness)
	return ind
}

func TestUniformCrossoverUsesFitness(t *testing.T) {
	a := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.5, 1))
	b := buildGenotype(t, xorNodes(), NewLinkGene(-2, -3, -0.5, 2))

	child, err := UniformCrossover{}.Apply(newScoredIndividual(1, a, 5), newScoredIndividual(2, b, 1), newTestRand())
	require.NoError(t, err)
	assert.True(t, child.HasLink(-1, -3))
	assert.False(t, child.HasLink(-2, -3))
	assert.Equal(t, "uniform", UniformCrossover{}.Name())
}

func TestKPointsCrossoverAlternatesSegments(t *testing.T) {
	a := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.1, 1), NewLinkGene(-2, -3, 0.2, 2))
	b := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.7, 1), NewLinkGene(-2, -3, 0.8, 2))

	// Two aligned genes give a stride of two: the first gene comes from the
	// first parent, the switch happens on the second.
	child, err := KPointsCrossover{}.Apply(newScoredIndividual(1, a, 1), newScoredIndividual(2, b, 1), newTestRand())
	require.NoError(t, err)
	first, _ := child.Link(-1, -3)
	second, _ := child.Link(-2, -3)
	assert.Equal(t, 0.1, first.Weight)
	assert.Equal(t, 0.8, second.Weight)
	assert.Equal(t, "kpoints", KPointsCrossover{}.Name())
}

func TestKPointsCrossoverDisjointFromAdjustedFitness(t *testing.T) {
	nodes := append(xorNodes(), NewNodeGene(5, HiddenNode, "identity"))
	a := buildGenotype(t, nodes,
		NewLinkGene(-1, -3, 0.1, 1), NewLinkGene(-2, -3, 0.2, 2), NewLinkGene(-1, 5, 0.3, 3), NewLinkGene(5, -3, 0.4, 4))
	b := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.7, 1), NewLinkGene(-2, -3, 0.8, 2))

	rng := newTestRand()
	for i := 0; i < 10; i++ {
		child, err := KPointsCrossover{}.Apply(newScoredIndividual(1, a, 3), newScoredIndividual(2, b, 1), rng)
		require.NoError(t, err)
		require.NoError(t, child.Validate())
		assert.Equal(t, 4, child.LinkCount())
		assert.Equal(t, 1, child.HiddenCount())

		child, err = KPointsCrossover{}.Apply(newScoredIndividual(1, a, 1), newScoredIndividual(2, b, 1), rng)
		require.NoError(t, err)
		assert.Equal(t, 2, child.LinkCount())
		assert.Zero(t, child.HiddenCount())
	}
}

func TestKPointsCrossoverWithoutAlignedGenes(t *testing.T) {
	a := buildGenotype(t, xorNodes(), NewLinkGene(-1, -3, 0.1, 1))
	b := buildGenotype(t, xorNodes(), NewLinkGene(-2, -3, 0.2, 2))

	child, err := KPointsCrossover{}.Apply(newScoredIndividual(1, a, 1), newScoredIndividual(2, b, 2), newTestRand())
	require.NoError(t, err)
	require.Equal(t, 1, child.LinkCount())
	assert.True(t, child.HasLink(-2, -3))
}

func TestOperatorPoolValidation(t *testing.T) {
	_, err := NewOperatorPool()
	assert.Error(t, err)

	_, err = NewOperatorPool(&WeightedOperator{Operator: UniformCrossover{}, SelectProbability: -1})
	assert.Error(t, err)

	_, err = NewOperatorPool(&WeightedOperator{Operator: UniformCrossover{}})
	assert.Error(t, err)
}

func TestOperatorPoolSelect(t *testing.T) {
	pool, err := NewOperatorPoolFromConfig(CrossoverConfig{UniformProb: 1, KPointsProb: 0})
	require.NoError(t, err)
	rng := newTestRand()
	for i := 0; i < 50; i++ {
		assert.Equal(t, "uniform", pool.Select(rng).Operator.Name())
	}

	require.NoError(t, pool.SetProbability("kpoints", 1))
	require.NoError(t, pool.SetProbability("uniform", 0))
	for i := 0; i < 50; i++ {
		assert.Equal(t, "kpoints", pool.Select(rng).Operator.Name())
	}

	assert.Error(t, pool.SetProbability("missing", 1))
	assert.Error(t, pool.SetProbability("uniform", -0.5))
}

func TestOperatorPoolSelectsInProportion(t *testing.T) {
	pool, err := NewOperatorPoolFromConfig(CrossoverConfig{UniformProb: 0.5, KPointsProb: 0.5})
	require.NoError(t, err)

	counts := map[string]int{}
	rng := newTestRand()
	for i := 0; i < 2000; i++ {
		counts[pool.Select(rng).Operator.Name()]++
	}
	assert.InDelta(t, 1000, counts["uniform"], 150)
	assert.InDelta(t, 1000, counts["kpoints"], 150)

	assert.Len(t, pool.Operators(), 2)
	assert.Contains(t, pool.String(), "uniform")
	assert.Contains(t, pool.String(), "kpoints")
}
