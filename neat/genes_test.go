package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeGeneInitFromConfig(t *testing.T) {
	config := newTestConfig(t)
	rng := newTestRand(1)

	ng := NewNodeGene(0, &config.Genome, rng)
	assert.Equal(t, 0, ng.Key)
	assert.Equal(t, "sigmoid", ng.Activation)
	assert.Equal(t, "sum", ng.Aggregation)
	// Response init is a degenerate gaussian (mean 1, stdev 0).
	assert.InDelta(t, 1.0, ng.Response, 1e-12)
	assert.GreaterOrEqual(t, ng.Bias, -30.0)
	assert.LessOrEqual(t, ng.Bias, 30.0)
}

func TestNodeGeneDistance(t *testing.T) {
	config := newTestConfig(t)

	a := &NodeGene{Key: 1, Bias: 1.0, Response: 1.0, Activation: "sigmoid", Aggregation: "sum"}
	b := &NodeGene{Key: 1, Bias: 1.0, Response: 1.0, Activation: "sigmoid", Aggregation: "sum"}
	assert.Zero(t, a.Distance(b, &config.Genome))

	// |1.0-2.5| + |1.0-1.0|, scaled by the weight coefficient 0.5.
	b.Bias = 2.5
	assert.InDelta(t, 0.75, a.Distance(b, &config.Genome), 1e-12)
	assert.InDelta(t, a.Distance(b, &config.Genome), b.Distance(a, &config.Genome), 1e-12)

	// Differing activation and aggregation each add one before scaling.
	b.Activation = "tanh"
	b.Aggregation = "product"
	assert.InDelta(t, (1.5+2.0)*0.5, a.Distance(b, &config.Genome), 1e-12)
}

func TestNodeGeneCrossoverMixesParents(t *testing.T) {
	rng := newTestRand(2)

	a := &NodeGene{Key: 3, Bias: 1.0, Response: 1.0, Activation: "sigmoid", Aggregation: "sum"}
	b := &NodeGene{Key: 3, Bias: -1.0, Response: 2.0, Activation: "tanh", Aggregation: "product"}

	// Every attribute of the child comes from one parent or the other, and
	// over enough trials both sources appear.
	sawA, sawB := false, false
	for i := 0; i < 100; i++ {
		child := a.Crossover(b, rng)
		assert.Equal(t, 3, child.Key)
		assert.Contains(t, []float64{a.Bias, b.Bias}, child.Bias)
		assert.Contains(t, []float64{a.Response, b.Response}, child.Response)
		assert.Contains(t, []string{a.Activation, b.Activation}, child.Activation)
		assert.Contains(t, []string{a.Aggregation, b.Aggregation}, child.Aggregation)
		if child.Bias == a.Bias {
			sawA = true
		} else {
			sawB = true
		}
	}
	assert.True(t, sawA)
	assert.True(t, sawB)
}

func TestNodeGeneCopyIsIndependent(t *testing.T) {
	a := &NodeGene{Key: 1, Bias: 0.5, Activation: "sigmoid"}
	dup := a.Copy()
	dup.Bias = 9.0
	assert.InDelta(t, 0.5, a.Bias, 1e-12)
}

func TestConnectionGeneDistance(t *testing.T) {
	config := newTestConfig(t)

	a := &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 1.0, Enabled: true}
	b := &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 1.0, Enabled: true}
	assert.Zero(t, a.Distance(b, &config.Genome))

	// |1.0 - -1.0| plus 1 for the differing flag, scaled by 0.5.
	b.Weight = -1.0
	b.Enabled = false
	assert.InDelta(t, 1.5, a.Distance(b, &config.Genome), 1e-12)
	assert.InDelta(t, a.Distance(b, &config.Genome), b.Distance(a, &config.Genome), 1e-12)
}

func TestConnectionGeneCrossoverKeepsEndpointsAndMarker(t *testing.T) {
	rng := newTestRand(3)

	a := &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 2.0, Enabled: true, Innovation: 11}
	b := &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: -2.0, Enabled: false, Innovation: 11}

	for i := 0; i < 50; i++ {
		child := a.Crossover(b, rng)
		assert.Equal(t, a.Key, child.Key)
		assert.Equal(t, 11, child.Innovation)
		assert.Contains(t, []float64{a.Weight, b.Weight}, child.Weight)
	}
}

func TestConnectionGeneAlignsWith(t *testing.T) {
	a := &ConnectionGene{Key: ConnectionKey{-1, 0}, Innovation: 4}
	b := &ConnectionGene{Key: ConnectionKey{-1, 0}, Innovation: 4}
	assert.True(t, a.alignsWith(b))

	// Same endpoints but different non-zero markers: the connections arose
	// independently in different generations and must not align.
	b.Innovation = 9
	assert.False(t, a.alignsWith(b))
	assert.False(t, b.alignsWith(a))

	// A zero marker (legacy serialized genomes) falls back to endpoint
	// identity.
	b.Innovation = 0
	assert.True(t, a.alignsWith(b))
	assert.True(t, b.alignsWith(a))
}

func TestConnectionGeneMutateStaysInBounds(t *testing.T) {
	config := newTestConfig(t)
	rng := newTestRand(4)

	cg := &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 0.0, Enabled: true, Innovation: 1}
	for i := 0; i < 200; i++ {
		cg.Mutate(&config.Genome, rng)
		assert.GreaterOrEqual(t, cg.Weight, config.Genome.WeightMinValue)
		assert.LessOrEqual(t, cg.Weight, config.Genome.WeightMaxValue)
	}
}

func TestGeneStrings(t *testing.T) {
	ng := &NodeGene{Key: 2, Bias: 0.5, Response: 1.0, Activation: "sigmoid", Aggregation: "sum"}
	assert.Contains(t, ng.String(), "Key: 2")
	assert.Contains(t, ng.String(), "sigmoid")

	cg := &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 1.5, Enabled: true, Innovation: 3}
	assert.Contains(t, cg.String(), "-1->0")
	assert.Contains(t, cg.String(), "Innovation: 3")
}
