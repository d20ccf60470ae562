package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// biasGenome builds a genome whose distance to another biasGenome is
// 0.5 * |bias difference| under the test fixture's coefficients, which makes
// speciation outcomes easy to stage.
func biasGenome(key int, bias float64) *Genome {
	g := NewGenome(key)
	g.Nodes[0] = &NodeGene{Key: 0, Bias: bias, Response: 1.0, Activation: "sigmoid", Aggregation: "sum"}
	return g
}

func TestSpeciesGetFitnesses(t *testing.T) {
	s := NewSpecies(1, 0)
	g1 := biasGenome(1, 0)
	g1.Fitness = 1.0
	g2 := biasGenome(2, 0)
	g2.Fitness = 3.0
	s.Update(g1, map[int]*Genome{1: g1, 2: g2})

	fitnesses := s.GetFitnesses()
	assert.ElementsMatch(t, []float64{1.0, 3.0}, fitnesses)
}

func TestGenomeDistanceCacheMemoizes(t *testing.T) {
	config := newTestConfig(t)
	dc := NewGenomeDistanceCache(&config.Genome)

	g1 := biasGenome(1, 0.0)
	g2 := biasGenome(2, 2.0)

	d := dc.Distance(g1, g2)
	assert.InDelta(t, 1.0, d, 1e-12)
	assert.Equal(t, 1, dc.misses)

	// Both orderings hit the cache after the first computation.
	assert.Equal(t, d, dc.Distance(g1, g2))
	assert.Equal(t, d, dc.Distance(g2, g1))
	assert.Equal(t, 2, dc.hits)
	assert.Equal(t, 1, dc.misses)
}

func TestSpeciateSingleSpecies(t *testing.T) {
	config := newTestConfig(t)
	ss := NewSpeciesSet(nil)

	population := map[int]*Genome{
		1: biasGenome(1, 0.0),
		2: biasGenome(2, 1.0),
		3: biasGenome(3, 2.0),
	}
	require.NoError(t, ss.Speciate(config, population, 0))

	require.Len(t, ss.Species, 1)
	s := ss.Species[1]
	assert.Len(t, s.Members, 3)
	assert.Equal(t, 0, s.Created)
	require.NotNil(t, s.Representative)
	assert.Contains(t, s.Members, s.Representative.Key)

	for gid := range population {
		sid, ok := ss.GetSpeciesID(gid)
		require.True(t, ok)
		assert.Equal(t, 1, sid)
	}
}

func TestSpeciateFoundsNewSpeciesBeyondThreshold(t *testing.T) {
	config := newTestConfig(t)
	ss := NewSpeciesSet(nil)

	// Distance 5.0 exceeds the threshold 3.0, so the second genome founds its
	// own species.
	population := map[int]*Genome{
		1: biasGenome(1, 0.0),
		2: biasGenome(2, 10.0),
	}
	require.NoError(t, ss.Speciate(config, population, 0))

	require.Len(t, ss.Species, 2)
	sid1, _ := ss.GetSpeciesID(1)
	sid2, _ := ss.GetSpeciesID(2)
	assert.NotEqual(t, sid1, sid2)
}

func TestSpeciateAssignsBestFitNotFirstFit(t *testing.T) {
	config := newTestConfig(t)
	ss := NewSpeciesSet(nil)

	// Anchors at bias 0 and bias 7 (distance 3.5 apart, two species).
	require.NoError(t, ss.Speciate(config, map[int]*Genome{
		1: biasGenome(1, 0.0),
		2: biasGenome(2, 7.0),
	}, 0))
	require.Len(t, ss.Species, 2)

	// A genome at bias 4 is below threshold for both anchors (2.0 and 1.5)
	// but closer to the second; first-fit would wrongly pick species 1.
	require.NoError(t, ss.Speciate(config, map[int]*Genome{
		3: biasGenome(3, 4.0),
	}, 1))

	sid, ok := ss.GetSpeciesID(3)
	require.True(t, ok)
	assert.Equal(t, 2, sid)

	// Species 1 kept no members and dies.
	assert.Len(t, ss.Species, 1)
	assert.NotContains(t, ss.Species, 1)
}

func TestSpeciateReelectsClosestRepresentative(t *testing.T) {
	config := newTestConfig(t)
	require.Equal(t, "closest", config.SpeciesSet.RepresentativePolicy)
	ss := NewSpeciesSet(nil)

	require.NoError(t, ss.Speciate(config, map[int]*Genome{1: biasGenome(1, 0.0)}, 0))
	require.Equal(t, 1, ss.Species[1].Representative.Key)

	// Next generation the founder is gone; the member nearest the old
	// representative takes over.
	require.NoError(t, ss.Speciate(config, map[int]*Genome{
		2: biasGenome(2, 1.0),
		3: biasGenome(3, 2.0),
	}, 1))

	require.Len(t, ss.Species, 1)
	assert.Equal(t, 2, ss.Species[1].Representative.Key)
	// The species object survives with its creation generation intact.
	assert.Equal(t, 0, ss.Species[1].Created)
}

func TestElectRepresentativeCentral(t *testing.T) {
	config := newTestConfig(t)
	dc := NewGenomeDistanceCache(&config.Genome)

	members := map[int]*Genome{
		1: biasGenome(1, 0.0),
		2: biasGenome(2, 1.0),
		3: biasGenome(3, 5.0),
	}

	// Total distances: g1 = 3.0, g2 = 2.5, g3 = 4.5; the medoid is g2.
	rep := electRepresentative("central", nil, members, dc)
	require.NotNil(t, rep)
	assert.Equal(t, 2, rep.Key)
}

func TestSpeciateEmptyPopulationClears(t *testing.T) {
	config := newTestConfig(t)
	ss := NewSpeciesSet(nil)

	require.NoError(t, ss.Speciate(config, map[int]*Genome{1: biasGenome(1, 0.0)}, 0))
	require.Len(t, ss.Species, 1)

	require.NoError(t, ss.Speciate(config, map[int]*Genome{}, 1))
	assert.Empty(t, ss.Species)
	assert.Empty(t, ss.GenomeToSpecies)
}

func TestReplaceSpeciesDropsStaleAssignments(t *testing.T) {
	config := newTestConfig(t)
	ss := NewSpeciesSet(nil)

	require.NoError(t, ss.Speciate(config, map[int]*Genome{1: biasGenome(1, 0.0)}, 0))
	_, ok := ss.GetSpecies(1)
	require.True(t, ok)

	ss.ReplaceSpecies(map[int]*Species{})
	_, ok = ss.GetSpeciesID(1)
	assert.False(t, ok)
	assert.Empty(t, ss.AllSpecies())
}

func TestSpeciateDistanceToSelfIsZero(t *testing.T) {
	config := newTestConfig(t)
	g := NewGenome(1)
	g.ConfigureNew(&config.Genome, NewInnovationTracker(), newTestRand(7))

	dc := NewGenomeDistanceCache(&config.Genome)
	assert.Zero(t, dc.Distance(g, g))
}
