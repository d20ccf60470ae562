package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNewAssignsUniqueKeys(t *testing.T) {
	config := newTestConfig(t)
	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)
	repro := NewReproduction(&config.Reproduction, stagnation, nil)

	pop := repro.CreateNew(&config.Genome, 10, newTestRand(1))
	require.Len(t, pop, 10)
	for key, g := range pop {
		assert.Equal(t, key, g.Key)
		assert.Empty(t, repro.Ancestors[key], "de novo genomes have no parents")
		assert.NotEmpty(t, g.Nodes)
	}
	assert.Equal(t, 11, repro.NextGenomeKey)
}

func TestComputeSpawnProportionalWithDamping(t *testing.T) {
	// The fitter species grows toward its fitness share, but only half the
	// distance from its previous size per generation.
	spawns := computeSpawn([]float64{1.0, 0.0}, []int{10, 10}, 20, 2)
	assert.Equal(t, []int{14, 6}, spawns)

	// Starting from small previous sizes the same shares land elsewhere; the
	// minimum species size still binds the zero-fitness species.
	spawns = computeSpawn([]float64{1.0, 0.0}, []int{2, 2}, 20, 2)
	assert.Equal(t, []int{17, 3}, spawns)

	total := 0
	for _, s := range spawns {
		total += s
	}
	assert.Equal(t, 20, total)
}

func TestComputeSpawnUniformFitness(t *testing.T) {
	// Equal adjusted fitness keeps equal species at their previous sizes.
	spawns := computeSpawn([]float64{0.5, 0.5}, []int{10, 10}, 20, 2)
	assert.Equal(t, []int{10, 10}, spawns)
}

func TestAdjustSpawnExactAddsToSmallestFirst(t *testing.T) {
	spawns, err := adjustSpawnExact([]int{5, 3}, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4}, spawns)
}

func TestAdjustSpawnExactRemovesFromLargestFirst(t *testing.T) {
	// Rounding overshoot of one is paid by the largest species.
	spawns, err := adjustSpawnExact([]int{19, 2}, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{18, 2}, spawns)
}

func TestAdjustSpawnExactRespectsMinimum(t *testing.T) {
	spawns, err := adjustSpawnExact([]int{4, 2}, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, spawns)
}

func TestAdjustSpawnExactConfigurationConflict(t *testing.T) {
	_, err := adjustSpawnExact([]int{2, 2}, 3, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration conflict")
}

func TestReproduceKeepsElitesAndPopulationSize(t *testing.T) {
	config := newTestConfig(t)
	require.Equal(t, 2, config.Reproduction.Elitism)

	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)
	repro := NewReproduction(&config.Reproduction, stagnation, nil)
	rng := newTestRand(1)

	pop := repro.CreateNew(&config.Genome, 20, rng)
	ss := NewSpeciesSet(nil)
	require.NoError(t, ss.Speciate(config, pop, 0))
	for key, g := range pop {
		g.Fitness = float64(key)
	}

	newPop, err := repro.Reproduce(config, ss, 20, 0, rng)
	require.NoError(t, err)
	assert.Len(t, newPop, 20)

	// The best genome tops its species and survives unchanged under its own
	// key; children record both parents.
	best := newPop[20]
	require.NotNil(t, best, "elite must carry over")
	assert.Same(t, pop[20], best)
	for key := range newPop {
		if key > 20 {
			assert.Len(t, repro.Ancestors[key], 2)
		}
	}

	// Species survive with cleared membership until the next speciation pass.
	for _, s := range ss.AllSpecies() {
		assert.Empty(t, s.Members)
	}
}

func TestReproduceTotalExtinction(t *testing.T) {
	config := newTestConfig(t)
	config.Stagnation.MaxStagnation = 1
	config.Stagnation.SpeciesElitism = 0

	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)
	repro := NewReproduction(&config.Reproduction, stagnation, nil)
	rng := newTestRand(1)

	pop := repro.CreateNew(&config.Genome, 10, rng)
	ss := NewSpeciesSet(nil)
	require.NoError(t, ss.Speciate(config, pop, 0))
	for _, g := range pop {
		g.Fitness = 1.0
	}

	// Generation 0 establishes the fitness history.
	newPop, err := repro.Reproduce(config, ss, 10, 0, rng)
	require.NoError(t, err)
	require.NotEmpty(t, newPop)
	require.NoError(t, ss.Speciate(config, newPop, 1))
	for _, g := range newPop {
		g.Fitness = 1.0
	}

	// No species has improved for longer than max_stagnation and nothing is
	// protected: the whole population dies out.
	newPop, err = repro.Reproduce(config, ss, 10, 5, rng)
	require.NoError(t, err)
	assert.Empty(t, newPop)
	assert.Empty(t, ss.AllSpecies())
}

func TestReproduceExactSizeAcrossGenerations(t *testing.T) {
	// The population must hold its configured size for every non-extinction
	// generation, whatever the species landscape does.
	data := rewriteConfig(t, "fitness_threshold     = 3.9", "fitness_threshold     = 1e18")
	config, err := LoadConfigData(data)
	require.NoError(t, err)

	p, err := NewPopulation(config)
	require.NoError(t, err)

	fitness := func(genomes map[int]*Genome, config *Config) error {
		for key, g := range genomes {
			nodes, conns := g.Size()
			g.Fitness = float64((key*37)%11) + 0.25*float64(nodes+conns)
		}
		return nil
	}

	for generation := 0; generation < 50; generation++ {
		winner, err := p.RunGeneration(fitness)
		require.NoError(t, err, "generation %d", generation)
		require.Nil(t, winner)
		assert.Len(t, p.Population, config.Neat.PopSize, "generation %d", generation)
		assert.NotEmpty(t, p.Species.AllSpecies(), "generation %d", generation)
	}
	assert.Equal(t, 50, p.Generation)
}
