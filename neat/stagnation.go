package neat

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Stagnation tracks species fitness history and flags species that have
// gone too long without improvement.
type Stagnation struct {
	Config      *StagnationConfig
	fitnessFunc func([]float64) float64
}

// NewStagnation creates a stagnation tracker, resolving the configured
// species fitness function.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[strings.ToLower(config.SpeciesFitnessFunc)]
	if !ok {
		return nil, fmt.Errorf("config error: invalid species_fitness_func %q", config.SpeciesFitnessFunc)
	}
	return &Stagnation{Config: config, fitnessFunc: fn}, nil
}

// StagnationInfo is one species' stagnation verdict for a generation.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update recomputes every species' fitness, appends it to the fitness
// history and flags stagnant species.
//
// Species are processed in ascending fitness order (ties toward the lower
// species key) so the least fit go stagnant first. A species is spared when
// flagging it would leave fewer than species_elitism species alive, and the
// top species_elitism species are never flagged regardless of their
// stagnation time. The returned slice preserves the processing order.
func (st *Stagnation) Update(species map[int]*Species, generation int) []StagnationInfo {
	speciesData := make([]*Species, 0, len(species))
	for _, sid := range sortedKeys(species) {
		s := species[sid]

		prevFitness := math.Inf(-1)
		if len(s.FitnessHistory) > 0 {
			prevFitness = MaxFloat(s.FitnessHistory)
		}

		s.Fitness = st.fitnessFunc(s.GetFitnesses())
		s.FitnessHistory = append(s.FitnessHistory, s.Fitness)
		s.AdjustedFitness = 0
		if s.Fitness > prevFitness {
			s.LastImproved = generation
		}

		speciesData = append(speciesData, s)
	}

	sort.SliceStable(speciesData, func(i, j int) bool {
		return speciesData[i].Fitness < speciesData[j].Fitness
	})

	result := make([]StagnationInfo, 0, len(speciesData))
	numNonStagnant := len(speciesData)
	for idx, s := range speciesData {
		stagnantTime := generation - s.LastImproved
		isStagnant := false
		if numNonStagnant > st.Config.SpeciesElitism {
			isStagnant = stagnantTime >= st.Config.MaxStagnation
		}

		// The fittest species_elitism species survive unconditionally.
		if len(speciesData)-idx <= st.Config.SpeciesElitism {
			isStagnant = false
		}

		if isStagnant {
			numNonStagnant--
		}

		result = append(result, StagnationInfo{SpeciesID: s.Key, Species: s, IsStagnant: isStagnant})
	}

	return result
}
