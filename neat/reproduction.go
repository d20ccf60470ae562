package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Reproduction builds each new generation: it filters stagnant species,
// allots offspring counts, carries over elites and produces children by
// crossover plus mutation. It owns the innovation tracker handed to the
// mutation operators and the genome key counter, so genome keys are unique
// across the whole run.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int
	Ancestors     map[int][]int // genome key -> parent keys, empty for de novo genomes
	Tracker       *InnovationTracker

	stagnation StagnationScheme
	reporters  *ReporterSet
}

// NewReproduction creates a reproduction manager with a fresh innovation
// tracker. reporters may be nil.
func NewReproduction(config *ReproductionConfig, stagnation StagnationScheme, reporters *ReporterSet) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		Tracker:       NewInnovationTracker(),
		stagnation:    stagnation,
		reporters:     reporters,
	}
}

func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNew builds an initial population of the given size from scratch.
func (r *Reproduction) CreateNew(genomeConfig *GenomeConfig, numGenomes int, rng *rand.Rand) map[int]*Genome {
	newGenomes := make(map[int]*Genome, numGenomes)
	for i := 0; i < numGenomes; i++ {
		key := r.getNextKey()
		g := NewGenome(key)
		g.ConfigureNew(genomeConfig, r.Tracker, rng)
		newGenomes[key] = g
		r.Ancestors[key] = []int{}
	}
	return newGenomes
}

// Reproduce creates the next generation from the current species.
//
// Returns an empty population when every species was removed for
// stagnation; the caller decides whether that is a hard failure or a reset.
// Returns an error when pop_size cannot accommodate every surviving species
// at its minimum size.
func (r *Reproduction) Reproduce(config *Config, speciator Speciator, popSize, generation int, rng *rand.Rand) (map[int]*Genome, error) {
	// Markers dedupe within a single generation only.
	r.Tracker.BeginGeneration()

	var allFitnesses []float64
	var remainingSpecies []*Species
	for _, info := range r.stagnation.Update(speciator.AllSpecies(), generation) {
		if info.IsStagnant {
			r.reporters.SpeciesStagnant(info.SpeciesID, info.Species)
			continue
		}
		allFitnesses = append(allFitnesses, info.Species.GetFitnesses()...)
		remainingSpecies = append(remainingSpecies, info.Species)
	}

	if len(remainingSpecies) == 0 {
		speciator.ReplaceSpecies(map[int]*Species{})
		return map[int]*Genome{}, nil
	}

	// Adjusted fitness rescales each species' mean member fitness onto
	// [0, 1] across the survivors. The range is floored at 1.0 so a
	// uniform-fitness population does not divide by zero.
	minFitness := MinFloat(allFitnesses)
	maxFitness := MaxFloat(allFitnesses)
	fitnessRange := math.Max(1.0, maxFitness-minFitness)
	adjustedFitnesses := make([]float64, len(remainingSpecies))
	previousSizes := make([]int, len(remainingSpecies))
	for i, s := range remainingSpecies {
		af := (Mean(s.GetFitnesses()) - minFitness) / fitnessRange
		s.AdjustedFitness = af
		adjustedFitnesses[i] = af
		previousSizes[i] = len(s.Members)
	}
	r.reporters.Info(fmt.Sprintf("Average adjusted fitness: %.3f", Mean(adjustedFitnesses)))

	// Elites count against a species' allotment, so the effective minimum
	// species size can never fall below the elite count.
	minSpeciesSize := max(r.Config.MinSpeciesSize, r.Config.Elitism)
	spawnAmounts := computeSpawn(adjustedFitnesses, previousSizes, popSize, minSpeciesSize)
	spawnAmounts, err := adjustSpawnExact(spawnAmounts, popSize, minSpeciesSize)
	if err != nil {
		return nil, err
	}

	newPopulation := make(map[int]*Genome, popSize)
	newSpecies := make(map[int]*Species, len(remainingSpecies))
	for i, s := range remainingSpecies {
		spawn := max(spawnAmounts[i], r.Config.Elitism)

		oldMembers := make([]*Genome, 0, len(s.Members))
		for _, g := range s.Members {
			oldMembers = append(oldMembers, g)
		}

		// The species survives into the next generation with cleared
		// membership; speciation refills it.
		s.Members = make(map[int]*Genome)
		newSpecies[s.Key] = s

		// Descending fitness, ties toward the younger genome.
		sort.Slice(oldMembers, func(a, b int) bool {
			if oldMembers[a].Fitness != oldMembers[b].Fitness {
				return oldMembers[a].Fitness > oldMembers[b].Fitness
			}
			return oldMembers[a].Key > oldMembers[b].Key
		})

		if r.Config.Elitism > 0 {
			for _, m := range oldMembers[:min(r.Config.Elitism, len(oldMembers))] {
				newPopulation[m.Key] = m
				spawn--
			}
		}

		if spawn <= 0 {
			continue
		}

		// Only the top survival_threshold fraction may be parents, but never
		// fewer than two slots so crossover has a pair to draw from.
		reproCutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(oldMembers))))
		reproCutoff = max(reproCutoff, 2)
		parents := oldMembers[:min(reproCutoff, len(oldMembers))]

		for ; spawn > 0; spawn-- {
			parent1 := parents[rng.IntN(len(parents))]
			parent2 := parents[rng.IntN(len(parents))]

			// Identical parents yield a genetically identical clone under a
			// new key.
			gid := r.getNextKey()
			child := NewGenome(gid)
			child.ConfigureCrossover(parent1, parent2, &config.Genome, rng)
			child.Mutate(&config.Genome, r.Tracker, rng)
			newPopulation[gid] = child
			r.Ancestors[gid] = []int{parent1.Key, parent2.Key}
		}
	}

	speciator.ReplaceSpecies(newSpecies)

	return newPopulation, nil
}

// computeSpawn allots offspring per species in proportion to adjusted
// fitness, damped toward each species' previous size by half the difference,
// then normalized to roughly pop_size.
func computeSpawn(adjustedFitnesses []float64, previousSizes []int, popSize, minSpeciesSize int) []int {
	afSum := Sum(adjustedFitnesses)

	spawnAmounts := make([]int, 0, len(adjustedFitnesses))
	for i, af := range adjustedFitnesses {
		ps := previousSizes[i]
		var s float64
		if afSum > 0 {
			s = math.Max(float64(minSpeciesSize), af/afSum*float64(popSize))
		} else {
			s = float64(minSpeciesSize)
		}

		d := (s - float64(ps)) * 0.5
		c := int(math.Round(d))
		spawn := ps
		if c != 0 {
			spawn += c
		} else if d > 0 {
			spawn++
		} else if d < 0 {
			spawn--
		}
		spawnAmounts = append(spawnAmounts, spawn)
	}

	totalSpawn := 0
	for _, n := range spawnAmounts {
		totalSpawn += n
	}
	norm := float64(popSize) / float64(totalSpawn)
	for i, n := range spawnAmounts {
		spawnAmounts[i] = max(minSpeciesSize, int(math.Round(float64(n)*norm)))
	}

	return spawnAmounts
}

// adjustSpawnExact massages spawn amounts so they sum to exactly pop_size.
// Surplus goes to the smallest species first, round-robin; deficit is taken
// from the largest species first, never below minSpeciesSize.
func adjustSpawnExact(spawnAmounts []int, popSize, minSpeciesSize int) ([]int, error) {
	if popSize < len(spawnAmounts)*minSpeciesSize {
		return nil, fmt.Errorf(
			"configuration conflict: population size %d is less than num_species * min_species_size (%d * %d = %d)",
			popSize, len(spawnAmounts), minSpeciesSize, len(spawnAmounts)*minSpeciesSize)
	}

	total := 0
	for _, n := range spawnAmounts {
		total += n
	}
	diff := popSize - total

	if diff > 0 {
		order := spawnOrder(spawnAmounts, false)
		for i := 0; diff > 0; i++ {
			spawnAmounts[order[i%len(order)]]++
			diff--
		}
	}
	for diff < 0 {
		changed := false
		for _, i := range spawnOrder(spawnAmounts, true) {
			if diff == 0 {
				break
			}
			if spawnAmounts[i] > minSpeciesSize {
				spawnAmounts[i]--
				diff++
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	total = 0
	for _, n := range spawnAmounts {
		total += n
	}
	if total != popSize {
		return nil, fmt.Errorf("could not allocate exactly %d genomes across %d species", popSize, len(spawnAmounts))
	}
	return spawnAmounts, nil
}

// spawnOrder returns species indices ordered by spawn amount, ties toward
// the lower index.
func spawnOrder(spawnAmounts []int, descending bool) []int {
	order := make([]int, len(spawnAmounts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return spawnAmounts[order[a]] > spawnAmounts[order[b]]
		}
		return spawnAmounts[order[a]] < spawnAmounts[order[b]]
	})
	return order
}
