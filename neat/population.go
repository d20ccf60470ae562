package neat

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// ErrCompleteExtinction is returned by Run when every species has died and
// reset_on_extinction is disabled.
var ErrCompleteExtinction = errors.New("complete extinction: all species have died")

// FitnessFunc evaluates a generation. It must assign Fitness to every genome
// in the map before returning.
type FitnessFunc func(genomes map[int]*Genome, config *Config) error

// Speciator partitions each generation into species.
type Speciator interface {
	Speciate(config *Config, population map[int]*Genome, generation int) error
	AllSpecies() map[int]*Species
	GetSpeciesID(genomeKey int) (int, bool)
	// ReplaceSpecies installs the species surviving reproduction, clearing
	// stale genome assignments.
	ReplaceSpecies(species map[int]*Species)
}

// Reproducer produces each new generation of genomes.
type Reproducer interface {
	CreateNew(genomeConfig *GenomeConfig, numGenomes int, rng *rand.Rand) map[int]*Genome
	Reproduce(config *Config, speciator Speciator, popSize, generation int, rng *rand.Rand) (map[int]*Genome, error)
}

// StagnationScheme flags species that should stop reproducing.
type StagnationScheme interface {
	Update(species map[int]*Species, generation int) []StagnationInfo
}

// Population drives the evolutionary loop: evaluate, check termination,
// reproduce, speciate.
type Population struct {
	Config       *Config
	Population   map[int]*Genome
	Species      Speciator
	Reproduction Reproducer
	Generation   int
	BestGenome   *Genome // best genome seen over the whole run

	reporters        *ReporterSet
	rng              *rand.Rand
	rngSource        *rand.PCG
	fitnessCriterion func([]float64) float64
}

// NewPopulation creates a population of pop_size fresh genomes, speciated
// and ready to run, using the default reproduction, speciation and
// stagnation schemes. Swap the Species or Reproduction fields before the
// first Run call to use custom schemes.
func NewPopulation(config *Config) (*Population, error) {
	reporters := NewReporterSet()

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, err
	}
	reproduction := NewReproduction(&config.Reproduction, stagnation, reporters)

	seed := config.Neat.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	source := rand.NewPCG(uint64(seed), uint64(seed))
	rng := rand.New(source)

	p := &Population{
		Config:       config,
		Population:   reproduction.CreateNew(&config.Genome, config.Neat.PopSize, rng),
		Species:      NewSpeciesSet(reporters),
		Reproduction: reproduction,
		reporters:    reporters,
		rng:          rng,
		rngSource:    source,
	}
	if err := p.resolveFitnessCriterion(); err != nil {
		return nil, err
	}

	if err := p.Species.Speciate(config, p.Population, p.Generation); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Population) resolveFitnessCriterion() error {
	switch strings.ToLower(p.Config.Neat.FitnessCriterion) {
	case "max":
		p.fitnessCriterion = MaxFloat
	case "min":
		p.fitnessCriterion = MinFloat
	case "mean":
		p.fitnessCriterion = Mean
	default:
		if !p.Config.Neat.NoFitnessTermination {
			return fmt.Errorf("config error: invalid fitness_criterion %q", p.Config.Neat.FitnessCriterion)
		}
	}
	return nil
}

// AddReporter attaches a reporter to the run.
func (p *Population) AddReporter(r Reporter) {
	p.reporters.Add(r)
}

// RemoveReporter detaches a reporter.
func (p *Population) RemoveReporter(r Reporter) {
	p.reporters.Remove(r)
}

// Run evolves for up to n generations, or indefinitely when n <= 0, and
// returns the best genome seen.
//
// The run stops early when the configured fitness criterion over the
// population reaches fitness_threshold (unless no_fitness_termination is
// set), or with ErrCompleteExtinction when every species dies and
// reset_on_extinction is disabled.
func (p *Population) Run(fitnessFunc FitnessFunc, n int) (*Genome, error) {
	if p.Config.Neat.NoFitnessTermination && n <= 0 {
		return nil, errors.New("cannot have no generational limit with no fitness termination")
	}

	for k := 0; n <= 0 || k < n; k++ {
		winner, err := p.RunGeneration(fitnessFunc)
		if err != nil {
			return p.BestGenome, err
		}
		if winner != nil {
			return winner, nil
		}
	}

	if p.Config.Neat.NoFitnessTermination {
		p.reporters.FoundSolution(p.Config, p.Generation, p.BestGenome)
	}
	return p.BestGenome, nil
}

// RunGeneration executes one full generation. It returns a non-nil winner
// when the fitness threshold was reached this generation.
func (p *Population) RunGeneration(fitnessFunc FitnessFunc) (*Genome, error) {
	p.reporters.StartGeneration(p.Generation)

	if err := fitnessFunc(p.Population, p.Config); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	// Strictly-greater comparison over ascending keys: the lowest-keyed
	// genome wins fitness ties.
	var best *Genome
	fitnesses := make([]float64, 0, len(p.Population))
	for _, key := range sortedKeys(p.Population) {
		g := p.Population[key]
		fitnesses = append(fitnesses, g.Fitness)
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	p.reporters.PostEvaluate(p.Config, p.Population, p.Species, best)

	if p.BestGenome == nil || best.Fitness > p.BestGenome.Fitness {
		p.BestGenome = best
	}

	if !p.Config.Neat.NoFitnessTermination {
		if p.fitnessCriterion(fitnesses) >= p.Config.Neat.FitnessThreshold {
			p.reporters.FoundSolution(p.Config, p.Generation, best)
			return best, nil
		}
	}

	newPopulation, err := p.Reproduction.Reproduce(p.Config, p.Species, p.Config.Neat.PopSize, p.Generation, p.rng)
	if err != nil {
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}
	p.Population = newPopulation
	p.reporters.PostReproduction(p.Config, p.Population, p.Species)

	if len(p.Species.AllSpecies()) == 0 {
		p.reporters.CompleteExtinction()
		if !p.Config.Neat.ResetOnExtinction {
			return nil, ErrCompleteExtinction
		}
		p.Population = p.Reproduction.CreateNew(&p.Config.Genome, p.Config.Neat.PopSize, p.rng)
	}

	if err := p.Species.Speciate(p.Config, p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("speciation failed in generation %d: %w", p.Generation, err)
	}

	// The reproduced, speciated population belongs to the next generation;
	// advance the counter before reporters snapshot it, so a checkpoint taken
	// here resumes exactly where an uninterrupted run would be.
	p.Generation++
	p.reporters.EndGeneration(p.Config, p.Population, p.Species)

	return nil, nil
}
