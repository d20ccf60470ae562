package neat

import (
	"log/slog"
	"time"
)

// Reporter receives notifications as evolution progresses. Implementations
// that only care about some events can embed BaseReporter.
type Reporter interface {
	StartGeneration(generation int)
	EndGeneration(config *Config, population map[int]*Genome, species Speciator)
	PostEvaluate(config *Config, population map[int]*Genome, species Speciator, best *Genome)
	PostReproduction(config *Config, population map[int]*Genome, species Speciator)
	CompleteExtinction()
	FoundSolution(config *Config, generation int, best *Genome)
	SpeciesStagnant(speciesKey int, species *Species)
	Info(msg string)
}

// ReporterSet fans each event out to its attached reporters in the order
// they were added. A nil ReporterSet drops every event.
type ReporterSet struct {
	reporters []Reporter
}

// NewReporterSet creates an empty reporter set.
func NewReporterSet() *ReporterSet {
	return &ReporterSet{}
}

// Add attaches a reporter.
func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

// Remove detaches a previously added reporter.
func (rs *ReporterSet) Remove(r Reporter) {
	for i, existing := range rs.reporters {
		if existing == r {
			rs.reporters = append(rs.reporters[:i], rs.reporters[i+1:]...)
			return
		}
	}
}

func (rs *ReporterSet) StartGeneration(generation int) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.StartGeneration(generation)
	}
}

func (rs *ReporterSet) EndGeneration(config *Config, population map[int]*Genome, species Speciator) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.EndGeneration(config, population, species)
	}
}

func (rs *ReporterSet) PostEvaluate(config *Config, population map[int]*Genome, species Speciator, best *Genome) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.PostEvaluate(config, population, species, best)
	}
}

func (rs *ReporterSet) PostReproduction(config *Config, population map[int]*Genome, species Speciator) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.PostReproduction(config, population, species)
	}
}

func (rs *ReporterSet) CompleteExtinction() {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.CompleteExtinction()
	}
}

func (rs *ReporterSet) FoundSolution(config *Config, generation int, best *Genome) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.FoundSolution(config, generation, best)
	}
}

func (rs *ReporterSet) SpeciesStagnant(speciesKey int, species *Species) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.SpeciesStagnant(speciesKey, species)
	}
}

func (rs *ReporterSet) Info(msg string) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.Info(msg)
	}
}

// BaseReporter is a no-op implementation of Reporter, meant for embedding.
type BaseReporter struct{}

func (BaseReporter) StartGeneration(int)                                       {}
func (BaseReporter) EndGeneration(*Config, map[int]*Genome, Speciator)         {}
func (BaseReporter) PostEvaluate(*Config, map[int]*Genome, Speciator, *Genome) {}
func (BaseReporter) PostReproduction(*Config, map[int]*Genome, Speciator)      {}
func (BaseReporter) CompleteExtinction()                                       {}
func (BaseReporter) FoundSolution(*Config, int, *Genome)                       {}
func (BaseReporter) SpeciesStagnant(int, *Species)                             {}
func (BaseReporter) Info(string)                                               {}

// StdOutReporter logs evolution progress through slog.
type StdOutReporter struct {
	BaseReporter

	// ShowSpeciesDetail adds a per-species line to every generation summary.
	ShowSpeciesDetail bool

	log             *slog.Logger
	generation      int
	generationStart time.Time
	generationTimes []time.Duration
	numExtinctions  int
}

// NewStdOutReporter creates a progress reporter writing to the given logger,
// or slog.Default() when logger is nil.
func NewStdOutReporter(logger *slog.Logger, showSpeciesDetail bool) *StdOutReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdOutReporter{ShowSpeciesDetail: showSpeciesDetail, log: logger}
}

func (r *StdOutReporter) StartGeneration(generation int) {
	r.generation = generation
	r.generationStart = time.Now()
	r.log.Info("running generation", "generation", generation)
}

func (r *StdOutReporter) EndGeneration(config *Config, population map[int]*Genome, species Speciator) {
	all := species.AllSpecies()
	if r.ShowSpeciesDetail {
		for _, sid := range sortedKeys(all) {
			s := all[sid]
			r.log.Info("species",
				"id", sid,
				"age", r.generation-s.Created,
				"size", len(s.Members),
				"fitness", s.Fitness,
				"adjusted_fitness", s.AdjustedFitness,
				"stagnation", r.generation-s.LastImproved)
		}
	}

	elapsed := time.Since(r.generationStart)
	r.generationTimes = append(r.generationTimes, elapsed)
	if len(r.generationTimes) > 10 {
		r.generationTimes = r.generationTimes[len(r.generationTimes)-10:]
	}
	var total time.Duration
	for _, t := range r.generationTimes {
		total += t
	}

	r.log.Info("generation finished",
		"members", len(population),
		"species", len(all),
		"extinctions", r.numExtinctions,
		"elapsed", elapsed,
		"elapsed_avg", total/time.Duration(len(r.generationTimes)))
}

func (r *StdOutReporter) PostEvaluate(config *Config, population map[int]*Genome, species Speciator, best *Genome) {
	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	r.log.Info("population fitness", "mean", Mean(fitnesses), "stdev", Stdev(fitnesses))

	bestSpecies, _ := species.GetSpeciesID(best.Key)
	nodes, connections := best.Size()
	r.log.Info("best genome",
		"fitness", best.Fitness,
		"nodes", nodes,
		"connections", connections,
		"species", bestSpecies,
		"id", best.Key)
}

func (r *StdOutReporter) CompleteExtinction() {
	r.numExtinctions++
	r.log.Warn("all species extinct")
}

func (r *StdOutReporter) FoundSolution(config *Config, generation int, best *Genome) {
	nodes, connections := best.Size()
	r.log.Info("fitness threshold met",
		"generation", generation,
		"nodes", nodes,
		"connections", connections,
		"id", best.Key)
}

func (r *StdOutReporter) SpeciesStagnant(speciesKey int, species *Species) {
	if r.ShowSpeciesDetail {
		r.log.Info("species stagnated", "id", speciesKey, "members", len(species.Members))
	}
}

func (r *StdOutReporter) Info(msg string) {
	r.log.Info(msg)
}
