package archive

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/tetraspore/neatgo/neat"
)

// Recorder is a reporter that archives every generation's summary and best
// genome into a Store. Archive failures are logged, not fatal; evolution
// continues without the record.
type Recorder struct {
	neat.BaseReporter

	RunID string

	store      Store
	log        *slog.Logger
	generation int
}

// NewRecorder creates a recorder writing to store under the given run ID.
// A nil logger falls back to slog.Default.
func NewRecorder(store Store, runID string, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{RunID: runID, store: store, log: log}
}

func (r *Recorder) StartGeneration(generation int) {
	r.generation = generation
}

func (r *Recorder) PostEvaluate(config *neat.Config, population map[int]*neat.Genome, species neat.Speciator, best *neat.Genome) {
	keys := make([]int, 0, len(population))
	for key := range population {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	fitnesses := make([]float64, 0, len(keys))
	for _, key := range keys {
		fitnesses = append(fitnesses, population[key].Fitness)
	}

	record := GenerationRecord{
		RunID:         r.RunID,
		Generation:    r.generation,
		NumSpecies:    len(species.AllSpecies()),
		BestFitness:   best.Fitness,
		MeanFitness:   neat.Mean(fitnesses),
		BestGenomeKey: best.Key,
		RecordedAt:    time.Now(),
	}

	ctx := context.Background()
	if err := r.store.RecordGeneration(ctx, record); err != nil {
		r.log.Error("failed to archive generation", "run", r.RunID, "generation", r.generation, "error", err)
		return
	}
	if err := r.store.SaveBestGenome(ctx, r.RunID, r.generation, best); err != nil {
		r.log.Error("failed to archive best genome", "run", r.RunID, "generation", r.generation, "error", err)
	}
}
