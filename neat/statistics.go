package neat

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
)

// StatisticsReporter keeps per-generation fitness statistics and a copy of
// each generation's most fit genome.
type StatisticsReporter struct {
	BaseReporter

	// MostFitGenomes holds a deep copy of the best genome of every
	// generation, in generation order.
	MostFitGenomes []*Genome

	// GenerationStatistics holds, per generation, the fitness of every
	// member of every active species, keyed species key -> genome key.
	GenerationStatistics []map[int]map[int]float64
}

func NewStatisticsReporter() *StatisticsReporter {
	return &StatisticsReporter{}
}

func (sr *StatisticsReporter) PostEvaluate(config *Config, population map[int]*Genome, species Speciator, best *Genome) {
	sr.MostFitGenomes = append(sr.MostFitGenomes, best.Copy())

	speciesStats := make(map[int]map[int]float64)
	for sid, s := range species.AllSpecies() {
		memberFitness := make(map[int]float64, len(s.Members))
		for gid, g := range s.Members {
			memberFitness[gid] = g.Fitness
		}
		speciesStats[sid] = memberFitness
	}
	sr.GenerationStatistics = append(sr.GenerationStatistics, speciesStats)
}

// GetFitnessStat applies f to the member fitnesses of each generation and
// returns one value per generation.
func (sr *StatisticsReporter) GetFitnessStat(f func([]float64) float64) []float64 {
	stats := make([]float64, 0, len(sr.GenerationStatistics))
	for _, generation := range sr.GenerationStatistics {
		var scores []float64
		for _, sid := range sortedKeys(generation) {
			members := generation[sid]
			for _, gid := range sortedKeys(members) {
				scores = append(scores, members[gid])
			}
		}
		stats = append(stats, f(scores))
	}
	return stats
}

func (sr *StatisticsReporter) GetFitnessMean() []float64   { return sr.GetFitnessStat(Mean) }
func (sr *StatisticsReporter) GetFitnessStdev() []float64  { return sr.GetFitnessStat(Stdev) }
func (sr *StatisticsReporter) GetFitnessMedian() []float64 { return sr.GetFitnessStat(Median) }

// BestUniqueGenomes returns the n best distinct generation champions by
// descending fitness. Ties go to the lower genome key.
func (sr *StatisticsReporter) BestUniqueGenomes(n int) []*Genome {
	unique := make(map[int]*Genome)
	for _, g := range sr.MostFitGenomes {
		unique[g.Key] = g
	}
	genomes := make([]*Genome, 0, len(unique))
	for _, key := range sortedKeys(unique) {
		genomes = append(genomes, unique[key])
	}
	sort.SliceStable(genomes, func(i, j int) bool {
		return genomes[i].Fitness > genomes[j].Fitness
	})
	if n >= 0 && n < len(genomes) {
		genomes = genomes[:n]
	}
	return genomes
}

// BestGenomes returns the n best generation champions by descending fitness.
// A genome that was champion in several generations appears once per
// generation.
func (sr *StatisticsReporter) BestGenomes(n int) []*Genome {
	genomes := make([]*Genome, len(sr.MostFitGenomes))
	copy(genomes, sr.MostFitGenomes)
	sort.SliceStable(genomes, func(i, j int) bool {
		return genomes[i].Fitness > genomes[j].Fitness
	})
	if n >= 0 && n < len(genomes) {
		genomes = genomes[:n]
	}
	return genomes
}

// BestGenome returns the best genome seen so far, or nil before the first
// evaluation.
func (sr *StatisticsReporter) BestGenome() *Genome {
	best := sr.BestGenomes(1)
	if len(best) == 0 {
		return nil
	}
	return best[0]
}

// GetSpeciesSizes returns one row per generation with the size of every
// species that ever existed, indexed by species key starting at 1. Species
// absent in a generation have size zero.
func (sr *StatisticsReporter) GetSpeciesSizes() [][]int {
	maxSpecies := 0
	for _, generation := range sr.GenerationStatistics {
		for sid := range generation {
			maxSpecies = max(maxSpecies, sid)
		}
	}
	sizes := make([][]int, 0, len(sr.GenerationStatistics))
	for _, generation := range sr.GenerationStatistics {
		row := make([]int, maxSpecies)
		for sid, members := range generation {
			row[sid-1] = len(members)
		}
		sizes = append(sizes, row)
	}
	return sizes
}

// FitnessHistoryRow is one generation's fitness summary in CSV exports.
type FitnessHistoryRow struct {
	Generation   int     `csv:"generation"`
	BestFitness  float64 `csv:"best_fitness"`
	MeanFitness  float64 `csv:"mean_fitness"`
	StdevFitness float64 `csv:"stdev_fitness"`
}

// SpeciesFitnessRow is one species in one generation in CSV exports.
type SpeciesFitnessRow struct {
	Generation  int     `csv:"generation"`
	SpeciesID   int     `csv:"species_id"`
	Size        int     `csv:"size"`
	MeanFitness float64 `csv:"mean_fitness"`
}

// SaveGenomeFitness writes the best, mean and standard deviation of the
// population fitness for every generation to a CSV file.
func (sr *StatisticsReporter) SaveGenomeFitness(filename string) error {
	means := sr.GetFitnessMean()
	stdevs := sr.GetFitnessStdev()
	rows := make([]FitnessHistoryRow, 0, len(sr.MostFitGenomes))
	for i, g := range sr.MostFitGenomes {
		rows = append(rows, FitnessHistoryRow{
			Generation:   i,
			BestFitness:  g.Fitness,
			MeanFitness:  means[i],
			StdevFitness: stdevs[i],
		})
	}
	return writeCSV(filename, rows)
}

// SaveSpeciesFitness writes per-species size and mean fitness for every
// generation to a CSV file, one row per (generation, species) pair.
func (sr *StatisticsReporter) SaveSpeciesFitness(filename string) error {
	var rows []SpeciesFitnessRow
	for i, generation := range sr.GenerationStatistics {
		for _, sid := range sortedKeys(generation) {
			members := generation[sid]
			fitnesses := make([]float64, 0, len(members))
			for _, gid := range sortedKeys(members) {
				fitnesses = append(fitnesses, members[gid])
			}
			row := SpeciesFitnessRow{Generation: i, SpeciesID: sid, Size: len(members)}
			if len(fitnesses) > 0 {
				row.MeanFitness = Mean(fitnesses)
			}
			rows = append(rows, row)
		}
	}
	return writeCSV(filename, rows)
}

// Save writes fitness_history.csv and species_fitness.csv in the working
// directory.
func (sr *StatisticsReporter) Save() error {
	if err := sr.SaveGenomeFitness("fitness_history.csv"); err != nil {
		return err
	}
	return sr.SaveSpeciesFitness("species_fitness.csv")
}

func writeCSV(filename string, rows interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", filename, err)
	}
	if err := gocsv.Marshal(rows, file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %q: %w", filename, err)
	}
	return file.Close()
}
