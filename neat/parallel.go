package neat

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
)

// GenomeEvaluator computes the fitness of a single genome. The supplied rng
// is seeded from the evaluator seed and the genome key, so results do not
// depend on worker scheduling.
type GenomeEvaluator func(genome *Genome, config *Config, rng *rand.Rand) (float64, error)

// ParallelEvaluator scores genomes across a pool of goroutines. Its Evaluate
// method satisfies FitnessFunc.
type ParallelEvaluator struct {
	NumWorkers int
	Seed       uint64

	evalFunc GenomeEvaluator
}

// NewParallelEvaluator creates an evaluator with the given number of workers.
// numWorkers <= 0 uses one worker per CPU.
func NewParallelEvaluator(numWorkers int, seed uint64, evalFunc GenomeEvaluator) *ParallelEvaluator {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &ParallelEvaluator{
		NumWorkers: numWorkers,
		Seed:       seed,
		evalFunc:   evalFunc,
	}
}

// Evaluate assigns a fitness to every genome in the population. If several
// evaluations fail, the error for the lowest genome key is returned.
func (pe *ParallelEvaluator) Evaluate(genomes map[int]*Genome, config *Config) error {
	keys := sortedKeys(genomes)

	jobs := make(chan int, len(keys))
	for _, key := range keys {
		jobs <- key
	}
	close(jobs)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs map[int]error
	)
	numWorkers := min(pe.NumWorkers, len(keys))
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				genome := genomes[key]
				rng := rand.New(rand.NewPCG(pe.Seed, uint64(key)))
				fitness, err := pe.evalFunc(genome, config, rng)
				if err != nil {
					mu.Lock()
					if errs == nil {
						errs = make(map[int]error)
					}
					errs[key] = err
					mu.Unlock()
					continue
				}
				genome.Fitness = fitness
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		key := sortedKeys(errs)[0]
		return fmt.Errorf("evaluation of genome %d failed: %w", key, errs[key])
	}
	return nil
}
