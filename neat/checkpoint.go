package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"
)

// PopulationSaveData is the serialized form of a run: everything needed to
// resume evolution exactly where it stopped, including the mutated config
// state (node key counter), the innovation tracker and the random stream.
type PopulationSaveData struct {
	Generation   int
	Config       *Config
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	BestGenome   *Genome
	RandState    []byte
}

// SaveCheckpoint writes the population state to a gzip-compressed gob file.
// Only the default speciation and reproduction schemes can be checkpointed.
func (p *Population) SaveCheckpoint(filePath string) error {
	speciesSet, ok := p.Species.(*SpeciesSet)
	if !ok {
		return fmt.Errorf("checkpointing requires the default species set, got %T", p.Species)
	}
	reproduction, ok := p.Reproduction.(*Reproduction)
	if !ok {
		return fmt.Errorf("checkpointing requires the default reproduction scheme, got %T", p.Reproduction)
	}

	randState, err := p.rngSource.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal random state: %w", err)
	}

	saveData := PopulationSaveData{
		Generation:   p.Generation,
		Config:       p.Config,
		Population:   p.Population,
		SpeciesSet:   speciesSet,
		Reproduction: reproduction,
		BestGenome:   p.BestGenome,
		RandState:    randState,
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file %q: %w", filePath, err)
	}

	gz := gzip.NewWriter(file)
	if err := gob.NewEncoder(gz).Encode(saveData); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := gz.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}
	return file.Close()
}

// RestoreCheckpoint resumes a run from a checkpoint file. The restored
// population has an empty reporter set; re-attach reporters before running.
func RestoreCheckpoint(filePath string) (*Population, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file %q: %w", filePath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file %q: %w", filePath, err)
	}
	defer gz.Close()

	var saveData PopulationSaveData
	if err := gob.NewDecoder(gz).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint file %q: %w", filePath, err)
	}

	config := saveData.Config
	reporters := NewReporterSet()

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, err
	}

	reproduction := saveData.Reproduction
	reproduction.Config = &config.Reproduction
	reproduction.stagnation = stagnation
	reproduction.reporters = reporters
	if reproduction.Tracker == nil {
		reproduction.Tracker = NewInnovationTracker()
	}
	if reproduction.Ancestors == nil {
		reproduction.Ancestors = make(map[int][]int)
	}

	// Gob does not preserve pointer identity, so genomes shared between the
	// population map and the species members decode as separate copies.
	// Re-link them by key.
	speciesSet := saveData.SpeciesSet
	speciesSet.reporters = reporters
	for _, s := range speciesSet.Species {
		for gid := range s.Members {
			if g, ok := saveData.Population[gid]; ok {
				s.Members[gid] = g
			}
		}
		if s.Representative != nil {
			if g, ok := saveData.Population[s.Representative.Key]; ok {
				s.Representative = g
			}
		}
	}
	best := saveData.BestGenome
	if best != nil {
		if g, ok := saveData.Population[best.Key]; ok {
			best = g
		}
	}

	source := rand.NewPCG(0, 0)
	if len(saveData.RandState) > 0 {
		if err := source.UnmarshalBinary(saveData.RandState); err != nil {
			return nil, fmt.Errorf("failed to restore random state: %w", err)
		}
	}

	p := &Population{
		Config:       config,
		Population:   saveData.Population,
		Species:      speciesSet,
		Reproduction: reproduction,
		Generation:   saveData.Generation,
		BestGenome:   best,
		reporters:    reporters,
		rng:          rand.New(source),
		rngSource:    source,
	}
	if err := p.resolveFitnessCriterion(); err != nil {
		return nil, err
	}
	return p, nil
}

// Checkpointer is a reporter that saves checkpoints on a generation or
// wall-clock cadence. Filenames are FilenamePrefix followed by the
// generation number.
type Checkpointer struct {
	BaseReporter

	GenerationInterval int           // save every N generations; 0 disables
	TimeInterval       time.Duration // save when this much time has passed; 0 disables
	FilenamePrefix     string

	pop               *Population
	log               *slog.Logger
	currentGeneration int
	lastGeneration    int
	lastTime          time.Time
}

// NewCheckpointer creates a checkpointing reporter for the given population.
func NewCheckpointer(pop *Population, generationInterval int, timeInterval time.Duration, filenamePrefix string) *Checkpointer {
	if filenamePrefix == "" {
		filenamePrefix = "neat-checkpoint-"
	}
	return &Checkpointer{
		GenerationInterval: generationInterval,
		TimeInterval:       timeInterval,
		FilenamePrefix:     filenamePrefix,
		pop:                pop,
		log:                slog.Default(),
		lastGeneration:     -1,
		lastTime:           time.Now(),
	}
}

func (c *Checkpointer) StartGeneration(generation int) {
	c.currentGeneration = generation
}

func (c *Checkpointer) EndGeneration(config *Config, population map[int]*Genome, species Speciator) {
	due := c.TimeInterval > 0 && time.Since(c.lastTime) >= c.TimeInterval
	if !due && c.GenerationInterval > 0 {
		due = c.currentGeneration-c.lastGeneration >= c.GenerationInterval
	}
	if !due {
		return
	}

	path := fmt.Sprintf("%s%d", c.FilenamePrefix, c.currentGeneration)
	if err := c.pop.SaveCheckpoint(path); err != nil {
		c.log.Error("checkpoint save failed", "path", path, "error", err)
		return
	}
	c.log.Info("checkpoint saved", "path", path, "generation", c.currentGeneration)
	c.lastGeneration = c.currentGeneration
	c.lastTime = time.Now()
}
