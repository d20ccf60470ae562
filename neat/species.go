package neat

import (
	"fmt"
	"math"
)

// Species is a group of genetically similar genomes.
type Species struct {
	Key             int
	Created         int // generation the species first appeared
	LastImproved    int // last generation its fitness improved
	Representative  *Genome
	Members         map[int]*Genome
	Fitness         float64 // species fitness per species_fitness_func
	AdjustedFitness float64
	FitnessHistory  []float64
}

// NewSpecies creates a new species first seen at the given generation.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:            key,
		Created:        generation,
		LastImproved:   generation,
		Members:        make(map[int]*Genome),
		FitnessHistory: []float64{},
	}
}

// Update replaces the species' representative and membership.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

type genomePair [2]int

// GenomeDistanceCache memoizes pairwise genome distances for one speciation
// pass. Both orderings of a pair are stored on first computation.
type GenomeDistanceCache struct {
	distances map[genomePair]float64
	config    *GenomeConfig
	hits      int
	misses    int
}

// NewGenomeDistanceCache creates an empty cache bound to a genome config.
func NewGenomeDistanceCache(config *GenomeConfig) *GenomeDistanceCache {
	return &GenomeDistanceCache{
		distances: make(map[genomePair]float64),
		config:    config,
	}
}

// Distance returns the cached distance between two genomes, computing and
// storing it on first request.
func (dc *GenomeDistanceCache) Distance(genome0, genome1 *Genome) float64 {
	key := genomePair{genome0.Key, genome1.Key}
	if d, ok := dc.distances[key]; ok {
		dc.hits++
		return d
	}
	d := genome0.Distance(genome1, dc.config)
	dc.distances[key] = d
	dc.distances[genomePair{genome1.Key, genome0.Key}] = d
	dc.misses++
	return d
}

func (dc *GenomeDistanceCache) all() []float64 {
	ds := make([]float64, 0, len(dc.distances)/2)
	for key, d := range dc.distances {
		if key[0] <= key[1] {
			ds = append(ds, d)
		}
	}
	return ds
}

// SpeciesSet partitions a population into species by genetic distance.
type SpeciesSet struct {
	Species         map[int]*Species
	GenomeToSpecies map[int]int
	Indexer         int // next species key

	reporters *ReporterSet
}

// NewSpeciesSet creates an empty species set. reporters may be nil.
func NewSpeciesSet(reporters *ReporterSet) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		reporters:       reporters,
	}
}

// Speciate assigns every genome to a species.
//
// The previous generation's representatives are carried forward as anchors.
// Genomes are visited in ascending key order; each joins the species whose
// anchor is closest below compatibility_threshold, breaking distance ties
// toward the lower species key, or founds a new species and becomes its
// anchor. Species left without members die. Each surviving species then
// re-elects its representative according to representative_policy.
func (ss *SpeciesSet) Speciate(config *Config, population map[int]*Genome, generation int) error {
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		ss.GenomeToSpecies = make(map[int]int)
		return nil
	}

	threshold := config.SpeciesSet.CompatibilityThreshold
	distances := NewGenomeDistanceCache(&config.Genome)

	anchors := make(map[int]*Genome, len(ss.Species))
	for sid, s := range ss.Species {
		if s.Representative != nil {
			anchors[sid] = s.Representative
		}
	}

	newMembers := make(map[int][]int)
	for _, gid := range sortedKeys(population) {
		g := population[gid]

		bestSpecies := -1
		bestDist := math.Inf(1)
		for _, sid := range sortedKeys(anchors) {
			d := distances.Distance(anchors[sid], g)
			if d < threshold && d < bestDist {
				bestDist = d
				bestSpecies = sid
			}
		}

		if bestSpecies == -1 {
			bestSpecies = ss.Indexer
			ss.Indexer++
			anchors[bestSpecies] = g
		}
		newMembers[bestSpecies] = append(newMembers[bestSpecies], gid)
	}

	newSpecies := make(map[int]*Species, len(newMembers))
	newGenomeToSpecies := make(map[int]int, len(population))
	for _, sid := range sortedKeys(newMembers) {
		s := ss.Species[sid]
		if s == nil {
			s = NewSpecies(sid, generation)
		}

		members := make(map[int]*Genome, len(newMembers[sid]))
		for _, gid := range newMembers[sid] {
			members[gid] = population[gid]
			newGenomeToSpecies[gid] = sid
		}

		rep := electRepresentative(config.SpeciesSet.RepresentativePolicy, anchors[sid], members, distances)
		s.Update(rep, members)
		newSpecies[sid] = s
	}

	ss.Species = newSpecies
	ss.GenomeToSpecies = newGenomeToSpecies

	if ss.reporters != nil {
		ds := distances.all()
		if len(ds) > 0 {
			ss.reporters.Info(fmt.Sprintf("Mean genetic distance %.3f, standard deviation %.3f", Mean(ds), Stdev(ds)))
		}
	}

	return nil
}

// electRepresentative picks a species' representative from its final
// membership. "closest" keeps the member nearest the anchor the species was
// assembled around; "central" picks the member with the smallest total
// distance to its peers. Ties go to the lower genome key.
func electRepresentative(policy string, anchor *Genome, members map[int]*Genome, distances *GenomeDistanceCache) *Genome {
	var best *Genome
	switch policy {
	case "central":
		bestTotal := math.Inf(1)
		for _, gid := range sortedKeys(members) {
			total := 0.0
			for _, other := range sortedKeys(members) {
				if other != gid {
					total += distances.Distance(members[gid], members[other])
				}
			}
			if total < bestTotal {
				bestTotal = total
				best = members[gid]
			}
		}
	default: // closest
		bestDist := math.Inf(1)
		for _, gid := range sortedKeys(members) {
			d := distances.Distance(anchor, members[gid])
			if d < bestDist {
				bestDist = d
				best = members[gid]
			}
		}
	}
	return best
}

// AllSpecies returns the current species keyed by species id.
func (ss *SpeciesSet) AllSpecies() map[int]*Species {
	return ss.Species
}

// ReplaceSpecies installs a new species map and drops stale genome
// assignments; the next Speciate call rebuilds them.
func (ss *SpeciesSet) ReplaceSpecies(species map[int]*Species) {
	ss.Species = species
	ss.GenomeToSpecies = make(map[int]int)
}

// GetSpeciesID returns the species key holding the given genome.
func (ss *SpeciesSet) GetSpeciesID(genomeKey int) (int, bool) {
	sid, ok := ss.GenomeToSpecies[genomeKey]
	return sid, ok
}

// GetSpecies returns the species holding the given genome.
func (ss *SpeciesSet) GetSpecies(genomeKey int) (*Species, bool) {
	sid, ok := ss.GenomeToSpecies[genomeKey]
	if !ok {
		return nil, false
	}
	s, ok := ss.Species[sid]
	return s, ok
}
