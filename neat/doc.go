// Package neat implements the NeuroEvolution of Augmenting Topologies (NEAT)
// algorithm.
//
// NEAT is a genetic algorithm for evolving artificial neural networks. It
// mutates both connection weights and network structure, aligning genomes
// during crossover through innovation markers and protecting new structure
// through speciation while it optimizes.
//
// The implementation follows the original paper by Kenneth O. Stanley and
// Risto Miikkulainen and the neat-python project
// (https://github.com/CodeReclaimers/neat-python).
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("failed to load config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("failed to create population: %v", err)
//	}
//	pop.AddReporter(neat.NewStdOutReporter(nil, true))
//
//	winner, err := pop.Run(evalGenomes, 300)
//	if err != nil {
//		log.Fatalf("evolution failed: %v", err)
//	}
//
// The fitness function receives the whole population and assigns a fitness
// to every genome:
//
//	func evalGenomes(genomes map[int]*neat.Genome, config *neat.Config) error {
//		for _, g := range genomes {
//			net, err := nn.NewFeedForwardNetwork(g, &config.Genome)
//			if err != nil {
//				return err
//			}
//			g.Fitness = score(net)
//		}
//		return nil
//	}
package neat
