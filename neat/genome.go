package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// maxAddConnectionAttempts bounds candidate sampling in mutateAddConnection
// so a densely connected genome degrades to a no-op.
const maxAddConnectionAttempts = 20

// Genome represents an individual in the population: a set of node genes
// keyed by node id and a set of connection genes keyed by endpoint pair.
// Input pins are not stored as nodes; they exist only as negative keys on
// the source side of connections.
type Genome struct {
	Key         int
	Nodes       map[int]*NodeGene
	Connections map[ConnectionKey]*ConnectionGene
	// Fitness is assigned by the user's evaluation function before each
	// reproduction step.
	Fitness float64
}

// NewGenome creates an empty genome with the given key.
func NewGenome(key int) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
	}
}

// ConfigureNew initializes the genome from scratch: output and hidden nodes
// plus the connections selected by initial_connection. A nil tracker leaves
// all innovation markers unset.
func (g *Genome) ConfigureNew(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand) {
	for _, nodeKey := range config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, config, rng)
	}

	for i := 0; i < config.NumHidden; i++ {
		nodeKey := config.GetNewNodeKey()
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, config, rng)
	}

	switch config.InitialConnectionType {
	case "unconnected":
		// No initial connections.
	case "fs_neat_nohidden":
		g.connectFsNeatNoHidden(config, tracker, rng)
	case "fs_neat_hidden":
		g.connectFsNeatHidden(config, tracker, rng)
	case "full_nodirect":
		g.connectFull(config, tracker, rng, false)
	case "full_direct":
		g.connectFull(config, tracker, rng, true)
	case "partial_nodirect":
		g.connectPartial(config, tracker, rng, false)
	case "partial_direct":
		g.connectPartial(config, tracker, rng, true)
	}
}

// connectFsNeatNoHidden connects one randomly chosen input to all output nodes.
func (g *Genome) connectFsNeatNoHidden(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand) {
	inputID := config.InputKeys[rng.IntN(len(config.InputKeys))]
	for _, outputID := range config.OutputKeys {
		g.newInitialConnection(config, tracker, rng, inputID, outputID)
	}
}

// connectFsNeatHidden connects one randomly chosen input to all hidden and
// output nodes.
func (g *Genome) connectFsNeatHidden(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand) {
	inputID := config.InputKeys[rng.IntN(len(config.InputKeys))]
	for _, nodeKey := range sortedKeys(g.Nodes) {
		g.newInitialConnection(config, tracker, rng, inputID, nodeKey)
	}
}

// computeFullConnections lists the connections of a fully-connected genome:
// each input to every hidden node and each hidden node to every output.
// Inputs connect directly to outputs only when direct is set or there are no
// hidden nodes. Recurrent genomes also get a self-loop on every node.
func (g *Genome) computeFullConnections(config *GenomeConfig, direct bool) []ConnectionKey {
	var hidden, output []int
	for _, k := range sortedKeys(g.Nodes) {
		if config.isOutputKey(k) {
			output = append(output, k)
		} else {
			hidden = append(hidden, k)
		}
	}

	var connections []ConnectionKey
	if len(hidden) > 0 {
		for _, inputID := range config.InputKeys {
			for _, h := range hidden {
				connections = append(connections, ConnectionKey{InNodeID: inputID, OutNodeID: h})
			}
		}
		for _, h := range hidden {
			for _, outputID := range output {
				connections = append(connections, ConnectionKey{InNodeID: h, OutNodeID: outputID})
			}
		}
	}
	if direct || len(hidden) == 0 {
		for _, inputID := range config.InputKeys {
			for _, outputID := range output {
				connections = append(connections, ConnectionKey{InNodeID: inputID, OutNodeID: outputID})
			}
		}
	}

	if !config.FeedForward {
		for _, k := range sortedKeys(g.Nodes) {
			connections = append(connections, ConnectionKey{InNodeID: k, OutNodeID: k})
		}
	}

	return connections
}

func (g *Genome) connectFull(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand, direct bool) {
	for _, key := range g.computeFullConnections(config, direct) {
		g.newInitialConnection(config, tracker, rng, key.InNodeID, key.OutNodeID)
	}
}

func (g *Genome) connectPartial(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand, direct bool) {
	all := g.computeFullConnections(config, direct)
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	numToAdd := int(math.Round(float64(len(all)) * config.ConnectionFraction))
	for _, key := range all[:numToAdd] {
		g.newInitialConnection(config, tracker, rng, key.InNodeID, key.OutNodeID)
	}
}

func (g *Genome) newInitialConnection(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand, in, out int) {
	key := ConnectionKey{InNodeID: in, OutNodeID: out}
	g.Connections[key] = NewConnectionGene(key, markerFor(tracker, in, out, InnovInitial), config, rng)
}

// ConfigureCrossover fills this genome with genes recombined from two
// parents. The fitter parent contributes all disjoint and excess genes; a
// fitness tie is broken by the lower genome key so the result does not
// depend on argument order. Homologous genes mix attributes gene by gene.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome, config *GenomeConfig, rng *rand.Rand) {
	p1, p2 := parent1, parent2
	if p2.Fitness > p1.Fitness || (p2.Fitness == p1.Fitness && p2.Key < p1.Key) {
		p1, p2 = p2, p1
	}

	for _, key := range sortedConnectionKeys(p1.Connections) {
		cg1 := p1.Connections[key]
		cg2, ok := p2.Connections[key]
		if !ok || !cg1.alignsWith(cg2) {
			// Excess or disjoint gene: copied from the fitter parent. Genes
			// with the same endpoints but conflicting markers count as
			// disjoint, so the fitter parent's version wins whole.
			g.Connections[key] = cg1.Copy()
			continue
		}
		child := cg1.Crossover(cg2, rng)
		if child.Innovation == 0 {
			child.Innovation = cg2.Innovation
		}
		// A connection disabled in either parent is forced disabled in the
		// child at this rate, on top of the 50/50 inheritance of the enabled
		// flag itself.
		if (!cg1.Enabled || !cg2.Enabled) && rng.Float64() < config.CrossoverDisableRate {
			child.Enabled = false
		}
		g.Connections[key] = child
	}

	for _, key := range sortedKeys(p1.Nodes) {
		ng1 := p1.Nodes[key]
		ng2, ok := p2.Nodes[key]
		if !ok {
			g.Nodes[key] = ng1.Copy()
			continue
		}
		g.Nodes[key] = ng1.Crossover(ng2, rng)
	}
}

// Mutate applies structural and attribute mutations.
//
// With single_structural_mutation set, at most one structural mutation is
// attempted per call, chosen by partitioning a single random draw across the
// four structural probabilities. Otherwise each structural mutation rolls
// independently. Attribute mutation always runs on every gene afterwards.
func (g *Genome) Mutate(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand) {
	if config.SingleStructuralMutation {
		div := math.Max(1, config.NodeAddProb+config.NodeDeleteProb+config.ConnAddProb+config.ConnDeleteProb)
		r := rng.Float64()
		switch {
		case r < config.NodeAddProb/div:
			g.mutateAddNode(config, tracker, rng)
		case r < (config.NodeAddProb+config.NodeDeleteProb)/div:
			g.mutateDeleteNode(config, rng)
		case r < (config.NodeAddProb+config.NodeDeleteProb+config.ConnAddProb)/div:
			g.mutateAddConnection(config, tracker, rng)
		case r < (config.NodeAddProb+config.NodeDeleteProb+config.ConnAddProb+config.ConnDeleteProb)/div:
			g.mutateDeleteConnection(rng)
		}
	} else {
		if rng.Float64() < config.NodeAddProb {
			g.mutateAddNode(config, tracker, rng)
		}
		if rng.Float64() < config.NodeDeleteProb {
			g.mutateDeleteNode(config, rng)
		}
		if rng.Float64() < config.ConnAddProb {
			g.mutateAddConnection(config, tracker, rng)
		}
		if rng.Float64() < config.ConnDeleteProb {
			g.mutateDeleteConnection(rng)
		}
	}

	for _, key := range sortedConnectionKeys(g.Connections) {
		g.Connections[key].Mutate(config, rng)
	}
	for _, key := range sortedKeys(g.Nodes) {
		g.Nodes[key].Mutate(config, rng)
	}
}

// mutateAddNode splits a randomly chosen connection: the connection is
// disabled and replaced by a new node with an incoming connection of weight
// 1.0 and an outgoing connection carrying the original weight. Both marker
// kinds key on the split connection's endpoints, so parallel splits of the
// same connection in different genomes share markers.
func (g *Genome) mutateAddNode(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand) {
	if len(g.Connections) == 0 {
		if config.checkStructuralMutationSurer() {
			g.mutateAddConnection(config, tracker, rng)
		}
		return
	}

	keys := sortedConnectionKeys(g.Connections)
	connToSplit := g.Connections[keys[rng.IntN(len(keys))]]

	newNodeKey := config.GetNewNodeKey()
	g.Nodes[newNodeKey] = NewNodeGene(newNodeKey, config, rng)

	connToSplit.Enabled = false

	in, out := connToSplit.Key.InNodeID, connToSplit.Key.OutNodeID
	g.addConnection(ConnectionKey{InNodeID: in, OutNodeID: newNodeKey}, 1.0, true,
		markerFor(tracker, in, out, InnovSplitIn))
	g.addConnection(ConnectionKey{InNodeID: newNodeKey, OutNodeID: out}, connToSplit.Weight, true,
		markerFor(tracker, in, out, InnovSplitOut))
}

func (g *Genome) addConnection(key ConnectionKey, weight float64, enabled bool, innovation int) {
	g.Connections[key] = &ConnectionGene{
		Key:        key,
		Weight:     weight,
		Enabled:    enabled,
		Innovation: innovation,
	}
}

// mutateAddConnection attempts to add a connection between two nodes that
// are not yet connected. The destination is drawn from the genome's nodes,
// so an input pin can never be a destination.
func (g *Genome) mutateAddConnection(config *GenomeConfig, tracker *InnovationTracker, rng *rand.Rand) {
	possibleOutputs := sortedKeys(g.Nodes)
	if len(possibleOutputs) == 0 {
		return
	}
	possibleInputs := make([]int, 0, len(possibleOutputs)+len(config.InputKeys))
	possibleInputs = append(possibleInputs, possibleOutputs...)
	possibleInputs = append(possibleInputs, config.InputKeys...)

	for attempt := 0; attempt < maxAddConnectionAttempts; attempt++ {
		outNode := possibleOutputs[rng.IntN(len(possibleOutputs))]
		inNode := possibleInputs[rng.IntN(len(possibleInputs))]

		key := ConnectionKey{InNodeID: inNode, OutNodeID: outNode}
		if _, ok := g.Connections[key]; ok {
			if config.checkStructuralMutationSurer() {
				g.Connections[key].Enabled = true
				return
			}
			continue
		}

		// Don't allow connections between two output nodes.
		if config.isOutputKey(inNode) && config.isOutputKey(outNode) {
			continue
		}

		// The cycle test runs over every connection, enabled or not, so a
		// later re-enable cannot introduce a cycle.
		if config.FeedForward {
			existing := make([]ConnectionKey, 0, len(g.Connections))
			for k := range g.Connections {
				existing = append(existing, k)
			}
			if CreatesCycle(existing, key) {
				continue
			}
		}

		g.Connections[key] = NewConnectionGene(key, markerFor(tracker, inNode, outNode, InnovAddConnection), config, rng)
		return
	}
}

// mutateDeleteNode removes a randomly chosen hidden node together with every
// connection touching it. Output nodes and input pins are never deleted.
// Returns the deleted key, or -1 when no node was eligible.
func (g *Genome) mutateDeleteNode(config *GenomeConfig, rng *rand.Rand) int {
	var available []int
	for _, k := range sortedKeys(g.Nodes) {
		if !config.isOutputKey(k) {
			available = append(available, k)
		}
	}
	if len(available) == 0 {
		return -1
	}

	delKey := available[rng.IntN(len(available))]

	for key := range g.Connections {
		if key.InNodeID == delKey || key.OutNodeID == delKey {
			delete(g.Connections, key)
		}
	}
	delete(g.Nodes, delKey)

	return delKey
}

// mutateDeleteConnection removes a randomly chosen connection.
func (g *Genome) mutateDeleteConnection(rng *rand.Rand) {
	if len(g.Connections) == 0 {
		return
	}
	keys := sortedConnectionKeys(g.Connections)
	delete(g.Connections, keys[rng.IntN(len(keys))])
}

// Distance returns the genetic distance to another genome: the sum of a node
// component and a connection component, each normalized by the larger gene
// count. Homologous genes contribute their attribute distance; disjoint and
// excess genes contribute the disjoint coefficient.
func (g *Genome) Distance(other *Genome, config *GenomeConfig) float64 {
	nodeDistance := 0.0
	if len(g.Nodes) > 0 || len(other.Nodes) > 0 {
		disjointNodes := 0
		for k2 := range other.Nodes {
			if _, ok := g.Nodes[k2]; !ok {
				disjointNodes++
			}
		}
		for _, k1 := range sortedKeys(g.Nodes) {
			n2, ok := other.Nodes[k1]
			if !ok {
				disjointNodes++
				continue
			}
			nodeDistance += g.Nodes[k1].Distance(n2, config)
		}
		maxNodes := max(len(g.Nodes), len(other.Nodes))
		nodeDistance = (nodeDistance + config.CompatibilityDisjointCoefficient*float64(disjointNodes)) / float64(maxNodes)
	}

	connectionDistance := 0.0
	if len(g.Connections) > 0 || len(other.Connections) > 0 {
		disjointConnections := 0
		for k2, c2 := range other.Connections {
			c1, ok := g.Connections[k2]
			if !ok || !c1.alignsWith(c2) {
				disjointConnections++
			}
		}
		for _, k1 := range sortedConnectionKeys(g.Connections) {
			c1 := g.Connections[k1]
			c2, ok := other.Connections[k1]
			if !ok || !c1.alignsWith(c2) {
				disjointConnections++
				continue
			}
			connectionDistance += c1.Distance(c2, config)
		}
		maxConn := max(len(g.Connections), len(other.Connections))
		connectionDistance = (connectionDistance + config.CompatibilityDisjointCoefficient*float64(disjointConnections)) / float64(maxConn)
	}

	return nodeDistance + connectionDistance
}

// Size returns the node count and the enabled connection count.
func (g *Genome) Size() (int, int) {
	enabled := 0
	for _, cg := range g.Connections {
		if cg.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// Copy returns a deep copy sharing no gene pointers with the original.
func (g *Genome) Copy() *Genome {
	clone := NewGenome(g.Key)
	clone.Fitness = g.Fitness
	for k, ng := range g.Nodes {
		clone.Nodes[k] = ng.Copy()
	}
	for k, cg := range g.Connections {
		clone.Connections[k] = cg.Copy()
	}
	return clone
}

func (g *Genome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key: %d\nFitness: %v\nNodes:", g.Key, g.Fitness)
	for _, k := range sortedKeys(g.Nodes) {
		fmt.Fprintf(&b, "\n\t%d %v", k, g.Nodes[k])
	}
	b.WriteString("\nConnections:")
	for _, k := range sortedConnectionKeys(g.Connections) {
		fmt.Fprintf(&b, "\n\t%v", g.Connections[k])
	}
	return b.String()
}

func markerFor(tracker *InnovationTracker, in, out int, kind InnovationKind) int {
	if tracker == nil {
		return 0
	}
	return tracker.GetInnovation(in, out, kind)
}

// sortedKeys returns a map's integer keys in ascending order. Iterating
// genes and genomes in key order keeps random draws reproducible for a
// fixed seed.
func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// sortedConnectionKeys returns connection keys ordered by source then
// destination.
func sortedConnectionKeys(conns map[ConnectionKey]*ConnectionGene) []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(conns))
	for k := range conns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].InNodeID != keys[j].InNodeID {
			return keys[i].InNodeID < keys[j].InNodeID
		}
		return keys[i].OutNodeID < keys[j].OutNodeID
	})
	return keys
}
