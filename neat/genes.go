package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// --------------------------- NodeGene ---------------------------

// NodeGene represents one neuron of the encoded network. Input pins are not
// node genes; they exist only as negative keys referenced by connections.
type NodeGene struct {
	Key         int // negative keys are reserved for input pins
	Bias        float64
	Response    float64
	Activation  string // activation function name, resolved at phenotype construction
	Aggregation string // aggregation function name
}

// NewNodeGene creates a node gene with freshly drawn attributes.
func NewNodeGene(key int, config *GenomeConfig, rng *rand.Rand) *NodeGene {
	return &NodeGene{
		Key:         key,
		Bias:        config.biasAttr().Init(rng),
		Response:    config.responseAttr().Init(rng),
		Activation:  config.activationAttr().Init(rng),
		Aggregation: config.aggregationAttr().Init(rng),
	}
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(Key: %d, Bias: %.3f, Response: %.3f, Activation: %s, Aggregation: %s)",
		ng.Key, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	dup := *ng
	return &dup
}

// Mutate applies attribute-level mutation to every attribute in a fixed
// order, so that runs with the same seed perform the same draws.
func (ng *NodeGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	ng.Bias = config.biasAttr().Mutate(ng.Bias, rng)
	ng.Response = config.responseAttr().Mutate(ng.Response, rng)
	ng.Activation = config.activationAttr().Mutate(ng.Activation, rng)
	ng.Aggregation = config.aggregationAttr().Mutate(ng.Aggregation, rng)
}

// Distance measures the attribute difference between two homologous node
// genes, used by genomic distance.
func (ng *NodeGene) Distance(other *NodeGene, config *GenomeConfig) float64 {
	d := math.Abs(ng.Bias-other.Bias) + math.Abs(ng.Response-other.Response)
	if ng.Activation != other.Activation {
		d += 1.0
	}
	if ng.Aggregation != other.Aggregation {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a child gene inheriting each attribute from either
// parent with equal probability. The receiver is the fitter parent's gene.
func (ng *NodeGene) Crossover(other *NodeGene, rng *rand.Rand) *NodeGene {
	child := ng.Copy()
	if rng.Float64() < 0.5 {
		child.Bias = other.Bias
	}
	if rng.Float64() < 0.5 {
		child.Response = other.Response
	}
	if rng.Float64() < 0.5 {
		child.Activation = other.Activation
	}
	if rng.Float64() < 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionKey identifies a connection gene by its endpoints.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

// ConnectionGene represents a weighted, directed link between two nodes.
// Disabled connections carry no signal but persist as latent genetic
// material that future mutation may re-enable.
type ConnectionGene struct {
	Key     ConnectionKey
	Weight  float64
	Enabled bool
	// Innovation is the historical marker issued when this connection first
	// arose. Genes restored from older serialized populations may carry 0,
	// in which case alignment falls back to the endpoint key alone.
	Innovation int
}

// NewConnectionGene creates a connection gene with a freshly drawn weight
// and the configured enabled default, stamped with the given marker.
func NewConnectionGene(key ConnectionKey, innovation int, config *GenomeConfig, rng *rand.Rand) *ConnectionGene {
	return &ConnectionGene{
		Key:        key,
		Weight:     config.weightAttr().Init(rng),
		Enabled:    config.enabledAttr().Init(rng),
		Innovation: innovation,
	}
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(Key: %d->%d, Weight: %.3f, Enabled: %t, Innovation: %d)",
		cg.Key.InNodeID, cg.Key.OutNodeID, cg.Weight, cg.Enabled, cg.Innovation)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	dup := *cg
	return &dup
}

// Mutate applies attribute-level mutation to the weight and enabled flag.
// Re-enabling here cannot create a cycle: add-connection refuses candidates
// that would close a cycle through any existing connection, enabled or not.
func (cg *ConnectionGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	cg.Weight = config.weightAttr().Mutate(cg.Weight, rng)
	cg.Enabled = config.enabledAttr().Mutate(cg.Enabled, rng)
}

// Distance measures the attribute difference between two homologous
// connection genes.
func (cg *ConnectionGene) Distance(other *ConnectionGene, config *GenomeConfig) float64 {
	d := math.Abs(cg.Weight - other.Weight)
	if cg.Enabled != other.Enabled {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a child gene inheriting each attribute from either
// parent with equal probability. The receiver is the fitter parent's gene;
// the child keeps its endpoints and marker.
func (cg *ConnectionGene) Crossover(other *ConnectionGene, rng *rand.Rand) *ConnectionGene {
	child := cg.Copy()
	if rng.Float64() < 0.5 {
		child.Weight = other.Weight
	}
	if rng.Float64() < 0.5 {
		child.Enabled = other.Enabled
	}
	return child
}

// alignsWith reports whether two genes occupying the same endpoints share a
// historical origin. Differing non-zero markers mean the connections arose
// in different generations and are disjoint despite identical endpoints; a
// zero marker on either side falls back to endpoint identity.
func (cg *ConnectionGene) alignsWith(other *ConnectionGene) bool {
	if cg.Innovation == 0 || other.Innovation == 0 {
		return true
	}
	return cg.Innovation == other.Innovation
}
