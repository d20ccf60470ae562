// Package nn turns genomes into runnable neural networks.
package nn

import (
	"fmt"
	"sort"

	"github.com/tetraspore/neatgo/neat"
)

// link is one incoming enabled connection feeding a node.
type link struct {
	Source int
	Weight float64
}

// nodeEval is one node's evaluation step: resolved functions, parameters and
// incoming links.
type nodeEval struct {
	Key         int
	Activation  neat.ActivationType
	Aggregation neat.AggregationType
	Bias        float64
	Response    float64
	Links       []link
}

// FeedForwardNetwork is the phenotype of an acyclic genome. Nodes are
// evaluated in layer order, so every node sees the current values of its
// sources within a single activation.
type FeedForwardNetwork struct {
	InputKeys  []int
	OutputKeys []int

	evals  []nodeEval
	values map[int]float64
}

// NewFeedForwardNetwork builds the phenotype for a genome. Only enabled
// connections are expressed and only nodes required for some output are
// evaluated. A required node with no incoming connections sits in the first
// layer and produces a constant value from its own bias.
func NewFeedForwardNetwork(genome *neat.Genome, config *neat.GenomeConfig) (*FeedForwardNetwork, error) {
	connections := enabledConnections(genome)
	layers := neat.FeedForwardLayers(config.InputKeys, config.OutputKeys, connections)

	incoming := make(map[int][]link)
	for _, key := range connections {
		cg := genome.Connections[key]
		incoming[key.OutNodeID] = append(incoming[key.OutNodeID], link{Source: key.InNodeID, Weight: cg.Weight})
	}

	var evals []nodeEval
	for _, layer := range layers {
		for _, nodeKey := range layer {
			eval, err := newNodeEval(genome, nodeKey, incoming[nodeKey])
			if err != nil {
				return nil, err
			}
			evals = append(evals, eval)
		}
	}

	values := make(map[int]float64, len(config.InputKeys)+len(config.OutputKeys))
	for _, k := range config.InputKeys {
		values[k] = 0.0
	}
	for _, k := range config.OutputKeys {
		values[k] = 0.0
	}

	return &FeedForwardNetwork{
		InputKeys:  config.InputKeys,
		OutputKeys: config.OutputKeys,
		evals:      evals,
		values:     values,
	}, nil
}

// Activate computes the network outputs for one input vector. An output node
// that no evaluated node feeds reports zero.
func (n *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(n.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(n.InputKeys), len(inputs))
	}

	for i, k := range n.InputKeys {
		n.values[k] = inputs[i]
	}

	var buffer []float64
	for _, node := range n.evals {
		buffer = buffer[:0]
		for _, l := range node.Links {
			buffer = append(buffer, n.values[l.Source]*l.Weight)
		}
		aggregated := node.Aggregation(buffer)
		n.values[node.Key] = node.Activation(node.Bias + node.Response*aggregated)
	}

	outputs := make([]float64, len(n.OutputKeys))
	for i, k := range n.OutputKeys {
		outputs[i] = n.values[k]
	}
	return outputs, nil
}

func newNodeEval(genome *neat.Genome, nodeKey int, links []link) (nodeEval, error) {
	ng, ok := genome.Nodes[nodeKey]
	if !ok {
		return nodeEval{}, fmt.Errorf("genome %d is missing node %d required for output", genome.Key, nodeKey)
	}
	activation, err := neat.GetActivation(ng.Activation)
	if err != nil {
		return nodeEval{}, fmt.Errorf("node %d: %w", nodeKey, err)
	}
	aggregation, err := neat.GetAggregation(ng.Aggregation)
	if err != nil {
		return nodeEval{}, fmt.Errorf("node %d: %w", nodeKey, err)
	}
	return nodeEval{
		Key:         nodeKey,
		Activation:  activation,
		Aggregation: aggregation,
		Bias:        ng.Bias,
		Response:    ng.Response,
		Links:       links,
	}, nil
}

func enabledConnections(genome *neat.Genome) []neat.ConnectionKey {
	connections := make([]neat.ConnectionKey, 0, len(genome.Connections))
	for key, cg := range genome.Connections {
		if cg.Enabled {
			connections = append(connections, key)
		}
	}
	sort.Slice(connections, func(i, j int) bool {
		if connections[i].InNodeID != connections[j].InNodeID {
			return connections[i].InNodeID < connections[j].InNodeID
		}
		return connections[i].OutNodeID < connections[j].OutNodeID
	})
	return connections
}
