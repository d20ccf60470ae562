package nn

import (
	"fmt"
	"sort"

	"github.com/tetraspore/neatgo/neat"
)

// RecurrentNetwork is the phenotype of a genome whose expressed graph may
// contain cycles. Each Activate call advances the network one time step:
// every node reads the values its sources held after the previous step, so
// evaluation order does not matter and self-loops are well defined.
type RecurrentNetwork struct {
	InputKeys  []int
	OutputKeys []int

	evals  []nodeEval
	values [2]map[int]float64
	active int
}

// NewRecurrentNetwork builds the phenotype for a genome. Only enabled
// connections are expressed and only nodes required for some output are
// evaluated.
func NewRecurrentNetwork(genome *neat.Genome, config *neat.GenomeConfig) (*RecurrentNetwork, error) {
	connections := enabledConnections(genome)
	required := neat.RequiredForOutput(config.InputKeys, config.OutputKeys, connections)

	incoming := make(map[int][]link)
	for _, key := range connections {
		if !required[key.OutNodeID] {
			continue
		}
		cg := genome.Connections[key]
		incoming[key.OutNodeID] = append(incoming[key.OutNodeID], link{Source: key.InNodeID, Weight: cg.Weight})
	}

	inputSet := make(map[int]bool, len(config.InputKeys))
	for _, k := range config.InputKeys {
		inputSet[k] = true
	}

	requiredKeys := make([]int, 0, len(required))
	for k := range required {
		if !inputSet[k] {
			requiredKeys = append(requiredKeys, k)
		}
	}
	sort.Ints(requiredKeys)

	evals := make([]nodeEval, 0, len(requiredKeys))
	for _, nodeKey := range requiredKeys {
		eval, err := newNodeEval(genome, nodeKey, incoming[nodeKey])
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}

	var values [2]map[int]float64
	for i := range values {
		v := make(map[int]float64)
		for _, k := range config.InputKeys {
			v[k] = 0.0
		}
		for _, k := range config.OutputKeys {
			v[k] = 0.0
		}
		for _, eval := range evals {
			v[eval.Key] = 0.0
			for _, l := range eval.Links {
				v[l.Source] = 0.0
			}
		}
		values[i] = v
	}

	return &RecurrentNetwork{
		InputKeys:  config.InputKeys,
		OutputKeys: config.OutputKeys,
		evals:      evals,
		values:     values,
	}, nil
}

// Reset zeroes all node values, clearing any recurrent state.
func (n *RecurrentNetwork) Reset() {
	for _, v := range n.values {
		for k := range v {
			v[k] = 0.0
		}
	}
	n.active = 0
}

// Activate advances the network one time step and returns the outputs.
func (n *RecurrentNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(n.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(n.InputKeys), len(inputs))
	}

	ivalues := n.values[n.active]
	ovalues := n.values[1-n.active]
	n.active = 1 - n.active

	for i, k := range n.InputKeys {
		ivalues[k] = inputs[i]
		ovalues[k] = inputs[i]
	}

	var buffer []float64
	for _, node := range n.evals {
		buffer = buffer[:0]
		for _, l := range node.Links {
			buffer = append(buffer, ivalues[l.Source]*l.Weight)
		}
		aggregated := node.Aggregation(buffer)
		ovalues[node.Key] = node.Activation(node.Bias + node.Response*aggregated)
	}

	outputs := make([]float64, len(n.OutputKeys))
	for i, k := range n.OutputKeys {
		outputs[i] = ovalues[k]
	}
	return outputs, nil
}
