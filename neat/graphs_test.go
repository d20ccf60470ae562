package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func conns(pairs ...[2]int) []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, ConnectionKey{InNodeID: p[0], OutNodeID: p[1]})
	}
	return keys
}

func TestCreatesCycle(t *testing.T) {
	chain := conns([2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3})

	// Closing the chain back to its head forms a cycle; a shortcut in the
	// forward direction does not.
	assert.True(t, CreatesCycle(chain, ConnectionKey{InNodeID: 3, OutNodeID: 0}))
	assert.True(t, CreatesCycle(chain, ConnectionKey{InNodeID: 2, OutNodeID: 1}))
	assert.False(t, CreatesCycle(chain, ConnectionKey{InNodeID: 0, OutNodeID: 2}))
	assert.False(t, CreatesCycle(chain, ConnectionKey{InNodeID: 0, OutNodeID: 3}))

	// A self-loop is always a cycle, even on an empty set.
	assert.True(t, CreatesCycle(nil, ConnectionKey{InNodeID: 5, OutNodeID: 5}))

	// Diamond: two forward paths from 0 to 3 are fine, an edge back is not.
	diamond := conns([2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3})
	assert.False(t, CreatesCycle(diamond, ConnectionKey{InNodeID: 1, OutNodeID: 2}))
	assert.True(t, CreatesCycle(diamond, ConnectionKey{InNodeID: 3, OutNodeID: 0}))
}

func TestRequiredForOutput(t *testing.T) {
	inputs := []int{-1, -2}
	outputs := []int{0}

	// A hidden chain feeding the output: every node on the path counts,
	// including the input pins the walk reaches.
	connections := conns([2]int{-1, 1}, [2]int{1, 0})
	required := RequiredForOutput(inputs, outputs, connections)
	assert.Equal(t, map[int]bool{-1: true, 0: true, 1: true}, required)

	// A dead-end hidden node (nothing downstream reaches an output) is not
	// required.
	connections = conns([2]int{-1, 1}, [2]int{1, 0}, [2]int{-2, 2})
	required = RequiredForOutput(inputs, outputs, connections)
	assert.False(t, required[2])
	assert.False(t, required[-2])

	// Outputs are required even with no connections at all.
	required = RequiredForOutput(inputs, outputs, nil)
	assert.Equal(t, map[int]bool{0: true}, required)
}

func TestRequiredForOutputIgnoresPureInputSubgraphs(t *testing.T) {
	// A node fed only by inputs but feeding nothing toward an output must
	// not be pulled in, however large the subgraph.
	inputs := []int{-1}
	outputs := []int{0}
	connections := conns([2]int{-1, 1}, [2]int{1, 2}, [2]int{2, 3}, [2]int{-1, 0})

	required := RequiredForOutput(inputs, outputs, connections)
	assert.Equal(t, map[int]bool{-1: true, 0: true}, required)
}

func TestFeedForwardLayers(t *testing.T) {
	inputs := []int{-1, -2}
	outputs := []int{0}

	// Two hidden nodes in series: each must land in its own layer, and the
	// output last.
	connections := conns([2]int{-1, 1}, [2]int{-2, 1}, [2]int{1, 2}, [2]int{2, 0})
	layers := FeedForwardLayers(inputs, outputs, connections)
	assert.Equal(t, [][]int{{1}, {2}, {0}}, layers)

	// Parallel hidden nodes share a layer, sorted by key.
	connections = conns([2]int{-1, 2}, [2]int{-2, 1}, [2]int{1, 0}, [2]int{2, 0})
	layers = FeedForwardLayers(inputs, outputs, connections)
	assert.Equal(t, [][]int{{1, 2}, {0}}, layers)

	// Direct input-to-output wiring yields a single layer.
	connections = conns([2]int{-1, 0}, [2]int{-2, 0})
	layers = FeedForwardLayers(inputs, outputs, connections)
	assert.Equal(t, [][]int{{0}}, layers)
}

func TestFeedForwardLayersSkipsUnrequiredNodes(t *testing.T) {
	inputs := []int{-1, -2}
	outputs := []int{0}

	// Node 9 hangs off an input and reaches nothing; no layer may carry it.
	connections := conns([2]int{-1, 0}, [2]int{-2, 9})
	layers := FeedForwardLayers(inputs, outputs, connections)
	for _, layer := range layers {
		assert.NotContains(t, layer, 9)
	}
	assert.Equal(t, [][]int{{0}}, layers)
}

func TestFeedForwardLayersOrphanNodes(t *testing.T) {
	inputs := []int{-1, -2}
	outputs := []int{0}

	// An output with no incoming connections cannot be reached by the
	// forward sweep; it still needs a slot, as a constant-bias node in the
	// first layer.
	layers := FeedForwardLayers(inputs, outputs, nil)
	assert.Equal(t, [][]int{{0}}, layers)

	// The same applies to a hidden node that lost its last incoming
	// connection but still feeds the output: it anchors the first layer and
	// the output follows.
	connections := conns([2]int{7, 0})
	layers = FeedForwardLayers(inputs, outputs, connections)
	assert.Equal(t, [][]int{{7}, {0}}, layers)
}

func TestFeedForwardLayersDeterministicOrder(t *testing.T) {
	inputs := []int{-1}
	outputs := []int{0, 1}

	// Reversing the connection slice must not change the layering.
	connections := conns([2]int{-1, 3}, [2]int{-1, 2}, [2]int{2, 0}, [2]int{3, 1})
	reversed := make([]ConnectionKey, len(connections))
	for i, ck := range connections {
		reversed[len(connections)-1-i] = ck
	}

	assert.Equal(t,
		FeedForwardLayers(inputs, outputs, connections),
		FeedForwardLayers(inputs, outputs, reversed))
	assert.Equal(t, [][]int{{2, 3}, {0, 1}}, FeedForwardLayers(inputs, outputs, connections))
}
