package neat

import "sort"

// CreatesCycle reports whether adding the candidate connection to the given
// connection set would create a directed cycle, assuming the set is itself
// acyclic. It searches forward from the candidate's destination; the cycle
// exists exactly when the candidate's source is reachable.
func CreatesCycle(connections []ConnectionKey, candidate ConnectionKey) bool {
	inNode, outNode := candidate.InNodeID, candidate.OutNodeID
	if inNode == outNode {
		return true
	}

	visited := map[int]bool{outNode: true}
	queue := []int{outNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, ck := range connections {
			if ck.InNodeID != current || visited[ck.OutNodeID] {
				continue
			}
			if ck.OutNodeID == inNode {
				return true
			}
			visited[ck.OutNodeID] = true
			queue = append(queue, ck.OutNodeID)
		}
	}
	return false
}

// RequiredForOutput returns the set of node keys whose value participates,
// directly or transitively, in computing some network output. It walks
// backward from the outputs over the given connections; input pins reached
// by the walk are included in the result.
//
// Output keys are always required, even when nothing connects to them.
func RequiredForOutput(inputs, outputs []int, connections []ConnectionKey) map[int]bool {
	required := make(map[int]bool, len(outputs))
	frontier := make(map[int]bool, len(outputs))
	for _, k := range outputs {
		required[k] = true
		frontier[k] = true
	}

	for len(frontier) > 0 {
		next := make(map[int]bool)
		for _, ck := range connections {
			if frontier[ck.OutNodeID] && !required[ck.InNodeID] {
				next[ck.InNodeID] = true
			}
		}
		for k := range next {
			required[k] = true
		}
		frontier = next
	}

	return required
}

// FeedForwardLayers partitions the nodes required for the outputs into an
// ordered sequence of layers such that every node's enabled inputs are
// satisfied by strictly earlier layers (or by input pins). Layers are sorted
// by node key so that evaluation order is deterministic.
//
// A required node with no incoming connections at all (an orphan, e.g. left
// behind by a delete-connection mutation) cannot be reached by the forward
// sweep, so it is placed in the first layer and behaves as a constant bias
// node during evaluation. Orphans are never silently dropped.
func FeedForwardLayers(inputs, outputs []int, connections []ConnectionKey) [][]int {
	required := RequiredForOutput(inputs, outputs, connections)

	inDegree := make(map[int]int)
	for _, ck := range connections {
		inDegree[ck.OutNodeID]++
	}

	placed := make(map[int]bool, len(inputs))
	for _, k := range inputs {
		placed[k] = true
	}

	var layers [][]int

	var orphans []int
	for k := range required {
		if inDegree[k] == 0 && !placed[k] {
			orphans = append(orphans, k)
		}
	}
	if len(orphans) > 0 {
		sort.Ints(orphans)
		layers = append(layers, orphans)
		for _, k := range orphans {
			placed[k] = true
		}
	}

	for {
		// Candidates receive at least one connection from a placed node.
		candidates := make(map[int]bool)
		for _, ck := range connections {
			if placed[ck.InNodeID] && !placed[ck.OutNodeID] {
				candidates[ck.OutNodeID] = true
			}
		}

		// Keep required candidates whose entire input set is placed.
		var layer []int
		for n := range candidates {
			if !required[n] {
				continue
			}
			ready := true
			for _, ck := range connections {
				if ck.OutNodeID == n && !placed[ck.InNodeID] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, n)
			}
		}

		if len(layer) == 0 {
			break
		}
		sort.Ints(layer)
		layers = append(layers, layer)
		for _, k := range layer {
			placed[k] = true
		}
	}

	return layers
}
