package neat

// InnovationKind distinguishes the structural mutation events that receive
// historical markers. The two halves of a connection split are tracked as
// separate kinds so that they can never collide with a plain add-connection
// between the same endpoints.
type InnovationKind uint8

const (
	// InnovAddConnection marks a connection added between existing nodes.
	InnovAddConnection InnovationKind = iota
	// InnovSplitIn marks the connection from the original source into a
	// node created by splitting.
	InnovSplitIn
	// InnovSplitOut marks the connection from a node created by splitting
	// to the original destination.
	InnovSplitOut
	// InnovInitial marks a connection created for the initial population.
	InnovInitial
)

func (k InnovationKind) String() string {
	switch k {
	case InnovAddConnection:
		return "add_connection"
	case InnovSplitIn:
		return "add_node_in"
	case InnovSplitOut:
		return "add_node_out"
	case InnovInitial:
		return "initial_connection"
	}
	return "unknown"
}

// InnovationKey identifies one structural mutation event within a generation.
type InnovationKey struct {
	InNodeID  int
	OutNodeID int
	Kind      InnovationKind
}

// InnovationTracker issues historical markers for structural mutations.
//
// If several genomes independently perform the same structural mutation in
// one generation, they all receive the same marker, which is what makes gene
// alignment during crossover work. The global counter is never reset or
// reused; only the per-generation lookup is cleared at generation boundaries.
//
// The tracker is owned by the Reproduction that created it and is passed
// explicitly wherever markers are issued; there is no package-level instance.
type InnovationTracker struct {
	// Counter holds the most recently issued marker. The first marker is
	// Counter+1, so a fresh tracker starts issuing from 1.
	Counter int
	// Generation maps mutation events seen this generation to their markers.
	Generation map[InnovationKey]int
}

// NewInnovationTracker returns a tracker whose first issued marker will be 1.
func NewInnovationTracker() *InnovationTracker {
	return &InnovationTracker{
		Generation: make(map[InnovationKey]int),
	}
}

// GetInnovation returns the marker for the given structural mutation,
// issuing a new one if this event has not been seen in the current
// generation.
func (t *InnovationTracker) GetInnovation(inNodeID, outNodeID int, kind InnovationKind) int {
	key := InnovationKey{InNodeID: inNodeID, OutNodeID: outNodeID, Kind: kind}
	if t.Generation == nil {
		t.Generation = make(map[InnovationKey]int)
	}
	if marker, ok := t.Generation[key]; ok {
		return marker
	}

	t.Counter++
	t.Generation[key] = t.Counter
	return t.Counter
}

// BeginGeneration clears the per-generation lookup. The global counter is
// untouched, so identical mutations in later generations receive fresh
// markers.
func (t *InnovationTracker) BeginGeneration() {
	t.Generation = make(map[InnovationKey]int)
}

// Copy returns a deep copy of the tracker, used when snapshotting state for
// checkpoints.
func (t *InnovationTracker) Copy() *InnovationTracker {
	dup := &InnovationTracker{
		Counter:    t.Counter,
		Generation: make(map[InnovationKey]int, len(t.Generation)),
	}
	for k, v := range t.Generation {
		dup.Generation[k] = v
	}
	return dup
}
