package neat

import "fmt"

// MutationKind names the structural change a MutationSignature describes.
type MutationKind int

const (
	// SplitLinkIn is the weight-1 link A->C created when A->B is split through C.
	SplitLinkIn MutationKind = iota
	// SplitLinkOut is the redirected link C->B left behind when A->B is split.
	SplitLinkOut
	// AddLink is a brand new link between two existing nodes.
	AddLink
)

// String returns a string representation of the MutationKind.
func (k MutationKind) String() string {
	switch k {
	case SplitLinkIn:
		return "split-in"
	case SplitLinkOut:
		return "split-out"
	case AddLink:
		return "add-link"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// MutationSignature identifies a structural mutation. Split signatures are
// keyed on the link being split, add-link signatures on the link being added.
type MutationSignature struct {
	Kind MutationKind
	From int
	To   int
}

// InnovationRegistry hands out historical markings for structural mutations.
// Identical signatures seen within one generation share a number; the counter
// itself never goes backwards, so numbers stay unique for the whole run.
//
// A registry belongs to exactly one evolutionary run and is not safe for
// concurrent use.
type InnovationRegistry struct {
	next       int
	nextNodeID int
	generation map[MutationSignature]int
}

// NewInnovationRegistry creates a registry whose first innovation number and
// first node id are both 1.
func NewInnovationRegistry() *InnovationRegistry {
	return &InnovationRegistry{
		next:       1,
		nextNodeID: 1,
		generation: make(map[MutationSignature]int),
	}
}

// Reserve makes sure numbers 1..n are never handed out, typically because
// seed links of a TopologyDescriptor already use them.
func (r *InnovationRegistry) Reserve(n int) {
	if n+1 > r.next {
		r.next = n + 1
	}
}

// GetGenerationInnovationNumber returns the innovation number for sig,
// allocating a new one the first time sig is seen in the current generation.
func (r *InnovationRegistry) GetGenerationInnovationNumber(sig MutationSignature) int {
	if n, ok := r.generation[sig]; ok {
		return n
	}
	n := r.next
	r.next++
	r.generation[sig] = n
	return n
}

// ResetGenerationBucket forgets the signatures seen this generation. The
// counter keeps its value.
func (r *InnovationRegistry) ResetGenerationBucket() {
	r.generation = make(map[MutationSignature]int)
}

// NextNodeID returns a fresh positive node id.
func (r *InnovationRegistry) NextNodeID() int {
	id := r.nextNodeID
	r.nextNodeID++
	return id
}

// Current returns the number the next new signature would receive.
func (r *InnovationRegistry) Current() int {
	return r.next
}

// GenerationSize returns how many distinct signatures were seen this generation.
func (r *InnovationRegistry) GenerationSize() int {
	return len(r.generation)
}

// RegistryState is the persistent part of a registry. The per-generation
// bucket is not included: checkpoints are taken at generation boundaries.
type RegistryState struct {
	NextInnovation int
	NextNodeID     int
}

// State returns the counters of the registry.
func (r *InnovationRegistry) State() RegistryState {
	return RegistryState{NextInnovation: r.next, NextNodeID: r.nextNodeID}
}

// RestoreInnovationRegistry recreates a registry from saved counters.
func RestoreInnovationRegistry(state RegistryState) *InnovationRegistry {
	r := NewInnovationRegistry()
	if state.NextInnovation > r.next {
		r.next = state.NextInnovation
	}
	if state.NextNodeID > r.nextNodeID {
		r.nextNodeID = state.NextNodeID
	}
	return r
}
