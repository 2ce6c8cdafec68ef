package neat

import (
	"fmt"
)

// NodeType is the role a node plays in the network. It never changes after
// the node is created.
type NodeType int

const (
	InputNode NodeType = iota
	HiddenNode
	OutputNode
)

// String returns the lower-case role name.
func (t NodeType) String() string {
	switch t {
	case InputNode:
		return "input"
	case HiddenNode:
		return "hidden"
	case OutputNode:
		return "output"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// --------------------------- NodeGene ---------------------------

// NodeGene represents a neuron of the genotype.
type NodeGene struct {
	ID         int      // Negative for founding nodes, positive for nodes created by mutation
	Type       NodeType // Input, hidden or output
	Activation string   // Name of the activation function, see ActivationFunctions

	// Adjacency, as positions in the owning genotype's link list.
	incoming []int
	outgoing []int
}

// NewNodeGene creates a NodeGene with no links attached.
func NewNodeGene(id int, nodeType NodeType, activation string) NodeGene {
	return NodeGene{
		ID:         id,
		Type:       nodeType,
		Activation: activation,
	}
}

// String returns a string representation of the NodeGene.
func (ng NodeGene) String() string {
	return fmt.Sprintf("NodeGene(ID: %d, Type: %s, Activation: %s)", ng.ID, ng.Type, ng.Activation)
}

// CopyNoLinks returns a copy of the node that carries no adjacency, so it can
// be owned by another genotype.
func (ng NodeGene) CopyNoLinks() NodeGene {
	return NodeGene{
		ID:         ng.ID,
		Type:       ng.Type,
		Activation: ng.Activation,
	}
}

// --------------------------- LinkGene ---------------------------

// LinkKey identifies a link by its endpoints. Innovation numbers are metadata
// and do not take part in link identity.
type LinkKey struct {
	From int
	To   int
}

// LinkGene represents a directed, weighted connection between two nodes.
type LinkGene struct {
	From       int
	To         int
	Weight     float64
	Innovation int
	Enabled    bool // Always true today; kept for disable/enable mutations
}

// NewLinkGene creates an enabled link.
func NewLinkGene(from, to int, weight float64, innovation int) LinkGene {
	return LinkGene{
		From:       from,
		To:         to,
		Weight:     weight,
		Innovation: innovation,
		Enabled:    true,
	}
}

// Key returns the (source, target) identity of the link.
func (lg LinkGene) Key() LinkKey {
	return LinkKey{From: lg.From, To: lg.To}
}

// String returns a string representation of the LinkGene.
func (lg LinkGene) String() string {
	return fmt.Sprintf("LinkGene(%d->%d, Weight: %.3f, Innovation: %d, Enabled: %t)",
		lg.From, lg.To, lg.Weight, lg.Innovation, lg.Enabled)
}

// --------------------------- Descriptors ---------------------------

// LinkDescriptor names a seed link by the 1-based founding index of its
// endpoints. Founding node i receives the id -i.
type LinkDescriptor struct {
	From int
	To   int
}

// TopologyDescriptor is the blueprint of a founding genotype. Inputs take
// founding indexes 1..InputCount, hidden nodes come next and outputs last.
type TopologyDescriptor struct {
	InputCount  int
	HiddenCount int
	OutputCount int
	Links       []LinkDescriptor
	Activation  string // Activation assigned to every founding node; DefaultActivation if empty
}

// NodeTotal returns the number of founding nodes the descriptor creates.
func (td TopologyDescriptor) NodeTotal() int {
	return td.InputCount + td.HiddenCount + td.OutputCount
}

// FullyConnected returns a descriptor linking every input to every output.
func FullyConnected(inputs, outputs int) TopologyDescriptor {
	desc := TopologyDescriptor{InputCount: inputs, OutputCount: outputs}
	for i := 1; i <= inputs; i++ {
		for o := 1; o <= outputs; o++ {
			desc.Links = append(desc.Links, LinkDescriptor{From: i, To: inputs + o})
		}
	}
	return desc
}
