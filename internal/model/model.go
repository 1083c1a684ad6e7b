package model

// NodeKind is the closed set of node kinds the loader writes.
// Interaction, Conversion and Control are label-only super-kinds and are never
// the primary kind of a node.
type NodeKind int

const (
	KindUnknown NodeKind = iota

	// Physical entities
	KindPhysicalEntity
	KindDna
	KindRna
	KindProtein
	KindComplex
	KindSmallMolecule

	// Interactions
	KindBiochemicalReaction
	KindComplexAssembly
	KindTransport
	KindCatalysis
	KindRegulation

	KindPathway
	KindCellularLocation
	KindXref

	// Super-kinds (labels only)
	KindInteraction
	KindConversion
	KindControl
)

var kindNames = map[NodeKind]string{
	KindUnknown:             "Unknown",
	KindPhysicalEntity:      "PhysicalEntity",
	KindDna:                 "Dna",
	KindRna:                 "Rna",
	KindProtein:             "Protein",
	KindComplex:             "Complex",
	KindSmallMolecule:       "SmallMolecule",
	KindBiochemicalReaction: "BiochemicalReaction",
	KindComplexAssembly:     "ComplexAssembly",
	KindTransport:           "Transport",
	KindCatalysis:           "Catalysis",
	KindRegulation:          "Regulation",
	KindPathway:             "Pathway",
	KindCellularLocation:    "CellularLocation",
	KindXref:                "Xref",
	KindInteraction:         "Interaction",
	KindConversion:          "Conversion",
	KindControl:             "Control",
}

// String returns the graph label for the kind.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseNodeKind maps a label back to its kind.
func ParseNodeKind(label string) (NodeKind, bool) {
	for k, name := range kindNames {
		if name == label && k != KindUnknown {
			return k, true
		}
	}
	return KindUnknown, false
}

// PrimaryKinds lists every kind that can be the primary kind of a node.
func PrimaryKinds() []NodeKind {
	return []NodeKind{
		KindPhysicalEntity, KindDna, KindRna, KindProtein, KindComplex, KindSmallMolecule,
		KindBiochemicalReaction, KindComplexAssembly, KindTransport, KindCatalysis, KindRegulation,
		KindPathway, KindCellularLocation, KindXref,
	}
}

// IsPhysicalEntity reports whether k is a physical entity subtype.
func (k NodeKind) IsPhysicalEntity() bool {
	return k >= KindPhysicalEntity && k <= KindSmallMolecule
}

// IsConversion reports whether k has left/right participants.
func (k NodeKind) IsConversion() bool {
	return k == KindBiochemicalReaction || k == KindComplexAssembly || k == KindTransport
}

// IsControl reports whether k has controllers and controlled processes.
func (k NodeKind) IsControl() bool {
	return k == KindCatalysis || k == KindRegulation
}

// IsInteraction reports whether k is an interaction subtype.
func (k NodeKind) IsInteraction() bool {
	return k.IsConversion() || k.IsControl()
}

// SuperKinds returns the extra labels carried by nodes of kind k.
func (k NodeKind) SuperKinds() []NodeKind {
	switch {
	case k.IsPhysicalEntity() && k != KindPhysicalEntity:
		return []NodeKind{KindPhysicalEntity}
	case k.IsConversion():
		return []NodeKind{KindInteraction, KindConversion}
	case k.IsControl():
		return []NodeKind{KindInteraction, KindControl}
	default:
		return nil
	}
}

// Labels returns the primary kind followed by its super-kinds.
func (k NodeKind) Labels() []NodeKind {
	return append([]NodeKind{k}, k.SuperKinds()...)
}

// RelationKind is the type of a directed relation.
type RelationKind string

const (
	RelComponentOf      RelationKind = "COMPONENT_OF"
	RelReactant         RelationKind = "REACTANT"
	RelProduct          RelationKind = "PRODUCT"
	RelController       RelationKind = "CONTROLLER"
	RelControls         RelationKind = "CONTROLS"
	RelCofactor         RelationKind = "COFACTOR"
	RelPathwayComponent RelationKind = "PATHWAY_COMPONENT"
	RelNextStep         RelationKind = "NEXT_STEP"
	RelLocatedIn        RelationKind = "LOCATED_IN"
	RelHasXref          RelationKind = "HAS_XREF"
)

// Node is a graph node ready to be written.
type Node struct {
	SurrogateKey uint64
	NaturalID    string
	DisplayName  string
	Kind         NodeKind
	Source       string
	Attributes   map[string]any
	Labels       []NodeKind
}

// NewNode creates a node of the given kind with its label set filled in.
func NewNode(key uint64, kind NodeKind) Node {
	return Node{
		SurrogateKey: key,
		Kind:         kind,
		Attributes:   make(map[string]any),
		Labels:       kind.Labels(),
	}
}

// HasLabel reports whether the node carries the given label.
func (n Node) HasLabel(kind NodeKind) bool {
	for _, l := range n.Labels {
		if l == kind {
			return true
		}
	}
	return false
}

// Relation is a directed, typed edge between two surrogate keys.
type Relation struct {
	SurrogateKey uint64
	OriginKey    uint64
	OriginKind   NodeKind
	DestKey      uint64
	DestKind     NodeKind
	Kind         RelationKind
	Attributes   map[string]any
}

// Triple groups relations for store-side index usage.
type Triple struct {
	OriginKind NodeKind
	DestKind   NodeKind
	Kind       RelationKind
}

// Triple returns the grouping key of the relation.
func (r Relation) Triple() Triple {
	return Triple{OriginKind: r.OriginKind, DestKind: r.DestKind, Kind: r.Kind}
}
