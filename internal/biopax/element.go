package biopax

import "strings"

// Tag is the runtime sub-kind of a source element (the BioPAX class name).
type Tag string

const (
	TagPhysicalEntity Tag = "PhysicalEntity"
	TagDna            Tag = "Dna"
	TagDnaRegion      Tag = "DnaRegion"
	TagRna            Tag = "Rna"
	TagRnaRegion      Tag = "RnaRegion"
	TagProtein        Tag = "Protein"
	TagComplex        Tag = "Complex"
	TagSmallMolecule  Tag = "SmallMolecule"

	TagConversion                       Tag = "Conversion"
	TagBiochemicalReaction              Tag = "BiochemicalReaction"
	TagComplexAssembly                  Tag = "ComplexAssembly"
	TagTransport                        Tag = "Transport"
	TagTransportWithBiochemicalReaction Tag = "TransportWithBiochemicalReaction"
	TagCatalysis                        Tag = "Catalysis"
	TagControl                          Tag = "Control"
	TagModulation                       Tag = "Modulation"
	TagTemplateReactionRegulation       Tag = "TemplateReactionRegulation"

	TagPathway     Tag = "Pathway"
	TagPathwayStep Tag = "PathwayStep"

	TagCellularLocationVocabulary Tag = "CellularLocationVocabulary"
	TagUnificationXref            Tag = "UnificationXref"
	TagRelationshipXref           Tag = "RelationshipXref"
	TagPublicationXref            Tag = "PublicationXref"

	TagProteinReference Tag = "ProteinReference"
)

// Conversion directions
const (
	DirectionLeftToRight = "LEFT_TO_RIGHT"
	DirectionRightToLeft = "RIGHT_TO_LEFT"
	DirectionReversible  = "REVERSIBLE"
)

// Element is one object of the source model. Reference fields hold the ids of
// other elements in the same model.
type Element struct {
	Kind         Tag                 `yaml:"kind"`
	ID           string              `yaml:"id"`
	DisplayName  string              `yaml:"displayName,omitempty"`
	StandardName string              `yaml:"standardName,omitempty"`
	Names        []string            `yaml:"names,omitempty"`
	Comments     []string            `yaml:"comments,omitempty"`
	Availability []string            `yaml:"availability,omitempty"`
	DataSources  []string            `yaml:"dataSources,omitempty"`
	Annotations  map[string][]string `yaml:"annotations,omitempty"`
	Xrefs        []string            `yaml:"xrefs,omitempty"`

	// Physical entities
	CellularLocation       string          `yaml:"cellularLocation,omitempty"`
	EntityReference        string          `yaml:"entityReference,omitempty"`
	Components             []string        `yaml:"components,omitempty"`
	ComponentStoichiometry []Stoichiometry `yaml:"componentStoichiometry,omitempty"`

	// Conversions
	Left        []string `yaml:"left,omitempty"`
	Right       []string `yaml:"right,omitempty"`
	Direction   string   `yaml:"conversionDirection,omitempty"`
	Spontaneous *bool    `yaml:"spontaneous,omitempty"`
	ECNumbers   []string `yaml:"ecNumbers,omitempty"`

	// Controls
	ControlType        string   `yaml:"controlType,omitempty"`
	Controllers        []string `yaml:"controllers,omitempty"`
	Controlled         []string `yaml:"controlled,omitempty"`
	Cofactors          []string `yaml:"cofactors,omitempty"`
	CatalysisDirection string   `yaml:"catalysisDirection,omitempty"`

	// Pathways and steps
	PathwayComponents []string `yaml:"pathwayComponents,omitempty"`
	PathwayOrder      []string `yaml:"pathwayOrder,omitempty"`
	Organism          string   `yaml:"organism,omitempty"`
	StepProcesses     []string `yaml:"stepProcesses,omitempty"`
	NextSteps         []string `yaml:"nextSteps,omitempty"`

	// Vocabularies
	Terms []string `yaml:"terms,omitempty"`

	// Xrefs
	DB               string `yaml:"db,omitempty"`
	XrefID           string `yaml:"xrefId,omitempty"`
	DBVersion        string `yaml:"dbVersion,omitempty"`
	RelationshipType string `yaml:"relationshipType,omitempty"`
}

// Stoichiometry is the coefficient of one complex component.
type Stoichiometry struct {
	Entity      string  `yaml:"entity"`
	Coefficient float64 `yaml:"coefficient"`
}

// LocalID returns the element id stripped of its namespace prefix.
func (e *Element) LocalID() string {
	return StripNamespace(e.ID)
}

// StripNamespace removes an RDF namespace prefix from an id:
// "http://www.reactome.org/biopax/48887#Protein1" -> "Protein1".
func StripNamespace(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, "#"); i >= 0 {
		return id[i+1:]
	}
	if i := strings.LastIndex(id, "/"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}
