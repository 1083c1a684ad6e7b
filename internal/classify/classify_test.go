package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/biopax"
	"github.com/rohankatakam/pathgraph/internal/model"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		tag  biopax.Tag
		want model.NodeKind
		ok   bool
	}{
		{biopax.TagPhysicalEntity, model.KindPhysicalEntity, true},
		{biopax.TagDnaRegion, model.KindDna, true},
		{biopax.TagRnaRegion, model.KindRna, true},
		{biopax.TagProtein, model.KindProtein, true},
		{biopax.TagComplex, model.KindComplex, true},
		{biopax.TagSmallMolecule, model.KindSmallMolecule, true},
		{biopax.TagConversion, model.KindBiochemicalReaction, true},
		{biopax.TagComplexAssembly, model.KindComplexAssembly, true},
		{biopax.TagTransportWithBiochemicalReaction, model.KindTransport, true},
		{biopax.TagCatalysis, model.KindCatalysis, true},
		{biopax.TagModulation, model.KindRegulation, true},
		{biopax.TagTemplateReactionRegulation, model.KindRegulation, true},
		{biopax.TagPathway, model.KindPathway, true},
		{biopax.TagCellularLocationVocabulary, model.KindCellularLocation, true},
		{biopax.TagPublicationXref, model.KindXref, true},
		{biopax.TagPathwayStep, model.KindUnknown, false},
		{biopax.TagProteinReference, model.KindUnknown, false},
		{biopax.Tag("Provenance"), model.KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			got, ok := KindOf(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Protein(t *testing.T) {
	el := &biopax.Element{
		Kind:         biopax.TagProtein,
		ID:           "http://www.reactome.org/biopax/48887#Protein1",
		DisplayName:  "TP53",
		Names:        []string{"p53", "Cellular tumor antigen p53"},
		Comments:     []string{"first", "", "second"},
		Availability: nil,
		Annotations: map[string][]string{
			"Tissue Type": {"liver", "kidney"},
			"empty":       {},
		},
	}

	c, ok := Classify(el)
	require.True(t, ok)
	assert.Equal(t, model.KindProtein, c.Kind)
	assert.Equal(t, "Protein1", c.NaturalID)
	assert.Equal(t, "TP53", c.DisplayName)
	assert.Equal(t, map[string]any{
		"name":                   "p53 | Cellular tumor antigen p53",
		"comment":                "first | second",
		"annotation_tissue_type": "liver | kidney",
	}, c.Attributes)
}

func TestClassify_AnnotationNameCollision(t *testing.T) {
	el := &biopax.Element{
		Kind: biopax.TagProtein,
		ID:   "Protein2",
		Annotations: map[string][]string{
			"GO term": {"GO:0006915"},
			"go-term": {"GO:0008283", " "},
			"GO_TERM": {},
		},
	}

	c, ok := Classify(el)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"annotation_go_term": "GO:0006915 | GO:0008283",
	}, c.Attributes, "colliding annotation keys keep every value")
}

func TestClassify_SparseAttributes(t *testing.T) {
	c, ok := Classify(&biopax.Element{Kind: biopax.TagSmallMolecule, ID: "SmallMolecule7"})
	require.True(t, ok)
	assert.Empty(t, c.Attributes, "an element with no optional data produces no attributes")
	assert.Equal(t, "", c.DisplayName)
}

func TestClassify_Unmodeled(t *testing.T) {
	_, ok := Classify(&biopax.Element{Kind: biopax.TagPathwayStep, ID: "PathwayStep1"})
	assert.False(t, ok)

	_, ok = Classify(nil)
	assert.False(t, ok)
}

func TestClassify_DisplayNameFallback(t *testing.T) {
	c, ok := Classify(&biopax.Element{Kind: biopax.TagComplex, ID: "Complex1", StandardName: "p53 tetramer"})
	require.True(t, ok)
	assert.Equal(t, "p53 tetramer", c.DisplayName)
	assert.Equal(t, "p53 tetramer", c.Attributes["standard_name"])

	c, ok = Classify(&biopax.Element{Kind: biopax.TagComplex, ID: "Complex2", Names: []string{" ", "MDM2:p53"}})
	require.True(t, ok)
	assert.Equal(t, "MDM2:p53", c.DisplayName)
}

func TestClassify_Conversion(t *testing.T) {
	spontaneous := false
	tests := []struct {
		name  string
		el    biopax.Element
		attrs map[string]any
	}{
		{
			name:  "unspecified direction is not recorded",
			el:    biopax.Element{Kind: biopax.TagBiochemicalReaction, ID: "R1", ECNumbers: []string{"2.7.11.1"}},
			attrs: map[string]any{"ec_number": "2.7.11.1"},
		},
		{
			name:  "explicit direction",
			el:    biopax.Element{Kind: biopax.TagBiochemicalReaction, ID: "R2", Direction: "RIGHT_TO_LEFT"},
			attrs: map[string]any{"direction": biopax.DirectionRightToLeft},
		},
		{
			name: "reversible",
			el:   biopax.Element{Kind: biopax.TagTransport, ID: "R3", Direction: "REVERSIBLE", Spontaneous: &spontaneous},
			attrs: map[string]any{
				"direction":   biopax.DirectionReversible,
				"reversible":  true,
				"spontaneous": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Classify(&tt.el)
			require.True(t, ok)
			assert.Equal(t, tt.attrs, c.Attributes)
		})
	}
}

func TestClassify_ControlAndXref(t *testing.T) {
	c, ok := Classify(&biopax.Element{Kind: biopax.TagCatalysis, ID: "Catalysis1", ControlType: "ACTIVATION"})
	require.True(t, ok)
	assert.Equal(t, model.KindCatalysis, c.Kind)
	assert.Equal(t, "ACTIVATION", c.Attributes["control_type"])

	x := &biopax.Element{Kind: biopax.TagUnificationXref, ID: "UnificationXref9", DB: "UniProt", XrefID: "P04637"}
	c, ok = Classify(x)
	require.True(t, ok)
	assert.Equal(t, model.KindXref, c.Kind)
	assert.Equal(t, map[string]any{"db": "UniProt", "xref_id": "P04637", "xref_type": "UnificationXref"}, c.Attributes)
	assert.Equal(t, "UniProt:P04637", XrefKey(x))
	assert.Equal(t, "Xref2", XrefKey(&biopax.Element{Kind: biopax.TagUnificationXref, ID: "Xref2", DB: "UniProt"}))
}

func TestLocationTerm(t *testing.T) {
	assert.Equal(t, "cytosol", LocationTerm(&biopax.Element{ID: "CLV1", Terms: []string{"", "cytosol", "cytoplasm"}}))
	assert.Equal(t, "nucleus", LocationTerm(&biopax.Element{ID: "CLV2", DisplayName: "nucleus"}))
	assert.Equal(t, "CLV3", LocationTerm(&biopax.Element{ID: "#CLV3"}))
}

func TestOrientations(t *testing.T) {
	el := &biopax.Element{Left: []string{"A", "B"}, Right: []string{"C"}}

	leftToRight := Orientation{
		Reactants: []Participant{{"A", SideLeft}, {"B", SideLeft}},
		Products:  []Participant{{"C", SideRight}},
	}
	rightToLeft := Orientation{
		Reactants: []Participant{{"C", SideRight}},
		Products:  []Participant{{"A", SideLeft}, {"B", SideLeft}},
	}

	tests := []struct {
		direction string
		want      []Orientation
	}{
		{"", []Orientation{leftToRight}},
		{"right-to-left", []Orientation{rightToLeft}},
		{"IRREVERSIBLE-RIGHT-TO-LEFT", []Orientation{rightToLeft}},
		{"PHYSIOL-RIGHT-TO-LEFT", []Orientation{rightToLeft}},
		{"IRREVERSIBLE-LEFT-TO-RIGHT", []Orientation{leftToRight}},
		{"PHYSIOL-LEFT-TO-RIGHT", []Orientation{leftToRight}},
		{"REVERSIBLE", []Orientation{leftToRight, rightToLeft}},
		{"bogus", []Orientation{leftToRight}},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			el.Direction = tt.direction
			assert.Equal(t, tt.want, Orientations(el))
		})
	}
}

func TestConversionDirectionAttribute(t *testing.T) {
	tests := []struct {
		raw        string
		want       any
		reversible bool
		unknown    bool
	}{
		{"IRREVERSIBLE-RIGHT-TO-LEFT", "RIGHT_TO_LEFT", false, false},
		{"physiol-left-to-right", "LEFT_TO_RIGHT", false, false},
		{"REVERSIBLE", "REVERSIBLE", true, false},
		{"", nil, false, false},
		{"bogus", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			el := &biopax.Element{Kind: biopax.TagBiochemicalReaction, ID: "R1", Direction: tt.raw}
			c, ok := Classify(el)
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Attributes["direction"])
			_, hasReversible := c.Attributes["reversible"]
			assert.Equal(t, tt.reversible, hasReversible)
			assert.Equal(t, tt.unknown, UnknownDirection(el))
		})
	}
}

func TestProteinQuery(t *testing.T) {
	m, err := biopax.NewModel("Reactome", "r.yaml", []*biopax.Element{
		{Kind: biopax.TagProtein, ID: "Protein1", DisplayName: "TP53", Xrefs: []string{"Pub1", "Rel1"}, EntityReference: "PR1"},
		{Kind: biopax.TagProteinReference, ID: "PR1", Names: []string{"p53"}, Xrefs: []string{"Uni1"}},
		{Kind: biopax.TagUnificationXref, ID: "Uni1", DB: "UniProt", XrefID: "P04637"},
		{Kind: biopax.TagRelationshipXref, ID: "Rel1", DB: "HGNC", XrefID: "11998"},
		{Kind: biopax.TagPublicationXref, ID: "Pub1", DB: "PubMed", XrefID: "123"},
	})
	require.NoError(t, err)

	el, _ := m.Lookup("Protein1")
	q := ProteinQuery(el, m)
	assert.Equal(t, "Protein1", q.NaturalID)
	assert.Equal(t, "TP53", q.DisplayName)
	assert.Equal(t, []string{"p53"}, q.Names)
	assert.Equal(t, []accession.XrefID{{DB: "HGNC", ID: "11998"}, {DB: "UniProt", ID: "P04637"}}, q.Xrefs)
}
