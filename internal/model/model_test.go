package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		name string
		kind NodeKind
		want []NodeKind
	}{
		{"Dna is a physical entity", KindDna, []NodeKind{KindDna, KindPhysicalEntity}},
		{"Undefined physical entity has no super-kind", KindPhysicalEntity, []NodeKind{KindPhysicalEntity}},
		{"Reaction is a conversion", KindBiochemicalReaction, []NodeKind{KindBiochemicalReaction, KindInteraction, KindConversion}},
		{"Catalysis is a control", KindCatalysis, []NodeKind{KindCatalysis, KindInteraction, KindControl}},
		{"Pathway stands alone", KindPathway, []NodeKind{KindPathway}},
		{"Xref stands alone", KindXref, []NodeKind{KindXref}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Labels())
		})
	}
}

func TestNewNode_AlwaysCarriesPrimaryKind(t *testing.T) {
	for _, kind := range PrimaryKinds() {
		n := NewNode(1, kind)
		assert.True(t, n.HasLabel(kind), "node of kind %s must carry its own label", kind)
		assert.NotNil(t, n.Attributes)
	}
}

func TestParseNodeKind(t *testing.T) {
	for _, kind := range PrimaryKinds() {
		got, ok := ParseNodeKind(kind.String())
		assert.True(t, ok)
		assert.Equal(t, kind, got)
	}

	_, ok := ParseNodeKind("Unknown")
	assert.False(t, ok)
	_, ok = ParseNodeKind("Gene")
	assert.False(t, ok)
}

func TestRelationTriple(t *testing.T) {
	r := Relation{OriginKind: KindProtein, DestKind: KindComplex, Kind: RelComponentOf}
	assert.Equal(t, Triple{KindProtein, KindComplex, RelComponentOf}, r.Triple())
}
