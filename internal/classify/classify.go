package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rohankatakam/pathgraph/internal/biopax"
	"github.com/rohankatakam/pathgraph/internal/model"
)

// Delimiter joins multi-valued fields into one attribute value.
const Delimiter = " | "

var tagKinds = map[biopax.Tag]model.NodeKind{
	biopax.TagPhysicalEntity: model.KindPhysicalEntity,
	biopax.TagDna:            model.KindDna,
	biopax.TagDnaRegion:      model.KindDna,
	biopax.TagRna:            model.KindRna,
	biopax.TagRnaRegion:      model.KindRna,
	biopax.TagProtein:        model.KindProtein,
	biopax.TagComplex:        model.KindComplex,
	biopax.TagSmallMolecule:  model.KindSmallMolecule,

	biopax.TagConversion:                       model.KindBiochemicalReaction,
	biopax.TagBiochemicalReaction:              model.KindBiochemicalReaction,
	biopax.TagComplexAssembly:                  model.KindComplexAssembly,
	biopax.TagTransport:                        model.KindTransport,
	biopax.TagTransportWithBiochemicalReaction: model.KindTransport,
	biopax.TagCatalysis:                        model.KindCatalysis,
	biopax.TagControl:                          model.KindRegulation,
	biopax.TagModulation:                       model.KindRegulation,
	biopax.TagTemplateReactionRegulation:       model.KindRegulation,

	biopax.TagPathway: model.KindPathway,

	biopax.TagCellularLocationVocabulary: model.KindCellularLocation,

	biopax.TagUnificationXref:  model.KindXref,
	biopax.TagRelationshipXref: model.KindXref,
	biopax.TagPublicationXref:  model.KindXref,
}

// KindOf maps a source tag to its node kind. ok is false for tags that never
// become nodes.
func KindOf(tag biopax.Tag) (model.NodeKind, bool) {
	k, ok := tagKinds[tag]
	return k, ok
}

// Classification is the node-shaped view of one source element.
type Classification struct {
	Kind        model.NodeKind
	NaturalID   string
	DisplayName string
	Attributes  map[string]any
}

// Classify extracts the node kind and flat attribute map of an element.
// ok is false for unmodeled elements, which callers skip silently.
func Classify(el *biopax.Element) (Classification, bool) {
	if el == nil {
		return Classification{}, false
	}
	kind, ok := KindOf(el.Kind)
	if !ok {
		return Classification{}, false
	}

	c := Classification{
		Kind:        kind,
		NaturalID:   el.LocalID(),
		DisplayName: displayName(el),
		Attributes:  make(map[string]any),
	}
	entityAttributes(c.Attributes, el)

	switch {
	case kind.IsPhysicalEntity():
		physicalEntityAttributes(c.Attributes, el)
	case kind.IsConversion():
		conversionAttributes(c.Attributes, el)
	case kind.IsControl():
		controlAttributes(c.Attributes, el)
	case kind == model.KindPathway:
		pathwayAttributes(c.Attributes, el)
	case kind == model.KindCellularLocation:
		setJoined(c.Attributes, "term", el.Terms)
	case kind == model.KindXref:
		xrefAttributes(c.Attributes, el)
	}

	return c, true
}

func displayName(el *biopax.Element) string {
	if s := strings.TrimSpace(el.DisplayName); s != "" {
		return s
	}
	if s := strings.TrimSpace(el.StandardName); s != "" {
		return s
	}
	for _, n := range el.Names {
		if s := strings.TrimSpace(n); s != "" {
			return s
		}
	}
	return ""
}

func entityAttributes(attrs map[string]any, el *biopax.Element) {
	setString(attrs, "standard_name", el.StandardName)
	setJoined(attrs, "name", el.Names)
	setJoined(attrs, "comment", el.Comments)
	setJoined(attrs, "availability", el.Availability)
	setJoined(attrs, "data_source", el.DataSources)

	// keys that normalize to the same attribute name share one attribute;
	// sorting keeps the merged value stable between runs
	keys := make([]string, 0, len(el.Annotations))
	for k := range el.Annotations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	merged := make(map[string][]string, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := "annotation_" + attributeName(k)
		if _, seen := merged[name]; !seen {
			names = append(names, name)
		}
		merged[name] = append(merged[name], el.Annotations[k]...)
	}
	for _, name := range names {
		setJoined(attrs, name, merged[name])
	}
}

func physicalEntityAttributes(attrs map[string]any, el *biopax.Element) {
	setString(attrs, "entity_reference", biopax.StripNamespace(el.EntityReference))
}

func conversionAttributes(attrs map[string]any, el *biopax.Element) {
	setJoined(attrs, "ec_number", el.ECNumbers)
	dir, known := ParseDirection(el.Direction)
	if known {
		attrs["direction"] = dir
	}
	if dir == biopax.DirectionReversible {
		attrs["reversible"] = true
	}
	if el.Spontaneous != nil {
		attrs["spontaneous"] = *el.Spontaneous
	}
}

func controlAttributes(attrs map[string]any, el *biopax.Element) {
	setString(attrs, "control_type", el.ControlType)
	setString(attrs, "catalysis_direction", el.CatalysisDirection)
}

func pathwayAttributes(attrs map[string]any, el *biopax.Element) {
	setString(attrs, "organism", el.Organism)
}

func xrefAttributes(attrs map[string]any, el *biopax.Element) {
	setString(attrs, "db", el.DB)
	setString(attrs, "xref_id", el.XrefID)
	setString(attrs, "db_version", el.DBVersion)
	setString(attrs, "relationship_type", el.RelationshipType)
	setString(attrs, "xref_type", string(el.Kind))
}

// LocationTerm is the natural id of a cellular location vocabulary: its first
// term, else its display name, else its local id.
func LocationTerm(el *biopax.Element) string {
	for _, t := range el.Terms {
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	}
	if s := displayName(el); s != "" {
		return s
	}
	return el.LocalID()
}

// XrefKey is the natural id of a cross-reference, "db:id". Xrefs missing
// either part fall back to their local id.
func XrefKey(el *biopax.Element) string {
	db := strings.TrimSpace(el.DB)
	id := strings.TrimSpace(el.XrefID)
	if db == "" || id == "" {
		return el.LocalID()
	}
	return fmt.Sprintf("%s:%s", db, id)
}

func setString(attrs map[string]any, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

// setJoined stores non-empty values joined with Delimiter; an empty
// collection produces no attribute at all.
func setJoined(attrs map[string]any, key string, values []string) {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return
	}
	attrs[key] = strings.Join(kept, Delimiter)
}

// attributeName lowercases a free-form key and replaces anything that is not
// a letter or digit with an underscore.
func attributeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
