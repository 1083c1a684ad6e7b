package classify

import (
	"strings"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/biopax"
)

// ProteinQuery collects the identifying facts of a protein for accession
// lookup. Xrefs of the protein come before xrefs of its entity reference.
func ProteinQuery(el *biopax.Element, m *biopax.Model) accession.Query {
	q := accession.Query{
		NaturalID:   el.LocalID(),
		DisplayName: displayName(el),
		Names:       el.Names,
	}
	q.Xrefs = append(q.Xrefs, xrefIDs(el.Xrefs, m)...)

	if ref := strings.TrimSpace(el.EntityReference); ref != "" && m != nil {
		if er, ok := m.Lookup(ref); ok {
			q.Xrefs = append(q.Xrefs, xrefIDs(er.Xrefs, m)...)
			if q.DisplayName == "" {
				q.DisplayName = displayName(er)
			}
			q.Names = append(append([]string{}, q.Names...), er.Names...)
		}
	}
	return q
}

// xrefIDs resolves xref references to identifiers. Publication xrefs never
// identify a protein and are left out.
func xrefIDs(refs []string, m *biopax.Model) []accession.XrefID {
	if m == nil {
		return nil
	}
	var out []accession.XrefID
	for _, ref := range refs {
		x, ok := m.Lookup(ref)
		if !ok || x.Kind == biopax.TagPublicationXref {
			continue
		}
		if strings.TrimSpace(x.DB) == "" || strings.TrimSpace(x.XrefID) == "" {
			continue
		}
		out = append(out, accession.XrefID{DB: x.DB, ID: x.XrefID})
	}
	return out
}
