package ingest

import (
	"context"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/biopax"
	"github.com/rohankatakam/pathgraph/internal/classify"
	"github.com/rohankatakam/pathgraph/internal/identity"
	"github.com/rohankatakam/pathgraph/internal/model"
)

// How a protein's identity key was chosen
const (
	KeyedByAccession   = "accession"
	KeyedByDisplayName = "display_name"
	KeyedBySourceID    = "source_id"
)

// entityKey picks the identity key of a classified element. Proteins are
// keyed by the first of accession, display name and raw source id that is
// available; every other kind by its natural id.
func entityKey(ctx context.Context, resolver accession.Resolver, el *biopax.Element, m *biopax.Model, c *classify.Classification) (identity.CompositeKey, error) {
	if c.Kind != model.KindProtein {
		return identity.KindKey(c.Kind, c.NaturalID), nil
	}

	c.Attributes["source_id"] = c.NaturalID

	if resolver != nil {
		acc, ok, err := resolver.Resolve(ctx, classify.ProteinQuery(el, m))
		if err != nil {
			return identity.CompositeKey{}, err
		}
		if ok && acc != "" {
			c.Attributes["accession"] = acc
			c.Attributes["keyed_by"] = KeyedByAccession
			c.NaturalID = acc
			return identity.KindKey(model.KindProtein, acc), nil
		}
	}

	if c.DisplayName != "" {
		c.Attributes["keyed_by"] = KeyedByDisplayName
		c.NaturalID = c.DisplayName
		return identity.KindKey(model.KindProtein, c.DisplayName), nil
	}

	c.Attributes["keyed_by"] = KeyedBySourceID
	return identity.KindKey(model.KindProtein, c.NaturalID), nil
}
