package accession

import (
	"context"
	"strings"
)

// XrefID is an external database identifier attached to an entity.
type XrefID struct {
	DB string
	ID string
}

// Query carries everything known about a protein that could identify it.
type Query struct {
	NaturalID   string
	DisplayName string
	Names       []string
	Xrefs       []XrefID
}

// Resolver finds the stable external accession of a protein.
// ok is false when the protein cannot be resolved; that is not an error.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (accession string, ok bool, err error)
}

// Chain tries resolvers in order; the first hit wins.
type Chain []Resolver

// Resolve implements Resolver
func (c Chain) Resolve(ctx context.Context, q Query) (string, bool, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		acc, ok, err := r.Resolve(ctx, q)
		if err != nil {
			return "", false, err
		}
		if ok {
			return acc, true, nil
		}
	}
	return "", false, nil
}

// DefaultAccessionDBs are the xref databases whose ids are protein accessions.
var DefaultAccessionDBs = []string{"UniProt", "UniProtKB", "UniProt Knowledgebase", "uniprotkb/swiss-prot"}

// XrefResolver reads the accession straight from a unification xref.
type XrefResolver struct {
	dbs map[string]bool
}

// NewXrefResolver accepts xrefs from the given databases (case-insensitive).
func NewXrefResolver(dbs ...string) *XrefResolver {
	if len(dbs) == 0 {
		dbs = DefaultAccessionDBs
	}
	r := &XrefResolver{dbs: make(map[string]bool, len(dbs))}
	for _, db := range dbs {
		r.dbs[normalizeDB(db)] = true
	}
	return r
}

// Resolve implements Resolver
func (r *XrefResolver) Resolve(_ context.Context, q Query) (string, bool, error) {
	for _, x := range q.Xrefs {
		if !r.dbs[normalizeDB(x.DB)] {
			continue
		}
		if acc := Normalize(x.ID); acc != "" {
			return acc, true, nil
		}
	}
	return "", false, nil
}

// StaticResolver maps aliases (names or secondary ids) to accessions.
type StaticResolver map[string]string

// Resolve implements Resolver
func (s StaticResolver) Resolve(_ context.Context, q Query) (string, bool, error) {
	for _, alias := range q.aliases() {
		if acc, ok := s[alias]; ok && acc != "" {
			return Normalize(acc), true, nil
		}
	}
	return "", false, nil
}

// Normalize trims an accession and strips a "uniprot:" style prefix.
func Normalize(acc string) string {
	acc = strings.TrimSpace(acc)
	if i := strings.LastIndex(acc, ":"); i >= 0 {
		acc = acc[i+1:]
	}
	return strings.ToUpper(acc)
}

// aliases lists lookup candidates in priority order: xref ids, display name, other names.
func (q Query) aliases() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, x := range q.Xrefs {
		add(x.ID)
	}
	add(q.DisplayName)
	for _, n := range q.Names {
		add(n)
	}
	return out
}

func normalizeDB(db string) string {
	return strings.ToLower(strings.TrimSpace(db))
}
