package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/batch"
	"github.com/rohankatakam/pathgraph/internal/biopax"
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
	"github.com/rohankatakam/pathgraph/internal/identity"
	"github.com/rohankatakam/pathgraph/internal/model"
)

const reactomeDoc = `
dataSource: Reactome
elements:
  - kind: Protein
    id: "http://www.reactome.org/biopax/48887#P1"
    displayName: TP53
    names: [p53]
    xrefs: [X1]
    cellularLocation: CL1
  - kind: UnificationXref
    id: X1
    db: UniProt
    xrefId: P04637
  - kind: CellularLocationVocabulary
    id: CL1
    terms: [cytosol]
  - kind: Protein
    id: P2
    displayName: MDM2
  - kind: Complex
    id: C1
    displayName: MDM2:p53
    components: [P1, P2]
    componentStoichiometry:
      - entity: P1
        coefficient: 4
  - kind: SmallMolecule
    id: SM1
    displayName: ATP
  - kind: SmallMolecule
    id: SM2
  - kind: BiochemicalReaction
    id: R1
    left: [P1, SM1]
    right: [SM2]
    conversionDirection: REVERSIBLE
  - kind: Catalysis
    id: K1
    controlType: ACTIVATION
    controllers: [C1]
    controlled: [R1]
    cofactors: [SM1]
  - kind: Pathway
    id: PW1
    displayName: p53 signaling
    pathwayComponents: [R1, K1]
    pathwayOrder: [S1]
  - kind: PathwayStep
    id: S1
    stepProcesses: [R1]
    nextSteps: [S2]
  - kind: PathwayStep
    id: S2
    stepProcesses: [K1]
`

// memStore is an in-memory graph.Store that checks relation endpoints
// exist when relations are merged
type memStore struct {
	t         *testing.T
	nodes     map[uint64]model.Node
	relations []model.Relation
	events    []string
	last      uint64
	failNodes error
}

func newMemStore(t *testing.T) *memStore {
	return &memStore{t: t, nodes: make(map[uint64]model.Node)}
}

func (s *memStore) CreateNodes(_ context.Context, nodes []model.Node) error {
	if s.failNodes != nil {
		return s.failNodes
	}
	s.events = append(s.events, "nodes")
	for _, n := range nodes {
		_, dup := s.nodes[n.SurrogateKey]
		assert.False(s.t, dup, "node %d written twice", n.SurrogateKey)
		s.nodes[n.SurrogateKey] = n
	}
	return nil
}

func (s *memStore) MergeRelations(_ context.Context, relations []model.Relation) error {
	s.events = append(s.events, "relations")
	for _, r := range relations {
		origin, ok := s.nodes[r.OriginKey]
		if assert.True(s.t, ok, "%s origin %d not written", r.Kind, r.OriginKey) {
			assert.Equal(s.t, origin.Kind, r.OriginKind)
		}
		dest, ok := s.nodes[r.DestKey]
		if assert.True(s.t, ok, "%s destination %d not written", r.Kind, r.DestKey) {
			assert.Equal(s.t, dest.Kind, r.DestKind)
		}
	}
	s.relations = append(s.relations, relations...)
	return nil
}

func (s *memStore) LastSurrogateKey(context.Context) (uint64, error) { return s.last, nil }

func (s *memStore) SaveLastSurrogateKey(_ context.Context, key uint64) error {
	if key > s.last {
		s.last = key
	}
	return nil
}

func (s *memStore) EnsureIndexes(context.Context) error { return nil }
func (s *memStore) Close(context.Context) error         { return nil }

func (s *memStore) nodesOfKind(kind model.NodeKind) []model.Node {
	var out []model.Node
	for _, n := range s.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) relationsOfKind(kind model.RelationKind) []model.Relation {
	var out []model.Relation
	for _, r := range s.relations {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) nodeByName(name string) (model.Node, bool) {
	for _, n := range s.nodes {
		if n.DisplayName == name {
			return n, true
		}
	}
	return model.Node{}, false
}

func decodeModel(t *testing.T, doc, path string) *biopax.Model {
	m, err := biopax.Decode(strings.NewReader(doc), path)
	require.NoError(t, err)
	return m
}

func newIdentityStore(t *testing.T) identity.Store {
	s, err := identity.OpenBolt(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func runLoad(t *testing.T, idStore identity.Store, store *memStore, cfg batch.Config, filter []string, models ...*biopax.Model) *Result {
	loader := NewLoader(idStore, store, LoaderOptions{
		Batch:      cfg,
		Resolver:   accession.NewXrefResolver(),
		XrefFilter: filter,
	})
	res, err := loader.Run(context.Background(), models)
	require.NoError(t, err)
	return res
}

func TestBuild_Reactome(t *testing.T) {
	store := newMemStore(t)
	m := decodeModel(t, reactomeDoc, "reactome.yaml")

	res := runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, m)
	report := res.Report

	assert.Equal(t, 10, report.NodesCreated)
	assert.Equal(t, 0, report.NodesReused)
	assert.Equal(t, 2, report.ElementsSkipped, "pathway steps are not nodes")
	assert.Equal(t, 16, report.RelationsCreated)
	assert.Equal(t, 0, report.RelationsDropped)
	assert.Len(t, store.nodes, 10)
	assert.Len(t, store.relations, 16)
	require.Len(t, report.Phases, 2)
	assert.Equal(t, 12, report.Phases[0].Elements)
	assert.NotEmpty(t, report.JobID)

	proteins := store.nodesOfKind(model.KindProtein)
	require.Len(t, proteins, 2)

	tp53, ok := store.nodeByName("TP53")
	require.True(t, ok)
	assert.Equal(t, "P04637", tp53.NaturalID)
	assert.Equal(t, "Reactome", tp53.Source)
	assert.Equal(t, "P04637", tp53.Attributes["accession"])
	assert.Equal(t, "P1", tp53.Attributes["source_id"])
	assert.True(t, tp53.HasLabel(model.KindPhysicalEntity))

	mdm2, ok := store.nodeByName("MDM2")
	require.True(t, ok)
	assert.Equal(t, "MDM2", mdm2.NaturalID)
	assert.Equal(t, KeyedByDisplayName, mdm2.Attributes["keyed_by"])

	cytosol, ok := store.nodeByName("cytosol")
	require.True(t, ok)
	assert.Equal(t, model.KindCellularLocation, cytosol.Kind)

	xrefs := store.nodesOfKind(model.KindXref)
	require.Len(t, xrefs, 1)
	assert.Equal(t, "UniProt:P04637", xrefs[0].NaturalID)

	components := store.relationsOfKind(model.RelComponentOf)
	require.Len(t, components, 2)
	assert.Equal(t, tp53.SurrogateKey, components[0].OriginKey)
	assert.Equal(t, float64(4), components[0].Attributes["stoichiometry"])
	assert.NotContains(t, components[1].Attributes, "stoichiometry")

	controls := store.relationsOfKind(model.RelControls)
	require.Len(t, controls, 1)
	assert.Equal(t, "ACTIVATION", controls[0].Attributes["control_type"])
	assert.Len(t, store.relationsOfKind(model.RelController), 1)
	assert.Len(t, store.relationsOfKind(model.RelCofactor), 1)
	assert.Len(t, store.relationsOfKind(model.RelPathwayComponent), 2)
	assert.Len(t, store.relationsOfKind(model.RelLocatedIn), 1)
	assert.Len(t, store.relationsOfKind(model.RelHasXref), 1)

	next := store.relationsOfKind(model.RelNextStep)
	require.Len(t, next, 1)
	assert.Equal(t, model.KindBiochemicalReaction, next[0].OriginKind)
	assert.Equal(t, model.KindCatalysis, next[0].DestKind)
	assert.Equal(t, "PW1", next[0].Attributes["pathway"])

	assert.Equal(t, report.LastSurrogateKey, store.last, "high-water mark recorded in the graph store")
}

func TestBuild_IdempotentAcrossJobs(t *testing.T) {
	idStore := newIdentityStore(t)
	store := newMemStore(t)

	first := runLoad(t, idStore, store, batch.DefaultConfig(), nil, decodeModel(t, reactomeDoc, "reactome.yaml"))
	second := runLoad(t, idStore, store, batch.DefaultConfig(), nil, decodeModel(t, reactomeDoc, "reactome.yaml"))

	assert.Equal(t, 0, second.Report.NodesCreated)
	assert.Equal(t, first.Report.NodesCreated, second.Report.NodesReused)
	assert.Equal(t, first.Report.RelationsCreated, second.Report.RelationsCreated)
	assert.Len(t, store.nodes, 10)
	assert.Greater(t, second.Report.LastSurrogateKey, first.Report.LastSurrogateKey,
		"relation keys of the second job come after everything of the first")
}

func TestBuild_PhaseOrdering(t *testing.T) {
	store := newMemStore(t)
	runLoad(t, newIdentityStore(t), store, batch.Uniform(1), nil, decodeModel(t, reactomeDoc, "reactome.yaml"))

	firstRelation := -1
	for i, e := range store.events {
		if e == "relations" && firstRelation < 0 {
			firstRelation = i
		}
		if firstRelation >= 0 {
			assert.Equal(t, "relations", e, "node write after the relation pass began")
		}
	}
	assert.Equal(t, 10, firstRelation, "ten synchronous node writes precede the relation pass")
}

func TestBuild_BatchCompleteness(t *testing.T) {
	doc := reactomeDoc + `
  - kind: Complex
    id: C2
    components: [P1, Missing]
`
	for _, threshold := range []int{1, 3, 1000} {
		store := newMemStore(t)
		res := runLoad(t, newIdentityStore(t), store, batch.Uniform(threshold), nil, decodeModel(t, doc, "reactome.yaml"))

		assert.Equal(t, res.Report.NodesCreated, res.Batch.NodesFlushed, "threshold %d", threshold)
		assert.Equal(t, res.Report.RelationsCreated, res.Batch.RelationsFlushed, "threshold %d", threshold)
		assert.Equal(t, 1, res.Report.RelationsDropped)
		assert.Len(t, store.relations, res.Report.RelationsCreated)
	}
}

func TestBuild_SparseAttributes(t *testing.T) {
	store := newMemStore(t)
	runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, decodeModel(t, reactomeDoc, "reactome.yaml"))

	for _, n := range store.nodesOfKind(model.KindSmallMolecule) {
		if n.DisplayName == "" {
			assert.Empty(t, n.Attributes, "SM2 has no optional data")
		}
	}
}

func TestBuild_ReversibleSymmetry(t *testing.T) {
	store := newMemStore(t)
	runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, decodeModel(t, reactomeDoc, "reactome.yaml"))

	reactions := store.nodesOfKind(model.KindBiochemicalReaction)
	require.Len(t, reactions, 1)
	rxn := reactions[0]
	assert.Equal(t, true, rxn.Attributes["reversible"])
	assert.True(t, rxn.HasLabel(model.KindConversion))

	reactants := make(map[uint64]bool)
	for _, r := range store.relationsOfKind(model.RelReactant) {
		assert.Equal(t, rxn.SurrogateKey, r.DestKey)
		reactants[r.OriginKey] = true
	}
	products := make(map[uint64]bool)
	for _, r := range store.relationsOfKind(model.RelProduct) {
		assert.Equal(t, rxn.SurrogateKey, r.OriginKey)
		products[r.DestKey] = true
	}

	assert.Len(t, reactants, 3)
	assert.Equal(t, reactants, products, "every participant is both consumed and produced")
}

const fileOne = `
dataSource: Reactome
elements:
  - kind: Protein
    id: P1
    displayName: TP53
    xrefs: [X1]
    cellularLocation: CL1
  - kind: UnificationXref
    id: X1
    db: UniProt
    xrefId: P04637
  - kind: CellularLocationVocabulary
    id: CL1
    terms: [nucleoplasm]
`

const fileTwo = `
dataSource: KEGG
elements:
  - kind: Protein
    id: P1b
    displayName: p53
    xrefs: [U9]
  - kind: UnificationXref
    id: U9
    db: uniprotkb
    xrefId: "uniprot:P04637"
`

func TestBuild_CrossFileDedup(t *testing.T) {
	tests := []struct {
		name  string
		order []string
	}{
		{"file1 then file2", []string{"one", "two"}},
		{"file2 then file1", []string{"two", "one"}},
	}

	docs := map[string]string{"one": fileOne, "two": fileTwo}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var models []*biopax.Model
			for _, name := range tt.order {
				models = append(models, decodeModel(t, docs[name], name+".yaml"))
			}

			store := newMemStore(t)
			res := runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, models...)

			proteins := store.nodesOfKind(model.KindProtein)
			require.Len(t, proteins, 1)
			assert.Equal(t, "P04637", proteins[0].NaturalID)
			assert.Equal(t, 1, res.Report.NodesReused)

			// both xrefs exist (UniProt:P04637 and uniprotkb:uniprot:P04637)
			assert.Len(t, store.nodesOfKind(model.KindXref), 2)

			located := store.relationsOfKind(model.RelLocatedIn)
			require.Len(t, located, 1)
			assert.Equal(t, proteins[0].SurrogateKey, located[0].OriginKey)
			assert.NotContains(t, located[0].Attributes, "inherited")
		})
	}
}

func TestBuild_LocationCarriedForward(t *testing.T) {
	idStore := newIdentityStore(t)
	store := newMemStore(t)

	runLoad(t, idStore, store, batch.DefaultConfig(), nil, decodeModel(t, fileOne, "one.yaml"))
	res := runLoad(t, idStore, store, batch.DefaultConfig(), nil, decodeModel(t, fileTwo, "two.yaml"))

	nucleoplasm, ok := store.nodeByName("nucleoplasm")
	require.True(t, ok)

	var inherited []model.Relation
	for _, r := range store.relationsOfKind(model.RelLocatedIn) {
		if r.Attributes["inherited"] == true {
			inherited = append(inherited, r)
		}
	}
	require.Len(t, inherited, 1)
	assert.Equal(t, nucleoplasm.SurrogateKey, inherited[0].DestKey)
	assert.Equal(t, model.KindCellularLocation, inherited[0].DestKind)
	assert.Equal(t, 0, res.Report.RelationsDropped)
}

func TestBuild_XrefFilter(t *testing.T) {
	store := newMemStore(t)
	res := runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), []string{"UNIPROT"},
		decodeModel(t, reactomeDoc, "reactome.yaml"))

	assert.Empty(t, store.nodesOfKind(model.KindXref))
	assert.Empty(t, store.relationsOfKind(model.RelHasXref))
	assert.Equal(t, 0, res.Report.RelationsDropped, "filtered xrefs are not drops")

	tp53, ok := store.nodeByName("TP53")
	require.True(t, ok)
	assert.Equal(t, "P04637", tp53.NaturalID, "filtered xrefs still identify proteins")
}

func TestBuild_DroppedRelations(t *testing.T) {
	doc := `
elements:
  - kind: Complex
    id: C1
    components: [Ghost]
  - kind: Pathway
    id: PW1
    pathwayComponents: [S1]
    pathwayOrder: [Nowhere]
  - kind: PathwayStep
    id: S1
  - kind: Provenance
    id: Prov1
`
	store := newMemStore(t)
	res := runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, decodeModel(t, doc, "broken.yaml"))

	assert.Equal(t, 0, res.Report.RelationsCreated)
	assert.Equal(t, 3, res.Report.RelationsDropped)
	assert.Equal(t, map[string]int{
		DropUnknownReference:   2,
		DropUnresolvedEndpoint: 1,
	}, res.Report.DropReasons)
	assert.Equal(t, 2, res.Report.ElementsSkipped)
}

func TestBuild_BlankIdentifierSkipped(t *testing.T) {
	doc := `
elements:
  - kind: SmallMolecule
    id: "urn:miriam:chebi#"
  - kind: Protein
    id: "http://example.org/biopax#"
  - kind: SmallMolecule
    id: SM1
    displayName: ATP
  - kind: Complex
    id: C1
    components: ["urn:miriam:chebi#", SM1]
`
	store := newMemStore(t)
	res := runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, decodeModel(t, doc, "blank.yaml"))

	assert.Equal(t, 2, res.Report.ElementsSkipped)
	assert.Equal(t, 2, res.Report.NodesCreated)
	assert.Equal(t, 1, res.Report.RelationsCreated)
	assert.Equal(t, map[string]int{DropUnresolvedEndpoint: 1}, res.Report.DropReasons)
}

func TestBuild_UnknownDirection(t *testing.T) {
	doc := `
elements:
  - kind: SmallMolecule
    id: SM1
  - kind: SmallMolecule
    id: SM2
  - kind: BiochemicalReaction
    id: R1
    left: [SM1]
    right: [SM2]
    conversionDirection: sideways
  - kind: BiochemicalReaction
    id: R2
    left: [SM1]
    right: [SM2]
    conversionDirection: IRREVERSIBLE-RIGHT-TO-LEFT
`
	store := newMemStore(t)
	runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, decodeModel(t, doc, "direction.yaml"))

	reactions := store.nodesOfKind(model.KindBiochemicalReaction)
	require.Len(t, reactions, 2)
	byID := make(map[string]model.Node)
	for _, n := range reactions {
		byID[n.NaturalID] = n
	}
	assert.NotContains(t, byID["R1"].Attributes, "direction")
	assert.Equal(t, "RIGHT_TO_LEFT", byID["R2"].Attributes["direction"])
}

func TestLoader_DryRun(t *testing.T) {
	loader := NewLoader(newIdentityStore(t), nil, LoaderOptions{Batch: batch.Uniform(3)})
	res, err := loader.Run(context.Background(), []*biopax.Model{decodeModel(t, reactomeDoc, "reactome.yaml")})
	require.NoError(t, err)

	require.NotNil(t, res.DryRun)
	assert.Equal(t, res.Report.NodesCreated, res.DryRun.Nodes)
	assert.Equal(t, res.Report.RelationsCreated, res.DryRun.Relations)
	assert.Equal(t, 2, res.DryRun.NodesByKind[model.KindSmallMolecule])
}

func TestLoader_DryRunThenLoad(t *testing.T) {
	ctx := context.Background()
	idStore := newIdentityStore(t)

	dry := NewLoader(idStore, nil, LoaderOptions{Batch: batch.DefaultConfig()})
	dryRes, err := dry.Run(ctx, []*biopax.Model{decodeModel(t, reactomeDoc, "reactome.yaml")})
	require.NoError(t, err)
	assert.Equal(t, 10, dryRes.Report.NodesCreated)

	stats, err := idStore.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats, "a dry run writes nothing to the identity cache")
	last, err := idStore.LastKey(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	store := newMemStore(t)
	res := runLoad(t, idStore, store, batch.DefaultConfig(), nil, decodeModel(t, reactomeDoc, "reactome.yaml"))
	assert.Equal(t, 10, res.Report.NodesCreated)
	assert.Equal(t, 0, res.Report.NodesReused)
	assert.Len(t, store.nodes, 10)
	assert.Len(t, store.relations, 16)
}

func TestLoader_FlushFailureIsFatal(t *testing.T) {
	store := newMemStore(t)
	store.failNodes = errors.New("connection refused")

	loader := NewLoader(newIdentityStore(t), store, LoaderOptions{Batch: batch.DefaultConfig()})
	_, err := loader.Run(context.Background(), []*biopax.Model{decodeModel(t, reactomeDoc, "reactome.yaml")})
	require.Error(t, err)
	assert.Equal(t, perrors.ErrorTypeDatabase, perrors.GetType(err))
}

func TestLoader_SeedsAboveGraphStore(t *testing.T) {
	store := newMemStore(t)
	store.last = 5000

	res := runLoad(t, newIdentityStore(t), store, batch.DefaultConfig(), nil, decodeModel(t, fileOne, "one.yaml"))
	for key := range store.nodes {
		assert.Greater(t, key, uint64(5000))
	}
	assert.Greater(t, res.Report.LastSurrogateKey, uint64(5000))
}

func TestForwardTable(t *testing.T) {
	f := NewForwardTable()
	require.NoError(t, f.Put("a.yaml", "P1", 1, model.KindProtein))
	require.NoError(t, f.Put("b.yaml", "P1", 2, model.KindProtein))

	key, kind, ok := f.Lookup("a.yaml", "P1")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), key)
	assert.Equal(t, model.KindProtein, kind)

	key, _, _ = f.Lookup("b.yaml", "P1")
	assert.Equal(t, uint64(2), key, "sources are kept apart")

	assert.Error(t, f.Register(1, model.KindComplex), "a key has one kind")

	f.Freeze()
	assert.Error(t, f.Put("a.yaml", "P3", 3, model.KindDna))
	_, _, ok = f.Lookup("a.yaml", "P3")
	assert.False(t, ok)
	assert.Equal(t, 2, f.Len())
}
