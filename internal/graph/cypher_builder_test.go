package graph

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pathgraph/internal/model"
)

func TestBuildNodeMerge(t *testing.T) {
	tests := []struct {
		name     string
		kind     model.NodeKind
		contains []string
		absent   []string
		wantErr  bool
	}{
		{
			name:     "protein gets physical entity label",
			kind:     model.KindProtein,
			contains: []string{"MERGE (n:Protein {surrogate_key: row.key})", "SET n += row.props, n:PhysicalEntity"},
		},
		{
			name:     "catalysis gets interaction and control labels",
			kind:     model.KindCatalysis,
			contains: []string{"MERGE (n:Catalysis", "n:Interaction", "n:Control"},
		},
		{
			name:     "pathway has no super labels",
			kind:     model.KindPathway,
			contains: []string{"MERGE (n:Pathway", "SET n += row.props\n"},
			absent:   []string{", n:"},
		},
		{
			name:    "unknown kind rejected",
			kind:    model.KindUnknown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := BuildNodeMerge(tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(q, "UNWIND $rows AS row"))
			for _, s := range tt.contains {
				assert.Contains(t, q, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, q, s)
			}
		})
	}
}

func TestBuildRelationMerge(t *testing.T) {
	q, err := BuildRelationMerge(model.Triple{
		OriginKind: model.KindProtein,
		DestKind:   model.KindComplex,
		Kind:       model.RelComponentOf,
	})
	require.NoError(t, err)
	assert.Contains(t, q, "MATCH (a:Protein {surrogate_key: row.origin})")
	assert.Contains(t, q, "MATCH (b:Complex {surrogate_key: row.dest})")
	assert.Contains(t, q, "MERGE (a)-[r:COMPONENT_OF]->(b)")
	assert.Contains(t, q, "ON CREATE SET r.surrogate_key = row.key")

	q, err = BuildRelationMerge(model.Triple{
		OriginKind: model.KindBiochemicalReaction,
		DestKind:   model.KindCatalysis,
		Kind:       model.RelNextStep,
	})
	require.NoError(t, err)
	assert.Contains(t, q, "MERGE (a)-[r:NEXT_STEP {pathway: row.merge_key}]->(b)")

	_, err = BuildRelationMerge(model.Triple{
		OriginKind: model.KindProtein,
		DestKind:   model.KindComplex,
		Kind:       model.RelationKind("BAD TYPE}"),
	})
	assert.Error(t, err, "relation types are never interpolated unchecked")

	_, err = BuildRelationMerge(model.Triple{OriginKind: model.KindUnknown, DestKind: model.KindComplex, Kind: model.RelComponentOf})
	assert.Error(t, err)
}

func TestBuildIndex(t *testing.T) {
	q, err := BuildIndex(model.KindSmallMolecule)
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX smallmolecule_surrogate_key IF NOT EXISTS FOR (n:SmallMolecule) ON (n.surrogate_key)", q)
}

func TestBuildNodeCount(t *testing.T) {
	q, err := BuildNodeCount(model.KindProtein)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:Protein) RETURN count(n) AS count", q)

	q, err = BuildNodeCount(model.KindPhysicalEntity)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:PhysicalEntity) WHERE NOT n:Dna AND NOT n:Rna AND NOT n:Protein AND NOT n:Complex AND NOT n:SmallMolecule RETURN count(n) AS count", q)

	_, err = BuildNodeCount(model.KindUnknown)
	assert.Error(t, err)
}

func TestGroupNodes_FirstSeenOrder(t *testing.T) {
	nodes := []model.Node{
		model.NewNode(1, model.KindProtein),
		model.NewNode(2, model.KindComplex),
		model.NewNode(3, model.KindProtein),
		model.NewNode(4, model.KindPathway),
	}

	groups := GroupNodes(nodes)
	require.Len(t, groups, 3)
	assert.Equal(t, model.KindProtein, groups[0].Kind)
	assert.Equal(t, uint64(1), groups[0].Nodes[0].SurrogateKey)
	assert.Equal(t, uint64(3), groups[0].Nodes[1].SurrogateKey)
	assert.Equal(t, model.KindComplex, groups[1].Kind)
	assert.Equal(t, model.KindPathway, groups[2].Kind)
}

func TestGroupRelations(t *testing.T) {
	rels := []model.Relation{
		{SurrogateKey: 10, OriginKind: model.KindProtein, DestKind: model.KindComplex, Kind: model.RelComponentOf},
		{SurrogateKey: 11, OriginKind: model.KindSmallMolecule, DestKind: model.KindComplex, Kind: model.RelComponentOf},
		{SurrogateKey: 12, OriginKind: model.KindProtein, DestKind: model.KindComplex, Kind: model.RelComponentOf},
	}

	groups := GroupRelations(rels)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Relations, 2)
	assert.Equal(t, model.KindSmallMolecule, groups[1].Triple.OriginKind)
}

func TestNodeRows(t *testing.T) {
	n := model.NewNode(42, model.KindProtein)
	n.NaturalID = "P04637"
	n.DisplayName = "TP53"
	n.Source = "Reactome"
	n.Attributes["comment"] = "a | b"

	rows, err := NodeRows([]model.Node{n})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0]["key"])
	assert.Equal(t, map[string]any{
		"surrogate_key": int64(42),
		"natural_id":    "P04637",
		"display_name":  "TP53",
		"source":        "Reactome",
		"comment":       "a | b",
	}, rows[0]["props"])

	bad := model.NewNode(43, model.KindProtein)
	bad.Attributes["bad key"] = "x"
	_, err = NodeRows([]model.Node{bad})
	assert.Error(t, err)

	_, err = NodeRows([]model.Node{model.NewNode(math.MaxUint64, model.KindProtein)})
	assert.Error(t, err, "keys above the signed range cannot be stored")
}

func TestRelationRows(t *testing.T) {
	rows, err := RelationRows([]model.Relation{
		{SurrogateKey: 7, OriginKey: 1, DestKey: 2, Kind: model.RelNextStep, Attributes: map[string]any{"pathway": "Pathway1"}},
		{SurrogateKey: 8, OriginKey: 1, DestKey: 3, Kind: model.RelReactant},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pathway1", rows[0]["merge_key"])
	assert.Equal(t, int64(2), rows[0]["dest"])
	assert.NotContains(t, rows[1], "merge_key")
	assert.Equal(t, map[string]any{}, rows[1]["props"])

	_, err = RelationRows([]model.Relation{{SurrogateKey: 9, OriginKey: 0, DestKey: 1}})
	assert.Error(t, err)
}

func TestTransactionConfig(t *testing.T) {
	tc := GetConfigForOperation(OpRelationBatch)
	assert.Equal(t, 5*time.Minute, tc.Timeout)
	assert.Len(t, tc.AsNeo4jConfig(), 2)

	tc = GetConfigForOperation("unknown_op")
	assert.Equal(t, 60*time.Second, tc.Timeout)
	assert.Equal(t, "unknown_op", tc.Metadata["operation"])

	custom := GetConfigForOperation(OpNodeBatch).WithCustomMetadata("job_id", "abc")
	assert.Equal(t, "abc", custom.Metadata["job_id"])
	_, leaked := GetConfigForOperation(OpNodeBatch).Metadata["job_id"]
	assert.False(t, leaked)

	assert.Empty(t, TransactionConfig{}.AsNeo4jConfig())
	assert.Equal(t, time.Second, tc.WithTimeout(time.Second).Timeout)
}
