package graph

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rohankatakam/pathgraph/internal/model"
)

// Property names written on every node and relation
const (
	propSurrogateKey = "surrogate_key"
	propNaturalID    = "natural_id"
	propDisplayName  = "display_name"
	propSource       = "source"
)

// relationMergeKeys lists relation kinds whose identity includes one of
// their attributes. Two NEXT_STEP edges between the same processes are
// distinct when they belong to different pathways.
var relationMergeKeys = map[model.RelationKind]string{
	model.RelNextStep: "pathway",
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier validates that a string can be safely used as a Cypher identifier
// Only allows alphanumeric characters and underscores (prevents injection)
func isValidIdentifier(s string) bool {
	return s != "" && identifierPattern.MatchString(s)
}

// NodeGroup is a run of nodes sharing a primary kind
type NodeGroup struct {
	Kind  model.NodeKind
	Nodes []model.Node
}

// RelationGroup is a run of relations sharing an (origin kind, dest kind,
// relation kind) triple
type RelationGroup struct {
	Triple    model.Triple
	Relations []model.Relation
}

// GroupNodes splits a batch by primary kind. Groups appear in the order their
// kind was first seen and keep the batch order inside.
func GroupNodes(nodes []model.Node) []NodeGroup {
	index := make(map[model.NodeKind]int)
	var groups []NodeGroup
	for _, n := range nodes {
		i, ok := index[n.Kind]
		if !ok {
			i = len(groups)
			index[n.Kind] = i
			groups = append(groups, NodeGroup{Kind: n.Kind})
		}
		groups[i].Nodes = append(groups[i].Nodes, n)
	}
	return groups
}

// GroupRelations splits a batch by kind triple, preserving first-seen order.
func GroupRelations(relations []model.Relation) []RelationGroup {
	index := make(map[model.Triple]int)
	var groups []RelationGroup
	for _, r := range relations {
		t := r.Triple()
		i, ok := index[t]
		if !ok {
			i = len(groups)
			index[t] = i
			groups = append(groups, RelationGroup{Triple: t})
		}
		groups[i].Relations = append(groups[i].Relations, r)
	}
	return groups
}

// BuildNodeMerge returns the UNWIND query that merges one group of nodes on
// their surrogate key and adds the super-kind labels.
func BuildNodeMerge(kind model.NodeKind) (string, error) {
	label := kind.String()
	if kind == model.KindUnknown || !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}

	var b strings.Builder
	b.WriteString("UNWIND $rows AS row\n")
	fmt.Fprintf(&b, "MERGE (n:%s {%s: row.key})\n", label, propSurrogateKey)
	b.WriteString("SET n += row.props")
	for _, super := range kind.SuperKinds() {
		fmt.Fprintf(&b, ", n:%s", super.String())
	}
	b.WriteString("\nRETURN count(n) AS written")
	return b.String(), nil
}

// BuildRelationMerge returns the UNWIND query that matches both endpoints of
// one relation group by label and surrogate key, then merges the relation.
// The first surrogate key written for a relation is kept.
func BuildRelationMerge(t model.Triple) (string, error) {
	from, to, rel := t.OriginKind.String(), t.DestKind.String(), string(t.Kind)
	if t.OriginKind == model.KindUnknown || !isValidIdentifier(from) {
		return "", fmt.Errorf("invalid from label: %s", from)
	}
	if t.DestKind == model.KindUnknown || !isValidIdentifier(to) {
		return "", fmt.Errorf("invalid to label: %s", to)
	}
	if !isValidIdentifier(rel) {
		return "", fmt.Errorf("invalid relation type: %s", rel)
	}

	pattern := fmt.Sprintf("(a)-[r:%s]->(b)", rel)
	if key, ok := relationMergeKeys[t.Kind]; ok {
		pattern = fmt.Sprintf("(a)-[r:%s {%s: row.merge_key}]->(b)", rel, key)
	}

	return fmt.Sprintf(`UNWIND $rows AS row
MATCH (a:%s {%s: row.origin})
MATCH (b:%s {%s: row.dest})
MERGE %s
ON CREATE SET r.%s = row.key
SET r += row.props
RETURN count(r) AS written`,
		from, propSurrogateKey,
		to, propSurrogateKey,
		pattern,
		propSurrogateKey,
	), nil
}

// BuildIndex returns the statement creating the surrogate key index of a label
func BuildIndex(kind model.NodeKind) (string, error) {
	label := kind.String()
	if kind == model.KindUnknown || !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}
	return fmt.Sprintf("CREATE INDEX %s_%s IF NOT EXISTS FOR (n:%s) ON (n.%s)",
		strings.ToLower(label), propSurrogateKey, label, propSurrogateKey), nil
}

// BuildNodeCount counts the nodes whose primary kind is kind. Subtype nodes
// also carry the label of their super-kind and are excluded.
func BuildNodeCount(kind model.NodeKind) (string, error) {
	label := kind.String()
	if kind == model.KindUnknown || !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}

	var excluded []string
	for _, other := range model.PrimaryKinds() {
		if other == kind {
			continue
		}
		for _, super := range other.SuperKinds() {
			if super == kind {
				excluded = append(excluded, "NOT n:"+other.String())
			}
		}
	}

	query := fmt.Sprintf("MATCH (n:%s)", label)
	if len(excluded) > 0 {
		query += " WHERE " + strings.Join(excluded, " AND ")
	}
	return query + " RETURN count(n) AS count", nil
}

// NodeRows converts nodes to UNWIND parameter rows
func NodeRows(nodes []model.Node) ([]map[string]any, error) {
	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		key, err := storeKey(n.SurrogateKey)
		if err != nil {
			return nil, err
		}

		props := make(map[string]any, len(n.Attributes)+4)
		for k, v := range n.Attributes {
			if !isValidIdentifier(k) {
				return nil, fmt.Errorf("invalid property key %q on node %d", k, n.SurrogateKey)
			}
			props[k] = v
		}
		props[propSurrogateKey] = key
		setIfNotEmpty(props, propNaturalID, n.NaturalID)
		setIfNotEmpty(props, propDisplayName, n.DisplayName)
		setIfNotEmpty(props, propSource, n.Source)

		rows[i] = map[string]any{"key": key, "props": props}
	}
	return rows, nil
}

// RelationRows converts relations to UNWIND parameter rows
func RelationRows(relations []model.Relation) ([]map[string]any, error) {
	rows := make([]map[string]any, len(relations))
	for i, r := range relations {
		key, err := storeKey(r.SurrogateKey)
		if err != nil {
			return nil, err
		}
		origin, err := storeKey(r.OriginKey)
		if err != nil {
			return nil, err
		}
		dest, err := storeKey(r.DestKey)
		if err != nil {
			return nil, err
		}

		props := make(map[string]any, len(r.Attributes))
		for k, v := range r.Attributes {
			if !isValidIdentifier(k) {
				return nil, fmt.Errorf("invalid property key %q on relation %d", k, r.SurrogateKey)
			}
			props[k] = v
		}

		row := map[string]any{"key": key, "origin": origin, "dest": dest, "props": props}
		if mk, ok := relationMergeKeys[r.Kind]; ok {
			v, _ := r.Attributes[mk].(string)
			row["merge_key"] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// storeKey converts a surrogate key to the signed 64-bit integers the store
// understands
func storeKey(k uint64) (int64, error) {
	if k == 0 || k > math.MaxInt64 {
		return 0, fmt.Errorf("surrogate key %d out of store range", k)
	}
	return int64(k), nil
}

func setIfNotEmpty(props map[string]any, key, value string) {
	if value != "" {
		props[key] = value
	}
}
