package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/rohankatakam/pathgraph/internal/model"
)

// Namespaces that are not node kinds
const (
	// NamespaceProteinLocation maps a protein surrogate key to the key of
	// the first cellular location recorded for it.
	NamespaceProteinLocation = "ProteinLocation"
)

// keySeparator cannot appear in a namespace
const keySeparator = "\x1f"

// CompositeKey identifies an entity independently of its surrogate key.
type CompositeKey struct {
	Namespace string
	NaturalID string
}

// KindKey builds a key in the namespace of a node kind.
func KindKey(kind model.NodeKind, naturalID string) CompositeKey {
	return CompositeKey{Namespace: kind.String(), NaturalID: naturalID}
}

// ProteinLocationKey is the binding key for a protein's recorded location.
func ProteinLocationKey(protein uint64) CompositeKey {
	return CompositeKey{Namespace: NamespaceProteinLocation, NaturalID: fmt.Sprintf("%d", protein)}
}

// Valid reports whether both parts are present.
func (k CompositeKey) Valid() bool {
	return k.Namespace != "" && strings.TrimSpace(k.NaturalID) != "" && !strings.Contains(k.Namespace, keySeparator)
}

// String renders the key for logs.
func (k CompositeKey) String() string {
	return k.Namespace + ":" + k.NaturalID
}

// encode is the storage form of the key.
func (k CompositeKey) encode() string {
	return k.Namespace + keySeparator + k.NaturalID
}

func decodeKey(s string) (CompositeKey, bool) {
	ns, id, ok := strings.Cut(s, keySeparator)
	if !ok {
		return CompositeKey{}, false
	}
	return CompositeKey{Namespace: ns, NaturalID: id}, true
}

// Store persists composite key -> surrogate key entries with first-writer-wins
// semantics, together with the allocator high-water mark.
type Store interface {
	// Get looks a key up.
	Get(ctx context.Context, key CompositeKey) (uint64, bool, error)

	// PutIfAbsent stores value unless the key already has one. It returns the
	// value now stored and whether this call inserted it. An insert also raises
	// the persisted high-water mark to at least value.
	PutIfAbsent(ctx context.Context, key CompositeKey, value uint64) (stored uint64, inserted bool, err error)

	// LastKey returns the persisted high-water mark.
	LastKey(ctx context.Context) (uint64, error)

	// SaveLastKey raises the persisted high-water mark; lower values are ignored.
	SaveLastKey(ctx context.Context, value uint64) error

	// Stats reports entry counts per namespace.
	Stats(ctx context.Context) (map[string]int, error)

	Close() error
}
