package ingest

import (
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
	"github.com/rohankatakam/pathgraph/internal/model"
)

type refKey struct {
	source string
	id     string
}

// ForwardTable maps source element ids to the surrogate keys assigned in the
// node pass, and surrogate keys to their node kind. It is filled during the
// node pass and frozen before the relation pass reads it.
type ForwardTable struct {
	keys   map[refKey]uint64
	kinds  map[uint64]model.NodeKind
	frozen bool
}

// NewForwardTable creates an empty table
func NewForwardTable() *ForwardTable {
	return &ForwardTable{
		keys:  make(map[refKey]uint64),
		kinds: make(map[uint64]model.NodeKind),
	}
}

// Put records the key of an element of source
func (f *ForwardTable) Put(source, id string, key uint64, kind model.NodeKind) error {
	if err := f.Register(key, kind); err != nil {
		return err
	}
	f.keys[refKey{source: source, id: id}] = key
	return nil
}

// Register records the kind of a key that has no element in this job, such
// as a location inherited from an earlier job.
func (f *ForwardTable) Register(key uint64, kind model.NodeKind) error {
	if f.frozen {
		return perrors.InternalErrorf("forward table is frozen; cannot register key %d", key)
	}
	if prev, ok := f.kinds[key]; ok && prev != kind {
		return perrors.InternalErrorf("surrogate key %d registered as %s and %s", key, prev, kind)
	}
	f.kinds[key] = kind
	return nil
}

// Lookup returns the key and kind of an element of source
func (f *ForwardTable) Lookup(source, id string) (uint64, model.NodeKind, bool) {
	key, ok := f.keys[refKey{source: source, id: id}]
	if !ok {
		return 0, model.KindUnknown, false
	}
	return key, f.kinds[key], true
}

// KindOf returns the kind registered for a key
func (f *ForwardTable) KindOf(key uint64) (model.NodeKind, bool) {
	kind, ok := f.kinds[key]
	return kind, ok
}

// Freeze makes the table read-only
func (f *ForwardTable) Freeze() {
	f.frozen = true
}

// Len returns the number of distinct keys
func (f *ForwardTable) Len() int {
	return len(f.kinds)
}
