package batch

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pathgraph/internal/model"
)

// Sink receives flushed batches. Both operations must be idempotent.
type Sink interface {
	CreateNodes(ctx context.Context, nodes []model.Node) error
	MergeRelations(ctx context.Context, relations []model.Relation) error
}

// FlushHook runs after every successful flush
type FlushHook func(ctx context.Context) error

// Stats counts flushed items and sink calls
type Stats struct {
	NodesFlushed     int
	RelationsFlushed int
	NodeFlushes      int
	RelationFlushes  int
}

// Accumulator buffers nodes and relations and hands them to a Sink once a
// buffer reaches its threshold. Items are flushed exactly once, in the order
// they were added. Not safe for concurrent use.
type Accumulator struct {
	sink      Sink
	cfg       Config
	nodes     []model.Node
	relations []model.Relation
	hook      FlushHook
	stats     Stats
	logger    *logrus.Entry
}

// Option configures an Accumulator
type Option func(*Accumulator)

// WithFlushHook registers a hook run after each flush
func WithFlushHook(hook FlushHook) Option {
	return func(a *Accumulator) { a.hook = hook }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Accumulator) {
		if logger != nil {
			a.logger = logger.WithField("component", "batch")
		}
	}
}

// New creates an accumulator. Non-positive thresholds fall back to the defaults.
func New(sink Sink, cfg Config, opts ...Option) *Accumulator {
	def := DefaultConfig()
	if cfg.NodeThreshold < 1 {
		cfg.NodeThreshold = def.NodeThreshold
	}
	if cfg.RelationThreshold < 1 {
		cfg.RelationThreshold = def.RelationThreshold
	}

	a := &Accumulator{
		sink:      sink,
		cfg:       cfg,
		nodes:     make([]model.Node, 0, cfg.NodeThreshold),
		relations: make([]model.Relation, 0, cfg.RelationThreshold),
		logger:    logrus.StandardLogger().WithField("component", "batch"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddNode buffers a node, flushing the node buffer when it is full
func (a *Accumulator) AddNode(ctx context.Context, n model.Node) error {
	a.nodes = append(a.nodes, n)
	if len(a.nodes) >= a.cfg.NodeThreshold {
		return a.flushNodes(ctx)
	}
	return nil
}

// AddRelation buffers a relation, flushing the relation buffer when it is full
func (a *Accumulator) AddRelation(ctx context.Context, r model.Relation) error {
	a.relations = append(a.relations, r)
	if len(a.relations) >= a.cfg.RelationThreshold {
		return a.flushRelations(ctx)
	}
	return nil
}

// Flush writes whatever is buffered. Nodes go first so relations flushed in
// the same call never precede their endpoints.
func (a *Accumulator) Flush(ctx context.Context) error {
	if err := a.flushNodes(ctx); err != nil {
		return err
	}
	return a.flushRelations(ctx)
}

// Pending returns the number of buffered nodes and relations
func (a *Accumulator) Pending() (nodes, relations int) {
	return len(a.nodes), len(a.relations)
}

// Stats returns the flush counters
func (a *Accumulator) Stats() Stats {
	return a.stats
}

func (a *Accumulator) flushNodes(ctx context.Context) error {
	if len(a.nodes) == 0 {
		return nil
	}
	if err := a.sink.CreateNodes(ctx, a.nodes); err != nil {
		return err
	}

	a.stats.NodesFlushed += len(a.nodes)
	a.stats.NodeFlushes++
	a.logger.WithField("nodes", len(a.nodes)).Debug("Flushed node batch")

	// the sink may keep the slice, so start a fresh one
	a.nodes = make([]model.Node, 0, a.cfg.NodeThreshold)
	return a.afterFlush(ctx)
}

func (a *Accumulator) flushRelations(ctx context.Context) error {
	if len(a.relations) == 0 {
		return nil
	}
	if err := a.sink.MergeRelations(ctx, a.relations); err != nil {
		return err
	}

	a.stats.RelationsFlushed += len(a.relations)
	a.stats.RelationFlushes++
	a.logger.WithField("relations", len(a.relations)).Debug("Flushed relation batch")

	a.relations = make([]model.Relation, 0, a.cfg.RelationThreshold)
	return a.afterFlush(ctx)
}

func (a *Accumulator) afterFlush(ctx context.Context) error {
	if a.hook == nil {
		return nil
	}
	return a.hook(ctx)
}
