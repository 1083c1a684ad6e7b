package validation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pathgraph/internal/identity"
	"github.com/rohankatakam/pathgraph/internal/model"
)

// DefaultThreshold is the minimum share of cached entities that must exist
// in the graph
const DefaultThreshold = 95.0

// GraphCounter is the read side of the graph store used by the validator
type GraphCounter interface {
	CountNodes(ctx context.Context, kind model.NodeKind) (int64, error)
	LastSurrogateKey(ctx context.Context) (uint64, error)
}

// ValidationResult compares one node kind across the two stores
type ValidationResult struct {
	Kind            string
	IdentityCount   int64
	GraphCount      int64
	SyncPercent     float64
	PassedThreshold bool
}

// Report is the outcome of a consistency check
type Report struct {
	Results         []ValidationResult
	IdentityLastKey uint64
	GraphLastKey    uint64
}

// Passed reports whether every kind passed and both high-water marks agree
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.PassedThreshold {
			return false
		}
	}
	return r.IdentityLastKey == r.GraphLastKey
}

// ConsistencyValidator checks that the identity cache and the graph store
// describe the same set of entities
type ConsistencyValidator struct {
	identity  identity.Store
	graph     GraphCounter
	threshold float64
	logger    *logrus.Entry
}

// NewConsistencyValidator creates a validator. A threshold <= 0 uses
// DefaultThreshold.
func NewConsistencyValidator(idStore identity.Store, graph GraphCounter, threshold float64, logger *logrus.Logger) *ConsistencyValidator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ConsistencyValidator{
		identity:  idStore,
		graph:     graph,
		threshold: threshold,
		logger:    logger.WithField("component", "validation"),
	}
}

// Validate compares per-kind counts and the high-water marks. Kinds absent
// from both stores are left out.
func (v *ConsistencyValidator) Validate(ctx context.Context) (*Report, error) {
	counts, err := v.identity.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity cache stats: %w", err)
	}

	report := &Report{}
	for _, kind := range model.PrimaryKinds() {
		cached := int64(counts[kind.String()])
		inGraph, err := v.graph.CountNodes(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s nodes: %w", kind, err)
		}
		if cached == 0 && inGraph == 0 {
			continue
		}
		report.Results = append(report.Results, v.compare(kind, cached, inGraph))
	}

	if report.IdentityLastKey, err = v.identity.LastKey(ctx); err != nil {
		return nil, fmt.Errorf("failed to read identity high-water mark: %w", err)
	}
	if report.GraphLastKey, err = v.graph.LastSurrogateKey(ctx); err != nil {
		return nil, fmt.Errorf("failed to read graph high-water mark: %w", err)
	}

	return report, nil
}

// compare scores one kind. Graph nodes the cache does not know about fail
// the check regardless of the threshold.
func (v *ConsistencyValidator) compare(kind model.NodeKind, cached, inGraph int64) ValidationResult {
	sync := 0.0
	if cached > 0 {
		sync = float64(inGraph) / float64(cached) * 100.0
	}
	return ValidationResult{
		Kind:            kind.String(),
		IdentityCount:   cached,
		GraphCount:      inGraph,
		SyncPercent:     sync,
		PassedThreshold: cached > 0 && inGraph <= cached && sync >= v.threshold,
	}
}

// LogResults logs validation results in a formatted way
func (v *ConsistencyValidator) LogResults(report *Report) {
	for _, r := range report.Results {
		entry := v.logger.WithFields(logrus.Fields{
			"kind":     r.Kind,
			"identity": r.IdentityCount,
			"graph":    r.GraphCount,
			"sync":     fmt.Sprintf("%.1f%%", r.SyncPercent),
		})
		if r.PassedThreshold {
			entry.Info("Kind consistent")
		} else {
			entry.Warn("Kind out of sync")
		}
	}

	fields := logrus.Fields{
		"identity_last_key": report.IdentityLastKey,
		"graph_last_key":    report.GraphLastKey,
		"threshold":         v.threshold,
	}
	if report.Passed() {
		v.logger.WithFields(fields).Info("Identity cache and graph are consistent")
	} else {
		v.logger.WithFields(fields).Warn("Identity cache and graph disagree - manual review required")
	}
}
