package ingest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/batch"
	"github.com/rohankatakam/pathgraph/internal/biopax"
	"github.com/rohankatakam/pathgraph/internal/classify"
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
	"github.com/rohankatakam/pathgraph/internal/identity"
	"github.com/rohankatakam/pathgraph/internal/model"
)

// BuilderOptions configures a Builder
type BuilderOptions struct {
	// Resolver finds protein accessions; nil keys proteins by name or id only.
	Resolver accession.Resolver

	// XrefFilter lists xref databases (case-insensitive) that are never
	// materialized.
	XrefFilter []string

	Logger *logrus.Logger
}

// Builder turns source models into nodes and relations in two passes. The
// node pass assigns every element its surrogate key; the relation pass only
// reads the keys recorded by the node pass. A Builder runs one job.
type Builder struct {
	cache    *identity.Cache
	acc      *batch.Accumulator
	resolver accession.Resolver
	filtered map[string]bool
	logger   *logrus.Entry

	fwd    *ForwardTable
	report *Report

	// protein location carry-forward
	proteins       map[uint64]bool
	ownLocation    map[uint64]bool
	carried        map[uint64]uint64
	carriedEmitted map[uint64]bool
}

// endpoint is one resolved end of a relation
type endpoint struct {
	key  uint64
	kind model.NodeKind
	id   string
}

// NewBuilder creates a builder writing through acc
func NewBuilder(cache *identity.Cache, acc *batch.Accumulator, opts BuilderOptions) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	filtered := make(map[string]bool, len(opts.XrefFilter))
	for _, db := range opts.XrefFilter {
		if db = normalizeDB(db); db != "" {
			filtered[db] = true
		}
	}

	return &Builder{
		cache:          cache,
		acc:            acc,
		resolver:       opts.Resolver,
		filtered:       filtered,
		logger:         logger.WithField("component", "builder"),
		fwd:            NewForwardTable(),
		report:         newReport(),
		proteins:       make(map[uint64]bool),
		ownLocation:    make(map[uint64]bool),
		carried:        make(map[uint64]uint64),
		carriedEmitted: make(map[uint64]bool),
	}
}

// Build runs both passes over every model. All node batches are flushed
// before the relation pass begins.
func (b *Builder) Build(ctx context.Context, models []*biopax.Model) (*Report, error) {
	start := time.Now()
	for _, m := range models {
		b.report.Sources = append(b.report.Sources, m.Path)
	}

	b.logger.WithFields(logrus.Fields{
		"job_id":  b.report.JobID,
		"sources": len(models),
	}).Info("Starting graph build")

	// Phase 1: nodes
	phaseStart := time.Now()
	elements := 0
	for _, m := range models {
		for _, el := range m.Elements() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := b.visitNode(ctx, m, el); err != nil {
				return nil, err
			}
			elements++
		}
	}
	if err := b.acc.Flush(ctx); err != nil {
		return nil, perrors.DatabaseError(err, "node flush failed")
	}
	if err := b.drained("nodes"); err != nil {
		return nil, err
	}
	if err := b.resolveCarriedLocations(ctx); err != nil {
		return nil, err
	}
	b.fwd.Freeze()
	b.report.Phases = append(b.report.Phases, PhaseStats{Name: "nodes", Elements: elements, Duration: time.Since(phaseStart)})

	b.logger.WithFields(logrus.Fields{
		"created":  b.report.NodesCreated,
		"reused":   b.report.NodesReused,
		"skipped":  b.report.ElementsSkipped,
		"duration": time.Since(phaseStart).String(),
	}).Info("Node pass completed")

	// Phase 2: relations
	phaseStart = time.Now()
	elements = 0
	for _, m := range models {
		for _, el := range m.Elements() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := b.visitRelations(ctx, m, el); err != nil {
				return nil, err
			}
			elements++
		}
	}
	if err := b.acc.Flush(ctx); err != nil {
		return nil, perrors.DatabaseError(err, "relation flush failed")
	}
	if err := b.drained("relations"); err != nil {
		return nil, err
	}
	b.report.Phases = append(b.report.Phases, PhaseStats{Name: "relations", Elements: elements, Duration: time.Since(phaseStart)})

	if err := b.cache.Checkpoint(ctx); err != nil {
		return nil, err
	}

	b.report.LastSurrogateKey = b.cache.LastKey()
	b.report.Duration = time.Since(start)

	b.logger.WithFields(logrus.Fields{
		"created":  b.report.RelationsCreated,
		"dropped":  b.report.RelationsDropped,
		"duration": time.Since(phaseStart).String(),
	}).Info("Relation pass completed")

	return b.report, nil
}

// visitNode classifies one element and resolves its surrogate key.
// Locations and xrefs become nodes only when something refers to them.
func (b *Builder) visitNode(ctx context.Context, m *biopax.Model, el *biopax.Element) error {
	c, ok := classify.Classify(el)
	if !ok {
		b.report.ElementsSkipped++
		return nil
	}
	if c.Kind == model.KindCellularLocation || c.Kind == model.KindXref {
		return nil
	}

	if c.Kind.IsConversion() && classify.UnknownDirection(el) {
		b.logger.WithFields(logrus.Fields{
			"source":    m.Path,
			"id":        el.ID,
			"direction": el.Direction,
		}).Warn("Unrecognized conversion direction, reading as LEFT_TO_RIGHT")
	}

	key, err := entityKey(ctx, b.resolver, el, m, &c)
	if err != nil {
		return err
	}
	if !key.Valid() {
		b.logger.WithFields(logrus.Fields{
			"source": m.Path,
			"id":     el.ID,
			"kind":   c.Kind.String(),
		}).Warn("Element has no usable identifier, skipping")
		b.report.ElementsSkipped++
		return nil
	}
	sk, err := b.allocate(ctx, key, c, m.Source)
	if err != nil {
		return err
	}
	if err := b.fwd.Put(m.Path, el.ID, sk, c.Kind); err != nil {
		return err
	}

	if c.Kind == model.KindProtein {
		b.proteins[sk] = true
	}

	if c.Kind.IsPhysicalEntity() && strings.TrimSpace(el.CellularLocation) != "" {
		loc, ok, err := b.inlineLocation(ctx, m, el.CellularLocation)
		if err != nil {
			return err
		}
		if ok && c.Kind == model.KindProtein {
			b.ownLocation[sk] = true
			if _, err := b.cache.BindIfAbsent(ctx, identity.ProteinLocationKey(sk), loc); err != nil {
				return err
			}
		}
	}

	for _, ref := range el.Xrefs {
		if err := b.inlineXref(ctx, m, ref); err != nil {
			return err
		}
	}
	return nil
}

// drained checks that a phase left nothing buffered
func (b *Builder) drained(phase string) error {
	if nodes, relations := b.acc.Pending(); nodes+relations > 0 {
		return perrors.InternalErrorf("%s pass ended with %d nodes and %d relations still buffered", phase, nodes, relations)
	}
	return nil
}

// allocate resolves key and queues a node when it is new
func (b *Builder) allocate(ctx context.Context, key identity.CompositeKey, c classify.Classification, source string) (uint64, error) {
	sk, isNew, err := b.cache.AllocateIfAbsent(ctx, key)
	if err != nil {
		return 0, err
	}
	if !isNew {
		b.report.NodesReused++
		return sk, nil
	}

	node := model.NewNode(sk, c.Kind)
	node.NaturalID = key.NaturalID
	node.DisplayName = c.DisplayName
	node.Source = source
	node.Attributes = c.Attributes

	if err := b.acc.AddNode(ctx, node); err != nil {
		return 0, perrors.DatabaseErrorf(err, "failed to flush node batch at %s", key)
	}
	b.report.NodesCreated++
	return sk, nil
}

// inlineLocation allocates the cellular location an entity refers to
func (b *Builder) inlineLocation(ctx context.Context, m *biopax.Model, ref string) (uint64, bool, error) {
	el, ok := m.Lookup(ref)
	if !ok || el.Kind != biopax.TagCellularLocationVocabulary {
		b.logger.WithFields(logrus.Fields{"source": m.Path, "ref": ref}).Warn("Cellular location reference not found")
		return 0, false, nil
	}
	if sk, _, ok := b.fwd.Lookup(m.Path, el.ID); ok {
		return sk, true, nil
	}

	c, _ := classify.Classify(el)
	term := classify.LocationTerm(el)
	if c.DisplayName == "" {
		c.DisplayName = term
	}
	sk, err := b.allocate(ctx, identity.KindKey(model.KindCellularLocation, term), c, m.Source)
	if err != nil {
		return 0, false, err
	}
	return sk, true, b.fwd.Put(m.Path, el.ID, sk, model.KindCellularLocation)
}

// inlineXref allocates a referenced xref unless its database is filtered.
// Missing xrefs are reported by the relation pass.
func (b *Builder) inlineXref(ctx context.Context, m *biopax.Model, ref string) error {
	el, ok := m.Lookup(ref)
	if !ok {
		return nil
	}
	if k, isNode := classify.KindOf(el.Kind); !isNode || k != model.KindXref || b.isFiltered(el) {
		return nil
	}
	if _, _, ok := b.fwd.Lookup(m.Path, el.ID); ok {
		return nil
	}

	c, _ := classify.Classify(el)
	key := classify.XrefKey(el)
	if c.DisplayName == "" {
		c.DisplayName = key
	}
	sk, err := b.allocate(ctx, identity.KindKey(model.KindXref, key), c, m.Source)
	if err != nil {
		return err
	}
	return b.fwd.Put(m.Path, el.ID, sk, model.KindXref)
}

// resolveCarriedLocations looks up the recorded location of every protein
// that has none of its own in this job. Runs once, after the whole node pass,
// so the outcome does not depend on element order.
func (b *Builder) resolveCarriedLocations(ctx context.Context) error {
	keys := make([]uint64, 0, len(b.proteins))
	for sk := range b.proteins {
		if !b.ownLocation[sk] {
			keys = append(keys, sk)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, sk := range keys {
		loc, ok, err := b.cache.Resolve(ctx, identity.ProteinLocationKey(sk))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := b.fwd.Register(loc, model.KindCellularLocation); err != nil {
			return err
		}
		b.carried[sk] = loc
	}
	return nil
}

// visitRelations emits every relation encoded by one element
func (b *Builder) visitRelations(ctx context.Context, m *biopax.Model, el *biopax.Element) error {
	sk, kind, ok := b.fwd.Lookup(m.Path, el.ID)
	if !ok || kind == model.KindCellularLocation || kind == model.KindXref {
		return nil
	}
	self := endpoint{key: sk, kind: kind, id: el.ID}

	var err error
	switch {
	case kind == model.KindComplex:
		err = b.complexRelations(ctx, m, el, self)
	case kind.IsConversion():
		err = b.conversionRelations(ctx, m, el, self)
	case kind.IsControl():
		err = b.controlRelations(ctx, m, el, self)
	case kind == model.KindPathway:
		err = b.pathwayRelations(ctx, m, el, self)
	}
	if err != nil {
		return err
	}

	if kind.IsPhysicalEntity() {
		if err := b.locationRelations(ctx, m, el, self); err != nil {
			return err
		}
	}
	return b.xrefRelations(ctx, m, el, self)
}

func (b *Builder) complexRelations(ctx context.Context, m *biopax.Model, el *biopax.Element, self endpoint) error {
	coefficients := make(map[string]float64, len(el.ComponentStoichiometry))
	for _, s := range el.ComponentStoichiometry {
		if e, ok := m.Lookup(s.Entity); ok {
			coefficients[e.ID] = s.Coefficient
		}
	}

	for _, ref := range el.Components {
		member, ok := b.resolve(m, self, ref, model.RelComponentOf)
		if !ok {
			continue
		}
		attrs := map[string]any{}
		if coef, ok := coefficients[member.id]; ok {
			attrs["stoichiometry"] = coef
		}
		if err := b.emit(ctx, member, self, model.RelComponentOf, attrs); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) conversionRelations(ctx context.Context, m *biopax.Model, el *biopax.Element, self endpoint) error {
	for _, o := range classify.Orientations(el) {
		for _, p := range o.Reactants {
			reactant, ok := b.resolve(m, self, p.Ref, model.RelReactant)
			if !ok {
				continue
			}
			if err := b.emit(ctx, reactant, self, model.RelReactant, map[string]any{"side": p.Side}); err != nil {
				return err
			}
		}
		for _, p := range o.Products {
			product, ok := b.resolve(m, self, p.Ref, model.RelProduct)
			if !ok {
				continue
			}
			if err := b.emit(ctx, self, product, model.RelProduct, map[string]any{"side": p.Side}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) controlRelations(ctx context.Context, m *biopax.Model, el *biopax.Element, self endpoint) error {
	for _, ref := range el.Controllers {
		controller, ok := b.resolve(m, self, ref, model.RelController)
		if !ok {
			continue
		}
		if err := b.emit(ctx, controller, self, model.RelController, nil); err != nil {
			return err
		}
	}

	attrs := map[string]any{}
	if t := strings.TrimSpace(el.ControlType); t != "" {
		attrs["control_type"] = t
	}
	for _, ref := range el.Controlled {
		controlled, ok := b.resolve(m, self, ref, model.RelControls)
		if !ok {
			continue
		}
		if err := b.emit(ctx, self, controlled, model.RelControls, attrs); err != nil {
			return err
		}
	}

	if self.kind != model.KindCatalysis {
		return nil
	}
	for _, ref := range el.Cofactors {
		cofactor, ok := b.resolve(m, self, ref, model.RelCofactor)
		if !ok {
			continue
		}
		if err := b.emit(ctx, cofactor, self, model.RelCofactor, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) pathwayRelations(ctx context.Context, m *biopax.Model, el *biopax.Element, self endpoint) error {
	for _, ref := range el.PathwayComponents {
		component, ok := b.resolve(m, self, ref, model.RelPathwayComponent)
		if !ok {
			continue
		}
		if err := b.emit(ctx, self, component, model.RelPathwayComponent, nil); err != nil {
			return err
		}
	}

	// step ordering: every process of a step precedes every process of each
	// of its next steps
	pathway := el.LocalID()
	for _, stepRef := range el.PathwayOrder {
		step, ok := m.Lookup(stepRef)
		if !ok {
			b.dropped(m, self.id, stepRef, model.RelNextStep, DropUnknownReference)
			continue
		}
		for _, nextRef := range step.NextSteps {
			next, ok := m.Lookup(nextRef)
			if !ok {
				b.dropped(m, step.ID, nextRef, model.RelNextStep, DropUnknownReference)
				continue
			}
			for _, fromRef := range step.StepProcesses {
				from, ok := b.resolve(m, endpoint{id: step.ID}, fromRef, model.RelNextStep)
				if !ok {
					continue
				}
				for _, toRef := range next.StepProcesses {
					to, ok := b.resolve(m, endpoint{id: next.ID}, toRef, model.RelNextStep)
					if !ok {
						continue
					}
					if err := b.emit(ctx, from, to, model.RelNextStep, map[string]any{"pathway": pathway}); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// locationRelations links an entity to its own location, or a protein to the
// location recorded for it by an earlier element or job.
func (b *Builder) locationRelations(ctx context.Context, m *biopax.Model, el *biopax.Element, self endpoint) error {
	if ref := strings.TrimSpace(el.CellularLocation); ref != "" {
		loc, ok := b.resolve(m, self, ref, model.RelLocatedIn)
		if !ok {
			return nil
		}
		return b.emit(ctx, self, loc, model.RelLocatedIn, nil)
	}

	if self.kind != model.KindProtein || b.carriedEmitted[self.key] {
		return nil
	}
	loc, ok := b.carried[self.key]
	if !ok {
		return nil
	}
	b.carriedEmitted[self.key] = true
	dest := endpoint{key: loc, kind: model.KindCellularLocation}
	return b.emit(ctx, self, dest, model.RelLocatedIn, map[string]any{"inherited": true})
}

func (b *Builder) xrefRelations(ctx context.Context, m *biopax.Model, el *biopax.Element, self endpoint) error {
	for _, ref := range el.Xrefs {
		if x, ok := m.Lookup(ref); ok && b.isFiltered(x) {
			continue
		}
		xref, ok := b.resolve(m, self, ref, model.RelHasXref)
		if !ok {
			continue
		}
		if err := b.emit(ctx, self, xref, model.RelHasXref, nil); err != nil {
			return err
		}
	}
	return nil
}

// resolve finds the forward table entry for a reference made by from.
// Unresolvable references are logged and counted, never fatal.
func (b *Builder) resolve(m *biopax.Model, from endpoint, ref string, rel model.RelationKind) (endpoint, bool) {
	el, ok := m.Lookup(ref)
	if !ok {
		b.dropped(m, from.id, ref, rel, DropUnknownReference)
		return endpoint{}, false
	}
	sk, kind, ok := b.fwd.Lookup(m.Path, el.ID)
	if !ok {
		b.dropped(m, from.id, ref, rel, DropUnresolvedEndpoint)
		return endpoint{}, false
	}
	return endpoint{key: sk, kind: kind, id: el.ID}, true
}

func (b *Builder) dropped(m *biopax.Model, from, to string, rel model.RelationKind, reason string) {
	b.report.drop(reason)
	b.logger.WithFields(logrus.Fields{
		"source":   m.Path,
		"from":     from,
		"to":       to,
		"relation": string(rel),
		"reason":   reason,
	}).Warn("Dropping relation")
}

// emit queues a relation between two resolved endpoints
func (b *Builder) emit(ctx context.Context, origin, dest endpoint, kind model.RelationKind, attrs map[string]any) error {
	if _, ok := b.fwd.KindOf(origin.key); !ok {
		return perrors.InternalErrorf("relation %s origin %d missing from forward table", kind, origin.key)
	}
	if _, ok := b.fwd.KindOf(dest.key); !ok {
		return perrors.InternalErrorf("relation %s destination %d missing from forward table", kind, dest.key)
	}

	r := model.Relation{
		SurrogateKey: b.cache.NextKey(),
		OriginKey:    origin.key,
		OriginKind:   origin.kind,
		DestKey:      dest.key,
		DestKind:     dest.kind,
		Kind:         kind,
		Attributes:   make(map[string]any, len(attrs)),
	}
	for k, v := range attrs {
		r.Attributes[k] = v
	}

	if err := b.acc.AddRelation(ctx, r); err != nil {
		return perrors.DatabaseErrorf(err, "failed to flush relation batch at %s %d->%d", kind, origin.key, dest.key)
	}
	b.report.RelationsCreated++
	return nil
}

func (b *Builder) isFiltered(el *biopax.Element) bool {
	return len(b.filtered) > 0 && b.filtered[normalizeDB(el.DB)]
}

func normalizeDB(db string) string {
	return strings.ToLower(strings.TrimSpace(db))
}
