package document

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
)

// Document owns the group, entity and constraint stores of one model.
// It is not safe for concurrent use.
type Document struct {
	groups      map[ID]*Group
	entities    map[ID]*Entity
	constraints map[ID]*Constraint

	firstGenerate mark
	firstSolve    mark
	firstModel    mark

	solver Solver
	kernel kernel.Kernel
	logger *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithSolver sets the constraint solver. The default leaves geometry as is.
func WithSolver(s Solver) Option {
	return func(d *Document) {
		if s != nil {
			d.solver = s
		}
	}
}

// WithKernel sets the geometry kernel used to derive solids. Without one,
// the solid-model stage is skipped.
func WithKernel(k kernel.Kernel) Option {
	return func(d *Document) { d.kernel = k }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

func newDocument(opts []Option) *Document {
	d := &Document{
		groups:      make(map[ID]*Group),
		entities:    make(map[ID]*Entity),
		constraints: make(map[ID]*Constraint),
		solver:      nopSolver{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// New creates a document holding a Reference group with the principal
// workplanes and an empty Sketch on the XY plane, fully evaluated.
func New(opts ...Option) *Document {
	d := newDocument(opts)

	ref := &Reference{}
	rg := d.addGroup(ref, "Reference", 0)
	rg.Body = &Body{Name: "Body"}
	ref.seedWorkplanes(d, rg)

	sk := d.addGroup(&Sketch{}, "Sketch", 1)
	sk.ActiveWorkplane = ref.XY

	d.MarkGeneratePending(rg.ID)
	d.UpdatePending(None, nil)
	return d
}

// Clone returns a deep copy of the three stores and the pending state.
// Derived solids are shared, they are never mutated in place.
func (d *Document) Clone() *Document {
	c := &Document{
		groups:        make(map[ID]*Group, len(d.groups)),
		entities:      make(map[ID]*Entity, len(d.entities)),
		constraints:   make(map[ID]*Constraint, len(d.constraints)),
		firstGenerate: d.firstGenerate,
		firstSolve:    d.firstSolve,
		firstModel:    d.firstModel,
		solver:        d.solver,
		kernel:        d.kernel,
		logger:        d.logger,
	}
	for id, g := range d.groups {
		c.groups[id] = g.clone()
	}
	for id, en := range d.entities {
		c.entities[id] = en.clone()
	}
	for id, co := range d.constraints {
		c.constraints[id] = co.clone()
	}
	return c
}

// Kernel returns the geometry kernel, or nil.
func (d *Document) Kernel() kernel.Kernel {
	return d.kernel
}

// Logger returns the document's logger.
func (d *Document) Logger() *slog.Logger {
	return d.logger
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// Group returns the group with the given id, or nil.
func (d *Document) Group(id ID) *Group {
	return d.groups[id]
}

// Entity returns the entity with the given id, or nil.
func (d *Document) Entity(id ID) *Entity {
	return d.entities[id]
}

// Constraint returns the constraint with the given id, or nil.
func (d *Document) Constraint(id ID) *Constraint {
	return d.constraints[id]
}

// GroupByName returns the first group in evaluation order with the given
// name, or nil.
func (d *Document) GroupByName(name string) *Group {
	for _, g := range d.GroupsSorted() {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func byID[T any](m map[ID]T, keep func(T) bool) []T {
	ids := make([]ID, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b ID) int { return strings.Compare(a.String(), b.String()) })
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

// Entities returns every entity, ordered by id.
func (d *Document) Entities() []*Entity {
	return byID(d.entities, nil)
}

// Constraints returns every constraint, ordered by id.
func (d *Document) Constraints() []*Constraint {
	return byID(d.constraints, nil)
}

// EntitiesInGroup returns the entities owned by group, ordered by id.
func (d *Document) EntitiesInGroup(group ID) []*Entity {
	return byID(d.entities, func(en *Entity) bool { return en.Group == group })
}

// ConstraintsInGroup returns the constraints owned by group, ordered by id.
func (d *Document) ConstraintsInGroup(group ID) []*Constraint {
	return byID(d.constraints, func(co *Constraint) bool { return co.Group == group })
}

// GroupsSorted returns all groups in evaluation order.
func (d *Document) GroupsSorted() []*Group {
	out := make([]*Group, 0, len(d.groups))
	for _, g := range d.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Group) int { return a.Index - b.Index })
	return out
}

// BodyGroups is a run of consecutive groups contributing to one body.
type BodyGroups struct {
	Body   *Body
	Groups []*Group
}

// GroupsByBody splits the sorted groups into bodies. A group carrying a
// Body starts a new one.
func (d *Document) GroupsByBody() []BodyGroups {
	var out []BodyGroups
	for _, g := range d.GroupsSorted() {
		if g.Body != nil || len(out) == 0 {
			b := g.Body
			if b == nil {
				b = &Body{}
			}
			out = append(out, BodyGroups{Body: b})
		}
		last := &out[len(out)-1]
		last.Groups = append(last.Groups, g)
	}
	return out
}

// GroupRelative returns the group delta positions away from id in
// evaluation order, or None past either end.
func (d *Document) GroupRelative(id ID, delta int) ID {
	groups := d.GroupsSorted()
	pos := slices.IndexFunc(groups, func(g *Group) bool { return g.ID == id })
	if pos < 0 {
		return None
	}
	pos += delta
	if pos < 0 || pos >= len(groups) {
		return None
	}
	return groups[pos].ID
}

// PreviousSolid returns the most recent solid of g's body produced before g.
func (d *Document) PreviousSolid(g ID) kernel.Solid {
	for _, bg := range d.GroupsByBody() {
		pos := slices.IndexFunc(bg.Groups, func(x *Group) bool { return x.ID == g })
		if pos < 0 {
			continue
		}
		for i := pos - 1; i >= 0; i-- {
			if s := bg.Groups[i].Solid; s != nil {
				return s
			}
		}
		return nil
	}
	return nil
}

// ReferencedGroups returns every group g depends on: its required groups,
// the owners of its required entities, the owners of entities referenced by
// its entities and constraints, and the owner of its active workplane.
func (d *Document) ReferencedGroups(id ID) IDSet {
	g := d.groups[id]
	if g == nil {
		return IDSet{}
	}
	out := NewIDSet(g.Data.RequiredGroups(d)...)
	addOwner := func(ent ID) {
		if en := d.entities[ent]; en != nil {
			out.Add(en.Group)
		}
	}
	for _, ent := range g.Data.RequiredEntities(d) {
		addOwner(ent)
	}
	for _, en := range d.entities {
		if en.Group != id {
			continue
		}
		for _, ref := range en.ReferencedEntities() {
			addOwner(ref)
		}
	}
	for _, co := range d.constraints {
		if co.Group != id {
			continue
		}
		for _, ref := range co.ReferencedEntities() {
			addOwner(ref)
		}
	}
	addOwner(g.ActiveWorkplane)
	delete(out, id)
	return out
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

func (d *Document) addGroup(data GroupData, name string, index int) *Group {
	g := &Group{ID: NewID(), Name: name, Index: index, Data: data}
	d.groups[g.ID] = g
	return g
}

func (d *Document) insertEntity(group, id ID, kind ItemKind, data EntityData) *Entity {
	en := &Entity{ID: id, Group: group, Kind: kind, Data: data}
	d.entities[id] = en
	return en
}

// setGenerated creates or refreshes a generated entity owned by group. An
// existing entity keeps its name and construction flag.
func (d *Document) setGenerated(group, id ID, data EntityData) *Entity {
	if en := d.entities[id]; en != nil && en.Group == group && en.Kind != KindUser {
		en.Kind = KindGenerated
		en.Data = data
		return en
	}
	return d.insertEntity(group, id, KindGenerated, data)
}

// AddEntity adds a USER entity to group and marks the group for
// regeneration.
func (d *Document) AddEntity(group ID, data EntityData) (*Entity, error) {
	if d.groups[group] == nil {
		return nil, fmt.Errorf("add %s: %w: %s", data.Type(), ErrGroupNotFound, group.Short())
	}
	for _, ref := range data.ReferencedEntities() {
		if d.entities[ref] == nil {
			return nil, fmt.Errorf("add %s: %w: %s", data.Type(), ErrEntityNotFound, ref.Short())
		}
	}
	en := d.insertEntity(group, NewID(), KindUser, data)
	d.MarkGeneratePending(group)
	return en, nil
}

// AddConstraint adds a constraint to group. Every addressed entity, point
// and workplane must exist.
func (d *Document) AddConstraint(group ID, data ConstraintData) (*Constraint, error) {
	if d.groups[group] == nil {
		return nil, fmt.Errorf("add %s: %w: %s", data.Type(), ErrGroupNotFound, group.Short())
	}
	co := &Constraint{ID: NewID(), Group: group, Data: data}
	if !co.IsValid(d) {
		return nil, fmt.Errorf("add %s: %w", data.Type(), ErrEntityNotFound)
	}
	d.constraints[co.ID] = co
	d.MarkSolvePending(group)
	return co, nil
}

// InsertGroup inserts a new group right after the group after, shifting
// later groups by one. The new group inherits after's active workplane.
func (d *Document) InsertGroup(data GroupData, name string, after ID) (*Group, error) {
	prev := d.groups[after]
	if prev == nil {
		return nil, fmt.Errorf("insert %s: %w: %s", data.Type(), ErrGroupNotFound, after.Short())
	}
	for _, g := range d.groups {
		if g.Index > prev.Index {
			g.Index++
		}
	}
	g := d.addGroup(data, name, prev.Index+1)
	g.ActiveWorkplane = prev.ActiveWorkplane
	d.MarkGeneratePending(g.ID)
	return g, nil
}

// SetPoint moves a point of a sketched entity to workplane coordinates
// (x, y) and marks its group pending.
func (d *Document) SetPoint(ep EntityAndPoint, x, y float64) error {
	en := d.entities[ep.Entity]
	if en == nil {
		return fmt.Errorf("set point: %w: %s", ErrEntityNotFound, ep.Entity.Short())
	}
	sk, ok := en.Data.(Sketched)
	if !ok || !en.IsValidPoint(ep.Point) {
		return fmt.Errorf("set point: %s has no movable point %d", en.Type(), ep.Point)
	}
	sk.SetPoint2D(ep.Point, geom.Vec2{X: x, Y: y})
	d.MarkGeneratePending(en.Group)
	return nil
}
