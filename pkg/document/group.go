package document

import (
	"fmt"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
)

// GroupType enumerates the feature kinds.
type GroupType int

const (
	GroupReference GroupType = iota
	GroupSketch
	GroupExtrude
)

func (t GroupType) String() string {
	switch t {
	case GroupReference:
		return "reference"
	case GroupSketch:
		return "sketch"
	case GroupExtrude:
		return "extrude"
	default:
		return "unknown"
	}
}

// SolveStatus is the outcome of solving one group.
type SolveStatus int

const (
	SolveNotRun SolveStatus = iota
	SolveOK
	SolveInconsistent  // equations cannot all be satisfied
	SolveDidntConverge // iteration cap reached
)

func (s SolveStatus) String() string {
	switch s {
	case SolveNotRun:
		return "not-run"
	case SolveOK:
		return "ok"
	case SolveInconsistent:
		return "inconsistent"
	case SolveDidntConverge:
		return "didnt-converge"
	default:
		return fmt.Sprintf("SolveStatus(%d)", int(s))
	}
}

// Body starts a new solid body at the group that carries it.
type Body struct {
	Name string `json:"name"`
}

// Group is one ordered feature step. Lower Index evaluates first.
type Group struct {
	ID              ID          `json:"-"`
	Name            string      `json:"name"`
	Index           int         `json:"index"`
	Body            *Body       `json:"body,omitempty"`
	DOF             int         `json:"-"`
	Status          SolveStatus `json:"-"`
	ActiveWorkplane ID          `json:"active_workplane,omitzero"`
	Data            GroupData   `json:"-"`

	// Solid is the derived solid model, combined with earlier groups of the
	// same body. Transient.
	Solid kernel.Solid `json:"-"`

	genErr   error
	modelErr error
}

// Type returns the variant of the group's data.
func (g *Group) Type() GroupType {
	return g.Data.Type()
}

func (g *Group) clone() *Group {
	c := *g
	if g.Body != nil {
		b := *g.Body
		c.Body = &b
	}
	c.Data = g.Data.cloneData()
	return &c
}

// GroupData is the interface for type-specific group parameters.
type GroupData interface {
	Type() GroupType
	// RequiredEntities are entities whose removal forces removal of the group.
	RequiredEntities(doc *Document) []ID
	// RequiredGroups are groups whose removal forces removal of the group.
	RequiredGroups(doc *Document) []ID
	cloneData() GroupData
}

// Generator is implemented by group data that produces entities.
type Generator interface {
	Generate(doc *Document, g *Group) error
}

// SolidModeler is implemented by group data that derives a solid.
type SolidModeler interface {
	UpdateSolidModel(doc *Document, g *Group) error
}

// Refresher is implemented by generating groups whose entities follow
// upstream geometry. Refresh runs in the solve stage, after every earlier
// group is solved, and only moves entities Generate already produced.
type Refresher interface {
	Refresh(doc *Document, g *Group)
}

// ---------------------------------------------------------------------------
// Reference
// ---------------------------------------------------------------------------

// Reference holds the three principal workplanes. It is always fully
// determined (zero DOF).
type Reference struct {
	XY ID `json:"xy"`
	YZ ID `json:"yz"`
	ZX ID `json:"zx"`
}

func (*Reference) Type() GroupType                 { return GroupReference }
func (*Reference) RequiredEntities(*Document) []ID { return nil }
func (*Reference) RequiredGroups(*Document) []ID   { return nil }
func (r *Reference) cloneData() GroupData          { c := *r; return &c }

// seedWorkplanes adds the principal workplanes to group g.
func (r *Reference) seedWorkplanes(doc *Document, g *Group) {
	add := func(name string, u, v geom.Vec3) ID {
		en := doc.insertEntity(g.ID, NewID(), KindUser, &Workplane{U: u, V: v})
		en.Name = name
		return en.ID
	}
	r.XY = add("XY", geom.Vec3{X: 1}, geom.Vec3{Y: 1})
	r.YZ = add("YZ", geom.Vec3{Y: 1}, geom.Vec3{Z: 1})
	r.ZX = add("ZX", geom.Vec3{Z: 1}, geom.Vec3{X: 1})
}

// ---------------------------------------------------------------------------
// Sketch
// ---------------------------------------------------------------------------

// Sketch holds user-drawn 2D geometry solved against its constraints.
type Sketch struct{}

func (*Sketch) Type() GroupType                 { return GroupSketch }
func (*Sketch) RequiredEntities(*Document) []ID { return nil }
func (*Sketch) RequiredGroups(*Document) []ID   { return nil }
func (*Sketch) cloneData() GroupData            { return &Sketch{} }

// newGroupData returns zero-valued data for t, used when decoding.
func newGroupData(t GroupType) (GroupData, error) {
	switch t {
	case GroupReference:
		return &Reference{}, nil
	case GroupSketch:
		return &Sketch{}, nil
	case GroupExtrude:
		return &Extrude{}, nil
	}
	return nil, fmt.Errorf("unknown group type %d", int(t))
}
