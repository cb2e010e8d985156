package document

import (
	"fmt"

	"github.com/chazu/strata/pkg/geom"
)

// ItemKind records who owns an entity's lifetime.
type ItemKind int

const (
	KindUser           ItemKind = iota // authored, persisted
	KindGenerated                      // produced by the owning group's generate step
	KindGeneratedStale                 // generated before the current pass, not yet re-confirmed
)

func (k ItemKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindGenerated:
		return "generated"
	case KindGeneratedStale:
		return "generated-stale"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// EntityType enumerates the geometric entity variants.
type EntityType int

const (
	EntityWorkplane EntityType = iota
	EntityPoint2D
	EntityLine2D
	EntityCircle2D
	EntityArc2D
	EntityPoint3D
	EntityLine3D
)

func (t EntityType) String() string {
	switch t {
	case EntityWorkplane:
		return "workplane"
	case EntityPoint2D:
		return "point_2d"
	case EntityLine2D:
		return "line_2d"
	case EntityCircle2D:
		return "circle_2d"
	case EntityArc2D:
		return "arc_2d"
	case EntityPoint3D:
		return "point_3d"
	case EntityLine3D:
		return "line_3d"
	default:
		return "unknown"
	}
}

// IsLine reports whether t is a straight line segment.
func (t EntityType) IsLine() bool {
	return t == EntityLine2D || t == EntityLine3D
}

// IsCircular reports whether t is a circle or an arc.
func (t EntityType) IsCircular() bool {
	return t == EntityCircle2D || t == EntityArc2D
}

// EntityAndPoint addresses one point of an entity. Point 0 is the entity as
// a whole.
type EntityAndPoint struct {
	Entity ID  `json:"entity"`
	Point  int `json:"point"`
}

func (ep EntityAndPoint) String() string {
	return fmt.Sprintf("%s.%d", ep.Entity.Short(), ep.Point)
}

// Entity is a geometric object owned by exactly one group.
type Entity struct {
	ID           ID         `json:"-"`
	Group        ID         `json:"group"`
	Kind         ItemKind   `json:"-"`
	Name         string     `json:"name,omitempty"`
	Construction bool       `json:"construction,omitempty"`
	Data         EntityData `json:"-"`
}

// Type returns the variant of the entity's data.
func (e *Entity) Type() EntityType {
	return e.Data.Type()
}

// IsValidPoint reports whether point names an existing point of e.
func (e *Entity) IsValidPoint(point int) bool {
	return point >= 1 && point <= e.Data.PointCount()
}

// ReferencedEntities lists the entities e depends on.
func (e *Entity) ReferencedEntities() []ID {
	return e.Data.ReferencedEntities()
}

func (e *Entity) clone() *Entity {
	c := *e
	c.Data = e.Data.cloneData()
	return &c
}

// EntityData is the interface for type-specific entity parameters.
type EntityData interface {
	Type() EntityType
	// PointCount is the number of addressable points, numbered from 1.
	PointCount() int
	ReferencedEntities() []ID
	cloneData() EntityData
}

// Sketched is implemented by entities that live in a workplane.
type Sketched interface {
	EntityData
	WorkplaneID() ID
	Point2D(point int) geom.Vec2
	SetPoint2D(point int, v geom.Vec2)
}

// Spatial is implemented by entities with world-space coordinates.
type Spatial interface {
	EntityData
	Point3D(point int) geom.Vec3
}

// ---------------------------------------------------------------------------
// Workplane
// ---------------------------------------------------------------------------

// Workplane is a plane with an orthonormal frame. Point 1 is its origin.
type Workplane struct {
	Origin geom.Vec3 `json:"origin"`
	U      geom.Vec3 `json:"u"`
	V      geom.Vec3 `json:"v"`
}

func (*Workplane) Type() EntityType         { return EntityWorkplane }
func (*Workplane) PointCount() int          { return 1 }
func (*Workplane) ReferencedEntities() []ID { return nil }
func (w *Workplane) cloneData() EntityData  { c := *w; return &c }
func (w *Workplane) Point3D(int) geom.Vec3  { return w.Origin }

// Normal returns U × V.
func (w *Workplane) Normal() geom.Vec3 {
	return w.U.Cross(w.V).Normalize()
}

// ToWorld maps local coordinates to world coordinates.
func (w *Workplane) ToWorld(p geom.Vec2) geom.Vec3 {
	return w.Origin.Add(w.U.Scale(p.X)).Add(w.V.Scale(p.Y))
}

// ---------------------------------------------------------------------------
// 2D entities
// ---------------------------------------------------------------------------

// Point2D is a free point in a workplane.
type Point2D struct {
	Workplane ID        `json:"workplane"`
	P         geom.Vec2 `json:"p"`
}

func (*Point2D) Type() EntityType                { return EntityPoint2D }
func (*Point2D) PointCount() int                 { return 1 }
func (p *Point2D) ReferencedEntities() []ID      { return []ID{p.Workplane} }
func (p *Point2D) cloneData() EntityData         { c := *p; return &c }
func (p *Point2D) WorkplaneID() ID               { return p.Workplane }
func (p *Point2D) Point2D(int) geom.Vec2         { return p.P }
func (p *Point2D) SetPoint2D(_ int, v geom.Vec2) { p.P = v }

// Line2D is a segment in a workplane. Point 1 is From, point 2 is To.
type Line2D struct {
	Workplane ID        `json:"workplane"`
	From      geom.Vec2 `json:"from"`
	To        geom.Vec2 `json:"to"`
}

func (*Line2D) Type() EntityType           { return EntityLine2D }
func (*Line2D) PointCount() int            { return 2 }
func (l *Line2D) ReferencedEntities() []ID { return []ID{l.Workplane} }
func (l *Line2D) cloneData() EntityData    { c := *l; return &c }
func (l *Line2D) WorkplaneID() ID          { return l.Workplane }

func (l *Line2D) Point2D(point int) geom.Vec2 {
	if point == 2 {
		return l.To
	}
	return l.From
}

func (l *Line2D) SetPoint2D(point int, v geom.Vec2) {
	if point == 2 {
		l.To = v
		return
	}
	l.From = v
}

// Circle2D is a full circle in a workplane. Point 1 is the center.
type Circle2D struct {
	Workplane ID        `json:"workplane"`
	Center    geom.Vec2 `json:"center"`
	Radius    float64   `json:"radius"`
}

func (*Circle2D) Type() EntityType                { return EntityCircle2D }
func (*Circle2D) PointCount() int                 { return 1 }
func (c *Circle2D) ReferencedEntities() []ID      { return []ID{c.Workplane} }
func (c *Circle2D) cloneData() EntityData         { cc := *c; return &cc }
func (c *Circle2D) WorkplaneID() ID               { return c.Workplane }
func (c *Circle2D) Point2D(int) geom.Vec2         { return c.Center }
func (c *Circle2D) SetPoint2D(_ int, v geom.Vec2) { c.Center = v }

// Arc2D is a counter-clockwise arc. Points: 1 From, 2 To, 3 Center.
type Arc2D struct {
	Workplane ID        `json:"workplane"`
	From      geom.Vec2 `json:"from"`
	To        geom.Vec2 `json:"to"`
	Center    geom.Vec2 `json:"center"`
}

func (*Arc2D) Type() EntityType           { return EntityArc2D }
func (*Arc2D) PointCount() int            { return 3 }
func (a *Arc2D) ReferencedEntities() []ID { return []ID{a.Workplane} }
func (a *Arc2D) cloneData() EntityData    { c := *a; return &c }
func (a *Arc2D) WorkplaneID() ID          { return a.Workplane }

func (a *Arc2D) Point2D(point int) geom.Vec2 {
	switch point {
	case 2:
		return a.To
	case 3:
		return a.Center
	default:
		return a.From
	}
}

func (a *Arc2D) SetPoint2D(point int, v geom.Vec2) {
	switch point {
	case 2:
		a.To = v
	case 3:
		a.Center = v
	default:
		a.From = v
	}
}

// Radius is the distance from the center to the start point.
func (a *Arc2D) Radius() float64 {
	return a.Center.Dist(a.From)
}

// ---------------------------------------------------------------------------
// 3D entities
// ---------------------------------------------------------------------------

// Point3D is a point in world space, optionally derived from Source.
type Point3D struct {
	P      geom.Vec3 `json:"p"`
	Source ID        `json:"source,omitzero"`
}

func (*Point3D) Type() EntityType        { return EntityPoint3D }
func (*Point3D) PointCount() int         { return 1 }
func (p *Point3D) cloneData() EntityData { c := *p; return &c }
func (p *Point3D) Point3D(int) geom.Vec3 { return p.P }

func (p *Point3D) ReferencedEntities() []ID {
	if p.Source.IsNone() {
		return nil
	}
	return []ID{p.Source}
}

// Line3D is a segment in world space, optionally derived from Source.
type Line3D struct {
	From   geom.Vec3 `json:"from"`
	To     geom.Vec3 `json:"to"`
	Source ID        `json:"source,omitzero"`
}

func (*Line3D) Type() EntityType        { return EntityLine3D }
func (*Line3D) PointCount() int         { return 2 }
func (l *Line3D) cloneData() EntityData { c := *l; return &c }

func (l *Line3D) Point3D(point int) geom.Vec3 {
	if point == 2 {
		return l.To
	}
	return l.From
}

func (l *Line3D) ReferencedEntities() []ID {
	if l.Source.IsNone() {
		return nil
	}
	return []ID{l.Source}
}

// newEntityData returns zero-valued data for t, used when decoding.
func newEntityData(t EntityType) (EntityData, error) {
	switch t {
	case EntityWorkplane:
		return &Workplane{}, nil
	case EntityPoint2D:
		return &Point2D{}, nil
	case EntityLine2D:
		return &Line2D{}, nil
	case EntityCircle2D:
		return &Circle2D{}, nil
	case EntityArc2D:
		return &Arc2D{}, nil
	case EntityPoint3D:
		return &Point3D{}, nil
	case EntityLine3D:
		return &Line3D{}, nil
	}
	return nil, fmt.Errorf("unknown entity type %d", int(t))
}
