package document

import "fmt"

// ConstraintType enumerates the constraint variants.
type ConstraintType int

const (
	ConstraintPointsCoincident ConstraintType = iota
	ConstraintPointOnLine
	ConstraintPointOnCircle
	ConstraintPointDistance
	ConstraintHorizontal
	ConstraintVertical
	ConstraintDiameter
)

func (t ConstraintType) String() string {
	switch t {
	case ConstraintPointsCoincident:
		return "points_coincident"
	case ConstraintPointOnLine:
		return "point_on_line"
	case ConstraintPointOnCircle:
		return "point_on_circle"
	case ConstraintPointDistance:
		return "point_distance"
	case ConstraintHorizontal:
		return "horizontal"
	case ConstraintVertical:
		return "vertical"
	case ConstraintDiameter:
		return "diameter"
	default:
		return "unknown"
	}
}

// Constraint relates entity points within one group.
type Constraint struct {
	ID    ID             `json:"-"`
	Group ID             `json:"group"`
	Data  ConstraintData `json:"-"`
}

// Type returns the variant of the constraint's data.
func (c *Constraint) Type() ConstraintType {
	return c.Data.Type()
}

// ReferencedEntities lists every entity the constraint touches.
func (c *Constraint) ReferencedEntities() []ID {
	var ids []ID
	for _, ep := range c.Data.Points() {
		ids = append(ids, ep.Entity)
	}
	if wp := c.Data.WorkplaneID(); !wp.IsNone() {
		ids = append(ids, wp)
	}
	return ids
}

// IsValid reports whether every referenced entity and point still exists.
func (c *Constraint) IsValid(doc *Document) bool {
	for _, ep := range c.Data.Points() {
		en := doc.Entity(ep.Entity)
		if en == nil {
			return false
		}
		if ep.Point != 0 && !en.IsValidPoint(ep.Point) {
			return false
		}
	}
	if wp := c.Data.WorkplaneID(); !wp.IsNone() && doc.Entity(wp) == nil {
		return false
	}
	return true
}

func (c *Constraint) clone() *Constraint {
	cc := *c
	cc.Data = c.Data.cloneData()
	return &cc
}

// ConstraintData is the interface for type-specific constraint parameters.
type ConstraintData interface {
	Type() ConstraintType
	// Points lists the addressed entity points; point 0 means the whole entity.
	Points() []EntityAndPoint
	// WorkplaneID is the workplane the constraint is projected into, or None.
	WorkplaneID() ID
	cloneData() ConstraintData
}

// PointsCoincident makes two points equal.
type PointsCoincident struct {
	A         EntityAndPoint `json:"a"`
	B         EntityAndPoint `json:"b"`
	Workplane ID             `json:"workplane,omitzero"`
}

func (*PointsCoincident) Type() ConstraintType { return ConstraintPointsCoincident }
func (c *PointsCoincident) Points() []EntityAndPoint {
	return []EntityAndPoint{c.A, c.B}
}
func (c *PointsCoincident) WorkplaneID() ID           { return c.Workplane }
func (c *PointsCoincident) cloneData() ConstraintData { cc := *c; return &cc }

// PointOnLine puts a point on the infinite extension of a line.
type PointOnLine struct {
	Line      ID             `json:"line"`
	Point     EntityAndPoint `json:"point"`
	Workplane ID             `json:"workplane,omitzero"`
}

func (*PointOnLine) Type() ConstraintType { return ConstraintPointOnLine }
func (c *PointOnLine) Points() []EntityAndPoint {
	return []EntityAndPoint{{Entity: c.Line}, c.Point}
}
func (c *PointOnLine) WorkplaneID() ID           { return c.Workplane }
func (c *PointOnLine) cloneData() ConstraintData { cc := *c; return &cc }

// PointOnCircle puts a point on a circle or arc.
type PointOnCircle struct {
	Circle ID             `json:"circle"`
	Point  EntityAndPoint `json:"point"`
}

func (*PointOnCircle) Type() ConstraintType { return ConstraintPointOnCircle }
func (c *PointOnCircle) Points() []EntityAndPoint {
	return []EntityAndPoint{{Entity: c.Circle}, c.Point}
}
func (*PointOnCircle) WorkplaneID() ID             { return None }
func (c *PointOnCircle) cloneData() ConstraintData { cc := *c; return &cc }

// PointDistance fixes the distance between two points.
type PointDistance struct {
	A         EntityAndPoint `json:"a"`
	B         EntityAndPoint `json:"b"`
	Distance  float64        `json:"distance"`
	Workplane ID             `json:"workplane,omitzero"`
}

func (*PointDistance) Type() ConstraintType { return ConstraintPointDistance }
func (c *PointDistance) Points() []EntityAndPoint {
	return []EntityAndPoint{c.A, c.B}
}
func (c *PointDistance) WorkplaneID() ID           { return c.Workplane }
func (c *PointDistance) cloneData() ConstraintData { cc := *c; return &cc }

// Horizontal aligns a line with its workplane's U axis.
type Horizontal struct {
	Line      ID `json:"line"`
	Workplane ID `json:"workplane,omitzero"`
}

func (*Horizontal) Type() ConstraintType        { return ConstraintHorizontal }
func (c *Horizontal) Points() []EntityAndPoint  { return []EntityAndPoint{{Entity: c.Line}} }
func (c *Horizontal) WorkplaneID() ID           { return c.Workplane }
func (c *Horizontal) cloneData() ConstraintData { cc := *c; return &cc }

// Vertical aligns a line with its workplane's V axis.
type Vertical struct {
	Line      ID `json:"line"`
	Workplane ID `json:"workplane,omitzero"`
}

func (*Vertical) Type() ConstraintType        { return ConstraintVertical }
func (c *Vertical) Points() []EntityAndPoint  { return []EntityAndPoint{{Entity: c.Line}} }
func (c *Vertical) WorkplaneID() ID           { return c.Workplane }
func (c *Vertical) cloneData() ConstraintData { cc := *c; return &cc }

// Diameter fixes the diameter of a circle or arc.
type Diameter struct {
	Circle ID      `json:"circle"`
	Value  float64 `json:"value"`
}

func (*Diameter) Type() ConstraintType        { return ConstraintDiameter }
func (c *Diameter) Points() []EntityAndPoint  { return []EntityAndPoint{{Entity: c.Circle}} }
func (*Diameter) WorkplaneID() ID             { return None }
func (c *Diameter) cloneData() ConstraintData { cc := *c; return &cc }

// newConstraintData returns zero-valued data for t, used when decoding.
func newConstraintData(t ConstraintType) (ConstraintData, error) {
	switch t {
	case ConstraintPointsCoincident:
		return &PointsCoincident{}, nil
	case ConstraintPointOnLine:
		return &PointOnLine{}, nil
	case ConstraintPointOnCircle:
		return &PointOnCircle{}, nil
	case ConstraintPointDistance:
		return &PointDistance{}, nil
	case ConstraintHorizontal:
		return &Horizontal{}, nil
	case ConstraintVertical:
		return &Vertical{}, nil
	case ConstraintDiameter:
		return &Diameter{}, nil
	}
	return nil, fmt.Errorf("unknown constraint type %d", int(t))
}
