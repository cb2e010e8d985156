package document

import (
	"fmt"

	"github.com/chazu/strata/pkg/geom"
)

// Point returns the world coordinates of ep. Points of sketched entities
// are mapped through their workplane.
func (d *Document) Point(ep EntityAndPoint) (geom.Vec3, error) {
	en := d.entities[ep.Entity]
	if en == nil {
		return geom.Vec3{}, fmt.Errorf("point %s: %w", ep, ErrEntityNotFound)
	}
	if !en.IsValidPoint(ep.Point) {
		return geom.Vec3{}, fmt.Errorf("point %s: %s has %d points", ep, en.Type(), en.Data.PointCount())
	}
	switch data := en.Data.(type) {
	case Spatial:
		return data.Point3D(ep.Point), nil
	case Sketched:
		wp, ok := d.workplane(data.WorkplaneID())
		if !ok {
			return geom.Vec3{}, fmt.Errorf("point %s: workplane %w", ep, ErrEntityNotFound)
		}
		return wp.ToWorld(data.Point2D(ep.Point)), nil
	}
	return geom.Vec3{}, fmt.Errorf("point %s: %s has no coordinates", ep, en.Type())
}

// IsValidPoint reports whether ep names an existing point. Point 0 is the
// whole entity and is never a valid point.
func (d *Document) IsValidPoint(ep EntityAndPoint) bool {
	en := d.entities[ep.Entity]
	return en != nil && en.IsValidPoint(ep.Point)
}

func (d *Document) workplane(id ID) (*Workplane, bool) {
	en := d.entities[id]
	if en == nil {
		return nil, false
	}
	wp, ok := en.Data.(*Workplane)
	return wp, ok
}

// Workplane returns the workplane entity data with the given id.
func (d *Document) Workplane(id ID) (*Workplane, error) {
	wp, ok := d.workplane(id)
	if !ok {
		return nil, fmt.Errorf("workplane %s: %w", id.Short(), ErrEntityNotFound)
	}
	return wp, nil
}

// SnapKind picks the constraint to apply when a point is dropped onto
// hover: coincidence for an existing point, point-on-line for a bare line
// and point-on-circle for a bare circle or arc. It reports false when
// nothing applies.
func (d *Document) SnapKind(hover EntityAndPoint) (ConstraintType, bool) {
	en := d.entities[hover.Entity]
	if en == nil {
		return 0, false
	}
	if en.IsValidPoint(hover.Point) {
		return ConstraintPointsCoincident, true
	}
	if hover.Point != 0 {
		return 0, false
	}
	switch t := en.Type(); {
	case t.IsLine():
		return ConstraintPointOnLine, true
	case t.IsCircular():
		return ConstraintPointOnCircle, true
	}
	return 0, false
}

// Constrain ties point to target with a constraint of kind in group. It
// returns nil without error when kind is not a snap constraint.
func (d *Document) Constrain(kind ConstraintType, group, workplane ID, target, point EntityAndPoint) (*Constraint, error) {
	var data ConstraintData
	switch kind {
	case ConstraintPointsCoincident:
		data = &PointsCoincident{A: target, B: point, Workplane: workplane}
	case ConstraintPointOnLine:
		data = &PointOnLine{Line: target.Entity, Point: point, Workplane: workplane}
	case ConstraintPointOnCircle:
		data = &PointOnCircle{Circle: target.Entity, Point: point}
	default:
		return nil, nil
	}
	return d.AddConstraint(group, data)
}

// TwoPoints is a pair of addressed points.
type TwoPoints struct {
	A, B EntityAndPoint
}

// LineAndPoint is a bare line together with an addressed point.
type LineAndPoint struct {
	Line  ID
	Point EntityAndPoint
}

// CircleAndPoint is a bare circle or arc together with an addressed point.
type CircleAndPoint struct {
	Circle ID
	Point  EntityAndPoint
}

// TwoPointsFromSelection interprets sel as two points: either a single
// bare line (its endpoints) or two valid points.
func (d *Document) TwoPointsFromSelection(sel []EntityAndPoint) (TwoPoints, bool) {
	switch len(sel) {
	case 1:
		en := d.entities[sel[0].Entity]
		if en == nil || sel[0].Point != 0 || !en.Type().IsLine() {
			return TwoPoints{}, false
		}
		return TwoPoints{A: EntityAndPoint{en.ID, 1}, B: EntityAndPoint{en.ID, 2}}, true
	case 2:
		if !d.IsValidPoint(sel[0]) || !d.IsValidPoint(sel[1]) {
			return TwoPoints{}, false
		}
		return TwoPoints{A: sel[0], B: sel[1]}, true
	}
	return TwoPoints{}, false
}

// LineAndPointFromSelection interprets sel as one valid point and one bare
// line, in either order. Unless allowSame is set they must be different
// entities.
func (d *Document) LineAndPointFromSelection(sel []EntityAndPoint, allowSame bool) (LineAndPoint, bool) {
	if len(sel) != 2 {
		return LineAndPoint{}, false
	}
	pt, line := sel[0], sel[1]
	if !allowSame && pt.Entity == line.Entity {
		return LineAndPoint{}, false
	}
	if d.IsValidPoint(line) {
		pt, line = line, pt
	}
	if !d.IsValidPoint(pt) || line.Point != 0 {
		return LineAndPoint{}, false
	}
	en := d.entities[line.Entity]
	if en == nil || !en.Type().IsLine() {
		return LineAndPoint{}, false
	}
	return LineAndPoint{Line: line.Entity, Point: pt}, true
}

// CircleAndPointFromSelection interprets sel as one point and one bare
// circle or arc, in either order.
func (d *Document) CircleAndPointFromSelection(sel []EntityAndPoint, allowSame bool) (CircleAndPoint, bool) {
	if len(sel) != 2 {
		return CircleAndPoint{}, false
	}
	if !allowSame && sel[0].Entity == sel[1].Entity {
		return CircleAndPoint{}, false
	}
	if (sel[0].Point == 0) == (sel[1].Point == 0) {
		return CircleAndPoint{}, false
	}
	circle, pt := sel[0], sel[1]
	if circle.Point != 0 {
		circle, pt = pt, circle
	}
	en := d.entities[circle.Entity]
	if en == nil || !en.Type().IsCircular() {
		return CircleAndPoint{}, false
	}
	return CircleAndPoint{Circle: circle.Entity, Point: pt}, true
}
