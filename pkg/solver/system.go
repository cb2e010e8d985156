package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/geom"
)

// param is one scalar unknown living inside an entity.
type param struct {
	data  document.EntityData
	point int // 0 addresses a circle radius
	axis  int // 0 x, 1 y
	scale float64
}

func (p param) get() float64 {
	if p.point == 0 {
		return p.data.(*document.Circle2D).Radius
	}
	v := p.data.(document.Sketched).Point2D(p.point)
	if p.axis == 0 {
		return v.X
	}
	return v.Y
}

func (p param) set(f float64) {
	if p.point == 0 {
		p.data.(*document.Circle2D).Radius = f
		return
	}
	sk := p.data.(document.Sketched)
	v := sk.Point2D(p.point)
	if p.axis == 0 {
		v.X = f
	} else {
		v.Y = f
	}
	sk.SetPoint2D(p.point, v)
}

// equation returns the residuals of one constraint; all zero when it holds.
type equation func() []float64

// system is the equation system of one group.
type system struct {
	doc       *document.Document
	params    []param
	equations []equation
}

func newSystem(doc *document.Document, group document.ID, dragged []document.EntityAndPoint) *system {
	sys := &system{doc: doc}

	isDragged := map[document.EntityAndPoint]bool{}
	for _, ep := range dragged {
		isDragged[ep] = true
	}

	for _, en := range doc.EntitiesInGroup(group) {
		if en.Kind != document.KindUser {
			continue
		}
		sk, ok := en.Data.(document.Sketched)
		if !ok {
			continue
		}
		for pt := 1; pt <= sk.PointCount(); pt++ {
			scale := 1.0
			if isDragged[document.EntityAndPoint{Entity: en.ID, Point: pt}] {
				scale = dragScale
			}
			sys.params = append(sys.params,
				param{data: sk, point: pt, axis: 0, scale: scale},
				param{data: sk, point: pt, axis: 1, scale: scale},
			)
		}
		switch data := en.Data.(type) {
		case *document.Circle2D:
			sys.params = append(sys.params, param{data: data, scale: 1})
		case *document.Arc2D:
			sys.equations = append(sys.equations, func() []float64 {
				return []float64{data.Center.Dist(data.To) - data.Center.Dist(data.From)}
			})
		}
	}

	for _, co := range doc.ConstraintsInGroup(group) {
		if eq := sys.constraintEquation(co); eq != nil {
			sys.equations = append(sys.equations, eq)
		}
	}
	return sys
}

func (s *system) values() []float64 {
	x := make([]float64, len(s.params))
	for i, p := range s.params {
		x[i] = p.get()
	}
	return x
}

func (s *system) setValues(x []float64) {
	for i, p := range s.params {
		p.set(x[i])
	}
}

func (s *system) scales() []float64 {
	out := make([]float64, len(s.params))
	for i, p := range s.params {
		out[i] = p.scale
	}
	return out
}

func (s *system) residuals() []float64 {
	var r []float64
	for _, eq := range s.equations {
		r = append(r, eq()...)
	}
	return r
}

// jacobian is the forward-difference Jacobian at x, where r are the
// residuals at x. Parameters are left at x.
func (s *system) jacobian(x, r []float64) *mat.Dense {
	J := mat.NewDense(len(r), len(x), nil)
	for j := range x {
		h := jacobianStep * math.Max(1, math.Abs(x[j]))
		s.params[j].set(x[j] + h)
		rh := s.residuals()
		s.params[j].set(x[j])
		for i := range r {
			J.Set(i, j, (rh[i]-r[i])/h)
		}
	}
	return J
}

// point returns world coordinates, or the zero vector for a point the
// invalid-constraint sweep should already have removed.
func (s *system) point(ep document.EntityAndPoint) geom.Vec3 {
	p, _ := s.doc.Point(ep)
	return p
}

// plane returns the in-plane axes of workplane id, if it exists.
func (s *system) plane(id document.ID) (u, v geom.Vec3, ok bool) {
	if id.IsNone() {
		return u, v, false
	}
	wp, err := s.doc.Workplane(id)
	if err != nil {
		return u, v, false
	}
	return wp.U, wp.V, true
}

// difference returns a-b, projected into the workplane when there is one.
func (s *system) difference(a, b geom.Vec3, wp document.ID) []float64 {
	d := a.Sub(b)
	if u, v, ok := s.plane(wp); ok {
		return []float64{d.Dot(u), d.Dot(v)}
	}
	return []float64{d.X, d.Y, d.Z}
}

func (s *system) distance(a, b geom.Vec3, wp document.ID) float64 {
	d := s.difference(a, b, wp)
	var sum float64
	for _, v := range d {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// lineWorkplane picks the constraint's workplane, falling back to the
// line's own.
func (s *system) lineWorkplane(line, wp document.ID) document.ID {
	if !wp.IsNone() {
		return wp
	}
	if en := s.doc.Entity(line); en != nil {
		if sk, ok := en.Data.(document.Sketched); ok {
			return sk.WorkplaneID()
		}
	}
	return document.None
}

func (s *system) circle(id document.ID) (center geom.Vec3, radius float64, ok bool) {
	en := s.doc.Entity(id)
	if en == nil {
		return center, 0, false
	}
	switch data := en.Data.(type) {
	case *document.Circle2D:
		return s.point(document.EntityAndPoint{Entity: id, Point: 1}), data.Radius, true
	case *document.Arc2D:
		return s.point(document.EntityAndPoint{Entity: id, Point: 3}), data.Radius(), true
	}
	return center, 0, false
}

func (s *system) constraintEquation(co *document.Constraint) equation {
	switch c := co.Data.(type) {
	case *document.PointsCoincident:
		return func() []float64 {
			return s.difference(s.point(c.A), s.point(c.B), c.Workplane)
		}

	case *document.PointDistance:
		return func() []float64 {
			return []float64{s.distance(s.point(c.A), s.point(c.B), c.Workplane) - c.Distance}
		}

	case *document.PointOnLine:
		return func() []float64 {
			a := s.point(document.EntityAndPoint{Entity: c.Line, Point: 1})
			b := s.point(document.EntityAndPoint{Entity: c.Line, Point: 2})
			p := s.point(c.Point)
			dir := b.Sub(a)
			l := dir.Len()
			if l == 0 {
				return s.difference(p, a, c.Workplane)
			}
			if u, v, ok := s.plane(c.Workplane); ok {
				d2 := geom.Vec2{X: dir.Dot(u), Y: dir.Dot(v)}
				p2 := geom.Vec2{X: p.Sub(a).Dot(u), Y: p.Sub(a).Dot(v)}
				return []float64{d2.Cross(p2) / l}
			}
			x := dir.Cross(p.Sub(a)).Scale(1 / l)
			return []float64{x.X, x.Y, x.Z}
		}

	case *document.PointOnCircle:
		return func() []float64 {
			center, r, ok := s.circle(c.Circle)
			if !ok {
				return []float64{0}
			}
			return []float64{s.point(c.Point).Dist(center) - r}
		}

	case *document.Horizontal, *document.Vertical:
		var line, wp document.ID
		axis := 1
		if h, ok := c.(*document.Horizontal); ok {
			line, wp = h.Line, h.Workplane
		} else {
			v := c.(*document.Vertical)
			line, wp, axis = v.Line, v.Workplane, 0
		}
		wp = s.lineWorkplane(line, wp)
		return func() []float64 {
			a := s.point(document.EntityAndPoint{Entity: line, Point: 1})
			b := s.point(document.EntityAndPoint{Entity: line, Point: 2})
			u, v, ok := s.plane(wp)
			if !ok {
				return []float64{0}
			}
			d := b.Sub(a)
			if axis == 0 {
				return []float64{d.Dot(u)}
			}
			return []float64{d.Dot(v)}
		}

	case *document.Diameter:
		return func() []float64 {
			_, r, ok := s.circle(c.Circle)
			if !ok {
				return []float64{0}
			}
			return []float64{2*r - c.Value}
		}
	}
	return nil
}
