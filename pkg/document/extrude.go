package document

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
)

// ExtrudeMode selects how an extrusion combines with the body so far.
type ExtrudeMode int

const (
	ExtrudeUnion ExtrudeMode = iota
	ExtrudeDifference
)

func (m ExtrudeMode) String() string {
	switch m {
	case ExtrudeUnion:
		return "union"
	case ExtrudeDifference:
		return "difference"
	default:
		return fmt.Sprintf("ExtrudeMode(%d)", int(m))
	}
}

// ParseExtrudeMode parses "union" or "difference".
func ParseExtrudeMode(s string) (ExtrudeMode, error) {
	switch s {
	case "union", "":
		return ExtrudeUnion, nil
	case "difference":
		return ExtrudeDifference, nil
	}
	return 0, fmt.Errorf("unknown extrude mode %q", s)
}

func (m ExtrudeMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ExtrudeMode) UnmarshalText(b []byte) error {
	v, err := ParseExtrudeMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// profileTolerance is the gap below which two sketch endpoints join.
const profileTolerance = 1e-6

// Extrude sweeps the closed profile of the Source sketch along its
// workplane normal by Height.
type Extrude struct {
	Source ID          `json:"source"`
	Height float64     `json:"height"`
	Mode   ExtrudeMode `json:"mode"`
}

var (
	_ Generator    = (*Extrude)(nil)
	_ Refresher    = (*Extrude)(nil)
	_ SolidModeler = (*Extrude)(nil)
)

func (*Extrude) Type() GroupType        { return GroupExtrude }
func (e *Extrude) cloneData() GroupData { c := *e; return &c }

func (e *Extrude) RequiredGroups(*Document) []ID {
	return []ID{e.Source}
}

// RequiredEntities is the source sketch's workplane.
func (e *Extrude) RequiredEntities(doc *Document) []ID {
	src := doc.Group(e.Source)
	if src == nil || src.ActiveWorkplane.IsNone() {
		return nil
	}
	return []ID{src.ActiveWorkplane}
}

type generatedEntity struct {
	id   ID
	data EntityData
}

// generatedID derives a stable id for the role'th entity produced from
// source, so regeneration reuses ids.
func generatedID(group, source ID, role string) ID {
	return ID(uuid.NewSHA1(uuid.UUID(group), []byte(source.String()+"/"+role)))
}

// edges computes the top edge, one side edge and one top vertex for every
// non-construction line of the source sketch.
func (e *Extrude) edges(doc *Document, g *Group) ([]generatedEntity, error) {
	if doc.Group(e.Source) == nil {
		return nil, fmt.Errorf("extrude %s: source %w", g.Name, ErrGroupNotFound)
	}
	var out []generatedEntity
	for _, en := range doc.EntitiesInGroup(e.Source) {
		line, ok := en.Data.(*Line2D)
		if !ok || en.Construction {
			continue
		}
		wp, err := doc.Workplane(line.Workplane)
		if err != nil {
			return nil, fmt.Errorf("extrude %s: %w", g.Name, err)
		}
		offset := wp.Normal().Scale(e.Height)
		from := wp.ToWorld(line.From)
		to := wp.ToWorld(line.To)
		topFrom, topTo := from.Add(offset), to.Add(offset)
		out = append(out,
			generatedEntity{generatedID(g.ID, en.ID, "top"), &Line3D{From: topFrom, To: topTo, Source: en.ID}},
			generatedEntity{generatedID(g.ID, en.ID, "side"), &Line3D{From: from, To: topFrom, Source: en.ID}},
			generatedEntity{generatedID(g.ID, en.ID, "vertex"), &Point3D{P: topFrom, Source: en.ID}},
		)
	}
	return out, nil
}

// Generate creates or re-confirms the extruded edges.
func (e *Extrude) Generate(doc *Document, g *Group) error {
	edges, err := e.edges(doc, g)
	if err != nil {
		return err
	}
	for _, ge := range edges {
		doc.setGenerated(g.ID, ge.id, ge.data)
	}
	return nil
}

// Refresh moves existing edges to follow the solved source sketch.
func (e *Extrude) Refresh(doc *Document, g *Group) {
	edges, err := e.edges(doc, g)
	if err != nil {
		return
	}
	for _, ge := range edges {
		if en := doc.Entity(ge.id); en != nil && en.Group == g.ID && en.Kind == KindGenerated {
			en.Data = ge.data
		}
	}
}

// UpdateSolidModel extrudes the source profile and combines it with the
// previous solid of the same body.
func (e *Extrude) UpdateSolidModel(doc *Document, g *Group) error {
	k := doc.Kernel()
	src := doc.Group(e.Source)
	if src == nil {
		return fmt.Errorf("extrude %s: source %w", g.Name, ErrGroupNotFound)
	}
	wp, err := doc.Workplane(src.ActiveWorkplane)
	if err != nil {
		return fmt.Errorf("extrude %s: %w", g.Name, err)
	}
	profile, err := SketchProfile(doc, e.Source)
	if err != nil {
		return fmt.Errorf("extrude %s: %w", g.Name, err)
	}
	frame := kernel.Frame{Origin: wp.Origin, U: wp.U, V: wp.V, N: wp.Normal()}
	solid, err := k.Extrude(profile, frame, e.Height)
	if err != nil {
		return fmt.Errorf("extrude %s: %w", g.Name, err)
	}

	prev := doc.PreviousSolid(g.ID)
	switch {
	case e.Mode == ExtrudeDifference && prev == nil:
		return fmt.Errorf("extrude %s: nothing to cut", g.Name)
	case e.Mode == ExtrudeDifference:
		solid = k.Difference(prev, solid)
	case prev != nil:
		solid = k.Union(prev, solid)
	}
	g.Solid = solid
	return nil
}

// ErrOpenProfile is returned when sketch lines and arcs do not form closed
// loops.
var ErrOpenProfile = errors.New("profile is not closed")

// SketchProfile collects the closed loops and circles of a sketch group in
// workplane coordinates. Construction geometry is ignored and arcs are
// flattened to polylines.
func SketchProfile(doc *Document, group ID) (kernel.Profile, error) {
	var p kernel.Profile
	var segs [][]geom.Vec2
	for _, en := range doc.EntitiesInGroup(group) {
		if en.Construction {
			continue
		}
		switch data := en.Data.(type) {
		case *Line2D:
			segs = append(segs, []geom.Vec2{data.From, data.To})
		case *Arc2D:
			segs = append(segs, flattenArc(data))
		case *Circle2D:
			p.Circles = append(p.Circles, kernel.Circle{Center: data.Center, Radius: data.Radius})
		}
	}
	loops, err := chainLoops(segs)
	if err != nil {
		return kernel.Profile{}, err
	}
	p.Loops = loops
	if p.IsEmpty() {
		return kernel.Profile{}, fmt.Errorf("empty profile")
	}
	return p, nil
}

// chainLoops joins polylines end to end into closed loops. A polyline may be
// walked backwards.
func chainLoops(segs [][]geom.Vec2) ([][]geom.Vec2, error) {
	used := make([]bool, len(segs))
	var loops [][]geom.Vec2
	for start := range segs {
		if used[start] {
			continue
		}
		used[start] = true
		loop := append([]geom.Vec2(nil), segs[start]...)
		for !loop[0].Near(loop[len(loop)-1], profileTolerance) {
			end := loop[len(loop)-1]
			next := -1
			reverse := false
			for i, s := range segs {
				if used[i] {
					continue
				}
				if s[0].Near(end, profileTolerance) {
					next = i
					break
				}
				if s[len(s)-1].Near(end, profileTolerance) {
					next, reverse = i, true
					break
				}
			}
			if next < 0 {
				return nil, ErrOpenProfile
			}
			used[next] = true
			s := segs[next]
			if reverse {
				for i := len(s) - 2; i >= 0; i-- {
					loop = append(loop, s[i])
				}
			} else {
				loop = append(loop, s[1:]...)
			}
		}
		if len(loop) > 3 {
			loops = append(loops, loop[:len(loop)-1])
		}
	}
	return loops, nil
}

// flattenArc approximates a counter-clockwise arc with segments of at most
// π/16 radians.
func flattenArc(a *Arc2D) []geom.Vec2 {
	r := a.Radius()
	a0 := math.Atan2(a.From.Y-a.Center.Y, a.From.X-a.Center.X)
	a1 := math.Atan2(a.To.Y-a.Center.Y, a.To.X-a.Center.X)
	sweep := a1 - a0
	if sweep <= 0 {
		sweep += 2 * math.Pi
	}
	n := max(int(math.Ceil(sweep/(math.Pi/16))), 2)
	pts := make([]geom.Vec2, 0, n+1)
	for i := 0; i < n; i++ {
		t := a0 + sweep*float64(i)/float64(n)
		pts = append(pts, geom.Vec2{X: a.Center.X + r*math.Cos(t), Y: a.Center.Y + r*math.Sin(t)})
	}
	return append(pts, a.To)
}
