package document

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
)

// recordingSolver records the groups it was asked to solve.
type recordingSolver struct {
	solved  []ID
	dragged [][]EntityAndPoint
	status  map[ID]SolveStatus
}

func (s *recordingSolver) Solve(doc *Document, group ID, dragged []EntityAndPoint) SolveResult {
	s.solved = append(s.solved, group)
	s.dragged = append(s.dragged, dragged)
	if st, ok := s.status[group]; ok {
		return SolveResult{Status: st, DOF: 1}
	}
	return SolveResult{Status: SolveOK}
}

func (s *recordingSolver) reset() {
	s.solved = nil
	s.dragged = nil
}

type stubSolid struct {
	op    string
	parts []kernel.Solid
	min   [3]float64
	max   [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

// stubKernel builds stubSolids and counts extrusions.
type stubKernel struct {
	extrudes int
	heights  []float64
}

func (k *stubKernel) Extrude(p kernel.Profile, f kernel.Frame, height float64) (kernel.Solid, error) {
	k.extrudes++
	k.heights = append(k.heights, height)
	return &stubSolid{op: "extrude", max: [3]float64{0, 0, height}}, nil
}

func (k *stubKernel) Union(a, b kernel.Solid) kernel.Solid {
	return &stubSolid{op: "union", parts: []kernel.Solid{a, b}}
}

func (k *stubKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return &stubSolid{op: "difference", parts: []kernel.Solid{a, b}}
}

func (k *stubKernel) ToMesh(kernel.Solid) (*kernel.Mesh, error) { return &kernel.Mesh{}, nil }
func (k *stubKernel) WriteSTL(kernel.Solid, string) error       { return nil }

var _ kernel.Kernel = (*stubKernel)(nil)

// boxFixture is a document with a 10x10 square in the default sketch,
// extruded by 5.
type boxFixture struct {
	doc       *Document
	reference ID
	sketch    ID
	extrude   ID
	workplane ID
	lines     []ID
	corner    ID // coincident constraint between lines[0].2 and lines[1].1
}

func newBoxFixture(t *testing.T, opts ...Option) *boxFixture {
	t.Helper()
	doc := New(opts...)
	groups := doc.GroupsSorted()
	require.Len(t, groups, 2)

	f := &boxFixture{
		doc:       doc,
		reference: groups[0].ID,
		sketch:    groups[1].ID,
		workplane: groups[1].ActiveWorkplane,
	}

	corners := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	for i := range corners {
		en, err := doc.AddEntity(f.sketch, &Line2D{
			Workplane: f.workplane,
			From:      corners[i],
			To:        corners[(i+1)%len(corners)],
		})
		require.NoError(t, err)
		f.lines = append(f.lines, en.ID)
	}
	co, err := doc.AddConstraint(f.sketch, &PointsCoincident{
		A:         EntityAndPoint{f.lines[0], 2},
		B:         EntityAndPoint{f.lines[1], 1},
		Workplane: f.workplane,
	})
	require.NoError(t, err)
	f.corner = co.ID

	g, err := doc.InsertGroup(&Extrude{Source: f.sketch, Height: 5}, "Extrude", f.sketch)
	require.NoError(t, err)
	f.extrude = g.ID

	doc.UpdatePending(None, nil)
	return f
}

func (f *boxFixture) indices() map[ID]int {
	out := map[ID]int{}
	for _, g := range f.doc.GroupsSorted() {
		out[g.ID] = g.Index
	}
	return out
}

func countKind(doc *Document, kind ItemKind) int {
	n := 0
	for _, en := range doc.Entities() {
		if en.Kind == kind {
			n++
		}
	}
	return n
}

func requireConstraintsValid(t *testing.T, doc *Document) {
	t.Helper()
	for _, co := range doc.Constraints() {
		require.True(t, co.IsValid(doc), "constraint %s (%s) is dangling", co.ID.Short(), co.Type())
	}
}
