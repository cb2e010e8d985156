package tessellate_test

import (
	"errors"
	"testing"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
	"github.com/chazu/strata/pkg/kernel/sdfx"
	"github.com/chazu/strata/pkg/tessellate"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(48)
}

// addSquare draws a closed square into a sketch group.
func addSquare(t *testing.T, doc *document.Document, sketch document.ID, x0, y0, size float64) {
	t.Helper()
	wp := doc.Group(sketch).ActiveWorkplane
	corners := []geom.Vec2{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}
	for i := range corners {
		_, err := doc.AddEntity(sketch, &document.Line2D{
			Workplane: wp,
			From:      corners[i],
			To:        corners[(i+1)%len(corners)],
		})
		if err != nil {
			t.Fatalf("AddEntity failed: %v", err)
		}
	}
}

// extrude inserts an extrusion of sketch right after it.
func extrude(t *testing.T, doc *document.Document, sketch document.ID, name string, height float64) *document.Group {
	t.Helper()
	g, err := doc.InsertGroup(&document.Extrude{Source: sketch, Height: height}, name, sketch)
	if err != nil {
		t.Fatalf("InsertGroup failed: %v", err)
	}
	return g
}

func TestSingleBody(t *testing.T) {
	doc := document.New(document.WithKernel(newKernel()))
	sketch := doc.GroupsSorted()[1].ID
	addSquare(t, doc, sketch, 0, 0, 600)
	extrude(t, doc, sketch, "Shelf", 18)
	doc.UpdatePending(document.None, nil)

	meshes, err := tessellate.Tessellate(doc, doc.Kernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.Name != "Body" {
		t.Errorf("expected Name %q, got %q", "Body", m.Name)
	}
	if m.TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
}

func TestTwoBodies(t *testing.T) {
	doc := document.New(document.WithKernel(newKernel()))
	first := doc.GroupsSorted()[1].ID
	addSquare(t, doc, first, 0, 0, 400)
	side := extrude(t, doc, first, "Side", 18)

	second, err := doc.InsertGroup(&document.Sketch{}, "Top sketch", side.ID)
	if err != nil {
		t.Fatalf("InsertGroup failed: %v", err)
	}
	second.Body = &document.Body{Name: "top-panel"}
	addSquare(t, doc, second.ID, 500, 0, 300)
	extrude(t, doc, second.ID, "Top", 18)
	doc.UpdatePending(document.None, nil)

	solids := tessellate.Solids(doc)
	if len(solids) != 2 {
		t.Fatalf("expected 2 body solids, got %d", len(solids))
	}
	if solids[0].Group != side.ID {
		t.Errorf("first body should close at %s, got %s", side.ID.Short(), solids[0].Group.Short())
	}

	meshes, err := tessellate.Tessellate(doc, doc.Kernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	names := map[string]bool{}
	for _, m := range meshes {
		if m.IsEmpty() {
			t.Error("mesh should not be empty")
		}
		names[m.Name] = true
	}
	if !names["Body"] {
		t.Error("missing mesh for Body")
	}
	if !names["top-panel"] {
		t.Error("missing mesh for top-panel")
	}
}

func TestCutKeepsOneMesh(t *testing.T) {
	doc := document.New(document.WithKernel(newKernel()))
	sketch := doc.GroupsSorted()[1].ID
	addSquare(t, doc, sketch, 0, 0, 100)
	base := extrude(t, doc, sketch, "Base", 20)

	hole, err := doc.InsertGroup(&document.Sketch{}, "Hole sketch", base.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.AddEntity(hole.ID, &document.Circle2D{
		Workplane: hole.ActiveWorkplane,
		Center:    geom.Vec2{X: 50, Y: 50},
		Radius:    10,
	}); err != nil {
		t.Fatal(err)
	}
	cut, err := doc.InsertGroup(&document.Extrude{Source: hole.ID, Height: 20, Mode: document.ExtrudeDifference}, "Cut", hole.ID)
	if err != nil {
		t.Fatal(err)
	}
	doc.UpdatePending(document.None, nil)

	if err := cut.Err(); err != nil {
		t.Fatalf("cut failed: %v", err)
	}
	solids := tessellate.Solids(doc)
	if len(solids) != 1 || solids[0].Group != cut.ID {
		t.Fatalf("expected the cut to close the only body, got %+v", solids)
	}
}

func TestNoKernel(t *testing.T) {
	doc := document.New()
	sketch := doc.GroupsSorted()[1].ID
	addSquare(t, doc, sketch, 0, 0, 10)
	extrude(t, doc, sketch, "Block", 10)
	doc.UpdatePending(document.None, nil)

	meshes, err := tessellate.Tessellate(doc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Errorf("expected no meshes without solid models, got %d", len(meshes))
	}
}

func TestNilDocument(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel())
	if err != nil {
		t.Fatalf("Tessellate(nil) returned error: %v", err)
	}
	if meshes != nil {
		t.Errorf("expected nil meshes for nil document, got %d", len(meshes))
	}
}

type failingKernel struct {
	kernel.Kernel
}

func (failingKernel) ToMesh(kernel.Solid) (*kernel.Mesh, error) {
	return nil, errors.New("boom")
}

func TestMeshErrorIsWrapped(t *testing.T) {
	k := newKernel()
	doc := document.New(document.WithKernel(k))
	sketch := doc.GroupsSorted()[1].ID
	addSquare(t, doc, sketch, 0, 0, 10)
	extrude(t, doc, sketch, "Block", 10)
	doc.UpdatePending(document.None, nil)

	_, err := tessellate.Tessellate(doc, failingKernel{k})
	if err == nil {
		t.Fatal("expected an error")
	}
}
