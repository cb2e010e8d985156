// Package kernel defines the abstract geometry kernel interface.
// Implementations turn sketch profiles into solids and solids into
// triangle meshes. The document core only sees this interface, so the
// backend can be swapped without touching evaluation.
package kernel

import "github.com/chazu/strata/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Circle is a full circle in profile coordinates.
type Circle struct {
	Center geom.Vec2
	Radius float64
}

// Profile is a planar region: the union of closed polygon loops and circles,
// in the local coordinates of a workplane.
type Profile struct {
	Loops   [][]geom.Vec2
	Circles []Circle
}

// IsEmpty reports whether the profile encloses nothing.
func (p Profile) IsEmpty() bool {
	return len(p.Loops) == 0 && len(p.Circles) == 0
}

// Frame places profile coordinates in world space: a local point (x, y, z)
// maps to Origin + x*U + y*V + z*N.
type Frame struct {
	Origin geom.Vec3
	U      geom.Vec3
	V      geom.Vec3
	N      geom.Vec3
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Extrude sweeps p along the frame normal by height. A negative height
	// extrudes in the opposite direction.
	Extrude(p Profile, f Frame, height float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
	WriteSTL(s Solid, path string) error
}
