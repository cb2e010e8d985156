// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// ErrEmptyProfile is returned when asked to extrude a profile with no area.
var ErrEmptyProfile = errors.New("sdfx: profile encloses no area")

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel meshing at the given marching-cubes
// resolution. Non-positive values select DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func toV2(v geom.Vec2) v2.Vec { return v2.Vec{X: v.X, Y: v.Y} }
func toV3(v geom.Vec3) v3.Vec { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// profile2D builds the 2D region for p: union of its loops and circles.
func profile2D(p kernel.Profile) (sdf.SDF2, error) {
	var parts []sdf.SDF2
	for i, loop := range p.Loops {
		if len(loop) < 3 {
			return nil, fmt.Errorf("sdfx: loop %d has %d vertices, need at least 3", i, len(loop))
		}
		vs := make([]v2.Vec, len(loop))
		for j, v := range loop {
			vs[j] = toV2(v)
		}
		poly, err := sdf.Polygon2D(vs)
		if err != nil {
			return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
		}
		parts = append(parts, poly)
	}
	for _, c := range p.Circles {
		circle, err := sdf.Circle2D(c.Radius)
		if err != nil {
			return nil, fmt.Errorf("sdfx.Circle2D: %w", err)
		}
		parts = append(parts, sdf.Transform2D(circle, sdf.Translate2d(toV2(c.Center))))
	}
	switch len(parts) {
	case 0:
		return nil, ErrEmptyProfile
	case 1:
		return parts[0], nil
	}
	return sdf.Union2D(parts...), nil
}

// frameMatrix maps local profile space (x, y, z) onto f.
// sdfx has no direct basis constructor, so the frame is reached by turning
// +Z onto N and then spinning about N until +X lands on U.
func frameMatrix(f kernel.Frame) sdf.M44 {
	n := f.N.Normalize()
	if n.Len() == 0 {
		n = f.U.Cross(f.V).Normalize()
	}
	m := sdf.RotateToVector(v3.Vec{Z: 1}, toV3(n))
	xImage := m.MulPosition(v3.Vec{X: 1})
	x := geom.Vec3{X: xImage.X, Y: xImage.Y, Z: xImage.Z}
	u := f.U.Normalize()
	angle := math.Atan2(x.Cross(u).Dot(n), x.Dot(u))
	m = sdf.Rotate3d(toV3(n), angle).Mul(m)
	return sdf.Translate3d(toV3(f.Origin)).Mul(m)
}

// Extrude sweeps the profile along the frame normal. sdf.Extrude3D is
// centered on z=0, so the result is shifted to start on the profile plane.
func (k *SdfxKernel) Extrude(p kernel.Profile, f kernel.Frame, height float64) (kernel.Solid, error) {
	if height == 0 {
		return nil, errors.New("sdfx: extrude height is zero")
	}
	region, err := profile2D(p)
	if err != nil {
		return nil, err
	}
	s := sdf.Extrude3D(region, math.Abs(height))
	s = sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))
	return wrap(sdf.Transform3D(s, frameMatrix(f))), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// WriteSTL renders the solid with marching cubes and writes a binary STL.
func (k *SdfxKernel) WriteSTL(s kernel.Solid, path string) error {
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	if len(triangles) == 0 {
		return fmt.Errorf("sdfx: solid rendered no triangles for %s", path)
	}
	return render.SaveSTL(path, triangles)
}
