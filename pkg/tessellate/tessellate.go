// Package tessellate walks the bodies of an evaluated document and produces
// triangle meshes using a geometry kernel. One mesh is produced per body.
package tessellate

import (
	"fmt"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/kernel"
)

// BodySolid is the final solid of one body.
type BodySolid struct {
	Name  string
	Group document.ID // group whose solid closes the body
	Solid kernel.Solid
}

// Solids returns the final solid of every body that produced one, in
// evaluation order. Each group's solid already folds in the earlier groups
// of its body, so the last one wins.
func Solids(doc *document.Document) []BodySolid {
	if doc == nil {
		return nil
	}
	var out []BodySolid
	for _, bg := range doc.GroupsByBody() {
		var last *document.Group
		for _, g := range bg.Groups {
			if g.Solid != nil {
				last = g
			}
		}
		if last == nil {
			continue
		}
		out = append(out, BodySolid{Name: bodyName(bg, last), Group: last.ID, Solid: last.Solid})
	}
	return out
}

// bodyName prefers the body's name, then the name of the group that
// started it, then the closing group's short id.
func bodyName(bg document.BodyGroups, last *document.Group) string {
	if bg.Body != nil && bg.Body.Name != "" {
		return bg.Body.Name
	}
	if first := bg.Groups[0]; first.Name != "" {
		return first.Name
	}
	return last.ID.Short()
}

// Tessellate meshes the final solid of every body using the provided
// geometry kernel. The tessellator is read-only and never mutates the
// document.
func Tessellate(doc *document.Document, k kernel.Kernel) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, bs := range Solids(doc) {
		mesh, err := k.ToMesh(bs.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for body %s: %w", bs.Name, err)
		}
		mesh.Name = bs.Name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
