package document_test

import (
	"fmt"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/geom"
)

// Building a 50x50 block by hand: draw a closed square in the default
// sketch, extrude it, and evaluate.
func Example() {
	doc := document.New()
	sketch := doc.GroupsSorted()[1]

	corners := []geom.Vec2{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 50}, {X: 0, Y: 50}}
	for i := range corners {
		_, err := doc.AddEntity(sketch.ID, &document.Line2D{
			Workplane: sketch.ActiveWorkplane,
			From:      corners[i],
			To:        corners[(i+1)%len(corners)],
		})
		if err != nil {
			panic(err)
		}
	}
	block, err := doc.InsertGroup(&document.Extrude{Source: sketch.ID, Height: 20}, "Block", sketch.ID)
	if err != nil {
		panic(err)
	}
	doc.UpdatePending(document.None, nil)

	for _, g := range doc.GroupsSorted() {
		fmt.Println(g.Index, g.Name, g.Type())
	}
	fmt.Println("generated entities:", len(doc.EntitiesInGroup(block.ID)))
	fmt.Println("pending:", !doc.Pending().IsZero())
	// Output:
	// 0 Reference reference
	// 1 Sketch sketch
	// 2 Block extrude
	// generated entities: 12
	// pending: false
}
