package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteSketchCascades(t *testing.T) {
	f := newBoxFixture(t)

	removed := f.doc.Delete(ItemsToDelete{Groups: NewIDSet(f.sketch)})

	assert.Nil(t, f.doc.Group(f.sketch))
	assert.Nil(t, f.doc.Group(f.extrude), "extrude requires the sketch")
	for _, id := range f.lines {
		assert.Nil(t, f.doc.Entity(id))
		assert.True(t, removed.Entities.Has(id))
	}
	assert.Nil(t, f.doc.Constraint(f.corner))
	assert.True(t, removed.Constraints.Has(f.corner))
	assert.True(t, removed.Groups.Has(f.extrude))
	assert.Empty(t, f.doc.EntitiesInGroup(f.extrude))

	f.doc.UpdatePending(None, nil)
	requireConstraintsValid(t, f.doc)
	assert.Len(t, f.doc.GroupsSorted(), 1)
}

func TestRemoveConstraint(t *testing.T) {
	f := newBoxFixture(t)

	require.NoError(t, f.doc.RemoveConstraint(f.corner))
	assert.Nil(t, f.doc.Constraint(f.corner))
	for _, id := range f.lines {
		assert.NotNil(t, f.doc.Entity(id), "geometry stays")
	}
	assert.False(t, f.doc.Pending().IsZero(), "the sketch must be re-solved")
	f.doc.UpdatePending(None, nil)
	assert.True(t, f.doc.Pending().IsZero())

	err := f.doc.RemoveConstraint(f.corner)
	assert.ErrorIs(t, err, ErrConstraintNotFound)
}

func TestAdditionalItemsExcludesInput(t *testing.T) {
	f := newBoxFixture(t)

	initial := ItemsToDelete{Entities: NewIDSet(f.lines[0])}
	extra := f.doc.AdditionalItemsToDelete(initial)

	assert.False(t, extra.Entities.Has(f.lines[0]))
	assert.True(t, extra.Constraints.Has(f.corner))
	for _, role := range []string{"top", "side", "vertex"} {
		assert.True(t, extra.Entities.Has(generatedID(f.extrude, f.lines[0], role)), role)
	}
	assert.Empty(t, extra.Groups)
	assert.Len(t, initial.Entities, 1, "input must not be modified")
}

func TestAdditionalItemsIsFixedPoint(t *testing.T) {
	f := newBoxFixture(t)

	cases := map[string]ItemsToDelete{
		"sketch group":   {Groups: NewIDSet(f.sketch)},
		"line":           {Entities: NewIDSet(f.lines[1])},
		"workplane":      {Entities: NewIDSet(f.workplane)},
		"constraint":     {Constraints: NewIDSet(f.corner)},
		"reference":      {Groups: NewIDSet(f.reference)},
		"extrude + line": {Groups: NewIDSet(f.extrude), Entities: NewIDSet(f.lines[3])},
	}
	for name, initial := range cases {
		t.Run(name, func(t *testing.T) {
			all := initial.Clone()
			all.Append(f.doc.AdditionalItemsToDelete(initial))

			again := f.doc.AdditionalItemsToDelete(all)
			assert.True(t, again.Empty(), "closure grew by %d", again.Len())
		})
	}
}

func TestDeleteWorkplaneTransitively(t *testing.T) {
	f := newBoxFixture(t)

	f.doc.Delete(ItemsToDelete{Entities: NewIDSet(f.workplane)})

	for _, id := range f.lines {
		assert.Nil(t, f.doc.Entity(id), "line on a deleted workplane")
	}
	assert.Nil(t, f.doc.Group(f.extrude), "extrude requires the source workplane")
	sketch := f.doc.Group(f.sketch)
	require.NotNil(t, sketch)
	assert.True(t, sketch.ActiveWorkplane.IsNone())

	f.doc.UpdatePending(None, nil)
	requireConstraintsValid(t, f.doc)
}

func TestDeleteReferenceRemovesEverything(t *testing.T) {
	f := newBoxFixture(t)

	f.doc.Delete(ItemsToDelete{Groups: NewIDSet(f.reference)})
	f.doc.UpdatePending(None, nil)

	assert.Empty(t, f.doc.Entities())
	assert.Empty(t, f.doc.Constraints())
	assert.Nil(t, f.doc.Group(f.extrude))
	assert.NotNil(t, f.doc.Group(f.sketch), "an empty sketch has no requirements")
}

func TestDeleteMarksFirstTouchedGroup(t *testing.T) {
	f := newBoxFixture(t)

	f.doc.Delete(ItemsToDelete{Constraints: NewIDSet(f.corner)})
	p := f.doc.Pending()
	assert.Equal(t, f.sketch, p.Generate)
	assert.Equal(t, f.sketch, p.Solve)

	f.doc.UpdatePending(None, nil)
	f.doc.Delete(ItemsToDelete{Groups: NewIDSet(f.sketch)})
	assert.True(t, f.doc.Pending().IsZero(), "no group survives at or after the cut")
}

func TestDeleteMarksSurvivorAfterCut(t *testing.T) {
	f := newBoxFixture(t)
	tail, err := f.doc.InsertGroup(&Sketch{}, "Tail", f.extrude)
	require.NoError(t, err)
	f.doc.UpdatePending(None, nil)

	f.doc.Delete(ItemsToDelete{Groups: NewIDSet(f.extrude)})
	assert.Equal(t, tail.ID, f.doc.Pending().Generate)
}

func TestItemsToDeleteZeroValue(t *testing.T) {
	var items ItemsToDelete
	assert.True(t, items.Empty())

	items.Append(ItemsToDelete{Entities: NewIDSet(NewID())})
	assert.Equal(t, 1, items.Len())

	items.Subtract(items.Clone())
	assert.True(t, items.Empty())
}
