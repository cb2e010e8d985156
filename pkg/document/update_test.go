package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/geom"
)

func TestUpdatePendingSolvesFromWatermark(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.reset()

	f.doc.MarkSolvePending(f.extrude)
	f.doc.UpdatePending(None, nil)

	assert.Equal(t, []ID{f.extrude}, rs.solved)
	assert.True(t, f.doc.Pending().IsZero())
}

func TestUpdatePendingSkipsReference(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.reset()

	f.doc.MarkGeneratePending(f.reference)
	f.doc.UpdatePending(None, nil)

	assert.Equal(t, []ID{f.sketch, f.extrude}, rs.solved)
	assert.Equal(t, 0, f.doc.Group(f.reference).DOF)
}

func TestUpdatePendingNothingPending(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.reset()

	f.doc.UpdatePending(None, nil)
	assert.Empty(t, rs.solved)
}

func TestUpdatePendingStopBeforeWatermark(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.reset()

	f.doc.MarkGeneratePending(f.extrude)
	f.doc.UpdatePending(f.sketch, nil)

	assert.Empty(t, rs.solved, "no group at or before the stop group is pending")
	p := f.doc.Pending()
	assert.Equal(t, f.extrude, p.Generate)
	assert.Equal(t, f.extrude, p.Solve)
	assert.Equal(t, f.extrude, p.Model)

	f.doc.UpdatePending(None, nil)
	assert.Equal(t, []ID{f.extrude}, rs.solved)
	assert.True(t, f.doc.Pending().IsZero())
}

func TestUpdatePendingStopAfterGroup(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.reset()

	f.doc.MarkGeneratePending(f.reference)
	f.doc.UpdatePending(f.sketch, nil)

	assert.Equal(t, []ID{f.sketch}, rs.solved)
	p := f.doc.Pending()
	assert.Equal(t, f.extrude, p.Generate)
	assert.Equal(t, f.extrude, p.Solve)
	assert.Equal(t, f.extrude, p.Model)
}

func TestUpdatePendingStopAtLastGroupClears(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))

	f.doc.MarkGeneratePending(f.sketch)
	f.doc.UpdatePending(f.extrude, nil)

	assert.True(t, f.doc.Pending().IsZero())
}

func TestUpdatePendingStopKeepsLaterWatermark(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	tail, err := f.doc.InsertGroup(&Sketch{}, "Tail", f.extrude)
	require.NoError(t, err)
	f.doc.UpdatePending(None, nil)
	rs.reset()

	f.doc.MarkSolvePending(tail.ID)
	f.doc.UpdatePending(f.reference, nil)

	assert.Empty(t, rs.solved)
	assert.Equal(t, tail.ID, f.doc.Pending().Solve, "watermark must not move upstream")
}

func TestUpdatePendingForwardsDragged(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.reset()

	drag := []EntityAndPoint{{f.lines[0], 1}}
	f.doc.MarkSolvePending(f.sketch)
	f.doc.UpdatePending(None, drag)

	require.Len(t, rs.dragged, 2)
	assert.Equal(t, drag, rs.dragged[0])
}

func TestSolveFailureIsNotFatal(t *testing.T) {
	rs := &recordingSolver{}
	f := newBoxFixture(t, WithSolver(rs))
	rs.status = map[ID]SolveStatus{f.sketch: SolveInconsistent}
	rs.reset()

	f.doc.MarkSolvePending(f.sketch)
	f.doc.UpdatePending(None, nil)

	assert.Equal(t, []ID{f.sketch, f.extrude}, rs.solved)
	assert.Equal(t, SolveInconsistent, f.doc.Group(f.sketch).Status)
	assert.Equal(t, 1, f.doc.Group(f.sketch).DOF)
	assert.Equal(t, SolveOK, f.doc.Group(f.extrude).Status)
}

func TestGenerateProducesEdges(t *testing.T) {
	f := newBoxFixture(t)

	generated := f.doc.EntitiesInGroup(f.extrude)
	require.Len(t, generated, 12)
	for _, en := range generated {
		assert.Equal(t, KindGenerated, en.Kind)
	}
	assert.Zero(t, countKind(f.doc, KindGeneratedStale))
}

func TestGenerateReusesIDs(t *testing.T) {
	f := newBoxFixture(t)
	before := NewIDSet()
	for _, en := range f.doc.EntitiesInGroup(f.extrude) {
		before.Add(en.ID)
	}

	f.doc.MarkGeneratePending(f.sketch)
	f.doc.UpdatePending(None, nil)

	after := NewIDSet()
	for _, en := range f.doc.EntitiesInGroup(f.extrude) {
		after.Add(en.ID)
	}
	assert.Equal(t, before, after)
}

func TestGeneratePurgesObsoleteEntities(t *testing.T) {
	f := newBoxFixture(t)

	f.doc.Entity(f.lines[3]).Construction = true
	f.doc.MarkGeneratePending(f.sketch)
	f.doc.UpdatePending(None, nil)

	generated := f.doc.EntitiesInGroup(f.extrude)
	assert.Len(t, generated, 9)
	for _, en := range generated {
		assert.NotEqual(t, []ID{f.lines[3]}, en.ReferencedEntities())
	}
	assert.Zero(t, countKind(f.doc, KindGeneratedStale))
}

func TestGenerateErrorIsRecorded(t *testing.T) {
	f := newBoxFixture(t)

	f.doc.Group(f.extrude).Data.(*Extrude).Source = NewID()
	f.doc.MarkGeneratePending(f.extrude)
	f.doc.UpdatePending(None, nil)

	g := f.doc.Group(f.extrude)
	assert.True(t, errors.Is(g.Err(), ErrGroupNotFound))
	assert.Empty(t, f.doc.EntitiesInGroup(f.extrude), "failed generate purges stale entities")
	assert.Zero(t, countKind(f.doc, KindGeneratedStale))
}

func TestRefreshFollowsSolvedSketch(t *testing.T) {
	moved := geom.Vec2{X: -2, Y: -3}
	var lineID ID
	solver := SolverFunc(func(doc *Document, group ID, _ []EntityAndPoint) SolveResult {
		if en := doc.Entity(lineID); en != nil && en.Group == group {
			en.Data.(*Line2D).From = moved
		}
		return SolveResult{Status: SolveOK}
	})
	f := newBoxFixture(t, WithSolver(solver))
	lineID = f.lines[0]

	f.doc.MarkSolvePending(f.sketch)
	f.doc.UpdatePending(None, nil)

	top := f.doc.Entity(generatedID(f.extrude, lineID, "top"))
	require.NotNil(t, top)
	assert.Equal(t, geom.Vec3{X: -2, Y: -3, Z: 5}, top.Data.(*Line3D).From)
}

func TestSolidModelWithKernel(t *testing.T) {
	k := &stubKernel{}
	f := newBoxFixture(t, WithKernel(k))

	g := f.doc.Group(f.extrude)
	require.NoError(t, g.Err())
	require.NotNil(t, g.Solid)
	assert.Equal(t, "extrude", g.Solid.(*stubSolid).op)
	assert.Equal(t, []float64{5}, k.heights)

	cut, err := f.doc.InsertGroup(&Extrude{Source: f.sketch, Height: 2, Mode: ExtrudeDifference}, "Cut", f.extrude)
	require.NoError(t, err)
	f.doc.UpdatePending(None, nil)

	require.NotNil(t, cut.Solid)
	assert.Equal(t, "difference", cut.Solid.(*stubSolid).op)
	assert.Same(t, g.Solid, cut.Solid.(*stubSolid).parts[0])
}

func TestSolidModelWithoutKernel(t *testing.T) {
	f := newBoxFixture(t)
	g := f.doc.Group(f.extrude)
	assert.Nil(t, g.Solid)
	assert.NoError(t, g.Err())
}

func TestSolidModelOpenProfile(t *testing.T) {
	k := &stubKernel{}
	f := newBoxFixture(t, WithKernel(k))

	f.doc.Delete(ItemsToDelete{Entities: NewIDSet(f.lines[2])})
	f.doc.UpdatePending(None, nil)

	g := f.doc.Group(f.extrude)
	assert.Nil(t, g.Solid)
	assert.True(t, errors.Is(g.Err(), ErrOpenProfile))
}

func TestEraseInvalid(t *testing.T) {
	f := newBoxFixture(t)

	delete(f.doc.entities, f.lines[1])
	assert.Equal(t, 1, f.doc.EraseInvalid())
	assert.Nil(t, f.doc.Constraint(f.corner))
	requireConstraintsValid(t, f.doc)
}
