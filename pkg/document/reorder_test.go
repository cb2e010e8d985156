package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorderBeforeDependencyFails(t *testing.T) {
	f := newBoxFixture(t)
	before := f.indices()
	pending := f.doc.Pending()

	err := f.doc.ReorderGroup(f.extrude, f.reference)
	assert.True(t, errors.Is(err, ErrDependencyViolation))
	assert.Equal(t, before, f.indices())

	// moving the sketch after the extrude puts the extrude first
	err = f.doc.ReorderGroup(f.sketch, f.extrude)
	assert.True(t, errors.Is(err, ErrDependencyViolation))
	assert.Equal(t, before, f.indices())

	err = f.doc.ReorderGroup(f.sketch, None)
	assert.True(t, errors.Is(err, ErrDependencyViolation))
	assert.Equal(t, before, f.indices())

	assert.Equal(t, pending, f.doc.Pending())
}

func TestReorderIndependentGroups(t *testing.T) {
	f := newBoxFixture(t)
	a, err := f.doc.InsertGroup(&Sketch{}, "A", f.extrude)
	require.NoError(t, err)
	b, err := f.doc.InsertGroup(&Sketch{}, "B", a.ID)
	require.NoError(t, err)
	a.ActiveWorkplane = None
	b.ActiveWorkplane = None
	f.doc.UpdatePending(None, nil)

	tests := []struct {
		name    string
		move    ID
		after   ID
		want    []ID
		wantErr bool
	}{
		{name: "b after extrude", move: b.ID, after: f.extrude,
			want: []ID{f.reference, f.sketch, f.extrude, b.ID, a.ID}},
		{name: "a after reference", move: a.ID, after: f.reference,
			want: []ID{f.reference, a.ID, f.sketch, f.extrude, b.ID}},
		{name: "b to front", move: b.ID, after: None,
			want: []ID{b.ID, f.reference, a.ID, f.sketch, f.extrude}},
		{name: "extrude before its sketch", move: f.extrude, after: a.ID,
			want: []ID{b.ID, f.reference, a.ID, f.sketch, f.extrude}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.doc.ReorderGroup(tt.move, tt.after)
			if tt.wantErr {
				require.True(t, errors.Is(err, ErrDependencyViolation))
			} else {
				require.NoError(t, err)
			}

			got := make([]ID, 0, len(tt.want))
			for i, g := range f.doc.GroupsSorted() {
				assert.Equal(t, i, g.Index)
				got = append(got, g.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReorderExtrudeAfterLaterSketch(t *testing.T) {
	f := newBoxFixture(t)
	tail, err := f.doc.InsertGroup(&Sketch{}, "Tail", f.extrude)
	require.NoError(t, err)

	require.NoError(t, f.doc.ReorderGroup(f.extrude, tail.ID))
	idx := f.indices()
	assert.Equal(t, 2, idx[tail.ID])
	assert.Equal(t, 3, idx[f.extrude])

	require.NoError(t, f.doc.ReorderGroup(f.extrude, f.sketch))
	idx = f.indices()
	assert.Equal(t, 2, idx[f.extrude])
	assert.Equal(t, 3, idx[tail.ID])
}

func TestReorderUnknownGroup(t *testing.T) {
	f := newBoxFixture(t)
	assert.True(t, errors.Is(f.doc.ReorderGroup(NewID(), f.sketch), ErrGroupNotFound))
	assert.True(t, errors.Is(f.doc.ReorderGroup(f.sketch, NewID()), ErrGroupNotFound))
}
