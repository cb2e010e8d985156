package document

// mark is an optional group reference. The zero value means nothing is
// pending and sorts after every group.
type mark struct {
	group ID
	set   bool
}

func pendingAt(id ID) mark {
	return mark{group: id, set: true}
}

// index resolves m to a group index. An unset mark, or one naming a group
// that no longer exists, resolves to ok == false.
func (d *Document) index(m mark) (int, bool) {
	if !m.set {
		return 0, false
	}
	g := d.groups[m.group]
	if g == nil {
		return 0, false
	}
	return g.Index, true
}

// lower returns whichever of cur and group comes first in evaluation order.
func (d *Document) lower(cur mark, group ID) mark {
	g := d.groups[group]
	if g == nil {
		return cur
	}
	idx, ok := d.index(cur)
	if !ok || g.Index < idx {
		return pendingAt(group)
	}
	return cur
}

// later returns whichever of cur and group comes last, used when a stopped
// pass defers the rest of the list.
func (d *Document) later(cur mark, group ID) mark {
	idx, ok := d.index(cur)
	if !ok {
		return pendingAt(group)
	}
	if g := d.groups[group]; g != nil && g.Index > idx {
		return pendingAt(group)
	}
	return cur
}

// MarkGeneratePending schedules group and everything after it for
// regeneration, which implies solving and solid-model derivation.
func (d *Document) MarkGeneratePending(group ID) {
	d.firstGenerate = d.lower(d.firstGenerate, group)
	d.MarkSolvePending(group)
}

// MarkSolvePending schedules group and everything after it for solving,
// which implies solid-model derivation.
func (d *Document) MarkSolvePending(group ID) {
	d.firstSolve = d.lower(d.firstSolve, group)
	d.MarkModelPending(group)
}

// MarkModelPending schedules group and everything after it for solid-model
// derivation.
func (d *Document) MarkModelPending(group ID) {
	d.firstModel = d.lower(d.firstModel, group)
}

// PendingState reports the three watermarks. None means nothing pending.
type PendingState struct {
	Generate ID
	Solve    ID
	Model    ID
}

// IsZero reports whether no stage has pending work.
func (p PendingState) IsZero() bool {
	return p.Generate.IsNone() && p.Solve.IsNone() && p.Model.IsNone()
}

// Pending returns the current watermarks. A watermark naming a deleted
// group reports None.
func (d *Document) Pending() PendingState {
	resolve := func(m mark) ID {
		if _, ok := d.index(m); !ok {
			return None
		}
		return m.group
	}
	return PendingState{
		Generate: resolve(d.firstGenerate),
		Solve:    resolve(d.firstSolve),
		Model:    resolve(d.firstModel),
	}
}
