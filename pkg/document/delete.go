package document

import "fmt"

// ItemsToDelete is a selection of records to remove together.
type ItemsToDelete struct {
	Entities    IDSet
	Groups      IDSet
	Constraints IDSet
}

// NewItemsToDelete returns an empty selection.
func NewItemsToDelete() ItemsToDelete {
	return ItemsToDelete{Entities: IDSet{}, Groups: IDSet{}, Constraints: IDSet{}}
}

// Clone returns an independent copy.
func (it ItemsToDelete) Clone() ItemsToDelete {
	return ItemsToDelete{
		Entities:    cloneSet(it.Entities),
		Groups:      cloneSet(it.Groups),
		Constraints: cloneSet(it.Constraints),
	}
}

func cloneSet(s IDSet) IDSet {
	if s == nil {
		return IDSet{}
	}
	return s.Clone()
}

// Append adds every member of other.
func (it *ItemsToDelete) Append(other ItemsToDelete) {
	it.ensure()
	it.Entities.Union(other.Entities)
	it.Groups.Union(other.Groups)
	it.Constraints.Union(other.Constraints)
}

// Subtract removes every member of other.
func (it *ItemsToDelete) Subtract(other ItemsToDelete) {
	it.ensure()
	it.Entities.Subtract(other.Entities)
	it.Groups.Subtract(other.Groups)
	it.Constraints.Subtract(other.Constraints)
}

// Empty reports whether nothing is selected.
func (it ItemsToDelete) Empty() bool {
	return it.Len() == 0
}

// Len is the total number of selected records.
func (it ItemsToDelete) Len() int {
	return len(it.Entities) + len(it.Groups) + len(it.Constraints)
}

func (it *ItemsToDelete) ensure() {
	if it.Entities == nil {
		it.Entities = IDSet{}
	}
	if it.Groups == nil {
		it.Groups = IDSet{}
	}
	if it.Constraints == nil {
		it.Constraints = IDSet{}
	}
}

// AdditionalItemsToDelete returns the records that must also go when
// initial is deleted, excluding initial itself. It grows the selection
// until no entity references a deleted entity or group, no constraint
// references a deleted entity or group, and no group requires a deleted
// entity or group.
func (d *Document) AdditionalItemsToDelete(initial ItemsToDelete) ItemsToDelete {
	items := initial.Clone()

	for {
		before := items.Len()

		for id, en := range d.entities {
			if items.Entities.Has(id) {
				continue
			}
			if items.Groups.Has(en.Group) || items.Entities.HasAny(en.ReferencedEntities()) {
				items.Entities.Add(id)
			}
		}

		for id, co := range d.constraints {
			if items.Constraints.Has(id) {
				continue
			}
			if items.Groups.Has(co.Group) || items.Entities.HasAny(co.ReferencedEntities()) {
				items.Constraints.Add(id)
			}
		}

		for id, g := range d.groups {
			if items.Groups.Has(id) {
				continue
			}
			if items.Entities.HasAny(g.Data.RequiredEntities(d)) || items.Groups.HasAny(g.Data.RequiredGroups(d)) {
				items.Groups.Add(id)
			}
		}

		if items.Len() == before {
			break
		}
	}

	items.Subtract(initial)
	return items
}

// firstTouched returns the lowest index of any group touched by items,
// directly or through an owned entity or constraint.
func (d *Document) firstTouched(items ItemsToDelete) (int, bool) {
	idx, found := 0, false
	touch := func(group ID) {
		g := d.groups[group]
		if g == nil {
			return
		}
		if !found || g.Index < idx {
			idx, found = g.Index, true
		}
	}
	for id := range items.Groups {
		touch(id)
	}
	for id := range items.Entities {
		if en := d.entities[id]; en != nil {
			touch(en.Group)
		}
	}
	for id := range items.Constraints {
		if co := d.constraints[id]; co != nil {
			touch(co.Group)
		}
	}
	return idx, found
}

// DeleteItems removes exactly items. Active workplanes that no longer exist
// are cleared, and the first surviving group at or after the earliest
// touched one is marked for regeneration. Callers normally want Delete.
func (d *Document) DeleteItems(items ItemsToDelete) {
	first, touched := d.firstTouched(items)

	for id := range items.Entities {
		delete(d.entities, id)
	}
	for id := range items.Groups {
		delete(d.groups, id)
	}
	for id := range items.Constraints {
		delete(d.constraints, id)
	}

	for _, g := range d.groups {
		if !g.ActiveWorkplane.IsNone() && d.entities[g.ActiveWorkplane] == nil {
			g.ActiveWorkplane = None
		}
	}

	if !touched {
		return
	}
	for _, g := range d.GroupsSorted() {
		if g.Index >= first {
			d.MarkGeneratePending(g.ID)
			return
		}
	}
}

// Delete removes items together with everything that depends on them and
// returns the full set removed.
func (d *Document) Delete(items ItemsToDelete) ItemsToDelete {
	all := items.Clone()
	all.Append(d.AdditionalItemsToDelete(items))
	d.DeleteItems(all)
	return all
}

// RemoveConstraint deletes a single constraint. Nothing depends on a
// constraint, so no other record goes with it.
func (d *Document) RemoveConstraint(id ID) error {
	if d.constraints[id] == nil {
		return fmt.Errorf("remove constraint: %w: %s", ErrConstraintNotFound, id.Short())
	}
	d.Delete(ItemsToDelete{Constraints: NewIDSet(id)})
	return nil
}
