package document

import "fmt"

// ReorderGroup moves group to directly after the group after, or to the
// front when after is None. The move is rejected with
// ErrDependencyViolation, leaving every index unchanged, if any group would
// come before a group it references. On success indices are renumbered
// 0..n-1. Pending state is not touched.
func (d *Document) ReorderGroup(group, after ID) error {
	moved := d.groups[group]
	if moved == nil {
		return fmt.Errorf("reorder: %w: %s", ErrGroupNotFound, group.Short())
	}
	if !after.IsNone() && d.groups[after] == nil {
		return fmt.Errorf("reorder: %w: %s", ErrGroupNotFound, after.Short())
	}
	if group == after {
		return nil
	}

	sorted := d.GroupsSorted()
	order := make([]*Group, 0, len(sorted))
	if after.IsNone() {
		order = append(order, moved)
	}
	for _, g := range sorted {
		if g.ID == group {
			continue
		}
		order = append(order, g)
		if g.ID == after {
			order = append(order, moved)
		}
	}

	available := IDSet{}
	for _, g := range order {
		available.Add(g.ID)
		if !available.Contains(d.ReferencedGroups(g.ID)) {
			d.logger.Debug("reorder rejected", "group", moved.Name, "blocked", g.Name)
			return fmt.Errorf("reorder %s: %s: %w", moved.Name, g.Name, ErrDependencyViolation)
		}
	}

	for i, g := range order {
		g.Index = i
	}
	return nil
}
