package document

import "errors"

// UpdatePending brings the document up to date from the earliest pending
// group onward. It runs three passes in evaluation order: generate, an
// invalid-constraint sweep, then solve and solid-model derivation.
//
// If stopAfter names a group, each pass ends once that group is done and
// its watermark moves to the following group, leaving the rest pending.
// Dragged points are forwarded to the solver for every group solved.
func (d *Document) UpdatePending(stopAfter ID, dragged []EntityAndPoint) {
	groups := d.GroupsSorted()

	genIdx, genOK := d.index(d.firstGenerate)
	solveIdx, solveOK := d.index(d.firstSolve)
	modelIdx, modelOK := d.index(d.firstModel)
	if !genOK {
		d.firstGenerate = mark{}
	}
	if !solveOK {
		d.firstSolve = mark{}
	}
	if !modelOK {
		d.firstModel = mark{}
	}

	if genOK {
		d.generatePass(groups, genIdx, stopAfter)
	}

	d.EraseInvalid()

	for i, g := range groups {
		if solveOK && g.Index >= solveIdx {
			d.solveGroup(g, dragged)
		}
		if modelOK && g.Index >= modelIdx {
			d.updateSolidModel(g)
		}
		if g.ID == stopAfter && i+1 < len(groups) {
			next := groups[i+1].ID
			if solveOK {
				d.firstSolve = d.later(d.firstSolve, next)
			}
			if modelOK {
				d.firstModel = d.later(d.firstModel, next)
			}
			return
		}
	}
	d.firstSolve = mark{}
	d.firstModel = mark{}
}

func (d *Document) generatePass(groups []*Group, from int, stopAfter ID) {
	for i, g := range groups {
		if g.Index >= from {
			d.generateGroup(g)
		}
		if g.ID == stopAfter && i+1 < len(groups) {
			d.firstGenerate = d.later(d.firstGenerate, groups[i+1].ID)
			return
		}
	}
	d.firstGenerate = mark{}
}

// generateGroup re-runs a generating group. Entities it generated last time
// and does not produce again are removed.
func (d *Document) generateGroup(g *Group) {
	gen, ok := g.Data.(Generator)
	if !ok {
		return
	}
	for _, en := range d.entities {
		if en.Group == g.ID && en.Kind == KindGenerated {
			en.Kind = KindGeneratedStale
		}
	}
	g.genErr = gen.Generate(d, g)
	if g.genErr != nil {
		d.logger.Warn("generate failed", "group", g.Name, "id", g.ID.Short(), "error", g.genErr)
	}
	for id, en := range d.entities {
		if en.Group == g.ID && en.Kind == KindGeneratedStale {
			delete(d.entities, id)
		}
	}
}

func (d *Document) solveGroup(g *Group, dragged []EntityAndPoint) {
	if g.Type() == GroupReference {
		g.DOF = 0
		g.Status = SolveOK
		return
	}
	if r, ok := g.Data.(Refresher); ok {
		r.Refresh(d, g)
	}
	res := d.solver.Solve(d, g.ID, dragged)
	g.DOF = res.DOF
	g.Status = res.Status
	d.logger.Debug("solved group",
		"group", g.Name,
		"status", res.Status,
		"dof", res.DOF,
		"iterations", res.Iterations,
	)
}

func (d *Document) updateSolidModel(g *Group) {
	m, ok := g.Data.(SolidModeler)
	if !ok {
		return
	}
	g.Solid = nil
	g.modelErr = nil
	if d.kernel == nil {
		return
	}
	if err := m.UpdateSolidModel(d, g); err != nil {
		g.Solid = nil
		g.modelErr = err
		d.logger.Warn("solid model failed", "group", g.Name, "id", g.ID.Short(), "error", err)
	}
}

// EraseInvalid removes every constraint that references a missing entity
// or point and returns how many were removed.
func (d *Document) EraseInvalid() int {
	n := 0
	for id, co := range d.constraints {
		if co.IsValid(d) {
			continue
		}
		delete(d.constraints, id)
		n++
		d.logger.Debug("removed invalid constraint", "id", id.Short(), "type", co.Type())
	}
	return n
}

// Err returns the last generate or solid-model failure of g, if any.
func (g *Group) Err() error {
	return errors.Join(g.genErr, g.modelErr)
}
