package document

// SolveResult is the diagnostic output of solving one group.
type SolveResult struct {
	DOF        int
	Status     SolveStatus
	Iterations int
}

// Solver adjusts the USER entities of one group so its constraints hold.
// Dragged points should be kept as close to their current position as the
// constraints allow. Implementations write results back through doc.
type Solver interface {
	Solve(doc *Document, group ID, dragged []EntityAndPoint) SolveResult
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(doc *Document, group ID, dragged []EntityAndPoint) SolveResult

func (f SolverFunc) Solve(doc *Document, group ID, dragged []EntityAndPoint) SolveResult {
	return f(doc, group, dragged)
}

// nopSolver leaves geometry untouched and reports success.
type nopSolver struct{}

func (nopSolver) Solve(*Document, ID, []EntityAndPoint) SolveResult {
	return SolveResult{Status: SolveOK}
}
