// Package solver implements a numeric constraint solver for sketch groups.
//
// Each group is solved on its own: the 2D points (and circle radii) of the
// group's USER entities are the unknowns, geometry owned by other groups is
// held fixed, and every constraint of the group contributes one or more
// residual equations. The system is minimised with Levenberg–Marquardt
// using a forward-difference Jacobian.
package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chazu/strata/pkg/document"
)

const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-9

	// dragScale shrinks the step applied to dragged parameters so the
	// solver prefers moving everything else.
	dragScale = 0.05

	// polishCost ends refinement early once the residuals are at rounding
	// noise. Between Tolerance and polishCost the solver keeps stepping
	// while steps still lower the cost.
	polishCost = 1e-24

	jacobianStep = 1e-7
	rankEpsilon  = 1e-8
	lambdaStart  = 1e-3
	lambdaMax    = 1e12
)

// Options tunes the solver.
type Options struct {
	// MaxIterations caps the Levenberg–Marquardt iterations per group.
	MaxIterations int
	// Tolerance is the squared residual norm accepted as solved. Reaching it
	// does not stop the iteration; see polishCost.
	Tolerance float64
}

// Solver solves one group at a time. It is stateless and safe to share.
type Solver struct {
	opts Options
}

var _ document.Solver = (*Solver)(nil)

// New returns a Solver. Zero option fields take their defaults.
func New(opts Options) *Solver {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Solver{opts: opts}
}

// Solve adjusts the group's free parameters so its constraints hold and
// writes the result back into the document.
func (s *Solver) Solve(doc *document.Document, group document.ID, dragged []document.EntityAndPoint) document.SolveResult {
	sys := newSystem(doc, group, dragged)
	n := len(sys.params)

	x := sys.values()
	r := sys.residuals()
	cost := sumSquares(r)
	if len(r) == 0 {
		return document.SolveResult{DOF: n, Status: document.SolveOK}
	}
	if n == 0 {
		return document.SolveResult{Status: statusFor(cost <= s.opts.Tolerance)}
	}

	lambda := lambdaStart
	iter := 0
	stalled := false
	for ; iter < s.opts.MaxIterations && cost > polishCost; iter++ {
		J := sys.jacobian(x, r)
		scaleColumns(J, sys.scales())

		var jtj mat.Dense
		jtj.Mul(J.T(), J)
		var g mat.VecDense
		g.MulVec(J.T(), mat.NewVecDense(len(r), r))

		improved := false
		for lambda < lambdaMax {
			a := mat.DenseCopyOf(&jtj)
			for i := 0; i < n; i++ {
				a.Set(i, i, a.At(i, i)+lambda*(1+jtj.At(i, i)))
			}
			var step mat.VecDense
			if err := step.SolveVec(a, &g); err != nil {
				lambda *= 10
				continue
			}
			trial := make([]float64, n)
			for i := range trial {
				trial[i] = x[i] - step.AtVec(i)*sys.params[i].scale
			}
			sys.setValues(trial)
			tr := sys.residuals()
			if c := sumSquares(tr); c < cost {
				x, r, cost = trial, tr, c
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			sys.setValues(x)
			stalled = cost > s.opts.Tolerance
			break
		}
	}
	sys.setValues(x)

	res := document.SolveResult{
		DOF:        n - rank(sys.jacobian(x, r)),
		Iterations: iter,
	}
	switch {
	case cost <= s.opts.Tolerance:
		res.Status = document.SolveOK
	case stalled:
		res.Status = document.SolveInconsistent
	default:
		res.Status = document.SolveDidntConverge
	}
	return res
}

func statusFor(ok bool) document.SolveStatus {
	if ok {
		return document.SolveOK
	}
	return document.SolveInconsistent
}

func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	return s
}

func scaleColumns(J *mat.Dense, scales []float64) {
	rows, cols := J.Dims()
	for j := 0; j < cols; j++ {
		if scales[j] == 1 {
			continue
		}
		for i := 0; i < rows; i++ {
			J.Set(i, j, J.At(i, j)*scales[j])
		}
	}
}

// rank is the numerical rank of J.
func rank(J *mat.Dense) int {
	var svd mat.SVD
	if !svd.Factorize(J, mat.SVDNone) {
		return 0
	}
	return svd.Rank(rankEpsilon)
}
