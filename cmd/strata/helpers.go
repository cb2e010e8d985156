package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/engine"
	"github.com/chazu/strata/pkg/kernel"
	"github.com/chazu/strata/pkg/kernel/sdfx"
	"github.com/chazu/strata/pkg/solver"
	"github.com/chazu/strata/pkg/store"
)

var (
	errEvalFailed = errors.New("evaluation failed")
	errUsage      = errors.New("usage")
)

// newKernel builds the geometry kernel at the configured resolution.
func newKernel() kernel.Kernel {
	return sdfx.New(cfg.Kernel.MeshCells)
}

// documentOptions wires the configured solver and kernel into a document.
func documentOptions(k kernel.Kernel) []document.Option {
	return []document.Option{
		document.WithSolver(solver.New(solver.Options{
			MaxIterations: cfg.Solver.MaxIterations,
			Tolerance:     cfg.Solver.Tolerance,
		})),
		document.WithKernel(k),
		document.WithLogger(logger),
	}
}

// openStore opens the configured document store. The caller must Close it.
func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func groupNamed(doc *document.Document, name string) (*document.Group, error) {
	g := doc.GroupByName(name)
	if g == nil {
		return nil, fmt.Errorf("%w: %q", document.ErrGroupNotFound, name)
	}
	return g, nil
}

func entityNamed(doc *document.Document, name string) (*document.Entity, error) {
	for _, en := range doc.Entities() {
		if en.Kind == document.KindUser && en.Name == name {
			return en, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", document.ErrEntityNotFound, name)
}

// groupRow is the printable state of one group.
type groupRow struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Body        string `json:"body,omitempty"`
	Status      string `json:"status"`
	DOF         int    `json:"dof"`
	Entities    int    `json:"entities"`
	Constraints int    `json:"constraints"`
	Solid       bool   `json:"solid"`
	Error       string `json:"error,omitempty"`
}

func groupRows(doc *document.Document) []groupRow {
	var rows []groupRow
	for _, g := range doc.GroupsSorted() {
		r := groupRow{
			Index:       g.Index,
			ID:          g.ID.String(),
			Name:        g.Name,
			Type:        g.Type().String(),
			Status:      g.Status.String(),
			DOF:         g.DOF,
			Entities:    len(doc.EntitiesInGroup(g.ID)),
			Constraints: len(doc.ConstraintsInGroup(g.ID)),
			Solid:       g.Solid != nil,
		}
		if g.Body != nil {
			r.Body = g.Body.Name
		}
		if err := g.Err(); err != nil {
			r.Error = err.Error()
		}
		rows = append(rows, r)
	}
	return rows
}

// documentView is the --json form of an evaluated document.
type documentView struct {
	Name     string             `json:"name,omitempty"`
	Rev      int                `json:"rev,omitempty"`
	Groups   []groupRow         `json:"groups"`
	Warnings []warningView      `json:"warnings,omitempty"`
	Errors   []engine.EvalError `json:"errors,omitempty"`
}

type warningView struct {
	Group   string `json:"group"`
	Message string `json:"message"`
}

func newDocumentView(name string, rev int, doc *document.Document) documentView {
	v := documentView{Name: name, Rev: rev, Groups: groupRows(doc)}
	for _, w := range engine.Warnings(doc) {
		v.Warnings = append(v.Warnings, warningView{Group: w.Name, Message: w.Message})
	}
	return v
}

// printDocument writes the group table of doc, as JSON with --json.
func printDocument(w io.Writer, v documentView) error {
	if flagJSON {
		return printJSON(w, v)
	}
	if v.Name != "" {
		fmt.Fprintf(w, "%s (rev %d)\n", v.Name, v.Rev)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPE\tBODY\tSTATUS\tDOF\tENTITIES\tCONSTRAINTS\tSOLID")
	for _, r := range v.Groups {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			r.Index, r.Name, r.Type, r.Body, r.Status, r.DOF, r.Entities, r.Constraints, r.Solid)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Group, warn.Message)
	}
	return nil
}
