// Package document is the evaluation core of a parametric modeling document.
//
// A Document owns three stores keyed by ID: groups (ordered feature steps
// such as reference, sketch and extrude), entities (geometry owned by one
// group) and constraints (relations between entity points). Edits mark
// groups pending; UpdatePending re-runs the generate, solve and
// solid-model stages from the earliest pending group onward.
//
// Records refer to each other only by ID. Never hold a *Entity, *Group or
// *Constraint across a call that may delete records.
package document
