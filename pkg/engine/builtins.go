package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/geom"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms strata Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: on-line -> on_line
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a geom.Vec2.
type sexpVec2 struct {
	vec geom.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpGroup refers to a group of the document being built.
type sexpGroup struct {
	id   document.ID
	name string
}

func (g *sexpGroup) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(group %q)", g.name)
}
func (g *sexpGroup) Type() *zygo.RegisteredType { return nil }

// sexpEntity refers to an entity of the document being built.
type sexpEntity struct {
	id  document.ID
	typ document.EntityType
}

func (e *sexpEntity) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", e.typ, e.id.Short())
}
func (e *sexpEntity) Type() *zygo.RegisteredType { return nil }

// sexpPoint addresses one point of an entity, as returned by `pt`.
type sexpPoint struct {
	ep document.EntityAndPoint
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %s %d)", p.ep.Entity.Short(), p.ep.Point)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpConstraint is returned by the constraint builtins.
type sexpConstraint struct {
	id  document.ID
	typ document.ConstraintType
}

func (c *sexpConstraint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", c.typ, c.id.Short())
}
func (c *sexpConstraint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toFlag reads a boolean keyword. A trailing keyword with no value counts
// as set.
func toFlag(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toVec2 extracts a Vec2 from a sexpVec2.
func toVec2(s zygo.Sexp) (geom.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return geom.Vec2{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toGroup extracts a group id from a sexpGroup.
func toGroup(s zygo.Sexp) (document.ID, error) {
	if g, ok := s.(*sexpGroup); ok {
		return g.id, nil
	}
	return document.None, fmt.Errorf("expected group reference, got %T (%s)", s, s.SexpString(nil))
}

// toEntity extracts an entity id from a sexpEntity.
func toEntity(s zygo.Sexp) (document.ID, error) {
	if e, ok := s.(*sexpEntity); ok {
		return e.id, nil
	}
	return document.None, fmt.Errorf("expected entity reference, got %T (%s)", s, s.SexpString(nil))
}

// toPoint extracts an addressed point from a sexpPoint.
func toPoint(s zygo.Sexp) (document.EntityAndPoint, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.ep, nil
	}
	return document.EntityAndPoint{}, fmt.Errorf("expected point reference (pt ...), got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Document builder
// ---------------------------------------------------------------------------

// builder appends groups to a document in script order.
type builder struct {
	doc  *document.Document
	last document.ID
	// spare is the empty sketch every new document starts with. The
	// script's first sketch takes it over instead of inserting another.
	spare document.ID
}

func newBuilder(doc *document.Document) *builder {
	groups := doc.GroupsSorted()
	tail := groups[len(groups)-1]
	b := &builder{doc: doc, last: tail.ID}
	if tail.Type() == document.GroupSketch {
		b.spare = tail.ID
	}
	return b
}

func (b *builder) reference() *document.Reference {
	return b.doc.GroupsSorted()[0].Data.(*document.Reference)
}

// workplane resolves :xy, :yz or :zx.
func (b *builder) workplane(s zygo.Sexp) (document.ID, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return document.None, fmt.Errorf("expected workplane keyword (:xy, :yz, :zx): %w", err)
	}
	ref := b.reference()
	switch strings.ToLower(name) {
	case "xy":
		return ref.XY, nil
	case "yz":
		return ref.YZ, nil
	case "zx":
		return ref.ZX, nil
	}
	return document.None, fmt.Errorf("invalid workplane %q, expected xy, yz, or zx", name)
}

// addGroup appends a group after the last one the script created.
func (b *builder) addGroup(data document.GroupData, name string) (*document.Group, error) {
	if _, ok := data.(*document.Sketch); ok && !b.spare.IsNone() {
		g := b.doc.Group(b.spare)
		b.spare = document.None
		if name != "" {
			g.Name = name
		}
		return g, nil
	}
	if name == "" {
		name = fmt.Sprintf("%s%d", data.Type(), len(b.doc.GroupsSorted()))
	}
	g, err := b.doc.InsertGroup(data, name, b.last)
	if err != nil {
		return nil, err
	}
	b.last = g.ID
	b.spare = document.None
	return g, nil
}

// addEntity adds data to sketch, applying the shared :name and
// :construction keywords.
func (b *builder) addEntity(fn string, sketch document.ID, data document.EntityData, pa kwArgs) (zygo.Sexp, error) {
	en, err := b.doc.AddEntity(sketch, data)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
		}
		en.Name = s
	}
	if v, ok := pa.kw["construction"]; ok {
		f, err := toFlag(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: construction: %w", fn, err)
		}
		en.Construction = f
	}
	return &sexpEntity{id: en.ID, typ: en.Type()}, nil
}

// constraintGroup picks the latest group owning any of ids, since a
// constraint may only refer to its own group and earlier ones.
func (b *builder) constraintGroup(ids ...document.ID) (*document.Group, error) {
	var out *document.Group
	for _, id := range ids {
		en := b.doc.Entity(id)
		if en == nil {
			return nil, fmt.Errorf("%w: %s", document.ErrEntityNotFound, id.Short())
		}
		if g := b.doc.Group(en.Group); out == nil || g.Index > out.Index {
			out = g
		}
	}
	return out, nil
}

// addConstraint places data in the latest group among ids. Point
// constraints are measured in that group's active workplane.
func (b *builder) addConstraint(fn string, data document.ConstraintData, ids ...document.ID) (zygo.Sexp, error) {
	g, err := b.constraintGroup(ids...)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	wp := g.ActiveWorkplane
	switch c := data.(type) {
	case *document.PointsCoincident:
		c.Workplane = wp
	case *document.PointOnLine:
		c.Workplane = wp
	case *document.PointDistance:
		c.Workplane = wp
	}
	co, err := b.doc.AddConstraint(g.ID, data)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	return &sexpConstraint{id: co.ID, typ: co.Type()}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all strata DSL builtins into a zygomys environment.
// The builtins operate on the builder's document, populating it during
// evaluation. Hyphenated names are registered in their underscore form.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec2 1 2)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: geom.Vec2{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (sketch "name" :on :yz :body "bracket")
	// -----------------------------------------------------------------------
	env.AddFunction("sketch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var groupName string
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: name: %w", err)
			}
			groupName = s
		}
		g, err := b.addGroup(&document.Sketch{}, groupName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch: %w", err)
		}
		if v, ok := pa.kw["on"]; ok {
			wp, err := b.workplane(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: on: %w", err)
			}
			g.ActiveWorkplane = wp
		}
		if v, ok := pa.kw["body"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: body: %w", err)
			}
			g.Body = &document.Body{Name: s}
		}
		return &sexpGroup{id: g.ID, name: g.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (group "name")
	// -----------------------------------------------------------------------
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("group requires a name argument")
		}
		groupName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}
		g := b.doc.GroupByName(groupName)
		if g == nil {
			return zygo.SexpNull, fmt.Errorf("group: no group named %q", groupName)
		}
		return &sexpGroup{id: g.ID, name: g.Name}, nil
	})

	// sketchArgs reads the leading sketch reference and resolves its
	// active workplane.
	sketchArgs := func(fn string, pa kwArgs, want int) (document.ID, document.ID, error) {
		if len(pa.positional) != want+1 {
			return document.None, document.None, fmt.Errorf("%s requires a sketch and %d arguments, got %d", fn, want, len(pa.positional))
		}
		id, err := toGroup(pa.positional[0])
		if err != nil {
			return document.None, document.None, fmt.Errorf("%s: sketch: %w", fn, err)
		}
		g := b.doc.Group(id)
		if g == nil || g.Type() != document.GroupSketch {
			return document.None, document.None, fmt.Errorf("%s: %s is not a sketch", fn, pa.positional[0].SexpString(nil))
		}
		if g.ActiveWorkplane.IsNone() {
			return document.None, document.None, fmt.Errorf("%s: sketch %q has no workplane", fn, g.Name)
		}
		return id, g.ActiveWorkplane, nil
	}

	// -----------------------------------------------------------------------
	// (point sk (vec2 1 2))
	// -----------------------------------------------------------------------
	env.AddFunction("point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sk, wp, err := sketchArgs("point", pa, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		p, err := toVec2(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		return b.addEntity("point", sk, &document.Point2D{Workplane: wp, P: p}, pa)
	})

	// -----------------------------------------------------------------------
	// (line sk (vec2 0 0) (vec2 10 0) :construction true)
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sk, wp, err := sketchArgs("line", pa, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		from, err := toVec2(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: from: %w", err)
		}
		to, err := toVec2(pa.positional[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: to: %w", err)
		}
		return b.addEntity("line", sk, &document.Line2D{Workplane: wp, From: from, To: to}, pa)
	})

	// -----------------------------------------------------------------------
	// (circle sk (vec2 5 5) 2)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sk, wp, err := sketchArgs("circle", pa, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		center, err := toVec2(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
		}
		r, err := toFloat64(pa.positional[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", r)
		}
		return b.addEntity("circle", sk, &document.Circle2D{Workplane: wp, Center: center, Radius: r}, pa)
	})

	// -----------------------------------------------------------------------
	// (arc sk (vec2 1 0) (vec2 0 1) (vec2 0 0))  ; from, to, center
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		sk, wp, err := sketchArgs("arc", pa, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		var pts [3]geom.Vec2
		for i, label := range []string{"from", "to", "center"} {
			v, err := toVec2(pa.positional[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: %s: %w", label, err)
			}
			pts[i] = v
		}
		return b.addEntity("arc", sk, &document.Arc2D{Workplane: wp, From: pts[0], To: pts[1], Center: pts[2]}, pa)
	})

	// -----------------------------------------------------------------------
	// (pt l 2)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pt requires an entity and a point number, got %d arguments", len(args))
		}
		id, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: %w", err)
		}
		n, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: point: %w", err)
		}
		ep := document.EntityAndPoint{Entity: id, Point: int(n)}
		if !b.doc.IsValidPoint(ep) {
			return zygo.SexpNull, fmt.Errorf("pt: %s has no point %d", args[0].SexpString(nil), ep.Point)
		}
		return &sexpPoint{ep: ep}, nil
	})

	// -----------------------------------------------------------------------
	// (coincident (pt a 2) (pt b 1))
	// -----------------------------------------------------------------------
	env.AddFunction("coincident", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("coincident requires 2 points, got %d", len(args))
		}
		pa, err := toPoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("coincident: %w", err)
		}
		pb, err := toPoint(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("coincident: %w", err)
		}
		return b.addConstraint("coincident", &document.PointsCoincident{A: pa, B: pb}, pa.Entity, pb.Entity)
	})

	// -----------------------------------------------------------------------
	// (on-line l (pt p 1))
	// -----------------------------------------------------------------------
	env.AddFunction("on_line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("on-line requires a line and a point, got %d arguments", len(args))
		}
		line, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("on-line: line: %w", err)
		}
		if en := b.doc.Entity(line); en == nil || !en.Type().IsLine() {
			return zygo.SexpNull, fmt.Errorf("on-line: %s is not a line", args[0].SexpString(nil))
		}
		p, err := toPoint(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("on-line: %w", err)
		}
		return b.addConstraint("on-line", &document.PointOnLine{Line: line, Point: p}, line, p.Entity)
	})

	// -----------------------------------------------------------------------
	// (on-circle c (pt p 1))
	// -----------------------------------------------------------------------
	env.AddFunction("on_circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("on-circle requires a circle and a point, got %d arguments", len(args))
		}
		circle, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("on-circle: circle: %w", err)
		}
		if en := b.doc.Entity(circle); en == nil || !en.Type().IsCircular() {
			return zygo.SexpNull, fmt.Errorf("on-circle: %s is not a circle or arc", args[0].SexpString(nil))
		}
		p, err := toPoint(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("on-circle: %w", err)
		}
		return b.addConstraint("on-circle", &document.PointOnCircle{Circle: circle, Point: p}, circle, p.Entity)
	})

	// -----------------------------------------------------------------------
	// (distance (pt l 1) (pt l 2) 40)
	// -----------------------------------------------------------------------
	env.AddFunction("distance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("distance requires 2 points and a value, got %d arguments", len(args))
		}
		pa, err := toPoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: %w", err)
		}
		pb, err := toPoint(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: %w", err)
		}
		d, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: value: %w", err)
		}
		return b.addConstraint("distance", &document.PointDistance{A: pa, B: pb, Distance: d}, pa.Entity, pb.Entity)
	})

	// -----------------------------------------------------------------------
	// (horizontal l) / (vertical l)
	// -----------------------------------------------------------------------
	lineConstraint := func(fn string, mk func(document.ID) document.ConstraintData) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a line, got %d arguments", fn, len(args))
			}
			line, err := toEntity(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			if en := b.doc.Entity(line); en == nil || en.Type() != document.EntityLine2D {
				return zygo.SexpNull, fmt.Errorf("%s: %s is not a sketch line", fn, args[0].SexpString(nil))
			}
			return b.addConstraint(fn, mk(line), line)
		}
	}
	env.AddFunction("horizontal", lineConstraint("horizontal", func(l document.ID) document.ConstraintData {
		return &document.Horizontal{Line: l}
	}))
	env.AddFunction("vertical", lineConstraint("vertical", func(l document.ID) document.ConstraintData {
		return &document.Vertical{Line: l}
	}))

	// -----------------------------------------------------------------------
	// (diameter c 8)
	// -----------------------------------------------------------------------
	env.AddFunction("diameter", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("diameter requires a circle and a value, got %d arguments", len(args))
		}
		circle, err := toEntity(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("diameter: %w", err)
		}
		if en := b.doc.Entity(circle); en == nil || !en.Type().IsCircular() {
			return zygo.SexpNull, fmt.Errorf("diameter: %s is not a circle or arc", args[0].SexpString(nil))
		}
		v, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("diameter: value: %w", err)
		}
		return b.addConstraint("diameter", &document.Diameter{Circle: circle, Value: v}, circle)
	})

	// -----------------------------------------------------------------------
	// (extrude sk 18 :mode :difference :name "pocket")
	// -----------------------------------------------------------------------
	env.AddFunction("extrude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("extrude requires a sketch and a height, got %d arguments", len(pa.positional))
		}
		src, err := toGroup(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: sketch: %w", err)
		}
		h, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: height: %w", err)
		}
		ex := &document.Extrude{Source: src, Height: h}
		if v, ok := pa.kw["mode"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: mode: %w", err)
			}
			if ex.Mode, err = document.ParseExtrudeMode(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
			}
		}
		var groupName string
		if v, ok := pa.kw["name"]; ok {
			if groupName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: name: %w", err)
			}
		}
		g, err := b.addGroup(ex, groupName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		return &sexpGroup{id: g.ID, name: g.Name}, nil
	})
}
