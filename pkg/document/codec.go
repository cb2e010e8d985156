package document

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
)

// FormatVersion is the persisted document format written by Marshal.
// Documents with a newer version are rejected.
const FormatVersion = 1

type documentFile struct {
	Type        string                 `json:"type"`
	Version     int                    `json:"version"`
	Groups      map[ID]json.RawMessage `json:"groups"`
	Entities    map[ID]json.RawMessage `json:"entities"`
	Constraints map[ID]json.RawMessage `json:"constraints"`
}

type typeTag struct {
	Type string `json:"type"`
}

// record flattens a type tag, the common fields and the variant fields
// into one JSON object.
func record(tag string, parts ...any) (json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for _, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		maps.Copy(out, fields)
	}
	t, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	out["type"] = t
	return json.Marshal(out)
}

// Marshal encodes the document. Only USER entities are written; generated
// geometry is rebuilt on load.
func (d *Document) Marshal() ([]byte, error) {
	f := documentFile{
		Type:        "document",
		Version:     FormatVersion,
		Groups:      make(map[ID]json.RawMessage, len(d.groups)),
		Entities:    make(map[ID]json.RawMessage, len(d.entities)),
		Constraints: make(map[ID]json.RawMessage, len(d.constraints)),
	}
	for id, g := range d.groups {
		rec, err := record(g.Type().String(), g, g.Data)
		if err != nil {
			return nil, fmt.Errorf("encode group %s: %w", id.Short(), err)
		}
		f.Groups[id] = rec
	}
	for id, en := range d.entities {
		if en.Kind != KindUser {
			continue
		}
		rec, err := record(en.Type().String(), en, en.Data)
		if err != nil {
			return nil, fmt.Errorf("encode entity %s: %w", id.Short(), err)
		}
		f.Entities[id] = rec
	}
	for id, co := range d.constraints {
		rec, err := record(co.Type().String(), co, co.Data)
		if err != nil {
			return nil, fmt.Errorf("encode constraint %s: %w", id.Short(), err)
		}
		f.Constraints[id] = rec
	}
	return json.MarshalIndent(f, "", "  ")
}

// Save writes the encoded document to w.
func (d *Document) Save(w io.Writer) error {
	b, err := d.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Load reads an encoded document from r. See Unmarshal.
func Load(r io.Reader, opts ...Option) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(b, opts...)
}

// Unmarshal decodes a document, removes constraints that reference missing
// geometry, and evaluates it from the first group. Any unparseable record,
// a missing version or two groups sharing an index fails the whole load
// with ErrMalformed.
func Unmarshal(data []byte, opts ...Option) (*Document, error) {
	var f documentFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Type != "document" {
		return nil, fmt.Errorf("%w: type %q", ErrMalformed, f.Type)
	}
	if f.Version < 1 {
		return nil, fmt.Errorf("%w: missing or invalid version %d", ErrMalformed, f.Version)
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, f.Version, FormatVersion)
	}

	d := newDocument(opts)
	indices := make(map[int]ID, len(f.Groups))
	for id, raw := range f.Groups {
		g, err := decodeGroup(id, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: group %s: %v", ErrMalformed, id, err)
		}
		// Indices define the evaluation order, so a tie has no valid order.
		if other, dup := indices[g.Index]; dup {
			return nil, fmt.Errorf("%w: groups %s and %s share index %d", ErrMalformed, other.Short(), id.Short(), g.Index)
		}
		indices[g.Index] = id
		d.groups[id] = g
	}
	for id, raw := range f.Entities {
		en, err := decodeEntity(id, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: entity %s: %v", ErrMalformed, id, err)
		}
		if d.groups[en.Group] == nil {
			return nil, fmt.Errorf("%w: entity %s: unknown group %s", ErrMalformed, id, en.Group)
		}
		d.entities[id] = en
	}
	for id, raw := range f.Constraints {
		co, err := decodeConstraint(id, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: constraint %s: %v", ErrMalformed, id, err)
		}
		if d.groups[co.Group] == nil {
			return nil, fmt.Errorf("%w: constraint %s: unknown group %s", ErrMalformed, id, co.Group)
		}
		d.constraints[id] = co
	}

	d.EraseInvalid()
	if groups := d.GroupsSorted(); len(groups) > 0 {
		d.MarkGeneratePending(groups[0].ID)
	}
	d.UpdatePending(None, nil)
	return d, nil
}

func decodeTag(raw json.RawMessage) (string, error) {
	var t typeTag
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", err
	}
	if t.Type == "" {
		return "", fmt.Errorf("missing type")
	}
	return t.Type, nil
}

func decodeGroup(id ID, raw json.RawMessage) (*Group, error) {
	tag, err := decodeTag(raw)
	if err != nil {
		return nil, err
	}
	t, ok := parseGroupType(tag)
	if !ok {
		return nil, fmt.Errorf("unknown group type %q", tag)
	}
	data, err := newGroupData(t)
	if err != nil {
		return nil, err
	}
	g := &Group{ID: id}
	if err := json.Unmarshal(raw, g); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	g.Data = data
	return g, nil
}

func decodeEntity(id ID, raw json.RawMessage) (*Entity, error) {
	tag, err := decodeTag(raw)
	if err != nil {
		return nil, err
	}
	t, ok := parseEntityType(tag)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", tag)
	}
	data, err := newEntityData(t)
	if err != nil {
		return nil, err
	}
	en := &Entity{ID: id, Kind: KindUser}
	if err := json.Unmarshal(raw, en); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	en.Data = data
	return en, nil
}

func decodeConstraint(id ID, raw json.RawMessage) (*Constraint, error) {
	tag, err := decodeTag(raw)
	if err != nil {
		return nil, err
	}
	t, ok := parseConstraintType(tag)
	if !ok {
		return nil, fmt.Errorf("unknown constraint type %q", tag)
	}
	data, err := newConstraintData(t)
	if err != nil {
		return nil, err
	}
	co := &Constraint{ID: id}
	if err := json.Unmarshal(raw, co); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	co.Data = data
	return co, nil
}

func parseGroupType(s string) (GroupType, bool) {
	for t := GroupReference; t <= GroupExtrude; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

func parseEntityType(s string) (EntityType, bool) {
	for t := EntityWorkplane; t <= EntityLine3D; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

func parseConstraintType(s string) (ConstraintType, bool) {
	for t := ConstraintPointsCoincident; t <= ConstraintDiameter; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}
