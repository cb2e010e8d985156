package document

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ID identifies a group, entity or constraint. The zero value is None.
type ID uuid.UUID

// None is the absent identifier.
var None ID

// NewID returns a random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical textual form of an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return None, err
	}
	return ID(u), nil
}

// IsNone reports whether id is the absent identifier.
func (id ID) IsNone() bool {
	return id == None
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first 8 hex characters, for log and error messages.
func (id ID) Short() string {
	return id.String()[:8]
}

// MarshalText implements encoding.TextMarshaler so IDs can be JSON map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = None
		return nil
	}
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ID(u)
	return nil
}

// IDSet is an unordered set of identifiers.
type IDSet map[ID]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. None is ignored.
func (s IDSet) Add(id ID) {
	if id.IsNone() {
		return
	}
	s[id] = struct{}{}
}

// Has reports whether id is in the set.
func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// HasAny reports whether any of ids is in the set.
func (s IDSet) HasAny(ids []ID) bool {
	return lo.SomeBy(ids, s.Has)
}

// Contains reports whether every member of other is in s.
func (s IDSet) Contains(other IDSet) bool {
	return lo.EveryBy(lo.Keys(other), s.Has)
}

// Union adds every member of other to s.
func (s IDSet) Union(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Subtract removes every member of other from s.
func (s IDSet) Subtract(other IDSet) {
	for id := range other {
		delete(s, id)
	}
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	c.Union(s)
	return c
}

// Slice returns the members in unspecified order.
func (s IDSet) Slice() []ID {
	return lo.Keys(s)
}
