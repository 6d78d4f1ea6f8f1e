package item

import "context"

// Fields is a projection spec for a fetch: either every property or an
// explicit name list.
type Fields struct {
	All   bool
	Names []string
}

// AllFields selects every property of the item.
func AllFields() Fields {
	return Fields{All: true}
}

// Names selects only the listed properties.
func Names(names ...string) Fields {
	return Fields{Names: names}
}

// Want reports whether the projection includes the named property.
func (f Fields) Want(name string) bool {
	if f.All {
		return true
	}
	for _, n := range f.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Predicate is an auxiliary fetch condition. Only state inclusion is needed
// by the catalog; the zero value matches everything.
type Predicate struct {
	States []State
}

// StateIn restricts a fetch to items in one of the given states.
func StateIn(states ...State) *Predicate {
	return &Predicate{States: states}
}

// Matches reports whether an item state passes the predicate.
func (p *Predicate) Matches(st State) bool {
	if p == nil || len(p.States) == 0 {
		return true
	}
	for _, s := range p.States {
		if s == st {
			return true
		}
	}
	return false
}

// Store is the generic entity store contract.
type Store interface {
	// Create persists a new empty item of the given type on a node.
	Create(ctx context.Context, nodeID int64, typ Type, nameHint string) (*Item, error)

	// GetByID fetches an item with the requested property projection.
	// Returns ErrNotFound when the item does not exist.
	GetByID(ctx context.Context, id int64, fields Fields) (*Item, error)

	// GetByIDAndType fetches an item of a specific type, optionally under an
	// auxiliary predicate (e.g. a state-inclusion restriction).
	GetByIDAndType(ctx context.Context, id int64, typ Type, fields Fields, pred *Predicate) (*Item, error)

	// SetState transitions the item's lifecycle state.
	SetState(ctx context.Context, id int64, st State) error

	// SaveProperties writes the given properties, replacing existing values
	// with the same names. When clearFirst is set, every existing property of
	// the item is dropped before the write.
	SaveProperties(ctx context.Context, id int64, clearFirst bool, props ...Property) error

	// ClearPropertiesByPrefix drops every property whose name starts with the
	// given prefix (used to fully replace the facet set on save).
	ClearPropertiesByPrefix(ctx context.Context, id int64, prefix string) error

	// ClearProperty drops a single property by name.
	ClearProperty(ctx context.Context, id int64, name string) error
}

// Transactor runs a function inside one store transaction. Errors matching
// one of the exempt sentinels are returned to the caller but do not roll the
// transaction back; a read miss after a write must not undo the write.
type Transactor interface {
	InTx(ctx context.Context, exempt []error, fn func(ctx context.Context) error) error
}
