package item

// ValueKind discriminates the typed payload of a property value.
type ValueKind int

const (
	KindString ValueKind = iota + 1
	KindInt
	KindRef
	KindRefList
)

// Reference is a link to another item. The store always returns references in
// this normalized form: the id is always set, the target item is loaded only
// when the fetch asked for it.
type Reference struct {
	ID   int64
	Item *Item
}

// Value is a tagged union over the property types the store supports:
// string, integer, reference and list of references.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Ref  Reference
	Refs []Reference
}

func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func IntValue(n int64) Value {
	return Value{Kind: KindInt, Int: n}
}

func RefValue(id int64) Value {
	return Value{Kind: KindRef, Ref: Reference{ID: id}}
}

// EmbeddedRefValue carries an already-loaded target alongside the id.
func EmbeddedRefValue(target *Item) Value {
	return Value{Kind: KindRef, Ref: Reference{ID: target.ID, Item: target}}
}

func RefListValue(ids []int64) Value {
	refs := make([]Reference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, Reference{ID: id})
	}
	return Value{Kind: KindRefList, Refs: refs}
}

// RefIDs returns the ids of a reference-list value in order.
func (v Value) RefIDs() []int64 {
	if v.Kind != KindRefList {
		return nil
	}
	ids := make([]int64, 0, len(v.Refs))
	for _, r := range v.Refs {
		ids = append(ids, r.ID)
	}
	return ids
}

// IsZero reports whether the value carries no payload at all.
func (v Value) IsZero() bool {
	return v.Kind == 0
}
