package item

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("item not found")
	ErrCreateFailed  = errors.New("failed to create item")
	ErrUnknownState  = errors.New("unknown item state")
	ErrValueMismatch = errors.New("property value has a different kind")
)

// Type tags the shape of an item inside the generic store.
type Type string

const (
	TypeProduct Type = "PRODUCT"
	TypeFolder  Type = "FOLDER"
	TypeSection Type = "SECTION"
	TypeImage   Type = "IMAGE"
)

// State is the lifecycle state of an item.
type State int

const (
	StateDraft State = iota + 1
	StateActive
	StateApproved
	StatePublished
	StateRemoved
	StateBanned
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateActive:
		return "active"
	case StateApproved:
		return "approved"
	case StatePublished:
		return "published"
	case StateRemoved:
		return "removed"
	case StateBanned:
		return "banned"
	}
	return "unknown"
}

// Reserved property names. Names carrying the FilterPrefix are searchable
// facets and are excluded from generic display.
const (
	FilterPrefix = "filter_"

	PropTitle            = "title"
	PropDescription      = "description"
	PropPrice            = "price"
	PropPriceTo          = "price_to"
	PropIsPublish        = "is_publish"
	PropSection          = "section"
	PropImages           = "images"
	PropGroupID          = "group_id"
	PropHash             = "hash"
	PropDimension        = "dimension"
	PropMinPrice         = "min_price"
	PropColorsNames      = "colors_names"
	PropSizes            = "sizes"
	PropDimensionSystem  = "dimension_system"
	PropFilters          = "filters"
	PropPriceFilterAlias = "price_filter_alias"
	PropImageURL         = "url"
	PropImageWidth       = "width"
	PropImageHeight      = "height"
)

// Item is a generic persisted entity with typed, named properties.
type Item struct {
	ID        int64
	NodeID    int64
	Type      Type
	State     State
	Name      string
	CreatedAt time.Time
	Props     map[string]Value
}

// Value returns the property value for name, or a zero Value when absent.
func (it *Item) Value(name string) (Value, bool) {
	v, ok := it.Props[name]
	return v, ok
}

// String returns the property as a string, falling back to def. Integer
// properties are not stringified; mixed storage is resolved by callers that
// know the property's history (see product.FromItem).
func (it *Item) String(name, def string) string {
	v, ok := it.Props[name]
	if !ok || v.Kind != KindString {
		return def
	}
	return v.Str
}

// Int64 returns the property as an int64, falling back to def.
func (it *Item) Int64(name string, def int64) int64 {
	v, ok := it.Props[name]
	if !ok || v.Kind != KindInt {
		return def
	}
	return v.Int
}

// Ref returns a reference property, falling back to def.
func (it *Item) Ref(name string, def int64) int64 {
	v, ok := it.Props[name]
	if !ok || v.Kind != KindRef {
		return def
	}
	return v.Ref.ID
}

// Property is a single named value bound for a write.
type Property struct {
	Name  string
	Value Value
}

func NewProperty(name string, v Value) Property {
	return Property{Name: name, Value: v}
}

func StringProperty(name, s string) Property {
	return Property{Name: name, Value: StringValue(s)}
}

func IntProperty(name string, n int64) Property {
	return Property{Name: name, Value: IntValue(n)}
}

func RefProperty(name string, id int64) Property {
	return Property{Name: name, Value: RefValue(id)}
}

func RefListProperty(name string, ids []int64) Property {
	return Property{Name: name, Value: RefListValue(ids)}
}
