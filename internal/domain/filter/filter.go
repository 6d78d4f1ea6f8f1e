package filter

import (
	"errors"
	"strings"
)

var ErrUnknownKind = errors.New("unknown filter kind")

// Kind is the closed set of filter display types. Raw discriminator strings
// coming from stored schemas are resolved to a Kind once, at the resolver
// boundary; everything downstream switches on the typed constant.
type Kind string

const (
	KindNumber   Kind = "number"
	KindInterval Kind = "interval"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
)

// ParseKind resolves a raw discriminator string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindNumber, KindInterval, KindSelect, KindRadio:
		return Kind(s), nil
	}
	return "", ErrUnknownKind
}

// Reserved aliases with dedicated aggregation behavior. The price alias is
// additionally indirected per section (see Resolver.PriceAlias): a section
// decides which of its facets carries the price concept.
const (
	AliasPrice     = "price"
	AliasColor     = "color"
	AliasDimension = "dimension"
)

// ListValue is one candidate value of a select/radio filter.
type ListValue struct {
	ID    int64  `json:"id"`
	Label string `json:"value"`
}

// Definition describes one section-scoped facet.
type Definition struct {
	ID              int64
	Alias           string
	Kind            Kind
	Values          []ListValue
	Unit            string
	DimensionSystem string
	InCard          bool
}

// Value is a typed filter value parsed from raw request parameters.
// Raw/RawTo carry numeric-or-sentinel strings for number and interval kinds,
// IDs carries selected value ids for select and radio kinds.
type Value struct {
	Raw   string  `json:"raw,omitempty"`
	RawTo string  `json:"raw_to,omitempty"`
	IDs   []int64 `json:"ids,omitempty"`
}

// Empty reports whether the value selects nothing.
func (v Value) Empty() bool {
	return strings.TrimSpace(v.Raw) == "" && strings.TrimSpace(v.RawTo) == "" && len(v.IDs) == 0
}

// View is a filter definition bound with a selected value, ready for display
// or for ProductForm round trips.
type View struct {
	ID              int64
	Alias           string
	Kind            Kind
	Values          []ListValue
	Unit            string
	DimensionSystem string
	InCard          bool
	Editable        bool

	// Selected state. Value holds the single raw value of number/interval
	// facets (a product stores one number even under an interval filter).
	Value       string
	ValueTo     string
	SelectedIDs []int64
	SelectedID  int64

	// Aggregate bounds, populated only on group-level filter views.
	MinValue int64
	MaxValue int64
}

// Selected reports whether the view carries any selected value.
func (v View) Selected() bool {
	return strings.TrimSpace(v.Value) != "" || strings.TrimSpace(v.ValueTo) != "" ||
		len(v.SelectedIDs) > 0 || v.SelectedID > 0
}

// SelectedLabels resolves the selected ids against the candidate list,
// keeping the candidate order.
func (v View) SelectedLabels() []string {
	want := make(map[int64]bool, len(v.SelectedIDs)+1)
	for _, id := range v.SelectedIDs {
		want[id] = true
	}
	if v.SelectedID > 0 {
		want[v.SelectedID] = true
	}
	var labels []string
	for _, lv := range v.Values {
		if want[lv.ID] {
			labels = append(labels, lv.Label)
		}
	}
	return labels
}

// Aggregate is the per-facet descriptor a variant group persists: a merged
// numeric range for number/interval facets, a merged selected-id union for
// select/radio facets.
type Aggregate struct {
	ID       int64   `json:"id"`
	Kind     Kind    `json:"type"`
	MinValue int64   `json:"min_value,omitempty"`
	MaxValue int64   `json:"max_value,omitempty"`
	Values   []int64 `json:"values,omitempty"`
}

// Discriminating reports whether the aggregate still distinguishes members
// of the group. A number range collapsed to a point, or a selection union
// with a single value, carries no information and is pruned.
func (a Aggregate) Discriminating() bool {
	switch a.Kind {
	case KindNumber, KindInterval:
		return a.MinValue != a.MaxValue
	case KindSelect, KindRadio:
		return len(a.Values) > 1
	}
	return false
}

// EscapeAlias normalizes a facet alias for use inside a property name:
// lowercased, everything outside [a-z0-9_-] dropped.
func EscapeAlias(alias string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(alias) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
