package product

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/item"
)

var (
	ErrInvalidInterval = errors.New("invalid filter interval")
	ErrMissingTitle    = errors.New("title is required")
)

// NoValueSentinel marks an unset numeric facet value in submitted forms.
// It is recorded verbatim as a string property instead of a bound price.
const NoValueSentinel = -1

// FacetInput is one submitted facet value.
type FacetInput struct {
	Alias       string
	Kind        filter.Kind
	Value       string
	ValueTo     string
	SelectedIDs []int64
}

// Form carries the data needed to save a product.
type Form struct {
	Title       string
	Description string
	SectionID   int64
	Dimension   string
	GroupID     int64
	Publish     bool
	Images      []int64
	Facets      []FacetInput

	// FirstObjectID points at the standalone product this submission attaches
	// a configuration to; set only on the very first grouping step.
	FirstObjectID int64

	// CopyThis skips the duplicate-configuration check when a variant is
	// intentionally cloned for later editing.
	CopyThis bool
}

// FacetMap renders the submitted facets in the canonical hashed form, keyed
// by the prefixed property name each facet will be stored under.
func (f *Form) FacetMap() map[string]string {
	entries := make(map[string]string, len(f.Facets))
	for _, in := range f.Facets {
		key := item.FilterPrefix + filter.EscapeAlias(in.Alias)
		switch in.Kind {
		case filter.KindNumber, filter.KindInterval:
			if raw := strings.TrimSpace(in.Value); raw != "" {
				entries[key] = raw
			}
		case filter.KindSelect, filter.KindRadio:
			if len(in.SelectedIDs) == 0 {
				continue
			}
			ids := append([]int64(nil), in.SelectedIDs...)
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			parts := make([]string, 0, len(ids))
			for _, id := range ids {
				parts = append(parts, strconv.FormatInt(id, 10))
			}
			entries[key] = strings.Join(parts, ",")
		}
	}
	return entries
}

// ConfigHash digests the submitted facet set.
func (f *Form) ConfigHash() string {
	return HashFacets(f.FacetMap())
}

// IndexFacets renders the submitted facets as index predicates keyed by
// escaped alias, the shape the search document carries.
func (f *Form) IndexFacets() map[string]filter.Value {
	facets := make(map[string]filter.Value, len(f.Facets))
	for _, in := range f.Facets {
		alias := filter.EscapeAlias(in.Alias)
		var v filter.Value
		switch in.Kind {
		case filter.KindNumber, filter.KindInterval:
			v.Raw = strings.TrimSpace(in.Value)
		case filter.KindSelect, filter.KindRadio:
			for _, id := range in.SelectedIDs {
				if id > 0 {
					v.IDs = append(v.IDs, id)
				}
			}
		}
		if !v.Empty() {
			facets[alias] = v
		}
	}
	return facets
}

// Properties maps the form into the property assignments a save writes.
// priceAlias names the facet the target section uses to carry price; the
// matching facet additionally produces the dedicated price properties.
func (f *Form) Properties(priceAlias string) ([]item.Property, error) {
	if strings.TrimSpace(f.Title) == "" {
		return nil, ErrMissingTitle
	}

	props := []item.Property{
		item.StringProperty(item.PropTitle, f.Title),
		item.StringProperty(item.PropDescription, f.Description),
		item.IntProperty(item.PropIsPublish, boolToInt(f.Publish)),
		item.RefProperty(item.PropSection, f.SectionID),
	}

	if hash := f.ConfigHash(); hash != "" {
		props = append(props, item.StringProperty(item.PropHash, hash))
	}
	if strings.TrimSpace(f.Dimension) != "" {
		props = append(props, item.StringProperty(item.PropDimension, f.Dimension))
	}
	if f.GroupID > 0 {
		props = append(props, item.IntProperty(item.PropGroupID, f.GroupID))
	}
	if len(f.Images) > 0 {
		props = append(props, item.RefListProperty(item.PropImages, f.Images))
	}

	for _, in := range f.Facets {
		alias := filter.EscapeAlias(in.Alias)
		name := item.FilterPrefix + alias

		switch in.Kind {
		case filter.KindNumber:
			raw := strings.TrimSpace(in.Value)
			props = append(props, item.StringProperty(name, raw))
			if alias != priceAlias || priceAlias == "" {
				continue
			}
			value := parseNumeric(raw)
			if value == NoValueSentinel {
				props = append(props, item.StringProperty(item.PropPrice, raw))
				continue
			}
			props = append(props,
				item.IntProperty(item.PropPrice, value),
				item.IntProperty(item.PropPriceTo, value))

		case filter.KindInterval:
			raw := strings.TrimSpace(in.Value)
			props = append(props, item.StringProperty(name, raw))
			if alias != priceAlias || priceAlias == "" {
				continue
			}
			if raw == "" {
				raw = "0"
			}
			value := parseNumeric(raw)
			valueTo := parseNumeric(strings.TrimSpace(in.ValueTo))
			if value == NoValueSentinel {
				props = append(props, item.StringProperty(item.PropPrice, raw))
				continue
			}
			if valueTo == NoValueSentinel {
				valueTo = 0
			}
			if valueTo > 0 && valueTo < value {
				return nil, ErrInvalidInterval
			}
			props = append(props,
				item.IntProperty(item.PropPrice, value),
				item.IntProperty(item.PropPriceTo, valueTo))

		case filter.KindSelect:
			if len(in.SelectedIDs) > 0 {
				props = append(props, item.RefListProperty(name, in.SelectedIDs))
			}

		case filter.KindRadio:
			if len(in.SelectedIDs) > 0 && in.SelectedIDs[0] > 0 {
				props = append(props, item.RefProperty(name, in.SelectedIDs[0]))
			}
		}
	}

	return props, nil
}

// HasPriceFacet reports whether the submitted facet set binds the section's
// price facet; used for the index ranking weight.
func (f *Form) HasPriceFacet(priceAlias string) bool {
	if priceAlias == "" {
		return false
	}
	for _, in := range f.Facets {
		if filter.EscapeAlias(in.Alias) == priceAlias {
			return true
		}
	}
	return false
}

func parseNumeric(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
