package filter

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/example/marketplace-catalog/internal/domain/item"
)

// Schema supplies the ordered filter definition set of a section. Section
// tree management itself is an external collaborator; the resolver only
// consumes its definitions.
type Schema interface {
	FiltersForSection(ctx context.Context, sectionID int64) ([]Definition, error)
}

// Resolver maps raw request parameters to typed filter values against a
// section's schema and hydrates stored facet maps back into display views.
type Resolver struct {
	schema Schema
	items  item.Store
}

func NewResolver(schema Schema, items item.Store) *Resolver {
	return &Resolver{schema: schema, items: items}
}

// FiltersForSection returns the section's definitions in display order.
func (r *Resolver) FiltersForSection(ctx context.Context, sectionID int64) ([]Definition, error) {
	return r.schema.FiltersForSection(ctx, sectionID)
}

// PriceAlias returns the facet alias a section assigns to carry price, or ""
// when the section does not bind one. Sections differ, so the generic price
// concept is always resolved through this lookup.
func (r *Resolver) PriceAlias(ctx context.Context, sectionID int64) (string, error) {
	section, err := r.items.GetByIDAndType(ctx, sectionID, item.TypeSection,
		item.Names(item.PropPriceFilterAlias), nil)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return section.String(item.PropPriceFilterAlias, ""), nil
}

// ParseValues converts raw request parameters into typed filter values.
// A parameter "alias_to" feeds the upper bound of "alias"; numeric repeated
// parameters become a selected-id list.
func (r *Resolver) ParseValues(raw map[string][]string) map[string]Value {
	values := make(map[string]Value)
	for key, params := range raw {
		if len(params) == 0 {
			continue
		}
		alias := EscapeAlias(strings.TrimSuffix(key, "_to"))
		if alias == "" {
			continue
		}
		v := values[alias]
		if strings.HasSuffix(key, "_to") {
			v.RawTo = strings.TrimSpace(params[0])
		} else {
			v.Raw = strings.TrimSpace(params[0])
			for _, p := range params {
				if id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64); err == nil && id > 0 {
					v.IDs = append(v.IDs, id)
				}
			}
		}
		values[alias] = v
	}
	return values
}

// BindValues binds parsed values into definitions for rendering. Values for
// aliases the definition set does not contain are ignored.
func (r *Resolver) BindValues(defs []Definition, values map[string]Value) []View {
	views := make([]View, 0, len(defs))
	for _, def := range defs {
		views = append(views, bind(def, values[EscapeAlias(def.Alias)], false))
	}
	return views
}

// IndexPredicates converts raw request parameters to index-query-compatible
// facet predicates, resolving each parameter against the section's filter
// definitions. The kind decides the predicate shape: number and interval
// facets produce a numeric range (Raw/RawTo), select and radio facets a
// selected-id set. ParseValues cannot tell a numeric range bound from a
// selected id on its own, so parameters for facets the section does not
// define are dropped rather than guessed at.
func (r *Resolver) IndexPredicates(ctx context.Context, sectionID int64, raw map[string][]string) (map[string]Value, error) {
	defs, err := r.schema.FiltersForSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]Kind, len(defs))
	for _, def := range defs {
		kinds[EscapeAlias(def.Alias)] = def.Kind
	}

	predicates := make(map[string]Value)
	for alias, v := range r.ParseValues(raw) {
		var pred Value
		switch kinds[alias] {
		case KindNumber, KindInterval:
			pred = Value{Raw: v.Raw, RawTo: v.RawTo}
		case KindSelect, KindRadio:
			pred = Value{IDs: v.IDs}
		default:
			continue
		}
		if !pred.Empty() {
			predicates[alias] = pred
		}
	}
	return predicates, nil
}

// OnlySelectedFilters binds raw parameters into the given definitions and
// keeps only the views that carry a non-empty selected value. Facet keys not
// defined for the section are dropped. The dimension facet is stamped with
// the effective dimension system.
func (r *Resolver) OnlySelectedFilters(ctx context.Context, sectionID int64, defs []View, raw map[string][]string, dimensionSystem string) ([]View, error) {
	sectionDefs, err := r.schema.FiltersForSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(sectionDefs))
	for _, def := range sectionDefs {
		known[EscapeAlias(def.Alias)] = true
	}

	values := r.ParseValues(raw)

	var selected []View
	for _, def := range defs {
		alias := EscapeAlias(def.Alias)
		if !known[alias] {
			continue
		}
		v, ok := values[alias]
		if !ok || v.Empty() {
			continue
		}
		view := def
		view.Value = v.Raw
		view.ValueTo = v.RawTo
		switch view.Kind {
		case KindSelect:
			view.SelectedIDs = v.IDs
		case KindRadio:
			if len(v.IDs) > 0 {
				view.SelectedID = v.IDs[0]
			}
		}
		if view.Alias == AliasDimension && dimensionSystem != "" {
			view.DimensionSystem = dimensionSystem
		}
		selected = append(selected, view)
	}
	return selected, nil
}

// GroupFilterViews projects a family's aggregate descriptors onto the
// section's filter definitions, producing group-level views carrying the
// merged bounds and id unions.
func (r *Resolver) GroupFilterViews(ctx context.Context, sectionID int64, aggs []Aggregate) ([]View, error) {
	defs, err := r.schema.FiltersForSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Definition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	var views []View
	for _, agg := range aggs {
		def, ok := byID[agg.ID]
		if !ok {
			continue
		}
		view := bind(def, Value{}, false)
		view.MinValue = agg.MinValue
		view.MaxValue = agg.MaxValue
		switch def.Kind {
		case KindSelect, KindRadio:
			view.SelectedIDs = append([]int64(nil), agg.Values...)
		}
		views = append(views, view)
	}
	return views, nil
}

// FiltersByMapForView hydrates a stored facet map into display views for the
// product detail page.
func (r *Resolver) FiltersByMapForView(ctx context.Context, sectionID int64, facets map[string]item.Value) ([]View, error) {
	return r.filtersByMap(ctx, sectionID, facets, false)
}

// FiltersByMapForEdit hydrates a stored facet map into editable views for
// the product edit form.
func (r *Resolver) FiltersByMapForEdit(ctx context.Context, sectionID int64, facets map[string]item.Value) ([]View, error) {
	return r.filtersByMap(ctx, sectionID, facets, true)
}

func (r *Resolver) filtersByMap(ctx context.Context, sectionID int64, facets map[string]item.Value, editable bool) ([]View, error) {
	defs, err := r.schema.FiltersForSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(defs))
	for _, def := range defs {
		key := item.FilterPrefix + EscapeAlias(def.Alias)
		stored, ok := facets[key]
		view := bind(def, Value{}, editable)
		if ok {
			hydrate(&view, stored)
		}
		views = append(views, view)
	}
	return views, nil
}

func bind(def Definition, v Value, editable bool) View {
	view := View{
		ID:              def.ID,
		Alias:           def.Alias,
		Kind:            def.Kind,
		Values:          def.Values,
		Unit:            def.Unit,
		DimensionSystem: def.DimensionSystem,
		InCard:          def.InCard,
		Editable:        editable,
	}
	view.Value = v.Raw
	view.ValueTo = v.RawTo
	switch def.Kind {
	case KindSelect:
		view.SelectedIDs = v.IDs
	case KindRadio:
		if len(v.IDs) > 0 {
			view.SelectedID = v.IDs[0]
		}
	}
	return view
}

// hydrate copies a stored facet property into the view. Number and interval
// facets persist a single numeric-or-sentinel string; select and radio
// facets persist value-id references.
func hydrate(view *View, stored item.Value) {
	switch view.Kind {
	case KindNumber, KindInterval:
		switch stored.Kind {
		case item.KindString:
			view.Value = stored.Str
		case item.KindInt:
			view.Value = strconv.FormatInt(stored.Int, 10)
		}
	case KindSelect:
		view.SelectedIDs = stored.RefIDs()
		if stored.Kind == item.KindRef {
			view.SelectedIDs = []int64{stored.Ref.ID}
		}
	case KindRadio:
		if stored.Kind == item.KindRef {
			view.SelectedID = stored.Ref.ID
		} else if ids := stored.RefIDs(); len(ids) > 0 {
			view.SelectedID = ids[0]
		}
	}
}
