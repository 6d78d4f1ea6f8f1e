package group

import (
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/domain/product"
)

// foldConfigurations merges the facet sets of every family member into the
// property assignments written onto the FOLDER item. Aggregates that do not
// discriminate between members (a single numeric value, a single selected
// id) are pruned before serialization.
func foldConfigurations(members []*product.EditView) []item.Property {
	var (
		prices          []int64
		colorIDs        []int64
		sizeIDs         []int64
		colorValues     []filter.ListValue
		sizeValues      []filter.ListValue
		dimensionSystem string

		aggs    []*filter.Aggregate
		aggByID = make(map[int64]*filter.Aggregate)
	)

	for _, m := range members {
		for _, f := range m.Filters {
			agg, seen := aggByID[f.ID]
			if !seen {
				agg = &filter.Aggregate{ID: f.ID, Kind: f.Kind}
			}

			switch f.Alias {
			case filter.AliasPrice:
				if price, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64); err == nil {
					if !containsID(prices, price) {
						prices = append(prices, price)
					}
				}
			case filter.AliasColor:
				colorIDs, colorValues = foldListSelection(f, colorIDs, colorValues)
			case filter.AliasDimension:
				sizeIDs, sizeValues = foldListSelection(f, sizeIDs, sizeValues)
				if m.Dimension != "" {
					dimensionSystem = m.Dimension
				}
			}

			switch f.Kind {
			case filter.KindNumber, filter.KindInterval:
				value, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64)
				if err != nil || value <= 0 {
					continue
				}
				if agg.MinValue == 0 || value < agg.MinValue {
					agg.MinValue = value
				}
				if agg.MaxValue == 0 || value > agg.MaxValue {
					agg.MaxValue = value
				}
			case filter.KindSelect:
				if len(f.SelectedIDs) == 0 {
					continue
				}
				for _, id := range f.SelectedIDs {
					if !containsID(agg.Values, id) {
						agg.Values = append(agg.Values, id)
					}
				}
			case filter.KindRadio:
				if f.SelectedID <= 0 {
					continue
				}
				if !containsID(agg.Values, f.SelectedID) {
					agg.Values = append(agg.Values, f.SelectedID)
				}
			}

			if !seen {
				aggs = append(aggs, agg)
				aggByID[f.ID] = agg
			}
		}
	}

	var props []item.Property

	if len(prices) > 1 {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
		props = append(props, item.IntProperty(item.PropMinPrice, prices[0]))
	}

	if names := joinSelectedLabels(colorIDs, colorValues); names != "" {
		props = append(props, item.StringProperty(item.PropColorsNames, names))
	}
	if dimensionSystem != "" {
		props = append(props, item.StringProperty(item.PropDimensionSystem, dimensionSystem))
	}
	if names := joinSelectedLabels(sizeIDs, sizeValues); names != "" {
		props = append(props, item.StringProperty(item.PropSizes, names))
	}

	pruned := make([]filter.Aggregate, 0, len(aggs))
	for _, agg := range aggs {
		if !agg.Discriminating() {
			continue
		}
		pruned = append(pruned, *agg)
	}

	if len(pruned) > 0 {
		blob, err := json.Marshal(pruned)
		if err != nil {
			log.Printf("[Aggregator] Failed to serialize group facet aggregates: %v", err)
		} else {
			props = append(props, item.StringProperty(item.PropFilters, string(blob)))
		}
	}

	return props
}

// foldListSelection accumulates the selected id union of a color/size facet.
// The candidate label list of the first member carrying a selection wins and
// resolves ids to labels for the whole family.
func foldListSelection(f filter.View, ids []int64, values []filter.ListValue) ([]int64, []filter.ListValue) {
	for _, id := range f.SelectedIDs {
		if containsID(ids, id) {
			continue
		}
		ids = append(ids, id)
		if len(values) == 0 {
			values = append(values, f.Values...)
		}
	}
	return ids, values
}

// joinSelectedLabels renders the id union as a comma-joined label string,
// keeping the candidate list order.
func joinSelectedLabels(ids []int64, values []filter.ListValue) string {
	if len(ids) == 0 || len(values) == 0 {
		return ""
	}
	var labels []string
	for _, v := range values {
		if containsID(ids, v.ID) {
			labels = append(labels, v.Label)
		}
	}
	return strings.Join(labels, ",")
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
