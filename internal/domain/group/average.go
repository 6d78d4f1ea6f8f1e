package group

import (
	"strconv"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/product"
	"github.com/example/marketplace-catalog/internal/images"
)

// Average is the representative product shown at the top of a family page:
// identity comes from the first configuration, images are the union across
// every configuration, and facet views are widened to the family's merged
// bounds and selections.
type Average struct {
	Title       string
	Description string
	Price       int64
	PriceTo     int64
	Dimension   string
	Images      []*images.Image
	Filters     []filter.View
}

// BuildAverage folds the configurations of a family into one representative
// view. groupFilters are the section's filter views already carrying the
// group aggregate (see Resolver.OnlySelectedFilters); their bounds and
// selections override the per-member values collected here.
func BuildAverage(members []*product.EditView, groupFilters []filter.View) *Average {
	if len(members) == 0 {
		return nil
	}

	first := members[0]
	avg := &Average{
		Title:       first.Title,
		Description: first.Description,
	}

	if first.Price != nil {
		avg.Price = *first.Price
	}

	indexByID := make(map[int64]int)
	seenImages := make(map[int64]bool)

	for _, m := range members {
		if avg.Dimension == "" && m.Dimension != "" {
			avg.Dimension = m.Dimension
		}

		for _, img := range m.Images {
			if img == nil || seenImages[img.ID] {
				continue
			}
			seenImages[img.ID] = true
			avg.Images = append(avg.Images, img)
		}

		for _, f := range m.Filters {
			if _, ok := indexByID[f.ID]; ok {
				continue
			}
			indexByID[f.ID] = len(avg.Filters)
			avg.Filters = append(avg.Filters, f)
		}
	}

	for _, f := range groupFilters {
		if f.Alias == filter.AliasDimension && f.DimensionSystem != "" {
			avg.Dimension = f.DimensionSystem
		}

		if f.Alias == filter.AliasPrice {
			avg.Price = f.MinValue
			avg.PriceTo = f.MaxValue
			continue
		}

		idx, ok := indexByID[f.ID]
		if !ok {
			continue
		}

		switch f.Kind {
		case filter.KindNumber, filter.KindInterval:
			avg.Filters[idx].MinValue = f.MinValue
			avg.Filters[idx].MaxValue = f.MaxValue
			avg.Filters[idx].Value = strconv.FormatInt(f.MinValue, 10)
			avg.Filters[idx].ValueTo = strconv.FormatInt(f.MaxValue, 10)
		case filter.KindSelect, filter.KindRadio:
			avg.Filters[idx].SelectedIDs = mergeIDs(avg.Filters[idx].SelectedIDs, f.SelectedIDs)
		}
	}

	return avg
}

func mergeIDs(dst, src []int64) []int64 {
	for _, id := range src {
		if !containsID(dst, id) {
			dst = append(dst, id)
		}
	}
	return dst
}
