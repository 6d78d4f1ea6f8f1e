package group

import (
	"encoding/json"
	"errors"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/item"
)

var (
	ErrGroupNotFound = errors.New("product group folder not found")
)

// FolderName is the stored name of the FOLDER item backing a variant family.
const FolderName = "product_group"

// Properties is the aggregate a variant family's FOLDER item carries: the
// advertised minimum price, comma-joined color and size labels, the shared
// dimension system, and the per-facet aggregate descriptors.
type Properties struct {
	ID              int64
	MinPrice        *int64
	ColorsNames     string
	Sizes           string
	DimensionSystem string
	Filters         []filter.Aggregate
}

// FromItem projects a FOLDER item into the group aggregate model. A broken
// filters blob is not fatal; the group simply shows no per-facet aggregates
// until the next recomputation rewrites it.
func FromItem(it *item.Item) *Properties {
	p := &Properties{
		ID:              it.ID,
		ColorsNames:     it.String(item.PropColorsNames, ""),
		Sizes:           it.String(item.PropSizes, ""),
		DimensionSystem: it.String(item.PropDimensionSystem, ""),
	}

	if price := it.Int64(item.PropMinPrice, 0); price > 0 {
		p.MinPrice = &price
	}

	if raw := it.String(item.PropFilters, ""); raw != "" {
		var aggs []filter.Aggregate
		if err := json.Unmarshal([]byte(raw), &aggs); err == nil {
			p.Filters = aggs
		}
	}

	return p
}
