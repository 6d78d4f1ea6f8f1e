package product

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/example/marketplace-catalog/internal/domain/item"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog's read projection of a PRODUCT item. Callers never
// touch the raw property bag; everything is resolved here once.
type Product struct {
	ID        int64
	NodeID    int64
	State     item.State
	CreatedAt time.Time

	Title       string
	Description string
	SectionID   int64
	Images      []int64

	// Price is nil when the product carries no usable price. A numeric-looking
	// string property is accepted; non-positive or unparsable strings mean
	// no price.
	Price *int64

	Dimension string
	GroupID   int64
	Published bool
	Hash      string

	// Facets holds only the filter-prefixed properties, keyed by the full
	// prefixed name.
	Facets map[string]item.Value
}

// FromItem hydrates a Product from a generic item. Representation drift in
// old data is normalized here: the section may be stored as a reference or a
// plain integer, images as an id list or embedded items, price as an integer
// or a string.
func FromItem(it *item.Item) *Product {
	p := &Product{
		ID:        it.ID,
		NodeID:    it.NodeID,
		State:     it.State,
		CreatedAt: it.CreatedAt,

		Title:       it.String(item.PropTitle, ""),
		Description: it.String(item.PropDescription, ""),
		Hash:        it.String(item.PropHash, ""),
		Dimension:   it.String(item.PropDimension, ""),
		GroupID:     it.Int64(item.PropGroupID, 0),

		// Old products predate the publish property but must stay published.
		Published: it.Int64(item.PropIsPublish, 1) == 1,

		Facets: map[string]item.Value{},
	}

	if v, ok := it.Value(item.PropPrice); ok {
		p.Price = priceFromValue(v)
	}

	if v, ok := it.Value(item.PropSection); ok {
		switch v.Kind {
		case item.KindRef:
			p.SectionID = v.Ref.ID
		case item.KindInt:
			p.SectionID = v.Int
		}
	}

	if v, ok := it.Value(item.PropImages); ok {
		switch v.Kind {
		case item.KindRefList:
			p.Images = v.RefIDs()
		case item.KindRef:
			p.Images = []int64{v.Ref.ID}
		}
	}

	for name, v := range it.Props {
		if strings.HasPrefix(name, item.FilterPrefix) {
			p.Facets[name] = v
		}
	}

	return p
}

// Grouped reports whether the product belongs to a variant family.
func (p *Product) Grouped() bool {
	return p.GroupID > 0
}

// ConfigHash returns the stored configuration digest. Products saved before
// the digest property existed recompute it from their stored facets, so
// duplicate detection covers old rows too.
func (p *Product) ConfigHash() string {
	if p.Hash != "" {
		return p.Hash
	}
	return HashFacets(CanonicalFacets(p.Facets))
}

func priceFromValue(v item.Value) *int64 {
	switch v.Kind {
	case item.KindInt:
		n := v.Int
		return &n
	case item.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil || n <= 0 {
			return nil
		}
		return &n
	}
	return nil
}
