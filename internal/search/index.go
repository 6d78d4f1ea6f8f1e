package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/example/marketplace-catalog/internal/domain/filter"
)

// DefaultPageSize is the listing page size.
const DefaultPageSize = 30

// Document is the denormalized per-product index record. The index is a
// derived, eventually-consistent cache; the entity store stays the system of
// record.
type Document struct {
	ID        int64                   `json:"id"`
	SectionID int64                   `json:"section_id"`
	GroupID   int64                   `json:"group_id"`
	ShopID    int64                   `json:"shop_id"`
	Title     string                  `json:"title"`
	Text      string                  `json:"text"`
	Facets    map[string]filter.Value `json:"facets,omitempty"`
	Status    int                     `json:"status"`
	Weight    int64                   `json:"weight"`
	Locations []int64                 `json:"locations,omitempty"`
	Locale    string                  `json:"locale,omitempty"`
	Date      time.Time               `json:"date"`
}

// Patch is a partial document update; nil fields are left untouched.
type Patch struct {
	ID        int64  `json:"id"`
	SectionID int64  `json:"section_id"`
	GroupID   *int64 `json:"group_id,omitempty"`
	Status    *int   `json:"status,omitempty"`
	Weight    *int64 `json:"weight,omitempty"`
}

// Order is the supported result ordering.
type Order int

const (
	// OrderDateDesc is reverse-chronological (owner listings).
	OrderDateDesc Order = iota
	// OrderWeightDate ranks by weight, ties broken by recency (public
	// listings).
	OrderWeightDate
)

// Query selects product ids from the index.
type Query struct {
	// SectionID restricts to a section; 0 (or the configured root) means no
	// section constraint.
	SectionID int64
	ShopID    int64

	// GroupID: nil matches any group, a pointer to 0 matches only ungrouped
	// products, >0 matches one family exactly.
	GroupID *int64

	LocationID   int64
	LocationToID int64
	Statuses     []int
	Filters      map[string]filter.Value

	// PageSize 0 disables paging.
	PageSize int
	Page     int
	Order    Order
}

// ExactGroup constrains a query to one family (or, with 0, to ungrouped
// products).
func ExactGroup(id int64) *int64 {
	return &id
}

// Index is the external search index contract. Select is the only read path
// for filtered, paginated product listing.
type Index interface {
	Add(ctx context.Context, doc Document) error
	Update(ctx context.Context, patch Patch) error
	Delete(ctx context.Context, sectionID, productID int64) error
	Select(ctx context.Context, q Query) ([]int64, error)
}

// matchesQuery applies every non-facet and facet predicate of a query to a
// document. rootSectionID is treated as "no section constraint".
func matchesQuery(doc Document, q Query, rootSectionID int64) bool {
	if q.SectionID > 0 && q.SectionID != rootSectionID && doc.SectionID != q.SectionID {
		return false
	}
	if q.ShopID > 0 && doc.ShopID != q.ShopID {
		return false
	}
	if q.GroupID != nil && doc.GroupID != *q.GroupID {
		return false
	}
	if q.LocationID > 0 && !containsInt64(doc.Locations, q.LocationID) {
		return false
	}
	if q.LocationToID > 0 && !containsInt64(doc.Locations, q.LocationToID) {
		return false
	}
	if len(q.Statuses) > 0 && !containsInt(q.Statuses, doc.Status) {
		return false
	}
	for alias, pred := range q.Filters {
		if pred.Empty() {
			continue
		}
		docValue, ok := doc.Facets[alias]
		if !ok || !matchesFacet(docValue, pred) {
			return false
		}
	}
	return true
}

// lessByOrder is the shared result ordering of the scan-style backends.
func lessByOrder(a, b Document, order Order) bool {
	if order == OrderWeightDate && a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}

// matchesFacet applies one facet predicate to a document facet value:
// any-of over selected ids, numeric range over raw values.
func matchesFacet(docValue, pred filter.Value) bool {
	if len(pred.IDs) > 0 && len(docValue.IDs) > 0 {
		for _, want := range pred.IDs {
			for _, have := range docValue.IDs {
				if want == have {
					return true
				}
			}
		}
		return false
	}

	docRaw := strings.TrimSpace(docValue.Raw)
	if docRaw == "" {
		return false
	}
	n, err := strconv.ParseInt(docRaw, 10, 64)
	if err != nil {
		return strings.EqualFold(docRaw, strings.TrimSpace(pred.Raw))
	}

	if from := strings.TrimSpace(pred.Raw); from != "" {
		if min, err := strconv.ParseInt(from, 10, 64); err == nil && n < min {
			return false
		}
	}
	if to := strings.TrimSpace(pred.RawTo); to != "" {
		if max, err := strconv.ParseInt(to, 10, 64); err == nil && n > max {
			return false
		}
	}
	return true
}

func containsInt64(xs []int64, x int64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
