package product

import (
	"time"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/images"
)

// The view builders are pure transforms over an already-loaded Product; the
// orchestrator fills in the image and filter hydration afterwards.

// GroupSummary is the slice of a variant family's aggregate a list item
// shows next to a grouped product.
type GroupSummary struct {
	MinPrice        *int64
	Colors          string
	Sizes           string
	DimensionSystem string
}

// ListView is the list-item shape: core fields, the primary image, and the
// group summary when the product is part of a family.
type ListView struct {
	ID        int64
	NodeID    int64
	SectionID int64
	GroupID   int64
	State     item.State
	CreatedAt time.Time
	Title     string
	Price     *int64
	Published bool

	Image *images.Image
	Group *GroupSummary
}

func NewListView(p *Product) *ListView {
	return &ListView{
		ID:        p.ID,
		NodeID:    p.NodeID,
		SectionID: p.SectionID,
		GroupID:   p.GroupID,
		State:     p.State,
		CreatedAt: p.CreatedAt,
		Title:     p.Title,
		Price:     p.Price,
		Published: p.Published,
	}
}

// EditView carries everything the edit form needs, including the full facet
// hydration and every image.
type EditView struct {
	ID          int64
	NodeID      int64
	SectionID   int64
	GroupID     int64
	State       item.State
	CreatedAt   time.Time
	Title       string
	Description string
	Price       *int64
	Dimension   string
	Published   bool
	Hash        string

	Images  []*images.Image
	Filters []filter.View
}

func NewEditView(p *Product) *EditView {
	return &EditView{
		ID:          p.ID,
		NodeID:      p.NodeID,
		SectionID:   p.SectionID,
		GroupID:     p.GroupID,
		State:       p.State,
		CreatedAt:   p.CreatedAt,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Dimension:   p.Dimension,
		Published:   p.Published,
		Hash:        p.Hash,
	}
}

// DetailView is the product page shape: full facet hydration plus the group
// aggregate facets when the product is grouped.
type DetailView struct {
	ID          int64
	NodeID      int64
	SectionID   int64
	GroupID     int64
	CreatedAt   time.Time
	Title       string
	Description string
	Price       *int64
	Dimension   string
	Published   bool

	Images       []*images.Image
	Filters      []filter.View
	GroupFilters []filter.Aggregate
}

func NewDetailView(p *Product) *DetailView {
	return &DetailView{
		ID:          p.ID,
		NodeID:      p.NodeID,
		SectionID:   p.SectionID,
		GroupID:     p.GroupID,
		CreatedAt:   p.CreatedAt,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Dimension:   p.Dimension,
		Published:   p.Published,
	}
}

// ConfigurationView is the shape of one variant inside a family listing.
type ConfigurationView struct {
	ID        int64
	NodeID    int64
	SectionID int64
	GroupID   int64
	Title     string
	Price     *int64
	Dimension string
	Hash      string

	Image   *images.Image
	Filters []filter.View
}

func NewConfigurationView(p *Product) *ConfigurationView {
	return &ConfigurationView{
		ID:        p.ID,
		NodeID:    p.NodeID,
		SectionID: p.SectionID,
		GroupID:   p.GroupID,
		Title:     p.Title,
		Price:     p.Price,
		Dimension: p.Dimension,
		Hash:      p.Hash,
	}
}
