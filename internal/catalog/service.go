package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/group"
	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/domain/product"
	"github.com/example/marketplace-catalog/internal/images"
	"github.com/example/marketplace-catalog/internal/search"
)

var (
	// ErrDuplicateConfiguration is a soft rejection: the submitted facet set
	// matches another member of the same family.
	ErrDuplicateConfiguration = errors.New("configuration already exists in this group")

	// ErrCannotMoveGroupedProduct rejects a section change on a product that
	// belongs to a variant family.
	ErrCannotMoveGroupedProduct = errors.New("cannot move a grouped product to another section")
)

// LocationSource resolves the location ids a node's products are sold in.
type LocationSource interface {
	LocationsForNode(ctx context.Context, nodeID int64) ([]int64, error)
}

// Service composes the entity store, the filter resolver, the variant
// aggregator and the search index into the product use cases. Writes run in
// one store transaction; the index is updated through published intents
// after the write, never inside its atomicity boundary.
type Service struct {
	items     item.Store
	tx        item.Transactor
	filters   *filter.Resolver
	images    images.Service
	index     search.Index
	publisher search.Publisher
	locations LocationSource
	groups    *group.Aggregator
}

func NewService(
	items item.Store,
	tx item.Transactor,
	filters *filter.Resolver,
	imageService images.Service,
	index search.Index,
	publisher search.Publisher,
	locations LocationSource,
) *Service {
	s := &Service{
		items:     items,
		tx:        tx,
		filters:   filters,
		images:    imageService,
		index:     index,
		publisher: publisher,
		locations: locations,
	}
	s.groups = group.NewAggregator(items, s, publisher)
	return s
}

// Groups exposes the variant aggregator built over this service.
func (s *Service) Groups() *group.Aggregator {
	return s.groups
}

// rollbackExempt lists the errors a write transaction commits through: a
// read miss after a write must not undo the write.
var rollbackExempt = []error{item.ErrNotFound, product.ErrProductNotFound, group.ErrGroupNotFound}

// SaveProduct creates a product when productID is zero and updates it
// otherwise. The facet property set is fully replaced, the index document is
// republished, and the family aggregate is recomputed when the product is
// grouped. Returns the product id.
func (s *Service) SaveProduct(ctx context.Context, nodeID, productID int64, form *product.Form) (int64, error) {
	var savedID int64

	err := s.tx.InTx(ctx, rollbackExempt, func(ctx context.Context) error {
		if err := s.checkGrouping(ctx, productID, form); err != nil {
			return err
		}

		id, err := s.saveProduct(ctx, nodeID, productID, form)
		if err != nil {
			return err
		}
		savedID = id

		if form.GroupID > 0 {
			if err := s.groups.Recompute(ctx, form.GroupID); err != nil {
				// The product write stands even when the family aggregate
				// could not be refreshed.
				log.Printf("[Catalog] Failed to recompute group %d: %v", form.GroupID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return savedID, nil
}

// checkGrouping enforces the family constraints before a save: a duplicate
// configuration is rejected softly, a grouped product cannot change section,
// and the first attached configuration promotes the target product into a
// fresh family.
func (s *Service) checkGrouping(ctx context.Context, productID int64, form *product.Form) error {
	if productID == 0 {
		if form.GroupID > 0 {
			if form.CopyThis {
				return nil
			}
			unique, err := s.groups.CheckConfigurationForUnique(ctx, form.GroupID, 0, form.FacetMap())
			if err != nil {
				return err
			}
			if !unique {
				return ErrDuplicateConfiguration
			}
			return nil
		}

		if form.FirstObjectID > 0 {
			first, err := s.GetProductModel(ctx, form.FirstObjectID)
			if err != nil {
				return err
			}
			if !form.CopyThis && first.ConfigHash() == form.ConfigHash() {
				return ErrDuplicateConfiguration
			}
			groupID, err := s.groups.CreateFolderForProduct(ctx, form.FirstObjectID)
			if err != nil {
				return err
			}
			form.GroupID = groupID
		}
		return nil
	}

	if form.GroupID > 0 {
		p, err := s.GetProductModel(ctx, productID)
		if err != nil {
			return err
		}
		if p.SectionID != form.SectionID {
			return ErrCannotMoveGroupedProduct
		}
		if form.CopyThis {
			return nil
		}
		unique, err := s.groups.CheckConfigurationForUnique(ctx, form.GroupID, productID, form.FacetMap())
		if err != nil {
			return err
		}
		if !unique {
			return ErrDuplicateConfiguration
		}
	}
	return nil
}

func (s *Service) saveProduct(ctx context.Context, nodeID, productID int64, form *product.Form) (int64, error) {
	var it *item.Item
	var oldSectionID int64

	if productID == 0 {
		created, err := s.items.Create(ctx, nodeID, item.TypeProduct, "product")
		if err != nil {
			return 0, fmt.Errorf("%w: %v", item.ErrCreateFailed, err)
		}
		it = created
	} else {
		loaded, err := s.items.GetByID(ctx, productID, item.Names(item.PropSection))
		if errors.Is(err, item.ErrNotFound) {
			return 0, product.ErrProductNotFound
		}
		if err != nil {
			return 0, err
		}
		it = loaded

		if v, ok := it.Props[item.PropSection]; ok {
			switch v.Kind {
			case item.KindRef:
				oldSectionID = v.Ref.ID
			case item.KindInt:
				oldSectionID = v.Int
			}
		}
	}

	priceAlias, err := s.filters.PriceAlias(ctx, form.SectionID)
	if err != nil {
		return 0, err
	}

	// Full replace: stale facet keys must never survive a save.
	if err := s.items.ClearPropertiesByPrefix(ctx, it.ID, item.FilterPrefix); err != nil {
		return 0, err
	}

	props, err := form.Properties(priceAlias)
	if err != nil {
		return 0, err
	}
	if err := s.items.SaveProperties(ctx, it.ID, false, props...); err != nil {
		return 0, err
	}

	// A section move leaves a document behind under the old section; delete
	// it before publishing the new one.
	if oldSectionID != 0 && oldSectionID != form.SectionID {
		if err := s.publisher.Publish(ctx, search.NewDeleteIntent(oldSectionID, it.ID)); err != nil {
			return 0, err
		}
	}

	doc, err := s.buildDocument(ctx, nodeID, it, form, priceAlias)
	if err != nil {
		return 0, err
	}
	if err := s.publisher.Publish(ctx, search.NewAddIntent(doc)); err != nil {
		return 0, err
	}

	return it.ID, nil
}

func (s *Service) buildDocument(ctx context.Context, nodeID int64, it *item.Item, form *product.Form, priceAlias string) (search.Document, error) {
	locations, err := s.locations.LocationsForNode(ctx, nodeID)
	if err != nil {
		return search.Document{}, fmt.Errorf("resolve locations of node %d: %w", nodeID, err)
	}

	// Date drives the recency ordering; a freshly created item may not have
	// a timestamp yet when the store fills it in on commit.
	date := it.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}

	status := int(item.StateActive)
	if form.Publish {
		status = int(item.StatePublished)
	}

	var weight int64
	if len(form.Images) > 0 {
		weight += 2
	}
	if form.HasPriceFacet(priceAlias) {
		weight++
	}

	doc := search.Document{
		ID:        it.ID,
		SectionID: form.SectionID,
		ShopID:    nodeID,
		Title:     form.Title,
		Text:      form.Description,
		Facets:    form.IndexFacets(),
		Status:    status,
		Weight:    weight,
		Date:      date,
		Locations: locations,
	}
	if form.GroupID > 0 {
		doc.GroupID = form.GroupID
	}
	return doc, nil
}

// GetProductModel returns the full projection of one product. Only active
// and approved products are visible here; anything else reads as not found.
func (s *Service) GetProductModel(ctx context.Context, productID int64) (*product.Product, error) {
	it, err := s.items.GetByIDAndType(ctx, productID, item.TypeProduct, item.AllFields(),
		item.StateIn(item.StateActive, item.StateApproved))
	if errors.Is(err, item.ErrNotFound) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return product.FromItem(it), nil
}

// ProductModel satisfies group.ProductSource.
func (s *Service) ProductModel(ctx context.Context, productID int64) (*product.Product, error) {
	return s.GetProductModel(ctx, productID)
}

// GroupProperties returns the aggregate model of a variant family.
func (s *Service) GroupProperties(ctx context.Context, groupID int64) (*group.Properties, error) {
	it, err := s.items.GetByIDAndType(ctx, groupID, item.TypeFolder, item.AllFields(), nil)
	if errors.Is(err, item.ErrNotFound) {
		return nil, group.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return group.FromItem(it), nil
}

// GetProductView returns the product page projection: every image, the full
// facet hydration, and the family aggregate when the product is grouped.
func (s *Service) GetProductView(ctx context.Context, productID int64) (*product.DetailView, error) {
	p, err := s.GetProductModel(ctx, productID)
	if err != nil {
		return nil, err
	}

	view := product.NewDetailView(p)

	view.Images = s.loadImages(ctx, p.Images)

	filters, err := s.filters.FiltersByMapForView(ctx, p.SectionID, p.Facets)
	if err != nil {
		return nil, err
	}
	view.Filters = filters

	if p.Grouped() {
		props, err := s.GroupProperties(ctx, p.GroupID)
		if err != nil {
			log.Printf("[Catalog] Failed to load group %d aggregate for product %d: %v", p.GroupID, productID, err)
		} else {
			view.GroupFilters = props.Filters
		}
	}

	return view, nil
}

// GetProductForEdit returns the edit form projection.
func (s *Service) GetProductForEdit(ctx context.Context, productID int64) (*product.EditView, error) {
	p, err := s.GetProductModel(ctx, productID)
	if err != nil {
		return nil, err
	}

	view := product.NewEditView(p)
	view.Images = s.loadImages(ctx, p.Images)

	filters, err := s.filters.FiltersByMapForEdit(ctx, p.SectionID, p.Facets)
	if err != nil {
		return nil, err
	}
	view.Filters = filters

	return view, nil
}

// GetProductForList returns the list-item projection: the primary image and
// the family summary when the product is grouped.
func (s *Service) GetProductForList(ctx context.Context, productID int64) (*product.ListView, error) {
	p, err := s.GetProductModel(ctx, productID)
	if err != nil {
		return nil, err
	}

	view := product.NewListView(p)

	if len(p.Images) > 0 {
		img, err := s.images.ImageInfo(ctx, p.Images[0])
		if err != nil {
			log.Printf("[Catalog] Failed to load image %d of product %d: %v", p.Images[0], productID, err)
		} else {
			view.Image = img
		}
	}

	if !p.Grouped() {
		return view, nil
	}

	props, err := s.GroupProperties(ctx, p.GroupID)
	if err != nil {
		log.Printf("[Catalog] Failed to load group %d aggregate for product %d: %v", p.GroupID, productID, err)
		return view, nil
	}
	view.Group = &product.GroupSummary{
		MinPrice:        props.MinPrice,
		Colors:          props.ColorsNames,
		Sizes:           props.Sizes,
		DimensionSystem: props.DimensionSystem,
	}

	return view, nil
}

// GetProductConfigurationForListItem returns one variant's row in a family
// listing.
func (s *Service) GetProductConfigurationForListItem(ctx context.Context, productID int64) (*product.ConfigurationView, error) {
	p, err := s.GetProductModel(ctx, productID)
	if err != nil {
		return nil, err
	}

	view := product.NewConfigurationView(p)

	filters, err := s.filters.FiltersByMapForEdit(ctx, p.SectionID, p.Facets)
	if err != nil {
		return nil, err
	}
	view.Filters = filters

	if len(p.Images) > 0 {
		img, err := s.images.ImageInfo(ctx, p.Images[0])
		if err != nil {
			log.Printf("[Catalog] Failed to load image %d of product %d: %v", p.Images[0], productID, err)
		} else {
			view.Image = img
		}
	}

	return view, nil
}

// DeleteProduct marks a product removed, deletes its index document and
// refreshes its family. A node mismatch reads as not found, so one shop
// cannot probe another's products.
func (s *Service) DeleteProduct(ctx context.Context, nodeID, productID int64) error {
	return s.tx.InTx(ctx, rollbackExempt, func(ctx context.Context) error {
		p, err := s.GetProductModel(ctx, productID)
		if err != nil {
			return err
		}
		if p.NodeID != nodeID {
			return product.ErrProductNotFound
		}

		if err := s.items.SetState(ctx, productID, item.StateRemoved); err != nil {
			return err
		}

		if err := s.publisher.Publish(ctx, search.NewDeleteIntent(p.SectionID, productID)); err != nil {
			return err
		}

		if p.Grouped() {
			if err := s.groups.Recompute(ctx, p.GroupID); err != nil {
				log.Printf("[Catalog] Failed to recompute group %d: %v", p.GroupID, err)
			}
		}
		return nil
	})
}

// DeleteProductFromFolder detaches a product from its family without
// touching the rest of the group; callers refresh the family afterwards.
func (s *Service) DeleteProductFromFolder(ctx context.Context, nodeID, productID int64) error {
	return s.tx.InTx(ctx, rollbackExempt, func(ctx context.Context) error {
		p, err := s.GetProductModel(ctx, productID)
		if err != nil {
			return err
		}
		if p.NodeID != nodeID {
			return product.ErrProductNotFound
		}
		return s.groups.Detach(ctx, productID, p.SectionID)
	})
}

// CheckConfigurationForUnique passes through to the aggregator.
func (s *Service) CheckConfigurationForUnique(ctx context.Context, groupID, excludeProductID int64, facets map[string]string) (bool, error) {
	return s.groups.CheckConfigurationForUnique(ctx, groupID, excludeProductID, facets)
}

func (s *Service) loadImages(ctx context.Context, ids []int64) []*images.Image {
	loaded := make([]*images.Image, 0, len(ids))
	for _, id := range ids {
		img, err := s.images.ImageInfo(ctx, id)
		if err != nil {
			log.Printf("[Catalog] Failed to load image %d: %v", id, err)
			continue
		}
		loaded = append(loaded, img)
	}
	return loaded
}
