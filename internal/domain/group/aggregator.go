package group

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/domain/product"
	"github.com/example/marketplace-catalog/internal/search"
)

// ProductSource loads the member projections the aggregator folds. The
// catalog service implements it; the indirection keeps this package free of
// the orchestration layer.
type ProductSource interface {
	// ProductModel returns the full projection of one product.
	ProductModel(ctx context.Context, productID int64) (*product.Product, error)

	// ProductsByGroupForEdit returns the edit-view projection of every
	// member of a family, facet hydration included.
	ProductsByGroupForEdit(ctx context.Context, groupID int64) ([]*product.EditView, error)
}

// Aggregator maintains the FOLDER aggregate of each variant family and
// drives group lifecycle transitions. Recomputation of one family is
// serialized: two concurrent writers to the same group fold one after the
// other instead of racing on the FOLDER item.
type Aggregator struct {
	items     item.Store
	products  ProductSource
	publisher search.Publisher

	mu    sync.Mutex
	locks map[int64]*groupLock
}

type groupLock struct {
	sync.Mutex
	refs int
}

func NewAggregator(items item.Store, products ProductSource, publisher search.Publisher) *Aggregator {
	return &Aggregator{
		items:     items,
		products:  products,
		publisher: publisher,
		locks:     make(map[int64]*groupLock),
	}
}

// lockGroup acquires the per-family lock, creating it on first use and
// dropping it once the last holder releases.
func (a *Aggregator) lockGroup(groupID int64) func() {
	a.mu.Lock()
	l, ok := a.locks[groupID]
	if !ok {
		l = &groupLock{}
		a.locks[groupID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, groupID)
		}
		a.mu.Unlock()
	}
}

// Recompute refreshes the FOLDER aggregate of a family after a membership
// or facet change. A family reduced to one member is dissolved: the FOLDER
// is removed and the lone member becomes standalone again. A family with no
// members at all indicates a bookkeeping bug elsewhere and is left alone.
func (a *Aggregator) Recompute(ctx context.Context, groupID int64) error {
	unlock := a.lockGroup(groupID)
	defer unlock()

	members, err := a.products.ProductsByGroupForEdit(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load members of group %d: %w", groupID, err)
	}

	if len(members) == 0 {
		log.Printf("[Aggregator] Group %d has no members, a product must never be the only entry of a family; leaving the folder untouched", groupID)
		return nil
	}

	if len(members) == 1 {
		if err := a.items.SetState(ctx, groupID, item.StateRemoved); err != nil {
			return fmt.Errorf("remove folder %d: %w", groupID, err)
		}
		return a.Detach(ctx, members[0].ID, members[0].SectionID)
	}

	props := foldConfigurations(members)

	if _, err := a.items.GetByIDAndType(ctx, groupID, item.TypeFolder, item.Names(), nil); err != nil {
		return fmt.Errorf("load folder %d: %w", groupID, err)
	}

	if err := a.items.SaveProperties(ctx, groupID, false, props...); err != nil {
		return fmt.Errorf("save folder %d aggregate: %w", groupID, err)
	}

	return nil
}

// CheckConfigurationForUnique reports whether a candidate facet set is
// distinct from every other member of the family. Two members with the same
// facet content hash would be indistinguishable variants.
func (a *Aggregator) CheckConfigurationForUnique(ctx context.Context, groupID, excludeProductID int64, facets map[string]string) (bool, error) {
	hash := product.HashFacets(facets)

	members, err := a.products.ProductsByGroupForEdit(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("load members of group %d: %w", groupID, err)
	}

	for _, m := range members {
		if m.Hash == hash && m.ID != excludeProductID {
			return false, nil
		}
	}

	return true, nil
}

// CreateFolderForProduct promotes a standalone product into a family:
// a FOLDER item is created under the product's node, the product is stamped
// with the new group id, and the index learns about the membership.
func (a *Aggregator) CreateFolderForProduct(ctx context.Context, productID int64) (int64, error) {
	p, err := a.products.ProductModel(ctx, productID)
	if err != nil {
		return 0, err
	}

	folder, err := a.items.Create(ctx, p.NodeID, item.TypeFolder, FolderName)
	if err != nil {
		return 0, fmt.Errorf("create folder for product %d: %w", productID, err)
	}

	if err := a.items.SaveProperties(ctx, productID, false, item.IntProperty(item.PropGroupID, folder.ID)); err != nil {
		return 0, fmt.Errorf("stamp product %d with group %d: %w", productID, folder.ID, err)
	}

	patch := search.Patch{ID: productID, SectionID: p.SectionID, GroupID: &folder.ID}
	if err := a.publisher.Publish(ctx, search.NewUpdateIntent(patch)); err != nil {
		return 0, fmt.Errorf("publish group update for product %d: %w", productID, err)
	}

	return folder.ID, nil
}

// Detach makes a product standalone again: the group id is cleared in the
// entity store and zeroed in the search index. Group bookkeeping for the
// remaining members is the caller's concern.
func (a *Aggregator) Detach(ctx context.Context, productID, sectionID int64) error {
	if err := a.items.ClearProperty(ctx, productID, item.PropGroupID); err != nil {
		return fmt.Errorf("clear group id of product %d: %w", productID, err)
	}

	ungrouped := int64(0)
	patch := search.Patch{ID: productID, SectionID: sectionID, GroupID: &ungrouped}
	if err := a.publisher.Publish(ctx, search.NewUpdateIntent(patch)); err != nil {
		return fmt.Errorf("publish detach of product %d: %w", productID, err)
	}

	return nil
}
