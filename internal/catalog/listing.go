package catalog

import (
	"context"
	"log"

	"github.com/example/marketplace-catalog/internal/domain/group"
	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/domain/product"
	"github.com/example/marketplace-catalog/internal/search"
)

// Listings never touch the entity store for the id selection: the search
// index is the only read path, and each selected id is hydrated
// individually. A product that fails to hydrate is logged and skipped, so
// one broken record cannot empty a whole page.

// ListRequest carries the caller-facing listing parameters.
type ListRequest struct {
	SectionID    int64
	LocationID   int64
	LocationToID int64
	Page         int

	// IsActive selects the visible status set: 1 means published products
	// only, any other non-nil value means active, nil means every status
	// (the owner's view of their own shop).
	IsActive *int64

	// Filters are the raw facet parameters, straight from the request.
	Filters map[string][]string
}

// GetProductsForPublic lists published products for visitors, ranked by
// weight then date.
func (s *Service) GetProductsForPublic(ctx context.Context, req ListRequest) ([]*product.ListView, error) {
	published := int64(1)
	ids, err := s.productIDs(ctx, 0, 0, req.SectionID, req.LocationID, req.LocationToID, &published, req.Page, req.Filters)
	if err != nil {
		return nil, err
	}
	return s.hydrateListViews(ctx, ids), nil
}

// GetProductsByNodeID lists one shop's products, newest first. IsActive
// keeps the owner/guest distinction of the request.
func (s *Service) GetProductsByNodeID(ctx context.Context, nodeID int64, req ListRequest) ([]*product.ListView, error) {
	ids, err := s.productIDs(ctx, nodeID, 0, req.SectionID, 0, 0, req.IsActive, req.Page, req.Filters)
	if err != nil {
		return nil, err
	}
	return s.hydrateListViews(ctx, ids), nil
}

// GetProductsByGroupID lists the members of a variant family.
func (s *Service) GetProductsByGroupID(ctx context.Context, groupID int64, req ListRequest) ([]*product.ListView, error) {
	ids, err := s.productIDs(ctx, 0, groupID, req.SectionID, 0, 0, nil, req.Page, req.Filters)
	if err != nil {
		return nil, err
	}
	return s.hydrateListViews(ctx, ids), nil
}

// GetProductsByGroupIDForList returns the configuration rows of a family
// page, optionally narrowed by facet parameters.
func (s *Service) GetProductsByGroupIDForList(ctx context.Context, groupID int64, req ListRequest) ([]*product.ConfigurationView, error) {
	ids, err := s.productIDs(ctx, 0, groupID, req.SectionID, 0, 0, nil, req.Page, req.Filters)
	if err != nil {
		return nil, err
	}

	views := make([]*product.ConfigurationView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetProductConfigurationForListItem(ctx, id)
		if err != nil {
			log.Printf("[Catalog] Failed to load product %d: %v", id, err)
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// GetProductsByGroupIDForEdit returns every member of a family in the edit
// projection, unpaginated. The aggregator folds over this.
func (s *Service) GetProductsByGroupIDForEdit(ctx context.Context, groupID int64) ([]*product.EditView, error) {
	q := search.Query{GroupID: search.ExactGroup(groupID)}
	ids, err := s.index.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	views := make([]*product.EditView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetProductForEdit(ctx, id)
		if err != nil {
			log.Printf("[Catalog] Failed to load product %d: %v", id, err)
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// ProductsByGroupForEdit satisfies group.ProductSource.
func (s *Service) ProductsByGroupForEdit(ctx context.Context, groupID int64) ([]*product.EditView, error) {
	return s.GetProductsByGroupIDForEdit(ctx, groupID)
}

// GroupAverage builds the representative product of a family page: the
// members are folded with the family's aggregate filter views.
func (s *Service) GroupAverage(ctx context.Context, groupID int64) (*group.Average, error) {
	members, err := s.GetProductsByGroupIDForEdit(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, group.ErrGroupNotFound
	}

	props, err := s.GroupProperties(ctx, groupID)
	if err != nil {
		return nil, err
	}

	groupFilters, err := s.filters.GroupFilterViews(ctx, members[0].SectionID, props.Filters)
	if err != nil {
		return nil, err
	}

	return group.BuildAverage(members, groupFilters), nil
}

// productIDs translates the listing parameters into one index query.
func (s *Service) productIDs(ctx context.Context, nodeID, groupID, sectionID, locationID, locationToID int64, isActive *int64, page int, rawFilters map[string][]string) ([]int64, error) {
	q := search.Query{
		SectionID:    sectionID,
		LocationID:   locationID,
		LocationToID: locationToID,
		PageSize:     search.DefaultPageSize,
		Page:         page,
	}

	if isActive != nil {
		st := item.StateActive
		if *isActive == 1 {
			st = item.StatePublished
		}
		q.Statuses = []int{int(st)}
	}

	if nodeID > 0 {
		q.ShopID = nodeID
		q.Order = search.OrderDateDesc
	} else if isActive != nil {
		q.Order = search.OrderWeightDate
	}

	if groupID > 0 {
		q.GroupID = search.ExactGroup(groupID)
	}

	if len(rawFilters) > 0 {
		predicates, err := s.filters.IndexPredicates(ctx, sectionID, rawFilters)
		if err != nil {
			return nil, err
		}
		q.Filters = predicates
	}

	return s.index.Select(ctx, q)
}

func (s *Service) hydrateListViews(ctx context.Context, ids []int64) []*product.ListView {
	views := make([]*product.ListView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetProductForList(ctx, id)
		if err != nil {
			log.Printf("[Catalog] Failed to load product %d: %v", id, err)
			continue
		}
		views = append(views, view)
	}
	return views
}
