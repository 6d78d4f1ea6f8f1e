package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/domain/product"
	"github.com/example/marketplace-catalog/internal/images"
	"github.com/example/marketplace-catalog/internal/infrastructure/store/mocks"
	"github.com/example/marketplace-catalog/internal/search"
)

const (
	testNodeID    = int64(2)
	testSectionID = int64(3)
)

type stubSchema struct {
	defs map[int64][]filter.Definition
}

func (s *stubSchema) FiltersForSection(_ context.Context, sectionID int64) ([]filter.Definition, error) {
	return s.defs[sectionID], nil
}

type stubLocations struct {
	ids []int64
}

func (s *stubLocations) LocationsForNode(_ context.Context, _ int64) ([]int64, error) {
	return s.ids, nil
}

func newTestService() (*Service, *mocks.MockItemStore, *search.MemoryIndex) {
	items := mocks.NewMockItemStore()
	items.Seed(&item.Item{
		ID:    testSectionID,
		Type:  item.TypeSection,
		State: item.StateActive,
		Props: map[string]item.Value{
			item.PropPriceFilterAlias: item.StringValue("price"),
		},
	})

	schema := &stubSchema{defs: map[int64][]filter.Definition{
		testSectionID: {
			{ID: 1, Alias: "price", Kind: filter.KindNumber},
			{ID: 2, Alias: "color", Kind: filter.KindSelect, Values: []filter.ListValue{
				{ID: 10, Label: "red"}, {ID: 11, Label: "green"}, {ID: 12, Label: "blue"},
			}},
			{ID: 5, Alias: "weight", Kind: filter.KindNumber},
		},
	}}

	resolver := filter.NewResolver(schema, items)
	index := search.NewMemoryIndex(0)
	publisher := search.NewDirectPublisher(search.NewSyncer(index))
	imageService := images.NewItemService(items)

	svc := NewService(items, items, resolver, imageService, index, publisher, &stubLocations{ids: []int64{77}})
	return svc, items, index
}

func phoneForm(price string, colorID int64) *product.Form {
	form := &product.Form{
		Title:       "Phone",
		Description: "A phone",
		SectionID:   testSectionID,
		Publish:     true,
		Facets: []product.FacetInput{
			{Alias: "price", Kind: filter.KindNumber, Value: price},
		},
	}
	if colorID > 0 {
		form.Facets = append(form.Facets, product.FacetInput{
			Alias: "color", Kind: filter.KindSelect, SelectedIDs: []int64{colorID},
		})
	}
	return form
}

func TestService_SaveProduct_Create(t *testing.T) {
	svc, items, index := newTestService()
	ctx := context.Background()

	id, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))

	require.NoError(t, err)
	require.NotZero(t, id)

	it := items.Get(id)
	require.NotNil(t, it)
	assert.Equal(t, item.TypeProduct, it.Type)
	assert.Equal(t, "Phone", it.String(item.PropTitle, ""))
	assert.Equal(t, int64(100), it.Int64(item.PropPrice, 0))
	assert.Equal(t, "100", it.String(item.FilterPrefix+"price", ""))

	ids, err := index.Select(ctx, search.Query{SectionID: testSectionID, Statuses: []int{int(item.StatePublished)}})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestService_SaveProduct_UpdateReplacesFacets(t *testing.T) {
	svc, items, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	_, err = svc.SaveProduct(ctx, testNodeID, id, phoneForm("200", 0))
	require.NoError(t, err)

	it := items.Get(id)
	assert.Equal(t, "200", it.String(item.FilterPrefix+"price", ""))
	_, ok := it.Props[item.FilterPrefix+"color"]
	assert.False(t, ok, "stale facet keys must not survive a save")
}

func TestService_SaveProduct_UpdateUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SaveProduct(context.Background(), testNodeID, 999, phoneForm("100", 0))

	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestService_SaveProduct_SectionMoveDeletesOldDocument(t *testing.T) {
	svc, items, index := newTestService()
	ctx := context.Background()

	id, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 0))
	require.NoError(t, err)

	otherSection := int64(4)
	items.Seed(&item.Item{ID: otherSection, Type: item.TypeSection, State: item.StateActive})

	form := phoneForm("100", 0)
	form.SectionID = otherSection
	_, err = svc.SaveProduct(ctx, testNodeID, id, form)
	require.NoError(t, err)

	ids, err := index.Select(ctx, search.Query{SectionID: testSectionID})
	require.NoError(t, err)
	assert.Empty(t, ids, "old-section document must be removed")

	ids, err = index.Select(ctx, search.Query{SectionID: otherSection})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestService_SaveProduct_InvalidInterval(t *testing.T) {
	svc, _, _ := newTestService()

	form := &product.Form{
		Title:     "Phone",
		SectionID: testSectionID,
		Facets: []product.FacetInput{
			{Alias: "price", Kind: filter.KindInterval, Value: "300", ValueTo: "100"},
		},
	}

	_, err := svc.SaveProduct(context.Background(), testNodeID, 0, form)

	assert.ErrorIs(t, err, product.ErrInvalidInterval)
}

func TestService_SaveProduct_DuplicateConfigurationInGroup(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	firstID, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	// Attach a second configuration, creating the family.
	form := phoneForm("100", 11)
	form.FirstObjectID = firstID
	secondID, err := svc.SaveProduct(ctx, testNodeID, 0, form)
	require.NoError(t, err)
	require.NotZero(t, secondID)

	groupID := svc.mustGroupID(t, ctx, firstID)

	// A third configuration repeating the second one's facets is rejected.
	dup := phoneForm("100", 11)
	dup.GroupID = groupID
	_, err = svc.SaveProduct(ctx, testNodeID, 0, dup)
	assert.ErrorIs(t, err, ErrDuplicateConfiguration)

	// Unless it is an intentional copy.
	dup.CopyThis = true
	_, err = svc.SaveProduct(ctx, testNodeID, 0, dup)
	assert.NoError(t, err)
}

func TestService_SaveProduct_FirstConfigurationDuplicatesStandalone(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	firstID, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	form := phoneForm("100", 10)
	form.FirstObjectID = firstID

	_, err = svc.SaveProduct(ctx, testNodeID, 0, form)

	assert.ErrorIs(t, err, ErrDuplicateConfiguration)
}

func TestService_SaveProduct_FirstConfigurationDuplicatesLegacyStandalone(t *testing.T) {
	svc, items, _ := newTestService()
	ctx := context.Background()

	// A row saved before the digest property existed carries facets but no
	// stored hash; the duplicate check must still catch it.
	legacyID := int64(40)
	items.Seed(&item.Item{
		ID:     legacyID,
		NodeID: testNodeID,
		Type:   item.TypeProduct,
		State:  item.StateActive,
		Props: map[string]item.Value{
			item.PropTitle:              item.StringValue("Phone"),
			item.PropSection:            item.RefValue(testSectionID),
			item.FilterPrefix + "price": item.StringValue("100"),
			item.FilterPrefix + "color": item.RefListValue([]int64{10}),
		},
	})

	form := phoneForm("100", 10)
	form.FirstObjectID = legacyID

	_, err := svc.SaveProduct(ctx, testNodeID, 0, form)

	assert.ErrorIs(t, err, ErrDuplicateConfiguration)
}

func TestService_SaveProduct_FirstObjectPromotion(t *testing.T) {
	svc, items, index := newTestService()
	ctx := context.Background()

	firstID, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	form := phoneForm("150", 11)
	form.FirstObjectID = firstID
	secondID, err := svc.SaveProduct(ctx, testNodeID, 0, form)
	require.NoError(t, err)

	groupID := items.Get(firstID).Int64(item.PropGroupID, 0)
	require.NotZero(t, groupID, "standalone product should be stamped with the new group")

	ids, err := index.Select(ctx, search.Query{GroupID: search.ExactGroup(groupID)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{firstID, secondID}, ids)

	// The family aggregate exists and advertises the minimum price.
	props, err := svc.GroupProperties(ctx, groupID)
	require.NoError(t, err)
	require.NotNil(t, props.MinPrice)
	assert.Equal(t, int64(100), *props.MinPrice)
}

func TestService_SaveProduct_CrossSectionMoveOfGroupedProduct(t *testing.T) {
	svc, items, _ := newTestService()
	ctx := context.Background()

	firstID, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	form := phoneForm("150", 11)
	form.FirstObjectID = firstID
	secondID, err := svc.SaveProduct(ctx, testNodeID, 0, form)
	require.NoError(t, err)

	groupID := items.Get(firstID).Int64(item.PropGroupID, 0)

	otherSection := int64(4)
	items.Seed(&item.Item{ID: otherSection, Type: item.TypeSection, State: item.StateActive})

	moved := phoneForm("150", 11)
	moved.SectionID = otherSection
	moved.GroupID = groupID

	_, err = svc.SaveProduct(ctx, testNodeID, secondID, moved)

	assert.ErrorIs(t, err, ErrCannotMoveGroupedProduct)
}

func TestService_DeleteProduct(t *testing.T) {
	svc, items, index := newTestService()
	ctx := context.Background()

	id, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 0))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, testNodeID, id))

	assert.Equal(t, item.StateRemoved, items.Get(id).State)

	ids, err := index.Select(ctx, search.Query{SectionID: testSectionID})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_DeleteProduct_NodeMismatchReadsAsNotFound(t *testing.T) {
	svc, items, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 0))
	require.NoError(t, err)

	err = svc.DeleteProduct(ctx, testNodeID+1, id)

	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Equal(t, item.StateActive, items.Get(id).State)
}

func TestService_DeleteProduct_DissolvesPairGroup(t *testing.T) {
	svc, items, index := newTestService()
	ctx := context.Background()

	firstID, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	form := phoneForm("150", 11)
	form.FirstObjectID = firstID
	secondID, err := svc.SaveProduct(ctx, testNodeID, 0, form)
	require.NoError(t, err)

	groupID := items.Get(firstID).Int64(item.PropGroupID, 0)
	require.NotZero(t, groupID)

	require.NoError(t, svc.DeleteProduct(ctx, testNodeID, secondID))

	assert.Equal(t, item.StateRemoved, items.Get(groupID).State, "folder of a dissolved family is removed")

	_, grouped := items.Get(firstID).Props[item.PropGroupID]
	assert.False(t, grouped, "lone member becomes standalone")

	ids, err := index.Select(ctx, search.Query{SectionID: testSectionID, GroupID: search.ExactGroup(0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{firstID}, ids)
}

func TestService_DeleteProductFromFolder(t *testing.T) {
	svc, items, index := newTestService()
	ctx := context.Background()

	firstID, err := svc.SaveProduct(ctx, testNodeID, 0, phoneForm("100", 10))
	require.NoError(t, err)

	form := phoneForm("150", 11)
	form.FirstObjectID = firstID
	secondID, err := svc.SaveProduct(ctx, testNodeID, 0, form)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProductFromFolder(ctx, testNodeID, secondID))

	_, grouped := items.Get(secondID).Props[item.PropGroupID]
	assert.False(t, grouped)

	ids, err := index.Select(ctx, search.Query{SectionID: testSectionID, GroupID: search.ExactGroup(0)})
	require.NoError(t, err)
	assert.Contains(t, ids, secondID)
}

// mustGroupID reads the stamped group id of a stored product.
func (s *Service) mustGroupID(t *testing.T, ctx context.Context, productID int64) int64 {
	t.Helper()
	p, err := s.GetProductModel(ctx, productID)
	require.NoError(t, err)
	require.NotZero(t, p.GroupID)
	return p.GroupID
}
