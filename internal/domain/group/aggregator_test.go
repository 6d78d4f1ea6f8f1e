package group

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace-catalog/internal/domain/filter"
	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/domain/product"
	"github.com/example/marketplace-catalog/internal/infrastructure/store/mocks"
	"github.com/example/marketplace-catalog/internal/search"
)

type stubProducts struct {
	models  map[int64]*product.Product
	members map[int64][]*product.EditView
	err     error
}

func (s *stubProducts) ProductModel(_ context.Context, productID int64) (*product.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.models[productID]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return p, nil
}

func (s *stubProducts) ProductsByGroupForEdit(_ context.Context, groupID int64) ([]*product.EditView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members[groupID], nil
}

func newTestAggregator(products *stubProducts) (*Aggregator, *mocks.MockItemStore, *search.MemoryIndex) {
	items := mocks.NewMockItemStore()
	index := search.NewMemoryIndex(0)
	publisher := search.NewDirectPublisher(search.NewSyncer(index))
	return NewAggregator(items, products, publisher), items, index
}

func TestAggregator_Recompute_EmptyGroupLeavesFolderUntouched(t *testing.T) {
	agg, items, _ := newTestAggregator(&stubProducts{members: map[int64][]*product.EditView{}})

	err := agg.Recompute(context.Background(), 50)

	require.NoError(t, err)
	assert.Empty(t, items.SetStateCalls)
	assert.Empty(t, items.SaveCalls)
}

func TestAggregator_Recompute_SingleMemberDissolvesGroup(t *testing.T) {
	products := &stubProducts{members: map[int64][]*product.EditView{
		50: {{ID: 7, SectionID: 3, GroupID: 50}},
	}}
	agg, items, index := newTestAggregator(products)
	ctx := context.Background()

	items.Seed(&item.Item{ID: 50, Type: item.TypeFolder, State: item.StateActive})
	items.Seed(&item.Item{ID: 7, Type: item.TypeProduct, State: item.StateActive, Props: map[string]item.Value{
		item.PropGroupID: item.IntValue(50),
	}})
	require.NoError(t, index.Add(ctx, search.Document{ID: 7, SectionID: 3, GroupID: 50}))

	err := agg.Recompute(ctx, 50)

	require.NoError(t, err)
	assert.Equal(t, item.StateRemoved, items.Get(50).State)

	_, ok := items.Get(7).Props[item.PropGroupID]
	assert.False(t, ok, "group id should be cleared from the lone member")

	ids, err := index.Select(ctx, search.Query{SectionID: 3, GroupID: search.ExactGroup(0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)
}

func TestAggregator_Recompute_WritesFolderAggregate(t *testing.T) {
	price := func(v string) filter.View {
		return filter.View{ID: 1, Alias: filter.AliasPrice, Kind: filter.KindNumber, Value: v}
	}
	products := &stubProducts{members: map[int64][]*product.EditView{
		50: {
			{ID: 7, SectionID: 3, GroupID: 50, Filters: []filter.View{price("100")}},
			{ID: 8, SectionID: 3, GroupID: 50, Filters: []filter.View{price("200")}},
		},
	}}
	agg, items, _ := newTestAggregator(products)

	items.Seed(&item.Item{ID: 50, Type: item.TypeFolder, State: item.StateActive})

	err := agg.Recompute(context.Background(), 50)

	require.NoError(t, err)
	folder := items.Get(50)
	assert.Equal(t, int64(100), folder.Int64(item.PropMinPrice, 0))
}

func TestAggregator_Recompute_MissingFolderFails(t *testing.T) {
	products := &stubProducts{members: map[int64][]*product.EditView{
		50: {{ID: 7}, {ID: 8}},
	}}
	agg, _, _ := newTestAggregator(products)

	err := agg.Recompute(context.Background(), 50)

	assert.ErrorIs(t, err, item.ErrNotFound)
}

func TestAggregator_Recompute_MemberLoadFailure(t *testing.T) {
	loadErr := errors.New("database error")
	agg, items, _ := newTestAggregator(&stubProducts{err: loadErr})

	err := agg.Recompute(context.Background(), 50)

	assert.ErrorIs(t, err, loadErr)
	assert.Empty(t, items.SaveCalls)
}

func TestAggregator_CheckConfigurationForUnique(t *testing.T) {
	facets := map[string]string{"filter_color": "10", "filter_size": "20"}
	hash := product.HashFacets(facets)

	products := &stubProducts{members: map[int64][]*product.EditView{
		50: {
			{ID: 7, Hash: hash},
			{ID: 8, Hash: "somethingelse"},
		},
	}}
	agg, _, _ := newTestAggregator(products)
	ctx := context.Background()

	unique, err := agg.CheckConfigurationForUnique(ctx, 50, 0, facets)
	require.NoError(t, err)
	assert.False(t, unique, "another member already has this configuration")

	unique, err = agg.CheckConfigurationForUnique(ctx, 50, 7, facets)
	require.NoError(t, err)
	assert.True(t, unique, "the colliding member is the one being updated")

	unique, err = agg.CheckConfigurationForUnique(ctx, 50, 0, map[string]string{"filter_color": "11"})
	require.NoError(t, err)
	assert.True(t, unique)
}

func TestAggregator_CreateFolderForProduct(t *testing.T) {
	products := &stubProducts{models: map[int64]*product.Product{
		7: {ID: 7, NodeID: 2, SectionID: 3},
	}}
	agg, items, index := newTestAggregator(products)
	ctx := context.Background()

	items.Seed(&item.Item{ID: 7, Type: item.TypeProduct, State: item.StateActive})
	require.NoError(t, index.Add(ctx, search.Document{ID: 7, SectionID: 3}))

	folderID, err := agg.CreateFolderForProduct(ctx, 7)

	require.NoError(t, err)
	require.NotZero(t, folderID)

	require.Len(t, items.CreateCalls, 1)
	assert.Equal(t, int64(2), items.CreateCalls[0].NodeID)
	assert.Equal(t, item.TypeFolder, items.CreateCalls[0].Type)
	assert.Equal(t, FolderName, items.CreateCalls[0].NameHint)

	assert.Equal(t, folderID, items.Get(7).Int64(item.PropGroupID, 0))

	ids, err := index.Select(ctx, search.Query{SectionID: 3, GroupID: search.ExactGroup(folderID)})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)
}

func TestAggregator_CreateFolderForProduct_UnknownProduct(t *testing.T) {
	agg, items, _ := newTestAggregator(&stubProducts{})

	_, err := agg.CreateFolderForProduct(context.Background(), 99)

	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Empty(t, items.CreateCalls)
}
