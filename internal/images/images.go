package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/marketplace-catalog/internal/domain/item"
	"github.com/example/marketplace-catalog/internal/infrastructure/cache"
)

var ErrImageNotFound = errors.New("image not found")

// Image is the display metadata of one stored image. Image storage itself is
// an external collaborator; the catalog only reads metadata by id.
type Image struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Width  int64  `json:"width"`
	Height int64  `json:"height"`
}

// Service resolves image metadata for view hydration.
type Service interface {
	ImageInfo(ctx context.Context, imageID int64) (*Image, error)
}

// ItemService reads image metadata from IMAGE items in the entity store.
type ItemService struct {
	items item.Store
}

func NewItemService(items item.Store) *ItemService {
	return &ItemService{items: items}
}

func (s *ItemService) ImageInfo(ctx context.Context, imageID int64) (*Image, error) {
	it, err := s.items.GetByIDAndType(ctx, imageID, item.TypeImage,
		item.Names(item.PropImageURL, item.PropImageWidth, item.PropImageHeight), nil)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &Image{
		ID:     it.ID,
		URL:    it.String(item.PropImageURL, ""),
		Width:  it.Int64(item.PropImageWidth, 0),
		Height: it.Int64(item.PropImageHeight, 0),
	}, nil
}

// CachedService decorates a Service with a cache. View building does one
// lookup per image id, so listing pages hit this hard.
type CachedService struct {
	inner Service
	cache cache.Client
	ttl   time.Duration
}

func NewCachedService(inner Service, c cache.Client, ttl time.Duration) *CachedService {
	return &CachedService{inner: inner, cache: c, ttl: ttl}
}

func (s *CachedService) ImageInfo(ctx context.Context, imageID int64) (*Image, error) {
	key := fmt.Sprintf("image:%d", imageID)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var img Image
		if err := json.Unmarshal([]byte(raw), &img); err == nil {
			return &img, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[Images] Cache read failed for %s: %v", key, err)
	}

	img, err := s.inner.ImageInfo(ctx, imageID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(img); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
			log.Printf("[Images] Cache write failed for %s: %v", key, err)
		}
	}

	return img, nil
}
