package search

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IntentKind discriminates index-update intents.
type IntentKind string

const (
	IntentAdd    IntentKind = "add"
	IntentUpdate IntentKind = "update"
	IntentDelete IntentKind = "delete"
)

// Intent is one index mutation published on entity-store commit and applied
// by the synchronizer at least once. Application is idempotent per product
// id, so redelivery is harmless.
type Intent struct {
	ID         string     `json:"id"`
	Kind       IntentKind `json:"kind"`
	ProductID  int64      `json:"product_id"`
	SectionID  int64      `json:"section_id"`
	Doc        *Document  `json:"doc,omitempty"`
	Patch      *Patch     `json:"patch,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func NewAddIntent(doc Document) Intent {
	return Intent{
		ID:         uuid.New().String(),
		Kind:       IntentAdd,
		ProductID:  doc.ID,
		SectionID:  doc.SectionID,
		Doc:        &doc,
		OccurredAt: time.Now(),
	}
}

func NewUpdateIntent(patch Patch) Intent {
	return Intent{
		ID:         uuid.New().String(),
		Kind:       IntentUpdate,
		ProductID:  patch.ID,
		SectionID:  patch.SectionID,
		Patch:      &patch,
		OccurredAt: time.Now(),
	}
}

func NewDeleteIntent(sectionID, productID int64) Intent {
	return Intent{
		ID:         uuid.New().String(),
		Kind:       IntentDelete,
		ProductID:  productID,
		SectionID:  sectionID,
		OccurredAt: time.Now(),
	}
}

// Publisher hands intents to the synchronizer. The Kafka producer implements
// it for the distributed deployment; DirectPublisher applies intents
// in-process for single-binary runs and tests.
type Publisher interface {
	Publish(ctx context.Context, intent Intent) error
}

// DirectPublisher applies intents synchronously through a Syncer.
type DirectPublisher struct {
	syncer *Syncer
}

func NewDirectPublisher(s *Syncer) *DirectPublisher {
	return &DirectPublisher{syncer: s}
}

func (p *DirectPublisher) Publish(ctx context.Context, intent Intent) error {
	return p.syncer.Apply(ctx, intent)
}
