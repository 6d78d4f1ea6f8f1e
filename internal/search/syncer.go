package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Syncer applies index-update intents to an index backend. Delivery is
// at-least-once and possibly out of order; deletes are unconditional
// best-effort, adds are upserts keyed by product id, so replays and
// delete/add races over a section move converge to the same state.
type Syncer struct {
	index Index
}

func NewSyncer(index Index) *Syncer {
	return &Syncer{index: index}
}

// Apply executes one intent against the index.
func (s *Syncer) Apply(ctx context.Context, intent Intent) error {
	switch intent.Kind {
	case IntentAdd:
		if intent.Doc == nil {
			return fmt.Errorf("add intent %s has no document", intent.ID)
		}
		return s.index.Add(ctx, *intent.Doc)

	case IntentUpdate:
		if intent.Patch == nil {
			return fmt.Errorf("update intent %s has no patch", intent.ID)
		}
		return s.index.Update(ctx, *intent.Patch)

	case IntentDelete:
		return s.index.Delete(ctx, intent.SectionID, intent.ProductID)
	}

	return fmt.Errorf("unknown intent kind %q", intent.Kind)
}

// HandleMessage adapts Apply to the message-consumer signature: the value is
// a JSON-encoded intent, the key is the product id.
func (s *Syncer) HandleMessage(ctx context.Context, key, value []byte) error {
	var intent Intent
	if err := json.Unmarshal(value, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal intent: %w", err)
	}

	log.Printf("[Indexer] Applying intent %s (%s, product %d)", intent.ID, intent.Kind, intent.ProductID)
	return s.Apply(ctx, intent)
}
