package search

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory Index used for tests and single-process runs.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[int64]Document

	// rootSectionID, when set, is treated as "no section constraint" in
	// queries, matching the configured products tree root.
	rootSectionID int64
}

func NewMemoryIndex(rootSectionID int64) *MemoryIndex {
	return &MemoryIndex{
		docs:          make(map[int64]Document),
		rootSectionID: rootSectionID,
	}
}

func (m *MemoryIndex) Add(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryIndex) Update(_ context.Context, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[patch.ID]
	if !ok {
		// The add may not have arrived yet; a later replay converges.
		return nil
	}
	if patch.GroupID != nil {
		doc.GroupID = *patch.GroupID
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
	}
	if patch.Weight != nil {
		doc.Weight = *patch.Weight
	}
	m.docs[patch.ID] = doc
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, sectionID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[productID]
	if !ok {
		return nil
	}
	// A section-scoped delete must not remove a document that has already
	// been re-added under a new section.
	if sectionID > 0 && doc.SectionID != sectionID {
		return nil
	}
	delete(m.docs, productID)
	return nil
}

func (m *MemoryIndex) Select(_ context.Context, q Query) ([]int64, error) {
	m.mu.RLock()
	matched := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		if matchesQuery(doc, q, m.rootSectionID) {
			matched = append(matched, doc)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return lessByOrder(matched[i], matched[j], q.Order)
	})

	ids := make([]int64, 0, len(matched))
	for _, doc := range matched {
		ids = append(ids, doc.ID)
	}
	return paginate(ids, q), nil
}

func paginate(ids []int64, q Query) []int64 {
	if q.PageSize <= 0 {
		return ids
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	from := (page - 1) * q.PageSize
	if from >= len(ids) {
		return nil
	}
	to := from + q.PageSize
	if to > len(ids) {
		to = len(ids)
	}
	return ids[from:to]
}
