package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/marketplace-catalog/internal/domain/item"
)

// MockItemStore is an in-memory implementation of item.Store and
// item.Transactor for testing
type MockItemStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*item.Item

	// For tracking calls in tests
	CreateCalls   []CreateCall
	SetStateCalls []SetStateCall
	SaveCalls     []SaveCall
	ClearCalls    []ClearCall

	// Error injection
	CreateErr   error
	GetErr      error
	SetStateErr error
	SaveErr     error
	InTxErr     error
}

// CreateCall records parameters passed to Create
type CreateCall struct {
	NodeID   int64
	Type     item.Type
	NameHint string
}

// SetStateCall records parameters passed to SetState
type SetStateCall struct {
	ID    int64
	State item.State
}

// SaveCall records parameters passed to SaveProperties
type SaveCall struct {
	ID         int64
	ClearFirst bool
	Props      []item.Property
}

// ClearCall records a ClearProperty or ClearPropertiesByPrefix call
type ClearCall struct {
	ID     int64
	Name   string
	Prefix string
}

// NewMockItemStore creates a new MockItemStore
func NewMockItemStore() *MockItemStore {
	return &MockItemStore{
		nextID: 1,
		items:  make(map[int64]*item.Item),
	}
}

// Seed inserts an item directly, bypassing call tracking.
func (m *MockItemStore) Seed(it *item.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.Props == nil {
		it.Props = make(map[string]item.Value)
	}
	if it.ID >= m.nextID {
		m.nextID = it.ID + 1
	}
	m.items[it.ID] = it
}

// Get returns the stored item for direct assertions in tests.
func (m *MockItemStore) Get(id int64) *item.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[id]
}

func (m *MockItemStore) Create(_ context.Context, nodeID int64, typ item.Type, nameHint string) (*item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, CreateCall{NodeID: nodeID, Type: typ, NameHint: nameHint})

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	it := &item.Item{
		ID:        m.nextID,
		NodeID:    nodeID,
		Type:      typ,
		State:     item.StateActive,
		Name:      nameHint,
		Props:     make(map[string]item.Value),
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.items[it.ID] = it

	return copyItem(it), nil
}

func (m *MockItemStore) GetByID(_ context.Context, id int64, fields item.Fields) (*item.Item, error) {
	return m.get(id, "", fields, nil)
}

func (m *MockItemStore) GetByIDAndType(_ context.Context, id int64, typ item.Type, fields item.Fields, pred *item.Predicate) (*item.Item, error) {
	return m.get(id, typ, fields, pred)
}

func (m *MockItemStore) get(id int64, typ item.Type, fields item.Fields, pred *item.Predicate) (*item.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	it, ok := m.items[id]
	if !ok || (typ != "" && it.Type != typ) || !pred.Matches(it.State) {
		return nil, item.ErrNotFound
	}

	out := copyItem(it)
	for name := range it.Props {
		if !fields.Want(name) {
			delete(out.Props, name)
		}
	}
	return out, nil
}

func (m *MockItemStore) SetState(_ context.Context, id int64, st item.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetStateCalls = append(m.SetStateCalls, SetStateCall{ID: id, State: st})

	if m.SetStateErr != nil {
		return m.SetStateErr
	}

	it, ok := m.items[id]
	if !ok {
		return item.ErrNotFound
	}
	it.State = st
	return nil
}

func (m *MockItemStore) SaveProperties(_ context.Context, id int64, clearFirst bool, props ...item.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, SaveCall{ID: id, ClearFirst: clearFirst, Props: props})

	if m.SaveErr != nil {
		return m.SaveErr
	}

	it, ok := m.items[id]
	if !ok {
		return item.ErrNotFound
	}
	if clearFirst {
		it.Props = make(map[string]item.Value)
	}
	for _, p := range props {
		it.Props[p.Name] = p.Value
	}
	return nil
}

func (m *MockItemStore) ClearPropertiesByPrefix(_ context.Context, id int64, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCalls = append(m.ClearCalls, ClearCall{ID: id, Prefix: prefix})

	it, ok := m.items[id]
	if !ok {
		return item.ErrNotFound
	}
	for name := range it.Props {
		if strings.HasPrefix(name, prefix) {
			delete(it.Props, name)
		}
	}
	return nil
}

func (m *MockItemStore) ClearProperty(_ context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCalls = append(m.ClearCalls, ClearCall{ID: id, Name: name})

	it, ok := m.items[id]
	if !ok {
		return item.ErrNotFound
	}
	delete(it.Props, name)
	return nil
}

// InTx runs fn directly; the mock has no transaction isolation.
func (m *MockItemStore) InTx(ctx context.Context, _ []error, fn func(ctx context.Context) error) error {
	if m.InTxErr != nil {
		return m.InTxErr
	}
	return fn(ctx)
}

func copyItem(it *item.Item) *item.Item {
	out := *it
	out.Props = make(map[string]item.Value, len(it.Props))
	for name, v := range it.Props {
		out.Props[name] = v
	}
	return &out
}
