package store

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
// Items live in a list that keeps creation order; index maps an ID to its element.
type MemoryStore struct {
	mu    sync.Mutex
	seq   Sequence
	order *list.List
	index map[int64]*list.Element
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		order: list.New(),
		index: make(map[int64]*list.Element),
	}
}

// List returns all items from the store in creation order.
func (s *MemoryStore) List() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Item, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		items = append(items, e.Value.(model.Item).Clone())
	}

	return items
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(id int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.index[id]
	if !exists {
		return model.Item{}, false
	}

	return e.Value.(model.Item).Clone(), true
}

// Create adds a new item to the store and returns it with its generated ID.
func (s *MemoryStore) Create(candidate model.NewItem) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := candidate.Build(s.seq.Next())
	if _, exists := s.index[item.ID]; exists {
		panic(fmt.Sprintf("store: duplicate item id %d", item.ID))
	}

	s.index[item.ID] = s.order.PushBack(item)

	return item.Clone()
}

// Update merges the patch into an existing item, keeping its position.
func (s *MemoryStore) Update(id int64, patch model.Patch) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.index[id]
	if !exists {
		return model.Item{}, false
	}

	updated := patch.Apply(e.Value.(model.Item))
	e.Value = updated

	return updated.Clone(), true
}

// Delete removes an item from the store by its ID.
func (s *MemoryStore) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.index[id]
	if !exists {
		return false
	}

	s.order.Remove(e)
	delete(s.index, id)

	return true
}

// Len returns the number of items currently stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.index)
}
