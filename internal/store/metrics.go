package store

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Operation result label values.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
)

// InstrumentedStore wraps a Store and records Prometheus metrics for each operation.
type InstrumentedStore struct {
	next       Store
	operations *prometheus.CounterVec
}

// NewInstrumentedStore wraps next and registers its collectors with reg.
func NewInstrumentedStore(next Store, reg prometheus.Registerer) (*InstrumentedStore, error) {
	s := &InstrumentedStore{
		next: next,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "item_operations_total",
				Help: "Total number of item store operations by result",
			},
			[]string{"operation", "result"},
		),
	}

	itemsStored := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "items_stored",
			Help: "Number of items currently held in the store",
		},
		func() float64 { return float64(next.Len()) },
	)

	for _, c := range []prometheus.Collector{s.operations, itemsStored} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// List returns all items from the wrapped store.
func (s *InstrumentedStore) List() []model.Item {
	items := s.next.List()
	s.observe("list", true)
	return items
}

// Get retrieves an item by its ID.
func (s *InstrumentedStore) Get(id int64) (model.Item, bool) {
	item, ok := s.next.Get(id)
	s.observe("get", ok)
	return item, ok
}

// Create adds a new item.
func (s *InstrumentedStore) Create(candidate model.NewItem) model.Item {
	item := s.next.Create(candidate)
	s.observe("create", true)
	return item
}

// Update applies a patch to an existing item.
func (s *InstrumentedStore) Update(id int64, patch model.Patch) (model.Item, bool) {
	item, ok := s.next.Update(id, patch)
	s.observe("update", ok)
	return item, ok
}

// Delete removes an item.
func (s *InstrumentedStore) Delete(id int64) bool {
	ok := s.next.Delete(id)
	s.observe("delete", ok)
	return ok
}

// Len returns the number of stored items.
func (s *InstrumentedStore) Len() int {
	return s.next.Len()
}

func (s *InstrumentedStore) observe(operation string, ok bool) {
	result := resultOK
	if !ok {
		result = resultNotFound
	}
	s.operations.WithLabelValues(operation, result).Inc()
}
