// Package store provides data storage interfaces and implementations.
package store

import (
	"github.com/vyrodovalexey/items-api/internal/model"
)

// Store defines the interface for item storage operations.
// NotFound is reported through the boolean results, never as an error.
type Store interface {
	// List returns all items in creation order.
	List() []model.Item

	// Get retrieves an item by its ID.
	Get(id int64) (model.Item, bool)

	// Create assigns a fresh ID to the candidate and stores it.
	Create(candidate model.NewItem) model.Item

	// Update applies the patch to an existing item and returns the result.
	Update(id int64, patch model.Patch) (model.Item, bool)

	// Delete removes an item by its ID and reports whether it existed.
	Delete(id int64) bool

	// Len returns the number of stored items.
	Len() int
}
