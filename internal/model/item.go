// Package model defines data structures used throughout the application.
package model

import (
	"time"
)

// Field length and value limits for Item.
const (
	MinNameLength        = 1
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// Item represents a record managed by the store.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
}

// NewItem holds the caller-supplied fields of an item that does not exist yet.
type NewItem struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// Build returns the Item for the candidate with the given id.
func (n NewItem) Build(id int64) Item {
	return Item{
		ID:          id,
		Name:        n.Name,
		Description: cloneString(n.Description),
		Price:       n.Price,
	}
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	i.Description = cloneString(i.Description)
	return i
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes a single rejected request field.
type FieldError struct {
	Field    string `json:"field,omitempty"`
	Location string `json:"location"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// ItemEvent is pushed to event feed subscribers after a successful mutation.
type ItemEvent struct {
	Type      string    `json:"type"`
	ItemID    int64     `json:"item_id"`
	Item      *Item     `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Item event types.
const (
	EventItemCreated = "item.created"
	EventItemUpdated = "item.updated"
	EventItemDeleted = "item.deleted"
)

// NewItemEvent creates an event for the given item. Deleted events carry only the id.
func NewItemEvent(eventType string, item Item) ItemEvent {
	ev := ItemEvent{
		Type:      eventType,
		ItemID:    item.ID,
		Timestamp: time.Now().UTC(),
	}
	if eventType != EventItemDeleted {
		snapshot := item.Clone()
		ev.Item = &snapshot
	}
	return ev
}
