package model

import (
	"encoding/json"
)

// Field is an optional value that remembers whether it was supplied.
// When decoded from JSON, Set is true whenever the key is present in the
// object, including when its value is null.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys
// present in the input, which is what marks the field as set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Set = true
	f.Value = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Patch is a partial update of an Item. Only fields with Set overwrite the
// existing item; a set Description with a nil Value clears the description.
type Patch struct {
	Name        Field[string]  `json:"name"`
	Description Field[*string] `json:"description"`
	Price       Field[float64] `json:"price"`
}

// Apply returns a copy of item with the supplied fields overwritten.
// The id is never changed.
func (p Patch) Apply(item Item) Item {
	out := item.Clone()
	if p.Name.Set {
		out.Name = p.Name.Value
	}
	if p.Description.Set {
		out.Description = cloneString(p.Description.Value)
	}
	if p.Price.Set {
		out.Price = p.Price.Value
	}
	return out
}
