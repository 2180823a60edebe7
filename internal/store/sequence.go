package store

import "sync/atomic"

// Sequence hands out strictly increasing IDs starting at 1.
// The zero value is ready to use and safe for concurrent callers.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next ID. Values are never reused.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}
