package keyframe

import "github.com/pkg/errors"

// Buffer is a bounded, insertion ordered collection of keyframes. Once full, each push drops the
// oldest keyframe.
type Buffer struct {
	capacity int
	items    []*Keyframe
}

// NewBuffer returns an empty buffer holding at most capacity keyframes.
func NewBuffer(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, errors.Errorf("keyframe buffer capacity must be at least 1, got %d", capacity)
	}
	return &Buffer{capacity: capacity, items: make([]*Keyframe, 0, capacity)}, nil
}

// Push appends kf and returns the keyframe evicted to make room for it, if any.
func (b *Buffer) Push(kf *Keyframe) *Keyframe {
	var evicted *Keyframe
	if len(b.items) == b.capacity {
		evicted = b.items[0]
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, kf)
	return evicted
}

// Len returns the number of held keyframes.
func (b *Buffer) Len() int {
	return len(b.items)
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Full reports whether the next push evicts.
func (b *Buffer) Full() bool {
	return len(b.items) == b.capacity
}

// Keyframes returns an owned copy of the held keyframes, oldest first.
func (b *Buffer) Keyframes() []*Keyframe {
	out := make([]*Keyframe, len(b.items))
	copy(out, b.items)
	return out
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	for i := range b.items {
		b.items[i] = nil
	}
	b.items = b.items[:0]
}
