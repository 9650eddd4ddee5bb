// Package ring provides a fixed-capacity, insertion-ordered buffer.
package ring

// Buffer keeps the most recent Cap() values. Once full, each Push overwrites
// the oldest value. Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	items []T
	start int
	size  int
}

// New returns an empty buffer holding at most capacity values.
// A non-positive capacity yields a buffer of capacity 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

func (b *Buffer[T]) Push(v T) {
	if b.size < len(b.items) {
		b.items[(b.start+b.size)%len(b.items)] = v
		b.size++
		return
	}
	b.items[b.start] = v
	b.start = (b.start + 1) % len(b.items)
}

func (b *Buffer[T]) Len() int { return b.size }
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Items returns a copy of the stored values, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Last returns the most recently pushed value.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.start+b.size-1)%len(b.items)], true
}
