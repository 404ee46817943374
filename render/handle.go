package render

// Handle identifies a backend object by arena slot and generation. The
// zero Handle never names a live object, so it doubles as the "no
// fence" marker in the images-in-flight table. A handle outliving its
// object fails lookup instead of dangling.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the null handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Table is a generational arena. Backends mint one table per object
// kind and hand out Handles whose slots are recycled only with a bumped
// generation.
type Table[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// Insert stores v and returns a fresh handle for it.
func (t *Table[T]) Insert(v T) Handle {
	t.count++
	if n := len(t.free); n > 0 {
		index := t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[index]
		s.value = v
		s.generation++
		s.live = true
		return Handle{index: index, generation: s.generation}
	}
	t.slots = append(t.slots, slot[T]{value: v, generation: 1, live: true})
	return Handle{index: uint32(len(t.slots) - 1), generation: 1}
}

// Get returns the value h names, or false if h is stale, null, or from
// another table.
func (t *Table[T]) Get(h Handle) (T, bool) {
	var zero T
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return zero, false
	}
	s := t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return zero, false
	}
	return s.value, true
}

// Remove releases the slot h names and returns its value. Removing a
// stale or null handle is a no-op.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	var zero T
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return zero, false
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return zero, false
	}
	value := s.value
	s.value = zero
	s.live = false
	t.count--
	t.free = append(t.free, h.index)
	return value, true
}

// Len is the number of live entries.
func (t *Table[T]) Len() int {
	return t.count
}
