// internal/arena/pool.go

package arena

// Slot is embedded by every value stored in a Pool. It records where the value
// lives so Free does not need to search for it.
type Slot struct {
	index int32
	live  bool
}

func (s *Slot) slot() *Slot { return s }

type slotted interface{ slot() *Slot }

// Pool hands out fixed slots of T from chunks that are never moved, so the
// returned pointers stay valid until the slot is freed.
//
//	type node struct {
//		arena.Slot
//		name string
//	}
//	p := arena.NewPool[node](arena.Config{ChunkSize: 64})
type Pool[T any, PT interface {
	*T
	slotted
}] struct {
	slots
	chunks [][]T
}

// NewPool creates a pool and allocates cfg.PreallocChunks chunks.
func NewPool[T any, PT interface {
	*T
	slotted
}](cfg Config) *Pool[T, PT] {
	p := &Pool[T, PT]{}
	p.slots = newSlots(cfg, func() {
		p.chunks = append(p.chunks, make([]T, p.cfg.ChunkSize))
	})
	p.prealloc()
	return p
}

// Alloc returns a zeroed slot.
func (p *Pool[T, PT]) Alloc() (*T, error) {
	i, err := p.take()
	if err != nil {
		return nil, err
	}
	c, o := p.locate(i)
	v := &p.chunks[c][o]
	var zero T
	*v = zero

	s := PT(v).slot()
	s.index = int32(i)
	s.live = true
	return v, nil
}

// Free returns v to the pool. The memory is not cleared until the slot is handed out again.
func (p *Pool[T, PT]) Free(v *T) error {
	if v == nil {
		return ErrForeign
	}
	s := PT(v).slot()
	i := int(s.index)
	if !s.live || i < 0 || i >= p.next {
		return ErrForeign
	}
	if c, o := p.locate(i); &p.chunks[c][o] != v {
		return ErrForeign
	}
	s.live = false
	p.release(i)
	return nil
}

// Live reports whether v is a slot currently handed out by this pool.
func (p *Pool[T, PT]) Live(v *T) bool {
	if v == nil {
		return false
	}
	s := PT(v).slot()
	i := int(s.index)
	if !s.live || i < 0 || i >= p.next {
		return false
	}
	c, o := p.locate(i)
	return &p.chunks[c][o] == v
}

// Each calls fn for every live slot in index order until fn returns false.
func (p *Pool[T, PT]) Each(fn func(*T) bool) {
	for i := 0; i < p.next; i++ {
		c, o := p.locate(i)
		v := &p.chunks[c][o]
		if !PT(v).slot().live {
			continue
		}
		if !fn(v) {
			return
		}
	}
}

// Clear frees every slot at once and keeps the chunks for reuse.
func (p *Pool[T, PT]) Clear() {
	for _, chunk := range p.chunks {
		clear(chunk)
	}
	p.reset()
}

// Destroy releases all chunks. The pool can still be used afterwards and
// grows again from nothing.
func (p *Pool[T, PT]) Destroy() {
	p.chunks = nil
	p.nchunks = 0
	p.reset()
}
