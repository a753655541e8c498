// internal/arena/slots.go

package arena

import (
	"errors"

	"github.com/emirpasic/gods/stacks/arraystack"
)

var (
	// ErrExhausted is returned when every slot is in use and the chunk limit is reached.
	ErrExhausted = errors.New("arena: exhausted")
	// ErrForeign is returned when freeing something this arena did not hand out (or already took back).
	ErrForeign = errors.New("arena: value not owned by this arena")
)

// Config sizes a chunked arena.
type Config struct {
	ChunkSize      int // slots per chunk
	PreallocChunks int // chunks allocated up front
	MaxChunks      int // 0 means no limit
}

func (c Config) normalize() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1
	}
	if c.PreallocChunks < 0 {
		c.PreallocChunks = 0
	}
	if c.MaxChunks > 0 && c.PreallocChunks > c.MaxChunks {
		c.PreallocChunks = c.MaxChunks
	}
	return c
}

// slots is the index bookkeeping shared by Pool and Blocks.
// Freed indices are reused last-in first-out before the high-water mark moves.
type slots struct {
	cfg     Config
	nchunks int
	next    int               // high-water mark
	used    int               // live slots
	free    *arraystack.Stack // of int
	grow    func()            // appends one chunk of backing storage
}

func newSlots(cfg Config, grow func()) slots {
	return slots{
		cfg:  cfg.normalize(),
		free: arraystack.New(),
		grow: grow,
	}
}

func (s *slots) prealloc() {
	for s.nchunks < s.cfg.PreallocChunks {
		s.grow()
		s.nchunks++
	}
}

func (s *slots) take() (int, error) {
	if v, ok := s.free.Pop(); ok {
		s.used++
		return v.(int), nil
	}
	if s.next == s.nchunks*s.cfg.ChunkSize {
		if s.cfg.MaxChunks > 0 && s.nchunks >= s.cfg.MaxChunks {
			return -1, ErrExhausted
		}
		s.grow()
		s.nchunks++
	}
	i := s.next
	s.next++
	s.used++
	return i, nil
}

func (s *slots) release(i int) {
	s.free.Push(i)
	s.used--
}

func (s *slots) reset() {
	s.free.Clear()
	s.next = 0
	s.used = 0
}

func (s *slots) locate(i int) (chunk, offset int) {
	return i / s.cfg.ChunkSize, i % s.cfg.ChunkSize
}

// Len returns the number of live slots.
func (s *slots) Len() int { return s.used }

// Cap returns the number of slots backed by allocated chunks.
func (s *slots) Cap() int { return s.nchunks * s.cfg.ChunkSize }
