// internal/arena/blocks.go

package arena

// Block is one fixed-size byte block handed out by Blocks.
// The zero Block holds no memory.
type Block struct {
	Data  []byte
	index int32
}

// Blocks hands out fixed-size byte blocks carved from larger chunks.
type Blocks struct {
	slots
	size   int
	chunks [][]byte
	live   []bool
}

// NewBlocks creates a block arena whose blocks are size bytes long.
func NewBlocks(size int, cfg Config) *Blocks {
	if size <= 0 {
		size = 1
	}
	b := &Blocks{size: size}
	b.slots = newSlots(cfg, func() {
		b.chunks = append(b.chunks, make([]byte, b.size*b.cfg.ChunkSize))
		b.live = append(b.live, make([]bool, b.cfg.ChunkSize)...)
	})
	b.prealloc()
	return b
}

// BlockSize returns the length of every block.
func (b *Blocks) BlockSize() int { return b.size }

// Alloc returns a block. Its contents are whatever the previous owner left.
// The slice capacity ends at the block boundary.
func (b *Blocks) Alloc() (Block, error) {
	i, err := b.take()
	if err != nil {
		return Block{}, err
	}
	c, o := b.locate(i)
	start := o * b.size
	b.live[i] = true
	return Block{
		Data:  b.chunks[c][start : start+b.size : start+b.size],
		index: int32(i),
	}, nil
}

// Free returns blk to the arena. Freeing the zero Block is a no-op.
func (b *Blocks) Free(blk Block) error {
	if blk.Data == nil {
		return nil
	}
	i := int(blk.index)
	if i < 0 || i >= b.next || !b.live[i] {
		return ErrForeign
	}
	c, o := b.locate(i)
	if &b.chunks[c][o*b.size] != &blk.Data[0] {
		return ErrForeign
	}
	b.live[i] = false
	b.release(i)
	return nil
}

// Clear frees every block at once and keeps the chunks.
func (b *Blocks) Clear() {
	clear(b.live)
	b.reset()
}

// Destroy releases all chunks.
func (b *Blocks) Destroy() {
	b.chunks = nil
	b.live = nil
	b.nchunks = 0
	b.reset()
}
