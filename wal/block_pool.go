package wal

import "sync"

const (
	Block4096 = 4096
	Block4    = Block4096 * 4
	Block8    = Block4096 * 8
)

// BlockPool recycles the encode buffers used by Append. Records larger
// than Block8 get a fresh buffer.
type BlockPool struct {
	Block4 *sync.Pool //4*4096   16KB
	Block8 *sync.Pool //8*4096   32KB
}

func NewBlockPool() (bp *BlockPool) {
	bp = new(BlockPool)
	bp.Block4 = &sync.Pool{
		New: func() any { return make([]byte, 0, Block4) },
	}
	bp.Block8 = &sync.Pool{
		New: func() any { return make([]byte, 0, Block8) },
	}
	return bp
}

// GetBlock returns an empty buffer with room for n bytes.
func (b *BlockPool) GetBlock(n int) []byte {
	switch {
	case n <= Block4:
		return b.Block4.Get().([]byte)[:0]
	case n <= Block8:
		return b.Block8.Get().([]byte)[:0]
	default:
		return make([]byte, 0, AllocateBlockNums(n)*Block4096)
	}
}

// PutBlock hands a buffer back; only pool sized buffers are kept.
func (b *BlockPool) PutBlock(block []byte) {
	switch cap(block) {
	case Block4:
		b.Block4.Put(block[:0]) //nolint:staticcheck
	case Block8:
		b.Block8.Put(block[:0]) //nolint:staticcheck
	}
}

func AllocateBlockNums(size int) int {
	quotient := size / Block4096
	remainder := size % Block4096
	if remainder > 0 {
		return quotient + 1
	}
	return quotient
}
