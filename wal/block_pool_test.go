package wal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockPool_GetBlock(t *testing.T) {
	blockPool := NewBlockPool()

	block1 := blockPool.GetBlock(1)
	assert.Equal(t, 0, len(block1))
	assert.Equal(t, Block4, cap(block1))

	block2 := blockPool.GetBlock(Block4 + 1)
	assert.Equal(t, Block8, cap(block2))

	block3 := blockPool.GetBlock(Block8 + 1)
	assert.Equal(t, Block4096*9, cap(block3))
}

func TestBlockPool_PutBlock(t *testing.T) {
	blockPool := NewBlockPool()
	block := blockPool.GetBlock(1)
	block = append(block, "dirty"...)
	blockPool.PutBlock(block)

	// whatever comes back is empty
	again := blockPool.GetBlock(1)
	assert.Equal(t, 0, len(again))

	// odd sized buffers are not pooled
	blockPool.PutBlock(make([]byte, 0, Block4096*9))
	assert.Equal(t, Block8, cap(blockPool.GetBlock(Block8)))
}

func TestAllocateBlockNums(t *testing.T) {
	assert.Equal(t, 0, AllocateBlockNums(0))
	assert.Equal(t, 1, AllocateBlockNums(1))
	assert.Equal(t, 1, AllocateBlockNums(Block4096))
	assert.Equal(t, 2, AllocateBlockNums(Block4096+1))
}
