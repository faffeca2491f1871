package kalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_Alloc(t *testing.T) {
	pool := New(64, 2)
	first, err := pool.Alloc()
	assert.NoError(t, err)
	assert.Len(t, first, 64)
	first[0] = 0xff

	second, err := pool.Alloc()
	assert.NoError(t, err)
	assert.NotNil(t, second)

	_, err = pool.Alloc()
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 2, pool.InUse())

	pool.Free(first)
	assert.Equal(t, 1, pool.InUse())
	reused, err := pool.Alloc()
	assert.NoError(t, err)
	assert.Equal(t, byte(0), reused[0], "recycled page must be zeroed")
}

func TestPool_DoubleFree(t *testing.T) {
	pool := New(64, 1)
	page, err := pool.Alloc()
	assert.NoError(t, err)
	pool.Free(page)
	assert.Panics(t, func() { pool.Free(page) })
	assert.Panics(t, func() { pool.Free(make([]byte, 64)) })
}
