// Package kalloc provides a fixed-capacity allocator of zeroed pages used for
// kernel stacks.
package kalloc

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// ErrOutOfMemory is returned when every page of the pool is in use.
var ErrOutOfMemory = errors.New("kalloc: out of memory")

// Pool hands out zeroed pages of a fixed size up to a fixed capacity
type Pool struct {
	pageSize int
	capacity int
	mu       sync.Mutex
	free     [][]byte
	inUse    map[*byte]bool
	created  int
}

// New creates a pool of capacity pages, each pageSize bytes long
func New(pageSize, capacity int) *Pool {
	return &Pool{
		pageSize: pageSize,
		capacity: capacity,
		inUse:    make(map[*byte]bool),
	}
}

// Alloc returns a zeroed page or ErrOutOfMemory
func (p *Pool) Alloc() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var page []byte
	switch {
	case len(p.free) > 0:
		page = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		clear(page)
	case p.created < p.capacity:
		page = make([]byte, p.pageSize)
		p.created++
	default:
		return nil, ErrOutOfMemory
	}
	p.inUse[unsafe.SliceData(page)] = true
	return page, nil
}

// Free returns a page to the pool; freeing a page twice, or one the pool
// never issued, panics.
func (p *Pool) Free(page []byte) {
	if len(page) == 0 {
		panic("kfree: empty page")
	}
	key := unsafe.SliceData(page)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inUse[key] {
		panic(fmt.Sprintf("kfree: page %p not allocated", key))
	}
	delete(p.inUse, key)
	p.free = append(p.free, page[:p.pageSize:p.pageSize])
}

// InUse returns number of allocated pages
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// PageSize returns the size of every page
func (p *Pool) PageSize() int {
	return p.pageSize
}
