// Package vm defines the address-space collaborator consumed by the process
// core. Spaces are opaque handles; the core never inspects their contents
// except through CopyOut/CopyIn.
package vm

import "errors"

var (
	// ErrBadAddress is returned when an access touches an unmapped page.
	ErrBadAddress = errors.New("vm: bad address")
	// ErrOutOfMemory is returned when no page is left for a mapping.
	ErrOutOfMemory = errors.New("vm: out of memory")
	// ErrNoSpace is returned when a handle does not name a live space.
	ErrNoSpace = errors.New("vm: no such address space")
)

// Space is an opaque page-table root handle, zero is never a valid space
type Space int

// Service manages user address spaces
type Service interface {
	// Setup creates a space with a single page holding init.
	Setup(init []byte) (Space, error)
	// Copy duplicates the first size bytes of src into a new space.
	Copy(src Space, size int) (Space, error)
	// Free tears a space down; freeing an unknown space panics.
	Free(space Space)
	// CopyOut writes data at the user address addr.
	CopyOut(space Space, addr uint32, data []byte) error
	// CopyIn reads n bytes at the user address addr.
	CopyIn(space Space, addr uint32, n int) ([]byte, error)
	// Grow changes the space extent from oldSize to newSize and returns the new size.
	Grow(space Space, oldSize, newSize int) (int, error)
	// Live reports whether the handle names a space that has not been freed.
	Live(space Space) bool
}
