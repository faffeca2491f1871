// Package memory implements vm.Service with page maps held in process memory.
package memory

import (
	"fmt"
	"sync"

	"github.com/viant/kproc/service/vm"
)

type pagedir struct {
	pages map[uint32][]byte
}

// Service implements an in-memory, thread-safe address-space manager
type Service struct {
	pageSize int
	maxPages int
	used     int
	next     vm.Space
	spaces   map[vm.Space]*pagedir
	mux      sync.Mutex
}

var _ vm.Service = (*Service)(nil)

// New creates a service with a budget of maxPages user pages
func New(pageSize, maxPages int) *Service {
	return &Service{pageSize: pageSize, maxPages: maxPages, spaces: map[vm.Space]*pagedir{}}
}

// Setup creates a space whose first page holds init
func (s *Service) Setup(init []byte) (vm.Space, error) {
	if len(init) > s.pageSize {
		return 0, fmt.Errorf("inituvm: more than a page (%d bytes)", len(init))
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	dir, space := s.newDir()
	page, err := s.allocPage()
	if err != nil {
		delete(s.spaces, space)
		return 0, err
	}
	copy(page, init)
	dir.pages[0] = page
	return space, nil
}

// Copy duplicates the first size bytes of src into a new space
func (s *Service) Copy(src vm.Space, size int) (vm.Space, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	from, ok := s.spaces[src]
	if !ok {
		return 0, vm.ErrNoSpace
	}
	dir, space := s.newDir()
	for addr := 0; addr < size; addr += s.pageSize {
		number := uint32(addr / s.pageSize)
		source, ok := from.pages[number]
		if !ok {
			panic(fmt.Sprintf("copyuvm: page %d not present", number))
		}
		page, err := s.allocPage()
		if err != nil {
			s.freeDir(space)
			return 0, err
		}
		copy(page, source)
		dir.pages[number] = page
	}
	return space, nil
}

// Free releases space and all its pages
func (s *Service) Free(space vm.Space) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.spaces[space]; !ok {
		panic(fmt.Sprintf("freevm: no pgdir %d", space))
	}
	s.freeDir(space)
}

// CopyOut writes data at addr of space
func (s *Service) CopyOut(space vm.Space, addr uint32, data []byte) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.walk(space, addr, len(data), func(page []byte, offset int, done int, n int) {
		copy(page[offset:offset+n], data[done:done+n])
	})
}

// CopyIn reads n bytes at addr of space
func (s *Service) CopyIn(space vm.Space, addr uint32, n int) ([]byte, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := make([]byte, n)
	err := s.walk(space, addr, n, func(page []byte, offset int, done int, n int) {
		copy(ret[done:done+n], page[offset:offset+n])
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Grow maps or unmaps pages so space covers newSize bytes; it returns the resulting size
func (s *Service) Grow(space vm.Space, oldSize, newSize int) (int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	dir, ok := s.spaces[space]
	if !ok {
		return oldSize, vm.ErrNoSpace
	}
	if newSize < 0 {
		return oldSize, vm.ErrBadAddress
	}
	oldTop := s.pageRoundUp(oldSize)
	newTop := s.pageRoundUp(newSize)
	if newSize > oldSize {
		for addr := oldTop; addr < newTop; addr += s.pageSize {
			page, err := s.allocPage()
			if err != nil {
				// deallocuvm the part already mapped
				for undo := oldTop; undo < addr; undo += s.pageSize {
					delete(dir.pages, uint32(undo/s.pageSize))
					s.used--
				}
				return oldSize, err
			}
			dir.pages[uint32(addr/s.pageSize)] = page
		}
		return newSize, nil
	}
	for addr := newTop; addr < oldTop; addr += s.pageSize {
		if _, ok := dir.pages[uint32(addr/s.pageSize)]; ok {
			delete(dir.pages, uint32(addr/s.pageSize))
			s.used--
		}
	}
	return newSize, nil
}

// Live returns true while space has not been freed
func (s *Service) Live(space vm.Space) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	_, ok := s.spaces[space]
	return ok
}

// PagesInUse returns number of mapped user pages across all spaces
func (s *Service) PagesInUse() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.used
}

func (s *Service) walk(space vm.Space, addr uint32, n int, fn func(page []byte, offset, done, n int)) error {
	dir, ok := s.spaces[space]
	if !ok {
		return vm.ErrNoSpace
	}
	for done := 0; done < n; {
		current := int(addr) + done
		page, ok := dir.pages[uint32(current/s.pageSize)]
		if !ok {
			return fmt.Errorf("%w: %#x", vm.ErrBadAddress, current)
		}
		offset := current % s.pageSize
		chunk := min(s.pageSize-offset, n-done)
		fn(page, offset, done, chunk)
		done += chunk
	}
	return nil
}

func (s *Service) newDir() (*pagedir, vm.Space) {
	s.next++
	dir := &pagedir{pages: map[uint32][]byte{}}
	s.spaces[s.next] = dir
	return dir, s.next
}

func (s *Service) freeDir(space vm.Space) {
	dir := s.spaces[space]
	s.used -= len(dir.pages)
	delete(s.spaces, space)
}

func (s *Service) allocPage() ([]byte, error) {
	if s.used >= s.maxPages {
		return nil, vm.ErrOutOfMemory
	}
	s.used++
	return make([]byte, s.pageSize), nil
}

func (s *Service) pageRoundUp(size int) int {
	return (size + s.pageSize - 1) / s.pageSize * s.pageSize
}
