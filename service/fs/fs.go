// Package fs provides the reference-counted file and directory handles a
// process record owns. It models only reference counting: the process core
// duplicates handles on fork and clone and releases them on exit.
package fs

import (
	"errors"
	"fmt"
	"path"
	"sync"
)

// ErrNotFound is returned when a path does not name a directory.
var ErrNotFound = errors.New("fs: not found")

// File represents an open file handle
type File struct {
	Name string
	ref  int
}

// Inode represents a directory handle
type Inode struct {
	Path string
	ref  int
}

// Service manages handle reference counts
type Service struct {
	mux    sync.Mutex
	inodes map[string]*Inode
	open   map[*File]bool
}

// New creates a service with the supplied directories (the root is always present)
func New(dirs ...string) *Service {
	ret := &Service{inodes: map[string]*Inode{}, open: map[*File]bool{}}
	ret.inodes["/"] = &Inode{Path: "/"}
	for _, dir := range dirs {
		clean := path.Clean("/" + dir)
		ret.inodes[clean] = &Inode{Path: clean}
	}
	return ret
}

// Open returns a new file handle with a single reference
func (s *Service) Open(name string) *File {
	s.mux.Lock()
	defer s.mux.Unlock()
	f := &File{Name: name, ref: 1}
	s.open[f] = true
	return f
}

// Dup increments the file reference count
func (s *Service) Dup(f *File) *File {
	s.mux.Lock()
	defer s.mux.Unlock()
	if f.ref < 1 {
		panic("filedup")
	}
	f.ref++
	return f
}

// Close drops a file reference
func (s *Service) Close(f *File) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if f.ref < 1 {
		panic("fileclose")
	}
	f.ref--
	if f.ref == 0 {
		delete(s.open, f)
	}
}

// Namei resolves a directory path and returns a referenced inode
func (s *Service) Namei(name string) (*Inode, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	ip, ok := s.inodes[path.Clean("/"+name)]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, name)
	}
	ip.ref++
	return ip, nil
}

// Idup increments the inode reference count
func (s *Service) Idup(ip *Inode) *Inode {
	s.mux.Lock()
	defer s.mux.Unlock()
	ip.ref++
	return ip
}

// Iput drops an inode reference
func (s *Service) Iput(ip *Inode) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if ip.ref < 1 {
		panic("iput")
	}
	ip.ref--
}

// Refs returns the current file reference count
func (s *Service) Refs(f *File) int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return f.ref
}

// InodeRefs returns the current inode reference count
func (s *Service) InodeRefs(ip *Inode) int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return ip.ref
}

// OpenFiles returns number of files with live references
func (s *Service) OpenFiles() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.open)
}
