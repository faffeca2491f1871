package kernel

import (
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/fs"
)

// PageAllocator hands out zeroed kernel stack pages
type PageAllocator interface {
	Alloc() ([]byte, error)
	Free(page []byte)
}

// Files duplicates and releases file and directory handles
type Files interface {
	Open(name string) *fs.File
	Dup(f *fs.File) *fs.File
	Close(f *fs.File)
	Namei(path string) (*fs.Inode, error)
	Idup(ip *fs.Inode) *fs.Inode
	Iput(ip *fs.Inode)
}

// Rand draws uniformly distributed integers in [0, n)
type Rand interface {
	Intn(n int) int
}

// Observer is notified of lifecycle events; it is never called with the
// table lock held and must not block.
type Observer interface {
	Notify(event *proc.Event)
}
