package kernel

import (
	"sync/atomic"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/fs"
	"github.com/viant/kproc/service/vm"
)

// Channel is an opaque rendezvous key; values must be comparable.
type Channel = any

// Program is the user-mode body of a record. Returning from it exits.
type Program func(p *Proc)

// ThreadFunc is the body of a cloned thread, invoked with the two words
// found on its initial user stack.
type ThreadFunc func(p *Proc, arg1, arg2 uint32)

// Handle identifies a record slot for one lifetime of that slot. The
// generation changes when the slot is reclaimed, so a stale handle never
// matches a later occupant.
type Handle struct {
	Index int
	Gen   uint32
}

// IsZero returns true for the handle of no record
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

type ownership int

const (
	ownedSpace ownership = iota + 1
	sharedSpace
)

type addressSpace struct {
	space vm.Space
	// refs counts records referencing space; guarded by the table lock.
	refs int
}

// addressRef tags a record's address space as owned or shared with the
// thread group rooted at owner.
type addressRef struct {
	kind  ownership
	owner Handle
	as    *addressSpace
}

func owned(space vm.Space) addressRef {
	return addressRef{kind: ownedSpace, as: &addressSpace{space: space, refs: 1}}
}

func (a addressRef) share(owner Handle) addressRef {
	return addressRef{kind: sharedSpace, owner: owner, as: a.as}
}

func (a addressRef) space() vm.Space {
	if a.as == nil {
		return 0
	}
	return a.as.space
}

// threadOf returns true when a is a shared reference to the space of b
func (a addressRef) threadOf(b addressRef) bool {
	return a.kind == sharedSpace && a.as != nil && a.as == b.as
}

// record is one process-table slot. The table lock guards state, parent,
// channel, pid, tickets, ticks and the address-space reference count.
type record struct {
	index int
	gen   uint32

	pid     int
	state   proc.State
	tickets int
	ticks   int
	parent  Handle
	channel Channel
	killed  atomic.Bool

	kstack  []byte
	context proc.Context
	addr    addressRef
	size    int
	files   []*fs.File
	cwd     *fs.Inode
	name    string
	// threadStack is the user stack passed to clone.
	threadStack uint32

	entry   Program
	resume  chan struct{}
	started bool
	cpu     *cpu
}

func (r *record) handle() Handle {
	return Handle{Index: r.index, Gen: r.gen}
}

// trapFrame decodes the user register frame kept at the top of the kernel stack.
func (r *record) trapFrame() proc.TrapFrame {
	var tf proc.TrapFrame
	tf.Decode(r.kstack[len(r.kstack)-proc.TrapFrameSize:])
	return tf
}

func (r *record) setTrapFrame(tf proc.TrapFrame) {
	tf.Encode(r.kstack[len(r.kstack)-proc.TrapFrameSize:])
}
