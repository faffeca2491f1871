package kernel

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/viant/kproc/model/proc"
)

// fakeReturn is the return address planted below a thread's arguments;
// returning through it faults instead of running arbitrary code.
const fakeReturn = 0xffffffff

// clone creates a thread of r sharing its address space. The top of the
// user page at stack receives a fake return address and the two arguments;
// the thread starts at entry with its stack and frame pointers there.
func (k *Kernel) clone(r *record, entry ThreadFunc, arg1, arg2, stack uint32) (int, error) {
	if entry == nil {
		return 0, fmt.Errorf("clone: entry was nil")
	}
	pageSize := uint64(k.config.PageSize)
	if uint64(stack)%pageSize != 0 || uint64(stack)+pageSize > uint64(r.size) {
		return 0, fmt.Errorf("clone: stack %#x: %w", stack, ErrBadStack)
	}
	np, err := k.allocate(r.cpu)
	if err != nil {
		return 0, fmt.Errorf("clone: %w", err)
	}
	frame := make([]byte, 12)
	binary.LittleEndian.PutUint32(frame[0:], fakeReturn)
	binary.LittleEndian.PutUint32(frame[4:], arg1)
	binary.LittleEndian.PutUint32(frame[8:], arg2)
	top := stack + uint32(pageSize) - uint32(len(frame))
	if err := k.vm.CopyOut(r.addr.space(), top, frame); err != nil {
		k.abandon(r.cpu, np)
		return 0, fmt.Errorf("clone: %w", err)
	}
	np.size = r.size
	tf := r.trapFrame()
	tf.ESP = top
	tf.EBP = top
	tf.EIP = k.textAddr(reflect.ValueOf(entry).Pointer())
	tf.EAX = 0
	np.setTrapFrame(tf)
	k.inherit(r, np)
	np.threadStack = stack
	np.entry = func(p *Proc) {
		a1, a2, err := p.threadArgs()
		if err != nil {
			return
		}
		entry(p, a1, a2)
	}

	owner := r.handle()
	if r.addr.kind == sharedSpace {
		owner = r.addr.owner
	}
	c := r.cpu
	k.acquire(c, k.ptable)
	np.addr = r.addr.share(owner)
	np.addr.as.refs++
	np.parent = r.handle()
	np.tickets = r.tickets
	k.setState(np, proc.StateRunnable)
	pid, tickets := np.pid, np.tickets
	k.release(c, k.ptable)
	k.notify(proc.Event{Type: proc.EventClone, Pid: pid, Parent: r.pid, Tickets: tickets})
	return pid, nil
}

// join reaps a zombie thread child of r sharing its address space and
// returns its pid and the user stack it was cloned with. Only the thread's
// kernel stack is freed; the caller still references the space.
func (k *Kernel) join(r *record) (int, uint32, error) {
	k.acquire(r.cpu, k.ptable)
	self := r.handle()
	for {
		haveThreads := false
		for _, q := range k.procs {
			if q.parent != self || !q.addr.threadOf(r.addr) {
				continue
			}
			haveThreads = true
			if q.state != proc.StateZombie {
				continue
			}
			pid, stack := q.pid, q.threadStack
			q.addr.as.refs--
			if q.addr.as.refs < 1 {
				k.panic("join released a live address space")
			}
			q.addr = addressRef{}
			k.reclaim(q)
			k.release(r.cpu, k.ptable)
			k.notify(proc.Event{Type: proc.EventJoin, Pid: pid, Parent: r.pid})
			return pid, stack, nil
		}
		if !haveThreads || r.killed.Load() {
			k.release(r.cpu, k.ptable)
			return -1, 0, ErrNoChildren
		}
		k.sleep(r, self, k.ptable)
	}
}
