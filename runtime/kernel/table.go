package kernel

import (
	"fmt"
	"io"
	"time"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/fs"
)

// dumpLockWait bounds how long Dump waits for the table lock before
// printing without it.
const dumpLockWait = 10 * time.Millisecond

// allocate claims an unused slot as an embryo and gives it a pid, a kernel
// stack with an empty trap frame and a context that starts at forkret.
func (k *Kernel) allocate(c *cpu) (*record, error) {
	if !k.acquire(c, k.ptable) {
		return nil, ErrHalted
	}
	var r *record
	for _, candidate := range k.procs {
		if candidate.state == proc.StateUnused {
			r = candidate
			break
		}
	}
	if r == nil {
		k.release(c, k.ptable)
		return nil, ErrNoSlot
	}
	k.setState(r, proc.StateEmbryo)
	r.pid = k.nextPid
	k.nextPid++
	r.tickets = k.config.DefaultTickets
	r.ticks = 0
	k.release(c, k.ptable)

	kstack, err := k.pages.Alloc()
	if err != nil {
		k.abandon(c, r)
		return nil, fmt.Errorf("%w: kernel stack: %w", ErrNoMemory, err)
	}
	r.kstack = kstack
	r.setTrapFrame(proc.TrapFrame{})
	r.context = proc.Context{EIP: forkretAddr}
	r.resume = make(chan struct{}, 1)
	r.started = false
	r.files = make([]*fs.File, k.config.MaxFiles)
	return r, nil
}

// abandon returns an embryo to the unused state, freeing what it acquired.
func (k *Kernel) abandon(c *cpu, r *record) {
	if r.kstack != nil {
		k.pages.Free(r.kstack)
		r.kstack = nil
	}
	if !k.acquire(c, k.ptable) {
		return
	}
	if r.addr.as != nil {
		k.releaseSpace(r)
	}
	k.clear(r)
	k.setState(r, proc.StateUnused)
	k.release(c, k.ptable)
}

// releaseSpace drops the record's reference to its address space and frees
// the space with the last reference. Called with the table lock held.
func (k *Kernel) releaseSpace(r *record) {
	as := r.addr.as
	r.addr = addressRef{}
	as.refs--
	if as.refs < 0 {
		k.panic("address space refcount")
	}
	if as.refs == 0 {
		k.vm.Free(as.space)
	}
}

// reclaim frees a zombie's kernel stack and returns its slot to unused.
// Called with the table lock held, after the address space was released.
func (k *Kernel) reclaim(r *record) {
	k.pages.Free(r.kstack)
	r.kstack = nil
	k.clear(r)
	k.setState(r, proc.StateUnused)
}

func (k *Kernel) clear(r *record) {
	r.pid = 0
	r.parent = Handle{}
	r.channel = nil
	r.killed.Store(false)
	r.name = ""
	r.size = 0
	r.threadStack = 0
	r.entry = nil
	r.started = false
	r.files = nil
	r.cwd = nil
	r.cpu = nil
	r.gen++
}

// setState moves r to state to, halting on an illegal transition.
// Called with the table lock held.
func (k *Kernel) setState(r *record, to proc.State) {
	if !r.state.CanTransition(to) {
		k.panic(fmt.Sprintf("pid %d: illegal transition %v -> %v", r.pid, r.state, to))
	}
	r.state = to
}

// lookup returns the live record with pid. Called with the table lock held.
func (k *Kernel) lookup(pid int) *record {
	if pid <= 0 {
		return nil
	}
	for _, r := range k.procs {
		if r.state != proc.StateUnused && r.pid == pid {
			return r
		}
	}
	return nil
}

func (k *Kernel) stats(c *cpu) ([]proc.Stat, error) {
	if !k.acquire(c, k.ptable) {
		return nil, ErrHalted
	}
	defer k.release(c, k.ptable)
	result := make([]proc.Stat, len(k.procs))
	for i, r := range k.procs {
		result[i] = proc.Stat{
			Pid:     r.pid,
			InUse:   r.state.InUse(),
			Tickets: r.tickets,
			Ticks:   r.ticks,
		}
	}
	return result, nil
}

// Stats returns per-slot scheduling statistics, one entry per slot
func (k *Kernel) Stats() ([]proc.Stat, error) {
	if k.Halted() {
		return nil, ErrHalted
	}
	return k.stats(k.boundary())
}

func (k *Kernel) kill(c *cpu, pid int) error {
	if !k.acquire(c, k.ptable) {
		return ErrHalted
	}
	r := k.lookup(pid)
	if r == nil {
		k.release(c, k.ptable)
		return fmt.Errorf("kill %d: %w", pid, ErrNoProcess)
	}
	r.killed.Store(true)
	if r.state == proc.StateSleeping {
		k.setState(r, proc.StateRunnable)
	}
	k.release(c, k.ptable)
	k.notify(proc.Event{Type: proc.EventKill, Pid: pid})
	return nil
}

// Kill marks pid for termination from outside any record. The target
// exits the next time it crosses the user/kernel boundary.
func (k *Kernel) Kill(pid int) error {
	if k.Halted() {
		return ErrHalted
	}
	return k.kill(k.boundary(), pid)
}

// Dump writes one line per in-use slot. The table lock is taken when it is
// free; a wedged table is listed without it.
func (k *Kernel) Dump(w io.Writer) {
	locked := false
	select {
	case k.ptable.sem <- struct{}{}:
		locked = true
	case <-time.After(dumpLockWait):
	}
	for _, r := range k.procs {
		if r.state == proc.StateUnused {
			continue
		}
		line := fmt.Sprintf("%d %s %s tickets=%d ticks=%d", r.pid, r.state.Short(), r.name, r.tickets, r.ticks)
		if r.addr.kind == sharedSpace {
			line += " thread"
		}
		if r.state == proc.StateSleeping {
			line += fmt.Sprintf(" chan=%v", r.channel)
		}
		fmt.Fprintln(w, line)
	}
	if locked {
		<-k.ptable.sem
	}
}
