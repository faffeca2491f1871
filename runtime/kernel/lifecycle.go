package kernel

import (
	"fmt"

	"github.com/viant/kproc/model/proc"
)

// fork creates a child of r running entry with a copy of r's address
// space, descriptors, working directory and tickets. The child's trap frame
// equals the parent's except for a zero return register.
func (k *Kernel) fork(r *record, entry Program) (int, error) {
	if entry == nil {
		return 0, fmt.Errorf("fork: entry was nil")
	}
	np, err := k.allocate(r.cpu)
	if err != nil {
		return 0, fmt.Errorf("fork: %w", err)
	}
	space, err := k.vm.Copy(r.addr.space(), r.size)
	if err != nil {
		k.abandon(r.cpu, np)
		return 0, fmt.Errorf("fork: %w: %w", ErrNoMemory, err)
	}
	addr := owned(space)
	np.size = r.size
	tf := r.trapFrame()
	tf.EAX = 0
	np.setTrapFrame(tf)
	k.inherit(r, np)
	np.entry = entry

	c := r.cpu
	k.acquire(c, k.ptable)
	np.addr = addr
	np.parent = r.handle()
	np.tickets = r.tickets
	k.setState(np, proc.StateRunnable)
	pid := np.pid
	tickets := np.tickets
	k.release(c, k.ptable)
	k.notify(proc.Event{Type: proc.EventFork, Pid: pid, Parent: r.pid, Tickets: tickets})
	return pid, nil
}

// inherit duplicates descriptors, working directory and name of r into np
func (k *Kernel) inherit(r, np *record) {
	for fd, f := range r.files {
		if f != nil {
			np.files[fd] = k.files.Dup(f)
		}
	}
	if r.cwd != nil {
		np.cwd = k.files.Idup(r.cwd)
	}
	np.name = r.name
}

// exit releases descriptors, wakes the parent, hands children to the init
// record and switches away as a zombie. It never returns.
func (k *Kernel) exit(r *record) {
	if r == k.initproc {
		k.panic("init exiting")
	}
	for fd, f := range r.files {
		if f != nil {
			k.files.Close(f)
			r.files[fd] = nil
		}
	}
	if r.cwd != nil {
		k.files.Iput(r.cwd)
		r.cwd = nil
	}
	k.notify(proc.Event{Type: proc.EventExit, Pid: r.pid})

	k.acquire(r.cpu, k.ptable)
	// The parent may be sleeping in wait or join.
	k.wakeup1(r.parent)
	self := r.handle()
	initproc := k.initproc.handle()
	for _, q := range k.procs {
		if q.parent != self || q.state == proc.StateUnused {
			continue
		}
		q.parent = initproc
		if q.state == proc.StateZombie {
			k.wakeup1(initproc)
		}
	}
	k.setState(r, proc.StateZombie)
	k.sched(r)
	k.panic("zombie exit")
}

// wait reaps a zombie child of r and returns its pid. Threads sharing r's
// address space are left for join.
func (k *Kernel) wait(r *record) (int, error) {
	k.acquire(r.cpu, k.ptable)
	self := r.handle()
	for {
		haveKids := false
		for _, q := range k.procs {
			if q.parent != self || q.addr.threadOf(r.addr) {
				continue
			}
			haveKids = true
			if q.state != proc.StateZombie {
				continue
			}
			pid := q.pid
			k.releaseSpace(q)
			k.reclaim(q)
			k.release(r.cpu, k.ptable)
			k.notify(proc.Event{Type: proc.EventReap, Pid: pid, Parent: r.pid})
			return pid, nil
		}
		if !haveKids || r.killed.Load() {
			k.release(r.cpu, k.ptable)
			return -1, ErrNoChildren
		}
		k.sleep(r, self, k.ptable)
	}
}

func (k *Kernel) setTickets(r *record, tickets int) error {
	if tickets < 1 || tickets > k.config.MaxTickets {
		return fmt.Errorf("settickets %d: %w", tickets, ErrInvalidTickets)
	}
	k.acquire(r.cpu, k.ptable)
	r.tickets = tickets
	k.release(r.cpu, k.ptable)
	k.notify(proc.Event{Type: proc.EventTickets, Pid: r.pid, Tickets: tickets})
	return nil
}

// grow extends or shrinks r's user memory by n bytes
func (k *Kernel) grow(r *record, n int) error {
	if n == 0 {
		return nil
	}
	target := r.size + n
	if target < 0 {
		return fmt.Errorf("growproc %d: negative size", n)
	}
	size, err := k.vm.Grow(r.addr.space(), r.size, target)
	if err != nil {
		return fmt.Errorf("growproc %d: %w", n, err)
	}
	r.size = size
	return nil
}
