package kernel

import (
	"runtime"

	"github.com/viant/kproc/model/proc"
)

// swtch hands the core's execution permit to the continuation to and
// parks the caller until from is signalled. Each core has a single permit,
// so the buffered send never blocks.
func (k *Kernel) swtch(from, to chan struct{}) {
	to <- struct{}{}
	select {
	case <-from:
	case <-k.halt:
		runtime.Goexit()
	}
}

// sched switches from the running record r back to its core's dispatch
// loop. The caller holds only the table lock, with interrupts off, and has
// already moved r out of the running state. The saved interrupt flag
// belongs to the record, so it is restored on whichever core resumes it.
func (k *Kernel) sched(r *record) {
	c := r.cpu
	if !k.ptable.holding(c) {
		k.panic("sched ptable.lock")
	}
	if c.ncli != 1 {
		k.panic("sched locks")
	}
	if r.state == proc.StateRunning {
		k.panic("sched running")
	}
	if c.intr {
		k.panic("sched interruptible")
	}
	intena := c.intena
	if r.state == proc.StateZombie {
		c.scheduler <- struct{}{}
		runtime.Goexit()
	}
	k.swtch(r.resume, c.scheduler)
	r.cpu.intena = intena
}

// yield gives up the core for one scheduling round
func (k *Kernel) yield(r *record) {
	k.acquire(r.cpu, k.ptable)
	k.setState(r, proc.StateRunnable)
	k.sched(r)
	k.release(r.cpu, k.ptable)
}

// run is the goroutine of a record; it starts parked until the first
// dispatch, which resumes it in forkret.
func (k *Kernel) run(r *record) {
	select {
	case <-r.resume:
	case <-k.halt:
		return
	}
	p := &Proc{k: k, r: r}
	k.forkret(p)
	p.Checkpoint()
	r.entry(p)
	p.Exit()
}

// forkret is the first kernel code a record executes. It still holds the
// table lock taken by the dispatch loop.
func (k *Kernel) forkret(p *Proc) {
	k.release(p.r.cpu, k.ptable)
	if k.firstRun != nil {
		k.firstRunOnce.Do(func() {
			k.firstRun(p)
		})
	}
}
