package kernel

import "github.com/viant/kproc/model/proc"

// sleep atomically releases lk and parks r on channel; lk is re-acquired
// before returning. Holding the table lock from before lk is released until
// the record is asleep guarantees no wakeup on channel is missed.
func (k *Kernel) sleep(r *record, channel Channel, lk *Spinlock) {
	if lk == nil {
		k.panic("sleep without lk")
	}
	if channel == nil {
		k.panic("sleep on nil channel")
	}
	if lk != k.ptable {
		k.acquire(r.cpu, k.ptable)
		k.release(r.cpu, lk)
	}
	r.channel = channel
	k.setState(r, proc.StateSleeping)
	k.sched(r)
	r.channel = nil
	if lk != k.ptable {
		k.release(r.cpu, k.ptable)
		k.acquire(r.cpu, lk)
	}
}

// sleepUnless parks r on channel unless cond holds. The condition is
// evaluated under the table lock, so a wakeup issued after the state it
// observes changed cannot be lost.
func (k *Kernel) sleepUnless(r *record, channel Channel, cond func() bool) {
	if channel == nil {
		k.panic("sleep on nil channel")
	}
	k.acquire(r.cpu, k.ptable)
	if !cond() {
		r.channel = channel
		k.setState(r, proc.StateSleeping)
		k.sched(r)
		r.channel = nil
	}
	k.release(r.cpu, k.ptable)
}

// wakeup1 makes every record sleeping on channel runnable. Called with the
// table lock held.
func (k *Kernel) wakeup1(channel Channel) {
	for _, r := range k.procs {
		if r.state == proc.StateSleeping && r.channel == channel {
			k.setState(r, proc.StateRunnable)
		}
	}
}

func (k *Kernel) wakeup(c *cpu, channel Channel) {
	if !k.acquire(c, k.ptable) {
		return
	}
	k.wakeup1(channel)
	k.release(c, k.ptable)
}

// Wakeup wakes every record sleeping on channel from outside any record
func (k *Kernel) Wakeup(channel Channel) {
	if k.Halted() {
		return
	}
	k.wakeup(k.boundary(), channel)
}
