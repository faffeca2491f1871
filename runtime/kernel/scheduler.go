package kernel

import (
	"context"
	"runtime"
	"time"

	"github.com/viant/kproc/model/proc"
)

// scheduler is the per-core dispatch loop. Each round it enables
// interrupts, takes the table lock, draws a lottery winner among runnable
// records and switches to it. The lock is held for the whole round,
// including while the winner runs, and released after control returns.
func (k *Kernel) scheduler(ctx context.Context, c *cpu) {
	defer k.wg.Done()
	c.proc = nil
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.halt:
			return
		default:
		}
		c.intr = true
		k.acquire(c, k.ptable)
		total := k.totalTickets()
		if total <= 0 {
			k.release(c, k.ptable)
			k.idle(ctx)
			continue
		}
		if r := k.lottery(k.rand.Intn(total)); r != nil {
			k.dispatch(c, r)
		}
		k.release(c, k.ptable)
	}
}

// dispatch runs r on c until it switches back. Called with the table lock held.
func (k *Kernel) dispatch(c *cpu, r *record) {
	c.proc = r
	r.cpu = c
	k.setState(r, proc.StateRunning)
	if !r.started {
		r.started = true
		go k.run(r)
	}
	k.swtch(c.scheduler, r.resume)
	r.ticks++
	c.proc = nil
}

// totalTickets sums the tickets of runnable records. Called with the table lock held.
func (k *Kernel) totalTickets() int {
	total := 0
	for _, r := range k.procs {
		if r.state == proc.StateRunnable {
			total += r.tickets
		}
	}
	return total
}

// lottery returns the first runnable record whose running ticket count
// exceeds winner, giving each record a chance of tickets/total when winner
// is uniform in [0, total). Called with the table lock held.
func (k *Kernel) lottery(winner int) *record {
	counter := 0
	for _, r := range k.procs {
		if r.state != proc.StateRunnable {
			continue
		}
		counter += r.tickets
		if counter > winner {
			return r
		}
	}
	return nil
}

func (k *Kernel) idle(ctx context.Context) {
	if k.config.IdleBackoff <= 0 {
		runtime.Gosched()
		return
	}
	timer := time.NewTimer(k.config.IdleBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-k.halt:
	case <-timer.C:
	}
}

// timer raises a tick on c every quantum; the record running there yields
// at its next checkpoint.
func (k *Kernel) timer(ctx context.Context, c *cpu) {
	defer k.wg.Done()
	ticker := time.NewTicker(k.config.Quantum)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.halt:
			return
		case <-ticker.C:
			c.pending.Add(1)
		}
	}
}
