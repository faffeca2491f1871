// Package ticketlock provides a FIFO-fair lock for records of the process
// core. Waiters block through the kernel's sleep/wakeup rendezvous instead
// of spinning the core.
package ticketlock

import (
	"sync/atomic"
)

// Host is the record-side surface the lock needs from the kernel
type Host interface {
	DisableInterrupts()
	EnableInterrupts()
	// SleepUnless parks the caller on channel unless cond holds; cond is
	// evaluated atomically with respect to Wakeup.
	SleepUnless(channel any, cond func() bool)
	Wakeup(channel any)
}

// Lock is a ticket lock: a holder's drawn ticket equals the current turn
type Lock struct {
	name string
	next atomic.Uint64
	turn atomic.Uint64
}

// New creates a named ticket lock
func New(name string) *Lock {
	return &Lock{name: name}
}

// Name returns lock name
func (l *Lock) Name() string {
	return l.name
}

// Acquire draws a ticket and sleeps on the lock until it is served.
// Interrupts stay disabled until Release.
func (l *Lock) Acquire(host Host) uint64 {
	host.DisableInterrupts()
	ticket := l.next.Add(1) - 1
	served := func() bool { return l.turn.Load() == ticket }
	for !served() {
		host.SleepUnless(l, served)
	}
	return ticket
}

// Release serves the next ticket and wakes every waiter; each re-checks
// its own ticket and all but one go back to sleep.
func (l *Lock) Release(host Host) {
	l.turn.Add(1)
	host.Wakeup(l)
	host.EnableInterrupts()
}

// Holding returns true when ticket is the one currently served
func (l *Lock) Holding(ticket uint64) bool {
	return l.turn.Load() == ticket
}

// Waiting returns the number of tickets drawn but not yet served,
// including the holder's
func (l *Lock) Waiting() uint64 {
	return l.next.Load() - l.turn.Load()
}
