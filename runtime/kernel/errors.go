package kernel

import "errors"

var (
	// ErrNoSlot is returned when the process table has no unused record.
	ErrNoSlot = errors.New("kernel: process table full")
	// ErrNoMemory is returned when a kernel stack or address space cannot be allocated.
	ErrNoMemory = errors.New("kernel: out of memory")
	// ErrNoChildren is returned by wait and join when there is nothing to reap.
	ErrNoChildren = errors.New("kernel: no children")
	// ErrNoProcess is returned when a pid does not name a live record.
	ErrNoProcess = errors.New("kernel: no such process")
	// ErrInvalidTickets is returned for a ticket count below one or above the configured maximum.
	ErrInvalidTickets = errors.New("kernel: invalid ticket count")
	// ErrBadStack is returned by clone for a misaligned or out of range stack.
	ErrBadStack = errors.New("kernel: bad thread stack")
	// ErrTooManyFiles is returned when every descriptor slot is in use.
	ErrTooManyFiles = errors.New("kernel: too many open files")
	// ErrHalted is returned by boundary calls once the kernel stopped.
	ErrHalted = errors.New("kernel: halted")
)

// Panic is the value a fatal invariant breach panics with
type Panic struct {
	Reason string
}

func (p *Panic) Error() string {
	return "kernel panic: " + p.Reason
}
