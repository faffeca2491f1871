package kernel

import "sync/atomic"

// cpu is the per-core state. Only the goroutine holding the core's
// execution permit touches it, except pending which the timer raises.
type cpu struct {
	id int
	// boundary marks a transient core used by callers outside any record.
	boundary bool
	proc     *record
	// scheduler resumes the core's dispatch loop.
	scheduler chan struct{}
	ncli      int
	intena    bool
	intr      bool
	pending   atomic.Int32
}

func newCPU(id int) *cpu {
	return &cpu{id: id, scheduler: make(chan struct{}, 1)}
}

// boundary returns a core for a single call made from outside any record.
func (k *Kernel) boundary() *cpu {
	return &cpu{id: -1, boundary: true}
}

// pushcli disables interrupts, remembering the state of the outermost call.
func (k *Kernel) pushcli(c *cpu) {
	enabled := c.intr
	c.intr = false
	if c.ncli == 0 {
		c.intena = enabled
	}
	c.ncli++
}

func (k *Kernel) popcli(c *cpu) {
	if c.intr {
		k.panic("popcli - interruptible")
	}
	c.ncli--
	if c.ncli < 0 {
		k.panic("popcli")
	}
	if c.ncli == 0 && c.intena {
		c.intr = true
	}
}
