package kernel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/viant/kproc/model/proc"
)

// Config represents kernel configuration
type Config struct {
	// MaxProcs is the process table capacity.
	MaxProcs int
	// CPUs is the number of cores, each running its own dispatch loop.
	CPUs int
	// MaxFiles is the number of descriptor slots per record.
	MaxFiles int
	// PageSize is the user page size; thread stacks must be aligned to it.
	PageSize int
	// KernelStackSize is the size of a kernel stack page.
	KernelStackSize int
	// MemoryPages is the user page budget of the default address-space manager.
	MemoryPages int
	// DefaultTickets is the ticket count of a freshly allocated record.
	DefaultTickets int
	// MaxTickets caps the ticket count of a record, so the lottery total
	// of a full table fits in 31 bits.
	MaxTickets int
	// RootDir is the working directory of the first record.
	RootDir string
	// InitCode is loaded at address zero of the first record.
	InitCode []byte
	// Seed seeds the default lottery source, zero uses the clock.
	Seed int64
	// Quantum is the timer tick period, zero disables involuntary preemption.
	Quantum time.Duration
	// IdleBackoff is how long a core waits when nothing is runnable.
	IdleBackoff time.Duration
}

// DefaultConfig returns the default kernel configuration
func DefaultConfig() Config {
	return Config{
		MaxProcs:        64,
		CPUs:            2,
		MaxFiles:        16,
		PageSize:        4096,
		KernelStackSize: 4096,
		MemoryPages:     1024,
		DefaultTickets:  1,
		MaxTickets:      1 << 20,
		RootDir:         "/",
		Quantum:         10 * time.Millisecond,
		IdleBackoff:     100 * time.Microsecond,
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxProcs <= 0 {
		errs = append(errs, fmt.Errorf("maxProcs must be > 0"))
	}
	if c.CPUs <= 0 {
		errs = append(errs, fmt.Errorf("cpus must be > 0"))
	}
	if c.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("maxFiles must be > 0"))
	}
	if c.PageSize <= 0 || c.PageSize%4 != 0 {
		errs = append(errs, fmt.Errorf("pageSize must be a positive multiple of 4"))
	}
	if c.KernelStackSize < proc.TrapFrameSize {
		errs = append(errs, fmt.Errorf("kernelStackSize must hold a trap frame (%d bytes)", proc.TrapFrameSize))
	}
	if c.MemoryPages <= 0 {
		errs = append(errs, fmt.Errorf("memoryPages must be > 0"))
	}
	if c.DefaultTickets < 1 {
		errs = append(errs, fmt.Errorf("defaultTickets must be >= 1"))
	}
	if c.MaxTickets < c.DefaultTickets {
		errs = append(errs, fmt.Errorf("maxTickets must be >= defaultTickets"))
	}
	if c.MaxProcs > 0 && c.MaxTickets > 0 && int64(c.MaxProcs)*int64(c.MaxTickets) > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("maxProcs * maxTickets must not exceed %d", math.MaxInt32))
	}
	if len(c.InitCode) > c.PageSize {
		errs = append(errs, fmt.Errorf("initCode exceeds a page"))
	}
	if c.Quantum < 0 || c.IdleBackoff < 0 {
		errs = append(errs, fmt.Errorf("durations must not be negative"))
	}
	return errors.Join(errs...)
}
