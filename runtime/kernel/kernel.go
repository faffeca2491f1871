package kernel

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/fs"
	"github.com/viant/kproc/service/kalloc"
	"github.com/viant/kproc/service/vm"
	"github.com/viant/kproc/service/vm/memory"
)

const (
	segUserCode = 0x1b
	segUserData = 0x23
	// forkretAddr is the saved instruction pointer of a record that has never run.
	forkretAddr = 0x80100000
	textBase    = 0x1000
)

// Kernel owns the process table and the per-core dispatch loops
type Kernel struct {
	config   Config
	pages    PageAllocator
	vm       vm.Service
	files    Files
	rand     Rand
	observer Observer
	firstRun func(p *Proc)
	ctx      context.Context

	ptable   *Spinlock
	procs    []*record
	cpus     []*cpu
	nextPid  int
	initproc *record

	textMu   sync.Mutex
	text     map[uintptr]uint32
	nextText uint32

	firstRunOnce sync.Once
	started      atomic.Bool
	booted       atomic.Bool
	halt         chan struct{}
	haltOnce     sync.Once
	fatal        atomic.Pointer[string]
	wg           sync.WaitGroup
}

// New creates a kernel; collaborators left unset get in-memory defaults
func New(options ...Option) (*Kernel, error) {
	k := &Kernel{
		config:   DefaultConfig(),
		ctx:      context.Background(),
		nextPid:  1,
		text:     map[uintptr]uint32{},
		nextText: textBase,
		halt:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(k)
	}
	if err := k.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel config: %w", err)
	}
	if k.pages == nil {
		k.pages = kalloc.New(k.config.KernelStackSize, k.config.MaxProcs)
	}
	if k.vm == nil {
		k.vm = memory.New(k.config.PageSize, k.config.MemoryPages)
	}
	if k.files == nil {
		k.files = fs.New(k.config.RootDir)
	}
	if k.rand == nil {
		seed := k.config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		k.rand = rand.New(rand.NewSource(seed))
	}
	k.ptable = NewSpinlock("ptable")
	k.procs = make([]*record, k.config.MaxProcs)
	for i := range k.procs {
		k.procs[i] = &record{index: i, gen: 1, state: proc.StateUnused}
	}
	k.cpus = make([]*cpu, k.config.CPUs)
	for i := range k.cpus {
		k.cpus[i] = newCPU(i)
	}
	return k, nil
}

// Config returns kernel configuration
func (k *Kernel) Config() Config {
	return k.config
}

// Start launches one dispatch loop and one timer per core
func (k *Kernel) Start(ctx context.Context) error {
	if !k.started.CompareAndSwap(false, true) {
		return fmt.Errorf("kernel already started")
	}
	if k.Halted() {
		return ErrHalted
	}
	for _, c := range k.cpus {
		k.wg.Add(1)
		go k.scheduler(ctx, c)
		if k.config.Quantum > 0 {
			k.wg.Add(1)
			go k.timer(ctx, c)
		}
	}
	log.Printf("kernel: started %d cpu(s), %d slots", len(k.cpus), len(k.procs))
	return nil
}

// Shutdown halts every core and waits for the dispatch loops to stop.
// Records parked in the kernel are abandoned.
func (k *Kernel) Shutdown() {
	k.stop("")
	k.wg.Wait()
}

// Halted returns true once the kernel stopped or panicked
func (k *Kernel) Halted() bool {
	select {
	case <-k.halt:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the kernel halts
func (k *Kernel) Done() <-chan struct{} {
	return k.halt
}

// Fatal returns the reason of a kernel panic, or empty string
func (k *Kernel) Fatal() string {
	if reason := k.fatal.Load(); reason != nil {
		return *reason
	}
	return ""
}

func (k *Kernel) stop(reason string) {
	k.haltOnce.Do(func() {
		if reason != "" {
			k.fatal.Store(&reason)
		}
		close(k.halt)
	})
}

// panic halts every core and unwinds the calling goroutine with *Panic
func (k *Kernel) panic(reason string) {
	log.Printf("kernel: panic: %s", reason)
	k.stop(reason)
	panic(&Panic{Reason: reason})
}

// Boot creates the first record running program. It owns a one page
// address space holding the configured init code and adopts orphans.
func (k *Kernel) Boot(program Program) (int, error) {
	if program == nil {
		return 0, fmt.Errorf("userinit: program was nil")
	}
	if !k.booted.CompareAndSwap(false, true) {
		return 0, fmt.Errorf("userinit: already booted")
	}
	c := k.boundary()
	r, err := k.allocate(c)
	if err != nil {
		return 0, fmt.Errorf("userinit: %w", err)
	}
	space, err := k.vm.Setup(k.config.InitCode)
	if err != nil {
		k.abandon(c, r)
		return 0, fmt.Errorf("userinit: %w: %w", ErrNoMemory, err)
	}
	r.addr = owned(space)
	cwd, err := k.files.Namei(k.config.RootDir)
	if err != nil {
		k.abandon(c, r)
		return 0, fmt.Errorf("userinit: %w", err)
	}
	r.cwd = cwd
	r.size = k.config.PageSize
	r.setTrapFrame(proc.TrapFrame{
		CS:     segUserCode,
		DS:     segUserData,
		EFlags: proc.FlagIF,
		ESP:    uint32(k.config.PageSize),
	})
	r.name = "initcode"
	r.entry = program
	if !k.acquire(c, k.ptable) {
		// The table is gone with the kernel; only the collaborators' resources are returned.
		k.vm.Free(space)
		r.addr = addressRef{}
		k.files.Iput(cwd)
		r.cwd = nil
		k.abandon(c, r)
		return 0, ErrHalted
	}
	k.initproc = r
	k.setState(r, proc.StateRunnable)
	pid := r.pid
	k.release(c, k.ptable)
	return pid, nil
}

// textAddr returns a stable user text address for an entry function.
func (k *Kernel) textAddr(fn uintptr) uint32 {
	k.textMu.Lock()
	defer k.textMu.Unlock()
	if addr, ok := k.text[fn]; ok {
		return addr
	}
	addr := k.nextText
	k.nextText += 0x10
	k.text[fn] = addr
	return addr
}

func (k *Kernel) notify(event proc.Event) {
	if k.observer == nil {
		return
	}
	k.observer.Notify(&event)
}
