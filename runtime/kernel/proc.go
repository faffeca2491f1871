package kernel

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/fs"
	"github.com/viant/kproc/tracing"
)

// Proc is the system-call surface of the record it was handed to. Its
// methods must only be called from that record's program.
type Proc struct {
	k *Kernel
	r *record
}

func (p *Proc) span(name string) *tracing.Span {
	_, span := tracing.StartSpan(p.k.ctx, name, "INTERNAL")
	return span.WithAttributes(map[string]string{"proc.pid": strconv.Itoa(p.r.pid)})
}

// Pid returns process id
func (p *Proc) Pid() int {
	return p.r.pid
}

// Name returns process name
func (p *Proc) Name() string {
	return p.r.name
}

// Tickets returns lottery ticket count
func (p *Proc) Tickets() int {
	return p.r.tickets
}

// Size returns user memory size in bytes
func (p *Proc) Size() int {
	return p.r.size
}

// IsThread returns true when the record shares its parent's address space
func (p *Proc) IsThread() bool {
	return p.r.addr.kind == sharedSpace
}

// Killed returns true once the record has been marked for termination
func (p *Proc) Killed() bool {
	return p.r.killed.Load()
}

// CPU returns the id of the core currently running the record
func (p *Proc) CPU() int {
	return p.r.cpu.id
}

// TrapFrame returns a copy of the saved user registers
func (p *Proc) TrapFrame() proc.TrapFrame {
	return p.r.trapFrame()
}

// Context returns the kernel context used for tracing
func (p *Proc) Context() context.Context {
	return p.k.ctx
}

// Kernel returns the owning kernel
func (p *Proc) Kernel() *Kernel {
	return p.k
}

// Fork creates a child running entry and returns its pid
func (p *Proc) Fork(entry Program) (pid int, err error) {
	span := p.span("kernel.fork")
	defer func() { tracing.EndSpan(span, err) }()
	return p.k.fork(p.r, entry)
}

// Exit terminates the record; it never returns
func (p *Proc) Exit() {
	p.k.exit(p.r)
}

// Wait reaps a zombie child, sleeping until one exists. It returns
// ErrNoChildren when there is nothing to wait for or the caller was killed.
func (p *Proc) Wait() (pid int, err error) {
	span := p.span("kernel.wait")
	defer func() { tracing.EndSpan(span, err) }()
	return p.k.wait(p.r)
}

// Kill marks pid for termination
func (p *Proc) Kill(pid int) (err error) {
	span := p.span("kernel.kill")
	defer func() { tracing.EndSpan(span, err) }()
	return p.k.kill(p.r.cpu, pid)
}

// Clone creates a thread sharing the caller's address space. stack is the
// page-aligned user address of the thread's one page stack.
func (p *Proc) Clone(entry ThreadFunc, arg1, arg2, stack uint32) (pid int, err error) {
	span := p.span("kernel.clone")
	defer func() { tracing.EndSpan(span, err) }()
	return p.k.clone(p.r, entry, arg1, arg2, stack)
}

// Join reaps a zombie thread child and returns its pid and user stack
func (p *Proc) Join() (pid int, stack uint32, err error) {
	span := p.span("kernel.join")
	defer func() { tracing.EndSpan(span, err) }()
	return p.k.join(p.r)
}

// SetTickets sets the caller's lottery ticket count
func (p *Proc) SetTickets(tickets int) error {
	return p.k.setTickets(p.r, tickets)
}

// Stats returns per-slot scheduling statistics
func (p *Proc) Stats() ([]proc.Stat, error) {
	return p.k.stats(p.r.cpu)
}

// Grow changes the caller's user memory by n bytes
func (p *Proc) Grow(n int) error {
	return p.k.grow(p.r, n)
}

// Yield gives up the core for one scheduling round
func (p *Proc) Yield() {
	p.k.yield(p.r)
}

// Sleep releases lk, parks the caller on channel and re-acquires lk once woken
func (p *Proc) Sleep(channel Channel, lk *Spinlock) {
	p.k.sleep(p.r, channel, lk)
}

// SleepUnless parks the caller on channel unless cond returns true; cond
// runs with the table lock held.
func (p *Proc) SleepUnless(channel Channel, cond func() bool) {
	p.k.sleepUnless(p.r, channel, cond)
}

// Wakeup makes every record sleeping on channel runnable
func (p *Proc) Wakeup(channel Channel) {
	p.k.wakeup(p.r.cpu, channel)
}

// Acquire takes lk on the caller's core
func (p *Proc) Acquire(lk *Spinlock) {
	p.k.acquire(p.r.cpu, lk)
}

// Release releases lk
func (p *Proc) Release(lk *Spinlock) {
	p.k.release(p.r.cpu, lk)
}

// DisableInterrupts clears the interrupt flag of the caller's core
func (p *Proc) DisableInterrupts() {
	p.r.cpu.intr = false
}

// EnableInterrupts sets the interrupt flag of the caller's core
func (p *Proc) EnableInterrupts() {
	p.r.cpu.intr = true
}

// Checkpoint is the trap return path: a killed record exits, and a record
// whose core took a timer tick with interrupts enabled yields.
func (p *Proc) Checkpoint() {
	if p.r.killed.Load() {
		p.Exit()
	}
	c := p.r.cpu
	if c.intr && c.pending.Swap(0) > 0 {
		p.Yield()
		if p.r.killed.Load() {
			p.Exit()
		}
	}
}

// Open installs a handle to name in the lowest free descriptor slot
func (p *Proc) Open(name string) (int, error) {
	for fd, f := range p.r.files {
		if f == nil {
			p.r.files[fd] = p.k.files.Open(name)
			return fd, nil
		}
	}
	return -1, ErrTooManyFiles
}

// Close releases descriptor fd
func (p *Proc) Close(fd int) error {
	if fd < 0 || fd >= len(p.r.files) || p.r.files[fd] == nil {
		return fmt.Errorf("close %d: bad descriptor", fd)
	}
	p.k.files.Close(p.r.files[fd])
	p.r.files[fd] = nil
	return nil
}

// File returns the handle installed at fd or nil
func (p *Proc) File(fd int) *fs.File {
	if fd < 0 || fd >= len(p.r.files) {
		return nil
	}
	return p.r.files[fd]
}

// Cwd returns the working directory
func (p *Proc) Cwd() *fs.Inode {
	return p.r.cwd
}

// CopyOut writes data into the caller's address space
func (p *Proc) CopyOut(addr uint32, data []byte) error {
	return p.k.vm.CopyOut(p.r.addr.space(), addr, data)
}

// CopyIn reads n bytes from the caller's address space
func (p *Proc) CopyIn(addr uint32, n int) ([]byte, error) {
	return p.k.vm.CopyIn(p.r.addr.space(), addr, n)
}

// threadArgs reads the two words clone placed above the fake return address
func (p *Proc) threadArgs() (uint32, uint32, error) {
	sp := p.r.trapFrame().ESP
	data, err := p.CopyIn(sp+4, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("thread arguments: %w", err)
	}
	return binary.LittleEndian.Uint32(data), binary.LittleEndian.Uint32(data[4:]), nil
}
