package kproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/progress"
	"github.com/viant/kproc/runtime/kernel"
	"github.com/viant/kproc/service/event"
	"github.com/viant/kproc/service/reporter"
	"github.com/viant/kproc/tracing"
)

// Runtime represents a running process core
type Runtime struct {
	kernel   *kernel.Kernel
	reporter *reporter.Service
	events   *event.Service
	progress *progress.Progress
	wg       sync.WaitGroup
	once     sync.Once
}

// Kernel returns the underlying kernel
func (r *Runtime) Kernel() *kernel.Kernel {
	return r.kernel
}

// BootID returns the id snapshots and events of this boot are tagged with
func (r *Runtime) BootID() string {
	return r.reporter.BootID()
}

// Start starts the dispatch loops and the statistics reporter
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.kernel.Start(ctx); err != nil {
		return err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.reporter.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reporter: stopped: %v", err)
		}
	}()
	return nil
}

// Boot creates the first record running program; it returns its pid
func (r *Runtime) Boot(program kernel.Program) (int, error) {
	return r.kernel.Boot(program)
}

// Stats returns per-slot scheduling statistics
func (r *Runtime) Stats() ([]proc.Stat, error) {
	return r.kernel.Stats()
}

// Kill marks the record with pid as killed
func (r *Runtime) Kill(pid int) error {
	return r.kernel.Kill(pid)
}

// Dump writes a listing of the process table
func (r *Runtime) Dump(w io.Writer) {
	r.kernel.Dump(w)
}

// Progress returns exact lifecycle counters of this boot
func (r *Runtime) Progress() progress.Progress {
	return r.progress.Snapshot()
}

// Capture stores a statistics snapshot now
func (r *Runtime) Capture(ctx context.Context) (*proc.Snapshot, error) {
	return r.reporter.Capture(ctx)
}

// Latest returns the most recent snapshot of this boot
func (r *Runtime) Latest(ctx context.Context) (*proc.Snapshot, error) {
	return r.reporter.Latest(ctx)
}

// Shutdown stops the reporter, halts the kernel and flushes traces
func (r *Runtime) Shutdown(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		r.reporter.Shutdown()
		r.wg.Wait()
		r.kernel.Shutdown()
		r.events.Close()
		if fatal := r.kernel.Fatal(); fatal != "" {
			err = fmt.Errorf("kernel panic: %v", fatal)
		}
		if tErr := tracing.Shutdown(ctx); tErr != nil {
			err = errors.Join(err, tErr)
		}
	})
	return err
}
