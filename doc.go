// Package kproc provides a lottery-scheduled process core modelled on a
// teaching operating-system kernel.
//
// The core keeps a fixed process table behind one lock, runs a lottery
// dispatch loop per core and implements fork, exit, wait, kill and the
// clone/join thread extension. The root package wires the kernel with its
// supporting services:
//
//   - runtime/kernel    – process table, scheduler and lifecycle
//   - runtime/ticketlock – FIFO lock for threads sharing an address space
//   - service/reporter  – periodic scheduling statistics snapshots
//   - service/event     – lifecycle event stream
//
// End-users typically interact with the core via the Service façade:
//
//	srv, _ := kproc.New(kproc.WithConfig(cfg))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	_, _ = rt.Boot(func(p *kernel.Proc) {
//		pid, _ := p.Fork(worker)
//		_, _ = p.Wait()
//	})
//	defer rt.Shutdown(ctx)
package kproc
