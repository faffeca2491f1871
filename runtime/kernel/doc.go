// Package kernel implements the process core: a fixed-capacity process
// table guarded by a single lock, a lottery scheduler running one dispatch
// loop per core, the sleep/wakeup rendezvous and the process lifecycle
// (fork, exit, wait, kill, clone, join).
//
// Every record executes on its own goroutine, but only while it holds its
// core's execution permit. A context switch hands the permit over a channel
// to the target continuation and parks the caller until its own channel is
// signalled, so each core runs exactly one goroutine at a time. The table
// lock is held across every switch and released by whichever side resumes.
//
//	k, _ := kernel.New(kernel.WithConfig(cfg))
//	_ = k.Start(ctx)
//	_, _ = k.Boot(func(p *kernel.Proc) {
//		pid, _ := p.Fork(child)
//		_, _ = p.Wait()
//	})
//
// Protocol violations (handing off with the wrong lock depth, exiting the
// init record, an illegal state transition) halt the kernel and panic with
// *Panic.
package kernel
