package kernel

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a mutual exclusion lock that remembers which core holds it.
// Unlike sync.Mutex, waiting on it is abandoned when the kernel halts.
type Spinlock struct {
	name   string
	sem    chan struct{}
	holder atomic.Pointer[cpu]
}

// NewSpinlock creates a named lock
func NewSpinlock(name string) *Spinlock {
	return &Spinlock{name: name, sem: make(chan struct{}, 1)}
}

// Name returns lock name
func (l *Spinlock) Name() string {
	return l.name
}

func (l *Spinlock) holding(c *cpu) bool {
	return l.holder.Load() == c
}

// acquire disables interrupts on c and takes the lock. A record goroutine
// waiting when the kernel halts is terminated; a boundary caller gets false.
func (k *Kernel) acquire(c *cpu, l *Spinlock) bool {
	k.pushcli(c)
	if l.holding(c) {
		k.panic("acquire " + l.name)
	}
	select {
	case <-k.halt:
		return k.abandonAcquire(c)
	default:
	}
	select {
	case l.sem <- struct{}{}:
	case <-k.halt:
		return k.abandonAcquire(c)
	}
	l.holder.Store(c)
	return true
}

func (k *Kernel) abandonAcquire(c *cpu) bool {
	if !c.boundary {
		runtime.Goexit()
	}
	c.ncli--
	return false
}

func (k *Kernel) release(c *cpu, l *Spinlock) {
	if !l.holding(c) {
		k.panic("release " + l.name)
	}
	l.holder.Store(nil)
	<-l.sem
	k.popcli(c)
}
