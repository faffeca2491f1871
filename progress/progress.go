package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/kproc/model/proc"
)

// Delta represents an incremental counter change derived from a lifecycle event
type Delta struct {
	Forked  int
	Cloned  int
	Exited  int
	Reaped  int
	Joined  int
	Killed  int
	Zombies int
}

// Progress keeps aggregated lifecycle counters. It is safe for concurrent use.
type Progress struct {
	BootID    string
	StartedAt time.Time

	Forked  int
	Cloned  int
	Exited  int
	Reaped  int
	Joined  int
	Killed  int
	Zombies int

	sync.Mutex
	onChange func(Progress)
}

// New creates a tracker for bootID
func New(bootID string, onChange func(Progress)) *Progress {
	return &Progress{BootID: bootID, StartedAt: time.Now(), onChange: onChange}
}

// Live returns number of created records not yet reclaimed, init excluded
func (p *Progress) Live() int {
	return p.Forked + p.Cloned - p.Reaped - p.Joined
}

// Notify applies the delta of a lifecycle event
func (p *Progress) Notify(e *proc.Event) {
	if e == nil {
		return
	}
	p.Update(DeltaOf(e))
}

// DeltaOf maps a lifecycle event to counter changes
func DeltaOf(e *proc.Event) Delta {
	switch e.Type {
	case proc.EventFork:
		return Delta{Forked: 1}
	case proc.EventClone:
		return Delta{Cloned: 1}
	case proc.EventExit:
		return Delta{Exited: 1, Zombies: 1}
	case proc.EventReap:
		return Delta{Reaped: 1, Zombies: -1}
	case proc.EventJoin:
		return Delta{Joined: 1, Zombies: -1}
	case proc.EventKill:
		return Delta{Killed: 1}
	}
	return Delta{}
}

// Update applies the supplied delta to the tracker. The onChange callback,
// if any, runs with a copy of the counters outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.Forked += d.Forked
	p.Cloned += d.Cloned
	p.Exited += d.Exited
	p.Reaped += d.Reaped
	p.Joined += d.Joined
	p.Killed += d.Killed
	p.Zombies += d.Zombies
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

// OnChange registers a callback invoked after every Update; nil disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

func (p *Progress) copy() Progress {
	return Progress{
		BootID:    p.BootID,
		StartedAt: p.StartedAt,
		Forked:    p.Forked,
		Cloned:    p.Cloned,
		Exited:    p.Exited,
		Reaped:    p.Reaped,
		Joined:    p.Joined,
		Killed:    p.Killed,
		Zombies:   p.Zombies,
	}
}

type trackerKey struct{}

// WithTracker embeds tracker in a derived context
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey{}, tracker)
}

// FromContext extracts the tracker from ctx
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey{}).(*Progress)
	return tr, ok
}
