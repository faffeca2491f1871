package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kproc/model/proc"
)

func TestProgress_Notify(t *testing.T) {
	testCases := []struct {
		name    string
		events  []proc.EventType
		live    int
		zombies int
	}{
		{name: "fork then reap", events: []proc.EventType{proc.EventFork, proc.EventExit, proc.EventReap}, live: 0, zombies: 0},
		{name: "unreaped zombie", events: []proc.EventType{proc.EventFork, proc.EventFork, proc.EventExit}, live: 2, zombies: 1},
		{name: "thread", events: []proc.EventType{proc.EventClone, proc.EventExit, proc.EventJoin}, live: 0, zombies: 0},
		{name: "kill and tickets", events: []proc.EventType{proc.EventFork, proc.EventKill, proc.EventTickets}, live: 1, zombies: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := New("boot", nil)
			for _, eventType := range tc.events {
				tracker.Notify(&proc.Event{Type: eventType, Pid: 2})
			}
			tracker.Notify(nil)
			snapshot := tracker.Snapshot()
			assert.Equal(t, tc.live, snapshot.Live())
			assert.Equal(t, tc.zombies, snapshot.Zombies)
		})
	}
}

func TestProgress_OnChangeConcurrent(t *testing.T) {
	var mux sync.Mutex
	calls := 0
	tracker := New("boot", func(p Progress) {
		mux.Lock()
		calls++
		mux.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Notify(&proc.Event{Type: proc.EventFork})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tracker.Snapshot().Forked)
	assert.Equal(t, 50, calls)

	ctx := WithTracker(context.Background(), tracker)
	actual, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, tracker, actual)
	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
