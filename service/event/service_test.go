package event

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/messaging/fs"
	"github.com/viant/kproc/service/messaging/memory"
)

func TestService_Notify(t *testing.T) {
	srv := New(WithBootID("boot-1"))
	defer srv.Close()
	var mux sync.Mutex
	var received []*Event[proc.Event]
	done := make(chan struct{}, 2)
	srv.SetListener(func(e *Event[proc.Event]) {
		mux.Lock()
		received = append(received, e)
		mux.Unlock()
		done <- struct{}{}
	})
	srv.Notify(&proc.Event{Type: proc.EventFork, Pid: 2, Parent: 1, Tickets: 1})
	srv.Notify(&proc.Event{Type: proc.EventExit, Pid: 2})
	srv.Notify(nil)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("listener did not receive events")
		}
	}
	mux.Lock()
	defer mux.Unlock()
	if assert.Len(t, received, 2) {
		assert.Equal(t, "boot-1", received[0].Context.BootID)
		assert.Equal(t, "fork", received[0].Context.EventType)
		assert.Equal(t, 1, received[0].Context.Parent)
		assert.Equal(t, proc.EventExit, received[1].Data.Type)
	}
	assert.EqualValues(t, 2, srv.Published())
}

func TestService_NotifyDropsWhenFull(t *testing.T) {
	srv := New(WithQueueConfig(memory.Config{QueueBuffer: 1}))
	srv.Notify(&proc.Event{Type: proc.EventKill, Pid: 5})
	srv.Notify(&proc.Event{Type: proc.EventKill, Pid: 6})
	assert.EqualValues(t, 1, srv.Published())
	assert.EqualValues(t, 1, srv.Dropped())
}

func TestService_Journal(t *testing.T) {
	dir, err := os.MkdirTemp("", "kproc-journal")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	journal, err := fs.NewQueue[Event[proc.Event]](afs.New(), fs.QueueConfig{BasePath: dir, MaxRetries: 1})
	require.NoError(t, err)

	srv := New(WithBootID("boot-2"), WithJournal(journal))
	defer srv.Close()
	done := make(chan struct{}, 1)
	srv.SetListener(func(e *Event[proc.Event]) { done <- struct{}{} })
	srv.Notify(&proc.Event{Type: proc.EventClone, Pid: 4, Parent: 3})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not receive event")
	}

	ctx := context.Background()
	msg, err := journal.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "boot-2", msg.T().Context.BootID)
	assert.Equal(t, proc.EventClone, msg.T().Data.Type)
	assert.NoError(t, msg.Ack())
}
