package kproc_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/kproc"
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/runtime/kernel"
	"github.com/viant/kproc/service/event"
	mfs "github.com/viant/kproc/service/messaging/fs"
)

func testConfig() *kproc.Config {
	cfg := kproc.DefaultConfig()
	cfg.Kernel.MaxProcs = 16
	cfg.Kernel.MemoryPages = 128
	cfg.Scheduler.Seed = 7
	cfg.Scheduler.Quantum = 0
	cfg.Reporter.Interval = 0
	return cfg
}

type parkKey struct{}

func park(p *kernel.Proc) {
	lk := kernel.NewSpinlock("park")
	p.Acquire(lk)
	for {
		p.Sleep(parkKey{}, lk)
	}
}

func TestService_Runtime(t *testing.T) {
	testCases := []struct {
		name     string
		children int
		useFS    bool
		journal  bool
	}{
		{name: "memory snapshots", children: 3},
		{name: "fs snapshots", children: 2, useFS: true},
		{name: "event journal", children: 2, journal: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			if tc.useFS {
				dir, err := os.MkdirTemp("", "kproc-snapshots")
				require.NoError(t, err)
				defer os.RemoveAll(dir)
				cfg.Reporter.URL = dir
			}
			if tc.journal {
				dir, err := os.MkdirTemp("", "kproc-journal")
				require.NoError(t, err)
				defer os.RemoveAll(dir)
				cfg.Events.JournalURL = dir
			}
			srv, err := kproc.New(kproc.WithConfig(cfg))
			require.NoError(t, err)

			var mux sync.Mutex
			counts := map[proc.EventType]int{}
			srv.Events().SetListener(func(e *event.Event[proc.Event]) {
				mux.Lock()
				defer mux.Unlock()
				counts[e.Data.Type]++
			})

			ctx := context.Background()
			rt := srv.Runtime()
			require.NoError(t, rt.Start(ctx))
			defer rt.Shutdown(ctx)

			reaped := make(chan []int, 1)
			_, err = rt.Boot(func(p *kernel.Proc) {
				for i := 0; i < tc.children; i++ {
					_, err := p.Fork(func(c *kernel.Proc) { c.Exit() })
					assert.NoError(t, err)
				}
				var pids []int
				for {
					pid, err := p.Wait()
					if err != nil {
						break
					}
					pids = append(pids, pid)
				}
				reaped <- pids
				park(p)
			})
			require.NoError(t, err)

			select {
			case pids := <-reaped:
				assert.Len(t, pids, tc.children)
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for children")
			}

			snapshot, err := rt.Capture(ctx)
			require.NoError(t, err)
			assert.Equal(t, rt.BootID(), snapshot.BootID)
			stat, ok := snapshot.Lookup(1)
			assert.True(t, ok)
			assert.Equal(t, 1, stat.Tickets)
			assert.Greater(t, stat.Ticks, 0)

			latest, err := rt.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, snapshot.ID, latest.ID)

			counters := rt.Progress()
			assert.Equal(t, tc.children, counters.Forked)
			assert.Equal(t, tc.children, counters.Reaped)
			assert.Equal(t, 0, counters.Live())

			assert.Eventually(t, func() bool {
				mux.Lock()
				defer mux.Unlock()
				return counts[proc.EventFork] == tc.children && counts[proc.EventReap] == tc.children
			}, 5*time.Second, 5*time.Millisecond)

			assert.NoError(t, rt.Shutdown(ctx))
			if tc.journal {
				journal, err := mfs.NewQueue[event.Event[proc.Event]](afs.New(), mfs.QueueConfig{BasePath: cfg.Events.JournalURL})
				require.NoError(t, err)
				pending, err := journal.Len(ctx, mfs.MessageStatePending)
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, pending, 2*tc.children)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Kernel.CPUs = 0
	cfg.Reporter.Interval = -time.Second
	_, err := kproc.New(kproc.WithConfig(cfg))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		hasErr  bool
		expect  func(t *testing.T, cfg *kproc.Config)
	}{
		{
			name: "partial document keeps defaults",
			content: `kernel:
  cpus: 4
  maxProcs: 32
scheduler:
  seed: 11
  quantum: 5ms
reporter:
  interval: 250ms
`,
			expect: func(t *testing.T, cfg *kproc.Config) {
				assert.Equal(t, 4, cfg.Kernel.CPUs)
				assert.Equal(t, 32, cfg.Kernel.MaxProcs)
				assert.Equal(t, 16, cfg.Kernel.MaxFiles)
				assert.Equal(t, int64(11), cfg.Scheduler.Seed)
				assert.Equal(t, 5*time.Millisecond, cfg.Scheduler.Quantum)
				assert.Equal(t, 250*time.Millisecond, cfg.Reporter.Interval)
				assert.Equal(t, "/", cfg.Kernel.RootDir)
			},
		},
		{
			name:    "invalid value",
			content: "kernel:\n  defaultTickets: 0\n",
			hasErr:  true,
		},
		{
			name:    "malformed document",
			content: "kernel: [",
			hasErr:  true,
		},
	}

	dir, err := os.MkdirTemp("", "kproc-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fs := afs.New()
	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			location := filepath.Join(dir, string(rune('a'+i))+".yaml")
			require.NoError(t, os.WriteFile(location, []byte(tc.content), 0o644))
			cfg, err := kproc.LoadConfig(context.Background(), fs, location)
			if tc.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.expect(t, cfg)
		})
	}
}
