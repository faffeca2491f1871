package reporter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/internal/idgen"
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/snapshot/memory"
)

type staticSource struct {
	stats []proc.Stat
	err   error
	calls int
}

func (s *staticSource) Stats() ([]proc.Stat, error) {
	s.calls++
	return s.stats, s.err
}

func TestService_Capture(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seq := 0
	newID := idgen.NewFunc
	clock.NowFunc = func() time.Time { return base.Add(time.Duration(seq) * time.Second) }
	idgen.NewFunc = func() string { seq++; return fmt.Sprintf("snap-%d", seq) }
	defer func() {
		clock.NowFunc = time.Now
		idgen.NewFunc = newID
	}()

	ctx := context.Background()
	store := memory.New()
	source := &staticSource{stats: []proc.Stat{{Pid: 1, InUse: true, Tickets: 2, Ticks: 10}}}
	srv := New(source, store, "boot-a", DefaultConfig())

	_, err := srv.Latest(ctx)
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	first, err := srv.Capture(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "snap-1", first.ID)
	assert.Equal(t, "boot-a", first.BootID)
	assert.Equal(t, base.Add(time.Second), first.TakenAt)

	source.stats = []proc.Stat{{Pid: 1, InUse: true, Tickets: 2, Ticks: 30}}
	_, err = srv.Capture(ctx)
	assert.NoError(t, err)

	latest, err := srv.Latest(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "snap-2", latest.ID)
	stat, ok := latest.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, 30, stat.Ticks)

	source.err = errors.New("halted")
	_, err = srv.Capture(ctx)
	assert.Error(t, err)
}

func TestService_Start(t *testing.T) {
	store := memory.New()
	source := &staticSource{stats: []proc.Stat{{Pid: 1, InUse: true, Tickets: 1}}}
	srv := New(source, store, "boot-b", Config{Interval: time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- srv.Start(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	srv.Shutdown()
	srv.Shutdown()
	assert.NoError(t, <-done)

	listed, err := store.List(context.Background(), dao.NewParameter(dao.ParamBootID, "boot-b"))
	assert.NoError(t, err)
	assert.NotEmpty(t, listed)
}
