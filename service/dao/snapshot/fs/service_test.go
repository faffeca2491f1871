package fs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "kproc-snapshots")
	if !assert.NoError(t, err) {
		return
	}
	defer os.RemoveAll(dir)

	srv, err := New(dir)
	if !assert.NoError(t, err) {
		return
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	snapshots := []*proc.Snapshot{
		{ID: "s2", BootID: "boot-1", TakenAt: now.Add(time.Second), Stats: []proc.Stat{{Pid: 1, InUse: true, Tickets: 1, Ticks: 4}}},
		{ID: "s1", BootID: "boot-1", TakenAt: now, Stats: []proc.Stat{{Pid: 1, InUse: true, Tickets: 1, Ticks: 2}}},
		{ID: "s3", BootID: "boot-2", TakenAt: now, Stats: []proc.Stat{{Pid: 9, InUse: true, Tickets: 5}}},
	}
	for _, snapshot := range snapshots {
		assert.NoError(t, srv.Save(ctx, snapshot))
	}

	loaded, err := srv.Load(ctx, "s2")
	assert.NoError(t, err)
	assert.Equal(t, "boot-1", loaded.BootID)
	assert.True(t, now.Add(time.Second).Equal(loaded.TakenAt))
	assert.Equal(t, snapshots[0].Stats, loaded.Stats)

	listed, err := srv.List(ctx, dao.NewParameter(dao.ParamBootID, "boot-1"))
	assert.NoError(t, err)
	if assert.Len(t, listed, 2) {
		assert.Equal(t, "s1", listed[0].ID)
		assert.Equal(t, "s2", listed[1].ID)
	}
	listed, err = srv.List(ctx, dao.NewParameter(dao.ParamPid, "9"))
	assert.NoError(t, err)
	assert.Len(t, listed, 1)

	assert.NoError(t, srv.Delete(ctx, "s1"))
	_, err = srv.Load(ctx, "s1")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
	assert.True(t, errors.Is(srv.Save(ctx, nil), dao.ErrNilEntity))
}
