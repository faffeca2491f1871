package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/criteria"
)

// Service implements an in-memory, thread-safe snapshot store. Snapshots
// are copied on the way in and out so callers never share state.
type Service struct {
	snapshots map[string]*proc.Snapshot
	mux       sync.RWMutex
}

var _ dao.Service[string, proc.Snapshot] = (*Service)(nil)

func (s *Service) Save(_ context.Context, snapshot *proc.Snapshot) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if snapshot.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.snapshots[snapshot.ID] = clone(snapshot)
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*proc.Snapshot, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	snapshot, ok := s.snapshots[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return clone(snapshot), nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.snapshots[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.snapshots, id)
	return nil
}

// List returns matching snapshots ordered by the time they were taken
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*proc.Snapshot, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*proc.Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		if !criteria.MatchSnapshot(snapshot, parameters) {
			continue
		}
		out = append(out, clone(snapshot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

// New creates an empty store
func New() *Service {
	return &Service{snapshots: map[string]*proc.Snapshot{}}
}

func clone(snapshot *proc.Snapshot) *proc.Snapshot {
	ret := *snapshot
	ret.Stats = append([]proc.Stat(nil), snapshot.Stats...)
	return &ret
}
