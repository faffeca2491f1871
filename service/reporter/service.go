// Package reporter periodically captures the process table's scheduling
// statistics and stores them as snapshots.
package reporter

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/internal/idgen"
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/tracing"
)

// Source supplies per-slot statistics
type Source interface {
	Stats() ([]proc.Stat, error)
}

// Config represents reporter configuration
type Config struct {
	// Interval is how often statistics are captured, zero disables the loop.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// DefaultConfig returns the default reporter configuration
func DefaultConfig() Config {
	return Config{
		Interval: time.Second,
	}
}

// Service captures statistics snapshots
type Service struct {
	config     Config
	bootID     string
	source     Source
	snapshots  dao.Service[string, proc.Snapshot]
	shutdownCh chan struct{}
}

// New creates a reporter for one boot of the kernel
func New(source Source, snapshots dao.Service[string, proc.Snapshot], bootID string, config Config) *Service {
	return &Service{
		config:     config,
		bootID:     bootID,
		source:     source,
		snapshots:  snapshots,
		shutdownCh: make(chan struct{}),
	}
}

// BootID returns the boot the snapshots are tagged with
func (s *Service) BootID() string {
	return s.bootID
}

// Start runs the capture loop until ctx is cancelled or Shutdown is called
func (s *Service) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			if _, err := s.Capture(ctx); err != nil {
				log.Printf("reporter: failed to capture statistics: %v", err)
			}
		}
	}
}

// Shutdown stops the capture loop
func (s *Service) Shutdown() {
	select {
	case <-s.shutdownCh:
	default:
		close(s.shutdownCh)
	}
}

// Capture takes and stores one snapshot
func (s *Service) Capture(ctx context.Context) (snapshot *proc.Snapshot, err error) {
	ctx, span := tracing.StartSpan(ctx, "reporter.capture", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	stats, err := s.source.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}
	snapshot = &proc.Snapshot{
		ID:      idgen.New(),
		BootID:  s.bootID,
		TakenAt: clock.Now(),
		Stats:   stats,
	}
	span.WithAttributes(map[string]string{"snapshot.id": snapshot.ID, "boot.id": s.bootID})
	if err = s.snapshots.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	return snapshot, nil
}

// Latest returns the most recent snapshot of this boot
func (s *Service) Latest(ctx context.Context) (*proc.Snapshot, error) {
	snapshots, err := s.snapshots.List(ctx, dao.NewParameter(dao.ParamBootID, s.bootID))
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, dao.ErrNotFound
	}
	return snapshots[len(snapshots)-1], nil
}
