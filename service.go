package kproc

import (
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/kproc/internal/idgen"
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/progress"
	"github.com/viant/kproc/runtime/kernel"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/snapshot/fs"
	"github.com/viant/kproc/service/dao/snapshot/memory"
	"github.com/viant/kproc/service/event"
	mfs "github.com/viant/kproc/service/messaging/fs"
	mmemory "github.com/viant/kproc/service/messaging/memory"
	"github.com/viant/kproc/service/reporter"
	"github.com/viant/kproc/tracing"
)

// Service assembles a kernel with its reporter and lifecycle event stream
type Service struct {
	config        *Config
	initCode      []byte
	kernelOptions []kernel.Option
	snapshots     dao.Service[string, proc.Snapshot]
	events        *event.Service
	runtime       *Runtime
	initErr       error
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.initErr != nil {
		return s.initErr
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	var err error
	bootID := idgen.New()
	kernelConfig := s.config.kernelConfig()
	kernelConfig.InitCode = s.initCode
	if s.events == nil {
		if s.events, err = s.newEventService(bootID); err != nil {
			return err
		}
	}
	tracker := progress.New(bootID, nil)
	kernelOptions := append([]kernel.Option{
		kernel.WithConfig(kernelConfig),
		kernel.WithObserver(observers{tracker, s.events}),
	}, s.kernelOptions...)
	k, err := kernel.New(kernelOptions...)
	if err != nil {
		return err
	}
	s.runtime = &Runtime{
		kernel:   k,
		events:   s.events,
		progress: tracker,
		reporter: reporter.New(k, s.snapshots, bootID, reporter.Config{Interval: s.config.Reporter.Interval}),
	}
	return nil
}

func (s *Service) newEventService(bootID string) (*event.Service, error) {
	queueConfig := mmemory.DefaultConfig()
	queueConfig.QueueBuffer = s.config.Events.QueueBuffer
	options := []event.Option{event.WithBootID(bootID), event.WithQueueConfig(queueConfig)}
	if s.config.Events.JournalURL == "" {
		return event.New(options...), nil
	}
	journal, err := mfs.NewQueue[event.Event[proc.Event]](afs.New(), mfs.QueueConfig{
		BasePath:   s.config.Events.JournalURL,
		MaxRetries: mfs.DefaultConfig().MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event journal: %w", err)
	}
	ret := event.New(append(options, event.WithJournal(journal))...)
	ret.SetListener(nil)
	return ret, nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config.Tracing.ServiceName != "" {
		if err := tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.snapshots != nil {
		return nil
	}
	if s.config.Reporter.URL == "" {
		s.snapshots = memory.New()
		return nil
	}
	snapshots, err := fs.New(s.config.Reporter.URL)
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}
	s.snapshots = snapshots
	return nil
}

// observers fans lifecycle events out to every observer in order
type observers []kernel.Observer

func (o observers) Notify(e *proc.Event) {
	for _, observer := range o {
		observer.Notify(e)
	}
}

// Runtime returns the assembled runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Events returns the lifecycle event service
func (s *Service) Events() *event.Service {
	return s.events
}

// New creates a service
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
