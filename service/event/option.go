package event

import (
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/messaging"
	"github.com/viant/kproc/service/messaging/memory"
)

// Option configures the event service
type Option func(s *Service)

// WithQueueConfig sets the memory queue configuration
func WithQueueConfig(config memory.Config) Option {
	return func(s *Service) {
		s.queueConfig = config
	}
}

// WithBootID tags every lifecycle event with the boot id
func WithBootID(bootID string) Option {
	return func(s *Service) {
		s.bootID = bootID
	}
}

// WithJournal appends every event delivered to the listener to queue
func WithJournal(queue messaging.Queue[Event[proc.Event]]) Option {
	return func(s *Service) {
		s.journal = queue
	}
}
