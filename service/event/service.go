package event

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/messaging"
	"github.com/viant/kproc/service/messaging/memory"
)

// dropLogEvery limits how often dropped events are logged
const dropLogEvery = 100

// Service carries kernel lifecycle events to a single listener. It
// implements the kernel observer: Notify never blocks, events offered to a
// full queue are dropped and counted.
type Service struct {
	bootID      string
	queueConfig memory.Config
	queue       *memory.Queue[Event[proc.Event]]
	publisher   *Publisher[proc.Event]
	listener    *Listener[proc.Event]
	journal     messaging.Queue[Event[proc.Event]]
	mux         sync.Mutex
	published   atomic.Int64
}

// New creates an event service
func New(opts ...Option) *Service {
	ret := &Service{queueConfig: memory.DefaultConfig()}
	for _, opt := range opts {
		opt(ret)
	}
	ret.queue = memory.NewQueue[Event[proc.Event]](ret.queueConfig)
	ret.publisher = NewPublisher[proc.Event](ret.queue)
	return ret
}

// Notify publishes a lifecycle event without blocking
func (s *Service) Notify(e *proc.Event) {
	if e == nil {
		return
	}
	if s.publisher.Offer(NewLifecycleEvent(s.bootID, e)) {
		s.published.Add(1)
		return
	}
	if dropped := s.queue.Dropped(); dropped%dropLogEvery == 1 {
		log.Printf("event: queue full, %d event(s) dropped", dropped)
	}
}

// SetListener replaces the listener receiving lifecycle events
func (s *Service) SetListener(handler func(*Event[proc.Event])) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.listener != nil {
		s.listener.Stop()
	}
	if s.journal != nil {
		handler = s.journaled(handler)
	}
	s.listener = NewListener[proc.Event](s.publisher, handler)
	s.listener.Start()
}

// journaled appends every delivered event to the journal before handling it
func (s *Service) journaled(handler func(*Event[proc.Event])) func(*Event[proc.Event]) {
	return func(e *Event[proc.Event]) {
		if err := s.journal.Publish(context.Background(), e); err != nil {
			log.Printf("event: failed to journal %v of pid %d: %v", e.Data.Type, e.Data.Pid, err)
		}
		if handler != nil {
			handler(e)
		}
	}
}

// Publisher returns the lifecycle event publisher
func (s *Service) Publisher() *Publisher[proc.Event] {
	return s.publisher
}

// Published returns the number of events accepted by the queue
func (s *Service) Published() int64 {
	return s.published.Load()
}

// Dropped returns the number of events lost to a full queue
func (s *Service) Dropped() int64 {
	return s.queue.Dropped()
}

// Close stops the listener
func (s *Service) Close() {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.listener != nil {
		s.listener.Stop()
		s.listener = nil
	}
}
