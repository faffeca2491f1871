package kproc

import (
	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/runtime/kernel"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/event"
	"github.com/viant/kproc/service/vm"
	"github.com/viant/kproc/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the process core service
type Option func(s *Service)

// WithConfig sets the service configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithInitCode sets the image loaded at address zero of the first record
func WithInitCode(code []byte) Option {
	return func(s *Service) {
		s.initCode = code
	}
}

// WithVM sets the address-space manager
func WithVM(service vm.Service) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, kernel.WithVM(service))
	}
}

// WithFiles sets the file handle service
func WithFiles(files kernel.Files) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, kernel.WithFiles(files))
	}
}

// WithPageAllocator sets the kernel stack allocator
func WithPageAllocator(pages kernel.PageAllocator) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, kernel.WithPageAllocator(pages))
	}
}

// WithRand sets the lottery source
func WithRand(rand kernel.Rand) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, kernel.WithRand(rand))
	}
}

// WithFirstRun registers the hook run once by the first dispatched record
func WithFirstRun(fn func(p *kernel.Proc)) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, kernel.WithFirstRun(fn))
	}
}

// WithSnapshotDAO sets the statistics snapshot store
func WithSnapshotDAO(snapshots dao.Service[string, proc.Snapshot]) Option {
	return func(s *Service) {
		s.snapshots = snapshots
	}
}

// WithEventService sets the lifecycle event service
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.initErr = err
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.initErr = err
		}
	}
}
