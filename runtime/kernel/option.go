package kernel

import (
	"context"

	"github.com/viant/kproc/service/vm"
)

// Option configures a kernel
type Option func(k *Kernel)

// WithConfig sets the kernel configuration
func WithConfig(config Config) Option {
	return func(k *Kernel) {
		k.config = config
	}
}

// WithPageAllocator sets the kernel stack allocator
func WithPageAllocator(pages PageAllocator) Option {
	return func(k *Kernel) {
		k.pages = pages
	}
}

// WithVM sets the address-space manager
func WithVM(service vm.Service) Option {
	return func(k *Kernel) {
		k.vm = service
	}
}

// WithFiles sets the file handle service
func WithFiles(files Files) Option {
	return func(k *Kernel) {
		k.files = files
	}
}

// WithRand sets the lottery source
func WithRand(rand Rand) Option {
	return func(k *Kernel) {
		k.rand = rand
	}
}

// WithObserver sets the lifecycle event observer
func WithObserver(observer Observer) Option {
	return func(k *Kernel) {
		k.observer = observer
	}
}

// WithFirstRun registers a hook executed once, in the context of the first
// record ever dispatched, before it returns to user mode.
func WithFirstRun(fn func(p *Proc)) Option {
	return func(k *Kernel) {
		k.firstRun = fn
	}
}

// WithContext sets the context handed to records for tracing
func WithContext(ctx context.Context) Option {
	return func(k *Kernel) {
		k.ctx = ctx
	}
}
