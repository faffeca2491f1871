package kproc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/kproc/runtime/kernel"
	"github.com/viant/kproc/service/messaging/memory"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the process core configuration.
// Sections left out of a document keep their defaults.
type Config struct {
	Kernel    KernelConfig    `json:"kernel" yaml:"kernel"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Reporter  ReporterConfig  `json:"reporter" yaml:"reporter"`
	Events    EventsConfig    `json:"events" yaml:"events"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
}

// KernelConfig sizes the process table and its collaborators
type KernelConfig struct {
	MaxProcs        int    `json:"maxProcs" yaml:"maxProcs"`
	CPUs            int    `json:"cpus" yaml:"cpus"`
	MaxFiles        int    `json:"maxFiles" yaml:"maxFiles"`
	PageSize        int    `json:"pageSize" yaml:"pageSize"`
	KernelStackSize int    `json:"kernelStackSize" yaml:"kernelStackSize"`
	MemoryPages     int    `json:"memoryPages" yaml:"memoryPages"`
	DefaultTickets  int    `json:"defaultTickets" yaml:"defaultTickets"`
	MaxTickets      int    `json:"maxTickets" yaml:"maxTickets"`
	RootDir         string `json:"rootDir" yaml:"rootDir"`
}

// SchedulerConfig tunes the lottery dispatch loops
type SchedulerConfig struct {
	Seed        int64         `json:"seed" yaml:"seed"`
	Quantum     time.Duration `json:"quantum" yaml:"quantum"`
	IdleBackoff time.Duration `json:"idleBackoff" yaml:"idleBackoff"`
}

// ReporterConfig controls statistics snapshots
type ReporterConfig struct {
	// Interval between snapshots, zero disables the reporter loop.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// URL of the snapshot store, empty keeps snapshots in memory.
	URL string `json:"url" yaml:"url"`
}

// EventsConfig controls the lifecycle event stream
type EventsConfig struct {
	// QueueBuffer bounds undelivered events; further events are dropped.
	QueueBuffer int `json:"queueBuffer" yaml:"queueBuffer"`
	// JournalURL, when set, persists every delivered event.
	JournalURL string `json:"journalURL" yaml:"journalURL"`
}

// TracingConfig enables the stdout span exporter when ServiceName is set
type TracingConfig struct {
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	OutputFile     string `json:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns a Config populated with the kernel defaults.
func DefaultConfig() *Config {
	k := kernel.DefaultConfig()
	return &Config{
		Kernel: KernelConfig{
			MaxProcs:        k.MaxProcs,
			CPUs:            k.CPUs,
			MaxFiles:        k.MaxFiles,
			PageSize:        k.PageSize,
			KernelStackSize: k.KernelStackSize,
			MemoryPages:     k.MemoryPages,
			DefaultTickets:  k.DefaultTickets,
			MaxTickets:      k.MaxTickets,
			RootDir:         k.RootDir,
		},
		Scheduler: SchedulerConfig{
			Seed:        k.Seed,
			Quantum:     k.Quantum,
			IdleBackoff: k.IdleBackoff,
		},
		Reporter: ReporterConfig{
			Interval: time.Second,
		},
		Events: EventsConfig{
			QueueBuffer: memory.DefaultConfig().QueueBuffer,
		},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	kc := c.kernelConfig()
	var errs []error
	if err := kc.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Reporter.Interval < 0 {
		errs = append(errs, fmt.Errorf("reporter.interval must not be negative"))
	}
	if c.Events.QueueBuffer <= 0 {
		errs = append(errs, fmt.Errorf("events.queueBuffer must be > 0"))
	}
	if c.Tracing.OutputFile != "" && c.Tracing.ServiceName == "" {
		errs = append(errs, fmt.Errorf("tracing.serviceName is required with tracing.outputFile"))
	}
	return errors.Join(errs...)
}

// LoadConfig downloads a YAML (or JSON) document and decodes it over the defaults
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}

func (c *Config) kernelConfig() kernel.Config {
	ret := kernel.DefaultConfig()
	ret.MaxProcs = c.Kernel.MaxProcs
	ret.CPUs = c.Kernel.CPUs
	ret.MaxFiles = c.Kernel.MaxFiles
	ret.PageSize = c.Kernel.PageSize
	ret.KernelStackSize = c.Kernel.KernelStackSize
	ret.MemoryPages = c.Kernel.MemoryPages
	ret.DefaultTickets = c.Kernel.DefaultTickets
	ret.MaxTickets = c.Kernel.MaxTickets
	ret.RootDir = c.Kernel.RootDir
	ret.Seed = c.Scheduler.Seed
	ret.Quantum = c.Scheduler.Quantum
	ret.IdleBackoff = c.Scheduler.IdleBackoff
	return ret
}
