// Package event publishes process lifecycle events to listeners through an
// in-memory queue.
package event

import (
	"time"

	"github.com/viant/kproc/model/proc"
)

// Context describes where an event originated
type Context struct {
	BootID    string `json:"bootID"`
	Pid       int    `json:"pid"`
	Parent    int    `json:"parent,omitempty"`
	EventType string `json:"eventType"`
}

// Event wraps a payload with its origin
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// NewLifecycleEvent wraps a kernel lifecycle event
func NewLifecycleEvent(bootID string, e *proc.Event) *Event[proc.Event] {
	return NewEvent(&Context{
		BootID:    bootID,
		Pid:       e.Pid,
		Parent:    e.Parent,
		EventType: string(e.Type),
	}, *e)
}
