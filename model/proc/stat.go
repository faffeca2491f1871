package proc

import "time"

// Stat is the per-slot scheduling statistic reported by the process table.
type Stat struct {
	Pid     int  `json:"pid" yaml:"pid"`
	InUse   bool `json:"inUse" yaml:"inUse"`
	Tickets int  `json:"tickets" yaml:"tickets"`
	Ticks   int  `json:"ticks" yaml:"ticks"`
}

// Snapshot is a point-in-time copy of all slot statistics
type Snapshot struct {
	ID      string    `json:"id"`
	BootID  string    `json:"bootId"`
	TakenAt time.Time `json:"takenAt"`
	Stats   []Stat    `json:"stats"`
}

// Lookup returns the statistic for the supplied pid
func (s *Snapshot) Lookup(pid int) (Stat, bool) {
	for _, stat := range s.Stats {
		if stat.InUse && stat.Pid == pid {
			return stat, true
		}
	}
	return Stat{}, false
}

// EventType represents a lifecycle event kind
type EventType string

const (
	EventFork    EventType = "fork"
	EventClone   EventType = "clone"
	EventExit    EventType = "exit"
	EventReap    EventType = "reap"
	EventJoin    EventType = "join"
	EventKill    EventType = "kill"
	EventTickets EventType = "tickets"
)

// Event describes a lifecycle change of a record
type Event struct {
	Type    EventType `json:"type"`
	Pid     int       `json:"pid"`
	Parent  int       `json:"parent,omitempty"`
	Tickets int       `json:"tickets,omitempty"`
}
