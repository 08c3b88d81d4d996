package domain

import "time"

// Priority orders freshness checks in the update queue.
type Priority uint8

const (
	// PriorityBackground is used for checks issued by startup and rescans.
	PriorityBackground Priority = iota
	// PriorityUser is used for checks the user asked for explicitly.
	PriorityUser
)

func (p Priority) String() string {
	if p == PriorityUser {
		return "user"
	}
	return "background"
}

// QueueItem is one pending freshness check for a project.
type QueueItem struct {
	Project      ProjectID
	Name         string
	LockfilePath string
	Dependencies []Dependency
	Priority     Priority
	// Force bypasses valid cache entries.
	Force      bool
	EnqueuedAt time.Time
}

// NewQueueItem builds a queue item from the project's current dependency list.
func NewQueueItem(p *Project, priority Priority, force bool, now time.Time) *QueueItem {
	deps := make([]Dependency, len(p.Dependencies))
	copy(deps, p.Dependencies)
	return &QueueItem{
		Project:      p.ID,
		Name:         p.Name,
		LockfilePath: p.LockfilePath,
		Dependencies: deps,
		Priority:     priority,
		Force:        force,
		EnqueuedAt:   now,
	}
}

// EnqueueResult reports what the queue did with an enqueue request.
type EnqueueResult uint8

const (
	// Queued means a new item was appended.
	Queued EnqueueResult = iota
	// Promoted means a waiting background item was moved into the user class.
	Promoted
	// InFlight means a check for the project is already running.
	InFlight
	// Duplicate means an item with the same or higher priority is already waiting.
	Duplicate
)

func (r EnqueueResult) String() string {
	switch r {
	case Promoted:
		return "promoted"
	case InFlight:
		return "in-flight"
	case Duplicate:
		return "duplicate"
	default:
		return "queued"
	}
}
