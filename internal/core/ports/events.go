package ports

import "go.trai.ch/wash/internal/core/domain"

//go:generate mockgen -source=events.go -destination=mocks/mock_events.go -package=mocks

// EventSink receives events describing completed work.
type EventSink interface {
	Publish(ev domain.Event)
}
