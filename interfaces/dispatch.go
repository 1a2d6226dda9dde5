package interfaces

import (
	"context"

	"github.com/sendgate/sendgate/dto"
)

// DispatchQueue hands accepted sends to the dispatch workers. Enqueue
// fails loudly on queue unavailability; that failure is what drives the
// admission pipeline's compensating rollback.
type DispatchQueue interface {
	Enqueue(ctx context.Context, job dto.DispatchJob) (jobID string, err error)
}

// EventListener is implemented by queue consumers (the outcome feed).
type EventListener interface {
	Handle(ctx context.Context, baseEvent any) error
	GetEventType() string
}
