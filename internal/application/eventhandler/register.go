package eventhandler

import (
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// InlineSubscriber registers handlers that run before Publish returns.
type InlineSubscriber interface {
	SubscribeSync(eventType shared.EventType, handler shared.EventHandler) error
}

// Bus is the subscription surface Register needs.
type Bus interface {
	shared.EventSubscriber
	InlineSubscriber
}

// ParticipationEventTypes lists every participation mutation.
var ParticipationEventTypes = []shared.EventType{
	shared.EventParticipationJoined,
	shared.EventParticipationTimedOut,
	shared.EventParticipationCreated,
	shared.EventParticipationDeleted,
}

// Register subscribes the audit listener asynchronously and the cache
// invalidator inline. Either may be nil.
func Register(bus Bus, audit *AuditListener, invalidator *ForecastCacheInvalidator) error {
	for _, t := range ParticipationEventTypes {
		if invalidator != nil {
			if err := bus.SubscribeSync(t, invalidator.Handle); err != nil {
				return err
			}
		}
		if audit != nil {
			if err := bus.Subscribe(t, audit.Handle); err != nil {
				return err
			}
		}
	}
	return nil
}
