package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/events"
	"github.com/bbn-music/community-bot/internal/observability"
)

// StartAuditWorker subscribes a structured-log audit trail to every event type.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			metrics.RecordEvent(string(event.Type))
			logger.Info("audit",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.String("subject_id", event.SubjectID),
				zap.String("actor_id", event.ActorID),
				zap.Any("payload", event.Payload))
			return nil
		})
	}
}
