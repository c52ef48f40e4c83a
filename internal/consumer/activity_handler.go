package consumer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/skozubek/startsnap/internal/observability"
)

// ActivityRecorder projects an event into activity log rows and reports how many were new.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, eventID, eventType string, payload []byte) (int, error)
}

// ActivityHandler turns consumed domain events into activity log entries.
type ActivityHandler struct {
	recorder ActivityRecorder
	logger   logrus.FieldLogger
}

// NewActivityHandler constructs a handler backed by recorder.
func NewActivityHandler(recorder ActivityRecorder, logger logrus.FieldLogger) *ActivityHandler {
	return &ActivityHandler{recorder: recorder, logger: logger.WithField("component", "activity_handler")}
}

// Handle records the activity for msg. Redelivered events insert nothing.
func (h *ActivityHandler) Handle(ctx context.Context, msg Message) error {
	inserted, err := h.recorder.RecordActivity(ctx, msg.EventID, msg.EventType, msg.Payload)
	if err != nil {
		return fmt.Errorf("record activity for %s %s: %w", msg.EventType, msg.EventID, err)
	}
	if inserted > 0 {
		observability.RecordActivityProjected(msg.Timestamp)
	}
	h.logger.WithFields(logrus.Fields{
		"event_type": msg.EventType,
		"event_id":   msg.EventID,
		"inserted":   inserted,
	}).Debug("activity projected")
	return nil
}
