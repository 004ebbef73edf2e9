package event

import (
	"context"
	"encoding/json"

	"github.com/schoolfund/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditTrailHandler writes every registered fund event to a dedicated
// "audit" logger as one structured record with the full JSON payload.
// With the OTLP log bridge enabled the records are shipped off-host.
type AuditTrailHandler struct {
	codec  *Codec
	logger *zap.Logger
}

// NewAuditTrailHandler creates the handler
func NewAuditTrailHandler(codec *Codec, logger *zap.Logger) *AuditTrailHandler {
	return &AuditTrailHandler{
		codec:  codec,
		logger: logger.Named("audit"),
	}
}

// EventTypes returns the event types the codec knows
func (h *AuditTrailHandler) EventTypes() []string {
	return h.codec.Types()
}

// Handle serializes and logs evt
func (h *AuditTrailHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	payload, err := h.codec.Encode(evt)
	if err != nil {
		return err
	}
	h.logger.Info(evt.EventType(),
		zap.String("event_id", evt.EventID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.String("actor_id", evt.ActorID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
		zap.Any("payload", json.RawMessage(payload)),
	)
	return nil
}

var _ shared.EventHandler = (*AuditTrailHandler)(nil)
