package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/schoolfund/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OnceOptions configures Once
type OnceOptions struct {
	// Namespace prefixes claim keys so two subscribers each see an event once.
	Namespace string
	// TTL is how long a claim is held. Zero means shared.DefaultIdempotencyTTL.
	TTL time.Duration
}

// Deliveries is a snapshot of how a OnceHandler disposed of events
type Deliveries struct {
	Handled    int64 `json:"handled"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// OnceHandler delivers each event ID to the wrapped handler at most once
// per TTL. A failed delivery gives its claim back so redelivery can retry.
type OnceHandler struct {
	next  shared.EventHandler
	store shared.IdempotencyStore
	opts  OnceOptions
	log   *zap.Logger

	handled, duplicates, failed atomic.Int64
}

// Once wraps next with event ID deduplication backed by store
func Once(next shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger, opts OnceOptions) *OnceHandler {
	if opts.TTL <= 0 {
		opts.TTL = shared.DefaultIdempotencyTTL
	}
	return &OnceHandler{next: next, store: store, opts: opts, log: log}
}

func (h *OnceHandler) EventTypes() []string { return h.next.EventTypes() }

func (h *OnceHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	key := h.opts.Namespace + evt.EventID().String()
	log := h.log.With(
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
	)

	first, err := h.store.MarkProcessed(ctx, key, h.opts.TTL)
	if err != nil {
		// Losing an audit row is worse than writing it twice.
		log.Warn("Event claim failed, delivering anyway", zap.Error(err))
	} else if !first {
		h.duplicates.Add(1)
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.next.Handle(ctx, evt); err != nil {
		h.failed.Add(1)
		if relErr := h.store.Release(ctx, key); relErr != nil {
			log.Warn("Event claim not released", zap.Error(relErr))
		}
		return err
	}
	h.handled.Add(1)
	return nil
}

// Deliveries returns the handler's counters
func (h *OnceHandler) Deliveries() Deliveries {
	return Deliveries{
		Handled:    h.handled.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*OnceHandler)(nil)
