package event

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
)

// Codec encodes domain events as JSON and decodes them back into their
// concrete type. The set of known types is fixed at construction.
type Codec struct {
	decoders map[string]func() shared.DomainEvent
	types    []string
}

// CodecEntry binds an event type to a constructor for its zero value
type CodecEntry struct {
	Type string
	New  func() shared.DomainEvent
}

// NewCodec builds a codec over entries. A repeated type keeps the last entry.
func NewCodec(entries ...CodecEntry) *Codec {
	c := &Codec{decoders: make(map[string]func() shared.DomainEvent, len(entries))}
	for _, e := range entries {
		c.decoders[e.Type] = e.New
	}
	for t := range c.decoders {
		c.types = append(c.types, t)
	}
	slices.Sort(c.types)
	return c
}

// NewFundCodec knows every event the vault, loan and savings contexts publish
func NewFundCodec() *Codec {
	return NewCodec(
		CodecEntry{vault.EventTypeMovementRecorded, func() shared.DomainEvent { return &vault.MovementRecordedEvent{} }},
		CodecEntry{loan.EventTypeLoanCreated, func() shared.DomainEvent { return &loan.LoanCreatedEvent{} }},
		CodecEntry{loan.EventTypeLoanApproved, func() shared.DomainEvent { return &loan.LoanApprovedEvent{} }},
		CodecEntry{loan.EventTypeLoanRejected, func() shared.DomainEvent { return &loan.LoanRejectedEvent{} }},
		CodecEntry{loan.EventTypeInstallmentPaid, func() shared.DomainEvent { return &loan.InstallmentPaidEvent{} }},
		CodecEntry{loan.EventTypeLoanDelinquent, func() shared.DomainEvent { return &loan.LoanDelinquentEvent{} }},
		CodecEntry{savings.EventTypeBatchVerified, func() shared.DomainEvent { return &savings.BatchVerifiedEvent{} }},
		CodecEntry{savings.EventTypeBatchRejected, func() shared.DomainEvent { return &savings.BatchRejectedEvent{} }},
	)
}

func (c *Codec) Encode(evt shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}
	return data, nil
}

// Decode returns a pointer to the concrete event registered for eventType
func (c *Codec) Decode(eventType string, data []byte) (shared.DomainEvent, error) {
	newEvent, ok := c.decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	evt := newEvent()
	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return evt, nil
}

func (c *Codec) Knows(eventType string) bool {
	_, ok := c.decoders[eventType]
	return ok
}

// Types lists the known event types in sorted order
func (c *Codec) Types() []string {
	return slices.Clone(c.types)
}
