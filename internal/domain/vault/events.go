package vault

import (
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// EventTypeMovementRecorded is published after a vault movement commits
const EventTypeMovementRecorded = "VaultMovementRecorded"

// AggregateTypeVault names the vault aggregate in events
const AggregateTypeVault = "Vault"

// MovementRecordedEvent carries one committed vault audit row
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	TransactionID      uuid.UUID  `json:"transaction_id"`
	Kind               string     `json:"kind"`
	Domain             Domain     `json:"domain"`
	SourceVaultID      *uuid.UUID `json:"source_vault_id,omitempty"`
	DestinationVaultID *uuid.UUID `json:"destination_vault_id,omitempty"`
	Amount             int64      `json:"amount"`
}

// NewMovementRecordedEvent builds the event for an audit row
func NewMovementRecordedEvent(tx *Transaction) *MovementRecordedEvent {
	aggID := uuid.Nil
	if tx.SourceVaultID != nil {
		aggID = *tx.SourceVaultID
	} else if tx.DestinationVaultID != nil {
		aggID = *tx.DestinationVaultID
	}
	return &MovementRecordedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMovementRecorded, AggregateTypeVault, aggID, tx.ActorID),
		TransactionID:      tx.ID,
		Kind:               tx.Kind.String(),
		Domain:             tx.Kind.Domain(),
		SourceVaultID:      tx.SourceVaultID,
		DestinationVaultID: tx.DestinationVaultID,
		Amount:             tx.Amount,
	}
}
