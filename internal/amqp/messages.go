package amqp

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventPurgeCompleted   EventKind = "ledger.purge.completed"
	EventDebtMigrated     EventKind = "ledger.debt.migrated"
	EventCardCancelled    EventKind = "ledger.card.cancelled"
	EventBackupWritten    EventKind = "ledger.backup.written"
	EventBackupStale      EventKind = "ledger.backup.stale"
	EventCapacityExceeded EventKind = "ledger.capacity.exceeded"
	EventRolloverPending  EventKind = "ledger.rollover.pending"
	EventStatementExport  EventKind = "ledger.statement.exported"
)

// LedgerEvent notifies subscribers of a state change that an operator may
// want to act on. Attributes carry small string values only.
type LedgerEvent struct {
	Kind       EventKind         `json:"kind"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func NewLedgerEvent(kind EventKind, attrs map[string]string) *LedgerEvent {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &LedgerEvent{
		Kind:       kind,
		Timestamp:  time.Now(),
		Attributes: attrs,
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
