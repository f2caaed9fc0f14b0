package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation is what happened to a ledger record.
type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpRefresh Operation = "refresh"
)

// LedgerChangedMessage tells the worker that the ledger was written to.
// It carries only identifiers; the worker reloads the ledger itself.
type LedgerChangedMessage struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Operation Operation `json:"operation"`
	RecordID  string    `json:"recordId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(resource string, op Operation, recordID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ID:        uuid.NewString(),
		Resource:  resource,
		Operation: op,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Operation == "" {
		return nil, fmt.Errorf("ledger change message %s: missing operation", msg.ID)
	}
	return &msg, nil
}
