package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RefreshMessage asks every dashboard instance to drop its cached
// snapshot of Table.
type RefreshMessage struct {
	ID          string    `json:"id"`
	Table       string    `json:"table"`
	Reason      string    `json:"reason,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message with a fresh id.
func NewRefreshMessage(table, reason, requestedBy string) *RefreshMessage {
	return &RefreshMessage{
		ID:          uuid.NewString(),
		Table:       table,
		Reason:      reason,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	}
}

// Validate checks the fields a consumer relies on.
func (m *RefreshMessage) Validate() error {
	if strings.TrimSpace(m.Table) == "" {
		return errors.New("refresh message without table")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes and validates a message.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
