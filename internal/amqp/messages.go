package amqp

import (
	"encoding/json"
	"time"

	"billtracker/internal/bills"
)

// BillsChangedMessage announces that the bill store was written. It carries
// no bill data; consumers reload the shared blob backend.
type BillsChangedMessage struct {
	Op        string    `json:"op"`
	BillCount int       `json:"bill_count"`
	TypeCount int       `json:"type_count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBillsChangedMessage builds a message from a committed store change.
func NewBillsChangedMessage(c bills.Change) *BillsChangedMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &BillsChangedMessage{
		Op:        c.Op,
		BillCount: c.BillCount,
		TypeCount: c.TypeCount,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *BillsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillsChangedMessageFromJSON(data []byte) (*BillsChangedMessage, error) {
	var msg BillsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
