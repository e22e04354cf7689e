package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"receitas/internal/core"
)

type EventType string

const (
	EventEntryCreated EventType = "entry.created"
	EventEntryUpdated EventType = "entry.updated"
	EventEntryDeleted EventType = "entry.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventEntryCreated, EventEntryUpdated, EventEntryDeleted:
		return true
	default:
		return false
	}
}

// EntryEvent carries a full snapshot of the entry so consumers never need
// to read the store (a deleted entry is gone by the time the event arrives).
type EntryEvent struct {
	Type        EventType `json:"type"`
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryEvent snapshots e for the given event type
func NewEntryEvent(t EventType, e core.Entry) *EntryEvent {
	return &EntryEvent{
		Type:        t,
		ID:          e.ID,
		Description: e.Description,
		Amount:      core.FormatAmount(e.Amount),
		Date:        e.Date.String(),
		Timestamp:   time.Now(),
	}
}

// Entry rebuilds the entry carried by the event.
func (m *EntryEvent) Entry() (core.Entry, error) {
	amount, err := core.ParseAmount(m.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("event amount %q: %w", m.Amount, err)
	}
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("event date: %w", err)
	}
	return core.Entry{ID: m.ID, Description: m.Description, Amount: amount, Date: date}, nil
}

// ToJSON converts the message to JSON bytes
func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventFromJSON creates a message from JSON bytes
func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
