// Package events carries ledger notifications to real-time consumers.
// Delivery is best-effort: the database stays the source of truth and a
// dropped event only delays a client refresh.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated         = "order.created"
	OrderItemAdded       = "order.item_added"
	OrderItemRemoved     = "order.item_removed"
	OrderItemUpdated     = "order.item_updated"
	OrderStatusChanged   = "order.status_changed"
	TableStatusChanged   = "table.status_changed"
	PaymentRecorded      = "payment.recorded"
	CashSessionOpened    = "cash_session.opened"
	CashSessionClosed    = "cash_session.closed"
	CashMovementRecorded = "cash_movement.recorded"
	RatingCreated        = "rating.created"
	ChatMessage          = "chat.message"
)

type Event struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	CompanyID  uint        `json:"company_id"`
	OrderID    uint        `json:"order_id,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// New stamps a fresh id and the current UTC time. orderID may be zero for
// tenant-wide events.
func New(name string, companyID, orderID uint, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		CompanyID:  companyID,
		OrderID:    orderID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Emitter must not block the caller on network I/O for long and must never
// be called while a database transaction is open.
type Emitter interface {
	Emit(Event)
}

type Nop struct{}

func (Nop) Emit(Event) {}

// Multi fans one event out to every sink in order.
type Multi []Emitter

func (m Multi) Emit(e Event) {
	for _, sink := range m {
		sink.Emit(e)
	}
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names lists the names of the recorded events in emission order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Name)
	}
	return names
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
