package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/naileastudio/salonpos/internal/kafka"
)

// Store persists orders and applies transitions atomically: the status
// check, every stock mutation and the status write land in one committed
// unit or not at all.
type Store interface {
	CreateOrder(ctx context.Context, kind Kind, in CreateInput) (*Order, error)
	GetOrder(ctx context.Context, kind Kind, uid string) (*Order, error)
	ListOrders(ctx context.Context, kind Kind) ([]Order, error)

	// ApplyTransition re-checks inside its transaction that the order is
	// still in `from` (ErrStatusConflict otherwise), validates and applies
	// the stock adjustments, then writes the new status. A nil note keeps
	// the stored one.
	ApplyTransition(ctx context.Context, kind Kind, uid string, from, to Status, note *string, adjust []StockAdjustment) (*Order, error)
}

var (
	ErrEntryNotFound = errors.New("catalog entry not found")
	ErrEntryInactive = errors.New("catalog entry not active")
)

type Producers struct {
	Created   *kafkax.Producer
	Completed *kafkax.Producer
	Cancelled *kafkax.Producer
}

// Engine runs the order lifecycle for both kinds. Service orders walk the
// same state machine but none of their transitions carry stock adjustments.
type Engine struct {
	Store       Store
	Producers   Producers
	ServiceName string
}

func (e *Engine) Create(ctx context.Context, kind Kind, in CreateInput) (*Order, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown order kind %q", kind)
	}
	if in.Payment == "" {
		in.Payment = PaymentCash
	}
	if !in.Payment.Valid() {
		return nil, fmt.Errorf("unknown payment method %q", in.Payment)
	}
	if len(in.Lines) == 0 {
		return nil, errors.New("order needs at least one line")
	}
	for _, l := range in.Lines {
		if l.Qty <= 0 {
			return nil, fmt.Errorf("invalid qty %d for entry %s", l.Qty, l.EntryUID)
		}
	}

	// Stock is untouched here: a PENDING order has reserved nothing and
	// can always be cancelled. Inventory moves on PENDING -> SELESAI only.
	ord, err := e.Store.CreateOrder(ctx, kind, in)
	if err != nil {
		return nil, err
	}

	lines := make([]LineQty, 0, len(ord.Lines))
	for _, l := range ord.Lines {
		lines = append(lines, LineQty{EntryUID: l.EntryUID, Qty: l.Qty})
	}
	e.publish(e.Producers.Created, EventOrderCreated, ord.UID, OrderCreatedPayload{
		OrderUID:   ord.UID,
		Kind:       kind,
		CustomerID: ord.CustomerID,
		Total:      ord.Total,
		Lines:      lines,
	})
	return ord, nil
}

// Transition validates the requested status change against the order's
// current stored status and applies it together with its stock effect. When
// a concurrent caller moved the order first, the whole plan is rebuilt from
// a fresh read and retried once before giving up.
func (e *Engine) Transition(ctx context.Context, kind Kind, uid string, to Status, note *string) (*Order, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown order kind %q", kind)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q", to)
	}

	for attempt := 0; ; attempt++ {
		ord, err := e.Store.GetOrder(ctx, kind, uid)
		if err != nil {
			return nil, err
		}
		if !CanTransition(ord.Status, to) {
			return nil, &InvalidTransitionError{From: ord.Status, To: to}
		}

		updated, err := e.Store.ApplyTransition(ctx, kind, uid, ord.Status, to, note, planAdjustments(kind, ord, to))
		if errors.Is(err, ErrStatusConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}

		switch to {
		case StatusSelesai:
			e.publish(e.Producers.Completed, EventOrderCompleted, uid, OrderStatusPayload{OrderUID: uid, Kind: kind, Status: to})
		case StatusBatal:
			e.publish(e.Producers.Cancelled, EventOrderCancelled, uid, OrderStatusPayload{OrderUID: uid, Kind: kind, Status: to})
		}
		return updated, nil
	}
}

func (e *Engine) Get(ctx context.Context, kind Kind, uid string) (*Order, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown order kind %q", kind)
	}
	return e.Store.GetOrder(ctx, kind, uid)
}

func (e *Engine) List(ctx context.Context, kind Kind) ([]Order, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown order kind %q", kind)
	}
	return e.Store.ListOrders(ctx, kind)
}

// planAdjustments derives the stock deltas a transition carries. Completion
// consumes stock, leaving SELESAI gives it back, everything else is a pure
// status change.
func planAdjustments(kind Kind, ord *Order, to Status) []StockAdjustment {
	if !kind.TracksStock() {
		return nil
	}
	var sign int
	switch {
	case ord.Status == StatusPending && to == StatusSelesai:
		sign = -1
	case ord.Status == StatusSelesai && to == StatusBatal:
		sign = +1
	default:
		return nil
	}
	out := make([]StockAdjustment, 0, len(ord.Lines))
	for _, l := range ord.Lines {
		out = append(out, StockAdjustment{EntryID: l.EntryID, Delta: sign * l.Qty})
	}
	return out
}

func (e *Engine) publish(p *kafkax.Producer, eventType, orderUID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.ServiceName,
		CorrelationID: orderUID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderUID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
