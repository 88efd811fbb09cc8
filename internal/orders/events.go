package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCompleted = "OrderCompleted"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order uid
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	EntryUID string `json:"entry_uid"`
	Qty      int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderUID   string          `json:"order_uid"`
	Kind       Kind            `json:"kind"`
	CustomerID int64           `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Lines      []LineQty       `json:"lines"`
}

type OrderStatusPayload struct {
	OrderUID string `json:"order_uid"`
	Kind     Kind   `json:"kind"`
	Status   Status `json:"status"`
}
