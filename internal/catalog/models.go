package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is a bookable salon treatment. Not stock-tracked.
type Service struct {
	ID          int64           `json:"-"`
	UID         string          `json:"uid"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	DurationMin *int            `json:"duration_min,omitempty"`
	Category    string          `json:"category,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Good is a physical retail item with an on-hand stock count.
type Good struct {
	ID          int64           `json:"-"`
	UID         string          `json:"uid"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ServiceSummary is the public listing shape: no internal ids, no active
// flag (only active services are listed).
type ServiceSummary struct {
	UID         string          `json:"uid"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	DurationMin *int            `json:"duration_min,omitempty"`
}

// GroupedServices maps category -> services, category "Other" when unset,
// ordered by price within each group.
type GroupedServices map[string][]ServiceSummary

type ServiceInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	DurationMin *int            `json:"duration_min"`
	Category    string          `json:"category"`
	Active      *bool           `json:"active"`
}

type GoodInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
	Category    string          `json:"category"`
	Active      *bool           `json:"active"`
}
