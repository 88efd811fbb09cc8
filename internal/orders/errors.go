package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrCustomerNotFound: the order names a customer the store does not
	// have.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrStatusConflict: the order's stored status changed between the
	// engine's read and the locked re-check. The engine retries once.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// InvalidTransitionError rejects a status change the state machine does not
// permit from the order's current status.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

type StockShortage struct {
	EntryUID  string `json:"entry_uid"`
	EntryName string `json:"entry_name,omitempty"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// InsufficientStockError aborts a completion when any line cannot be
// covered by current stock. No partial decrement ever lands.
type InsufficientStockError struct {
	OrderUID string
	Details  []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("%s required %d available %d", d.EntryUID, d.Required, d.Available))
	}
	return fmt.Sprintf("insufficient stock for order %s: %s", e.OrderUID, strings.Join(parts, "; "))
}

// DataIntegrityError: an order line points at a catalog entry that cannot
// be resolved. Corrupted data, not a business rejection.
type DataIntegrityError struct {
	OrderUID string
	EntryID  int64
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("order %s references missing catalog entry %d", e.OrderUID, e.EntryID)
}
