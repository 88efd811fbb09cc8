package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects which catalog family an order draws its lines from. The two
// kinds share one lifecycle; only goods orders move stock.
type Kind string

const (
	KindService Kind = "service"
	KindGoods   Kind = "goods"
)

// TracksStock reports whether completing an order of this kind consumes
// inventory.
func (k Kind) TracksStock() bool { return k == KindGoods }

func (k Kind) Valid() bool { return k == KindService || k == KindGoods }

type Payment string

const (
	PaymentCash     Payment = "CASH"
	PaymentTransfer Payment = "TRANSFER"
	PaymentQRIS     Payment = "QRIS"
)

func (p Payment) Valid() bool {
	switch p {
	case PaymentCash, PaymentTransfer, PaymentQRIS:
		return true
	}
	return false
}

type Order struct {
	ID         int64           `json:"-"`
	UID        string          `json:"uid"`
	Kind       Kind            `json:"kind"`
	CustomerID int64           `json:"customer_id"`
	StaffID    int64           `json:"staff_id"`
	Status     Status          `json:"status"`
	Payment    Payment         `json:"payment"`
	Note       string          `json:"note,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Lines      []Line          `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Line freezes the catalog price at order creation: later catalog edits
// never change a historical total.
type Line struct {
	EntryID   int64           `json:"-"`
	EntryUID  string          `json:"entry_uid"`
	EntryName string          `json:"entry_name,omitempty"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

type LineInput struct {
	EntryUID string `json:"entry_uid"`
	Qty      int    `json:"qty"`
}

type CreateInput struct {
	CustomerID int64       `json:"customer_id"`
	StaffID    int64       `json:"-"`
	Payment    Payment     `json:"payment"`
	Note       string      `json:"note"`
	Lines      []LineInput `json:"lines"`
}

// StockAdjustment is one planned stock delta, negative on completion and
// positive on reversal.
type StockAdjustment struct {
	EntryID int64
	Delta   int
}
