package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newEngine(st Store) *Engine {
	return &Engine{Store: st, ServiceName: "test"}
}

func createGoodsOrder(t *testing.T, e *Engine, lines ...LineInput) *Order {
	t.Helper()
	ord, err := e.Create(context.Background(), KindGoods, CreateInput{
		CustomerID: 1,
		StaffID:    2,
		Payment:    PaymentCash,
		Lines:      lines,
	})
	require.NoError(t, err)
	return ord
}

func TestCreateComputesTotalAndLeavesStockAlone(t *testing.T) {
	st := NewMemStore()
	g1 := st.SeedGood("Kutek OPI Red", price("150000"), 50)
	g2 := st.SeedGood("Nail Art Sticker", price("25000"), 100)
	e := newEngine(st)

	ord := createGoodsOrder(t, e,
		LineInput{EntryUID: g1.UID, Qty: 1},
		LineInput{EntryUID: g2.UID, Qty: 2},
	)

	require.Equal(t, StatusPending, ord.Status)
	require.True(t, ord.Total.Equal(price("200000")), "total = %s", ord.Total)
	require.Len(t, ord.Lines, 2)
	require.Equal(t, 50, st.GoodStock(g1.UID), "creation must not touch stock")
	require.Equal(t, 100, st.GoodStock(g2.UID))
}

func TestCreateFreezesUnitPrices(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("Hand Cream", price("75000"), 10)
	e := newEngine(st)

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})

	// a later catalog price change must not reach the historical order
	g.Price = price("90000")

	got, err := e.Get(context.Background(), KindGoods, ord.UID)
	require.NoError(t, err)
	require.True(t, got.Lines[0].UnitPrice.Equal(price("75000")))
	require.True(t, got.Total.Equal(price("150000")))
}

func TestCreateRejectsBadInput(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("Cuticle Oil", price("55000"), 40)
	inactive := st.SeedGood("Discontinued", price("10000"), 5)
	inactive.Active = false
	e := newEngine(st)
	ctx := context.Background()

	_, err := e.Create(ctx, KindGoods, CreateInput{CustomerID: 1, Lines: nil})
	require.Error(t, err)

	_, err = e.Create(ctx, KindGoods, CreateInput{CustomerID: 1, Lines: []LineInput{{EntryUID: g.UID, Qty: 0}}})
	require.Error(t, err)

	_, err = e.Create(ctx, KindGoods, CreateInput{CustomerID: 1, Lines: []LineInput{{EntryUID: "nope", Qty: 1}}})
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = e.Create(ctx, KindGoods, CreateInput{CustomerID: 1, Lines: []LineInput{{EntryUID: inactive.UID, Qty: 1}}})
	require.ErrorIs(t, err, ErrEntryInactive)

	_, err = e.Create(ctx, KindGoods, CreateInput{
		CustomerID: 1,
		Payment:    Payment("CHEQUE"),
		Lines:      []LineInput{{EntryUID: g.UID, Qty: 1}},
	})
	require.Error(t, err)
}

func TestCreateDefaultsPaymentToCash(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("Nail Remover", price("35000"), 30)
	e := newEngine(st)

	ord, err := e.Create(context.Background(), KindGoods, CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{EntryUID: g.UID, Qty: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, PaymentCash, ord.Payment)
}

// Concrete scenario 1: complete then cancel nets stock back to its
// pre-completion value exactly.
func TestCompleteThenCancelRestoresStock(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("Kutek OPI Pink", price("150000"), 5)
	e := newEngine(st)
	ctx := context.Background()

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})

	done, err := e.Transition(ctx, KindGoods, ord.UID, StatusSelesai, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSelesai, done.Status)
	require.Equal(t, 3, st.GoodStock(g.UID))

	cancelled, err := e.Transition(ctx, KindGoods, ord.UID, StatusBatal, nil)
	require.NoError(t, err)
	require.Equal(t, StatusBatal, cancelled.Status)
	require.Equal(t, 5, st.GoodStock(g.UID))
}

// Concrete scenario 2: insufficient stock rejects the whole transition and
// leaves everything untouched, twice in a row.
func TestInsufficientStockRejectionIsIdempotent(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("Kutek OPI Red", price("150000"), 1)
	e := newEngine(st)
	ctx := context.Background()

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})

	for i := 0; i < 2; i++ {
		_, err := e.Transition(ctx, KindGoods, ord.UID, StatusSelesai, nil)
		var short *InsufficientStockError
		require.ErrorAs(t, err, &short)
		require.Len(t, short.Details, 1)
		require.Equal(t, g.UID, short.Details[0].EntryUID)
		require.Equal(t, 2, short.Details[0].Required)
		require.Equal(t, 1, short.Details[0].Available)

		require.Equal(t, 1, st.GoodStock(g.UID))
		cur, err := e.Get(ctx, KindGoods, ord.UID)
		require.NoError(t, err)
		require.Equal(t, StatusPending, cur.Status)
	}
}

// Atomicity: a later line failing the stock check must not leave an
// earlier line decremented.
func TestNoPartialDecrement(t *testing.T) {
	st := NewMemStore()
	a := st.SeedGood("A", price("10000"), 10)
	b := st.SeedGood("B", price("20000"), 0)
	e := newEngine(st)

	ord := createGoodsOrder(t, e,
		LineInput{EntryUID: a.UID, Qty: 3},
		LineInput{EntryUID: b.UID, Qty: 1},
	)

	_, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusSelesai, nil)
	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)

	require.Equal(t, 10, st.GoodStock(a.UID), "line A must not be decremented")
	require.Equal(t, 0, st.GoodStock(b.UID))
}

func TestCancelPendingNeverTouchesStock(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 7)
	e := newEngine(st)

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 3})

	cancelled, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusBatal, nil)
	require.NoError(t, err)
	require.Equal(t, StatusBatal, cancelled.Status)
	require.Equal(t, 7, st.GoodStock(g.UID))
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 5)
	e := newEngine(st)
	ctx := context.Background()

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 1})
	_, err := e.Transition(ctx, KindGoods, ord.UID, StatusBatal, nil)
	require.NoError(t, err)

	for _, to := range []Status{StatusSelesai, StatusPending, StatusBatal} {
		_, err := e.Transition(ctx, KindGoods, ord.UID, to, nil)
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "BATAL -> %s must be rejected", to)
	}
	require.Equal(t, 5, st.GoodStock(g.UID))
}

func TestServiceOrderLifecycle(t *testing.T) {
	st := NewMemStore()
	s := st.SeedService("Manicure", price("50000"), true)
	e := newEngine(st)
	ctx := context.Background()

	ord, err := e.Create(ctx, KindService, CreateInput{
		CustomerID: 1,
		StaffID:    2,
		Payment:    PaymentQRIS,
		Lines:      []LineInput{{EntryUID: s.UID, Qty: 2}},
	})
	require.NoError(t, err)
	require.True(t, ord.Total.Equal(price("100000")))

	done, err := e.Transition(ctx, KindService, ord.UID, StatusSelesai, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSelesai, done.Status)

	cancelled, err := e.Transition(ctx, KindService, ord.UID, StatusBatal, nil)
	require.NoError(t, err)
	require.Equal(t, StatusBatal, cancelled.Status)
}

func TestTransitionNotFound(t *testing.T) {
	e := newEngine(NewMemStore())
	_, err := e.Transition(context.Background(), KindGoods, "missing", StatusSelesai, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionUpdatesNote(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 5)
	e := newEngine(st)

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 1})

	note := "picked up in store"
	done, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusSelesai, &note)
	require.NoError(t, err)
	require.Equal(t, note, done.Note)

	// nil note keeps the stored one
	cancelled, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusBatal, nil)
	require.NoError(t, err)
	require.Equal(t, note, cancelled.Note)
}

func TestDanglingLineIsDataIntegrityFault(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 5)
	e := newEngine(st)

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 1})
	st.DropGood(g.UID)

	_, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusSelesai, nil)
	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)

	cur, err := e.Get(context.Background(), KindGoods, ord.UID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, cur.Status)
}

func TestPlanAdjustments(t *testing.T) {
	ord := &Order{
		Status: StatusPending,
		Lines:  []Line{{EntryID: 7, Qty: 3}, {EntryID: 9, Qty: 1}},
	}

	got := planAdjustments(KindGoods, ord, StatusSelesai)
	require.Equal(t, []StockAdjustment{{EntryID: 7, Delta: -3}, {EntryID: 9, Delta: -1}}, got)

	ord.Status = StatusSelesai
	got = planAdjustments(KindGoods, ord, StatusBatal)
	require.Equal(t, []StockAdjustment{{EntryID: 7, Delta: 3}, {EntryID: 9, Delta: 1}}, got)

	ord.Status = StatusPending
	require.Nil(t, planAdjustments(KindGoods, ord, StatusBatal), "cancelling PENDING carries no stock effect")
	require.Nil(t, planAdjustments(KindService, ord, StatusSelesai), "service orders never touch stock")
}

// flakyStore reports a status conflict for the first n ApplyTransition
// calls, simulating a concurrent transition winning the row lock.
type flakyStore struct {
	Store
	conflicts int
}

func (f *flakyStore) ApplyTransition(ctx context.Context, kind Kind, uid string, from, to Status, note *string, adjust []StockAdjustment) (*Order, error) {
	if f.conflicts > 0 {
		f.conflicts--
		return nil, ErrStatusConflict
	}
	return f.Store.ApplyTransition(ctx, kind, uid, from, to, note, adjust)
}

func TestTransitionRetriesOnceOnConflict(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 5)
	e := newEngine(&flakyStore{Store: st, conflicts: 1})

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})

	done, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusSelesai, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSelesai, done.Status)
	require.Equal(t, 3, st.GoodStock(g.UID))
}

func TestTransitionGivesUpAfterSecondConflict(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 5)
	e := newEngine(&flakyStore{Store: st, conflicts: 2})

	ord := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})

	_, err := e.Transition(context.Background(), KindGoods, ord.UID, StatusSelesai, nil)
	require.True(t, errors.Is(err, ErrStatusConflict))
	require.Equal(t, 5, st.GoodStock(g.UID))
}

func TestStockNeverGoesNegative(t *testing.T) {
	st := NewMemStore()
	g := st.SeedGood("G", price("10000"), 3)
	e := newEngine(st)
	ctx := context.Background()

	first := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})
	second := createGoodsOrder(t, e, LineInput{EntryUID: g.UID, Qty: 2})

	_, err := e.Transition(ctx, KindGoods, first.UID, StatusSelesai, nil)
	require.NoError(t, err)
	require.Equal(t, 1, st.GoodStock(g.UID))

	_, err = e.Transition(ctx, KindGoods, second.UID, StatusSelesai, nil)
	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Equal(t, 1, st.GoodStock(g.UID))
}
