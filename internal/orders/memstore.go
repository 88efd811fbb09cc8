package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naileastudio/salonpos/internal/catalog"
)

// MemStore is a mutex-guarded in-memory Store with the same atomicity
// contract as the pgx Repo: a rejected transition leaves orders and stock
// exactly as they were. Used by tests and local tooling.
type MemStore struct {
	mu        sync.Mutex
	seq       int64
	services  map[string]*catalog.Service
	goods     map[string]*catalog.Good
	goodsByID map[int64]*catalog.Good
	orders    map[Kind]map[string]*Order
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		services:  make(map[string]*catalog.Service),
		goods:     make(map[string]*catalog.Good),
		goodsByID: make(map[int64]*catalog.Good),
		orders: map[Kind]map[string]*Order{
			KindService: {},
			KindGoods:   {},
		},
	}
}

func (m *MemStore) SeedService(name string, price decimal.Decimal, active bool) *catalog.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := &catalog.Service{ID: m.seq, UID: uuid.NewString(), Name: name, Price: price, Active: active, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.services[s.UID] = s
	return s
}

func (m *MemStore) SeedGood(name string, price decimal.Decimal, stock int) *catalog.Good {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	g := &catalog.Good{ID: m.seq, UID: uuid.NewString(), Name: name, Price: price, Stock: stock, Active: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.goods[g.UID] = g
	m.goodsByID[g.ID] = g
	return g
}

// DropGood simulates a dangling line reference (data corruption).
func (m *MemStore) DropGood(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.goods[uid]; ok {
		delete(m.goodsByID, g.ID)
		delete(m.goods, uid)
	}
}

func (m *MemStore) GoodStock(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.goods[uid]; ok {
		return g.Stock
	}
	return -1
}

func (m *MemStore) CreateOrder(_ context.Context, kind Kind, in CreateInput) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	lines := make([]Line, 0, len(in.Lines))
	for _, li := range in.Lines {
		id, name, price, active, ok := m.lookup(kind, li.EntryUID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, li.EntryUID)
		}
		if !active {
			return nil, fmt.Errorf("%w: %s", ErrEntryInactive, li.EntryUID)
		}
		l := Line{EntryID: id, EntryUID: li.EntryUID, EntryName: name, Qty: li.Qty, UnitPrice: price}
		total = total.Add(l.Subtotal())
		lines = append(lines, l)
	}

	m.seq++
	now := time.Now()
	ord := &Order{
		ID:         m.seq,
		UID:        uuid.NewString(),
		Kind:       kind,
		CustomerID: in.CustomerID,
		StaffID:    in.StaffID,
		Status:     StatusPending,
		Payment:    in.Payment,
		Note:       in.Note,
		Total:      total,
		Lines:      lines,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.orders[kind][ord.UID] = ord
	return copyOrder(ord), nil
}

func (m *MemStore) lookup(kind Kind, uid string) (id int64, name string, price decimal.Decimal, active bool, ok bool) {
	if kind == KindGoods {
		if g, found := m.goods[uid]; found {
			return g.ID, g.Name, g.Price, g.Active, true
		}
		return 0, "", decimal.Zero, false, false
	}
	if s, found := m.services[uid]; found {
		return s.ID, s.Name, s.Price, s.Active, true
	}
	return 0, "", decimal.Zero, false, false
}

func (m *MemStore) GetOrder(_ context.Context, kind Kind, uid string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ord, ok := m.orders[kind][uid]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(ord), nil
}

func (m *MemStore) ListOrders(_ context.Context, kind Kind) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Order, 0, len(m.orders[kind]))
	for _, ord := range m.orders[kind] {
		out = append(out, *copyOrder(ord))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) ApplyTransition(_ context.Context, kind Kind, uid string, from, to Status, note *string, adjust []StockAdjustment) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ord, ok := m.orders[kind][uid]
	if !ok {
		return nil, ErrNotFound
	}
	if ord.Status != from {
		return nil, ErrStatusConflict
	}

	// validate everything before mutating anything
	var shortages []StockShortage
	for _, a := range adjust {
		g, ok := m.goodsByID[a.EntryID]
		if !ok {
			return nil, &DataIntegrityError{OrderUID: uid, EntryID: a.EntryID}
		}
		if g.Stock+a.Delta < 0 {
			shortages = append(shortages, StockShortage{
				EntryUID: g.UID, EntryName: g.Name, Required: -a.Delta, Available: g.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{OrderUID: uid, Details: shortages}
	}

	for _, a := range adjust {
		m.goodsByID[a.EntryID].Stock += a.Delta
	}
	ord.Status = to
	if note != nil {
		ord.Note = *note
	}
	ord.UpdatedAt = time.Now()
	return copyOrder(ord), nil
}

func copyOrder(o *Order) *Order {
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp
}
