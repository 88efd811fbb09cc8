package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Repo is the pgx-backed Store. Service orders and goods orders live in
// parallel table pairs that reference their own catalog table.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

type kindTables struct {
	orders  string
	lines   string
	catalog string
}

var tablesByKind = map[Kind]kindTables{
	KindService: {orders: "service_orders", lines: "service_order_lines", catalog: "services"},
	KindGoods:   {orders: "goods_orders", lines: "goods_order_lines", catalog: "goods"},
}

// CreateOrder inserts the header and lines in one transaction, freezing
// each line's unit price from the catalog row as it is right now. The total
// is computed here from those store prices, never trusted from the client,
// and never recomputed afterwards. Stock is not touched.
func (r *Repo) CreateOrder(ctx context.Context, kind Kind, in CreateInput) (*Order, error) {
	t := tablesByKind[kind]

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type entry struct {
		id     int64
		price  decimal.Decimal
		active bool
	}
	entries := make(map[string]entry, len(in.Lines))
	for _, l := range in.Lines {
		if _, ok := entries[l.EntryUID]; ok {
			continue
		}
		var e entry
		var price string
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT id, price::text, active FROM %s WHERE uid = $1`, t.catalog),
			l.EntryUID).Scan(&e.id, &price, &e.active)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, l.EntryUID)
		}
		if err != nil {
			return nil, err
		}
		if !e.active {
			return nil, fmt.Errorf("%w: %s", ErrEntryInactive, l.EntryUID)
		}
		if e.price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		entries[l.EntryUID] = e
	}

	total := decimal.Zero
	for _, l := range in.Lines {
		total = total.Add(entries[l.EntryUID].price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}

	orderUID := uuid.NewString()
	var orderID int64
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (uid, customer_id, staff_id, status, payment, note, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`, t.orders),
		orderUID, in.CustomerID, in.StaffID, string(StatusPending), string(in.Payment), in.Note, total.String()).Scan(&orderID)
	if isFKViolation(err) {
		return nil, fmt.Errorf("%w: id %d", ErrCustomerNotFound, in.CustomerID)
	}
	if err != nil {
		return nil, err
	}

	for _, l := range in.Lines {
		e := entries[l.EntryUID]
		_, err = tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (order_id, entry_id, qty, unit_price)
			VALUES ($1, $2, $3, $4)`, t.lines),
			orderID, e.id, l.Qty, e.price.String())
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, kind, orderUID)
}

func (r *Repo) GetOrder(ctx context.Context, kind Kind, uid string) (*Order, error) {
	t := tablesByKind[kind]

	var o Order
	var total string
	err := r.DB.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, uid, customer_id, staff_id, status, payment, note, total::text, created_at, updated_at
		FROM %s WHERE uid = $1`, t.orders),
		uid).Scan(&o.ID, &o.UID, &o.CustomerID, &o.StaffID, &o.Status, &o.Payment, &o.Note, &total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	o.Kind = kind

	if o.Lines, err = r.loadLines(ctx, kind, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) loadLines(ctx context.Context, kind Kind, orderID int64) ([]Line, error) {
	t := tablesByKind[kind]
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT l.entry_id, c.uid, c.name, l.qty, l.unit_price::text
		FROM %s l
		JOIN %s c ON c.id = l.entry_id
		WHERE l.order_id = $1
		ORDER BY l.id`, t.lines, t.catalog),
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		var price string
		if err := rows.Scan(&l.EntryID, &l.EntryUID, &l.EntryName, &l.Qty, &price); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) ListOrders(ctx context.Context, kind Kind) ([]Order, error) {
	t := tablesByKind[kind]
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT id, uid, customer_id, staff_id, status, payment, note, total::text, created_at, updated_at
		FROM %s ORDER BY created_at DESC`, t.orders))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var total string
		if err := rows.Scan(&o.ID, &o.UID, &o.CustomerID, &o.StaffID, &o.Status, &o.Payment, &o.Note, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		o.Kind = kind
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Lines, err = r.loadLines(ctx, kind, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ApplyTransition is the all-or-nothing unit of work: lock the order row,
// re-check its status, lock every adjusted good's row, validate that no
// decrement would go below zero, then apply all deltas and the status write
// together. Any rejection rolls back with zero side effects.
func (r *Repo) ApplyTransition(ctx context.Context, kind Kind, uid string, from, to Status, note *string, adjust []StockAdjustment) (*Order, error) {
	t := tablesByKind[kind]

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	var current Status
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, status FROM %s WHERE uid = $1 FOR UPDATE`, t.orders),
		uid).Scan(&orderID, &current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if current != from {
		return nil, ErrStatusConflict
	}

	var shortages []StockShortage
	for _, a := range adjust {
		var stock int
		var entryUID, name string
		err := tx.QueryRow(ctx,
			`SELECT stock, uid, name FROM goods WHERE id = $1 FOR UPDATE`,
			a.EntryID).Scan(&stock, &entryUID, &name)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &DataIntegrityError{OrderUID: uid, EntryID: a.EntryID}
		}
		if err != nil {
			return nil, err
		}
		if stock+a.Delta < 0 {
			shortages = append(shortages, StockShortage{
				EntryUID: entryUID, EntryName: name, Required: -a.Delta, Available: stock,
			})
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE goods SET stock = stock + $2, updated_at = now() WHERE id = $1`,
			a.EntryID, a.Delta); err != nil {
			return nil, err
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{OrderUID: uid, Details: shortages} // rollback via defer
	}

	if note != nil {
		_, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET status = $2, note = $3, updated_at = now() WHERE id = $1`, t.orders),
			orderID, string(to), *note)
	} else {
		_, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET status = $2, updated_at = now() WHERE id = $1`, t.orders),
			orderID, string(to))
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, kind, uid)
}
