package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("catalog entry not found")
	// ErrReferenced: the entry is frozen into at least one order line and
	// can only be deactivated, never deleted.
	ErrReferenced = errors.New("catalog entry referenced by an order")
)

type Repo struct{ DB *pgxpool.Pool }

const pgFKViolation = "23503"

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgFKViolation
}

// --- services ---

const serviceCols = `id, uid, name, COALESCE(description,''), price::text, duration_min, COALESCE(category,''), active, created_at, updated_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var price string
	err := row.Scan(&s.ID, &s.UID, &s.Name, &s.Description, &price, &s.DurationMin, &s.Category, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) CreateService(ctx context.Context, in ServiceInput) (*Service, error) {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO services (uid, name, description, price, duration_min, category, active)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,''), $7)
		RETURNING `+serviceCols,
		uuid.NewString(), in.Name, in.Description, in.Price.String(), in.DurationMin, in.Category, active)
	return scanService(row)
}

func (r *Repo) UpdateService(ctx context.Context, uid string, in ServiceInput) (*Service, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE services SET
			name = $2,
			description = NULLIF($3,''),
			price = $4,
			duration_min = $5,
			category = NULLIF($6,''),
			active = COALESCE($7, active),
			updated_at = now()
		WHERE uid = $1
		RETURNING `+serviceCols,
		uid, in.Name, in.Description, in.Price.String(), in.DurationMin, in.Category, in.Active)
	return scanService(row)
}

func (r *Repo) DeleteService(ctx context.Context, uid string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM services WHERE uid = $1`, uid)
	if isFKViolation(err) {
		return ErrReferenced
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetService(ctx context.Context, uid string) (*Service, error) {
	return scanService(r.DB.QueryRow(ctx, `SELECT `+serviceCols+` FROM services WHERE uid = $1`, uid))
}

func (r *Repo) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+serviceCols+` FROM services ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListActiveServicesGrouped is the public price-list read path, served
// through the ServicesCache. Uncategorized services land under "Other".
func (r *Repo) ListActiveServicesGrouped(ctx context.Context) (GroupedServices, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT uid, name, COALESCE(description,''), price::text, duration_min, COALESCE(category,'Other')
		FROM services
		WHERE active
		ORDER BY category ASC, price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := GroupedServices{}
	for rows.Next() {
		var s ServiceSummary
		var price, category string
		if err := rows.Scan(&s.UID, &s.Name, &s.Description, &price, &s.DurationMin, &category); err != nil {
			return nil, err
		}
		if s.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		grouped[category] = append(grouped[category], s)
	}
	return grouped, rows.Err()
}

// --- goods ---

const goodCols = `id, uid, name, COALESCE(description,''), price::text, stock, COALESCE(category,''), active, created_at, updated_at`

func scanGood(row pgx.Row) (*Good, error) {
	var g Good
	var price string
	err := row.Scan(&g.ID, &g.UID, &g.Name, &g.Description, &price, &g.Stock, &g.Category, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if g.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repo) CreateGood(ctx context.Context, in GoodInput) (*Good, error) {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO goods (uid, name, description, price, stock, category, active)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,''), $7)
		RETURNING `+goodCols,
		uuid.NewString(), in.Name, in.Description, in.Price.String(), stock, in.Category, active)
	return scanGood(row)
}

// UpdateGood never touches stock: stock moves only inside order
// transitions, restocking is a separate concern.
func (r *Repo) UpdateGood(ctx context.Context, uid string, in GoodInput) (*Good, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE goods SET
			name = $2,
			description = NULLIF($3,''),
			price = $4,
			category = NULLIF($5,''),
			active = COALESCE($6, active),
			updated_at = now()
		WHERE uid = $1
		RETURNING `+goodCols,
		uid, in.Name, in.Description, in.Price.String(), in.Category, in.Active)
	return scanGood(row)
}

// Restock adds delta to a good's on-hand count (goods receiving).
func (r *Repo) Restock(ctx context.Context, uid string, delta int) (*Good, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE goods SET stock = stock + $2, updated_at = now()
		WHERE uid = $1
		RETURNING `+goodCols, uid, delta)
	return scanGood(row)
}

func (r *Repo) DeleteGood(ctx context.Context, uid string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM goods WHERE uid = $1`, uid)
	if isFKViolation(err) {
		return ErrReferenced
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetGood(ctx context.Context, uid string) (*Good, error) {
	return scanGood(r.DB.QueryRow(ctx, `SELECT `+goodCols+` FROM goods WHERE uid = $1`, uid))
}

func (r *Repo) ListGoods(ctx context.Context) ([]Good, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+goodCols+` FROM goods ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Good
	for rows.Next() {
		g, err := scanGood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}
