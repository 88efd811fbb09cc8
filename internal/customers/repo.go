package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("customer not found")
	// ErrReferenced: the customer has orders on file and cannot be removed.
	ErrReferenced = errors.New("customer referenced by an order")
)

type Repo struct{ DB *pgxpool.Pool }

const pgFKViolation = "23503"

const cols = `id, uid, name, COALESCE(email,''), COALESCE(phone,''), birth_date, created_at, updated_at`

func scan(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.UID, &c.Name, &c.Email, &c.Phone, &c.BirthDate, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, in Input) (*Customer, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO customers (uid, name, email, phone, birth_date)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5)
		RETURNING `+cols,
		uuid.NewString(), in.Name, in.Email, in.Phone, in.BirthDate)
	return scan(row)
}

func (r *Repo) Update(ctx context.Context, uid string, in Input) (*Customer, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE customers SET
			name = $2,
			email = NULLIF($3,''),
			phone = NULLIF($4,''),
			birth_date = $5,
			updated_at = now()
		WHERE uid = $1
		RETURNING `+cols,
		uid, in.Name, in.Email, in.Phone, in.BirthDate)
	return scan(row)
}

func (r *Repo) Delete(ctx context.Context, uid string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM customers WHERE uid = $1`, uid)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
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

func (r *Repo) Get(ctx context.Context, uid string) (*Customer, error) {
	return scan(r.DB.QueryRow(ctx, `SELECT `+cols+` FROM customers WHERE uid = $1`, uid))
}

func (r *Repo) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+cols+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
