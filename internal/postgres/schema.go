package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Line tables RESTRICT deletes on the referenced catalog entry: a service or
// good can never be removed once an order line points at it. The same holds
// for a customer with orders on file.
const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id         BIGSERIAL PRIMARY KEY,
    uid        UUID NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    email      TEXT,
    phone      TEXT,
    birth_date DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS services (
    id           BIGSERIAL PRIMARY KEY,
    uid          UUID NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    description  TEXT,
    price        NUMERIC(12,2) NOT NULL CHECK (price >= 0),
    duration_min INT,
    category     TEXT,
    active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS goods (
    id          BIGSERIAL PRIMARY KEY,
    uid         UUID NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    description TEXT,
    price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
    stock       INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
    category    TEXT,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS service_orders (
    id          BIGSERIAL PRIMARY KEY,
    uid         UUID NOT NULL UNIQUE,
    customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE RESTRICT,
    staff_id    BIGINT NOT NULL,
    status      TEXT NOT NULL,
    payment     TEXT NOT NULL,
    note        TEXT NOT NULL DEFAULT '',
    total       NUMERIC(12,2) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS service_order_lines (
    id         BIGSERIAL PRIMARY KEY,
    order_id   BIGINT NOT NULL REFERENCES service_orders(id) ON DELETE CASCADE,
    entry_id   BIGINT NOT NULL REFERENCES services(id) ON DELETE RESTRICT,
    qty        INT NOT NULL CHECK (qty > 0),
    unit_price NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS goods_orders (
    id          BIGSERIAL PRIMARY KEY,
    uid         UUID NOT NULL UNIQUE,
    customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE RESTRICT,
    staff_id    BIGINT NOT NULL,
    status      TEXT NOT NULL,
    payment     TEXT NOT NULL,
    note        TEXT NOT NULL DEFAULT '',
    total       NUMERIC(12,2) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS goods_order_lines (
    id         BIGSERIAL PRIMARY KEY,
    order_id   BIGINT NOT NULL REFERENCES goods_orders(id) ON DELETE CASCADE,
    entry_id   BIGINT NOT NULL REFERENCES goods(id) ON DELETE RESTRICT,
    qty        INT NOT NULL CHECK (qty > 0),
    unit_price NUMERIC(12,2) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_services_active_category ON services (active, category, price);
CREATE INDEX IF NOT EXISTS idx_service_order_lines_order ON service_order_lines (order_id);
CREATE INDEX IF NOT EXISTS idx_goods_order_lines_order ON goods_order_lines (order_id);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
