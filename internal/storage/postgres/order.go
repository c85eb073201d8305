package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

var _ order.Ledger = (*OrderLedger)(nil)

// OrderLedger implements order.Ledger on the orders table. Amounts are
// stored as NUMERIC and read back as decimal.Decimal.
type OrderLedger struct {
	pool *pgxpool.Pool
}

// NewOrderLedger returns an OrderLedger that uses the given pool.
func NewOrderLedger(pool *pgxpool.Pool) *OrderLedger {
	return &OrderLedger{pool: pool}
}

// Record inserts r. Recording the same order id twice is a no-op.
func (l *OrderLedger) Record(ctx context.Context, r order.Record) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	product.EncodeList(e, r.Order.Items)

	_, err := l.pool.Exec(ctx, `
		INSERT INTO orders (id, username, items, shipping_address, subtotal, shipping, total, order_date, placed_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		r.Order.ID, r.Username, e.Bytes(), r.Order.ShippingAddress,
		r.Subtotal, r.Shipping, r.Order.Total, r.Order.OrderDate, r.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("recording order %s: %w", r.Order.ID, err)
	}
	return nil
}

// ListByUser returns the orders placed by username, oldest first. An empty
// username lists guest orders.
func (l *OrderLedger) ListByUser(ctx context.Context, username string) ([]order.Record, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, username, items, shipping_address, subtotal, shipping, total, order_date, placed_at
		FROM orders
		WHERE username = $1
		ORDER BY placed_at, id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("querying orders for %q: %w", username, err)
	}
	defer rows.Close()

	var records []order.Record
	for rows.Next() {
		var (
			r     order.Record
			items []byte
		)
		if err := rows.Scan(
			&r.Order.ID, &r.Username, &items, &r.Order.ShippingAddress,
			&r.Subtotal, &r.Shipping, &r.Order.Total, &r.Order.OrderDate, &r.PlacedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		r.Order.Items, err = product.DecodeList(jx.DecodeBytes(items))
		if err != nil {
			return nil, fmt.Errorf("decoding items of order %s: %w", r.Order.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return records, nil
}
