package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, pings and creates the schema. The returned store is
// ready to serve.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	configurePool(db)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &PostgresStore{db: db}
	if err := r.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return r, nil
}

func (r *PostgresStore) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			external_id BIGINT UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			total TEXT NOT NULL DEFAULT '',
			items TEXT NOT NULL DEFAULT '',
			payment_class TEXT NOT NULL,
			status TEXT NOT NULL,
			last_reply TEXT NOT NULL DEFAULT '',
			tracking_number TEXT NOT NULL DEFAULT '',
			tracking_url TEXT NOT NULL DEFAULT '',
			shipped_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS orders_phone_created_idx ON orders (phone, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			from_phone TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			source_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_from_created_idx ON messages (from_phone, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (external_id) DO NOTHING`,
		o.ID, o.OrderID, nullExternalID(o.ExternalID), o.Phone, o.Name, o.Total, o.Items,
		string(o.PaymentClass), string(o.Status), o.LastReply, o.TrackingNumber, o.TrackingURL,
		o.ShippedAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicateOrder
	}
	return nil
}

func (r *PostgresStore) one(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresStore) FindByExternalID(ctx context.Context, externalID int64) (*domain.Order, error) {
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_id=$1`, externalID)
}

func (r *PostgresStore) FindLatestByPhone(ctx context.Context, phone string) (*domain.Order, error) {
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE phone=$1 ORDER BY created_at DESC LIMIT 1`, phone)
}

func (r *PostgresStore) FindLatestPendingByPhone(ctx context.Context, phone string) (*domain.Order, error) {
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE phone=$1 AND status IN ($2,$3)
		ORDER BY created_at DESC LIMIT 1`, phone, string(domain.OrderPending), string(domain.OrderCODPending))
}

// UpdateLatestOrderByPhone resolves the intent against the row's current
// status inside the UPDATE. A concurrent update of the same row makes this one
// wait and re-read the committed status, so terminal states stay terminal.
func (r *PostgresStore) UpdateLatestOrderByPhone(ctx context.Context, phone string, patch domain.OrderPatch) (*domain.Order, error) {
	return r.one(ctx, `UPDATE orders SET
			status = CASE
				WHEN status IN ($5,$6) AND $2::text = $7 THEN $9
				WHEN status IN ($5,$6) AND $2::text = $8 THEN $10
				ELSE status END,
			last_reply=COALESCE($3,last_reply), updated_at=$4
		WHERE id=(SELECT id FROM orders WHERE phone=$1 ORDER BY created_at DESC LIMIT 1)
		RETURNING `+orderColumns,
		phone, nullIntent(patch), nullReply(patch), time.Now().UTC(),
		string(domain.OrderPending), string(domain.OrderCODPending),
		string(domain.ReplyConfirm), string(domain.ReplyReject),
		string(domain.OrderConfirmed), string(domain.OrderRejected))
}

func (r *PostgresStore) MarkShipped(ctx context.Context, externalID int64, s domain.Shipment) (*domain.Order, error) {
	return r.one(ctx, `UPDATE orders SET tracking_number=$2, tracking_url=$3, shipped_at=$4, updated_at=$5
		WHERE external_id=$1 RETURNING `+orderColumns,
		externalID, s.TrackingNumber, s.TrackingURL, s.ShippedAt, time.Now().UTC())
}

func (r *PostgresStore) AppendMessage(ctx context.Context, m *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (`+messageColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.From, m.Body, string(m.Type), m.SourceID, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PostgresStore) ListOrders(ctx context.Context, page, pageSize int) ([]domain.Order, int, error) {
	page, pageSize = pageBounds(page, pageSize)
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]domain.Order, 0, pageSize)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresStore) ListMessages(ctx context.Context, from string, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE ($1 = '' OR from_phone = $1) ORDER BY created_at DESC LIMIT $2`, from, messageLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresStore) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *PostgresStore) Close() error { return r.db.Close() }
