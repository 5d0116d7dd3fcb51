package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

const mysqlDuplicateEntry = 1062

type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL forces parseTime and UTC on the DSN, pings and creates the schema.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	configurePool(db)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	m := &MySQLStore{db: db}
	if err := m.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return m, nil
}

func (m *MySQLStore) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			order_id VARCHAR(64) NOT NULL,
			external_id BIGINT NULL UNIQUE,
			phone VARCHAR(32) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL DEFAULT '',
			total VARCHAR(64) NOT NULL DEFAULT '',
			items TEXT NOT NULL,
			payment_class VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			last_reply TEXT NOT NULL,
			tracking_number VARCHAR(128) NOT NULL DEFAULT '',
			tracking_url TEXT NOT NULL,
			shipped_at DATETIME(6) NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX orders_phone_created_idx (phone, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(64) PRIMARY KEY,
			from_phone VARCHAR(32) NOT NULL,
			body TEXT NOT NULL,
			type VARCHAR(16) NOT NULL,
			source_id VARCHAR(128) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL,
			INDEX messages_from_created_idx (from_phone, created_at)
		)`,
	}
	for _, s := range stmts {
		if _, err := m.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	_, err := m.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderID, nullExternalID(o.ExternalID), o.Phone, o.Name, o.Total, o.Items,
		string(o.PaymentClass), string(o.Status), o.LastReply, o.TrackingNumber, o.TrackingURL,
		o.ShippedAt, o.CreatedAt, o.UpdatedAt)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return domain.ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLStore) one(ctx context.Context, q querier, query string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *MySQLStore) FindByExternalID(ctx context.Context, externalID int64) (*domain.Order, error) {
	return m.one(ctx, m.db, `SELECT `+orderColumns+` FROM orders WHERE external_id = ?`, externalID)
}

func (m *MySQLStore) FindLatestByPhone(ctx context.Context, phone string) (*domain.Order, error) {
	return m.one(ctx, m.db, `SELECT `+orderColumns+` FROM orders WHERE phone = ? ORDER BY created_at DESC LIMIT 1`, phone)
}

func (m *MySQLStore) FindLatestPendingByPhone(ctx context.Context, phone string) (*domain.Order, error) {
	return m.one(ctx, m.db, `SELECT `+orderColumns+` FROM orders WHERE phone = ? AND status IN (?, ?)
		ORDER BY created_at DESC LIMIT 1`, phone, string(domain.OrderPending), string(domain.OrderCODPending))
}

// UpdateLatestOrderByPhone locks the newest row for the phone and resolves
// the intent against the status read under that lock, so two replies racing
// on the same order serialize and a terminal status is never left.
func (m *MySQLStore) UpdateLatestOrderByPhone(ctx context.Context, phone string, patch domain.OrderPatch) (*domain.Order, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	var status domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT id, status FROM orders WHERE phone = ? ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, phone).
		Scan(&id, (*string)(&status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock latest order: %w", err)
	}
	if patch.Intent != "" {
		status = domain.NextStatus(status, patch.Intent)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, last_reply = COALESCE(?, last_reply), updated_at = ?
		WHERE id = ?`,
		string(status), nullReply(patch), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	o, err := m.one(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return o, tx.Commit()
}

func (m *MySQLStore) MarkShipped(ctx context.Context, externalID int64, s domain.Shipment) (*domain.Order, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET tracking_number = ?, tracking_url = ?, shipped_at = ?, updated_at = ?
		WHERE external_id = ?`,
		s.TrackingNumber, s.TrackingURL, s.ShippedAt, time.Now().UTC(), externalID)
	if err != nil {
		return nil, fmt.Errorf("mark shipped: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return m.FindByExternalID(ctx, externalID)
}

func (m *MySQLStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	_, err := m.db.ExecContext(ctx, `INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.From, msg.Body, string(msg.Type), msg.SourceID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (m *MySQLStore) ListOrders(ctx context.Context, page, pageSize int) ([]domain.Order, int, error) {
	page, pageSize = pageBounds(page, pageSize)
	rows, err := m.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
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
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (m *MySQLStore) ListMessages(ctx context.Context, from string, limit int) ([]domain.Message, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE (? = '' OR from_phone = ?) ORDER BY created_at DESC LIMIT ?`, from, from, messageLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (m *MySQLStore) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }

func (m *MySQLStore) Close() error { return m.db.Close() }
