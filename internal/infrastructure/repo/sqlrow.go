package repo

import (
	"database/sql"
	"time"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

const orderColumns = `id,order_id,external_id,phone,name,total,items,payment_class,status,last_reply,tracking_number,tracking_url,shipped_at,created_at,updated_at`

const messageColumns = `id,from_phone,body,type,source_id,created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	var ext sql.NullInt64
	var shipped sql.NullTime
	err := s.Scan(&o.ID, &o.OrderID, &ext, &o.Phone, &o.Name, &o.Total, &o.Items,
		(*string)(&o.PaymentClass), (*string)(&o.Status), &o.LastReply,
		&o.TrackingNumber, &o.TrackingURL, &shipped, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ExternalID = ext.Int64
	if shipped.Valid {
		t := shipped.Time.UTC()
		o.ShippedAt = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func scanMessage(s scanner) (domain.Message, error) {
	var m domain.Message
	err := s.Scan(&m.ID, &m.From, &m.Body, (*string)(&m.Type), &m.SourceID, &m.CreatedAt)
	m.CreatedAt = m.CreatedAt.UTC()
	return m, err
}

func nullExternalID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullIntent(p domain.OrderPatch) sql.NullString {
	return sql.NullString{String: string(p.Intent), Valid: p.Intent != ""}
}

func nullReply(p domain.OrderPatch) sql.NullString {
	if p.LastReply == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p.LastReply, Valid: true}
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
}
