package usecase

import (
	"context"
	"errors"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

var (
	ErrAddressUnresolvable = errors.New("no dispatchable phone on event")
	ErrTemplateNotFound    = errors.New("template not found in any language")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// Store is the order/message collaborator. "Latest" always means greatest
// CreatedAt for the phone; lookups that find nothing return
// domain.ErrOrderNotFound.
type Store interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	FindByExternalID(ctx context.Context, externalID int64) (*domain.Order, error)
	FindLatestByPhone(ctx context.Context, phone string) (*domain.Order, error)
	FindLatestPendingByPhone(ctx context.Context, phone string) (*domain.Order, error)
	UpdateLatestOrderByPhone(ctx context.Context, phone string, patch domain.OrderPatch) (*domain.Order, error)
	MarkShipped(ctx context.Context, externalID int64, s domain.Shipment) (*domain.Order, error)
	AppendMessage(ctx context.Context, m *domain.Message) error
	ListOrders(ctx context.Context, page, pageSize int) ([]domain.Order, int, error)
	ListMessages(ctx context.Context, from string, limit int) ([]domain.Message, error)
	Ping(ctx context.Context) error
	Close() error
}

// Deduper remembers upstream delivery ids. FirstSeen is true exactly once per
// key until Forget releases it.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

func storeErr(err error) error {
	if err == nil || errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrDuplicateOrder) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
