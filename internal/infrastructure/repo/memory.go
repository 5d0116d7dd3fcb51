package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	byExt    map[int64]string
	messages []domain.Message
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*domain.Order),
		byExt:  make(map[int64]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryStore) CreateOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ExternalID != 0 {
		if _, ok := r.byExt[o.ExternalID]; ok {
			return domain.ErrDuplicateOrder
		}
		r.byExt[o.ExternalID] = o.ID
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryStore) FindByExternalID(_ context.Context, externalID int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExt[externalID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *r.orders[id]
	return &cp, nil
}

// latest returns the newest order for phone matching keep. Caller holds the lock.
func (r *MemoryStore) latest(phone string, keep func(*domain.Order) bool) *domain.Order {
	var best *domain.Order
	for _, o := range r.orders {
		if o.Phone != phone || !keep(o) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	return best
}

func anyOrder(*domain.Order) bool { return true }

func (r *MemoryStore) FindLatestByPhone(_ context.Context, phone string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o := r.latest(phone, anyOrder)
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryStore) FindLatestPendingByPhone(_ context.Context, phone string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o := r.latest(phone, func(o *domain.Order) bool { return !o.Status.Terminal() })
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryStore) UpdateLatestOrderByPhone(_ context.Context, phone string, patch domain.OrderPatch) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.latest(phone, anyOrder)
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	patch.Apply(o, r.now())
	cp := *o
	return &cp, nil
}

func (r *MemoryStore) MarkShipped(_ context.Context, externalID int64, s domain.Shipment) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byExt[externalID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o := r.orders[id]
	o.TrackingNumber = s.TrackingNumber
	o.TrackingURL = s.TrackingURL
	at := s.ShippedAt
	o.ShippedAt = &at
	o.UpdatedAt = r.now()
	cp := *o
	return &cp, nil
}

func (r *MemoryStore) AppendMessage(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *m)
	return nil
}

func (r *MemoryStore) ListOrders(_ context.Context, page, pageSize int) ([]domain.Order, int, error) {
	page, pageSize = pageBounds(page, pageSize)
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// ListMessages returns the newest messages first, optionally for one sender.
func (r *MemoryStore) ListMessages(_ context.Context, from string, limit int) ([]domain.Message, error) {
	limit = messageLimit(limit)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Message, 0, limit)
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if from != "" && r.messages[i].From != from {
			continue
		}
		out = append(out, r.messages[i])
	}
	return out, nil
}

func (r *MemoryStore) Ping(context.Context) error { return nil }

func (r *MemoryStore) Close() error { return nil }

func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}

func messageLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
