package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/usecase"
)

var (
	_ usecase.Store = (*MemoryStore)(nil)
	_ usecase.Store = (*PostgresStore)(nil)
	_ usecase.Store = (*MySQLStore)(nil)
)

// testPhone is unique per run so SQL tests can share a database.
func testPhone() string {
	return fmt.Sprintf("91%010d", uuid.New().ID())
}

func newOrder(phone string, ext int64, status domain.OrderStatus, at time.Time) *domain.Order {
	pc := domain.PaymentPrepaid
	if status == domain.OrderCODPending {
		pc = domain.PaymentCOD
	}
	return &domain.Order{
		ID:           uuid.NewString(),
		OrderID:      fmt.Sprintf("#%d", ext%100000),
		ExternalID:   ext,
		Phone:        phone,
		Name:         "Asha",
		Total:        "₹499.00",
		Items:        "1x Case",
		PaymentClass: pc,
		Status:       status,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func extID() int64 { return int64(uuid.New().ID()) + 1 }

func runStoreSuite(t *testing.T, s usecase.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("duplicate external id", func(t *testing.T) {
		phone := testPhone()
		ext := extID()
		if err := s.CreateOrder(ctx, newOrder(phone, ext, domain.OrderPending, base)); err != nil {
			t.Fatalf("create: %v", err)
		}
		err := s.CreateOrder(ctx, newOrder(phone, ext, domain.OrderPending, base))
		if !errors.Is(err, domain.ErrDuplicateOrder) {
			t.Fatalf("expected duplicate, got %v", err)
		}
		got, err := s.FindByExternalID(ctx, ext)
		if err != nil || got.Phone != phone {
			t.Fatalf("find by external id: %+v %v", got, err)
		}
	})

	t.Run("latest by created at", func(t *testing.T) {
		phone := testPhone()
		older := newOrder(phone, extID(), domain.OrderCODPending, base.Add(-time.Hour))
		newer := newOrder(phone, extID(), domain.OrderConfirmed, base)
		if err := s.CreateOrder(ctx, newer); err != nil {
			t.Fatal(err)
		}
		if err := s.CreateOrder(ctx, older); err != nil {
			t.Fatal(err)
		}
		got, err := s.FindLatestByPhone(ctx, phone)
		if err != nil || got.ID != newer.ID {
			t.Fatalf("latest: got %+v err %v", got, err)
		}
		pending, err := s.FindLatestPendingByPhone(ctx, phone)
		if err != nil || pending.ID != older.ID {
			t.Fatalf("latest pending: got %+v err %v", pending, err)
		}
	})

	t.Run("update latest only", func(t *testing.T) {
		phone := testPhone()
		older := newOrder(phone, extID(), domain.OrderCODPending, base.Add(-time.Minute))
		newer := newOrder(phone, extID(), domain.OrderCODPending, base)
		_ = s.CreateOrder(ctx, older)
		_ = s.CreateOrder(ctx, newer)

		reply := "Confirm COD"
		got, err := s.UpdateLatestOrderByPhone(ctx, phone, domain.OrderPatch{Intent: domain.ReplyConfirm, LastReply: &reply})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.ID != newer.ID || got.Status != domain.OrderConfirmed || got.LastReply != reply {
			t.Fatalf("unexpected update result %+v", got)
		}
		untouched, _ := s.FindByExternalID(ctx, older.ExternalID)
		if untouched.Status != domain.OrderCODPending {
			t.Fatalf("older order changed: %s", untouched.Status)
		}

		// reply only, status kept
		other := "when will it ship?"
		got, err = s.UpdateLatestOrderByPhone(ctx, phone, domain.OrderPatch{LastReply: &other})
		if err != nil || got.Status != domain.OrderConfirmed || got.LastReply != other {
			t.Fatalf("reply-only patch: %+v %v", got, err)
		}
	})

	t.Run("terminal status absorbs intent", func(t *testing.T) {
		phone := testPhone()
		_ = s.CreateOrder(ctx, newOrder(phone, extID(), domain.OrderCODPending, base))
		yes, no := "yes", "no"
		if _, err := s.UpdateLatestOrderByPhone(ctx, phone, domain.OrderPatch{Intent: domain.ReplyConfirm, LastReply: &yes}); err != nil {
			t.Fatal(err)
		}
		got, err := s.UpdateLatestOrderByPhone(ctx, phone, domain.OrderPatch{Intent: domain.ReplyReject, LastReply: &no})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.OrderConfirmed || got.LastReply != "no" {
			t.Fatalf("confirmed order changed: %+v", got)
		}
	})

	t.Run("update unknown phone", func(t *testing.T) {
		reply := "yes"
		_, err := s.UpdateLatestOrderByPhone(ctx, testPhone(), domain.OrderPatch{LastReply: &reply})
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("mark shipped", func(t *testing.T) {
		phone := testPhone()
		o := newOrder(phone, extID(), domain.OrderConfirmed, base)
		_ = s.CreateOrder(ctx, o)
		got, err := s.MarkShipped(ctx, o.ExternalID, domain.Shipment{TrackingNumber: "AWB1", TrackingURL: "https://t/1", ShippedAt: base})
		if err != nil {
			t.Fatalf("mark shipped: %v", err)
		}
		if got.TrackingNumber != "AWB1" || got.ShippedAt == nil || got.Status != domain.OrderConfirmed {
			t.Fatalf("unexpected shipped order %+v", got)
		}
		if _, err := s.MarkShipped(ctx, extID(), domain.Shipment{}); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("messages newest first", func(t *testing.T) {
		phone := testPhone()
		for i, body := range []string{"hi", "Confirm COD"} {
			err := s.AppendMessage(ctx, &domain.Message{
				ID: uuid.NewString(), From: phone, Body: body, Type: domain.MessageText,
				SourceID: uuid.NewString(), CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
			if err != nil {
				t.Fatal(err)
			}
		}
		msgs, err := s.ListMessages(ctx, phone, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 2 || msgs[0].Body != "Confirm COD" {
			t.Fatalf("unexpected messages %+v", msgs)
		}
	})

	t.Run("list orders", func(t *testing.T) {
		_ = s.CreateOrder(ctx, newOrder(testPhone(), extID(), domain.OrderPending, base.Add(time.Hour)))
		orders, total, err := s.ListOrders(ctx, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(orders) != 1 || total < 1 {
			t.Fatalf("list: %d orders total %d", len(orders), total)
		}
	})

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestMemoryStoreListPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_ = s.CreateOrder(ctx, newOrder(testPhone(), int64(i+1), domain.OrderPending, base.Add(time.Duration(i)*time.Minute)))
	}
	page, total, _ := s.ListOrders(ctx, 2, 2)
	if total != 5 || len(page) != 2 {
		t.Fatalf("total %d len %d", total, len(page))
	}
	if page[0].ExternalID != 3 {
		t.Fatalf("expected newest-first paging, got ext %d", page[0].ExternalID)
	}
	page, _, _ = s.ListOrders(ctx, 9, 2)
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %d", len(page))
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("WA_RELAY_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("WA_RELAY_TEST_POSTGRES not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	runStoreSuite(t, s)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("WA_RELAY_TEST_MYSQL")
	if dsn == "" {
		t.Skip("WA_RELAY_TEST_MYSQL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenMySQL(ctx, dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer s.Close()
	runStoreSuite(t, s)
}
