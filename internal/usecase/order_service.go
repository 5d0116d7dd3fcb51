package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/shopify"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/logging"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
)

// OrderService turns upstream order events into stored orders and
// notifications. The stored order is authoritative: a failed notification
// never removes it.
type OrderService struct {
	Store       Store
	Payments    PaymentClassifier
	Templates   *TemplateSelector
	Notifier    Notifier
	Phones      PhoneNormalizer
	HeaderImage string
	Logger      *zap.Logger
	Metrics     *metrics.Registry
	Now         func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleOrderCreated records the order and sends the COD or prepaid
// confirmation template. Returns ErrAddressUnresolvable (order stored, nothing
// sent), domain.ErrDuplicateOrder (already recorded, nothing sent) or a
// dispatch error (order stored).
func (s *OrderService) HandleOrderCreated(ctx context.Context, in shopify.Order) (*domain.Order, error) {
	log := logging.OrNop(s.Logger).With(zap.Int64("external_id", in.ID), zap.String("order_id", in.DisplayID()))

	phone, hasPhone := s.Phones.Normalize(in.RawPhone())
	pc := s.Payments.Classify(PaymentInfo{
		GatewayNames:    in.PaymentGatewayNames,
		Gateway:         in.Gateway,
		Tags:            in.Tags,
		FinancialStatus: in.FinancialStatus,
	})
	now := s.now()
	o := &domain.Order{
		ID:           uuid.NewString(),
		OrderID:      in.DisplayID(),
		ExternalID:   in.ID,
		Phone:        phone,
		Name:         in.CustomerName(),
		Total:        in.FormattedTotal(),
		Items:        s.Templates.TruncateItems(in.ItemsSummary()),
		PaymentClass: pc,
		Status:       domain.InitialStatus(pc),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateOrder(ctx, o); err != nil {
		if errors.Is(err, domain.ErrDuplicateOrder) {
			s.Metrics.Duplicate()
			return nil, err
		}
		return nil, fmt.Errorf("create order %s: %w", o.OrderID, storeErr(err))
	}
	log.Info("order recorded", zap.String("payment_class", string(pc)), zap.String("status", string(o.Status)))

	if !hasPhone {
		s.Metrics.DispatchResult("order", "no_address")
		return o, ErrAddressUnresolvable
	}
	sel := s.Templates.ForOrder(pc, OrderFields{Name: o.Name, OrderID: o.OrderID, Total: o.Total, Items: o.Items})
	res, err := s.Notifier.Send(ctx, DispatchRequest{
		To:          phone,
		Template:    sel.Template,
		Params:      sel.Params,
		HeaderImage: s.HeaderImage,
	})
	if err != nil {
		s.Metrics.DispatchResult("order", "failed")
		return o, fmt.Errorf("notify order %s: %w", o.OrderID, err)
	}
	s.Metrics.DispatchResult("order", "sent")
	log.Info("order notified", zap.String("template", res.Template), zap.String("language", res.Language))
	return o, nil
}

// HandleFulfillment stamps shipment details on the stored order (status is
// left alone) and sends the shipped template. The event is still notified
// when the order was never recorded, using the fulfillment's own fields.
func (s *OrderService) HandleFulfillment(ctx context.Context, in shopify.Fulfillment) (*domain.Order, error) {
	log := logging.OrNop(s.Logger).With(zap.Int64("external_id", in.OrderID))

	stored, err := s.Store.MarkShipped(ctx, in.OrderID, domain.Shipment{
		TrackingNumber: in.TrackingNumber,
		TrackingURL:    in.TrackingURL,
		ShippedAt:      s.now(),
	})
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		log.Warn("fulfillment for unknown order")
		stored = nil
	case err != nil:
		log.Error("mark shipped failed", zap.Error(err))
		stored = nil
	}

	raw, name, orderID := in.RawPhone(), in.CustomerName(), in.OrderName()
	if stored != nil {
		if raw == "" {
			raw = stored.Phone
		}
		if name == "" {
			name = stored.Name
		}
		orderID = stored.OrderID
	}
	if name == "" {
		name = "Customer"
	}
	phone, ok := s.Phones.Normalize(raw)
	if !ok {
		s.Metrics.DispatchResult("shipment", "no_address")
		return stored, ErrAddressUnresolvable
	}
	sel := s.Templates.ForShipment(name, orderID)
	res, err := s.Notifier.Send(ctx, DispatchRequest{To: phone, Template: sel.Template, Params: sel.Params})
	if err != nil {
		s.Metrics.DispatchResult("shipment", "failed")
		return stored, fmt.Errorf("notify shipment %s: %w", orderID, err)
	}
	s.Metrics.DispatchResult("shipment", "sent")
	log.Info("shipment notified", zap.String("order_id", orderID), zap.String("language", res.Language))
	return stored, nil
}
