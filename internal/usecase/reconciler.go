package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/logging"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
)

type InboundReply struct {
	From     string
	SourceID string
	Type     string
	Text     string
	Payload  string
}

type ReplyOutcome struct {
	Message   *domain.Message
	Intent    domain.ReplyIntent
	Order     *domain.Order
	Previous  domain.OrderStatus
	Duplicate bool
}

// Reconciler applies customer replies to the sender's most recent order.
// A phone with several open orders always resolves to the newest one.
type Reconciler struct {
	Store      Store
	Classifier *ReplyClassifier
	Phones     PhoneNormalizer
	Dedupe     Deduper
	Logger     *zap.Logger
	Metrics    *metrics.Registry
	Now        func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleReply logs the message, classifies it and moves the latest order
// through the confirmation state machine. The message is appended even when
// the order update cannot happen.
func (r *Reconciler) HandleReply(ctx context.Context, in InboundReply) (*ReplyOutcome, error) {
	log := logging.OrNop(r.Logger)
	from, ok := r.Phones.Normalize(in.From)
	if !ok {
		return nil, ErrAddressUnresolvable
	}
	log = log.With(zap.String("from", from), zap.String("source_id", in.SourceID))

	var claim string
	if r.Dedupe != nil && in.SourceID != "" {
		key := "wa:msg:" + in.SourceID
		first, err := r.Dedupe.FirstSeen(ctx, key)
		switch {
		case err != nil:
			log.Warn("dedupe lookup failed, processing anyway", zap.Error(err))
		case !first:
			r.Metrics.Duplicate()
			log.Info("duplicate inbound message skipped")
			return &ReplyOutcome{Duplicate: true}, nil
		default:
			claim = key
		}
	}

	body := strings.TrimSpace(in.Text)
	if body == "" {
		body = strings.TrimSpace(in.Payload)
	}
	msg := &domain.Message{
		ID:        uuid.NewString(),
		From:      from,
		Body:      body,
		Type:      messageType(in.Type),
		SourceID:  in.SourceID,
		CreatedAt: r.now(),
	}
	var errs []error
	if err := r.Store.AppendMessage(ctx, msg); err != nil {
		log.Error("append message failed", zap.Error(err))
		errs = append(errs, storeErr(err))
	}

	intent := r.Classifier.ClassifyInbound(in.Text, in.Payload)
	r.Metrics.Reply(string(intent))
	out := &ReplyOutcome{Message: msg, Intent: intent}

	cur, err := r.Store.FindLatestByPhone(ctx, from)
	if errors.Is(err, domain.ErrOrderNotFound) {
		log.Info("reply without order", zap.String("intent", string(intent)))
		return r.settle(ctx, log, claim, out, errs)
	}
	if err != nil {
		log.Error("latest order lookup failed", zap.Error(err))
		return r.settle(ctx, log, claim, out, append(errs, storeErr(err)))
	}
	out.Previous = cur.Status

	// The store decides the transition against the status it holds when
	// writing; cur may already be stale if another reply from this phone
	// is in flight.
	patch := domain.OrderPatch{Intent: intent, LastReply: &body}
	updated, err := r.Store.UpdateLatestOrderByPhone(ctx, from, patch)
	if err != nil {
		log.Error("order update failed", zap.String("order_id", cur.OrderID), zap.Error(err))
		return r.settle(ctx, log, claim, out, append(errs, storeErr(err)))
	}
	out.Order = updated
	log.Info("reply reconciled",
		zap.String("order_id", updated.OrderID),
		zap.String("intent", string(intent)),
		zap.String("from_status", string(cur.Status)),
		zap.String("to_status", string(updated.Status)))
	return r.settle(ctx, log, claim, out, errs)
}

// settle releases the dedupe claim when the store failed, so an upstream
// redelivery of the same message is processed instead of skipped.
func (r *Reconciler) settle(ctx context.Context, log *zap.Logger, claim string, out *ReplyOutcome, errs []error) (*ReplyOutcome, error) {
	err := errors.Join(errs...)
	if claim != "" && errors.Is(err, ErrStoreUnavailable) {
		if ferr := r.Dedupe.Forget(ctx, claim); ferr != nil {
			log.Warn("dedupe release failed", zap.Error(ferr))
		}
	}
	return out, err
}

// HandleBatch processes one webhook delivery strictly in payload order; a
// later reply may depend on what an earlier one wrote. Errors are returned
// for the caller to report, annotated with the message id.
func (r *Reconciler) HandleBatch(ctx context.Context, batch []InboundReply) []error {
	var errs []error
	for _, in := range batch {
		if _, err := r.HandleReply(ctx, in); err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", in.SourceID, err))
		}
	}
	return errs
}

func messageType(t string) domain.MessageType {
	switch strings.ToLower(t) {
	case "button":
		return domain.MessageButton
	case "interactive":
		return domain.MessageInteractive
	default:
		return domain.MessageText
	}
}
