package domain

import (
	"testing"
	"time"
)

func TestNextStatus_Transitions(t *testing.T) {
	cases := []struct {
		cur    OrderStatus
		intent ReplyIntent
		want   OrderStatus
	}{
		{OrderPending, ReplyConfirm, OrderConfirmed},
		{OrderPending, ReplyReject, OrderRejected},
		{OrderPending, ReplyOther, OrderPending},
		{OrderCODPending, ReplyConfirm, OrderConfirmed},
		{OrderCODPending, ReplyReject, OrderRejected},
		{OrderCODPending, ReplyOther, OrderCODPending},
		{OrderConfirmed, ReplyConfirm, OrderConfirmed},
		{OrderConfirmed, ReplyReject, OrderConfirmed},
		{OrderRejected, ReplyConfirm, OrderRejected},
		{OrderRejected, ReplyOther, OrderRejected},
	}
	for _, c := range cases {
		if got := NextStatus(c.cur, c.intent); got != c.want {
			t.Errorf("NextStatus(%s, %s) = %s, want %s", c.cur, c.intent, got, c.want)
		}
	}
}

func TestNextStatus_ConfirmTwice(t *testing.T) {
	s := NextStatus(OrderCODPending, ReplyConfirm)
	if s != OrderConfirmed {
		t.Fatalf("first confirm: got %s", s)
	}
	s = NextStatus(s, ReplyConfirm)
	if s != OrderConfirmed {
		t.Fatalf("second confirm: got %s", s)
	}
}

func TestNextStatus_NeverReturnsToPending(t *testing.T) {
	intents := []ReplyIntent{ReplyConfirm, ReplyReject, ReplyOther}
	for _, start := range []OrderStatus{OrderConfirmed, OrderRejected} {
		s := start
		for i := 0; i < 27; i++ {
			s = NextStatus(s, intents[(i*7)%3])
			if s == OrderPending || s == OrderCODPending {
				t.Fatalf("from %s reached %s after %d replies", start, s, i+1)
			}
		}
	}
}

func TestInitialStatus(t *testing.T) {
	if InitialStatus(PaymentCOD) != OrderCODPending {
		t.Fatalf("cod initial status wrong")
	}
	if InitialStatus(PaymentPrepaid) != OrderPending {
		t.Fatalf("prepaid initial status wrong")
	}
}

func TestOrderPatch_Apply(t *testing.T) {
	o := &Order{Status: OrderPending, LastReply: "old"}
	now := time.Now().UTC()
	reply := "maybe"
	OrderPatch{LastReply: &reply}.Apply(o, now)
	if o.Status != OrderPending || o.LastReply != "maybe" || !o.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected order after patch: %+v", o)
	}
}

func TestOrderPatch_ApplyIntentRespectsTerminal(t *testing.T) {
	o := &Order{Status: OrderConfirmed}
	OrderPatch{Intent: ReplyReject}.Apply(o, time.Now().UTC())
	if o.Status != OrderConfirmed {
		t.Fatalf("confirmed order moved to %s", o.Status)
	}
	o = &Order{Status: OrderCODPending}
	OrderPatch{Intent: ReplyReject}.Apply(o, time.Now().UTC())
	if o.Status != OrderRejected {
		t.Fatalf("cod_pending + reject: got %s", o.Status)
	}
}
