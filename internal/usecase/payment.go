package usecase

import (
	"strings"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

// PaymentInfo is the payment-related slice of an upstream order.
type PaymentInfo struct {
	GatewayNames    []string
	Gateway         string
	Tags            string
	FinancialStatus string
}

// PaymentHeuristics are the lowercase tokens the classifier looks for.
type PaymentHeuristics struct {
	CODTokens          []string
	CashTokens         []string
	PendingCashSignals []string
}

func DefaultPaymentHeuristics() PaymentHeuristics {
	return PaymentHeuristics{
		CODTokens:          []string{"cash on delivery", "cash_on_delivery", "cod"},
		CashTokens:         []string{"cash"},
		PendingCashSignals: []string{"cash", "manual", "pay on delivery"},
	}
}

// PaymentClassifier guesses COD vs prepaid from gateway metadata. It is a
// best-effort heuristic: the upstream has no authoritative COD flag. The
// result only depends on its input.
type PaymentClassifier struct {
	H PaymentHeuristics
}

func (c PaymentClassifier) IsCOD(p PaymentInfo) bool {
	for _, g := range p.GatewayNames {
		if containsAny(g, c.H.CODTokens) {
			return true
		}
	}
	if containsAny(p.Gateway, c.H.CODTokens) || containsAny(p.Gateway, c.H.CashTokens) {
		return true
	}
	if hasTag(p.Tags, c.H.CODTokens) {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(p.FinancialStatus), "pending") {
		if hasTag(p.Tags, c.H.PendingCashSignals) {
			return true
		}
		fields := append([]string{p.Gateway}, p.GatewayNames...)
		for _, f := range fields {
			if containsAny(f, c.H.PendingCashSignals) {
				return true
			}
		}
	}
	return false
}

func (c PaymentClassifier) Classify(p PaymentInfo) domain.PaymentClass {
	if c.IsCOD(p) {
		return domain.PaymentCOD
	}
	return domain.PaymentPrepaid
}

func containsAny(s string, tokens []string) bool {
	s = strings.ToLower(s)
	if s == "" {
		return false
	}
	for _, t := range tokens {
		if t != "" && strings.Contains(s, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// hasTag matches whole comma-separated tags, so "promocode" is not a "cod" tag.
func hasTag(tags string, tokens []string) bool {
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		for _, t := range tokens {
			if t != "" && strings.EqualFold(tag, t) {
				return true
			}
		}
	}
	return false
}
