package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/whatsapp"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/logging"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
)

type TemplateSender interface {
	SendTemplate(ctx context.Context, m whatsapp.TemplateMessage) (string, error)
}

// Notifier is what the order flow needs from the Dispatcher.
type Notifier interface {
	Send(ctx context.Context, req DispatchRequest) (DispatchResult, error)
}

type DispatchRequest struct {
	To          string
	Template    string
	Params      []string
	HeaderImage string
}

type DispatchResult struct {
	MessageID string
	Language  string
	Template  string
}

// Dispatcher sends one template to one address. It walks Languages in order,
// moving on only when the template is missing for a language; any other
// transport failure stops the walk. When every language is missing it sends
// FallbackTemplate once, without parameters.
type Dispatcher struct {
	Sender           TemplateSender
	Languages        []string
	FallbackTemplate string
	FallbackLanguage string
	Logger           *zap.Logger
	Metrics          *metrics.Registry
}

// LanguageList is the primary language followed by the baseline fallbacks,
// without duplicates or blanks.
func LanguageList(primary string) []string {
	return dedupeLanguages([]string{primary, "en", "en_US"})
}

func dedupeLanguages(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func (d *Dispatcher) Send(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	langs := dedupeLanguages(d.Languages)
	if len(langs) == 0 {
		return DispatchResult{}, fmt.Errorf("dispatch %s: no languages configured", req.Template)
	}
	base := logging.OrNop(d.Logger).With(zap.String("to", req.To))
	log := base.With(zap.String("template", req.Template))

	var lastErr error
	for _, lang := range langs {
		log.Info("dispatch attempt", zap.String("language", lang), zap.Int("params", len(req.Params)))
		id, err := d.Sender.SendTemplate(ctx, whatsapp.TemplateMessage{
			To:          req.To,
			Template:    req.Template,
			Language:    lang,
			Params:      req.Params,
			HeaderImage: req.HeaderImage,
		})
		if err == nil {
			d.Metrics.DispatchAttempt(req.Template, lang, "sent")
			log.Info("dispatch sent", zap.String("language", lang), zap.String("message_id", id))
			return DispatchResult{MessageID: id, Language: lang, Template: req.Template}, nil
		}
		if !whatsapp.IsTemplateMissing(err) {
			d.Metrics.DispatchAttempt(req.Template, lang, "failed")
			log.Error("dispatch failed", zap.String("language", lang), zap.Error(err))
			return DispatchResult{}, fmt.Errorf("dispatch %s/%s: %w", req.Template, lang, err)
		}
		d.Metrics.DispatchAttempt(req.Template, lang, "missing")
		log.Warn("template missing for language", zap.String("language", lang), zap.Error(err))
		lastErr = err
	}

	exhausted := fmt.Errorf("%w: %s in %v: %w", ErrTemplateNotFound, req.Template, langs, lastErr)
	if strings.TrimSpace(d.FallbackTemplate) == "" {
		return DispatchResult{}, exhausted
	}
	fbLang := d.FallbackLanguage
	if strings.TrimSpace(fbLang) == "" {
		fbLang = "en_US"
	}
	fb := base.With(zap.String("template", d.FallbackTemplate), zap.String("fallback_for", req.Template))
	fb.Info("dispatch attempt", zap.String("language", fbLang), zap.Int("params", 0))
	id, err := d.Sender.SendTemplate(ctx, whatsapp.TemplateMessage{
		To:       req.To,
		Template: d.FallbackTemplate,
		Language: fbLang,
	})
	if err != nil {
		d.Metrics.DispatchAttempt(d.FallbackTemplate, fbLang, "failed")
		fb.Error("fallback dispatch failed", zap.String("language", fbLang), zap.Error(err))
	} else {
		d.Metrics.DispatchAttempt(d.FallbackTemplate, fbLang, "sent")
		fb.Warn("fallback template sent", zap.String("language", fbLang), zap.String("message_id", id))
	}
	return DispatchResult{}, exhausted
}
