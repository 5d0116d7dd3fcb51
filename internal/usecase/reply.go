package usecase

import (
	"strings"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

type ReplyPhrases struct {
	CODConfirm  string
	CODCancel   string
	Affirmative []string
	Negative    []string
}

func DefaultReplyPhrases() ReplyPhrases {
	return ReplyPhrases{
		CODConfirm:  "confirm cod",
		CODCancel:   "cancel cod",
		Affirmative: []string{"yes", "y", "confirm", "ok", "okay", "confirmed"},
		Negative:    []string{"no", "n", "cancel", "reject", "stop"},
	}
}

// ReplyClassifier maps a whole reply to an intent. Matching is exact on the
// trimmed, lowercased text: "yes please" is OTHER on purpose.
type ReplyClassifier struct {
	codConfirm string
	codCancel  string
	yes        map[string]struct{}
	no         map[string]struct{}
}

func NewReplyClassifier(p ReplyPhrases) *ReplyClassifier {
	c := &ReplyClassifier{
		codConfirm: normReply(p.CODConfirm),
		codCancel:  normReply(p.CODCancel),
		yes:        map[string]struct{}{},
		no:         map[string]struct{}{},
	}
	for _, w := range p.Affirmative {
		c.yes[normReply(w)] = struct{}{}
	}
	for _, w := range p.Negative {
		c.no[normReply(w)] = struct{}{}
	}
	return c
}

func (c *ReplyClassifier) Classify(text string) domain.ReplyIntent {
	t := normReply(text)
	if t == "" {
		return domain.ReplyOther
	}
	if c.codConfirm != "" && t == c.codConfirm {
		return domain.ReplyConfirm
	}
	if c.codCancel != "" && t == c.codCancel {
		return domain.ReplyReject
	}
	if _, ok := c.yes[t]; ok {
		return domain.ReplyConfirm
	}
	if _, ok := c.no[t]; ok {
		return domain.ReplyReject
	}
	return domain.ReplyOther
}

// ClassifyInbound tries the visible text (or button title) first and the
// button payload second.
func (c *ReplyClassifier) ClassifyInbound(text, payload string) domain.ReplyIntent {
	if in := c.Classify(text); in != domain.ReplyOther {
		return in
	}
	return c.Classify(payload)
}

func normReply(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
