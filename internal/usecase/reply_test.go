package usecase

import (
	"testing"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

func TestReplyClassify(t *testing.T) {
	c := NewReplyClassifier(DefaultReplyPhrases())
	cases := map[string]domain.ReplyIntent{
		"Confirm COD":   domain.ReplyConfirm,
		"  confirm cod": domain.ReplyConfirm,
		"YES":           domain.ReplyConfirm,
		"ok":            domain.ReplyConfirm,
		"Cancel COD":    domain.ReplyReject,
		"no":            domain.ReplyReject,
		"stop":          domain.ReplyReject,
		"maybe":         domain.ReplyOther,
		"yes please":    domain.ReplyOther,
		"":              domain.ReplyOther,
	}
	for text, want := range cases {
		if got := c.Classify(text); got != want {
			t.Errorf("Classify(%q) = %s want %s", text, got, want)
		}
	}
}

func TestReplyClassifyInboundPayload(t *testing.T) {
	c := NewReplyClassifier(DefaultReplyPhrases())
	if got := c.ClassifyInbound("Sure thing", "confirm"); got != domain.ReplyConfirm {
		t.Fatalf("payload fallback: got %s", got)
	}
	if got := c.ClassifyInbound("Cancel COD", "confirm"); got != domain.ReplyReject {
		t.Fatalf("title wins over payload: got %s", got)
	}
}

func TestReplyClassifyCustomPhrases(t *testing.T) {
	p := DefaultReplyPhrases()
	p.CODConfirm = "haan"
	c := NewReplyClassifier(p)
	if got := c.Classify("Haan"); got != domain.ReplyConfirm {
		t.Fatalf("custom phrase: got %s", got)
	}
}
