package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []rawMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type rawMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Button *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// Inbound is a flattened inbound message. Text holds the free text body or
// the button title; Payload holds the button payload / reply id if any.
type Inbound struct {
	From    string
	ID      string
	Type    string
	Text    string
	Payload string
}

// ParseWebhook decodes a webhook body and returns its messages in payload order.
// Status-only deliveries yield an empty slice.
func ParseWebhook(body []byte) ([]Inbound, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode whatsapp webhook: %w", err)
	}
	var out []Inbound
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				out = append(out, flatten(m))
			}
		}
	}
	return out, nil
}

func flatten(m rawMessage) Inbound {
	in := Inbound{From: m.From, ID: m.ID, Type: m.Type}
	switch {
	case m.Text != nil:
		in.Text = m.Text.Body
	case m.Button != nil:
		in.Text = m.Button.Text
		in.Payload = m.Button.Payload
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		in.Text = m.Interactive.ButtonReply.Title
		in.Payload = m.Interactive.ButtonReply.ID
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		in.Text = m.Interactive.ListReply.Title
		in.Payload = m.Interactive.ListReply.ID
	}
	return in
}

// VerifyChallenge implements the GET subscription handshake. It returns the
// challenge to echo back, or false when the token does not match.
func VerifyChallenge(mode, token, challenge, expected string) (string, bool) {
	if mode != "subscribe" || strings.TrimSpace(expected) == "" {
		return "", false
	}
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return "", false
	}
	return challenge, true
}

// VerifySignature checks X-Hub-Signature-256 ("sha256=<hex>") over the raw body.
func VerifySignature(appSecret string, body []byte, header string) error {
	if strings.TrimSpace(header) == "" {
		return fmt.Errorf("signature header required")
	}
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return fmt.Errorf("signature scheme not supported")
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("signature not hex: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
