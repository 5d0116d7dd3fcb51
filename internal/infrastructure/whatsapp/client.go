package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Template not found in the requested translation.
const codeTemplateMissing = 132001

type Client struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
	HTTP          *http.Client
}

// TemplateMessage is one outbound template send. Params fill the body
// placeholders {{1}}..{{n}} in order.
type TemplateMessage struct {
	To          string
	Template    string
	Language    string
	Params      []string
	HeaderImage string
}

type APIError struct {
	Status  int
	Code    int
	Subcode int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp error: status=%d code=%d subcode=%d %s", e.Status, e.Code, e.Subcode, e.Message)
}

// IsTemplateMissing reports whether err says the template has no
// translation for the requested language.
func IsTemplateMissing(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == codeTemplateMissing && strings.Contains(strings.ToLower(ae.Message), "does not exist")
}

type sendReq struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Template         templateReq `json:"template"`
}

type templateReq struct {
	Name       string      `json:"name"`
	Language   languageReq `json:"language"`
	Components []component `json:"components,omitempty"`
}

type languageReq struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type  string    `json:"type"`
	Text  string    `json:"text,omitempty"`
	Image *imageRef `json:"image,omitempty"`
}

type imageRef struct {
	Link string `json:"link"`
}

type sendResp struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message      string `json:"message"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		ErrorData    struct {
			Details string `json:"details"`
		} `json:"error_data"`
	} `json:"error"`
}

func buildSendReq(m TemplateMessage) sendReq {
	var comps []component
	if strings.TrimSpace(m.HeaderImage) != "" {
		comps = append(comps, component{
			Type:       "header",
			Parameters: []parameter{{Type: "image", Image: &imageRef{Link: m.HeaderImage}}},
		})
	}
	if len(m.Params) > 0 {
		ps := make([]parameter, 0, len(m.Params))
		for _, p := range m.Params {
			ps = append(ps, parameter{Type: "text", Text: p})
		}
		comps = append(comps, component{Type: "body", Parameters: ps})
	}
	return sendReq{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               m.To,
		Type:             "template",
		Template: templateReq{
			Name:       m.Template,
			Language:   languageReq{Code: m.Language},
			Components: comps,
		},
	}
}

// SendTemplate sends one template message and returns the WhatsApp message id.
func (c *Client) SendTemplate(ctx context.Context, m TemplateMessage) (string, error) {
	if strings.TrimSpace(c.PhoneNumberID) == "" || strings.TrimSpace(c.AccessToken) == "" {
		return "", fmt.Errorf("whatsapp client not configured")
	}
	raw, err := json.Marshal(buildSendReq(m))
	if err != nil {
		return "", err
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	u := strings.TrimRight(base, "/") + "/" + c.PhoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var out sendResp
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 400 {
			return "", &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return "", err
	}
	if out.Error != nil {
		msg := out.Error.Message
		if d := strings.TrimSpace(out.Error.ErrorData.Details); d != "" {
			msg += ": " + d
		}
		return "", &APIError{Status: resp.StatusCode, Code: out.Error.Code, Subcode: out.Error.ErrorSubcode, Message: msg}
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if len(out.Messages) == 0 {
		return "", fmt.Errorf("whatsapp: missing message id")
	}
	return out.Messages[0].ID, nil
}
