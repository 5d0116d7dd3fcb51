package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

// Semantic parameter names usable in the COD parameter order.
const (
	ParamName  = "NAME"
	ParamOrder = "ORDER"
	ParamBrand = "BRAND"
	ParamTotal = "TOTAL"
	ParamItems = "ITEMS"
)

type TemplateConfig struct {
	Brand           string
	CODTemplate     string
	PrepaidTemplate string
	ShippedTemplate string
	CODParamOrder   []string
	ItemsMaxLen     int
}

type OrderFields struct {
	Name    string
	OrderID string
	Total   string
	Items   string
}

type Selection struct {
	Template string
	Params   []string
}

type TemplateSelector struct {
	cfg      TemplateConfig
	codOrder []string
}

func NewTemplateSelector(cfg TemplateConfig) (*TemplateSelector, error) {
	order := make([]string, 0, len(cfg.CODParamOrder))
	for _, p := range cfg.CODParamOrder {
		p = strings.ToUpper(strings.TrimSpace(p))
		switch p {
		case ParamName, ParamOrder, ParamBrand, ParamTotal, ParamItems:
			order = append(order, p)
		default:
			return nil, domain.ErrBadRequest(fmt.Sprintf("unknown COD template parameter %q", p))
		}
	}
	if len(order) == 0 {
		order = []string{ParamName, ParamOrder, ParamBrand, ParamTotal, ParamItems}
	}
	if cfg.ItemsMaxLen <= 0 {
		cfg.ItemsMaxLen = 60
	}
	return &TemplateSelector{cfg: cfg, codOrder: order}, nil
}

// ForOrder picks the order-confirmation template for the payment class.
func (s *TemplateSelector) ForOrder(pc domain.PaymentClass, f OrderFields) Selection {
	values := map[string]string{
		ParamName:  f.Name,
		ParamOrder: f.OrderID,
		ParamBrand: s.cfg.Brand,
		ParamTotal: f.Total,
		ParamItems: s.TruncateItems(f.Items),
	}
	if pc == domain.PaymentCOD {
		params := make([]string, 0, len(s.codOrder))
		for _, k := range s.codOrder {
			params = append(params, sanitizeParam(values[k]))
		}
		return Selection{Template: s.cfg.CODTemplate, Params: params}
	}
	return Selection{
		Template: s.cfg.PrepaidTemplate,
		Params: []string{
			sanitizeParam(values[ParamName]),
			sanitizeParam(values[ParamOrder]),
			sanitizeParam(values[ParamBrand]),
			sanitizeParam(values[ParamTotal]),
			sanitizeParam(values[ParamItems]),
		},
	}
}

func (s *TemplateSelector) ForShipment(name, orderID string) Selection {
	return Selection{
		Template: s.cfg.ShippedTemplate,
		Params:   []string{sanitizeParam(name), sanitizeParam(orderID), sanitizeParam(s.cfg.Brand)},
	}
}

// TruncateItems caps the item summary at ItemsMaxLen runes, ellipsis included.
func (s *TemplateSelector) TruncateItems(items string) string {
	items = strings.TrimSpace(items)
	max := s.cfg.ItemsMaxLen
	if utf8.RuneCountInString(items) <= max {
		return items
	}
	r := []rune(items)
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

// WhatsApp rejects body parameters containing newlines, tabs or more than
// four consecutive spaces, and empty parameters.
func sanitizeParam(v string) string {
	v = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(v)
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return "-"
	}
	return v
}
