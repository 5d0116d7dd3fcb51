package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env     string
	Port    int
	LogJSON bool

	// Store
	StoreDriver string
	DatabaseURL string
	RedisAddr   string

	// Webhook auth
	ShopifySecret     string
	WhatsAppVerifyTok string
	WhatsAppAppSecret string

	// Admin API
	JWTSecret string
	AdminKey  string

	// WhatsApp Cloud API
	GraphBaseURL    string
	PhoneNumberID   string
	AccessToken     string
	PrimaryLanguage string
	FallbackTmpl    string
	FallbackLang    string

	// Templates
	Brand               string
	CODTemplate         string
	PrepaidTemplate     string
	ShippedTemplate     string
	CODParamOrder       []string
	ItemsMaxLen         int
	OrderHeaderImageURL string

	// Heuristics
	CountryCode      string
	CODConfirmPhrase string
	CODCancelPhrase  string

	// Background queue
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

func Default() Config {
	return Config{
		Env:              "dev",
		Port:             8080,
		LogJSON:          true,
		StoreDriver:      "memory",
		GraphBaseURL:     "https://graph.facebook.com/v19.0",
		PrimaryLanguage:  "en",
		FallbackTmpl:     "hello_world",
		FallbackLang:     "en_US",
		Brand:            "CoverMeUp",
		CODTemplate:      "order_confirmation_cod",
		PrepaidTemplate:  "order_confirmation_prepaid",
		ShippedTemplate:  "order_shipped",
		CODParamOrder:    []string{"NAME", "ORDER", "BRAND", "TOTAL", "ITEMS"},
		ItemsMaxLen:      60,
		CountryCode:      "91",
		CODConfirmPhrase: "confirm cod",
		CODCancelPhrase:  "cancel cod",
		Workers:          4,
		QueueSize:        256,
		JobTimeout:       30 * time.Second,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("WA_RELAY_ENV", &c.Env)
	num("WA_RELAY_PORT", &c.Port)
	if v := os.Getenv("WA_RELAY_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	str("WA_RELAY_STORE", &c.StoreDriver)
	str("WA_RELAY_DATABASE_URL", &c.DatabaseURL)
	str("WA_RELAY_REDIS_ADDR", &c.RedisAddr)
	str("WA_RELAY_SHOPIFY_SECRET", &c.ShopifySecret)
	str("WA_RELAY_WA_VERIFY_TOKEN", &c.WhatsAppVerifyTok)
	str("WA_RELAY_WA_APP_SECRET", &c.WhatsAppAppSecret)
	str("WA_RELAY_JWT_SECRET", &c.JWTSecret)
	str("WA_RELAY_ADMIN_KEY", &c.AdminKey)
	str("WA_RELAY_GRAPH_URL", &c.GraphBaseURL)
	str("WA_RELAY_WA_PHONE_NUMBER_ID", &c.PhoneNumberID)
	str("WA_RELAY_WA_TOKEN", &c.AccessToken)
	str("WA_RELAY_LANGUAGE", &c.PrimaryLanguage)
	str("WA_RELAY_FALLBACK_TEMPLATE", &c.FallbackTmpl)
	str("WA_RELAY_FALLBACK_LANGUAGE", &c.FallbackLang)
	str("WA_RELAY_BRAND", &c.Brand)
	str("WA_RELAY_TEMPLATE_COD", &c.CODTemplate)
	str("WA_RELAY_TEMPLATE_PREPAID", &c.PrepaidTemplate)
	str("WA_RELAY_TEMPLATE_SHIPPED", &c.ShippedTemplate)
	if v := os.Getenv("WA_RELAY_COD_PARAM_ORDER"); v != "" {
		c.CODParamOrder = SplitList(v)
	}
	num("WA_RELAY_ITEMS_MAX_LEN", &c.ItemsMaxLen)
	str("WA_RELAY_ORDER_HEADER_IMAGE", &c.OrderHeaderImageURL)
	str("WA_RELAY_COUNTRY_CODE", &c.CountryCode)
	str("WA_RELAY_COD_CONFIRM_PHRASE", &c.CODConfirmPhrase)
	str("WA_RELAY_COD_CANCEL_PHRASE", &c.CODCancelPhrase)
	num("WA_RELAY_WORKERS", &c.Workers)
	num("WA_RELAY_QUEUE_SIZE", &c.QueueSize)
	if v := os.Getenv("WA_RELAY_JOB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.JobTimeout = d
		}
	}
	return c
}

// SendTimeout is the per-request budget for one Graph API call when a job may
// make up to attempts of them, so the whole walk fits inside JobTimeout.
func (c Config) SendTimeout(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return c.JobTimeout / time.Duration(attempts)
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
