package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/config"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/shopify"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/whatsapp"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/logging"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/tasks"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/usecase"
)

const maxBody = 1 << 20

// Jobs accepts background work. *tasks.Queue in production.
type Jobs interface {
	Submit(j tasks.Job) bool
}

type Deps struct {
	Orders  *usecase.OrderService
	Replies *usecase.Reconciler
	Auth    *usecase.AuthService
	Store   usecase.Store
	Jobs    Jobs
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

type Server struct {
	cfg    config.Config
	d      Deps
	log    *zap.Logger
	phones usecase.PhoneNormalizer
	engine *gin.Engine
}

func New(cfg config.Config, d Deps) *Server {
	s := &Server{
		cfg:    cfg,
		d:      d,
		log:    logging.OrNop(d.Logger),
		phones: usecase.PhoneNormalizer{CountryCode: cfg.CountryCode},
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestID(), s.instrument(), s.cors())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.handleHealth)
	if s.d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.d.Metrics.Handler()))
	}

	wh := r.Group("/webhooks")
	wh.POST("/shopify/orders", s.handleShopifyOrder)
	wh.POST("/shopify/fulfillments", s.handleShopifyFulfillment)
	wh.GET("/whatsapp", s.handleWhatsAppVerify)
	wh.POST("/whatsapp", s.handleWhatsAppInbound)

	r.POST("/api/auth/token", s.handleToken)
	api := r.Group("/api", s.requireAdmin())
	api.GET("/orders", s.handleListOrders)
	api.GET("/orders/latest", s.handleLatestOrder)
	api.GET("/messages", s.handleListMessages)
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if s.d.Metrics == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		s.d.Metrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		s.d.Metrics.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.d.Store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.d.Store.Ping(ctx); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		s.err(c, http.StatusServiceUnavailable, "store_unavailable", "store unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readBody returns the raw body; signature checks need the exact bytes.
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.err(c, http.StatusRequestEntityTooLarge, "too_large", "body too large")
			return nil, false
		}
		s.err(c, http.StatusBadRequest, "bad_request", "read body failed")
		return nil, false
	}
	return body, true
}

func (s *Server) verifyShopify(c *gin.Context) ([]byte, bool) {
	body, ok := s.readBody(c)
	if !ok {
		return nil, false
	}
	if err := shopify.VerifyHMAC(s.cfg.ShopifySecret, body, c.GetHeader(shopify.HeaderHMAC)); err != nil {
		s.d.Metrics.WebhookRejected("shopify")
		s.log.Warn("shopify webhook rejected", zap.String("path", c.FullPath()), zap.Error(err))
		s.err(c, http.StatusUnauthorized, "unauthorized", "invalid webhook signature")
		return nil, false
	}
	return body, true
}

// ack is the reply for every authenticated webhook, whatever happens next.
func (s *Server) ack(c *gin.Context, queued bool) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "queued": queued})
}

func (s *Server) handleShopifyOrder(c *gin.Context) {
	body, ok := s.verifyShopify(c)
	if !ok {
		return
	}
	var in shopify.Order
	if err := json.Unmarshal(body, &in); err != nil {
		s.log.Error("shopify order payload invalid", zap.Error(err))
		s.ack(c, false)
		return
	}
	queued := s.enqueue("order", func(ctx context.Context) {
		_, err := s.d.Orders.HandleOrderCreated(ctx, in)
		s.report("order", err, zap.Int64("external_id", in.ID), zap.String("order_id", in.DisplayID()))
	})
	s.ack(c, queued)
}

func (s *Server) handleShopifyFulfillment(c *gin.Context) {
	body, ok := s.verifyShopify(c)
	if !ok {
		return
	}
	var in shopify.Fulfillment
	if err := json.Unmarshal(body, &in); err != nil {
		s.log.Error("shopify fulfillment payload invalid", zap.Error(err))
		s.ack(c, false)
		return
	}
	queued := s.enqueue("fulfillment", func(ctx context.Context) {
		_, err := s.d.Orders.HandleFulfillment(ctx, in)
		s.report("fulfillment", err, zap.Int64("external_id", in.OrderID), zap.String("order_id", in.OrderName()))
	})
	s.ack(c, queued)
}

func (s *Server) handleWhatsAppVerify(c *gin.Context) {
	challenge, ok := whatsapp.VerifyChallenge(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"), s.cfg.WhatsAppVerifyTok)
	if !ok {
		s.d.Metrics.WebhookRejected("whatsapp_verify")
		s.err(c, http.StatusForbidden, "forbidden", "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

func (s *Server) handleWhatsAppInbound(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	if s.cfg.WhatsAppAppSecret != "" {
		if err := whatsapp.VerifySignature(s.cfg.WhatsAppAppSecret, body, c.GetHeader("X-Hub-Signature-256")); err != nil {
			s.d.Metrics.WebhookRejected("whatsapp")
			s.log.Warn("whatsapp webhook rejected", zap.Error(err))
			s.err(c, http.StatusUnauthorized, "unauthorized", "invalid webhook signature")
			return
		}
	}
	msgs, err := whatsapp.ParseWebhook(body)
	if err != nil {
		s.log.Error("whatsapp payload invalid", zap.Error(err))
		s.ack(c, false)
		return
	}
	if len(msgs) == 0 {
		s.ack(c, false)
		return
	}
	batch := make([]usecase.InboundReply, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, usecase.InboundReply{From: m.From, SourceID: m.ID, Type: m.Type, Text: m.Text, Payload: m.Payload})
	}
	queued := s.enqueue("replies", func(ctx context.Context) {
		for _, err := range s.d.Replies.HandleBatch(ctx, batch) {
			s.report("reply", err)
		}
	})
	s.ack(c, queued)
}

func (s *Server) enqueue(kind string, run func(ctx context.Context)) bool {
	return s.d.Jobs.Submit(tasks.Job{Kind: kind, Run: run})
}

// report logs a job outcome at a level matching how actionable it is.
func (s *Server) report(kind string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.String("kind", kind), zap.Error(err))
	switch {
	case errors.Is(err, domain.ErrDuplicateOrder):
		s.log.Info("duplicate event ignored", fields...)
	case errors.Is(err, usecase.ErrAddressUnresolvable):
		s.log.Warn("event has no dispatchable phone", fields...)
	default:
		s.log.Error("event processing failed", fields...)
	}
}

type tokenRequest struct {
	Key string `json:"key" binding:"required"`
}

func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "bad_request", "key required")
		return
	}
	tok, exp, err := s.d.Auth.Login(req.Key)
	var disabled domain.ErrConflict
	switch {
	case errors.As(err, &disabled):
		s.err(c, http.StatusServiceUnavailable, "disabled", err.Error())
		return
	case err != nil:
		s.err(c, http.StatusUnauthorized, "unauthorized", "invalid admin key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "expiresAt": exp.UTC()})
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			s.err(c, http.StatusUnauthorized, "unauthorized", "bearer token required")
			c.Abort()
			return
		}
		if err := s.d.Auth.Verify(strings.TrimSpace(tok)); err != nil {
			s.err(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) handleListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	items, total, err := s.d.Store.ListOrders(c.Request.Context(), page, size)
	if err != nil {
		s.log.Error("list orders failed", zap.Error(err))
		s.err(c, http.StatusInternalServerError, "internal", "list orders failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (s *Server) handleLatestOrder(c *gin.Context) {
	phone, ok := s.phones.Normalize(c.Query("phone"))
	if !ok {
		s.err(c, http.StatusBadRequest, "bad_request", "phone required")
		return
	}
	find := s.d.Store.FindLatestByPhone
	if pending, _ := strconv.ParseBool(c.Query("pending")); pending {
		find = s.d.Store.FindLatestPendingByPhone
	}
	o, err := find(c.Request.Context(), phone)
	if errors.Is(err, domain.ErrOrderNotFound) {
		s.err(c, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		s.log.Error("latest order lookup failed", zap.Error(err))
		s.err(c, http.StatusInternalServerError, "internal", "lookup failed")
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleListMessages(c *gin.Context) {
	from := c.Query("from")
	if from != "" {
		n, ok := s.phones.Normalize(from)
		if !ok {
			s.err(c, http.StatusBadRequest, "bad_request", "invalid phone")
			return
		}
		from = n
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := s.d.Store.ListMessages(c.Request.Context(), from, limit)
	if err != nil {
		s.log.Error("list messages failed", zap.Error(err))
		s.err(c, http.StatusInternalServerError, "internal", "list messages failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": c.GetString("requestId"),
		},
	})
}
