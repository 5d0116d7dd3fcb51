package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/config"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/env"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/dedupe"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/whatsapp"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/logging"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/server"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/tasks"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/usecase"
)

func main() {
	loaded := env.Load(".env", ".env.local")
	cfg := config.EnvDefaults()

	flag.StringVar(&cfg.Env, "env", cfg.Env, "")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "")
	flag.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "")
	flag.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "memory, postgres or mysql")
	flag.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address for inbound dedupe; empty uses memory")
	flag.StringVar(&cfg.PrimaryLanguage, "language", cfg.PrimaryLanguage, "")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "")
	flag.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "")
	flag.Parse()

	log, err := logging.New(cfg.Env, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	if len(loaded) > 0 {
		log.Info("env files loaded", zap.Strings("files", loaded))
	}

	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs a fatal run error and flushes the logger, which os.Exit
// would otherwise skip.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("wa-relay stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.ShopifySecret == "" {
		log.Warn("shopify secret not set, order webhooks will be rejected")
	}
	if cfg.PhoneNumberID == "" || cfg.AccessToken == "" {
		log.Warn("whatsapp credentials not set, dispatch will fail")
	}
	reg := metrics.NewRegistry()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := openStore(openCtx, cfg.StoreDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	var seen usecase.Deduper = dedupe.NewMemoryStore(dedupe.DefaultTTL)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		seen = dedupe.NewRedisStore(rdb, dedupe.DefaultTTL)
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	selector, err := usecase.NewTemplateSelector(usecase.TemplateConfig{
		Brand:           cfg.Brand,
		CODTemplate:     cfg.CODTemplate,
		PrepaidTemplate: cfg.PrepaidTemplate,
		ShippedTemplate: cfg.ShippedTemplate,
		CODParamOrder:   cfg.CODParamOrder,
		ItemsMaxLen:     cfg.ItemsMaxLen,
	})
	if err != nil {
		return err
	}
	phones := usecase.PhoneNormalizer{CountryCode: cfg.CountryCode}
	phrases := usecase.DefaultReplyPhrases()
	phrases.CODConfirm = cfg.CODConfirmPhrase
	phrases.CODCancel = cfg.CODCancelPhrase

	languages := usecase.LanguageList(cfg.PrimaryLanguage)
	attempts := len(languages)
	if cfg.FallbackTmpl != "" {
		attempts++
	}
	dispatcher := &usecase.Dispatcher{
		Sender: &whatsapp.Client{
			BaseURL:       cfg.GraphBaseURL,
			PhoneNumberID: cfg.PhoneNumberID,
			AccessToken:   cfg.AccessToken,
			HTTP:          &http.Client{Timeout: cfg.SendTimeout(attempts)},
		},
		Languages:        languages,
		FallbackTemplate: cfg.FallbackTmpl,
		FallbackLanguage: cfg.FallbackLang,
		Logger:           log.Named("dispatch"),
		Metrics:          reg,
	}

	queue := tasks.NewQueue(cfg.QueueSize, cfg.JobTimeout, log.Named("queue"), reg)
	queue.Start(cfg.Workers)

	srv := server.New(cfg, server.Deps{
		Orders: &usecase.OrderService{
			Store:       store,
			Payments:    usecase.PaymentClassifier{H: usecase.DefaultPaymentHeuristics()},
			Templates:   selector,
			Notifier:    dispatcher,
			Phones:      phones,
			HeaderImage: cfg.OrderHeaderImageURL,
			Logger:      log.Named("orders"),
			Metrics:     reg,
		},
		Replies: &usecase.Reconciler{
			Store:      store,
			Classifier: usecase.NewReplyClassifier(phrases),
			Phones:     phones,
			Dedupe:     seen,
			Logger:     log.Named("replies"),
			Metrics:    reg,
		},
		Auth:    &usecase.AuthService{JWTSecret: cfg.JWTSecret, AdminKey: cfg.AdminKey},
		Store:   store,
		Jobs:    queue,
		Logger:  log.Named("http"),
		Metrics: reg,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr), zap.Strings("languages", dispatcher.Languages))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.JobTimeout+5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	log.Info("http server stopped")
	if err := queue.Close(shutdownCtx); err != nil {
		log.Error("queue drain incomplete", zap.Error(err))
	}
	log.Info("workers stopped")
	return nil
}
