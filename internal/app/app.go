// Package app assembles the service from its configuration. The server and
// the operator CLI share it so both see the same templates and data files.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BerylCAtieno/umaja/internal/a2a"
	"github.com/BerylCAtieno/umaja/internal/analytics"
	"github.com/BerylCAtieno/umaja/internal/api"
	"github.com/BerylCAtieno/umaja/internal/config"
	"github.com/BerylCAtieno/umaja/internal/content"
	"github.com/BerylCAtieno/umaja/internal/enhancer"
	"github.com/BerylCAtieno/umaja/internal/jsonl"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/payment"
	"github.com/BerylCAtieno/umaja/internal/sales"
	"github.com/BerylCAtieno/umaja/internal/templates"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	analyticsDir = "analytics"
	ledgerFile   = "sales.jsonl"
	brandName    = "UMAJA"

	// writeHeadroom covers rendering, ledger writes and the response itself.
	writeHeadroom = 10 * time.Second
)

type App struct {
	Store    *templates.Store
	Renderer *content.Renderer
	Tracker  *analytics.Tracker
	Ledger   *payment.Ledger
	Gate     *sales.Gate
	Enhancer *enhancer.Enhancer
	Metrics  *api.Metrics
	Router   *gin.Engine

	closers []func() error
}

// LoadStore reads the built-in tables, or the directory configured in
// templates.dir, and checks that every combination renders.
func LoadStore(cfg *config.Config) (*templates.Store, *content.Renderer, error) {
	var (
		store *templates.Store
		err   error
	)
	if cfg.Templates.Dir != "" {
		store, err = templates.LoadDir(cfg.Templates.Dir)
	} else {
		store, err = templates.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if err := store.Validate(); err != nil {
		return nil, nil, fmt.Errorf("template tables are incomplete: %w", err)
	}

	renderer := content.NewRenderer(store)
	if err := renderer.Check(); err != nil {
		return nil, nil, fmt.Errorf("template render check failed: %w", err)
	}
	return store, renderer, nil
}

// NewTracker returns the analytics tracker under the configured data dir.
func NewTracker(cfg *config.Config, appender *jsonl.Appender, logger *zap.Logger) *analytics.Tracker {
	return analytics.NewTracker(filepath.Join(cfg.Data.Dir, analyticsDir), appender, logger.Named("analytics"))
}

// NewLedger returns the sales ledger under the configured data dir.
func NewLedger(cfg *config.Config, appender *jsonl.Appender) *payment.Ledger {
	return payment.NewLedger(filepath.Join(cfg.Data.Dir, ledgerFile), appender)
}

// CheckoutBudget is the longest a sale request may wait on PayPal, retries
// included.
func CheckoutBudget(cfg *config.Config) time.Duration {
	return payment.CheckoutBudget(cfg.PayPal.Timeout, cfg.PayPal.MaxAttempts, payment.DefaultRetryDelay)
}

// WriteTimeout is the HTTP server write timeout. It outlasts the checkout
// budget so a sale whose provider calls all time out still gets its answer.
func WriteTimeout(cfg *config.Config) time.Duration {
	return CheckoutBudget(cfg) + writeHeadroom
}

// Build wires every component. The returned App must be closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, renderer, err := LoadStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	a := &App{
		Store:    store,
		Renderer: renderer,
		Metrics:  api.NewMetrics(),
	}

	appender := jsonl.NewAppender()
	a.Tracker = NewTracker(cfg, appender, logger)
	a.Ledger = NewLedger(cfg, appender)

	var flow sales.Flow
	if cfg.Sales.Enabled {
		provider, err := payment.NewPayPalClient(payment.PayPalConfig{
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			Mode:         cfg.PayPal.Mode,
			BaseURL:      cfg.PayPal.BaseURL,
			ReturnURL:    cfg.PayPal.ReturnURL,
			CancelURL:    cfg.PayPal.CancelURL,
			BrandName:    brandName,
			Timeout:      cfg.PayPal.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create paypal client: %w", err)
		}
		flow = payment.NewFlow(provider, a.Ledger, renderer,
			payment.Pricing{PriceCents: cfg.Sales.PriceCents, Currency: cfg.Sales.Currency},
			logger.Named("payment"),
			payment.WithMaxAttempts(cfg.PayPal.MaxAttempts),
			payment.WithCreateTimeout(CheckoutBudget(cfg)),
		)
		logger.Info("sales enabled",
			zap.String("paypal_mode", cfg.PayPal.Mode),
			zap.String("price", fmt.Sprintf("%s %s", models.FormatAmount(cfg.Sales.PriceCents), cfg.Sales.Currency)),
		)
	} else {
		logger.Info("sales disabled, purchases answer coming soon")
	}

	a.Gate, err = sales.NewGate(cfg.Sales.Enabled, flow)
	if err != nil {
		return nil, err
	}

	var gen enhancer.Generator
	if cfg.Gemini.APIKey != "" {
		client, err := enhancer.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		gen = client
		logger.Info("ai enhancement enabled", zap.String("model", cfg.Gemini.Model))
	}
	a.Enhancer = enhancer.New(gen, logger.Named("enhancer"))

	handler := api.NewHandler(renderer, a.Enhancer, a.Gate, a.Tracker, a.Metrics, logger)
	agent := a2a.NewA2AHandler(renderer, a.Enhancer, a.Tracker, logger)
	limiter := api.NewIPRateLimiter(cfg.Rate.RPS, cfg.Rate.Burst)
	a.Router = api.NewRouter(handler, agent, limiter)

	return a, nil
}

// Close releases external clients.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
