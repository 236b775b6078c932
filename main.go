package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"donation-platform/config"
	"donation-platform/database"
	adminapi "donation-platform/internal/api/admin"
	"donation-platform/internal/api/apierr"
	"donation-platform/internal/api/billing"
	"donation-platform/internal/api/paymentwebhook"
	plansapi "donation-platform/internal/api/plans"
	"donation-platform/internal/api/users"
	routes "donation-platform/internal/app/http"
	"donation-platform/internal/app/http/middleware"
	"donation-platform/internal/app/lifecycle"
	"donation-platform/internal/app/orders"
	"donation-platform/internal/app/revenue"
	"donation-platform/internal/app/settlement"
	"donation-platform/internal/domain/access"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/infra/gateway"
	"donation-platform/internal/infra/logger"
	"donation-platform/internal/infra/notify"
	"donation-platform/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(logger.WithEnvironment(cfg.AppEnv, "donation-platform"))
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenPostgres(cfg.DBURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
		Log:             log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("database close", slog.String("error", err.Error()))
		}
	}()
	if err := database.Migrate(db); err != nil {
		return err
	}
	st := store.New(db)

	if err := seedCatalog(ctx, st, cfg, log); err != nil {
		return err
	}

	gw, priceSource := buildGateways(cfg)
	log.Info("payment gateway selected", slog.String("gateway", gw.Name()))

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			log.Warn("notification queue not drained", slog.String("error", err.Error()))
		}
	}()

	engine := settlement.NewEngine(st, log, settlement.WithNotifier(dispatcher), settlement.WithConfirmer(gw))
	manager := lifecycle.NewManager(st, log, lifecycle.Config{
		TrialDays:     cfg.TrialDays,
		AutoDowngrade: cfg.AutoDowngrade,
	}, lifecycle.WithNotifier(dispatcher))
	initiator, err := orders.NewInitiator(st, gw, cfg.TaxRate, log)
	if err != nil {
		return err
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		lifecycle.NewSweeper(manager, log, cfg.SweepInterval).Run(ctx)
	}()

	errs := apierr.Writer{Log: log, Debug: cfg.Debug}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret:  []byte(cfg.JWTSecret),
		Authorizer: access.NewRoleAuthorizer(),
		Policies:   manager,
		DB:         st,
		Log:        log,
		Billing:    billing.NewHandler(initiator, engine, manager, st, errs),
		Plans:      plansapi.NewHandler(st, priceSource, errs, log),
		Users:      users.NewHandler(manager, st, errs),
		Webhook:    paymentwebhook.NewHandler(gw, engine, st, log),
		Admin:      adminapi.NewHandler(manager, revenue.NewAggregator(st), st, errs),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-sweepDone
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", slog.String("error", err.Error()))
	}
	<-sweepDone
	return nil
}

// seedCatalog upserts the YAML plan catalog. A missing file is not fatal:
// plans may be managed through the Stripe sync instead.
func seedCatalog(ctx context.Context, st *store.Store, cfg *config.Config, log *slog.Logger) error {
	catalog, err := plans.LoadCatalog(cfg.PlansFile, cfg.Currency)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("plan catalog not found", slog.String("path", cfg.PlansFile))
		return nil
	}
	if err != nil {
		return err
	}
	created, updated, err := st.UpsertPlans(ctx, catalog)
	if err != nil {
		return err
	}
	log.Info("plan catalog loaded",
		slog.String("path", cfg.PlansFile),
		slog.Int("created", created),
		slog.Int("updated", updated),
	)
	return nil
}

// buildGateways returns the settling gateway and, when Stripe credentials are
// present, the Stripe price source for plan sync.
func buildGateways(cfg *config.Config) (gateway.Gateway, plansapi.PriceSource) {
	var stripeGW *gateway.Stripe
	if cfg.StripeEnabled() {
		stripeGW = gateway.NewStripe(cfg.StripeSecretKey, cfg.StripePublishableKey, cfg.StripeWebhookSecret, nil)
	}

	var gw gateway.Gateway
	if cfg.PaymentGateway == config.GatewayStripe {
		gw = stripeGW
	} else {
		gw = gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	}

	if stripeGW == nil {
		return gw, nil
	}
	return gw, stripeGW
}

func buildDispatcher(cfg *config.Config, log *slog.Logger) (*notify.Dispatcher, error) {
	var sender notify.Sender = notify.LogSender{Log: log}
	if cfg.PostmarkServerToken != "" {
		pm, err := notify.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.SenderEmail)
		if err != nil {
			return nil, err
		}
		sender = pm
	} else {
		log.Info("postmark not configured; notices are logged only")
	}
	return notify.NewDispatcher(sender, log, notify.Options{
		Workers: cfg.NotifyWorkers,
		Buffer:  cfg.NotifyBuffer,
	}), nil
}
