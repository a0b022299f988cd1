package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/storefront/migrations"
	"github.com/dmitrymomot/storefront/modules/billing"
	"github.com/dmitrymomot/storefront/pkg/config"
	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/mercadopago"
	"github.com/dmitrymomot/storefront/pkg/pg"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/requestid"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_SERVICE_NAME" envDefault:"storefront"`
}

func main() {
	if err := config.LoadEnv(); err != nil {
		slog.Warn("no .env file loaded", logger.Error(err))
	}

	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, app.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		pgCfg      pg.Config
		redisCfg   redis.Config
		emailCfg   email.Config
		mpCfg      mercadopago.Config
		subCfg     subscription.Config
		billingCfg billing.Config
		httpCfg    httpserver.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&mpCfg)
	config.MustLoad(&subCfg)
	config.MustLoad(&billingCfg)
	config.MustLoad(&httpCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, pgCfg, log); err != nil {
		return err
	}

	sender, err := email.NewSender(emailCfg)
	if err != nil {
		return err
	}

	notices, err := subscription.LoadNotices(subCfg.Locale)
	if err != nil {
		return err
	}

	store := subscription.NewPostgresStore(pool)
	checks := []func(context.Context) error{pg.Healthcheck(pool)}

	opts := []subscription.ServiceOption{
		subscription.WithPolicy(subCfg.Policy()),
		subscription.WithLogger(log),
		subscription.WithMetrics(subscription.NewMetrics(prometheus.DefaultRegisterer)),
		subscription.WithNotices(notices),
		subscription.WithAppURL(billingCfg.AppURL),
		subscription.WithJobConcurrency(subCfg.JobConcurrency),
	}

	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		opts = append(opts, subscription.WithLocker(redis.NewLocker(client, redisCfg.KeyPrefix), subCfg.JobLockTTL))
		checks = append(checks, redis.Healthcheck(client))
	} else {
		log.Warn("redis not configured, billing job runs without a cross-replica lock")
	}

	gateway := subscription.NewMercadoPagoGateway(mercadopago.NewClient(mpCfg))
	if !gateway.Configured() {
		log.Warn("mercadopago access token missing, invoices use the fallback payment link")
	}

	svc := subscription.NewService(store, gateway, store, subscription.NewEmailNotifier(sender), opts...)
	billingModule := billing.New(billingCfg, svc, billing.WithLogger(log))

	scheduler := cron.New()
	scheduled, err := billingModule.Schedule(ctx, scheduler)
	if err != nil {
		return err
	}
	if scheduled {
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		log.Info("billing job scheduled", "schedule", billingCfg.CronSchedule)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, checks...))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", billingModule.Handle())

	server := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return server.Run(ctx, r)
}
