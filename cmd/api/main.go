package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/framecraft/backend-store/internal/cart"
	"github.com/framecraft/backend-store/internal/catalog"
	"github.com/framecraft/backend-store/internal/checkout"
	"github.com/framecraft/backend-store/internal/common"
	"github.com/framecraft/backend-store/internal/config"
	"github.com/framecraft/backend-store/internal/events"
	"github.com/framecraft/backend-store/internal/health"
	"github.com/framecraft/backend-store/internal/lock"
	"github.com/framecraft/backend-store/internal/obs"
	"github.com/framecraft/backend-store/internal/order"
	"github.com/framecraft/backend-store/internal/payment"
	"github.com/framecraft/backend-store/internal/promo"
	"github.com/framecraft/backend-store/internal/security"
	"github.com/framecraft/backend-store/internal/studio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "framecraft-api",
			Endpoint:      cfg.TracingEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if dir := envOrDefault("MIGRATIONS_DIR", "migrations"); dir != "" {
		if err := runMigrations(dir, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "framecraft-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	catalogRepo := &catalog.Repo{Pool: pool}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store: catalogRepo,
		Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)
	catalogAdmin := &catalog.AdminHandler{Repo: catalogRepo, Service: catalogService, Validate: validate}

	promoRepo := &promo.Repo{Pool: pool}
	promoAdmin := &promo.AdminHandler{Repo: promoRepo, Validate: validate}
	resolver := &promo.Resolver{Rules: promoRepo, Coupons: promoRepo, Logger: &logger}

	cartSvc := &cart.Service{
		Store: cart.RedisStore{R: redisClient, TTL: cfg.CartTTL},
		Lock:  &lock.Locker{R: redisClient},
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	bus := &events.Bus{
		Store: &events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{
			events.EmailNotifier{Sender: common.NopEmailSender{}, Logger: &logger},
		},
	}

	orderRepo := &order.Repo{Pool: pool}
	orderHandler := &order.Handler{Repo: orderRepo}
	orderAdmin := &order.AdminHandler{Repo: orderRepo}

	providers := map[string]payment.Provider{
		"razorpay": payment.Razorpay{
			KeyID:     cfg.RazorpayKeyID,
			KeySecret: cfg.RazorpayKeySecret,
			BaseURL:   cfg.CallbackBaseURL,
		},
		"cashfree": payment.Cashfree{
			AppID:     cfg.CashfreeAppID,
			SecretKey: cfg.CashfreeSecretKey,
			BaseURL:   cfg.CallbackBaseURL,
		},
	}
	paymentRepo := &payment.Repo{Pool: pool}
	paymentSvc := &payment.Service{
		Payments:        paymentRepo,
		Providers:       providers,
		DefaultProvider: cfg.PaymentProvider,
		IntentTTL:       cfg.PaymentIntentTTL,
		CallbackBaseURL: cfg.CallbackBaseURL,
		Currency:        cfg.CurrencyCode,
	}
	webhookHandler := payment.Webhook{
		DB:        pool,
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Coupons:   promoRepo,
		Providers: providers,
		Replay:    redisClient,
		ReplayTTL: cfg.WebhookReplayTTL,
		Events:    bus,
		Logger:    &logger,
	}

	checkoutSvc := &checkout.Service{
		Pool:     pool,
		Carts:    cartSvc,
		Orders:   orderRepo,
		Resolver: resolver,
		Payments: paymentSvc,
		Events:   bus,
		Currency: cfg.CurrencyCode,
		Logger:   &logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(cfg.MetricsBuckets)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, nil)
	}

	quoteLimit, err := rateLimiter(redisClient, cfg.RateLimitQuote)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure quote rate limit")
	}
	checkoutLimit, err := rateLimiter(redisClient, cfg.RateLimitCheckout)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure checkout rate limit")
	}

	studioGate := studio.Middleware{Token: cfg.AdminToken}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Studio-Token"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPassword))
	}

	healthHandler := health.Handler{
		Checker: readinessChecker{db: pool, redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{slug}", catalogHandler.ProductDetail)
		v.Get("/products/{slug}/related", catalogHandler.Related)
		v.Get("/categories", catalogHandler.Categories)
		v.Get("/bundles", catalogHandler.Bundles)
		v.Get("/home", catalogHandler.Home)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.Post("/{id}/bundles", cartHandler.AddBundle)
			c.Post("/{id}/bundles/custom", cartHandler.AddCustomBundle)
			c.Put("/{id}/bundles/{bundleId}", cartHandler.UpdateBundle)
			c.Delete("/{id}/bundles/{bundleId}", cartHandler.RemoveBundle)
			c.Delete("/{id}", cartHandler.Clear)
		})

		v.With(quoteLimit.Handler).Post("/pricing/quote", checkoutHandler.Quote)
		v.With(checkoutLimit.Handler, idem.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/orders/{number}", orderHandler.Get)

		v.Post("/webhooks/payment/{provider}", webhookHandler.Handle)

		v.Route("/studio", func(s chi.Router) {
			s.Use(studioGate.RequireToken)

			s.Get("/products", catalogAdmin.ListProducts)
			s.Post("/products", catalogAdmin.CreateProduct)
			s.Put("/products/{id}", catalogAdmin.UpdateProduct)
			s.Delete("/products/{id}", catalogAdmin.DeleteProduct)

			s.Get("/categories", catalogAdmin.ListCategories)
			s.Post("/categories", catalogAdmin.CreateCategory)
			s.Put("/categories/{id}", catalogAdmin.UpdateCategory)
			s.Delete("/categories/{id}", catalogAdmin.DeleteCategory)

			s.Get("/bundles", catalogAdmin.ListBundles)
			s.Post("/bundles", catalogAdmin.CreateBundle)
			s.Put("/bundles/{id}", catalogAdmin.UpdateBundle)
			s.Delete("/bundles/{id}", catalogAdmin.DeleteBundle)

			s.Get("/home-sections", catalogAdmin.ListHomeSections)
			s.Post("/home-sections", catalogAdmin.CreateHomeSection)
			s.Put("/home-sections/{id}", catalogAdmin.UpdateHomeSection)
			s.Delete("/home-sections/{id}", catalogAdmin.DeleteHomeSection)

			s.Get("/pricing-rules", promoAdmin.ListRules)
			s.Post("/pricing-rules", promoAdmin.CreateRule)
			s.Put("/pricing-rules/{id}", promoAdmin.UpdateRule)
			s.Delete("/pricing-rules/{id}", promoAdmin.DeleteRule)

			s.Get("/coupons", promoAdmin.ListCoupons)
			s.Post("/coupons", promoAdmin.CreateCoupon)
			s.Put("/coupons/{code}", promoAdmin.UpdateCoupon)
			s.Delete("/coupons/{code}", promoAdmin.DeleteCoupon)

			s.Get("/orders", orderAdmin.List)
			s.Patch("/orders/{id}/status", orderAdmin.PatchStatus)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop, cancelStop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelStop()
	<-stop.Done()

	logger.Info().Msg("draining")
	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func runMigrations(dir, databaseURL string) error {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func rateLimiter(client *redis.Client, formatted string) (*limitermw.Middleware, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "rl"})
	if err != nil {
		return nil, err
	}
	return limitermw.NewMiddleware(limiter.New(store, rate)), nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
