package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/address"
	"github.com/noah-isme/storefront-api/internal/cart"
	"github.com/noah-isme/storefront-api/internal/checkout"
	"github.com/noah-isme/storefront-api/internal/common"
	"github.com/noah-isme/storefront-api/internal/config"
	"github.com/noah-isme/storefront-api/internal/events"
	"github.com/noah-isme/storefront-api/internal/health"
	"github.com/noah-isme/storefront-api/internal/obs"
	"github.com/noah-isme/storefront-api/internal/order"
	"github.com/noah-isme/storefront-api/internal/payment"
	"github.com/noah-isme/storefront-api/internal/ratelimit"
	"github.com/noah-isme/storefront-api/internal/resilience"
	"github.com/noah-isme/storefront-api/internal/security"
	"github.com/noah-isme/storefront-api/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

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

	outbound := obs.NewOutboundClient(cfg.UpstreamTimeout)

	// Order creation and payment sessions are not idempotent upstream, so
	// those clients never retry. The voucher and address collaborators are
	// safe to retry and best-effort besides.
	orderClient := order.Client{
		BaseURL: cfg.OrderServiceURL,
		HTTP: resilience.HTTPClient{
			Client:      outbound,
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("orders").WithLogger(logger),
			MaxAttempts: 1,
			Timeout:     cfg.UpstreamTimeout,
		},
	}

	var voucherSource voucher.Source
	if cfg.VoucherServiceURL != "" {
		voucherSource = voucher.HTTPSource{
			BaseURL: cfg.VoucherServiceURL,
			Client: resilience.HTTPClient{
				Client:      outbound,
				Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("vouchers").WithLogger(logger),
				BaseBackoff: 100 * time.Millisecond,
				MaxAttempts: 3,
				Jitter:      0.2,
				Timeout:     cfg.UpstreamTimeout,
			},
		}
	}

	var addressSaver address.Saver = address.Noop{}
	if cfg.AddressServiceURL != "" {
		addressSaver = address.Client{
			BaseURL: cfg.AddressServiceURL,
			HTTP: resilience.HTTPClient{
				Client:      outbound,
				Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("addresses").WithLogger(logger),
				BaseBackoff: 100 * time.Millisecond,
				MaxAttempts: 2,
				Jitter:      0.2,
				Timeout:     cfg.UpstreamTimeout,
			},
		}
	}

	var walletProvider payment.Provider
	providers := map[string]payment.Provider{}
	if cfg.WalletConfigured() {
		momo := payment.MoMo{
			PartnerCode: cfg.MoMoPartnerCode,
			AccessKey:   cfg.MoMoAccessKey,
			SecretKey:   cfg.MoMoSecretKey,
			Endpoint:    cfg.MoMoEndpoint,
			ReturnURL:   cfg.MoMoReturnURL,
			NotifyURL:   cfg.MoMoNotifyURL,
			HTTP: resilience.HTTPClient{
				Client:      outbound,
				Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("momo").WithLogger(logger),
				MaxAttempts: 1,
				Timeout:     cfg.UpstreamTimeout,
			},
		}
		walletProvider = momo
		providers["momo"] = momo
	} else {
		logger.Warn().Msg("wallet provider not configured, wallet checkout disabled")
	}

	bus := events.NewBus()
	subscribeEventLog(bus, logger)

	cartSvc := &cart.Service{
		Store:    cart.Store{R: redisClient, TTL: cfg.CartTTL},
		Vouchers: voucherSource,
		Events:   bus,
		Logger:   logger,
	}
	cartHandler := &cart.Handler{
		Svc:                   cartSvc,
		TaxBps:                cfg.TaxRateBps,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFlatFee:       cfg.ShippingFlatFee,
		Currency:              cfg.CurrencyCode,
	}
	voucherHandler := &voucher.Handler{Source: voucherSource, Logger: logger}

	checkoutSvc := &checkout.Service{
		Carts:                 cartSvc,
		Orders:                orderClient,
		Addresses:             addressSaver,
		Wallet:                walletProvider,
		Validate:              validator.New(),
		Events:                bus,
		Logger:                logger,
		TaxBps:                cfg.TaxRateBps,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFlatFee:       cfg.ShippingFlatFee,
		Currency:              cfg.CurrencyCode,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Logger: logger}

	paymentHandler := &payment.Handler{Provider: walletProvider, Logger: logger}
	callbackHandler := payment.Callback{
		Providers: providers,
		Carts:     cartSvc,
		Replay:    redisClient,
		ReplayTTL: cfg.IdempotencyTTL,
		Events:    bus,
		Logger:    logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	checkoutLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.SessionKey("checkout"),
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("checkout rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

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
	r.Use(common.SessionMiddleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS", true),
		EnableHSTS: envBool("SECURE_HSTS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: envInt64("SECURE_MAX_BODY_BYTES", 1<<20)}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", common.SessionHeader, "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker: health.Probes{
			Redis:     redisClient,
			OrdersURL: cfg.OrderServiceURL,
			HTTP:      outbound,
		},
		RedisTimeout:  envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		OrdersTimeout: envDurationMillis("HEALTH_READY_ORDERS_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/items", cartHandler.AddItem)
				g.Patch("/items/{itemID}", cartHandler.UpdateItem)
				g.Delete("/items/{itemID}", cartHandler.RemoveItem)
				g.Post("/voucher", cartHandler.ApplyVoucher)
				g.Delete("/voucher", cartHandler.RemoveVoucher)
			})
		})

		v.Get("/vouchers", voucherHandler.List)

		v.With(checkoutLimiter.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.Submit)

		v.Route("/payments", func(p chi.Router) {
			p.With(idem.Middleware).Post("/session", paymentHandler.CreateSession)
			p.Post("/callback/{provider}", callbackHandler.Handle)
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

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

// subscribeEventLog makes every domain event leave a structured log line.
func subscribeEventLog(bus *events.Bus, logger zerolog.Logger) {
	log := events.NotifierFunc(func(_ context.Context, ev events.Event) error {
		logger.Info().
			Str("event_id", ev.ID.String()).
			Str("topic", ev.Topic).
			Interface("payload", ev.Payload).
			Msg("domain event")
		return nil
	})
	for _, topic := range events.DefaultTopics() {
		bus.Subscribe(topic, log)
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
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
