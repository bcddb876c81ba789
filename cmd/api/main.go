package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/noah-isme/backend-pos/internal/audit"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/health"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/register"
	"github.com/noah-isme/backend-pos/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}

	store, err := history.NewStore(conn)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate sales history")
	}
	catalogSvc, err := catalog.NewService(conn)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate product catalog")
	}

	trail, err := audit.NewTrail(conn)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate audit trail")
	}

	bus := &events.Bus{
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: logger},
			trail,
		},
	}
	catalogSvc.Events = bus

	sess, err := session.New(session.Config{
		TaxRateBps: cfg.TaxRateBps,
		Store:      store,
		Events:     bus,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open register session")
	}

	formatter := money.NewFormatter(cfg.CurrencyCode, cfg.Locale)
	renderer := receipt.Renderer{
		Header:    cfg.ReceiptHeader,
		Footer:    cfg.ReceiptFooter,
		Formatter: formatter,
	}
	validate := validator.New()

	registerHandler := &register.Handler{
		Session:   sess,
		Catalog:   catalogSvc,
		Renderer:  renderer,
		Formatter: formatter,
		Validate:  validate,
	}
	historyHandler := &history.Handler{
		Store:      store,
		Events:     bus,
		Renderer:   renderer,
		TaxRateBps: cfg.TaxRateBps,
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc, Validate: validate}
	auditHandler := audit.Handler{Trail: trail}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.MetricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:   readinessChecker{db: conn},
		DBTimeout: envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/cart", func(c chi.Router) {
			c.Get("/", registerHandler.GetCart)
			c.Delete("/", registerHandler.ClearCart)
			c.Post("/items", registerHandler.AddItem)
			c.Post("/items/by-product", registerHandler.QuickAdd)
			c.Delete("/items/last", registerHandler.RemoveLastItem)
			c.Delete("/items/{itemID}", registerHandler.RemoveItem)
			c.Post("/discount/percent", registerHandler.ApplyPercentDiscount)
			c.Post("/discount/fixed", registerHandler.ApplyFixedDiscount)
			c.Delete("/discount", registerHandler.ClearDiscount)
		})

		v.Route("/payments", func(p chi.Router) {
			p.Post("/", registerHandler.ProcessPayment)
			p.Post("/confirm", registerHandler.ConfirmPayment)
			p.Post("/cancel", registerHandler.CancelPayment)
			p.Get("/pending", registerHandler.PendingPayment)
		})

		v.Get("/receipt", registerHandler.Receipt)

		v.Route("/sales", func(s chi.Router) {
			s.Get("/", historyHandler.List)
			s.Delete("/", historyHandler.Clear)
			s.Get("/daily", historyHandler.Daily)
			s.Get("/{saleID}", historyHandler.Get)
			s.Get("/{saleID}/receipt", historyHandler.Receipt)
		})

		v.Get("/audit", auditHandler.List)

		v.Route("/products", func(p chi.Router) {
			p.Get("/", catalogHandler.List)
			p.Post("/", catalogHandler.Create)
			p.Delete("/{name}", catalogHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Int("tax_rate_bps", cfg.TaxRateBps).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

type readinessChecker struct {
	db *gorm.DB
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	return db.Ping(ctx, c.db, timeout)
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

func envDurationMillis(key string, fallback int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
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
