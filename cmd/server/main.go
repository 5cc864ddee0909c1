package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/urbannassau/rides/config"
	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/handler"
	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/internal/service"
	"github.com/urbannassau/rides/pkg/cache"
	"github.com/urbannassau/rides/pkg/db"
	"github.com/urbannassau/rides/pkg/logger"
	"github.com/urbannassau/rides/pkg/metrics"
)

type stores struct {
	bookings repository.BookingStore
	settings repository.SettingsStore
	quotes   repository.QuoteStore
	users    repository.UserStore
	close    func()
}

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatal("failed to load config", "error", err)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	policy, err := cfg.Slots.Policy()
	if err != nil {
		log.Fatal("invalid slot policy", "error", err)
	}

	ctx := context.Background()
	clock := calendar.SystemClock{}

	// ── Connect to Redis (optional) ─────────────────────
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, running without caches", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info("redis connected", "addr", cfg.Redis.Addr())
		}
	}

	// ── Storage ─────────────────────────────────────────
	st, err := openStores(ctx, cfg, redisClient, log)
	if err != nil {
		log.Fatal("failed to open store", "driver", cfg.Store, "error", err)
	}
	defer st.close()

	var slotCache repository.SlotCountCache = repository.NopSlotCache{}
	if redisClient != nil {
		slotCache = repository.NewRedisSlotCache(redisClient, cfg.Cache.AvailabilityTTL)
	}

	// ── Metrics ─────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("rides", reg)

	// ── Initialize layers ───────────────────────────────
	availabilitySvc := service.NewAvailabilityService(st.bookings, slotCache, policy, clock, log)
	bookingSvc := service.NewBookingService(st.bookings, slotCache, policy, clock, m, log, cfg.WhatsApp.BusinessNumber)
	lifecycleSvc := service.NewLifecycleService(st.bookings, slotCache, policy, m, log)
	fareSvc := service.NewFareService(st.settings, st.quotes, log, cfg.WhatsApp.BusinessNumber)
	settingsSvc := service.NewSettingsService(st.settings, log)
	authSvc := service.NewAuthService(st.users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock, log)

	if cfg.Store == config.StoreMemory {
		if cfg.Auth.AdminPassword == "" {
			log.Warn("AUTH_ADMIN_PASSWORD not set, admin endpoints are unreachable")
		} else if _, err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, "Administrator", cfg.Auth.AdminPassword); err != nil {
			log.Fatal("failed to create admin", "error", err)
		}
	}

	health := map[string]handler.HealthCheck{
		"store": func(ctx context.Context) error { return db.HealthCheck(ctx, st.bookings) },
	}
	if redisClient != nil {
		health["redis"] = func(ctx context.Context) error { return cache.HealthCheck(ctx, redisClient) }
	}

	router := handler.NewRouter(handler.RouterDeps{
		Bookings:       handler.NewBookingHandler(availabilitySvc, bookingSvc, lifecycleSvc, log),
		Pricing:        handler.NewPricingHandler(fareSvc, settingsSvc, log),
		Auth:           handler.NewAuthHandler(authSvc, log),
		Admin:          handler.NewAdminHandler(lifecycleSvc, clock, log, "Urban Nassau Rides"),
		Tokens:         authSvc,
		Health:         health,
		Metrics:        m,
		Gatherer:       reg,
		Log:            log,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening",
			"addr", cfg.Server.ServerAddr(),
			"store", cfg.Store,
			"hours", []int{policy.FirstHour, policy.LastHour},
			"capacity", policy.CapacityPerHour,
			"timezone", policy.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}
	log.Info("server stopped")
}

// openStores selects the storage driver. The memory driver is seeded with the
// default fare settings so the site works without a database.
func openStores(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log logger.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		seed := model.DefaultFareSettings()
		log.Warn("using in-memory store, bookings are lost on restart")
		return &stores{
			bookings: repository.NewMemoryBookingStore(),
			settings: repository.NewMemorySettingsStore(&seed),
			quotes:   repository.NewMemoryQuoteStore(),
			users:    repository.NewMemoryUserStore(),
			close:    func() {},
		}, nil
	}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	log.Info("postgres connected", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)

	return &stores{
		bookings: repository.NewPostgresBookingStore(pool),
		settings: repository.NewSettingsRepository(pool, redisClient, cfg.Cache.SettingsTTL),
		quotes:   repository.NewQuoteRepository(pool),
		users:    repository.NewUserRepository(pool),
		close:    pool.Close,
	}, nil
}
