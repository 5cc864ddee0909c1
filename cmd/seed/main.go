// Command seed prepares a PostgreSQL database: it applies the schema, writes
// the default fare settings if none exist and creates the administrator.
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/urbannassau/rides/config"
	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/internal/service"
	"github.com/urbannassau/rides/migrations"
	"github.com/urbannassau/rides/pkg/db"
	"github.com/urbannassau/rides/pkg/logger"
)

func main() {
	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	resetSettings := flag.Bool("reset-settings", false, "overwrite existing fare settings with the defaults")
	adminName := flag.String("admin-name", "Administrator", "display name of the admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatal("failed to load config", "error", err)
	}
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to postgres", "error", err)
	}
	defer pool.Close()

	if *migrate {
		applied, err := db.Migrate(ctx, pool, migrations.FS)
		if err != nil {
			log.Fatal("migration failed", "error", err)
		}
		log.Info("migrations applied", "files", applied)
	}

	// ── Fare settings ───────────────────────────────────
	settings := repository.NewSettingsRepository(pool, nil, 0)
	_, err = settings.Get(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound) || (*resetSettings && err == nil):
		if _, err := settings.Upsert(ctx, model.DefaultFareSettings()); err != nil {
			log.Fatal("failed to seed fare settings", "error", err)
		}
		log.Info("fare settings seeded")
	case err != nil:
		log.Fatal("failed to read fare settings", "error", err)
	default:
		log.Info("fare settings present, left unchanged")
	}

	// ── Administrator ───────────────────────────────────
	if cfg.Auth.AdminPassword == "" {
		log.Fatal("AUTH_ADMIN_PASSWORD is required to create the admin account")
	}
	auth := service.NewAuthService(repository.NewUserRepository(pool), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, calendar.SystemClock{}, log)
	u, err := auth.EnsureAdmin(ctx, cfg.Auth.AdminEmail, *adminName, cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatal("failed to create admin", "error", err)
	}
	log.Info("admin ready", "email", u.Email)
}
