package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/logger"
)

// maxFareSetting bounds every fare setting so a typo cannot publish absurd quotes.
const maxFareSetting = 10000.0

// SettingsService reads and updates the fare settings.
type SettingsService struct {
	store repository.SettingsStore
	log   logger.Logger
}

// NewSettingsService creates a settings service.
func NewSettingsService(store repository.SettingsStore, log logger.Logger) *SettingsService {
	return &SettingsService{store: store, log: logger.ForComponent(log, "settings")}
}

// Get returns the current fare settings.
func (s *SettingsService) Get(ctx context.Context) (*model.FareSettings, error) {
	fs, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return fs, nil
}

// Update validates and stores fs.
func (s *SettingsService) Update(ctx context.Context, fs model.FareSettings) (*model.FareSettings, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"rideStandardBase", fs.RideStandardBase},
		{"ridePremiumBase", fs.RidePremiumBase},
		{"freeDistance", fs.FreeDistance},
		{"perMileRate", fs.PerMileRate},
		{"passengerFee", fs.PassengerFee},
		{"courierBase", fs.CourierBase},
		{"errandBase", fs.ErrandBase},
		{"shoppingBase", fs.ShoppingBase},
		{"transportBase", fs.TransportBase},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > maxFareSetting {
			return nil, invalid(f.name, fmt.Sprintf("must be between 0 and %g", maxFareSetting))
		}
	}

	updated, err := s.store.Upsert(ctx, fs)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	s.log.Info("fare settings updated",
		"standard", updated.RideStandardBase, "premium", updated.RidePremiumBase, "perMile", updated.PerMileRate)
	return updated, nil
}
