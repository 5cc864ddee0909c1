package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/geo"
	"github.com/urbannassau/rides/pkg/logger"
	"github.com/urbannassau/rides/pkg/whatsapp"
)

// ─── Fare formula ───────────────────────────────────────────
//
//   base       = premium base if service is ride-premium, else standard base
//   distance   = max(0, miles − free miles) × per-mile rate
//   passengers = max(0, passengers − 1) × passenger fee
//   total      = base + distance + passengers
//
// Every component is rounded to cents.

// FareBreakdown is the itemised fare of one trip.
type FareBreakdown struct {
	BaseFare      float64 `json:"baseFare"`
	DistanceFare  float64 `json:"distanceFare"`
	PassengerFare float64 `json:"passengerFare"`
	TotalFare     float64 `json:"totalFare"`
}

// CalculateFare applies settings to a trip.
func CalculateFare(settings model.FareSettings, serviceType string, distance float64, passengers int) FareBreakdown {
	base := settings.RideStandardBase
	if serviceType == model.ServiceRidePremium {
		base = settings.RidePremiumBase
	}
	distanceFare := math.Max(0, distance-settings.FreeDistance) * settings.PerMileRate
	passengerFare := float64(max(0, passengers-1)) * settings.PassengerFee

	b := FareBreakdown{
		BaseFare:      roundCents(base),
		DistanceFare:  roundCents(distanceFare),
		PassengerFare: roundCents(passengerFare),
	}
	b.TotalFare = roundCents(b.BaseFare + b.DistanceFare + b.PassengerFare)
	return b
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ─── FareService ────────────────────────────────────────────

// FareRequest is a quote request. When Distance is zero and both locations
// are given, the distance is estimated from the coordinates.
type FareRequest struct {
	ServiceType    string     `json:"serviceType"`
	PickupAddress  string     `json:"pickupAddress"`
	DropoffAddress string     `json:"dropoffAddress"`
	PickupLoc      *geo.Point `json:"pickupLocation,omitempty"`
	DropoffLoc     *geo.Point `json:"dropoffLocation,omitempty"`
	Distance       float64    `json:"distance"`
	Passengers     int        `json:"passengers"`
}

// FareEstimate is a computed quote with its WhatsApp handoff link.
type FareEstimate struct {
	FareBreakdown
	ServiceType       string  `json:"serviceType"`
	Distance          float64 `json:"distance"`
	DistanceEstimated bool    `json:"distanceEstimated,omitempty"`
	DriveMinutes      int     `json:"driveMinutes,omitempty"`
	Passengers        int     `json:"passengers"`
	WhatsAppURL       string  `json:"whatsappUrl,omitempty"`
}

// FareService quotes trips against the current fare settings and records
// quotes customers choose to send.
type FareService struct {
	settings       repository.SettingsStore
	quotes         repository.QuoteStore
	log            logger.Logger
	businessNumber string
}

// NewFareService creates a fare service.
func NewFareService(settings repository.SettingsStore, quotes repository.QuoteStore, log logger.Logger, businessNumber string) *FareService {
	return &FareService{
		settings:       settings,
		quotes:         quotes,
		log:            logger.ForComponent(log, "fares"),
		businessNumber: businessNumber,
	}
}

// Estimate prices req. Missing passengers count as one.
func (s *FareService) Estimate(ctx context.Context, req FareRequest) (*FareEstimate, error) {
	estimated := req.Distance == 0 && req.PickupLoc != nil && req.DropoffLoc != nil
	if estimated {
		if !req.PickupLoc.Valid() || !req.DropoffLoc.Valid() {
			return nil, invalid("pickupLocation", "coordinates out of range")
		}
		req.Distance = geo.RoadMiles(*req.PickupLoc, *req.DropoffLoc)
	}

	req, err := normalizeFareRequest(req)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("estimate fare: %w", err)
	}

	breakdown := CalculateFare(*settings, req.ServiceType, req.Distance, req.Passengers)
	estimate := &FareEstimate{
		FareBreakdown:     breakdown,
		ServiceType:       req.ServiceType,
		Distance:          req.Distance,
		DistanceEstimated: estimated,
		DriveMinutes:      geo.DriveMinutes(req.Distance),
		Passengers:        req.Passengers,
	}
	if s.businessNumber != "" {
		estimate.WhatsAppURL = whatsapp.Link(s.businessNumber, whatsapp.QuoteMessage(whatsapp.Quote{
			Pickup:     req.PickupAddress,
			Dropoff:    req.DropoffAddress,
			Distance:   req.Distance,
			Passengers: req.Passengers,
			Premium:    req.ServiceType == model.ServiceRidePremium,
			TotalFare:  breakdown.TotalFare,
		}))
	}

	s.log.Debug("fare estimated", "service", req.ServiceType, "distance", req.Distance, "total", breakdown.TotalFare)
	return estimate, nil
}

// SaveQuote records a quote the customer sent. The stored amounts come from
// the client and are only bounds-checked.
func (s *FareService) SaveQuote(ctx context.Context, q model.FareQuote) (*model.FareQuote, error) {
	q.ServiceType = strings.TrimSpace(q.ServiceType)
	q.PickupAddress = strings.TrimSpace(q.PickupAddress)
	q.DropoffAddress = strings.TrimSpace(q.DropoffAddress)

	switch {
	case q.ServiceType == "":
		return nil, invalid("serviceType", "is required")
	case utf8.RuneCountInString(q.ServiceType) > model.MaxServiceTypeLength:
		return nil, invalid("serviceType", fmt.Sprintf("must be at most %d characters", model.MaxServiceTypeLength))
	case utf8.RuneCountInString(q.PickupAddress) > model.MaxAddressLength:
		return nil, invalid("pickupAddress", fmt.Sprintf("must be at most %d characters", model.MaxAddressLength))
	case utf8.RuneCountInString(q.DropoffAddress) > model.MaxAddressLength:
		return nil, invalid("dropoffAddress", fmt.Sprintf("must be at most %d characters", model.MaxAddressLength))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"distance", q.Distance},
		{"baseFare", q.BaseFare},
		{"distanceFare", q.DistanceFare},
		{"passengerFare", q.PassengerFare},
		{"totalFare", q.TotalFare},
	} {
		if !inRange(f.v, math.MaxFloat64) {
			return nil, invalid(f.name, "must be a finite number >= 0")
		}
	}
	if q.Passengers < 0 {
		return nil, invalid("passengers", "must be >= 0")
	}

	if err := s.quotes.Create(ctx, &q); err != nil {
		return nil, fmt.Errorf("save quote: %w", err)
	}
	s.log.Info("quote saved", "id", q.ID, "total", q.TotalFare)
	return &q, nil
}

func normalizeFareRequest(req FareRequest) (FareRequest, error) {
	req.ServiceType = strings.TrimSpace(req.ServiceType)
	req.PickupAddress = strings.TrimSpace(req.PickupAddress)
	req.DropoffAddress = strings.TrimSpace(req.DropoffAddress)
	if req.ServiceType == "" {
		req.ServiceType = model.ServiceRideStandard
	}
	if req.Passengers == 0 {
		req.Passengers = 1
	}

	switch {
	case utf8.RuneCountInString(req.ServiceType) > model.MaxServiceTypeLength:
		return req, invalid("serviceType", fmt.Sprintf("must be at most %d characters", model.MaxServiceTypeLength))
	case utf8.RuneCountInString(req.PickupAddress) > model.MaxAddressLength:
		return req, invalid("pickupAddress", fmt.Sprintf("must be at most %d characters", model.MaxAddressLength))
	case utf8.RuneCountInString(req.DropoffAddress) > model.MaxAddressLength:
		return req, invalid("dropoffAddress", fmt.Sprintf("must be at most %d characters", model.MaxAddressLength))
	case !inRange(req.Distance, model.MaxDistanceMiles):
		return req, invalid("distance", fmt.Sprintf("must be between 0 and %g", model.MaxDistanceMiles))
	case req.Passengers < model.MinPassengers || req.Passengers > model.MaxPassengers:
		return req, invalid("passengers", fmt.Sprintf("must be between %d and %d", model.MinPassengers, model.MaxPassengers))
	}
	return req, nil
}
