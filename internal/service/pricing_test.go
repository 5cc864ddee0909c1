package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/geo"
	"github.com/urbannassau/rides/pkg/logger"
)

func TestCalculateFare(t *testing.T) {
	defaults := model.DefaultFareSettings()
	cases := []struct {
		name       string
		settings   model.FareSettings
		service    string
		distance   float64
		passengers int
		want       FareBreakdown
	}{
		{
			name: "standard within free distance", settings: defaults,
			service: model.ServiceRideStandard, distance: 3, passengers: 1,
			want: FareBreakdown{BaseFare: 15, TotalFare: 15},
		},
		{
			name: "premium with extras", settings: defaults,
			service: model.ServiceRidePremium, distance: 10, passengers: 3,
			want: FareBreakdown{BaseFare: 20, DistanceFare: 20, PassengerFare: 10, TotalFare: 50},
		},
		{
			name: "unknown service uses standard base", settings: defaults,
			service: "courier", distance: 5, passengers: 1,
			want: FareBreakdown{BaseFare: 15, TotalFare: 15},
		},
		{
			name: "rounds to cents", settings: model.FareSettings{RideStandardBase: 10, PerMileRate: 1.333},
			service: model.ServiceRideStandard, distance: 2, passengers: 1,
			want: FareBreakdown{BaseFare: 10, DistanceFare: 2.67, TotalFare: 12.67},
		},
		{
			name: "zero passengers adds nothing", settings: defaults,
			service: model.ServiceRideStandard, distance: 0, passengers: 0,
			want: FareBreakdown{BaseFare: 15, TotalFare: 15},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateFare(tc.settings, tc.service, tc.distance, tc.passengers)
			if math.Abs(got.TotalFare-tc.want.TotalFare) > 1e-9 ||
				math.Abs(got.BaseFare-tc.want.BaseFare) > 1e-9 ||
				math.Abs(got.DistanceFare-tc.want.DistanceFare) > 1e-9 ||
				math.Abs(got.PassengerFare-tc.want.PassengerFare) > 1e-9 {
				t.Errorf("CalculateFare = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func newFareService(seed *model.FareSettings) (*FareService, *repository.MemoryQuoteStore) {
	quotes := repository.NewMemoryQuoteStore()
	return NewFareService(repository.NewMemorySettingsStore(seed), quotes, logger.Nop(), "12425550100"), quotes
}

func TestEstimate(t *testing.T) {
	defaults := model.DefaultFareSettings()
	svc, _ := newFareService(&defaults)

	est, err := svc.Estimate(context.Background(), FareRequest{
		ServiceType:    model.ServiceRidePremium,
		PickupAddress:  "Airport",
		DropoffAddress: "Paradise Island",
		Distance:       8,
	})
	if err != nil {
		t.Fatal(err)
	}
	if est.Passengers != 1 {
		t.Errorf("passengers = %d, want default 1", est.Passengers)
	}
	if est.TotalFare != 32 {
		t.Errorf("total = %v, want 32", est.TotalFare)
	}
	if !strings.HasPrefix(est.WhatsAppURL, "https://wa.me/12425550100?text=") {
		t.Errorf("whatsapp url = %q", est.WhatsAppURL)
	}
}

func TestEstimate_DistanceFromCoordinates(t *testing.T) {
	defaults := model.DefaultFareSettings()
	svc, _ := newFareService(&defaults)

	airport := geo.Point{Lat: 25.0389, Lng: -77.4662}
	bayStreet := geo.Point{Lat: 25.0780, Lng: -77.3431}
	est, err := svc.Estimate(context.Background(), FareRequest{PickupLoc: &airport, DropoffLoc: &bayStreet})
	if err != nil {
		t.Fatal(err)
	}
	if !est.DistanceEstimated || est.Distance != geo.RoadMiles(airport, bayStreet) {
		t.Errorf("distance = %v (estimated %v)", est.Distance, est.DistanceEstimated)
	}
	if est.DriveMinutes != geo.DriveMinutes(est.Distance) || est.DriveMinutes == 0 {
		t.Errorf("drive minutes = %d", est.DriveMinutes)
	}
	if want := CalculateFare(defaults, model.ServiceRideStandard, est.Distance, 1).TotalFare; est.TotalFare != want {
		t.Errorf("total = %v, want %v", est.TotalFare, want)
	}

	// A client-supplied distance wins over coordinates.
	est, err = svc.Estimate(context.Background(), FareRequest{PickupLoc: &airport, DropoffLoc: &bayStreet, Distance: 2})
	if err != nil {
		t.Fatal(err)
	}
	if est.DistanceEstimated || est.Distance != 2 {
		t.Errorf("distance = %v (estimated %v), want client value 2", est.Distance, est.DistanceEstimated)
	}

	var bad *ValidationError
	if _, err := svc.Estimate(context.Background(), FareRequest{PickupLoc: &geo.Point{Lat: 200}, DropoffLoc: &bayStreet}); !errors.As(err, &bad) {
		t.Errorf("bad coordinates: err = %v, want ValidationError", err)
	}
}

func TestEstimate_Errors(t *testing.T) {
	svc, _ := newFareService(nil)
	if _, err := svc.Estimate(context.Background(), FareRequest{Distance: 3}); !errors.Is(err, ErrSettingsNotFound) {
		t.Errorf("unseeded: err = %v, want ErrSettingsNotFound", err)
	}

	defaults := model.DefaultFareSettings()
	svc, _ = newFareService(&defaults)
	var bad *ValidationError
	for _, req := range []FareRequest{
		{Distance: -1},
		{Distance: math.Inf(1)},
		{Distance: 1, Passengers: 9},
		{Distance: 1, PickupAddress: strings.Repeat("x", model.MaxAddressLength+1)},
	} {
		if _, err := svc.Estimate(context.Background(), req); !errors.As(err, &bad) {
			t.Errorf("Estimate(%+v) err = %v, want ValidationError", req, err)
		}
	}
}

func TestEstimate_AddressLimitCountsCharacters(t *testing.T) {
	defaults := model.DefaultFareSettings()
	svc, _ := newFareService(&defaults)

	atLimit := strings.Repeat("é", model.MaxAddressLength)
	if _, err := svc.Estimate(context.Background(), FareRequest{Distance: 1, DropoffAddress: atLimit}); err != nil {
		t.Fatalf("estimate: %v", err)
	}
	q := model.FareQuote{ServiceType: "ride-standard", PickupAddress: atLimit, DropoffAddress: "B", Distance: 1, TotalFare: 15}
	if _, err := svc.SaveQuote(context.Background(), q); err != nil {
		t.Fatalf("save quote: %v", err)
	}

	var bad *ValidationError
	q.PickupAddress += "é"
	if _, err := svc.SaveQuote(context.Background(), q); !errors.As(err, &bad) || bad.Field != "pickupAddress" {
		t.Errorf("over limit: err = %v", err)
	}
}

func TestSaveQuote(t *testing.T) {
	svc, _ := newFareService(nil)

	q, err := svc.SaveQuote(context.Background(), model.FareQuote{
		ServiceType: "ride-standard", PickupAddress: "A", DropoffAddress: "B",
		Distance: 6, Passengers: 2, BaseFare: 15, DistanceFare: 4, PassengerFare: 5, TotalFare: 24,
	})
	if err != nil {
		t.Fatal(err)
	}
	if q.ID == 0 || q.CreatedAt.IsZero() {
		t.Errorf("quote not persisted: %+v", q)
	}

	var bad *ValidationError
	if _, err := svc.SaveQuote(context.Background(), model.FareQuote{ServiceType: "x", TotalFare: math.NaN()}); !errors.As(err, &bad) || bad.Field != "totalFare" {
		t.Errorf("NaN total: err = %v", err)
	}
	if _, err := svc.SaveQuote(context.Background(), model.FareQuote{}); !errors.As(err, &bad) || bad.Field != "serviceType" {
		t.Errorf("empty service: err = %v", err)
	}
}

func TestSettingsUpdate(t *testing.T) {
	svc := NewSettingsService(repository.NewMemorySettingsStore(nil), logger.Nop())

	if _, err := svc.Get(context.Background()); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("unseeded: err = %v", err)
	}

	fs := model.DefaultFareSettings()
	fs.PerMileRate = 4.5
	if _, err := svc.Update(context.Background(), fs); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.PerMileRate != 4.5 {
		t.Errorf("perMileRate = %v, want 4.5", got.PerMileRate)
	}

	fs.PassengerFee = -1
	var bad *ValidationError
	if _, err := svc.Update(context.Background(), fs); !errors.As(err, &bad) || bad.Field != "passengerFee" {
		t.Errorf("negative fee: err = %v", err)
	}
}
