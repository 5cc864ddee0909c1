// Package model contains the persisted records of the booking system.
// These structs map to the PostgreSQL schema in migrations/001_create_schema.up.sql.
package model

import "time"

// ─── Enums ──────────────────────────────────────────────────

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed" // set outside this service
)

// HoldsCapacity reports whether a booking in this status occupies its hour bucket.
func (s BookingStatus) HoldsCapacity() bool {
	return s != StatusCancelled
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

const (
	ServiceRideStandard = "ride-standard"
	ServiceRidePremium  = "ride-premium"
)

// ─── Field bounds ───────────────────────────────────────────

const (
	MaxAddressLength     = 500
	MaxServiceTypeLength = 100
	MaxPhoneLength       = 32
	MinPassengers        = 1
	MaxPassengers        = 6
	MaxDistanceMiles     = 500.0
	MaxTotalFare         = 10000.0
)

// ─── Records ────────────────────────────────────────────────

// Booking maps to the `bookings` table. One row holds one unit of hourly
// capacity unless cancelled.
type Booking struct {
	ID             int64         `json:"id"`
	BookingDate    time.Time     `json:"bookingDate"` // midnight of the booked day
	BookingHour    int           `json:"bookingHour"`
	ServiceType    string        `json:"serviceType"`
	PickupAddress  string        `json:"pickupAddress"`
	DropoffAddress string        `json:"dropoffAddress"`
	Distance       float64       `json:"distance"`
	Passengers     int           `json:"passengers"`
	TotalFare      float64       `json:"totalFare"`
	CustomerPhone  string        `json:"customerPhone,omitempty"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// BookingFilter narrows administrator listings. Zero values mean "any".
type BookingFilter struct {
	From   time.Time
	To     time.Time
	Status BookingStatus
	Limit  int
}

// FareSettings maps to the single-row `fare_settings` table.
type FareSettings struct {
	RideStandardBase float64   `json:"rideStandardBase"`
	RidePremiumBase  float64   `json:"ridePremiumBase"`
	FreeDistance     float64   `json:"freeDistance"`
	PerMileRate      float64   `json:"perMileRate"`
	PassengerFee     float64   `json:"passengerFee"`
	CourierBase      float64   `json:"courierBase"`
	ErrandBase       float64   `json:"errandBase"`
	ShoppingBase     float64   `json:"shoppingBase"`
	TransportBase    float64   `json:"transportBase"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultFareSettings returns the seed values for a fresh database.
func DefaultFareSettings() FareSettings {
	return FareSettings{
		RideStandardBase: 15,
		RidePremiumBase:  20,
		FreeDistance:     5,
		PerMileRate:      4,
		PassengerFee:     5,
		CourierBase:      12,
		ErrandBase:       25,
		ShoppingBase:     50,
		TransportBase:    20,
	}
}

// FareQuote maps to the `fare_quotes` table: a quote a customer sent via WhatsApp.
type FareQuote struct {
	ID             int64     `json:"id"`
	ServiceType    string    `json:"serviceType"`
	PickupAddress  string    `json:"pickupAddress"`
	DropoffAddress string    `json:"dropoffAddress"`
	Distance       float64   `json:"distance"`
	Passengers     int       `json:"passengers"`
	BaseFare       float64   `json:"baseFare"`
	DistanceFare   float64   `json:"distanceFare"`
	PassengerFare  float64   `json:"passengerFare"`
	TotalFare      float64   `json:"totalFare"`
	CreatedAt      time.Time `json:"createdAt"`
}

// User maps to the `users` table (administrators).
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
