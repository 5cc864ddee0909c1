package whatsapp

import (
	"net/url"
	"strings"
	"testing"
)

func TestLink_StripsNonDigitsAndEscapes(t *testing.T) {
	got := Link("+1 (242) 555-0100", "Hi & bye")
	if !strings.HasPrefix(got, "https://wa.me/12425550100?text=") {
		t.Fatalf("Link = %q, want wa.me/12425550100 prefix", got)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if text := u.Query().Get("text"); text != "Hi & bye" {
		t.Fatalf("text = %q, want %q", text, "Hi & bye")
	}
}

func TestLink_EmptyMessage(t *testing.T) {
	if got := Link("12425550100", ""); got != "https://wa.me/12425550100" {
		t.Fatalf("Link = %q", got)
	}
}

func TestQuoteMessage(t *testing.T) {
	msg := QuoteMessage(Quote{
		Pickup: "Cable Beach", Dropoff: "Airport", Distance: 7.5,
		Passengers: 2, Premium: true, TotalFare: 35,
	})
	for _, want := range []string{"Pickup: Cable Beach", "Dropoff: Airport", "7.5 miles", "Passengers: 2", "Service: Premium", "$35.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("QuoteMessage missing %q:\n%s", want, msg)
		}
	}
}

func TestBookingMessage(t *testing.T) {
	msg := BookingMessage(Booking{
		ID: 42, Date: "2026-10-29", HourDisplay: "7:00 AM",
		ServiceType: "courier", Pickup: "A", Dropoff: "B",
	})
	for _, want := range []string{"#42", "2026-10-29 at 7:00 AM", "Service: courier"} {
		if !strings.Contains(msg, want) {
			t.Errorf("BookingMessage missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Estimated Fare") {
		t.Error("zero fare should be omitted")
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := map[float64]string{
		0:       "$0.00",
		15:      "$15.00",
		19.999:  "$20.00",
		1234.5:  "$1,234.50",
		1000000: "$1,000,000.00",
		-4.25:   "-$4.25",
	}
	for in, want := range cases {
		if got := FormatCurrency(in); got != want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", in, got, want)
		}
	}
}
