// Package whatsapp composes click-to-chat handoff links. Bookings and quotes
// are not sent by the service itself: the customer opens the link and sends
// the prefilled message to the business number.
package whatsapp

import (
	"fmt"
	"net/url"
	"strings"
)

const baseURL = "https://wa.me/"

// Link builds https://wa.me/<digits>?text=<message>. Non-digits are stripped
// from phone; an empty message yields a bare chat link.
func Link(phone, message string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	link := baseURL + digits.String()
	if message == "" {
		return link
	}
	return link + "?text=" + url.QueryEscape(message)
}

// Quote is the content of a fare quote message.
type Quote struct {
	Pickup     string
	Dropoff    string
	Distance   float64
	Passengers int
	Premium    bool
	TotalFare  float64
}

// QuoteMessage renders the ride quote request a customer sends.
func QuoteMessage(q Quote) string {
	service := "Standard"
	if q.Premium {
		service = "Premium"
	}
	var b strings.Builder
	b.WriteString("Hi! I need a ride quote:\n\n")
	fmt.Fprintf(&b, "📍 Pickup: %s\n", q.Pickup)
	fmt.Fprintf(&b, "📍 Dropoff: %s\n", q.Dropoff)
	fmt.Fprintf(&b, "📏 Distance: %s miles\n", trimFloat(q.Distance))
	fmt.Fprintf(&b, "👥 Passengers: %d\n", q.Passengers)
	fmt.Fprintf(&b, "🚗 Service: %s\n\n", service)
	fmt.Fprintf(&b, "💰 Estimated Fare: %s\n\n", FormatCurrency(q.TotalFare))
	b.WriteString("Can I book this ride?")
	return b.String()
}

// Booking is the content of a booking handoff message.
type Booking struct {
	ID          int64
	Date        string
	HourDisplay string
	ServiceType string
	Pickup      string
	Dropoff     string
	Passengers  int
	TotalFare   float64
}

// BookingMessage renders the message that follows a pending booking.
func BookingMessage(bk Booking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi! I just requested booking #%d:\n\n", bk.ID)
	fmt.Fprintf(&b, "📅 Date: %s at %s\n", bk.Date, bk.HourDisplay)
	fmt.Fprintf(&b, "🚗 Service: %s\n", bk.ServiceType)
	fmt.Fprintf(&b, "📍 Pickup: %s\n", bk.Pickup)
	fmt.Fprintf(&b, "📍 Dropoff: %s\n", bk.Dropoff)
	if bk.Passengers > 0 {
		fmt.Fprintf(&b, "👥 Passengers: %d\n", bk.Passengers)
	}
	if bk.TotalFare > 0 {
		fmt.Fprintf(&b, "💰 Estimated Fare: %s\n", FormatCurrency(bk.TotalFare))
	}
	b.WriteString("\nPlease confirm my booking.")
	return b.String()
}

// FormatCurrency renders USD amounts as "$1,234.50".
func FormatCurrency(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	cents := int64(amount*100 + 0.5)
	whole, frac := cents/100, cents%100

	s := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	out := fmt.Sprintf("$%s.%02d", grouped.String(), frac)
	if neg {
		out = "-" + out
	}
	return out
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
