package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbannassau/rides/internal/middleware"
	"github.com/urbannassau/rides/pkg/logger"
	"github.com/urbannassau/rides/pkg/metrics"
)

// RouterDeps collects everything NewRouter mounts.
type RouterDeps struct {
	Bookings       *BookingHandler
	Pricing        *PricingHandler
	Auth           *AuthHandler
	Admin          *AdminHandler
	Tokens         middleware.TokenParser
	Health         map[string]HealthCheck
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer // nil disables /metrics
	Log            logger.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP routes.
//
//	GET    /health
//	GET    /metrics
//	GET    /api/bookings?date=
//	POST   /api/bookings
//	PATCH  /api/bookings/{id}              (admin)
//	POST   /api/fares/estimate
//	POST   /api/fares
//	GET    /api/settings
//	PUT    /api/settings                   (admin)
//	POST   /api/auth/login
//	GET    /api/admin/bookings             (admin)
//	GET    /api/admin/bookings/manifest    (admin)
func NewRouter(d RouterDeps) http.Handler {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer(d.Log),
		middleware.RequestLogger(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.CORS,
		middleware.Timeout(d.RequestTimeout),
	)

	router.HandleFunc("/health", Health(d.Health)).Methods(http.MethodGet)
	if d.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	admin := middleware.AdminOnly(d.Tokens)

	api := router.PathPrefix("/api").Subrouter()
	// Methods include OPTIONS so CORS preflights match a route.
	api.HandleFunc("/bookings", d.Bookings.Availability).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings", d.Bookings.Create).Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/bookings/{id}", admin(http.HandlerFunc(d.Bookings.Transition))).Methods(http.MethodPatch, http.MethodOptions)

	api.HandleFunc("/fares/estimate", d.Pricing.Estimate).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/fares", d.Pricing.SaveQuote).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/settings", d.Pricing.GetSettings).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/settings", admin(http.HandlerFunc(d.Pricing.UpdateSettings))).Methods(http.MethodPut, http.MethodOptions)

	api.HandleFunc("/auth/login", d.Auth.Login).Methods(http.MethodPost, http.MethodOptions)

	adm := api.PathPrefix("/admin").Subrouter()
	adm.Use(admin)
	adm.HandleFunc("/bookings", d.Admin.List).Methods(http.MethodGet, http.MethodOptions)
	adm.HandleFunc("/bookings/manifest", d.Admin.Manifest).Methods(http.MethodGet, http.MethodOptions)

	return router
}
