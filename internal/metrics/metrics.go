package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tugende_logins_total",
		Help: "Successful logins by method (otp, password)",
	}, []string{"method"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugende_bookings_created_total",
		Help: "Carpooling bookings created (PENDING)",
	})

	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugende_bookings_confirmed_total",
		Help: "Carpooling bookings confirmed by drivers",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugende_bookings_cancelled_total",
		Help: "Carpooling bookings cancelled by passengers",
	})

	TicketsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugende_tickets_sold_total",
		Help: "Bus ticket bookings created",
	})

	TicketsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugende_tickets_cancelled_total",
		Help: "Bus ticket bookings cancelled",
	})

	VerificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tugende_verification_decisions_total",
		Help: "Verification review decisions by action",
	}, []string{"action"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugende_messages_sent_total",
		Help: "Chat messages sent between booking parties",
	})
)

// RegisterWebsocketClients exposes the hub's live connection count as a
// gauge sampled at scrape time.
func RegisterWebsocketClients(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tugende_websocket_clients",
		Help: "Currently connected websocket clients",
	}, func() float64 { return float64(count()) })
}
