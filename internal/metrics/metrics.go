package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turquaz",
			Name:      "reservation_submitted_total",
			Help:      "Count of reservation submissions by outcome.",
		},
		[]string{"outcome"},
	)

	availabilityFetch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turquaz",
			Name:      "availability_fetch_total",
			Help:      "Count of availability fetches by result.",
		},
		[]string{"result"},
	)

	adminLogin = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turquaz",
			Name:      "admin_login_total",
			Help:      "Count of admin login attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationSubmitted, availabilityFetch, adminLogin)
	})
}

func IncReservationSubmitted(outcome string) {
	reservationSubmitted.WithLabelValues(outcome).Inc()
}

func IncAvailabilityFetch(result string) {
	availabilityFetch.WithLabelValues(result).Inc()
}

func IncAdminLogin(result string) {
	adminLogin.WithLabelValues(result).Inc()
}
