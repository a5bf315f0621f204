package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayhold",
			Name:      "sessions_started_total",
			Help:      "Checkout sessions created.",
		},
	)

	locksAcquired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayhold",
			Name:      "locks_acquired_total",
			Help:      "Room holds granted by the lock backend.",
		},
	)

	lockFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhold",
			Name:      "lock_failures_total",
			Help:      "Rejected lock attempts by reason.",
		},
		[]string{"reason"},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayhold",
			Name:      "sessions_expired_total",
			Help:      "Sessions force-terminated by the countdown.",
		},
	)

	bookingsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayhold",
			Name:      "bookings_confirmed_total",
			Help:      "Checkouts that reached confirmation.",
		},
	)

	paymentsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stayhold",
			Name:      "payments_failed_total",
			Help:      "Confirm calls rejected at the payment step.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			sessionsStarted,
			locksAcquired,
			lockFailures,
			sessionsExpired,
			bookingsConfirmed,
			paymentsFailed,
		)
	})
}

func IncSessionStarted() { sessionsStarted.Inc() }

func IncLockAcquired() { locksAcquired.Inc() }

// IncLockFailure counts a rejected lock attempt by reason label.
func IncLockFailure(reason string) { lockFailures.WithLabelValues(reason).Inc() }

func IncSessionExpired() { sessionsExpired.Inc() }

func IncBookingConfirmed() { bookingsConfirmed.Inc() }

func IncPaymentFailed() { paymentsFailed.Inc() }
