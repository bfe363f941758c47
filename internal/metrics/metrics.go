package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	LeaseEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrconf_lease_events_total",
			Help: "Total number of lease transitions received, by event",
		},
		[]string{"event"},
	)

	HandlerApplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrconf_handler_apply_total",
			Help: "Total number of target handler Apply calls, by target and result",
		},
		[]string{"target", "result"},
	)

	HandlerRestores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrconf_handler_restore_total",
			Help: "Total number of target handler Restore calls, by target and result",
		},
		[]string{"target", "result"},
	)

	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrconf_fallbacks_total",
			Help: "Fallback searches after a target lost its owner, by target and result",
		},
		[]string{"target", "result"},
	)

	TargetOwned = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "addrconf_target_owned",
			Help: "Whether a lease currently owns the target (1) or the system default is in effect (0)",
		},
		[]string{"target"},
	)

	UpdateLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "addrconf_update_latency_seconds",
			Help:    "Latency of one arbitration pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrconf_notifications_dropped_total",
			Help: "Lease notifications dropped before arbitration, by reason",
		},
		[]string{"reason"},
	)
)

func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func StartMetricsServer(listenAddr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
	return nil
}
