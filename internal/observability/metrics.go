package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VendorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetsync_vendor_calls_total",
		Help: "Vendor API calls by action and result",
	}, []string{"action", "result"})
	VendorBackoffs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetsync_vendor_backoffs_total",
		Help: "Backoff windows published after vendor throttling",
	})
	VendorCallLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetsync_vendor_call_seconds",
		Help:    "Vendor call latency",
		Buckets: prometheus.DefBuckets,
	})
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetsync_sync_runs_total",
		Help: "Trip sync runs by result",
	}, []string{"result"})
	TripsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetsync_trips_inserted_total",
		Help: "New trips stored by the sync engine",
	})
	ReadingsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetsync_readings_inserted_total",
		Help: "Normalized readings stored",
	})
	CoordinatesBackfilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetsync_coordinates_backfilled_total",
		Help: "Trip endpoint coordinates recovered from the position store",
	})
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetsync_events_emitted_total",
		Help: "Derived lifecycle events by type",
	}, []string{"type"})
)

func ObserveVendorCall(start time.Time) {
	VendorCallLatency.Observe(time.Since(start).Seconds())
}

func StartMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	_ = http.ListenAndServe(":"+port, nil)
}
