package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instrumentation surfaced by the engine: the
// breakout domain's own counters and histograms.
type Metrics struct {
	TicksTotal          prometheus.Counter
	SpikeRejectedTotal  prometheus.Counter
	ParseErrorsTotal    prometheus.Counter
	SignalsEmittedTotal *prometheus.CounterVec // labels: state
	SignalsDupeTotal    prometheus.Counter
	DeliveryFailures    *prometheus.CounterVec // labels: sink
	StoreCommitDur      prometheus.Histogram
	TickProcessDur      prometheus.Histogram

	CacheCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheCircuitBreakerTrips prometheus.Counter

	WSClientsConnected prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakoutengine_ticks_total",
			Help: "Total ticks processed by the Engine Coordinator",
		}),
		SpikeRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakoutengine_spike_rejected_total",
			Help: "Candlestick bars dropped by the spike filter",
		}),
		ParseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakoutengine_parse_errors_total",
			Help: "Payloads rejected by the Normalizer",
		}),
		SignalsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakoutengine_signals_emitted_total",
			Help: "Terminal signals durably emitted, by state",
		}, []string{"state"}),
		SignalsDupeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakoutengine_signals_duplicate_total",
			Help: "EmitIfNew calls resolved as duplicate",
		}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakoutengine_sink_delivery_failures_total",
			Help: "Sink delivery failures, by sink name",
		}, []string{"sink"}),
		StoreCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakoutengine_signal_store_commit_duration_seconds",
			Help:    "Signal Store insert latency",
			Buckets: prometheus.DefBuckets,
		}),
		TickProcessDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakoutengine_tick_process_duration_seconds",
			Help:    "EvaluateTick processing latency",
			Buckets: prometheus.DefBuckets,
		}),
		CacheCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakoutengine_cache_circuit_breaker_state",
			Help: "Dedup cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakoutengine_cache_circuit_breaker_trips_total",
			Help: "Times the dedup cache circuit breaker tripped open",
		}),
		WSClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakoutengine_ws_clients_connected",
			Help: "Connected WebSocket signal-broadcast clients",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.SpikeRejectedTotal,
		m.ParseErrorsTotal,
		m.SignalsEmittedTotal,
		m.SignalsDupeTotal,
		m.DeliveryFailures,
		m.StoreCommitDur,
		m.TickProcessDur,
		m.CacheCircuitBreakerState,
		m.CacheCircuitBreakerTrips,
		m.WSClientsConnected,
	)

	return m
}

// HealthStatus tracks the liveness of the engine's durable dependencies for
// the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected   bool      `json:"feed_connected"`
	LastTickTime    time.Time `json:"last_tick_time"`
	SignalStoreOK   bool      `json:"signal_store_ok"`
	CacheConnected  bool      `json:"cache_connected"`
	StartedAt       time.Time `json:"-"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetSignalStoreOK(v bool) {
	h.mu.Lock()
	h.SignalStoreOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetCacheConnected(v bool) {
	h.mu.Lock()
	h.CacheConnected = v
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	httpCode := http.StatusOK
	if !h.FeedConnected || !h.SignalStoreOK {
		status = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.SignalStoreOK {
		status = "unhealthy"
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	body := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		FeedConnected  bool   `json:"feed_connected"`
		TickAge        string `json:"tick_age"`
		SignalStoreOK  bool   `json:"signal_store_ok"`
		CacheConnected bool   `json:"cache_connected"`
	}{
		Status:         status,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected:  h.FeedConnected,
		TickAge:        tickAge,
		SignalStoreOK:  h.SignalStoreOK,
		CacheConnected: h.CacheConnected,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[telemetry] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[telemetry] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
