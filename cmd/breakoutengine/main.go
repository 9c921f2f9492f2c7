// Command breakoutengine is the engine process: it wires the Data Store,
// Config Resolver, State Machine and Signal Emitter behind an HTTP
// ingestion surface, since this engine never manages its own exchange feed
// connection (spec §6 Non-goal) — candlestick and order book payloads
// arrive over HTTP from whatever upstream feed adapter a deployment
// chooses. One fat main: parse env config, construct collaborators, build
// one mux, serve until SIGINT/SIGTERM.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/internal/coordinator"
	"breakoutengine/internal/emitter"
	"breakoutengine/internal/model"
	"breakoutengine/internal/notification"
	"breakoutengine/internal/planconfig"
	"breakoutengine/internal/store/rediscache"
	"breakoutengine/internal/store/sqlite"
	"breakoutengine/internal/telemetry"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[breakoutengine] starting...")

	telemetry.InitLogger("breakoutengine", slog.LevelInfo)

	cfg := config.Load()

	signalStore, err := sqlite.New(sqlite.StoreConfig{DBPath: cfg.SignalStorePath})
	if err != nil {
		log.Fatalf("[breakoutengine] signal store init failed: %v", err)
	}
	defer signalStore.Close()

	hub := notification.NewHub()

	sinks := []emitter.Sink{notification.NewSink("log", notification.NewLogNotifier())}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewSink("webhook", notification.NewWebhookNotifier(cfg.WebhookURL)))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		sinks = append(sinks, notification.NewSink("telegram", notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)))
	}
	sinks = append(sinks, notification.NewSink("websocket", hub))

	dedupCache := emitter.NewMemCache()
	var remoteCache *rediscache.Cache
	if cfg.RedisEnabled() {
		remoteCache, err = rediscache.New(rediscache.CacheConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Fatalf("[breakoutengine] redis dedup cache init failed: %v", err)
		}
		defer remoteCache.Close()
		dedupCache = emitter.NewDistributedCache(remoteCache)
	}

	emit, err := emitter.New(signalStore, dedupCache, func(err error) bool { return err == sqlite.ErrDuplicateKey }, sinks...)
	if err != nil {
		log.Fatalf("[breakoutengine] emitter init failed: %v", err)
	}

	coord := coordinator.New(emit)

	health := telemetry.NewHealthStatus()
	health.SetFeedConnected(true)
	health.SetSignalStoreOK(true)
	health.SetCacheConnected(remoteCache != nil)
	telemetry.NewMetrics()

	metricsSrv := telemetry.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/signals", hub.ServeWS)
	mux.HandleFunc("/plans", plansHandler(coord))
	mux.HandleFunc("/config/global-layer", globalLayerHandler(coord))
	mux.HandleFunc("/instruments/", instrumentRouter(coord, health))

	srv := &http.Server{Addr: cfg.WSListenAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[breakoutengine] serving at http://localhost%s", cfg.WSListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[breakoutengine] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[breakoutengine] shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
}

// plansHandler admits a new plan (spec §4.4). Body is {"plan": model.Plan},
// whose extra_data.breakout_params (if set) supplies the plan's own
// Config Resolver override layer.
func plansHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	type request struct {
		Plan model.Plan `json:"plan"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := coord.AdmitPlan(req.Plan); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// globalLayerHandler installs the global parameter layer (spec §4.5's
// lowest-precedence layer). Body is a planconfig.ParamLayer.
func globalLayerHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var layer planconfig.ParamLayer
		if err := json.NewDecoder(r.Body).Decode(&layer); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		coord.SetGlobalLayer(&layer)
		w.WriteHeader(http.StatusNoContent)
	}
}

// instrumentRouter dispatches /instruments/{id}/layer and
// /instruments/{id}/tick, the only two per-instrument routes this engine
// exposes.
func instrumentRouter(coord *coordinator.Coordinator, health *telemetry.HealthStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/instruments/")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] == "" {
			http.NotFound(w, r)
			return
		}
		instrumentID, action := parts[0], parts[1]

		switch action {
		case "layer":
			instrumentLayerHandler(coord, instrumentID)(w, r)
		case "tick":
			tickHandler(coord, health, instrumentID)(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func instrumentLayerHandler(coord *coordinator.Coordinator, instrumentID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var layer planconfig.ParamLayer
		if err := json.NewDecoder(r.Body).Decode(&layer); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		coord.SetInstrumentLayer(instrumentID, &layer)
		w.WriteHeader(http.StatusNoContent)
	}
}

// tickHandler runs one EvaluateTick for instrumentID (spec §4.8). The
// timeframe is a required query parameter; candlestick_payload and
// orderbook_payload are raw upstream-feed envelopes, passed through
// untouched to internal/normalize.
func tickHandler(coord *coordinator.Coordinator, health *telemetry.HealthStatus, instrumentID string) http.HandlerFunc {
	type request struct {
		CandlestickPayload json.RawMessage `json:"candlestick_payload,omitempty"`
		OrderbookPayload   json.RawMessage `json:"orderbook_payload,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		timeframe := r.URL.Query().Get("timeframe")
		if timeframe == "" {
			http.Error(w, "missing timeframe query parameter", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req request
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}

		signals, err := coord.EvaluateTick(instrumentID, timeframe, rawOrNil(req.CandlestickPayload), rawOrNil(req.OrderbookPayload))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}

		health.SetLastTickTime(time.Now())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(signals)
	}
}

func rawOrNil(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
