package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"raffle/config"
	"raffle/orchestrator"
	"raffle/raffle"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_watch_http_requests_total",
			Help: "Total number of HTTP requests served by the watcher",
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raffle_watch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_watch_events_total",
			Help: "Raffle events observed, by event name",
		},
		[]string{"event"},
	)
)

var serverStartTime = time.Now()

// watcher follows the raffle events of one deployment and serves its status.
type watcher struct {
	fixture *orchestrator.Fixture
	network string
	logger  *zap.Logger
	seen    *eventCache
}

func newWatcher(f *orchestrator.Fixture, networkName string, logger *zap.Logger) *watcher {
	return &watcher{
		fixture: f,
		network: networkName,
		logger:  logger,
		seen:    newEventCache(eventTTL, maxCacheSize),
	}
}

func runWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "Listen address for /status, /health, /readiness and /metrics")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	f, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer f.Env.Close()

	w := newWatcher(f, cfg.Network, logger)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           w.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- w.follow(ctx) }()
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go w.seen.run(ctx, cleanupInterval)

	logger.Info("Raffle watcher starting",
		zap.String("addr", *addr),
		zap.String("network", cfg.Network),
		zap.String("raffle", f.Raffle.Address().Hex()),
	)

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errc:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("Server shutdown", zap.Error(serr))
	}
	return err
}

func (w *watcher) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/status", metricsMiddleware("status", http.HandlerFunc(w.handleStatus)))
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/readiness", metricsMiddleware("readiness", http.HandlerFunc(w.handleReadiness)))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// follow logs RaffleEnter and WinnerPicked events until ctx is done or a
// subscription fails.
func (w *watcher) follow(ctx context.Context) error {
	r := w.fixture.Raffle

	entered := make(chan *raffle.RaffleEnter, 16)
	enterSub, err := r.WatchRaffleEnter(ctx, entered)
	if err != nil {
		return err
	}
	defer enterSub.Unsubscribe()

	picked := make(chan *raffle.WinnerPicked, 16)
	pickSub, err := r.WatchWinnerPicked(ctx, picked)
	if err != nil {
		return err
	}
	defer pickSub.Unsubscribe()

	for {
		select {
		case ev := <-entered:
			if w.record("RaffleEnter", ev.Raw) {
				w.logger.Info("Player entered",
					zap.String("player", ev.Player.Hex()),
					zap.Uint64("block", ev.Raw.BlockNumber),
					zap.String("tx", ev.Raw.TxHash.Hex()))
			}
		case ev := <-picked:
			if w.record("WinnerPicked", ev.Raw) {
				w.logger.Info("Winner picked",
					zap.String("winner", ev.Player.Hex()),
					zap.Uint64("block", ev.Raw.BlockNumber),
					zap.String("tx", ev.Raw.TxHash.Hex()))
			}
		case err := <-enterSub.Err():
			return subscriptionError("RaffleEnter", err)
		case err := <-pickSub.Err():
			return subscriptionError("WinnerPicked", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func subscriptionError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s subscription: %w", name, err)
}

// record counts a log once and reports whether it was new.
func (w *watcher) record(name string, l types.Log) bool {
	key := l.TxHash.Hex() + ":" + strconv.FormatUint(uint64(l.Index), 10)
	if !w.seen.Add(key) {
		return false
	}
	eventsTotal.WithLabelValues(name).Inc()
	return true
}

type statusResponse struct {
	Network         string `json:"network"`
	Raffle          string `json:"raffle"`
	State           string `json:"state"`
	EntranceFee     string `json:"entrance_fee"`
	Players         string `json:"players"`
	Balance         string `json:"balance"`
	RecentWinner    string `json:"recent_winner"`
	LatestTimestamp string `json:"latest_timestamp"`
}

// GET /status - current raffle snapshot
func (w *watcher) handleStatus(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, err := w.fixture.Snapshot(r.Context())
	if err != nil {
		w.logger.Error("Snapshot failed", zap.Error(err))
		http.Error(rw, "Failed to read raffle state", http.StatusBadGateway)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(statusResponse{
		Network:         w.network,
		Raffle:          w.fixture.Raffle.Address().Hex(),
		State:           s.State.String(),
		EntranceFee:     raffle.FormatEther(s.EntranceFee),
		Players:         s.Players.String(),
		Balance:         raffle.FormatEther(s.Balance),
		RecentWinner:    s.RecentWinner.Hex(),
		LatestTimestamp: s.LatestTimestamp.String(),
	})
}

// GET /health - Liveness probe
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(serverStartTime).String(),
		"version":   Version,
	})
}

// GET /readiness - the chain answers and the raffle is readable
func (w *watcher) handleReadiness(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := map[string]interface{}{"status": "ready"}
	status := http.StatusOK

	if block, err := w.fixture.Env.Backend().BlockNumber(ctx); err != nil {
		resp["status"] = "not_ready"
		resp["error"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		resp["block"] = block
		if _, err := w.fixture.Raffle.RaffleState(ctx); err != nil {
			resp["status"] = "not_ready"
			resp["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(resp)
}

// metricsMiddleware wraps HTTP handlers with request metrics
func metricsMiddleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		httpRequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(endpoint, r.Method).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
