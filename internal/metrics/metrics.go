package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the simulation server.
type Metrics struct {
	TicksTotal   prometheus.Counter
	TickDuration prometheus.Histogram
	PlayersTotal prometheus.Gauge
	WSClients    prometheus.Gauge

	TradesTotal      *prometheus.CounterVec // labels: side
	RigActionsTotal  *prometheus.CounterVec // labels: action
	RejectionsTotal  *prometheus.CounterVec // labels: kind
	NewsEventsTotal  prometheus.Counter
	AdminOpsTotal    *prometheus.CounterVec // labels: op
	BroadcastClients prometheus.Histogram

	PersistBatchDur  prometheus.Histogram
	PersistFailures  prometheus.Counter
	PersistQueueLen  prometheus.Gauge
	RedisPublishDur  prometheus.Histogram
	LeaderboardSnaps prometheus.Counter
}

// NewMetrics builds and registers every collector on the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simsrv_ticks_total",
			Help: "Total simulation ticks advanced",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simsrv_tick_duration_seconds",
			Help:    "Wall-clock time spent advancing one tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		PlayersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simsrv_players",
			Help: "Players currently registered in the session",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simsrv_ws_clients",
			Help: "Connected WebSocket clients",
		}),

		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simsrv_trades_total",
			Help: "Executed trades (by side)",
		}, []string{"side"}),
		RigActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simsrv_rig_actions_total",
			Help: "Rig purchases and sales (by action)",
		}, []string{"action"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simsrv_rejections_total",
			Help: "Rejected player actions (by error kind)",
		}, []string{"kind"}),
		NewsEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simsrv_news_events_total",
			Help: "News events triggered (scheduled and admin-created)",
		}),
		AdminOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simsrv_admin_ops_total",
			Help: "Admin control operations (by op)",
		}, []string{"op"}),
		BroadcastClients: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simsrv_broadcast_clients",
			Help:    "Clients reached per tick broadcast",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),

		PersistBatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simsrv_persist_batch_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simsrv_persist_failures_total",
			Help: "Persistence batches that failed to commit",
		}),
		PersistQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simsrv_persist_queue_len",
			Help: "Batches waiting in the persistence channel",
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simsrv_redis_publish_duration_seconds",
			Help:    "Redis snapshot publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		LeaderboardSnaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simsrv_leaderboard_snapshots_total",
			Help: "Leaderboard snapshots persisted",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.PlayersTotal,
		m.WSClients,
		m.TradesTotal,
		m.RigActionsTotal,
		m.RejectionsTotal,
		m.NewsEventsTotal,
		m.AdminOpsTotal,
		m.BroadcastClients,
		m.PersistBatchDur,
		m.PersistFailures,
		m.PersistQueueLen,
		m.RedisPublishDur,
		m.LeaderboardSnaps,
	)

	return m
}

// HealthStatus aggregates dependency and tick-loop health for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	SimStatus      string    `json:"sim_status"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a fresh health snapshot in the lobby state.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		SimStatus: "LOBBY",
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetSimStatus(s string) {
	h.mu.Lock()
	h.SimStatus = s
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// CheckRedis pings the leaderboard store and records probe latency.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	elapsed := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(elapsed.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the persistence database and records probe latency.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	elapsed := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(elapsed.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker probes redis and sqlite every interval until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Degraded while either store is down, unhealthy when both are.
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	// Tick age
	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		SimStatus       string  `json:"sim_status"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		SimStatus:       h.SimStatus,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
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
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] serving /metrics and /healthz on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("[metrics] shutdown error: %v", err)
	}
}
