package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"btcsim/config"
	"btcsim/internal/api"
	"btcsim/internal/gateway"
	"btcsim/internal/histdata"
	"btcsim/internal/metrics"
	"btcsim/internal/model"
	"btcsim/internal/sim"
	redisstore "btcsim/internal/store/redis"
	sqlitestore "btcsim/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[simserver] starting...")

	// ---- Load config from env ----
	if err := godotenv.Load(); err != nil {
		log.Println("[simserver] no .env file, using environment")
	}
	cfg := config.Load()
	start, end := cfg.ParseDates()

	// ---- Load historical data files ----
	// The fair value schedule is the price anchor for the whole run; there
	// is nothing sensible to simulate without it.
	oracle, err := histdata.LoadFairValueCSV(cfg.FairValueCSV)
	if err != nil {
		log.Fatalf("[simserver] fair value schedule %s: %v", cfg.FairValueCSV, err)
	}
	hashrate, err := histdata.LoadHashrateCSV(cfg.HashrateCSV)
	if err != nil {
		log.Printf("[simserver] WARNING: hashrate series %s: %v (mining yields will use the floor rate)", cfg.HashrateCSV, err)
		hashrate = histdata.NewHashrateSeries(nil)
	}
	schedule, err := histdata.LoadEventsJSON(cfg.EventsJSON)
	if err != nil {
		log.Printf("[simserver] WARNING: event schedule %s: %v (running without scheduled events)", cfg.EventsJSON, err)
	}
	log.Printf("[simserver] data loaded: %d scheduled events, window %s..%s",
		len(schedule), cfg.StartDate, cfg.EndDate)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown context ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite writer (off hot path) ----
	os.MkdirAll("data", 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath}, prom)
	if err != nil {
		log.Fatalf("[simserver] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	health.SetSQLiteOK(true)
	log.Println("[simserver] sqlite writer ready")

	// ---- Redis publisher ----
	var publisher *redisstore.Publisher
	publisher, err = redisstore.New(redisstore.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, prom)
	if err != nil {
		log.Printf("[simserver] WARNING: redis init failed: %v (continuing without redis)", err)
		publisher = nil
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		log.Println("[simserver] redis publisher ready")
	}

	// ---- Periodic liveness checks ----
	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Simulation session ----
	simCfg := sim.DefaultConfig()
	simCfg.RoomID = cfg.RoomID
	simCfg.StartDate = start
	simCfg.EndDate = end
	simCfg.Seed = cfg.Seed
	simCfg.TickMs = cfg.TickMs
	session := sim.New(simCfg, oracle, hashrate, schedule, prom)
	health.SetSimStatus(string(session.Status()))
	log.Printf("[simserver] session %s ready in lobby (seed=%d tick=%dms)", cfg.RoomID, cfg.Seed, cfg.TickMs)

	go sqlWriter.Run(ctx, session.Batches())

	// ---- WebSocket gateway ----
	// A failed redis init must reach the hub as a nil interface, not a
	// typed nil.
	var snapPub model.SnapshotPublisher
	if publisher != nil {
		snapPub = publisher
	}
	hub := gateway.NewHub(session, gateway.AuthConfig{
		AdminPIN:   cfg.AdminPIN,
		TOTPSecret: cfg.AdminTOTPSecret,
	}, snapPub, prom)

	// ---- History REST endpoints (separate read connection) ----
	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Printf("[simserver] WARNING: sqlite reader init failed: %v (history endpoints disabled)", err)
		reader = nil
	} else {
		defer reader.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/api/bootstrap", hub.HandleBootstrap)
	api.NewRouter(reader, cfg.RoomID).Register(mux)
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[simserver] gateway listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[simserver] gateway: %v", err)
		}
	}()

	// ---- Tick loop ----
	// The cadence is re-read every firing so admin changes apply from the
	// next tick onward. While the session is not running the loop idles at
	// the configured interval without advancing anything.
	go func() {
		timer := time.NewTimer(session.TickInterval())
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if session.Status() == model.StatusRunning {
				session.AdvanceTick()
				hub.BroadcastTick(ctx)
			}
			health.SetSimStatus(string(session.Status()))
			health.SetLastTickTime(time.Now())
			timer.Reset(session.TickInterval())
		}
	}()

	// ---- Block until shutdown ----
	sig := <-sigCh
	log.Printf("[simserver] received %v, shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	if publisher != nil {
		publisher.Close()
	}
	log.Println("[simserver] shutdown complete")
}
