package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"wardline/internal/adapters/history"
	"wardline/internal/adapters/http/api"
	"wardline/internal/adapters/repository"
	"wardline/internal/adapters/ws"
	app "wardline/internal/app"
	"wardline/internal/config"
	"wardline/pkg/logger"
	"wardline/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	redisDialTimeout          = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	rooms, err := cfg.RoomList()
	if err != nil {
		os.Stderr.WriteString("invalid room config: " + err.Error() + "\n")
		return
	}

	// Shared state store: Redis when configured, in-memory otherwise.
	var store repository.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: redisDialTimeout,
		})
		rs := repository.NewRedisStore(rdb)
		if err := rs.Ping(ctx); err != nil {
			os.Stderr.WriteString("redis unreachable: " + err.Error() + "\n")
			return
		}
		log.Info(ctx, "using redis store", logger.String("addr", cfg.RedisAddr))
		store = rs
	} else {
		log.Info(ctx, "using in-memory store")
		store = repository.NewMemoryStore()
	}
	defer func() {
		_ = store.Close()
	}()

	// Durable history: leaderboard, session audit, end-of-world archives.
	histOpts := []history.Option{history.WithKeep(cfg.LeaderboardSize)}
	if cfg.ArchiveDir != "" {
		histOpts = append(histOpts, history.WithArchiveDir(cfg.ArchiveDir))
	}
	hist, err := history.Open(cfg.HistoryPath, histOpts...)
	if err != nil {
		os.Stderr.WriteString("failed to open history db: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = hist.Close()
	}()

	// Create and start the coordinator with configuration options.
	svc := app.New(store, hist,
		app.WithLogger(log),
		app.WithRooms(rooms),
		app.WithSpawnInterval(
			time.Duration(cfg.SpawnMinMS)*time.Millisecond,
			time.Duration(cfg.SpawnMaxMS)*time.Millisecond,
		),
		app.WithClaimTTL(time.Duration(cfg.ClaimTTLMS)*time.Millisecond),
		app.WithTaskCapacity(cfg.MaxTasksFloor, cfg.TasksPerPlayer),
		app.WithRoomTaskCap(cfg.RoomTaskCap),
		app.WithLeaderboardSize(cfg.LeaderboardSize),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	wsServer := ws.NewServer(svc, ws.NewHub())
	mux.HandleFunc("/ws", wsServer.Handler())

	apiServer := api.NewServer(svc, svc)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// the coordinator gauges between world mutations.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stats refreshes the open-task, player and team gauges.
			_ = svc.Stats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
