package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fleetdesk/internal/api"
	"fleetdesk/internal/fleet"
	"fleetdesk/internal/store"
	"fleetdesk/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	addr := envOrDefault("HTTP_ADDR", ":8080")
	tickInterval := parseDuration(envOrDefault("SIM_INTERVAL", "30s"))
	stationaryAfter := parseDuration(envOrDefault("STATIONARY_AFTER", "10m"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, redisStore, health := initStore(ctx)

	ctrl := fleet.NewController(adapter)
	if err := ctrl.Load(ctx); err != nil {
		log.Fatalf("fleet state load failed: %v", err)
	}

	alerts := fleet.NewAlertLog(adapter, 200)
	if err := alerts.Load(ctx); err != nil {
		log.Printf("warning: alert log load failed: %v", err)
	}

	hub := fleet.NewHub()
	go hub.Run()
	ctrl.Subscribe(hub.BroadcastSnapshot)

	sinks := []telemetry.AlertSink{
		alerts,
		telemetry.SinkFunc(func(ctx context.Context, a fleet.Alert) {
			log.Printf("alert: %s", a.Message)
			hub.BroadcastAlert(a)
		}),
	}
	if redisStore != nil {
		sinks = append(sinks, telemetry.SinkFunc(func(ctx context.Context, a fleet.Alert) {
			payload, _ := json.Marshal(a)
			if err := redisStore.PublishAlert(ctx, payload); err != nil {
				log.Printf("alert publish failed: %v", err)
			}
		}))
	}

	sim := telemetry.NewSimulator(telemetry.Config{
		Interval:        tickInterval,
		StationaryAfter: stationaryAfter,
	}, ctrl, sinks...)
	go sim.Run(ctx)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	api.AttachRoutes(r, ctrl, hub, alerts, health)

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("fleetdesk API listening on %s (tick %s)", addr, tickInterval)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// initStore picks the durable backend: Postgres when DATABASE_URL is set,
// otherwise Redis when reachable, otherwise in-memory (state lost on exit).
func initStore(ctx context.Context) (store.Adapter, *store.Redis, func(r *http.Request) error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := store.DefaultPool(connectCtx, dbURL)
		if err != nil {
			log.Printf("database connection failed, falling back: %v", err)
		} else if err := store.EnsureSchema(connectCtx, pool); err != nil {
			log.Printf("schema init failed, falling back: %v", err)
		} else {
			log.Printf("using PostgreSQL persistence")
			pg := store.NewPostgres(pool)
			return pg, nil, func(r *http.Request) error { return pg.Ping(r.Context()) }
		}
	}

	if redisURL := envOrDefault("REDIS_URL", "redis://localhost:6379"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Printf("redis URL parse error, falling back: %v", err)
		} else {
			client := redis.NewClient(opt)
			if err := client.Ping(connectCtx).Err(); err != nil {
				log.Printf("redis unreachable, falling back: %v", err)
			} else {
				log.Printf("using Redis persistence")
				rs := store.NewRedis(client)
				return rs, rs, func(r *http.Request) error { return rs.Ping(r.Context()) }
			}
		}
	}

	log.Printf("using in-memory persistence (state is lost on exit)")
	return store.NewMemory(), nil, nil
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0
	}
	return d
}
