package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fleetdesk/internal/fleet"
	"fleetdesk/internal/store"
)

// Seed script: loads a small demo fleet into the durable store so the
// console has something to show on first boot.
func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter := openStore(ctx)
	ctrl := fleet.NewController(adapter)
	if err := ctrl.Load(ctx); err != nil {
		log.Fatalf("load failed: %v", err)
	}

	drivers := []fleet.Driver{
		{Name: "Ravi Kumar", Phone: "+91-98100-11223", Experience: "8 years"},
		{Name: "Sunita Sharma", Phone: "+91-98100-44556", Experience: "5 years"},
		{Name: "Arjun Patel", Phone: "+91-98100-77889", Experience: "12 years"},
	}
	for _, d := range drivers {
		if _, err := ctrl.AddDriver(ctx, d); err != nil {
			log.Fatalf("seed driver %s: %v", d.Name, err)
		}
	}

	routes := []fleet.Route{
		{Name: "City Loop", StartPoint: "Central Depot", EndPoint: "Central Depot", DistanceKM: 24, EstimatedTime: "1h 10m", AssignedDriver: "Ravi Kumar", Stops: []string{"Market Square", "City Hospital", "University Gate"}},
		{Name: "Airport Express", StartPoint: "Central Depot", EndPoint: "Airport T2", DistanceKM: 38, EstimatedTime: "55m", AssignedDriver: "Sunita Sharma", Stops: []string{"Tech Park", "Cargo Junction"}},
	}
	for _, r := range routes {
		if _, err := ctrl.AddRoute(ctx, r); err != nil {
			log.Fatalf("seed route %s: %v", r.Name, err)
		}
	}

	buses := []fleet.Bus{
		{BusNumber: "BUS-101", Model: "Tata Starbus", Capacity: 42, FuelType: "diesel", Route: "City Loop", Driver: "Ravi Kumar", FuelLevel: 86},
		{BusNumber: "BUS-102", Model: "Ashok Leyland Viking", Capacity: 48, FuelType: "diesel", Route: "Airport Express", Driver: "Sunita Sharma", FuelLevel: 64},
		{BusNumber: "BUS-103", Model: "Eicher Skyline", Capacity: 36, FuelType: "cng", Driver: "Arjun Patel", FuelLevel: 93},
	}
	for _, b := range buses {
		if _, err := ctrl.AddBus(ctx, b); err != nil {
			log.Fatalf("seed bus %s: %v", b.BusNumber, err)
		}
	}

	snap := ctrl.Snapshot()
	fmt.Printf("seeded %d buses, %d drivers, %d routes\n", len(snap.Buses), len(snap.Drivers), len(snap.Routes))
}

func openStore(ctx context.Context) store.Adapter {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := store.DefaultPool(ctx, dbURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("schema ensure failed: %v", err)
		}
		return store.NewPostgres(pool)
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis URL parse error: %v", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}
	return store.NewRedis(client)
}
