package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Movement feed simulator: pings the console's movement endpoint for one
// bus at a fixed interval, the way a GPS gateway would. Stop it and the
// telemetry loop will flag the bus stationary after the threshold.
func main() {
	api := flag.String("api", "http://localhost:8080", "API base URL")
	busID := flag.String("bus", "", "bus id to report movement for")
	interval := flag.Duration("interval", 5*time.Minute, "ping interval")
	count := flag.Int("count", 12, "number of pings to send")
	flag.Parse()

	if *busID == "" {
		log.Fatal("-bus is required")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("%s/api/buses/%s/movement", *api, *busID)
	for i := 0; i < *count; i++ {
		if err := ping(client, url); err != nil {
			log.Printf("movement ping %d failed: %v", i+1, err)
		} else {
			log.Printf("movement ping %d sent", i+1)
		}
		time.Sleep(*interval)
	}
}

func ping(client *http.Client, url string) error {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}

func init() {
	log.SetOutput(os.Stdout)
}
