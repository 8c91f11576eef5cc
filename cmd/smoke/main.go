package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Smoke client: drives the fleet console API end to end against a running
// server. Exits non-zero on the first failed check.
func main() {
	api := flag.String("api", "http://localhost:8080", "API base URL")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	suffix := time.Now().UnixNano() % 100000

	busNumber := fmt.Sprintf("SMOKE-%d", suffix)
	bus := post(client, *api+"/api/buses", map[string]any{
		"busNumber": busNumber,
		"model":     "Smoke Test Coach",
		"capacity":  40,
	})
	busID := bus["id"].(string)
	log.Printf("bus created: %s", busID)

	driverName := fmt.Sprintf("Smoke Driver %d", suffix)
	driver := post(client, *api+"/api/drivers", map[string]any{"name": driverName})
	driverID := driver["id"].(string)
	log.Printf("driver created: %s", driverID)

	post(client, *api+"/api/routes", map[string]any{
		"routeName":      fmt.Sprintf("Smoke Route %d", suffix),
		"startPoint":     "A",
		"endPoint":       "B",
		"distance":       12.5,
		"assignedDriver": driverName,
		"stopsText":      "First Stop\n\nSecond Stop\n",
	})
	log.Printf("route created")

	// Driver now assigned: delete must be rejected.
	status := requestStatus(client, http.MethodDelete, *api+"/api/drivers/"+driverID, nil)
	if status != http.StatusConflict {
		log.Fatalf("expected 409 deleting assigned driver, got %d", status)
	}
	log.Printf("assigned driver delete correctly rejected")

	req := post(client, *api+"/api/service-requests", map[string]any{
		"busNumber": busNumber,
		"issue":     "engine repair needed",
		"priority":  "high",
	})
	reqID := req["id"].(string)
	post(client, *api+"/api/service-requests/"+reqID+"/approve", nil)
	status = requestStatus(client, http.MethodPost, *api+"/api/service-requests/"+reqID+"/reject", nil)
	if status != http.StatusConflict {
		log.Fatalf("expected 409 rejecting an approved request, got %d", status)
	}
	log.Printf("service workflow terminality holds")

	post(client, *api+"/api/expenses", map[string]any{
		"busNumber": busNumber,
		"category":  "fuel",
		"amount":    50,
	})
	post(client, *api+"/api/expenses", map[string]any{
		"busNumber": busNumber,
		"category":  "fuel",
		"amount":    30,
	})
	summary := get(client, *api+"/api/expenses/summary?period=daily")
	log.Printf("daily expense total: %v", summary["total"])

	snap := get(client, *api+"/api/snapshot")
	for _, raw := range snap["buses"].([]any) {
		b := raw.(map[string]any)
		if b["busNumber"] == busNumber && b["status"] != "maintenance" {
			log.Fatalf("expected smoke bus in maintenance after approved repair, got %v", b["status"])
		}
	}
	log.Printf("approved repair request moved bus to maintenance")

	fmt.Println("smoke passed")
}

func post(client *http.Client, url string, payload any) map[string]any {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	resp, err := client.Post(url, "application/json", body)
	if err != nil {
		log.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("POST %s status: %s", url, resp.Status)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func get(client *http.Client, url string) map[string]any {
	resp, err := client.Get(url)
	if err != nil {
		log.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("GET %s status: %s", url, resp.Status)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func requestStatus(client *http.Client, method, url string, payload []byte) int {
	req, err := http.NewRequest(method, url, bytes.NewBuffer(payload))
	if err != nil {
		log.Fatalf("%s %s failed: %v", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func init() {
	log.SetOutput(os.Stdout)
}
