package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetdesk/internal/fleet"
)

// AttachRoutes wires the fleet console HTTP surface onto the router.
func AttachRoutes(r chi.Router, ctrl *fleet.Controller, hub *fleet.Hub, alerts *fleet.AlertLog, health func(r *http.Request) error) {
	buckets := newBucketCounter()
	handler := &Handler{ctrl: ctrl, hub: hub, alerts: alerts, buckets: buckets, health: health}

	r.Get("/health", handler.Health)

	r.Group(func(pr chi.Router) {
		pr.Use(JSONLogger(buckets))

		pr.Get("/api/snapshot", handler.GetSnapshot)
		pr.Get("/api/stats", handler.GetStats)

		pr.Get("/api/buses", handler.ListBuses)
		pr.Post("/api/buses", handler.AddBus)
		pr.Put("/api/buses/{busID}", handler.UpdateBus)
		pr.Delete("/api/buses/{busID}", handler.RemoveBus)
		pr.Post("/api/buses/{busID}/movement", handler.RecordMovement)
		pr.Post("/api/buses/{busID}/schedule", handler.ScheduleService)

		pr.Get("/api/drivers", handler.ListDrivers)
		pr.Post("/api/drivers", handler.AddDriver)
		pr.Put("/api/drivers/{driverID}", handler.UpdateDriver)
		pr.Delete("/api/drivers/{driverID}", handler.RemoveDriver)

		pr.Get("/api/routes", handler.ListRoutes)
		pr.Post("/api/routes", handler.AddRoute)
		pr.Put("/api/routes/{routeID}", handler.UpdateRoute)
		pr.Delete("/api/routes/{routeID}", handler.RemoveRoute)

		pr.Get("/api/service-requests", handler.ListServiceRequests)
		pr.Post("/api/service-requests", handler.AddServiceRequest)
		pr.Post("/api/service-requests/{requestID}/approve", handler.ApproveServiceRequest)
		pr.Post("/api/service-requests/{requestID}/reject", handler.RejectServiceRequest)

		pr.Get("/api/services", handler.ListScheduledServices)
		pr.Post("/api/services", handler.AddScheduledService)

		pr.Get("/api/expenses", handler.ListExpenses)
		pr.Post("/api/expenses", handler.AddExpense)
		pr.Get("/api/expenses/summary", handler.ExpenseSummary)

		pr.Get("/api/fuel-fills", handler.ListFuelFills)
		pr.Post("/api/fuel-fills", handler.AddFuelFill)

		pr.Get("/api/fuel-thefts", handler.ListFuelThefts)
		pr.Post("/api/fuel-thefts", handler.AddFuelTheft)
		pr.Post("/api/fuel-thefts/{theftID}/status", handler.UpdateFuelTheftStatus)

		pr.Get("/api/alerts", handler.ListAlerts)
	})

	r.Get("/ws/fleet", handler.FleetWebsocket)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
