package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fleetdesk/internal/fleet"
	"fleetdesk/internal/repo"
)

type Handler struct {
	ctrl    *fleet.Controller
	hub     *fleet.Hub
	alerts  *fleet.AlertLog
	buckets *bucketCounter
	health  func(r *http.Request) error
}

// writeError maps the fleet error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound   *repo.NotFoundError
		refErr     *fleet.ReferentialIntegrityError
		transition *fleet.InvalidTransitionError
		writeErr   *repo.PersistenceWriteError
	)
	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &refErr), errors.As(err, &transition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, fleet.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &writeErr):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r); err != nil {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	total, buckets := h.buckets.snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"requests":       total,
		"latencyBuckets": buckets,
		"alerts":         len(h.alerts.Recent()),
	})
}

// Buses

func (h *Handler) ListBuses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Buses())
}

func (h *Handler) AddBus(w http.ResponseWriter, r *http.Request) {
	var bus fleet.Bus
	if !decode(w, r, &bus) {
		return
	}
	added, err := h.ctrl.AddBus(r.Context(), bus)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

func (h *Handler) UpdateBus(w http.ResponseWriter, r *http.Request) {
	var bus fleet.Bus
	if !decode(w, r, &bus) {
		return
	}
	bus.ID = chi.URLParam(r, "busID")
	if err := h.ctrl.UpdateBus(r.Context(), bus); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bus)
}

func (h *Handler) RemoveBus(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.RemoveBus(r.Context(), chi.URLParam(r, "busID")); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	bus, err := h.ctrl.RecordMovement(r.Context(), chi.URLParam(r, "busID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bus)
}

type schedulePayload struct {
	Date time.Time `json:"date"`
}

func (h *Handler) ScheduleService(w http.ResponseWriter, r *http.Request) {
	var payload schedulePayload
	if !decode(w, r, &payload) {
		return
	}
	if payload.Date.IsZero() {
		respondError(w, http.StatusBadRequest, "date is required")
		return
	}
	if err := h.ctrl.ScheduleService(r.Context(), chi.URLParam(r, "busID"), payload.Date); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

// Drivers

func (h *Handler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Drivers())
}

func (h *Handler) AddDriver(w http.ResponseWriter, r *http.Request) {
	var driver fleet.Driver
	if !decode(w, r, &driver) {
		return
	}
	added, err := h.ctrl.AddDriver(r.Context(), driver)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

func (h *Handler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	var driver fleet.Driver
	if !decode(w, r, &driver) {
		return
	}
	driver.ID = chi.URLParam(r, "driverID")
	if err := h.ctrl.UpdateDriver(r.Context(), driver); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, driver)
}

func (h *Handler) RemoveDriver(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.RemoveDriver(r.Context(), chi.URLParam(r, "driverID")); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Routes

type routePayload struct {
	fleet.Route
	StopsText string `json:"stopsText,omitempty"`
}

func (p routePayload) route() fleet.Route {
	route := p.Route
	if len(route.Stops) == 0 && p.StopsText != "" {
		route.Stops = fleet.ParseStops(p.StopsText)
	}
	return route
}

func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Routes())
}

func (h *Handler) AddRoute(w http.ResponseWriter, r *http.Request) {
	var payload routePayload
	if !decode(w, r, &payload) {
		return
	}
	added, err := h.ctrl.AddRoute(r.Context(), payload.route())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

func (h *Handler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	var payload routePayload
	if !decode(w, r, &payload) {
		return
	}
	route := payload.route()
	route.ID = chi.URLParam(r, "routeID")
	if err := h.ctrl.UpdateRoute(r.Context(), route); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, route)
}

func (h *Handler) RemoveRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.RemoveRoute(r.Context(), chi.URLParam(r, "routeID")); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Service requests

func (h *Handler) ListServiceRequests(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.ServiceRequests())
}

func (h *Handler) AddServiceRequest(w http.ResponseWriter, r *http.Request) {
	var req fleet.ServiceRequest
	if !decode(w, r, &req) {
		return
	}
	added, err := h.ctrl.AddServiceRequest(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

func (h *Handler) ApproveServiceRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.ApproveServiceRequest(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(fleet.RequestApproved)})
}

func (h *Handler) RejectServiceRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.RejectServiceRequest(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(fleet.RequestRejected)})
}

// Scheduled services

func (h *Handler) ListScheduledServices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.ScheduledServices())
}

func (h *Handler) AddScheduledService(w http.ResponseWriter, r *http.Request) {
	var svc fleet.ScheduledService
	if !decode(w, r, &svc) {
		return
	}
	added, err := h.ctrl.AddScheduledService(r.Context(), svc)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

// Expenses

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Expenses())
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var exp fleet.Expense
	if !decode(w, r, &exp) {
		return
	}
	added, err := h.ctrl.AddExpense(r.Context(), exp)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

func (h *Handler) ExpenseSummary(w http.ResponseWriter, r *http.Request) {
	period := fleet.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = fleet.PeriodWeekly
	}
	switch period {
	case fleet.PeriodDaily, fleet.PeriodWeekly, fleet.PeriodMonthly:
	default:
		respondError(w, http.StatusBadRequest, "period must be daily, weekly or monthly")
		return
	}
	expenses := h.ctrl.Expenses()
	respondJSON(w, http.StatusOK, map[string]any{
		"period":     period,
		"total":      fleet.TotalByPeriod(expenses, period, time.Now()),
		"byCategory": fleet.TotalsByCategory(expenses),
		"byBus":      fleet.TotalsByBus(expenses),
	})
}

// Fuel fills

func (h *Handler) ListFuelFills(w http.ResponseWriter, r *http.Request) {
	fills := h.ctrl.FuelFills()
	respondJSON(w, http.StatusOK, map[string]any{
		"records": fills,
		"summary": fleet.SummarizeFuelFills(fills),
	})
}

func (h *Handler) AddFuelFill(w http.ResponseWriter, r *http.Request) {
	var rec fleet.FuelFillRecord
	if !decode(w, r, &rec) {
		return
	}
	added, err := h.ctrl.RecordFuelFill(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

// Fuel theft reports

func (h *Handler) ListFuelThefts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.FuelThefts())
}

func (h *Handler) AddFuelTheft(w http.ResponseWriter, r *http.Request) {
	var rec fleet.FuelTheftRecord
	if !decode(w, r, &rec) {
		return
	}
	added, err := h.ctrl.ReportFuelTheft(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

type theftStatusPayload struct {
	Status      fleet.TheftStatus `json:"status"`
	ActionTaken string            `json:"actionTaken,omitempty"`
}

func (h *Handler) UpdateFuelTheftStatus(w http.ResponseWriter, r *http.Request) {
	var payload theftStatusPayload
	if !decode(w, r, &payload) {
		return
	}
	if err := h.ctrl.UpdateFuelTheftStatus(r.Context(), chi.URLParam(r, "theftID"), payload.Status, payload.ActionTaken); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(payload.Status)})
}

// Alerts

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.alerts.Recent())
}

func (h *Handler) FleetWebsocket(w http.ResponseWriter, r *http.Request) {
	h.hub.Serve(w, r)
}
