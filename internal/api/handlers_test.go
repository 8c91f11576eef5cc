package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdesk/internal/fleet"
	"fleetdesk/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *fleet.Controller) {
	t.Helper()
	ctrl := fleet.NewController(store.NewMemory())
	require.NoError(t, ctrl.Load(context.Background()))
	alerts := fleet.NewAlertLog(store.NewMemory(), 0)

	r := chi.NewRouter()
	AttachRoutes(r, ctrl, fleet.NewHub(), alerts, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, ctrl
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestAddAndListBuses(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/buses", fleet.Bus{BusNumber: "B1", Driver: "Ravi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created fleet.Bus
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 100.0, created.FuelLevel)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/buses", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buses []fleet.Bus
	decodeBody(t, resp, &buses)
	require.Len(t, buses, 1)
	assert.Equal(t, "B1", buses[0].BusNumber)
}

func TestErrorStatusMapping(t *testing.T) {
	srv, ctrl := newTestServer(t)

	// Unknown resource.
	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/buses/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Validation failure.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/buses", fleet.Bus{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed body.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/buses", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Deleting a driver assigned to an active route conflicts.
	driver, err := ctrl.AddDriver(context.Background(), fleet.Driver{Name: "Meena"})
	require.NoError(t, err)
	_, err = ctrl.AddRoute(context.Background(), fleet.Route{Name: "R1", AssignedDriver: "Meena", Status: fleet.RouteActive})
	require.NoError(t, err)
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/drivers/"+driver.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestServiceRequestWorkflowOverHTTP(t *testing.T) {
	srv, ctrl := newTestServer(t)
	_, err := ctrl.AddBus(context.Background(), fleet.Bus{BusNumber: "B1"})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/service-requests", fleet.ServiceRequest{
		BusNumber: "B1",
		Issue:     "brake repair",
		Priority:  fleet.PriorityHigh,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var req fleet.ServiceRequest
	decodeBody(t, resp, &req)
	assert.Equal(t, fleet.RequestPending, req.Status)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/service-requests/%s/approve", srv.URL, req.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Approved requests are terminal.
	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/service-requests/%s/reject", srv.URL, req.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// The repair keyword moved the bus into maintenance.
	assert.Equal(t, fleet.BusMaintenance, ctrl.Buses()[0].Status)
}

func TestAddRouteParsesStopsText(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/routes", map[string]any{
		"routeName": "Morning Loop",
		"stopsText": "Depot\n\nMarket\nSchool\n",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var route fleet.Route
	decodeBody(t, resp, &route)
	assert.Equal(t, []string{"Depot", "Market", "School"}, route.Stops)
}

func TestExpenseSummaryEndpoint(t *testing.T) {
	srv, ctrl := newTestServer(t)
	for _, amount := range []float64{50, 30} {
		_, err := ctrl.AddExpense(context.Background(), fleet.Expense{
			BusNumber: "B1",
			Category:  fleet.ExpenseFuel,
			Amount:    amount,
		})
		require.NoError(t, err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/expenses/summary?period=daily", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		Period string             `json:"period"`
		Total  float64            `json:"total"`
		ByBus  map[string]float64 `json:"byBus"`
	}
	decodeBody(t, resp, &summary)
	assert.Equal(t, "daily", summary.Period)
	assert.Equal(t, 80.0, summary.Total)
	assert.Equal(t, 80.0, summary.ByBus["B1"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/expenses/summary?period=yearly", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestFuelFillEndpointReportsSummary(t *testing.T) {
	srv, ctrl := newTestServer(t)
	_, err := ctrl.AddBus(context.Background(), fleet.Bus{BusNumber: "B1", FuelLevel: 40})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/fuel-fills", fleet.FuelFillRecord{
		BusNumber:     "B1",
		Quantity:      50,
		PricePerLiter: 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rec fleet.FuelFillRecord
	decodeBody(t, resp, &rec)
	assert.Equal(t, 150.0, rec.TotalCost)
	assert.InDelta(t, 65.0, ctrl.Buses()[0].FuelLevel, 0.001)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/fuel-fills", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Records []fleet.FuelFillRecord `json:"records"`
		Summary fleet.FuelFillSummary  `json:"summary"`
	}
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Records, 1)
	assert.Equal(t, 50.0, listing.Summary.TotalLitres)
	assert.Equal(t, 3.0, listing.Summary.AveragePrice)
}

func TestSnapshotEndpoint(t *testing.T) {
	srv, ctrl := newTestServer(t)
	_, err := ctrl.AddBus(context.Background(), fleet.Bus{BusNumber: "B1"})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap fleet.Snapshot
	decodeBody(t, resp, &snap)
	assert.Len(t, snap.Buses, 1)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpointReportsBackendFailure(t *testing.T) {
	ctrl := fleet.NewController(store.NewMemory())
	require.NoError(t, ctrl.Load(context.Background()))
	r := chi.NewRouter()
	AttachRoutes(r, ctrl, fleet.NewHub(), fleet.NewAlertLog(store.NewMemory(), 0), func(*http.Request) error {
		return fmt.Errorf("backend unreachable")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
