package fleet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"fleetdesk/internal/repo"
	"fleetdesk/internal/store"
)

// ErrInvalid marks caller input rejected before any state change.
var ErrInvalid = errors.New("invalid input")

// maintenanceKeywords flip the target bus to maintenance when an approved
// service request (or scheduled service type) mentions them.
var maintenanceKeywords = []string{"maintenance", "repair"}

// tankLitres converts a fuel-fill quantity into a fuel-level percentage.
const tankLitres = 200.0

// Controller owns the canonical in-memory fleet snapshot. All mutations
// write through the entity repositories and notify subscribers afterwards.
// It is the single synchronization point: repositories themselves are not
// safe for concurrent use.
type Controller struct {
	mu sync.RWMutex

	buses    *repo.Collection[Bus]
	drivers  *repo.Collection[Driver]
	routes   *repo.Collection[Route]
	requests *repo.Collection[ServiceRequest]
	services *repo.Collection[ScheduledService]
	expenses *repo.Collection[Expense]
	fills    *repo.Collection[FuelFillRecord]
	thefts   *repo.Collection[FuelTheftRecord]

	subs []func(Snapshot)
	now  func() time.Time
}

func NewController(adapter store.Adapter) *Controller {
	return &Controller{
		buses:    repo.NewCollection[Bus](store.Buses, adapter),
		drivers:  repo.NewCollection[Driver](store.Drivers, adapter),
		routes:   repo.NewCollection[Route](store.Routes, adapter),
		requests: repo.NewCollection[ServiceRequest](store.ServiceRequests, adapter),
		services: repo.NewCollection[ScheduledService](store.BusServices, adapter),
		expenses: repo.NewCollection[Expense](store.BusExpenses, adapter),
		fills:    repo.NewCollection[FuelFillRecord](store.FuelFillRecords, adapter),
		thefts:   repo.NewCollection[FuelTheftRecord](store.FuelTheftRecord, adapter),
		now:      time.Now,
	}
}

// SetClock overrides the controller's time source. Test hook.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Load reads every collection from the durable store. Corrupt payloads are
// logged and treated as empty; any other failure aborts startup.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loaders := []func(context.Context) error{
		c.buses.Load, c.drivers.Load, c.routes.Load, c.requests.Load,
		c.services.Load, c.expenses.Load, c.fills.Load, c.thefts.Load,
	}
	for _, load := range loaders {
		if err := load(ctx); err != nil {
			var corrupt *store.CorruptStateError
			if errors.As(err, &corrupt) {
				log.Printf("warning: %v; starting with empty collection", corrupt)
				continue
			}
			return err
		}
	}
	return nil
}

// Subscribe registers a synchronous callback invoked with a fresh snapshot
// after every successful mutation.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.RLock()
	subs := make([]func(Snapshot), len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	routes := c.routes.List()
	for i := range routes {
		routes[i].Stops = append([]string(nil), routes[i].Stops...)
	}
	return Snapshot{
		Buses:           c.buses.List(),
		Drivers:         c.drivers.List(),
		Routes:          routes,
		ServiceRequests: c.requests.List(),
		Services:        c.services.List(),
		Expenses:        c.expenses.List(),
		FuelFills:       c.fills.List(),
		FuelThefts:      c.thefts.List(),
	}
}

// Snapshot returns a read-only copy of all fleet state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Buses returns the current bus records.
func (c *Controller) Buses() []Bus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buses.List()
}

func (c *Controller) Drivers() []Driver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.drivers.List()
}

func (c *Controller) Routes() []Route {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.routes.List()
}

func (c *Controller) ScheduledServices() []ScheduledService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services.List()
}

func (c *Controller) FuelFills() []FuelFillRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fills.List()
}

func (c *Controller) FuelThefts() []FuelTheftRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thefts.List()
}

// finish releases the lock taken by a mutation, then notifies subscribers.
// Persistence failures keep the in-memory change, so subscribers are still
// told about it; the caller surfaces the error.
func (c *Controller) finish(err error) error {
	snap := c.snapshotLocked()
	c.mu.Unlock()
	var writeErr *repo.PersistenceWriteError
	if err == nil || errors.As(err, &writeErr) {
		if writeErr != nil {
			log.Printf("warning: %v (in-memory state kept)", writeErr)
		}
		c.notify(snap)
	}
	return err
}

func clampFuel(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// AddBus registers a new bus. Registration defaults: active, full tank,
// moving as of now.
func (c *Controller) AddBus(ctx context.Context, bus Bus) (Bus, error) {
	if bus.BusNumber == "" {
		return Bus{}, fmt.Errorf("%w: bus number is required", ErrInvalid)
	}
	c.mu.Lock()
	for _, existing := range c.buses.List() {
		if existing.BusNumber == bus.BusNumber {
			c.mu.Unlock()
			return Bus{}, fmt.Errorf("%w: bus number %q already registered", ErrInvalid, bus.BusNumber)
		}
	}
	if bus.Status == "" {
		bus.Status = BusActive
	}
	if bus.FuelLevel == 0 {
		bus.FuelLevel = 100
	}
	bus.FuelLevel = clampFuel(bus.FuelLevel)
	if bus.LastMovement.IsZero() {
		bus.LastMovement = c.now()
		bus.Moving = true
	}
	added, err := c.buses.Add(ctx, bus)
	return added, c.finish(err)
}

func (c *Controller) UpdateBus(ctx context.Context, bus Bus) error {
	bus.FuelLevel = clampFuel(bus.FuelLevel)
	c.mu.Lock()
	return c.finish(c.buses.Update(ctx, bus))
}

func (c *Controller) RemoveBus(ctx context.Context, id string) error {
	c.mu.Lock()
	return c.finish(c.buses.Remove(ctx, id))
}

// RecordMovement is the external movement feed hook: it refreshes the last
// movement timestamp and flags the bus as moving.
func (c *Controller) RecordMovement(ctx context.Context, busID string) (Bus, error) {
	c.mu.Lock()
	bus, ok := c.buses.Find(busID)
	if !ok {
		c.mu.Unlock()
		return Bus{}, &repo.NotFoundError{Collection: store.Buses, ID: busID}
	}
	bus.LastMovement = c.now()
	bus.Moving = true
	err := c.buses.Update(ctx, bus)
	return bus, c.finish(err)
}

// MutateBuses applies fn to the current bus set under the write lock and
// persists the result in one durable write, so no other mutation can land
// between the read and the write. fn returning nil leaves the collection
// untouched. Used by the telemetry loop.
func (c *Controller) MutateBuses(ctx context.Context, fn func(buses []Bus) []Bus) error {
	c.mu.Lock()
	buses := fn(c.buses.List())
	if buses == nil {
		c.mu.Unlock()
		return nil
	}
	for i := range buses {
		buses[i].FuelLevel = clampFuel(buses[i].FuelLevel)
	}
	return c.finish(c.buses.Replace(ctx, buses))
}

func (c *Controller) AddDriver(ctx context.Context, driver Driver) (Driver, error) {
	if driver.Name == "" {
		return Driver{}, fmt.Errorf("%w: driver name is required", ErrInvalid)
	}
	if driver.Status == "" {
		driver.Status = DriverAvailable
	}
	c.mu.Lock()
	added, err := c.drivers.Add(ctx, driver)
	if err == nil {
		err = c.syncDriverStatusesLocked(ctx)
	}
	return added, c.finish(err)
}

// UpdateDriver applies the change and propagates a rename to routes that
// reference the driver by name.
func (c *Controller) UpdateDriver(ctx context.Context, driver Driver) error {
	c.mu.Lock()
	prev, ok := c.drivers.Find(driver.ID)
	if !ok {
		c.mu.Unlock()
		return &repo.NotFoundError{Collection: store.Drivers, ID: driver.ID}
	}
	if err := c.drivers.Update(ctx, driver); err != nil {
		return c.finish(err)
	}
	if prev.Name != driver.Name {
		routes := c.routes.List()
		changed := false
		for i := range routes {
			if routes[i].AssignedDriver == prev.Name {
				routes[i].AssignedDriver = driver.Name
				changed = true
			}
		}
		if changed {
			if err := c.routes.Replace(ctx, routes); err != nil {
				return c.finish(err)
			}
		}
	}
	return c.finish(c.syncDriverStatusesLocked(ctx))
}

// RemoveDriver deletes a driver unless a route that is not inactive still
// references them. Bus-level driver names are display-only denormalizations
// and do not block deletion.
func (c *Controller) RemoveDriver(ctx context.Context, id string) error {
	c.mu.Lock()
	driver, ok := c.drivers.Find(id)
	if !ok {
		c.mu.Unlock()
		return &repo.NotFoundError{Collection: store.Drivers, ID: id}
	}
	for _, route := range c.routes.List() {
		if route.Status != RouteInactive && route.AssignedDriver == driver.Name {
			c.mu.Unlock()
			return &ReferentialIntegrityError{Driver: driver.Name, Route: route.Name}
		}
	}
	return c.finish(c.drivers.Remove(ctx, id))
}

func (c *Controller) AddRoute(ctx context.Context, route Route) (Route, error) {
	if route.Name == "" {
		return Route{}, fmt.Errorf("%w: route name is required", ErrInvalid)
	}
	if route.DistanceKM < 0 {
		return Route{}, fmt.Errorf("%w: distance must be non-negative", ErrInvalid)
	}
	if route.Status == "" {
		route.Status = RouteActive
	}
	c.mu.Lock()
	added, err := c.routes.Add(ctx, route)
	if err == nil {
		err = c.syncDriverStatusesLocked(ctx)
	}
	return added, c.finish(err)
}

func (c *Controller) UpdateRoute(ctx context.Context, route Route) error {
	if route.DistanceKM < 0 {
		return fmt.Errorf("%w: distance must be non-negative", ErrInvalid)
	}
	c.mu.Lock()
	if err := c.routes.Update(ctx, route); err != nil {
		return c.finish(err)
	}
	return c.finish(c.syncDriverStatusesLocked(ctx))
}

func (c *Controller) RemoveRoute(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.routes.Remove(ctx, id); err != nil {
		return c.finish(err)
	}
	return c.finish(c.syncDriverStatusesLocked(ctx))
}

// syncDriverStatusesLocked reconciles driver availability with route
// assignments: a driver named on any non-inactive route is assigned,
// otherwise available. Drivers on leave are left alone.
func (c *Controller) syncDriverStatusesLocked(ctx context.Context) error {
	assigned := make(map[string]bool)
	for _, route := range c.routes.List() {
		if route.Status != RouteInactive && route.AssignedDriver != "" {
			assigned[route.AssignedDriver] = true
		}
	}
	drivers := c.drivers.List()
	changed := false
	for i, d := range drivers {
		if d.Status == DriverOnLeave {
			continue
		}
		want := DriverAvailable
		if assigned[d.Name] {
			want = DriverAssigned
		}
		if d.Status != want {
			drivers[i].Status = want
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.drivers.Replace(ctx, drivers)
}

// AddServiceRequest opens a pending request, denormalizing the driver name
// from the target bus at creation time.
func (c *Controller) AddServiceRequest(ctx context.Context, req ServiceRequest) (ServiceRequest, error) {
	if req.BusNumber == "" || req.Issue == "" {
		return ServiceRequest{}, fmt.Errorf("%w: bus number and issue are required", ErrInvalid)
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	req.Status = RequestPending
	req.RequestedAt = c.now()
	c.mu.Lock()
	if req.Driver == "" {
		for _, bus := range c.buses.List() {
			if bus.BusNumber == req.BusNumber {
				req.Driver = bus.Driver
				break
			}
		}
	}
	added, err := c.requests.Add(ctx, req)
	return added, c.finish(err)
}

func (c *Controller) ServiceRequests() []ServiceRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests.List()
}

// ApproveServiceRequest transitions a pending request to approved. When the
// issue text mentions maintenance or repair the referenced bus is moved to
// maintenance as a side effect.
func (c *Controller) ApproveServiceRequest(ctx context.Context, id string) error {
	c.mu.Lock()
	req, ok := c.requests.Find(id)
	if !ok {
		c.mu.Unlock()
		return &repo.NotFoundError{Collection: store.ServiceRequests, ID: id}
	}
	if req.Status != RequestPending {
		c.mu.Unlock()
		return &InvalidTransitionError{ID: id, From: req.Status}
	}
	req.Status = RequestApproved
	if err := c.requests.Update(ctx, req); err != nil {
		return c.finish(err)
	}
	if matchesMaintenanceKeyword(req.Issue) {
		if err := c.setBusStatusByNumberLocked(ctx, req.BusNumber, BusMaintenance); err != nil {
			return c.finish(err)
		}
	}
	return c.finish(nil)
}

// RejectServiceRequest transitions a pending request to rejected.
func (c *Controller) RejectServiceRequest(ctx context.Context, id string) error {
	c.mu.Lock()
	req, ok := c.requests.Find(id)
	if !ok {
		c.mu.Unlock()
		return &repo.NotFoundError{Collection: store.ServiceRequests, ID: id}
	}
	if req.Status != RequestPending {
		c.mu.Unlock()
		return &InvalidTransitionError{ID: id, From: req.Status}
	}
	req.Status = RequestRejected
	return c.finish(c.requests.Update(ctx, req))
}

func matchesMaintenanceKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range maintenanceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (c *Controller) setBusStatusByNumberLocked(ctx context.Context, busNumber string, status BusStatus) error {
	buses := c.buses.List()
	for i := range buses {
		if buses[i].BusNumber == busNumber {
			if buses[i].Status == status {
				return nil
			}
			buses[i].Status = status
			return c.buses.Replace(ctx, buses)
		}
	}
	return nil
}

// ScheduleService assigns the next service date on a bus. It does not
// create a service request.
func (c *Controller) ScheduleService(ctx context.Context, busID string, date time.Time) error {
	c.mu.Lock()
	bus, ok := c.buses.Find(busID)
	if !ok {
		c.mu.Unlock()
		return &repo.NotFoundError{Collection: store.Buses, ID: busID}
	}
	bus.NextService = date
	return c.finish(c.buses.Update(ctx, bus))
}

// AddScheduledService books a calendar service. Maintenance or repair
// service types flip the target bus to maintenance.
func (c *Controller) AddScheduledService(ctx context.Context, svc ScheduledService) (ScheduledService, error) {
	if svc.BusNumber == "" || svc.ServiceType == "" {
		return ScheduledService{}, fmt.Errorf("%w: bus number and service type are required", ErrInvalid)
	}
	if svc.Priority == "" {
		svc.Priority = PriorityMedium
	}
	svc.Status = "scheduled"
	svc.CreatedAt = c.now()
	c.mu.Lock()
	added, err := c.services.Add(ctx, svc)
	if err == nil && matchesMaintenanceKeyword(svc.ServiceType) {
		err = c.setBusStatusByNumberLocked(ctx, svc.BusNumber, BusMaintenance)
	}
	return added, c.finish(err)
}

// AddExpense appends an expense record. Expenses are append-only.
func (c *Controller) AddExpense(ctx context.Context, exp Expense) (Expense, error) {
	if exp.BusNumber == "" {
		return Expense{}, fmt.Errorf("%w: bus number is required", ErrInvalid)
	}
	if exp.Amount < 0 {
		return Expense{}, fmt.Errorf("%w: amount must be non-negative", ErrInvalid)
	}
	if exp.Category == "" {
		exp.Category = ExpenseOther
	}
	if exp.Date.IsZero() {
		exp.Date = c.now()
	}
	c.mu.Lock()
	added, err := c.expenses.Add(ctx, exp)
	return added, c.finish(err)
}

func (c *Controller) Expenses() []Expense {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expenses.List()
}

// RecordFuelFill appends a fill record and raises the bus fuel level by the
// filled share of the tank, clamped at 100.
func (c *Controller) RecordFuelFill(ctx context.Context, rec FuelFillRecord) (FuelFillRecord, error) {
	if rec.BusNumber == "" {
		return FuelFillRecord{}, fmt.Errorf("%w: bus number is required", ErrInvalid)
	}
	if rec.Quantity <= 0 || rec.PricePerLiter < 0 {
		return FuelFillRecord{}, fmt.Errorf("%w: quantity must be positive and price non-negative", ErrInvalid)
	}
	rec.TotalCost = rec.Quantity * rec.PricePerLiter
	if rec.Date.IsZero() {
		rec.Date = c.now()
	}
	c.mu.Lock()
	added, err := c.fills.Add(ctx, rec)
	if err == nil {
		buses := c.buses.List()
		for i := range buses {
			if buses[i].BusNumber == rec.BusNumber {
				buses[i].FuelLevel = clampFuel(buses[i].FuelLevel + (rec.Quantity/tankLitres)*100)
				err = c.buses.Replace(ctx, buses)
				break
			}
		}
	}
	return added, c.finish(err)
}

// ReportFuelTheft logs a theft report in the reported state.
func (c *Controller) ReportFuelTheft(ctx context.Context, rec FuelTheftRecord) (FuelTheftRecord, error) {
	if rec.BusNumber == "" || rec.ReportedBy == "" || rec.Description == "" {
		return FuelTheftRecord{}, fmt.Errorf("%w: bus number, reporter and description are required", ErrInvalid)
	}
	if rec.Priority == "" {
		rec.Priority = PriorityMedium
	}
	rec.Status = TheftReported
	rec.ReportDate = c.now()
	c.mu.Lock()
	added, err := c.thefts.Add(ctx, rec)
	return added, c.finish(err)
}

// UpdateFuelTheftStatus advances a theft report through its investigation
// states.
func (c *Controller) UpdateFuelTheftStatus(ctx context.Context, id string, status TheftStatus, actionTaken string) error {
	switch status {
	case TheftReported, TheftInvestigating, TheftConfirmed, TheftResolved:
	default:
		return fmt.Errorf("%w: unknown theft status %q", ErrInvalid, status)
	}
	c.mu.Lock()
	rec, ok := c.thefts.Find(id)
	if !ok {
		c.mu.Unlock()
		return &repo.NotFoundError{Collection: store.FuelTheftRecord, ID: id}
	}
	rec.Status = status
	if actionTaken != "" {
		rec.ActionTaken = actionTaken
	}
	return c.finish(c.thefts.Update(ctx, rec))
}
