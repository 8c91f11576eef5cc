package fleet

import (
	"strings"
	"time"
)

type BusStatus string

const (
	BusActive      BusStatus = "active"
	BusMaintenance BusStatus = "maintenance"
	BusBreakdown   BusStatus = "breakdown"
	BusIdle        BusStatus = "idle"
)

type Bus struct {
	ID                 string    `json:"id"`
	BusNumber          string    `json:"busNumber"`
	Model              string    `json:"model,omitempty"`
	Capacity           int       `json:"capacity,omitempty"`
	FuelType           string    `json:"fuelType,omitempty"`
	RegistrationNumber string    `json:"registrationNumber,omitempty"`
	Route              string    `json:"route,omitempty"`
	Driver             string    `json:"driver,omitempty"`
	Status             BusStatus `json:"status"`
	FuelLevel          float64   `json:"fuelLevel"`
	Moving             bool      `json:"isMoving"`
	LastMovement       time.Time `json:"lastMovement"`
	LastService        time.Time `json:"lastService,omitempty"`
	NextService        time.Time `json:"nextService,omitempty"`
}

func (b Bus) RecordID() string { return b.ID }

func (b Bus) WithRecordID(id string) Bus {
	b.ID = id
	return b
}

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverAssigned  DriverStatus = "assigned"
	DriverOnLeave   DriverStatus = "on-leave"
)

type Driver struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Phone      string       `json:"phone,omitempty"`
	Email      string       `json:"email,omitempty"`
	LicenseURL string       `json:"licenseUrl,omitempty"`
	Experience string       `json:"experience,omitempty"`
	Status     DriverStatus `json:"status"`
}

func (d Driver) RecordID() string { return d.ID }

func (d Driver) WithRecordID(id string) Driver {
	d.ID = id
	return d
}

type RouteStatus string

const (
	RouteActive      RouteStatus = "active"
	RouteInactive    RouteStatus = "inactive"
	RouteMaintenance RouteStatus = "maintenance"
)

type Route struct {
	ID             string      `json:"id"`
	Name           string      `json:"routeName"`
	StartPoint     string      `json:"startPoint"`
	EndPoint       string      `json:"endPoint"`
	DistanceKM     float64     `json:"distance"`
	EstimatedTime  string      `json:"estimatedTime,omitempty"`
	AssignedDriver string      `json:"assignedDriver,omitempty"`
	Status         RouteStatus `json:"status"`
	Stops          []string    `json:"stops"`
}

func (r Route) RecordID() string { return r.ID }

func (r Route) WithRecordID(id string) Route {
	r.ID = id
	return r
}

// ParseStops splits free-text stop input (one stop per line), dropping
// empty lines while preserving order.
func ParseStops(text string) []string {
	var stops []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			stops = append(stops, s)
		}
	}
	return stops
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityMedium RequestPriority = "medium"
	PriorityHigh   RequestPriority = "high"
)

type ServiceRequest struct {
	ID          string          `json:"id"`
	BusNumber   string          `json:"busNumber"`
	Driver      string          `json:"driver,omitempty"`
	Issue       string          `json:"issue"`
	Priority    RequestPriority `json:"priority"`
	Status      RequestStatus   `json:"status"`
	RequestedAt time.Time       `json:"requestDate"`
}

func (s ServiceRequest) RecordID() string { return s.ID }

func (s ServiceRequest) WithRecordID(id string) ServiceRequest {
	s.ID = id
	return s
}

// ScheduledService is a calendar service booking against a bus. It is
// independent of the ServiceRequest approval workflow.
type ScheduledService struct {
	ID            string          `json:"id"`
	BusNumber     string          `json:"busNumber"`
	ServiceType   string          `json:"serviceType"`
	ScheduledDate time.Time       `json:"scheduledDate"`
	Description   string          `json:"description,omitempty"`
	Technician    string          `json:"technician,omitempty"`
	EstimatedCost float64         `json:"estimatedCost,omitempty"`
	Priority      RequestPriority `json:"priority"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (s ScheduledService) RecordID() string { return s.ID }

func (s ScheduledService) WithRecordID(id string) ScheduledService {
	s.ID = id
	return s
}

type ExpenseCategory string

const (
	ExpenseFuel         ExpenseCategory = "fuel"
	ExpenseMaintenance  ExpenseCategory = "maintenance"
	ExpenseInsurance    ExpenseCategory = "insurance"
	ExpenseRegistration ExpenseCategory = "registration"
	ExpenseOther        ExpenseCategory = "other"
)

// Expense is append-only: there is no update or delete path.
type Expense struct {
	ID          string          `json:"id"`
	BusNumber   string          `json:"busNumber"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description,omitempty"`
	Amount      float64         `json:"amount"`
	Date        time.Time       `json:"date"`
}

func (e Expense) RecordID() string { return e.ID }

func (e Expense) WithRecordID(id string) Expense {
	e.ID = id
	return e
}

type FuelFillRecord struct {
	ID            string    `json:"id"`
	BusNumber     string    `json:"busNumber"`
	Quantity      float64   `json:"quantity"`
	PricePerLiter float64   `json:"pricePerLiter"`
	TotalCost     float64   `json:"totalCost"`
	Location      string    `json:"location,omitempty"`
	Odometer      int       `json:"odometer,omitempty"`
	Date          time.Time `json:"date"`
}

func (f FuelFillRecord) RecordID() string { return f.ID }

func (f FuelFillRecord) WithRecordID(id string) FuelFillRecord {
	f.ID = id
	return f
}

type TheftStatus string

const (
	TheftReported      TheftStatus = "reported"
	TheftInvestigating TheftStatus = "investigating"
	TheftConfirmed     TheftStatus = "confirmed"
	TheftResolved      TheftStatus = "resolved"
)

type FuelTheftRecord struct {
	ID            string          `json:"id"`
	BusNumber     string          `json:"busNumber"`
	ReportedBy    string          `json:"reportedBy"`
	IncidentDate  time.Time       `json:"incidentDate"`
	ReportDate    time.Time       `json:"reportDate"`
	Location      string          `json:"location,omitempty"`
	EstimatedLoss float64         `json:"estimatedLoss"`
	Description   string          `json:"description"`
	Status        TheftStatus     `json:"status"`
	Priority      RequestPriority `json:"priority"`
	ActionTaken   string          `json:"actionTaken,omitempty"`
}

func (f FuelTheftRecord) RecordID() string { return f.ID }

func (f FuelTheftRecord) WithRecordID(id string) FuelTheftRecord {
	f.ID = id
	return f
}

// Snapshot is a deep copy of the fleet state handed to read-only consumers
// (report pages, the websocket hub). Mutating it never touches live state.
type Snapshot struct {
	Buses           []Bus              `json:"buses"`
	Drivers         []Driver           `json:"drivers"`
	Routes          []Route            `json:"routes"`
	ServiceRequests []ServiceRequest   `json:"serviceRequests"`
	Services        []ScheduledService `json:"services"`
	Expenses        []Expense          `json:"expenses"`
	FuelFills       []FuelFillRecord   `json:"fuelFills"`
	FuelThefts      []FuelTheftRecord  `json:"fuelThefts"`
}

type AlertType string

const (
	AlertStationary AlertType = "stationary"
	AlertLowFuel    AlertType = "low_fuel"
)

type Alert struct {
	Type      AlertType `json:"type"`
	BusID     string    `json:"busId"`
	BusNumber string    `json:"busNumber"`
	Driver    string    `json:"driver,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
