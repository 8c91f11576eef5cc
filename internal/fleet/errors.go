package fleet

import "fmt"

// ReferentialIntegrityError blocks a delete while a live reference exists.
type ReferentialIntegrityError struct {
	Driver string
	Route  string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s: assigned to route %s", e.Driver, e.Route)
}

// InvalidTransitionError reports a service-request transition attempted from
// a terminal state.
type InvalidTransitionError struct {
	ID   string
	From RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("service request %s is already %s", e.ID, e.From)
}
