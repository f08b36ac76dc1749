/*
errors.go - Error types for the forecast engine

ERROR CATEGORIES:
  1. Configuration gaps - missing weeks or settings. Never errors: the
     engine substitutes defaults.
  2. Record validity - a bad date, an end date not after the start date,
     a change pointing at a missing employee. Reported per record as a
     *RecordError carrying a FailureKind.
  3. Scope failures - anything that stops a recalculation. The whole scope
     is abandoned and prior forecasts stay in place.
*/
package forecast

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrPlannedChangeNotFound = errors.New("planned change not found")

	// ErrChangeAlreadyApplied is returned when applying a change that is no
	// longer pending.
	ErrChangeAlreadyApplied = errors.New("planned change already applied")

	// ErrInvalidRecord is the root of every *RecordError.
	ErrInvalidRecord = errors.New("invalid record")
)

// =============================================================================
// RECORD ERRORS - Typed validation results
// =============================================================================

// FailureKind enumerates why a record was rejected. UI layers map kinds to
// their own messages rather than matching on error text.
type FailureKind string

const (
	FailureMissingField                FailureKind = "missing_field"
	FailureMissingStartDate            FailureKind = "missing_start_date"
	FailureInvalidDate                 FailureKind = "invalid_date"
	FailureEndNotAfterStart            FailureKind = "end_not_after_start"
	FailureUnknownEmploymentType       FailureKind = "unknown_employment_type"
	FailureUnknownChangeType           FailureKind = "unknown_change_type"
	FailureMissingEffectiveDate        FailureKind = "missing_effective_date"
	FailureMissingEmployeeReference    FailureKind = "missing_employee_reference"
	FailureUnexpectedEmployeeReference FailureKind = "unexpected_employee_reference"
	FailureEmployeeNotFound            FailureKind = "employee_not_found"
	FailureMissingNewHireFields        FailureKind = "missing_new_hire_fields"
	FailureInvalidWeeks                FailureKind = "invalid_weeks"
	FailureInvalidHours                FailureKind = "invalid_hours"
	FailureInvalidMonth                FailureKind = "invalid_month"
	FailureInvalidYear                 FailureKind = "invalid_year"
	FailureInvalidSettings             FailureKind = "invalid_settings"
	FailureUnsupportedWorkCode         FailureKind = "unsupported_work_code"
)

// RecordError reports a single record that could not be processed.
type RecordError struct {
	Kind    FailureKind `json:"kind"`
	Record  string      `json:"record"` // "employee", "planned_change", ...
	ID      int64       `json:"id,omitempty"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

func (e *RecordError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.ID != 0 {
		return fmt.Sprintf("%s %d: %s", e.Record, e.ID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Record, msg)
}

func (e *RecordError) Unwrap() error {
	return ErrInvalidRecord
}

// AsRecordError extracts a *RecordError from an error chain.
func AsRecordError(err error) (*RecordError, bool) {
	var re *RecordError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrChangeAlreadyApplied)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrPlannedChangeNotFound)
}
