package forecast

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateEmployee checks a roster record before it is saved.
func ValidateEmployee(e Employee) error {
	if err := structError("employee", e.ID, validate.Struct(e)); err != nil {
		return err
	}
	if e.StartDate.IsZero() {
		return &RecordError{Kind: FailureMissingStartDate, Record: "employee", ID: e.ID,
			Field: "start_date", Message: "start date is required"}
	}
	if e.EndDate != nil && !e.EndDate.After(e.StartDate) {
		return &RecordError{Kind: FailureEndNotAfterStart, Record: "employee", ID: e.ID,
			Field: "end_date", Message: "end date must be after start date"}
	}
	return nil
}

// ValidatePlannedChange checks the type-specific fields of a change.
func ValidatePlannedChange(c PlannedChange) error {
	const record = "planned_change"

	if !c.Type.Valid() {
		return &RecordError{Kind: FailureUnknownChangeType, Record: record, ID: c.ID,
			Field: "change_type", Message: "unknown change type " + string(c.Type)}
	}
	if err := structError(record, c.ID, validate.Struct(c)); err != nil {
		return err
	}
	if c.EffectiveDate.IsZero() {
		return &RecordError{Kind: FailureMissingEffectiveDate, Record: record, ID: c.ID,
			Field: "effective_date", Message: "effective date is required"}
	}

	switch c.Type {
	case ChangeNewHire:
		if c.EmployeeID != nil {
			return &RecordError{Kind: FailureUnexpectedEmployeeReference, Record: record, ID: c.ID,
				Field: "employee_id", Message: "a new hire cannot reference an existing employee"}
		}
		if c.Name == "" || c.ManagerCode == "" || c.CostCenter == "" {
			return &RecordError{Kind: FailureMissingNewHireFields, Record: record, ID: c.ID,
				Message: "a new hire needs name, manager code and cost center"}
		}
		if !c.EmploymentType.Valid() {
			return &RecordError{Kind: FailureUnknownEmploymentType, Record: record, ID: c.ID,
				Field: "employment_type", Message: "unknown employment type " + string(c.EmploymentType)}
		}
	case ChangeConversion:
		if c.EmployeeID == nil {
			return missingReference(c)
		}
		if !c.TargetType.Valid() {
			return &RecordError{Kind: FailureUnknownEmploymentType, Record: record, ID: c.ID,
				Field: "target_employment_type", Message: "unknown target type " + string(c.TargetType)}
		}
	case ChangeTermination:
		if c.EmployeeID == nil {
			return missingReference(c)
		}
	}
	return nil
}

// ValidateAllocation checks a project allocation. Allocations are project
// hours, so the work code must be blank or ProjectTime; any other code would
// be stored and never read by the calculator.
func ValidateAllocation(a ProjectAllocation) error {
	const record = "project_allocation"
	if a.Month < 1 || a.Month > 12 {
		return &RecordError{Kind: FailureInvalidMonth, Record: record, ID: a.ID, Field: "month",
			Message: "month must be between 1 and 12"}
	}
	if a.Year < 1000 || a.Year > 9999 {
		return &RecordError{Kind: FailureInvalidYear, Record: record, ID: a.ID, Field: "year",
			Message: "year must have four digits"}
	}
	if err := structError(record, a.ID, validate.Struct(a)); err != nil {
		return err
	}
	if a.Hours.IsNegative() {
		return &RecordError{Kind: FailureInvalidHours, Record: record, ID: a.ID, Field: "hours",
			Message: "hours cannot be negative"}
	}
	if a.WorkCode != "" && a.WorkCode != ProjectTime {
		return &RecordError{Kind: FailureUnsupportedWorkCode, Record: record, ID: a.ID, Field: "work_code",
			Message: fmt.Sprintf("allocations apply to %q only, got %q", ProjectTime, a.WorkCode)}
	}
	return nil
}

// ValidateWeeks checks a standard-weeks table for one year.
func ValidateWeeks(year int, entries []WeeksEntry) error {
	const record = "weeks"
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Year != year {
			return &RecordError{Kind: FailureInvalidYear, Record: record, Field: "year",
				Message: "entry year does not match table year"}
		}
		if e.Month < 1 || e.Month > 12 || seen[e.Month] {
			return &RecordError{Kind: FailureInvalidMonth, Record: record, Field: "month",
				Message: "each month 1-12 may appear once"}
		}
		seen[e.Month] = true
		if e.Weeks.IsNegative() {
			return &RecordError{Kind: FailureInvalidWeeks, Record: record, Field: "weeks",
				Message: "weeks cannot be negative"}
		}
	}
	return nil
}

// ValidateSettings requires both weekly rates to be positive.
func ValidateSettings(s Settings) error {
	if !s.FTEHours.IsPositive() || !s.ContractorHours.IsPositive() {
		return &RecordError{Kind: FailureInvalidSettings, Record: "settings",
			Message: "weekly hours must be greater than zero"}
	}
	return nil
}

func missingReference(c PlannedChange) error {
	return &RecordError{Kind: FailureMissingEmployeeReference, Record: "planned_change", ID: c.ID,
		Field: "employee_id", Message: string(c.Type) + " must reference an employee"}
}

// structError maps the first validator failure to a RecordError.
func structError(record string, id int64, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &RecordError{Kind: FailureMissingField, Record: record, ID: id, Message: err.Error()}
	}

	fe := verrs[0]
	kind := FailureMissingField
	switch {
	case fe.Tag() == "oneof" && strings.HasSuffix(fe.Field(), "employment_type"):
		kind = FailureUnknownEmploymentType
	case fe.Field() == "month":
		kind = FailureInvalidMonth
	case fe.Field() == "year":
		kind = FailureInvalidYear
	}
	return &RecordError{Kind: kind, Record: record, ID: id, Field: fe.Field(),
		Message: fe.Field() + " failed " + fe.Tag()}
}
