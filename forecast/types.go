/*
Package forecast provides the staffing forecast engine.

PURPOSE:
  Projects, per employee and per accounting month, how many hours are
  available for "Work Time" versus "Project Time", and rolls those figures
  up by manager, cost center and work code. Scheduled lifecycle events
  (new hires, conversions, terminations) shape each month's figure.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: a roster record with manager, cost center, type and dates
  - WeeksEntry: the "standard weeks" figure for one month
  - ProjectAllocation: hours manually committed to project work
  - PlannedChange: a pending lifecycle event
  - Settings: weekly hour rates per employment type
  - Forecast: one computed (employee, work code, month) figure

DESIGN PRINCIPLES:
  1. Precision: hours, weeks and ratios use decimal.Decimal
  2. Replacement: forecasts for a scope are replaced wholesale, never patched
  3. Explicit inputs: the calculator sees only what it is handed

SEE ALSO:
  - calculator.go: Per-employee monthly calculation
  - recalculate.go: Forecast replacement writer
  - report.go: Manager / cost center / work code roll-up
*/
package forecast

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYMENT TYPE
// =============================================================================

type EmploymentType string

const (
	FTE        EmploymentType = "FTE"
	Contractor EmploymentType = "Contractor"
)

// ParseEmploymentType accepts the canonical names case-insensitively.
func ParseEmploymentType(s string) (EmploymentType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FTE":
		return FTE, true
	case "CONTRACTOR":
		return Contractor, true
	}
	return "", false
}

func (t EmploymentType) Valid() bool {
	return t == FTE || t == Contractor
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a persisted roster record. EndDate is nil while the employee
// is still active.
type Employee struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name" validate:"required"`
	ManagerCode    string         `json:"manager_code" validate:"required"`
	CostCenter     string         `json:"cost_center" validate:"required"`
	EmploymentType EmploymentType `json:"employment_type" validate:"required,oneof=FTE Contractor"`
	StartDate      Date           `json:"start_date"`
	EndDate        *Date          `json:"end_date,omitempty"`
}

// =============================================================================
// WORK CODES
// =============================================================================

const (
	WorkTime    = "Work Time"
	ProjectTime = "Project Time"
)

type WorkCode struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// =============================================================================
// STANDARD WEEKS
// =============================================================================

// DefaultWeeksPerMonth applies when a month has no weeks entry.
var DefaultWeeksPerMonth = decimal.NewFromInt(4)

type WeeksEntry struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Weeks decimal.Decimal `json:"weeks"`
}

type YearMonth struct {
	Year  int
	Month int
}

// WeeksTable maps a (year, month) to its standard weeks figure.
type WeeksTable map[YearMonth]decimal.Decimal

func NewWeeksTable(entries []WeeksEntry) WeeksTable {
	t := make(WeeksTable, len(entries))
	for _, e := range entries {
		t[YearMonth{Year: e.Year, Month: e.Month}] = e.Weeks
	}
	return t
}

// Weeks returns the figure for a month, or DefaultWeeksPerMonth if absent.
func (t WeeksTable) Weeks(year, month int) decimal.Decimal {
	if w, ok := t[YearMonth{Year: year, Month: month}]; ok {
		return w
	}
	return DefaultWeeksPerMonth
}

// =============================================================================
// PROJECT ALLOCATION
// =============================================================================

// ProjectAllocation is a manually entered monthly figure of project hours for
// a manager. CostCenter and WorkCode may be empty for manager-wide entries.
type ProjectAllocation struct {
	ID          int64           `json:"id"`
	ManagerCode string          `json:"manager_code" validate:"required"`
	CostCenter  string          `json:"cost_center"`
	WorkCode    string          `json:"work_code"`
	Year        int             `json:"year" validate:"min=1000,max=9999"`
	Month       int             `json:"month" validate:"min=1,max=12"`
	Hours       decimal.Decimal `json:"hours"`
}

type allocationKey struct {
	manager    string
	costCenter string
	workCode   string
	year       int
	month      int
}

// AllocationTable resolves the allocation that applies to an employee's
// manager and cost center for a month.
type AllocationTable map[allocationKey]decimal.Decimal

func NewAllocationTable(allocs []ProjectAllocation) AllocationTable {
	t := make(AllocationTable, len(allocs))
	for _, a := range allocs {
		k := allocationKey{a.ManagerCode, a.CostCenter, a.WorkCode, a.Year, a.Month}
		t[k] = t[k].Add(a.Hours)
	}
	return t
}

// Lookup finds the project-time allocation for a manager and cost center.
// The most specific entry wins: exact cost center before manager-wide, and an
// explicit "Project Time" work code before an unset one.
func (t AllocationTable) Lookup(manager, costCenter string, year, month int) (decimal.Decimal, bool) {
	candidates := []allocationKey{
		{manager, costCenter, ProjectTime, year, month},
		{manager, costCenter, "", year, month},
		{manager, "", ProjectTime, year, month},
		{manager, "", "", year, month},
	}
	for _, k := range candidates {
		if h, ok := t[k]; ok {
			return h, true
		}
	}
	return decimal.Zero, false
}

// =============================================================================
// PLANNED CHANGES
// =============================================================================

type ChangeType string

const (
	ChangeNewHire     ChangeType = "New Hire"
	ChangeConversion  ChangeType = "Conversion"
	ChangeTermination ChangeType = "Termination"
)

func (t ChangeType) Valid() bool {
	return t == ChangeNewHire || t == ChangeConversion || t == ChangeTermination
}

type ChangeStatus string

const (
	StatusPending ChangeStatus = "Pending"
	StatusApplied ChangeStatus = "Applied"
)

// PlannedChange is a scheduled lifecycle event. Conversion and Termination
// reference an existing employee; NewHire carries the new employee's fields.
type PlannedChange struct {
	ID            int64        `json:"id"`
	Description   string       `json:"description" validate:"required"`
	Type          ChangeType   `json:"change_type" validate:"required"`
	EffectiveDate Date         `json:"effective_date"`
	Status        ChangeStatus `json:"status"`

	// Conversion / Termination
	EmployeeID *int64         `json:"employee_id,omitempty"`
	TargetType EmploymentType `json:"target_employment_type,omitempty"`

	// New Hire
	Name           string         `json:"name,omitempty"`
	ManagerCode    string         `json:"manager_code,omitempty"`
	CostCenter     string         `json:"cost_center,omitempty"`
	EmploymentType EmploymentType `json:"employment_type,omitempty"`
}

func (c PlannedChange) IsPending() bool { return c.Status == "" || c.Status == StatusPending }

// ChangeFilter narrows a planned-change query. Zero fields match everything.
type ChangeFilter struct {
	Status     ChangeStatus
	Type       ChangeType
	EmployeeID *int64
	From       *Date
	To         *Date
}

func (f ChangeFilter) Matches(c PlannedChange) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.EmployeeID != nil && (c.EmployeeID == nil || *c.EmployeeID != *f.EmployeeID) {
		return false
	}
	if f.From != nil && c.EffectiveDate.Before(*f.From) {
		return false
	}
	if f.To != nil && c.EffectiveDate.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds the weekly hour rate per employment type.
type Settings struct {
	FTEHours        decimal.Decimal `json:"fte_hours"`
	ContractorHours decimal.Decimal `json:"contractor_hours"`
}

func DefaultSettings() Settings {
	return Settings{
		FTEHours:        decimal.RequireFromString("34.5"),
		ContractorHours: decimal.RequireFromString("39.0"),
	}
}

func (s Settings) WeeklyHours(t EmploymentType) decimal.Decimal {
	if t == FTE {
		return s.FTEHours
	}
	return s.ContractorHours
}

// =============================================================================
// FORECAST
// =============================================================================

// PlannedHireRef identifies the planned change behind a forecast row that
// has no employee yet, along with the grouping keys the report needs.
type PlannedHireRef struct {
	ChangeID    int64  `json:"change_id"`
	Name        string `json:"name"`
	ManagerCode string `json:"manager_code"`
	CostCenter  string `json:"cost_center"`
}

// Forecast is one computed figure. Exactly one of EmployeeID and Planned is set.
type Forecast struct {
	ID         int64           `json:"id"`
	EmployeeID *int64          `json:"employee_id"`
	Planned    *PlannedHireRef `json:"planned,omitempty"`
	WorkCode   string          `json:"work_code"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Hours      decimal.Decimal `json:"hours"`
	Note       string          `json:"note,omitempty"`
	RunID      string          `json:"run_id,omitempty"`
}

// MonthlyHours is one month of calculator output.
type MonthlyHours struct {
	Month time.Month
	Hours decimal.Decimal
}

// ForecastScope selects which persisted forecasts a replacement covers.
type ForecastScope struct {
	Year       int
	EmployeeID *int64 // nil = every row of the year, planned hires included
}

// Covers reports whether a persisted row belongs to the scope.
func (s ForecastScope) Covers(f Forecast) bool {
	if f.Year != s.Year {
		return false
	}
	if s.EmployeeID == nil {
		return true
	}
	return f.EmployeeID != nil && *f.EmployeeID == *s.EmployeeID
}

// Run records one recalculation.
type Run struct {
	ID           string    `json:"id"`
	Scope        string    `json:"scope"`
	Year         int       `json:"year"`
	Employees    int       `json:"employees"`
	PlannedHires int       `json:"planned_hires"`
	Rows         int       `json:"rows"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}
