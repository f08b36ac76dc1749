/*
calculator.go - Per-employee monthly hour calculation

PURPOSE:
  For one roster entry, one year and one work code, produce twelve monthly
  hour figures. The calculator is pure: every input is handed to it, so two
  calls with the same inputs return the same output.

MONTHLY ALGORITHM:
  1. Standard weeks for the month (4.0 when absent)
  2. Month span and second-week threshold (day 14, or the last day)
  3. Pending changes for the employee effective inside the month
  4. Termination on or before the threshold → zero hours for the month.
     A termination after the threshold leaves the month untouched.
  5. Active ratio from start/end dates. Dates after the threshold count
     the whole month, in both directions.
  6. Effective type: the latest conversion in the month wins
  7. available = weekly rate × weeks × ratio
  8. Split by work code against the prorated project allocation
  9. Round to two decimals

WORK CODE SPLIT:
  Project Time with an allocation → allocation × ratio
  Work Time                       → max(0, available - allocation × ratio)
  anything else                   → 20% if the code names project work,
                                    otherwise 80% of available
  (Project Time without an allocation row takes the 20% branch.)

SEE ALSO:
  - roster.go: RosterEntry and ChangeQueue
  - recalculate.go: Drives the calculator for a whole scope
*/
package forecast

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	projectShare = decimal.RequireFromString("0.2")
	workShare    = decimal.RequireFromString("0.8")
)

// Calculator holds the inputs shared by every employee in a recalculation.
type Calculator struct {
	Settings    Settings
	Weeks       WeeksTable
	Allocations AllocationTable
	Changes     ChangeQueue
}

// Calculate returns twelve monthly figures for entry in year under workCode.
// Months outside the employee's active span are zero but still present.
func (c *Calculator) Calculate(entry RosterEntry, year int, workCode string) ([]MonthlyHours, error) {
	profile := entry.Profile()
	if err := checkProfile(entry, profile); err != nil {
		return nil, err
	}

	var changes []PlannedChange
	if real, ok := entry.(RealEmployee); ok {
		changes = c.Changes.ForEmployee(real.Employee.ID)
	}

	out := make([]MonthlyHours, 0, 12)
	for _, span := range Months(year) {
		hours := c.monthHours(profile, Within(changes, span.Period), span, workCode)
		out = append(out, MonthlyHours{Month: span.Month, Hours: hours.Round(2)})
	}
	return out, nil
}

func (c *Calculator) monthHours(p Profile, changes []PlannedChange, span MonthSpan, workCode string) decimal.Decimal {
	threshold := span.Threshold()

	for _, ch := range changes {
		if ch.Type == ChangeTermination && ch.EffectiveDate.BeforeOrEqual(threshold) {
			return decimal.Zero
		}
	}

	ratio := ActiveRatio(p.StartDate, p.EndDate, span)
	if ratio.IsZero() {
		return decimal.Zero
	}

	employmentType := p.EmploymentType
	for _, ch := range changes {
		if ch.Type == ChangeConversion && ch.TargetType.Valid() {
			employmentType = ch.TargetType
		}
	}

	weeks := c.Weeks.Weeks(span.Year, int(span.Month))
	available := c.Settings.WeeklyHours(employmentType).Mul(weeks).Mul(ratio)

	allocation, hasAllocation := c.Allocations.Lookup(p.ManagerCode, p.CostCenter, span.Year, int(span.Month))
	allocation = allocation.Mul(ratio)

	hours := splitHours(workCode, available, allocation, hasAllocation)
	if hours.IsNegative() {
		return decimal.Zero
	}
	return hours
}

// ActiveRatio is the fraction of span during which an employee with the given
// start and end dates counts as active. A start or end after the threshold is
// widened to the month boundary.
func ActiveRatio(start Date, end *Date, span MonthSpan) decimal.Decimal {
	if start.After(span.End) {
		return decimal.Zero
	}
	if end != nil && end.Before(span.Start) {
		return decimal.Zero
	}

	threshold := span.Threshold()

	from := span.Start
	if span.Contains(start) && start.BeforeOrEqual(threshold) {
		from = start
	}
	to := span.End
	if end != nil && span.Contains(*end) && end.BeforeOrEqual(threshold) {
		to = *end
	}

	active := DaysBetween(from, to) + 1
	if active <= 0 {
		return decimal.Zero
	}
	if active == span.Days() {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(active)).Div(decimal.NewFromInt(int64(span.Days())))
}

func splitHours(workCode string, available, allocation decimal.Decimal, hasAllocation bool) decimal.Decimal {
	switch workCode {
	case ProjectTime:
		if hasAllocation {
			return allocation
		}
		return available.Mul(projectShare)
	case WorkTime:
		return decimal.Max(decimal.Zero, available.Sub(allocation))
	}
	if resemblesProjectTime(workCode) {
		return available.Mul(projectShare)
	}
	return available.Mul(workShare)
}

func resemblesProjectTime(code string) bool {
	return strings.Contains(strings.ToLower(code), "project")
}

func checkProfile(entry RosterEntry, p Profile) error {
	record, id := "employee", int64(0)
	switch e := entry.(type) {
	case RealEmployee:
		id = e.Employee.ID
	case PlannedHire:
		record, id = "planned_change", e.Change.ID
	}

	if p.StartDate.IsZero() {
		return &RecordError{Kind: FailureMissingStartDate, Record: record, ID: id, Field: "start_date",
			Message: "start date is required"}
	}
	if p.EndDate != nil && !p.EndDate.After(p.StartDate) {
		return &RecordError{Kind: FailureEndNotAfterStart, Record: record, ID: id, Field: "end_date",
			Message: "end date must be after start date"}
	}
	return nil
}
