/*
report.go - Manager / cost center / work code roll-up

PURPOSE:
  Groups persisted forecast rows by (manager code, cost center, work code)
  and sums each calendar month plus an annual total.

GROUPING KEYS:
  Rows with an employee id take manager and cost center from the roster.
  Rows for planned hires carry the keys on the row itself. A planned-hire
  row missing either key groups under ("Planned", "Future hires"). Rows
  whose employee has left the roster are skipped.

FILTERS:
  "All" (or empty) disables a filter. With an active filter only matching
  rows are kept; when nothing matches, the report is empty.

ORDERING:
  Groups appear in the order they are first met while reading forecasts
  in insertion order.
*/
package forecast

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	AllFilter = "All"

	PlannedManagerPlaceholder    = "Planned"
	PlannedCostCenterPlaceholder = "Future hires"
)

// ReportFilter selects a manager and/or cost center.
type ReportFilter struct {
	Manager    string
	CostCenter string
}

func (f ReportFilter) active(v string) bool { return v != "" && v != AllFilter }

func (f ReportFilter) Matches(manager, costCenter string) bool {
	if f.active(f.Manager) && manager != f.Manager {
		return false
	}
	if f.active(f.CostCenter) && costCenter != f.CostCenter {
		return false
	}
	return true
}

// ReportRow is one (manager, cost center, work code) group.
type ReportRow struct {
	ManagerCode string
	CostCenter  string
	WorkCode    string
	Months      [12]decimal.Decimal // index 0 = January
	Total       decimal.Decimal
}

// Month returns the figure for month 1-12.
func (r ReportRow) Month(month int) decimal.Decimal {
	if month < 1 || month > 12 {
		return decimal.Zero
	}
	return r.Months[month-1]
}

type reportKey struct {
	manager    string
	costCenter string
	workCode   string
}

// ReportSource is what the builder reads.
type ReportSource interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	Forecasts(ctx context.Context, year int) ([]Forecast, error)
}

type ReportBuilder struct {
	source ReportSource
}

func NewReportBuilder(source ReportSource) *ReportBuilder {
	return &ReportBuilder{source: source}
}

// Build reads the year's forecasts and the roster and aggregates them.
func (b *ReportBuilder) Build(ctx context.Context, year int, filter ReportFilter) ([]ReportRow, error) {
	rows, err := b.source.Forecasts(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load forecasts %d: %w", year, err)
	}
	employees, err := b.source.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	return Aggregate(rows, employees, filter), nil
}

// Aggregate groups rows; see the file comment for the rules.
func Aggregate(rows []Forecast, employees []Employee, filter ReportFilter) []ReportRow {
	roster := make(map[int64]Employee, len(employees))
	for _, e := range employees {
		roster[e.ID] = e
	}

	index := make(map[reportKey]int)
	out := []ReportRow{}
	for _, f := range rows {
		manager, costCenter, ok := groupOf(f, roster)
		if !ok || !filter.Matches(manager, costCenter) {
			continue
		}
		if f.Month < 1 || f.Month > 12 {
			continue
		}

		k := reportKey{manager, costCenter, f.WorkCode}
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			out = append(out, ReportRow{ManagerCode: manager, CostCenter: costCenter, WorkCode: f.WorkCode})
		}
		out[i].Months[f.Month-1] = out[i].Months[f.Month-1].Add(f.Hours)
		out[i].Total = out[i].Total.Add(f.Hours)
	}
	return out
}

func groupOf(f Forecast, roster map[int64]Employee) (manager, costCenter string, ok bool) {
	if f.EmployeeID != nil {
		e, found := roster[*f.EmployeeID]
		if !found {
			return "", "", false
		}
		return e.ManagerCode, e.CostCenter, true
	}
	if f.Planned == nil || f.Planned.ManagerCode == "" || f.Planned.CostCenter == "" {
		return PlannedManagerPlaceholder, PlannedCostCenterPlaceholder, true
	}
	return f.Planned.ManagerCode, f.Planned.CostCenter, true
}
