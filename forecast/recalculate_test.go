/*
recalculate_test.go - Tests for the forecast replacement writer

Tests for:
- Full-scope replacement (employees and planned hires)
- Single-employee replacement
- All-or-nothing behavior on a bad record
- Run records
*/
package forecast_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/headcount-forecast/forecast"
	"github.com/warp/headcount-forecast/forecast/store"
)

var june2024 = func() time.Time { return time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC) }

type fixture struct {
	store  *store.Memory
	recalc *forecast.Recalculator
	alice  int64
	bob    int64
	hire   int64
}

// newFixture seeds two employees, a planned hire in 2024, one in 2025 and
// one outside the horizon.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	_, err := forecast.SeedWeeks(ctx, mem, 2024)
	require.NoError(t, err)

	alice, err := mem.SaveEmployee(ctx, forecast.Employee{
		Name: "Alice", ManagerCode: "M1", CostCenter: "CC1",
		EmploymentType: forecast.FTE, StartDate: d(2020, time.January, 1),
	})
	require.NoError(t, err)
	bob, err := mem.SaveEmployee(ctx, forecast.Employee{
		Name: "Bob", ManagerCode: "M1", CostCenter: "CC2",
		EmploymentType: forecast.Contractor, StartDate: d(2024, time.March, 4),
	})
	require.NoError(t, err)

	hire, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Backfill", Type: forecast.ChangeNewHire, EffectiveDate: d(2024, time.July, 1),
		Name: "Carol", ManagerCode: "M2", CostCenter: "CC3", EmploymentType: forecast.FTE,
	})
	require.NoError(t, err)
	_, err = mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Next year", Type: forecast.ChangeNewHire, EffectiveDate: d(2025, time.March, 1),
		Name: "Dan", ManagerCode: "M2", CostCenter: "CC3", EmploymentType: forecast.FTE,
	})
	require.NoError(t, err)
	_, err = mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Far future", Type: forecast.ChangeNewHire, EffectiveDate: d(2026, time.January, 5),
		Name: "Eve", ManagerCode: "M2", CostCenter: "CC3", EmploymentType: forecast.FTE,
	})
	require.NoError(t, err)

	return &fixture{
		store:  mem,
		recalc: forecast.NewRecalculator(mem, forecast.WithClock(june2024)),
		alice:  alice,
		bob:    bob,
		hire:   hire,
	}
}

func (f *fixture) forecasts(t *testing.T) []forecast.Forecast {
	t.Helper()
	rows, err := f.store.Forecasts(context.Background(), 2024)
	require.NoError(t, err)
	return rows
}

func rowsFor(rows []forecast.Forecast, employeeID int64) []forecast.Forecast {
	var out []forecast.Forecast
	for _, r := range rows {
		if r.EmployeeID != nil && *r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out
}

func plannedRows(rows []forecast.Forecast) []forecast.Forecast {
	var out []forecast.Forecast
	for _, r := range rows {
		if r.Planned != nil {
			out = append(out, r)
		}
	}
	return out
}

func TestRecalculate_AllEmployees(t *testing.T) {
	// GIVEN: Two employees and two planned hires inside the horizon
	f := newFixture(t)
	ctx := context.Background()

	// WHEN: Recalculating every employee
	run, err := f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)

	// THEN: 12 months × 2 work codes for each of the four entries
	rows := f.forecasts(t)
	assert.Len(t, rows, 4*2*12)
	assert.Equal(t, 2, run.Employees)
	assert.Equal(t, 2, run.PlannedHires)
	assert.Equal(t, len(rows), run.Rows)
	assert.Equal(t, "all", run.Scope)
	assert.Equal(t, 2024, run.Year)

	assert.Len(t, rowsFor(rows, f.alice), 24)
	assert.Len(t, rowsFor(rows, f.bob), 24)

	// AND: Planned-hire rows carry their keys and no employee
	planned := plannedRows(rows)
	require.Len(t, planned, 48)
	for _, r := range planned {
		assert.Nil(t, r.EmployeeID)
		assert.Equal(t, "M2", r.Planned.ManagerCode)
		assert.Equal(t, "CC3", r.Planned.CostCenter)
		assert.NotEmpty(t, r.Note)
		assert.Equal(t, run.ID, r.RunID)
	}

	// AND: Bob starts on March 4 as a contractor, before the threshold
	for _, r := range rowsFor(rows, f.bob) {
		if r.WorkCode == forecast.WorkTime && r.Month == 2 {
			assert.True(t, r.Hours.IsZero())
		}
		if r.WorkCode == forecast.WorkTime && r.Month == 4 {
			assert.True(t, r.Hours.Equal(decimal.NewFromInt(156)), "got %s", r.Hours)
		}
	}
}

func TestRecalculate_ReplacesRatherThanAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)
	_, err = f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)

	assert.Len(t, f.forecasts(t), 96)

	runs, err := f.store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecalculate_AppliedHireDropsPlannedRows(t *testing.T) {
	// GIVEN: A full recalculation, then the 2024 hire is marked applied
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)

	change, err := f.store.GetPlannedChange(ctx, f.hire)
	require.NoError(t, err)
	change.Status = forecast.StatusApplied
	_, err = f.store.SavePlannedChange(ctx, *change)
	require.NoError(t, err)

	// WHEN: Recalculating again
	run, err := f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)

	// THEN: Only the 2025 hire remains as planned rows
	assert.Equal(t, 1, run.PlannedHires)
	assert.Len(t, plannedRows(f.forecasts(t)), 24)
}

func TestRecalculate_SingleEmployee(t *testing.T) {
	// GIVEN: A full recalculation
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)
	before := f.forecasts(t)

	// WHEN: Alice converts to contractor and only she is recalculated
	alice, err := f.store.GetEmployee(ctx, f.alice)
	require.NoError(t, err)
	alice.EmploymentType = forecast.Contractor
	_, err = f.store.SaveEmployee(ctx, *alice)
	require.NoError(t, err)

	run, err := f.recalc.Recalculate(ctx, forecast.SingleEmployee(f.alice))
	require.NoError(t, err)
	assert.Equal(t, 1, run.Employees)
	assert.Equal(t, 0, run.PlannedHires)

	// THEN: Alice's rows are replaced, everything else is untouched
	after := f.forecasts(t)
	assert.Len(t, after, len(before))
	assert.Equal(t, rowsFor(before, f.bob), rowsFor(after, f.bob))
	assert.Equal(t, plannedRows(before), plannedRows(after))

	for _, r := range rowsFor(after, f.alice) {
		assert.Equal(t, run.ID, r.RunID)
		if r.WorkCode == forecast.WorkTime && r.Month == 2 {
			assert.True(t, r.Hours.Equal(decimal.NewFromInt(156)), "got %s", r.Hours)
		}
	}
}

func TestRecalculate_SingleEmployeeNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.recalc.Recalculate(context.Background(), forecast.SingleEmployee(4242))

	assert.ErrorIs(t, err, forecast.ErrEmployeeNotFound)
	assert.True(t, forecast.IsNotFound(err))
}

func TestRecalculate_BadRecordKeepsPriorForecasts(t *testing.T) {
	// GIVEN: Persisted forecasts from a good run
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recalc.Recalculate(ctx, forecast.AllEmployees())
	require.NoError(t, err)
	before := f.forecasts(t)

	// AND: An employee whose end date precedes the start date
	_, err = f.store.SaveEmployee(ctx, forecast.Employee{
		Name: "Broken", ManagerCode: "M9", CostCenter: "CC9", EmploymentType: forecast.FTE,
		StartDate: d(2024, time.May, 1), EndDate: dp(2024, time.April, 1),
	})
	require.NoError(t, err)

	// WHEN: Recalculating every employee
	_, err = f.recalc.Recalculate(ctx, forecast.AllEmployees())

	// THEN: The failure names the record and nothing was replaced
	re, ok := forecast.AsRecordError(err)
	require.True(t, ok)
	assert.Equal(t, forecast.FailureEndNotAfterStart, re.Kind)
	assert.Equal(t, before, f.forecasts(t))

	runs, err := f.store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecalculate_MissingWeeksUseDefault(t *testing.T) {
	// GIVEN: No weeks table and no settings row
	ctx := context.Background()
	mem := store.NewMemory()
	id, err := mem.SaveEmployee(ctx, forecast.Employee{
		Name: "Solo", ManagerCode: "M1", CostCenter: "CC1",
		EmploymentType: forecast.FTE, StartDate: d(2020, time.January, 1),
	})
	require.NoError(t, err)

	// WHEN: Recalculating
	_, err = forecast.NewRecalculator(mem, forecast.WithClock(june2024)).Recalculate(ctx, forecast.SingleEmployee(id))
	require.NoError(t, err)

	// THEN: 4 weeks × 34.5 every month
	rows, err := mem.Forecasts(ctx, 2024)
	require.NoError(t, err)
	for _, r := range rows {
		if r.WorkCode == forecast.WorkTime {
			assert.True(t, r.Hours.Equal(decimal.NewFromInt(138)), "month %d got %s", r.Month, r.Hours)
		}
	}
}

func TestHireHorizon(t *testing.T) {
	h := forecast.HireHorizon(2024)
	assert.Equal(t, "2024-01-01", h.Start.String())
	assert.Equal(t, "2025-12-31", h.End.String())
}
