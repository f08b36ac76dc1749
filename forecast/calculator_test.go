package forecast_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/headcount-forecast/forecast"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(year int, month time.Month, day int) forecast.Date {
	return forecast.NewDate(year, month, day)
}

func dp(year int, month time.Month, day int) *forecast.Date {
	v := forecast.NewDate(year, month, day)
	return &v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func idp(id int64) *int64 { return &id }

func assertHours(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s, got %s %s", want, got, strings.Join(msg, " "))
}

// newCalculator uses default settings (34.5 / 39.0) and the default weeks
// table for 2024, with January overridden to 4.33.
func newCalculator(allocs []forecast.ProjectAllocation, changes []forecast.PlannedChange) *forecast.Calculator {
	weeks := forecast.DefaultWeeks(2024)
	weeks[0].Weeks = dec("4.33")
	return &forecast.Calculator{
		Settings:    forecast.DefaultSettings(),
		Weeks:       forecast.NewWeeksTable(weeks),
		Allocations: forecast.NewAllocationTable(allocs),
		Changes:     forecast.NewChangeQueue(changes),
	}
}

func employee(id int64, t forecast.EmploymentType, start forecast.Date, end *forecast.Date) forecast.RealEmployee {
	return forecast.RealEmployee{Employee: forecast.Employee{
		ID:             id,
		Name:           "Employee",
		ManagerCode:    "M1",
		CostCenter:     "CC1",
		EmploymentType: t,
		StartDate:      start,
		EndDate:        end,
	}}
}

func monthOf(t *testing.T, months []forecast.MonthlyHours, m time.Month) decimal.Decimal {
	t.Helper()
	require.Len(t, months, 12)
	return months[m-1].Hours
}

// =============================================================================
// ACTIVE RATIO AND BASIC HOURS
// =============================================================================

func TestCalculate_AlwaysTwelveMonths(t *testing.T) {
	// GIVEN: An employee who starts after the forecast year
	calc := newCalculator(nil, nil)
	emp := employee(1, forecast.FTE, d(2025, time.January, 1), nil)

	// WHEN: Calculating 2024
	months, err := calc.Calculate(emp, 2024, forecast.WorkTime)

	// THEN: Twelve zero months in calendar order
	require.NoError(t, err)
	require.Len(t, months, 12)
	for i, m := range months {
		assert.Equal(t, time.Month(i+1), m.Month)
		assert.True(t, m.Hours.IsZero(), "month %d should be zero", i+1)
	}
}

func TestCalculate_FullMonth(t *testing.T) {
	// GIVEN: An FTE and a contractor active all year
	calc := newCalculator(nil, nil)
	fte := employee(1, forecast.FTE, d(2020, time.January, 1), nil)
	contractor := employee(2, forecast.Contractor, d(2020, time.January, 1), nil)

	// WHEN: Calculating Work Time
	fteMonths, err := calc.Calculate(fte, 2024, forecast.WorkTime)
	require.NoError(t, err)
	contractorMonths, err := calc.Calculate(contractor, 2024, forecast.WorkTime)
	require.NoError(t, err)

	// THEN: weekly rate × weeks
	assertHours(t, "138", monthOf(t, fteMonths, time.February))          // 34.5 × 4.0
	assertHours(t, "156", monthOf(t, contractorMonths, time.February))   // 39 × 4.0
	assertHours(t, "168.87", monthOf(t, contractorMonths, time.October)) // 39 × 4.33
}

func TestCalculate_MidMonthStartBeforeThreshold(t *testing.T) {
	// GIVEN: An FTE starting 2024-01-10, January weeks 4.33
	calc := newCalculator(nil, nil)
	emp := employee(1, forecast.FTE, d(2024, time.January, 10), nil)

	// WHEN: Calculating each work code
	work, err := calc.Calculate(emp, 2024, forecast.WorkTime)
	require.NoError(t, err)
	project, err := calc.Calculate(emp, 2024, forecast.ProjectTime)
	require.NoError(t, err)
	other, err := calc.Calculate(emp, 2024, "Training")
	require.NoError(t, err)

	// THEN: available = 34.5 × 4.33 × 22/31 ≈ 106.015
	assertHours(t, "106.02", monthOf(t, work, time.January))
	assertHours(t, "21.2", monthOf(t, project, time.January), "no allocation falls back to 20%")
	assertHours(t, "84.81", monthOf(t, other, time.January), "unknown codes take 80%")

	// February is a full month
	assertHours(t, "138", monthOf(t, work, time.February))
}

func TestCalculate_StartAfterThresholdCountsWholeMonth(t *testing.T) {
	// GIVEN: An FTE starting on the 20th
	calc := newCalculator(nil, nil)
	emp := employee(1, forecast.FTE, d(2024, time.February, 20), nil)

	// WHEN: Calculating
	months, err := calc.Calculate(emp, 2024, forecast.WorkTime)
	require.NoError(t, err)

	// THEN: February is full, January is zero
	assert.True(t, monthOf(t, months, time.January).IsZero())
	assertHours(t, "138", monthOf(t, months, time.February))
}

func TestCalculate_EndDateWithinMonth(t *testing.T) {
	calc := newCalculator(nil, nil)

	t.Run("end on or before threshold prorates", func(t *testing.T) {
		emp := employee(1, forecast.FTE, d(2020, time.January, 1), dp(2024, time.February, 7))

		months, err := calc.Calculate(emp, 2024, forecast.WorkTime)
		require.NoError(t, err)

		// 138 × 7/29
		assertHours(t, "33.31", monthOf(t, months, time.February))
		assert.True(t, monthOf(t, months, time.March).IsZero())
	})

	t.Run("end after threshold counts whole month", func(t *testing.T) {
		emp := employee(1, forecast.FTE, d(2020, time.January, 1), dp(2024, time.February, 20))

		months, err := calc.Calculate(emp, 2024, forecast.WorkTime)
		require.NoError(t, err)

		assertHours(t, "138", monthOf(t, months, time.February))
		assert.True(t, monthOf(t, months, time.March).IsZero())
	})
}

// =============================================================================
// PLANNED CHANGES
// =============================================================================

func TestCalculate_TerminationThreshold(t *testing.T) {
	tests := []struct {
		name      string
		effective forecast.Date
		wantMarch string
	}{
		{"on the threshold zeroes the month", d(2024, time.March, 14), "0"},
		{"early in the month zeroes the month", d(2024, time.March, 1), "0"},
		{"day after threshold leaves the month whole", d(2024, time.March, 15), "149.39"},
		{"late in the month leaves the month whole", d(2024, time.March, 20), "149.39"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: A pending termination for a long-standing FTE
			change := forecast.PlannedChange{
				ID: 1, Type: forecast.ChangeTermination, EffectiveDate: tt.effective,
				Status: forecast.StatusPending, EmployeeID: idp(1),
			}
			calc := newCalculator(nil, []forecast.PlannedChange{change})
			emp := employee(1, forecast.FTE, d(2020, time.January, 1), nil)

			// WHEN: Calculating
			months, err := calc.Calculate(emp, 2024, forecast.WorkTime)
			require.NoError(t, err)

			// THEN: Only March is affected
			assertHours(t, tt.wantMarch, monthOf(t, months, time.March))
			assertHours(t, "138", monthOf(t, months, time.February))
			assertHours(t, "138", monthOf(t, months, time.April))
		})
	}
}

func TestCalculate_TerminationForOtherEmployeeIgnored(t *testing.T) {
	change := forecast.PlannedChange{
		ID: 1, Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.March, 1),
		Status: forecast.StatusPending, EmployeeID: idp(99),
	}
	calc := newCalculator(nil, []forecast.PlannedChange{change})

	months, err := calc.Calculate(employee(1, forecast.FTE, d(2020, time.January, 1), nil), 2024, forecast.WorkTime)
	require.NoError(t, err)

	assertHours(t, "149.39", monthOf(t, months, time.March))
}

func TestCalculate_ConversionLatestWins(t *testing.T) {
	// GIVEN: Two conversions in May; the later one targets Contractor
	changes := []forecast.PlannedChange{
		{ID: 2, Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.May, 20),
			Status: forecast.StatusPending, EmployeeID: idp(1), TargetType: forecast.Contractor},
		{ID: 1, Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.May, 3),
			Status: forecast.StatusPending, EmployeeID: idp(1), TargetType: forecast.FTE},
	}
	calc := newCalculator(nil, changes)
	emp := employee(1, forecast.FTE, d(2020, time.January, 1), nil)

	// WHEN: Calculating
	months, err := calc.Calculate(emp, 2024, forecast.WorkTime)
	require.NoError(t, err)

	// THEN: May uses the contractor rate, other months the FTE rate
	assertHours(t, "168.87", monthOf(t, months, time.May))  // 39 × 4.33
	assertHours(t, "138", monthOf(t, months, time.April))   // 34.5 × 4.0
	assertHours(t, "149.39", monthOf(t, months, time.June)) // 34.5 × 4.33
}

func TestCalculate_AppliedChangesIgnored(t *testing.T) {
	change := forecast.PlannedChange{
		ID: 1, Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.March, 1),
		Status: forecast.StatusApplied, EmployeeID: idp(1),
	}
	calc := newCalculator(nil, []forecast.PlannedChange{change})

	months, err := calc.Calculate(employee(1, forecast.FTE, d(2020, time.January, 1), nil), 2024, forecast.WorkTime)
	require.NoError(t, err)

	assertHours(t, "149.39", monthOf(t, months, time.March))
}

// =============================================================================
// PROJECT ALLOCATIONS
// =============================================================================

func TestCalculate_AllocationSplit(t *testing.T) {
	allocs := []forecast.ProjectAllocation{
		{ManagerCode: "M1", CostCenter: "CC1", WorkCode: forecast.ProjectTime, Year: 2024, Month: 2, Hours: dec("40")},
		{ManagerCode: "M1", CostCenter: "CC1", WorkCode: forecast.ProjectTime, Year: 2024, Month: 4, Hours: dec("200")},
	}
	calc := newCalculator(allocs, nil)
	emp := employee(1, forecast.FTE, d(2020, time.January, 1), nil)

	work, err := calc.Calculate(emp, 2024, forecast.WorkTime)
	require.NoError(t, err)
	project, err := calc.Calculate(emp, 2024, forecast.ProjectTime)
	require.NoError(t, err)

	t.Run("allocation is subtracted from work time", func(t *testing.T) {
		assertHours(t, "40", monthOf(t, project, time.February))
		assertHours(t, "98", monthOf(t, work, time.February))
	})

	t.Run("work time never goes negative", func(t *testing.T) {
		assertHours(t, "200", monthOf(t, project, time.April))
		assert.True(t, monthOf(t, work, time.April).IsZero())
	})

	t.Run("months without allocation fall back", func(t *testing.T) {
		assertHours(t, "27.6", monthOf(t, project, time.July)) // 138 × 0.2
		assertHours(t, "138", monthOf(t, work, time.July))
	})
}

func TestCalculate_AllocationProratedByActiveRatio(t *testing.T) {
	// GIVEN: A 62-hour January allocation and a start on Jan 10 (22/31 active)
	allocs := []forecast.ProjectAllocation{
		{ManagerCode: "M1", CostCenter: "CC1", WorkCode: forecast.ProjectTime, Year: 2024, Month: 1, Hours: dec("62")},
	}
	calc := newCalculator(allocs, nil)
	emp := employee(1, forecast.FTE, d(2024, time.January, 10), nil)

	project, err := calc.Calculate(emp, 2024, forecast.ProjectTime)
	require.NoError(t, err)

	// THEN: 62 × 22/31 = 44
	assertHours(t, "44", monthOf(t, project, time.January))
}

func TestAllocationTable_Lookup(t *testing.T) {
	table := forecast.NewAllocationTable([]forecast.ProjectAllocation{
		{ManagerCode: "M1", Year: 2024, Month: 1, Hours: dec("10")},
		{ManagerCode: "M1", CostCenter: "CC1", Year: 2024, Month: 1, Hours: dec("20")},
		{ManagerCode: "M1", CostCenter: "CC1", WorkCode: forecast.ProjectTime, Year: 2024, Month: 2, Hours: dec("5")},
		{ManagerCode: "M1", CostCenter: "CC1", WorkCode: forecast.ProjectTime, Year: 2024, Month: 2, Hours: dec("7")},
	})

	h, ok := table.Lookup("M1", "CC1", 2024, 1)
	assert.True(t, ok)
	assertHours(t, "20", h, "cost center entry beats manager-wide")

	h, ok = table.Lookup("M1", "CC9", 2024, 1)
	assert.True(t, ok)
	assertHours(t, "10", h, "manager-wide entry applies to other cost centers")

	h, ok = table.Lookup("M1", "CC1", 2024, 2)
	assert.True(t, ok)
	assertHours(t, "12", h, "duplicate rows are summed")

	_, ok = table.Lookup("M2", "CC1", 2024, 1)
	assert.False(t, ok)
}

// =============================================================================
// PLANNED HIRES AND VALIDATION
// =============================================================================

func TestCalculate_PlannedHire(t *testing.T) {
	// GIVEN: A pending new hire effective 2024-07-01
	hire := forecast.PlannedHire{Change: forecast.PlannedChange{
		ID: 5, Type: forecast.ChangeNewHire, EffectiveDate: d(2024, time.July, 1),
		Name: "New Person", ManagerCode: "M2", CostCenter: "CC2", EmploymentType: forecast.Contractor,
	}}
	calc := newCalculator(nil, nil)

	months, err := calc.Calculate(hire, 2024, forecast.WorkTime)
	require.NoError(t, err)

	// THEN: Zero before July, contractor rate from July
	assert.True(t, monthOf(t, months, time.June).IsZero())
	assertHours(t, "156", monthOf(t, months, time.July))
	assert.Equal(t, "M2", hire.Ref().ManagerCode)
	assert.Contains(t, hire.Note(), "New Person")
}

func TestCalculate_InvalidDates(t *testing.T) {
	calc := newCalculator(nil, nil)

	t.Run("missing start date", func(t *testing.T) {
		emp := employee(3, forecast.FTE, forecast.Date{}, nil)

		_, err := calc.Calculate(emp, 2024, forecast.WorkTime)

		re, ok := forecast.AsRecordError(err)
		require.True(t, ok)
		assert.Equal(t, forecast.FailureMissingStartDate, re.Kind)
		assert.Equal(t, int64(3), re.ID)
		assert.ErrorIs(t, err, forecast.ErrInvalidRecord)
	})

	t.Run("end not after start", func(t *testing.T) {
		emp := employee(4, forecast.FTE, d(2024, time.May, 1), dp(2024, time.May, 1))

		_, err := calc.Calculate(emp, 2024, forecast.WorkTime)

		re, ok := forecast.AsRecordError(err)
		require.True(t, ok)
		assert.Equal(t, forecast.FailureEndNotAfterStart, re.Kind)
	})
}

func TestCalculate_Deterministic(t *testing.T) {
	allocs := []forecast.ProjectAllocation{
		{ManagerCode: "M1", CostCenter: "CC1", WorkCode: forecast.ProjectTime, Year: 2024, Month: 3, Hours: dec("12.5")},
	}
	changes := []forecast.PlannedChange{
		{ID: 1, Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.August, 2),
			Status: forecast.StatusPending, EmployeeID: idp(1), TargetType: forecast.Contractor},
	}
	calc := newCalculator(allocs, changes)
	emp := employee(1, forecast.FTE, d(2024, time.January, 10), dp(2024, time.October, 5))

	first, err := calc.Calculate(emp, 2024, forecast.ProjectTime)
	require.NoError(t, err)
	second, err := calc.Calculate(emp, 2024, forecast.ProjectTime)
	require.NoError(t, err)

	for i := range first {
		assert.True(t, first[i].Hours.Equal(second[i].Hours), "month %d differs", i+1)
	}
}
