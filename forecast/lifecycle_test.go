package forecast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/headcount-forecast/forecast"
	"github.com/warp/headcount-forecast/forecast/store"
)

func newLifecycle(t *testing.T) (*store.Memory, *forecast.Lifecycle, int64) {
	t.Helper()
	mem := store.NewMemory()
	id, err := mem.SaveEmployee(context.Background(), forecast.Employee{
		Name: "Alice", ManagerCode: "M1", CostCenter: "CC1",
		EmploymentType: forecast.FTE, StartDate: d(2022, time.February, 1),
	})
	require.NoError(t, err)
	return mem, forecast.NewLifecycle(mem, nil), id
}

func TestApply_NewHire(t *testing.T) {
	// GIVEN: A pending new hire
	mem, lc, _ := newLifecycle(t)
	ctx := context.Background()
	changeID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Hire", Type: forecast.ChangeNewHire, EffectiveDate: d(2024, time.September, 2),
		Name: "Bob", ManagerCode: "M2", CostCenter: "CC2", EmploymentType: forecast.Contractor,
	})
	require.NoError(t, err)

	// WHEN: Applying it
	applied, err := lc.Apply(ctx, changeID)
	require.NoError(t, err)

	// THEN: The employee exists and the change is no longer pending
	assert.Equal(t, forecast.StatusApplied, applied.Status)
	require.NotNil(t, applied.EmployeeID)

	emp, err := mem.GetEmployee(ctx, *applied.EmployeeID)
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Bob", emp.Name)
	assert.Equal(t, forecast.Contractor, emp.EmploymentType)
	assert.Equal(t, "2024-09-02", emp.StartDate.String())
	assert.Nil(t, emp.EndDate)

	pending, err := mem.PlannedChanges(ctx, forecast.ChangeFilter{Status: forecast.StatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApply_ConversionAndTermination(t *testing.T) {
	mem, lc, alice := newLifecycle(t)
	ctx := context.Background()

	convID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Convert", Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.April, 1),
		EmployeeID: idp(alice), TargetType: forecast.Contractor,
	})
	require.NoError(t, err)
	termID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Leave", Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.October, 31),
		EmployeeID: idp(alice),
	})
	require.NoError(t, err)

	_, err = lc.Apply(ctx, convID)
	require.NoError(t, err)
	_, err = lc.Apply(ctx, termID)
	require.NoError(t, err)

	emp, err := mem.GetEmployee(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, forecast.Contractor, emp.EmploymentType)
	require.NotNil(t, emp.EndDate)
	assert.Equal(t, "2024-10-31", emp.EndDate.String())
}

func TestApply_Rejections(t *testing.T) {
	mem, lc, alice := newLifecycle(t)
	ctx := context.Background()

	t.Run("unknown change", func(t *testing.T) {
		_, err := lc.Apply(ctx, 12345)
		assert.ErrorIs(t, err, forecast.ErrPlannedChangeNotFound)
	})

	t.Run("already applied", func(t *testing.T) {
		id, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
			Description: "Convert", Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.April, 1),
			EmployeeID: idp(alice), TargetType: forecast.FTE,
		})
		require.NoError(t, err)
		_, err = lc.Apply(ctx, id)
		require.NoError(t, err)

		_, err = lc.Apply(ctx, id)
		assert.ErrorIs(t, err, forecast.ErrChangeAlreadyApplied)
		assert.True(t, forecast.IsClientError(err))
	})

	t.Run("missing employee", func(t *testing.T) {
		id, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
			Description: "Leave", Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.May, 1),
			EmployeeID: idp(9999),
		})
		require.NoError(t, err)

		_, err = lc.Apply(ctx, id)

		re, ok := forecast.AsRecordError(err)
		require.True(t, ok)
		assert.Equal(t, forecast.FailureEmployeeNotFound, re.Kind)
	})

	t.Run("termination before start rolls back", func(t *testing.T) {
		id, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
			Description: "Leave", Type: forecast.ChangeTermination, EffectiveDate: d(2021, time.May, 1),
			EmployeeID: idp(alice),
		})
		require.NoError(t, err)

		_, err = lc.Apply(ctx, id)

		re, ok := forecast.AsRecordError(err)
		require.True(t, ok)
		assert.Equal(t, forecast.FailureEndNotAfterStart, re.Kind)

		change, err := mem.GetPlannedChange(ctx, id)
		require.NoError(t, err)
		assert.True(t, change.IsPending())
		emp, err := mem.GetEmployee(ctx, alice)
		require.NoError(t, err)
		assert.Nil(t, emp.EndDate)
	})
}

func TestApplyDue(t *testing.T) {
	// GIVEN: Two due changes, one bad due change and one future change
	mem, lc, alice := newLifecycle(t)
	ctx := context.Background()

	hireID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Hire", Type: forecast.ChangeNewHire, EffectiveDate: d(2024, time.March, 1),
		Name: "Bob", ManagerCode: "M2", CostCenter: "CC2", EmploymentType: forecast.FTE,
	})
	require.NoError(t, err)
	convID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Convert", Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.February, 1),
		EmployeeID: idp(alice), TargetType: forecast.Contractor,
	})
	require.NoError(t, err)
	badID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Ghost", Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.March, 10),
		EmployeeID: idp(777),
	})
	require.NoError(t, err)
	futureID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Later", Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.December, 31),
		EmployeeID: idp(alice),
	})
	require.NoError(t, err)

	// WHEN: Applying everything due by mid-March
	report, err := lc.ApplyDue(ctx, d(2024, time.March, 15))
	require.NoError(t, err)

	// THEN: Good changes applied oldest first, the bad one reported
	assert.Equal(t, []int64{convID, hireID}, report.Applied)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, badID, report.Failures[0].ID)
	assert.Equal(t, forecast.FailureEmployeeNotFound, report.Failures[0].Kind)

	future, err := mem.GetPlannedChange(ctx, futureID)
	require.NoError(t, err)
	assert.True(t, future.IsPending())
}

func TestUpdateAndDelete_PendingOnly(t *testing.T) {
	// GIVEN: A pending termination and an applied conversion
	mem, lc, alice := newLifecycle(t)
	ctx := context.Background()
	termination := forecast.PlannedChange{
		Description: "Leave", Type: forecast.ChangeTermination, EffectiveDate: d(2024, time.October, 31),
		EmployeeID: idp(alice),
	}
	termID, err := mem.SavePlannedChange(ctx, termination)
	require.NoError(t, err)
	convID, err := mem.SavePlannedChange(ctx, forecast.PlannedChange{
		Description: "Convert", Type: forecast.ChangeConversion, EffectiveDate: d(2024, time.April, 1),
		EmployeeID: idp(alice), TargetType: forecast.Contractor,
	})
	require.NoError(t, err)
	_, err = lc.Apply(ctx, convID)
	require.NoError(t, err)

	t.Run("update rewrites a pending change", func(t *testing.T) {
		edited := termination
		edited.ID = termID
		edited.EffectiveDate = d(2024, time.November, 15)

		updated, err := lc.Update(ctx, edited)
		require.NoError(t, err)
		assert.Equal(t, forecast.StatusPending, updated.Status)

		stored, err := mem.GetPlannedChange(ctx, termID)
		require.NoError(t, err)
		assert.Equal(t, "2024-11-15", stored.EffectiveDate.String())
	})

	t.Run("update validates the new fields", func(t *testing.T) {
		edited := termination
		edited.ID = termID
		edited.EmployeeID = idp(9999)

		_, err := lc.Update(ctx, edited)
		requireKind(t, err, forecast.FailureEmployeeNotFound)

		stored, err := mem.GetPlannedChange(ctx, termID)
		require.NoError(t, err)
		assert.Equal(t, alice, *stored.EmployeeID)
	})

	t.Run("applied changes cannot be edited or deleted", func(t *testing.T) {
		edited := termination
		edited.ID = convID
		_, err := lc.Update(ctx, edited)
		assert.ErrorIs(t, err, forecast.ErrChangeAlreadyApplied)
		assert.ErrorIs(t, lc.Delete(ctx, convID), forecast.ErrChangeAlreadyApplied)
	})

	t.Run("delete removes a pending change", func(t *testing.T) {
		require.NoError(t, lc.Delete(ctx, termID))

		stored, err := mem.GetPlannedChange(ctx, termID)
		require.NoError(t, err)
		assert.Nil(t, stored)
		assert.ErrorIs(t, lc.Delete(ctx, termID), forecast.ErrPlannedChangeNotFound)
	})
}
