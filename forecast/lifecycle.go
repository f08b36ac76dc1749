package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Lifecycle applies planned changes to the roster.
//
// Applying a change mutates the employee and marks the change Applied in one
// store transaction, so the change leaves the pending queue exactly when its
// effect lands on the roster.
type Lifecycle struct {
	store  Store
	logger *zap.Logger
}

func NewLifecycle(store Store, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{store: store, logger: logger.Named("forecast.lifecycle")}
}

// Apply applies one pending change and returns it in its Applied state.
// For a new hire the returned change's EmployeeID is the created employee.
func (l *Lifecycle) Apply(ctx context.Context, changeID int64) (*PlannedChange, error) {
	var applied PlannedChange
	err := l.store.WithTx(ctx, func(tx Store) error {
		c, err := pendingChange(ctx, tx, changeID)
		if err != nil {
			return err
		}
		if err := ValidatePlannedChange(*c); err != nil {
			return err
		}

		if err := applyChange(ctx, tx, c); err != nil {
			return err
		}

		c.Status = StatusApplied
		if _, err := tx.SavePlannedChange(ctx, *c); err != nil {
			return fmt.Errorf("mark planned change %d applied: %w", changeID, err)
		}
		applied = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("planned change applied",
		zap.Int64("change_id", applied.ID),
		zap.String("type", string(applied.Type)),
		zap.String("effective_date", applied.EffectiveDate.String()))
	return &applied, nil
}

// Update replaces the fields of a pending change. Applied changes are part of
// the roster's history and cannot be edited.
func (l *Lifecycle) Update(ctx context.Context, c PlannedChange) (*PlannedChange, error) {
	err := l.store.WithTx(ctx, func(tx Store) error {
		if _, err := pendingChange(ctx, tx, c.ID); err != nil {
			return err
		}
		c.Status = StatusPending
		if err := ValidatePlannedChange(c); err != nil {
			return err
		}
		if err := RequireEmployee(ctx, tx, c); err != nil {
			return err
		}
		if _, err := tx.SavePlannedChange(ctx, c); err != nil {
			return fmt.Errorf("update planned change %d: %w", c.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("planned change updated", zap.Int64("change_id", c.ID), zap.String("type", string(c.Type)))
	return &c, nil
}

// Delete removes a pending change.
func (l *Lifecycle) Delete(ctx context.Context, changeID int64) error {
	err := l.store.WithTx(ctx, func(tx Store) error {
		if _, err := pendingChange(ctx, tx, changeID); err != nil {
			return err
		}
		return tx.DeletePlannedChange(ctx, changeID)
	})
	if err != nil {
		return err
	}
	l.logger.Info("planned change deleted", zap.Int64("change_id", changeID))
	return nil
}

func pendingChange(ctx context.Context, tx Store, id int64) (*PlannedChange, error) {
	c, err := tx.GetPlannedChange(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load planned change %d: %w", id, err)
	}
	if c == nil {
		return nil, fmt.Errorf("planned change %d: %w", id, ErrPlannedChangeNotFound)
	}
	if !c.IsPending() {
		return nil, fmt.Errorf("planned change %d: %w", id, ErrChangeAlreadyApplied)
	}
	return c, nil
}

// RequireEmployee checks that a conversion or termination points at an
// existing employee. Changes without an employee reference pass.
func RequireEmployee(ctx context.Context, store RosterStore, c PlannedChange) error {
	if c.EmployeeID == nil {
		return nil
	}
	emp, err := store.GetEmployee(ctx, *c.EmployeeID)
	if err != nil {
		return fmt.Errorf("load employee %d: %w", *c.EmployeeID, err)
	}
	if emp == nil {
		return &RecordError{Kind: FailureEmployeeNotFound, Record: "planned_change", ID: c.ID,
			Field: "employee_id", Message: fmt.Sprintf("employee %d does not exist", *c.EmployeeID)}
	}
	return nil
}

func applyChange(ctx context.Context, tx Store, c *PlannedChange) error {
	if c.Type == ChangeNewHire {
		emp := Employee{
			Name:           c.Name,
			ManagerCode:    c.ManagerCode,
			CostCenter:     c.CostCenter,
			EmploymentType: c.EmploymentType,
			StartDate:      c.EffectiveDate,
		}
		if err := ValidateEmployee(emp); err != nil {
			return err
		}
		id, err := tx.SaveEmployee(ctx, emp)
		if err != nil {
			return fmt.Errorf("create employee for planned change %d: %w", c.ID, err)
		}
		c.EmployeeID = &id
		return nil
	}

	emp, err := tx.GetEmployee(ctx, *c.EmployeeID)
	if err != nil {
		return fmt.Errorf("load employee %d: %w", *c.EmployeeID, err)
	}
	if emp == nil {
		return &RecordError{Kind: FailureEmployeeNotFound, Record: "planned_change", ID: c.ID,
			Field: "employee_id", Message: fmt.Sprintf("employee %d does not exist", *c.EmployeeID)}
	}

	switch c.Type {
	case ChangeConversion:
		emp.EmploymentType = c.TargetType
	case ChangeTermination:
		end := c.EffectiveDate
		emp.EndDate = &end
	}
	if err := ValidateEmployee(*emp); err != nil {
		return err
	}
	if _, err := tx.SaveEmployee(ctx, *emp); err != nil {
		return fmt.Errorf("update employee %d: %w", emp.ID, err)
	}
	return nil
}

// ApplyReport lists what ApplyDue did.
type ApplyReport struct {
	Applied  []int64        `json:"applied"`
	Failures []*RecordError `json:"failures"`
}

// ApplyDue applies every pending change effective on or before asOf, oldest
// first. A change that fails validation is reported and skipped; any other
// error stops the sweep.
func (l *Lifecycle) ApplyDue(ctx context.Context, asOf Date) (*ApplyReport, error) {
	due, err := l.store.PlannedChanges(ctx, ChangeFilter{Status: StatusPending, To: &asOf})
	if err != nil {
		return nil, fmt.Errorf("load due planned changes: %w", err)
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].EffectiveDate.Equal(due[j].EffectiveDate) {
			return due[i].EffectiveDate.Before(due[j].EffectiveDate)
		}
		return due[i].ID < due[j].ID
	})

	report := &ApplyReport{Applied: []int64{}, Failures: []*RecordError{}}
	for _, c := range due {
		_, err := l.Apply(ctx, c.ID)
		if err == nil {
			report.Applied = append(report.Applied, c.ID)
			continue
		}
		if re, ok := AsRecordError(err); ok {
			l.logger.Warn("planned change rejected",
				zap.Int64("change_id", c.ID), zap.String("kind", string(re.Kind)))
			report.Failures = append(report.Failures, re)
			continue
		}
		if errors.Is(err, ErrChangeAlreadyApplied) {
			continue
		}
		return report, err
	}
	return report, nil
}
