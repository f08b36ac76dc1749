/*
recalculate.go - Forecast replacement writer

PURPOSE:
  Recomputes forecasts for a scope (every employee, or one employee) for
  the current year and replaces what was persisted for that scope.

SCOPES:
  AllEmployees:   every persisted employee plus one planned hire per
                  pending New Hire effective between Jan 1 of this year and
                  Dec 31 of next year. Replaces every row of the year.
  SingleEmployee: one persisted employee. Replaces only that employee's
                  rows; planned-hire rows are left alone.

ALL OR NOTHING:
  Every row is computed before anything is written. A failure for any
  single entry abandons the run and the previous forecasts stay in place.
  The delete and insert happen in one store transaction together with the
  run record.

CONCURRENCY:
  None. Two overlapping recalculations of one scope are not coordinated;
  the last writer wins. Callers serialize edits.
*/
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scope selects the employees a recalculation covers.
type Scope struct {
	EmployeeID *int64
}

func AllEmployees() Scope { return Scope{} }

func SingleEmployee(id int64) Scope { return Scope{EmployeeID: &id} }

func (s Scope) String() string {
	if s.EmployeeID == nil {
		return "all"
	}
	return fmt.Sprintf("employee:%d", *s.EmployeeID)
}

// Recalculator drives the calculator over a scope and persists the result.
type Recalculator struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

type RecalculatorOption func(*Recalculator)

// WithClock overrides the clock that picks the forecast year.
func WithClock(now func() time.Time) RecalculatorOption {
	return func(r *Recalculator) { r.now = now }
}

func WithLogger(l *zap.Logger) RecalculatorOption {
	return func(r *Recalculator) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRecalculator(store Store, opts ...RecalculatorOption) *Recalculator {
	r := &Recalculator{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("forecast.recalculator")
	return r
}

// Year is the forecast year recalculations target.
func (r *Recalculator) Year() int { return r.now().Year() }

// Recalculate computes and persists forecasts for scope.
func (r *Recalculator) Recalculate(ctx context.Context, scope Scope) (*Run, error) {
	year := r.Year()
	run := &Run{
		ID:        uuid.NewString(),
		Scope:     scope.String(),
		Year:      year,
		StartedAt: r.now().UTC(),
	}
	log := r.logger.With(zap.String("run_id", run.ID), zap.String("scope", run.Scope), zap.Int("year", year))

	calc, err := r.loadCalculator(ctx, year)
	if err != nil {
		log.Error("load inputs failed", zap.Error(err))
		return nil, err
	}

	entries, err := r.entries(ctx, scope, year)
	if err != nil {
		log.Error("load roster failed", zap.Error(err))
		return nil, err
	}

	codes, err := r.workCodes(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := buildRows(calc, entries, year, codes)
	if err != nil {
		log.Error("calculation failed, prior forecasts kept", zap.Error(err))
		return nil, fmt.Errorf("recalculate %s: %w", run.Scope, err)
	}

	for _, e := range entries {
		if _, ok := e.(PlannedHire); ok {
			run.PlannedHires++
		} else {
			run.Employees++
		}
	}
	for i := range rows {
		rows[i].RunID = run.ID
	}
	run.Rows = len(rows)

	err = r.store.WithTx(ctx, func(tx Store) error {
		if err := tx.ReplaceForecasts(ctx, ForecastScope{Year: year, EmployeeID: scope.EmployeeID}, rows); err != nil {
			return fmt.Errorf("replace forecasts: %w", err)
		}
		run.CompletedAt = r.now().UTC()
		return tx.SaveRun(ctx, *run)
	})
	if err != nil {
		log.Error("persist failed, prior forecasts kept", zap.Error(err))
		return nil, err
	}

	log.Info("forecasts replaced",
		zap.Int("employees", run.Employees),
		zap.Int("planned_hires", run.PlannedHires),
		zap.Int("rows", run.Rows))
	return run, nil
}

func (r *Recalculator) loadCalculator(ctx context.Context, year int) (*Calculator, error) {
	settings, err := r.store.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	weeks, err := r.store.Weeks(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load weeks: %w", err)
	}
	allocs, err := r.store.Allocations(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	pending, err := r.store.PlannedChanges(ctx, ChangeFilter{Status: StatusPending})
	if err != nil {
		return nil, fmt.Errorf("load planned changes: %w", err)
	}
	return &Calculator{
		Settings:    settings,
		Weeks:       NewWeeksTable(weeks),
		Allocations: NewAllocationTable(allocs),
		Changes:     NewChangeQueue(pending),
	}, nil
}

func (r *Recalculator) entries(ctx context.Context, scope Scope, year int) ([]RosterEntry, error) {
	if scope.EmployeeID != nil {
		emp, err := r.store.GetEmployee(ctx, *scope.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("load employee %d: %w", *scope.EmployeeID, err)
		}
		if emp == nil {
			return nil, fmt.Errorf("employee %d: %w", *scope.EmployeeID, ErrEmployeeNotFound)
		}
		return []RosterEntry{RealEmployee{Employee: *emp}}, nil
	}

	employees, err := r.store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	hires, err := r.store.PlannedChanges(ctx, ChangeFilter{Status: StatusPending, Type: ChangeNewHire})
	if err != nil {
		return nil, fmt.Errorf("load planned hires: %w", err)
	}
	return BuildRoster(employees, hires, HireHorizon(year)), nil
}

func (r *Recalculator) workCodes(ctx context.Context) ([]string, error) {
	codes, err := r.store.WorkCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load work codes: %w", err)
	}
	if len(codes) == 0 {
		codes = DefaultWorkCodes()
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Code
	}
	return out, nil
}

// HireHorizon is the window of planned hires included in a full
// recalculation: this year and next.
func HireHorizon(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year + 1)}
}

func buildRows(calc *Calculator, entries []RosterEntry, year int, codes []string) ([]Forecast, error) {
	rows := make([]Forecast, 0, len(entries)*len(codes)*12)
	for _, entry := range entries {
		for _, code := range codes {
			months, err := calc.Calculate(entry, year, code)
			if err != nil {
				return nil, err
			}
			for _, m := range months {
				row := Forecast{
					WorkCode: code,
					Year:     year,
					Month:    int(m.Month),
					Hours:    m.Hours,
				}
				switch e := entry.(type) {
				case RealEmployee:
					id := e.Employee.ID
					row.EmployeeID = &id
				case PlannedHire:
					row.Planned = e.Ref()
					row.Note = e.Note()
				}
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}
