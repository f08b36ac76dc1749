/*
Package sqlite provides a SQLite-backed implementation of forecast.Store.

KEY TABLES:
  employees:           Roster
  ga01_weeks:          Standard weeks per (year, month)
  work_codes:          Work Time, Project Time, ...
  project_allocations: Manual project hours per manager/cost center/month
  planned_changes:     Pending and applied lifecycle events
  settings:            Weekly-hour singleton (id = 1)
  forecasts:           Computed rows, replaced per scope
  recalculation_runs:  One row per successful recalculation

MIGRATIONS:
  Schema and seed rows live in migrations/*.sql, embedded in the binary
  and applied with goose on New().

DECIMALS:
  Hours and weeks are stored as TEXT and parsed with shopspring/decimal so
  no figure passes through float64.

CONCURRENCY:
  The pool is pinned to a single connection: SQLite serializes writers,
  and ":memory:" databases exist per connection.

USAGE:
  store, err := sqlite.New("./data/forecast.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - forecast/store.go: Interface definitions
  - forecast/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/warp/headcount-forecast/forecast"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Fixed-width so started_at sorts lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements forecast.Store using SQLite.
type Store struct {
	db   *sql.DB
	q    querier
	inTx bool
}

var _ forecast.Store = (*Store)(nil)

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return NewFromDB(db), nil
}

// NewFromDB wraps an already-open, already-migrated database.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return goose.Up(db, "migrations")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. Nested calls join the
// outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(forecast.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, manager_code, cost_center, employment_type, start_date, end_date`

func (s *Store) ListEmployees(ctx context.Context) ([]forecast.Employee, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []forecast.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*forecast.Employee, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) SaveEmployee(ctx context.Context, emp forecast.Employee) (int64, error) {
	if emp.ID == 0 {
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO employees (name, manager_code, cost_center, employment_type, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?)`,
			emp.Name, emp.ManagerCode, emp.CostCenter, string(emp.EmploymentType),
			emp.StartDate.String(), nullDate(emp.EndDate),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert employee: %w", err)
		}
		return res.LastInsertId()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO employees (id, name, manager_code, cost_center, employment_type, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			manager_code = excluded.manager_code,
			cost_center = excluded.cost_center,
			employment_type = excluded.employment_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		emp.ID, emp.Name, emp.ManagerCode, emp.CostCenter, string(emp.EmploymentType),
		emp.StartDate.String(), nullDate(emp.EndDate),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save employee %d: %w", emp.ID, err)
	}
	return emp.ID, nil
}

// DeleteEmployee removes the employee's forecast rows for every year and then
// the employee, in one transaction.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	return s.WithTx(ctx, func(st forecast.Store) error {
		tx := st.(*Store)

		if _, err := tx.q.ExecContext(ctx, "DELETE FROM forecasts WHERE employee_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete forecasts for employee %d: %w", id, err)
		}
		res, err := tx.q.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete employee %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete employee %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("employee %d: %w", id, forecast.ErrEmployeeNotFound)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (forecast.Employee, error) {
	var (
		emp       forecast.Employee
		empType   string
		startDate string
		endDate   sql.NullString
	)
	if err := row.Scan(&emp.ID, &emp.Name, &emp.ManagerCode, &emp.CostCenter, &empType, &startDate, &endDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emp, err
		}
		return emp, fmt.Errorf("failed to scan employee: %w", err)
	}
	emp.EmploymentType = forecast.EmploymentType(empType)

	var err error
	if emp.StartDate, err = forecast.ParseDate(startDate); err != nil {
		return emp, recordDateError("employee", emp.ID, "start_date", err)
	}
	if emp.EndDate, err = parseNullDate(endDate); err != nil {
		return emp, recordDateError("employee", emp.ID, "end_date", err)
	}
	return emp, nil
}

// =============================================================================
// STANDARD WEEKS
// =============================================================================

func (s *Store) Weeks(ctx context.Context, year int) ([]forecast.WeeksEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT year, month, weeks FROM ga01_weeks WHERE year = ? ORDER BY month", year)
	if err != nil {
		return nil, fmt.Errorf("failed to query weeks: %w", err)
	}
	defer rows.Close()

	var entries []forecast.WeeksEntry
	for rows.Next() {
		var (
			e     forecast.WeeksEntry
			weeks string
		)
		if err := rows.Scan(&e.Year, &e.Month, &weeks); err != nil {
			return nil, fmt.Errorf("failed to scan weeks: %w", err)
		}
		if e.Weeks, err = decimal.NewFromString(weeks); err != nil {
			return nil, fmt.Errorf("weeks %d-%02d: %w", e.Year, e.Month, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) SaveWeeks(ctx context.Context, year int, entries []forecast.WeeksEntry) error {
	return s.WithTx(ctx, func(st forecast.Store) error {
		tx := st.(*Store)
		if _, err := tx.q.ExecContext(ctx, "DELETE FROM ga01_weeks WHERE year = ?", year); err != nil {
			return fmt.Errorf("failed to clear weeks %d: %w", year, err)
		}
		for _, e := range entries {
			if _, err := tx.q.ExecContext(ctx,
				"INSERT INTO ga01_weeks (year, month, weeks) VALUES (?, ?, ?)",
				year, e.Month, e.Weeks.String(),
			); err != nil {
				return fmt.Errorf("failed to insert weeks %d-%02d: %w", year, e.Month, err)
			}
		}
		return nil
	})
}

// =============================================================================
// PROJECT ALLOCATIONS
// =============================================================================

func (s *Store) Allocations(ctx context.Context, year int) ([]forecast.ProjectAllocation, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, manager_code, cost_center, work_code, year, month, hours
		FROM project_allocations
		WHERE year = ?
		ORDER BY manager_code, cost_center, work_code, month`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocs []forecast.ProjectAllocation
	for rows.Next() {
		var (
			a     forecast.ProjectAllocation
			hours string
		)
		if err := rows.Scan(&a.ID, &a.ManagerCode, &a.CostCenter, &a.WorkCode, &a.Year, &a.Month, &hours); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		if a.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("allocation %d hours: %w", a.ID, err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func (s *Store) SaveAllocation(ctx context.Context, a forecast.ProjectAllocation) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO project_allocations (manager_code, cost_center, work_code, year, month, hours)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(manager_code, cost_center, work_code, year, month) DO UPDATE SET
			hours = excluded.hours
		RETURNING id`,
		a.ManagerCode, a.CostCenter, a.WorkCode, a.Year, a.Month, a.Hours.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save allocation: %w", err)
	}
	return id, nil
}

// =============================================================================
// PLANNED CHANGES
// =============================================================================

const changeColumns = `id, description, change_type, effective_date, status, employee_id,
	target_type, name, manager_code, cost_center, employment_type`

func (s *Store) PlannedChanges(ctx context.Context, filter forecast.ChangeFilter) ([]forecast.PlannedChange, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		where = append(where, "change_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.From != nil {
		where = append(where, "effective_date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		where = append(where, "effective_date <= ?")
		args = append(args, filter.To.String())
	}

	query := "SELECT " + changeColumns + " FROM planned_changes"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY effective_date, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query planned changes: %w", err)
	}
	defer rows.Close()

	var changes []forecast.PlannedChange
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (s *Store) GetPlannedChange(ctx context.Context, id int64) (*forecast.PlannedChange, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+changeColumns+" FROM planned_changes WHERE id = ?", id)
	c, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SavePlannedChange(ctx context.Context, c forecast.PlannedChange) (int64, error) {
	if c.Status == "" {
		c.Status = forecast.StatusPending
	}
	args := []any{
		c.Description, string(c.Type), c.EffectiveDate.String(), string(c.Status), nullInt(c.EmployeeID),
		string(c.TargetType), c.Name, c.ManagerCode, c.CostCenter, string(c.EmploymentType),
	}

	if c.ID == 0 {
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO planned_changes
			(description, change_type, effective_date, status, employee_id,
			 target_type, name, manager_code, cost_center, employment_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert planned change: %w", err)
		}
		return res.LastInsertId()
	}

	_, err := s.q.ExecContext(ctx, `
		UPDATE planned_changes SET
			description = ?, change_type = ?, effective_date = ?, status = ?, employee_id = ?,
			target_type = ?, name = ?, manager_code = ?, cost_center = ?, employment_type = ?
		WHERE id = ?`, append(args, c.ID)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update planned change %d: %w", c.ID, err)
	}
	return c.ID, nil
}

func (s *Store) DeletePlannedChange(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM planned_changes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete planned change %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete planned change %d: %w", id, err)
	} else if n == 0 {
		return fmt.Errorf("planned change %d: %w", id, forecast.ErrPlannedChangeNotFound)
	}
	return nil
}

func scanChange(row scanner) (forecast.PlannedChange, error) {
	var (
		c                             forecast.PlannedChange
		changeType, effective, status string
		employeeID                    sql.NullInt64
		targetType, empType           string
	)
	err := row.Scan(&c.ID, &c.Description, &changeType, &effective, &status, &employeeID,
		&targetType, &c.Name, &c.ManagerCode, &c.CostCenter, &empType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan planned change: %w", err)
	}
	c.Type = forecast.ChangeType(changeType)
	c.Status = forecast.ChangeStatus(status)
	c.TargetType = forecast.EmploymentType(targetType)
	c.EmploymentType = forecast.EmploymentType(empType)
	if employeeID.Valid {
		id := employeeID.Int64
		c.EmployeeID = &id
	}
	if c.EffectiveDate, err = forecast.ParseDate(effective); err != nil {
		return c, recordDateError("planned_change", c.ID, "effective_date", err)
	}
	return c, nil
}

// =============================================================================
// SETTINGS AND WORK CODES
// =============================================================================

// Settings returns the singleton, or forecast.DefaultSettings when the row is
// missing.
func (s *Store) Settings(ctx context.Context) (forecast.Settings, error) {
	var fte, contractor string
	err := s.q.QueryRowContext(ctx,
		"SELECT fte_hours, contractor_hours FROM settings WHERE id = 1").Scan(&fte, &contractor)
	if errors.Is(err, sql.ErrNoRows) {
		return forecast.DefaultSettings(), nil
	}
	if err != nil {
		return forecast.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	out := forecast.DefaultSettings()
	if d, err := decimal.NewFromString(fte); err == nil {
		out.FTEHours = d
	}
	if d, err := decimal.NewFromString(contractor); err == nil {
		out.ContractorHours = d
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings forecast.Settings) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO settings (id, fte_hours, contractor_hours) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fte_hours = excluded.fte_hours,
			contractor_hours = excluded.contractor_hours`,
		settings.FTEHours.String(), settings.ContractorHours.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *Store) WorkCodes(ctx context.Context) ([]forecast.WorkCode, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, code, description FROM work_codes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query work codes: %w", err)
	}
	defer rows.Close()

	var codes []forecast.WorkCode
	for rows.Next() {
		var wc forecast.WorkCode
		if err := rows.Scan(&wc.ID, &wc.Code, &wc.Description); err != nil {
			return nil, fmt.Errorf("failed to scan work code: %w", err)
		}
		codes = append(codes, wc)
	}
	return codes, rows.Err()
}

// SaveWorkCode adds a work code, or updates the description of an existing one.
func (s *Store) SaveWorkCode(ctx context.Context, wc forecast.WorkCode) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO work_codes (code, description) VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET description = excluded.description
		RETURNING id`, wc.Code, wc.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save work code %q: %w", wc.Code, err)
	}
	return id, nil
}

// =============================================================================
// FORECASTS
// =============================================================================

func (s *Store) Forecasts(ctx context.Context, year int) ([]forecast.Forecast, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, employee_id, planned_change_id, planned_name, planned_manager_code,
		       planned_cost_center, work_code, year, month, hours, note, run_id
		FROM forecasts
		WHERE year = ?
		ORDER BY id`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer rows.Close()

	var out []forecast.Forecast
	for rows.Next() {
		var (
			f                                  forecast.Forecast
			employeeID, plannedID              sql.NullInt64
			plannedName, plannedMgr, plannedCC sql.NullString
			hours                              string
		)
		if err := rows.Scan(&f.ID, &employeeID, &plannedID, &plannedName, &plannedMgr,
			&plannedCC, &f.WorkCode, &f.Year, &f.Month, &hours, &f.Note, &f.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		if f.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("forecast %d hours: %w", f.ID, err)
		}
		if employeeID.Valid {
			id := employeeID.Int64
			f.EmployeeID = &id
		} else {
			f.Planned = &forecast.PlannedHireRef{
				ChangeID:    plannedID.Int64,
				Name:        plannedName.String,
				ManagerCode: plannedMgr.String,
				CostCenter:  plannedCC.String,
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ReplaceForecasts deletes the rows scope covers and inserts rows, in one
// transaction.
func (s *Store) ReplaceForecasts(ctx context.Context, scope forecast.ForecastScope, rows []forecast.Forecast) error {
	return s.WithTx(ctx, func(st forecast.Store) error {
		tx := st.(*Store)

		var err error
		if scope.EmployeeID == nil {
			_, err = tx.q.ExecContext(ctx, "DELETE FROM forecasts WHERE year = ?", scope.Year)
		} else {
			_, err = tx.q.ExecContext(ctx,
				"DELETE FROM forecasts WHERE year = ? AND employee_id = ?", scope.Year, *scope.EmployeeID)
		}
		if err != nil {
			return fmt.Errorf("failed to delete forecasts: %w", err)
		}

		for _, f := range rows {
			var plannedID, plannedName, plannedMgr, plannedCC any
			if f.Planned != nil {
				plannedID = f.Planned.ChangeID
				plannedName = f.Planned.Name
				plannedMgr = nullString(f.Planned.ManagerCode)
				plannedCC = nullString(f.Planned.CostCenter)
			}
			_, err := tx.q.ExecContext(ctx, `
				INSERT INTO forecasts
				(employee_id, planned_change_id, planned_name, planned_manager_code, planned_cost_center,
				 work_code, year, month, hours, note, run_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				nullInt(f.EmployeeID), plannedID, plannedName, plannedMgr, plannedCC,
				f.WorkCode, f.Year, f.Month, f.Hours.String(), f.Note, f.RunID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert forecast: %w", err)
			}
		}
		return nil
	})
}

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, run forecast.Run) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO recalculation_runs
		(id, scope, year, employees, planned_hires, rows_written, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Scope, run.Year, run.Employees, run.PlannedHires, run.Rows,
		run.StartedAt.UTC().Format(runTimeLayout), run.CompletedAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save recalculation run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]forecast.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, scope, year, employees, planned_hires, rows_written, started_at, completed_at
		FROM recalculation_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recalculation runs: %w", err)
	}
	defer rows.Close()

	var runs []forecast.Run
	for rows.Next() {
		var (
			r                  forecast.Run
			started, completed string
		)
		if err := rows.Scan(&r.ID, &r.Scope, &r.Year, &r.Employees, &r.PlannedHires, &r.Rows,
			&started, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan recalculation run: %w", err)
		}
		if r.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
		}
		if r.CompletedAt, err = time.Parse(runTimeLayout, completed); err != nil {
			return nil, fmt.Errorf("run %s completed_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDate(d *forecast.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*forecast.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := forecast.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func recordDateError(record string, id int64, field string, err error) error {
	return &forecast.RecordError{
		Kind:    forecast.FailureInvalidDate,
		Record:  record,
		ID:      id,
		Field:   field,
		Message: err.Error(),
	}
}
