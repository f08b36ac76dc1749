/*
store.go - Persistence interfaces for the forecast engine

PURPOSE:
  Defines what the engine reads and writes. The engine never opens a
  connection itself; a Store is handed to each component's constructor.

KEY INTERFACES:
  RosterStore:     Employees
  CalendarStore:   Standard weeks per month
  AllocationStore: Project allocations
  ChangeStore:     Planned lifecycle changes
  SettingsStore:   Settings singleton and work codes
  ForecastStore:   Computed forecasts and recalculation runs
  Store:           All of the above plus WithTx

REPLACEMENT CONTRACT:
  ReplaceForecasts deletes every row the scope covers and inserts the new
  set atomically. There is no update path for forecast rows.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite via database/sql
  - forecast/store/memory.go: In-memory for tests and demos
*/
package forecast

import "context"

type RosterStore interface {
	ListEmployees(ctx context.Context) ([]Employee, error)

	// GetEmployee returns nil, nil when the employee does not exist.
	GetEmployee(ctx context.Context, id int64) (*Employee, error)

	// SaveEmployee inserts when emp.ID is zero and updates otherwise.
	// Returns the employee's id.
	SaveEmployee(ctx context.Context, emp Employee) (int64, error)

	// DeleteEmployee removes the employee and every forecast row computed
	// for them, atomically. Returns ErrEmployeeNotFound if there is no such
	// employee.
	DeleteEmployee(ctx context.Context, id int64) error
}

type CalendarStore interface {
	Weeks(ctx context.Context, year int) ([]WeeksEntry, error)

	// SaveWeeks replaces every entry of year with entries.
	SaveWeeks(ctx context.Context, year int, entries []WeeksEntry) error
}

type AllocationStore interface {
	Allocations(ctx context.Context, year int) ([]ProjectAllocation, error)

	// SaveAllocation upserts on (manager, cost center, work code, year, month).
	SaveAllocation(ctx context.Context, a ProjectAllocation) (int64, error)
}

type ChangeStore interface {
	PlannedChanges(ctx context.Context, filter ChangeFilter) ([]PlannedChange, error)

	// GetPlannedChange returns nil, nil when the change does not exist.
	GetPlannedChange(ctx context.Context, id int64) (*PlannedChange, error)

	SavePlannedChange(ctx context.Context, c PlannedChange) (int64, error)

	// DeletePlannedChange returns ErrPlannedChangeNotFound if there is no
	// such change. It does not check the status; see Lifecycle.Delete.
	DeletePlannedChange(ctx context.Context, id int64) error
}

type SettingsStore interface {
	// Settings returns DefaultSettings when no row exists.
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	WorkCodes(ctx context.Context) ([]WorkCode, error)
	// SaveWorkCode adds a code or updates the description of an existing one.
	SaveWorkCode(ctx context.Context, wc WorkCode) (int64, error)
}

type ForecastStore interface {
	// Forecasts returns the year's rows in insertion order.
	Forecasts(ctx context.Context, year int) ([]Forecast, error)

	// ReplaceForecasts atomically swaps the rows covered by scope for rows.
	ReplaceForecasts(ctx context.Context, scope ForecastScope, rows []Forecast) error

	SaveRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Store is the full persistence surface.
type Store interface {
	RosterStore
	CalendarStore
	AllocationStore
	ChangeStore
	SettingsStore
	ForecastStore

	// WithTx executes fn within a transaction. If fn returns an error every
	// write made through the Store passed to fn is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
