// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/headcount-forecast/forecast"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	employees   map[int64]forecast.Employee
	weeks       map[int][]forecast.WeeksEntry
	allocations []forecast.ProjectAllocation
	changes     map[int64]forecast.PlannedChange
	settings    *forecast.Settings
	workCodes   []forecast.WorkCode
	forecasts   []forecast.Forecast
	runs        []forecast.Run
	nextID      int64
}

var _ forecast.Store = (*Memory)(nil)

// NewMemory returns an empty store seeded with the default work codes.
func NewMemory() *Memory {
	codes := forecast.DefaultWorkCodes()
	for i := range codes {
		codes[i].ID = int64(i + 1)
	}
	return &Memory{state: &memState{
		employees: make(map[int64]forecast.Employee),
		weeks:     make(map[int][]forecast.WeeksEntry),
		changes:   make(map[int64]forecast.PlannedChange),
		workCodes: codes,
		nextID:    100,
	}}
}

func (m *Memory) SaveWorkCode(_ context.Context, wc forecast.WorkCode) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.saveWorkCode(wc), nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]forecast.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listEmployees(), nil
}

func (m *Memory) GetEmployee(_ context.Context, id int64) (*forecast.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getEmployee(id), nil
}

func (m *Memory) SaveEmployee(_ context.Context, emp forecast.Employee) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.saveEmployee(emp), nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteEmployee(id)
}

func (m *Memory) Weeks(_ context.Context, year int) ([]forecast.WeeksEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]forecast.WeeksEntry(nil), m.state.weeks[year]...), nil
}

func (m *Memory) SaveWeeks(_ context.Context, year int, entries []forecast.WeeksEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.saveWeeks(year, entries)
	return nil
}

func (m *Memory) Allocations(_ context.Context, year int) ([]forecast.ProjectAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.allocationsFor(year), nil
}

func (m *Memory) SaveAllocation(_ context.Context, a forecast.ProjectAllocation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.saveAllocation(a), nil
}

func (m *Memory) PlannedChanges(_ context.Context, filter forecast.ChangeFilter) ([]forecast.PlannedChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.plannedChanges(filter), nil
}

func (m *Memory) GetPlannedChange(_ context.Context, id int64) (*forecast.PlannedChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getPlannedChange(id), nil
}

func (m *Memory) SavePlannedChange(_ context.Context, c forecast.PlannedChange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.savePlannedChange(c), nil
}

func (m *Memory) DeletePlannedChange(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deletePlannedChange(id)
}

func (m *Memory) Settings(_ context.Context) (forecast.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.currentSettings(), nil
}

func (m *Memory) SaveSettings(_ context.Context, s forecast.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.settings = &s
	return nil
}

func (m *Memory) WorkCodes(_ context.Context) ([]forecast.WorkCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]forecast.WorkCode(nil), m.state.workCodes...), nil
}

func (m *Memory) Forecasts(_ context.Context, year int) ([]forecast.Forecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.forecastsFor(year), nil
}

func (m *Memory) ReplaceForecasts(_ context.Context, scope forecast.ForecastScope, rows []forecast.Forecast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.replaceForecasts(scope, rows)
	return nil
}

func (m *Memory) SaveRun(_ context.Context, run forecast.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.runs = append(m.state.runs, run)
	return nil
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]forecast.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listRuns(limit), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a view of the store. The store is locked for the
// duration; on error the state captured before fn ran is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(forecast.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&txView{state: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// txView operates on the locked state directly.
type txView struct {
	state *memState
}

func (v *txView) ListEmployees(context.Context) ([]forecast.Employee, error) {
	return v.state.listEmployees(), nil
}
func (v *txView) GetEmployee(_ context.Context, id int64) (*forecast.Employee, error) {
	return v.state.getEmployee(id), nil
}
func (v *txView) SaveEmployee(_ context.Context, emp forecast.Employee) (int64, error) {
	return v.state.saveEmployee(emp), nil
}
func (v *txView) DeleteEmployee(_ context.Context, id int64) error {
	return v.state.deleteEmployee(id)
}
func (v *txView) Weeks(_ context.Context, year int) ([]forecast.WeeksEntry, error) {
	return append([]forecast.WeeksEntry(nil), v.state.weeks[year]...), nil
}
func (v *txView) SaveWeeks(_ context.Context, year int, entries []forecast.WeeksEntry) error {
	v.state.saveWeeks(year, entries)
	return nil
}
func (v *txView) Allocations(_ context.Context, year int) ([]forecast.ProjectAllocation, error) {
	return v.state.allocationsFor(year), nil
}
func (v *txView) SaveAllocation(_ context.Context, a forecast.ProjectAllocation) (int64, error) {
	return v.state.saveAllocation(a), nil
}
func (v *txView) PlannedChanges(_ context.Context, f forecast.ChangeFilter) ([]forecast.PlannedChange, error) {
	return v.state.plannedChanges(f), nil
}
func (v *txView) GetPlannedChange(_ context.Context, id int64) (*forecast.PlannedChange, error) {
	return v.state.getPlannedChange(id), nil
}
func (v *txView) SavePlannedChange(_ context.Context, c forecast.PlannedChange) (int64, error) {
	return v.state.savePlannedChange(c), nil
}
func (v *txView) DeletePlannedChange(_ context.Context, id int64) error {
	return v.state.deletePlannedChange(id)
}
func (v *txView) Settings(context.Context) (forecast.Settings, error) {
	return v.state.currentSettings(), nil
}
func (v *txView) SaveSettings(_ context.Context, s forecast.Settings) error {
	v.state.settings = &s
	return nil
}
func (v *txView) WorkCodes(context.Context) ([]forecast.WorkCode, error) {
	return append([]forecast.WorkCode(nil), v.state.workCodes...), nil
}
func (v *txView) SaveWorkCode(_ context.Context, wc forecast.WorkCode) (int64, error) {
	return v.state.saveWorkCode(wc), nil
}
func (v *txView) Forecasts(_ context.Context, year int) ([]forecast.Forecast, error) {
	return v.state.forecastsFor(year), nil
}
func (v *txView) ReplaceForecasts(_ context.Context, scope forecast.ForecastScope, rows []forecast.Forecast) error {
	v.state.replaceForecasts(scope, rows)
	return nil
}
func (v *txView) SaveRun(_ context.Context, run forecast.Run) error {
	v.state.runs = append(v.state.runs, run)
	return nil
}
func (v *txView) ListRuns(_ context.Context, limit int) ([]forecast.Run, error) {
	return v.state.listRuns(limit), nil
}

// WithTx inside a transaction joins the outer one.
func (v *txView) WithTx(_ context.Context, fn func(forecast.Store) error) error {
	return fn(v)
}

// =============================================================================
// STATE - Unlocked operations shared by Memory and txView
// =============================================================================

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memState) listEmployees() []forecast.Employee {
	out := make([]forecast.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memState) getEmployee(id int64) *forecast.Employee {
	e, ok := s.employees[id]
	if !ok {
		return nil
	}
	return &e
}

func (s *memState) saveEmployee(emp forecast.Employee) int64 {
	if emp.ID == 0 {
		emp.ID = s.id()
	}
	s.employees[emp.ID] = emp
	return emp.ID
}

func (s *memState) deleteEmployee(id int64) error {
	if _, ok := s.employees[id]; !ok {
		return fmt.Errorf("employee %d: %w", id, forecast.ErrEmployeeNotFound)
	}
	kept := s.forecasts[:0:0]
	for _, f := range s.forecasts {
		if f.EmployeeID == nil || *f.EmployeeID != id {
			kept = append(kept, f)
		}
	}
	s.forecasts = kept
	delete(s.employees, id)
	return nil
}

func (s *memState) saveWeeks(year int, entries []forecast.WeeksEntry) {
	sorted := append([]forecast.WeeksEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })
	s.weeks[year] = sorted
}

func (s *memState) allocationsFor(year int) []forecast.ProjectAllocation {
	var out []forecast.ProjectAllocation
	for _, a := range s.allocations {
		if a.Year == year {
			out = append(out, a)
		}
	}
	return out
}

func (s *memState) saveAllocation(a forecast.ProjectAllocation) int64 {
	for i, existing := range s.allocations {
		if existing.ManagerCode == a.ManagerCode && existing.CostCenter == a.CostCenter &&
			existing.WorkCode == a.WorkCode && existing.Year == a.Year && existing.Month == a.Month {
			a.ID = existing.ID
			s.allocations[i] = a
			return a.ID
		}
	}
	a.ID = s.id()
	s.allocations = append(s.allocations, a)
	return a.ID
}

func (s *memState) plannedChanges(filter forecast.ChangeFilter) []forecast.PlannedChange {
	var out []forecast.PlannedChange
	for _, c := range s.changes {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memState) getPlannedChange(id int64) *forecast.PlannedChange {
	c, ok := s.changes[id]
	if !ok {
		return nil
	}
	return &c
}

func (s *memState) savePlannedChange(c forecast.PlannedChange) int64 {
	if c.ID == 0 {
		c.ID = s.id()
	}
	if c.Status == "" {
		c.Status = forecast.StatusPending
	}
	s.changes[c.ID] = c
	return c.ID
}

func (s *memState) deletePlannedChange(id int64) error {
	if _, ok := s.changes[id]; !ok {
		return fmt.Errorf("planned change %d: %w", id, forecast.ErrPlannedChangeNotFound)
	}
	delete(s.changes, id)
	return nil
}

func (s *memState) currentSettings() forecast.Settings {
	if s.settings == nil {
		return forecast.DefaultSettings()
	}
	return *s.settings
}

func (s *memState) saveWorkCode(wc forecast.WorkCode) int64 {
	for i, existing := range s.workCodes {
		if existing.Code == wc.Code {
			s.workCodes[i].Description = wc.Description
			return existing.ID
		}
	}
	wc.ID = s.id()
	s.workCodes = append(s.workCodes, wc)
	return wc.ID
}

func (s *memState) forecastsFor(year int) []forecast.Forecast {
	var out []forecast.Forecast
	for _, f := range s.forecasts {
		if f.Year == year {
			out = append(out, f)
		}
	}
	return out
}

func (s *memState) replaceForecasts(scope forecast.ForecastScope, rows []forecast.Forecast) {
	kept := s.forecasts[:0:0]
	for _, f := range s.forecasts {
		if !scope.Covers(f) {
			kept = append(kept, f)
		}
	}
	for _, f := range rows {
		f.ID = s.id()
		kept = append(kept, f)
	}
	s.forecasts = kept
}

func (s *memState) listRuns(limit int) []forecast.Run {
	out := make([]forecast.Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *memState) clone() *memState {
	c := &memState{
		employees:   make(map[int64]forecast.Employee, len(s.employees)),
		weeks:       make(map[int][]forecast.WeeksEntry, len(s.weeks)),
		allocations: append([]forecast.ProjectAllocation(nil), s.allocations...),
		changes:     make(map[int64]forecast.PlannedChange, len(s.changes)),
		settings:    s.settings,
		workCodes:   append([]forecast.WorkCode(nil), s.workCodes...),
		forecasts:   append([]forecast.Forecast(nil), s.forecasts...),
		runs:        append([]forecast.Run(nil), s.runs...),
		nextID:      s.nextID,
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.weeks {
		c.weeks[k] = append([]forecast.WeeksEntry(nil), v...)
	}
	for k, v := range s.changes {
		c.changes[k] = v
	}
	return c
}
