/*
handlers.go - HTTP API handlers for the headcount forecast engine

PURPOSE:
  Exposes the roster, its calendar and allocation inputs, planned changes
  and computed forecasts over REST. Handlers parse the request, validate,
  delegate to the forecast package and serialize the result.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List employees
    POST   /api/employees                       Create employee
    GET    /api/employees/{id}                  Employee with this year's forecasts
    PUT    /api/employees/{id}                  Update employee
    DELETE /api/employees/{id}                  Delete employee and their forecasts

  Inputs:
    GET    /api/weeks/{year}                    Standard weeks (defaults if unset)
    PUT    /api/weeks/{year}                    Replace standard weeks
    GET    /api/allocations?year=               Project allocations
    PUT    /api/allocations                     Upsert one allocation
    GET    /api/settings                        Weekly hour rates
    PUT    /api/settings                        Update weekly hour rates
    GET    /api/work-codes                      Work codes
    POST   /api/work-codes                      Add or rename a work code

  Planned changes:
    GET    /api/planned-changes?status=&type=   List
    POST   /api/planned-changes                 Create
    PUT    /api/planned-changes/{id}            Edit a pending change
    DELETE /api/planned-changes/{id}            Delete a pending change
    POST   /api/planned-changes/{id}/apply      Apply one change
    POST   /api/planned-changes/apply-due       Apply everything due

  Forecasts:
    POST   /api/forecasts/recalculate           Recalculate all or one employee
    GET    /api/forecasts?year=                 Persisted rows
    GET    /api/forecasts/runs?limit=           Recent recalculation runs
    GET    /api/reports/forecast?year=&manager=&cost_center=

RECALCULATION ON EDIT:
  Saving an employee recalculates that employee. Every other edit that
  feeds the calculator recalculates all employees. The edit is kept even
  when the recalculation fails; the failure is reported in the response
  and prior forecasts stay in place.

ERROR HANDLING:
  - 400: RecordError (with kind and field), malformed body or parameter
  - 404: Employee or planned change not found
  - 409: Planned change already applied (apply, edit, delete)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/warp/headcount-forecast/forecast"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     forecast.Store
	Recalc    *forecast.Recalculator
	Reports   *forecast.ReportBuilder
	Lifecycle *forecast.Lifecycle

	logger *zap.Logger
	now    func() time.Time
}

// NewHandler wires the engine components around store.
func NewHandler(store forecast.Store, recalc *forecast.Recalculator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Recalc:    recalc,
		Reports:   forecast.NewReportBuilder(store),
		Lifecycle: forecast.NewLifecycle(store, logger),
		logger:    logger.Named("api"),
		now:       time.Now,
	}
}

// recalculate runs a recalculation after an edit and reports the outcome
// without failing the request.
func (h *Handler) recalculate(ctx context.Context, scope forecast.Scope) *RecalculationDTO {
	run, err := h.Recalc.Recalculate(ctx, scope)
	if err != nil {
		h.logger.Warn("recalculation after edit failed", zap.String("scope", scope.String()), zap.Error(err))
		resp := errorResponse("Recalculation failed, previous forecasts kept", err)
		return &RecalculationDTO{Error: &resp}
	}
	return &RecalculationDTO{Run: run}
}

// recalculateYear recalculates all employees when year is the forecast year.
func (h *Handler) recalculateYear(ctx context.Context, year int) *RecalculationDTO {
	if year != h.Recalc.Year() {
		return nil
	}
	return h.recalculate(ctx, forecast.AllEmployees())
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list employees", err)
		return
	}
	if employees == nil {
		employees = []forecast.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

// CreateEmployee adds an employee and forecasts them.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := req.toEmployee(0)
	if err == nil {
		err = forecast.ValidateEmployee(emp)
	}
	if err != nil {
		h.writeDomainError(w, "Invalid employee", err)
		return
	}

	id, err := h.Store.SaveEmployee(r.Context(), emp)
	if err != nil {
		h.writeDomainError(w, "Failed to create employee", err)
		return
	}
	emp.ID = id

	writeJSON(w, http.StatusCreated, EmployeeResponse{
		Employee:      emp,
		Recalculation: h.recalculate(r.Context(), forecast.SingleEmployee(id)),
	})
}

// GetEmployee returns an employee with their forecast rows for the current
// forecast year.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	year := h.Recalc.Year()
	rows, err := h.Store.Forecasts(ctx, year)
	if err != nil {
		h.writeDomainError(w, "Failed to load forecasts", err)
		return
	}
	var mine []forecast.Forecast
	for _, f := range rows {
		if f.EmployeeID != nil && *f.EmployeeID == id {
			mine = append(mine, f)
		}
	}

	writeJSON(w, http.StatusOK, EmployeeDetailResponse{
		Employee:  *emp,
		Year:      year,
		Forecasts: toForecastDTOs(mine),
	})
}

// UpdateEmployee replaces an employee record and recalculates them.
// PUT /api/employees/{id}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req EmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	existing, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	emp, err := req.toEmployee(id)
	if err == nil {
		err = forecast.ValidateEmployee(emp)
	}
	if err != nil {
		h.writeDomainError(w, "Invalid employee", err)
		return
	}

	if _, err := h.Store.SaveEmployee(ctx, emp); err != nil {
		h.writeDomainError(w, "Failed to update employee", err)
		return
	}

	writeJSON(w, http.StatusOK, EmployeeResponse{
		Employee:      emp,
		Recalculation: h.recalculate(ctx, forecast.SingleEmployee(id)),
	})
}

// DeleteEmployee removes an employee together with their forecast rows.
// Pending changes that reference the employee stay queued and are reported
// as failures when applied.
// DELETE /api/employees/{id}
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete employee", err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Status: "deleted", ID: id})
}

// =============================================================================
// STANDARD WEEKS
// =============================================================================

// GetWeeks returns a year's standard weeks, or the defaults if none are stored.
// GET /api/weeks/{year}
func (h *Handler) GetWeeks(w http.ResponseWriter, r *http.Request) {
	year, ok := pathYear(w, r)
	if !ok {
		return
	}

	entries, err := h.Store.Weeks(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, "Failed to load weeks", err)
		return
	}

	resp := WeeksResponse{Year: year, Entries: entries}
	if len(entries) == 0 {
		resp.Entries = forecast.DefaultWeeks(year)
		resp.Defaulted = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutWeeks replaces a year's standard weeks.
// PUT /api/weeks/{year}
func (h *Handler) PutWeeks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, ok := pathYear(w, r)
	if !ok {
		return
	}

	var req []WeeksEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entries := make([]forecast.WeeksEntry, len(req))
	for i, e := range req {
		entries[i] = forecast.WeeksEntry{Year: year, Month: e.Month, Weeks: e.Weeks}
	}
	if err := forecast.ValidateWeeks(year, entries); err != nil {
		h.writeDomainError(w, "Invalid weeks", err)
		return
	}
	if err := h.Store.SaveWeeks(ctx, year, entries); err != nil {
		h.writeDomainError(w, "Failed to save weeks", err)
		return
	}

	writeJSON(w, http.StatusOK, WeeksResponse{
		Year:          year,
		Entries:       entries,
		Recalculation: h.recalculateYear(ctx, year),
	})
}

// =============================================================================
// PROJECT ALLOCATIONS
// =============================================================================

// ListAllocations returns a year's project allocations.
// GET /api/allocations?year=
func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	year, ok := h.queryYear(w, r)
	if !ok {
		return
	}

	allocs, err := h.Store.Allocations(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, "Failed to list allocations", err)
		return
	}
	if allocs == nil {
		allocs = []forecast.ProjectAllocation{}
	}
	writeJSON(w, http.StatusOK, allocs)
}

// PutAllocation upserts one allocation keyed by manager, cost center, work
// code, year and month.
// PUT /api/allocations
func (h *Handler) PutAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var a forecast.ProjectAllocation
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := forecast.ValidateAllocation(a); err != nil {
		h.writeDomainError(w, "Invalid allocation", err)
		return
	}

	id, err := h.Store.SaveAllocation(ctx, a)
	if err != nil {
		h.writeDomainError(w, "Failed to save allocation", err)
		return
	}
	a.ID = id

	writeJSON(w, http.StatusOK, AllocationResponse{
		Allocation:    a,
		Recalculation: h.recalculateYear(ctx, a.Year),
	})
}

// =============================================================================
// PLANNED CHANGES
// =============================================================================

// ListPlannedChanges returns planned changes, optionally filtered.
// GET /api/planned-changes?status=&type=
func (h *Handler) ListPlannedChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := forecast.ChangeFilter{
		Status: forecast.ChangeStatus(q.Get("status")),
	}
	if t := q.Get("type"); t != "" {
		filter.Type = changeType(t)
	}

	changes, err := h.Store.PlannedChanges(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list planned changes", err)
		return
	}
	if changes == nil {
		changes = []forecast.PlannedChange{}
	}
	writeJSON(w, http.StatusOK, changes)
}

// CreatePlannedChange queues a lifecycle event and recalculates everyone so
// the pending change shows up in forecasts.
// POST /api/planned-changes
func (h *Handler) CreatePlannedChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PlannedChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	change, err := req.toChange()
	if err == nil {
		err = forecast.ValidatePlannedChange(change)
	}
	if err == nil {
		err = forecast.RequireEmployee(ctx, h.Store, change)
	}
	if err != nil {
		h.writeDomainError(w, "Invalid planned change", err)
		return
	}

	id, err := h.Store.SavePlannedChange(ctx, change)
	if err != nil {
		h.writeDomainError(w, "Failed to create planned change", err)
		return
	}
	change.ID = id

	writeJSON(w, http.StatusCreated, PlannedChangeResponse{
		Change:        change,
		Recalculation: h.recalculate(ctx, forecast.AllEmployees()),
	})
}

// UpdatePlannedChange edits a pending change and recalculates all employees.
// PUT /api/planned-changes/{id}
func (h *Handler) UpdatePlannedChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req PlannedChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	change, err := req.toChange()
	if err != nil {
		h.writeDomainError(w, "Invalid planned change", err)
		return
	}
	change.ID = id

	updated, err := h.Lifecycle.Update(ctx, change)
	if err != nil {
		h.writeDomainError(w, "Failed to update planned change", err)
		return
	}

	writeJSON(w, http.StatusOK, PlannedChangeResponse{
		Change:        *updated,
		Recalculation: h.recalculate(ctx, forecast.AllEmployees()),
	})
}

// DeletePlannedChange removes a pending change and recalculates all employees.
// DELETE /api/planned-changes/{id}
func (h *Handler) DeletePlannedChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Lifecycle.Delete(ctx, id); err != nil {
		h.writeDomainError(w, "Failed to delete planned change", err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{
		Status:        "deleted",
		ID:            id,
		Recalculation: h.recalculate(ctx, forecast.AllEmployees()),
	})
}

// ApplyPlannedChange applies one pending change to the roster.
// POST /api/planned-changes/{id}/apply
func (h *Handler) ApplyPlannedChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	change, err := h.Lifecycle.Apply(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to apply planned change", err)
		return
	}

	writeJSON(w, http.StatusOK, PlannedChangeResponse{
		Change:        *change,
		Recalculation: h.recalculate(ctx, forecast.AllEmployees()),
	})
}

// ApplyDuePlannedChanges applies every pending change effective on or before
// as_of (default: today).
// POST /api/planned-changes/apply-due
func (h *Handler) ApplyDuePlannedChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ApplyDueRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	asOf := forecast.DateOf(h.now())
	if req.AsOf != "" {
		var err error
		if asOf, err = parseDateField("apply_due", 0, "as_of", req.AsOf); err != nil {
			h.writeDomainError(w, "Invalid as_of date", err)
			return
		}
	}

	report, err := h.Lifecycle.ApplyDue(ctx, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to apply planned changes", err)
		return
	}

	resp := ApplyDueResponse{AsOf: asOf.String(), Report: report}
	if len(report.Applied) > 0 {
		resp.Recalculation = h.recalculate(ctx, forecast.AllEmployees())
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SETTINGS AND WORK CODES
// =============================================================================

// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.Settings(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

// PUT /api/settings
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var settings forecast.Settings
	if err := decodeJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := forecast.ValidateSettings(settings); err != nil {
		h.writeDomainError(w, "Invalid settings", err)
		return
	}
	if err := h.Store.SaveSettings(ctx, settings); err != nil {
		h.writeDomainError(w, "Failed to save settings", err)
		return
	}

	writeJSON(w, http.StatusOK, SettingsResponse{
		Settings:      settings,
		Recalculation: h.recalculate(ctx, forecast.AllEmployees()),
	})
}

// GET /api/work-codes
func (h *Handler) ListWorkCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Store.WorkCodes(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list work codes", err)
		return
	}
	if len(codes) == 0 {
		codes = forecast.DefaultWorkCodes()
	}
	writeJSON(w, http.StatusOK, codes)
}

// POST /api/work-codes
func (h *Handler) CreateWorkCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req WorkCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	wc := forecast.WorkCode{Code: strings.TrimSpace(req.Code), Description: strings.TrimSpace(req.Description)}
	if wc.Code == "" {
		h.writeDomainError(w, "Invalid work code", &forecast.RecordError{
			Kind: forecast.FailureMissingField, Record: "work_code", Field: "code", Message: "code is required",
		})
		return
	}

	id, err := h.Store.SaveWorkCode(ctx, wc)
	if err != nil {
		h.writeDomainError(w, "Failed to save work code", err)
		return
	}
	wc.ID = id

	writeJSON(w, http.StatusCreated, WorkCodeResponse{
		WorkCode:      wc,
		Recalculation: h.recalculate(ctx, forecast.AllEmployees()),
	})
}

// =============================================================================
// FORECASTS
// =============================================================================

// Recalculate recomputes forecasts for every employee, or for one when
// employee_id is given.
// POST /api/forecasts/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	scope := forecast.AllEmployees()
	if req.EmployeeID != nil {
		scope = forecast.SingleEmployee(*req.EmployeeID)
	}

	run, err := h.Recalc.Recalculate(r.Context(), scope)
	if err != nil {
		h.writeDomainError(w, "Recalculation failed, previous forecasts kept", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListForecasts returns the persisted rows for a year.
// GET /api/forecasts?year=
func (h *Handler) ListForecasts(w http.ResponseWriter, r *http.Request) {
	year, ok := h.queryYear(w, r)
	if !ok {
		return
	}

	rows, err := h.Store.Forecasts(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, "Failed to list forecasts", err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastDTOs(rows))
}

// ListRuns returns recent recalculation runs, newest first.
// GET /api/forecasts/runs?limit=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []forecast.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// ForecastReport aggregates a year's forecasts by manager, cost center and
// work code.
// GET /api/reports/forecast?year=&manager=&cost_center=
func (h *Handler) ForecastReport(w http.ResponseWriter, r *http.Request) {
	year, ok := h.queryYear(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := forecast.ReportFilter{Manager: q.Get("manager"), CostCenter: q.Get("cost_center")}

	rows, err := h.Reports.Build(r.Context(), year, filter)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(year, filter, rows))
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, errorResponse(message, err))
}

func errorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if re, ok := forecast.AsRecordError(err); ok {
		resp.Kind = string(re.Kind)
		resp.Field = re.Field
	}
	return resp
}

// writeDomainError picks the status from the error chain.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, forecast.ErrChangeAlreadyApplied):
		return http.StatusConflict
	case forecast.IsNotFound(err):
		return http.StatusNotFound
	case forecast.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

func pathYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	return parseYear(w, chi.URLParam(r, "year"))
}

// queryYear reads ?year=, defaulting to the forecast year.
func (h *Handler) queryYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return h.Recalc.Year(), true
	}
	return parseYear(w, v)
}

func parseYear(w http.ResponseWriter, v string) (int, bool) {
	year, err := strconv.Atoi(v)
	if err != nil || year < 1000 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, false
	}
	return year, true
}
