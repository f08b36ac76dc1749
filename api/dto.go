/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request types carry
  dates and enums as plain strings so a malformed value becomes a typed
  RecordError instead of a decoder failure.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employee:       EmployeeRequest, EmployeeResponse, EmployeeDetailResponse
  Weeks:          WeeksEntryRequest, WeeksResponse
  Planned change: PlannedChangeRequest, ApplyDueRequest, ApplyDueResponse
  Forecast:       ForecastDTO, RecalculateRequest, RecalculationDTO
  Report:         ReportResponse, ReportRowDTO, MonthHoursDTO

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/headcount-forecast/forecast"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
}

// RecalculationDTO reports the recalculation an edit triggered. A failed
// recalculation does not undo the edit; prior forecasts stay in place.
type RecalculationDTO struct {
	Run   *forecast.Run  `json:"run,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	Status        string            `json:"status"`
	ID            int64             `json:"id"`
	Recalculation *RecalculationDTO `json:"recalculation,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeRequest struct {
	Name           string  `json:"name"`
	ManagerCode    string  `json:"manager_code"`
	CostCenter     string  `json:"cost_center"`
	EmploymentType string  `json:"employment_type"`
	StartDate      string  `json:"start_date"`
	EndDate        *string `json:"end_date"`
}

// toEmployee converts the request. Only malformed dates fail here; field
// rules are checked by forecast.ValidateEmployee.
func (req EmployeeRequest) toEmployee(id int64) (forecast.Employee, error) {
	emp := forecast.Employee{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		ManagerCode:    strings.TrimSpace(req.ManagerCode),
		CostCenter:     strings.TrimSpace(req.CostCenter),
		EmploymentType: employmentType(req.EmploymentType),
	}

	var err error
	if emp.StartDate, err = parseDateField("employee", id, "start_date", req.StartDate); err != nil {
		return emp, err
	}
	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		end, err := parseDateField("employee", id, "end_date", *req.EndDate)
		if err != nil {
			return emp, err
		}
		emp.EndDate = &end
	}
	return emp, nil
}

type EmployeeResponse struct {
	Employee      forecast.Employee `json:"employee"`
	Recalculation *RecalculationDTO `json:"recalculation,omitempty"`
}

type EmployeeDetailResponse struct {
	Employee  forecast.Employee `json:"employee"`
	Year      int               `json:"year"`
	Forecasts []ForecastDTO     `json:"forecasts"`
}

// =============================================================================
// STANDARD WEEKS
// =============================================================================

type WeeksEntryRequest struct {
	Month int             `json:"month"`
	Weeks decimal.Decimal `json:"weeks"`
}

type WeeksResponse struct {
	Year          int                   `json:"year"`
	Entries       []forecast.WeeksEntry `json:"entries"`
	Defaulted     bool                  `json:"defaulted"`
	Recalculation *RecalculationDTO     `json:"recalculation,omitempty"`
}

// =============================================================================
// PLANNED CHANGES
// =============================================================================

type PlannedChangeRequest struct {
	Description          string `json:"description"`
	ChangeType           string `json:"change_type"`
	EffectiveDate        string `json:"effective_date"`
	EmployeeID           *int64 `json:"employee_id"`
	TargetEmploymentType string `json:"target_employment_type"`
	Name                 string `json:"name"`
	ManagerCode          string `json:"manager_code"`
	CostCenter           string `json:"cost_center"`
	EmploymentType       string `json:"employment_type"`
}

func (req PlannedChangeRequest) toChange() (forecast.PlannedChange, error) {
	c := forecast.PlannedChange{
		Description:    strings.TrimSpace(req.Description),
		Type:           changeType(req.ChangeType),
		Status:         forecast.StatusPending,
		EmployeeID:     req.EmployeeID,
		TargetType:     employmentType(req.TargetEmploymentType),
		Name:           strings.TrimSpace(req.Name),
		ManagerCode:    strings.TrimSpace(req.ManagerCode),
		CostCenter:     strings.TrimSpace(req.CostCenter),
		EmploymentType: employmentType(req.EmploymentType),
	}
	if strings.TrimSpace(req.EffectiveDate) == "" {
		return c, nil
	}
	var err error
	c.EffectiveDate, err = parseDateField("planned_change", 0, "effective_date", req.EffectiveDate)
	return c, err
}

type ApplyDueRequest struct {
	AsOf string `json:"as_of"`
}

type ApplyDueResponse struct {
	AsOf          string                `json:"as_of"`
	Report        *forecast.ApplyReport `json:"report"`
	Recalculation *RecalculationDTO     `json:"recalculation,omitempty"`
}

type PlannedChangeResponse struct {
	Change        forecast.PlannedChange `json:"change"`
	Recalculation *RecalculationDTO      `json:"recalculation,omitempty"`
}

// =============================================================================
// SETTINGS AND WORK CODES
// =============================================================================

type SettingsResponse struct {
	Settings      forecast.Settings `json:"settings"`
	Recalculation *RecalculationDTO `json:"recalculation,omitempty"`
}

type WorkCodeRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type WorkCodeResponse struct {
	WorkCode      forecast.WorkCode `json:"work_code"`
	Recalculation *RecalculationDTO `json:"recalculation,omitempty"`
}

type AllocationResponse struct {
	Allocation    forecast.ProjectAllocation `json:"allocation"`
	Recalculation *RecalculationDTO          `json:"recalculation,omitempty"`
}

// =============================================================================
// FORECASTS AND REPORTS
// =============================================================================

// ForecastDTO is a persisted forecast row with its month label.
type ForecastDTO struct {
	forecast.Forecast
	MonthName string `json:"month_name"`
}

func toForecastDTOs(rows []forecast.Forecast) []ForecastDTO {
	out := make([]ForecastDTO, len(rows))
	for i, f := range rows {
		out[i] = ForecastDTO{Forecast: f, MonthName: forecast.MonthName(f.Month)}
	}
	return out
}

type RecalculateRequest struct {
	EmployeeID *int64 `json:"employee_id"`
}

type MonthHoursDTO struct {
	Month int             `json:"month"`
	Name  string          `json:"name"`
	Hours decimal.Decimal `json:"hours"`
}

type ReportRowDTO struct {
	ManagerCode string          `json:"manager_code"`
	CostCenter  string          `json:"cost_center"`
	WorkCode    string          `json:"work_code"`
	Months      []MonthHoursDTO `json:"months"`
	Total       decimal.Decimal `json:"total"`
}

type ReportResponse struct {
	Year       int             `json:"year"`
	Manager    string          `json:"manager"`
	CostCenter string          `json:"cost_center"`
	Rows       []ReportRowDTO  `json:"rows"`
	Total      decimal.Decimal `json:"total"`
}

func toReportResponse(year int, filter forecast.ReportFilter, rows []forecast.ReportRow) ReportResponse {
	resp := ReportResponse{
		Year:       year,
		Manager:    orAll(filter.Manager),
		CostCenter: orAll(filter.CostCenter),
		Rows:       make([]ReportRowDTO, len(rows)),
		Total:      decimal.Zero,
	}
	for i, r := range rows {
		months := make([]MonthHoursDTO, 12)
		for m := 1; m <= 12; m++ {
			months[m-1] = MonthHoursDTO{Month: m, Name: forecast.MonthName(m), Hours: r.Month(m)}
		}
		resp.Rows[i] = ReportRowDTO{
			ManagerCode: r.ManagerCode,
			CostCenter:  r.CostCenter,
			WorkCode:    r.WorkCode,
			Months:      months,
			Total:       r.Total,
		}
		resp.Total = resp.Total.Add(r.Total)
	}
	return resp
}

// Helper functions

func orAll(v string) string {
	if v == "" {
		return forecast.AllFilter
	}
	return v
}

// employmentType normalizes known spellings and passes anything else through
// for validation to reject.
func employmentType(s string) forecast.EmploymentType {
	if t, ok := forecast.ParseEmploymentType(s); ok {
		return t
	}
	return forecast.EmploymentType(strings.TrimSpace(s))
}

func changeType(s string) forecast.ChangeType {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "newhire":
		return forecast.ChangeNewHire
	case "conversion":
		return forecast.ChangeConversion
	case "termination":
		return forecast.ChangeTermination
	}
	return forecast.ChangeType(strings.TrimSpace(s))
}

func parseDateField(record string, id int64, field, value string) (forecast.Date, error) {
	if strings.TrimSpace(value) == "" {
		return forecast.Date{}, nil
	}
	date, err := forecast.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return forecast.Date{}, &forecast.RecordError{
			Kind: forecast.FailureInvalidDate, Record: record, ID: id, Field: field, Message: err.Error(),
		}
	}
	return date, nil
}
