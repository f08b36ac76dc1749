package forecast

import (
	"fmt"
	"sort"
)

// =============================================================================
// ROSTER ENTRY - Real employees and not-yet-applied planned hires
// =============================================================================

// RosterEntry is either a RealEmployee or a PlannedHire. The calculator works
// on the shared Profile and only looks at the variant to decide which planned
// changes apply and how output rows are keyed.
type RosterEntry interface {
	Profile() Profile
	isRosterEntry()
}

// Profile is the slice of an entry the calculator needs.
type Profile struct {
	Name           string
	ManagerCode    string
	CostCenter     string
	EmploymentType EmploymentType
	StartDate      Date
	EndDate        *Date
}

// RealEmployee wraps a persisted Employee.
type RealEmployee struct {
	Employee Employee
}

func (r RealEmployee) isRosterEntry() {}

func (r RealEmployee) Profile() Profile {
	e := r.Employee
	return Profile{
		Name:           e.Name,
		ManagerCode:    e.ManagerCode,
		CostCenter:     e.CostCenter,
		EmploymentType: e.EmploymentType,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
	}
}

// PlannedHire wraps a pending NewHire change. It starts on the change's
// effective date and has no end date.
type PlannedHire struct {
	Change PlannedChange
}

func (p PlannedHire) isRosterEntry() {}

func (p PlannedHire) Profile() Profile {
	c := p.Change
	return Profile{
		Name:           c.Name,
		ManagerCode:    c.ManagerCode,
		CostCenter:     c.CostCenter,
		EmploymentType: c.EmploymentType,
		StartDate:      c.EffectiveDate,
	}
}

// Ref builds the structured reference stored on the hire's forecast rows.
func (p PlannedHire) Ref() *PlannedHireRef {
	return &PlannedHireRef{
		ChangeID:    p.Change.ID,
		Name:        p.Change.Name,
		ManagerCode: p.Change.ManagerCode,
		CostCenter:  p.Change.CostCenter,
	}
}

// Note is the human-readable description carried on the hire's rows.
func (p PlannedHire) Note() string {
	return fmt.Sprintf("Future hire: %s planned %s", p.Change.Name, p.Change.EffectiveDate)
}

// BuildRoster combines persisted employees with pending new hires whose
// effective date falls within horizon.
func BuildRoster(employees []Employee, pending []PlannedChange, horizon Period) []RosterEntry {
	entries := make([]RosterEntry, 0, len(employees))
	for _, e := range employees {
		entries = append(entries, RealEmployee{Employee: e})
	}
	for _, c := range pending {
		if c.Type != ChangeNewHire || !c.IsPending() {
			continue
		}
		if !horizon.Contains(c.EffectiveDate) {
			continue
		}
		entries = append(entries, PlannedHire{Change: c})
	}
	return entries
}

// =============================================================================
// CHANGE QUEUE - Pending conversions and terminations by employee
// =============================================================================

// ChangeQueue indexes pending changes by the employee they reference.
type ChangeQueue struct {
	byEmployee map[int64][]PlannedChange
}

// NewChangeQueue keeps pending changes that reference an employee, ordered by
// effective date then id.
func NewChangeQueue(changes []PlannedChange) ChangeQueue {
	q := ChangeQueue{byEmployee: make(map[int64][]PlannedChange)}
	for _, c := range changes {
		if !c.IsPending() || c.EmployeeID == nil {
			continue
		}
		q.byEmployee[*c.EmployeeID] = append(q.byEmployee[*c.EmployeeID], c)
	}
	for _, list := range q.byEmployee {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].EffectiveDate.Equal(list[j].EffectiveDate) {
				return list[i].EffectiveDate.Before(list[j].EffectiveDate)
			}
			return list[i].ID < list[j].ID
		})
	}
	return q
}

// ForEmployee returns the employee's pending changes in effective order.
func (q ChangeQueue) ForEmployee(id int64) []PlannedChange {
	return q.byEmployee[id]
}

// Within filters changes to those effective inside p.
func Within(changes []PlannedChange, p Period) []PlannedChange {
	var out []PlannedChange
	for _, c := range changes {
		if p.Contains(c.EffectiveDate) {
			out = append(out, c)
		}
	}
	return out
}
