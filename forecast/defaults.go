package forecast

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultWorkCodes are the codes every installation starts with.
func DefaultWorkCodes() []WorkCode {
	return []WorkCode{
		{Code: WorkTime, Description: "Regular work time"},
		{Code: ProjectTime, Description: "Time spent on projects"},
	}
}

var defaultWeeks = [12]string{"4.0", "4.0", "4.33", "4.0", "4.33", "4.33", "4.0", "4.33", "4.0", "4.33", "4.33", "4.0"}

// DefaultWeeks is the standard-weeks table a new year starts from.
func DefaultWeeks(year int) []WeeksEntry {
	entries := make([]WeeksEntry, 12)
	for i, w := range defaultWeeks {
		entries[i] = WeeksEntry{Year: year, Month: i + 1, Weeks: decimal.RequireFromString(w)}
	}
	return entries
}

// SeedWeeks stores DefaultWeeks for year if the year has no entries yet.
// Reports whether it wrote anything.
func SeedWeeks(ctx context.Context, store CalendarStore, year int) (bool, error) {
	existing, err := store.Weeks(ctx, year)
	if err != nil {
		return false, fmt.Errorf("load weeks %d: %w", year, err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	if err := store.SaveWeeks(ctx, year, DefaultWeeks(year)); err != nil {
		return false, fmt.Errorf("seed weeks %d: %w", year, err)
	}
	return true, nil
}
