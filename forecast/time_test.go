package forecast_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/headcount-forecast/forecast"
)

func TestMonthSpan_Threshold(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  string
		days  int
	}{
		{2024, time.January, "2024-01-14", 31},
		{2024, time.February, "2024-02-14", 29},
		{2023, time.February, "2023-02-14", 28},
		{2024, time.April, "2024-04-14", 30},
	}
	for _, tt := range tests {
		span := forecast.SpanOf(tt.year, tt.month)
		assert.Equal(t, tt.want, span.Threshold().String())
		assert.Equal(t, tt.days, span.Days())
	}
}

func TestActiveRatio(t *testing.T) {
	jan := forecast.SpanOf(2024, time.January)

	tests := []struct {
		name  string
		start forecast.Date
		end   *forecast.Date
		want  string
	}{
		{"active all month", d(2023, time.May, 1), nil, "1"},
		{"starts after month", d(2024, time.February, 1), nil, "0"},
		{"ended before month", d(2020, time.May, 1), dp(2023, time.December, 31), "0"},
		{"starts on first day", d(2024, time.January, 1), nil, "1"},
		{"starts on threshold", d(2024, time.January, 14), nil, "0.5806451612903226"}, // 18/31
		{"starts after threshold", d(2024, time.January, 15), nil, "1"},
		{"ends on threshold", d(2023, time.May, 1), dp(2024, time.January, 14), "0.4516129032258065"}, // 14/31
		{"ends after threshold", d(2023, time.May, 1), dp(2024, time.January, 31), "1"},
		{"starts and ends before threshold", d(2024, time.January, 3), dp(2024, time.January, 12), "0.3225806451612903"}, // 10/31
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := forecast.ActiveRatio(tt.start, tt.end, jan)
			assert.True(t, got.Equal(dec(tt.want)), "want %s, got %s", tt.want, got)
		})
	}
}

func TestMonths_CalendarOrder(t *testing.T) {
	spans := forecast.Months(2024)
	require.Len(t, spans, 12)
	assert.Equal(t, "2024-01-01", spans[0].Start.String())
	assert.Equal(t, "2024-02-29", spans[1].End.String())
	assert.Equal(t, "2024-12-31", spans[11].End.String())
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Start forecast.Date  `json:"start"`
		End   *forecast.Date `json:"end"`
	}

	in := wrapper{Start: d(2024, time.March, 5)}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-03-05","end":null}`, string(b))

	var out wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-07-01","end":"2024-12-31"}`), &out))
	assert.True(t, out.Start.Equal(d(2024, time.July, 1)))
	require.NotNil(t, out.End)
	assert.Equal(t, "2024-12-31", out.End.String())

	err = json.Unmarshal([]byte(`{"start":"07/01/2024"}`), &out)
	assert.Error(t, err)
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "Jan", forecast.MonthName(1))
	assert.Equal(t, "Dec", forecast.MonthName(12))
	assert.Equal(t, "", forecast.MonthName(13))
}
