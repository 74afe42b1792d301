package thread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, m time.Month, d int) time.Time {
	return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		title string
		start time.Time
		end   time.Time
		ok    bool
	}{
		{title: "ROFR Thread January 2024 - March 2024", ok: true, start: day(2024, time.January, 1), end: day(2024, time.March, 31)},
		{title: "ROFR Thread Oct 2023 to Jan 2024", ok: true, start: day(2023, time.October, 1), end: day(2024, time.January, 31)},
		{title: "ROFR Thread April to June 2025", ok: true, start: day(2025, time.April, 1), end: day(2025, time.June, 30)},
		{title: "ROFR Thread: February - April 2024 *PLEASE SEE FIRST POST*", ok: true, start: day(2024, time.February, 1), end: day(2024, time.April, 30)},
		{title: "ROFR Thread Sept 2022", ok: true, start: day(2022, time.September, 1), end: day(2022, time.September, 30)},
		{title: "General ROFR discussion", ok: false},
		{title: "ROFR Thread 2024", ok: false},
		{title: "ROFR Thread March 2024 - January 2024", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			w, ok := ParseTitle(tt.title)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.start, w.Start)
			assert.Equal(t, tt.end, w.End)
		})
	}
}

func TestWindow_Admits(t *testing.T) {
	w := Window{Start: day(2024, time.April, 1), End: day(2024, time.June, 30)}

	assert.True(t, w.Admits(day(2024, time.May, 1)))
	assert.True(t, w.Admits(day(2024, time.January, 1)))
	assert.True(t, w.Admits(day(2024, time.June, 30)))
	assert.False(t, w.Admits(day(2023, time.December, 1)))
	assert.False(t, w.Admits(day(2024, time.July, 1)))
}

func TestWindow_Overlaps(t *testing.T) {
	w := Window{Start: day(2024, time.April, 1), End: day(2024, time.June, 30)}

	assert.True(t, w.Overlaps(day(2024, time.June, 1)))
	assert.True(t, w.Overlaps(day(2023, time.January, 1)))
	assert.False(t, w.Overlaps(day(2024, time.July, 1)))
}
