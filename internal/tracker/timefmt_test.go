package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	timestamp := time.Date(2023, time.November, 14, 22, 13, 20, 0, time.Local).Unix()
	assert.Equal(t, "2023-11-14 22:13:20", FormatTimestamp(timestamp))
}

func TestRelativeTimestamp(t *testing.T) {
	now := time.Date(2023, time.November, 14, 12, 0, 0, 0, time.Local)

	cases := []struct {
		name     string
		then     time.Time
		use24    bool
		expected string
	}{
		{"Today24Hour", now.Add(-3 * time.Hour), true, "09:00"},
		{"Today12Hour", now.Add(2 * time.Hour), false, "2:00 pm"},
		{"Yesterday", now.AddDate(0, 0, -1), true, "Yesterday"},
		{"EarlierThisYear", time.Date(2023, time.March, 5, 8, 0, 0, 0, time.Local), true, "Mar 5"},
		{"PreviousYears", time.Date(2021, time.June, 30, 8, 0, 0, 0, time.Local), true, "30/06/21"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RelativeTimestamp(tc.then.Unix(), tc.use24, now))
		})
	}
}
