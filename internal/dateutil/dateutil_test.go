package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func TestIsOverdue(t *testing.T) {
	loc := tokyo(t)
	now := time.Date(2024, 1, 2, 15, 30, 0, 0, loc)

	cases := []struct {
		name     string
		deadline time.Time
		want     bool
	}{
		{"yesterday", time.Date(2024, 1, 1, 0, 0, 0, 0, loc), true},
		{"yesterday late evening", time.Date(2024, 1, 1, 23, 59, 0, 0, loc), true},
		{"today early", time.Date(2024, 1, 2, 0, 0, 0, 0, loc), false},
		{"today later than now", time.Date(2024, 1, 2, 23, 0, 0, 0, loc), false},
		{"tomorrow", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsOverdue(tc.deadline, now, loc))
		})
	}
}

func TestIsOverdueUsesLocationDay(t *testing.T) {
	loc := tokyo(t)
	// 2024-01-01 16:00 UTC is already 2024-01-02 01:00 in Tokyo, while the
	// deadline is still 2024-01-01 in both zones.
	now := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsOverdue(deadline, now, loc))
	assert.False(t, IsOverdue(deadline, now, time.UTC))
}

func TestCivilDateKeepsStoredDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	stored := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	got := CivilDate(stored, loc)

	assert.Equal(t, "2024-03-10", FormatDate(got))
	assert.Equal(t, loc, got.Location())
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 4, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, DaysBetween(a, b), DaysBetween(b, a))
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, 4, DaysBetween(a, b.Add(time.Hour)))
	assert.Equal(t, 0, DaysBetween(a, a.Add(11*time.Hour)))
	assert.Equal(t, 1, DaysBetween(a, a.Add(12*time.Hour)))
}

func TestDayKeyAndFormat(t *testing.T) {
	loc := tokyo(t)
	now := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-06-01", DayKey(now, loc))
	assert.Equal(t, "2024-05-31", FormatDate(now))
}
