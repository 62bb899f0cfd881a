package timeh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAge(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		exp  string
	}{
		{name: "negative", in: -5 * time.Second, exp: "0s"},
		{name: "zero", in: 0, exp: "0s"},
		{name: "sub_second", in: 900 * time.Millisecond, exp: "0s"},
		{name: "seconds", in: 42 * time.Second, exp: "42s"},
		{name: "minutes_seconds", in: 12*time.Minute + 5*time.Second, exp: "12m 5s"},
		{name: "hours_drop_seconds", in: 2*time.Hour + 3*time.Minute + 4*time.Second, exp: "2h 3m"},
		{name: "exact_hour", in: time.Hour, exp: "1h"},
		{name: "gap_unit", in: time.Hour + 30*time.Second, exp: "1h"},
		{name: "days", in: 3*24*time.Hour + 4*time.Hour + 59*time.Minute, exp: "3d 4h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.exp, Age(tt.in))
		})
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.Equal(t, "---", Since(time.Time{}, now))
	require.Equal(t, "1d 2h", Since(now.Add(-26*time.Hour), now))
}
