package timeh

import (
	"fmt"
	"time"
)

// Age renders d with its two most significant units, e.g. "3d 4h" or "12m 5s".
// Durations below one second are "0s". Negative durations are treated as zero.
func Age(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}

	units := []struct {
		size   time.Duration
		suffix string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}

	var res string
	parts := 0
	for _, u := range units {
		n := d / u.size
		if n == 0 {
			if parts > 0 {
				break
			}

			continue
		}

		d -= n * u.size
		if res != "" {
			res += " "
		}
		res += fmt.Sprintf("%d%s", n, u.suffix)

		parts++
		if parts == 2 {
			break
		}
	}

	return res
}

// Since is Age of the time elapsed from t. A zero t is unknown.
func Since(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "---"
	}

	return Age(now.Sub(t))
}
