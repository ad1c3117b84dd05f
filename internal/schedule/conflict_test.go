package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestHasConflictHalfOpen(t *testing.T) {
	existing := []Slot{{ID: "L1", Day: Monday, Start: mustClock(t, "09:00"), End: mustClock(t, "10:00")}}

	cases := []struct {
		name       string
		day        Weekday
		start, end string
		exclude    string
		want       bool
	}{
		{"ends when existing starts", Monday, "08:00", "09:00", "", false},
		{"starts when existing ends", Monday, "10:00", "11:00", "", false},
		{"overlaps the end", Monday, "09:30", "10:30", "", true},
		{"overlaps the start", Monday, "08:30", "09:30", "", true},
		{"contained", Monday, "09:15", "09:45", "", true},
		{"contains", Monday, "08:00", "11:00", "", true},
		{"identical", Monday, "09:00", "10:00", "", true},
		{"other day", Tuesday, "09:00", "10:00", "", false},
		{"excluded self", Monday, "09:00", "10:00", "L1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HasConflict(existing, tc.day, mustClock(t, tc.start), mustClock(t, tc.end), tc.exclude)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	for a := Clock(0); a < 6; a++ {
		for b := a + 1; b <= 6; b++ {
			for c := Clock(0); c < 6; c++ {
				for d := c + 1; d <= 6; d++ {
					assert.Equal(t, Overlaps(a, b, c, d), Overlaps(c, d, a, b))
				}
			}
		}
	}
}
