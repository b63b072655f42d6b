package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target time.Time
		want   Remaining
	}{
		{
			name:   "target equals now",
			target: now,
			want:   Remaining{IsOver: true},
		},
		{
			name:   "target in the past",
			target: now.Add(-90 * time.Minute),
			want:   Remaining{IsOver: true},
		},
		{
			name:   "one second left",
			target: now.Add(time.Second),
			want:   Remaining{Seconds: 1},
		},
		{
			name:   "sub-second remainder is dropped",
			target: now.Add(1500 * time.Millisecond),
			want:   Remaining{Seconds: 1},
		},
		{
			name:   "only milliseconds left is not over",
			target: now.Add(400 * time.Millisecond),
			want:   Remaining{},
		},
		{
			name:   "mixed units",
			target: now.Add(3*24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second),
			want:   Remaining{Days: 3, Hours: 4, Minutes: 5, Seconds: 6},
		},
		{
			name:   "exact day boundary",
			target: now.Add(48 * time.Hour),
			want:   Remaining{Days: 2},
		},
		{
			name:   "hours wrap at 24",
			target: now.Add(23*time.Hour + 59*time.Minute + 59*time.Second),
			want:   Remaining{Hours: 23, Minutes: 59, Seconds: 59},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Until(tt.target, now))
		})
	}
}

func TestUntil_ReconstructsDuration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range []time.Duration{
		time.Second,
		59 * time.Second,
		time.Hour + 250*time.Millisecond,
		17*24*time.Hour + 13*time.Hour + 7*time.Minute + 999*time.Millisecond,
		400 * 24 * time.Hour,
	} {
		r := Until(now.Add(d), now)

		assert.False(t, r.IsOver, d.String())
		assert.LessOrEqual(t, r.Duration(), d, d.String())
		assert.Less(t, d-r.Duration(), time.Second, d.String())
		assert.Less(t, r.Hours, 24)
		assert.Less(t, r.Minutes, 60)
		assert.Less(t, r.Seconds, 60)
	}
}
