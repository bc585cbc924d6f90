package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"credit-line-service/internal/services/lending"
)

func TestAddMonths(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"plain", d(2026, 6, 15), 24, d(2028, 6, 15)},
		{"clamps to february", d(2026, 1, 31), 1, d(2026, 2, 28)},
		{"leap february", d(2027, 12, 31), 2, d(2028, 2, 29)},
		{"year rollover", d(2026, 11, 30), 3, d(2027, 2, 28)},
		{"zero", d(2026, 3, 31), 0, d(2026, 3, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lending.AddMonths(tt.start, tt.n))
		})
	}
}
