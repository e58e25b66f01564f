package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldsEqual(t *testing.T) {
	t.Parallel()
	utc := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "equal strings", a: "ACTIVE", b: "ACTIVE", want: true},
		{name: "different strings", a: "ACTIVE", b: "RENTED", want: false},
		{name: "same instant different zones", a: utc, b: utc.In(time.FixedZone("CEST", 2*3600)), want: true},
		{name: "time vs rfc3339 string", a: utc, b: "2026-08-01T10:30:00Z", want: true},
		{name: "time vs offset string", a: utc, b: "2026-08-01T12:30:00+02:00", want: true},
		{name: "time vs different instant", a: utc, b: "2026-08-01T10:30:01Z", want: false},
		{name: "time vs non-time string", a: utc, b: "not a date", want: false},
		{name: "int vs json float", a: 1200, b: 1200.0, want: true},
		{name: "int64 vs float mismatch", a: int64(1200), b: 1300.0, want: false},
		{name: "float vs string", a: 1200.0, b: "1200", want: false},
		{name: "bools", a: true, b: true, want: true},
		{name: "nested maps", a: map[string]any{"x": 1.0}, b: map[string]any{"x": 1.0}, want: true},
		{name: "nil both sides", a: nil, b: nil, want: true},
		{name: "nil one side", a: nil, b: "x", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, fieldsEqual(tt.a, tt.b))
		})
	}
}
