package collections

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-04")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2026, time.January, 4), d)

	d, err = ParseDate("2026-01-04T23:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-04", d.String())

	_, err = ParseDate("04/01/2026")
	assert.Error(t, err)
}

func TestDate_AddDays(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2026-01-04", -3, "2026-01-01"},
		{"2026-01-01", -1, "2025-12-31"},
		{"2026-02-28", 1, "2026-03-01"},
		{"2028-02-28", 1, "2028-02-29"},
		{"2026-03-08", 0, "2026-03-08"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustParseDate(tt.from).AddDays(tt.n).String(), "%s %+d", tt.from, tt.n)
	}
}

func TestDate_ScanKeepsCalendarDay(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01-01", d.String())

	assert.Equal(t, "01/01/2026", d.Format("02/01/2006"))

	require.NoError(t, d.Scan(time.Date(2025, 12, 31, 21, 0, 0, 0, saoPaulo)))
	assert.Equal(t, "2025-12-31", d.String())

	require.NoError(t, d.Scan([]byte("2026-05-10")))
	assert.Equal(t, "2026-05-10", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestDate_Value(t *testing.T) {
	v, err := MustParseDate("2026-01-01").Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", v)

	v, err = Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDate_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Due Date `json:"due"`
	}{Due: MustParseDate("2026-01-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2026-01-01"}`, string(data))

	var out struct {
		Due Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2026-07-15"}`), &out))
	assert.Equal(t, NewDate(2026, time.July, 15), out.Due)
}

func TestDate_Before(t *testing.T) {
	assert.True(t, MustParseDate("2025-12-31").Before(MustParseDate("2026-01-01")))
	assert.False(t, MustParseDate("2026-01-01").Before(MustParseDate("2026-01-01")))
}

func TestDate_IndependentOfHostZone(t *testing.T) {
	original := time.Local
	t.Cleanup(func() { time.Local = original })

	f := newTestFormatter(t)
	for _, zone := range []string{"America/Sao_Paulo", "Pacific/Kiritimati", "Pacific/Pago_Pago"} {
		t.Run(zone, func(t *testing.T) {
			loc, err := time.LoadLocation(zone)
			require.NoError(t, err)
			time.Local = loc

			var d Date
			require.NoError(t, d.Scan(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
			assert.Equal(t, "01/01/2026", f.Date(d))

			parsed, err := ParseDate("2026-01-01")
			require.NoError(t, err)
			assert.Equal(t, "01/01/2026", f.Date(parsed))
			assert.Equal(t, "2025-12-29", parsed.AddDays(-3).String())

			rule := Rule{DayOffset: 3}
			assert.Equal(t, parsed, rule.TargetDate(MustParseDate("2026-01-04")))
		})
	}
}
