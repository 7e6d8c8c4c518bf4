package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
	}{
		{"08:00", At(8, 0, 0)},
		{"18:00:30", At(18, 0, 30)},
		{" 00:00 ", Midnight},
		{"23:59:59", EndOfDay},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "8", "24:00", "12:60", "aa:bb", "1:2:3:4"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "08:12:00", At(8, 12, 0).String())
	assert.Equal(t, "-00:00:05", TimeOfDay(-5).String())
	assert.Equal(t, "25:00:00", At(25, 0, 0).String())
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: At(8, 0, 0), End: At(18, 0, 0)}
	assert.True(t, w.Contains(At(8, 0, 0)))
	assert.True(t, w.Contains(At(18, 0, 0)))
	assert.False(t, w.Contains(At(7, 59, 59)))
	assert.False(t, w.Contains(At(18, 0, 1)))
	assert.True(t, w.Valid())
	assert.False(t, Window{Start: 10, End: 5}.Valid())
}

func TestMaxMinTime(t *testing.T) {
	assert.Equal(t, TimeOfDay(9), MaxTime(3, 9, 5))
	assert.Equal(t, TimeOfDay(3), MinTime(3, 9, 5))
}

func TestTimeOfDay_TextRoundTrip(t *testing.T) {
	b, err := At(8, 12, 5).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "08:12:05", string(b))

	var got TimeOfDay
	require.NoError(t, got.UnmarshalText([]byte("08:12")))
	assert.Equal(t, At(8, 12, 0), got)
	assert.Error(t, got.UnmarshalText([]byte("8h")))
}

func TestTimeOfDay_TextRoundTripPastMidnight(t *testing.T) {
	for _, want := range []TimeOfDay{EndOfDay + 1, At(23, 50, 0).Add(1200), At(49, 0, 1)} {
		b, err := want.MarshalText()
		require.NoError(t, err)

		var got TimeOfDay
		require.NoError(t, got.UnmarshalText(b), "decode %s", b)
		assert.Equal(t, want, got)
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("24:10:00")
	require.NoError(t, err)
	assert.Equal(t, At(24, 10, 0), got)

	_, err = ParseTimeOfDay("24:10:00")
	assert.Error(t, err, "wall-clock parsing stays within one day")

	for _, in := range []string{"24:60", "-1:00", "x:00"} {
		_, err := ParseClock(in)
		assert.Error(t, err, "input %q", in)
	}
}
