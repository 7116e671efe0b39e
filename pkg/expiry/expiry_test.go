// pkg/expiry/expiry_test.go

package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFor(value string, set bool) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if key != EnvEndOfDay {
			return "", false
		}
		return value, set
	}
}

func localTime(hour, min, sec int) time.Time {
	return time.Date(2025, time.March, 14, hour, min, sec, 0, time.Local)
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	valid := map[string]TimeOfDay{
		"00:00:00": {0, 0, 0},
		"17:00:00": {17, 0, 0},
		"23:59:59": {23, 59, 59},
		"09:05:01": {9, 5, 1},
	}
	for input, want := range valid {
		got, err := ParseTimeOfDay(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
		assert.Equal(t, input, got.String())
	}

	invalid := []string{
		"25:00:00",
		"24:00:00",
		"17:60:00",
		"17:00:60",
		"abc",
		"",
		"17:00",
		"1:00:00",
		"17:00:00 ",
		"17-00-00",
	}
	for _, input := range invalid {
		_, err := ParseTimeOfDay(input)
		assert.Error(t, err, "expected %q to be rejected", input)
	}
}

func TestCutoffFromEnv(t *testing.T) {
	t.Parallel()

	t.Run("unset uses default cutoff", func(t *testing.T) {
		t.Parallel()
		cutoff, err := CutoffFromEnv(lookupFor("", false))
		require.NoError(t, err)
		require.NotNil(t, cutoff)
		assert.Equal(t, TimeOfDay{Hour: 17}, *cutoff)
	})

	t.Run("empty means unlimited", func(t *testing.T) {
		t.Parallel()
		cutoff, err := CutoffFromEnv(lookupFor("", true))
		require.NoError(t, err)
		assert.Nil(t, cutoff)
	})

	t.Run("explicit value", func(t *testing.T) {
		t.Parallel()
		cutoff, err := CutoffFromEnv(lookupFor("08:30:00", true))
		require.NoError(t, err)
		require.NotNil(t, cutoff)
		assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, *cutoff)
	})

	t.Run("malformed value is a configuration error", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"25:00:00", "17:60:00", "abc"} {
			_, err := CutoffFromEnv(lookupFor(bad, true))
			assert.Error(t, err, bad)
			assert.Contains(t, err.Error(), EnvEndOfDay)
		}
	})
}

func TestCompute(t *testing.T) {
	t.Parallel()

	defaultCutoff := &TimeOfDay{Hour: 17}

	tests := []struct {
		name   string
		cutoff *TimeOfDay
		now    time.Time
		want   Policy
	}{
		{
			name:   "morning run gets time until default cutoff",
			cutoff: defaultCutoff,
			now:    localTime(10, 0, 0),
			want:   Policy{Seconds: 7 * 3600},
		},
		{
			name:   "evening run gets three hour fallback",
			cutoff: defaultCutoff,
			now:    localTime(20, 0, 0),
			want:   Policy{Seconds: 10800},
		},
		{
			name:   "exactly at cutoff second uses fallback",
			cutoff: defaultCutoff,
			now:    localTime(17, 0, 0),
			want:   Policy{Seconds: 10800},
		},
		{
			name:   "one second before cutoff",
			cutoff: defaultCutoff,
			now:    localTime(16, 59, 59),
			want:   Policy{Seconds: 1},
		},
		{
			name:   "custom cutoff to the second",
			cutoff: &TimeOfDay{Hour: 12, Minute: 34, Second: 56},
			now:    localTime(9, 4, 6),
			want:   Policy{Seconds: 3*3600 + 30*60 + 50},
		},
		{
			name:   "nil cutoff is unlimited",
			cutoff: nil,
			now:    localTime(10, 0, 0),
			want:   Policy{Unlimited: true},
		},
		{
			name:   "late night does not roll to tomorrow",
			cutoff: defaultCutoff,
			now:    localTime(23, 59, 59),
			want:   Policy{Seconds: 10800},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Compute(tt.cutoff, tt.now))
		})
	}
}

func TestComputeWholeSeconds(t *testing.T) {
	t.Parallel()

	// Sub-second offsets must not leak into the result; arithmetic is on
	// epoch seconds from the single snapshot.
	now := localTime(10, 0, 0).Add(750 * time.Millisecond)
	got := Compute(&TimeOfDay{Hour: 17}, now)
	assert.Equal(t, Policy{Seconds: 7 * 3600}, got)
}

func TestPolicyFlag(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Policy{Unlimited: true}.Flag())
	assert.Equal(t, []string{"-t", "25200"}, Policy{Seconds: 25200}.Flag())
	assert.Equal(t, []string{"-t", "10800"}, Policy{Seconds: 10800}.Flag())
}
