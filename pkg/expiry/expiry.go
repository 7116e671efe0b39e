// pkg/expiry/expiry.go
//
// End-of-day lifetime policy for agent key registrations. The policy is
// derived exactly once per invocation from a single clock snapshot; callers
// must not re-read the clock between cutoff resolution and registration.

package expiry

import (
	"regexp"
	"strconv"
	"time"

	cerr "github.com/cockroachdb/errors"
)

const (
	// EnvEndOfDay controls the daily cutoff. Unset means DefaultCutoff,
	// an empty value means no maximum lifetime, anything else must be a
	// valid HH:MM:SS wall-clock time.
	EnvEndOfDay = "AGENTKEY_EOD"

	// DefaultCutoff applies when EnvEndOfDay is unset.
	DefaultCutoff = "17:00:00"

	// fallbackSeconds is the fixed lifetime used when the cutoff has
	// already passed today. Deliberately not a rollover to tomorrow's
	// cutoff; a run after hours gets a short bounded registration.
	fallbackSeconds = 3 * 3600
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9]):([0-5][0-9])$`)

// TimeOfDay is a validated wall-clock time, re-anchored to "today" at
// evaluation time.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay validates and parses a strict HH:MM:SS value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayRe.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, cerr.Newf("invalid time of day %q: must be HH:MM:SS (00-23:00-59:00-59)", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

func (t TimeOfDay) String() string {
	pad := func(n int) string {
		s := strconv.Itoa(n)
		if len(s) == 1 {
			return "0" + s
		}
		return s
	}
	return pad(t.Hour) + ":" + pad(t.Minute) + ":" + pad(t.Second)
}

// Policy is the resolved registration lifetime: either unlimited or a
// positive number of whole seconds. Never persisted.
type Policy struct {
	Unlimited bool
	Seconds   int64
}

// Compute derives the lifetime policy from the cutoff and a single "now"
// snapshot. A nil cutoff means no maximum lifetime. When now is at or past
// today's cutoff (strict comparison, to the second) the fixed three-hour
// fallback applies.
func Compute(cutoff *TimeOfDay, now time.Time) Policy {
	if cutoff == nil {
		return Policy{Unlimited: true}
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		cutoff.Hour, cutoff.Minute, cutoff.Second, 0, now.Location())

	remaining := candidate.Unix() - now.Unix()
	if remaining > 0 {
		return Policy{Seconds: remaining}
	}
	return Policy{Seconds: fallbackSeconds}
}

// CutoffFromEnv resolves the configured cutoff using the given lookup
// (os.LookupEnv in production). The lookup distinguishes unset (default
// cutoff) from set-empty (unlimited, nil cutoff). A malformed value is a
// configuration error and must be fatal before any vault interaction.
func CutoffFromEnv(lookup func(string) (string, bool)) (*TimeOfDay, error) {
	value, ok := lookup(EnvEndOfDay)
	if !ok {
		value = DefaultCutoff
	} else if value == "" {
		return nil, nil
	}

	t, err := ParseTimeOfDay(value)
	if err != nil {
		return nil, cerr.Wrapf(err, "invalid %s", EnvEndOfDay)
	}
	return &t, nil
}

// Flag renders the policy as ssh-add arguments: nothing for unlimited,
// otherwise the lifetime flag that is prepended before pass-through args.
func (p Policy) Flag() []string {
	if p.Unlimited {
		return nil
	}
	return []string{"-t", strconv.FormatInt(p.Seconds, 10)}
}
