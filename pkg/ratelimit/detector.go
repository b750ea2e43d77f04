// Package ratelimit extracts a quota-reset instant from the free-text
// message the agent emits when a usage window is exhausted.
//
// The message is an inherently fragile external signal, so detection is
// a pure function returning an optional result: callers fall back to a
// fixed sleep when nothing parses. Parse failure is never an error.
package ratelimit

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// resetPattern matches phrasing like "hit your limit ... resets 4:30pm
// (America/Chicago)". The minute component is optional and the am/pm
// marker is case-insensitive; the pattern may span multiple lines.
var resetPattern = regexp.MustCompile(
	`(?is)hit your limit.*?resets\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)\s*\(([^)]+)\)`,
)

// Signal is the parsed reset time: a wall-clock hour and minute in a
// named time zone. Hour is already converted to 24-hour form.
type Signal struct {
	Hour     int
	Minute   int
	ZoneName string
}

// Detect scans text for a quota-reset message. Only the first match is
// used. Returns ok=false when no reset phrasing is present.
func Detect(text string) (Signal, bool) {
	m := resetPattern.FindStringSubmatch(text)
	if m == nil {
		return Signal{}, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return Signal{}, false
	}

	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return Signal{}, false
		}
	}

	// 12-hour to 24-hour: 12am is midnight, pm adds twelve except for
	// 12pm itself.
	if hour == 12 {
		hour = 0
	}
	if strings.EqualFold(m[3], "pm") {
		hour += 12
	}

	return Signal{Hour: hour, Minute: minute, ZoneName: m[4]}, true
}

// Location resolves the signal's zone name. An unrecognized name falls
// back to the process's local zone rather than failing; the reset time
// is a hint, not a contract.
func (s Signal) Location() *time.Location {
	loc, err := time.LoadLocation(s.ZoneName)
	if err != nil {
		return time.Local
	}
	return loc
}

// ResumeAfter computes the next occurrence of the signal's wall-clock
// time strictly after now. If today's instant has already passed, the
// result is tomorrow's.
func (s Signal) ResumeAfter(now time.Time) time.Time {
	loc := s.Location()
	local := now.In(loc)

	resume := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !resume.After(local) {
		resume = resume.AddDate(0, 0, 1)
	}
	return resume
}

// DetectResume combines Detect and ResumeAfter. The returned instant is
// a lower bound; callers add their own safety buffer before sleeping.
func DetectResume(text string, now time.Time) (time.Time, bool) {
	sig, ok := Detect(text)
	if !ok {
		return time.Time{}, false
	}
	return sig.ResumeAfter(now), true
}
