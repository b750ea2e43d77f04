package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectParsesHourMinuteAndZone(t *testing.T) {
	sig, ok := Detect("You've hit your limit for today. It resets 3:15pm (America/New_York).")
	require.True(t, ok)
	assert.Equal(t, 15, sig.Hour)
	assert.Equal(t, 15, sig.Minute)
	assert.Equal(t, "America/New_York", sig.ZoneName)
}

func TestDetectTwelveHourConversion(t *testing.T) {
	cases := []struct {
		text   string
		hour   int
		minute int
	}{
		{"hit your limit, resets 12:00am (UTC)", 0, 0},
		{"hit your limit, resets 12:30pm (UTC)", 12, 30},
		{"hit your limit, resets 11:45pm (UTC)", 23, 45},
		{"hit your limit, resets 1am (UTC)", 1, 0},
		{"hit your limit, resets 9PM (UTC)", 21, 0},
	}

	for _, tc := range cases {
		sig, ok := Detect(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.hour, sig.Hour, tc.text)
		assert.Equal(t, tc.minute, sig.Minute, tc.text)
	}
}

func TestDetectMinuteDefaultsToZero(t *testing.T) {
	sig, ok := Detect("You've hit your limit. Your quota resets 6pm (Europe/Berlin).")
	require.True(t, ok)
	assert.Equal(t, 18, sig.Hour)
	assert.Equal(t, 0, sig.Minute)
}

func TestDetectSpansMultipleLines(t *testing.T) {
	text := "Sorry, you've hit your limit for this session.\n\nUsage resets 7:05am\n(Asia/Tokyo) tomorrow."
	sig, ok := Detect(text)
	require.True(t, ok)
	assert.Equal(t, 7, sig.Hour)
	assert.Equal(t, 5, sig.Minute)
	assert.Equal(t, "Asia/Tokyo", sig.ZoneName)
}

func TestDetectFirstMatchWins(t *testing.T) {
	text := "hit your limit, resets 2pm (UTC). Also: hit your limit, resets 9am (UTC)."
	sig, ok := Detect(text)
	require.True(t, ok)
	assert.Equal(t, 14, sig.Hour)
}

func TestDetectNoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"All 20 features are passing now.",
		"The request was rate limited by the upstream proxy.",
		"resets 3pm (UTC)", // no limit phrasing
	} {
		_, ok := Detect(text)
		assert.False(t, ok, text)
	}
}

func TestResumeAfterSameDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, loc)
	sig := Signal{Hour: 15, Minute: 15, ZoneName: "America/New_York"}

	resume := sig.ResumeAfter(now)
	assert.Equal(t, time.Date(2025, 6, 1, 15, 15, 0, 0, loc), resume)
	assert.True(t, resume.After(now))
}

func TestResumeAfterRollsForwardOneDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 16, 0, 0, 0, loc)
	sig := Signal{Hour: 15, Minute: 15, ZoneName: "America/New_York"}

	resume := sig.ResumeAfter(now)
	assert.Equal(t, time.Date(2025, 6, 2, 15, 15, 0, 0, loc), resume)
}

func TestResumeAfterExactInstantRollsForward(t *testing.T) {
	sig := Signal{Hour: 9, Minute: 0, ZoneName: "UTC"}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	// The resume instant must be strictly after now.
	resume := sig.ResumeAfter(now)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), resume)
}

func TestUnknownZoneFallsBackToLocal(t *testing.T) {
	sig, ok := Detect("hit your limit, resets 5pm (Mars/Olympus_Mons)")
	require.True(t, ok)
	assert.Equal(t, time.Local, sig.Location())

	// Still produces a usable instant.
	resume := sig.ResumeAfter(time.Now())
	assert.True(t, resume.After(time.Now().Add(-time.Minute)))
}

func TestDetectResume(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	resume, ok := DetectResume("hit your limit, resets 10:30am (UTC)", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), resume)

	_, ok = DetectResume("no quota message here", now)
	assert.False(t, ok)
}
