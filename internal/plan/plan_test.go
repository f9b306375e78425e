package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var riyadh = time.FixedZone("AST", 3*3600)

func kinds(t *testing.T, userID int64, now, validUntil time.Time, total time.Duration) []string {
	t.Helper()

	var out []string
	for _, r := range Reminders(userID, now, validUntil, total) {
		out = append(out, r.Kind)
	}
	return out
}

func TestReminders_DayBucket(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, riyadh)
	total := 30 * 24 * time.Hour
	validUntil := now.Add(total)

	got := kinds(t, 42, now, validUntil, total)

	assert.ElementsMatch(t, []string{"5_seconds", "7_days", "3_days", "1_days", "0_days"}, got)
}

func TestReminders_BucketBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, riyadh)

	// Exactly 1440 minutes selects the day bucket.
	total := 1440 * time.Minute
	got := kinds(t, 1, now, now.Add(total), total)
	assert.Contains(t, got, "0_days")
	assert.NotContains(t, got, "0_minutes")

	// One minute less selects the hour bucket.
	total = 1439 * time.Minute
	got = kinds(t, 1, now, now.Add(total), total)
	assert.ElementsMatch(t, []string{"5_seconds", "60_minutes", "30_minutes", "10_minutes", "0_minutes"}, got)
}

func TestReminders_ElapsedOffsetsDropped(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, riyadh)

	// A 2-day window: the 7- and 3-day marks are already in the past.
	total := 48 * time.Hour
	got := kinds(t, 1, now, now.Add(total), total)

	assert.ElementsMatch(t, []string{"5_seconds", "1_days", "0_days"}, got)
}

func TestReminders_OnlyFutureDueTimes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, riyadh)

	for _, total := range []time.Duration{
		3 * time.Second,
		90 * time.Second,
		3 * time.Minute,
		45 * time.Minute,
		2 * time.Hour,
		36 * time.Hour,
		10 * 24 * time.Hour,
	} {
		for _, r := range Reminders(1, now, now.Add(total), total) {
			assert.True(t, r.DueAt.After(now), "total %v produced past-due %s at %v", total, r.Kind, r.DueAt)
		}
	}
}

func TestReminders_ThreeMinuteGrant(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, riyadh)
	total := Total(0, 0, 3)
	validUntil := now.Add(total)

	got := Reminders(42, now, validUntil, total)

	byKind := make(map[string]time.Time, len(got))
	for _, r := range got {
		assert.Equal(t, int64(42), r.UserID)
		byKind[r.Kind] = r.DueAt
	}

	// The 10- and 5-minute marks were already in the past at grant time.
	assert.ElementsMatch(t, []string{"5_seconds", "2_minutes", "1_minutes", "0_minutes"}, kinds(t, 42, now, validUntil, total))

	require.Contains(t, byKind, "5_seconds")
	assert.Equal(t, validUntil.Add(-5*time.Second), byKind["5_seconds"])
	assert.Equal(t, validUntil, byKind["0_minutes"])
}

func TestReminders_ExtensionCrossesBucket(t *testing.T) {
	// Granted 20 hours originally, extended by 10: the total window is
	// now over a day, so the replan lands in the day bucket.
	validFrom := time.Date(2025, 3, 1, 0, 0, 0, 0, riyadh)
	now := validFrom.Add(19 * time.Hour)
	newValidUntil := validFrom.Add(30 * time.Hour)

	got := kinds(t, 7, now, newValidUntil, newValidUntil.Sub(validFrom))

	assert.ElementsMatch(t, []string{"5_seconds", "0_days"}, got)
}

func TestTotal(t *testing.T) {
	assert.Equal(t, 24*time.Hour, Total(1, 0, 0))
	assert.Equal(t, 26*time.Hour+30*time.Minute, Total(1, 2, 30))
	assert.Equal(t, 3*time.Minute, Total(0, 0, 3))
}

func TestMessage_KnownKinds(t *testing.T) {
	until := time.Date(2025, 3, 8, 18, 30, 0, 0, riyadh)

	msg, ok := Message("7_days", until)
	require.True(t, ok)
	assert.Equal(t, "Your subscription expires in 7 days, at 2025-03-08 06:30 PM.", msg)

	msg, ok = Message("1_days", until)
	require.True(t, ok)
	assert.Contains(t, msg, "in 1 day,")

	msg, ok = Message("5_seconds", until)
	require.True(t, ok)
	assert.Contains(t, msg, "in 5 seconds")

	msg, ok = Message("0_minutes", until)
	require.True(t, ok)
	assert.Contains(t, msg, "has expired")
}

func TestMessage_LegacyZeroFallback(t *testing.T) {
	until := time.Date(2025, 3, 8, 18, 30, 0, 0, riyadh)

	// A renamed zero-offset kind still resolves to the expiry template.
	msg, ok := Message("0_hours", until)
	require.True(t, ok)
	assert.Contains(t, msg, "has expired")

	// Anything else unknown is skipped, not errored.
	_, ok = Message("42_fortnights", until)
	assert.False(t, ok)
}
