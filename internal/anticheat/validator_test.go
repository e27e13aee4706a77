package anticheat

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mint-game-backend/internal/model"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newSession returns a session started at baseTime from a desktop client
// whose clock agrees with the server's.
func newSession() *model.GameSession {
	return &model.GameSession{
		Address:         "0xabc",
		GameStartTime:   baseTime,
		ClientStartTime: baseTime.Format(time.RFC3339Nano),
		LastUpdate:      baseTime,
		IPAddress:       "203.0.113.7",
		UserAgent:       desktopUA,
	}
}

// newValidator returns a validator whose clock is pinned to now.
func newValidator(now time.Time) *Validator {
	return New(nil, nil, func() time.Time { return now })
}

// submission builds a clean end-state for a session ending at end.
func submission(score float64, end time.Time) Submission {
	return Submission{
		Score:         score,
		ClientEndTime: end.Format(time.RFC3339Nano),
		ServerEndTime: end,
		IPAddress:     "203.0.113.7",
		UserAgent:     desktopUA,
	}
}

func TestValidate_CleanSession(t *testing.T) {
	end := baseTime.Add(5 * time.Minute)
	v := newValidator(end)

	verdict := v.Validate(newSession(), submission(300, end))
	require.True(t, verdict.IsValid)
	assert.Empty(t, verdict.RejectionReason)
	assert.Equal(t, model.ValidationValid, verdict.Result())
}

func TestValidate_ScoreSanity(t *testing.T) {
	end := baseTime.Add(5 * time.Minute)
	v := newValidator(end)

	for _, score := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		verdict := v.Validate(newSession(), submission(score, end))
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonInvalidScore, verdict.RejectionReason)
	}
}

func TestValidate_ChronologicalOrder(t *testing.T) {
	// Server end before the recorded start
	end := baseTime.Add(-1 * time.Second)
	v := newValidator(baseTime)

	verdict := v.Validate(newSession(), submission(100, end))
	require.False(t, verdict.IsValid)
	assert.Equal(t, model.ReasonNotChronological, verdict.RejectionReason)
}

func TestValidate_FutureTimestamps(t *testing.T) {
	end := baseTime.Add(5 * time.Minute)
	v := newValidator(end)

	t.Run("client end in the future", func(t *testing.T) {
		sub := submission(300, end)
		sub.ClientEndTime = end.Add(time.Minute).Format(time.RFC3339Nano)
		verdict := v.Validate(newSession(), sub)
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonMissingTimeData, verdict.RejectionReason)
	})

	t.Run("server end in the future", func(t *testing.T) {
		// Clock pinned before the reported server end
		late := newValidator(end.Add(-time.Minute))
		verdict := late.Validate(newSession(), submission(300, end))
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonMissingTimeData, verdict.RejectionReason)
	})

	t.Run("within skew tolerance", func(t *testing.T) {
		sub := submission(300, end)
		sub.ClientEndTime = end.Add(5 * time.Second).Format(time.RFC3339Nano)
		verdict := v.Validate(newSession(), sub)
		assert.True(t, verdict.IsValid)
	})

	t.Run("unparsable client end", func(t *testing.T) {
		sub := submission(300, end)
		sub.ClientEndTime = "not a timestamp"
		verdict := v.Validate(newSession(), sub)
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonMissingTimeData, verdict.RejectionReason)
	})
}

func TestValidate_DurationCap(t *testing.T) {
	t.Run("35 minutes rejected regardless of score", func(t *testing.T) {
		end := baseTime.Add(35 * time.Minute)
		v := newValidator(end)
		// 2100 points over 35 minutes would sit inside the envelope
		verdict := v.Validate(newSession(), submission(2100, end))
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonDurationTooLong, verdict.RejectionReason)
	})

	t.Run("exactly 30 minutes accepted", func(t *testing.T) {
		end := baseTime.Add(30 * time.Minute)
		v := newValidator(end)
		verdict := v.Validate(newSession(), submission(1800, end))
		assert.True(t, verdict.IsValid)
	})

	t.Run("one second past the cap rejected", func(t *testing.T) {
		end := baseTime.Add(30*time.Minute + time.Second)
		v := newValidator(end)
		verdict := v.Validate(newSession(), submission(1800, end))
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonDurationTooLong, verdict.RejectionReason)
	})
}

func TestValidate_NetworkDelay(t *testing.T) {
	end := baseTime.Add(5 * time.Minute)

	t.Run("compounded skew past tolerance", func(t *testing.T) {
		v := newValidator(end)
		// Client clock 1s behind at start and a 40s shortfall at end:
		// client elapsed ends up 41s short of server elapsed.
		session := newSession()
		session.ClientStartTime = baseTime.Add(time.Second).Format(time.RFC3339Nano)
		sub := submission(300, end)
		sub.ClientEndTime = end.Add(-40 * time.Second).Format(time.RFC3339Nano)

		verdict := v.Validate(session, sub)
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonNetworkMismatch, verdict.RejectionReason)
	})

	t.Run("drift inside tolerance", func(t *testing.T) {
		v := newValidator(end)
		sub := submission(300, end)
		sub.ClientEndTime = end.Add(-30 * time.Second).Format(time.RFC3339Nano)
		verdict := v.Validate(newSession(), sub)
		assert.True(t, verdict.IsValid)
	})

	t.Run("legacy session without client start skips the check", func(t *testing.T) {
		v := newValidator(end)
		session := newSession()
		session.ClientStartTime = ""
		sub := submission(300, end)
		sub.ClientEndTime = end.Add(-5 * time.Minute).Format(time.RFC3339Nano)
		verdict := v.Validate(session, sub)
		assert.True(t, verdict.IsValid)
	})
}

func TestValidate_DeviceConsistency(t *testing.T) {
	end := baseTime.Add(5 * time.Minute)
	v := newValidator(end)

	t.Run("user agent mismatch", func(t *testing.T) {
		sub := submission(300, end)
		sub.UserAgent = mobileUA
		verdict := v.Validate(newSession(), sub)
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonUserAgentChange, verdict.RejectionReason)
	})

	t.Run("desktop IP change rejected", func(t *testing.T) {
		sub := submission(300, end)
		sub.IPAddress = "198.51.100.2"
		verdict := v.Validate(newSession(), sub)
		require.False(t, verdict.IsValid)
		assert.Equal(t, model.ReasonSuspiciousIP, verdict.RejectionReason)
	})

	t.Run("mobile IP change tolerated", func(t *testing.T) {
		session := newSession()
		session.UserAgent = mobileUA
		sub := submission(300, end)
		sub.UserAgent = mobileUA
		sub.IPAddress = "198.51.100.2"
		verdict := v.Validate(session, sub)
		assert.True(t, verdict.IsValid)
	})
}

func TestValidate_ScoreEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    time.Duration
		score      float64
		wantValid  bool
		wantReason string
	}{
		{"5 minute game at 300", 5 * time.Minute, 300, true, ""},
		{"10 minute game at 600", 10 * time.Minute, 600, true, ""},
		{"score too low", 5 * time.Minute, 10, false, model.ReasonScoreTooLow},
		{"score too high", 5 * time.Minute, 10000, false, model.ReasonScoreTooHigh},
		{"lower bound inclusive", 5 * time.Minute, 30, true, ""},
		{"upper bound inclusive", 5 * time.Minute, 600, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := baseTime.Add(tt.elapsed)
			v := newValidator(end)
			verdict := v.Validate(newSession(), submission(tt.score, end))
			assert.Equal(t, tt.wantValid, verdict.IsValid)
			assert.Equal(t, tt.wantReason, verdict.RejectionReason)
		})
	}
}

// TestValidate_ShortCircuitOrder checks that the first failing check wins
// when several would fail.
func TestValidate_ShortCircuitOrder(t *testing.T) {
	end := baseTime.Add(5 * time.Minute)
	v := newValidator(end)

	// User agent mismatch AND implausible score: device check runs first.
	sub := submission(10, end)
	sub.UserAgent = mobileUA
	verdict := v.Validate(newSession(), sub)
	require.False(t, verdict.IsValid)
	assert.Equal(t, model.ReasonUserAgentChange, verdict.RejectionReason)

	// Non-finite score beats everything else.
	sub = submission(math.NaN(), baseTime.Add(-time.Hour))
	sub.UserAgent = mobileUA
	verdict = v.Validate(newSession(), sub)
	assert.Equal(t, model.ReasonInvalidScore, verdict.RejectionReason)
}

func TestParseClientTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", "2025-06-01T12:00:00Z", baseTime, false},
		{"rfc3339 with nanos", "2025-06-01T12:00:00.5Z", baseTime.Add(500 * time.Millisecond), false},
		{"unix millis", "1748779200000", time.UnixMilli(1748779200000), false},
		{"empty", "", time.Time{}, true},
		{"unknown sentinel", "unknown", time.Time{}, true},
		{"garbage", "yesterday-ish", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestIsMobileUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want bool
	}{
		{"iphone", mobileUA, true},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Mobile Safari/537.36", true},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15", true},
		{"windows desktop", desktopUA, false},
		{"mac desktop", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Safari/605.1.15", false},
		{"empty", "", false},
		{"unknown sentinel", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMobileUserAgent(tt.ua))
		})
	}
}
