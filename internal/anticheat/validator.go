// Package anticheat implements the heuristic validator that decides whether
// a client-reported score is plausible. The validator is pure: no I/O, no
// mutation, deterministic given its inputs apart from the single "now"
// comparison used by the future-timestamp check.
package anticheat

import (
	"math"
	"strconv"
	"strings"
	"time"

	"mint-game-backend/internal/model"
)

// Config holds the validator tolerances.
type Config struct {
	// MaxSessionDuration is an exclusive cap: elapsing exactly this long is
	// acceptable, anything longer is rejected. The game's mechanics make
	// longer sessions implausible regardless of score, and the cap bounds
	// the envelope computation.
	MaxSessionDuration time.Duration

	// NetworkDelayTolerance bounds |clientElapsed - serverElapsed|. The two
	// clocks should drift only by network latency plus scheduling jitter; a
	// larger gap means a tampered client clock or a paused session.
	NetworkDelayTolerance time.Duration

	// ClockSkewTolerance is how far a reported timestamp may sit in the
	// future of the server clock before it is treated as tampered.
	ClockSkewTolerance time.Duration
}

// DefaultConfig returns the production tolerances.
func DefaultConfig() *Config {
	return &Config{
		MaxSessionDuration:    30 * time.Minute,
		NetworkDelayTolerance: 35 * time.Second,
		ClockSkewTolerance:    10 * time.Second,
	}
}

// Submission is the proposed end-state for a session under validation.
type Submission struct {
	Score         float64
	ClientEndTime string
	ServerEndTime time.Time
	IPAddress     string
	UserAgent     string
}

// Validator turns a session plus a proposed end-state into a verdict.
type Validator struct {
	cfg *Config
	env Envelope
	now func() time.Time
}

// New creates a Validator. A nil config uses DefaultConfig, a nil envelope
// uses DefaultEnvelope, a nil clock uses time.Now.
func New(cfg *Config, env Envelope, now func() time.Time) *Validator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if env == nil {
		env = DefaultEnvelope()
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{cfg: cfg, env: env, now: now}
}

// Validate runs the checks in order and returns the first failure, or the
// passing verdict when every check holds.
func (v *Validator) Validate(session *model.GameSession, sub Submission) model.Verdict {
	// 1. Score sanity
	if math.IsNaN(sub.Score) || math.IsInf(sub.Score, 0) {
		return model.Reject(model.ReasonInvalidScore)
	}

	// 2. Chronological order
	if session.GameStartTime.After(sub.ServerEndTime) {
		return model.Reject(model.ReasonNotChronological)
	}

	// 3. No future timestamps
	clientEnd, err := ParseClientTime(sub.ClientEndTime)
	if err != nil {
		return model.Reject(model.ReasonMissingTimeData)
	}
	horizon := v.now().Add(v.cfg.ClockSkewTolerance)
	if clientEnd.After(horizon) || sub.ServerEndTime.After(horizon) {
		return model.Reject(model.ReasonMissingTimeData)
	}

	// 4. Session duration ceiling (exclusive cap)
	serverElapsed := sub.ServerEndTime.Sub(session.GameStartTime)
	if serverElapsed > v.cfg.MaxSessionDuration {
		return model.Reject(model.ReasonDurationTooLong)
	}

	// 5. Network-latency consistency. Sessions predating the client-clock
	// fields have no usable client start time; the remaining checks still
	// apply to them.
	if clientStart, err := ParseClientTime(session.ClientStartTime); err == nil {
		clientElapsed := clientEnd.Sub(clientStart)
		drift := clientElapsed - serverElapsed
		if drift < 0 {
			drift = -drift
		}
		if drift > v.cfg.NetworkDelayTolerance {
			return model.Reject(model.ReasonNetworkMismatch)
		}
	}

	// 6. Device/IP consistency. The user agent must match exactly; an IP
	// change is tolerated only for mobile-class devices.
	if sub.UserAgent != session.UserAgent {
		return model.Reject(model.ReasonUserAgentChange)
	}
	if sub.IPAddress != session.IPAddress && !IsMobileUserAgent(session.UserAgent) {
		return model.Reject(model.ReasonSuspiciousIP)
	}

	// 7. Score plausibility envelope
	minScore, maxScore := v.env.Bounds(serverElapsed)
	if sub.Score < minScore {
		return model.Reject(model.ReasonScoreTooLow)
	}
	if sub.Score > maxScore {
		return model.Reject(model.ReasonScoreTooHigh)
	}

	return model.Accept()
}

// ParseClientTime parses a client-reported timestamp. Clients send either an
// RFC 3339 string or unix milliseconds; both are untrusted and stored as
// opaque text until validation.
func ParseClientTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == model.UnknownSentinel {
		return time.Time{}, strconv.ErrSyntax
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
