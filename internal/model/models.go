// Package model defines the data models for the mint game backend.
package model

import (
	"math"
	"time"
)

// Validation results for a scored game session.
const (
	ValidationValid   = "VALID"
	ValidationInvalid = "INVALID"
)

// UnknownSentinel is stored in place of request metadata that could not be
// captured (missing proxy headers, sessions predating the fields).
const UnknownSentinel = "unknown"

// Rejection reasons produced by the anti-cheat validator. These are part of
// the API surface: clients and the ops dashboard key off the exact strings.
const (
	ReasonInvalidScore     = "invalid score value"
	ReasonNotChronological = "time data is not chronological"
	ReasonMissingTimeData  = "missing time data"
	ReasonDurationTooLong  = "session duration is too long"
	ReasonNetworkMismatch  = "network delay mismatch"
	ReasonUserAgentChange  = "user agent mismatch"
	ReasonSuspiciousIP     = "suspicious IP change"
	ReasonScoreTooLow      = "score too low"
	ReasonScoreTooHigh     = "score too high"
)

// GameSession tracks one player's single attempt at the game, keyed by
// wallet address. A session with a score is terminal: it blocks new sessions
// for the same address and, once validated, is immutable.
type GameSession struct {
	Address          string     `db:"address"`
	GameStartTime    time.Time  `db:"game_start_time"`
	ClientStartTime  string     `db:"client_start_time"`
	GameEndTime      *time.Time `db:"game_end_time"`
	ClientEndTime    *string    `db:"client_end_time"`
	Score            *float64   `db:"score"`
	LastUpdate       time.Time  `db:"last_update"`
	ValidationResult *string    `db:"validation_result"`
	RejectionReason  *string    `db:"rejection_reason"`
	IPAddress        string     `db:"ip_address"`
	UserAgent        string     `db:"user_agent"`
}

// HasScore reports whether the session carries a usable (finite) score.
func (s *GameSession) HasScore() bool {
	return s.Score != nil && !math.IsNaN(*s.Score) && !math.IsInf(*s.Score, 0)
}

// IsValidated reports whether a verdict has been written.
func (s *GameSession) IsValidated() bool {
	return s.ValidationResult != nil && *s.ValidationResult != ""
}

// Verdict is the anti-cheat engine's accept/reject decision. RejectionReason
// is set only when IsValid is false.
type Verdict struct {
	IsValid         bool
	RejectionReason string
}

// Accept returns the passing verdict.
func Accept() Verdict {
	return Verdict{IsValid: true}
}

// Reject returns a failing verdict with a machine-readable reason.
func Reject(reason string) Verdict {
	return Verdict{IsValid: false, RejectionReason: reason}
}

// Result returns the validation result string for this verdict.
func (v Verdict) Result() string {
	if v.IsValid {
		return ValidationValid
	}
	return ValidationInvalid
}

// RequestInfo carries the client metadata captured from an inbound request.
// Values are opaque strings sourced from proxy headers upstream; absent
// values are the UnknownSentinel.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// Normalized returns a copy with empty fields replaced by the sentinel.
func (r RequestInfo) Normalized() RequestInfo {
	if r.IPAddress == "" {
		r.IPAddress = UnknownSentinel
	}
	if r.UserAgent == "" {
		r.UserAgent = UnknownSentinel
	}
	return r
}

// SessionStats is the aggregate view over all sessions.
type SessionStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Invalid   int64 `json:"invalid"`
}
