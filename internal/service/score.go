// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mint-game-backend/internal/anticheat"
	"mint-game-backend/internal/model"
	"mint-game-backend/internal/pkg/lock"
	"mint-game-backend/internal/repository"
	"mint-game-backend/internal/tier"
)

// Pipeline failure messages returned to clients. These are stable strings:
// the web client matches on them.
const (
	MsgNoSession            = "No game session found for this address"
	MsgNoScore              = "No score found for this address"
	MsgScoreUpdateFailed    = "Failed to update game session with score data"
	MsgValidationSaveFailed = "Failed to save validation result"
)

// ErrNoScore is returned by Revalidate when the address has no scored
// session to validate.
var ErrNoScore = errors.New("no score found for address")

// SessionStore is the persistence contract the orchestrator depends on.
// Implemented by repository.SessionRepository; tests substitute a fake.
type SessionStore interface {
	Create(ctx context.Context, address string, clientStartTime string, req model.RequestInfo) (time.Time, error)
	Get(ctx context.Context, address string) (*model.GameSession, error)
	UpdateScore(ctx context.Context, address string, score float64, gameEndTime time.Time, clientEndTime string) (*model.GameSession, error)
	SaveValidation(ctx context.Context, address string, validationResult string, rejectionReason *string) (*model.GameSession, error)
	Stats(ctx context.Context) (model.SessionStats, error)
}

// EndGameResult is the outcome of the end-game and re-validation pipelines.
// Success tracks whether the pipeline completed, not whether the score was
// accepted: an INVALID verdict is still a successful pipeline run.
type EndGameResult struct {
	Success          bool   `json:"success"`
	ValidationResult string `json:"validationResult,omitempty"`
	RejectionReason  string `json:"rejectionReason,omitempty"`
	Error            string `json:"error,omitempty"`
	PriceTier        int    `json:"priceTier"`
}

// ScoreService coordinates the session store, the anti-cheat validator and
// the tier classifier. Stateless across calls; all state lives in the store.
type ScoreService struct {
	store      SessionStore
	validator  *anticheat.Validator
	classifier *tier.Classifier
	locks      *lock.AddressLock
	now        func() time.Time
}

// NewScoreService creates a ScoreService. A nil lock or clock uses the
// defaults.
func NewScoreService(store SessionStore, validator *anticheat.Validator, classifier *tier.Classifier, locks *lock.AddressLock, now func() time.Time) *ScoreService {
	if locks == nil {
		locks = lock.NewAddressLock()
	}
	if now == nil {
		now = time.Now
	}
	return &ScoreService{
		store:      store,
		validator:  validator,
		classifier: classifier,
		locks:      locks,
		now:        now,
	}
}

// NormalizeAddress lower-cases and trims a wallet address. All session keys
// go through this.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// StartGame creates (or, for an abandoned game, restarts) the session for
// an address. A terminal session rejects with repository.ErrSessionExists:
// one scored attempt per address, forever.
func (s *ScoreService) StartGame(ctx context.Context, address string, clientStartTime string, req model.RequestInfo) (time.Time, error) {
	address = NormalizeAddress(address)

	startTime, err := s.store.Create(ctx, address, clientStartTime, req.Normalized())
	if err != nil {
		if errors.Is(err, repository.ErrSessionExists) {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("failed to start game session: %w", err)
	}

	log.Info().
		Str("address", address).
		Time("start_time", startTime).
		Msg("Game session started")

	return startTime, nil
}

// EndGame runs the full scoring pipeline: load the session, validate the
// proposed end-state, persist the score, persist the verdict, classify.
func (s *ScoreService) EndGame(ctx context.Context, address string, score float64, clientEndTime string, req model.RequestInfo) (*EndGameResult, error) {
	address = NormalizeAddress(address)
	s.locks.Lock(address)
	defer s.locks.Unlock(address)

	session, err := s.store.Get(ctx, address)
	if err != nil {
		msg := MsgNoSession
		if !errors.Is(err, repository.ErrSessionNotFound) {
			msg = "Failed to load game session"
		}
		return failedResult(msg), fmt.Errorf("end game: %w", err)
	}

	req = req.Normalized()
	serverEndTime := s.now()
	verdict := s.validator.Validate(session, anticheat.Submission{
		Score:         score,
		ClientEndTime: clientEndTime,
		ServerEndTime: serverEndTime,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
	})

	if _, err := s.store.UpdateScore(ctx, address, score, serverEndTime, clientEndTime); err != nil {
		return failedResult(MsgScoreUpdateFailed), fmt.Errorf("end game: %w", err)
	}

	if _, err := s.store.SaveValidation(ctx, address, verdict.Result(), reasonPtr(verdict)); err != nil {
		return failedResult(MsgValidationSaveFailed), fmt.Errorf("end game: %w", err)
	}

	result := verdict.Result()
	priceTier := s.classifier.Classify(&score, &result)

	log.Info().
		Str("address", address).
		Float64("score", score).
		Str("validation_result", result).
		Str("rejection_reason", verdict.RejectionReason).
		Int("price_tier", priceTier).
		Msg("Game session scored")

	return &EndGameResult{
		Success:          true,
		ValidationResult: result,
		RejectionReason:  verdict.RejectionReason,
		PriceTier:        priceTier,
	}, nil
}

// Revalidate forces validation of a session that has a score but no verdict
// yet, covering pipelines that crashed between the score write and the
// verdict write. Idempotent: an already-validated session returns its stored
// verdict with no re-validation and no write.
func (s *ScoreService) Revalidate(ctx context.Context, address string) (*EndGameResult, error) {
	address = NormalizeAddress(address)
	s.locks.Lock(address)
	defer s.locks.Unlock(address)

	session, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return failedResult(MsgNoScore), ErrNoScore
		}
		return failedResult(MsgNoScore), fmt.Errorf("revalidate: %w", err)
	}
	if !session.HasScore() {
		return failedResult(MsgNoScore), ErrNoScore
	}

	if session.IsValidated() {
		return &EndGameResult{
			Success:          true,
			ValidationResult: *session.ValidationResult,
			RejectionReason:  strDeref(session.RejectionReason),
			PriceTier:        s.classifier.Classify(session.Score, session.ValidationResult),
		}, nil
	}

	verdict := s.validateStored(session)

	if _, err := s.store.SaveValidation(ctx, address, verdict.Result(), reasonPtr(verdict)); err != nil {
		return failedResult(MsgValidationSaveFailed), fmt.Errorf("revalidate: %w", err)
	}

	result := verdict.Result()
	priceTier := s.classifier.Classify(session.Score, &result)

	log.Info().
		Str("address", address).
		Str("validation_result", result).
		Int("price_tier", priceTier).
		Msg("Existing score validated")

	return &EndGameResult{
		Success:          true,
		ValidationResult: result,
		RejectionReason:  verdict.RejectionReason,
		PriceTier:        priceTier,
	}, nil
}

// validateStored validates a session against its own stored fields,
// defaulting end times to "now" and request metadata to the unknown
// sentinel for sessions created before those fields existed.
func (s *ScoreService) validateStored(session *model.GameSession) model.Verdict {
	now := s.now()

	stored := *session
	if stored.IPAddress == "" {
		stored.IPAddress = model.UnknownSentinel
	}
	if stored.UserAgent == "" {
		stored.UserAgent = model.UnknownSentinel
	}

	serverEndTime := now
	if stored.GameEndTime != nil {
		serverEndTime = *stored.GameEndTime
	}
	clientEndTime := now.Format(time.RFC3339Nano)
	if stored.ClientEndTime != nil && *stored.ClientEndTime != "" {
		clientEndTime = *stored.ClientEndTime
	}

	return s.validator.Validate(&stored, anticheat.Submission{
		Score:         *stored.Score,
		ClientEndTime: clientEndTime,
		ServerEndTime: serverEndTime,
		IPAddress:     stored.IPAddress,
		UserAgent:     stored.UserAgent,
	})
}

// GetTier returns the price tier for an address. Fail closed: any store
// error, missing score, or INVALID verdict yields the lowest tier - a
// lookup failure never grants a better discount.
func (s *ScoreService) GetTier(ctx context.Context, address string) int {
	address = NormalizeAddress(address)

	session, err := s.store.Get(ctx, address)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			log.Warn().Err(err).Str("address", address).Msg("Tier lookup failed, failing closed")
		}
		return tier.TierLowest
	}
	if !session.HasScore() {
		return tier.TierLowest
	}

	return s.classifier.Classify(session.Score, session.ValidationResult)
}

// GetStats returns aggregate session counts.
func (s *ScoreService) GetStats(ctx context.Context) (model.SessionStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return model.SessionStats{}, fmt.Errorf("failed to get session stats: %w", err)
	}
	return stats, nil
}

func failedResult(msg string) *EndGameResult {
	return &EndGameResult{
		Success:   false,
		Error:     msg,
		PriceTier: tier.TierLowest,
	}
}

func reasonPtr(v model.Verdict) *string {
	if v.IsValid {
		return nil
	}
	reason := v.RejectionReason
	return &reason
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
