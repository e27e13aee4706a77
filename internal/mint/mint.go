// Package mint implements the collaborators around the scoring core:
// whitelist membership, mint-allowance proofs, and token metadata URLs.
package mint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WhitelistStore answers whitelist membership for a wallet address.
type WhitelistStore interface {
	Contains(address string) bool
}

// ProofSigner produces a redeemable allowance proof for an address at a
// given price tier.
type ProofSigner interface {
	Sign(address string, priceTier int) (string, error)
}

// StaticWhitelist is a config-backed WhitelistStore. An empty list admits
// every address.
type StaticWhitelist struct {
	addresses map[string]struct{}
}

// NewStaticWhitelist builds a whitelist from a list of addresses,
// case-insensitively.
func NewStaticWhitelist(addresses []string) *StaticWhitelist {
	set := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return &StaticWhitelist{addresses: set}
}

// Contains implements WhitelistStore.
func (w *StaticWhitelist) Contains(address string) bool {
	if len(w.addresses) == 0 {
		return true
	}
	_, ok := w.addresses[strings.ToLower(strings.TrimSpace(address))]
	return ok
}

// ProofClaims are the claims embedded in an allowance proof.
type ProofClaims struct {
	Address   string `json:"address"`
	PriceTier int    `json:"priceTier"`
	jwt.RegisteredClaims
}

// JWTSigner signs allowance proofs as HMAC JWTs.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSigner creates a JWTSigner. A non-positive ttl defaults to 15
// minutes; a nil clock uses time.Now.
func NewJWTSigner(secret string, ttl time.Duration, now func() time.Time) (*JWTSigner, error) {
	if secret == "" {
		return nil, errors.New("proof secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &JWTSigner{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Sign implements ProofSigner.
func (s *JWTSigner) Sign(address string, priceTier int) (string, error) {
	jtiBytes := make([]byte, 16)
	if _, err := rand.Read(jtiBytes); err != nil {
		return "", fmt.Errorf("failed to generate proof id: %w", err)
	}

	issued := s.now()
	claims := ProofClaims{
		Address:   address,
		PriceTier: priceTier,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mint-game-backend",
			Subject:   address,
			ID:        hex.EncodeToString(jtiBytes),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and checks a proof, returning its claims.
func (s *JWTSigner) Verify(proof string) (*ProofClaims, error) {
	parsed, err := jwt.ParseWithClaims(proof, &ProofClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*ProofClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// TokenURL builds the metadata URL for a model id.
func TokenURL(baseURL string, modelID int64) string {
	return fmt.Sprintf("%s/%d.json", strings.TrimRight(baseURL, "/"), modelID)
}

// TierLookup resolves the price tier for an address. Satisfied by
// service.ScoreService.GetTier.
type TierLookup interface {
	GetTier(ctx context.Context, address string) int
}

// Allowance is the mint eligibility answer for one address.
type Allowance struct {
	Address     string `json:"address"`
	Whitelisted bool   `json:"whitelisted"`
	PriceTier   int    `json:"priceTier"`
	Proof       string `json:"proof,omitempty"`
}

// AllowanceService composes whitelist membership, the validated tier, and
// the proof signer.
type AllowanceService struct {
	whitelist WhitelistStore
	tiers     TierLookup
	signer    ProofSigner
}

// NewAllowanceService creates an AllowanceService.
func NewAllowanceService(whitelist WhitelistStore, tiers TierLookup, signer ProofSigner) *AllowanceService {
	return &AllowanceService{whitelist: whitelist, tiers: tiers, signer: signer}
}

// Allowance resolves mint eligibility for an address. A proof is issued
// only for whitelisted addresses; the tier is whatever the scoring core
// reports (fail-closed to the lowest tier inside the core).
func (s *AllowanceService) Allowance(ctx context.Context, address string) (*Allowance, error) {
	address = strings.ToLower(strings.TrimSpace(address))

	allowance := &Allowance{
		Address:     address,
		Whitelisted: s.whitelist.Contains(address),
		PriceTier:   s.tiers.GetTier(ctx, address),
	}

	if !allowance.Whitelisted {
		return allowance, nil
	}

	proof, err := s.signer.Sign(address, allowance.PriceTier)
	if err != nil {
		return nil, fmt.Errorf("failed to sign allowance proof: %w", err)
	}
	allowance.Proof = proof

	return allowance, nil
}
