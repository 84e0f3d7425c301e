// Package auth verifies the credentials presented on the administrative and allocator endpoints
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
)

// Errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
)

// WebhookIssuer is the issuer claim expected on allocator webhook tokens
const WebhookIssuer = "allocator"

// Config holds configuration for the auth service
type Config struct {
	// AdminTokenHash is a bcrypt hash of the admin bearer token. Empty disables admin auth.
	AdminTokenHash string
	// WebhookSecret signs allocator webhook tokens (HS256)
	WebhookSecret string
	// WebhookLeeway tolerates clock skew between the allocator and this service
	WebhookLeeway time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		WebhookLeeway: 30 * time.Second,
	}
}

// Service verifies admin and allocator credentials
type Service struct {
	clock clock.Clock
	cfg   Config
}

// New creates a new auth Service
func New(clk clock.Clock, cfg Config) *Service {
	return &Service{
		clock: clk,
		cfg:   cfg,
	}
}

// AdminAuthEnabled reports whether admin endpoints require a token
func (s *Service) AdminAuthEnabled() bool {
	return s.cfg.AdminTokenHash != ""
}

// VerifyAdmin checks a bearer token against the configured hash
func (s *Service) VerifyAdmin(token string) error {
	if !s.AdminAuthEnabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminTokenHash), []byte(token)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// VerifyWebhook validates an allocator bearer token: HS256, issued by the allocator, unexpired
func (s *Service) VerifyWebhook(token string) error {
	if s.cfg.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidToken)
	}
	if token == "" {
		return ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.WebhookSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(WebhookIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.cfg.WebhookLeeway),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}

// HashAdminToken produces the value to configure as the admin token hash
func HashAdminToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("token must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SignWebhookToken issues an allocator token valid for ttl from now
func SignWebhookToken(secret string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("webhook secret must not be empty")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    WebhookIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
