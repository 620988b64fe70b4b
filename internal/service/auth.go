// Authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sakif/flavorai/internal/apperror"
	"github.com/sakif/flavorai/internal/auth"
	"github.com/sakif/flavorai/internal/metrics"
	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/repository"
)

// MinPasswordLength is the shortest password accepted at registration,
// counted in characters.
const MinPasswordLength = 6

// User-facing messages. The web client displays these verbatim.
const (
	msgCredentialsRequired = "Email and password are required"
	msgEmailTaken          = "User with this email already exists"
	msgPasswordTooShort    = "Password must be at least 6 characters long"
	msgPasswordTooLong     = "Password must be at most 72 bytes long"
	msgInvalidCredentials  = "Invalid email or password"
)

// dummyPassword is hashed once and compared against when a login names an
// unknown email.
const dummyPassword = "flavorai-timing-equaliser"

// AuthService handles registration and login.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - metrics    metrics.Recorder           → registration/login counters
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	metrics   metrics.Recorder
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		metrics:   recorder,
		logger:    logger,
	}
}

// AuthResult is returned by Register and Login. It bundles the user record
// and the issued access token so the handler can respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account and logs it in.
//
// CHECK ORDER:
// Missing fields, then duplicate email, then password length. The web client
// shows whichever message comes back, so the order is part of the contract.
//
// The duplicate check up front gives the friendly message in the common
// case. The UNIQUE index still catches a concurrent registration that slips
// between the check and the insert; the repository reports that as the same
// Conflict.
func (s *AuthService) Register(ctx context.Context, email, password string, name *string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", msgCredentialsRequired)
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict(msgEmailTaken)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", msgPasswordTooShort)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", msgPasswordTooLong)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		s.logger.Error("hashing password failed", slog.String("error", err.Error()))
		return nil, apperror.CreationFailed("user", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         normalizeName(name),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("creating user failed", slog.String("error", err.Error()))
		return nil, apperror.CreationFailed("user", err)
	}

	s.metrics.IncUserRegistered()
	s.logger.Info("user registered", slog.Int64("userID", user.ID))

	// The password was just set, so there is nothing left to verify: issue
	// the token directly instead of paying for a second bcrypt round.
	return s.issue(user)
}

// Login verifies credentials and issues an access token.
//
// Unknown email and wrong password produce the same error, and in the
// unknown-email case a bcrypt comparison against a dummy hash still runs so
// the response takes about as long either way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", msgCredentialsRequired)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.Verify(s.dummy(), password)
			s.metrics.IncLogin(metrics.LoginFailure)
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.metrics.IncLogin(metrics.LoginFailure)
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// dummy returns a bcrypt hash at the service's configured cost.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwords.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("hashing dummy password failed", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeName maps a missing or blank name to nil.
func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
