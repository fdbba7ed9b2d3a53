package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hszk-dev/gostream/internal/auth"
	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
)

var (
	// ErrInvalidCredentials is returned on a failed login attempt. Never
	// distinguishes "no such user" from "wrong password" to avoid leaking
	// which usernames are registered.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrEmailNotVerified is returned when a login is attempted before the
	// account's email has been verified.
	ErrEmailNotVerified = errors.New("email address is not verified")

	// ErrInvalidVerificationToken is returned when a verify-email token
	// fails signature, expiry, or subject resolution.
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
)

// emailVerificationPurpose is the placeholder fgpHash value minted into
// verify-email tokens. It is never compared via auth.VerifyFingerprint —
// email-verification tokens reuse auth.TokenIssuer purely as a signed,
// expiring opaque-token mechanism, not for fingerprint binding.
const emailVerificationPurpose = "email-verification"

// RegisterInput carries an already confirmed (password == passwordConfirmation,
// checked at the HTTP boundary) registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult carries everything the login handler needs to build the
// Authorization header and Set-Cookie response.
type LoginResult struct {
	Token          string
	RawFingerprint string
	ExpiresIn      time.Duration
}

// UserService defines account lifecycle operations backing the auth HTTP
// surface: registration, email verification, and login.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type userService struct {
	repo            repository.UserRepository
	hasher          auth.PasswordHasher
	tokens          *auth.TokenIssuer
	tokenExpiration time.Duration
}

// NewUserService creates a UserService. tokenExpiration is the access
// token lifetime handed out on login (config.AuthConfig.JWTExpiration).
func NewUserService(repo repository.UserRepository, hasher auth.PasswordHasher, tokens *auth.TokenIssuer, tokenExpiration time.Duration) UserService {
	return &userService{repo: repo, hasher: hasher, tokens: tokens, tokenExpiration: tokenExpiration}
}

// Register creates a new unverified account and logs a verification link
// for the (out-of-scope) email-delivery collaborator to pick up.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := model.NewUser(input.Username, input.Email, hashed)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	if err := s.sendVerificationLink(saved); err != nil {
		slog.Warn("failed to mint verification link after registration", "username", saved.Username, "error", err)
	}
	return saved, nil
}

// VerifyEmail validates token and marks the named account verified.
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVerificationToken, err)
	}
	if claims.FgpHash != emailVerificationPurpose {
		return ErrInvalidVerificationToken
	}

	user, err := s.repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user.Verified {
		return nil
	}

	user.Verified = true
	_, err = s.repo.Save(ctx, user)
	return err
}

// ResendVerification re-mints and logs a verification link for email.
// Always succeeds from the caller's perspective even if the address is
// unknown, so as not to leak account existence (HTTP 202 regardless).
func (s *userService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.Verified {
		return nil
	}
	return s.sendVerificationLink(user)
}

// Login checks credentials, mints a fresh fingerprint, and signs a token
// binding the two together per spec.md §4.F's login flow.
func (s *userService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Verify(user.HashedPassword, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrEmailNotVerified
	}

	rawFingerprint, fgpHash, err := auth.NewFingerprint()
	if err != nil {
		return nil, fmt.Errorf("generate fingerprint: %w", err)
	}

	token, err := s.tokens.Mint(user.Username, fgpHash)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	return &LoginResult{
		Token:          token,
		RawFingerprint: rawFingerprint,
		ExpiresIn:      s.tokenExpiration,
	}, nil
}

func (s *userService) sendVerificationLink(user *model.User) error {
	token, err := s.tokens.Mint(user.Username, emailVerificationPurpose)
	if err != nil {
		return fmt.Errorf("mint verification token: %w", err)
	}
	slog.Info("verification link minted", "username", user.Username, "email", user.Email, "token", token)
	return nil
}
