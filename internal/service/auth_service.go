package service

import (
	"context"
	"errors"
	"fmt"

	"go-auth-service/internal/model"
	"go-auth-service/internal/token"
	"go-auth-service/pkg/password"
)

// UserDirectory is the durable store of user records. Lookups report a
// missing record as model.ErrUserNotFound; Create reports constraint
// violations as the precise duplicate error and anything else opaquely.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}

// AuthService owns the login and registration protocol and every
// failure-mode decision in it. It holds no mutable state: concurrent
// calls never interact, and the registration race between the existence
// checks and the insert is settled by the directory's own constraints.
type AuthService struct {
	directory UserDirectory
	codec     *token.Codec
}

func NewAuthService(directory UserDirectory, codec *token.Codec) *AuthService {
	return &AuthService{directory: directory, codec: codec}
}

func (s *AuthService) TokenTTL() int64 {
	return int64(s.codec.TTL().Seconds())
}

// Login verifies the credentials and mints a session token. Failure
// order: unknown username, then password mismatch. A directory failure
// aborts the attempt; the caller retries the whole operation, never a
// sub-step.
func (s *AuthService) Login(ctx context.Context, username string, plaintext string) (string, error) {
	user, err := s.directory.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return "", model.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("login lookup: %w", err)
	}

	if !password.Verify(plaintext, user.PasswordHash) {
		return "", model.ErrInvalidCredentials
	}

	signed, err := s.codec.Encode(user.Username, user.Email)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Register creates a new user record. The username check runs strictly
// before the email check: when both collide only ErrDuplicateUsername is
// reported. The plaintext is replaced by its hash before anything is
// handed to the directory, and no token is issued; the caller logs in
// separately.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	_, err := s.directory.FindByUsername(ctx, req.Username)
	if err == nil {
		return model.User{}, model.ErrDuplicateUsername
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("register username check: %w", err)
	}

	if req.Email != nil {
		_, err := s.directory.FindByEmail(ctx, *req.Email)
		if err == nil {
			return model.User{}, model.ErrDuplicateEmail
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, fmt.Errorf("register email check: %w", err)
		}
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.directory.Create(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		// Duplicates detected at insert (the race window) keep their
		// precise verdict; everything else stays opaque.
		if errors.Is(err, model.ErrDuplicateUsername) || errors.Is(err, model.ErrDuplicateEmail) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("register insert: %w", err)
	}

	return created, nil
}

// ResolveIdentity decodes a presented bearer token and re-fetches the
// current record for its username claim. The re-fetch is deliberate: the
// resolved identity reflects the stored record at call time, not the
// snapshot embedded in the token.
func (s *AuthService) ResolveIdentity(ctx context.Context, tokenString string) (model.User, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.directory.FindByUsername(ctx, claims.Username)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve identity lookup: %w", err)
	}

	return user, nil
}
