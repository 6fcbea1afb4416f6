// Package service contains the business rules of the tracker.
//
//	Handler (HTTP) → Service (rules) → Repository (SQL)
//
// Services take primitives and model types, never *http.Request, and return
// apperror kinds that the handler layer maps to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/auth"
	"github.com/sakif/attendance-tracker/internal/model"
	"github.com/sakif/attendance-tracker/internal/repository"
)

// Caller-facing registration and login failures.
const (
	MsgUserExists       = "User already registered"
	MsgUserNotFound     = "User not found"
	MsgPasswordMismatch = "Password doesn't match"
)

// MaxNameLength bounds user names.
const MaxNameLength = 100

// AuthService registers users and exchanges credentials for access tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name        string
	Password    string
	DisplayName string
	AvatarURL   string
}

// Register creates a new user.
//
// The existence check happens before hashing, and hashing before the insert;
// a duplicate name yields apperror.ErrConflict either from the check or,
// when two registrations race, from the store's UNIQUE constraint.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is empty")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is empty")
	}

	_, err := s.users.GetUserByName(ctx, name)
	switch {
	case err == nil:
		return nil, apperror.Conflict(MsgUserExists)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up %q: %w", name, err)
	}

	digest, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		PasswordHash: digest,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		AvatarURL:    strings.TrimSpace(in.AvatarURL),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %q: %w", name, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("name", user.Name),
	)
	return user, nil
}

// Login verifies the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, name, password string) (string, error) {
	user, err := s.users.GetUserByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized(MsgUserNotFound)
		}
		return "", fmt.Errorf("service/auth: looking up %q: %w", name, err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Info("login rejected", slog.String("userID", user.ID))
		return "", apperror.Unauthorized(MsgPasswordMismatch)
	}

	token, err := s.tokens.Generate(model.Identity{UserID: user.ID, Name: user.Name})
	if err != nil {
		return "", fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return token, nil
}

// GetUserByID returns the current user record for an authenticated identity.
// Profile fields are always read from the store, never from the token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id is empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// HashPassword exposes the credential store's hash for the debug endpoint.
func (s *AuthService) HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", apperror.ValidationFailed("password", "password is empty")
	}
	digest, err := s.passwords.Hash(plaintext)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password",
				fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return "", fmt.Errorf("service/auth: hashing password: %w", err)
	}
	return digest, nil
}

// VerifyPassword exposes the credential store's verify for the debug endpoint.
func (s *AuthService) VerifyPassword(digest, plaintext string) bool {
	return s.passwords.Verify(digest, plaintext)
}
