package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/model"
	"github.com/stashd/stashd/internal/repository"
)

// Auth service errors.
var (
	ErrFieldsRequired     = errors.New("all fields are required")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrUserNotFound       = errors.New("user not found")
)

// UserRepository is the account store surface the service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

// SessionStore holds sessions and password-reset tokens.
type SessionStore interface {
	SetSession(ctx context.Context, session *model.Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	SetResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

// UserService handles account and session business logic.
type UserService struct {
	repo       UserRepository
	sessions   SessionStore
	logger     *slog.Logger
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository, sessions SessionStore, logger *slog.Logger, sessionTTL, resetTTL time.Duration) *UserService {
	return &UserService{
		repo:       repo,
		sessions:   sessions,
		logger:     logger,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
	}
}

// SignUpInput defines input for registering an account.
type SignUpInput struct {
	FullName string
	Email    string
	Password string
}

// SignUp registers a new account and signs it in.
func (s *UserService) SignUp(ctx context.Context, input SignUpInput) (*model.Session, error) {
	if input.FullName == "" || input.Email == "" || input.Password == "" {
		return nil, ErrFieldsRequired
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hash,
		Avatar:       model.AvatarPlaceholder,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user_registered", "user_id", user.ID)

	return s.createSession(ctx, user)
}

// SignIn verifies credentials and issues a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return s.createSession(ctx, user)
}

// SignOut deletes the session behind the given token.
func (s *UserService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// ForgotPassword issues a single-use reset token for the account, if
// it exists. The result is identical for unknown emails so the
// endpoint cannot be used to probe for accounts. Token delivery is
// logged; there is no mail transport.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrFieldsRequired
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := auth.NewToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.sessions.SetResetToken(ctx, token, user.ID, s.resetTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.logger.Info("password_reset_token_issued", "user_id", user.ID, "token", token)

	return nil
}

// ResetPassword consumes a reset token and stores a new password hash.
func (s *UserService) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	if password == "" || confirmPassword == "" {
		return ErrFieldsRequired
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}
	if !auth.ValidTokenFormat(token) {
		return ErrInvalidResetToken
	}

	userID, err := s.sessions.ConsumeResetToken(ctx, token)
	if err != nil {
		return ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password_reset", "user_id", userID)

	return nil
}

// CurrentUser loads the account behind a session.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *UserService) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	token, err := auth.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sessions.SetSession(ctx, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}
