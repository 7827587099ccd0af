package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/account-api/internal/config"
	"github.com/jonathan/account-api/internal/db"
	"github.com/jonathan/account-api/internal/logging"
	"github.com/jonathan/account-api/internal/types"
)

// UserStore is the persistence surface UserService depends on. *db.DB implements it.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string, step db.RegistrationStep) (int64, error)
	GetUser(ctx context.Context, id int64) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateEmail(ctx context.Context, id int64, email string) error
}

// UserService provides business logic for account and profile operations
type UserService struct {
	store          UserStore
	passwordConfig *config.PasswordConfig
	logger         logging.Logger
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(store UserStore, passwordConfig *config.PasswordConfig, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &UserService{
		store:          store,
		passwordConfig: passwordConfig,
		logger:         logger.With("component", "user_service"),
	}
}

// toPublicUser converts db.User to types.User, excluding password fields
func toPublicUser(dbUser *db.User) *types.User {
	if dbUser == nil {
		return nil
	}
	return &types.User{
		ID:               dbUser.ID,
		Email:            dbUser.Email,
		RegistrationStep: int(dbUser.RegistrationStep),
	}
}

// GetMe returns the profile of userID.
func (s *UserService) GetMe(ctx context.Context, userID int64) (*types.User, error) {
	dbUser, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if dbUser == nil {
		return nil, &ErrUserNotFound{UserID: userID}
	}
	return toPublicUser(dbUser), nil
}

// UpdateMe applies a profile update. A new email is rejected when any other
// account already owns it; resubmitting the current email is a no-op.
func (s *UserService) UpdateMe(ctx context.Context, userID int64, req *types.UpdateMeRequest) (*types.User, error) {
	dbUser, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if dbUser == nil {
		return nil, &ErrUserNotFound{UserID: userID}
	}

	email := db.NormalizeEmail(req.Email)
	if email == "" || email == dbUser.Email {
		return toPublicUser(dbUser), nil
	}

	exists, err := s.store.CheckEmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	// The unique constraint catches a concurrent claim between the check and the write.
	if err := s.store.UpdateEmail(ctx, userID, email); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return nil, &ErrEmailAlreadyExists{Email: email}
		}
		return nil, fmt.Errorf("failed to update email: %w", err)
	}

	s.logger.Info(ctx, "email updated", "user_id", userID)
	dbUser.Email = email
	return toPublicUser(dbUser), nil
}

// ChangePassword verifies oldPassword against the stored hash and replaces it with a hash of newPassword.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *types.ChangePasswordRequest) error {
	dbUser, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if dbUser == nil || !s.passwordConfig.VerifyPassword(req.OldPassword, dbUser.PasswordHash) {
		return &ErrInvalidOldPassword{}
	}

	newHash, err := s.passwordConfig.HashPassword(req.NewPassword)
	if errors.Is(err, config.ErrPasswordTooLong) {
		return &ErrValidation{Field: "new_password", Rule: "maxbytes"}
	}
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "user_id", userID, "error", err)
		return &ErrUpdatePasswordFailed{Err: err}
	}

	if err := s.store.UpdatePassword(ctx, userID, newHash); err != nil {
		s.logger.Error(ctx, "password update failed", "user_id", userID, "error", err)
		return &ErrUpdatePasswordFailed{Err: err}
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// Register creates a new account with password authentication
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	email := db.NormalizeEmail(req.Email)

	exists, err := s.store.CheckEmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if errors.Is(err, config.ErrPasswordTooLong) {
		return nil, &ErrValidation{Field: "password", Rule: "maxbytes"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.store.CreateUser(ctx, email, passwordHash, db.RegistrationStepAccount)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return nil, &ErrEmailAlreadyExists{Email: email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	dbUser, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve created user: %w", err)
	}
	if dbUser == nil {
		return nil, fmt.Errorf("created user not found: %d", userID)
	}

	s.logger.Info(ctx, "user registered", "user_id", userID)
	return toPublicUser(dbUser), nil
}

// Login authenticates a user and returns user data
func (s *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	dbUser, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Unknown email, unset password and wrong password are indistinguishable to the caller.
	if dbUser == nil || !dbUser.PasswordSet {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(req.Password, dbUser.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	if s.passwordConfig.NeedsRehash(dbUser.PasswordHash) {
		s.rehash(ctx, dbUser.ID, req.Password)
	}

	return toPublicUser(dbUser), nil
}

// rehash upgrades a stored hash to the configured cost. Failures only get logged.
func (s *UserService) rehash(ctx context.Context, userID int64, password string) {
	newHash, err := s.passwordConfig.HashPassword(password)
	if err == nil {
		err = s.store.UpdatePassword(ctx, userID, newHash)
	}
	if err != nil {
		s.logger.Warn(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	s.logger.Debug(ctx, "password rehashed", "user_id", userID)
}
