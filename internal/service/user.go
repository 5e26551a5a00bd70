package service

import (
	"context"
	"fmt"
	"io"

	"github.com/authgate/backend/internal/client"
	"github.com/authgate/backend/internal/db"
	"github.com/authgate/backend/internal/model"
)

// UserService covers account maintenance: profile edits, password change,
// avatar upload and the admin management surface.
type UserService struct {
	users  userStore
	creds  *CredentialService
	tokens *TokenService
	media  client.MediaStore
}

func NewUserService(users userStore, creds *CredentialService, tokens *TokenService, media client.MediaStore) *UserService {
	return &UserService{users: users, creds: creds, tokens: tokens, media: media}
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (*model.User, error) {
	if req.FullName == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.UpdateUser(ctx, userID, model.UserPatch{FullName: &req.FullName})
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password before accepting the new
// one, then revokes every open session for the account.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req model.ChangePasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	withPassword, err := s.users.GetUserByEmailWithPassword(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	ok, err := s.creds.ComparePassword(req.CurrentPassword, withPassword.PasswordHash)
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}

	newHash, err := s.creds.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if _, err := s.users.UpdateUser(ctx, userID, model.UserPatch{PasswordHash: &newHash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.tokens.RevokeUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (s *UserService) UploadAvatar(ctx context.Context, userID int64, filename, contentType string, data io.Reader) (string, error) {
	url, err := s.media.Upload(ctx, filename, contentType, data)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	if _, err := s.users.UpdateUser(ctx, userID, model.UserPatch{AvatarURL: &url}); err != nil {
		if db.IsNoRows(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return url, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// DeleteUser serves both self-deletion and the admin endpoint; refresh
// token records go with the user row via ON DELETE CASCADE.
func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	found, err := s.users.DeleteUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) UpdateRole(ctx context.Context, userID int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidInput
	}

	user, err := s.users.UpdateUser(ctx, userID, model.UserPatch{Role: &role})
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return user, nil
}
