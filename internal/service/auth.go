package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/authgate/backend/internal/client"
	"github.com/authgate/backend/internal/db"
	"github.com/authgate/backend/internal/model"
)

const (
	minPasswordLength  = 8
	maxPasswordLength  = 128
	emailChangePurpose = "email-change"
)

type userStore interface {
	CreateUser(ctx context.Context, draft model.UserDraft) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByEmailWithPassword(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, userID int64, patch model.UserPatch) (*model.User, error)
	DeleteUser(ctx context.Context, userID int64) (bool, error)
}

// Session is what a successful login or registration hands back: the user
// with the password hash scrubbed plus both tokens.
type Session struct {
	User         model.User
	AccessToken  string
	ExpiresIn    int64
	RefreshToken string
}

// AuthService orchestrates the OTP-gated registration, login, logout and
// email-change flows on top of the credential and token services.
type AuthService struct {
	users  userStore
	creds  *CredentialService
	tokens *TokenService
	mailer client.Mailer
}

func NewAuthService(users userStore, creds *CredentialService, tokens *TokenService, mailer client.Mailer) *AuthService {
	return &AuthService{users: users, creds: creds, tokens: tokens, mailer: mailer}
}

// SendOtp starts a registration. Nothing about the attempt is stored
// server-side: the password hash travels inside the returned envelope and
// the plaintext is discarded here. The OTP itself goes out via the mailer
// only, never in a response.
func (s *AuthService) SendOtp(ctx context.Context, req model.SendOtpRequest) (string, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := normalizeEmail(req.Email)
	if fullName == "" || email == "" {
		return "", ErrInvalidInput
	}
	if err := validatePassword(req.Password); err != nil {
		return "", err
	}
	if req.Password != req.ConfirmPassword {
		return "", fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return "", err
	}

	passwordHash, err := s.creds.HashPassword(req.Password)
	if err != nil {
		return "", err
	}

	otp, err := s.creds.GenerateOtp()
	if err != nil {
		return "", err
	}

	envelope, _ := s.creds.MakeEnvelope(otp, email, passwordHash)

	if err := s.mailer.SendOtp(ctx, email, otp); err != nil {
		return "", fmt.Errorf("send otp mail: %w", err)
	}

	return envelope, nil
}

// VerifyOtp finishes a registration. The email-free check runs again here
// to close the race window left open by SendOtp, but the users.email
// unique constraint is the final authority: a concurrent verify that loses
// the insert race gets ErrConflict, not a duplicate user.
func (s *AuthService) VerifyOtp(ctx context.Context, req model.VerifyOtpRequest) (*Session, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := normalizeEmail(req.Email)
	if fullName == "" || email == "" || req.Otp == "" || req.HashOtp == "" {
		return nil, ErrInvalidInput
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	passwordHash, err := s.creds.VerifyEnvelope(req.Otp, email, req.HashOtp)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, model.UserDraft{
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleCustomer,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueSession(ctx, user)
}

// Login deliberately reports the same error for an unknown email and a
// wrong password.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetUserByEmailWithPassword(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.creds.ComparePassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	return s.issueSession(ctx, user)
}

// Refresh exchanges a valid, unrevoked refresh token for a new access
// token. The record lookup is what makes logout stick: a signed, unexpired
// token whose record is gone is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	userID, _, tokenID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", 0, err
	}

	if err := s.tokens.CheckRefreshRecord(ctx, tokenID); err != nil {
		return "", 0, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return "", 0, ErrUnauthorized
		}
		return "", 0, fmt.Errorf("find user: %w", err)
	}

	return s.tokens.SignAccessToken(user.ID, user.Role)
}

// Logout revokes the record behind the presented refresh token. An
// unparseable token or an already-deleted record is not an error; the
// caller clears client-side cookies either way.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	_, _, tokenID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if _, err := s.tokens.DeleteToken(ctx, tokenID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// SendEmailChangeOtp mails an OTP to the account's current address. The
// envelope binds the stored password hash so it cannot be replayed against
// another account.
func (s *AuthService) SendEmailChangeOtp(ctx context.Context, userID int64) (string, error) {
	user, err := s.userWithPassword(ctx, userID)
	if err != nil {
		return "", err
	}

	otp, err := s.creds.GenerateOtp()
	if err != nil {
		return "", err
	}

	envelope, _ := s.creds.MakeEnvelope(otp, user.Email, user.PasswordHash)

	if err := s.mailer.SendOtp(ctx, user.Email, otp); err != nil {
		return "", fmt.Errorf("send otp mail: %w", err)
	}
	return envelope, nil
}

// VerifyEmailChangeOtp proves control of the current address and returns a
// short-lived change ticket authorizing the new-address half of the flow.
func (s *AuthService) VerifyEmailChangeOtp(ctx context.Context, userID int64, req model.EmailChangeVerifyRequest) (string, error) {
	if req.Otp == "" || req.HashOtp == "" {
		return "", ErrInvalidInput
	}

	user, err := s.userWithPassword(ctx, userID)
	if err != nil {
		return "", err
	}

	if _, err := s.creds.VerifyEnvelope(req.Otp, user.Email, req.HashOtp); err != nil {
		return "", err
	}

	return s.tokens.SignChangeTicket(userID, emailChangePurpose)
}

// SendNewEmailOtp mails an OTP to the requested new address, gated on the
// change ticket from VerifyEmailChangeOtp.
func (s *AuthService) SendNewEmailOtp(ctx context.Context, userID int64, req model.EmailChangeSendNewRequest) (string, error) {
	newEmail := normalizeEmail(req.NewEmail)
	if newEmail == "" {
		return "", ErrInvalidInput
	}

	if err := s.checkChangeTicket(userID, req.ChangeToken); err != nil {
		return "", err
	}

	user, err := s.userWithPassword(ctx, userID)
	if err != nil {
		return "", err
	}
	if newEmail == user.Email {
		return "", fmt.Errorf("%w: new email matches current email", ErrInvalidInput)
	}

	if err := s.ensureEmailFree(ctx, newEmail); err != nil {
		return "", err
	}

	otp, err := s.creds.GenerateOtp()
	if err != nil {
		return "", err
	}

	envelope, _ := s.creds.MakeEnvelope(otp, newEmail, user.PasswordHash)

	if err := s.mailer.SendOtp(ctx, newEmail, otp); err != nil {
		return "", fmt.Errorf("send otp mail: %w", err)
	}
	return envelope, nil
}

// ConfirmEmailChange updates the user's address only after both the change
// ticket (current address) and the new-address envelope check out.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, userID int64, req model.EmailChangeConfirmRequest) (*model.User, error) {
	newEmail := normalizeEmail(req.NewEmail)
	if newEmail == "" || req.Otp == "" || req.HashOtp == "" {
		return nil, ErrInvalidInput
	}

	if err := s.checkChangeTicket(userID, req.ChangeToken); err != nil {
		return nil, err
	}

	if _, err := s.creds.VerifyEnvelope(req.Otp, newEmail, req.HashOtp); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUser(ctx, userID, model.UserPatch{Email: &newEmail})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update email: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*Session, error) {
	accessToken, expiresIn, refreshToken, err := s.tokens.IssueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	scrubbed := *user
	scrubbed.PasswordHash = ""

	return &Session{
		User:         scrubbed,
		AccessToken:  accessToken,
		ExpiresIn:    expiresIn,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return ErrConflict
	}
	if !db.IsNoRows(err) {
		return fmt.Errorf("find user: %w", err)
	}
	return nil
}

func (s *AuthService) userWithPassword(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	withPassword, err := s.users.GetUserByEmailWithPassword(ctx, user.Email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return withPassword, nil
}

func (s *AuthService) checkChangeTicket(userID int64, ticket string) error {
	ticketUserID, err := s.tokens.ParseChangeTicket(ticket, emailChangePurpose)
	if err != nil {
		return err
	}
	if ticketUserID != userID {
		return ErrUnauthorized
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
