package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/db"
	"github.com/authgate/backend/internal/model"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OidcService implements federated login: a verified ID token from the
// configured provider maps onto a local user, created on first sight, and
// then goes through the same session issuance path as password login.
type OidcService struct {
	users    userStore
	auth     *AuthService
	creds    *CredentialService
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

func NewOidcService(ctx context.Context, users userStore, auth *AuthService, creds *CredentialService, cfg config.OidcConfig) (*OidcService, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("%w: OIDC_ISSUER_URL/OIDC_CLIENT_ID/OIDC_CLIENT_SECRET/OIDC_REDIRECT_URL are required", ErrMisconfigured)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}

	return &OidcService{
		users:    users,
		auth:     auth,
		creds:    creds,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func (s *OidcService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *OidcService) Login(ctx context.Context, code string) (*Session, error) {
	if code == "" {
		return nil, ErrInvalidInput
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, ErrUnauthorized
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, ErrUnauthorized
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrUnauthorized
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrUnauthorized
	}

	user, err := s.findOrCreateUser(ctx, normalizeEmail(claims.Email), claims.Name)
	if err != nil {
		return nil, err
	}

	return s.auth.issueSession(ctx, user)
}

func (s *OidcService) findOrCreateUser(ctx context.Context, email, name string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !db.IsNoRows(err) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if name == "" {
		name = email
	}

	// Federated accounts never log in with a password; store an
	// unguessable one so the row satisfies the same invariants.
	password, err := randomPassword()
	if err != nil {
		return nil, err
	}
	passwordHash, err := s.creds.HashPassword(password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.CreateUser(ctx, model.UserDraft{
		FullName:     name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleCustomer,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a race with a concurrent first login for the same subject.
			return s.users.GetUserByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func randomPassword() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
