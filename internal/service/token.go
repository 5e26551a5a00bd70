package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/db"
	"github.com/authgate/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const (
	refreshCookieName = "authgate_refresh"
	changeTicketTTL   = 10 * time.Minute
)

type tokenStore interface {
	CreateRefreshToken(ctx context.Context, userID int64, expiresAt time.Time) (*model.RefreshTokenRecord, error)
	GetRefreshTokenByID(ctx context.Context, tokenID string) (*model.RefreshTokenRecord, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) (bool, error)
	DeleteRefreshTokensByUser(ctx context.Context, userID int64) error
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// TokenService signs and verifies both token kinds and owns the refresh
// record lifecycle. Access and refresh tokens use distinct secrets so a
// leak of one does not compromise the other.
type TokenService struct {
	store         tokenStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	cookieCfg     CookieConfig
	now           func() time.Time
}

type accessClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Role    model.Role `json:"role"`
	TokenID string     `json:"tokenId"`
	jwt.RegisteredClaims
}

type changeTicketClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func NewTokenService(store tokenStore, cfg config.AuthConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%w: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required", ErrMisconfigured)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ACCESS_TOKEN_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid REFRESH_TOKEN_TTL", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &TokenService{
		store:         store,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(refreshTTL.Seconds()),
		},
		now: time.Now,
	}, nil
}

func (s *TokenService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *TokenService) SignAccessToken(userID int64, role model.Role) (string, int64, error) {
	now := s.now()
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

func (s *TokenService) SignRefreshToken(userID int64, role model.Role, tokenID string) (string, error) {
	now := s.now()
	claims := refreshClaims{
		Role:    role,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
}

// IssueSession persists the revocable record first and only then signs the
// refresh token around its id; no token ever reaches a client without a
// record backing it.
func (s *TokenService) IssueSession(ctx context.Context, user *model.User) (accessToken string, expiresIn int64, refreshToken string, err error) {
	record, err := s.store.CreateRefreshToken(ctx, user.ID, s.now().Add(s.refreshTTL))
	if err != nil {
		return "", 0, "", fmt.Errorf("save refresh token: %w", err)
	}

	accessToken, expiresIn, err = s.SignAccessToken(user.ID, user.Role)
	if err != nil {
		return "", 0, "", err
	}

	refreshToken, err = s.SignRefreshToken(user.ID, user.Role, record.ID)
	if err != nil {
		return "", 0, "", err
	}

	return accessToken, expiresIn, refreshToken, nil
}

func (s *TokenService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.accessSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{ID: userID, Role: claims.Role}, nil
}

// ParseRefreshToken verifies the signature and expiry only; the caller is
// responsible for checking that the embedded record id still exists.
func (s *TokenService) ParseRefreshToken(tokenStr string) (userID int64, role model.Role, tokenID string, err error) {
	claims := &refreshClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.refreshSecret, nil
	})
	if err != nil || !token.Valid || claims.TokenID == "" {
		return 0, "", "", ErrUnauthorized
	}

	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", "", ErrUnauthorized
	}

	return userID, claims.Role, claims.TokenID, nil
}

// CheckRefreshRecord rejects refresh tokens whose record was revoked, even
// when the token itself is still signature- and expiry-valid.
func (s *TokenService) CheckRefreshRecord(ctx context.Context, tokenID string) error {
	record, err := s.store.GetRefreshTokenByID(ctx, tokenID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrUnauthorized
		}
		return err
	}
	if s.now().After(record.ExpiresAt) {
		return ErrUnauthorized
	}
	return nil
}

// DeleteToken revokes a session record. A missing record is reported via
// found=false, not an error, so logout can still clear client state.
func (s *TokenService) DeleteToken(ctx context.Context, tokenID string) (bool, error) {
	return s.store.DeleteRefreshToken(ctx, tokenID)
}

// RevokeUserSessions drops every refresh record for the user, ending all
// of their sessions at once.
func (s *TokenService) RevokeUserSessions(ctx context.Context, userID int64) error {
	return s.store.DeleteRefreshTokensByUser(ctx, userID)
}

func (s *TokenService) SignChangeTicket(userID int64, purpose string) (string, error) {
	now := s.now()
	claims := changeTicketClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(changeTicketTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
}

func (s *TokenService) ParseChangeTicket(tokenStr, purpose string) (int64, error) {
	claims := &changeTicketClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.accessSecret, nil
	})
	if err != nil || !token.Valid || claims.Purpose != purpose {
		return 0, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrUnauthorized
	}
	return userID, nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}
