package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/model"
	"github.com/authgate/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type stubTokenStore struct{}

func (s *stubTokenStore) CreateRefreshToken(ctx context.Context, userID int64, expiresAt time.Time) (*model.RefreshTokenRecord, error) {
	return &model.RefreshTokenRecord{ID: "stub", UserID: userID, ExpiresAt: expiresAt}, nil
}

func (s *stubTokenStore) GetRefreshTokenByID(ctx context.Context, tokenID string) (*model.RefreshTokenRecord, error) {
	return &model.RefreshTokenRecord{ID: tokenID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	return true, nil
}

func (s *stubTokenStore) DeleteRefreshTokensByUser(ctx context.Context, userID int64) error {
	return nil
}

func newTestTokenService(t *testing.T) *service.TokenService {
	t.Helper()
	tokens, err := service.NewTokenService(&stubTokenStore{}, config.AuthConfig{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
		AccessTTL:     "24h",
		RefreshTTL:    "8760h",
		CookieSecure:  "false",
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

func newTestRouter(tokens *service.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		user := GetAuthUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "role": user.Role})
	})
	router.GET("/admin", AuthMiddleware(tokens), RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newTestRouter(tokens)

	signed, _, err := tokens.SignAccessToken(42, model.RoleCustomer)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing-header", header: "", want: http.StatusUnauthorized},
		{name: "not-bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "empty-token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "garbage-token", header: "Bearer not.a.jwt", want: http.StatusUnauthorized},
		{name: "valid-token", header: "Bearer " + signed, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTestTokenService(t)
	router := newTestRouter(tokens)

	customerToken, _, err := tokens.SignAccessToken(1, model.RoleCustomer)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	adminToken, _, err := tokens.SignAccessToken(2, model.RoleAdmin)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "customer-forbidden", token: customerToken, want: http.StatusForbidden},
		{name: "admin-allowed", token: adminToken, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
