package handler

import (
	"errors"
	"net/http"

	"github.com/authgate/backend/internal/model"
	"github.com/authgate/backend/internal/obs"
	"github.com/authgate/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc    *service.AuthService
	tokens *service.TokenService
	oidc   *service.OidcService
}

func NewAuthHandler(svc *service.AuthService, tokens *service.TokenService, oidc *service.OidcService) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens, oidc: oidc}
}

// SendOtp godoc
// @Summary Start registration
// @Description Mails a one-time passcode and returns the verification envelope.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.SendOtpRequest true "Registration details"
// @Success 200 {object} model.SendOtpResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/register/send-otp [post]
func (h *AuthHandler) SendOtp(c *gin.Context) {
	var req model.SendOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	envelope, err := h.svc.SendOtp(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SendOtpResponse{HashOtp: envelope})
}

// VerifyOtp godoc
// @Summary Finish registration
// @Description Verifies the passcode and envelope, creates the account and issues a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.VerifyOtpRequest true "Passcode and envelope"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 410 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/register/verify [post]
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	var req model.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.svc.VerifyOtp(c.Request.Context(), req)
	if err != nil {
		obs.RecordOtpVerification("failure")
		writeAuthError(c, err)
		return
	}
	obs.RecordOtpVerification("success")

	h.setRefreshCookie(c, session.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		User:        model.ToUserResponse(&session.User),
	})
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		obs.RecordLogin("failure")
		writeAuthError(c, err)
		return
	}
	obs.RecordLogin("success")

	h.setRefreshCookie(c, session.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		User:        model.ToUserResponse(&session.User),
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Uses the refresh token cookie; rejected once the session is revoked.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.tokens.CookieConfig().Name)
	accessToken, expiresIn, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the refresh session record and clears the cookie either way.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthLogoutResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.tokens.CookieConfig().Name)
	_ = h.svc.Logout(c.Request.Context(), refreshToken)
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, model.AuthLogoutResponse{Status: "logged_out"})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	authUser := GetAuthUser(c)
	if authUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.svc.Me(c.Request.Context(), authUser.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ToUserResponse(user))
}

// OidcURL godoc
// @Summary Get federated login URL
// @Tags auth
// @Produce json
// @Param state query string true "Opaque client state"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/oidc/url [get]
func (h *AuthHandler) OidcURL(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "oidc not configured"})
		return
	}
	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.oidc.AuthURL(state)})
}

// OidcLogin godoc
// @Summary Federated login
// @Description Exchanges the provider code, verifies the ID token and issues a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.OidcLoginRequest true "Authorization code"
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/oidc/login [post]
func (h *AuthHandler) OidcLogin(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "oidc not configured"})
		return
	}

	var req model.OidcLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.oidc.Login(c.Request.Context(), req.Code)
	if err != nil {
		obs.RecordLogin("failure")
		writeAuthError(c, err)
		return
	}
	obs.RecordLogin("success")

	h.setRefreshCookie(c, session.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		User:        model.ToUserResponse(&session.User),
	})
}

// SendEmailChangeOtp godoc
// @Summary Start email change
// @Tags account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SendOtpResponse
// @Router /api/v1/account/email/send-otp [post]
func (h *AuthHandler) SendEmailChangeOtp(c *gin.Context) {
	authUser := GetAuthUser(c)
	if authUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	envelope, err := h.svc.SendEmailChangeOtp(c.Request.Context(), authUser.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SendOtpResponse{HashOtp: envelope})
}

// VerifyEmailChangeOtp godoc
// @Summary Verify current address
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.EmailChangeVerifyRequest true "Passcode and envelope"
// @Success 200 {object} model.EmailChangeTicketResponse
// @Router /api/v1/account/email/verify-otp [post]
func (h *AuthHandler) VerifyEmailChangeOtp(c *gin.Context) {
	authUser := GetAuthUser(c)
	if authUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.EmailChangeVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ticket, err := h.svc.VerifyEmailChangeOtp(c.Request.Context(), authUser.ID, req)
	if err != nil {
		obs.RecordOtpVerification("failure")
		writeAuthError(c, err)
		return
	}
	obs.RecordOtpVerification("success")
	c.JSON(http.StatusOK, model.EmailChangeTicketResponse{ChangeToken: ticket})
}

// SendNewEmailOtp godoc
// @Summary Send passcode to new address
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.EmailChangeSendNewRequest true "Change ticket and new email"
// @Success 200 {object} model.SendOtpResponse
// @Router /api/v1/account/email/send-new-otp [post]
func (h *AuthHandler) SendNewEmailOtp(c *gin.Context) {
	authUser := GetAuthUser(c)
	if authUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.EmailChangeSendNewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	envelope, err := h.svc.SendNewEmailOtp(c.Request.Context(), authUser.ID, req)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SendOtpResponse{HashOtp: envelope})
}

// ConfirmEmailChange godoc
// @Summary Confirm email change
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.EmailChangeConfirmRequest true "Ticket, passcode and envelope"
// @Success 200 {object} model.UserResponse
// @Router /api/v1/account/email/confirm [post]
func (h *AuthHandler) ConfirmEmailChange(c *gin.Context) {
	authUser := GetAuthUser(c)
	if authUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.EmailChangeConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.svc.ConfirmEmailChange(c.Request.Context(), authUser.ID, req)
	if err != nil {
		obs.RecordOtpVerification("failure")
		writeAuthError(c, err)
		return
	}
	obs.RecordOtpVerification("success")
	c.JSON(http.StatusOK, model.ToUserResponse(user))
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	cfg := h.tokens.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.tokens.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, service.ErrOtpInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "otp invalid"})
	case errors.Is(err, service.ErrOtpExpired):
		c.JSON(http.StatusGone, gin.H{"error": "otp expired"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
