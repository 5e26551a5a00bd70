package model

type SendOtpRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type SendOtpResponse struct {
	HashOtp string `json:"hashOtp"`
}

type VerifyOtpRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Otp      string `json:"otp"`
	HashOtp  string `json:"hashOtp"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        UserResponse `json:"user"`
}

type OidcLoginRequest struct {
	Code string `json:"code"`
}

// AuthUser is the identity attached to a request by the auth middleware.
type AuthUser struct {
	ID   int64
	Role Role
}

type EmailChangeVerifyRequest struct {
	Otp     string `json:"otp"`
	HashOtp string `json:"hashOtp"`
}

type EmailChangeTicketResponse struct {
	ChangeToken string `json:"changeToken"`
}

type EmailChangeSendNewRequest struct {
	ChangeToken string `json:"changeToken"`
	NewEmail    string `json:"newEmail"`
}

type EmailChangeConfirmRequest struct {
	ChangeToken string `json:"changeToken"`
	NewEmail    string `json:"newEmail"`
	Otp         string `json:"otp"`
	HashOtp     string `json:"hashOtp"`
}

type UpdateProfileRequest struct {
	FullName string `json:"fullName"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role"`
}
