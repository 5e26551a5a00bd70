package service

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/authgate/backend/internal/config"
)

func TestNewCredentialServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.OtpConfig
		wantErr bool
	}{
		{name: "valid", cfg: config.OtpConfig{HashSecret: "s", TTL: "10m"}},
		{name: "missing-secret", cfg: config.OtpConfig{TTL: "10m"}, wantErr: true},
		{name: "bad-ttl", cfg: config.OtpConfig{HashSecret: "s", TTL: "soon"}, wantErr: true},
		{name: "negative-ttl", cfg: config.OtpConfig{HashSecret: "s", TTL: "-1m"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCredentialService(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCredentialService() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMisconfigured) {
				t.Fatalf("expected ErrMisconfigured, got %v", err)
			}
		})
	}
}

func TestPasswordHashAndCompare(t *testing.T) {
	creds := testCredentialService(t)

	hash, err := creds.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash equals plaintext")
	}

	ok, err := creds.ComparePassword("s3cret-pass", hash)
	if err != nil || !ok {
		t.Fatalf("ComparePassword(correct) = %v, %v", ok, err)
	}

	ok, err = creds.ComparePassword("wrong-pass", hash)
	if err != nil {
		t.Fatalf("ComparePassword(wrong) err = %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}

	if _, err := creds.ComparePassword("anything", "not-a-bcrypt-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}

	if _, err := creds.HashPassword(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestGenerateOtpShape(t *testing.T) {
	creds := testCredentialService(t)

	for i := 0; i < 20; i++ {
		otp, err := creds.GenerateOtp()
		if err != nil {
			t.Fatalf("GenerateOtp: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("otp %q is not 6 digits", otp)
		}
		if _, err := strconv.Atoi(otp); err != nil {
			t.Fatalf("otp %q is not numeric", otp)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	creds := testCredentialService(t)

	envelope, _ := creds.MakeEnvelope("123456", "ann@x.com", "bcrypt-hash")
	if got := strings.Count(envelope, "#"); got != 2 {
		t.Fatalf("envelope has %d separators, want 2", got)
	}

	passwordHash, err := creds.VerifyEnvelope("123456", "ann@x.com", envelope)
	if err != nil {
		t.Fatalf("VerifyEnvelope: %v", err)
	}
	if passwordHash != "bcrypt-hash" {
		t.Fatalf("password hash = %q, want %q", passwordHash, "bcrypt-hash")
	}
}

func TestEnvelopeTamperDetection(t *testing.T) {
	creds := testCredentialService(t)
	envelope, _ := creds.MakeEnvelope("123456", "ann@x.com", "bcrypt-hash")
	parts := strings.Split(envelope, "#")

	tests := []struct {
		name     string
		otp      string
		email    string
		envelope string
	}{
		{name: "wrong-otp", otp: "654321", email: "ann@x.com", envelope: envelope},
		{name: "wrong-email", otp: "123456", email: "bob@x.com", envelope: envelope},
		{name: "tampered-expiry", otp: "123456", email: "ann@x.com",
			envelope: parts[0] + "#" + strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10) + "#" + parts[2]},
		{name: "tampered-password-hash", otp: "123456", email: "ann@x.com",
			envelope: parts[0] + "#" + parts[1] + "#other-hash"},
		{name: "tampered-digest", otp: "123456", email: "ann@x.com",
			envelope: strings.Repeat("0", len(parts[0])) + "#" + parts[1] + "#" + parts[2]},
		{name: "two-fields", otp: "123456", email: "ann@x.com", envelope: parts[0] + "#" + parts[1]},
		{name: "four-fields", otp: "123456", email: "ann@x.com", envelope: envelope + "#extra"},
		{name: "non-numeric-expiry", otp: "123456", email: "ann@x.com",
			envelope: parts[0] + "#tomorrow#" + parts[2]},
		{name: "empty", otp: "123456", email: "ann@x.com", envelope: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := creds.VerifyEnvelope(tt.otp, tt.email, tt.envelope); !errors.Is(err, ErrOtpInvalid) {
				t.Fatalf("VerifyEnvelope() err = %v, want ErrOtpInvalid", err)
			}
		})
	}
}

func TestEnvelopeExpiryBoundary(t *testing.T) {
	creds := testCredentialService(t)

	issued := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	creds.now = func() time.Time { return issued }
	envelope, expiresAt := creds.MakeEnvelope("123456", "ann@x.com", "bcrypt-hash")

	// Exactly at the deadline the envelope is still good.
	creds.now = func() time.Time { return expiresAt }
	if _, err := creds.VerifyEnvelope("123456", "ann@x.com", envelope); err != nil {
		t.Fatalf("verification at expiry failed: %v", err)
	}

	// One millisecond later it is expired, and distinctly so.
	creds.now = func() time.Time { return expiresAt.Add(time.Millisecond) }
	if _, err := creds.VerifyEnvelope("123456", "ann@x.com", envelope); !errors.Is(err, ErrOtpExpired) {
		t.Fatalf("err = %v, want ErrOtpExpired", err)
	}
}
