package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/authgate/backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpDigits         = 6
	envelopeSeparator = "#"
	envelopeFields    = 3
)

// CredentialService owns password hashing and the stateless OTP envelope.
// The envelope round-trips through the client between send and verify, so
// nothing about a pending registration is stored server-side; the keyed
// digest is what makes tampering with the expiry or password hash visible.
type CredentialService struct {
	hashSecret []byte
	otpTTL     time.Duration
	now        func() time.Time
}

func NewCredentialService(cfg config.OtpConfig) (*CredentialService, error) {
	if cfg.HashSecret == "" {
		return nil, fmt.Errorf("%w: OTP_HASH_SECRET is required", ErrMisconfigured)
	}

	ttl, err := time.ParseDuration(cfg.TTL)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("%w: invalid OTP_TTL", ErrMisconfigured)
	}

	return &CredentialService{
		hashSecret: []byte(cfg.HashSecret),
		otpTTL:     ttl,
		now:        time.Now,
	}, nil
}

func (s *CredentialService) HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty password", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword returns false on a plain mismatch and errors only on a
// malformed stored hash.
func (s *CredentialService) ComparePassword(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

func (s *CredentialService) GenerateOtp() (string, error) {
	bound := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

// MakeEnvelope builds the round-tripped OTP proof:
// <hexDigest>#<expiresAtEpochMs>#<passwordHash>.
func (s *CredentialService) MakeEnvelope(otp, email, passwordHash string) (string, time.Time) {
	expiresAt := s.now().Add(s.otpTTL)
	ms := expiresAt.UnixMilli()
	digest := s.hashProof(otp, email, ms, passwordHash)
	return strings.Join([]string{digest, strconv.FormatInt(ms, 10), passwordHash}, envelopeSeparator), expiresAt
}

// VerifyEnvelope checks structure, expiry, then the keyed digest, and on
// success returns the password hash the envelope carried. Expiry is checked
// before the digest so the caller can distinguish a resend-worthy timeout,
// but no other detail about which field mismatched ever leaks.
func (s *CredentialService) VerifyEnvelope(otp, email, envelope string) (string, error) {
	parts := strings.Split(envelope, envelopeSeparator)
	if len(parts) != envelopeFields {
		return "", ErrOtpInvalid
	}
	digest, expiresRaw, passwordHash := parts[0], parts[1], parts[2]

	ms, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return "", ErrOtpInvalid
	}
	if s.now().UnixMilli() > ms {
		return "", ErrOtpExpired
	}

	expected := s.hashProof(otp, email, ms, passwordHash)
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return "", ErrOtpInvalid
	}
	return passwordHash, nil
}

func (s *CredentialService) hashProof(otp, email string, expiresAtMs int64, passwordHash string) string {
	mac := hmac.New(sha256.New, s.hashSecret)
	fmt.Fprintf(mac, "%s.%s.%d.%s", otp, email, expiresAtMs, passwordHash)
	return hex.EncodeToString(mac.Sum(nil))
}
