package client

import (
	"context"
	"log"
)

// Mailer delivers one-time passcodes out-of-band. The passcode must never
// travel back to the caller in an HTTP response; this is the only way out.
type Mailer interface {
	SendOtp(ctx context.Context, email, otp string) error
}

// LogMailer is the development stand-in for a real delivery provider. It
// logs the recipient only; the code itself stays out of the logs.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendOtp(ctx context.Context, email, otp string) error {
	log.Printf("otp mail queued for %s", email)
	return nil
}
