package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpTTL         = 5 * time.Minute
	otpResendAfter = 60 * time.Second
	otpMaxAttempts = 5
)

var (
	ErrOTPTooSoon     = errors.New("a code was sent recently, wait before requesting another")
	ErrOTPNotFound    = errors.New("no code pending for this phone, request a new one")
	ErrOTPMismatch    = errors.New("incorrect code")
	ErrOTPMaxAttempts = errors.New("too many incorrect attempts, request a new code")
)

// OTPStore issues and verifies one-time login codes backed by redis.
// Codes are single-use, expire after 5 minutes and allow 5 verify
// attempts.
type OTPStore struct {
	rdb *redis.Client
}

func NewOTPStore(rdb *redis.Client) *OTPStore {
	return &OTPStore{rdb: rdb}
}

func codeKey(phone string) string     { return fmt.Sprintf("otp:%s", phone) }
func resendKey(phone string) string   { return fmt.Sprintf("otp:resend:%s", phone) }
func attemptsKey(phone string) string { return fmt.Sprintf("otp:attempts:%s", phone) }

// GenerateCode produces a random 6-digit code, zero-padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue creates and stores a fresh code for the phone. Re-issuing within
// the resend window is rejected so the SMS channel cannot be spammed.
func (s *OTPStore) Issue(ctx context.Context, phone string) (string, error) {
	ok, err := s.rdb.SetNX(ctx, resendKey(phone), "1", otpResendAfter).Result()
	if err != nil {
		return "", fmt.Errorf("otp resend guard: %w", err)
	}
	if !ok {
		return "", ErrOTPTooSoon
	}

	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, codeKey(phone), code, otpTTL)
	pipe.Del(ctx, attemptsKey(phone))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("otp store: %w", err)
	}

	return code, nil
}

// Verify checks the submitted code. On success the code is consumed; it
// cannot be used twice. Wrong codes burn an attempt; after the attempt cap
// the code is invalidated entirely.
func (s *OTPStore) Verify(ctx context.Context, phone, code string) error {
	stored, err := s.rdb.Get(ctx, codeKey(phone)).Result()
	if err == redis.Nil {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("otp lookup: %w", err)
	}

	if stored != code {
		attempts, err := s.rdb.Incr(ctx, attemptsKey(phone)).Result()
		if err != nil {
			return fmt.Errorf("otp attempts: %w", err)
		}
		s.rdb.Expire(ctx, attemptsKey(phone), otpTTL)
		if attempts >= otpMaxAttempts {
			s.rdb.Del(ctx, codeKey(phone), attemptsKey(phone))
			return ErrOTPMaxAttempts
		}
		return ErrOTPMismatch
	}

	s.rdb.Del(ctx, codeKey(phone), attemptsKey(phone), resendKey(phone))
	return nil
}
