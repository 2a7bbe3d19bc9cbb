package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/client"
	"github.com/aura-securities/website-api/internal/config"
	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/models"
	"github.com/aura-securities/website-api/internal/repository"
	"github.com/aura-securities/website-api/internal/sms"
)

var (
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
	codePattern   = regexp.MustCompile(`^\d{4}$`)
)

type OTPService struct {
	otpRepo     repository.OTPRepository
	contactRepo repository.ContactRepository
	sender      sms.Sender
	slack       *client.SlackClient
	cfg         *config.OTPConfig
	logger      *logrus.Logger
}

func NewOTPService(
	otpRepo repository.OTPRepository,
	contactRepo repository.ContactRepository,
	sender sms.Sender,
	slack *client.SlackClient,
	cfg *config.OTPConfig,
	logger *logrus.Logger,
) *OTPService {
	return &OTPService{
		otpRepo:     otpRepo,
		contactRepo: contactRepo,
		sender:      sender,
		slack:       slack,
		cfg:         cfg,
		logger:      logger,
	}
}

// RequestOTP issues a fresh challenge for the phone number, invalidating
// any prior one. The persisted record is the source of truth: SMS
// delivery is best-effort and a failed dispatch is reported through the
// delivered flag, never as an error.
func (s *OTPService) RequestOTP(ctx context.Context, countryCode, mobile string) (delivered bool, err error) {
	if !mobilePattern.MatchString(mobile) {
		return false, domain.ErrInvalidMobile
	}

	now := time.Now().UTC()

	// Opportunistic garbage collection of expired challenges.
	if err := s.otpRepo.PurgeExpired(ctx, now); err != nil {
		s.logger.WithError(err).Warn("Failed to purge expired OTP attempts")
	}

	if err := s.otpRepo.DeleteByPhone(ctx, countryCode, mobile); err != nil {
		return false, fmt.Errorf("failed to invalidate prior OTP attempts: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return false, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	attempt := &models.OtpAttempt{
		ID:          uuid.NewString(),
		CountryCode: countryCode,
		Mobile:      mobile,
		Code:        code,
		Attempts:    0,
		Verified:    false,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Expiry),
	}

	if err := s.otpRepo.Create(ctx, attempt); err != nil {
		return false, err
	}

	fullPhone := countryCode + mobile
	if err := s.sender.SendCode(ctx, fullPhone, code); err != nil {
		// The challenge stays valid and checkable; log the code so it
		// can still be used in environments without SMS delivery.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"phone": fullPhone,
			"code":  code,
		}).Error("Failed to send OTP SMS, code logged for testing")
		return false, nil
	}

	return true, nil
}

// VerifyOTP checks a submitted code against the active challenge for the
// phone number. Failure checks run in a fixed order: not-found, expired,
// too-many-attempts, mismatch. On success the challenge is kept as an
// audit record and the phone number is promoted to a verified contact.
func (s *OTPService) VerifyOTP(ctx context.Context, countryCode, mobile, code string) (string, error) {
	if !codePattern.MatchString(code) {
		return "", domain.ErrInvalidOTP
	}

	attempt, err := s.otpRepo.LatestUnverified(ctx, countryCode, mobile)
	if err != nil {
		return "", err
	}
	if attempt == nil {
		return "", domain.ErrOTPNotFound
	}

	now := time.Now().UTC()

	if attempt.IsExpired(now) {
		if err := s.otpRepo.Delete(ctx, attempt); err != nil {
			s.logger.WithError(err).Warn("Failed to delete expired OTP attempt")
		}
		return "", domain.ErrOTPExpired
	}

	if attempt.Attempts >= s.cfg.MaxAttempts {
		if err := s.otpRepo.Delete(ctx, attempt); err != nil {
			s.logger.WithError(err).Warn("Failed to delete exhausted OTP attempt")
		}
		return "", domain.ErrTooManyAttempts
	}

	if attempt.Code != code {
		attempts, err := s.otpRepo.IncrementAttempts(ctx, attempt)
		if err != nil {
			return "", err
		}
		return "", &domain.WrongCodeError{Remaining: s.cfg.MaxAttempts - attempts}
	}

	if err := s.otpRepo.MarkVerified(ctx, attempt); err != nil {
		return "", err
	}

	contact, err := s.contactRepo.Upsert(ctx, countryCode, mobile, now)
	if err != nil {
		return "", err
	}

	s.logger.WithField("phone", countryCode+mobile).Info("Contact verified and saved")
	s.notifyVerified(countryCode, mobile)

	return contact.ID, nil
}

// notifyVerified pings the admin Slack channel without blocking the
// verification result.
func (s *OTPService) notifyVerified(countryCode, mobile string) {
	if s.slack == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		text := fmt.Sprintf("New Contact Verified!\nPhone: %s%s\nTime: %s",
			countryCode, mobile, time.Now().Format(time.RFC1123))
		if err := s.slack.Notify(ctx, text); err != nil {
			s.logger.WithError(err).Warn("Failed to notify admin about verified contact")
		}
	}()
}

// generateCode draws a uniformly random code in [1000, 9999]. Codes with
// leading zeros are deliberately excluded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
