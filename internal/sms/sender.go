package sms

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/aura-securities/website-api/internal/config"
)

// Sender delivers a verification code to a phone number. Delivery is
// best-effort from the caller's point of view.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

type twilioSender struct {
	client    *twilio.RestClient
	fromPhone string
	logger    *logrus.Logger
}

func NewTwilioSender(cfg *config.TwilioConfig, logger *logrus.Logger) Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &twilioSender{
		client:    client,
		fromPhone: cfg.FromPhone,
		logger:    logger,
	}
}

func (s *twilioSender) SendCode(ctx context.Context, phone, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.fromPhone)
	params.SetBody(fmt.Sprintf("Your AURA Securities verification code is: %s. Valid for 5 minutes. Do not share this code with anyone.", code))

	_, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS via twilio: %w", err)
	}

	s.logger.WithField("phone", phone).Info("Verification SMS sent")
	return nil
}

// logSender is the development fallback used when Twilio is not
// configured. It prints the code instead of sending anything.
type logSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) Sender {
	return &logSender{logger: logger}
}

func (s *logSender) SendCode(ctx context.Context, phone, code string) error {
	s.logger.WithFields(logrus.Fields{
		"phone": phone,
		"code":  code,
	}).Info("SMS sending disabled, verification code logged for testing")
	return nil
}
