package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/client"
	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/models"
	"github.com/aura-securities/website-api/internal/repository"
)

type ContactService struct {
	submissionRepo repository.SubmissionRepository
	slack          *client.SlackClient
	logger         *logrus.Logger
}

func NewContactService(
	submissionRepo repository.SubmissionRepository,
	slack *client.SlackClient,
	logger *logrus.Logger,
) *ContactService {
	return &ContactService{
		submissionRepo: submissionRepo,
		slack:          slack,
		logger:         logger,
	}
}

type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Message string
}

// SubmitForm persists a contact-form entry and pings the admin channel.
func (s *ContactService) SubmitForm(ctx context.Context, form ContactForm) (string, error) {
	if form.Name == "" || form.Email == "" || form.Phone == "" || form.Service == "" || form.Message == "" {
		return "", domain.ErrMissingFields
	}

	submission := &models.ContactSubmission{
		ID:        uuid.NewString(),
		Name:      form.Name,
		Email:     form.Email,
		Phone:     form.Phone,
		Service:   form.Service,
		Message:   form.Message,
		Status:    models.SubmissionStatusNew,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"name":  submission.Name,
		"email": submission.Email,
	}).Info("New contact submission saved")
	s.notifySubmission(submission)

	return submission.ID, nil
}

func (s *ContactService) notifySubmission(submission *models.ContactSubmission) {
	if s.slack == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		text := fmt.Sprintf(
			"New Contact Form Submission!\n\nName: %s\nEmail: %s\nPhone: %s\nService: %s\nMessage: %s\n\nTime: %s",
			submission.Name, submission.Email, submission.Phone,
			submission.Service, submission.Message,
			time.Now().Format(time.RFC1123),
		)
		if err := s.slack.Notify(ctx, text); err != nil {
			s.logger.WithError(err).Warn("Failed to notify admin about contact submission")
		}
	}()
}
