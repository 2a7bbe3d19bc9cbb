package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/metrics"
	"github.com/aura-securities/website-api/internal/service"
)

type ContactHandlers struct {
	contactService *service.ContactService
	logger         *logrus.Logger
}

func NewContactHandlers(contactService *service.ContactService, logger *logrus.Logger) *ContactHandlers {
	return &ContactHandlers{
		contactService: contactService,
		logger:         logger,
	}
}

type SubmitContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message"`
}

type SubmitContactResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId"`
}

func (h *ContactHandlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req SubmitContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	submissionID, err := h.contactService.SubmitForm(r.Context(), service.ContactForm{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Service: req.Service,
		Message: req.Message,
	})
	if err != nil {
		if errors.Is(err, domain.ErrMissingFields) {
			respondWithError(w, http.StatusBadRequest, "All fields are required")
			return
		}
		h.logger.WithError(err).Error("Failed to save contact submission")
		respondWithError(w, http.StatusInternalServerError, "Failed to submit form. Please try again.")
		return
	}

	metrics.ContactSubmissionsTotal.Inc()

	respondWithJSON(w, http.StatusOK, SubmitContactResponse{
		Success:      true,
		Message:      "Thanks! We will contact you shortly.",
		SubmissionID: submissionID,
	})
}
