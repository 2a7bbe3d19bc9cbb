package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/models"
	"github.com/aura-securities/website-api/internal/repository"
	"github.com/aura-securities/website-api/internal/service"
)

type AdminHandlers struct {
	contactRepo    repository.ContactRepository
	submissionRepo repository.SubmissionRepository
	sessionService *service.SessionService
	apiKey         string
	logger         *logrus.Logger
}

func NewAdminHandlers(
	contactRepo repository.ContactRepository,
	submissionRepo repository.SubmissionRepository,
	sessionService *service.SessionService,
	apiKey string,
	logger *logrus.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		contactRepo:    contactRepo,
		submissionRepo: submissionRepo,
		sessionService: sessionService,
		apiKey:         apiKey,
		logger:         logger,
	}
}

type LoginRequest struct {
	APIKey string `json:"apiKey"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

type ListContactsResponse struct {
	Success  bool                     `json:"success"`
	Total    int                      `json:"total"`
	Contacts []models.VerifiedContact `json:"contacts"`
}

type ListSubmissionsResponse struct {
	Success     bool                       `json:"success"`
	Total       int                        `json:"total"`
	Submissions []models.ContactSubmission `json:"submissions"`
}

type UpdateSubmissionRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type UpdateSubmissionResponse struct {
	Success    bool                      `json:"success"`
	Submission *models.ContactSubmission `json:"submission"`
}

// Login exchanges the admin API key for a short-lived session token.
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.APIKey == "" || subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.apiKey)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	token, err := h.sessionService.IssueToken()
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue admin session token")
		respondWithError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Authenticated successfully",
		Token:   token,
	})
}

// Session reports whether a presented session token is still valid.
func (h *AdminHandlers) Session(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		respondWithJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
		return
	}

	if err := h.sessionService.VerifyToken(parts[1]); err != nil {
		respondWithJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
		return
	}

	respondWithJSON(w, http.StatusOK, SessionResponse{Authenticated: true})
}

// ListContacts returns every verified contact, newest verification
// first. Reached only through the admin gate.
func (h *AdminHandlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactRepo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list verified contacts")
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch contacts")
		return
	}

	respondWithJSON(w, http.StatusOK, ListContactsResponse{
		Success:  true,
		Total:    len(contacts),
		Contacts: contacts,
	})
}

func (h *AdminHandlers) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionRepo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list contact submissions")
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch submissions")
		return
	}

	respondWithJSON(w, http.StatusOK, ListSubmissionsResponse{
		Success:     true,
		Total:       len(submissions),
		Submissions: submissions,
	})
}

func (h *AdminHandlers) UpdateSubmission(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID == "" || req.Status == "" {
		respondWithError(w, http.StatusBadRequest, "ID and status are required")
		return
	}

	submission, err := h.submissionRepo.UpdateStatus(r.Context(), req.ID, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionNotFound) {
			respondWithError(w, http.StatusNotFound, "Submission not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update contact submission")
		respondWithError(w, http.StatusInternalServerError, "Failed to update submission")
		return
	}

	respondWithJSON(w, http.StatusOK, UpdateSubmissionResponse{
		Success:    true,
		Submission: submission,
	})
}
