package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/metrics"
	"github.com/aura-securities/website-api/internal/service"
)

type OTPHandlers struct {
	otpService *service.OTPService
	logger     *logrus.Logger
}

func NewOTPHandlers(otpService *service.OTPService, logger *logrus.Logger) *OTPHandlers {
	return &OTPHandlers{
		otpService: otpService,
		logger:     logger,
	}
}

type SendOTPRequest struct {
	CountryCode string `json:"countryCode"`
	Mobile      string `json:"mobile"`
}

type SendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type VerifyOTPRequest struct {
	CountryCode string `json:"countryCode"`
	Mobile      string `json:"mobile"`
	OTP         string `json:"otp"`
}

type VerifyOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ContactID string `json:"contactId"`
}

func (h *OTPHandlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	countryCode := strings.TrimSpace(req.CountryCode)
	mobile := strings.TrimSpace(req.Mobile)

	delivered, err := h.otpService.RequestOTP(r.Context(), countryCode, mobile)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMobile) {
			respondWithError(w, http.StatusBadRequest, "Please enter a valid 10-digit mobile number")
			return
		}
		h.logger.WithError(err).Error("Failed to issue OTP")
		respondWithError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	metrics.OTPRequestsTotal.Inc()

	message := "OTP sent to your phone successfully!"
	if !delivered {
		metrics.SMSSendFailuresTotal.Inc()
		message = "OTP generated (check console for testing)"
	}

	respondWithJSON(w, http.StatusOK, SendOTPResponse{
		Success: true,
		Message: message,
	})
}

func (h *OTPHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	countryCode := strings.TrimSpace(req.CountryCode)
	mobile := strings.TrimSpace(req.Mobile)
	code := strings.TrimSpace(req.OTP)

	contactID, err := h.otpService.VerifyOTP(r.Context(), countryCode, mobile, code)
	if err != nil {
		h.respondVerifyFailure(w, err)
		return
	}

	metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()
	respondWithJSON(w, http.StatusOK, VerifyOTPResponse{
		Success:   true,
		Message:   "Phone verified successfully!",
		ContactID: contactID,
	})
}

func (h *OTPHandlers) respondVerifyFailure(w http.ResponseWriter, err error) {
	var wrongCode *domain.WrongCodeError

	switch {
	case errors.Is(err, domain.ErrInvalidOTP):
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		respondWithError(w, http.StatusBadRequest, "Please enter a valid 4-digit OTP")
	case errors.Is(err, domain.ErrOTPNotFound):
		metrics.OTPVerificationsTotal.WithLabelValues("not_found").Inc()
		respondWithError(w, http.StatusBadRequest, "OTP not found. Please request a new one.")
	case errors.Is(err, domain.ErrOTPExpired):
		metrics.OTPVerificationsTotal.WithLabelValues("expired").Inc()
		respondWithError(w, http.StatusBadRequest, "OTP expired. Please request a new one.")
	case errors.Is(err, domain.ErrTooManyAttempts):
		metrics.OTPVerificationsTotal.WithLabelValues("exhausted").Inc()
		respondWithError(w, http.StatusBadRequest, "Too many wrong attempts. Please request a new OTP.")
	case errors.As(err, &wrongCode):
		metrics.OTPVerificationsTotal.WithLabelValues("mismatch").Inc()
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Wrong OTP! You have %d attempt(s) left.", wrongCode.Remaining))
	default:
		h.logger.WithError(err).Error("Failed to verify OTP")
		respondWithError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
