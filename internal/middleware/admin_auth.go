package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/service"
)

// AdminAuthMiddleware gates the admin read endpoints. The credential is
// a shared secret: either the configured API key presented verbatim as
// a bearer token, or a session token previously issued for that key.
type AdminAuthMiddleware struct {
	apiKey         string
	sessionService *service.SessionService
	logger         *logrus.Logger
}

func NewAdminAuthMiddleware(apiKey string, sessionService *service.SessionService, logger *logrus.Logger) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		apiKey:         apiKey,
		sessionService: sessionService,
		logger:         logger,
	}
}

func (m *AdminAuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w)
			return
		}

		credential := parts[1]

		if subtle.ConstantTimeCompare([]byte(credential), []byte(m.apiKey)) == 1 {
			next.ServeHTTP(w, r)
			return
		}

		if m.sessionService != nil {
			if err := m.sessionService.VerifyToken(credential); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		m.logger.WithField("path", r.URL.Path).Debug("Admin credential rejected")
		m.respondUnauthorized(w)
	})
}

func (m *AdminAuthMiddleware) respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Unauthorized"}`))
}
