package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/config"
)

// SessionService issues and verifies the short-lived tokens handed out
// after a successful admin login. Tokens are stateless: logout is
// client-side and expiry is the only revocation.
type SessionService struct {
	secretKey []byte
	expiry    time.Duration
	logger    *logrus.Logger
}

func NewSessionService(cfg *config.AdminConfig, logger *logrus.Logger) (*SessionService, error) {
	secretKey := []byte(cfg.SessionSecret)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}

	return &SessionService{
		secretKey: secretKey,
		expiry:    cfg.SessionExpiry,
		logger:    logger,
	}, nil
}

type SessionClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *SessionService) IssueToken() (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Type: "admin_session",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

func (s *SessionService) VerifyToken(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return fmt.Errorf("failed to parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid session token")
	}

	if claims.Type != "admin_session" {
		return fmt.Errorf("invalid session token type")
	}

	return nil
}
