package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	HandleIssuer   = "event-storefront"
	HandleDuration = 2 * time.Hour
)

var (
	ErrInvalidHandle = errors.New("invalid checkout handle")
	ErrHandleExpired = fmt.Errorf("%w: expired", ErrInvalidHandle)
)

// HandleClaims name the session and attempt a checkout handle belongs to.
type HandleClaims struct {
	SessionID string `json:"sid"`
	AttemptID string `json:"aid"`
	jwt.RegisteredClaims
}

// HandleSigner issues and verifies checkout handles. A handle is the only
// thing the widget callback carries back, so it must be unforgeable.
type HandleSigner struct {
	secretKey []byte
	issuer    string
	duration  time.Duration
	now       func() time.Time
}

func NewHandleSigner(secretKey string) *HandleSigner {
	return &HandleSigner{
		secretKey: []byte(secretKey),
		issuer:    HandleIssuer,
		duration:  HandleDuration,
		now:       time.Now,
	}
}

func (s *HandleSigner) Sign(sessionID, attemptID string) (string, error) {
	now := s.now()
	claims := HandleClaims{
		SessionID: sessionID,
		AttemptID: attemptID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ID:        attemptID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("error signing checkout handle: %w", err)
	}
	return signed, nil
}

func (s *HandleSigner) Verify(handle string) (*HandleClaims, error) {
	token, err := jwt.ParseWithClaims(handle, &HandleClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrHandleExpired
		}
		return nil, ErrInvalidHandle
	}

	claims, ok := token.Claims.(*HandleClaims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.AttemptID == "" {
		return nil, ErrInvalidHandle
	}
	return claims, nil
}
