package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mekaniku/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrMissingToken = errors.New("authorization header is missing")
	ErrTokenFormat  = errors.New("authorization header format must be 'Bearer {token}'")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload of both token kinds. Refresh tokens only carry
// UserID.
type Claims struct {
	UserID     string      `json:"userId"`
	Email      string      `json:"email,omitempty"`
	Role       models.Role `json:"role,omitempty"`
	WorkshopID string      `json:"workshopId,omitempty"`
	TokenType  string      `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.UserID, Email: c.Email, Role: c.Role, WorkshopID: c.WorkshopID}
}

// TokenManager issues and verifies HS256 access and refresh tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) IssuePair(actor models.Actor) (models.TokenPair, error) {
	access, err := m.sign(&Claims{
		UserID:     actor.ID,
		Email:      actor.Email,
		Role:       actor.Role,
		WorkshopID: actor.WorkshopID,
		TokenType:  tokenTypeAccess,
	}, m.accessSecret, m.accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := m.sign(&Claims{UserID: actor.ID, TokenType: tokenTypeRefresh}, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) sign(claims *Claims, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) ParseAccess(raw string) (*Claims, error) {
	return m.parse(raw, m.accessSecret, tokenTypeAccess)
}

func (m *TokenManager) ParseRefresh(raw string) (*Claims, error) {
	return m.parse(raw, m.refreshSecret, tokenTypeRefresh)
}

func (m *TokenManager) parse(raw string, secret []byte, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.TokenType != wantType || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExtractTokenFromRequest returns the bearer token from the Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrTokenFormat
	}
	return parts[1], nil
}
