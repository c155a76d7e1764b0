package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	WorkshopIDForUser(ctx context.Context, userID string) (string, error)
}

type AuthService struct {
	DB          DBLayer
	Tokens      *TokenManager
	Revocations RevocationStore
	BcryptCost  int
	Logger      *logger.Logger
}

func NewAuthService(db DBLayer, tokens *TokenManager, revocations RevocationStore, bcryptCost int, log *logger.Logger) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{DB: db, Tokens: tokens, Revocations: revocations, BcryptCost: bcryptCost, Logger: log}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.DB.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperr.Conflict("User with this email already exists")
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           utils.GenerateID(),
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	tokens, err := s.Tokens.IssuePair(models.Actor{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.Logger.Info("AUTH", fmt.Sprintf("Registered user %s (%s)", user.ID, user.Role))
	return &models.AuthResponse{User: user, TokenPair: tokens}, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.DB.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if apperr.IsNotFound(err) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if user.DeletedAt != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.Logger.LogSecurity("LOGIN", fmt.Sprintf("Bad password for %s", user.ID))
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return s.issueFor(ctx, user)
}

func (s *AuthService) issueFor(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	actor := models.Actor{ID: user.ID, Email: user.Email, Role: user.Role}
	if user.Role == models.RoleWorkshop {
		workshopID, err := s.DB.WorkshopIDForUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		actor.WorkshopID = workshopID
	}

	tokens, err := s.Tokens.IssuePair(actor)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &models.AuthResponse{User: user, WorkshopID: actor.WorkshopID, TokenPair: tokens}, nil
}

// Refresh rotates a refresh token. The presented token is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}
	if s.Revocations != nil {
		revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if revoked {
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
	}

	user, err := s.DB.GetUserByID(ctx, claims.UserID)
	if apperr.IsNotFound(err) || (err == nil && user.DeletedAt != nil) {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}
	if err != nil {
		return nil, err
	}

	resp, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, claims)
	return resp, nil
}

func (s *AuthService) Me(ctx context.Context, actor models.Actor) (*models.AuthResponse, error) {
	user, err := s.DB.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user, WorkshopID: actor.WorkshopID}, nil
}

// Logout revokes the access token and, if given, the refresh token.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := s.Tokens.ParseAccess(accessToken); err == nil {
		s.revoke(ctx, claims)
	}
	if refreshToken != "" {
		if claims, err := s.Tokens.ParseRefresh(refreshToken); err == nil {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, claims *Claims) {
	if s.Revocations == nil || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.Revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("Failed to revoke token for %s: %v", claims.UserID, err))
	}
}
