package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	actorKey  contextKey = "actor"
)

// Authenticator verifies bearer tokens issued by TokenManager and, when
// configured, ID tokens from an OIDC provider.
type Authenticator struct {
	Tokens      *TokenManager
	OIDC        *OIDCVerifier
	Revocations RevocationStore
	Logger      *logger.Logger
}

func (a *Authenticator) Authenticate(ctx context.Context, raw string) (models.Actor, error) {
	claims, err := a.Tokens.ParseAccess(raw)
	if err == nil {
		if a.Revocations != nil {
			revoked, rerr := a.Revocations.IsRevoked(ctx, claims.ID)
			if rerr != nil {
				a.Logger.Warn("SECURITY", fmt.Sprintf("Revocation check failed: %v", rerr))
			} else if revoked {
				return models.Actor{}, ErrTokenInvalid
			}
		}
		return claims.Actor(), nil
	}
	if errors.Is(err, ErrTokenExpired) || a.OIDC == nil {
		return models.Actor{}, err
	}
	return a.OIDC.Verify(ctx, raw)
}

func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, apperr.Unauthorized("Missing or invalid token"))
				return
			}

			actor, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				a.Logger.LogSecurity("AUTH", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err))
				if errors.Is(err, ErrTokenExpired) {
					utils.WriteError(w, apperr.Unauthorized("Token expired"))
					return
				}
				utils.WriteError(w, apperr.Unauthorized("Invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	ctx = context.WithValue(ctx, userIDKey, actor.ID)
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}

// RequestActor returns the authenticated actor or an Unauthorized error.
func RequestActor(r *http.Request) (models.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor.ID == "" {
		return models.Actor{}, apperr.Unauthorized("Authentication required")
	}
	return actor, nil
}

func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				utils.WriteError(w, apperr.Unauthorized("Authentication required"))
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, apperr.Forbidden(fmt.Sprintf("Access denied. Required roles: %v", roles)))
		})
	}
}

// StaffChecker answers whether a user owns or works at a workshop.
type StaffChecker interface {
	IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error)
}

// RequireWorkshopAccess lets admins through and workshop staff of the
// workshop named by the {param} URL parameter. The workshopId claim is checked
// first; checker covers staff whose token predates the membership.
func RequireWorkshopAccess(checker StaffChecker, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				utils.WriteError(w, apperr.Unauthorized("Authentication required"))
				return
			}
			if actor.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			if actor.Role != models.RoleWorkshop {
				utils.WriteError(w, apperr.Forbidden("Only workshop staff can access this resource"))
				return
			}

			workshopID := chi.URLParam(r, param)
			if actor.WorkshopID != "" && actor.WorkshopID == workshopID {
				next.ServeHTTP(w, r)
				return
			}
			if checker != nil {
				staff, err := checker.IsWorkshopStaff(r.Context(), actor.ID, workshopID)
				if err != nil {
					utils.WriteError(w, err)
					return
				}
				if staff {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, apperr.Forbidden("You can only access your own workshop"))
		})
	}
}
