package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"mekaniku/internal/models"
)

// OIDCVerifier accepts ID tokens from an external identity provider. The
// role and workshopId custom claims are honoured when present.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider for %s: %w", issuer, err)
	}

	cfg := &oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""}
	return &OIDCVerifier{verifier: provider.Verifier(cfg)}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (models.Actor, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	var claims struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		Role       string `json:"role"`
		WorkshopID string `json:"workshopId"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return models.Actor{}, fmt.Errorf("%w: parse claims: %v", ErrTokenInvalid, err)
	}

	role := models.Role(claims.Role)
	if !role.IsValid() {
		role = models.RoleCustomer
	}
	return models.Actor{ID: claims.Sub, Email: claims.Email, Role: role, WorkshopID: claims.WorkshopID}, nil
}
