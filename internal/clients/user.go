package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type validateResponse struct {
	UserID flexID `json:"userId"`
	Email  string `json:"email"`
}

type usuario struct {
	ID     flexID `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}

// UserClient turns a bearer token into the authenticated user's profile.
type UserClient struct {
	c *Client
}

func NewUserClient(c *Client) *UserClient {
	return &UserClient{c: c}
}

// Authenticate validates the token in ctx. An invalid token yields ErrUnauthorized.
func (u *UserClient) Authenticate(ctx context.Context) (*domain.User, error) {
	if TokenFromContext(ctx) == "" {
		return nil, ErrUnauthorized
	}

	var v validateResponse
	if err := u.c.DoJSON(ctx, http.MethodPost, "/api/auth/validate", nil, &v, nil); err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if v.UserID == "" {
		return nil, fmt.Errorf("failed to validate token: %w", ErrUnauthorized)
	}

	user := &domain.User{ID: string(v.UserID), Email: v.Email}

	var profile usuario
	err := u.c.DoJSON(ctx, http.MethodGet, "/api/usuarios/"+url.PathEscape(user.ID), nil, &profile, nil)
	switch {
	case err == nil:
		user.FirstName, user.LastName = domain.SplitFullName(profile.Nombre)
		if profile.Email != "" {
			user.Email = profile.Email
		}
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotFound):
		// profile is only used for prefill
		u.c.logger.Info("user profile not readable", "user_id", user.ID, "error", err)
	default:
		return nil, fmt.Errorf("failed to load user %s: %w", user.ID, err)
	}
	return user, nil
}
