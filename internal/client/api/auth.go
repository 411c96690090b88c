package api

import (
	"context"
	"net/http"

	"github.com/yndnr/notekeep-go/internal/client/cache"
	"github.com/yndnr/notekeep-go/internal/client/gateway"
	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// LoginResult is the account returned by login and registration.
type LoginResult struct {
	Credential domain.Credential
	Identity   domain.Identity
}

type loginResponse struct {
	Status bool `json:"status"`
	Data   struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Type  string `json:"type"`
		Email string `json:"email"`
		Token string `json:"token"`
	} `json:"data"`
}

func (r *loginResponse) result() (*LoginResult, error) {
	if r.Data.Token == "" || r.Data.ID == "" {
		return nil, domain.ErrMalformedResponse.WithDetails("login response without token or user id")
	}
	return &LoginResult{
		Credential: domain.Credential(r.Data.Token),
		Identity: domain.Identity{
			ID:    r.Data.ID,
			Name:  r.Data.Name,
			Email: r.Data.Email,
			Type:  r.Data.Type,
		},
	}, nil
}

// AuthService covers accounts and the profile.
type AuthService struct {
	*service
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, in domain.RegisterInput) (*LoginResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	req, err := gateway.NewJSONRequest(http.MethodPost, "/users", in)
	if err != nil {
		return nil, err
	}
	var resp loginResponse
	if err := s.send(ctx, req, &resp); err != nil {
		return nil, err
	}
	s.cache.Purge()
	return resp.result()
}

// Login authenticates and installs the session.
func (s *AuthService) Login(ctx context.Context, in domain.LoginInput) (*LoginResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	req, err := gateway.NewJSONRequest(http.MethodPost, "/users/login", in)
	if err != nil {
		return nil, err
	}
	var resp loginResponse
	if err := s.send(ctx, req, &resp); err != nil {
		return nil, err
	}

	res, err := resp.result()
	if err != nil {
		return nil, err
	}
	if err := s.store.Login(ctx, res.Credential, res.Identity); err != nil {
		return nil, err
	}
	return res, nil
}

// Logout clears the local session. The API has no logout route.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.store.Logout(ctx)
}

// Session returns the current session snapshot.
func (s *AuthService) Session() domain.Session {
	return s.store.Snapshot()
}

// Profile fetches the logged-in user's profile.
func (s *AuthService) Profile(ctx context.Context) (*domain.Profile, error) {
	snap, err := s.requireAuth()
	if err != nil {
		return nil, err
	}

	key := "profile:" + snap.UserID()
	if p, ok := cache.Lookup[*domain.Profile](s.cache, key); ok {
		return p, nil
	}
	gen := s.cache.Generation()

	var env envelope[domain.Profile]
	if err := s.send(ctx, gateway.NewRequest(http.MethodGet, "/users/profile"), &env); err != nil {
		return nil, err
	}
	s.cache.PutIfCurrent(gen, key, &env.Data, cache.ProfileTag)
	return &env.Data, nil
}

// UpdateProfile changes name and/or email.
func (s *AuthService) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (*domain.Profile, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	req, err := gateway.NewJSONRequest(http.MethodPut, "/users/profile", in)
	if err != nil {
		return nil, err
	}
	var env envelope[domain.Profile]
	if err := s.send(ctx, req, &env); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.ProfileTag)
	return &env.Data, nil
}
