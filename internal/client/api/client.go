package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/yndnr/notekeep-go/internal/client/cache"
	"github.com/yndnr/notekeep-go/internal/client/gateway"
	"github.com/yndnr/notekeep-go/internal/client/session"
	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// Sender dispatches API requests.
type Sender interface {
	Send(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// SessionStore is the session state the API reads and mutates.
type SessionStore interface {
	Snapshot() domain.Session
	Login(ctx context.Context, cred domain.Credential, id domain.Identity) error
	Logout(ctx context.Context) error
	Subscribe(fn session.ChangeFunc)
}

// Client groups the API services.
type Client struct {
	Auth  *AuthService
	Notes *NotesService
}

// New builds a client. c may be nil to disable caching.
func New(sender Sender, store SessionStore, c *cache.Cache) *Client {
	if c != nil {
		store.Subscribe(func(prev, next domain.Session) {
			if prev.UserID() != next.UserID() {
				c.Purge()
			}
		})
	}

	base := &service{sender: sender, store: store, cache: c}
	return &Client{
		Auth:  &AuthService{base},
		Notes: &NotesService{base},
	}
}

// Pagination is the listing metadata returned by the API.
type Pagination struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	From        int `json:"from"`
}

// envelope is the {data, message, code, pagination} wrapper.
type envelope[T any] struct {
	Data       T           `json:"data"`
	Message    string      `json:"message"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type service struct {
	sender Sender
	store  SessionStore
	cache  *cache.Cache
}

func (s *service) requireAuth() (domain.Session, error) {
	snap := s.store.Snapshot()
	return snap, snap.RequireAuthenticated()
}

// send dispatches req and decodes the response body into out.
func (s *service) send(ctx context.Context, req *gateway.Request, out any) error {
	resp, err := s.sender.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return domain.ErrMalformedResponse.WithCause(err)
	}
	return nil
}

// noteErr maps 404 and 403 on a note route to domain errors.
func noteErr(err error, id string) error {
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNoteNotFound.WithDetails(id).WithCause(err)
	case http.StatusForbidden:
		return domain.ErrForbidden.WithDetails("note " + id).WithCause(err)
	}
	return err
}
