package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/yndnr/notekeep-go/internal/client/cache"
	"github.com/yndnr/notekeep-go/internal/client/gateway"
	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// NoteList is one page of notes.
type NoteList struct {
	Notes      []domain.Note
	Pagination *Pagination
}

// NotesService covers the notes routes.
type NotesService struct {
	*service
}

// ListPublic lists every public note.
func (s *NotesService) ListPublic(ctx context.Context) (*NoteList, error) {
	return s.list(ctx, "notes:public", "/notes/public")
}

// ListMine lists the logged-in user's notes.
func (s *NotesService) ListMine(ctx context.Context) (*NoteList, error) {
	snap, err := s.requireAuth()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, "notes:mine:"+snap.UserID(), "/notes")
}

func (s *NotesService) list(ctx context.Context, key, path string) (*NoteList, error) {
	if l, ok := cache.Lookup[*NoteList](s.cache, key); ok {
		return l, nil
	}
	gen := s.cache.Generation()

	var env envelope[[]domain.Note]
	if err := s.send(ctx, gateway.NewRequest(http.MethodGet, path), &env); err != nil {
		return nil, err
	}

	l := &NoteList{Notes: env.Data, Pagination: env.Pagination}
	tags := []cache.Tag{cache.NoteListTag}
	for _, n := range l.Notes {
		tags = append(tags, cache.NoteTag(n.ID))
	}
	s.cache.PutIfCurrent(gen, key, l, tags...)
	return l, nil
}

// GetPublic fetches a note through the public route.
func (s *NotesService) GetPublic(ctx context.Context, id string) (*domain.Note, error) {
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("note id")
	}
	return s.get(ctx, "note:public:"+id, "/notes/public/"+url.PathEscape(id), id)
}

// GetMine fetches one of the logged-in user's notes.
func (s *NotesService) GetMine(ctx context.Context, id string) (*domain.Note, error) {
	snap, err := s.requireAuth()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("note id")
	}
	return s.get(ctx, "note:mine:"+snap.UserID()+":"+id, "/notes/"+url.PathEscape(id), id)
}

// Get uses the owner route when logged in and the public route otherwise.
func (s *NotesService) Get(ctx context.Context, id string) (*domain.Note, error) {
	if s.store.Snapshot().IsAuthenticated() {
		return s.GetMine(ctx, id)
	}
	return s.GetPublic(ctx, id)
}

func (s *NotesService) get(ctx context.Context, key, path, id string) (*domain.Note, error) {
	if n, ok := cache.Lookup[*domain.Note](s.cache, key); ok {
		return n, nil
	}
	gen := s.cache.Generation()

	var env envelope[domain.Note]
	if err := s.send(ctx, gateway.NewRequest(http.MethodGet, path), &env); err != nil {
		return nil, noteErr(err, id)
	}
	s.cache.PutIfCurrent(gen, key, &env.Data, cache.NoteTag(id))
	return &env.Data, nil
}

// Create posts a new note as a multipart form.
func (s *NotesService) Create(ctx context.Context, in domain.NoteInput) (*domain.Note, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Normalize()

	req, err := gateway.NewFormRequest(http.MethodPost, "/notes", noteFields(in))
	if err != nil {
		return nil, err
	}
	var env envelope[domain.Note]
	if err := s.send(ctx, req, &env); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.NoteListTag)
	return &env.Data, nil
}

// Update replaces a note's title and content.
func (s *NotesService) Update(ctx context.Context, id string, in domain.NoteInput) (*domain.Note, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("note id")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Normalize()

	req, err := gateway.NewFormRequest(http.MethodPut, "/notes/"+url.PathEscape(id), noteFields(in))
	if err != nil {
		return nil, err
	}
	var env envelope[domain.Note]
	if err := s.send(ctx, req, &env); err != nil {
		return nil, noteErr(err, id)
	}
	s.cache.Invalidate(cache.NoteTag(id), cache.NoteListTag)
	return &env.Data, nil
}

// Delete removes a note.
func (s *NotesService) Delete(ctx context.Context, id string) error {
	if _, err := s.requireAuth(); err != nil {
		return err
	}
	if id == "" {
		return domain.ErrMissingArgument.WithDetails("note id")
	}

	if err := s.send(ctx, gateway.NewRequest(http.MethodDelete, "/notes/"+url.PathEscape(id)), nil); err != nil {
		return noteErr(err, id)
	}
	s.cache.Invalidate(cache.NoteTag(id), cache.NoteListTag)
	return nil
}

func noteFields(in domain.NoteInput) map[string]string {
	return map[string]string{"title": in.Title, "content": in.Content}
}
