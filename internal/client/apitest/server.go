package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/yndnr/notekeep-go/internal/core/domain"
)

var signingKey = []byte("apitest-signing-key")

type account struct {
	profile  domain.Profile
	password string
	kind     string
}

type tokenState struct {
	userID  string
	expired bool
}

// Server is a fake notes backend.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	seq      int
	now      func() time.Time
	accounts map[string]*account
	emails   map[string]string
	tokens   map[string]*tokenState
	notes    map[string]*domain.Note

	refreshCalls int
	failRefresh  bool
	requests     []string
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	s := &Server{
		now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		accounts: make(map[string]*account),
		emails:   make(map[string]string),
		tokens:   make(map[string]*tokenState),
		notes:    make(map[string]*domain.Note),
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/users/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/users/profile", s.authed(s.handleGetProfile)).Methods(http.MethodGet)
	api.HandleFunc("/users/profile", s.authed(s.handleUpdateProfile)).Methods(http.MethodPut)
	api.HandleFunc("/notes/public", s.handleListPublic).Methods(http.MethodGet)
	api.HandleFunc("/notes/public/{id}", s.handleGetPublic).Methods(http.MethodGet)
	api.HandleFunc("/notes", s.authed(s.handleListMine)).Methods(http.MethodGet)
	api.HandleFunc("/notes", s.authed(s.handleCreate)).Methods(http.MethodPost)
	api.HandleFunc("/notes/{id}", s.authed(s.handleGetMine)).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id}", s.authed(s.handleUpdate)).Methods(http.MethodPut)
	api.HandleFunc("/notes/{id}", s.authed(s.handleDelete)).Methods(http.MethodDelete)

	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	return r
}

// URL is the API base URL.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// RefreshURL is the refresh endpoint.
func (s *Server) RefreshURL() string {
	return s.srv.URL + "/auth/refresh"
}

// Close stops the server early.
func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account and returns its identity.
func (s *Server) AddUser(name, email, password string) domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.addAccountLocked(name, email, password)
	return identityOf(a)
}

// Login issues a token for an existing account, bypassing the HTTP API.
func (s *Server) Login(email string) domain.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Credential(s.issueLocked(s.emails[email]))
}

// AddNote stores a note owned by userID.
func (s *Server) AddNote(userID, title, content string) domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addNoteLocked(userID, title, content)
}

// Expire makes the API reject token with 401. Refresh still accepts it.
func (s *Server) Expire(token domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.tokens[string(token)]; st != nil {
		st.expired = true
	}
}

// ExpireAll expires every token issued so far.
func (s *Server) ExpireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.tokens {
		st.expired = true
	}
}

// FailRefresh makes the refresh endpoint answer 500.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Requests returns "METHOD /path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Note returns the stored note.
func (s *Server) Note(id string) (domain.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return domain.Note{}, false
	}
	return *n, true
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, a *account)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		st := s.tokens[token]
		var a *account
		if ok && st != nil && !st.expired {
			a = s.accounts[st.userID]
		}
		s.mu.Unlock()

		if a == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authorized, token failed", "code": 401})
			return
		}
		h(w, r, a)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid user data", "code": 400})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[in.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "User already exists", "code": 400})
		return
	}
	a := s.addAccountLocked(in.Name, in.Email, in.Password)
	writeJSON(w, http.StatusCreated, s.loginPayloadLocked(a))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginInput
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[s.emails[in.Email]]
	if a == nil || a.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid email or password", "code": 401})
		return
	}
	writeJSON(w, http.StatusOK, s.loginPayloadLocked(a))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request, a *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope(a.profile, "Profile fetched"))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, a *account) {
	var in domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid body", "code": 400})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Email != "" && in.Email != a.profile.Email {
		if _, taken := s.emails[in.Email]; taken {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Email already in use", "code": 400})
			return
		}
		delete(s.emails, a.profile.Email)
		s.emails[in.Email] = a.profile.ID
		a.profile.Email = in.Email
	}
	if in.Name != "" {
		a.profile.Name = in.Name
	}
	a.profile.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, envelope(a.profile, "Profile updated"))
}

func (s *Server) handleListPublic(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.listLocked(""))
}

func (s *Server) handleListMine(w http.ResponseWriter, _ *http.Request, a *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.listLocked(a.profile.ID))
}

func (s *Server) handleGetPublic(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[mux.Vars(r)["id"]]
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, envelope(n, "Note fetched"))
}

func (s *Server) handleGetMine(w http.ResponseWriter, r *http.Request, a *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[mux.Vars(r)["id"]]
	if !ok || n.User.ID != a.profile.ID {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, envelope(n, "Note fetched"))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, a *account) {
	in, ok := readNoteForm(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.addNoteLocked(a.profile.ID, in.Title, in.Content)
	writeJSON(w, http.StatusCreated, envelope(n, "Note created"))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, a *account) {
	in, ok := readNoteForm(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, found := s.notes[mux.Vars(r)["id"]]
	if !found {
		writeNotFound(w)
		return
	}
	if n.User.ID != a.profile.ID {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Not your note", "code": 403})
		return
	}
	n.Title, n.Content, n.UpdatedAt = in.Title, in.Content, s.now()
	writeJSON(w, http.StatusOK, envelope(n, "Note updated"))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, a *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	n, found := s.notes[id]
	if !found {
		writeNotFound(w)
		return
	}
	if n.User.ID != a.profile.ID {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Not your note", "code": 403})
		return
	}
	delete(s.notes, id)
	writeJSON(w, http.StatusOK, envelope(nil, "Note removed"))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++

	if s.failRefresh {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "refresh unavailable"})
		return
	}
	st := s.tokens[token]
	if st == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unknown token"})
		return
	}
	delete(s.tokens, token)
	writeJSON(w, http.StatusOK, map[string]any{"token": s.issueLocked(st.userID)})
}

func (s *Server) addAccountLocked(name, email, password string) *account {
	s.seq++
	id := fmt.Sprintf("u%d", s.seq)
	a := &account{
		profile: domain.Profile{
			ID:        id,
			Name:      name,
			Email:     email,
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		password: password,
		kind:     "user",
	}
	s.accounts[id] = a
	s.emails[email] = id
	return a
}

func (s *Server) addNoteLocked(userID, title, content string) *domain.Note {
	s.seq++
	a := s.accounts[userID]
	n := &domain.Note{
		ID:        fmt.Sprintf("n%d", s.seq),
		Title:     title,
		Content:   content,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if a != nil {
		n.User = domain.NoteAuthor{ID: a.profile.ID, Name: a.profile.Name, Email: a.profile.Email}
	}
	s.notes[n.ID] = n
	return n
}

func (s *Server) issueLocked(userID string) string {
	s.seq++
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        fmt.Sprint(s.seq),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.tokens[token] = &tokenState{userID: userID}
	return token
}

func (s *Server) loginPayloadLocked(a *account) map[string]any {
	return map[string]any{
		"status": true,
		"data": map[string]any{
			"_id":   a.profile.ID,
			"name":  a.profile.Name,
			"type":  a.kind,
			"email": a.profile.Email,
			"token": s.issueLocked(a.profile.ID),
		},
	}
}

func (s *Server) listLocked(owner string) map[string]any {
	out := make([]*domain.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if owner == "" || n.User.ID == owner {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	env := envelope(out, "Notes fetched")
	env["pagination"] = map[string]any{
		"total":        len(out),
		"per_page":     len(out),
		"current_page": 1,
		"last_page":    1,
		"from":         1,
	}
	return env
}

func identityOf(a *account) domain.Identity {
	return domain.Identity{ID: a.profile.ID, Name: a.profile.Name, Email: a.profile.Email, Type: a.kind}
}

func readNoteForm(w http.ResponseWriter, r *http.Request) (domain.NoteInput, bool) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "expected multipart form", "code": 400})
		return domain.NoteInput{}, false
	}
	in := domain.NoteInput{Title: r.FormValue("title"), Content: r.FormValue("content")}
	if in.Title == "" || in.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "title and content are required", "code": 400})
		return domain.NoteInput{}, false
	}
	return in, true
}

func envelope(data any, message string) map[string]any {
	return map[string]any{"data": data, "message": message, "code": 200}
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Note not found", "code": 404})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
