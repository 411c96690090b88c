package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/yndnr/notekeep-go/internal/core/domain"
	"github.com/yndnr/notekeep-go/internal/storage"
	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
	"github.com/yndnr/notekeep-go/pkg/crypto/adaptive"
)

// SealInfo is the HKDF info string used for credential sealing keys.
const SealInfo = "notekeep/session/token"

// ChangeFunc observes a snapshot transition. It runs synchronously after
// the new snapshot is published and must not call back into the Store's
// write methods.
type ChangeFunc func(prev, next domain.Session)

// Store is the process-wide source of truth for authentication status.
type Store struct {
	kv     storage.KV
	sealer *adaptive.Sealer
	logger logger.Logger

	current atomic.Pointer[domain.Session]

	// mu serializes writers; readers only touch current.
	mu sync.Mutex

	listenerMu sync.RWMutex
	listeners  []ChangeFunc
}

// Option configures a Store.
type Option func(*Store)

// WithSealer seals the persisted credential.
func WithSealer(s *adaptive.Sealer) Option {
	return func(st *Store) {
		st.sealer = s
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(st *Store) {
		st.logger = l
	}
}

// New creates a Store and resumes any session persisted in kv.
//
// A token without a readable user record, or a user record without a
// token, is treated as an orphan: the store starts anonymous and removes
// both keys.
func New(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{kv: kv, logger: logger.Default()}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(&snap)
	return s, nil
}

func (s *Store) load(ctx context.Context) (domain.Session, error) {
	rawToken, tokenErr := s.kv.Get(ctx, storage.KeyToken)
	rawUser, userErr := s.kv.Get(ctx, storage.KeyUser)
	for _, err := range []error{tokenErr, userErr} {
		if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			return domain.Session{}, domain.ErrStorage.WithCause(err)
		}
	}

	hasToken, hasUser := tokenErr == nil, userErr == nil
	if !hasToken && !hasUser {
		return domain.Anonymous(), nil
	}

	var reason string
	switch {
	case !hasToken:
		reason = "user without token"
	case !hasUser:
		reason = "token without user"
	}

	var (
		cred domain.Credential
		id   domain.Identity
	)
	if reason == "" {
		var err error
		if cred, err = s.unseal(rawToken); err != nil {
			reason = "unreadable token: " + err.Error()
		} else if err := json.Unmarshal(rawUser, &id); err != nil {
			reason = "unreadable user: " + err.Error()
		} else if err := id.Validate(); err != nil {
			reason = "invalid user: " + err.Error()
		}
	}

	if reason != "" {
		s.logger.Warn("discarding orphaned session state", "reason", reason)
		if err := s.kv.Apply(ctx, clearOps()); err != nil {
			s.logger.Warn("failed to remove orphaned session state", "error", err)
		}
		return domain.Anonymous(), nil
	}

	s.logger.Debug("session resumed", "user_id", id.ID)
	return domain.Authenticated(cred, id), nil
}

// Snapshot returns the current session.
func (s *Store) Snapshot() domain.Session {
	return *s.current.Load()
}

// Credential returns the current credential, empty when anonymous.
func (s *Store) Credential() domain.Credential {
	return s.current.Load().Credential
}

// IsAuthenticated reports whether a credential is installed.
func (s *Store) IsAuthenticated() bool {
	return s.current.Load().IsAuthenticated()
}

// Subscribe registers fn for every subsequent snapshot change.
func (s *Store) Subscribe(fn ChangeFunc) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// Login installs cred and id together.
func (s *Store) Login(ctx context.Context, cred domain.Credential, id domain.Identity) error {
	if cred.IsZero() {
		return domain.ErrSessionInvalid.WithDetails("credential is required")
	}
	if err := id.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ops, err := s.loginOps(cred, id)
	if err != nil {
		return err
	}
	if err := s.kv.Apply(ctx, ops); err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	s.publish(domain.Authenticated(cred, id))
	s.logger.Info("logged in", "user_id", id.ID)
	return nil
}

// Logout clears the credential and identity. Logging out of an anonymous
// session is a no-op apart from removing any stray persisted keys.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Apply(ctx, clearOps()); err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	if s.current.Load().IsAuthenticated() {
		s.publish(domain.Anonymous())
		s.logger.Info("logged out")
	}
	return nil
}

// Rotate replaces the credential after a refresh, keeping the identity.
func (s *Store) Rotate(ctx context.Context, cred domain.Credential) error {
	if cred.IsZero() {
		return domain.ErrSessionInvalid.WithDetails("credential is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	if !prev.IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	if prev.Credential == cred {
		return nil
	}

	value, err := s.seal(cred)
	if err != nil {
		return err
	}
	if err := s.kv.Apply(ctx, []storage.Op{storage.SetOp(storage.KeyToken, value)}); err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	s.publish(domain.Authenticated(cred, *prev.Identity))
	s.logger.Info("credential rotated", "user_id", prev.Identity.ID)
	return nil
}

// publish swaps the snapshot and notifies listeners. Callers hold mu.
func (s *Store) publish(next domain.Session) {
	prev := s.current.Swap(&next)

	s.listenerMu.RLock()
	listeners := s.listeners
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(*prev, next)
	}
}

func (s *Store) loginOps(cred domain.Credential, id domain.Identity) ([]storage.Op, error) {
	token, err := s.seal(cred)
	if err != nil {
		return nil, err
	}
	user, err := json.Marshal(id)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	return []storage.Op{
		storage.SetOp(storage.KeyToken, token),
		storage.SetOp(storage.KeyUser, user),
	}, nil
}

func (s *Store) seal(cred domain.Credential) ([]byte, error) {
	if s.sealer == nil {
		return []byte(cred), nil
	}
	env, err := s.sealer.Seal([]byte(cred), []byte(storage.KeyToken))
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	return []byte(env), nil
}

// unseal accepts plaintext tokens even with a sealer configured; the next
// write seals them.
func (s *Store) unseal(raw []byte) (domain.Credential, error) {
	v := string(raw)
	if v == "" {
		return "", errors.New("empty token")
	}
	if !adaptive.IsSealed(v) {
		return domain.Credential(v), nil
	}
	if s.sealer == nil {
		return "", errors.New("token is sealed but no encryption key is configured")
	}
	plain, err := s.sealer.Open(v, []byte(storage.KeyToken))
	if err != nil {
		return "", err
	}
	return domain.Credential(plain), nil
}

func clearOps() []storage.Op {
	return []storage.Op{
		storage.DeleteOp(storage.KeyToken),
		storage.DeleteOp(storage.KeyUser),
	}
}
