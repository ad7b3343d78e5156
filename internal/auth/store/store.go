// Package store owns the in-memory session and its persistence round-trip.
// All other components read session state through here; only the session
// controller mutates it.
package store

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/explanner/planner-client/internal/auth/credfile"
	"github.com/explanner/planner-client/internal/auth/model"
	"github.com/explanner/planner-client/internal/auth/token"
)

// Store is the single source of truth for the current session. Reads and
// writes are mutex-guarded because the web layer serves requests
// concurrently while the refresh timer mutates in the background.
type Store struct {
	file *credfile.File
	log  *zap.Logger

	mu      sync.RWMutex
	session *model.Session
}

// New builds the store and rehydrates any persisted credential pair. Absent
// or malformed persisted data fails soft: the session simply starts
// unauthenticated and no error is surfaced.
func New(file *credfile.File, log *zap.Logger) *Store {
	s := &Store{file: file, log: log}

	pair, err := file.Load()
	if err != nil {
		if !errors.Is(err, credfile.ErrNotFound) {
			log.Warn("ignoring malformed credential file", zap.Error(err))
		}
		return s
	}
	identity, err := token.Decode(pair.AccessToken)
	if err != nil {
		log.Warn("ignoring credential file with undecodable access token", zap.Error(err))
		return s
	}
	s.session = &model.Session{Pair: pair, Identity: identity}
	s.log.Info("session restored", zap.String("subject", identity.Subject))
	return s
}

// Set replaces the credential pair, re-derives the identity and persists the
// new pair. The backend is trusted to issue well-formed tokens, so an access
// token that does not decode is a broken contract, not a recoverable
// condition.
func (s *Store) Set(pair model.TokenPair) error {
	identity, err := token.Decode(pair.AccessToken)
	if err != nil {
		panic(fmt.Sprintf("store: backend issued undecodable access token: %v", err))
	}

	s.mu.Lock()
	s.session = &model.Session{Pair: pair, Identity: identity}
	s.mu.Unlock()

	if err := s.file.Save(pair); err != nil {
		return fmt.Errorf("persist credential pair: %w", err)
	}
	return nil
}

// Clear drops the in-memory session and deletes the persisted record. Safe
// to call on an already-empty store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	if err := s.file.Delete(); err != nil {
		s.log.Warn("failed to delete credential file", zap.Error(err))
	}
}

// Session returns a copy of the current session.
func (s *Store) Session() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return model.Session{}, false
	}
	return *s.session, true
}

// Pair returns the current credential pair.
func (s *Store) Pair() (model.TokenPair, bool) {
	sess, ok := s.Session()
	return sess.Pair, ok
}

// Identity returns the identity derived from the current access token.
func (s *Store) Identity() (model.Identity, bool) {
	sess, ok := s.Session()
	return sess.Identity, ok
}

// Authenticated reports whether a session is present. The route guard
// branches on this and nothing else.
func (s *Store) Authenticated() bool {
	_, ok := s.Session()
	return ok
}
