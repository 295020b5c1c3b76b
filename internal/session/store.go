// Package session tracks per-user progress through the multi-step request
// form. Sessions are in-memory only; a restart drops any in-flight forms.
package session

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
	"github.com/shaown803/XbetMasterAgentBot/internal/form"
	"github.com/shaown803/XbetMasterAgentBot/internal/logging"
)

type session struct {
	kind   domain.TransactionKind
	step   int
	values []form.Value
}

// Store holds at most one active form per user. All mutation happens under
// the store mutex, so events for the same user apply in arrival order while
// different users never contend on each other's session.
type Store struct {
	mu       sync.Mutex
	schemas  map[domain.TransactionKind]form.Schema
	sessions map[int64]*session
	logger   *logrus.Entry
}

// NewStore constructs a Store for the given schema set.
func NewStore(schemas map[domain.TransactionKind]form.Schema, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Store{
		schemas:  schemas,
		sessions: make(map[int64]*session),
		logger:   logger,
	}
}

// Begin starts a fresh form for the user and returns the first field to
// prompt. An existing session for the same user is silently replaced: a user
// restarting a flow abandons the previous attempt.
func (s *Store) Begin(userID int64, kind domain.TransactionKind) (form.Field, error) {
	schema, ok := s.schemas[kind]
	if !ok {
		return form.Field{}, fmt.Errorf("no schema for kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, replaced := s.sessions[userID]; replaced {
		s.logger.WithFields(logging.Fields{
			"event":   "session_replaced",
			"user_id": userID,
			"kind":    kind,
		}).Info("replaced in-flight session")
	}

	s.sessions[userID] = &session{kind: kind}
	return schema.Fields[0], nil
}

// RecordField validates the answer for the current field and advances the
// form. On validation failure the step does not move and the same field is
// returned so the caller can re-prompt. complete is true once every field of
// the schema has been collected.
func (s *Store) RecordField(userID int64, raw string) (next form.Field, complete bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return form.Field{}, false, domain.ErrSessionNotFound
	}

	schema := s.schemas[sess.kind]
	field := schema.Fields[sess.step]

	value, err := field.Validate(raw)
	if err != nil {
		return field, false, err
	}

	sess.values = append(sess.values, form.Value{Name: field.Name, Value: value})
	sess.step++

	if sess.step >= schema.Len() {
		return form.Field{}, true, nil
	}
	return schema.Fields[sess.step], false, nil
}

// CurrentPrompt returns the field the user is expected to answer next. The
// second return is false when no session is active or the form is complete.
func (s *Store) CurrentPrompt(userID int64) (form.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return form.Field{}, false
	}

	schema := s.schemas[sess.kind]
	if sess.step >= schema.Len() {
		return form.Field{}, false
	}
	return schema.Fields[sess.step], true
}

// Progress returns the kind and the values collected so far, preserving
// collection order. The returned slice is a copy.
func (s *Store) Progress(userID int64) (domain.TransactionKind, []form.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return "", nil, false
	}

	values := make([]form.Value, len(sess.values))
	copy(values, sess.values)
	return sess.kind, values, true
}

// Active reports whether the user has an in-flight form.
func (s *Store) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[userID]
	return ok
}

// Finalize materializes the request once every field is collected and removes
// the session. An incomplete session is kept so the user can continue.
func (s *Store) Finalize(userID int64) (domain.TransactionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return domain.TransactionRequest{}, domain.ErrSessionNotFound
	}

	schema := s.schemas[sess.kind]
	if sess.step < schema.Len() {
		return domain.TransactionRequest{}, domain.ErrIncompleteSession
	}

	request, err := form.Build(sess.kind, userID, sess.values)
	if err != nil {
		return domain.TransactionRequest{}, err
	}

	delete(s.sessions, userID)
	return request, nil
}

// Cancel discards the user's session. Calling it without an active session is
// a no-op.
func (s *Store) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return
	}

	delete(s.sessions, userID)
	s.logger.WithFields(logging.Fields{
		"event":   "session_cancelled",
		"user_id": userID,
	}).Info("cancelled session")
}
