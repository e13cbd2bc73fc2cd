package web

import (
	"fmt"
	"net/http"

	"github.com/Sternrassler/artwork-table/pkg/table"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SessionCookie names the cookie carrying the session identifier.
const SessionCookie = "artwork_table_session"

// SessionStore maps session identifiers to table controllers. The store is
// bounded; the least recently used session is dropped when it is full, and
// nothing survives a restart.
type SessionStore struct {
	sessions *lru.Cache[string, *table.Controller]
	create   func(id string) (*table.Controller, error)
}

// NewSessionStore creates a store holding at most capacity sessions.
func NewSessionStore(capacity int, create func(id string) (*table.Controller, error)) (*SessionStore, error) {
	sessions, err := lru.NewWithEvict[string, *table.Controller](capacity, func(string, *table.Controller) {
		liveSessions.Dec()
	})
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	return &SessionStore{sessions: sessions, create: create}, nil
}

// Ensure returns the request's controller, starting a new session (and
// setting its cookie) when the request has none or it has expired.
func (s *SessionStore) Ensure(w http.ResponseWriter, r *http.Request) (*table.Controller, string, error) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if ctrl, ok := s.sessions.Get(c.Value); ok {
			return ctrl, c.Value, nil
		}
	}

	id := uuid.NewString()
	ctrl, err := s.create(id)
	if err != nil {
		return nil, "", err
	}
	s.sessions.Add(id, ctrl)
	liveSessions.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ctrl, id, nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.sessions.Len()
}
