// Package memory is in-memory implementation of session storage.
package memory

import (
	"context"
	"sync"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/session"
)

type mem struct {
	mu sync.Mutex
	u  *entities.User
}

// New creates new instance of in-memory session storage.
func New() session.Storage {
	return &mem{}
}

func (s *mem) Load(_ context.Context) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.u == nil {
		return nil, session.ErrNotFound
	}

	return s.u.Clone(), nil
}

func (s *mem) Save(_ context.Context, u *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.u = u.Clone()

	return nil
}

func (s *mem) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.u = nil

	return nil
}
