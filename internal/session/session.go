// Package session contains a storage interface for the signed in user record.
package session

import (
	"context"
	"errors"

	"github.com/Decentr-net/socialfeed/internal/entities"
)

//go:generate mockgen -destination=./mock/session.go -package=mock -source=session.go

// ErrNotFound is returned when no user is saved.
var ErrNotFound = errors.New("not found")

// Storage persists exactly one user record, the signed in user.
type Storage interface {
	Load(ctx context.Context) (*entities.User, error)
	Save(ctx context.Context, u *entities.User) error
	Clear(ctx context.Context) error
}
