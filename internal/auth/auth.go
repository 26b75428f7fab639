// Package auth signs users in and keeps the current user, the one whose id personalizes feeds.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/service"
	"github.com/Decentr-net/socialfeed/internal/session"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

//go:generate mockgen -destination=./mock/auth.go -package=mock -source=auth.go

var log = logrus.WithField("package", "auth")

// MinPasswordLength ...
const MinPasswordLength = 6

// NewUserBio is the bio of users created on first login.
const NewUserBio = "New to SocialApp!"

// nolint:golint
var (
	ErrEmptyCredentials    = errors.New("please enter both username and password")
	ErrUsernameRequired    = errors.New("username is required")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrNotSignedIn         = errors.New("not signed in")
)

// Users is a part of service.Service used to manage accounts.
type Users interface {
	CreateUser(ctx context.Context, p service.CreateUserParams) (*entities.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p storage.UpdateProfileParams) (*entities.User, error)
}

// Authenticator ...
// Credentials are checked for presence only, passwords are never stored.
type Authenticator struct {
	users Users
	s     session.Storage

	mu      sync.RWMutex
	current *entities.User
}

// New creates new instance of Authenticator.
func New(users Users, s session.Storage) *Authenticator {
	return &Authenticator{
		users: users,
		s:     s,
	}
}

// CurrentUserID returns id of the signed in user.
func (a *Authenticator) CurrentUserID() (uuid.UUID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.current == nil {
		return uuid.Nil, false
	}

	return a.current.ID, true
}

// CurrentUser returns the signed in user record or nil.
func (a *Authenticator) CurrentUser() *entities.User {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.current.Clone()
}

// Restore signs in the user saved in the session. It returns nil if nobody is saved.
// A saved user unknown to the store is registered again with the same id.
func (a *Authenticator) Restore(ctx context.Context) (*entities.User, error) {
	saved, err := a.s.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	u, err := a.users.GetUser(ctx, saved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u == nil {
		u, err = a.users.CreateUser(ctx, service.CreateUserParams{
			ID:          saved.ID,
			Username:    saved.Username,
			DisplayName: saved.DisplayName,
			Bio:         saved.Bio,
			Avatar:      saved.Avatar,
			CreatedAt:   saved.CreatedAt,
		})
		if errors.Is(err, storage.ErrUsernameTaken) {
			log.WithField("username", saved.Username).Warn("saved username belongs to another user, use it")
			u, err = a.users.GetUserByUsername(ctx, saved.Username)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to register saved user: %w", err)
		}
	}

	if err := a.signIn(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login signs in the user with the username, creating one if there is none.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*entities.User, error) {
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	u, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u == nil {
		u, err = a.users.CreateUser(ctx, service.CreateUserParams{
			Username:    username,
			DisplayName: cases.Title(language.Und).String(username),
			Bio:         NewUserBio,
		})
		if errors.Is(err, storage.ErrUsernameTaken) {
			u, err = a.users.GetUserByUsername(ctx, username)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	if err := a.signIn(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// SignUp registers a new user and signs them in.
func (a *Authenticator) SignUp(ctx context.Context, username, displayName, password, confirmPassword string) (*entities.User, error) {
	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case displayName == "":
		return nil, ErrDisplayNameRequired
	case len([]rune(password)) < MinPasswordLength:
		return nil, ErrPasswordTooShort
	case password != confirmPassword:
		return nil, ErrPasswordMismatch
	}

	u, err := a.users.CreateUser(ctx, service.CreateUserParams{
		Username:    username,
		DisplayName: displayName,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := a.signIn(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Logout forgets the current user.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.s.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()

	return nil
}

// UpdateProfile changes display name and bio of the current user.
func (a *Authenticator) UpdateProfile(ctx context.Context, displayName, bio string) (*entities.User, error) {
	id, ok := a.CurrentUserID()
	if !ok {
		return nil, ErrNotSignedIn
	}

	u, err := a.users.UpdateProfile(ctx, id, storage.UpdateProfileParams{
		DisplayName: &displayName,
		Bio:         &bio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if u == nil {
		return nil, ErrNotSignedIn
	}

	if err := a.signIn(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (a *Authenticator) signIn(ctx context.Context, u *entities.User) error {
	if err := a.s.Save(ctx, u); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	a.mu.Lock()
	a.current = u.Clone()
	a.mu.Unlock()

	log.WithField("user", u.ID).WithField("username", u.Username).Info("signed in")

	return nil
}
