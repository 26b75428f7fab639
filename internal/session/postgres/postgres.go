// Package postgres is implementation of session storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/session"
)

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	UserID         uuid.UUID      `db:"user_id"`
	Username       string         `db:"username"`
	DisplayName    string         `db:"display_name"`
	Bio            string         `db:"bio"`
	Avatar         sql.NullString `db:"avatar"`
	FollowersCount uint32         `db:"followers_count"`
	FollowingCount uint32         `db:"following_count"`
	PostsCount     uint32         `db:"posts_count"`
	CreatedAt      time.Time      `db:"created_at"`
}

// New creates new instance of pg.
func New(db *sql.DB) session.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) Load(ctx context.Context) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT user_id, username, display_name, bio, avatar, followers_count, following_count, posts_count, created_at
			FROM session
		`,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := &entities.User{
		ID:             u.UserID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		PostsCount:     u.PostsCount,
		CreatedAt:      u.CreatedAt.UTC(),
	}

	if u.Avatar.Valid {
		out.Avatar = &u.Avatar.String
	}

	return out, nil
}

func (s pg) Save(ctx context.Context, u *entities.User) error {
	dto := userDTO{
		UserID:         u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		PostsCount:     u.PostsCount,
		CreatedAt:      u.CreatedAt.UTC(),
	}

	if u.Avatar != nil {
		dto.Avatar = sql.NullString{String: *u.Avatar, Valid: true}
	}

	if _, err := sqlx.NamedExecContext(ctx, s.ext,
		`
			INSERT INTO session(user_id, username, display_name, bio, avatar, followers_count, following_count, posts_count, created_at)
			VALUES(:user_id, :username, :display_name, :bio, :avatar, :followers_count, :following_count, :posts_count, :created_at)
			ON CONFLICT(id) DO UPDATE SET
			user_id=excluded.user_id, username=excluded.username, display_name=excluded.display_name, bio=excluded.bio,
			avatar=excluded.avatar, followers_count=excluded.followers_count, following_count=excluded.following_count,
			posts_count=excluded.posts_count, created_at=excluded.created_at
		`, dto,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) Clear(ctx context.Context) error {
	if _, err := s.ext.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}
