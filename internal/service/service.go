// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/interaction"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

// ErrStopped is returned when an operation is requested after the service has stopped.
var ErrStopped = errors.New("service is stopped")

// Service is the synchronous surface of the social feed store.
// Operations are executed one at a time in arrival order. Unknown ids give nil or empty results, not errors.
type Service interface {
	CreateUser(ctx context.Context, p CreateUserParams) (*entities.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	ListUsers(ctx context.Context) ([]*entities.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p storage.UpdateProfileParams) (*entities.User, error)

	CreatePost(ctx context.Context, p interaction.CreatePostParams) (*entities.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) (*entities.Post, error)
	GetPost(ctx context.Context, viewer, id uuid.UUID) (*entities.PostView, error)

	IsFollowing(ctx context.Context, a, b uuid.UUID) (bool, error)
	FollowingIDs(ctx context.Context, a uuid.UUID) (map[uuid.UUID]struct{}, error)
	Followers(ctx context.Context, a uuid.UUID) ([]*entities.User, error)
	Following(ctx context.Context, a uuid.UUID) ([]*entities.User, error)
	Follow(ctx context.Context, a, b uuid.UUID) error
	Unfollow(ctx context.Context, a, b uuid.UUID) error
	ToggleFollow(ctx context.Context, a, b uuid.UUID) (bool, error)

	ToggleLike(ctx context.Context, viewer, postID uuid.UUID) (*entities.PostView, error)
	ToggleCommentLike(ctx context.Context, viewer, commentID uuid.UUID) (*entities.CommentView, error)
	AddComment(ctx context.Context, postID, authorID uuid.UUID, text string) (*entities.Comment, error)
	Comments(ctx context.Context, viewer, postID uuid.UUID) ([]*entities.CommentView, error)

	PostsByAuthor(ctx context.Context, viewer, author uuid.UUID) ([]*entities.PostView, error)
	ExplorePosts(ctx context.Context, viewer uuid.UUID) ([]*entities.PostView, error)
	HomeFeed(ctx context.Context, user uuid.UUID) ([]*entities.PostView, error)
	SearchUsers(ctx context.Context, query string) ([]*entities.User, error)
	SuggestedUsers(ctx context.Context, user uuid.UUID, limit int) ([]*entities.User, error)

	// Subscribe returns a channel receiving changes applied by mutating operations and a cancel function.
	Subscribe(buffer int) (<-chan entities.Change, func())
}

// CreateUserParams ...
type CreateUserParams struct {
	// ID is generated when empty.
	ID          uuid.UUID
	Username    string
	DisplayName string
	Bio         string
	Avatar      *string
	// CreatedAt is set to now when empty.
	CreatedAt time.Time
}
