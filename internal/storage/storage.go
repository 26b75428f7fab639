// Package storage contains a storage interface.
package storage

import (
	"errors"

	"github.com/google/uuid"

	"github.com/Decentr-net/socialfeed/internal/entities"
)

// ErrUsernameTaken is returned when a user with the same username (case-insensitive) exists.
var ErrUsernameTaken = errors.New("username is taken")

// ErrAlreadyExists is returned when an entity with the same id exists.
var ErrAlreadyExists = errors.New("already exists")

// Storage is the entity store. It owns users, posts, comments, follow edges and likes.
//
// Implementations are not safe for concurrent use: callers serialize access.
// Lookups of unknown ids return nil/empty results. Returned entities are copies.
type Storage interface {
	CreateUser(u *entities.User) (*entities.User, error)
	GetUser(id uuid.UUID) *entities.User
	GetUserByUsername(username string) *entities.User
	ListUsers(p ListUsersParams) []*entities.User
	UpdateProfile(id uuid.UUID, p UpdateProfileParams) *entities.User
	// AddUserCounters applies deltas to the user's counters, each floored at zero.
	AddUserCounters(id uuid.UUID, d UserCounters) *entities.User

	// InsertPost puts p at the front of the post collection.
	InsertPost(p *entities.Post) (*entities.Post, error)
	GetPost(id uuid.UUID) *entities.Post
	// DeletePost removes the post and returns it, comments and likes are kept.
	DeletePost(id uuid.UUID) *entities.Post
	ListPosts(p ListPostsParams) []*entities.Post
	// AddPostCounters applies deltas to the post's counters, each floored at zero.
	AddPostCounters(id uuid.UUID, d PostCounters) *entities.Post

	// InsertFollow stores the edge unless an edge for the same pair exists.
	InsertFollow(f *entities.Follow) bool
	// DeleteFollows removes every edge for the pair and returns the removed count.
	DeleteFollows(follower, followee uuid.UUID) int
	HasFollow(follower, followee uuid.UUID) bool
	ListFollows(p ListFollowsParams) []*entities.Follow

	InsertComment(c *entities.Comment) (*entities.Comment, error)
	GetComment(id uuid.UUID) *entities.Comment
	ListComments(postID uuid.UUID) []*entities.Comment
	AddCommentLikes(id uuid.UUID, delta int) *entities.Comment

	// SetLike sets the viewer's like on the target and reports whether it changed.
	SetLike(viewer uuid.UUID, target LikeTarget, liked bool) bool
	IsLiked(viewer uuid.UUID, target LikeTarget) bool
}

// TargetKind ...
type TargetKind uint8

const (
	// PostTarget ...
	PostTarget TargetKind = iota + 1
	// CommentTarget ...
	CommentTarget
)

// LikeTarget identifies a likeable entity.
type LikeTarget struct {
	Kind TargetKind
	ID   uuid.UUID
}

// UserCounters ...
type UserCounters struct {
	Followers int
	Following int
	Posts     int
}

// PostCounters ...
type PostCounters struct {
	Likes    int
	Comments int
}

// UpdateProfileParams contains profile fields to be changed, nil fields are kept.
type UpdateProfileParams struct {
	DisplayName *string
	Bio         *string
	Avatar      *string
}

// ListUsersParams ...
// A nil IDs set means no filter.
type ListUsersParams struct {
	IDs map[uuid.UUID]struct{}
}

// ListPostsParams ...
// A nil Authors set means no filter, an empty one matches nothing.
type ListPostsParams struct {
	Authors map[uuid.UUID]struct{}
}

// ListFollowsParams ...
type ListFollowsParams struct {
	Follower *uuid.UUID
	Followee *uuid.UUID
}
