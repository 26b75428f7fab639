package entities

import (
	"github.com/google/uuid"
)

// Kind is a kind of changed entity.
type Kind string

// nolint:golint
const (
	UserKind    Kind = "user"
	PostKind    Kind = "post"
	CommentKind Kind = "comment"
	FollowKind  Kind = "follow"
	LikeKind    Kind = "like"
)

// Op is a kind of change.
type Op string

// nolint:golint
const (
	Created Op = "created"
	Updated Op = "updated"
	Deleted Op = "deleted"
)

// Field names reported in Change.Fields.
const (
	FieldFollowersCount = "followersCount"
	FieldFollowingCount = "followingCount"
	FieldPostsCount     = "postsCount"
	FieldLikesCount     = "likesCount"
	FieldCommentsCount  = "commentsCount"
	FieldDisplayName    = "displayName"
	FieldBio            = "bio"
	FieldAvatar         = "avatar"
)

// Change describes a single mutation applied to the store.
// Fields is empty for Created and Deleted.
type Change struct {
	Kind   Kind
	ID     uuid.UUID
	Op     Op
	Fields []string
}
