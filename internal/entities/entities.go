// Package entities contains main entities of service.
package entities

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind ...
type MediaKind string

const (
	// ImageMedia ...
	ImageMedia MediaKind = "image"
	// VideoMedia ...
	VideoMedia MediaKind = "video"
)

// Valid returns true if kind is a known media kind.
func (k MediaKind) Valid() bool {
	return k == ImageMedia || k == VideoMedia
}

// User ...
type User struct {
	ID             uuid.UUID
	Username       string
	DisplayName    string
	Bio            string
	Avatar         *string
	FollowersCount uint32
	FollowingCount uint32
	PostsCount     uint32
	CreatedAt      time.Time
}

// Post ...
type Post struct {
	ID            uuid.UUID
	AuthorID      uuid.UUID
	Caption       string
	MediaURL      string
	MediaKind     MediaKind
	ThumbnailURL  *string
	LikesCount    uint32
	CommentsCount uint32
	CreatedAt     time.Time
}

// Follow is a directed edge: Follower follows Followee.
type Follow struct {
	ID         uuid.UUID
	FollowerID uuid.UUID
	FolloweeID uuid.UUID
	CreatedAt  time.Time
}

// Comment ...
type Comment struct {
	ID       uuid.UUID
	PostID   uuid.UUID
	AuthorID uuid.UUID
	// Author is a copy of the author taken when the comment was written. It is never refreshed.
	Author     *User
	Text       string
	LikesCount uint32
	CreatedAt  time.Time
}

// PostView is a post joined with its live author and the viewer's like state.
type PostView struct {
	Post
	Author  *User
	IsLiked bool
}

// CommentView is a comment with the viewer's like state.
type CommentView struct {
	Comment
	IsLiked bool
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	c := *u
	if u.Avatar != nil {
		v := *u.Avatar
		c.Avatar = &v
	}

	return &c
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}

	c := *p
	if p.ThumbnailURL != nil {
		v := *p.ThumbnailURL
		c.ThumbnailURL = &v
	}

	return &c
}

// Clone returns a deep copy of c.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}

	o := *c
	o.Author = c.Author.Clone()

	return &o
}
