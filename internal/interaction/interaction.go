// Package interaction applies post, comment and like mutations keeping derived counters in sync.
package interaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

// ErrInvalidMediaKind is returned when a post is created with unknown media kind.
var ErrInvalidMediaKind = errors.New("invalid media kind")

// Engine ...
type Engine struct {
	s   storage.Storage
	now func() time.Time
}

// CreatePostParams ...
type CreatePostParams struct {
	AuthorID     uuid.UUID
	Caption      string
	MediaURL     string
	MediaKind    entities.MediaKind
	ThumbnailURL *string
	// LikesCount is an initial like count, used by fixtures.
	LikesCount uint32
	// CreatedAt overrides the creation time when set.
	CreatedAt time.Time
}

// New creates new instance of Engine. If now is nil time.Now is used.
func New(s storage.Storage, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}

	return &Engine{
		s:   s,
		now: now,
	}
}

// CreatePost puts a new post at the front of the post collection and increments the author's posts count.
func (e *Engine) CreatePost(p CreatePostParams) (*entities.Post, error) {
	if p.MediaKind == "" {
		p.MediaKind = entities.ImageMedia
	}

	if !p.MediaKind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMediaKind, p.MediaKind)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = e.now()
	}

	post := &entities.Post{
		ID:         uuid.New(),
		AuthorID:   p.AuthorID,
		Caption:    p.Caption,
		MediaURL:   p.MediaURL,
		MediaKind:  p.MediaKind,
		LikesCount: p.LikesCount,
		CreatedAt:  createdAt,
	}

	if p.MediaKind == entities.VideoMedia {
		post.ThumbnailURL = p.ThumbnailURL
	}

	out, err := e.s.InsertPost(post)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	e.s.AddUserCounters(p.AuthorID, storage.UserCounters{Posts: 1})

	return out, nil
}

// DeletePost removes the post and decrements the author's posts count.
// Comments and likes of the post are kept. It returns nil if there is no such post.
func (e *Engine) DeletePost(id uuid.UUID) *entities.Post {
	p := e.s.DeletePost(id)
	if p == nil {
		return nil
	}

	e.s.AddUserCounters(p.AuthorID, storage.UserCounters{Posts: -1})

	return p
}

// ToggleLike flips the viewer's like on the post and adjusts the post's likes count.
// It returns the updated post and whether the viewer likes it now, or nil if there is no such post.
func (e *Engine) ToggleLike(viewer, postID uuid.UUID) (*entities.Post, bool) {
	if e.s.GetPost(postID) == nil {
		return nil, false
	}

	target := storage.LikeTarget{Kind: storage.PostTarget, ID: postID}
	liked := !e.s.IsLiked(viewer, target)
	e.s.SetLike(viewer, target, liked)

	return e.s.AddPostCounters(postID, storage.PostCounters{Likes: likeDelta(liked)}), liked
}

// ToggleCommentLike flips the viewer's like on the comment and adjusts the comment's likes count.
func (e *Engine) ToggleCommentLike(viewer, commentID uuid.UUID) (*entities.Comment, bool) {
	if e.s.GetComment(commentID) == nil {
		return nil, false
	}

	target := storage.LikeTarget{Kind: storage.CommentTarget, ID: commentID}
	liked := !e.s.IsLiked(viewer, target)
	e.s.SetLike(viewer, target, liked)

	return e.s.AddCommentLikes(commentID, likeDelta(liked)), liked
}

// AddComment appends a comment to the post and increments its comments count.
// The author is copied into the comment as of now. Empty text is accepted.
// A comment to a missing post is still stored, only the counter is skipped.
func (e *Engine) AddComment(postID, authorID uuid.UUID, text string) (*entities.Comment, error) {
	c, err := e.s.InsertComment(&entities.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		AuthorID:  authorID,
		Author:    e.s.GetUser(authorID),
		Text:      text,
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	if e.s.GetPost(postID) != nil {
		e.s.AddPostCounters(postID, storage.PostCounters{Comments: 1})
	}

	return c, nil
}

func likeDelta(liked bool) int {
	if liked {
		return 1
	}

	return -1
}
