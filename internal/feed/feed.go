// Package feed composes ordered, read-only views over the store.
package feed

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/graph"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

// DefaultSuggestedLimit is the number of suggestions shown to the current user.
const DefaultSuggestedLimit = 5

// Composer ...
type Composer struct {
	s storage.Storage
	g *graph.Graph
}

// New creates new instance of Composer.
func New(s storage.Storage, g *graph.Graph) *Composer {
	return &Composer{
		s: s,
		g: g,
	}
}

// Post returns the post as seen by viewer or nil.
func (c *Composer) Post(viewer, id uuid.UUID) *entities.PostView {
	p := c.s.GetPost(id)
	if p == nil {
		return nil
	}

	return c.views(viewer, []*entities.Post{p})[0]
}

// PostsByAuthor returns posts of the author, newest first.
func (c *Composer) PostsByAuthor(viewer, author uuid.UUID) []*entities.PostView {
	return c.listPosts(viewer, storage.ListPostsParams{
		Authors: map[uuid.UUID]struct{}{author: {}},
	})
}

// ExplorePosts returns all posts, newest first.
func (c *Composer) ExplorePosts(viewer uuid.UUID) []*entities.PostView {
	return c.listPosts(viewer, storage.ListPostsParams{})
}

// HomeFeed returns posts of users followed by user, newest first.
// User's own posts are included only if user follows themselves.
func (c *Composer) HomeFeed(user uuid.UUID) []*entities.PostView {
	return c.listPosts(user, storage.ListPostsParams{
		Authors: c.g.FollowingIDs(user),
	})
}

// Comments returns comments of the post, oldest first.
// Comments keep the author as it was at comment time.
func (c *Composer) Comments(viewer, postID uuid.UUID) []*entities.CommentView {
	comments := c.s.ListComments(postID)

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})

	out := make([]*entities.CommentView, len(comments))
	for i, v := range comments {
		out[i] = &entities.CommentView{
			Comment: *v,
			IsLiked: c.s.IsLiked(viewer, storage.LikeTarget{Kind: storage.CommentTarget, ID: v.ID}),
		}
	}

	return out
}

// SearchUsers returns users whose username or display name contains query, case-insensitive, in store order.
// Empty query matches nobody.
func (c *Composer) SearchUsers(query string) []*entities.User {
	if query == "" {
		return []*entities.User{}
	}

	q := strings.ToLower(query)

	users := c.s.ListUsers(storage.ListUsersParams{})
	out := users[:0]
	for _, v := range users {
		if strings.Contains(strings.ToLower(v.Username), q) || strings.Contains(strings.ToLower(v.DisplayName), q) {
			out = append(out, v)
		}
	}

	return out
}

// SuggestedUsers returns up to limit users which are neither user nor followed by user, in store order.
func (c *Composer) SuggestedUsers(user uuid.UUID, limit int) []*entities.User {
	if limit <= 0 {
		return []*entities.User{}
	}

	following := c.g.FollowingIDs(user)

	users := c.s.ListUsers(storage.ListUsersParams{})
	out := make([]*entities.User, 0, limit)
	for _, v := range users {
		if len(out) == limit {
			break
		}

		if _, ok := following[v.ID]; ok || v.ID == user {
			continue
		}

		out = append(out, v)
	}

	return out
}

func (c *Composer) listPosts(viewer uuid.UUID, p storage.ListPostsParams) []*entities.PostView {
	posts := c.s.ListPosts(p)

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	return c.views(viewer, posts)
}

// views joins posts with their current authors and viewer's likes.
func (c *Composer) views(viewer uuid.UUID, posts []*entities.Post) []*entities.PostView {
	authors := make(map[uuid.UUID]*entities.User)

	out := make([]*entities.PostView, len(posts))
	for i, v := range posts {
		author, ok := authors[v.AuthorID]
		if !ok {
			author = c.s.GetUser(v.AuthorID)
			authors[v.AuthorID] = author
		}

		out[i] = &entities.PostView{
			Post:    *v,
			Author:  author.Clone(),
			IsLiked: c.s.IsLiked(viewer, storage.LikeTarget{Kind: storage.PostTarget, ID: v.ID}),
		}
	}

	return out
}
