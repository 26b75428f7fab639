// Package graph maintains follow edges and the follow counters of users.
package graph

import (
	"time"

	"github.com/google/uuid"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

// Graph answers follow queries and applies follow mutations.
type Graph struct {
	s   storage.Storage
	now func() time.Time
}

// New creates new instance of Graph. If now is nil time.Now is used.
func New(s storage.Storage, now func() time.Time) *Graph {
	if now == nil {
		now = time.Now
	}

	return &Graph{
		s:   s,
		now: now,
	}
}

// IsFollowing returns true if a follows b.
func (g *Graph) IsFollowing(a, b uuid.UUID) bool {
	return g.s.HasFollow(a, b)
}

// FollowingIDs returns a set of users followed by a.
func (g *Graph) FollowingIDs(a uuid.UUID) map[uuid.UUID]struct{} {
	follows := g.s.ListFollows(storage.ListFollowsParams{Follower: &a})

	out := make(map[uuid.UUID]struct{}, len(follows))
	for _, v := range follows {
		out[v.FolloweeID] = struct{}{}
	}

	return out
}

// Followers returns users following a in store order.
func (g *Graph) Followers(a uuid.UUID) []*entities.User {
	follows := g.s.ListFollows(storage.ListFollowsParams{Followee: &a})

	ids := make(map[uuid.UUID]struct{}, len(follows))
	for _, v := range follows {
		ids[v.FollowerID] = struct{}{}
	}

	return g.s.ListUsers(storage.ListUsersParams{IDs: ids})
}

// Following returns users followed by a in store order.
func (g *Graph) Following(a uuid.UUID) []*entities.User {
	return g.s.ListUsers(storage.ListUsersParams{IDs: g.FollowingIDs(a)})
}

// Follow creates the a→b edge. It returns false and changes nothing if the edge exists.
func (g *Graph) Follow(a, b uuid.UUID) bool {
	if !g.s.InsertFollow(&entities.Follow{
		ID:         uuid.New(),
		FollowerID: a,
		FolloweeID: b,
		CreatedAt:  g.now(),
	}) {
		return false
	}

	g.s.AddUserCounters(a, storage.UserCounters{Following: 1})
	g.s.AddUserCounters(b, storage.UserCounters{Followers: 1})

	return true
}

// Unfollow removes the a→b edge and returns false if there was none.
// Counters are decremented once per removed edge and never go below zero.
func (g *Graph) Unfollow(a, b uuid.UUID) bool {
	n := g.s.DeleteFollows(a, b)
	if n == 0 {
		return false
	}

	g.s.AddUserCounters(a, storage.UserCounters{Following: -n})
	g.s.AddUserCounters(b, storage.UserCounters{Followers: -n})

	return true
}

// ToggleFollow unfollows b if a follows b and follows it otherwise.
// It returns whether a follows b afterwards.
func (g *Graph) ToggleFollow(a, b uuid.UUID) bool {
	if g.IsFollowing(a, b) {
		g.Unfollow(a, b)
		return false
	}

	g.Follow(a, b)

	return true
}
