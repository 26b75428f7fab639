// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/feed"
	"github.com/Decentr-net/socialfeed/internal/graph"
	"github.com/Decentr-net/socialfeed/internal/interaction"
	"github.com/Decentr-net/socialfeed/internal/metrics"
	"github.com/Decentr-net/socialfeed/internal/notify"
	"github.com/Decentr-net/socialfeed/internal/service"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

var log = logrus.WithField("layer", "service").WithField("package", "impl")

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("already running")

var errPanic = errors.New("operation panicked")

type op struct {
	name     string
	f        func()
	enqueued time.Time
	err      error
	done     chan struct{}
}

// Actor is the service implementation which executes every operation on a single goroutine in arrival order.
type Actor struct {
	s   storage.Storage
	j   *notify.Journal
	b   *notify.Broker
	now func() time.Time

	g *graph.Graph
	e *interaction.Engine
	c *feed.Composer

	running int32
	ops     chan *op
	stopped chan struct{}
}

// Option ...
type Option func(a *Actor)

// WithClock sets a clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Actor) {
		a.now = now
	}
}

// New creates new instance of service.
// j must be the journal s records its changes to, changes are published to b after every operation.
func New(s storage.Storage, j *notify.Journal, b *notify.Broker, opts ...Option) *Actor {
	a := &Actor{
		s:       s,
		j:       j,
		b:       b,
		now:     time.Now,
		ops:     make(chan *op),
		stopped: make(chan struct{}),
	}

	for _, o := range opts {
		o(a)
	}

	a.g = graph.New(s, a.now)
	a.e = interaction.New(s, a.now)
	a.c = feed.New(s, a.g)

	return a
}

// Run executes queued operations until ctx is done. Operations requested afterwards fail with service.ErrStopped.
func (a *Actor) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&a.running, 0, 1) {
		return ErrAlreadyRunning
	}

	defer func() {
		close(a.stopped)
		a.b.Close()
		log.Info("stopped")
	}()

	log.Info("started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-a.ops:
			a.exec(o)
		}
	}
}

func (a *Actor) exec(o *op) {
	defer close(o.done)

	metrics.ObserveQueueWait(o.enqueued)
	metrics.IncOperation(o.name)

	if err := safeCall(o.f); err != nil {
		// an interrupted operation can leave partial changes behind, they are still reported
		log.WithField("operation", o.name).WithError(err).Error("operation failed")
		o.err = err
	}

	changes := a.j.Flush()
	a.b.Publish(changes...)
	metrics.ChangesPublished.Add(float64(len(changes)))
}

func safeCall(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	f()

	return nil
}

func (a *Actor) do(ctx context.Context, name string, f func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o := &op{
		name:     name,
		f:        f,
		enqueued: time.Now(),
		done:     make(chan struct{}),
	}

	select {
	case a.ops <- o:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopped:
		return service.ErrStopped
	}

	<-o.done

	return o.err
}

func call[T any](ctx context.Context, a *Actor, name string, f func() T) (T, error) {
	var out T

	if err := a.do(ctx, name, func() { out = f() }); err != nil {
		var empty T
		return empty, err
	}

	return out, nil
}

// Ping checks that operations are being executed.
func (a *Actor) Ping(ctx context.Context) error {
	return a.do(ctx, "ping", func() {})
}

// Subscribe ...
func (a *Actor) Subscribe(buffer int) (<-chan entities.Change, func()) {
	return a.b.Subscribe(buffer)
}

func (a *Actor) CreateUser(ctx context.Context, p service.CreateUserParams) (*entities.User, error) {
	var (
		u   *entities.User
		err error
	)

	if err := a.do(ctx, "create_user", func() {
		id, createdAt := p.ID, p.CreatedAt
		if id == uuid.Nil {
			id = uuid.New()
		}
		if createdAt.IsZero() {
			createdAt = a.now()
		}

		u, err = a.s.CreateUser(&entities.User{
			ID:          id,
			Username:    p.Username,
			DisplayName: p.DisplayName,
			Bio:         p.Bio,
			Avatar:      p.Avatar,
			CreatedAt:   createdAt,
		})
	}); err != nil {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (a *Actor) GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return call(ctx, a, "get_user", func() *entities.User {
		return a.s.GetUser(id)
	})
}

func (a *Actor) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return call(ctx, a, "get_user_by_username", func() *entities.User {
		return a.s.GetUserByUsername(username)
	})
}

func (a *Actor) ListUsers(ctx context.Context) ([]*entities.User, error) {
	return call(ctx, a, "list_users", func() []*entities.User {
		return a.s.ListUsers(storage.ListUsersParams{})
	})
}

func (a *Actor) UpdateProfile(ctx context.Context, id uuid.UUID, p storage.UpdateProfileParams) (*entities.User, error) {
	return call(ctx, a, "update_profile", func() *entities.User {
		return a.s.UpdateProfile(id, p)
	})
}

func (a *Actor) CreatePost(ctx context.Context, p interaction.CreatePostParams) (*entities.Post, error) {
	var (
		post *entities.Post
		err  error
	)

	if err := a.do(ctx, "create_post", func() {
		post, err = a.e.CreatePost(p)
	}); err != nil {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (a *Actor) DeletePost(ctx context.Context, id uuid.UUID) (*entities.Post, error) {
	return call(ctx, a, "delete_post", func() *entities.Post {
		return a.e.DeletePost(id)
	})
}

func (a *Actor) GetPost(ctx context.Context, viewer, id uuid.UUID) (*entities.PostView, error) {
	return call(ctx, a, "get_post", func() *entities.PostView {
		return a.c.Post(viewer, id)
	})
}

func (a *Actor) IsFollowing(ctx context.Context, x, y uuid.UUID) (bool, error) {
	return call(ctx, a, "is_following", func() bool {
		return a.g.IsFollowing(x, y)
	})
}

func (a *Actor) FollowingIDs(ctx context.Context, x uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return call(ctx, a, "following_ids", func() map[uuid.UUID]struct{} {
		return a.g.FollowingIDs(x)
	})
}

func (a *Actor) Followers(ctx context.Context, x uuid.UUID) ([]*entities.User, error) {
	return call(ctx, a, "followers", func() []*entities.User {
		return a.g.Followers(x)
	})
}

func (a *Actor) Following(ctx context.Context, x uuid.UUID) ([]*entities.User, error) {
	return call(ctx, a, "following", func() []*entities.User {
		return a.g.Following(x)
	})
}

func (a *Actor) Follow(ctx context.Context, x, y uuid.UUID) error {
	return a.do(ctx, "follow", func() {
		a.g.Follow(x, y)
	})
}

func (a *Actor) Unfollow(ctx context.Context, x, y uuid.UUID) error {
	return a.do(ctx, "unfollow", func() {
		a.g.Unfollow(x, y)
	})
}

func (a *Actor) ToggleFollow(ctx context.Context, x, y uuid.UUID) (bool, error) {
	return call(ctx, a, "toggle_follow", func() bool {
		return a.g.ToggleFollow(x, y)
	})
}

func (a *Actor) ToggleLike(ctx context.Context, viewer, postID uuid.UUID) (*entities.PostView, error) {
	return call(ctx, a, "toggle_like", func() *entities.PostView {
		if p, _ := a.e.ToggleLike(viewer, postID); p == nil {
			return nil
		}

		return a.c.Post(viewer, postID)
	})
}

func (a *Actor) ToggleCommentLike(ctx context.Context, viewer, commentID uuid.UUID) (*entities.CommentView, error) {
	return call(ctx, a, "toggle_comment_like", func() *entities.CommentView {
		c, liked := a.e.ToggleCommentLike(viewer, commentID)
		if c == nil {
			return nil
		}

		return &entities.CommentView{Comment: *c, IsLiked: liked}
	})
}

func (a *Actor) AddComment(ctx context.Context, postID, authorID uuid.UUID, text string) (*entities.Comment, error) {
	var (
		c   *entities.Comment
		err error
	)

	if err := a.do(ctx, "add_comment", func() {
		c, err = a.e.AddComment(postID, authorID, text)
	}); err != nil {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return c, nil
}

func (a *Actor) Comments(ctx context.Context, viewer, postID uuid.UUID) ([]*entities.CommentView, error) {
	return call(ctx, a, "comments", func() []*entities.CommentView {
		return a.c.Comments(viewer, postID)
	})
}

func (a *Actor) PostsByAuthor(ctx context.Context, viewer, author uuid.UUID) ([]*entities.PostView, error) {
	return call(ctx, a, "posts_by_author", func() []*entities.PostView {
		return a.c.PostsByAuthor(viewer, author)
	})
}

func (a *Actor) ExplorePosts(ctx context.Context, viewer uuid.UUID) ([]*entities.PostView, error) {
	return call(ctx, a, "explore_posts", func() []*entities.PostView {
		return a.c.ExplorePosts(viewer)
	})
}

func (a *Actor) HomeFeed(ctx context.Context, user uuid.UUID) ([]*entities.PostView, error) {
	return call(ctx, a, "home_feed", func() []*entities.PostView {
		return a.c.HomeFeed(user)
	})
}

func (a *Actor) SearchUsers(ctx context.Context, query string) ([]*entities.User, error) {
	return call(ctx, a, "search_users", func() []*entities.User {
		return a.c.SearchUsers(query)
	})
}

func (a *Actor) SuggestedUsers(ctx context.Context, user uuid.UUID, limit int) ([]*entities.User, error) {
	return call(ctx, a, "suggested_users", func() []*entities.User {
		return a.c.SuggestedUsers(user, limit)
	})
}

var _ service.Service = (*Actor)(nil)
