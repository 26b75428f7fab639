// Package memory is in-memory implementation of storage interface.
package memory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/notify"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

type edge struct {
	follower uuid.UUID
	followee uuid.UUID
}

type like struct {
	viewer uuid.UUID
	target storage.LikeTarget
}

type nopRecorder struct{}

func (nopRecorder) Record(entities.Change) {}

type mem struct {
	rec notify.Recorder

	users      []*entities.User
	userByID   map[uuid.UUID]*entities.User
	userByName map[string]*entities.User

	// posts is ordered most recent first by insertion.
	posts    []*entities.Post
	postByID map[uuid.UUID]*entities.Post

	follows []*entities.Follow
	edges   map[edge]struct{}

	comments    []*entities.Comment
	commentByID map[uuid.UUID]*entities.Comment

	likes map[like]struct{}
}

// New creates new instance of in-memory storage.
// Every applied mutation is reported to rec, rec may be nil.
func New(rec notify.Recorder) storage.Storage {
	if rec == nil {
		rec = nopRecorder{}
	}

	return &mem{
		rec:         rec,
		userByID:    map[uuid.UUID]*entities.User{},
		userByName:  map[string]*entities.User{},
		postByID:    map[uuid.UUID]*entities.Post{},
		edges:       map[edge]struct{}{},
		commentByID: map[uuid.UUID]*entities.Comment{},
		likes:       map[like]struct{}{},
	}
}

func usernameKey(s string) string {
	return strings.ToLower(s)
}

func (s *mem) CreateUser(u *entities.User) (*entities.User, error) {
	if _, ok := s.userByID[u.ID]; ok {
		return nil, fmt.Errorf("user %s: %w", u.ID, storage.ErrAlreadyExists)
	}

	key := usernameKey(u.Username)
	if _, ok := s.userByName[key]; ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrUsernameTaken, u.Username)
	}

	v := u.Clone()
	s.users = append(s.users, v)
	s.userByID[v.ID] = v
	s.userByName[key] = v

	s.created(entities.UserKind, v.ID)

	return v.Clone(), nil
}

func (s *mem) GetUser(id uuid.UUID) *entities.User {
	return s.userByID[id].Clone()
}

func (s *mem) GetUserByUsername(username string) *entities.User {
	return s.userByName[usernameKey(username)].Clone()
}

func (s *mem) ListUsers(p storage.ListUsersParams) []*entities.User {
	out := make([]*entities.User, 0, len(s.users))

	for _, v := range s.users {
		if p.IDs != nil {
			if _, ok := p.IDs[v.ID]; !ok {
				continue
			}
		}
		out = append(out, v.Clone())
	}

	return out
}

func (s *mem) UpdateProfile(id uuid.UUID, p storage.UpdateProfileParams) *entities.User {
	u, ok := s.userByID[id]
	if !ok {
		return nil
	}

	var fields []string
	if p.DisplayName != nil && u.DisplayName != *p.DisplayName {
		u.DisplayName = *p.DisplayName
		fields = append(fields, entities.FieldDisplayName)
	}
	if p.Bio != nil && u.Bio != *p.Bio {
		u.Bio = *p.Bio
		fields = append(fields, entities.FieldBio)
	}
	if p.Avatar != nil && (u.Avatar == nil || *u.Avatar != *p.Avatar) {
		v := *p.Avatar
		u.Avatar = &v
		fields = append(fields, entities.FieldAvatar)
	}

	s.updated(entities.UserKind, u.ID, fields...)

	return u.Clone()
}

func (s *mem) AddUserCounters(id uuid.UUID, d storage.UserCounters) *entities.User {
	u, ok := s.userByID[id]
	if !ok {
		return nil
	}

	var fields []string
	fields = applyDelta(&u.FollowersCount, d.Followers, entities.FieldFollowersCount, fields)
	fields = applyDelta(&u.FollowingCount, d.Following, entities.FieldFollowingCount, fields)
	fields = applyDelta(&u.PostsCount, d.Posts, entities.FieldPostsCount, fields)

	s.updated(entities.UserKind, u.ID, fields...)

	return u.Clone()
}

func (s *mem) InsertPost(p *entities.Post) (*entities.Post, error) {
	if _, ok := s.postByID[p.ID]; ok {
		return nil, fmt.Errorf("post %s: %w", p.ID, storage.ErrAlreadyExists)
	}

	v := p.Clone()
	s.posts = append([]*entities.Post{v}, s.posts...)
	s.postByID[v.ID] = v

	s.created(entities.PostKind, v.ID)

	return v.Clone(), nil
}

func (s *mem) GetPost(id uuid.UUID) *entities.Post {
	return s.postByID[id].Clone()
}

func (s *mem) DeletePost(id uuid.UUID) *entities.Post {
	p, ok := s.postByID[id]
	if !ok {
		return nil
	}

	delete(s.postByID, id)
	for i, v := range s.posts {
		if v.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			break
		}
	}

	s.rec.Record(entities.Change{Kind: entities.PostKind, ID: id, Op: entities.Deleted})

	return p.Clone()
}

func (s *mem) ListPosts(p storage.ListPostsParams) []*entities.Post {
	out := make([]*entities.Post, 0, len(s.posts))

	for _, v := range s.posts {
		if p.Authors != nil {
			if _, ok := p.Authors[v.AuthorID]; !ok {
				continue
			}
		}
		out = append(out, v.Clone())
	}

	return out
}

func (s *mem) AddPostCounters(id uuid.UUID, d storage.PostCounters) *entities.Post {
	p, ok := s.postByID[id]
	if !ok {
		return nil
	}

	var fields []string
	fields = applyDelta(&p.LikesCount, d.Likes, entities.FieldLikesCount, fields)
	fields = applyDelta(&p.CommentsCount, d.Comments, entities.FieldCommentsCount, fields)

	s.updated(entities.PostKind, p.ID, fields...)

	return p.Clone()
}

func (s *mem) InsertFollow(f *entities.Follow) bool {
	e := edge{follower: f.FollowerID, followee: f.FolloweeID}
	if _, ok := s.edges[e]; ok {
		return false
	}

	v := *f
	s.follows = append(s.follows, &v)
	s.edges[e] = struct{}{}

	s.created(entities.FollowKind, v.ID)

	return true
}

func (s *mem) DeleteFollows(follower, followee uuid.UUID) int {
	var n int

	out := s.follows[:0]
	for _, v := range s.follows {
		if v.FollowerID == follower && v.FolloweeID == followee {
			n++
			s.rec.Record(entities.Change{Kind: entities.FollowKind, ID: v.ID, Op: entities.Deleted})
			continue
		}
		out = append(out, v)
	}
	for i := len(out); i < len(s.follows); i++ {
		s.follows[i] = nil
	}
	s.follows = out

	delete(s.edges, edge{follower: follower, followee: followee})

	return n
}

func (s *mem) HasFollow(follower, followee uuid.UUID) bool {
	_, ok := s.edges[edge{follower: follower, followee: followee}]
	return ok
}

func (s *mem) ListFollows(p storage.ListFollowsParams) []*entities.Follow {
	var out []*entities.Follow

	for _, v := range s.follows {
		if p.Follower != nil && v.FollowerID != *p.Follower {
			continue
		}
		if p.Followee != nil && v.FolloweeID != *p.Followee {
			continue
		}

		f := *v
		out = append(out, &f)
	}

	return out
}

func (s *mem) InsertComment(c *entities.Comment) (*entities.Comment, error) {
	if _, ok := s.commentByID[c.ID]; ok {
		return nil, fmt.Errorf("comment %s: %w", c.ID, storage.ErrAlreadyExists)
	}

	v := c.Clone()
	s.comments = append(s.comments, v)
	s.commentByID[v.ID] = v

	s.created(entities.CommentKind, v.ID)

	return v.Clone(), nil
}

func (s *mem) GetComment(id uuid.UUID) *entities.Comment {
	return s.commentByID[id].Clone()
}

func (s *mem) ListComments(postID uuid.UUID) []*entities.Comment {
	var out []*entities.Comment

	for _, v := range s.comments {
		if v.PostID == postID {
			out = append(out, v.Clone())
		}
	}

	return out
}

func (s *mem) AddCommentLikes(id uuid.UUID, delta int) *entities.Comment {
	c, ok := s.commentByID[id]
	if !ok {
		return nil
	}

	fields := applyDelta(&c.LikesCount, delta, entities.FieldLikesCount, nil)

	s.updated(entities.CommentKind, c.ID, fields...)

	return c.Clone()
}

func (s *mem) SetLike(viewer uuid.UUID, target storage.LikeTarget, liked bool) bool {
	k := like{viewer: viewer, target: target}
	_, ok := s.likes[k]

	switch {
	case liked && !ok:
		s.likes[k] = struct{}{}
		s.rec.Record(entities.Change{Kind: entities.LikeKind, ID: target.ID, Op: entities.Created})
		return true
	case !liked && ok:
		delete(s.likes, k)
		s.rec.Record(entities.Change{Kind: entities.LikeKind, ID: target.ID, Op: entities.Deleted})
		return true
	default:
		return false
	}
}

func (s *mem) IsLiked(viewer uuid.UUID, target storage.LikeTarget) bool {
	_, ok := s.likes[like{viewer: viewer, target: target}]
	return ok
}

func (s *mem) created(k entities.Kind, id uuid.UUID) {
	s.rec.Record(entities.Change{Kind: k, ID: id, Op: entities.Created})
}

func (s *mem) updated(k entities.Kind, id uuid.UUID, fields ...string) {
	if len(fields) == 0 {
		return
	}

	s.rec.Record(entities.Change{Kind: k, ID: id, Op: entities.Updated, Fields: fields})
}

func applyDelta(v *uint32, delta int, field string, fields []string) []string {
	n := addFloored(*v, delta)
	if n == *v {
		return fields
	}
	*v = n

	return append(fields, field)
}

func addFloored(v uint32, delta int) uint32 {
	r := int64(v) + int64(delta)
	if r < 0 {
		return 0
	}

	return uint32(r)
}
