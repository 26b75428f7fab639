// Package fixtures generates, reads and applies sample data sets.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/interaction"
	"github.com/Decentr-net/socialfeed/internal/service"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

var log = logrus.WithField("package", "fixtures")

// ErrUnknownReference is returned when a fixture refers to a missing user or post.
var ErrUnknownReference = errors.New("unknown reference")

// Set is a sample data set. Users are referenced by username, posts by key.
type Set struct {
	Users    []User    `yaml:"users"`
	Posts    []Post    `yaml:"posts"`
	Follows  []Follow  `yaml:"follows,omitempty"`
	Comments []Comment `yaml:"comments,omitempty"`
	Likes    []Like    `yaml:"likes,omitempty"`
}

// User ...
type User struct {
	Username    string `yaml:"username"`
	DisplayName string `yaml:"displayName"`
	Bio         string `yaml:"bio,omitempty"`
	Avatar      string `yaml:"avatar,omitempty"`
}

// Post ...
type Post struct {
	Key          string             `yaml:"key"`
	Author       string             `yaml:"author"`
	Caption      string             `yaml:"caption"`
	MediaURL     string             `yaml:"mediaUrl"`
	MediaKind    entities.MediaKind `yaml:"mediaKind"`
	ThumbnailURL string             `yaml:"thumbnailUrl,omitempty"`
	LikesCount   uint32             `yaml:"likesCount"`
	CreatedAt    time.Time          `yaml:"createdAt"`
}

// Follow ...
type Follow struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
}

// Comment ...
type Comment struct {
	Post   string `yaml:"post"`
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// Like ...
type Like struct {
	User string `yaml:"user"`
	Post string `yaml:"post"`
}

// Result maps fixture references to created ids.
type Result struct {
	Users map[string]uuid.UUID
	Posts map[string]uuid.UUID
}

// nolint:gochecknoglobals
var (
	sampleUsers = []User{
		{Username: "johndoe", DisplayName: "John Doe", Bio: "Photography enthusiast | Travel lover", Avatar: "https://picsum.photos/seed/user1/200"},
		{Username: "janedoe", DisplayName: "Jane Doe", Bio: "Artist & Designer", Avatar: "https://picsum.photos/seed/user2/200"},
		{Username: "alexsmith", DisplayName: "Alex Smith", Bio: "Tech geek | Coffee addict", Avatar: "https://picsum.photos/seed/user3/200"},
		{Username: "sarahwilson", DisplayName: "Sarah Wilson", Bio: "Foodie | Chef | Recipe creator", Avatar: "https://picsum.photos/seed/user4/200"},
		{Username: "mikebrown", DisplayName: "Mike Brown", Bio: "Fitness trainer | Healthy lifestyle", Avatar: "https://picsum.photos/seed/user5/200"},
	}

	sampleCaptions = []string{
		"Beautiful sunset today! 🌅",
		"Coffee time ☕️",
		"Amazing view from the top!",
		"Just finished this masterpiece",
		"Weekend vibes",
		"New adventure begins",
		"Simple pleasures",
		"Making memories",
		"Nature at its finest",
		"City lights",
	}
)

// SamplePostsCount is the number of posts created by Generate.
const SamplePostsCount = 20

// Generate returns the sample set: five users and twenty posts spread over them, half a day apart back from now.
// Every fifth post is a video. Like counts are drawn from a PRNG seeded with seed.
func Generate(seed int64, now time.Time) *Set {
	rnd := rand.New(rand.NewSource(seed)) // nolint:gosec

	set := &Set{
		Users: append([]User(nil), sampleUsers...),
		Posts: make([]Post, SamplePostsCount),
	}

	for i := range set.Posts {
		p := Post{
			Key:        fmt.Sprintf("post%d", i),
			Author:     sampleUsers[i%len(sampleUsers)].Username,
			Caption:    sampleCaptions[i%len(sampleCaptions)],
			MediaURL:   fmt.Sprintf("https://picsum.photos/seed/post%d/600/600", i),
			MediaKind:  entities.ImageMedia,
			LikesCount: uint32(10 + rnd.Intn(4991)),
			CreatedAt:  now.Add(-time.Duration(i) * 12 * time.Hour).UTC(),
		}

		if i%5 == 0 {
			p.MediaKind = entities.VideoMedia
			p.ThumbnailURL = fmt.Sprintf("https://picsum.photos/seed/thumb%d/600/600", i)
		}

		set.Posts[i] = p
	}

	return set
}

// Load reads a set from the YAML file.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close() // nolint:errcheck

	return Decode(f)
}

// Decode reads a set in YAML format from r.
func Decode(r io.Reader) (*Set, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var set Set
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	return &set, nil
}

// Encode writes the set to w in YAML format.
func Encode(w io.Writer, set *Set) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("failed to encode fixtures: %w", err)
	}

	return enc.Close()
}

// Apply creates the set through s. Existing users with the same username are reused.
// Posts are created oldest first so the post collection stays newest first.
func Apply(ctx context.Context, s service.Service, set *Set) (*Result, error) {
	res := &Result{
		Users: make(map[string]uuid.UUID, len(set.Users)),
		Posts: make(map[string]uuid.UUID, len(set.Posts)),
	}

	for _, v := range set.Users {
		id, err := applyUser(ctx, s, v)
		if err != nil {
			return nil, err
		}
		res.Users[v.Username] = id
	}

	posts := append([]Post(nil), set.Posts...)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})

	for _, v := range posts {
		author, ok := res.Users[v.Author]
		if !ok {
			return nil, fmt.Errorf("%w: post %s author %s", ErrUnknownReference, v.Key, v.Author)
		}

		p := interaction.CreatePostParams{
			AuthorID:   author,
			Caption:    v.Caption,
			MediaURL:   v.MediaURL,
			MediaKind:  v.MediaKind,
			LikesCount: v.LikesCount,
			CreatedAt:  v.CreatedAt,
		}
		if v.ThumbnailURL != "" {
			thumb := v.ThumbnailURL
			p.ThumbnailURL = &thumb
		}

		post, err := s.CreatePost(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to create post %s: %w", v.Key, err)
		}
		res.Posts[v.Key] = post.ID
	}

	for _, v := range set.Follows {
		follower, followee, err := res.users(v.Follower, v.Followee)
		if err != nil {
			return nil, fmt.Errorf("follow: %w", err)
		}

		if err := s.Follow(ctx, follower, followee); err != nil {
			return nil, fmt.Errorf("failed to follow: %w", err)
		}
	}

	for _, v := range set.Comments {
		author, post, err := res.userAndPost(v.Author, v.Post)
		if err != nil {
			return nil, fmt.Errorf("comment: %w", err)
		}

		if _, err := s.AddComment(ctx, post, author, v.Text); err != nil {
			return nil, fmt.Errorf("failed to add comment: %w", err)
		}
	}

	for _, v := range set.Likes {
		user, post, err := res.userAndPost(v.User, v.Post)
		if err != nil {
			return nil, fmt.Errorf("like: %w", err)
		}

		if _, err := s.ToggleLike(ctx, user, post); err != nil {
			return nil, fmt.Errorf("failed to like: %w", err)
		}
	}

	log.WithField("users", len(res.Users)).WithField("posts", len(res.Posts)).Info("fixtures applied")

	return res, nil
}

func applyUser(ctx context.Context, s service.Service, v User) (uuid.UUID, error) {
	p := service.CreateUserParams{
		Username:    v.Username,
		DisplayName: v.DisplayName,
		Bio:         v.Bio,
	}
	if v.Avatar != "" {
		avatar := v.Avatar
		p.Avatar = &avatar
	}

	u, err := s.CreateUser(ctx, p)
	if err == nil {
		return u.ID, nil
	}

	if !errors.Is(err, storage.ErrUsernameTaken) {
		return uuid.Nil, fmt.Errorf("failed to create user %s: %w", v.Username, err)
	}

	u, err = s.GetUserByUsername(ctx, v.Username)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get user %s: %w", v.Username, err)
	}

	log.WithField("username", v.Username).Debug("user exists, reuse it")

	return u.ID, nil
}

func (r *Result) users(a, b string) (uuid.UUID, uuid.UUID, error) {
	x, ok := r.Users[a]
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: user %s", ErrUnknownReference, a)
	}

	y, ok := r.Users[b]
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: user %s", ErrUnknownReference, b)
	}

	return x, y, nil
}

func (r *Result) userAndPost(user, post string) (uuid.UUID, uuid.UUID, error) {
	u, ok := r.Users[user]
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: user %s", ErrUnknownReference, user)
	}

	p, ok := r.Posts[post]
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: post %s", ErrUnknownReference, post)
	}

	return u, p, nil
}
