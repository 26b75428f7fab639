package fixtures

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/notify"
	"github.com/Decentr-net/socialfeed/internal/service"
	"github.com/Decentr-net/socialfeed/internal/service/impl"
	"github.com/Decentr-net/socialfeed/internal/storage/memory"
)

var timestamp = time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)

func start(t *testing.T) service.Service {
	j := notify.NewJournal()
	a := impl.New(memory.New(j), j, notify.NewBroker(), impl.WithClock(func() time.Time { return timestamp }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, a.Run(ctx))
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return a
}

func TestGenerate(t *testing.T) {
	set := Generate(42, timestamp)

	require.Len(t, set.Users, 5)
	require.Len(t, set.Posts, SamplePostsCount)
	assert.Equal(t, Generate(42, timestamp), set)

	perAuthor := map[string]int{}
	for i, p := range set.Posts {
		perAuthor[p.Author]++

		assert.Equal(t, timestamp.Add(-time.Duration(i)*12*time.Hour), p.CreatedAt)
		assert.True(t, p.LikesCount >= 10 && p.LikesCount <= 5000, p.LikesCount)

		if i%5 == 0 {
			assert.Equal(t, entities.VideoMedia, p.MediaKind)
			assert.NotEmpty(t, p.ThumbnailURL)
		} else {
			assert.Equal(t, entities.ImageMedia, p.MediaKind)
			assert.Empty(t, p.ThumbnailURL)
		}
	}

	for _, u := range set.Users {
		assert.Equal(t, 4, perAuthor[u.Username], u.Username)
	}
}

func TestEncodeDecode(t *testing.T) {
	set := Generate(1, timestamp)

	var b bytes.Buffer
	require.NoError(t, Encode(&b, set))

	got, err := Decode(&b)
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("users:\n  - username: a\n    nickname: b\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	set, err := Load("testdata/small.yml")
	require.NoError(t, err)

	require.Len(t, set.Users, 2)
	require.Len(t, set.Posts, 2)
	assert.Equal(t, entities.VideoMedia, set.Posts[1].MediaKind)
	assert.Equal(t, []Follow{{Follower: "janedoe", Followee: "johndoe"}}, set.Follows)

	_, err = Load("testdata/missing.yml")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	s := start(t)

	set, err := Load("testdata/small.yml")
	require.NoError(t, err)

	res, err := Apply(ctx, s, set)
	require.NoError(t, err)
	require.Len(t, res.Users, 2)
	require.Len(t, res.Posts, 2)

	john, jane := res.Users["johndoe"], res.Users["janedoe"]

	feed, err := s.HomeFeed(ctx, jane)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, res.Posts["sunset"], feed[0].ID)
	assert.True(t, feed[0].IsLiked)
	assert.Equal(t, uint32(11), feed[0].LikesCount)
	assert.Equal(t, uint32(1), feed[0].CommentsCount)

	explore, err := s.ExplorePosts(ctx, john)
	require.NoError(t, err)
	require.Len(t, explore, 2)
	assert.Equal(t, res.Posts["sunset"], explore[0].ID)
	assert.False(t, explore[0].IsLiked)
	assert.Equal(t, res.Posts["clip"], explore[1].ID)
	require.NotNil(t, explore[1].ThumbnailURL)

	u, err := s.GetUser(ctx, john)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), u.FollowersCount)
	assert.Equal(t, uint32(1), u.PostsCount)
	require.NotNil(t, u.Avatar)

	u, err = s.GetUser(ctx, jane)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), u.FollowingCount)
	assert.Nil(t, u.Avatar)

	// users are reused on the second run
	res2, err := Apply(ctx, s, &Set{Users: set.Users})
	require.NoError(t, err)
	assert.Equal(t, res.Users, res2.Users)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestApply_UnknownReference(t *testing.T) {
	tt := []struct {
		name string
		set  Set
	}{
		{
			name: "post_author",
			set:  Set{Posts: []Post{{Key: "p", Author: "ghost", MediaKind: entities.ImageMedia}}},
		},
		{
			name: "follow",
			set: Set{
				Users:   []User{{Username: "a", DisplayName: "A"}},
				Follows: []Follow{{Follower: "a", Followee: "ghost"}},
			},
		},
		{
			name: "comment",
			set: Set{
				Users:    []User{{Username: "a", DisplayName: "A"}},
				Comments: []Comment{{Post: "ghost", Author: "a", Text: "hi"}},
			},
		},
		{
			name: "like",
			set: Set{
				Users: []User{{Username: "a", DisplayName: "A"}},
				Likes: []Like{{User: "ghost", Post: "p"}},
			},
		},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(context.Background(), start(t), &tc.set)
			assert.True(t, errors.Is(err, ErrUnknownReference), err)
		})
	}
}
