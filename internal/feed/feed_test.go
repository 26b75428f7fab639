package feed

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/graph"
	"github.com/Decentr-net/socialfeed/internal/interaction"
	"github.com/Decentr-net/socialfeed/internal/storage"
	"github.com/Decentr-net/socialfeed/internal/storage/memory"
)

var timestamp = time.Unix(1000, 0).UTC()

type env struct {
	s storage.Storage
	g *graph.Graph
	e *interaction.Engine
	c *Composer
}

func setup() env {
	s := memory.New(nil)
	g := graph.New(s, nil)

	return env{
		s: s,
		g: g,
		e: interaction.New(s, nil),
		c: New(s, g),
	}
}

func (e env) user(t *testing.T, username, displayName string) *entities.User {
	u, err := e.s.CreateUser(&entities.User{ID: uuid.New(), Username: username, DisplayName: displayName})
	require.NoError(t, err)

	return u
}

func (e env) post(t *testing.T, author uuid.UUID, createdAt time.Time) *entities.Post {
	p, err := e.e.CreatePost(interaction.CreatePostParams{
		AuthorID:  author,
		MediaURL:  "url",
		CreatedAt: createdAt,
	})
	require.NoError(t, err)

	return p
}

func ids(posts []*entities.PostView) []uuid.UUID {
	out := make([]uuid.UUID, len(posts))
	for i, v := range posts {
		out[i] = v.ID
	}

	return out
}

func usernames(users []*entities.User) []string {
	out := make([]string, len(users))
	for i, v := range users {
		out[i] = v.Username
	}

	return out
}

func TestComposer_ExplorePosts(t *testing.T) {
	e := setup()

	a, b := e.user(t, "a", "A"), e.user(t, "b", "B")

	old := e.post(t, a.ID, timestamp)
	newest := e.post(t, b.ID, timestamp.Add(2*time.Hour))
	// inserted last but created in between
	middle := e.post(t, a.ID, timestamp.Add(time.Hour))

	require.Equal(t, []uuid.UUID{newest.ID, middle.ID, old.ID}, ids(e.c.ExplorePosts(a.ID)))
}

func TestComposer_ExplorePosts_StableTies(t *testing.T) {
	e := setup()

	a := e.user(t, "a", "A")

	first := e.post(t, a.ID, timestamp)
	second := e.post(t, a.ID, timestamp)
	third := e.post(t, a.ID, timestamp)

	for i := 0; i < 10; i++ {
		require.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID}, ids(e.c.ExplorePosts(a.ID)))
	}
}

func TestComposer_PostsByAuthor(t *testing.T) {
	e := setup()

	a, b := e.user(t, "a", "A"), e.user(t, "b", "B")

	p1 := e.post(t, a.ID, timestamp)
	e.post(t, b.ID, timestamp.Add(time.Minute))
	p3 := e.post(t, a.ID, timestamp.Add(2*time.Minute))

	require.Equal(t, []uuid.UUID{p3.ID, p1.ID}, ids(e.c.PostsByAuthor(b.ID, a.ID)))
	require.Empty(t, e.c.PostsByAuthor(a.ID, uuid.New()))
}

func TestComposer_HomeFeed(t *testing.T) {
	e := setup()

	me, friend, stranger := e.user(t, "me", "Me"), e.user(t, "friend", "Friend"), e.user(t, "stranger", "Stranger")

	e.post(t, me.ID, timestamp)
	fp1 := e.post(t, friend.ID, timestamp.Add(time.Minute))
	e.post(t, stranger.ID, timestamp.Add(2*time.Minute))
	fp2 := e.post(t, friend.ID, timestamp.Add(3*time.Minute))

	require.Empty(t, e.c.HomeFeed(me.ID))

	e.g.Follow(me.ID, friend.ID)

	feed := e.c.HomeFeed(me.ID)
	require.Equal(t, []uuid.UUID{fp2.ID, fp1.ID}, ids(feed))

	following := e.g.FollowingIDs(me.ID)
	for _, v := range feed {
		_, ok := following[v.AuthorID]
		require.True(t, ok)
	}
}

func TestComposer_HomeFeed_SelfFollow(t *testing.T) {
	e := setup()

	me := e.user(t, "me", "Me")
	p := e.post(t, me.ID, timestamp)

	require.Empty(t, e.c.HomeFeed(me.ID))

	e.g.Follow(me.ID, me.ID)
	require.Equal(t, []uuid.UUID{p.ID}, ids(e.c.HomeFeed(me.ID)))
}

func TestComposer_Views(t *testing.T) {
	e := setup()

	author, viewer := e.user(t, "author", "Author"), e.user(t, "viewer", "Viewer")
	p := e.post(t, author.ID, timestamp)

	e.e.ToggleLike(viewer.ID, p.ID)

	v := e.c.Post(viewer.ID, p.ID)
	require.NotNil(t, v)
	require.True(t, v.IsLiked)
	require.EqualValues(t, 1, v.LikesCount)
	require.Equal(t, "Author", v.Author.DisplayName)

	require.False(t, e.c.Post(author.ID, p.ID).IsLiked, "like belongs to viewer only")

	name := "Renamed"
	e.s.UpdateProfile(author.ID, storage.UpdateProfileParams{DisplayName: &name})
	require.Equal(t, "Renamed", e.c.ExplorePosts(viewer.ID)[0].Author.DisplayName, "author is resolved live")

	require.Nil(t, e.c.Post(viewer.ID, uuid.New()))
}

func TestComposer_Comments(t *testing.T) {
	e := setup()

	author := e.user(t, "author", "Author")
	p := e.post(t, author.ID, timestamp)

	now := timestamp
	e.e = interaction.New(e.s, func() time.Time { return now })

	c1, err := e.e.AddComment(p.ID, author.ID, "first")
	require.NoError(t, err)
	c2, err := e.e.AddComment(p.ID, author.ID, "second")
	require.NoError(t, err)
	now = now.Add(-time.Hour)
	c0, err := e.e.AddComment(p.ID, author.ID, "backdated")
	require.NoError(t, err)

	e.e.ToggleCommentLike(author.ID, c2.ID)

	name := "Renamed"
	e.s.UpdateProfile(author.ID, storage.UpdateProfileParams{DisplayName: &name})

	comments := e.c.Comments(author.ID, p.ID)
	require.Len(t, comments, 3)
	assert.Equal(t, c0.ID, comments[0].ID)
	assert.Equal(t, c1.ID, comments[1].ID)
	assert.Equal(t, c2.ID, comments[2].ID)
	assert.True(t, comments[2].IsLiked)
	assert.False(t, comments[1].IsLiked)
	assert.Equal(t, "Author", comments[0].Author.DisplayName)

	require.EqualValues(t, len(comments), e.s.GetPost(p.ID).CommentsCount)
}

func TestComposer_SearchUsers(t *testing.T) {
	e := setup()

	e.user(t, "johndoe", "John Doe")
	e.user(t, "janedoe", "Jane Doe")
	e.user(t, "alexsmith", "Alex Smith")
	e.user(t, "mikebrown", "Mike JOnes")

	tt := []struct {
		query    string
		expected []string
	}{
		{query: "", expected: []string{}},
		{query: "jo", expected: []string{"johndoe", "mikebrown"}},
		{query: "JOHN", expected: []string{"johndoe"}},
		{query: "doe", expected: []string{"johndoe", "janedoe"}},
		{query: "smith", expected: []string{"alexsmith"}},
		{query: "nobody", expected: []string{}},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.query, func(t *testing.T) {
			require.Equal(t, tc.expected, usernames(e.c.SearchUsers(tc.query)))
		})
	}
}

func TestComposer_SearchUsers_Doe(t *testing.T) {
	e := setup()

	e.user(t, "johndoe", "John Doe")
	e.user(t, "janedoe", "Jane Doe")

	require.Empty(t, e.c.SearchUsers(""))
	require.Equal(t, []string{"johndoe"}, usernames(e.c.SearchUsers("jo")))
}

func TestComposer_SuggestedUsers(t *testing.T) {
	e := setup()

	me := e.user(t, "me", "Me")
	a, b, c := e.user(t, "a", "A"), e.user(t, "b", "B"), e.user(t, "c", "C")

	require.Equal(t, []string{"a", "b", "c"}, usernames(e.c.SuggestedUsers(me.ID, 10)))
	require.Equal(t, []string{"a", "b"}, usernames(e.c.SuggestedUsers(me.ID, 2)))

	e.g.Follow(me.ID, b.ID)
	require.Equal(t, []string{"a", "c"}, usernames(e.c.SuggestedUsers(me.ID, 10)))

	e.g.Follow(me.ID, a.ID)
	e.g.Follow(me.ID, c.ID)
	require.Empty(t, e.c.SuggestedUsers(me.ID, 10))

	require.Equal(t, []string{"me", "a", "b"}, usernames(e.c.SuggestedUsers(c.ID, 3)))
}

func TestComposer_SuggestedUsers_Limit(t *testing.T) {
	e := setup()

	me := e.user(t, "me", "Me")
	for _, v := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		e.user(t, v, v)
	}

	require.Len(t, e.c.SuggestedUsers(me.ID, DefaultSuggestedLimit), DefaultSuggestedLimit)

	for _, limit := range []int{0, -1} {
		got := e.c.SuggestedUsers(me.ID, limit)
		require.NotNil(t, got)
		require.Empty(t, got)
	}
}
