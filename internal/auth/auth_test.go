package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/socialfeed/internal/auth/mock"
	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/service"
	"github.com/Decentr-net/socialfeed/internal/session"
	sessionmock "github.com/Decentr-net/socialfeed/internal/session/mock"
	"github.com/Decentr-net/socialfeed/internal/storage"
)

var errTest = errors.New("test")

func newUser(username string) *entities.User {
	return &entities.User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: username,
		CreatedAt:   time.Unix(100, 0),
	}
}

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()
	existing := newUser("johndoe")
	created := newUser("newbie")

	tt := []struct {
		name     string
		username string
		password string
		expect   func(u *mock.MockUsers, s *sessionmock.MockStorage)

		user *entities.User
		err  error
	}{
		{
			name:     "empty_username",
			password: "secret",
			expect:   func(*mock.MockUsers, *sessionmock.MockStorage) {},
			err:      ErrEmptyCredentials,
		},
		{
			name:     "empty_password",
			username: "johndoe",
			expect:   func(*mock.MockUsers, *sessionmock.MockStorage) {},
			err:      ErrEmptyCredentials,
		},
		{
			name:     "existing",
			username: "JohnDoe",
			password: "secret",
			expect: func(u *mock.MockUsers, s *sessionmock.MockStorage) {
				u.EXPECT().GetUserByUsername(gomock.Any(), "JohnDoe").Return(existing, nil)
				s.EXPECT().Save(gomock.Any(), existing).Return(nil)
			},
			user: existing,
		},
		{
			name:     "new",
			username: "newbie",
			password: "secret",
			expect: func(u *mock.MockUsers, s *sessionmock.MockStorage) {
				u.EXPECT().GetUserByUsername(gomock.Any(), "newbie").Return(nil, nil)
				u.EXPECT().CreateUser(gomock.Any(), service.CreateUserParams{
					Username:    "newbie",
					DisplayName: "Newbie",
					Bio:         NewUserBio,
				}).Return(created, nil)
				s.EXPECT().Save(gomock.Any(), created).Return(nil)
			},
			user: created,
		},
		{
			name:     "created_concurrently",
			username: "johndoe",
			password: "secret",
			expect: func(u *mock.MockUsers, s *sessionmock.MockStorage) {
				gomock.InOrder(
					u.EXPECT().GetUserByUsername(gomock.Any(), "johndoe").Return(nil, nil),
					u.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
						Return(nil, fmt.Errorf("failed to create user: %w", storage.ErrUsernameTaken)),
					u.EXPECT().GetUserByUsername(gomock.Any(), "johndoe").Return(existing, nil),
				)
				s.EXPECT().Save(gomock.Any(), existing).Return(nil)
			},
			user: existing,
		},
		{
			name:     "session_error",
			username: "johndoe",
			password: "secret",
			expect: func(u *mock.MockUsers, s *sessionmock.MockStorage) {
				u.EXPECT().GetUserByUsername(gomock.Any(), "johndoe").Return(existing, nil)
				s.EXPECT().Save(gomock.Any(), existing).Return(errTest)
			},
			err: errTest,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
			tc.expect(u, s)

			a := New(u, s)

			user, err := a.Login(ctx, tc.username, tc.password)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
				_, ok := a.CurrentUserID()
				require.False(t, ok)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.user, user)

			id, ok := a.CurrentUserID()
			require.True(t, ok)
			require.Equal(t, tc.user.ID, id)
		})
	}
}

func TestAuthenticator_SignUp(t *testing.T) {
	ctx := context.Background()
	created := newUser("janedoe")

	tt := []struct {
		name        string
		username    string
		displayName string
		password    string
		confirm     string
		expect      func(u *mock.MockUsers, s *sessionmock.MockStorage)

		err error
	}{
		{name: "no_username", displayName: "Jane", password: "secret", confirm: "secret", err: ErrUsernameRequired},
		{name: "no_display_name", username: "janedoe", password: "secret", confirm: "secret", err: ErrDisplayNameRequired},
		{name: "short_password", username: "janedoe", displayName: "Jane", password: "12345", confirm: "12345", err: ErrPasswordTooShort},
		{name: "mismatch", username: "janedoe", displayName: "Jane", password: "secret", confirm: "secreT", err: ErrPasswordMismatch},
		{
			name:        "taken",
			username:    "janedoe",
			displayName: "Jane",
			password:    "secret",
			confirm:     "secret",
			expect: func(u *mock.MockUsers, s *sessionmock.MockStorage) {
				u.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("failed to create user: %w", storage.ErrUsernameTaken))
			},
			err: ErrUsernameTaken,
		},
		{
			name:        "success",
			username:    "janedoe",
			displayName: "Jane Doe",
			password:    "secret",
			confirm:     "secret",
			expect: func(u *mock.MockUsers, s *sessionmock.MockStorage) {
				u.EXPECT().CreateUser(gomock.Any(), service.CreateUserParams{
					Username:    "janedoe",
					DisplayName: "Jane Doe",
				}).Return(created, nil)
				s.EXPECT().Save(gomock.Any(), created).Return(nil)
			},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
			if tc.expect != nil {
				tc.expect(u, s)
			}

			a := New(u, s)

			user, err := a.SignUp(ctx, tc.username, tc.displayName, tc.password, tc.confirm)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
				require.Nil(t, a.CurrentUser())
				return
			}

			require.NoError(t, err)
			require.Equal(t, created, user)
			require.Equal(t, created, a.CurrentUser())
		})
	}
}

func TestAuthenticator_Restore(t *testing.T) {
	ctx := context.Background()
	saved := newUser("johndoe")

	t.Run("nothing_saved", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
		s.EXPECT().Load(gomock.Any()).Return(nil, session.ErrNotFound)

		user, err := New(u, s).Restore(ctx)
		require.NoError(t, err)
		require.Nil(t, user)
	})

	t.Run("known", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		fresh := *saved
		fresh.FollowersCount = 10

		u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
		s.EXPECT().Load(gomock.Any()).Return(saved, nil)
		u.EXPECT().GetUser(gomock.Any(), saved.ID).Return(&fresh, nil)
		s.EXPECT().Save(gomock.Any(), &fresh).Return(nil)

		a := New(u, s)
		user, err := a.Restore(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 10, user.FollowersCount)
		require.EqualValues(t, 10, a.CurrentUser().FollowersCount)
	})

	t.Run("unknown", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
		s.EXPECT().Load(gomock.Any()).Return(saved, nil)
		u.EXPECT().GetUser(gomock.Any(), saved.ID).Return(nil, nil)
		u.EXPECT().CreateUser(gomock.Any(), service.CreateUserParams{
			ID:          saved.ID,
			Username:    saved.Username,
			DisplayName: saved.DisplayName,
			CreatedAt:   saved.CreatedAt,
		}).Return(saved, nil)
		s.EXPECT().Save(gomock.Any(), saved).Return(nil)

		a := New(u, s)
		_, err := a.Restore(ctx)
		require.NoError(t, err)

		id, ok := a.CurrentUserID()
		require.True(t, ok)
		require.Equal(t, saved.ID, id)
	})

	t.Run("load_error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
		s.EXPECT().Load(gomock.Any()).Return(nil, errTest)

		_, err := New(u, s).Restore(ctx)
		require.True(t, errors.Is(err, errTest))
	})
}

func TestAuthenticator_Logout(t *testing.T) {
	ctx := context.Background()
	user := newUser("johndoe")

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
	u.EXPECT().GetUserByUsername(gomock.Any(), "johndoe").Return(user, nil)
	s.EXPECT().Save(gomock.Any(), user).Return(nil)
	s.EXPECT().Clear(gomock.Any()).Return(nil)

	a := New(u, s)
	_, err := a.Login(ctx, "johndoe", "secret")
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx))

	_, ok := a.CurrentUserID()
	require.False(t, ok)

	_, err = a.UpdateProfile(ctx, "name", "bio")
	require.True(t, errors.Is(err, ErrNotSignedIn))
}

func TestAuthenticator_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	user := newUser("johndoe")

	updated := *user
	updated.DisplayName = "John"
	updated.Bio = "bio"

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u, s := mock.NewMockUsers(ctrl), sessionmock.NewMockStorage(ctrl)
	u.EXPECT().GetUserByUsername(gomock.Any(), "johndoe").Return(user, nil)
	s.EXPECT().Save(gomock.Any(), user).Return(nil)
	u.EXPECT().UpdateProfile(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, p storage.UpdateProfileParams) (*entities.User, error) {
			require.Equal(t, "John", *p.DisplayName)
			require.Equal(t, "bio", *p.Bio)
			require.Nil(t, p.Avatar)
			return &updated, nil
		})
	s.EXPECT().Save(gomock.Any(), &updated).Return(nil)

	a := New(u, s)
	_, err := a.Login(ctx, "johndoe", "secret")
	require.NoError(t, err)

	got, err := a.UpdateProfile(ctx, "John", "bio")
	require.NoError(t, err)
	require.Equal(t, &updated, got)
	require.Equal(t, "John", a.CurrentUser().DisplayName)
}
