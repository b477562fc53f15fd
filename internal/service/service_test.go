package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"warbler/internal/logging"
	"warbler/internal/models"
	"warbler/internal/store/storetest"
)

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	svc := New(storetest.New(t), logging.Discard(), opts)

	// strictly increasing timestamps keep ordering assertions stable
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func signup(t *testing.T, svc *Service, name string) *models.User {
	t.Helper()
	u, err := svc.Signup(context.Background(), SignupInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "password",
	})
	require.NoError(t, err)
	return u
}

func post(t *testing.T, svc *Service, actor *models.User, text string) *models.Message {
	t.Helper()
	m, err := svc.PostMessage(context.Background(), actor, text)
	require.NoError(t, err)
	return m
}

func TestSignup(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	u := signup(t, svc, "alice")
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "password", u.Password)
	assert.True(t, CheckPasswordHash("password", u.Password))
	assert.Equal(t, models.DefaultImageURL, u.ImageURL)
	assert.Equal(t, models.DefaultHeaderImageURL, u.HeaderImageURL)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: "other@example.com", Password: "password"})
		assert.ErrorIs(t, err, ErrDuplicateCredential)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupInput{Username: "alice2", Email: "alice@example.com", Password: "password"})
		assert.ErrorIs(t, err, ErrDuplicateCredential)
	})

	users, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice := signup(t, svc, "alice")

	u, err := svc.Authenticate(ctx, "alice", "password")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, alice.ID, u.ID)

	for _, tc := range []struct{ name, user, pass string }{
		{"wrong password", "alice", "nope-nope"},
		{"unknown user", "bob", "password"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			u, err := svc.Authenticate(ctx, tc.user, tc.pass)
			assert.NoError(t, err)
			assert.Nil(t, u)
		})
	}
}

func TestFollow(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice, bob := signup(t, svc, "alice"), signup(t, svc, "bob")

	require.NoError(t, svc.Follow(ctx, alice, bob.ID))
	require.NoError(t, svc.Follow(ctx, alice, bob.ID))

	following, err := svc.Following(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)

	followers, err := svc.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	ok, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Unfollow(ctx, alice, bob.ID))
	ok, err = svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Follow(ctx, alice, 9999), ErrNotFound)
	assert.ErrorIs(t, svc.Unfollow(ctx, alice, 9999), ErrNotFound)
	assert.ErrorIs(t, svc.Follow(ctx, nil, bob.ID), ErrUnauthenticated)
}

func TestToggleLike(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice, bob := signup(t, svc, "alice"), signup(t, svc, "bob")
	msg := post(t, svc, bob, "hello")

	liked, err := svc.ToggleLike(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	ids, err := svc.LikedMessageIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ids[msg.ID])

	msgs, err := svc.LikedMessages(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "bob", msgs[0].User.Username)

	liked, err = svc.ToggleLike(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	has, err := svc.HasLiked(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, has)

	t.Run("own message", func(t *testing.T) {
		_, err := svc.ToggleLike(ctx, bob, msg.ID)
		assert.ErrorIs(t, err, ErrSelfLike)

		has, err := svc.HasLiked(ctx, bob.ID, msg.ID)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := svc.ToggleLike(ctx, alice, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostMessage(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice := signup(t, svc, "alice")

	m := post(t, svc, alice, "  hello  ")
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, alice.ID, m.UserID)

	got, err := svc.GetMessage(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User.Username)

	_, err = svc.PostMessage(ctx, alice, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.PostMessage(ctx, alice, strings.Repeat("x", models.MaxMessageLength+1))
	assert.ErrorAs(t, err, &verr)

	_, err = svc.PostMessage(ctx, alice, strings.Repeat("ü", models.MaxMessageLength))
	assert.NoError(t, err)

	_, err = svc.PostMessage(ctx, nil, "hello")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("removes likes", func(t *testing.T) {
		svc := newTestService(t, Options{})
		alice, bob := signup(t, svc, "alice"), signup(t, svc, "bob")
		msg := post(t, svc, bob, "hello")
		_, err := svc.ToggleLike(ctx, alice, msg.ID)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteMessage(ctx, bob, msg.ID))

		_, err = svc.GetMessage(ctx, msg.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		ids, err := svc.LikedMessageIDs(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)

		assert.ErrorIs(t, svc.DeleteMessage(ctx, bob, msg.ID), ErrNotFound)
	})

	t.Run("any user by default", func(t *testing.T) {
		svc := newTestService(t, Options{})
		alice, bob := signup(t, svc, "alice"), signup(t, svc, "bob")
		msg := post(t, svc, bob, "hello")

		assert.NoError(t, svc.DeleteMessage(ctx, alice, msg.ID))
	})

	t.Run("owner only when required", func(t *testing.T) {
		svc := newTestService(t, Options{RequireMessageOwner: true})
		alice, bob := signup(t, svc, "alice"), signup(t, svc, "bob")
		msg := post(t, svc, bob, "hello")

		assert.ErrorIs(t, svc.DeleteMessage(ctx, alice, msg.ID), ErrForbidden)
		_, err := svc.GetMessage(ctx, msg.ID)
		assert.NoError(t, err)
	})
}

func TestHomeFeed(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice, bob, carol := signup(t, svc, "alice"), signup(t, svc, "bob"), signup(t, svc, "carol")

	post(t, svc, bob, "from bob")
	post(t, svc, carol, "from carol")
	post(t, svc, alice, "from alice")
	require.NoError(t, svc.Follow(ctx, alice, bob.ID))

	feed, err := svc.HomeFeed(ctx, alice)
	require.NoError(t, err)

	var texts []string
	for _, m := range feed {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"from alice", "from bob"}, texts)
	assert.Equal(t, "alice", feed[0].User.Username)

	_, err = svc.HomeFeed(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHomeFeed_Limit(t *testing.T) {
	svc := newTestService(t, Options{})
	alice := signup(t, svc, "alice")
	for i := 0; i < FeedLimit+5; i++ {
		post(t, svc, alice, "msg")
	}

	feed, err := svc.HomeFeed(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, feed, FeedLimit)
	assert.True(t, feed[0].Timestamp.After(feed[len(feed)-1].Timestamp))
}

func TestEditProfile(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice := signup(t, svc, "alice")
	signup(t, svc, "bob")

	in := ProfileInput{Username: "alicia", Email: "alicia@example.com", Bio: "hi", Location: "Oslo"}

	t.Run("wrong password changes nothing", func(t *testing.T) {
		_, err := svc.EditProfile(ctx, alice, in, "wrong-password")
		assert.ErrorIs(t, err, ErrReauthentication)
		assert.Equal(t, "alice", alice.Username)

		stored, err := svc.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.Username)
	})

	t.Run("taken username", func(t *testing.T) {
		taken := in
		taken.Username = "bob"
		_, err := svc.EditProfile(ctx, alice, taken, "password")
		assert.ErrorIs(t, err, ErrDuplicateCredential)
		assert.Equal(t, "alice", alice.Username)
	})

	t.Run("success", func(t *testing.T) {
		u, err := svc.EditProfile(ctx, alice, in, "password")
		require.NoError(t, err)
		assert.Equal(t, "alicia", u.Username)
		assert.Equal(t, "alicia", alice.Username)
		assert.Equal(t, models.DefaultImageURL, u.ImageURL)

		stored, err := svc.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Oslo", stored.Location)
		assert.True(t, CheckPasswordHash("password", stored.Password))
	})
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice := signup(t, svc, "alice")

	assert.ErrorIs(t, svc.ChangePassword(ctx, alice, "password", "newpass1", "newpass2"), ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ChangePassword(ctx, alice, "wrong-pw", "newpass1", "newpass1"), ErrReauthentication)

	require.NoError(t, svc.ChangePassword(ctx, alice, "password", "newpass1", "newpass1"))

	u, err := svc.Authenticate(ctx, "alice", "newpass1")
	require.NoError(t, err)
	assert.NotNil(t, u)
	u, err = svc.Authenticate(ctx, "alice", "password")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDeleteUser(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	alice, bob := signup(t, svc, "alice"), signup(t, svc, "bob")

	aliceMsg := post(t, svc, alice, "by alice")
	bobMsg := post(t, svc, bob, "by bob")
	require.NoError(t, svc.Follow(ctx, alice, bob.ID))
	require.NoError(t, svc.Follow(ctx, bob, alice.ID))
	_, err := svc.ToggleLike(ctx, bob, aliceMsg.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, alice, bobMsg.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, alice))

	_, err = svc.GetUser(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetMessage(ctx, aliceMsg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := svc.UserStats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, UserStats{Messages: 1}, stats)

	u, err := svc.Authenticate(ctx, "alice", "password")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestListUsers(t *testing.T) {
	svc := newTestService(t, Options{})
	for _, n := range []string{"carol", "alice", "alan"} {
		signup(t, svc, n)
	}

	all, err := svc.ListUsers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alan", all[0].Username)

	some, err := svc.ListUsers(context.Background(), "al")
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestListUsers_CaseAndWildcards(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	for _, n := range []string{"Alice", "al_x", "alyx", "100%real"} {
		signup(t, svc, n)
	}

	names := func(q string) []string {
		users, err := svc.ListUsers(ctx, q)
		require.NoError(t, err)
		var out []string
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}

	assert.Equal(t, []string{"Alice"}, names("ALIC"))
	assert.Equal(t, []string{"al_x"}, names("_"))
	assert.Equal(t, []string{"100%real"}, names("%"))
	assert.Empty(t, names(`\`))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

// runConcurrently calls fn(i) for i in [0, n) on separate goroutines and
// returns every error they produced.
func runConcurrently(n int, fn func(i int) error) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := fn(i); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return errs
}

func signupMany(t *testing.T, svc *Service, n int) []*models.User {
	t.Helper()
	users := make([]*models.User, n)
	for i := range users {
		users[i] = signup(t, svc, fmt.Sprintf("user%02d", i))
	}
	return users
}

func TestToggleLike_Concurrent(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	author := signup(t, svc, "author")
	msg := post(t, svc, author, "popular")
	users := signupMany(t, svc, 20)

	errs := runConcurrently(len(users), func(i int) error {
		for k := 0; k < 4; k++ {
			if _, err := svc.ToggleLike(ctx, users[i], msg.ID); err != nil {
				return err
			}
		}
		return nil
	})
	require.Empty(t, errs)

	// an even number of toggles per user leaves no like behind
	for _, u := range users {
		has, err := svc.HasLiked(ctx, u.ID, msg.ID)
		require.NoError(t, err)
		assert.False(t, has, u.Username)
	}

	errs = runConcurrently(len(users), func(i int) error {
		_, err := svc.ToggleLike(ctx, users[i], msg.ID)
		return err
	})
	require.Empty(t, errs)

	var likes int64
	require.NoError(t, svc.db(ctx).Model(&models.Like{}).Where("message_id = ?", msg.ID).Count(&likes).Error)
	assert.Equal(t, int64(len(users)), likes)
}

func TestFollow_Concurrent(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	target := signup(t, svc, "target")
	users := signupMany(t, svc, 20)

	errs := runConcurrently(len(users)*2, func(i int) error {
		return svc.Follow(ctx, users[i%len(users)], target.ID)
	})
	require.Empty(t, errs)

	followers, err := svc.Followers(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, followers, len(users))
}
