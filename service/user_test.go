package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"critiq/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func registerInput(username, email string) RegisterInput {
	return RegisterInput{
		Username:   username,
		FullName:   " Jane Doe ",
		Email:      email,
		Password:   "secret",
		Avatar:     strings.NewReader("avatar"),
		CoverImage: strings.NewReader("cover"),
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.users.Register(ctx, registerInput(" Jane ", "JANE@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, "jane doe", user.FullName)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.NotEqual(t, "secret", user.Password)
	assert.Equal(t, "https://media.example/avatars.jpg", user.Avatar)
	assert.Equal(t, "https://media.example/covers.jpg", user.CoverImage)

	_, err = f.users.Register(ctx, registerInput("jane", "other@example.com"))
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := registerInput("jane", "jane@example.com")
	in.Password = ""
	_, err := f.users.Register(ctx, in)
	requireStatus(t, err, http.StatusBadRequest)

	in = registerInput("jane", "jane@example.com")
	in.Avatar = nil
	_, err = f.users.Register(ctx, in)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.users.Register(ctx, registerInput("jane", "not-an-email"))
	requireStatus(t, err, http.StatusBadRequest)

	f.images.err = errNotImage
	_, err = f.users.Register(ctx, registerInput("jane", "jane@example.com"))
	requireStatus(t, err, http.StatusBadRequest)

	f.images.err = errUpload
	_, err = f.users.Register(ctx, registerInput("jane", "jane@example.com"))
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestLoginRefreshLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "alice")

	_, err := f.users.Login(ctx, "", "secret")
	requireStatus(t, err, http.StatusBadRequest)
	_, err = f.users.Login(ctx, "nobody", "secret")
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = f.users.Login(ctx, "alice", "wrong")
	requireStatus(t, err, http.StatusUnauthorized)

	session, err := f.users.Login(ctx, "ALICE@example.com", "secret")
	require.NoError(t, err)
	claims, err := f.tokens.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.ID)
	assert.Equal(t, "alice", claims.Username)

	rotated, err := f.users.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	_, err = f.users.Refresh(ctx, session.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)

	authed, err := f.users.Authenticate(ctx, rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	require.NoError(t, f.users.Logout(ctx, u.ID))
	_, err = f.users.Refresh(ctx, rotated.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = f.users.Authenticate(ctx, "garbage")
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestFollowScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")

	state, err := f.users.ToggleFollow(ctx, a.ID, b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.FollowState{IsFollowing: true, Followers: 1, Following: 1}, *state)

	state, err = f.users.ToggleFollow(ctx, a.ID, b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.FollowState{IsFollowing: false, Followers: 0, Following: 0}, *state)

	sent := f.notifier.sent()
	require.Len(t, sent, 1, "unfollow does not notify")
	assert.Equal(t, b.ID, sent[0].Recipient)
	assert.Equal(t, a.ID, sent[0].Sender)
	assert.Equal(t, models.NotificationFollow, sent[0].Type)
	assert.Equal(t, "a is now following you", sent[0].Message)
}

func TestSetFollowingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")

	for i := 0; i < 2; i++ {
		state, err := f.users.SetFollowing(ctx, a.ID, b.ID.Hex(), true)
		require.NoError(t, err)
		assert.True(t, state.IsFollowing)
		assert.Equal(t, 1, state.Followers)
	}
	assert.Len(t, f.notifier.sent(), 1)

	state, err := f.users.CheckFollow(ctx, a.ID, b.ID.Hex())
	require.NoError(t, err)
	assert.True(t, state.IsFollowing)

	conns, err := f.users.Connections(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, conns.Followers, 1)
	assert.Equal(t, "a", conns.Followers[0].Username)
	assert.Empty(t, conns.Following)
}

func TestFollowRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, "a")

	_, err := f.users.ToggleFollow(ctx, a.ID, a.ID.Hex())
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.users.ToggleFollow(ctx, a.ID, "nope")
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.users.ToggleFollow(ctx, a.ID, primitive.NewObjectID().Hex())
	requireStatus(t, err, http.StatusNotFound)

	assert.Empty(t, f.notifier.sent())
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u")

	_, err := f.playlists.Save(ctx, u.ID, "weekend", []models.Movie{{ImdbID: "tt1", Title: "One"}})
	require.NoError(t, err)

	profile, err := f.users.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Playlists)
	require.Len(t, profile.User.Playlists, 1)
	assert.Equal(t, "weekend", profile.User.Playlists[0].Name)
	assert.Zero(t, profile.Follower)

	public, err := f.users.PublicProfile(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, public.User.Email)

	_, err = f.users.PublicProfile(ctx, primitive.NewObjectID().Hex())
	requireStatus(t, err, http.StatusNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u")
	f.user(t, "taken")

	bio := "likes films"
	name := " New Name "
	updated, err := f.users.Update(ctx, u.ID, UpdateInput{Bio: &bio, FullName: &name, Avatar: strings.NewReader("img")})
	require.NoError(t, err)
	assert.Equal(t, "likes films", updated.Bio)
	assert.Equal(t, "new name", updated.FullName)
	assert.Equal(t, "https://media.example/avatars.jpg", updated.Avatar)

	taken := "Taken"
	_, err = f.users.Update(ctx, u.ID, UpdateInput{Username: &taken})
	requireStatus(t, err, http.StatusConflict)

	f.images.err = errUpload
	_, err = f.users.Update(ctx, u.ID, UpdateInput{CoverImage: strings.NewReader("img")})
	requireStatus(t, err, http.StatusBadRequest)

	unchanged, err := f.users.Update(ctx, u.ID, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "likes films", unchanged.Bio)
}
