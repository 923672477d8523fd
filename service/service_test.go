package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"critiq/apierror"
	"critiq/auth"
	"critiq/cache"
	"critiq/media"
	"critiq/models"
	"critiq/notify"
	"critiq/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeNotifier struct {
	mu       sync.Mutex
	requests []notify.Request
}

func (f *fakeNotifier) Notify(req notify.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeNotifier) sent() []notify.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Request(nil), f.requests...)
}

type emitted struct {
	room, event string
	payload     interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeBroadcaster) EmitToRoom(room, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{room: room, event: event, payload: payload})
}

type fakeImages struct {
	err     error
	folders []string
}

func (f *fakeImages) UploadImage(_ context.Context, file io.Reader, folder string) (string, error) {
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	f.folders = append(f.folders, folder)
	return "https://media.example/" + folder + ".jpg", nil
}

var (
	errUpload   = errors.New("media host down")
	errNotImage = fmt.Errorf("%w: unknown format", media.ErrInvalidImage)
)

// redisCache returns a cache backed by an in-process redis server.
func redisCache(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

type fixture struct {
	store       *repository.Store
	tokens      *auth.Tokens
	images      *fakeImages
	notifier    *fakeNotifier
	broadcaster *fakeBroadcaster

	users         *UserService
	reviews       *ReviewService
	comments      *CommentService
	notifications *NotificationService
	playlists     *PlaylistService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:       repository.NewMemoryStore(),
		tokens:      auth.NewTokens("access-secret", time.Minute, "refresh-secret", time.Hour),
		images:      &fakeImages{},
		notifier:    &fakeNotifier{},
		broadcaster: &fakeBroadcaster{},
	}
	f.users = NewUserService(f.store.Users, f.store.Playlists, f.tokens, f.images, f.notifier)
	f.users.hash = func(pw string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		return string(b), err
	}
	f.reviews = NewReviewService(f.store, f.images, nil, f.notifier)
	f.comments = NewCommentService(f.store, f.notifier, f.broadcaster, false)
	f.notifications = NewNotificationService(f.store.Notifications)
	f.playlists = NewPlaylistService(f.store)
	return f
}

// user inserts a user directly with password "secret".
func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := f.users.hash("secret")
	require.NoError(t, err)
	u := &models.User{Username: username, FullName: username, Email: username + "@example.com", Password: hash}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) review(t *testing.T, owner *models.User) *models.Review {
	t.Helper()
	r := &models.Review{Movie: "Heat", Rating: 5, Comment: "great", Tags: []string{"crime"}, Mood: "tense", UserID: owner.ID}
	require.NoError(t, f.store.Reviews.Create(context.Background(), r))
	return r
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apierror.As(err).Status, "error: %v", err)
}
