package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"critiq/auth"
	"critiq/handlers"
	"critiq/models"
	"critiq/notify"
	"critiq/repository"
	"critiq/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type stubImages struct{}

func (stubImages) UploadImage(_ context.Context, file io.Reader, folder string) (string, error) {
	_, err := io.Copy(io.Discard, file)
	return "https://media.test/" + folder + ".jpg", err
}

// storeNotifier writes notifications synchronously so tests can assert on
// them without waiting for a dispatcher.
type storeNotifier struct {
	notifications repository.NotificationRepository
}

func (n storeNotifier) Notify(req notify.Request) {
	_ = n.notifications.Create(context.Background(), &models.Notification{
		RecipientID: req.Recipient,
		SenderID:    req.Sender,
		Type:        req.Type,
		RelatedID:   req.RelatedID,
		Message:     req.Message,
	})
}

type nopBroadcaster struct{}

func (nopBroadcaster) EmitToRoom(string, string, interface{}) {}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
}

type RouterSuite struct {
	suite.Suite
	store  *repository.Store
	router *gin.Engine
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.store = repository.NewMemoryStore()

	tokens := auth.NewTokens("access-secret", 15*time.Minute, "refresh-secret", time.Hour)
	notifier := storeNotifier{notifications: s.store.Notifications}
	users := service.NewUserService(s.store.Users, s.store.Playlists, tokens, stubImages{}, notifier)

	h := handlers.New(handlers.Services{
		Users:         users,
		Reviews:       service.NewReviewService(s.store, stubImages{}, nil, notifier),
		Comments:      service.NewCommentService(s.store, notifier, nopBroadcaster{}, false),
		Notifications: service.NewNotificationService(s.store.Notifications),
		Playlists:     service.NewPlaylistService(s.store),
		Push:          service.NewPushService(s.store.PushSubscriptions, "vapid-public"),
	}, handlers.Cookies{Secure: false, AccessMaxAge: 15 * time.Minute, RefreshMaxAge: time.Hour})

	s.router = SetupRouter(Deps{
		Handler:     h,
		Auth:        users,
		CORSOrigins: []string{"http://localhost:5173"},
	})
}

// seedUser stores a user with password "secret" and returns it.
func (s *RouterSuite) seedUser(username string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	s.Require().NoError(err)
	u := &models.User{Username: username, FullName: username, Email: username + "@example.com", Password: string(hash)}
	s.Require().NoError(s.store.Users.Create(context.Background(), u))
	return u
}

func (s *RouterSuite) login(identifier string) string {
	w := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{"emailOrUsername": identifier, "password": "secret"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var session struct {
		AccessToken string `json:"accessToken"`
	}
	s.decode(w, &session)
	return session.AccessToken
}

func (s *RouterSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *RouterSuite) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) multipart(path, token string, fields map[string]string, files ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		s.Require().NoError(err)
		_, err = fw.Write([]byte("image bytes"))
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req, token)
}

// decode unwraps the success envelope into dst.
func (s *RouterSuite) decode(w *httptest.ResponseRecorder, dst interface{}) envelope {
	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dst != nil {
		s.Require().NoError(json.Unmarshal(env.Data, dst))
	}
	return env
}

func (s *RouterSuite) TestHealthAndNoRoute() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/nope", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	env := s.decode(w, nil)
	s.False(env.Success)
}

func (s *RouterSuite) TestRegisterHidesSecrets() {
	fields := map[string]string{"username": "Neo", "fullName": "Thomas Anderson", "email": "neo@example.com", "password": "secret"}

	w := s.multipart("/api/v1/users/register", "", fields, "avatar")
	s.Equal(http.StatusBadRequest, w.Code, "cover image is required")

	w = s.multipart("/api/v1/users/register", "", fields, "avatar", "coverImage")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.NotContains(w.Body.String(), "password")
	s.NotContains(w.Body.String(), "refreshToken")

	var user models.User
	env := s.decode(w, &user)
	s.Equal("User Created Successfully", env.Message)
	s.Equal("neo", user.Username)
	s.Equal("https://media.test/avatars.jpg", user.Avatar)

	w = s.multipart("/api/v1/users/register", "", fields, "avatar", "coverImage")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestLoginLogout() {
	s.seedUser("trinity")

	w := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{"emailOrUsername": "trinity", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{"emailOrUsername": "trinity@example.com", "password": "secret"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotContains(w.Body.String(), `"password"`)

	var cookies []*http.Cookie
	for _, c := range w.Result().Cookies() {
		s.True(c.HttpOnly)
		cookies = append(cookies, c)
	}
	s.Len(cookies, 2)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profileView", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = s.send(req, "")
	s.Equal(http.StatusOK, w.Code, "the access cookie authenticates")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = s.send(req, "")
	s.Equal(http.StatusOK, w.Code)

	token := s.login("trinity")
	w = s.do(http.MethodPost, "/api/v1/users/logout", token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(`"cache", "cookies", "storage"`, w.Header().Get("Clear-Site-Data"))
	s.Contains(strings.Join(w.Header().Values("Set-Cookie"), ";"), "accessToken=;")
}

func (s *RouterSuite) TestAuthRequired() {
	w := s.do(http.MethodGet, "/api/v1/users/profileView", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	env := s.decode(w, nil)
	s.Equal("Unauthorized request", env.Message)
	s.Equal(http.StatusUnauthorized, env.StatusCode)

	w = s.do(http.MethodGet, "/api/v1/users/profileView", "forged", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestFollowScenario() {
	a := s.seedUser("a")
	b := s.seedUser("b")
	token := s.login("a")

	var state models.FollowState
	w := s.do(http.MethodPost, "/api/v1/users/toggleFollow", token, map[string]string{"followedId": b.ID.Hex()})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &state)
	s.Equal(models.FollowState{IsFollowing: true, Followers: 1, Following: 1}, state)

	w = s.do(http.MethodPost, "/api/v1/users/followerAndFollowing", token, map[string]string{"followedId": b.ID.Hex()})
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &state)
	s.Equal(models.FollowState{IsFollowing: false, Followers: 0, Following: 0}, state)

	n, err := s.store.Notifications.CountUnread(context.Background(), b.ID)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	w = s.do(http.MethodPost, "/api/v1/users/toggleFollow", token, map[string]string{"followedId": a.ID.Hex()})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/users/"+b.ID.Hex()+"/follow", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.do(http.MethodPut, "/api/v1/users/"+b.ID.Hex()+"/follow", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &state)
	s.Equal(1, state.Followers)

	w = s.do(http.MethodPost, "/api/v1/users/checkFollow", token, map[string]string{"followedId": b.ID.Hex()})
	s.decode(w, &state)
	s.True(state.IsFollowing)

	var conns models.Connections
	w = s.do(http.MethodGet, "/api/v1/users/getFollowersAndFollowing", token, nil)
	s.decode(w, &conns)
	s.Require().Len(conns.Following, 1)
	s.Equal("b", conns.Following[0].Username)

	w = s.do(http.MethodDelete, "/api/v1/users/"+b.ID.Hex()+"/follow", token, nil)
	s.decode(w, &state)
	s.False(state.IsFollowing)
}

func reviewFields(rating string) map[string]string {
	return map[string]string{
		"movie":   "Arrival",
		"rating":  rating,
		"comment": "Patient and moving",
		"mood":    "thoughtful",
		"tags":    `["sci-fi","drama"]`,
		"spoiler": "false",
	}
}

func (s *RouterSuite) uploadReview(token string) models.Review {
	w := s.multipart("/api/v1/reviews/reviewUpload", token, reviewFields("5"), "image")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var review models.Review
	s.decode(w, &review)
	return review
}

func (s *RouterSuite) TestReviewLifecycle() {
	s.seedUser("owner")
	s.seedUser("fan")
	owner := s.login("owner")
	fan := s.login("fan")

	w := s.multipart("/api/v1/reviews/reviewUpload", owner, reviewFields("6"), "image")
	s.Equal(http.StatusBadRequest, w.Code)

	review := s.uploadReview(owner)
	s.Equal([]string{"sci-fi", "drama"}, review.Tags)
	s.False(review.Spoiler)

	var feed []models.Review
	w = s.do(http.MethodGet, "/api/v1/reviews/getReviews?tag=sci-fi", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &feed)
	s.Require().Len(feed, 1)
	s.Equal("owner", feed[0].Author.Username)

	var like struct {
		Like int `json:"like"`
	}
	w = s.do(http.MethodPost, "/api/v1/notification/likeNotification", fan, map[string]string{"postId": review.ID.Hex()})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &like)
	s.Equal(1, like.Like)

	var status models.LikeState
	w = s.do(http.MethodPost, "/api/v1/notification/isLike", fan, map[string]string{"postId": review.ID.Hex()})
	s.decode(w, &status)
	s.Equal(models.LikeState{IsLiked: true, Count: 1}, status)

	var notifications models.NotificationFeed
	w = s.do(http.MethodGet, "/api/v1/notification/getNotification", owner, nil)
	s.decode(w, &notifications)
	s.Require().Len(notifications.Notifications, 1)
	s.Equal(models.NotificationLike, notifications.Notifications[0].Type)
	s.Equal("fan", notifications.Notifications[0].Sender.Username)
	s.EqualValues(1, notifications.Unread)

	w = s.do(http.MethodPatch, "/api/v1/notification/read", owner, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodGet, "/api/v1/notification/getNotification", owner, nil)
	s.decode(w, &notifications)
	s.Zero(notifications.Unread)

	w = s.do(http.MethodDelete, "/api/v1/reviews/deleteReview/"+review.ID.Hex(), fan, nil)
	s.Equal(http.StatusForbidden, w.Code)
	_, err := s.store.Reviews.FindByID(context.Background(), review.ID)
	s.NoError(err)

	w = s.do(http.MethodDelete, "/api/v1/reviews/deleteReview/"+review.ID.Hex(), owner, nil)
	s.Equal(http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/v1/reviews/getUserReviews", owner, nil)
	s.decode(w, &feed)
	s.Empty(feed)
}

func (s *RouterSuite) TestComments() {
	s.seedUser("author")
	s.seedUser("other")
	author := s.login("author")
	other := s.login("other")
	review := s.uploadReview(author)

	var comment models.Comment
	w := s.do(http.MethodPost, "/api/v1/comment/createComment", author, map[string]string{"content": "first!", "postId": review.ID.Hex()})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.decode(w, &comment)

	w = s.do(http.MethodPatch, "/api/v1/comment/"+comment.ID.Hex(), other, map[string]string{"content": "mine now"})
	s.Equal(http.StatusForbidden, w.Code)

	var list []models.Comment
	w = s.do(http.MethodGet, "/api/v1/comment/"+review.ID.Hex(), other, nil)
	s.decode(w, &list)
	s.Require().Len(list, 1)
	s.Equal("first!", list[0].Content)
	s.Equal("author", list[0].Author.Username)

	w = s.do(http.MethodGet, "/api/v1/comment?postId=bad", other, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/comment/"+comment.ID.Hex()+"/like", other, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/comment/"+comment.ID.Hex(), author, nil)
	s.Equal(http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/v1/comment?postId="+review.ID.Hex(), other, nil)
	s.decode(w, &list)
	s.Empty(list)
}

func (s *RouterSuite) TestPlaylistsAndProfile() {
	s.seedUser("cinephile")
	token := s.login("cinephile")

	w := s.do(http.MethodPost, "/api/v1/playlist/savePlaylist", token, map[string]interface{}{"name": "noir"})
	s.Equal(http.StatusBadRequest, w.Code)

	var saved service.SavedPlaylist
	w = s.do(http.MethodPost, "/api/v1/playlist/savePlaylist", token, map[string]interface{}{
		"name":   "noir",
		"movies": []map[string]string{{"imdbID": "tt0033870", "Title": "The Maltese Falcon", "Year": "1941", "Poster": "N/A"}},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.decode(w, &saved)
	s.Equal(1, saved.TotalPlaylists)

	var playlists []models.Playlist
	w = s.do(http.MethodGet, "/api/v1/playlist/getPlaylist", token, nil)
	s.decode(w, &playlists)
	s.Require().Len(playlists, 1)
	s.Equal("The Maltese Falcon", playlists[0].Movies[0].Title)

	var profile struct {
		User struct {
			Username  string                   `json:"username"`
			Playlists []models.PlaylistSummary `json:"playlists"`
		} `json:"user"`
		Playlists int `json:"playlists"`
	}
	w = s.do(http.MethodGet, "/api/v1/users/profileView", token, nil)
	s.decode(w, &profile)
	s.Equal("cinephile", profile.User.Username)
	s.Equal(1, profile.Playlists)
	s.Require().Len(profile.User.Playlists, 1)
	s.Equal("noir", profile.User.Playlists[0].Name)

	w = s.do(http.MethodPatch, "/api/v1/users/updateprofile", token, map[string]string{"bio": "black and white only"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated models.User
	s.decode(w, &updated)
	s.Equal("black and white only", updated.Bio)
}

func (s *RouterSuite) TestPush() {
	s.seedUser("pushy")
	token := s.login("pushy")

	var key struct {
		PublicKey string `json:"publicKey"`
	}
	w := s.do(http.MethodGet, "/api/v1/push/vapid-public-key", "", nil)
	s.decode(w, &key)
	s.Equal("vapid-public", key.PublicKey)

	w = s.do(http.MethodPost, "/api/v1/push/subscribe", token, map[string]interface{}{
		"endpoint": "https://push.example/abc",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
	})
	s.Equal(http.StatusOK, w.Code, w.Body.String())
}
