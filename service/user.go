package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"critiq/apierror"
	"critiq/auth"
	"critiq/logger"
	"critiq/models"
	"critiq/notify"
	"critiq/repository"

	"github.com/badoux/checkmail"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService struct {
	users     repository.UserRepository
	playlists repository.PlaylistRepository
	tokens    *auth.Tokens
	images    ImageUploader
	notifier  Notifier
	hash      func(string) (string, error)
}

func NewUserService(users repository.UserRepository, playlists repository.PlaylistRepository, tokens *auth.Tokens, images ImageUploader, notifier Notifier) *UserService {
	return &UserService{
		users:     users,
		playlists: playlists,
		tokens:    tokens,
		images:    images,
		notifier:  notifier,
		hash:      auth.HashPassword,
	}
}

type RegisterInput struct {
	Username   string
	FullName   string
	Email      string
	Password   string
	Avatar     io.Reader
	CoverImage io.Reader
}

// Session is the result of a successful login or token refresh.
type Session struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type UpdateInput struct {
	Username   *string
	FullName   *string
	Email      *string
	Bio        *string
	Avatar     io.Reader
	CoverImage io.Reader
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(email string) error {
	if err := checkmail.ValidateFormat(email); err != nil {
		return apierror.BadRequest("Invalid email format")
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = normalize(in.Username)
	in.FullName = normalize(in.FullName)
	in.Email = normalize(in.Email)

	if in.Username == "" || in.FullName == "" || in.Email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apierror.BadRequest("All fields are required")
	}
	if in.Avatar == nil {
		return nil, apierror.BadRequest("Avatar file is required")
	}
	if in.CoverImage == nil {
		return nil, apierror.BadRequest("Cover image file is required")
	}
	if err := validEmail(in.Email); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	if exists {
		return nil, apierror.Unauthorized("User already exists")
	}

	avatar, err := s.images.UploadImage(ctx, in.Avatar, FolderAvatars)
	if err != nil {
		return nil, uploadErr("Failed to upload avatar", err)
	}
	cover, err := s.images.UploadImage(ctx, in.CoverImage, FolderCovers)
	if err != nil {
		return nil, uploadErr("Failed to upload cover image", err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, apierror.Internal("", err)
	}

	user := &models.User{
		Username:   in.Username,
		FullName:   in.FullName,
		Email:      in.Email,
		Password:   hash,
		Avatar:     avatar,
		CoverImage: cover,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.Unauthorized("User already exists")
		}
		return nil, storeErr(err, "User")
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID.Hex()), zap.String("username", user.Username))
	return user, nil
}

func (s *UserService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = normalize(identifier)
	if identifier == "" {
		return nil, apierror.BadRequest("Username or email is required")
	}

	user, err := s.users.FindByEmailOrUsername(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.Unauthorized("Invalid username or email")
	}
	if err != nil {
		return nil, storeErr(err, "User")
	}

	if !auth.CheckPassword(user.Password, password) {
		return nil, apierror.Unauthorized("Invalid user credentials")
	}
	return s.issueSession(ctx, user)
}

// Refresh exchanges a valid refresh token for a new token pair. The presented
// token must be the one stored for the user.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apierror.Unauthorized("")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apierror.Unauthorized("Invalid refresh token")
	}
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return nil, apierror.Unauthorized("Invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.Unauthorized("Invalid refresh token")
	}
	if err != nil {
		return nil, storeErr(err, "User")
	}
	if user.RefreshToken != refreshToken {
		return nil, apierror.Unauthorized("Refresh token is expired or used")
	}
	return s.issueSession(ctx, user)
}

func (s *UserService) issueSession(ctx context.Context, user *models.User) (*Session, error) {
	id := user.ID.Hex()
	access, err := s.tokens.IssueAccess(id, user.Email, user.Username, user.FullName)
	if err != nil {
		return nil, apierror.Internal("Failed to generate tokens", err)
	}
	refresh, err := s.tokens.IssueRefresh(id)
	if err != nil {
		return nil, apierror.Internal("Failed to generate tokens", err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, storeErr(err, "User")
	}

	user.RefreshToken = refresh
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	return storeErr(s.users.SetRefreshToken(ctx, userID, ""), "User")
}

// Authenticate resolves an access token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apierror.Unauthorized("")
	}
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return nil, apierror.Unauthorized("Invalid access token")
	}
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return nil, apierror.Unauthorized("Invalid access token")
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.Unauthorized("Invalid access token")
	}
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return user, nil
}

// Profile returns the user with populated playlists and relation counts.
func (s *UserService) Profile(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User")
	}

	playlists, err := s.playlists.FindByIDs(ctx, user.Playlists)
	if err != nil {
		return nil, storeErr(err, "Playlist")
	}
	summaries := make([]models.PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		summaries = append(summaries, models.PlaylistSummary{ID: p.ID, Name: p.Name, Movies: p.Movies})
	}

	return &models.Profile{
		User:      &models.ProfileUser{User: user, Playlists: summaries},
		Following: len(user.Following),
		Follower:  len(user.Followers),
		Playlists: len(user.Playlists),
	}, nil
}

func (s *UserService) PublicProfile(ctx context.Context, rawID string) (*models.Profile, error) {
	id, err := ParseID(rawID, "Invalid user ID")
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.User.Email = ""
	return profile, nil
}

func (s *UserService) Update(ctx context.Context, userID primitive.ObjectID, in UpdateInput) (*models.User, error) {
	update := repository.UserUpdate{Bio: in.Bio}

	if in.Username != nil {
		v := normalize(*in.Username)
		if v == "" {
			return nil, apierror.BadRequest("Username cannot be empty")
		}
		update.Username = &v
	}
	if in.FullName != nil {
		v := normalize(*in.FullName)
		update.FullName = &v
	}
	if in.Email != nil {
		v := normalize(*in.Email)
		if err := validEmail(v); err != nil {
			return nil, err
		}
		update.Email = &v
	}

	if in.Avatar != nil {
		url, err := s.images.UploadImage(ctx, in.Avatar, FolderAvatars)
		if err != nil {
			return nil, apierror.BadRequest("Avatar upload failed").Wrap(err)
		}
		update.Avatar = &url
	}
	if in.CoverImage != nil {
		url, err := s.images.UploadImage(ctx, in.CoverImage, FolderCovers)
		if err != nil {
			return nil, apierror.BadRequest("Cover image upload failed").Wrap(err)
		}
		update.CoverImage = &url
	}

	if update.Empty() {
		user, err := s.users.FindByID(ctx, userID)
		return user, storeErr(err, "User")
	}

	user, err := s.users.Update(ctx, userID, update)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apierror.Conflict("Username or email already taken")
	}
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return user, nil
}

// Connections returns the populated followers and following of a user.
func (s *UserService) Connections(ctx context.Context, userID primitive.ObjectID) (*models.Connections, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User")
	}

	followers, err := s.users.FindSummaries(ctx, user.Followers)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	following, err := s.users.FindSummaries(ctx, user.Following)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	if followers == nil {
		followers = []*models.UserSummary{}
	}
	if following == nil {
		following = []*models.UserSummary{}
	}
	return &models.Connections{Followers: followers, Following: following}, nil
}

func (s *UserService) followTarget(ctx context.Context, actorID primitive.ObjectID, rawTarget string) (*models.User, error) {
	targetID, err := ParseID(rawTarget, "Invalid followed user ID")
	if err != nil {
		return nil, err
	}
	if targetID == actorID {
		return nil, apierror.BadRequest("You can't follow yourself")
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return target, nil
}

// SetFollowing moves actor into the desired follow state towards target. A
// follow notification is sent only when the call starts a follow.
func (s *UserService) SetFollowing(ctx context.Context, actorID primitive.ObjectID, rawTarget string, follow bool) (*models.FollowState, error) {
	target, err := s.followTarget(ctx, actorID, rawTarget)
	if err != nil {
		return nil, err
	}
	return s.setFollowing(ctx, actorID, target.ID, follow)
}

// ToggleFollow flips the follow state of actor towards target.
func (s *UserService) ToggleFollow(ctx context.Context, actorID primitive.ObjectID, rawTarget string) (*models.FollowState, error) {
	target, err := s.followTarget(ctx, actorID, rawTarget)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return s.setFollowing(ctx, actorID, target.ID, !actor.IsFollowing(target.ID))
}

func (s *UserService) setFollowing(ctx context.Context, actorID, targetID primitive.ObjectID, follow bool) (*models.FollowState, error) {
	changed, err := s.users.SetFollowing(ctx, actorID, targetID, follow)
	if err != nil {
		return nil, storeErr(err, "User")
	}

	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, "User")
	}

	if changed && follow {
		s.notifier.Notify(notify.Request{
			Recipient: targetID,
			Sender:    actorID,
			Type:      models.NotificationFollow,
			RelatedID: actorID,
			Message:   actor.Username + " is now following you",
		})
	}

	logger.Log.Debug("Follow state set",
		logger.WithUserID(actorID.Hex()),
		zap.String("target", targetID.Hex()),
		zap.Bool("follow", follow),
		zap.Bool("changed", changed),
	)

	return &models.FollowState{
		IsFollowing: actor.IsFollowing(targetID),
		Followers:   len(target.Followers),
		Following:   len(actor.Following),
	}, nil
}

// CheckFollow reports whether actor follows target without changing anything.
func (s *UserService) CheckFollow(ctx context.Context, actorID primitive.ObjectID, rawTarget string) (*models.FollowState, error) {
	target, err := s.followTarget(ctx, actorID, rawTarget)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return &models.FollowState{
		IsFollowing: actor.IsFollowing(target.ID),
		Followers:   len(target.Followers),
		Following:   len(actor.Following),
	}, nil
}
