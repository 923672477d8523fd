package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"critiq/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryDB is an in-process document store with the same semantics as the
// Mongo repositories. It backs tests and `serve --memory`.
type memoryDB struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]*models.User
	reviews       map[primitive.ObjectID]*models.Review
	comments      map[primitive.ObjectID]*models.Comment
	notifications map[primitive.ObjectID]*models.Notification
	playlists     map[primitive.ObjectID]*models.Playlist
	pushSubs      map[primitive.ObjectID]*models.PushSubscription
	// seq orders documents created within the same clock tick.
	seq   int64
	order map[primitive.ObjectID]int64
}

// NewMemoryStore returns a Store whose repositories share one in-memory
// database.
func NewMemoryStore() *Store {
	db := &memoryDB{
		users:         map[primitive.ObjectID]*models.User{},
		reviews:       map[primitive.ObjectID]*models.Review{},
		comments:      map[primitive.ObjectID]*models.Comment{},
		notifications: map[primitive.ObjectID]*models.Notification{},
		playlists:     map[primitive.ObjectID]*models.Playlist{},
		pushSubs:      map[primitive.ObjectID]*models.PushSubscription{},
		order:         map[primitive.ObjectID]int64{},
	}
	return &Store{
		Users:             &memoryUsers{db},
		Reviews:           &memoryReviews{db},
		Comments:          &memoryComments{db},
		Notifications:     &memoryNotifications{db},
		Playlists:         &memoryPlaylists{db},
		PushSubscriptions: &memoryPushSubs{db},
	}
}

// stamp assigns an id and timestamps. Callers hold the write lock.
func (db *memoryDB) stamp(id *primitive.ObjectID, createdAt, updatedAt *time.Time) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	*createdAt, *updatedAt = now, now
	db.seq++
	db.order[*id] = db.seq
}

// newer reports whether a was created after b.
func (db *memoryDB) newer(a, b primitive.ObjectID) bool {
	return db.order[a] > db.order[b]
}

func (db *memoryDB) summary(id primitive.ObjectID) *models.UserSummary {
	if u, ok := db.users[id]; ok {
		return u.Summary()
	}
	return nil
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func indexOf(ids []primitive.ObjectID, id primitive.ObjectID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if indexOf(ids, id) >= 0 {
		return ids, false
	}
	return append(ids, id), true
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	i := indexOf(ids, id)
	if i < 0 {
		return ids, false
	}
	return append(ids[:i:i], ids[i+1:]...), true
}

func toggleID(ids []primitive.ObjectID, id primitive.ObjectID, add bool) ([]primitive.ObjectID, bool) {
	if add {
		return addID(ids, id)
	}
	return removeID(ids, id)
}

// users

type memoryUsers struct{ db *memoryDB }

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = cloneIDs(u.Followers)
	c.Following = cloneIDs(u.Following)
	c.Playlists = cloneIDs(u.Playlists)
	return &c
}

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}

	r.db.stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.Playlists == nil {
		user.Playlists = []primitive.ObjectID{}
	}
	r.db.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *memoryUsers) FindByEmailOrUsername(_ context.Context, identifier string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == identifier || u.Username == identifier {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUsers) FindSummaries(_ context.Context, ids []primitive.ObjectID) ([]*models.UserSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*models.UserSummary{}
	for _, id := range ids {
		if s := r.db.summary(id); s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryUsers) Update(_ context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	for otherID, other := range r.db.users {
		if otherID == id {
			continue
		}
		if (update.Username != nil && other.Username == *update.Username) ||
			(update.Email != nil && other.Email == *update.Email) {
			return nil, ErrDuplicate
		}
	}

	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if update.CoverImage != nil {
		u.CoverImage = *update.CoverImage
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *memoryUsers) SetRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *memoryUsers) SetFollowing(_ context.Context, actor, target primitive.ObjectID, follow bool) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.users[actor]
	if !ok {
		return false, ErrNotFound
	}
	t, ok := r.db.users[target]
	if !ok {
		return false, ErrNotFound
	}

	var changed bool
	a.Following, changed = toggleID(a.Following, target, follow)
	t.Followers, _ = toggleID(t.Followers, actor, follow)
	return changed, nil
}

func (r *memoryUsers) AddPlaylist(_ context.Context, userID, playlistID primitive.ObjectID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	u.Playlists = append(u.Playlists, playlistID)
	return len(u.Playlists), nil
}

// reviews

type memoryReviews struct{ db *memoryDB }

func cloneReview(r *models.Review) *models.Review {
	c := *r
	c.Likes = cloneIDs(r.Likes)
	c.Tags = append([]string(nil), r.Tags...)
	c.Author = nil
	return &c
}

func (r *memoryReviews) Create(_ context.Context, review *models.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if review.Likes == nil {
		review.Likes = []primitive.ObjectID{}
	}
	r.db.reviews[review.ID] = cloneReview(review)
	return nil
}

func (r *memoryReviews) FindByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	review, ok := r.db.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReview(review), nil
}

func (r *memoryReviews) List(_ context.Context, filter models.ReviewFilter) ([]*models.Review, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*models.Review{}
	for _, review := range r.db.reviews {
		if !filter.UserID.IsZero() && review.UserID != filter.UserID {
			continue
		}
		if filter.Mood != "" && review.Mood != filter.Mood {
			continue
		}
		if filter.Tag != "" && !containsString(review.Tags, filter.Tag) {
			continue
		}
		c := cloneReview(review)
		c.Author = r.db.summary(review.UserID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return r.db.newer(out[i].ID, out[j].ID) })
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memoryReviews) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.reviews, id)
	return nil
}

func (r *memoryReviews) SetLike(_ context.Context, reviewID, userID primitive.ObjectID, like bool) (bool, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	review, ok := r.db.reviews[reviewID]
	if !ok {
		return false, 0, ErrNotFound
	}
	var changed bool
	review.Likes, changed = toggleID(review.Likes, userID, like)
	return changed, len(review.Likes), nil
}

// comments

type memoryComments struct{ db *memoryDB }

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.Likes = cloneIDs(c.Likes)
	out.Author = nil
	return &out
}

func (r *memoryComments) Create(_ context.Context, comment *models.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if comment.Likes == nil {
		comment.Likes = []primitive.ObjectID{}
	}
	r.db.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (r *memoryComments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComment(c), nil
}

func (r *memoryComments) ListByPost(_ context.Context, postID primitive.ObjectID) ([]*models.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*models.Comment{}
	for _, c := range r.db.comments {
		if c.PostID != postID {
			continue
		}
		cc := cloneComment(c)
		cc.Author = r.db.summary(c.UserID)
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return r.db.newer(out[i].ID, out[j].ID) })
	return out, nil
}

func (r *memoryComments) UpdateContent(_ context.Context, id primitive.ObjectID, content string) (*models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	return cloneComment(c), nil
}

func (r *memoryComments) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.comments[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

func (r *memoryComments) DeleteByPost(_ context.Context, postID primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, c := range r.db.comments {
		if c.PostID == postID {
			delete(r.db.comments, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryComments) SetLike(_ context.Context, commentID, userID primitive.ObjectID, like bool) (bool, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.comments[commentID]
	if !ok {
		return false, 0, ErrNotFound
	}
	var changed bool
	c.Likes, changed = toggleID(c.Likes, userID, like)
	return changed, len(c.Likes), nil
}

// notifications

type memoryNotifications struct{ db *memoryDB }

func (r *memoryNotifications) Create(_ context.Context, n *models.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	c := *n
	c.Sender = nil
	r.db.notifications[n.ID] = &c
	return nil
}

func (r *memoryNotifications) ListRecent(_ context.Context, recipient primitive.ObjectID, limit int) ([]*models.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*models.Notification{}
	for _, n := range r.db.notifications {
		if n.RecipientID != recipient {
			continue
		}
		c := *n
		c.Sender = r.db.summary(n.SenderID)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return r.db.newer(out[i].ID, out[j].ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryNotifications) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var n int64
	for _, doc := range r.db.notifications {
		if doc.RecipientID == recipient && !doc.Read {
			n++
		}
	}
	return n, nil
}

func (r *memoryNotifications) MarkRead(_ context.Context, recipient primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, doc := range r.db.notifications {
		if doc.RecipientID != recipient || doc.Read {
			continue
		}
		if len(ids) > 0 && indexOf(ids, id) < 0 {
			continue
		}
		doc.Read = true
		doc.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (r *memoryNotifications) DeleteByRelated(_ context.Context, relatedID primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, doc := range r.db.notifications {
		if doc.RelatedID == relatedID {
			delete(r.db.notifications, id)
			n++
		}
	}
	return n, nil
}

// playlists

type memoryPlaylists struct{ db *memoryDB }

func clonePlaylist(p *models.Playlist) *models.Playlist {
	c := *p
	c.Movies = append([]models.Movie(nil), p.Movies...)
	return &c
}

func (r *memoryPlaylists) Create(_ context.Context, playlist *models.Playlist) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&playlist.ID, &playlist.CreatedAt, &playlist.UpdatedAt)
	if playlist.Movies == nil {
		playlist.Movies = []models.Movie{}
	}
	r.db.playlists[playlist.ID] = clonePlaylist(playlist)
	return nil
}

func (r *memoryPlaylists) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Playlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*models.Playlist{}
	for _, p := range r.db.playlists {
		if p.UserID == userID {
			out = append(out, clonePlaylist(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.db.newer(out[i].ID, out[j].ID) })
	return out, nil
}

func (r *memoryPlaylists) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Playlist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*models.Playlist{}
	for _, id := range ids {
		if p, ok := r.db.playlists[id]; ok {
			out = append(out, clonePlaylist(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.db.newer(out[i].ID, out[j].ID) })
	return out, nil
}

// push subscriptions

type memoryPushSubs struct{ db *memoryDB }

func (r *memoryPushSubs) Upsert(_ context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing, ok := r.db.pushSubs[userID]; ok {
		existing.Sub = sub
		return nil
	}
	r.db.pushSubs[userID] = &models.PushSubscription{ID: primitive.NewObjectID(), UserID: userID, Sub: sub}
	return nil
}

func (r *memoryPushSubs) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	sub, ok := r.db.pushSubs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sub
	return &c, nil
}

func (r *memoryPushSubs) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.pushSubs, userID)
	return nil
}
