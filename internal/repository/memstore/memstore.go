// Package memstore holds in-memory stores with the semantics of the Mongo repositories.
// Tests use them behind the service interfaces.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB backs the in-memory stores so likes can touch blogs and users together.
type DB struct {
	mu            sync.Mutex
	Users         map[primitive.ObjectID]*models.User
	Blogs         map[primitive.ObjectID]*models.Blog
	Notifications []*models.Notification
}

func NewDB() *DB {
	return &DB{
		Users: make(map[primitive.ObjectID]*models.User),
		Blogs: make(map[primitive.ObjectID]*models.Blog),
	}
}

// AddUser stores a user without a password and returns it.
func (db *DB) AddUser(name, role string) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		Photo:     models.Image{URL: "http://img/" + name},
		LikeByMe:  []primitive.ObjectID{},
		CreatedAt: time.Now(),
	}
	db.Users[u.ID] = u
	return u
}

// UserStore is an in-memory services.UserStore.
type UserStore struct{ db *DB }

func NewUserStore(db *DB) UserStore { return UserStore{db} }

func (m UserStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.Users {
		if u.Email == user.Email || (user.Phone != "" && u.Phone == user.Phone) {
			return nil, repository.ErrDuplicateKey
		}
	}
	user.ID = primitive.NewObjectID()
	user.LikeByMe = []primitive.ObjectID{}
	m.db.Users[user.ID] = user
	return user, nil
}

func (m UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m UserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if u, ok := m.db.Users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m UserStore) GetUsersByRole(_ context.Context, role string) ([]models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []models.User{}
	for _, u := range m.db.Users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m UserStore) GetUserSummaries(_ context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []models.UserSummary{}
	for _, id := range ids {
		if u, ok := m.db.Users[id]; ok {
			out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Photo.URL})
		}
	}
	return out, nil
}

func (m UserStore) GetUserIDsExcept(_ context.Context, exclude primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var ids []primitive.ObjectID
	for id := range m.db.Users {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m UserStore) AdjustBlogCount(_ context.Context, id primitive.ObjectID, delta int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if u, ok := m.db.Users[id]; ok && u.NoOfBlogs+delta >= 0 {
		u.NoOfBlogs += delta
	}
	return nil
}

// BlogStore is an in-memory services.BlogStore.
type BlogStore struct{ db *DB }

func NewBlogStore(db *DB) BlogStore { return BlogStore{db} }

func (m BlogStore) CreateBlog(_ context.Context, blog *models.Blog) (*models.Blog, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	blog.ID = primitive.NewObjectID()
	blog.CreatedAt = time.Now()
	blog.Like = 0
	blog.LikedBy = []primitive.ObjectID{}
	m.db.Blogs[blog.ID] = blog
	return blog, nil
}

func (m BlogStore) GetBlogByID(_ context.Context, id primitive.ObjectID) (*models.Blog, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if b, ok := m.db.Blogs[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m BlogStore) GetAllBlogs(_ context.Context) ([]models.Blog, error) {
	return m.filter(func(*models.Blog) bool { return true }), nil
}

func (m BlogStore) GetBlogsByAuthor(_ context.Context, userID primitive.ObjectID) ([]models.Blog, error) {
	return m.filter(func(b *models.Blog) bool { return b.CreatedBy == userID }), nil
}

func (m BlogStore) filter(keep func(*models.Blog) bool) []models.Blog {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []models.Blog{}
	for _, b := range m.db.Blogs {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m BlogStore) UpdateBlog(_ context.Context, blog *models.Blog) (*models.Blog, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	stored, ok := m.db.Blogs[blog.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored.Title, stored.Category, stored.About, stored.BlogImage = blog.Title, blog.Category, blog.About, blog.BlogImage
	return blog, nil
}

func (m BlogStore) DeleteBlog(_ context.Context, id primitive.ObjectID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.Blogs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.Blogs, id)
	return nil
}

// LikeStore mirrors the set-based update: the counter is always recomputed from the set.
type LikeStore struct{ db *DB }

func NewLikeStore(db *DB) LikeStore { return LikeStore{db} }

func (m LikeStore) Like(_ context.Context, blogID, userID primitive.ObjectID) (*models.Blog, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	blog, ok := m.db.Blogs[blogID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if blog.IsLikedBy(userID) {
		return nil, repository.ErrAlreadyLiked
	}
	blog.LikedBy = append(blog.LikedBy, userID)
	blog.Like = len(blog.LikedBy)
	if u, ok := m.db.Users[userID]; ok {
		u.LikeByMe = append(u.LikeByMe, blogID)
	}
	copied := *blog
	return &copied, nil
}

func (m LikeStore) Unlike(_ context.Context, blogID, userID primitive.ObjectID) (*models.Blog, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	blog, ok := m.db.Blogs[blogID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	blog.LikedBy = without(blog.LikedBy, userID)
	blog.Like = len(blog.LikedBy)
	if u, ok := m.db.Users[userID]; ok {
		u.LikeByMe = without(u.LikeByMe, blogID)
	}
	copied := *blog
	return &copied, nil
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := []primitive.ObjectID{}
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// NotificationStore applies the same unread predicate as the Mongo repository.
type NotificationStore struct{ db *DB }

func NewNotificationStore(db *DB) NotificationStore { return NotificationStore{db} }

func (m NotificationStore) CreateNotification(_ context.Context, notif *models.Notification) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	notif.ID = primitive.NewObjectID()
	notif.CreatedAt = time.Now()
	notif.Readers = []primitive.ObjectID{}
	stored := *notif
	m.db.Notifications = append(m.db.Notifications, &stored)
	return nil
}

func (m NotificationStore) ListUnreadFor(_ context.Context, userID primitive.ObjectID) ([]models.NotificationView, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	views := []models.NotificationView{}
	for i := len(m.db.Notifications) - 1; i >= 0; i-- {
		if n := m.db.Notifications[i]; n.UnreadFor(userID) {
			views = append(views, models.NotificationView{Notification: *n})
		}
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	if len(views) > repository.UnreadListLimit {
		views = views[:repository.UnreadListLimit]
	}
	return views, nil
}

func (m NotificationStore) CountUnreadFor(_ context.Context, userID primitive.ObjectID) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var count int64
	for _, n := range m.db.Notifications {
		if n.UnreadFor(userID) {
			count++
		}
	}
	return count, nil
}

func (m NotificationStore) MarkRead(_ context.Context, id, userID primitive.ObjectID) (*models.NotificationView, bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, n := range m.db.Notifications {
		if n.ID != id {
			continue
		}
		changed := !n.HasReader(userID)
		if changed {
			n.Readers = append(n.Readers, userID)
		}
		return &models.NotificationView{Notification: *n}, changed, nil
	}
	return nil, false, repository.ErrNotFound
}

func (m NotificationStore) MarkAllReadFor(_ context.Context, userID primitive.ObjectID) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, notif := range m.db.Notifications {
		if !notif.HasReader(userID) {
			notif.Readers = append(notif.Readers, userID)
			n++
		}
	}
	return n, nil
}
