package services

import (
	"context"
	"io"
	"sync"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type published struct {
	room    string
	event   string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Broadcast(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{event: event, payload: payload})
}

func (p *recordingPublisher) SendTo(room, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{room: room, event: event, payload: payload})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type memoryImages struct {
	mu      sync.Mutex
	stored  map[string]bool
	deleted []string
}

func newMemoryImages() *memoryImages {
	return &memoryImages{stored: make(map[string]bool)}
}

func (m *memoryImages) Put(_ context.Context, folder string, r io.Reader, _ int64, _ string) (*models.Image, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := folder + "/" + primitive.NewObjectID().Hex()
	m.stored[key] = true
	return &models.Image{URL: "http://media/" + key, PublicID: key}, nil
}

func (m *memoryImages) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, publicID)
	m.deleted = append(m.deleted, publicID)
	return nil
}

type recordingMailer struct {
	sent chan string
}

func (m *recordingMailer) SendEmail(to, subject, body string) error {
	m.sent <- to
	return nil
}

// fixture wires every service against one in-memory database.
type fixture struct {
	db            *memstore.DB
	publisher     *recordingPublisher
	images        *memoryImages
	notifications *NotificationService
	blogs         *BlogService
}

func newFixture() *fixture {
	db := memstore.NewDB()
	pub := &recordingPublisher{}
	images := newMemoryImages()
	users := memstore.NewUserStore(db)
	notifications := NewNotificationService(memstore.NewNotificationStore(db), users, pub)
	return &fixture{
		db:            db,
		publisher:     pub,
		images:        images,
		notifications: notifications,
		blogs:         NewBlogService(memstore.NewBlogStore(db), memstore.NewLikeStore(db), users, images, notifications, pub),
	}
}
