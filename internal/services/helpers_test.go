package services_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cinesocial/internal/db"
	"cinesocial/internal/models"
	"cinesocial/internal/services"

	"github.com/google/uuid"
)

type fixture struct {
	store *db.MemoryStore
	svc   *services.DiscussionService
	movie services.Attachment
	other services.Attachment
	alice uuid.UUID
	bob   uuid.UUID
}

func newFixture(t *testing.T, opts services.Options) *fixture {
	t.Helper()
	store := db.NewSeededMemoryStore()
	f := &fixture{
		store: store,
		movie: services.MovieAttachment(db.MovieID("Parasite")),
		other: services.MovieAttachment(db.MovieID("Arrival")),
		alice: addUser(t, store, "alice"),
		bob:   addUser(t, store, "bob"),
	}
	if opts.Async == nil {
		opts.Async = func(fn func()) { fn() }
	}
	f.svc = services.NewDiscussionService(store, opts)
	return f
}

func newCachedFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, services.Options{CacheTTL: time.Minute, CacheSize: 64})
}

func addUser(t *testing.T, store *db.MemoryStore, name string) uuid.UUID {
	t.Helper()
	u := &models.User{ID: uuid.New(), Username: name, Email: name + "@example.com", Password: "x"}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

// seedRoot 直接写入存储，便于控制时间戳
func seedRoot(t *testing.T, store *db.MemoryStore, a services.Attachment, author uuid.UUID, at time.Time) models.Comment {
	t.Helper()
	c := models.Comment{
		ID:              uuid.New(),
		UserID:          author,
		Content:         "root",
		CommentableType: a.Type,
		CommentableID:   a.ID,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := store.InsertComment(context.Background(), &c); err != nil {
		t.Fatal(err)
	}
	return c
}

func seedReply(t *testing.T, store *db.MemoryStore, parent models.Comment, author uuid.UUID, at time.Time) models.Comment {
	t.Helper()
	pid := parent.ID
	c := models.Comment{
		ID:              uuid.New(),
		UserID:          author,
		Content:         "reply",
		CommentableType: parent.CommentableType,
		CommentableID:   parent.CommentableID,
		ParentID:        &pid,
		Depth:           parent.Depth + 1,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := store.InsertComment(context.Background(), &c); err != nil {
		t.Fatal(err)
	}
	return c
}

// countingStore 统计 FindChildrenOfAny 调用次数，可在第 failAt 次调用时注入错误
type countingStore struct {
	*db.MemoryStore
	childCalls atomic.Int32
	failAt     int32
	failErr    error
}

func (s *countingStore) FindChildrenOfAny(ctx context.Context, ids []uuid.UUID, limit int) ([]models.Comment, error) {
	n := s.childCalls.Add(1)
	if s.failAt > 0 && n == s.failAt {
		return nil, s.failErr
	}
	return s.MemoryStore.FindChildrenOfAny(ctx, ids, limit)
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
