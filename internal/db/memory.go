package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cinesocial/internal/models"
	"cinesocial/internal/services"

	"github.com/google/uuid"
)

type reactionKey struct {
	user    uuid.UUID
	comment uuid.UUID
}

// MemoryStore 进程内存储，排序语义与 Store 一致
// 用于 STORE_DRIVER=memory 和测试
type MemoryStore struct {
	mu            sync.RWMutex
	comments      map[uuid.UUID]models.Comment
	reactions     map[reactionKey]models.Reaction
	users         map[uuid.UUID]models.User
	movies        map[uuid.UUID]models.Movie
	notifications []models.Notification
}

var (
	_ services.Storage               = (*MemoryStore)(nil)
	_ services.UserStore             = (*MemoryStore)(nil)
	_ services.NotificationFeedStore = (*MemoryStore)(nil)
	_ services.MovieStore            = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		comments:  make(map[uuid.UUID]models.Comment),
		reactions: make(map[reactionKey]models.Reaction),
		users:     make(map[uuid.UUID]models.User),
		movies:    make(map[uuid.UUID]models.Movie),
	}
}

// NewSeededMemoryStore 带预设影片的内存存储
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, m := range SeedMovies() {
		s.AddMovie(m)
	}
	return s
}

func (s *MemoryStore) AddMovie(m models.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[m.ID] = m
}

// ---------- comments ----------

// 指针字段单独复制，调用方修改返回值不会影响存储的数据
func cloneComment(c models.Comment) models.Comment {
	c.ParentID = cloneID(c.ParentID)
	c.EditedAt = cloneTime(c.EditedAt)
	c.DeletedAt = cloneTime(c.DeletedAt)
	c.Parent = nil
	c.Reactions = nil
	return c
}

func cloneNotification(n models.Notification) models.Notification {
	n.ActorID = cloneID(n.ActorID)
	n.MovieID = cloneID(n.MovieID)
	n.CommentID = cloneID(n.CommentID)
	return n
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *MemoryStore) InsertComment(ctx context.Context, c *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[c.ID] = cloneComment(*c)
	return nil
}

func (s *MemoryStore) FindCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, services.ErrRecordNotFound
	}
	c = cloneComment(c)
	return &c, nil
}

func (s *MemoryStore) upvotes(id uuid.UUID) int {
	n := 0
	for k, r := range s.reactions {
		if k.comment == id && r.Value == models.ReactionUpvote {
			n++
		}
	}
	return n
}

func (s *MemoryStore) replies(id uuid.UUID) int {
	n := 0
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n
}

func (s *MemoryStore) FindRootsByAttachment(ctx context.Context, a services.Attachment, sortBy services.SortBy, offset, limit int) ([]models.Comment, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roots []models.Comment
	ranked := make(map[uuid.UUID]services.RankedComment)
	for _, c := range s.comments {
		if c.ParentID != nil || c.CommentableType != a.Type || c.CommentableID != a.ID {
			continue
		}
		roots = append(roots, cloneComment(c))
		ranked[c.ID] = services.RankedComment{
			ID:         c.ID,
			CreatedAt:  c.CreatedAt,
			Upvotes:    s.upvotes(c.ID),
			ReplyCount: s.replies(c.ID),
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		return sortBy.Less(ranked[roots[i].ID], ranked[roots[j].ID])
	})

	total := int64(len(roots))
	if offset >= len(roots) {
		return []models.Comment{}, total, nil
	}
	end := offset + limit
	if end > len(roots) {
		end = len(roots)
	}
	return roots[offset:end], total, nil
}

func (s *MemoryStore) FindChildrenOfAny(ctx context.Context, parentIDs []uuid.UUID, limit int) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		want[id] = true
	}
	var items []models.Comment
	for _, c := range s.comments {
		if c.ParentID != nil && want[*c.ParentID] {
			items = append(items, cloneComment(c))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return services.SortOldest.Less(
			services.RankedComment{ID: items[i].ID, CreatedAt: items[i].CreatedAt},
			services.RankedComment{ID: items[j].ID, CreatedAt: items[j].CreatedAt},
		)
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) CountReplies(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]int, len(ids))
	for _, c := range s.comments {
		if c.ParentID != nil && want[*c.ParentID] {
			out[*c.ParentID]++
		}
	}
	return out, nil
}

func (s *MemoryStore) SoftDeleteComment(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.IsDeleted {
		return services.ErrRecordNotFound
	}
	c.IsDeleted = true
	c.DeletedAt = &at
	c.UpdatedAt = at
	s.comments[id] = c
	return nil
}

func (s *MemoryStore) UpdateCommentContent(ctx context.Context, id uuid.UUID, content string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.IsDeleted {
		return services.ErrRecordNotFound
	}
	c.Content = content
	c.IsEdited = true
	c.EditedAt = &at
	c.UpdatedAt = at
	s.comments[id] = c
	return nil
}

// ---------- reactions ----------

func (s *MemoryStore) InsertReaction(ctx context.Context, r *models.Reaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reactionKey{user: r.UserID, comment: r.CommentID}
	if _, ok := s.reactions[key]; ok {
		return services.ErrDuplicateReaction
	}
	s.reactions[key] = *r
	return nil
}

func (s *MemoryStore) FindReaction(ctx context.Context, userID, commentID uuid.UUID) (*models.Reaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reactions[reactionKey{user: userID, comment: commentID}]
	if !ok {
		return nil, services.ErrRecordNotFound
	}
	return &r, nil
}

func (s *MemoryStore) UpdateReaction(ctx context.Context, userID, commentID uuid.UUID, value models.ReactionType, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reactionKey{user: userID, comment: commentID}
	r, ok := s.reactions[key]
	if !ok {
		return 0, nil
	}
	r.Value = value
	r.UpdatedAt = at
	s.reactions[key] = r
	return 1, nil
}

func (s *MemoryStore) DeleteReaction(ctx context.Context, userID, commentID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reactions, reactionKey{user: userID, comment: commentID})
	return nil
}

func (s *MemoryStore) AggregateReactions(ctx context.Context, ids []uuid.UUID, caller uuid.UUID) ([]services.ReactionAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	byComment := make(map[uuid.UUID]*services.ReactionAggregate)
	for k, r := range s.reactions {
		if !want[k.comment] {
			continue
		}
		agg, ok := byComment[k.comment]
		if !ok {
			agg = &services.ReactionAggregate{CommentID: k.comment}
			byComment[k.comment] = agg
		}
		switch r.Value {
		case models.ReactionUpvote:
			agg.Upvotes++
		case models.ReactionDownvote:
			agg.Downvotes++
		}
		if caller != uuid.Nil && k.user == caller {
			agg.CallerValue = r.Value
		}
	}
	out := make([]services.ReactionAggregate, 0, len(byComment))
	for _, agg := range byComment {
		out = append(out, *agg)
	}
	return out, nil
}

// ReactionRows 返回 (user, comment) 对应的行数，测试唯一性用
func (s *MemoryStore) ReactionRows(userID, commentID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.reactions {
		if r.UserID == userID && r.CommentID == commentID {
			n++
		}
	}
	return n
}

// ---------- catalog / users ----------

func (s *MemoryStore) AttachmentExists(ctx context.Context, a services.Attachment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if a.Type != models.CommentableMovie {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.movies[a.ID]
	return ok, nil
}

func (s *MemoryStore) FindMovieByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, services.ErrRecordNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMovies(ctx context.Context) ([]models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *MemoryStore) UsernamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u.Username
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || existing.Email == u.Email {
			return services.ErrDuplicateUser
		}
	}
	ts := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = ts
	}
	u.UpdatedAt = ts
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return &u, nil
		}
	}
	return nil, services.ErrRecordNotFound
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, services.ErrRecordNotFound
	}
	return &u, nil
}

// ---------- notifications ----------

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, cloneNotification(*n))
	return nil
}

func (s *MemoryStore) userNotifications(userID uuid.UUID) []models.Notification {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, cloneNotification(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Notification, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.userNotifications(userID)
	total := int64(len(all))
	if offset >= len(all) {
		return []models.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, item := range s.notifications {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return services.ErrRecordNotFound
}

func (s *MemoryStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].UserID == userID {
			s.notifications[i].IsRead = true
		}
	}
	return nil
}
