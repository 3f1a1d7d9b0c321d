package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"cinesocial/internal/models"
	"cinesocial/internal/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store 基于 gorm 的存储实现
type Store struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

var (
	_ services.Storage               = (*Store)(nil)
	_ services.UserStore             = (*Store)(nil)
	_ services.NotificationFeedStore = (*Store)(nil)
	_ services.MovieStore            = (*Store)(nil)
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrRecordNotFound
	}
	return err
}

// ---------- comments ----------

func (s *Store) InsertComment(ctx context.Context, c *models.Comment) error {
	return s.db.WithContext(ctx).Omit("User", "Parent", "Reactions").Create(c).Error
}

func (s *Store) FindCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) FindRootsByAttachment(ctx context.Context, a services.Attachment, sortBy services.SortBy, offset, limit int) ([]models.Comment, int64, error) {
	// 每次重新构建查询链，避免 Count 与 Find 共享条件
	roots := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Comment{}).
			Where("comments.commentable_type = ? AND comments.commentable_id = ? AND comments.parent_id IS NULL", a.Type, a.ID)
	}

	var total int64
	if err := roots().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Comment
	err := roots().
		Order(sortBy.OrderClause()).
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) FindChildrenOfAny(ctx context.Context, parentIDs []uuid.UUID, limit int) ([]models.Comment, error) {
	var items []models.Comment
	if len(parentIDs) == 0 || limit <= 0 {
		return items, nil
	}
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (s *Store) CountReplies(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	type countResult struct {
		ParentID uuid.UUID
		Count    int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("parent_id, count(*) as count").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		out[r.ParentID] = r.Count
	}
	return out, nil
}

func (s *Store) SoftDeleteComment(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrRecordNotFound
	}
	return nil
}

func (s *Store) UpdateCommentContent(ctx context.Context, id uuid.UUID, content string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"edited_at":  at,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrRecordNotFound
	}
	return nil
}

// ---------- reactions ----------

func (s *Store) InsertReaction(ctx context.Context, r *models.Reaction) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.ErrDuplicateReaction
	}
	return err
}

func (s *Store) FindReaction(ctx context.Context, userID, commentID uuid.UUID) (*models.Reaction, error) {
	var r models.Reaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Store) UpdateReaction(ctx context.Context, userID, commentID uuid.UUID, value models.ReactionType, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Updates(map[string]interface{}{
			"value":      value,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteReaction(ctx context.Context, userID, commentID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.Reaction{}).Error
}

// AggregateReactions 单条 SQL 聚合赞踩数与调用者自己的投票
func (s *Store) AggregateReactions(ctx context.Context, ids []uuid.UUID, caller uuid.UUID) ([]services.ReactionAggregate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	type aggRow struct {
		CommentID   uuid.UUID
		Upvotes     int
		Downvotes   int
		CallerValue int16
	}
	var rows []aggRow
	err := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Select(`comment_id,
			SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END) AS upvotes,
			SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END) AS downvotes,
			COALESCE(MAX(CASE WHEN user_id = ? THEN value END), 0) AS caller_value`, caller).
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]services.ReactionAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, services.ReactionAggregate{
			CommentID:   r.CommentID,
			Upvotes:     r.Upvotes,
			Downvotes:   r.Downvotes,
			CallerValue: models.ReactionType(r.CallerValue),
		})
	}
	return out, nil
}

// ---------- catalog / users ----------

func (s *Store) AttachmentExists(ctx context.Context, a services.Attachment) (bool, error) {
	if a.Type != models.CommentableMovie {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", a.ID).Count(&count).Error
	return count > 0, err
}

func (s *Store) FindMovieByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	var m models.Movie
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Store) ListMovies(ctx context.Context) ([]models.Movie, error) {
	var movies []models.Movie
	err := s.db.WithContext(ctx).Order("year DESC, title ASC").Find(&movies).Error
	return movies, err
}

func (s *Store) UsernamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.ErrDuplicateUser
	}
	return err
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ---------- notifications ----------

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Notification, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrRecordNotFound
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
