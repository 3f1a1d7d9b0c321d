package services

import (
	"context"
	"errors"
	"time"

	"cinesocial/internal/models"

	"github.com/google/uuid"
)

// 存储层约定的哨兵错误
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateReaction = errors.New("duplicate reaction")
)

// Attachment 评论挂载的内容对象
type Attachment struct {
	Type models.CommentableType
	ID   uuid.UUID
}

// MovieAttachment 电影评论区
func MovieAttachment(id uuid.UUID) Attachment {
	return Attachment{Type: models.CommentableMovie, ID: id}
}

func (a Attachment) Matches(c *models.Comment) bool {
	return c.CommentableType == a.Type && c.CommentableID == a.ID
}

// ReactionAggregate 一次批量聚合返回的单条评论统计
type ReactionAggregate struct {
	CommentID   uuid.UUID
	Upvotes     int
	Downvotes   int
	CallerValue models.ReactionType // 0 表示调用者未投票
}

type CommentStore interface {
	InsertComment(ctx context.Context, c *models.Comment) error
	FindCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	FindRootsByAttachment(ctx context.Context, a Attachment, sort SortBy, offset, limit int) ([]models.Comment, int64, error)
	FindChildrenOfAny(ctx context.Context, parentIDs []uuid.UUID, limit int) ([]models.Comment, error)
	CountReplies(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	SoftDeleteComment(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateCommentContent(ctx context.Context, id uuid.UUID, content string, at time.Time) error
}

type ReactionStore interface {
	InsertReaction(ctx context.Context, r *models.Reaction) error
	FindReaction(ctx context.Context, userID, commentID uuid.UUID) (*models.Reaction, error)
	UpdateReaction(ctx context.Context, userID, commentID uuid.UUID, value models.ReactionType, at time.Time) (int64, error)
	DeleteReaction(ctx context.Context, userID, commentID uuid.UUID) error
	AggregateReactions(ctx context.Context, ids []uuid.UUID, caller uuid.UUID) ([]ReactionAggregate, error)
}

type AttachmentCatalog interface {
	AttachmentExists(ctx context.Context, a Attachment) (bool, error)
}

type UserDirectory interface {
	UsernamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Storage 引擎所需的全部存储能力
type Storage interface {
	CommentStore
	ReactionStore
	AttachmentCatalog
	UserDirectory
	NotificationStore
}

// Identity 当前请求的调用者
type Identity interface {
	CurrentUserID() (uuid.UUID, bool)
}

type userIdentity uuid.UUID

func (u userIdentity) CurrentUserID() (uuid.UUID, bool) { return uuid.UUID(u), true }

type anonymousIdentity struct{}

func (anonymousIdentity) CurrentUserID() (uuid.UUID, bool) { return uuid.Nil, false }

// AsUser 已登录用户身份
func AsUser(id uuid.UUID) Identity { return userIdentity(id) }

// Anonymous 匿名访客，只能读取
var Anonymous Identity = anonymousIdentity{}

func callerOf(who Identity) (uuid.UUID, bool) {
	if who == nil {
		return uuid.Nil, false
	}
	id, ok := who.CurrentUserID()
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// now 统一截断到微秒，保证与 postgres 的时间精度一致
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
