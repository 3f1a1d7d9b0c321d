package services

import (
	"context"
	"errors"

	"cinesocial/internal/logging"
	"cinesocial/internal/metrics"
	"cinesocial/internal/models"

	"github.com/google/uuid"
)

const maxUpsertAttempts = 3

// ReactionStats 单条评论的投票统计
type ReactionStats struct {
	Upvotes        int                  `json:"upvotes"`
	Downvotes      int                  `json:"downvotes"`
	Score          int                  `json:"score"`
	CallerReaction *models.ReactionType `json:"caller_reaction"`
}

// ReactionResult 投票写入结果
type ReactionResult struct {
	IsNew bool `json:"is_new"`

	attachment Attachment
}

// ReactionLedger 每个用户对每条评论至多一条投票，唯一性由存储层约束保证
type ReactionLedger struct {
	comments  CommentStore
	reactions ReactionStore
}

func NewReactionLedger(comments CommentStore, reactions ReactionStore) *ReactionLedger {
	return &ReactionLedger{comments: comments, reactions: reactions}
}

func (l *ReactionLedger) findComment(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	c, err := l.comments.FindCommentByID(ctx, commentID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrReactionNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return c, nil
}

// liveComment 已删除的评论不再接受新投票
func (l *ReactionLedger) liveComment(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	c, err := l.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted {
		return nil, ErrReactionNotFound
	}
	return c, nil
}

// Upsert 首次投票插入，再次投票原地更新方向
// 并发冲突（插入撞唯一索引、更新时行已被撤回）在内部重试，不向调用方暴露
func (l *ReactionLedger) Upsert(ctx context.Context, userID, commentID uuid.UUID, value models.ReactionType) (ReactionResult, error) {
	if !value.Valid() {
		return ReactionResult{}, ErrInvalidReaction
	}
	c, err := l.liveComment(ctx, commentID)
	if err != nil {
		return ReactionResult{}, err
	}
	result := ReactionResult{attachment: Attachment{Type: c.CommentableType, ID: c.CommentableID}}

	_, err = l.reactions.FindReaction(ctx, userID, commentID)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return ReactionResult{}, storageError(err)
	}

	var lastErr error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		if err := checkContext(ctx); err != nil {
			return ReactionResult{}, err
		}
		if exists {
			rows, err := l.reactions.UpdateReaction(ctx, userID, commentID, value, now())
			if err != nil {
				return ReactionResult{}, storageError(err)
			}
			if rows > 0 {
				metrics.ReactionUpserts.WithLabelValues("updated").Inc()
				return result, nil
			}
			// 行在查询与更新之间被撤回，改为插入
			exists = false
			metrics.ReactionConflicts.Inc()
			continue
		}

		ts := now()
		r := &models.Reaction{
			ID:        uuid.New(),
			UserID:    userID,
			CommentID: commentID,
			Value:     value,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		err := l.reactions.InsertReaction(ctx, r)
		if err == nil {
			result.IsNew = true
			metrics.ReactionUpserts.WithLabelValues("inserted").Inc()
			return result, nil
		}
		if !errors.Is(err, ErrDuplicateReaction) {
			return ReactionResult{}, storageError(err)
		}
		// 并发插入已抢先写入，改为更新
		lastErr = err
		exists = true
		metrics.ReactionConflicts.Inc()
	}

	logging.Warn().
		Str("user_id", userID.String()).
		Str("comment_id", commentID.String()).
		Msg("reaction upsert did not settle after retries")
	if lastErr == nil {
		lastErr = errors.New("reaction upsert retries exhausted")
	}
	return ReactionResult{}, storageError(lastErr)
}

// Retract 撤回投票，不存在时视为成功；已删除评论上的投票仍可撤回
func (l *ReactionLedger) Retract(ctx context.Context, userID, commentID uuid.UUID) (Attachment, error) {
	c, err := l.findComment(ctx, commentID)
	if err != nil {
		return Attachment{}, err
	}
	if err := l.reactions.DeleteReaction(ctx, userID, commentID); err != nil && !errors.Is(err, ErrRecordNotFound) {
		return Attachment{}, storageError(err)
	}
	return Attachment{Type: c.CommentableType, ID: c.CommentableID}, nil
}

// Aggregate 一次批量读取所有评论的统计，没有投票的评论返回零值
func (l *ReactionLedger) Aggregate(ctx context.Context, ids []uuid.UUID, caller *uuid.UUID) (map[uuid.UUID]ReactionStats, error) {
	out := make(map[uuid.UUID]ReactionStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	callerID := uuid.Nil
	if caller != nil {
		callerID = *caller
	}
	rows, err := l.reactions.AggregateReactions(ctx, ids, callerID)
	if err != nil {
		return nil, storageError(err)
	}

	for _, id := range ids {
		out[id] = ReactionStats{}
	}
	for _, row := range rows {
		stats := ReactionStats{
			Upvotes:   row.Upvotes,
			Downvotes: row.Downvotes,
			Score:     row.Upvotes - row.Downvotes,
		}
		if callerID != uuid.Nil && row.CallerValue.Valid() {
			v := row.CallerValue
			stats.CallerReaction = &v
		}
		out[row.CommentID] = stats
	}
	return out, nil
}
