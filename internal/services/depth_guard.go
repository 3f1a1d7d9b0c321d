package services

import (
	"context"
	"errors"

	"cinesocial/internal/models"

	"github.com/google/uuid"
)

const DefaultMaxDepth = 10

// DepthGuard 在写入前校验父评论并计算层级
type DepthGuard struct {
	comments CommentStore
	maxDepth int
}

func NewDepthGuard(comments CommentStore, maxDepth int) *DepthGuard {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &DepthGuard{comments: comments, maxDepth: maxDepth}
}

func (g *DepthGuard) MaxDepth() int { return g.maxDepth }

// ValidateAndComputeDepth 无父评论返回 0；父评论必须存在、未删除且属于同一内容
func (g *DepthGuard) ValidateAndComputeDepth(ctx context.Context, a Attachment, parentID *uuid.UUID) (int, error) {
	depth, _, err := g.resolve(ctx, a, parentID)
	return depth, err
}

// resolve 同时返回父评论，供回复通知使用
func (g *DepthGuard) resolve(ctx context.Context, a Attachment, parentID *uuid.UUID) (int, *models.Comment, error) {
	if parentID == nil {
		return 0, nil, nil
	}
	if err := checkContext(ctx); err != nil {
		return 0, nil, err
	}

	parent, err := g.comments.FindCommentByID(ctx, *parentID)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, nil, ErrParentNotFound
	}
	if err != nil {
		return 0, nil, storageError(err)
	}
	if !a.Matches(parent) {
		return 0, nil, ErrParentNotFound
	}
	if parent.IsDeleted {
		return 0, nil, ErrParentDeleted
	}

	depth := parent.Depth + 1
	if depth > g.maxDepth {
		return 0, nil, ErrMaxDepthExceeded
	}
	return depth, parent, nil
}
