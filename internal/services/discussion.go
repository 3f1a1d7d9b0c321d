package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cinesocial/internal/logging"
	"cinesocial/internal/metrics"
	"cinesocial/internal/models"
	"cinesocial/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	MaxContentLength = 10000
	MaxPageSize      = 100
	DefaultCacheSize = 500
)

// Options DiscussionService 的可调参数
type Options struct {
	MaxDepth int
	ReplyCap int
	// CacheTTL 为 0 时不缓存评论串
	CacheTTL  time.Duration
	CacheSize int
	// Async 执行通知等旁路任务，默认起 goroutine
	Async func(func())
}

// ThreadPage 一页根评论及其回复树
type ThreadPage struct {
	Items           []ThreadedCommentView `json:"items"`
	Page            int                   `json:"page"`
	PageSize        int                   `json:"page_size"`
	TotalCount      int64                 `json:"total_count"`
	TotalPages      int                   `json:"total_pages"`
	HasNextPage     bool                  `json:"has_next_page"`
	HasPreviousPage bool                  `json:"has_previous_page"`
}

// threadSnapshot 与调用者无关、可缓存的部分；投票统计每次实时读取
type threadSnapshot struct {
	forest  []CommentNode
	ids     []uuid.UUID
	total   int64
	replies map[uuid.UUID]int
	names   map[uuid.UUID]string
}

// Content 按原样保存，Trimmed 用于判断是否为空白
type commentInput struct {
	Content string `validate:"required,max=10000"`
	Trimmed string `validate:"required,min=1"`
}

// DiscussionService 评论区对外操作入口
type DiscussionService struct {
	store     Storage
	guard     *DepthGuard
	assembler *ThreadAssembler
	ledger    *ReactionLedger
	presenter *ThreadPresenter
	validate  *validator.Validate

	cache *utils.TTLCache[*threadSnapshot]
	ttl   time.Duration
	async func(func())

	genMu       sync.Mutex
	generations map[Attachment]uint64
}

func NewDiscussionService(store Storage, opts Options) *DiscussionService {
	if opts.Async == nil {
		opts.Async = func(f func()) { go f() }
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	var cache *utils.TTLCache[*threadSnapshot]
	if opts.CacheTTL > 0 {
		c, err := utils.NewTTLCache[*threadSnapshot](opts.CacheSize)
		if err != nil {
			logging.Warn().Err(err).Msg("thread cache disabled")
		}
		cache = c
	}
	return &DiscussionService{
		store:       store,
		guard:       NewDepthGuard(store, opts.MaxDepth),
		assembler:   NewThreadAssembler(store, opts.ReplyCap),
		ledger:      NewReactionLedger(store, store),
		presenter:   NewThreadPresenter(),
		validate:    validator.New(),
		cache:       cache,
		ttl:         opts.CacheTTL,
		async:       opts.Async,
		generations: make(map[Attachment]uint64),
	}
}

// Ledger 暴露投票账本，供直接聚合查询
func (s *DiscussionService) Ledger() *ReactionLedger { return s.ledger }

// AddComment 发表评论或回复，返回统计为零的新节点
func (s *DiscussionService) AddComment(ctx context.Context, who Identity, a Attachment, content string, parentID *uuid.UUID) (ThreadedCommentView, error) {
	userID, ok := callerOf(who)
	if !ok {
		return ThreadedCommentView{}, s.fail("add_comment", ErrUnauthorized)
	}
	content, err := s.checkContent(content)
	if err != nil {
		return ThreadedCommentView{}, s.fail("add_comment", err)
	}
	if err := s.requireAttachment(ctx, a); err != nil {
		return ThreadedCommentView{}, s.fail("add_comment", err)
	}

	depth, parent, err := s.guard.resolve(ctx, a, parentID)
	if err != nil {
		return ThreadedCommentView{}, s.fail("add_comment", err)
	}

	names, err := s.store.UsernamesByIDs(ctx, []uuid.UUID{userID})
	if err != nil {
		return ThreadedCommentView{}, s.fail("add_comment", storageError(err))
	}

	var pid *uuid.UUID
	if parentID != nil {
		id := *parentID
		pid = &id
	}

	ts := now()
	comment := models.Comment{
		ID:              uuid.New(),
		UserID:          userID,
		Content:         content,
		CommentableType: a.Type,
		CommentableID:   a.ID,
		ParentID:        pid,
		Depth:           depth,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := checkContext(ctx); err != nil {
		return ThreadedCommentView{}, s.fail("add_comment", err)
	}
	if err := s.store.InsertComment(ctx, &comment); err != nil {
		return ThreadedCommentView{}, s.fail("add_comment", storageError(err))
	}
	s.invalidate(a)

	if parent == nil {
		metrics.CommentsCreated.WithLabelValues("root").Inc()
	} else {
		metrics.CommentsCreated.WithLabelValues("reply").Inc()
		if parent.UserID != userID {
			s.notifyReply(parent, &comment)
		}
	}

	return s.presenter.PresentOne(CommentNode{Comment: comment}, names[userID]), nil
}

// notifyReply 异步通知父评论作者，失败只记录日志
func (s *DiscussionService) notifyReply(parent, reply *models.Comment) {
	actor := reply.UserID
	movieID := reply.CommentableID
	commentID := reply.ID
	recipient := parent.UserID
	s.async(func() {
		n := &models.Notification{
			ID:        uuid.New(),
			UserID:    recipient,
			ActorID:   &actor,
			Type:      models.NotificationTypeReplyComment,
			MovieID:   &movieID,
			CommentID: &commentID,
			CreatedAt: now(),
		}
		if err := s.store.CreateNotification(context.Background(), n); err != nil {
			logging.Error().Err(err).
				Str("recipient", recipient.String()).
				Str("comment_id", commentID.String()).
				Msg("failed to create reply notification")
		}
	})
}

// ListThreads 分页只作用于根评论，每个根带有（受上限截断的）完整回复树
func (s *DiscussionService) ListThreads(ctx context.Context, who Identity, a Attachment, page, pageSize int, sortBy SortBy) (ThreadPage, error) {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return ThreadPage{}, s.fail("list_threads", ErrInvalidPagination)
	}
	if !sortBy.Valid() {
		return ThreadPage{}, s.fail("list_threads", ErrInvalidSort)
	}
	if err := s.requireAttachment(ctx, a); err != nil {
		return ThreadPage{}, s.fail("list_threads", err)
	}

	snap, err := s.snapshot(ctx, a, page, pageSize, sortBy)
	if err != nil {
		return ThreadPage{}, s.fail("list_threads", err)
	}

	var caller *uuid.UUID
	if id, ok := callerOf(who); ok {
		caller = &id
	}
	stats, err := s.ledger.Aggregate(ctx, snap.ids, caller)
	if err != nil {
		return ThreadPage{}, s.fail("list_threads", err)
	}
	if err := checkContext(ctx); err != nil {
		return ThreadPage{}, s.fail("list_threads", err)
	}

	totalPages := int((snap.total + int64(pageSize) - 1) / int64(pageSize))
	return ThreadPage{
		Items:           s.presenter.Present(snap.forest, stats, snap.replies, snap.names),
		Page:            page,
		PageSize:        pageSize,
		TotalCount:      snap.total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}, nil
}

func (s *DiscussionService) snapshot(ctx context.Context, a Attachment, page, pageSize int, sortBy SortBy) (*threadSnapshot, error) {
	key := s.cacheKey(a, page, pageSize, sortBy)
	if s.cache != nil && s.ttl > 0 {
		if v, ok := s.cache.Get(key); ok {
			metrics.ThreadCacheHits.Inc()
			return v, nil
		}
		metrics.ThreadCacheMisses.Inc()
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	roots, total, err := s.store.FindRootsByAttachment(ctx, a, sortBy, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, storageError(err)
	}
	forest, _, err := s.assembler.Assemble(ctx, roots)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	authorSet := make(map[uuid.UUID]struct{})
	Walk(forest, func(n *CommentNode) {
		ids = append(ids, n.Comment.ID)
		authorSet[n.Comment.UserID] = struct{}{}
	})
	authors := make([]uuid.UUID, 0, len(authorSet))
	for id := range authorSet {
		authors = append(authors, id)
	}

	snap := &threadSnapshot{forest: forest, ids: ids, total: total}
	if len(ids) > 0 {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if snap.replies, err = s.store.CountReplies(ctx, ids); err != nil {
			return nil, storageError(err)
		}
		if snap.names, err = s.store.UsernamesByIDs(ctx, authors); err != nil {
			return nil, storageError(err)
		}
	}

	if s.cache != nil && s.ttl > 0 {
		s.cache.Set(key, snap, s.ttl)
	}
	return snap, nil
}

// EditComment 仅作者可修改内容，已删除的评论不可编辑
func (s *DiscussionService) EditComment(ctx context.Context, who Identity, commentID uuid.UUID, content string) error {
	userID, ok := callerOf(who)
	if !ok {
		return s.fail("edit_comment", ErrUnauthorized)
	}
	content, err := s.checkContent(content)
	if err != nil {
		return s.fail("edit_comment", err)
	}
	c, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return s.fail("edit_comment", err)
	}
	if err := s.store.UpdateCommentContent(ctx, commentID, content, now()); err != nil {
		return s.fail("edit_comment", storageError(err))
	}
	s.invalidate(Attachment{Type: c.CommentableType, ID: c.CommentableID})
	return nil
}

// DeleteComment 仅作者可软删除，回复结构保留
func (s *DiscussionService) DeleteComment(ctx context.Context, who Identity, commentID uuid.UUID) error {
	userID, ok := callerOf(who)
	if !ok {
		return s.fail("delete_comment", ErrUnauthorized)
	}
	c, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return s.fail("delete_comment", err)
	}
	if err := s.store.SoftDeleteComment(ctx, commentID, now()); err != nil {
		return s.fail("delete_comment", storageError(err))
	}
	s.invalidate(Attachment{Type: c.CommentableType, ID: c.CommentableID})
	return nil
}

func (s *DiscussionService) SetReaction(ctx context.Context, who Identity, commentID uuid.UUID, value models.ReactionType) (ReactionResult, error) {
	userID, ok := callerOf(who)
	if !ok {
		return ReactionResult{}, s.fail("set_reaction", ErrUnauthorized)
	}
	res, err := s.ledger.Upsert(ctx, userID, commentID, value)
	if err != nil {
		return ReactionResult{}, s.fail("set_reaction", err)
	}
	s.invalidate(res.attachment)
	return res, nil
}

func (s *DiscussionService) RemoveReaction(ctx context.Context, who Identity, commentID uuid.UUID) error {
	userID, ok := callerOf(who)
	if !ok {
		return s.fail("remove_reaction", ErrUnauthorized)
	}
	a, err := s.ledger.Retract(ctx, userID, commentID)
	if err != nil {
		return s.fail("remove_reaction", err)
	}
	s.invalidate(a)
	return nil
}

// CommentInAttachment 确认评论挂载在指定内容下，已删除的评论同样视为存在
func (s *DiscussionService) CommentInAttachment(ctx context.Context, a Attachment, commentID uuid.UUID) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	c, err := s.store.FindCommentByID(ctx, commentID)
	if errors.Is(err, ErrRecordNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return s.fail("scope_comment", storageError(err))
	}
	if !a.Matches(c) {
		return ErrCommentNotFound
	}
	return nil
}

func (s *DiscussionService) checkContent(content string) (string, error) {
	in := commentInput{Content: content, Trimmed: strings.TrimSpace(content)}
	if err := s.validate.Struct(in); err != nil {
		return "", ErrInvalidContent
	}
	return content, nil
}

func (s *DiscussionService) requireAttachment(ctx context.Context, a Attachment) error {
	if a.Type != models.CommentableMovie || a.ID == uuid.Nil {
		return ErrMovieNotFound
	}
	if err := checkContext(ctx); err != nil {
		return err
	}
	ok, err := s.store.AttachmentExists(ctx, a)
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return ErrMovieNotFound
	}
	return nil
}

func (s *DiscussionService) ownComment(ctx context.Context, userID, commentID uuid.UUID) (*models.Comment, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	c, err := s.store.FindCommentByID(ctx, commentID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	if c.IsDeleted {
		return nil, ErrCommentNotFound
	}
	if c.UserID != userID {
		return nil, ErrNotOwner
	}
	return c, nil
}

func cachePrefix(a Attachment) string {
	return fmt.Sprintf("threads:%s:%s:", a.Type, a.ID)
}

func (s *DiscussionService) cacheKey(a Attachment, page, pageSize int, sortBy SortBy) string {
	s.genMu.Lock()
	gen := s.generations[a]
	s.genMu.Unlock()
	return fmt.Sprintf("%sg%d:p%d:s%d:%s", cachePrefix(a), gen, page, pageSize, sortBy)
}

// invalidate 递增缓存代数并清除该内容已缓存的页
// 代数保证与写入并发的读取不会把旧快照写回新 key
func (s *DiscussionService) invalidate(a Attachment) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	s.generations[a]++
	s.genMu.Unlock()
	s.cache.DeletePrefix(cachePrefix(a))
}

// fail 统一记录错误指标，存储失败带上原始错误写日志
func (s *DiscussionService) fail(op string, err error) error {
	kind := KindOf(err)
	metrics.EngineErrors.WithLabelValues(string(kind)).Inc()
	if kind == KindStorageFailure {
		logging.Error().Err(errors.Unwrap(err)).Str("op", op).Msg("storage failure")
	}
	return err
}
