package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cinesocial/internal/middleware"
	"cinesocial/internal/models"
	"cinesocial/internal/services"
	"cinesocial/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultPageSize = 20

type CommentHandler struct {
	discussion *services.DiscussionService
}

func NewCommentHandler(discussion *services.DiscussionService) *CommentHandler {
	return &CommentHandler{discussion: discussion}
}

type createCommentRequest struct {
	Content  string     `json:"content"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type editCommentRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	Type json.RawMessage `json:"type"`
}

// List GET /api/movies/:movieId/comments?page=&pageSize=&sort=
func (h *CommentHandler) List(c *gin.Context) {
	movieID, ok := uuidParam(c, "movieId", services.ErrMovieNotFound)
	if !ok {
		return
	}
	sortBy, err := services.ParseSortBy(c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}
	page := utils.StringToIntDefault(c.Query("page"), 1)
	pageSize := utils.StringToIntDefault(firstNonEmpty(c.Query("pageSize"), c.Query("page_size")), defaultPageSize)

	result, err := h.discussion.ListThreads(c.Request.Context(), middleware.CurrentIdentity(c), services.MovieAttachment(movieID), page, pageSize, sortBy)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, "comments retrieved", result.Items, pagination{
		Page:            result.Page,
		PageSize:        result.PageSize,
		TotalCount:      result.TotalCount,
		TotalPages:      result.TotalPages,
		HasNextPage:     result.HasNextPage,
		HasPreviousPage: result.HasPreviousPage,
	})
}

// Create POST /api/movies/:movieId/comments
func (h *CommentHandler) Create(c *gin.Context) {
	movieID, ok := uuidParam(c, "movieId", services.ErrMovieNotFound)
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	view, err := h.discussion.AddComment(c.Request.Context(), middleware.CurrentIdentity(c), services.MovieAttachment(movieID), req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "comment created", view)
}

// Update PUT /api/movies/:movieId/comments/:commentId
func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := h.scopedComment(c, services.ErrCommentNotFound)
	if !ok {
		return
	}
	var req editCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}
	if err := h.discussion.EditComment(c.Request.Context(), middleware.CurrentIdentity(c), commentID, req.Content); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "comment updated", nil)
}

// Delete DELETE /api/movies/:movieId/comments/:commentId
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := h.scopedComment(c, services.ErrCommentNotFound)
	if !ok {
		return
	}
	if err := h.discussion.DeleteComment(c.Request.Context(), middleware.CurrentIdentity(c), commentID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "comment deleted", nil)
}

// React POST /api/movies/:movieId/comments/:commentId/reactions
func (h *CommentHandler) React(c *gin.Context) {
	commentID, ok := h.scopedComment(c, services.ErrReactionNotFound)
	if !ok {
		return
	}
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}
	// 同时接受 "Upvote" 与 1 两种写法
	value, err := models.ParseReactionType(strings.Trim(string(req.Type), `"`))
	if err != nil {
		respondError(c, services.ErrInvalidReaction)
		return
	}

	res, err := h.discussion.SetReaction(c.Request.Context(), middleware.CurrentIdentity(c), commentID, value)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	respondOK(c, status, "reaction saved", res)
}

// Unreact DELETE /api/movies/:movieId/comments/:commentId/reactions
func (h *CommentHandler) Unreact(c *gin.Context) {
	commentID, ok := h.scopedComment(c, services.ErrReactionNotFound)
	if !ok {
		return
	}
	if err := h.discussion.RemoveReaction(c.Request.Context(), middleware.CurrentIdentity(c), commentID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "reaction removed", nil)
}

// scopedComment 解析评论 id 并确认它属于路径中的影片
func (h *CommentHandler) scopedComment(c *gin.Context, notFound error) (uuid.UUID, bool) {
	movieID, ok := uuidParam(c, "movieId", notFound)
	if !ok {
		return uuid.Nil, false
	}
	commentID, ok := uuidParam(c, "commentId", notFound)
	if !ok {
		return uuid.Nil, false
	}
	err := h.discussion.CommentInAttachment(c.Request.Context(), services.MovieAttachment(movieID), commentID)
	if errors.Is(err, services.ErrCommentNotFound) {
		err = notFound
	}
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return commentID, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
