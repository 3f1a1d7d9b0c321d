package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cinesocial/internal/services"
)

func TestStatusForKinds(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{services.ErrUnauthorized, http.StatusUnauthorized, "Auth.Unauthorized"},
		{services.ErrCommentNotFound, http.StatusNotFound, "Comment.NotFound"},
		{services.ErrParentDeleted, http.StatusNotFound, "Comment.ParentDeleted"},
		{services.ErrNotOwner, http.StatusForbidden, "Comment.NotOwner"},
		{services.ErrMaxDepthExceeded, http.StatusBadRequest, "Comment.MaxDepthExceeded"},
		{services.ErrCancelled, StatusClientClosedRequest, "Comment.RequestCancelled"},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidSort), http.StatusBadRequest, "Comment.InvalidSort"},
		{errors.New("connection reset"), http.StatusInternalServerError, "Storage.Failure"},
		{context.DeadlineExceeded, http.StatusInternalServerError, "Storage.Failure"},
	}
	for _, tt := range tests {
		status, se := classify(tt.err)
		if status != tt.want || se.Code != tt.code {
			t.Errorf("classify(%v) = %d %s, want %d %s", tt.err, status, se.Code, tt.want, tt.code)
		}
	}
}
