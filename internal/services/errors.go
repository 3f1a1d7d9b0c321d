package services

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind 引擎对外暴露的错误类别
type ErrorKind string

const (
	KindUnauthorized   ErrorKind = "Unauthorized"
	KindNotFound       ErrorKind = "NotFound"
	KindForbidden      ErrorKind = "Forbidden"
	KindValidation     ErrorKind = "ValidationError"
	KindCancelled      ErrorKind = "Cancelled"
	KindStorageFailure ErrorKind = "StorageFailure"
)

// Error 带稳定错误码的业务错误，cause 只用于日志，不对外渲染
type Error struct {
	Kind        ErrorKind
	Code        string
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, code, description string) *Error {
	return &Error{Kind: kind, Code: code, Description: description}
}

// 预定义错误
var (
	ErrUnauthorized      = newError(KindUnauthorized, "Auth.Unauthorized", "authentication is required")
	ErrMovieNotFound     = newError(KindNotFound, "Comment.MovieNotFound", "the movie does not exist")
	ErrCommentNotFound   = newError(KindNotFound, "Comment.NotFound", "the comment does not exist")
	ErrParentNotFound    = newError(KindNotFound, "Comment.ParentNotFound", "the parent comment does not exist")
	ErrParentDeleted     = newError(KindNotFound, "Comment.ParentDeleted", "the parent comment has been deleted")
	ErrNotOwner          = newError(KindForbidden, "Comment.NotOwner", "only the author may modify this comment")
	ErrMaxDepthExceeded  = newError(KindValidation, "Comment.MaxDepthExceeded", "the reply is nested too deeply")
	ErrInvalidContent    = newError(KindValidation, "Comment.InvalidContent", "content must be between 1 and 10000 characters")
	ErrInvalidSort       = newError(KindValidation, "Comment.InvalidSort", "sort must be one of Newest, Oldest, MostUpvoted, MostReplies")
	ErrInvalidPagination = newError(KindValidation, "Comment.InvalidPagination", "page must be >= 1 and page size between 1 and 100")
	ErrReactionNotFound  = newError(KindNotFound, "Reaction.CommentNotFound", "the comment does not exist")
	ErrInvalidReaction   = newError(KindValidation, "Reaction.InvalidType", "reaction must be Upvote or Downvote")
	ErrCancelled         = newError(KindCancelled, "Comment.RequestCancelled", "the request was cancelled")
)

// IsKind 判断 err 是否为指定类别的业务错误
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf 返回业务错误类别，非业务错误视为存储失败
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// storageError 将底层错误包装为 StorageFailure，取消类错误转换为 Cancelled
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Code: ErrCancelled.Code, Description: ErrCancelled.Description, cause: err}
	}
	return &Error{Kind: KindStorageFailure, Code: "Storage.Failure", Description: "a storage error occurred", cause: err}
}

// checkContext 在执行存储调用前检查请求是否已取消
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storageError(err)
	}
	return nil
}
