package handlers

import (
	"errors"
	"net/http"

	"cinesocial/internal/middleware"
	"cinesocial/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusClientClosedRequest 调用方主动取消
const StatusClientClosedRequest = 499

var errInvalidBody = &services.Error{Kind: services.KindValidation, Code: "Request.InvalidBody", Description: "the request body is malformed"}

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	// Inject Current User
	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError 错误页
func RenderError(c *gin.Context, err error) {
	status, se := classify(err)
	Render(c, status, "error.html", gin.H{"Title": "Error", "Error": se.Description, "Code": se.Code})
}

// pagination 列表接口附带的分页信息
type pagination struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	TotalCount      int64 `json:"total_count"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func respondPage(c *gin.Context, message string, data interface{}, p pagination) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"data":       data,
		"pagination": p,
	})
}

// respondError 按错误类别映射状态码，只输出稳定的错误码与描述
func respondError(c *gin.Context, err error) {
	status, se := classify(err)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": se.Description,
		"error":   se.Code,
	})
}

func classify(err error) (int, *services.Error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Kind: services.KindStorageFailure, Code: "Storage.Failure", Description: "a storage error occurred"}
	}
	return statusFor(se.Kind), se
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindCancelled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// uuidParam 解析路径参数，格式不合法视为不存在
func uuidParam(c *gin.Context, name string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, notFound)
		return uuid.Nil, false
	}
	return id, true
}
