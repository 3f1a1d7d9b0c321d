package middleware

import (
	"context"
	"net/http"

	"cinesocial/internal/logging"
	"cinesocial/internal/models"
	"cinesocial/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"
const SessionUserKey = "user_id"

// UserLoader 按 id 加载用户
type UserLoader interface {
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UnreadCounter 未读通知数
type UnreadCounter interface {
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
}

// LoadUser 依次尝试 Bearer 令牌和 session，识别出的用户写入上下文
func LoadUser(users UserLoader, unread UnreadCounter, tokens *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveUserID(c, tokens)
		if ok {
			user, err := users.User(c.Request.Context(), userID)
			if err == nil {
				c.Set(CheckUserKey, user)

				if unread != nil {
					if count, err := unread.CountUnreadNotifications(c.Request.Context(), user.ID); err == nil {
						c.Set(UnreadCountKey, count)
					}
				}
			} else if !services.IsKind(err, services.KindUnauthorized) {
				logging.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to load user")
			}
		}
		c.Next()
	}
}

func resolveUserID(c *gin.Context, tokens *JWTManager) (uuid.UUID, bool) {
	if tok := bearerToken(c.GetHeader("Authorization")); tok != "" && tokens != nil {
		id, err := tokens.Parse(tok)
		return id, err == nil
	}

	session := sessions.Default(c)
	raw, ok := session.Get(SessionUserKey).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// CurrentUser 当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get(CheckUserKey); exists {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentIdentity 供服务层使用的调用者身份
func CurrentIdentity(c *gin.Context) services.Identity {
	if u := CurrentUser(c); u != nil {
		return services.AsUser(u.ID)
	}
	return services.Anonymous
}

// AuthRequired 未登录直接返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": services.ErrUnauthorized.Description,
				"error":   services.ErrUnauthorized.Code,
			})
			return
		}
		c.Next()
	}
}
