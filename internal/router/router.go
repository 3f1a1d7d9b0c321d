package router

import (
	"net/http"

	"cinesocial/internal/handlers"
	"cinesocial/internal/middleware"
	"cinesocial/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由需要的服务
type Deps struct {
	Discussion    *services.DiscussionService
	Accounts      *services.AccountService
	Notifications *services.NotificationService
	Catalog       *services.CatalogService
	Unread        middleware.UnreadCounter
	Tokens        *middleware.JWTManager
	Limiter       *middleware.RateLimiter
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Tokens)
	commentHandler := handlers.NewCommentHandler(d.Discussion)
	movieHandler := handlers.NewMovieHandler(d.Catalog, d.Discussion)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)

	r.Use(middleware.LoadUser(d.Accounts, d.Unread, d.Tokens))

	// 运维
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 页面
	r.GET("/", movieHandler.Index)                     // 影片列表
	r.GET("/movies/:movieId", movieHandler.Discussion) // 影片讨论区

	api := r.Group("/api")

	// 认证
	auth := api.Group("/auth")
	{
		auth.POST("/register", d.Limiter.Middleware(), authHandler.Register) // 注册
		auth.POST("/login", d.Limiter.Middleware(), authHandler.Login)       // 登录
		auth.POST("/logout", authHandler.Logout)                             // 退出
		auth.GET("/me", middleware.AuthRequired(), authHandler.Me)           // 当前用户
	}

	// 评论（读取公开，写入需登录）
	comments := api.Group("/movies/:movieId/comments")
	{
		comments.GET("", commentHandler.List)

		write := comments.Group("")
		write.Use(middleware.AuthRequired(), d.Limiter.Middleware())
		write.POST("", commentHandler.Create)                         // 发表评论 / 回复
		write.PUT("/:commentId", commentHandler.Update)               // 编辑
		write.DELETE("/:commentId", commentHandler.Delete)            // 软删除
		write.POST("/:commentId/reactions", commentHandler.React)     // 投票
		write.DELETE("/:commentId/reactions", commentHandler.Unreact) // 撤回投票
	}

	// 通知
	notifications := api.Group("/notifications")
	notifications.Use(middleware.AuthRequired())
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.Read)    // 标记单条通知为已读
		notifications.POST("/read-all", notificationHandler.ReadAll) // 全部通知标记为已读
	}
}
