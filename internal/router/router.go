package router

import (
	"member-portal/internal/config"
	"member-portal/internal/handler"
	"member-portal/internal/lockout"
	"member-portal/internal/middleware"
	"member-portal/internal/notify"
	"member-portal/internal/rbac"
	"member-portal/internal/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup configures the Gin engine and wires every identity route.
func Setup(cfg *config.Config, db *gorm.DB, sessions *session.Manager, tracker *lockout.Tracker, notifier notify.Sender) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(db, cfg, sessions, tracker, notifier)

	// 公开接口（匿名可访问）
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/verify-email/:token", authHandler.VerifyEmail)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword)
	api.POST("/auth/reset-password", authHandler.ResetPassword)

	// 需要会话的接口
	protected := api.Group("")
	protected.Use(
		middleware.Auth(sessions, db, cfg.Auth.Session.CookieName),
		middleware.Audit(db),
	)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/resend-verification", authHandler.ResendVerification)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.GET("/auth/sessions", authHandler.ListSessions)
	protected.DELETE("/auth/sessions", authHandler.RevokeAllSessions)
	protected.DELETE("/auth/sessions/:id", authHandler.RevokeSession)

	// 管理端接口，按权限逐个挂闸门
	admin := protected.Group("/admin")

	accountHandler := handler.NewAccountHandler(db, sessions, tracker)
	admin.GET("/accounts", middleware.RequirePermission(rbac.PermUsersRead), accountHandler.List)
	admin.PATCH("/accounts/:id/status", middleware.RequirePermission(rbac.PermUsersManage), accountHandler.UpdateStatus)
	admin.PATCH("/accounts/:id/role", middleware.RequirePermission(rbac.PermUsersManage), accountHandler.UpdateRole)
	admin.POST("/accounts/:id/unlock", middleware.RequirePermission(rbac.PermUsersManage), accountHandler.Unlock)

	auditHandler := handler.NewAuditHandler(db)
	admin.GET("/audit-logs", middleware.RequirePermission(rbac.PermAuditRead), auditHandler.List)

	return r
}
