package middleware

import (
	"bytes"
	"io"
	"strings"

	"member-portal/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxAuditBody = 2000

// 凭据相关接口的请求体绝不入库（里面有明文密码）
func sensitiveBody(path string) bool {
	return strings.Contains(path, "password") ||
		strings.Contains(path, "login") ||
		strings.Contains(path, "register")
}

// Audit 记录登录用户的写操作（方法、路径、IP、UA、截断后的请求体）。
// 审计表只追加，写失败不影响业务响应。
func Audit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只审计写操作
		switch c.Request.Method {
		case "POST", "PUT", "PATCH", "DELETE":
		default:
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var bodyBytes []byte
		if c.Request.Body != nil && !sensitiveBody(path) {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		var actorID *uint
		if account, ok := CurrentAccount(c); ok {
			actorID = &account.ID
		}
		if actorID == nil {
			return
		}

		metadata := ""
		if len(bodyBytes) > 0 {
			if len(bodyBytes) > maxAuditBody {
				bodyBytes = bodyBytes[:maxAuditBody]
			}
			metadata = string(bodyBytes)
		}

		entry := models.AuditLog{
			ActorID:   actorID,
			Action:    c.Request.Method + " " + path,
			Resource:  path,
			Method:    c.Request.Method,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Metadata:  metadata,
		}

		_ = db.Create(&entry).Error
	}
}
