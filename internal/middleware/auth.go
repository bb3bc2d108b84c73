package middleware

import (
	"net/http"
	"strings"

	"member-portal/internal/models"
	"member-portal/internal/rbac"
	"member-portal/internal/session"
	"member-portal/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ctxAccountKey = "currentAccount"
	ctxTokenKey   = "sessionToken"
)

// Auth 解析会话令牌并把当前账号放进 context。
// 令牌来源：cookie 优先，其次 Authorization: Bearer（给 API 客户端用）。
func Auth(sessions *session.Manager, db *gorm.DB, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		if cookie, err := c.Cookie(cookieName); err == nil {
			token = cookie
		}
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					token = parts[1]
				}
			}
		}

		if token == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
			c.Abort()
			return
		}

		s, err := sessions.Validate(token)
		if err != nil {
			// 不区分"不存在/空闲超时/绝对超时"，给客户端的理由都是会话失效
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Session expired or invalid, please log in again")
			c.Abort()
			return
		}

		var account models.Account
		if err := db.First(&account, s.AccountID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Account no longer exists")
			} else {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to load account")
			}
			c.Abort()
			return
		}

		// 账号被停用/封禁后，已有会话立即失效
		if !account.IsActive() {
			_ = sessions.Invalidate(token)
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Account is not active")
			c.Abort()
			return
		}

		c.Set(ctxAccountKey, &account)
		c.Set(ctxTokenKey, token)
		c.Next()
	}
}

// RequirePermission 权限闸门：必须在 Auth 之后挂载。
// 403 响应里带上所需权限和当前角色，方便排查（调用方已通过认证，不算泄露）。
func RequirePermission(perm rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
			c.Abort()
			return
		}

		if !rbac.HasPermission(rbac.Role(account.Role), perm) {
			util.ErrorDetails(c, http.StatusForbidden, util.CodeForbidden, "Permission denied", gin.H{
				"required": perm,
				"role":     account.Role,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentAccount returns the authenticated account placed by Auth.
func CurrentAccount(c *gin.Context) (*models.Account, bool) {
	v, ok := c.Get(ctxAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*models.Account)
	if !ok || account == nil {
		return nil, false
	}
	return account, true
}

// CurrentToken returns the raw session token of the current request.
func CurrentToken(c *gin.Context) string {
	return c.GetString(ctxTokenKey)
}
