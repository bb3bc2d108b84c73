package handler

import (
	"errors"
	"net/http"

	"member-portal/internal/middleware"
	"member-portal/internal/session"
	"member-portal/internal/util"

	"github.com/gin-gonic/gin"
)

// ListSessions 列出当前账号的活跃会话（不含令牌本身）
func (h *AuthHandler) ListSessions(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
		return
	}

	sessions, err := h.Sessions.ListActive(account.ID, middleware.CurrentToken(c))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to list sessions")
		return
	}

	util.Success(c, util.Response{
		"sessions": sessions,
	})
}

// RevokeAllSessions "所有设备退出"，包括当前设备
func (h *AuthHandler) RevokeAllSessions(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
		return
	}

	if err := h.Sessions.InvalidateAll(account.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to revoke sessions")
		return
	}
	h.clearSessionCookie(c)

	util.Success(c, util.Response{
		"message": "All sessions revoked",
	})
}

// RevokeSession 按会话 ID 踢掉一台设备
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
		return
	}

	id := c.Param("id")
	if err := h.Sessions.InvalidateByID(account.ID, id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "Session not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to revoke session")
		}
		return
	}

	util.Success(c, util.Response{
		"message": "Session revoked",
	})
}
