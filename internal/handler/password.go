package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"member-portal/internal/middleware"
	"member-portal/internal/models"
	"member-portal/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ---------- 忘记密码 ----------

type forgotPasswordReq struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword 无论邮箱是否存在都返回同样的 200，防止探测注册邮箱。
// 同一账号重复请求时新令牌覆盖旧令牌（只有最新的有效）。
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	account, err := h.findByEmail(req.Email)
	if err == nil {
		token, genErr := util.GenerateToken(identityTokenBytes)
		if genErr == nil {
			expiry := time.Now().Add(h.Cfg.Auth.Tokens.ResetTTL())
			updErr := h.DB.Model(account).Updates(map[string]interface{}{
				"password_reset_token":  token,
				"password_reset_expiry": expiry,
			}).Error
			if updErr == nil {
				_ = h.Notifier.SendPasswordReset(account.Email, token)
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to process request")
		return
	}

	util.Success(c, util.Response{
		"message": "If the email is registered, a reset link has been sent",
	})
}

// ---------- 重置密码 ----------

type resetPasswordReq struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	if err := util.ValidatePassword(h.Cfg.Auth.Password, req.NewPassword); err != nil {
		var weak *util.WeakPasswordError
		if errors.As(err, &weak) {
			util.ErrorDetails(c, http.StatusBadRequest, util.CodeInvalidParam, "Password does not meet the policy", weak.Violations)
		} else {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Password does not meet the policy")
		}
		return
	}

	var account models.Account
	err := h.DB.Where("password_reset_token = ?", req.Token).First(&account).Error
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidToken)
		return
	}

	if account.PasswordResetExpiry == nil || account.PasswordResetExpiry.Before(time.Now()) {
		// 过期令牌顺手清掉，提示与"不存在"一致
		_ = h.DB.Model(&account).Updates(map[string]interface{}{
			"password_reset_token":  nil,
			"password_reset_expiry": nil,
		}).Error
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidToken)
		return
	}

	hash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to hash password")
		return
	}

	// 令牌一次性：成功重置立即清除，同时清除锁定状态
	now := time.Now()
	err = h.DB.Model(&account).Updates(map[string]interface{}{
		"password_hash":         hash,
		"password_changed_at":   now,
		"password_reset_token":  nil,
		"password_reset_expiry": nil,
		"login_attempts":        0,
		"locked_until":          nil,
	}).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to reset password")
		return
	}

	// 密码已变，全部会话强制重新登录
	if err := h.Sessions.InvalidateAll(account.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to revoke sessions")
		return
	}

	_ = h.Notifier.SendPasswordChanged(account.Email)

	util.Success(c, util.Response{
		"message": "Password has been reset, please log in again",
	})
}

// ---------- 修改密码 ----------

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword 修改当前账号密码，其他设备的会话全部失效，本设备保持登录
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
		return
	}

	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	// 校验旧密码
	if !h.Verifier.Verify(req.CurrentPassword, account.PasswordHash) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Current password is incorrect")
		return
	}

	if err := util.ValidatePassword(h.Cfg.Auth.Password, req.NewPassword); err != nil {
		var weak *util.WeakPasswordError
		if errors.As(err, &weak) {
			util.ErrorDetails(c, http.StatusBadRequest, util.CodeInvalidParam, "Password does not meet the policy", weak.Violations)
		} else {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Password does not meet the policy")
		}
		return
	}

	hash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to hash password")
		return
	}

	now := time.Now()
	err = h.DB.Model(account).Updates(map[string]interface{}{
		"password_hash":       hash,
		"password_changed_at": now,
	}).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to change password")
		return
	}

	// 其他设备强制重新登录，本设备的会话保留
	if err := h.Sessions.InvalidateOthers(account.ID, middleware.CurrentToken(c)); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to revoke other sessions")
		return
	}

	_ = h.Notifier.SendPasswordChanged(account.Email)

	util.Success(c, util.Response{
		"message": "Password changed",
	})
}
