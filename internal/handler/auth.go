package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"member-portal/internal/config"
	"member-portal/internal/lockout"
	"member-portal/internal/middleware"
	"member-portal/internal/models"
	"member-portal/internal/notify"
	"member-portal/internal/rbac"
	"member-portal/internal/session"
	"member-portal/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 登录失败的统一提示："账号不存在"和"密码错误"绝不能区分，防止枚举邮箱
const msgInvalidCredentials = "Invalid email or password"

// 重置/验证令牌的统一提示："从来没有过"和"已过期"也不区分
const msgInvalidToken = "Invalid or expired token"

// 验证/重置令牌都用 32 字节熵
const identityTokenBytes = 32

// CredentialVerifier 抽象密码校验，方便以后接 API key 之类的其他凭据机制
type CredentialVerifier interface {
	Verify(password, stored string) bool
}

type scryptVerifier struct{}

func (scryptVerifier) Verify(password, stored string) bool {
	return util.CheckPassword(password, stored)
}

// AuthHandler 负责注册/登录/令牌/会话相关接口
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Sessions *session.Manager
	Lockout  *lockout.Tracker
	Verifier CredentialVerifier
	Notifier notify.Sender
}

// NewAuthHandler 构造函数
func NewAuthHandler(db *gorm.DB, cfg *config.Config, sessions *session.Manager, tracker *lockout.Tracker, notifier notify.Sender) *AuthHandler {
	return &AuthHandler{
		DB:       db,
		Cfg:      cfg,
		Sessions: sessions,
		Lockout:  tracker,
		Verifier: scryptVerifier{},
		Notifier: notifier,
	}
}

// accountSummary 对外暴露的账号信息，绝不包含哈希和令牌字段
func accountSummary(a *models.Account) gin.H {
	return gin.H{
		"id":             a.ID,
		"email":          a.Email,
		"first_name":     a.FirstName,
		"last_name":      a.LastName,
		"role":           a.Role,
		"status":         a.Status,
		"email_verified": a.EmailVerified,
		"created_at":     a.CreatedAt,
	}
}

// findByEmail 邮箱不区分大小写查找账号
func (h *AuthHandler) findByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := h.DB.Where("LOWER(email) = LOWER(?)", email).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	sc := h.Cfg.Auth.Session
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.CookieName, token, int(sc.AbsoluteTTL().Seconds()), "/", "", sc.CookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	sc := h.Cfg.Auth.Session
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.CookieName, "", -1, "/", "", sc.CookieSecure, true)
}

// ---------- 注册 ----------

type registerReq struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required,max=64"`
	LastName  string `json:"last_name" binding:"required,max=64"`
	Role      string `json:"role"` // 可选，默认 staff
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := util.ValidateEmail(req.Email); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid email address")
		return
	}

	// 角色校验：必须是已定义角色，super_admin 只能由种子流程创建
	role := rbac.RoleStaff
	if req.Role != "" {
		role = rbac.Role(req.Role)
		if !rbac.Valid(role) || role == rbac.RoleSuperAdmin {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid role")
			return
		}
	}

	// 密码强度检查：一次性返回所有违规项
	if err := util.ValidatePassword(h.Cfg.Auth.Password, req.Password); err != nil {
		var weak *util.WeakPasswordError
		if errors.As(err, &weak) {
			util.ErrorDetails(c, http.StatusBadRequest, util.CodeInvalidParam, "Password does not meet the policy", weak.Violations)
		} else {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Password does not meet the policy")
		}
		return
	}

	// 邮箱不区分大小写唯一
	var count int64
	if err := h.DB.Model(&models.Account{}).
		Where("LOWER(email) = LOWER(?)", req.Email).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to check email")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Email is already registered")
		return
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to hash password")
		return
	}

	// 注册即生成邮箱验证令牌
	verifyToken, err := util.GenerateToken(identityTokenBytes)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to generate token")
		return
	}
	verifyExpiry := time.Now().Add(h.Cfg.Auth.Tokens.VerificationTTL())

	account := models.Account{
		Email:                   req.Email,
		PasswordHash:            hash,
		FirstName:               strings.TrimSpace(req.FirstName),
		LastName:                strings.TrimSpace(req.LastName),
		Role:                    string(role),
		Status:                  models.StatusActive,
		EmailVerificationToken:  &verifyToken,
		EmailVerificationExpiry: &verifyExpiry,
	}
	if err := h.DB.Create(&account).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to create account")
		return
	}

	// 邮件投递失败不影响注册结果，可以走重发接口
	_ = h.Notifier.SendVerification(account.Email, verifyToken)

	util.Created(c, util.Response{
		"user": accountSummary(&account),
	})
}

// ---------- 登录 ----------

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	account, err := h.findByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, msgInvalidCredentials)
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to look up account")
		}
		return
	}

	// 锁定检查（过期的锁在这里被惰性清除）
	locked, err := h.Lockout.IsLocked(account)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to check account lock")
		return
	}
	if locked {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Account is temporarily locked due to repeated failed logins, try again later")
		return
	}

	if !account.IsActive() {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Account is not active")
		return
	}

	// 可配置策略：是否允许未验证邮箱登录（默认允许）
	if !h.Cfg.Auth.AllowUnverifiedLogin && !account.EmailVerified {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Email address has not been verified")
		return
	}

	if !h.Verifier.Verify(req.Password, account.PasswordHash) {
		// 密码错误：计数 +1，提示与"账号不存在"完全一致
		if err := h.Lockout.RecordFailure(account.ID); err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to record login attempt")
			return
		}
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, msgInvalidCredentials)
		return
	}

	// 登录成功：清零计数，记录登录 IP 和时间
	if err := h.Lockout.RecordSuccess(account.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to reset login attempts")
		return
	}
	now := time.Now()
	_ = h.DB.Model(account).Updates(map[string]interface{}{
		"last_login_at": now,
		"last_login_ip": c.ClientIP(),
	}).Error

	s, err := h.Sessions.Create(account.ID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to create session")
		return
	}
	h.setSessionCookie(c, s.Token)

	util.Success(c, util.Response{
		"user":        accountSummary(account),
		"permissions": rbac.PermissionsFor(rbac.Role(account.Role)),
	})
}

// ---------- 登出 / 当前身份 ----------

func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.CurrentToken(c); token != "" {
		_ = h.Sessions.Invalidate(token)
	}
	h.clearSessionCookie(c)
	util.Success(c, util.Response{
		"message": "Logged out",
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
		return
	}

	util.Success(c, util.Response{
		"user":        accountSummary(account),
		"permissions": rbac.PermissionsFor(rbac.Role(account.Role)),
	})
}

// ---------- 邮箱验证 ----------

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidToken)
		return
	}

	var account models.Account
	err := h.DB.Where("email_verification_token = ?", token).First(&account).Error
	if err != nil {
		// 不存在和过期给同一个提示
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidToken)
		return
	}

	if account.EmailVerificationExpiry == nil || account.EmailVerificationExpiry.Before(time.Now()) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidToken)
		return
	}

	err = h.DB.Model(&account).Updates(map[string]interface{}{
		"email_verified":            true,
		"email_verification_token":  nil,
		"email_verification_expiry": nil,
	}).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to verify email")
		return
	}

	util.Success(c, util.Response{
		"message": "Email verified",
	})
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Authentication required")
		return
	}

	if account.EmailVerified {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Email is already verified")
		return
	}

	token, err := util.GenerateToken(identityTokenBytes)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to generate token")
		return
	}
	expiry := time.Now().Add(h.Cfg.Auth.Tokens.VerificationTTL())

	err = h.DB.Model(account).Updates(map[string]interface{}{
		"email_verification_token":  token,
		"email_verification_expiry": expiry,
	}).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to store token")
		return
	}

	_ = h.Notifier.SendVerification(account.Email, token)

	util.Success(c, util.Response{
		"message": "Verification email sent",
	})
}
