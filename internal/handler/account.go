package handler

import (
	"net/http"
	"strconv"

	"member-portal/internal/lockout"
	"member-portal/internal/models"
	"member-portal/internal/rbac"
	"member-portal/internal/session"
	"member-portal/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler 管理端账号操作（挂在 users:read / users:manage 权限后面）
type AccountHandler struct {
	DB       *gorm.DB
	Sessions *session.Manager
	Lockout  *lockout.Tracker
}

func NewAccountHandler(db *gorm.DB, sessions *session.Manager, tracker *lockout.Tracker) *AccountHandler {
	return &AccountHandler{DB: db, Sessions: sessions, Lockout: tracker}
}

// adminAccountView 管理端看到的账号字段，哈希和令牌永远不出库
type adminAccountView struct {
	ID            uint        `json:"id"`
	Email         string      `json:"email"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Role          string      `json:"role"`
	Status        string      `json:"status"`
	EmailVerified bool        `json:"email_verified"`
	LoginAttempts int         `json:"login_attempts"`
	LockedUntil   interface{} `json:"locked_until"`
	LastLoginAt   interface{} `json:"last_login_at"`
	CreatedAt     interface{} `json:"created_at"`
}

func toAdminView(a *models.Account) adminAccountView {
	return adminAccountView{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Role:          a.Role,
		Status:        a.Status,
		EmailVerified: a.EmailVerified,
		LoginAttempts: a.LoginAttempts,
		LockedUntil:   a.LockedUntil,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
	}
}

// List 分页列出账号
func (h *AccountHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := h.DB.Model(&models.Account{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to count accounts")
		return
	}

	var accounts []models.Account
	err := h.DB.Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&accounts).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to list accounts")
		return
	}

	views := make([]adminAccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, toAdminView(&accounts[i]))
	}

	util.Success(c, util.Response{
		"accounts":  views,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *AccountHandler) findByParam(c *gin.Context) (*models.Account, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid account id")
		return nil, false
	}

	var account models.Account
	if err := h.DB.First(&account, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "Account not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to load account")
		}
		return nil, false
	}
	return &account, true
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 启用/停用/封禁账号。离开 active 状态时立即吊销全部会话。
func (h *AccountHandler) UpdateStatus(c *gin.Context) {
	account, ok := h.findByParam(c)
	if !ok {
		return
	}

	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	switch req.Status {
	case models.StatusActive, models.StatusInactive, models.StatusSuspended:
	default:
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid status")
		return
	}

	if err := h.DB.Model(account).Update("status", req.Status).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to update status")
		return
	}

	if req.Status != models.StatusActive {
		if err := h.Sessions.InvalidateAll(account.ID); err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to revoke sessions")
			return
		}
	}

	account.Status = req.Status
	util.Success(c, util.Response{
		"account": toAdminView(account),
	})
}

type updateRoleReq struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole 调整账号角色，必须是映射表里已定义的角色
func (h *AccountHandler) UpdateRole(c *gin.Context) {
	account, ok := h.findByParam(c)
	if !ok {
		return
	}

	var req updateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request parameters")
		return
	}

	if !rbac.Valid(rbac.Role(req.Role)) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid role")
		return
	}

	if err := h.DB.Model(account).Update("role", req.Role).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to update role")
		return
	}

	account.Role = req.Role
	util.Success(c, util.Response{
		"account": toAdminView(account),
	})
}

// Unlock 管理员手动解除登录锁定
func (h *AccountHandler) Unlock(c *gin.Context) {
	account, ok := h.findByParam(c)
	if !ok {
		return
	}

	if err := h.Lockout.Unlock(account.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to unlock account")
		return
	}

	util.Success(c, util.Response{
		"message": "Account unlocked",
	})
}
