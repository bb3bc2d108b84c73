package handler

import (
	"net/http"
	"strconv"
	"time"

	"member-portal/internal/models"
	"member-portal/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuditHandler 审计日志查询接口（audit:read 权限）
type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

type auditResp struct {
	ID        uint      `json:"id"`
	ActorID   *uint     `json:"actor_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Method    string    `json:"method"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// List 按时间倒序分页，支持 actor_id 过滤
func (h *AuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if size <= 0 || size > 100 {
		size = 20
	}

	base := h.DB.Model(&models.AuditLog{})
	if actor := c.Query("actor_id"); actor != "" {
		id, err := strconv.ParseUint(actor, 10, 64)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid actor_id")
			return
		}
		base = base.Where("actor_id = ?", uint(id))
	}

	// 统计总数
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to count audit logs")
		return
	}

	var logs []models.AuditLog
	err := base.Order("created_at DESC, id DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&logs).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Failed to list audit logs")
		return
	}

	out := make([]auditResp, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditResp{
			ID:        l.ID,
			ActorID:   l.ActorID,
			Action:    l.Action,
			Resource:  l.Resource,
			Method:    l.Method,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		})
	}

	util.Success(c, util.Response{
		"logs":      out,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}
