// Package session issues, validates, refreshes and revokes server-side
// sessions. A session is usable only while it is active, its absolute expiry
// has not passed, and the idle window since the last activity has not elapsed.
// Expiry is always checked on read; the background sweeper is garbage
// collection only.
package session

import (
	"errors"
	"fmt"
	"time"

	"member-portal/internal/models"
	"member-portal/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 会话令牌 32 字节 = 256 bit 熵
const tokenBytes = 32

var (
	ErrNotFound        = errors.New("session not found")
	ErrExpiredIdle     = errors.New("session expired: idle timeout")
	ErrExpiredAbsolute = errors.New("session expired: absolute timeout")
)

// Manager owns the session table. Safe for concurrent use: all state lives in
// the database, activity updates are last-writer-wins.
type Manager struct {
	DB          *gorm.DB
	IdleTimeout time.Duration
	AbsoluteTTL time.Duration
	Now         func() time.Time // 测试时可注入假时钟
}

func NewManager(db *gorm.DB, idle, absolute time.Duration) *Manager {
	return &Manager{
		DB:          db,
		IdleTimeout: idle,
		AbsoluteTTL: absolute,
		Now:         time.Now,
	}
}

// Create 登录成功后签发新会话，返回含令牌的完整记录
func (m *Manager) Create(accountID uint, ip, userAgent string) (*models.Session, error) {
	token, err := util.GenerateToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := m.Now()
	s := &models.Session{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Token:          token,
		IP:             ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.AbsoluteTTL),
		IsActive:       true,
	}
	if err := m.DB.Create(s).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Validate 按令牌校验会话。过期的会话在这里顺手失效（副作用写），
// 校验通过则刷新活跃时间（滚动空闲窗口）。
func (m *Manager) Validate(token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	var s models.Session
	err := m.DB.Where("token = ? AND is_active = ?", token, true).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := m.Now()

	if !now.Before(s.ExpiresAt) {
		m.deactivate(s.ID)
		return nil, ErrExpiredAbsolute
	}
	if now.Sub(s.LastActivityAt) > m.IdleTimeout {
		m.deactivate(s.ID)
		return nil, ErrExpiredIdle
	}

	// touch：last-writer-wins 即可，只影响空闲超时的精度
	m.DB.Model(&models.Session{}).
		Where("id = ?", s.ID).
		UpdateColumn("last_activity_at", now)
	s.LastActivityAt = now

	return &s, nil
}

func (m *Manager) deactivate(id string) {
	m.DB.Model(&models.Session{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false)
}

// Invalidate 注销当前会话，幂等
func (m *Manager) Invalidate(token string) error {
	err := m.DB.Model(&models.Session{}).
		Where("token = ?", token).
		UpdateColumn("is_active", false).Error
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// InvalidateByID 按会话 ID 注销指定账号名下的一个会话（"踢掉某台设备"）。
// 找不到匹配行返回 ErrNotFound。
func (m *Manager) InvalidateByID(accountID uint, sessionID string) error {
	res := m.DB.Model(&models.Session{}).
		Where("id = ? AND account_id = ? AND is_active = ?", sessionID, accountID, true).
		UpdateColumn("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("invalidate session by id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateAll 注销账号全部会话（"所有设备退出"，修改密码/封禁时调用）
func (m *Manager) InvalidateAll(accountID uint) error {
	err := m.DB.Model(&models.Session{}).
		Where("account_id = ? AND is_active = ?", accountID, true).
		UpdateColumn("is_active", false).Error
	if err != nil {
		return fmt.Errorf("invalidate all sessions: %w", err)
	}
	return nil
}

// InvalidateOthers 注销除当前会话以外的全部会话（修改密码时保留当前登录）
func (m *Manager) InvalidateOthers(accountID uint, keepToken string) error {
	err := m.DB.Model(&models.Session{}).
		Where("account_id = ? AND is_active = ? AND token <> ?", accountID, true, keepToken).
		UpdateColumn("is_active", false).Error
	if err != nil {
		return fmt.Errorf("invalidate other sessions: %w", err)
	}
	return nil
}

// Summary is what the "active sessions" UI sees. The token itself is never
// returned.
type Summary struct {
	ID             string    `json:"id"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Current        bool      `json:"current"`
}

// ListActive 列出账号当前有效的会话摘要，currentToken 用来标记"本设备"
func (m *Manager) ListActive(accountID uint, currentToken string) ([]Summary, error) {
	var sessions []models.Session
	err := m.DB.
		Where("account_id = ? AND is_active = ? AND expires_at > ?", accountID, true, m.Now()).
		Order("last_activity_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Summary{
			ID:             s.ID,
			IP:             s.IP,
			UserAgent:      s.UserAgent,
			CreatedAt:      s.CreatedAt,
			LastActivityAt: s.LastActivityAt,
			ExpiresAt:      s.ExpiresAt,
			Current:        s.Token == currentToken,
		})
	}
	return out, nil
}

// SweepExpired 删除所有过了绝对过期时间的会话，返回删除行数。
// 只是垃圾回收：没被扫到的过期会话在 Validate 时照样会被拒绝。
func (m *Manager) SweepExpired() (int64, error) {
	res := m.DB.Where("expires_at <= ?", m.Now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
