// Package lockout implements the per-account failed-login lockout state
// machine: Unlocked → N consecutive failures → Locked → duration elapses →
// Unlocked. All mutations are single conditional UPDATE statements so that
// concurrent login attempts against the same account never lose an increment
// or race the lazy unlock.
package lockout

import (
	"fmt"
	"time"

	"member-portal/internal/models"

	"gorm.io/gorm"
)

// Tracker counts failed attempts per account and computes lock transitions.
type Tracker struct {
	DB        *gorm.DB
	Threshold int           // 连续失败几次触发锁定
	Duration  time.Duration // 锁定时长
	Now       func() time.Time
}

func New(db *gorm.DB, threshold int, duration time.Duration) *Tracker {
	return &Tracker{
		DB:        db,
		Threshold: threshold,
		Duration:  duration,
		Now:       time.Now,
	}
}

// RecordFailure 失败次数 +1，达到阈值时同一条 UPDATE 里写入锁定时间。
// 计数和锁定必须在数据库端原子完成，应用层读-改-写会在并发下丢失计数。
func (t *Tracker) RecordFailure(accountID uint) error {
	now := t.Now()
	err := t.DB.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"login_attempts": gorm.Expr("login_attempts + 1"),
			"locked_until": gorm.Expr(
				"CASE WHEN login_attempts + 1 >= ? THEN ? ELSE locked_until END",
				t.Threshold, now.Add(t.Duration),
			),
		}).Error
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// RecordSuccess 登录成功：清零失败计数并解除锁定
func (t *Tracker) RecordSuccess(accountID uint) error {
	err := t.DB.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"login_attempts": 0,
			"locked_until":   nil,
		}).Error
	if err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return nil
}

// IsLocked 判断账号当前是否处于锁定状态。
// 锁定时间已过时顺手清理（惰性解锁）：条件 UPDATE 保证两个并发检查只有
// 一个会实际清零，另一个匹配不到行，自然幂等。
func (t *Tracker) IsLocked(account *models.Account) (bool, error) {
	if account.LockedUntil == nil {
		return false, nil
	}

	now := t.Now()
	if account.LockedUntil.After(now) {
		return true, nil
	}

	// 锁已过期，清零计数并解除锁定
	err := t.DB.Model(&models.Account{}).
		Where("id = ? AND locked_until IS NOT NULL AND locked_until <= ?", account.ID, now).
		Updates(map[string]interface{}{
			"login_attempts": 0,
			"locked_until":   nil,
		}).Error
	if err != nil {
		return false, fmt.Errorf("clear expired lock: %w", err)
	}

	account.LoginAttempts = 0
	account.LockedUntil = nil
	return false, nil
}

// Unlock 管理员手动解锁
func (t *Tracker) Unlock(accountID uint) error {
	return t.RecordSuccess(accountID)
}
