package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"member-portal/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.Account{}, &models.Session{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

// newTestManager 空闲 60 分钟、绝对 8 小时，时钟可控
func newTestManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	db := setupTestDB(t)
	current := time.Now()
	m := NewManager(db, 60*time.Minute, 8*time.Hour)
	m.Now = func() time.Time { return current }
	return m, &current
}

func TestCreateAndValidate(t *testing.T) {
	m, _ := newTestManager(t)

	s, err := m.Create(1, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(s.Token) != 64 {
		t.Errorf("令牌长度 = %d, want 64（32 字节 hex）", len(s.Token))
	}

	// 刚创建的会话立即可用
	got, err := m.Validate(s.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.AccountID != 1 {
		t.Errorf("AccountID = %d, want 1", got.AccountID)
	}
}

func TestValidate_UnknownToken(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.Validate("no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("未知令牌应返回 ErrNotFound，实际 %v", err)
	}
	if _, err := m.Validate(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("空令牌应返回 ErrNotFound，实际 %v", err)
	}
}

// TestIdleExpiry 空闲超时：超过 60 分钟无活动即失效
func TestIdleExpiry(t *testing.T) {
	m, current := newTestManager(t)

	s, _ := m.Create(1, "", "")

	// 59 分钟内仍有效
	*current = current.Add(59 * time.Minute)
	if _, err := m.Validate(s.Token); err != nil {
		t.Fatalf("59 分钟内应有效: %v", err)
	}

	// 上一次 Validate 刷新了活跃时间，再过 61 分钟就超时
	*current = current.Add(61 * time.Minute)
	if _, err := m.Validate(s.Token); !errors.Is(err, ErrExpiredIdle) {
		t.Errorf("应返回 ErrExpiredIdle，实际 %v", err)
	}

	// 失效是副作用写库的：之后再验证变成 NotFound
	if _, err := m.Validate(s.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("失效后的会话应返回 ErrNotFound，实际 %v", err)
	}
}

// TestAbsoluteExpiry 绝对超时：活跃也救不回来
func TestAbsoluteExpiry(t *testing.T) {
	m, current := newTestManager(t)

	s, _ := m.Create(1, "", "")

	// 每 30 分钟 touch 一次，撑过 8 小时
	for i := 0; i < 16; i++ {
		*current = current.Add(30 * time.Minute)
		_, err := m.Validate(s.Token)
		if i < 15 && err != nil {
			t.Fatalf("第 %d 次 touch 应有效: %v", i, err)
		}
		if i == 15 && !errors.Is(err, ErrExpiredAbsolute) {
			t.Errorf("到达绝对过期应返回 ErrExpiredAbsolute，实际 %v", err)
		}
	}
}

func TestInvalidate_Idempotent(t *testing.T) {
	m, _ := newTestManager(t)

	s, _ := m.Create(1, "", "")

	if err := m.Invalidate(s.Token); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	// 幂等：重复注销不报错
	if err := m.Invalidate(s.Token); err != nil {
		t.Fatalf("重复 Invalidate: %v", err)
	}
	if _, err := m.Validate(s.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("注销后应返回 ErrNotFound，实际 %v", err)
	}
}

// TestInvalidateAll_OnlyTargetAccount 只影响目标账号
func TestInvalidateAll_OnlyTargetAccount(t *testing.T) {
	m, _ := newTestManager(t)

	s1a, _ := m.Create(1, "", "")
	s1b, _ := m.Create(1, "", "")
	s2, _ := m.Create(2, "", "")

	if err := m.InvalidateAll(1); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}

	if _, err := m.Validate(s1a.Token); !errors.Is(err, ErrNotFound) {
		t.Error("账号 1 的会话 a 应已失效")
	}
	if _, err := m.Validate(s1b.Token); !errors.Is(err, ErrNotFound) {
		t.Error("账号 1 的会话 b 应已失效")
	}
	if _, err := m.Validate(s2.Token); err != nil {
		t.Errorf("账号 2 的会话不应受影响: %v", err)
	}
}

func TestInvalidateOthers(t *testing.T) {
	m, _ := newTestManager(t)

	keep, _ := m.Create(1, "", "")
	other, _ := m.Create(1, "", "")

	if err := m.InvalidateOthers(1, keep.Token); err != nil {
		t.Fatalf("InvalidateOthers: %v", err)
	}

	if _, err := m.Validate(keep.Token); err != nil {
		t.Errorf("保留的会话应有效: %v", err)
	}
	if _, err := m.Validate(other.Token); !errors.Is(err, ErrNotFound) {
		t.Error("其他会话应已失效")
	}
}

func TestInvalidateByID(t *testing.T) {
	m, _ := newTestManager(t)

	s, _ := m.Create(1, "", "")

	// 不是自己的会话不能踢
	if err := m.InvalidateByID(2, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("其他账号按 ID 注销应返回 ErrNotFound，实际 %v", err)
	}
	if err := m.InvalidateByID(1, s.ID); err != nil {
		t.Fatalf("InvalidateByID: %v", err)
	}
	if _, err := m.Validate(s.Token); !errors.Is(err, ErrNotFound) {
		t.Error("按 ID 注销后应失效")
	}
}

// TestListActive 摘要不含令牌，current 标记正确
func TestListActive(t *testing.T) {
	m, _ := newTestManager(t)

	s1, _ := m.Create(1, "10.0.0.1", "agent-a")
	s2, _ := m.Create(1, "10.0.0.2", "agent-b")
	_, _ = m.Create(2, "10.0.0.3", "agent-c")

	list, err := m.ListActive(1, s1.Token)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("会话数 = %d, want 2", len(list))
	}

	var currents int
	for _, sum := range list {
		if sum.ID != s1.ID && sum.ID != s2.ID {
			t.Errorf("出现了别的账号的会话 %s", sum.ID)
		}
		if sum.Current {
			currents++
			if sum.ID != s1.ID {
				t.Error("current 标记打在了错误的会话上")
			}
		}
	}
	if currents != 1 {
		t.Errorf("current 会话数 = %d, want 1", currents)
	}
}

// TestSweepExpired 只清绝对过期的行，没过期的留着
func TestSweepExpired(t *testing.T) {
	m, current := newTestManager(t)

	_, _ = m.Create(1, "", "")
	_, _ = m.Create(2, "", "")

	*current = current.Add(9 * time.Hour) // 过了绝对 TTL
	fresh, _ := m.Create(3, "", "")

	n, err := m.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("清理行数 = %d, want 2", n)
	}

	if _, err := m.Validate(fresh.Token); err != nil {
		t.Errorf("未过期会话不应被清: %v", err)
	}
}

// TestExpiredButUnswept 逻辑过期但还没被清理的会话必须验证失败
func TestExpiredButUnswept(t *testing.T) {
	m, current := newTestManager(t)

	s, _ := m.Create(1, "", "")
	*current = current.Add(9 * time.Hour)

	// 不跑 sweep，直接验证
	if _, err := m.Validate(s.Token); !errors.Is(err, ErrExpiredAbsolute) {
		t.Errorf("应返回 ErrExpiredAbsolute，实际 %v", err)
	}
}
