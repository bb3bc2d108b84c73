package lockout

import (
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
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func createAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	account := &models.Account{
		Email:        "lock@example.com",
		PasswordHash: "digest.salt",
		Role:         "staff",
		Status:       models.StatusActive,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}
	return account
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.Account {
	t.Helper()
	var account models.Account
	if err := db.First(&account, id).Error; err != nil {
		t.Fatalf("查询账号失败: %v", err)
	}
	return &account
}

// TestLockAfterThreshold 连续失败达到阈值即锁定
func TestLockAfterThreshold(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, db)

	tracker := New(db, 3, 30*time.Minute)

	// 前两次失败：只计数，不锁
	for i := 0; i < 2; i++ {
		if err := tracker.RecordFailure(account.ID); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	cur := reload(t, db, account.ID)
	if cur.LoginAttempts != 2 {
		t.Errorf("失败计数 = %d, want 2", cur.LoginAttempts)
	}
	if locked, _ := tracker.IsLocked(cur); locked {
		t.Error("未达阈值不应锁定")
	}

	// 第三次失败：触发锁定
	if err := tracker.RecordFailure(account.ID); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	cur = reload(t, db, account.ID)
	if cur.LockedUntil == nil {
		t.Fatal("达到阈值应写入 locked_until")
	}
	if locked, _ := tracker.IsLocked(cur); !locked {
		t.Error("达到阈值应处于锁定状态")
	}
}

// TestLazyUnlock 锁过期后第一次检查顺手清零
func TestLazyUnlock(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, db)

	current := time.Now()
	tracker := New(db, 3, 30*time.Minute)
	tracker.Now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if err := tracker.RecordFailure(account.ID); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	cur := reload(t, db, account.ID)
	if locked, _ := tracker.IsLocked(cur); !locked {
		t.Fatal("应处于锁定状态")
	}

	// 时间推进到锁过期之后
	current = current.Add(31 * time.Minute)

	cur = reload(t, db, account.ID)
	locked, err := tracker.IsLocked(cur)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Error("锁过期后应解锁")
	}

	// 惰性解锁应把数据库里的计数和锁一起清掉
	cur = reload(t, db, account.ID)
	if cur.LoginAttempts != 0 {
		t.Errorf("解锁后计数 = %d, want 0", cur.LoginAttempts)
	}
	if cur.LockedUntil != nil {
		t.Error("解锁后 locked_until 应为 NULL")
	}
}

// TestRecordSuccessResets 登录成功清零计数
func TestRecordSuccessResets(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, db)

	tracker := New(db, 5, 30*time.Minute)

	for i := 0; i < 4; i++ {
		_ = tracker.RecordFailure(account.ID)
	}
	if err := tracker.RecordSuccess(account.ID); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	cur := reload(t, db, account.ID)
	if cur.LoginAttempts != 0 {
		t.Errorf("成功后计数 = %d, want 0", cur.LoginAttempts)
	}
	if cur.LockedUntil != nil {
		t.Error("成功后不应有锁")
	}

	// 清零后再失败 5 次才会锁
	for i := 0; i < 4; i++ {
		_ = tracker.RecordFailure(account.ID)
	}
	cur = reload(t, db, account.ID)
	if locked, _ := tracker.IsLocked(cur); locked {
		t.Error("清零后 4 次失败不应锁定")
	}
}

// TestIncrementsNeverLost 计数在数据库端原子递增，不做应用层读-改-写
func TestIncrementsNeverLost(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, db)

	tracker := New(db, 100, 30*time.Minute)

	// 两个 tracker 实例模拟两个进程交替写同一账号
	other := New(db, 100, 30*time.Minute)
	for i := 0; i < 5; i++ {
		_ = tracker.RecordFailure(account.ID)
		_ = other.RecordFailure(account.ID)
	}

	cur := reload(t, db, account.ID)
	if cur.LoginAttempts != 10 {
		t.Errorf("失败计数 = %d, want 10（不允许丢增量）", cur.LoginAttempts)
	}
}
