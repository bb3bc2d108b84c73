package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"member-portal/internal/config"
	"member-portal/internal/database"
	"member-portal/internal/lockout"
	"member-portal/internal/models"
	"member-portal/internal/notify"
	"member-portal/internal/rbac"
	"member-portal/internal/router"
	"member-portal/internal/session"
	"member-portal/internal/util"

	"gorm.io/gorm"
)

func main() {
	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// ensure basic directories exist
	if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	if cfg.Log.File != "" {
		if err := ensureDir(filepath.Dir(cfg.Log.File)); err != nil {
			log.Fatalf("create log dir: %v", err)
		}
	}

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// 空库时播种第一个超管账号，否则没人能分配角色
	if err := seedSuperAdmin(db, cfg); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	sessions := session.NewManager(db, cfg.Auth.Session.IdleTimeout(), cfg.Auth.Session.AbsoluteTTL())
	tracker := lockout.New(db, cfg.Auth.Lockout.Threshold, cfg.Auth.Lockout.Duration())

	// 过期会话的后台清理任务，跟进程生命周期绑定
	sweeper := session.NewSweeper(sessions, cfg.Auth.Session.SweepInterval())
	sweeper.Start()

	r := router.Setup(cfg, db, sessions, tracker, notify.LogSender{})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	// 优雅退出：先停 HTTP，再停清理任务
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown server: %v", err)
	}
	sweeper.Stop()
	log.Println("server stopped")
}

// seedSuperAdmin 配置了种子账号且库里还没有超管时创建一个
func seedSuperAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.Seed.AdminEmail == "" || cfg.Seed.AdminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Account{}).
		Where("role = ?", string(rbac.RoleSuperAdmin)).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count super admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := util.HashPassword(cfg.Seed.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	admin := models.Account{
		Email:         cfg.Seed.AdminEmail,
		PasswordHash:  hash,
		FirstName:     "System",
		LastName:      "Administrator",
		Role:          string(rbac.RoleSuperAdmin),
		Status:        models.StatusActive,
		EmailVerified: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create seed admin: %w", err)
	}

	log.Printf("seeded super_admin account %s", admin.Email)
	return nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
