package main

import (
	"fmt"
	stdlog "log"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trackadmin/internal/config"
	"trackadmin/internal/db"
	httpserver "trackadmin/internal/http"
	"trackadmin/internal/limits"
	"trackadmin/internal/logger"
	"trackadmin/internal/models"
	"trackadmin/internal/seed"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "trackadmin")
	if err != nil {
		stdlog.Fatalf("failed to build logger: %v", err)
	}
	defer log.Sync()

	gdb := db.Connect(cfg.DSN, log)
	db.AutoMigrate(gdb, log,
		&models.Reseller{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Technician{},
		&models.Device{},
		&models.Tag{},
		&models.TagItem{},
		&models.ImeiRestriction{},
		&models.VerificationLog{},
		&models.AuditLog{},
	)

	if err := seed.FirstSetup(gdb, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	counter := limits.Counter{DB: gdb}
	if cfg.RedisAddr != "" {
		counter.RDB = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Info("redis daily counter enabled", zap.String("addr", cfg.RedisAddr))
	}

	r := httpserver.NewRouter(gdb, cfg.JWTSecret, counter, log)
	log.Info("server listening", zap.String("port", cfg.AppPort))
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
