package db

import (
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func Connect(dsn string, log *zap.Logger) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, _ := gdb.DB()
	if err := sqlDB.Ping(); err != nil {
		log.Fatal("database ping failed", zap.Error(err))
	}

	log.Info("database connected")
	return gdb
}

func AutoMigrate(gdb *gorm.DB, log *zap.Logger, models ...interface{}) {
	if err := gdb.AutoMigrate(models...); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}
}
