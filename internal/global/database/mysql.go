package database

import (
	"fmt"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/sentry/tracing"
	"yqpoint-system/internal/model"
	"yqpoint-system/tools"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// Options 连接无关的 gorm 配置，测试库也用这一份
func Options() *gorm.Config {
	opts := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		TranslateError: true, // 唯一索引冲突转换为 gorm.ErrDuplicatedKey
	}
	switch config.Get().Mode {
	case config.ModeDebug:
		opts.Logger = logger.Default.LogMode(logger.Info)
	default:
		opts.Logger = logger.Discard
	}
	return opts
}

func Init() {
	cfg := config.Get().Mysql
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), Options())
	tools.PanicOnErr(err)

	if tracing.IsEnabled() {
		tools.PanicOnErr(db.Use(tracing.NewGormPlugin()))
	}
	tools.PanicOnErr(Migrate(db))
	DB = db
}

// Migrate 建表，测试中对 sqlite 同样适用
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}
