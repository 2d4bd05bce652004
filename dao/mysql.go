package dao

import (
	"fmt"

	"nft_auction/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitMySQL 初始化MySQL连接并迁移表结构
func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect mysql failed: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate tables failed: %w", err)
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构（开发环境）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Auction{},
		&model.PendingReturn{},
		&model.PlatformSetting{},
		&model.PriceFeed{},
		&model.AuctionSettlement{},
	)
}
