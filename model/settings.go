package model

import (
	"time"
)

// SettingsRowID platform_settings单行记录的固定主键
const SettingsRowID uint64 = 1

// FeeRateCeilingBps 手续费率硬上限（基点）
const FeeRateCeilingBps = 10000

// PlatformSetting 平台配置表（单行）
// 初始化只允许执行一次，版本号随升级递增，字段布局升级时保持兼容
type PlatformSetting struct {
	ID           uint64    `gorm:"primaryKey;comment:固定为1（单行配置）" json:"id"`
	OwnerAddr    string    `gorm:"comment:管理员地址" json:"owner_addr"`
	FeeRateBps   int       `gorm:"comment:平台手续费率（基点）" json:"fee_rate_bps"`
	FeeRecipient string    `gorm:"comment:手续费接收地址" json:"fee_recipient"`
	Version      string    `gorm:"comment:实现版本标记" json:"version"`
	Initialized  bool      `gorm:"comment:是否已初始化" json:"initialized"`
	CreatedAt    time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt    time.Time `gorm:"comment:更新时间" json:"updated_at"`
}

// TableName 表名
func (s *PlatformSetting) TableName() string {
	return "platform_settings"
}

// PriceFeed 价格预言机登记表
// 支付代币地址 -> Chainlink聚合器地址，未登记的代币美元估值直接报错
type PriceFeed struct {
	ID        uint64    `gorm:"primaryKey;comment:记录ID" json:"id"`
	TokenAddr string    `gorm:"uniqueIndex;comment:支付代币地址（空=原生币）" json:"token_addr"`
	FeedAddr  string    `gorm:"comment:预言机聚合器地址" json:"feed_addr"`
	CreatedAt time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt time.Time `gorm:"comment:更新时间" json:"updated_at"`
}

// TableName 表名
func (f *PriceFeed) TableName() string {
	return "price_feeds"
}
