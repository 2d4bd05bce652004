package model

import (
	"time"
)

// PendingReturn 待退款表（原生币托管账本）
// 出价被超过时为前一出价者记账，由其主动调用withdraw提取。
// ERC20出价的退款是直接转回的，不进入该表。
type PendingReturn struct {
	ID          uint64    `gorm:"primaryKey;comment:记录ID" json:"id"`
	AccountAddr string    `gorm:"uniqueIndex;comment:账户钱包地址" json:"account_addr"`
	Amount      string    `gorm:"comment:待退款金额（wei）" json:"amount"`
	CreatedAt   time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt   time.Time `gorm:"comment:更新时间" json:"updated_at"`
}

// TableName 表名
func (p *PendingReturn) TableName() string {
	return "pending_returns"
}
