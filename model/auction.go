package model

import (
	"time"
)

// NativeToken 原生币支付的哨兵值（payment_token为空表示ETH等原生币）
const NativeToken = ""

// Auction 拍卖表（核心）
// 记录只增不删，自增ID永不复用，作为历史台账保留
type Auction struct {
	ID            uint64    `gorm:"primaryKey;comment:拍卖ID（自增，不复用）" json:"id"`
	SellerAddr    string    `gorm:"index;comment:卖家钱包地址" json:"seller_addr"`
	NFTContract   string    `gorm:"comment:NFT合约地址" json:"nft_contract"`
	TokenID       string    `gorm:"comment:链上TokenID" json:"token_id"`
	PaymentToken  string    `gorm:"comment:支付代币地址（空=原生币）" json:"payment_token"`
	StartingPrice string    `gorm:"comment:起拍价（wei）" json:"starting_price"`
	HighestBid    string    `gorm:"comment:当前最高出价（wei，无出价时为0）" json:"highest_bid"`
	HighestBidder string    `gorm:"comment:当前最高出价者（无出价时为空）" json:"highest_bidder"`
	EndTime       time.Time `gorm:"index;comment:拍卖截止时间" json:"end_time"`
	Ended         bool      `gorm:"comment:是否已结束（单向false→true）" json:"ended"`
	ChainID       int       `gorm:"comment:所属链ID" json:"chain_id"`
	CreatedAt     time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt     time.Time `gorm:"comment:更新时间" json:"updated_at"`
}

// TableName 表名
func (a *Auction) TableName() string {
	return "auctions"
}

// HasBid 是否已存在有效出价
func (a *Auction) HasBid() bool {
	return a.HighestBidder != ""
}

// IsNativePayment 是否原生币计价
func (a *Auction) IsNativePayment() bool {
	return a.PaymentToken == NativeToken
}
