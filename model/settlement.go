package model

import (
	"time"
)

// AuctionSettlement 拍卖结算记录表（最终账本）
type AuctionSettlement struct {
	ID           uint64    `gorm:"primaryKey;comment:结算记录ID" json:"id"`
	TradeNo      string    `gorm:"uniqueIndex;comment:结算编号（UUID）" json:"trade_no"`
	AuctionID    uint64    `gorm:"index;comment:关联拍卖ID" json:"auction_id"`
	SellerAddr   string    `gorm:"comment:卖家钱包地址" json:"seller_addr"`
	WinnerAddr   string    `gorm:"comment:买受人钱包地址" json:"winner_addr"`
	PaymentToken string    `gorm:"comment:支付代币地址（空=原生币）" json:"payment_token"`
	WinningBid   string    `gorm:"comment:成交价（wei）" json:"winning_bid"`
	SellerAmount string    `gorm:"comment:卖家所得（wei）" json:"seller_amount"`
	FeeAmount    string    `gorm:"comment:平台手续费（wei）" json:"fee_amount"`
	FeeRecipient string    `gorm:"comment:手续费接收地址" json:"fee_recipient"`
	NFTTxHash    string    `gorm:"comment:NFT转移交易哈希" json:"nft_tx_hash"`
	PayoutTxHash string    `gorm:"comment:卖家打款交易哈希" json:"payout_tx_hash"`
	FeeTxHash    string    `gorm:"comment:手续费打款交易哈希" json:"fee_tx_hash"`
	ChainID      int       `gorm:"comment:所属链ID" json:"chain_id"`
	SettledAt    time.Time `gorm:"comment:结算完成时间" json:"settled_at"`
	CreatedAt    time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt    time.Time `gorm:"comment:更新时间" json:"updated_at"`
}

// TableName 表名
func (s *AuctionSettlement) TableName() string {
	return "auction_settlements"
}
