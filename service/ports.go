package service

import (
	"context"
	"math/big"
	"time"
)

// 外部协作方接口。链上实现见contract包，各状态变更操作只在内部状态
// 落库之后才调用这些接口（检查→记账→外部调用）。

// AssetRegistry NFT登记处（ERC721）
type AssetRegistry interface {
	// OwnerOf 查询NFT当前持有者
	OwnerOf(ctx context.Context, nftContract, tokenID string) (string, error)
	// IsApprovedOrOwner 查询operator是否有权转移该NFT
	IsApprovedOrOwner(ctx context.Context, nftContract, operator, tokenID string) (bool, error)
	// TransferFrom 执行NFT转移，返回交易哈希；无授权时必须失败
	TransferFrom(ctx context.Context, nftContract, from, to, tokenID string) (string, error)
}

// ValueTransfer 价值转移（token为空表示原生币）
type ValueTransfer interface {
	// TransferFrom 把owner的资金纳入平台托管，返回交易哈希；失败时整个调用原子失败。
	// ERC20走transferFrom授权拉取，depositRef忽略；
	// 原生币无法代扣，depositRef为出价者预存入托管钱包的存款交易哈希，由实现校验金额与收款方
	TransferFrom(ctx context.Context, token, owner string, amount *big.Int, depositRef string) (string, error)
	// Transfer 从平台托管向recipient转出资金，返回交易哈希
	Transfer(ctx context.Context, token, recipient string, amount *big.Int) (string, error)
}

// PriceSource 价格预言机（Chainlink聚合器）
type PriceSource interface {
	// LatestPrice 查询最新价格：价格（feed精度整数）、精度位数、更新时间
	// 过期/异常数据原样返回，新鲜度策略由调用方决定
	LatestPrice(ctx context.Context, feedAddr string) (price *big.Int, decimals uint8, updatedAt time.Time, err error)
}
