package service

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// 18位定点基数：原生币与标准ERC20金额均按18位小数计
var weiBase = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// USDQuote 美元估值结果
type USDQuote struct {
	// Value 美元价值（整数，精度为Decimals位小数）
	Value *big.Int `json:"value"`
	// Decimals 预言机报价精度
	Decimals uint8 `json:"decimals"`
	// UpdatedAt 预言机数据更新时间（新鲜度策略由调用方决定）
	UpdatedAt time.Time `json:"updated_at"`
	// Display 人类可读美元价值
	Display decimal.Decimal `json:"display"`
}

// PricingService 价格换算服务（纯读路径，不改任何状态）
type PricingService struct {
	ps    PriceSource
	admin *AdminService
}

// NewPricingService 创建价格换算服务
func NewPricingService(ps PriceSource, admin *AdminService) *PricingService {
	return &PricingService{
		ps:    ps,
		admin: admin,
	}
}

// USDValue 计算(代币, 金额)对应的美元价值
// value = amount * price / 1e18；未登记预言机或价格非正时显式报错，不静默返回0
func (s *PricingService) USDValue(ctx context.Context, tokenAddr string, amount *big.Int) (*USDQuote, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	feedAddr, err := s.admin.GetPriceFeed(ctx, tokenAddr)
	if err != nil {
		return nil, err
	}

	price, decimals, updatedAt, err := s.ps.LatestPrice(ctx, feedAddr)
	if err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}

	value := new(big.Int).Mul(amount, price)
	value.Div(value, weiBase)

	return &USDQuote{
		Value:     value,
		Decimals:  decimals,
		UpdatedAt: updatedAt,
		Display:   decimal.NewFromBigInt(value, -int32(decimals)),
	}, nil
}
