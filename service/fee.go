package service

import (
	"math/big"

	"nft_auction/model"
)

var bpsDenominator = big.NewInt(10000)

// SettleAmounts 结算分账
// 手续费 = 成交价 * 费率(基点) / 10000，整数截断；卖家所得 = 成交价 - 手续费。
// 先算手续费、卖家取余额，保证 sellerAmount + feeAmount == winningBid 恒等。
func SettleAmounts(winningBid *big.Int, feeRateBps int) (sellerAmount, feeAmount *big.Int, err error) {
	if winningBid == nil || winningBid.Sign() < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if feeRateBps < 0 || feeRateBps > model.FeeRateCeilingBps {
		return nil, nil, ErrFeeRateTooHigh
	}

	feeAmount = new(big.Int).Mul(winningBid, big.NewInt(int64(feeRateBps)))
	feeAmount.Div(feeAmount, bpsDenominator)
	sellerAmount = new(big.Int).Sub(winningBid, feeAmount)
	return sellerAmount, feeAmount, nil
}
