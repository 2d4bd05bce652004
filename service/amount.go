package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// 金额以wei为单位，数据库存十进制字符串（与链上uint256对齐）。
// 所有运算显式封顶在2^256-1，越界即报错，不做饱和截断。

// ParseWei 解析wei金额字符串，要求为[0, 2^256-1]内的十进制整数
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	if v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if v.Cmp(math.MaxBig256) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return v, nil
}

// AddWei 带溢出检查的加法，超出2^256-1返回ErrArithmeticOverflow
func AddWei(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(math.MaxBig256) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return sum, nil
}
