package service

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
)

func TestParseWei(t *testing.T) {
	// 合法：0和uint256上界
	v, err := ParseWei("0")
	if err != nil || v.Sign() != 0 {
		t.Fatalf("解析0失败: %v", err)
	}
	v, err = ParseWei(math.MaxBig256.String())
	if err != nil || v.Cmp(math.MaxBig256) != 0 {
		t.Fatalf("解析uint256上界失败: %v", err)
	}

	// 非法输入
	for _, s := range []string{"", "abc", "1.5", "-1", "0x10"} {
		if _, err := ParseWei(s); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("输入%q期望ErrInvalidAmount，得到: %v", s, err)
		}
	}

	// 超过uint256上界
	over := new(big.Int).Add(math.MaxBig256, big.NewInt(1))
	if _, err := ParseWei(over.String()); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("期望ErrArithmeticOverflow，得到: %v", err)
	}
}

func TestAddWei(t *testing.T) {
	sum, err := AddWei(big.NewInt(1), big.NewInt(2))
	if err != nil || sum.Int64() != 3 {
		t.Fatalf("加法失败: %v", err)
	}

	// 上界处的加法必须报错，不做饱和截断
	if _, err := AddWei(math.MaxBig256, big.NewInt(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("期望ErrArithmeticOverflow，得到: %v", err)
	}
	if sum, err := AddWei(new(big.Int).Sub(math.MaxBig256, big.NewInt(1)), big.NewInt(1)); err != nil || sum.Cmp(math.MaxBig256) != 0 {
		t.Fatalf("上界内加法不应报错: %v", err)
	}
}
