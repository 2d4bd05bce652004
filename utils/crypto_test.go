package utils

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// signPersonal 用私钥按personal_sign格式签名（v归一化为27/28）
func signPersonal(t *testing.T, keyHex, data string) (addr, signature string) {
	t.Helper()
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		t.Fatalf("解析私钥失败: %v", err)
	}
	hash := accounts.TextHash([]byte(data))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}
	sig[64] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifySignature(t *testing.T) {
	keyHex := "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"
	data := "1:2000000000000000000"
	addr, sig := signPersonal(t, keyHex, data)

	if !VerifySignature(addr, data, sig) {
		t.Fatal("正确签名验证失败")
	}
	// 地址大小写不敏感
	if !VerifySignature(strings.ToLower(addr), data, sig) {
		t.Fatal("地址大小写不应影响验证")
	}

	// 数据被篡改
	if VerifySignature(addr, "1:3000000000000000000", sig) {
		t.Fatal("篡改数据不应通过验证")
	}
	// 地址不匹配
	if VerifySignature("0x0000000000000000000000000000000000000001", data, sig) {
		t.Fatal("他人地址不应通过验证")
	}
	// 畸形签名
	if VerifySignature(addr, data, "0x1234") {
		t.Fatal("畸形签名不应通过验证")
	}
	if VerifySignature(addr, data, "not-hex") {
		t.Fatal("非法编码不应通过验证")
	}
}
