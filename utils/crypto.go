package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// VerifySignature 验证钱包签名（personal_sign格式）
// params: userAddr-用户地址, data-待签数据, signature-0x前缀的65字节签名
func VerifySignature(userAddr, data, signature string) bool {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != 65 {
		return false
	}

	// personal_sign的v值为27/28，恢复公钥前归一化到0/1
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := accounts.TextHash([]byte(data))
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), userAddr)
}
