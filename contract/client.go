package contract

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"nft_auction/utils"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ChainClient 链客户端（托管钱包签名方）
// 平台用同一个托管钱包充当NFT转移操作员和资金托管方
type ChainClient struct {
	client      *ethclient.Client
	chainID     *big.Int
	key         *ecdsa.PrivateKey
	custodyAddr common.Address
}

// NewChainClient 创建链客户端
// params:
// - rpcUrl: 节点RPC地址
// - custodyKeyHex: 托管钱包私钥（测试网演示用，生产环境需接入签名服务）
func NewChainClient(rpcUrl, custodyKeyHex string) (*ChainClient, error) {
	// 连接区块链节点
	client, err := ethclient.Dial(rpcUrl)
	if err != nil {
		utils.Logger.Error("连接区块链节点失败", zap.String("rpcUrl", rpcUrl), zap.Error(err))
		return nil, err
	}

	// 获取链ID
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		utils.Logger.Error("获取链ID失败", zap.Error(err))
		return nil, err
	}

	// 解析托管钱包私钥
	key, err := crypto.HexToECDSA(strings.TrimPrefix(custodyKeyHex, "0x"))
	if err != nil {
		utils.Logger.Error("解析托管钱包私钥失败", zap.Error(err))
		return nil, err
	}

	return &ChainClient{
		client:      client,
		chainID:     chainID,
		key:         key,
		custodyAddr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// CustodyAddr 托管钱包地址（即NFT授权的操作员地址）
func (c *ChainClient) CustodyAddr() string {
	return c.custodyAddr.Hex()
}

// auth 构建交易授权
func (c *ChainClient) auth(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx
	return auth, nil
}
