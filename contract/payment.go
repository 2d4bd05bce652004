package contract

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"nft_auction/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ERC20ABI ERC20合约基础ABI（仅包含转账相关方法）
const ERC20ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// nativeTransferGas 原生币转账的固定gas
const nativeTransferGas = 21000

// PaymentGateway 价值转移适配器（实现service.ValueTransfer）
// token为空表示原生币：入金校验出价者的预存款交易，出金由托管钱包直接转账；
// ERC20走transferFrom授权拉取/transfer转出
type PaymentGateway struct {
	chain *ChainClient
	abi   abi.ABI
}

// NewPaymentGateway 创建价值转移适配器
func NewPaymentGateway(chain *ChainClient) (*PaymentGateway, error) {
	abiObj, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		utils.Logger.Error("解析ERC20 ABI失败", zap.Error(err))
		return nil, err
	}
	return &PaymentGateway{
		chain: chain,
		abi:   abiObj,
	}, nil
}

// bound 绑定目标代币合约
func (g *PaymentGateway) bound(token string) *bind.BoundContract {
	addr := common.HexToAddress(token)
	return bind.NewBoundContract(addr, g.abi, g.chain.client, g.chain.client, g.chain.client)
}

// TransferFrom 把owner的资金纳入平台托管
func (g *PaymentGateway) TransferFrom(ctx context.Context, token, owner string, amount *big.Int, depositRef string) (string, error) {
	if token == "" {
		return g.verifyNativeDeposit(ctx, owner, amount, depositRef)
	}

	auth, err := g.chain.auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := g.bound(token).Transact(auth, "transferFrom",
		common.HexToAddress(owner), g.chain.custodyAddr, amount)
	if err != nil {
		utils.Logger.Error("执行ERC20 transferFrom失败", zap.String("token", token), zap.String("owner", owner), zap.Error(err))
		return "", err
	}
	return g.waitMined(ctx, tx)
}

// verifyNativeDeposit 校验原生币预存款交易
// 要求：交易已上链且成功、收款方为托管钱包、发起方为出价者、金额不低于出价
func (g *PaymentGateway) verifyNativeDeposit(ctx context.Context, owner string, amount *big.Int, depositRef string) (string, error) {
	if depositRef == "" {
		return "", errors.New("原生币出价缺少存款交易哈希")
	}
	txHash := common.HexToHash(depositRef)

	tx, pending, err := g.chain.client.TransactionByHash(ctx, txHash)
	if err != nil {
		return "", err
	}
	if pending {
		return "", errors.New("存款交易尚未上链")
	}

	receipt, err := g.chain.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return "", err
	}
	if receipt.Status == 0 {
		return "", errors.New("存款交易执行失败")
	}

	if tx.To() == nil || *tx.To() != g.chain.custodyAddr {
		return "", errors.New("存款交易收款方不是托管钱包")
	}
	if tx.Value().Cmp(amount) < 0 {
		return "", errors.New("存款金额低于出价金额")
	}

	sender, err := types.Sender(types.LatestSignerForChainID(g.chain.chainID), tx)
	if err != nil {
		return "", err
	}
	if sender != common.HexToAddress(owner) {
		return "", errors.New("存款交易发起方与出价者不符")
	}

	return txHash.Hex(), nil
}

// Transfer 从平台托管向recipient转出资金
func (g *PaymentGateway) Transfer(ctx context.Context, token, recipient string, amount *big.Int) (string, error) {
	if token == "" {
		return g.transferNative(ctx, recipient, amount)
	}

	auth, err := g.chain.auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := g.bound(token).Transact(auth, "transfer", common.HexToAddress(recipient), amount)
	if err != nil {
		utils.Logger.Error("执行ERC20 transfer失败", zap.String("token", token), zap.String("recipient", recipient), zap.Error(err))
		return "", err
	}
	return g.waitMined(ctx, tx)
}

// transferNative 托管钱包发起原生币转账
func (g *PaymentGateway) transferNative(ctx context.Context, recipient string, amount *big.Int) (string, error) {
	nonce, err := g.chain.client.PendingNonceAt(ctx, g.chain.custodyAddr)
	if err != nil {
		return "", err
	}
	gasPrice, err := g.chain.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(recipient), amount, nativeTransferGas, gasPrice, nil)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(g.chain.chainID), g.chain.key)
	if err != nil {
		return "", err
	}

	if err := g.chain.client.SendTransaction(ctx, signedTx); err != nil {
		utils.Logger.Error("发送原生币转账失败", zap.String("recipient", recipient), zap.String("amount", amount.String()), zap.Error(err))
		return "", err
	}
	return g.waitMined(ctx, signedTx)
}

// waitMined 等待交易上链并校验执行状态
func (g *PaymentGateway) waitMined(ctx context.Context, tx *types.Transaction) (string, error) {
	receipt, err := bind.WaitMined(ctx, g.chain.client, tx)
	if err != nil {
		utils.Logger.Error("等待交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return "", err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("转账交易执行失败", zap.String("txHash", tx.Hash().Hex()))
		return "", errors.New("转账交易被回滚")
	}
	return tx.Hash().Hex(), nil
}
