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
	"go.uber.org/zap"
)

// ERC721ABI ERC721合约基础ABI（所有权/授权查询 + 安全转账）
const ERC721ABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// ERC721Registry NFT登记处适配器（实现service.AssetRegistry）
type ERC721Registry struct {
	chain *ChainClient
	abi   abi.ABI
}

// NewERC721Registry 创建NFT登记处适配器
func NewERC721Registry(chain *ChainClient) (*ERC721Registry, error) {
	abiObj, err := abi.JSON(strings.NewReader(ERC721ABI))
	if err != nil {
		utils.Logger.Error("解析ERC721 ABI失败", zap.Error(err))
		return nil, err
	}
	return &ERC721Registry{
		chain: chain,
		abi:   abiObj,
	}, nil
}

// bound 绑定目标NFT合约
func (r *ERC721Registry) bound(nftContract string) *bind.BoundContract {
	addr := common.HexToAddress(nftContract)
	return bind.NewBoundContract(addr, r.abi, r.chain.client, r.chain.client, r.chain.client)
}

// parseTokenID 转换TokenID为big.Int
func parseTokenID(tokenID string) (*big.Int, error) {
	id := new(big.Int)
	if _, ok := id.SetString(tokenID, 10); !ok {
		return nil, errors.New("tokenID格式非法")
	}
	return id, nil
}

// OwnerOf 查询NFT当前持有者
func (r *ERC721Registry) OwnerOf(ctx context.Context, nftContract, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}

	var out []interface{}
	err = r.bound(nftContract).Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", id)
	if err != nil {
		utils.Logger.Error("查询ownerOf失败", zap.String("contract", nftContract), zap.String("tokenId", tokenID), zap.Error(err))
		return "", err
	}
	return out[0].(common.Address).Hex(), nil
}

// IsApprovedOrOwner 查询operator是否有权转移该NFT
// 满足三者之一即可：operator是所有者本人、单个授权、全量授权
func (r *ERC721Registry) IsApprovedOrOwner(ctx context.Context, nftContract, operator, tokenID string) (bool, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return false, err
	}
	bound := r.bound(nftContract)
	opts := &bind.CallOpts{Context: ctx}
	operatorAddr := common.HexToAddress(operator)

	var ownerOut []interface{}
	if err := bound.Call(opts, &ownerOut, "ownerOf", id); err != nil {
		return false, err
	}
	owner := ownerOut[0].(common.Address)
	if owner == operatorAddr {
		return true, nil
	}

	var approvedOut []interface{}
	if err := bound.Call(opts, &approvedOut, "getApproved", id); err != nil {
		return false, err
	}
	if approvedOut[0].(common.Address) == operatorAddr {
		return true, nil
	}

	var allOut []interface{}
	if err := bound.Call(opts, &allOut, "isApprovedForAll", owner, operatorAddr); err != nil {
		return false, err
	}
	return allOut[0].(bool), nil
}

// TransferFrom 执行ERC721安全转账（托管钱包作为被授权操作员签名）
// return: 交易哈希、错误
func (r *ERC721Registry) TransferFrom(ctx context.Context, nftContract, from, to, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}

	// 构建交易授权
	auth, err := r.chain.auth(ctx)
	if err != nil {
		utils.Logger.Error("构建交易授权失败", zap.Error(err))
		return "", err
	}

	// 调用合约方法
	tx, err := r.bound(nftContract).Transact(auth, "safeTransferFrom", common.HexToAddress(from), common.HexToAddress(to), id)
	if err != nil {
		utils.Logger.Error("执行safeTransferFrom失败", zap.Error(err))
		return "", err
	}

	// 等待交易上链
	receipt, err := bind.WaitMined(ctx, r.chain.client, tx)
	if err != nil {
		utils.Logger.Error("等待交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return "", err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("NFT转账交易执行失败", zap.String("txHash", tx.Hash().Hex()))
		return "", errors.New("NFT转账交易被回滚")
	}

	return tx.Hash().Hex(), nil
}
