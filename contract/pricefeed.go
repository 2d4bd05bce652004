package contract

import (
	"context"
	"math/big"
	"strings"
	"time"

	"nft_auction/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// AggregatorV3ABI Chainlink价格聚合器ABI（latestRoundData + decimals）
const AggregatorV3ABI = `[
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"internalType": "uint80", "name": "roundId", "type": "uint80"},
			{"internalType": "int256", "name": "answer", "type": "int256"},
			{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
			{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
			{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ChainlinkSource 价格预言机适配器（实现service.PriceSource）
// 纯读路径；过期/异常数据原样上抛，由调用方决定新鲜度策略
type ChainlinkSource struct {
	chain *ChainClient
	abi   abi.ABI
}

// NewChainlinkSource 创建价格预言机适配器
func NewChainlinkSource(chain *ChainClient) (*ChainlinkSource, error) {
	abiObj, err := abi.JSON(strings.NewReader(AggregatorV3ABI))
	if err != nil {
		utils.Logger.Error("解析聚合器ABI失败", zap.Error(err))
		return nil, err
	}
	return &ChainlinkSource{
		chain: chain,
		abi:   abiObj,
	}, nil
}

// LatestPrice 查询最新价格
// return: 价格（feed精度整数）、精度位数、更新时间
func (s *ChainlinkSource) LatestPrice(ctx context.Context, feedAddr string) (*big.Int, uint8, time.Time, error) {
	bound := bind.NewBoundContract(common.HexToAddress(feedAddr), s.abi, s.chain.client, s.chain.client, s.chain.client)
	opts := &bind.CallOpts{Context: ctx}

	var roundOut []interface{}
	if err := bound.Call(opts, &roundOut, "latestRoundData"); err != nil {
		utils.Logger.Error("查询latestRoundData失败", zap.String("feed", feedAddr), zap.Error(err))
		return nil, 0, time.Time{}, err
	}
	price := roundOut[1].(*big.Int)
	updatedAt := time.Unix(roundOut[3].(*big.Int).Int64(), 0)

	var decimalsOut []interface{}
	if err := bound.Call(opts, &decimalsOut, "decimals"); err != nil {
		utils.Logger.Error("查询decimals失败", zap.String("feed", feedAddr), zap.Error(err))
		return nil, 0, time.Time{}, err
	}
	decimals := decimalsOut[0].(uint8)

	return price, decimals, updatedAt, nil
}
