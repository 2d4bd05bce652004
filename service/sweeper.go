package service

import (
	"context"
	"errors"

	"nft_auction/dao"
	"nft_auction/utils"

	"go.uber.org/zap"
)

// FinalizeExpired 到期清扫：结束所有已过截止时间但尚未结束的拍卖
// 结束拍卖本就允许任何人触发，清扫任务只是代劳；
// 到期校验仍在每次bid/end时惰性执行，不依赖该任务
func (s *AuctionService) FinalizeExpired(ctx context.Context) {
	ids, err := dao.GetExpiredAuctionIDs(ctx, s.now())
	if err != nil {
		utils.Logger.Error("扫描到期拍卖失败", zap.Error(err))
		return
	}

	for _, id := range ids {
		_, err := s.EndAuction(ctx, id, "")
		if err == nil {
			continue
		}
		// 已被他人结束：清掉残留的索引项即可
		if errors.Is(err, ErrAlreadyEnded) || errors.Is(err, ErrAuctionNotFound) {
			if rmErr := dao.RemoveAuctionDeadline(ctx, id); rmErr != nil {
				utils.Logger.Warn("清理截止时间索引失败", zap.Uint64("auction_id", id), zap.Error(rmErr))
			}
			continue
		}
		utils.Logger.Error("到期拍卖结算失败", zap.Uint64("auction_id", id), zap.Error(err))
	}
}
