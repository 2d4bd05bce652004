package dao

import (
	"context"
	"strconv"
	"time"

	"nft_auction/utils"

	"github.com/go-redis/redis/v8"
)

// deadlineKey 拍卖截止时间索引Key（ZSet，score=截止时间戳）
const deadlineKey = "auction:deadline"

// AddAuctionDeadline 将拍卖加入截止时间索引
// 到期清扫任务按score扫描过期拍卖，惰性校验仍在bid/end时执行
func AddAuctionDeadline(ctx context.Context, auctionID uint64, endTime time.Time) error {
	if utils.RedisClient == nil {
		return nil
	}
	return utils.RedisClient.ZAdd(ctx, deadlineKey, &redis.Z{
		Score:  float64(endTime.Unix()),
		Member: strconv.FormatUint(auctionID, 10),
	}).Err()
}

// RemoveAuctionDeadline 拍卖结束后从索引移除
func RemoveAuctionDeadline(ctx context.Context, auctionID uint64) error {
	if utils.RedisClient == nil {
		return nil
	}
	return utils.RedisClient.ZRem(ctx, deadlineKey, strconv.FormatUint(auctionID, 10)).Err()
}

// GetExpiredAuctionIDs 获取已到期但未结束的拍卖ID（score <= now）
func GetExpiredAuctionIDs(ctx context.Context, now time.Time) ([]uint64, error) {
	if utils.RedisClient == nil {
		return nil, nil
	}
	members, err := utils.RedisClient.ZRangeByScore(ctx, deadlineKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
