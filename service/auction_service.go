package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"nft_auction/dao"
	"nft_auction/model"
	"nft_auction/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuctionService 拍卖状态机（核心）
// 每个变更操作的顺序固定为：校验 → 事务内记账 → 外部调用（链上转移），
// 外部调用失败时在持锁状态下补偿回退，保证全有或全无。
type AuctionService struct {
	db           *gorm.DB
	assets       AssetRegistry
	vt           ValueTransfer
	escrow       *EscrowService
	locks        *utils.KeyMutex
	operatorAddr string // 平台操作员地址（卖家需将NFT授权给它）
	chainID      int
	now          func() time.Time // 可注入时钟，便于测试截止逻辑
}

// NewAuctionService 创建拍卖状态机服务
func NewAuctionService(db *gorm.DB, assets AssetRegistry, vt ValueTransfer, escrow *EscrowService, locks *utils.KeyMutex, operatorAddr string, chainID int) *AuctionService {
	return &AuctionService{
		db:           db,
		assets:       assets,
		vt:           vt,
		escrow:       escrow,
		locks:        locks,
		operatorAddr: operatorAddr,
		chainID:      chainID,
		now:          time.Now,
	}
}

// auctionLockKey 拍卖锁键
func auctionLockKey(auctionID uint64) string {
	return fmt.Sprintf("auction:%d", auctionID)
}

// lockAuction 对拍卖加锁（进程内互斥 + 多实例部署时的分布式锁）
// 返回解锁函数
func (s *AuctionService) lockAuction(ctx context.Context, auctionID uint64) (func(), error) {
	lockKey := auctionLockKey(auctionID)
	s.locks.Lock(lockKey)

	if utils.Redisync == nil {
		return func() { s.locks.Unlock(lockKey) }, nil
	}

	mutex, err := utils.GetRedisLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		s.locks.Unlock(lockKey)
		return nil, fmt.Errorf("获取分布式锁失败: %w", err)
	}
	return func() {
		utils.ReleaseRedisLock(mutex)
		s.locks.Unlock(lockKey)
	}, nil
}

// -------------- 请求结构体 --------------

// CreateAuctionReq 创建拍卖请求
type CreateAuctionReq struct {
	NFTContract   string `json:"nft_contract" binding:"required"`
	TokenID       string `json:"token_id" binding:"required"`
	SellerAddr    string `json:"seller_addr" binding:"required"`
	Duration      int64  `json:"duration"`       // 拍卖时长（秒）
	StartingPrice string `json:"starting_price"` // 起拍价（wei）
	PaymentToken  string `json:"payment_token"`  // 支付代币地址（空=原生币）
}

// ListSettlementsReq 查询结算记录请求
type ListSettlementsReq struct {
	UserAddr  string `json:"user_addr"` // 买家/卖家地址
	AuctionID uint64 `json:"auction_id"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// -------------- 核心方法 --------------

// CreateAuction 创建拍卖
// NFT不在创建时入托管：创建只校验所有权和平台转移授权，结算时凭授权交割，
// 流拍时NFT从未离开卖家（与授权校验语义一致）
func (s *AuctionService) CreateAuction(ctx context.Context, req CreateAuctionReq) (uint64, error) {
	if req.Duration <= 0 {
		return 0, ErrInvalidDuration
	}
	starting, err := ParseWei(req.StartingPrice)
	if err != nil || starting.Sign() == 0 {
		return 0, ErrInvalidStartingPrice
	}

	// 1. 校验卖家持有该NFT
	owner, err := s.assets.OwnerOf(ctx, req.NFTContract, req.TokenID)
	if err != nil {
		return 0, fmt.Errorf("查询NFT所有者失败: %w", err)
	}
	if !strings.EqualFold(owner, req.SellerAddr) {
		return 0, ErrNotOwner
	}

	// 2. 校验平台已被授权为转移操作员
	approved, err := s.assets.IsApprovedOrOwner(ctx, req.NFTContract, s.operatorAddr, req.TokenID)
	if err != nil {
		return 0, fmt.Errorf("查询NFT授权失败: %w", err)
	}
	if !approved {
		return 0, ErrNotApproved
	}

	// 3. 入库（自增ID即拍卖ID，单调递增不复用）
	auction := model.Auction{
		SellerAddr:    req.SellerAddr,
		NFTContract:   req.NFTContract,
		TokenID:       req.TokenID,
		PaymentToken:  req.PaymentToken,
		StartingPrice: starting.String(),
		HighestBid:    "0",
		HighestBidder: "",
		EndTime:       s.now().Add(time.Duration(req.Duration) * time.Second),
		Ended:         false,
		ChainID:       s.chainID,
	}
	if err := s.db.WithContext(ctx).Create(&auction).Error; err != nil {
		utils.Logger.Error("创建拍卖失败", zap.Error(err))
		return 0, err
	}

	// 4. 截止时间索引 + 事件（均为旁路，失败只记日志）
	if err := dao.AddAuctionDeadline(ctx, auction.ID, auction.EndTime); err != nil {
		utils.Logger.Warn("写入截止时间索引失败", zap.Uint64("auction_id", auction.ID), zap.Error(err))
	}
	if err := utils.PublishAuctionEvent(ctx, utils.AuctionEvent{
		Type:      utils.EventAuctionCreated,
		AuctionID: auction.ID,
		Account:   auction.SellerAddr,
	}); err != nil {
		utils.Logger.Warn("发布拍卖创建事件失败", zap.Uint64("auction_id", auction.ID), zap.Error(err))
	}

	utils.Logger.Info("拍卖创建成功",
		zap.Uint64("auction_id", auction.ID),
		zap.String("seller", auction.SellerAddr),
		zap.String("starting_price", auction.StartingPrice),
		zap.Time("end_time", auction.EndTime))
	return auction.ID, nil
}

// Bid 原生币出价（depositRef为预存款交易哈希）
func (s *AuctionService) Bid(ctx context.Context, auctionID uint64, bidder, amount, depositRef string) error {
	return s.placeBid(ctx, auctionID, bidder, amount, depositRef, true)
}

// BidWithToken ERC20出价
func (s *AuctionService) BidWithToken(ctx context.Context, auctionID uint64, bidder, amount string) error {
	return s.placeBid(ctx, auctionID, bidder, amount, "", false)
}

// placeBid 出价（两种支付路径共用）
// 出价必须高于当前最高价；首次出价不得低于起拍价。
// 记账先行：最高价/出价者先落库，再拉取资金，最后才退回前一出价（ERC20路径），
// 恶意收款方无法借外部调用针对旧状态重复出价。
func (s *AuctionService) placeBid(ctx context.Context, auctionID uint64, bidder, amountStr, depositRef string, native bool) error {
	amount, err := ParseWei(amountStr)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 || bidder == "" {
		return ErrInvalidAmount
	}

	unlock, err := s.lockAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	defer unlock()

	// 1. 事务：校验 + 记账
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var auction model.Auction
	if err := tx.Where("id = ?", auctionID).First(&auction).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAuctionNotFound
		}
		return err
	}

	// 已结束或已到期（ended未落库前到期同样拒绝，endAuction是独立的收尾步骤）
	if auction.Ended || !s.now().Before(auction.EndTime) {
		tx.Rollback()
		return ErrAuctionEnded
	}

	// 支付路径必须与拍卖计价一致
	if auction.IsNativePayment() != native {
		tx.Rollback()
		return ErrWrongPaymentPath
	}

	// 单调递增校验
	if auction.HasBid() {
		highest, err := ParseWei(auction.HighestBid)
		if err != nil {
			tx.Rollback()
			return err
		}
		if amount.Cmp(highest) <= 0 {
			tx.Rollback()
			return ErrBidTooLow
		}
	} else {
		starting, err := ParseWei(auction.StartingPrice)
		if err != nil {
			tx.Rollback()
			return err
		}
		if amount.Cmp(starting) < 0 {
			tx.Rollback()
			return ErrBidTooLow
		}
	}

	prevBidder := auction.HighestBidder
	prevBidStr := auction.HighestBid
	var prevBid *big.Int
	if prevBidder != "" {
		prevBid, err = ParseWei(prevBidStr)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	// 原生币：前一出价记入托管账本，由其自行提取
	// （原生退款走拉取模式，收款逻辑异常的出价者不能阻塞新出价）
	if prevBidder != "" && native {
		if err := s.escrow.CreditRefund(tx, prevBidder, prevBid); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Model(&auction).Updates(map[string]interface{}{
		"highest_bid":    amount.String(),
		"highest_bidder": bidder,
	}).Error; err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()

	// 2. 外部调用：拉取出价资金进入托管，失败则回退记账，本次出价视为未发生
	if _, err := s.vt.TransferFrom(ctx, auction.PaymentToken, bidder, amount, depositRef); err != nil {
		s.compensateBid(ctx, auctionID, prevBidder, prevBidStr, prevBid, native)
		return fmt.Errorf("拉取出价资金失败: %w", err)
	}

	// 3. ERC20路径：直接退回前一出价（代币转账不会回调，无重入风险）
	if prevBidder != "" && !native {
		if _, err := s.vt.Transfer(ctx, auction.PaymentToken, prevBidder, prevBid); err != nil {
			// 退回失败：把刚拉取的资金原路退还，状态复原
			if _, backErr := s.vt.Transfer(ctx, auction.PaymentToken, bidder, amount); backErr != nil {
				utils.Logger.Error("出价补偿退款失败，需人工对账",
					zap.Uint64("auction_id", auctionID),
					zap.String("bidder", bidder),
					zap.String("amount", amount.String()),
					zap.Error(backErr))
			}
			s.compensateBid(ctx, auctionID, prevBidder, prevBidStr, prevBid, native)
			return fmt.Errorf("退回前一出价失败: %w", err)
		}
	}

	if err := utils.PublishAuctionEvent(ctx, utils.AuctionEvent{
		Type:      utils.EventBidAccepted,
		AuctionID: auctionID,
		Account:   bidder,
		Amount:    amount.String(),
	}); err != nil {
		utils.Logger.Warn("发布出价事件失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
	}

	utils.Logger.Info("出价成功",
		zap.Uint64("auction_id", auctionID),
		zap.String("bidder", bidder),
		zap.String("amount", amount.String()))
	return nil
}

// compensateBid 出价外部调用失败后的补偿：恢复最高价/出价者，回退托管记账
// 调用时仍持有拍卖锁
func (s *AuctionService) compensateBid(ctx context.Context, auctionID uint64, prevBidder, prevBidStr string, prevBid *big.Int, native bool) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&model.Auction{}).Where("id = ?", auctionID).Updates(map[string]interface{}{
		"highest_bid":    prevBidStr,
		"highest_bidder": prevBidder,
	}).Error; err != nil {
		tx.Rollback()
		utils.Logger.Error("出价补偿回退失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
		return
	}

	if prevBidder != "" && native {
		if err := s.escrow.debitRefund(tx, prevBidder, prevBid); err != nil {
			tx.Rollback()
			utils.Logger.Error("出价补偿回退托管记账失败",
				zap.Uint64("auction_id", auctionID),
				zap.String("account", prevBidder),
				zap.Error(err))
			return
		}
	}
	tx.Commit()
}

// EndAuction 结束拍卖并结算
// 到期后任何人可调用；卖家可在到期前提前终止。重复调用报ErrAlreadyEnded。
// ended标志先落库（幂等闸门），之后才发生任何资产/资金转移。
func (s *AuctionService) EndAuction(ctx context.Context, auctionID uint64, caller string) (*model.AuctionSettlement, error) {
	unlock, err := s.lockAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 1. 事务：校验 + 落结束标志
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var auction model.Auction
	if err := tx.Where("id = ?", auctionID).First(&auction).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	if auction.Ended {
		tx.Rollback()
		return nil, ErrAlreadyEnded
	}
	if s.now().Before(auction.EndTime) && !strings.EqualFold(caller, auction.SellerAddr) {
		tx.Rollback()
		return nil, ErrAuctionNotOver
	}

	// 有出价时先读结算参数，配置缺失直接干净回滚
	// 必须经由本事务读取：走独立连接会破坏回滚原子性，单连接池下还会自锁
	var setting *model.PlatformSetting
	var winningBid, sellerAmount, feeAmount *big.Int
	if auction.HasBid() {
		var row model.PlatformSetting
		if err := tx.Where("id = ?", model.SettingsRowID).First(&row).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotInitialized
			}
			return nil, err
		}
		setting = &row
		winningBid, err = ParseWei(auction.HighestBid)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		// 费率取结算时的当前配置，不冻结在创建时刻
		sellerAmount, feeAmount, err = SettleAmounts(winningBid, setting.FeeRateBps)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Model(&auction).Update("ended", true).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	tx.Commit()

	if err := dao.RemoveAuctionDeadline(ctx, auctionID); err != nil {
		utils.Logger.Warn("移除截止时间索引失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
	}

	// 2. 流拍：无任何资金移动，NFT创建时未入托管，仍归卖家
	if !auction.HasBid() {
		if err := utils.PublishAuctionEvent(ctx, utils.AuctionEvent{
			Type:      utils.EventAuctionEnded,
			AuctionID: auctionID,
		}); err != nil {
			utils.Logger.Warn("发布拍卖结束事件失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
		}
		utils.Logger.Info("拍卖流拍结束", zap.Uint64("auction_id", auctionID))
		return nil, nil
	}

	// 3. 外部调用：NFT交割（卖家→买受人）
	// 失败则回退结束标志，本次调用视为未发生
	nftTxHash, err := s.assets.TransferFrom(ctx, auction.NFTContract, auction.SellerAddr, auction.HighestBidder, auction.TokenID)
	if err != nil {
		s.reopenAuction(ctx, auctionID, auction.EndTime)
		return nil, fmt.Errorf("NFT交割失败: %w", err)
	}

	// 4. 外部调用：打款（卖家所得 + 平台手续费）
	// NFT已交割，结束不可回退；打款失败报错返回，由运维凭日志重试
	payoutTxHash, err := s.vt.Transfer(ctx, auction.PaymentToken, auction.SellerAddr, sellerAmount)
	if err != nil {
		utils.Logger.Error("卖家打款失败（NFT已交割，需人工处理）",
			zap.Uint64("auction_id", auctionID),
			zap.String("seller", auction.SellerAddr),
			zap.String("amount", sellerAmount.String()),
			zap.Error(err))
		return nil, fmt.Errorf("卖家打款失败: %w", err)
	}
	feeTxHash := ""
	if feeAmount.Sign() > 0 {
		feeTxHash, err = s.vt.Transfer(ctx, auction.PaymentToken, setting.FeeRecipient, feeAmount)
		if err != nil {
			utils.Logger.Error("手续费打款失败（NFT已交割，需人工处理）",
				zap.Uint64("auction_id", auctionID),
				zap.String("fee_recipient", setting.FeeRecipient),
				zap.String("amount", feeAmount.String()),
				zap.Error(err))
			return nil, fmt.Errorf("手续费打款失败: %w", err)
		}
	}

	// 5. 结算记录（最终账本）
	settlement := model.AuctionSettlement{
		TradeNo:      utils.GenerateTradeNo(),
		AuctionID:    auctionID,
		SellerAddr:   auction.SellerAddr,
		WinnerAddr:   auction.HighestBidder,
		PaymentToken: auction.PaymentToken,
		WinningBid:   winningBid.String(),
		SellerAmount: sellerAmount.String(),
		FeeAmount:    feeAmount.String(),
		FeeRecipient: setting.FeeRecipient,
		NFTTxHash:    nftTxHash,
		PayoutTxHash: payoutTxHash,
		FeeTxHash:    feeTxHash,
		ChainID:      auction.ChainID,
		SettledAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&settlement).Error; err != nil {
		utils.Logger.Error("写入结算记录失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
		return nil, err
	}

	if err := utils.PublishAuctionEvent(ctx, utils.AuctionEvent{
		Type:      utils.EventAuctionEnded,
		AuctionID: auctionID,
		Account:   auction.HighestBidder,
		Amount:    winningBid.String(),
	}); err != nil {
		utils.Logger.Warn("发布拍卖结束事件失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
	}

	utils.Logger.Info("拍卖结算完成",
		zap.Uint64("auction_id", auctionID),
		zap.String("trade_no", settlement.TradeNo),
		zap.String("winner", settlement.WinnerAddr),
		zap.String("winning_bid", settlement.WinningBid),
		zap.String("seller_amount", settlement.SellerAmount),
		zap.String("fee_amount", settlement.FeeAmount))
	return &settlement, nil
}

// reopenAuction NFT交割失败后的补偿：回退结束标志并恢复截止时间索引
// 调用时仍持有拍卖锁
func (s *AuctionService) reopenAuction(ctx context.Context, auctionID uint64, endTime time.Time) {
	if err := s.db.WithContext(ctx).Model(&model.Auction{}).
		Where("id = ?", auctionID).
		Update("ended", false).Error; err != nil {
		utils.Logger.Error("回退结束标志失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
		return
	}
	if err := dao.AddAuctionDeadline(ctx, auctionID, endTime); err != nil {
		utils.Logger.Warn("恢复截止时间索引失败", zap.Uint64("auction_id", auctionID), zap.Error(err))
	}
}

// GetAuction 查询拍卖记录
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uint64) (*model.Auction, error) {
	var auction model.Auction
	err := s.db.WithContext(ctx).Where("id = ?", auctionID).First(&auction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// ListSettlements 查询结算记录
func (s *AuctionService) ListSettlements(ctx context.Context, req ListSettlementsReq) ([]model.AuctionSettlement, int64, error) {
	var records []model.AuctionSettlement
	var total int64

	// 构建查询条件
	query := s.db.WithContext(ctx).Model(&model.AuctionSettlement{})
	if req.UserAddr != "" {
		query = query.Where("seller_addr = ? OR winner_addr = ?", req.UserAddr, req.UserAddr)
	}
	if req.AuctionID > 0 {
		query = query.Where("auction_id = ?", req.AuctionID)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("settled_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
