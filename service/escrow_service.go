package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"nft_auction/model"
	"nft_auction/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EscrowService 托管账本服务
// 只为原生币退款记账：被超过的出价进入pending_returns，由出价者主动提取。
// ERC20退款不走该账本（直接转回，见AuctionService的出价路径）。
type EscrowService struct {
	db    *gorm.DB
	vt    ValueTransfer
	locks *utils.KeyMutex
}

// NewEscrowService 创建托管账本服务
func NewEscrowService(db *gorm.DB, vt ValueTransfer, locks *utils.KeyMutex) *EscrowService {
	return &EscrowService{
		db:    db,
		vt:    vt,
		locks: locks,
	}
}

// accountLockKey 托管账户锁键
func accountLockKey(account string) string {
	return fmt.Sprintf("escrow:account:%s", account)
}

// CreditRefund 为账户追加待退款金额（在调用方事务内执行，无外部调用）
// 溢出时返回ErrArithmeticOverflow，由调用方回滚整个事务
func (s *EscrowService) CreditRefund(tx *gorm.DB, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	var pr model.PendingReturn
	err := tx.Where("account_addr = ?", account).First(&pr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pr = model.PendingReturn{
			AccountAddr: account,
			Amount:      amount.String(),
		}
		return tx.Create(&pr).Error
	}
	if err != nil {
		return err
	}

	current, err := ParseWei(pr.Amount)
	if err != nil {
		return err
	}
	sum, err := AddWei(current, amount)
	if err != nil {
		return err
	}

	return tx.Model(&pr).Update("amount", sum.String()).Error
}

// debitRefund 扣减账户待退款金额（补偿用：出价资金拉取失败时回退记账）
func (s *EscrowService) debitRefund(tx *gorm.DB, account string, amount *big.Int) error {
	var pr model.PendingReturn
	if err := tx.Where("account_addr = ?", account).First(&pr).Error; err != nil {
		return err
	}

	current, err := ParseWei(pr.Amount)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return ErrInvalidAmount
	}

	remain := new(big.Int).Sub(current, amount)
	return tx.Model(&pr).Update("amount", remain.String()).Error
}

// Withdraw 提取全部待退款
// 先在事务内清零再发起转账（检查→记账→外部调用），转账失败时在持锁状态下恢复余额
func (s *EscrowService) Withdraw(ctx context.Context, account string) (string, error) {
	lockKey := accountLockKey(account)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	// 多实例部署时叠加分布式锁
	if utils.Redisync != nil {
		mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
		if err != nil {
			return "", fmt.Errorf("获取分布式锁失败: %w", err)
		}
		defer utils.ReleaseRedisLock(mutex)
	}

	// 1. 事务：读出并清零余额
	var pr model.PendingReturn
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("account_addr = ?", account).First(&pr).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNothingToWithdraw
		}
		return "", err
	}

	amount, err := ParseWei(pr.Amount)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	if amount.Sign() == 0 {
		tx.Rollback()
		return "", ErrNothingToWithdraw
	}

	if err := tx.Model(&pr).Update("amount", "0").Error; err != nil {
		tx.Rollback()
		return "", err
	}
	tx.Commit()

	// 2. 外部调用：原生币转账
	txHash, err := s.vt.Transfer(ctx, model.NativeToken, account, amount)
	if err != nil {
		// 转账失败，持锁状态下把余额加回去（用追加而非覆盖，期间可能有新的记账），
		// 整个操作视为未发生
		rtx := s.db.WithContext(ctx).Begin()
		if restoreErr := s.CreditRefund(rtx, account, amount); restoreErr != nil {
			rtx.Rollback()
			utils.Logger.Error("提款失败后恢复余额失败",
				zap.String("account", account),
				zap.String("amount", amount.String()),
				zap.Error(restoreErr))
		} else {
			rtx.Commit()
		}
		return "", fmt.Errorf("退款转账失败: %w", err)
	}

	utils.Logger.Info("退款提取成功",
		zap.String("account", account),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", txHash))
	return amount.String(), nil
}

// PendingOf 查询账户待退款余额
func (s *EscrowService) PendingOf(ctx context.Context, account string) (string, error) {
	var pr model.PendingReturn
	err := s.db.WithContext(ctx).Where("account_addr = ?", account).First(&pr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return pr.Amount, nil
}
