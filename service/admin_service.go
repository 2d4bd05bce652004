package service

import (
	"context"
	"errors"
	"strings"

	"nft_auction/model"
	"nft_auction/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitialVersion 初始化时写入的版本标记
const InitialVersion = "v1"

// AdminService 平台配置服务（单行platform_settings记录）
// 初始化只执行一次；费率/预言机变更对后续结算生效，不追溯历史结算。
type AdminService struct {
	db *gorm.DB
}

// NewAdminService 创建平台配置服务
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Initialize 初始化平台配置（有且仅有一次）
func (s *AdminService) Initialize(ctx context.Context, ownerAddr string, feeRateBps int, feeRecipient string) error {
	if feeRateBps < 0 || feeRateBps > model.FeeRateCeilingBps {
		return ErrFeeRateTooHigh
	}
	if feeRecipient == "" {
		return ErrInvalidFeeRecipient
	}
	if ownerAddr == "" {
		return ErrUnauthorized
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var setting model.PlatformSetting
	err := tx.Where("id = ?", model.SettingsRowID).First(&setting).Error
	if err == nil && setting.Initialized {
		tx.Rollback()
		return ErrAlreadyInitialized
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return err
	}

	setting = model.PlatformSetting{
		ID:           model.SettingsRowID,
		OwnerAddr:    ownerAddr,
		FeeRateBps:   feeRateBps,
		FeeRecipient: feeRecipient,
		Version:      InitialVersion,
		Initialized:  true,
	}
	if err := tx.Create(&setting).Error; err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()

	utils.Logger.Info("平台配置初始化完成",
		zap.String("owner", ownerAddr),
		zap.Int("fee_rate_bps", feeRateBps),
		zap.String("fee_recipient", feeRecipient))
	return nil
}

// Settings 读取平台配置
func (s *AdminService) Settings(ctx context.Context) (*model.PlatformSetting, error) {
	var setting model.PlatformSetting
	err := s.db.WithContext(ctx).Where("id = ?", model.SettingsRowID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// requireOwner 校验调用方为管理员
func (s *AdminService) requireOwner(ctx context.Context, caller string) (*model.PlatformSetting, error) {
	setting, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if caller == "" || !strings.EqualFold(setting.OwnerAddr, caller) {
		return nil, ErrUnauthorized
	}
	return setting, nil
}

// SetPlatformFeeRate 更新平台手续费率（仅管理员，只影响之后的结算）
func (s *AdminService) SetPlatformFeeRate(ctx context.Context, caller string, feeRateBps int) error {
	setting, err := s.requireOwner(ctx, caller)
	if err != nil {
		return err
	}
	if feeRateBps < 0 || feeRateBps > model.FeeRateCeilingBps {
		return ErrFeeRateTooHigh
	}

	return s.db.WithContext(ctx).Model(setting).Update("fee_rate_bps", feeRateBps).Error
}

// SetPriceFeed 登记/替换支付代币的价格预言机（仅管理员）
func (s *AdminService) SetPriceFeed(ctx context.Context, caller, tokenAddr, feedAddr string) error {
	if _, err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if feedAddr == "" {
		return ErrInvalidFeedAddr
	}

	var feed model.PriceFeed
	err := s.db.WithContext(ctx).Where("token_addr = ?", tokenAddr).First(&feed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		feed = model.PriceFeed{TokenAddr: tokenAddr, FeedAddr: feedAddr}
		return s.db.WithContext(ctx).Create(&feed).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&feed).Update("feed_addr", feedAddr).Error
}

// GetPriceFeed 查询代币登记的预言机地址
func (s *AdminService) GetPriceFeed(ctx context.Context, tokenAddr string) (string, error) {
	var feed model.PriceFeed
	err := s.db.WithContext(ctx).Where("token_addr = ?", tokenAddr).First(&feed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrFeedNotRegistered
	}
	if err != nil {
		return "", err
	}
	return feed.FeedAddr, nil
}

// TransferOwnership 转移管理员（仅现任管理员）
func (s *AdminService) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	setting, err := s.requireOwner(ctx, caller)
	if err != nil {
		return err
	}
	if newOwner == "" {
		return ErrUnauthorized
	}

	return s.db.WithContext(ctx).Model(setting).Update("owner_addr", newOwner).Error
}

// Upgrade 升级版本标记（仅管理员）
// 新版本实现沿用同一套表结构，字段顺序/类型保持兼容
func (s *AdminService) Upgrade(ctx context.Context, caller, newVersion string) error {
	setting, err := s.requireOwner(ctx, caller)
	if err != nil {
		return err
	}
	if newVersion == "" || newVersion == setting.Version {
		return ErrInvalidVersion
	}

	if err := s.db.WithContext(ctx).Model(setting).Update("version", newVersion).Error; err != nil {
		return err
	}
	utils.Logger.Info("平台版本升级", zap.String("from", setting.Version), zap.String("to", newVersion))
	return nil
}

// Version 查询当前版本标记
func (s *AdminService) Version(ctx context.Context) (string, error) {
	setting, err := s.Settings(ctx)
	if err != nil {
		return "", err
	}
	return setting.Version, nil
}
