package service

import (
	"context"
	"errors"
	"testing"
)

func newAdminFixture(t *testing.T) *AdminService {
	t.Helper()
	admin := NewAdminService(newTestDB(t))
	if err := admin.Initialize(context.Background(), testOwner, 250, testFeeRecipient); err != nil {
		t.Fatalf("初始化平台配置失败: %v", err)
	}
	return admin
}

func TestInitializeOnce(t *testing.T) {
	admin := NewAdminService(newTestDB(t))
	ctx := context.Background()

	// 初始化前读取配置报未初始化
	if _, err := admin.Settings(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("期望ErrNotInitialized，得到: %v", err)
	}

	if err := admin.Initialize(ctx, testOwner, 250, testFeeRecipient); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	// 有且仅有一次
	if err := admin.Initialize(ctx, "0xSomeoneElse", 100, testFeeRecipient); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("期望ErrAlreadyInitialized，得到: %v", err)
	}

	setting, err := admin.Settings(ctx)
	if err != nil {
		t.Fatalf("读取配置失败: %v", err)
	}
	if setting.OwnerAddr != testOwner || setting.FeeRateBps != 250 || setting.Version != InitialVersion {
		t.Fatalf("配置内容错误: %+v", setting)
	}
}

func TestInitializeValidation(t *testing.T) {
	admin := NewAdminService(newTestDB(t))
	ctx := context.Background()

	// 费率越过10000基点上限
	if err := admin.Initialize(ctx, testOwner, 10001, testFeeRecipient); !errors.Is(err, ErrFeeRateTooHigh) {
		t.Fatalf("期望ErrFeeRateTooHigh，得到: %v", err)
	}
	if err := admin.Initialize(ctx, testOwner, 250, ""); !errors.Is(err, ErrInvalidFeeRecipient) {
		t.Fatalf("期望ErrInvalidFeeRecipient，得到: %v", err)
	}
	if err := admin.Initialize(ctx, "", 250, testFeeRecipient); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("期望ErrUnauthorized，得到: %v", err)
	}

	// 上限值本身合法（100%费率）
	if err := admin.Initialize(ctx, testOwner, 10000, testFeeRecipient); err != nil {
		t.Fatalf("费率上限值应合法: %v", err)
	}
}

func TestSetPlatformFeeRate(t *testing.T) {
	admin := newAdminFixture(t)
	ctx := context.Background()

	// 非管理员拒绝
	if err := admin.SetPlatformFeeRate(ctx, testBidderA, 500); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("期望ErrUnauthorized，得到: %v", err)
	}
	// 越上限拒绝
	if err := admin.SetPlatformFeeRate(ctx, testOwner, 10001); !errors.Is(err, ErrFeeRateTooHigh) {
		t.Fatalf("期望ErrFeeRateTooHigh，得到: %v", err)
	}

	if err := admin.SetPlatformFeeRate(ctx, testOwner, 500); err != nil {
		t.Fatalf("更新费率失败: %v", err)
	}
	setting, err := admin.Settings(ctx)
	if err != nil || setting.FeeRateBps != 500 {
		t.Fatalf("费率未生效: %+v, %v", setting, err)
	}
}

func TestPriceFeedRegistry(t *testing.T) {
	admin := newAdminFixture(t)
	ctx := context.Background()

	// 未登记时查询报错
	if _, err := admin.GetPriceFeed(ctx, "0xToken"); !errors.Is(err, ErrFeedNotRegistered) {
		t.Fatalf("期望ErrFeedNotRegistered，得到: %v", err)
	}

	// 非管理员不能登记
	if err := admin.SetPriceFeed(ctx, testBidderA, "0xToken", "0xFeed1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("期望ErrUnauthorized，得到: %v", err)
	}
	// 预言机地址不能为空
	if err := admin.SetPriceFeed(ctx, testOwner, "0xToken", ""); !errors.Is(err, ErrInvalidFeedAddr) {
		t.Fatalf("期望ErrInvalidFeedAddr，得到: %v", err)
	}

	// 登记后可查，替换后取最新
	if err := admin.SetPriceFeed(ctx, testOwner, "0xToken", "0xFeed1"); err != nil {
		t.Fatalf("登记预言机失败: %v", err)
	}
	feed, err := admin.GetPriceFeed(ctx, "0xToken")
	if err != nil || feed != "0xFeed1" {
		t.Fatalf("查询预言机失败: %s, %v", feed, err)
	}
	if err := admin.SetPriceFeed(ctx, testOwner, "0xToken", "0xFeed2"); err != nil {
		t.Fatalf("替换预言机失败: %v", err)
	}
	feed, err = admin.GetPriceFeed(ctx, "0xToken")
	if err != nil || feed != "0xFeed2" {
		t.Fatalf("替换未生效: %s, %v", feed, err)
	}
}

func TestTransferOwnership(t *testing.T) {
	admin := newAdminFixture(t)
	ctx := context.Background()
	newOwner := "0xNewAdmin"

	if err := admin.TransferOwnership(ctx, testBidderA, newOwner); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("期望ErrUnauthorized，得到: %v", err)
	}
	if err := admin.TransferOwnership(ctx, testOwner, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("期望ErrUnauthorized，得到: %v", err)
	}

	if err := admin.TransferOwnership(ctx, testOwner, newOwner); err != nil {
		t.Fatalf("转移管理权失败: %v", err)
	}

	// 旧管理员立即失权，新管理员可操作
	if err := admin.SetPlatformFeeRate(ctx, testOwner, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("旧管理员应失权: %v", err)
	}
	if err := admin.SetPlatformFeeRate(ctx, newOwner, 100); err != nil {
		t.Fatalf("新管理员操作失败: %v", err)
	}
}

func TestUpgrade(t *testing.T) {
	admin := newAdminFixture(t)
	ctx := context.Background()

	version, err := admin.Version(ctx)
	if err != nil || version != InitialVersion {
		t.Fatalf("初始版本错误: %s, %v", version, err)
	}

	if err := admin.Upgrade(ctx, testBidderA, "v2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("期望ErrUnauthorized，得到: %v", err)
	}
	// 空版本与原版本都拒绝
	if err := admin.Upgrade(ctx, testOwner, ""); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("期望ErrInvalidVersion，得到: %v", err)
	}
	if err := admin.Upgrade(ctx, testOwner, InitialVersion); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("期望ErrInvalidVersion，得到: %v", err)
	}

	if err := admin.Upgrade(ctx, testOwner, "v2"); err != nil {
		t.Fatalf("升级失败: %v", err)
	}
	version, err = admin.Version(ctx)
	if err != nil || version != "v2" {
		t.Fatalf("升级后版本错误: %s, %v", version, err)
	}

	// 升级不改动业务配置
	setting, err := admin.Settings(ctx)
	if err != nil || setting.FeeRateBps != 250 || setting.OwnerAddr != testOwner {
		t.Fatalf("升级不应改动配置: %+v, %v", setting, err)
	}
}
