package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"nft_auction/config"
	"nft_auction/contract"
	"nft_auction/dao"
	"nft_auction/handler"
	"nft_auction/service"
	"nft_auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// 1. 初始化配置
	if err := config.InitConfig(); err != nil {
		zap.L().Fatal("初始化配置失败", zap.Error(err))
	}

	// 2. 初始化日志
	if err := utils.InitLogger(); err != nil {
		zap.L().Fatal("初始化日志失败", zap.Error(err))
	}

	// 3. 初始化MySQL并迁移表结构（开发环境）
	db, err := dao.InitMySQL(config.GlobalConfig.MySQLDSN)
	if err != nil {
		utils.Logger.Fatal("初始化MySQL失败", zap.Error(err))
	}

	// 4. 初始化Redis（截止时间索引 + 分布式锁）
	if err := utils.InitRedis(config.GlobalConfig.RedisAddr, config.GlobalConfig.RedisPassword, config.GlobalConfig.RedisDB); err != nil {
		// Redis不可用时降级为单实例模式：仅进程内锁，到期清扫走数据库兜底
		utils.Logger.Warn("连接Redis失败，降级为单实例模式", zap.Error(err))
	}

	// 5. 初始化RabbitMQ
	if err := utils.InitRabbitMQ(config.GlobalConfig.RabbitMQURL); err != nil {
		utils.Logger.Fatal("初始化RabbitMQ失败", zap.Error(err))
	}
	defer utils.CloseRabbitMQ()

	// 6. 初始化链客户端和合约适配器
	chainID := config.GlobalConfig.DefaultChainID
	chain, err := contract.NewChainClient(config.GlobalConfig.ChainRPCUrl[chainID], config.GlobalConfig.CustodyWalletKey)
	if err != nil {
		utils.Logger.Fatal("初始化链客户端失败", zap.Error(err))
	}
	assets, err := contract.NewERC721Registry(chain)
	if err != nil {
		utils.Logger.Fatal("初始化NFT合约适配器失败", zap.Error(err))
	}
	payments, err := contract.NewPaymentGateway(chain)
	if err != nil {
		utils.Logger.Fatal("初始化支付适配器失败", zap.Error(err))
	}
	priceSource, err := contract.NewChainlinkSource(chain)
	if err != nil {
		utils.Logger.Fatal("初始化喂价适配器失败", zap.Error(err))
	}

	// 7. 初始化服务
	locks := utils.NewKeyMutex()
	adminService := service.NewAdminService(db)
	escrowService := service.NewEscrowService(db, payments, locks)
	pricingService := service.NewPricingService(priceSource, adminService)
	auctionService := service.NewAuctionService(db, assets, payments, escrowService,
		locks, chain.CustodyAddr(), chainID)

	// 首次启动写入平台配置，已初始化则沿用库内配置
	err = adminService.Initialize(context.Background(), config.GlobalConfig.OwnerAddr,
		config.GlobalConfig.PlatformFeeRateBps, config.GlobalConfig.PlatformFeeRecipient)
	if err != nil && !errors.Is(err, service.ErrAlreadyInitialized) {
		utils.Logger.Fatal("初始化平台配置失败", zap.Error(err))
	}

	// 8. 启动RabbitMQ消费者（领域事件日志落地，供下游审计/通知接入）
	err = utils.ConsumeAuctionEvents(func(event utils.AuctionEvent) error {
		utils.Logger.Info("拍卖事件",
			zap.String("type", event.Type),
			zap.Uint64("auction_id", event.AuctionID),
			zap.String("account", event.Account),
			zap.String("amount", event.Amount))
		return nil
	})
	if err != nil {
		utils.Logger.Fatal("启动消费者失败", zap.Error(err))
	}

	// 9. 启动到期清扫定时任务
	sweeper := cron.New()
	_, err = sweeper.AddFunc("@every 30s", func() {
		auctionService.FinalizeExpired(context.Background())
	})
	if err != nil {
		utils.Logger.Fatal("注册到期清扫任务失败", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	// 10. 初始化Gin引擎
	auctionHandler := handler.NewAuctionHandler(auctionService, escrowService, pricingService)
	adminHandler := handler.NewAdminHandler(adminService)

	r := gin.Default()

	v1 := r.Group("/api/v1/auction")
	{
		v1.POST("", auctionHandler.CreateAuction)            // 创建拍卖
		v1.POST("/:id/bid", auctionHandler.Bid)              // 原生币出价
		v1.POST("/:id/bid-token", auctionHandler.BidWithToken) // ERC20出价
		v1.POST("/:id/end", auctionHandler.EndAuction)       // 结束拍卖
		v1.GET("/:id", auctionHandler.GetAuction)            // 查询拍卖
		v1.POST("/withdraw", auctionHandler.Withdraw)        // 提取退款
		v1.GET("/pending-return", auctionHandler.GetPendingReturn) // 查询待退款
		v1.GET("/usd-value", auctionHandler.GetUSDValue)     // 美元估值
		v1.GET("/settlements", auctionHandler.ListSettlements) // 查询结算记录
	}

	admin := r.Group("/api/v1/admin")
	{
		admin.POST("/price-feed", adminHandler.SetPriceFeed)     // 设置喂价
		admin.GET("/price-feed", adminHandler.GetPriceFeed)      // 查询喂价
		admin.POST("/fee-rate", adminHandler.SetPlatformFeeRate) // 设置手续费率
		admin.POST("/transfer-ownership", adminHandler.TransferOwnership) // 转移管理权
		admin.POST("/upgrade", adminHandler.Upgrade)             // 升级版本
		admin.GET("/version", adminHandler.GetVersion)           // 查询版本
		admin.GET("/settings", adminHandler.GetSettings)         // 查询平台配置
	}

	// 11. 启动服务（优雅关闭）
	go func() {
		if err := r.Run(config.GlobalConfig.ServerPort); err != nil {
			utils.Logger.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("服务正在关闭...")
}
