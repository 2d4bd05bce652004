package handler

import (
	"fmt"

	"nft_auction/service"
	"nft_auction/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler 平台管理处理器
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler 创建平台管理处理器
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// SetPriceFeedReq 设置喂价请求
type SetPriceFeedReq struct {
	CallerAddr string `json:"caller_addr" binding:"required"`
	TokenAddr  string `json:"token_addr"` // 空=原生币
	FeedAddr   string `json:"feed_addr" binding:"required"`
}

// SetFeeRateReq 设置手续费率请求
type SetFeeRateReq struct {
	CallerAddr string `json:"caller_addr" binding:"required"`
	FeeRateBps *int   `json:"fee_rate_bps" binding:"required"` // 万分比
}

// TransferOwnershipReq 转移管理权请求
type TransferOwnershipReq struct {
	CallerAddr   string `json:"caller_addr" binding:"required"`
	NewOwnerAddr string `json:"new_owner_addr" binding:"required"`
}

// UpgradeReq 升级版本请求
type UpgradeReq struct {
	CallerAddr string `json:"caller_addr" binding:"required"`
	NewVersion string `json:"new_version" binding:"required"`
}

// SetPriceFeed 设置代币喂价地址
func (h *AdminHandler) SetPriceFeed(c *gin.Context) {
	var req SetPriceFeedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}

	if err := h.adminService.SetPriceFeed(c.Request.Context(), req.CallerAddr, req.TokenAddr, req.FeedAddr); err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"token_addr": req.TokenAddr, "feed_addr": req.FeedAddr})
}

// GetPriceFeed 查询代币喂价地址
func (h *AdminHandler) GetPriceFeed(c *gin.Context) {
	tokenAddr := c.Query("token_addr") // 空=原生币

	feedAddr, err := h.adminService.GetPriceFeed(c.Request.Context(), tokenAddr)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"token_addr": tokenAddr, "feed_addr": feedAddr})
}

// SetPlatformFeeRate 设置平台手续费率
func (h *AdminHandler) SetPlatformFeeRate(c *gin.Context) {
	var req SetFeeRateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}
	if req.FeeRateBps == nil {
		badRequest(c, fmt.Errorf("缺少fee_rate_bps"))
		return
	}

	if err := h.adminService.SetPlatformFeeRate(c.Request.Context(), req.CallerAddr, *req.FeeRateBps); err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"fee_rate_bps": *req.FeeRateBps})
}

// TransferOwnership 转移管理权
func (h *AdminHandler) TransferOwnership(c *gin.Context) {
	var req TransferOwnershipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}

	if err := h.adminService.TransferOwnership(c.Request.Context(), req.CallerAddr, req.NewOwnerAddr); err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"owner_addr": req.NewOwnerAddr})
}

// Upgrade 升级平台配置版本
func (h *AdminHandler) Upgrade(c *gin.Context) {
	var req UpgradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}

	if err := h.adminService.Upgrade(c.Request.Context(), req.CallerAddr, req.NewVersion); err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"version": req.NewVersion})
}

// GetVersion 查询当前配置版本
func (h *AdminHandler) GetVersion(c *gin.Context) {
	version, err := h.adminService.Version(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"version": version})
}

// GetSettings 查询平台配置
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.adminService.Settings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, settings)
}
