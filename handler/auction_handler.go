package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"nft_auction/service"
	"nft_auction/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuctionHandler 拍卖处理器
type AuctionHandler struct {
	auctionService *service.AuctionService
	escrowService  *service.EscrowService
	pricingService *service.PricingService
}

// NewAuctionHandler 创建拍卖处理器
func NewAuctionHandler(auctionService *service.AuctionService, escrowService *service.EscrowService, pricingService *service.PricingService) *AuctionHandler {
	return &AuctionHandler{
		auctionService: auctionService,
		escrowService:  escrowService,
		pricingService: pricingService,
	}
}

// BidReq 出价请求
type BidReq struct {
	BidderAddr    string `json:"bidder_addr" binding:"required"`
	Amount        string `json:"amount" binding:"required"` // 出价金额（wei）
	DepositTxHash string `json:"deposit_tx_hash"`           // 原生币路径：预存款交易哈希
	Signature     string `json:"signature"`                 // 可选：钱包签名（amount+auction_id）
}

// EndAuctionReq 结束拍卖请求
type EndAuctionReq struct {
	CallerAddr string `json:"caller_addr" binding:"required"`
}

// WithdrawReq 提取退款请求
type WithdrawReq struct {
	AccountAddr string `json:"account_addr" binding:"required"`
}

// parseAuctionID 解析路径中的拍卖ID
func parseAuctionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, fmt.Errorf("拍卖ID非法"))
		return 0, false
	}
	return id, true
}

// verifyBidSignature 校验出价签名（提供签名时才校验）
func verifyBidSignature(c *gin.Context, auctionID uint64, req BidReq) bool {
	if req.Signature == "" {
		return true
	}
	data := fmt.Sprintf("%d:%s", auctionID, req.Amount)
	if !utils.VerifySignature(req.BidderAddr, data, req.Signature) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "签名验证失败",
		})
		return false
	}
	return true
}

// CreateAuction 创建拍卖
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var req service.CreateAuctionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}

	auctionID, err := h.auctionService.CreateAuction(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"auction_id": auctionID})
}

// Bid 原生币出价
func (h *AuctionHandler) Bid(c *gin.Context) {
	auctionID, valid := parseAuctionID(c)
	if !valid {
		return
	}

	var req BidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}
	if !verifyBidSignature(c, auctionID, req) {
		return
	}

	if err := h.auctionService.Bid(c.Request.Context(), auctionID, req.BidderAddr, req.Amount, req.DepositTxHash); err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"auction_id": auctionID, "amount": req.Amount})
}

// BidWithToken ERC20出价
func (h *AuctionHandler) BidWithToken(c *gin.Context) {
	auctionID, valid := parseAuctionID(c)
	if !valid {
		return
	}

	var req BidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}
	if !verifyBidSignature(c, auctionID, req) {
		return
	}

	if err := h.auctionService.BidWithToken(c.Request.Context(), auctionID, req.BidderAddr, req.Amount); err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"auction_id": auctionID, "amount": req.Amount})
}

// EndAuction 结束拍卖
func (h *AuctionHandler) EndAuction(c *gin.Context) {
	auctionID, valid := parseAuctionID(c)
	if !valid {
		return
	}

	var req EndAuctionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}

	settlement, err := h.auctionService.EndAuction(c.Request.Context(), auctionID, req.CallerAddr)
	if err != nil {
		fail(c, err)
		return
	}

	// 流拍时无结算记录
	if settlement == nil {
		ok(c, gin.H{"auction_id": auctionID})
		return
	}
	ok(c, gin.H{"auction_id": auctionID, "trade_no": settlement.TradeNo, "settlement": settlement})
}

// GetAuction 查询拍卖记录
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auctionID, valid := parseAuctionID(c)
	if !valid {
		return
	}

	auction, err := h.auctionService.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, auction)
}

// Withdraw 提取全部待退款
func (h *AuctionHandler) Withdraw(c *gin.Context) {
	var req WithdrawReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		badRequest(c, err)
		return
	}

	amount, err := h.escrowService.Withdraw(c.Request.Context(), req.AccountAddr)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"account_addr": req.AccountAddr, "amount": amount})
}

// GetPendingReturn 查询待退款余额
func (h *AuctionHandler) GetPendingReturn(c *gin.Context) {
	account := c.Query("account_addr")
	if account == "" {
		badRequest(c, fmt.Errorf("缺少account_addr"))
		return
	}

	amount, err := h.escrowService.PendingOf(c.Request.Context(), account)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"account_addr": account, "amount": amount})
}

// GetUSDValue 计算(代币, 金额)的美元估值
func (h *AuctionHandler) GetUSDValue(c *gin.Context) {
	token := c.Query("payment_token") // 空=原生币
	amountStr := c.Query("amount")

	amount, err := service.ParseWei(amountStr)
	if err != nil {
		badRequest(c, err)
		return
	}

	quote, err := h.pricingService.USDValue(c.Request.Context(), token, amount)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{
		"usd_value":  quote.Value.String(),
		"decimals":   quote.Decimals,
		"display":    quote.Display.String(),
		"updated_at": quote.UpdatedAt,
	})
}

// ListSettlements 查询结算记录
func (h *AuctionHandler) ListSettlements(c *gin.Context) {
	// 解析查询参数
	userAddr := c.Query("user_addr")
	auctionIDStr := c.Query("auction_id")
	pageStr := c.Query("page")
	pageSizeStr := c.Query("page_size")

	// 转换类型
	auctionID, _ := strconv.ParseUint(auctionIDStr, 10, 64)
	page, _ := strconv.Atoi(pageStr)
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(pageSizeStr)
	if pageSize <= 0 {
		pageSize = 10
	}

	req := service.ListSettlementsReq{
		UserAddr:  userAddr,
		AuctionID: auctionID,
		Page:      page,
		PageSize:  pageSize,
	}

	records, total, err := h.auctionService.ListSettlements(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
