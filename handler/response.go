package handler

import (
	"errors"
	"net/http"

	"nft_auction/service"

	"github.com/gin-gonic/gin"
)

// ok 成功响应
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": data,
	})
}

// fail 失败响应（按错误类别映射HTTP状态码）
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	// 校验类
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidStartingPrice),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidFeedAddr),
		errors.Is(err, service.ErrInvalidFeeRecipient),
		errors.Is(err, service.ErrInvalidVersion),
		errors.Is(err, service.ErrFeeRateTooHigh),
		errors.Is(err, service.ErrBidTooLow),
		errors.Is(err, service.ErrWrongPaymentPath),
		errors.Is(err, service.ErrArithmeticOverflow):
		status = http.StatusBadRequest
	// 权限类
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotApproved),
		errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	// 资源类
	case errors.Is(err, service.ErrAuctionNotFound),
		errors.Is(err, service.ErrFeedNotRegistered):
		status = http.StatusNotFound
	// 状态冲突类
	case errors.Is(err, service.ErrAuctionEnded),
		errors.Is(err, service.ErrAlreadyEnded),
		errors.Is(err, service.ErrAuctionNotOver),
		errors.Is(err, service.ErrNothingToWithdraw),
		errors.Is(err, service.ErrAlreadyInitialized):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"code": status,
		"msg":  err.Error(),
	})
}

// badRequest 参数绑定失败响应
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code": 400,
		"msg":  err.Error(),
	})
}
