package service

import (
	"errors"
)

// 所有失败条件均为命名错误，同步返回给调用方，不做静默降级。
// 任一错误都意味着本次操作未产生任何状态变更（全有或全无）。
var (
	// 权限类
	ErrNotOwner     = errors.New("不是NFT所有者")
	ErrNotApproved  = errors.New("NFT未授权平台转移")
	ErrUnauthorized = errors.New("无管理员权限")

	// 校验类
	ErrInvalidDuration      = errors.New("拍卖时长必须大于0")
	ErrInvalidStartingPrice = errors.New("起拍价必须大于0")
	ErrInvalidAmount        = errors.New("金额非法")
	ErrFeeRateTooHigh       = errors.New("手续费率超过上限")
	ErrInvalidFeeRecipient  = errors.New("手续费接收地址不能为空")
	ErrInvalidFeedAddr      = errors.New("预言机地址不能为空")
	ErrBidTooLow            = errors.New("出价过低")
	ErrWrongPaymentPath     = errors.New("支付方式与拍卖计价不符")

	// 状态冲突类
	ErrAuctionNotFound = errors.New("拍卖不存在")
	ErrAuctionEnded    = errors.New("拍卖已结束")
	ErrAlreadyEnded    = errors.New("拍卖已被结束过")
	ErrAuctionNotOver  = errors.New("拍卖尚未到期")

	// 资源类
	ErrNothingToWithdraw = errors.New("没有可提取的退款")
	ErrFeedNotRegistered = errors.New("该代币未登记价格预言机")
	ErrInvalidPrice      = errors.New("预言机价格非法")

	// 算术类
	ErrArithmeticOverflow = errors.New("金额溢出")

	// 初始化/升级类
	ErrAlreadyInitialized = errors.New("平台配置已初始化")
	ErrNotInitialized     = errors.New("平台配置未初始化")
	ErrInvalidVersion     = errors.New("版本标记非法")
)
