package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateTradeNo 生成结算编号：{时间戳毫秒}-{UUID后8位}
func GenerateTradeNo() string {
	ts := time.Now().UnixMilli()
	uuidStr := uuid.New().String()
	shortUUID := uuidStr[len(uuidStr)-8:]
	return fmt.Sprintf("%d-%s", ts, shortUUID)
}
