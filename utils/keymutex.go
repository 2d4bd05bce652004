package utils

import (
	"sync"
)

// KeyMutex 按键互斥锁
// 每个拍卖、每个托管账户各一把锁，保证同一实体上的变更操作串行执行
// （检查→改内部状态→外部调用 的顺序依赖该串行性）。
// 锁条目不回收：键空间以拍卖ID和账户地址为界，量级可控。
type KeyMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// NewKeyMutex 创建KeyMutex
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{}
}

// Lock 对指定键加锁
func (km *KeyMutex) Lock(key string) {
	m, _ := km.locks.LoadOrStore(key, &sync.Mutex{})
	m.(*sync.Mutex).Lock()
}

// Unlock 对指定键解锁
func (km *KeyMutex) Unlock(key string) {
	m, ok := km.locks.Load(key)
	if !ok {
		return
	}
	m.(*sync.Mutex).Unlock()
}
