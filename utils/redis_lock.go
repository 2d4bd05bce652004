package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	// 为原生Redis客户端添加别名，解决命名冲突
	goredis "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"

	// 为redsync的redis接口包添加别名，避免冲突
	goredisadapter "github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// RedisClient 全局Redis客户端（导出，供外部包直接使用）
var RedisClient *goredis.Client

// Redisync 全局RedSync实例（用于RedLock分布式锁）
var Redisync *redsync.Redsync

// InitRedis 初始化Redis客户端与RedSync（需在程序启动时调用）
// 参数：addr(Redis地址)、password(Redis密码)、db(Redis数据库编号)
func InitRedis(addr, password string, db int) error {
	// 1. 初始化全局Redis客户端
	RedisClient = goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		// 可选：配置连接池（生产环境建议添加）
		PoolSize: 10,
	})

	// 校验Redis连接可用性
	if err := RedisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	// 2. 初始化RedSync（多实例部署时的分布式锁）
	adapterPool := goredisadapter.NewPool(RedisClient)
	Redisync = redsync.New(adapterPool)

	return nil
}

// GetRedisLock 获取RedSync分布式锁（支持多Redis节点的RedLock算法）
// 参数：ctx(上下文)、key(锁键)、expire(锁过期时间)
// 返回：mutex(锁实例)、error(加锁失败原因)
func GetRedisLock(ctx context.Context, key string, expire time.Duration) (*redsync.Mutex, error) {
	if Redisync == nil {
		return nil, errors.New("redsync not initialized")
	}

	// 创建Mutex实例（指定过期时间）
	mutex := Redisync.NewMutex(key, redsync.WithExpiry(expire))
	// 加锁（支持上下文）
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("redsync lock failed: %w", err)
	}

	return mutex, nil
}

// ReleaseRedisLock 释放RedSync分布式锁
// 参数：mutex(锁实例)
// 返回：error(解锁失败原因，包括锁已过期)
func ReleaseRedisLock(mutex *redsync.Mutex) error {
	if mutex == nil {
		return errors.New("mutex is nil")
	}

	// Unlock返回：bool(是否解锁成功)、error(执行错误)
	ok, err := mutex.Unlock()
	if err != nil {
		return fmt.Errorf("redsync unlock failed: %w", err)
	}
	if !ok {
		return errors.New("mutex has expired or not held")
	}

	return nil
}
