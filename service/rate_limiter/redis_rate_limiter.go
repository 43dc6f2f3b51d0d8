/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的分布式限流服务，限制单个用户在任务房间内的发消息频率
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference dev_docs/requirements.md
 * @stateFlow 检查限流规则 -> Redis计数 -> 判断是否超限
 * @rules 使用Redis INCR和EXPIRE实现固定窗口限流，Redis不可用时放行
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/chat/chat_service.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
)

const (
	// DefaultWindowSeconds 默认限流时间窗口（秒）
	DefaultWindowSeconds = 60
	// DefaultMaxMessages 默认时间窗口内最大消息数
	DefaultMaxMessages = 30
)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed   bool   `json:"allowed"`   // 是否允许请求
	Limit     int    `json:"limit"`     // 限制数量
	Remaining int    `json:"remaining"` // 剩余数量
	ResetAt   int64  `json:"reset_at"`  // 重置时间（Unix时间戳）
	Message   string `json:"message"`   // 提示信息
}

// MessageRateLimiter 消息发送限流器
type MessageRateLimiter struct {
	client      *redis.Client
	window      time.Duration
	maxMessages int
}

// NewMessageRateLimiter 创建消息限流器，REDIS_ADDR 未配置时返回错误
func NewMessageRateLimiter() (*MessageRateLimiter, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("未配置 REDIS_ADDR")
	}

	windowSeconds := DefaultWindowSeconds
	if val := os.Getenv("MESSAGE_RATE_WINDOW_SECONDS"); val != "" {
		if n := cast.ToInt(val); n > 0 {
			windowSeconds = n
		}
	}
	maxMessages := DefaultMaxMessages
	if val := os.Getenv("MESSAGE_RATE_MAX"); val != "" {
		if n := cast.ToInt(val); n > 0 {
			maxMessages = n
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("消息限流器初始化成功",
		"window_seconds", windowSeconds,
		"max_messages", maxMessages)

	return &MessageRateLimiter{
		client:      client,
		window:      time.Duration(windowSeconds) * time.Second,
		maxMessages: maxMessages,
	}, nil
}

// Check 检查发送者在任务房间内的消息频率
func (l *MessageRateLimiter) Check(ctx context.Context, taskID, senderName string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ticketdesk:rate:%s:%s", taskID, senderName)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		// Redis故障时放行，限流只做保护不阻断业务
		slog.Error("限流计数失败", "key", key, "error", err)
		return &RateLimitResult{Allowed: true, Limit: l.maxMessages}, nil
	}

	// 首次计数时设置窗口过期
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}

	ttl, _ := l.client.TTL(ctx, key).Result()
	resetAt := time.Now().Add(ttl).Unix()

	if int(count) > l.maxMessages {
		return &RateLimitResult{
			Allowed:   false,
			Limit:     l.maxMessages,
			Remaining: 0,
			ResetAt:   resetAt,
			Message:   fmt.Sprintf("发送过于频繁，每%d秒最多发送%d条消息", int(l.window.Seconds()), l.maxMessages),
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Limit:     l.maxMessages,
		Remaining: l.maxMessages - int(count),
		ResetAt:   resetAt,
	}, nil
}

// Close 关闭Redis连接
func (l *MessageRateLimiter) Close() error {
	return l.client.Close()
}
