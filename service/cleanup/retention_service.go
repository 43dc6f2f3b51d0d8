/*
 * @module service/cleanup/retention_service
 * @description 数据保留清理服务，定期清理过期的SSE事件、连接记录和审查记录
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/realtime.md
 * @stateFlow 定时触发 -> 读取保留配置 -> 按截止日期删除 -> 记录结果
 * @rules 清理失败不影响服务运行；保留天数通过环境变量配置
 * @dependencies gorm.io/gorm, github.com/robfig/cron/v3, github.com/spf13/cast
 * @refs service/models/event.go, service/models/qa.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"ticketdesk-service/service/distributed_lock"
	"ticketdesk-service/service/models"
)

// 默认保留天数
const (
	DefaultEventRetentionDays      = 7
	DefaultConnectionRetentionDays = 30
	DefaultReviewRetentionDays     = 90
)

// 多实例部署时清理任务的互斥锁
const cleanupLockKey = "ticketdesk:cleanup:lock"

// RetentionService 数据保留清理服务
type RetentionService struct {
	db      *gorm.DB
	cron    *cron.Cron
	lock    distributed_lock.DistributedLock
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewRetentionService 创建数据保留清理服务实例
func NewRetentionService(db *gorm.DB) *RetentionService {
	ctx, cancel := context.WithCancel(context.Background())

	return &RetentionService{
		db:     db,
		cron:   cron.New(cron.WithSeconds()),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetLock 设置分布式锁，nil 表示单实例部署无需防重
func (s *RetentionService) SetLock(lock distributed_lock.DistributedLock) {
	s.lock = lock
}

// retentionDays 读取保留天数配置，非法值回退默认值
func retentionDays(envKey string, defaultDays int) int {
	if val := os.Getenv(envKey); val != "" {
		if days := cast.ToInt(val); days > 0 {
			return days
		}
	}
	return defaultDays
}

// CleanupExpired 清理所有过期数据
func (s *RetentionService) CleanupExpired(ctx context.Context) error {
	slog.Info("开始清理过期数据")
	startTime := time.Now()

	eventDays := retentionDays("SSE_EVENT_RETENTION_DAYS", DefaultEventRetentionDays)
	eventsDeleted, err := s.cleanupEvents(ctx, eventDays)
	if err != nil {
		slog.Error("清理SSE事件失败", "error", err)
	} else {
		slog.Info("清理SSE事件完成", "deleted_count", eventsDeleted, "retention_days", eventDays)
	}

	connDays := retentionDays("SSE_CONNECTION_RETENTION_DAYS", DefaultConnectionRetentionDays)
	connsDeleted, err := s.cleanupConnections(ctx, connDays)
	if err != nil {
		slog.Error("清理SSE连接记录失败", "error", err)
	} else {
		slog.Info("清理SSE连接记录完成", "deleted_count", connsDeleted, "retention_days", connDays)
	}

	reviewDays := retentionDays("QA_REVIEW_RETENTION_DAYS", DefaultReviewRetentionDays)
	reviewsDeleted, err := s.cleanupReviews(ctx, reviewDays)
	if err != nil {
		slog.Error("清理审查记录失败", "error", err)
	} else {
		slog.Info("清理审查记录完成", "deleted_count", reviewsDeleted, "retention_days", reviewDays)
	}

	slog.Info("数据清理完成",
		"events_deleted", eventsDeleted,
		"connections_deleted", connsDeleted,
		"reviews_deleted", reviewsDeleted,
		"duration_ms", time.Since(startTime).Milliseconds())

	return nil
}

// cleanupEvents 清理过期的SSE事件
func (s *RetentionService) cleanupEvents(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SSEEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除SSE事件失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// cleanupConnections 清理过期且已关闭的SSE连接记录
func (s *RetentionService) cleanupConnections(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.Where("connected_at < ? AND is_active = ?", cutoff, false).
		Delete(&models.SSEConnection{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除SSE连接记录失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// cleanupReviews 清理过期的审查记录
func (s *RetentionService) cleanupReviews(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.QAReview{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除审查记录失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *RetentionService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("数据清理调度器已经启动")
	}

	slog.Info("启动数据清理调度器")

	// 每天凌晨3点执行清理
	// Cron表达式：秒 分 时 日 月 周
	_, err := s.cron.AddFunc("0 0 3 * * *", func() {
		if s.lock != nil {
			acquired, err := s.lock.TryLock(s.ctx, cleanupLockKey, 10*time.Minute)
			if err != nil {
				slog.Error("获取清理任务锁失败", "error", err)
				return
			}
			if !acquired {
				slog.Info("清理任务已由其他实例执行，本次跳过")
				return
			}
			defer s.lock.Unlock(s.ctx, cleanupLockKey)
		}

		if err := s.CleanupExpired(s.ctx); err != nil {
			slog.Error("定时数据清理任务失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("数据清理调度器启动成功，将于每天凌晨3点执行清理任务")
	return nil
}

// StopScheduledCleanup 停止定时清理任务
func (s *RetentionService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.started = false

	slog.Info("数据清理调度器已停止")
}
