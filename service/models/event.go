/*
 * @module service/models/event
 * @description 事件管理相关模型定义，包括任务房间的SSE事件与连接记录
 * @architecture 事件驱动架构 - 数据模型层
 * @documentReference dev_docs/realtime.md
 * @stateFlow 事件生产 -> 任务房间分发 -> 客户端推送
 * @rules 事件按任务房间投递，持久化用于历史回溯与清理
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/event/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 事件类型
const (
	EventNewMessage          = "new_message"
	EventMessageCountUpdated = "task_message_count_updated"
	EventQAReviewCompleted   = "qa_review_completed"
	EventQAStatsUpdated      = "qa_stats_updated"
	EventUserJoined          = "user_joined"
	EventUserLeft            = "user_left"
)

// SSEEvent 任务房间SSE事件模型
type SSEEvent struct {
	ID        string     `gorm:"type:uuid;primary_key" json:"id"`
	TaskID    string     `gorm:"not null;index" json:"task_id"`
	EventType string     `gorm:"not null" json:"event_type"`
	Data      JSONB      `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	Sent      bool       `gorm:"not null;default:false" json:"sent"`
	SentAt    *time.Time `json:"sent_at"`
}

// BeforeCreate 创建前钩子
func (s *SSEEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// SSEConnection SSE连接记录模型
type SSEConnection struct {
	ID           string     `gorm:"type:uuid;primary_key" json:"id"`
	TaskID       string     `gorm:"not null;index" json:"task_id"`
	UserName     string     `gorm:"not null;index" json:"user_name"`
	ConnectionID string     `gorm:"not null;unique" json:"connection_id"`
	ClientIP     string     `json:"client_ip"`
	ConnectedAt  time.Time  `gorm:"not null" json:"connected_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate 创建前钩子
func (c *SSEConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
