/*
 * @module service/models/summary
 * @description 会话摘要模型定义，包括摘要文本与抽取出的实体信息
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 会话分析 -> 摘要生成 -> 持久化
 * @rules 每次生成产生一条新记录，最新记录代表当前摘要
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/summary/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SummaryEntities 摘要中抽取的实体集合
type SummaryEntities struct {
	PhoneNumbers []string `json:"phoneNumbers"`
	Emails       []string `json:"emails"`
	URLs         []string `json:"urls"`
	KeyPeople    []string `json:"keyPeople"`
	Technologies []string `json:"technologies"`
	Deadlines    []string `json:"deadlines"`
	ActionItems  []string `json:"actionItems"`
}

// TaskSummary 工单会话摘要模型
type TaskSummary struct {
	ID           string    `gorm:"type:uuid;primary_key" json:"id"`
	TaskID       string    `gorm:"not null;index" json:"task_id"`
	Summary      string    `gorm:"not null" json:"summary"`
	Entities     JSONB     `gorm:"type:jsonb" json:"entities"`
	MessageCount int       `gorm:"not null;default:0" json:"message_count"`
	GeneratedBy  string    `gorm:"not null;default:'ai'" json:"generated_by"` // ai/fallback
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate 创建前钩子
func (s *TaskSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
