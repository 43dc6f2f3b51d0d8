/*
 * @module service/models/task
 * @description 工单相关模型定义，包括工单状态、优先级和标签
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 工单生命周期：logged -> ongoing -> reviewed -> done，blocked 可从任意状态进入
 * @rules 工单创建后状态默认为 logged，状态流转由调用方控制
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/task/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 工单状态
const (
	TaskStatusLogged   = "logged"
	TaskStatusOngoing  = "ongoing"
	TaskStatusReviewed = "reviewed"
	TaskStatusDone     = "done"
	TaskStatusBlocked  = "blocked"
)

// 工单优先级
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// Task 工单模型
type Task struct {
	ID             string           `gorm:"type:uuid;primary_key" json:"id"`
	Title          string           `gorm:"not null" json:"title"`
	Description    string           `json:"description"`
	RequesterName  string           `gorm:"not null;size:100" json:"requester_name"`
	RequesterEmail string           `gorm:"size:200" json:"requester_email"`
	AssignedTo     string           `gorm:"size:100" json:"assigned_to"`
	Status         string           `gorm:"not null;default:'logged';index" json:"status"` // logged/ongoing/reviewed/done/blocked
	Priority       string           `gorm:"not null;default:'medium';index" json:"priority"`
	Tags           JSONBStringArray `gorm:"type:jsonb" json:"tags"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate 创建前钩子
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TaskStatusLogged
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	return nil
}

// TaskContext 质量审查使用的工单上下文快照
// 只携带审查提示所需的最小字段集
type TaskContext struct {
	Title         string `json:"title"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	RequesterName string `json:"requester_name"`
}

// Context 从工单构造审查上下文
func (t *Task) Context() TaskContext {
	return TaskContext{
		Title:         t.Title,
		Status:        t.Status,
		Priority:      t.Priority,
		RequesterName: t.RequesterName,
	}
}
