/*
 * @module service/task/task_service
 * @description 工单任务服务，提供任务的增删改查、过滤分页和消息计数
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 任务创建(logged) -> 处理(ongoing) -> 审阅(reviewed)/阻塞(blocked) -> 关闭(closed)
 * @rules 新建任务状态强制为 logged；删除任务级联清理消息与审查记录
 * @dependencies gorm.io/gorm
 * @refs service/models/task.go, api/controllers/task_controller.go
 */

package task

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"ticketdesk-service/service/models"
)

// Service 任务服务
type Service struct {
	db *gorm.DB
}

// NewService 创建任务服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListQuery 任务列表查询参数
type ListQuery struct {
	Page     int
	Limit    int
	Status   string
	Priority string
	Search   string
}

// TaskWithCount 任务及其消息计数
type TaskWithCount struct {
	models.Task
	MessageCount int64 `json:"messageCount"`
}

// List 分页查询任务，支持状态、优先级过滤和关键字搜索
func (s *Service) List(q ListQuery) ([]TaskWithCount, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}

	query := s.db.Model(&models.Task{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Priority != "" {
		query = query.Where("priority = ?", q.Priority)
	}
	if q.Search != "" {
		term := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(requester_name) LIKE ?",
			term, term, term,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计任务数失败: %w", err)
	}

	var tasks []models.Task
	err := query.Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询任务列表失败: %w", err)
	}

	out := make([]TaskWithCount, 0, len(tasks))
	for _, t := range tasks {
		var count int64
		if err := s.db.Model(&models.Message{}).Where("task_id = ?", t.ID).Count(&count).Error; err != nil {
			return nil, 0, fmt.Errorf("统计任务消息数失败: %w", err)
		}
		out = append(out, TaskWithCount{Task: t, MessageCount: count})
	}

	return out, total, nil
}

// Get 按ID查询任务
func (s *Service) Get(id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Create 创建任务，初始状态固定为 logged
func (s *Service) Create(task *models.Task) error {
	task.ID = ""
	task.Status = models.TaskStatusLogged
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}

	if err := s.db.Create(task).Error; err != nil {
		return fmt.Errorf("创建任务失败: %w", err)
	}
	return nil
}

// Update 按ID局部更新任务字段
func (s *Service) Update(id string, updates map[string]interface{}) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}

	// 身份与创建时间不可改
	delete(updates, "id")
	delete(updates, "created_at")

	if err := s.db.Model(&task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新任务失败: %w", err)
	}

	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete 删除任务并级联清理关联数据
func (s *Service) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Task{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("删除任务失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Delete(&models.Message{}, "task_id = ?", id).Error; err != nil {
			return fmt.Errorf("清理任务消息失败: %w", err)
		}
		if err := tx.Delete(&models.QAReview{}, "task_id = ?", id).Error; err != nil {
			return fmt.Errorf("清理审查记录失败: %w", err)
		}
		if err := tx.Delete(&models.TaskSummary{}, "task_id = ?", id).Error; err != nil {
			return fmt.Errorf("清理会话摘要失败: %w", err)
		}
		return nil
	})
}

// Context 提取任务上下文，任务不存在时给出占位上下文
func (s *Service) Context(id string) models.TaskContext {
	task, err := s.Get(id)
	if err != nil {
		return models.TaskContext{
			Title:         fmt.Sprintf("Task %s", id),
			Status:        models.TaskStatusLogged,
			Priority:      models.TaskPriorityMedium,
			RequesterName: "Unknown User",
		}
	}
	return task.Context()
}
