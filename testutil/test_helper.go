/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ticketdesk-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Task{},
		&models.Message{},
		&models.QARule{},
		&models.QAReview{},
		&models.TaskSummary{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"tasks",
		"messages",
		"qa_rules",
		"qa_reviews",
		"task_summaries",
		"sse_events",
		"sse_connections",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	db *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{db: db}
}

// CreateTask 创建测试任务
func (f *TestDataFactory) CreateTask(opts ...func(*models.Task)) *models.Task {
	task := &models.Task{
		Title:          "Test task",
		Description:    "Task created for testing",
		RequesterName:  "Test User",
		RequesterEmail: "test@example.com",
		Status:         models.TaskStatusLogged,
		Priority:       models.TaskPriorityMedium,
	}
	for _, opt := range opts {
		opt(task)
	}
	if err := f.db.Create(task).Error; err != nil {
		panic(fmt.Sprintf("failed to create test task: %v", err))
	}
	return task
}

// CreateMessage 创建测试消息
func (f *TestDataFactory) CreateMessage(taskID string, opts ...func(*models.Message)) *models.Message {
	message := &models.Message{
		TaskID:      taskID,
		SenderName:  "Test User",
		SenderEmail: "test@example.com",
		Content:     "Test message content",
		MessageType: models.MessageTypeText,
	}
	for _, opt := range opts {
		opt(message)
	}
	if err := f.db.Create(message).Error; err != nil {
		panic(fmt.Sprintf("failed to create test message: %v", err))
	}
	return message
}

// CreateReview 创建测试审查记录
func (f *TestDataFactory) CreateReview(taskID, messageID string, opts ...func(*models.QAReview)) *models.QAReview {
	review := &models.QAReview{
		MessageID:      messageID,
		TaskID:         taskID,
		MessageContent: "Test message content",
		Score:          8.0,
		Feedback:       "Looks good",
		Category:       models.QACategoryApproved,
		Status:         "approved",
	}
	for _, opt := range opts {
		opt(review)
	}
	if err := f.db.Create(review).Error; err != nil {
		panic(fmt.Sprintf("failed to create test review: %v", err))
	}
	return review
}

// WithCreatedAt 设置审查记录创建时间
func WithCreatedAt(t time.Time) func(*models.QAReview) {
	return func(r *models.QAReview) {
		r.CreatedAt = t
	}
}
