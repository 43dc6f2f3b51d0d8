/*
 * @module service/chat/chat_service
 * @description 任务聊天服务，提供消息收发、附件汇总，并在命中触发词时发起质量审查
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 消息校验 -> 持久化 -> 房间推送 -> （命中 @QAreview 时）异步质量审查 -> 审查事件推送
 * @rules 消息发送成功与否不受质量审查影响；审查在后台执行，结果经事件通道通知
 * @dependencies gorm.io/gorm
 * @refs service/qa/, service/event/, api/controllers/chat_controller.go
 */

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"gorm.io/gorm"

	"ticketdesk-service/service/event"
	"ticketdesk-service/service/models"
	"ticketdesk-service/service/qa"
	"ticketdesk-service/service/rate_limiter"
	"ticketdesk-service/service/task"
)

// 质量审查触发词
var qaTriggerPattern = regexp.MustCompile(`(?i)@QAreview`)

// 后台质量审查的超时
const reviewTimeout = 60 * time.Second

// Service 聊天服务
type Service struct {
	db      *gorm.DB
	tasks   *task.Service
	qa      *qa.Service
	events  *event.EventService
	limiter *rate_limiter.MessageRateLimiter
}

// NewService 创建聊天服务
func NewService(db *gorm.DB, tasks *task.Service, qaSvc *qa.Service, events *event.EventService) *Service {
	return &Service{db: db, tasks: tasks, qa: qaSvc, events: events}
}

// SetRateLimiter 设置消息发送限流器，nil 表示不限流
func (s *Service) SetRateLimiter(limiter *rate_limiter.MessageRateLimiter) {
	s.limiter = limiter
}

// SendInput 消息发送入参
type SendInput struct {
	SenderName  string            `json:"sender_name"`
	SenderEmail string            `json:"sender_email"`
	Content     string            `json:"content"`
	MessageType string            `json:"message_type"`
	Attachments []AttachmentInput `json:"attachments"`
}

// AttachmentInput 附件入参
type AttachmentInput struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
}

// List 分页查询任务消息，按创建时间正序
func (s *Service) List(taskID string, page, limit int) ([]models.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var total int64
	if err := s.db.Model(&models.Message{}).Where("task_id = ?", taskID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计消息数失败: %w", err)
	}

	var messages []models.Message
	err := s.db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询消息失败: %w", err)
	}
	return messages, total, nil
}

// Send 发送消息：持久化、房间推送，命中触发词时发起后台质量审查
// 第二个返回值表示本条消息是否触发了质量审查，审查结果经 qa_review_completed 事件下发
func (s *Service) Send(taskID string, input SendInput) (*models.Message, bool, error) {
	if input.SenderName == "" {
		return nil, false, fmt.Errorf("发送者名称不能为空")
	}
	if input.Content == "" && len(input.Attachments) == 0 {
		return nil, false, fmt.Errorf("消息内容和附件不能同时为空")
	}

	if s.limiter != nil {
		result, err := s.limiter.Check(context.Background(), taskID, input.SenderName)
		if err == nil && !result.Allowed {
			return nil, false, fmt.Errorf("%s", result.Message)
		}
	}

	now := time.Now()
	attachments := make(models.AttachmentArray, 0, len(input.Attachments))
	for _, a := range input.Attachments {
		attachments = append(attachments, models.Attachment{
			Filename:   a.Filename,
			URL:        a.URL,
			Type:       a.Type,
			Size:       a.Size,
			UploadedAt: now,
		})
	}

	messageType := input.MessageType
	if len(attachments) > 0 {
		messageType = models.MessageTypeFile
	} else if messageType == "" {
		messageType = models.MessageTypeText
	}

	message := &models.Message{
		TaskID:      taskID,
		SenderName:  input.SenderName,
		SenderEmail: input.SenderEmail,
		Content:     input.Content,
		MessageType: messageType,
		Attachments: attachments,
	}

	if err := s.db.Create(message).Error; err != nil {
		return nil, false, fmt.Errorf("保存消息失败: %w", err)
	}

	s.publishNewMessage(message)

	// 触发词命中时后台执行质量审查，不阻塞发送
	qaTriggered := qaTriggerPattern.MatchString(message.Content)
	if qaTriggered {
		go s.runQAReview(message)
	}

	return message, qaTriggered, nil
}

// publishNewMessage 推送新消息事件和消息计数更新事件
func (s *Service) publishNewMessage(message *models.Message) {
	s.events.Publish(message.TaskID, models.EventNewMessage, map[string]interface{}{
		"message": message,
	})

	var count int64
	if err := s.db.Model(&models.Message{}).Where("task_id = ?", message.TaskID).Count(&count).Error; err != nil {
		slog.Error("统计任务消息数失败", "task_id", message.TaskID, "error", err)
		return
	}
	s.events.Publish(message.TaskID, models.EventMessageCountUpdated, map[string]interface{}{
		"taskId":       message.TaskID,
		"messageCount": count,
	})
}

// runQAReview 后台执行质量审查并推送结果事件
func (s *Service) runQAReview(message *models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), reviewTimeout)
	defer cancel()

	taskCtx := s.tasks.Context(message.TaskID)
	history, err := s.History(message.TaskID)
	if err != nil {
		slog.Error("获取会话历史失败，审查继续", "task_id", message.TaskID, "error", err)
		history = nil
	}

	review, err := s.qa.ReviewAndSave(ctx, message.ID, message.TaskID, message.Content, taskCtx, history)
	if err != nil {
		slog.Error("质量审查失败", "message_id", message.ID, "error", err)
		// 审查失败不影响已发送的消息，失败说明经事件下发
		s.events.Publish(message.TaskID, models.EventQAReviewCompleted, map[string]interface{}{
			"messageId": message.ID,
			"taskId":    message.TaskID,
			"error":     "QA review failed but message was sent successfully",
			"timestamp": time.Now(),
		})
		return
	}

	s.events.Publish(message.TaskID, models.EventQAReviewCompleted, map[string]interface{}{
		"messageId": message.ID,
		"taskId":    message.TaskID,
		"qaResult":  review,
		"timestamp": time.Now(),
	})
	s.events.Publish(message.TaskID, models.EventQAStatsUpdated, map[string]interface{}{
		"taskId":      message.TaskID,
		"timestamp":   time.Now(),
		"triggeredBy": "message_trigger",
	})
}

// Delete 删除指定消息
func (s *Service) Delete(taskID, messageID string) error {
	result := s.db.Where("id = ? AND task_id = ?", messageID, taskID).Delete(&models.Message{})
	if result.Error != nil {
		return fmt.Errorf("删除消息失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// History 获取任务的完整会话历史，按创建时间正序
func (s *Service) History(taskID string) ([]models.ConversationTurn, error) {
	var messages []models.Message
	err := s.db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("查询会话历史失败: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, m.Turn())
	}
	return turns, nil
}

// TaskAttachment 附件及其来源消息信息
type TaskAttachment struct {
	models.Attachment
	MessageID string    `json:"messageId"`
	SentBy    string    `json:"sentBy"`
	SentAt    time.Time `json:"sentAt"`
}

// Attachments 汇总任务下所有消息的附件
func (s *Service) Attachments(taskID string) ([]TaskAttachment, error) {
	var messages []models.Message
	err := s.db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}

	var attachments []TaskAttachment
	for _, m := range messages {
		for _, a := range m.Attachments {
			attachments = append(attachments, TaskAttachment{
				Attachment: a,
				MessageID:  m.ID,
				SentBy:     m.SenderName,
				SentAt:     m.CreatedAt,
			})
		}
	}
	return attachments, nil
}

// Get 按ID查询消息
func (s *Service) Get(messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.First(&message, "id = ?", messageID).Error; err != nil {
		return nil, err
	}
	return &message, nil
}
