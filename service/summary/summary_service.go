/*
 * @module service/summary/summary_service
 * @description 会话摘要服务，调用Anthropic模型生成任务会话摘要与实体抽取，失败时生成统计型兜底摘要
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 会话拼接 -> 模型调用 -> JSON解析 -> 失败兜底 -> 持久化
 * @rules 摘要生成永不失败：模型不可用时退化为基于消息统计的兜底摘要
 * @dependencies github.com/anthropics/anthropic-sdk-go, gorm.io/gorm
 * @refs service/models/summary.go, api/controllers/summary_controller.go
 */

package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"gorm.io/gorm"

	"ticketdesk-service/service/models"
)

const summaryModel = "claude-3-5-sonnet-20241022"

// Service 会话摘要服务
type Service struct {
	db      *gorm.DB
	client  anthropic.Client
	enabled bool
}

// NewService 创建摘要服务，按环境变量决定是否启用模型调用
func NewService(db *gorm.DB) *Service {
	s := &Service{db: db}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		slog.Info("未配置 ANTHROPIC_API_KEY，会话摘要使用兜底生成")
		return s
	}

	s.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	s.enabled = true
	return s
}

// Generate 为任务生成会话摘要并持久化
func (s *Service) Generate(ctx context.Context, task *models.Task) (*models.TaskSummary, error) {
	var messages []models.Message
	err := s.db.Where("task_id = ?", task.ID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("查询任务消息失败: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("任务没有消息，无法生成摘要")
	}

	text, entities, generatedBy := s.summarize(ctx, task, messages)

	entityMap := map[string]interface{}{
		"phoneNumbers": entities.PhoneNumbers,
		"emails":       entities.Emails,
		"urls":         entities.URLs,
		"keyPeople":    entities.KeyPeople,
		"technologies": entities.Technologies,
		"deadlines":    entities.Deadlines,
		"actionItems":  entities.ActionItems,
	}

	record := &models.TaskSummary{
		TaskID:       task.ID,
		Summary:      text,
		Entities:     models.JSONB(entityMap),
		MessageCount: len(messages),
		GeneratedBy:  generatedBy,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("保存摘要失败: %w", err)
	}
	return record, nil
}

// Latest 查询任务的最新摘要
func (s *Service) Latest(taskID string) (*models.TaskSummary, error) {
	var record models.TaskSummary
	err := s.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// summarize 生成摘要文本和实体，模型失败时使用兜底摘要
func (s *Service) summarize(ctx context.Context, task *models.Task, messages []models.Message) (string, models.SummaryEntities, string) {
	if s.enabled {
		text, entities, err := s.generateAISummary(ctx, task, messages)
		if err == nil {
			return text, entities, "ai"
		}
		slog.Error("AI摘要生成失败，使用兜底摘要", "task_id", task.ID, "error", err)
	}

	return fallbackSummary(task, messages), fallbackEntities(messages), "fallback"
}

// generateAISummary 调用模型生成摘要并解析JSON响应
func (s *Service) generateAISummary(ctx context.Context, task *models.Task, messages []models.Message) (string, models.SummaryEntities, error) {
	prompt := buildSummaryPrompt(task, messages)

	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       summaryModel,
		MaxTokens:   800,
		Temperature: anthropic.Float(0.3),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", models.SummaryEntities{}, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	raw := text.String()

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", models.SummaryEntities{}, fmt.Errorf("响应中未找到JSON对象")
	}

	var parsed struct {
		Summary  string                 `json:"summary"`
		Entities models.SummaryEntities `json:"entities"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", models.SummaryEntities{}, fmt.Errorf("JSON反序列化失败: %w", err)
	}
	if parsed.Summary == "" {
		parsed.Summary = "Unable to generate summary"
	}
	return parsed.Summary, parsed.Entities, nil
}

// buildSummaryPrompt 构造摘要提示词
func buildSummaryPrompt(task *models.Task, messages []models.Message) string {
	var conversation strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&conversation, "[%s] %s: %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.SenderName, m.Content)
	}

	assignedTo := task.AssignedTo
	if assignedTo == "" {
		assignedTo = "Unassigned"
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant helping to summarize internal support ticket conversations. ")
	b.WriteString("Please analyze the following conversation and provide a comprehensive summary.\n\n")

	b.WriteString("TASK INFORMATION:\n")
	fmt.Fprintf(&b, "- Title: %s\n", task.Title)
	fmt.Fprintf(&b, "- Status: %s\n", task.Status)
	fmt.Fprintf(&b, "- Priority: %s\n", task.Priority)
	fmt.Fprintf(&b, "- Assigned to: %s\n", assignedTo)
	fmt.Fprintf(&b, "- Requested by: %s\n\n", task.RequesterName)

	fmt.Fprintf(&b, "CONVERSATION:\n%s\n", conversation.String())

	b.WriteString(`
Please provide your response in the following JSON format:
{
  "summary": "A 2-3 sentence summary that includes the problem, current status, and next steps.",
  "entities": {
    "phoneNumbers": ["any phone numbers mentioned"],
    "emails": ["any email addresses mentioned"],
    "urls": ["any URLs or links shared"],
    "keyPeople": ["important people mentioned"],
    "technologies": ["technical terms, tools, or systems mentioned"],
    "deadlines": ["any deadlines or time-sensitive information"],
    "actionItems": ["specific next steps or action items mentioned"]
  }
}

Make the summary concise but informative, helping someone quickly understand what this task is about and its current state.`)

	return b.String()
}

// fallbackSummary 基于消息统计生成兜底摘要
func fallbackSummary(task *models.Task, messages []models.Message) string {
	participants := make(map[string]bool)
	for _, m := range messages {
		participants[m.SenderName] = true
	}

	latest := messages[len(messages)-1]
	duration := describeDuration(messages[0].CreatedAt, latest.CreatedAt)

	assignment := "Currently unassigned."
	if task.AssignedTo != "" {
		assignment = fmt.Sprintf("Assigned to %s.", task.AssignedTo)
	}

	preview := latest.Content
	if len(preview) > 100 {
		preview = preview[:100]
	}

	return fmt.Sprintf(
		"Task %q (%s priority) has %d messages from %d participants over %s. Current status: %s. %s Latest update: %s...",
		task.Title, task.Priority, len(messages), len(participants), duration, task.Status, assignment, preview,
	)
}

// fallbackEntities 兜底实体：只能可靠抽取参与者名单
func fallbackEntities(messages []models.Message) models.SummaryEntities {
	seen := make(map[string]bool)
	var people []string
	for _, m := range messages {
		if !seen[m.SenderName] {
			seen[m.SenderName] = true
			people = append(people, m.SenderName)
		}
	}
	return models.SummaryEntities{KeyPeople: people}
}

// describeDuration 把会话时长描述为可读文本
func describeDuration(start, end time.Time) string {
	hours := math.Abs(end.Sub(start).Hours())
	switch {
	case hours < 1:
		return "less than an hour"
	case hours < 24:
		return fmt.Sprintf("%d hours", int(math.Round(hours)))
	default:
		days := int(math.Round(hours / 24))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}
