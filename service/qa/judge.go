/*
 * @module service/qa/judge
 * @description AI判定适配器，调用Anthropic模型对消息做结构化质量分析，失败时回退启发式分析
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 构造提示词 -> 模型调用 -> JSON解析 -> 失败回退启发式
 * @rules 适配器永不返回错误：任何外部失败均降级为启发式结果，保证审查流程可用
 * @dependencies github.com/anthropics/anthropic-sdk-go
 * @refs service/qa/analyzer.go, service/qa/engine.go
 */

package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ticketdesk-service/service/models"
)

const judgeModel = "claude-3-5-sonnet-20241022"

// Judge 消息分析判定接口，实现方必须保证永不失败
type Judge interface {
	Analyze(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) *Analysis
}

// AIJudge 基于Anthropic模型的判定实现
// 未配置 ANTHROPIC_API_KEY 时直接走启发式分析
type AIJudge struct {
	client   anthropic.Client
	enabled  bool
	fallback *HeuristicAnalyzer
}

// NewAIJudge 创建AI判定适配器，按环境变量决定是否启用模型调用
func NewAIJudge() *AIJudge {
	j := &AIJudge{fallback: NewHeuristicAnalyzer()}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		slog.Info("未配置 ANTHROPIC_API_KEY，质量审查使用启发式分析")
		return j
	}

	j.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	j.enabled = true
	return j
}

// Analyze 执行AI判定，任何失败均回退到启发式分析
func (j *AIJudge) Analyze(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) *Analysis {
	if !j.enabled {
		return j.fallback.Analyze(content)
	}

	prompt := buildJudgePrompt(content, taskCtx, history)

	msg, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       judgeModel,
		MaxTokens:   1000,
		Temperature: anthropic.Float(0.3),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		slog.Error("AI判定调用失败，回退启发式分析", "error", err)
		judgeFallbacksTotal.Inc()
		return j.fallback.Analyze(content)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	analysis, err := parseJudgeResponse(text.String())
	if err != nil {
		slog.Error("AI判定响应解析失败，回退启发式分析", "error", err)
		judgeFallbacksTotal.Inc()
		return j.fallback.Analyze(content)
	}
	return analysis
}

// parseJudgeResponse 从模型输出中截取JSON对象并反序列化
func parseJudgeResponse(raw string) (*Analysis, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("响应中未找到JSON对象")
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &analysis); err != nil {
		return nil, fmt.Errorf("JSON反序列化失败: %w", err)
	}
	return &analysis, nil
}

// buildJudgePrompt 构造判定提示词，会话历史仅取最近3条
func buildJudgePrompt(content string, taskCtx models.TaskContext, history []models.ConversationTurn) string {
	var b strings.Builder

	b.WriteString("You are a quality assurance reviewer for an internal ticketing system. ")
	b.WriteString("Analyze the following message for quality across multiple dimensions.\n\n")

	b.WriteString("Task context:\n")
	fmt.Fprintf(&b, "- Title: %s\n", taskCtx.Title)
	fmt.Fprintf(&b, "- Status: %s\n", taskCtx.Status)
	fmt.Fprintf(&b, "- Priority: %s\n", taskCtx.Priority)
	fmt.Fprintf(&b, "- Requester: %s\n\n", taskCtx.RequesterName)

	if len(history) > 0 {
		recent := history
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "- %s: %s\n", turn.Sender, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Message to review:\n%s\n\n", content)

	b.WriteString("Respond with ONLY a JSON object in this exact shape:\n")
	b.WriteString(`{
  "overallFeedback": "one or two sentence summary",
  "formattingScore": 1-10,
  "organizationScore": 1-10,
  "completenessScore": 1-10,
  "clarityScore": 1-10,
  "linkScore": 1-10,
  "toneScore": 1-10,
  "specificIssues": ["issue descriptions"],
  "improvements": ["improvement suggestions"]
}`)

	return b.String()
}
