/*
 * @module service/qa/engine
 * @description 质量审查引擎，编排链接校验、AI判定、规则求值、加权聚合和结论判定的完整流程
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 链接提取校验 -> AI判定（可回退） -> 规则求值 -> 加权聚合 -> 问题与建议生成 -> 结论分类
 * @rules 同一输入与规则配置下结果确定；引擎内部异常统一包装为审查失败错误
 * @dependencies ticketdesk-service/service/models
 * @refs service/qa/rules.go, service/qa/judge.go, service/qa/links.go
 */

package qa

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ticketdesk-service/service/models"
)

// 建议分数边界
const (
	approveThreshold  = 8.0
	revisionThreshold = 6.0
)

// 每条非valid链接的总分扣减
const brokenLinkPenalty = 0.5

// 规则建议映射，问题生成时按规则ID取用
var ruleSuggestions = map[string]string{
	RuleFormattingConsistency:   "Use consistent bullet points and maintain proper spacing",
	RuleInformationOrganization: "Structure information with clear headers and logical grouping",
	RuleContentCompleteness:     "Include all necessary details and clear next steps",
	RuleClarityConciseness:      "Break down long paragraphs for better readability",
	RuleLinkConsistency:         "Ensure all links are working and properly formatted",
	RuleProfessionalTone:        "Maintain helpful, professional language throughout",
}

const fallbackSuggestion = "Follow the style guide for best practices"

// Engine 质量审查引擎
type Engine struct {
	store     *RuleStore
	rules     *RuleEngine
	validator *LinkValidator
	judge     Judge
}

// NewEngine 创建审查引擎
func NewEngine(store *RuleStore, judge Judge) *Engine {
	return &Engine{
		store:     store,
		rules:     NewRuleEngine(),
		validator: NewLinkValidator(),
		judge:     judge,
	}
}

// Review 对一条消息执行完整的质量审查
// 除输入校验外不因外部依赖失败而报错；内部异常包装为审查失败
func (e *Engine) Review(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) (result *models.QAResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("质量审查发生内部异常", "panic", r)
			result = nil
			err = fmt.Errorf("QA review failed: %v", r)
		}
	}()

	if content == "" {
		return nil, fmt.Errorf("QA review failed: %s", "Invalid message content provided")
	}

	start := time.Now()
	defer func() {
		reviewDuration.Observe(time.Since(start).Seconds())
	}()

	slog.Debug("开始质量审查", "content_length", len(content), "history_length", len(history))

	// 1. 提取并校验链接
	links := ExtractLinks(content)
	var linkValidation []models.LinkValidationResult
	if len(links) > 0 {
		linkValidation = e.validator.ValidateLinks(ctx, links)
		for _, link := range linkValidation {
			linkChecksTotal.WithLabelValues(link.Status).Inc()
		}
	}

	// 2. AI判定（内部回退启发式，永不失败）
	analysis := e.judge.Analyze(ctx, content, taskCtx, history)

	// 3. 取规则快照并逐条求值，快照同时用于后续加权
	rules := e.store.Snapshot()
	ruleResults := e.rules.Apply(rules, content, taskCtx, analysis)

	// 4. 加权聚合总分
	score := aggregateScore(rules, ruleResults, linkValidation)

	// 5. 生成问题与建议
	issues := generateIssues(rules, ruleResults, linkValidation)
	suggestions := generateSuggestions(issues, analysis)

	// 6. 判定结论类别
	result = &models.QAResult{
		Score:          score,
		Feedback:       analysis.OverallFeedback,
		Suggestions:    suggestions,
		Issues:         issues,
		LinkValidation: linkValidation,
		RuleResults:    ruleResults,
		Category:       determineCategory(score, issues),
	}

	reviewsTotal.WithLabelValues(result.Category).Inc()
	slog.Debug("质量审查完成", "score", score, "category", result.Category, "issues", len(issues))
	return result, nil
}

// aggregateScore 按规则权重加权平均，再按非valid链接数扣分
// 无启用规则时基准分为7；结果截断到 [1,10] 并保留一位小数
func aggregateScore(rules []models.QARule, results []models.RuleResult, linkValidation []models.LinkValidationResult) float64 {
	weights := make(map[string]float64, len(rules))
	for _, r := range rules {
		weights[r.ID] = r.Weight
	}

	totalScore := 0.0
	totalWeight := 0.0
	for _, res := range results {
		if w, ok := weights[res.RuleID]; ok {
			totalScore += res.Score * w
			totalWeight += w
		}
	}

	base := 7.0
	if totalWeight > 0 {
		base = totalScore / totalWeight
	}

	brokenLinks := 0
	for _, link := range linkValidation {
		if link.Status != models.LinkStatusValid {
			brokenLinks++
		}
	}

	final := base - float64(brokenLinks)*brokenLinkPenalty
	final = math.Max(1, math.Min(10, final))

	return math.Round(final*10) / 10
}

// generateIssues 由规则结果和链接校验结果生成问题列表
// 规则问题在前、链接问题在后，组内保持求值顺序
func generateIssues(rules []models.QARule, results []models.RuleResult, linkValidation []models.LinkValidationResult) []models.QAIssue {
	names := make(map[string]string, len(rules))
	for _, r := range rules {
		names[r.ID] = r.Name
	}

	var issues []models.QAIssue
	for _, res := range results {
		if res.Passed && res.Score >= 7 {
			continue
		}
		name, ok := names[res.RuleID]
		if !ok {
			continue
		}

		severity := models.SeverityLow
		if res.Score < 5 {
			severity = models.SeverityHigh
		} else if res.Score < 7 {
			severity = models.SeverityMedium
		}

		issues = append(issues, models.QAIssue{
			RuleID:     res.RuleID,
			Severity:   severity,
			Message:    fmt.Sprintf("%s: %s", name, res.Feedback),
			Suggestion: suggestionForRule(res.RuleID),
		})
	}

	for _, link := range linkValidation {
		if link.Status == models.LinkStatusValid {
			continue
		}
		issues = append(issues, models.QAIssue{
			RuleID:     "link_validation",
			Severity:   models.SeverityMedium,
			Message:    fmt.Sprintf("Link validation failed: %s", link.URL),
			Suggestion: "Check if the URL is correct and accessible",
		})
	}

	return issues
}

func suggestionForRule(ruleID string) string {
	if s, ok := ruleSuggestions[ruleID]; ok {
		return s
	}
	return fallbackSuggestion
}

// generateSuggestions 汇总问题建议与分析改进项，去重后最多保留5条
func generateSuggestions(issues []models.QAIssue, analysis *Analysis) []string {
	seen := make(map[string]bool)
	var suggestions []string

	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		suggestions = append(suggestions, s)
	}

	for _, issue := range issues {
		add(issue.Suggestion)
	}
	for _, improvement := range analysis.Improvements {
		add(improvement)
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Message meets quality standards")
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}

// determineCategory 按总分与高严重问题数判定结论
func determineCategory(score float64, issues []models.QAIssue) string {
	high := 0
	for _, issue := range issues {
		if issue.Severity == models.SeverityHigh {
			high++
		}
	}

	switch {
	case score >= approveThreshold && high == 0:
		return models.QACategoryApproved
	case score >= revisionThreshold && high <= 1:
		return models.QACategoryNeedsRevision
	default:
		return models.QACategoryRejected
	}
}
