/*
 * @module service/qa/review_service
 * @description 审查记录服务，负责审查结果持久化、按任务查询过滤以及统计报表生成
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 审查结果 -> 记录持久化 -> 查询过滤 / 时间窗统计
 * @rules 记录一经写入不再修改；统计均为读时计算，不做物化
 * @dependencies gorm.io/gorm
 * @refs service/qa/engine.go, api/controllers/qa_controller.go
 */

package qa

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"ticketdesk-service/service/models"
)

// ReviewService 审查记录服务
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService 创建审查记录服务
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// SaveReview 把一次审查结果连同消息身份信息写入记录
func (s *ReviewService) SaveReview(messageID, taskID, content string, result *models.QAResult) (*models.QAReview, error) {
	review := &models.QAReview{
		MessageID:      messageID,
		TaskID:         taskID,
		MessageContent: content,
		Score:          result.Score,
		Feedback:       result.Feedback,
		Suggestions:    models.JSONBStringArray(result.Suggestions),
		Issues:         models.QAIssueArray(result.Issues),
		LinkValidation: models.LinkValidationArray(result.LinkValidation),
		RuleResults:    models.RuleResultArray(result.RuleResults),
		Category:       result.Category,
		Status:         models.ReviewStatus(result.Category),
	}

	if err := s.db.Create(review).Error; err != nil {
		return nil, fmt.Errorf("保存审查记录失败: %w", err)
	}
	return review, nil
}

// ListByTask 查询任务下的审查记录，支持按状态和结论过滤，按创建时间倒序
func (s *ReviewService) ListByTask(taskID, status, category string) ([]models.QAReview, error) {
	query := s.db.Where("task_id = ?", taskID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var reviews []models.QAReview
	if err := query.Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("查询审查记录失败: %w", err)
	}
	return reviews, nil
}

// GetByMessage 查询单条消息的最新审查记录
func (s *ReviewService) GetByMessage(messageID string) (*models.QAReview, error) {
	var review models.QAReview
	err := s.db.Where("message_id = ?", messageID).
		Order("created_at DESC").
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// === 统计 ===

// IssueCount 单类问题的出现次数
type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// ScoreBand 分数区间及其记录数
type ScoreBand struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// LinkStats 链接校验统计
type LinkStats struct {
	TotalLinks       int `json:"totalLinks"`
	ValidLinks       int `json:"validLinks"`
	InvalidLinks     int `json:"invalidLinks"`
	UnreachableLinks int `json:"unreachableLinks"`
	ValidPercentage  int `json:"validPercentage"`
}

// MessageStats 消息量统计
type MessageStats struct {
	TotalMessages       int `json:"totalMessages"`
	MessagesInTimeframe int `json:"messagesInTimeframe"`
	MessagesWithQA      int `json:"messagesWithQA"`
	QAPercentage        int `json:"qaPercentage"`
}

// QAStats 时间窗内的审查统计报表
type QAStats struct {
	TotalReviews        int          `json:"totalReviews"`
	AverageScore        float64      `json:"averageScore"`
	ApprovedCount       int          `json:"approvedCount"`
	RejectedCount       int          `json:"rejectedCount"`
	NeedsRevisionCount  int          `json:"needsRevisionCount"`
	CommonIssues        []IssueCount `json:"commonIssues"`
	ScoreDistribution   []ScoreBand  `json:"scoreDistribution"`
	LinkValidationStats LinkStats    `json:"linkValidationStats"`
	MessageStats        MessageStats `json:"messageStats"`
}

// ParseTimeframe 解析统计时间窗参数，支持 1d/7d/30d，默认 7d
func ParseTimeframe(timeframe string) time.Duration {
	switch timeframe {
	case "30d":
		return 30 * 24 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Stats 生成任务在时间窗内的审查统计
// taskID 为空时统计全部任务
func (s *ReviewService) Stats(taskID string, window time.Duration) (*QAStats, error) {
	since := time.Now().Add(-window)

	reviewQuery := s.db.Where("created_at >= ?", since)
	messageQuery := s.db.Model(&models.Message{})
	if taskID != "" {
		reviewQuery = reviewQuery.Where("task_id = ?", taskID)
		messageQuery = messageQuery.Where("task_id = ?", taskID)
	}

	var reviews []models.QAReview
	if err := reviewQuery.Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("查询审查记录失败: %w", err)
	}

	var totalMessages, messagesInWindow int64
	if err := messageQuery.Count(&totalMessages).Error; err != nil {
		return nil, fmt.Errorf("统计消息总数失败: %w", err)
	}
	if err := messageQuery.Where("created_at >= ?", since).Count(&messagesInWindow).Error; err != nil {
		return nil, fmt.Errorf("统计时间窗消息数失败: %w", err)
	}

	stats := &QAStats{
		TotalReviews:      len(reviews),
		CommonIssues:      commonIssues(reviews),
		ScoreDistribution: scoreDistribution(reviews),
	}

	sum := 0.0
	for _, r := range reviews {
		sum += r.Score
		switch r.Category {
		case models.QACategoryApproved:
			stats.ApprovedCount++
		case models.QACategoryRejected:
			stats.RejectedCount++
		case models.QACategoryNeedsRevision:
			stats.NeedsRevisionCount++
		}
	}
	if len(reviews) > 0 {
		stats.AverageScore = math.Round(sum/float64(len(reviews))*10) / 10
	}

	stats.LinkValidationStats = linkValidationStats(reviews)
	stats.MessageStats = MessageStats{
		TotalMessages:       int(totalMessages),
		MessagesInTimeframe: int(messagesInWindow),
		MessagesWithQA:      len(reviews),
	}
	if totalMessages > 0 {
		stats.MessageStats.QAPercentage = int(math.Round(float64(len(reviews)) / float64(totalMessages) * 100))
	}

	return stats, nil
}

// commonIssues 统计最常见的问题，按出现次数倒序取前5
func commonIssues(reviews []models.QAReview) []IssueCount {
	counts := make(map[string]int)
	for _, review := range reviews {
		for _, issue := range review.Issues {
			key := issue.RuleID
			if key == "" {
				key = "unknown"
			}
			counts[key]++
		}
	}

	issues := make([]IssueCount, 0, len(counts))
	for issue, count := range counts {
		issues = append(issues, IssueCount{Issue: issue, Count: count})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Count != issues[j].Count {
			return issues[i].Count > issues[j].Count
		}
		return issues[i].Issue < issues[j].Issue
	})

	if len(issues) > 5 {
		issues = issues[:5]
	}
	return issues
}

// scoreDistribution 分数区间分布，固定四档
func scoreDistribution(reviews []models.QAReview) []ScoreBand {
	bands := []struct {
		label string
		min   float64
		max   float64
	}{
		{"9-10", 9, 10},
		{"7-8", 7, 8.9},
		{"5-6", 5, 6.9},
		{"1-4", 1, 4.9},
	}

	out := make([]ScoreBand, 0, len(bands))
	for _, band := range bands {
		count := 0
		for _, r := range reviews {
			if r.Score >= band.min && r.Score <= band.max {
				count++
			}
		}
		out = append(out, ScoreBand{Range: band.label, Count: count})
	}
	return out
}

// linkValidationStats 汇总链接校验结果
func linkValidationStats(reviews []models.QAReview) LinkStats {
	var stats LinkStats
	for _, review := range reviews {
		for _, link := range review.LinkValidation {
			stats.TotalLinks++
			switch link.Status {
			case models.LinkStatusValid:
				stats.ValidLinks++
			case models.LinkStatusInvalid:
				stats.InvalidLinks++
			case models.LinkStatusUnreachable:
				stats.UnreachableLinks++
			}
		}
	}
	if stats.TotalLinks > 0 {
		stats.ValidPercentage = int(math.Round(float64(stats.ValidLinks) / float64(stats.TotalLinks) * 100))
	}
	return stats
}
