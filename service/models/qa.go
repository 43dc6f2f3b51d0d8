/*
 * @module service/models/qa
 * @description 质量审查相关模型定义，包括审查规则、规则结果、链接校验结果、问题与审查记录
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 规则配置 -> 消息审查 -> 结果持久化 -> 统计分析
 * @rules 审查结果一次生成不可变更；规则可运行时启停和调权
 * @dependencies gorm.io/gorm
 * @refs service/qa/
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 规则类别
const (
	RuleCategoryFormatting = "formatting"
	RuleCategoryContent    = "content"
	RuleCategoryTechnical  = "technical"
	RuleCategoryLinks      = "links"
)

// 审查结论类别
const (
	QACategoryApproved      = "approved"
	QACategoryNeedsRevision = "needs_revision"
	QACategoryRejected      = "rejected"
)

// 问题严重级别
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// 链接校验状态
const (
	LinkStatusValid       = "valid"
	LinkStatusInvalid     = "invalid"
	LinkStatusUnreachable = "unreachable"
)

// QARule 质量审查规则模型
// 规则是配置：服务启动时播种默认规则，运行期按 ID 原地更新
type QARule struct {
	ID          string    `gorm:"primary_key;size:100" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IsEnabled   bool      `gorm:"not null;default:true" json:"enabled"`
	Weight      float64   `gorm:"not null" json:"weight"`
	Category    string    `gorm:"not null" json:"category"` // formatting/content/technical/links
	Script      string    `json:"script,omitempty"`         // 非空时通过脚本执行器求值
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// RuleResult 单条规则在一次审查中的结果，随审查生成，不独立持久化
type RuleResult struct {
	RuleID   string  `json:"ruleId"`
	Passed   bool    `json:"passed"`
	Score    float64 `json:"score"` // 1-10
	Feedback string  `json:"feedback"`
}

// LinkValidationResult 单个 URL 的校验结果
type LinkValidationResult struct {
	URL          string `json:"url"`
	Status       string `json:"status"` // valid/invalid/unreachable
	StatusCode   int    `json:"statusCode,omitempty"`
	Error        string `json:"error,omitempty"`
	RedirectedTo string `json:"redirectedTo,omitempty"`
}

// QAIssue 审查发现的单个问题
type QAIssue struct {
	RuleID     string `json:"ruleId"`
	Severity   string `json:"severity"` // low/medium/high
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// QAResult 质量审查引擎的输出契约，一次审查生成一个不可变值
type QAResult struct {
	Score          float64                `json:"score"` // 1-10，保留一位小数
	Feedback       string                 `json:"feedback"`
	Suggestions    []string               `json:"suggestions"`
	Issues         []QAIssue              `json:"issues"`
	LinkValidation []LinkValidationResult `json:"linkValidation,omitempty"`
	RuleResults    []RuleResult           `json:"ruleResults"`
	Category       string                 `json:"category"` // approved/needs_revision/rejected
}

// HighSeverityCount 统计高严重级别问题数
func (r *QAResult) HighSeverityCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityHigh {
			count++
		}
	}
	return count
}

// === 审查记录持久化类型 ===

// QAIssueArray 问题数组的 JSONB 存储类型
type QAIssueArray []QAIssue

func (a *QAIssueArray) Scan(value interface{}) error {
	return scanJSONB(value, a)
}

func (a QAIssueArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// RuleResultArray 规则结果数组的 JSONB 存储类型
type RuleResultArray []RuleResult

func (a *RuleResultArray) Scan(value interface{}) error {
	return scanJSONB(value, a)
}

func (a RuleResultArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// LinkValidationArray 链接校验结果数组的 JSONB 存储类型
type LinkValidationArray []LinkValidationResult

func (a *LinkValidationArray) Scan(value interface{}) error {
	return scanJSONB(value, a)
}

func (a LinkValidationArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func scanJSONB(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, dest)
}

// QAReview 审查记录模型：审查结果加上调用方赋予的身份信息
type QAReview struct {
	ID             string              `gorm:"type:uuid;primary_key" json:"id"`
	MessageID      string              `gorm:"not null;index" json:"message_id"`
	TaskID         string              `gorm:"not null;index" json:"task_id"`
	MessageContent string              `json:"message_content"`
	Score          float64             `gorm:"not null" json:"score"`
	Feedback       string              `json:"feedback"`
	Suggestions    JSONBStringArray    `gorm:"type:jsonb" json:"suggestions"`
	Issues         QAIssueArray        `gorm:"type:jsonb" json:"issues"`
	LinkValidation LinkValidationArray `gorm:"type:jsonb" json:"link_validation,omitempty"`
	RuleResults    RuleResultArray     `gorm:"type:jsonb" json:"rule_results"`
	Category       string              `gorm:"not null;index" json:"category"`
	Status         string              `gorm:"not null;index" json:"status"` // approved/rejected/pending
	CreatedAt      time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate 创建前钩子
func (r *QAReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// ReviewStatus 由审查结论推导记录状态
func ReviewStatus(category string) string {
	switch category {
	case QACategoryApproved:
		return "approved"
	case QACategoryRejected:
		return "rejected"
	default:
		return "pending"
	}
}
