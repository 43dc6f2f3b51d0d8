/*
 * @module service/qa/rules
 * @description 审查规则存储与规则引擎，内置六条默认规则并支持脚本化自定义规则
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 默认规则播种 -> 运行期启停/调权 -> 审查时按快照逐条求值
 * @rules 单条规则求值失败不影响其它规则；一次审查全程使用同一份规则快照
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/qa/engine.go, service/qa/scripts.go
 */

package qa

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"ticketdesk-service/service/models"
)

// 内置规则ID
const (
	RuleFormattingConsistency   = "formatting_consistency"
	RuleInformationOrganization = "information_organization"
	RuleContentCompleteness     = "content_completeness"
	RuleClarityConciseness      = "clarity_conciseness"
	RuleLinkConsistency         = "link_consistency"
	RuleProfessionalTone        = "professional_tone"
)

// DefaultRules 返回默认规则集，权重总和为1
func DefaultRules() []models.QARule {
	return []models.QARule{
		{
			ID:          RuleFormattingConsistency,
			Name:        "Formatting Consistency",
			Description: "Checks for consistent use of bullet points, spacing, and structure",
			IsEnabled:   true,
			Weight:      0.25,
			Category:    models.RuleCategoryFormatting,
			SortOrder:   1,
		},
		{
			ID:          RuleInformationOrganization,
			Name:        "Information Organization",
			Description: "Ensures information is well-organized with clear sections",
			IsEnabled:   true,
			Weight:      0.20,
			Category:    models.RuleCategoryFormatting,
			SortOrder:   2,
		},
		{
			ID:          RuleContentCompleteness,
			Name:        "Content Completeness",
			Description: "Verifies all necessary information is provided for user decision-making",
			IsEnabled:   true,
			Weight:      0.20,
			Category:    models.RuleCategoryContent,
			SortOrder:   3,
		},
		{
			ID:          RuleClarityConciseness,
			Name:        "Clarity and Conciseness",
			Description: "Checks if content is clear, concise, and easy to scan",
			IsEnabled:   true,
			Weight:      0.15,
			Category:    models.RuleCategoryContent,
			SortOrder:   4,
		},
		{
			ID:          RuleLinkConsistency,
			Name:        "Link Consistency",
			Description: "Ensures links are properly formatted and consistently presented",
			IsEnabled:   true,
			Weight:      0.10,
			Category:    models.RuleCategoryLinks,
			SortOrder:   5,
		},
		{
			ID:          RuleProfessionalTone,
			Name:        "Professional Tone",
			Description: "Maintains professional and helpful tone throughout",
			IsEnabled:   true,
			Weight:      0.10,
			Category:    models.RuleCategoryContent,
			SortOrder:   6,
		},
	}
}

// RuleStore 规则存储，内存为权威副本，可选同步到数据库
type RuleStore struct {
	db    *gorm.DB
	mu    sync.RWMutex
	rules []models.QARule
}

// NewRuleStore 创建规则存储并播种默认规则
// db 非空时先加载已有规则，缺失的默认规则补插入
func NewRuleStore(db *gorm.DB) *RuleStore {
	s := &RuleStore{db: db}

	if db == nil {
		s.rules = DefaultRules()
		return s
	}

	var existing []models.QARule
	if err := db.Order("sort_order").Find(&existing).Error; err != nil {
		slog.Error("加载审查规则失败，使用默认规则", "error", err)
		s.rules = DefaultRules()
		return s
	}

	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.ID] = true
	}

	for _, def := range DefaultRules() {
		if known[def.ID] {
			continue
		}
		if err := db.Create(&def).Error; err != nil {
			slog.Error("播种默认规则失败", "rule_id", def.ID, "error", err)
		}
		existing = append(existing, def)
	}

	s.rules = existing
	return s
}

// Snapshot 返回当前规则集的副本，按 SortOrder 排列
func (s *RuleStore) Snapshot() []models.QARule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.QARule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Get 按ID查找规则
func (s *RuleStore) Get(id string) (models.QARule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return models.QARule{}, false
}

// Update 按ID局部更新规则，未出现的字段保持原值
func (s *RuleStore) Update(id string, updates map[string]interface{}) (models.QARule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.QARule{}, fmt.Errorf("规则不存在: %s", id)
	}

	rule := s.rules[idx]
	for key, val := range updates {
		switch key {
		case "name":
			rule.Name = cast.ToString(val)
		case "description":
			rule.Description = cast.ToString(val)
		case "enabled":
			rule.IsEnabled = cast.ToBool(val)
		case "weight":
			rule.Weight = cast.ToFloat64(val)
		case "category":
			rule.Category = cast.ToString(val)
		case "script":
			rule.Script = cast.ToString(val)
		case "sort_order":
			rule.SortOrder = cast.ToInt(val)
		}
	}
	rule.UpdatedAt = time.Now()

	if s.db != nil {
		if err := s.db.Save(&rule).Error; err != nil {
			return models.QARule{}, fmt.Errorf("保存规则失败: %w", err)
		}
	}

	s.rules[idx] = rule
	return rule, nil
}

// Add 新增规则
func (s *RuleStore) Add(rule models.QARule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rules {
		if r.ID == rule.ID {
			return fmt.Errorf("规则已存在: %s", rule.ID)
		}
	}

	if s.db != nil {
		if err := s.db.Create(&rule).Error; err != nil {
			return fmt.Errorf("创建规则失败: %w", err)
		}
	}

	s.rules = append(s.rules, rule)
	return nil
}

// Remove 删除规则
func (s *RuleStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("规则不存在: %s", id)
	}

	if s.db != nil {
		if err := s.db.Delete(&models.QARule{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("删除规则失败: %w", err)
		}
	}

	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	return nil
}

// === 规则引擎 ===

var (
	contactInfoPattern  = regexp.MustCompile(`(?i)@|phone|\+\d|contact`)
	greetingPattern     = regexp.MustCompile(`(?i)^(hi|hello|thanks|thank you)`)
	helpfulClosePattern = regexp.MustCompile(`let me know|please|help|contact|reach out`)
	impolitePattern     = regexp.MustCompile(`bad|terrible|awful|sucks|stupid`)
	linkSpacePattern    = regexp.MustCompile(`\s`)
)

// RuleEngine 规则引擎，对启用规则逐条求值
type RuleEngine struct {
	scripts *ScriptExecutor
}

// NewRuleEngine 创建规则引擎
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{scripts: NewScriptExecutor()}
}

// Apply 对规则快照中所有启用的规则求值，返回顺序与快照一致
func (e *RuleEngine) Apply(rules []models.QARule, content string, taskCtx models.TaskContext, analysis *Analysis) []models.RuleResult {
	results := make([]models.RuleResult, 0, len(rules))

	for _, rule := range rules {
		if !rule.IsEnabled {
			continue
		}

		var result models.RuleResult
		if rule.Script != "" {
			result = e.applyScripted(rule, content, taskCtx, analysis)
		} else {
			result = applyBuiltin(rule, content, analysis)
		}
		results = append(results, result)
	}

	return results
}

// applyBuiltin 求值内置规则，未识别的无脚本规则给出中性结果
func applyBuiltin(rule models.QARule, content string, analysis *Analysis) models.RuleResult {
	switch rule.ID {
	case RuleFormattingConsistency:
		return checkFormattingConsistency(content, analysis)
	case RuleInformationOrganization:
		return checkInformationOrganization(content, analysis)
	case RuleContentCompleteness:
		return checkContentCompleteness(content, analysis)
	case RuleClarityConciseness:
		return checkClarityConciseness(content, analysis)
	case RuleLinkConsistency:
		return checkLinkConsistency(content, analysis)
	case RuleProfessionalTone:
		return checkProfessionalTone(content, analysis)
	default:
		return models.RuleResult{
			RuleID:   rule.ID,
			Passed:   true,
			Score:    8,
			Feedback: "Rule not implemented",
		}
	}
}

// applyScripted 通过脚本执行器求值自定义规则，失败时给出中性结果
func (e *RuleEngine) applyScripted(rule models.QARule, content string, taskCtx models.TaskContext, analysis *Analysis) models.RuleResult {
	params := map[string]interface{}{
		"content": content,
		"task": map[string]interface{}{
			"title":          taskCtx.Title,
			"status":         taskCtx.Status,
			"priority":       taskCtx.Priority,
			"requester_name": taskCtx.RequesterName,
		},
		"analysis": map[string]interface{}{
			"formattingScore":   analysis.FormattingScore,
			"organizationScore": analysis.OrganizationScore,
			"completenessScore": analysis.CompletenessScore,
			"clarityScore":      analysis.ClarityScore,
			"linkScore":         analysis.LinkScore,
			"toneScore":         analysis.ToneScore,
		},
	}

	raw, err := e.scripts.Execute(rule.Script, params)
	if err != nil {
		slog.Error("规则脚本执行失败", "rule_id", rule.ID, "error", err)
		return models.RuleResult{
			RuleID:   rule.ID,
			Passed:   true,
			Score:    8,
			Feedback: "Rule script failed, skipped",
		}
	}

	out := cast.ToStringMap(raw)
	result := models.RuleResult{
		RuleID:   rule.ID,
		Passed:   cast.ToBool(out["passed"]),
		Score:    cast.ToFloat64(out["score"]),
		Feedback: cast.ToString(out["feedback"]),
	}
	if result.Score == 0 {
		result.Score = 8
		result.Passed = true
	}
	return result
}

func scoreOrDefault(score, fallback float64) float64 {
	if score == 0 {
		return fallback
	}
	return score
}

func checkFormattingConsistency(content string, analysis *Analysis) models.RuleResult {
	score := scoreOrDefault(analysis.FormattingScore, 7)
	hasStructure := strings.Contains(content, "\n") ||
		strings.Contains(content, "•") ||
		strings.Contains(content, "-")

	feedback := "Consider adding structure with bullet points or line breaks"
	if hasStructure {
		feedback = "Good formatting structure"
	}

	return models.RuleResult{
		RuleID:   RuleFormattingConsistency,
		Passed:   score >= 7,
		Score:    score,
		Feedback: feedback,
	}
}

func checkInformationOrganization(content string, analysis *Analysis) models.RuleResult {
	score := scoreOrDefault(analysis.OrganizationScore, 7)
	hasLogicalFlow := len(content) > 50 && !strings.Contains(content, "...")

	feedback := "Consider better organization of information"
	if hasLogicalFlow {
		feedback = "Information is well organized"
	}

	return models.RuleResult{
		RuleID:   RuleInformationOrganization,
		Passed:   score >= 7,
		Score:    score,
		Feedback: feedback,
	}
}

func checkContentCompleteness(content string, analysis *Analysis) models.RuleResult {
	score := scoreOrDefault(analysis.CompletenessScore, 7)
	hasContactInfo := contactInfoPattern.MatchString(content)
	isDetailed := len(content) > 100

	var feedback string
	switch {
	case hasContactInfo && isDetailed:
		feedback = "Complete information with contact details"
	case hasContactInfo:
		feedback = "Good contact information provided"
	case isDetailed:
		feedback = "Good detail level"
	default:
		feedback = "Consider adding more complete information"
	}

	return models.RuleResult{
		RuleID:   RuleContentCompleteness,
		Passed:   score >= 7,
		Score:    score,
		Feedback: feedback,
	}
}

func checkClarityConciseness(content string, analysis *Analysis) models.RuleResult {
	score := scoreOrDefault(analysis.ClarityScore, 7)
	tooLong := len(content) > 1500
	isReasonable := len(content) >= 20 && len(content) <= 800

	finalScore := score
	if tooLong {
		finalScore = math.Max(score-2, 1)
	}

	var feedback string
	switch {
	case tooLong:
		feedback = "Message is too long, consider condensing"
	case isReasonable:
		feedback = "Good clarity and length"
	default:
		feedback = "Consider appropriate message length"
	}

	return models.RuleResult{
		RuleID:   RuleClarityConciseness,
		Passed:   score >= 7 && !tooLong,
		Score:    finalScore,
		Feedback: feedback,
	}
}

func checkLinkConsistency(content string, analysis *Analysis) models.RuleResult {
	score := scoreOrDefault(analysis.LinkScore, 10)
	links := ExtractLinks(content)

	if len(links) == 0 {
		return models.RuleResult{
			RuleID:   RuleLinkConsistency,
			Passed:   true,
			Score:    10,
			Feedback: "No links to validate",
		}
	}

	allLinksValid := true
	for _, link := range links {
		if !strings.HasPrefix(link, "http") || linkSpacePattern.MatchString(link) {
			allLinksValid = false
			break
		}
	}

	feedback := "Check link formatting"
	if allLinksValid {
		feedback = "Links are properly formatted"
	}

	return models.RuleResult{
		RuleID:   RuleLinkConsistency,
		Passed:   score >= 7 && allLinksValid,
		Score:    score,
		Feedback: feedback,
	}
}

func checkProfessionalTone(content string, analysis *Analysis) models.RuleResult {
	score := scoreOrDefault(analysis.ToneScore, 7)
	lower := strings.ToLower(content)
	hasGreeting := greetingPattern.MatchString(strings.TrimSpace(content))
	hasHelpfulClosing := helpfulClosePattern.MatchString(lower)
	isPolite := !impolitePattern.MatchString(lower)

	var feedback string
	switch {
	case hasGreeting && hasHelpfulClosing && isPolite:
		feedback = "Professional and helpful tone"
	case isPolite:
		feedback = "Good professional tone"
	default:
		feedback = "Consider more professional language"
	}

	return models.RuleResult{
		RuleID:   RuleProfessionalTone,
		Passed:   score >= 7,
		Score:    score,
		Feedback: feedback,
	}
}
