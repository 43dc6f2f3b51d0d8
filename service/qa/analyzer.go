/*
 * @module service/qa/analyzer
 * @description 启发式消息分析器，基于文本特征对消息进行多维度打分，作为AI判定不可用时的兜底
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 文本归一化 -> 特征识别 -> 基准分累加 -> 维度分与反馈生成
 * @rules 纯函数实现：同一输入必定产出同一输出；分数范围 5-10
 * @dependencies golang.org/x/text/unicode/norm
 * @refs service/qa/judge.go, service/qa/engine.go
 */

package qa

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Analysis 消息分析结果，AI判定与启发式分析共用的中间产物
type Analysis struct {
	OverallFeedback   string   `json:"overallFeedback"`
	FormattingScore   float64  `json:"formattingScore"`
	OrganizationScore float64  `json:"organizationScore"`
	CompletenessScore float64  `json:"completenessScore"`
	ClarityScore      float64  `json:"clarityScore"`
	LinkScore         float64  `json:"linkScore"`
	ToneScore         float64  `json:"toneScore"`
	SpecificIssues    []string `json:"specificIssues"`
	Improvements      []string `json:"improvements"`
}

var (
	linkHintPattern     = regexp.MustCompile(`https?://`)
	contactHintPattern  = regexp.MustCompile(`@|phone|contact|\+\d`)
	qaTriggerPattern    = regexp.MustCompile(`(?i)@QAreview`)
	unprofessionalWords = regexp.MustCompile(`(?i)\b(bad|terrible|awful|sucks)\b`)
)

// HeuristicAnalyzer 启发式分析器，完全基于文本特征打分，不依赖外部服务
type HeuristicAnalyzer struct{}

// NewHeuristicAnalyzer 创建启发式分析器
func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

// Analyze 对消息内容做启发式多维分析
func (a *HeuristicAnalyzer) Analyze(content string) *Analysis {
	// NFKC 归一化，统一全角/兼容字符后再做特征匹配
	text := norm.NFKC.String(content)
	lower := strings.ToLower(text)

	hasLinks := linkHintPattern.MatchString(text)
	hasContact := contactHintPattern.MatchString(lower)
	hasQATrigger := qaTriggerPattern.MatchString(text)
	isProfessional := !unprofessionalWords.MatchString(text)
	isDetailed := len(text) > 100
	hasStructure := strings.Contains(text, "\n") ||
		strings.Contains(text, ".") ||
		strings.Contains(text, ",")

	base := 7.0
	if isDetailed {
		base += 0.5
	}
	if hasContact {
		base += 0.5
	}
	if isProfessional {
		base += 0.5
	}
	if hasStructure {
		base += 0.5
	}
	if hasQATrigger {
		base += 0.5
	}
	base = math.Min(10, math.Max(5, base))

	analysis := &Analysis{
		OverallFeedback:   buildHeuristicFeedback(isDetailed, isProfessional, hasContact, hasQATrigger),
		FormattingScore:   pickScore(hasStructure, base, base-1),
		OrganizationScore: pickScore(hasStructure, base, base-0.5),
		CompletenessScore: pickScore(hasContact, base+0.5, base),
		ClarityScore:      pickScore(isDetailed, base, base-0.5),
		ToneScore:         pickScore(isProfessional, base+0.5, base-1),
	}

	if hasLinks {
		analysis.LinkScore = math.Round(base)
	} else {
		analysis.LinkScore = 10
	}

	if !isProfessional {
		analysis.SpecificIssues = append(analysis.SpecificIssues, "Consider more professional language")
	}
	if !isDetailed {
		analysis.Improvements = append(analysis.Improvements, "Consider adding more specific details")
	} else {
		analysis.Improvements = append(analysis.Improvements, "Good level of detail provided")
	}

	return analysis
}

func pickScore(cond bool, whenTrue, whenFalse float64) float64 {
	if cond {
		return math.Round(whenTrue)
	}
	return math.Round(whenFalse)
}

func buildHeuristicFeedback(isDetailed, isProfessional, hasContact, hasQATrigger bool) string {
	tone := "casual"
	if isProfessional {
		tone = "professional"
	}
	detail := "basic information"
	if isDetailed {
		detail = "good detail"
	}

	feedback := fmt.Sprintf("Message demonstrates %s communication with %s.", tone, detail)
	if hasContact {
		feedback += " Contact information provided."
	}
	if hasQATrigger {
		feedback += " QA review appropriately triggered."
	}
	return feedback
}
