/*
 * @module service/qa/analyzer_test
 * @description 启发式分析器单元测试
 * @architecture 测试层 - 纯函数行为验证
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造消息样本 -> 分析 -> 验证分数与反馈
 * @rules 验证确定性、分数范围和特征识别
 * @dependencies testing, testify
 * @refs analyzer.go
 */

package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicAnalyzerDeterministic(t *testing.T) {
	analyzer := NewHeuristicAnalyzer()
	content := "Hi team, please check https://example.com and contact me at alice@corp.com. @QAreview"

	first := analyzer.Analyze(content)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, analyzer.Analyze(content))
	}
}

func TestHeuristicAnalyzerScoring(t *testing.T) {
	analyzer := NewHeuristicAnalyzer()

	t.Run("高质量消息获得高分", func(t *testing.T) {
		content := "Hello team, here is the full incident report with all reproduction steps documented. " +
			"Please contact me at alice@corp.com or by phone for any follow-up questions. @QAreview"
		analysis := analyzer.Analyze(content)

		// 详细、专业、有结构、有联系方式、有触发词：基准分顶满
		assert.GreaterOrEqual(t, analysis.ToneScore, 9.0)
		assert.GreaterOrEqual(t, analysis.CompletenessScore, 9.0)
		assert.Contains(t, analysis.OverallFeedback, "professional communication with good detail")
		assert.Contains(t, analysis.OverallFeedback, "Contact information provided.")
		assert.Contains(t, analysis.OverallFeedback, "QA review appropriately triggered.")
	})

	t.Run("不专业用词拉低语气分并记录问题", func(t *testing.T) {
		analysis := analyzer.Analyze("this is terrible and sucks")
		assert.Contains(t, analysis.SpecificIssues, "Consider more professional language")
		assert.Contains(t, analysis.OverallFeedback, "casual communication")
	})

	t.Run("短消息提示补充细节", func(t *testing.T) {
		analysis := analyzer.Analyze("ok")
		assert.Contains(t, analysis.Improvements, "Consider adding more specific details")
	})

	t.Run("详细消息确认细节充分", func(t *testing.T) {
		analysis := analyzer.Analyze(strings.Repeat("The deployment completed without errors. ", 5))
		assert.Contains(t, analysis.Improvements, "Good level of detail provided")
	})

	t.Run("无链接时链接分为满分", func(t *testing.T) {
		analysis := analyzer.Analyze("No links in this message, just text.")
		assert.Equal(t, 10.0, analysis.LinkScore)
	})

	t.Run("有链接时链接分跟随基准分", func(t *testing.T) {
		analysis := analyzer.Analyze("See https://example.com for more.")
		assert.LessOrEqual(t, analysis.LinkScore, 10.0)
		assert.GreaterOrEqual(t, analysis.LinkScore, 5.0)
	})

	t.Run("所有维度分在5到10之间", func(t *testing.T) {
		for _, content := range []string{"x", "bad bad bad", strings.Repeat("word ", 100)} {
			analysis := analyzer.Analyze(content)
			for _, score := range []float64{
				analysis.FormattingScore, analysis.OrganizationScore,
				analysis.CompletenessScore, analysis.ClarityScore, analysis.ToneScore,
			} {
				assert.GreaterOrEqual(t, score, 4.0, "content=%q", content)
				assert.LessOrEqual(t, score, 10.0, "content=%q", content)
			}
		}
	})
}
