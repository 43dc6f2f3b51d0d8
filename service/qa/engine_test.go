/*
 * @module service/qa/engine_test
 * @description 质量审查引擎单元测试
 * @architecture 测试层 - 以固定判定桩隔离AI依赖
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造判定桩 -> 执行审查 -> 验证聚合与结论
 * @rules 覆盖确定性、分数聚合、链接扣分、建议生成与结论边界
 * @dependencies testing, testify, net/http/httptest
 * @refs engine.go
 */

package qa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketdesk-service/service/models"
)

// stubJudge 返回固定分析结果的判定桩
type stubJudge struct {
	analysis *Analysis
}

func (j *stubJudge) Analyze(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) *Analysis {
	if j.analysis != nil {
		return j.analysis
	}
	return NewHeuristicAnalyzer().Analyze(content)
}

func newTestEngine(analysis *Analysis) *Engine {
	return NewEngine(NewRuleStore(nil), &stubJudge{analysis: analysis})
}

func uniformAnalysis(score float64) *Analysis {
	return &Analysis{
		OverallFeedback:   "Stub feedback",
		FormattingScore:   score,
		OrganizationScore: score,
		CompletenessScore: score,
		ClarityScore:      score,
		LinkScore:         score,
		ToneScore:         score,
	}
}

func TestEngineReviewEmptyContent(t *testing.T) {
	engine := newTestEngine(nil)
	result, err := engine.Review(context.Background(), "", models.TaskContext{}, nil)
	assert.Nil(t, result)
	assert.EqualError(t, err, "QA review failed: Invalid message content provided")
}

func TestEngineReviewDeterministic(t *testing.T) {
	engine := newTestEngine(nil)
	content := "Hello team, status update: deployment finished. Please let me know if anything looks off."

	first, err := engine.Review(context.Background(), content, models.TaskContext{}, nil)
	assert.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := engine.Review(context.Background(), content, models.TaskContext{}, nil)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEngineCategoryBoundaries(t *testing.T) {
	t.Run("高分无问题判定为approved", func(t *testing.T) {
		engine := newTestEngine(uniformAnalysis(9))
		result, err := engine.Review(context.Background(),
			"Hello team, everything is documented and ready for review. Please let me know.",
			models.TaskContext{}, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.QACategoryApproved, result.Category)
		assert.Empty(t, result.Issues)
		assert.Equal(t, []string{"Message meets quality standards"}, result.Suggestions)
	})

	t.Run("中等分判定为needs_revision", func(t *testing.T) {
		engine := newTestEngine(uniformAnalysis(6))
		result, err := engine.Review(context.Background(),
			"Hello team, short update without much detail.",
			models.TaskContext{}, nil)
		assert.NoError(t, err)
		// 非链接规则得6分，无链接时链接规则得10分：6*0.9 + 10*0.1 = 6.4
		assert.Equal(t, 6.4, result.Score)
		assert.Equal(t, models.QACategoryNeedsRevision, result.Category)
		assert.NotEmpty(t, result.Issues)
	})

	t.Run("低分判定为rejected", func(t *testing.T) {
		engine := newTestEngine(uniformAnalysis(3))
		result, err := engine.Review(context.Background(),
			"Hello team, short update.",
			models.TaskContext{}, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.QACategoryRejected, result.Category)

		// 所有问题均为高严重级别
		for _, issue := range result.Issues {
			if issue.RuleID != "link_validation" {
				assert.Equal(t, models.SeverityHigh, issue.Severity)
			}
		}
	})
}

func TestEngineBrokenLinkPenalty(t *testing.T) {
	notFoundServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFoundServer.Close()

	engine := newTestEngine(uniformAnalysis(9))

	baseline, err := engine.Review(context.Background(),
		"Hello team, all details are in the report. Please let me know.",
		models.TaskContext{}, nil)
	assert.NoError(t, err)

	withBroken, err := engine.Review(context.Background(),
		fmt.Sprintf("Hello team, all details are in the report %s please let me know.", notFoundServer.URL),
		models.TaskContext{}, nil)
	assert.NoError(t, err)

	// 无链接时：9*0.9 + 10*0.1 = 9.1
	assert.Equal(t, 9.1, baseline.Score)
	// 有链接时链接规则跟随分析分9：9*1.0 = 9.0，再按非valid链接扣0.5
	assert.Equal(t, 8.5, withBroken.Score)
	assert.Len(t, withBroken.LinkValidation, 1)
	assert.Equal(t, models.LinkStatusInvalid, withBroken.LinkValidation[0].Status)

	// 链接问题附加在问题列表末尾
	last := withBroken.Issues[len(withBroken.Issues)-1]
	assert.Equal(t, "link_validation", last.RuleID)
	assert.Equal(t, models.SeverityMedium, last.Severity)
	assert.Contains(t, last.Message, notFoundServer.URL)
}

func TestEngineSuggestionCap(t *testing.T) {
	engine := newTestEngine(&Analysis{
		OverallFeedback:   "Stub feedback",
		FormattingScore:   4,
		OrganizationScore: 4,
		CompletenessScore: 4,
		ClarityScore:      4,
		LinkScore:         4,
		ToneScore:         4,
		Improvements:      []string{"Improvement one", "Improvement two"},
	})

	result, err := engine.Review(context.Background(),
		"Hello team, this message fails every rule by stub decree. https://definitely.invalid.example",
		models.TaskContext{}, nil)
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(result.Suggestions), 5)

	// 建议去重
	seen := make(map[string]bool)
	for _, s := range result.Suggestions {
		assert.False(t, seen[s], "duplicate suggestion %q", s)
		seen[s] = true
	}
}

func TestEngineUsesJudgeFeedback(t *testing.T) {
	engine := newTestEngine(uniformAnalysis(8))
	result, err := engine.Review(context.Background(),
		"Hello team, routine update. Please let me know.",
		models.TaskContext{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "Stub feedback", result.Feedback)
}

func TestDetermineCategory(t *testing.T) {
	high := models.QAIssue{Severity: models.SeverityHigh}
	medium := models.QAIssue{Severity: models.SeverityMedium}

	t.Run("高分但两个高严重问题仍判rejected", func(t *testing.T) {
		assert.Equal(t, models.QACategoryRejected,
			determineCategory(9.5, []models.QAIssue{high, high}))
	})

	t.Run("边界分8.0且一个高严重问题判needs_revision", func(t *testing.T) {
		assert.Equal(t, models.QACategoryNeedsRevision,
			determineCategory(8.0, []models.QAIssue{high}))
	})

	t.Run("边界分8.0且无高严重问题判approved", func(t *testing.T) {
		assert.Equal(t, models.QACategoryApproved,
			determineCategory(8.0, nil))
		// 中低严重问题不阻塞approved
		assert.Equal(t, models.QACategoryApproved,
			determineCategory(8.0, []models.QAIssue{medium}))
	})

	t.Run("边界分6.0且至多一个高严重问题判needs_revision", func(t *testing.T) {
		assert.Equal(t, models.QACategoryNeedsRevision,
			determineCategory(6.0, []models.QAIssue{high}))
	})

	t.Run("低分判rejected", func(t *testing.T) {
		assert.Equal(t, models.QACategoryRejected, determineCategory(5.9, nil))
	})
}

func TestAggregateScore(t *testing.T) {
	rules := []models.QARule{
		{ID: "a", Weight: 0.5},
		{ID: "b", Weight: 0.5},
	}

	t.Run("加权平均", func(t *testing.T) {
		results := []models.RuleResult{
			{RuleID: "a", Score: 10},
			{RuleID: "b", Score: 6},
		}
		assert.Equal(t, 8.0, aggregateScore(rules, results, nil))
	})

	t.Run("无结果时基准分为7", func(t *testing.T) {
		assert.Equal(t, 7.0, aggregateScore(rules, nil, nil))
	})

	t.Run("未知规则的结果不参与加权", func(t *testing.T) {
		results := []models.RuleResult{
			{RuleID: "a", Score: 9},
			{RuleID: "ghost", Score: 1},
		}
		assert.Equal(t, 9.0, aggregateScore(rules, results, nil))
	})

	t.Run("链接扣分截断到下限1", func(t *testing.T) {
		results := []models.RuleResult{{RuleID: "a", Score: 2}}
		links := make([]models.LinkValidationResult, 10)
		for i := range links {
			links[i] = models.LinkValidationResult{Status: models.LinkStatusUnreachable}
		}
		assert.Equal(t, 1.0, aggregateScore(rules, results, links))
	})

	t.Run("结果保留一位小数", func(t *testing.T) {
		threeRules := []models.QARule{
			{ID: "a", Weight: 0.4},
			{ID: "b", Weight: 0.3},
			{ID: "c", Weight: 0.3},
		}
		results := []models.RuleResult{
			{RuleID: "a", Score: 8},
			{RuleID: "b", Score: 7},
			{RuleID: "c", Score: 6},
		}
		// 8*0.4 + 7*0.3 + 6*0.3 = 7.1
		assert.Equal(t, 7.1, aggregateScore(threeRules, results, nil))
	})
}
