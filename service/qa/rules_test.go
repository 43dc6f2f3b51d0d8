/*
 * @module service/qa/rules_test
 * @description 规则存储与规则引擎单元测试
 * @architecture 测试层 - 内存规则存储加sqlite持久化验证
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 规则播种 -> 更新/启停 -> 求值 -> 结果验证
 * @rules 覆盖默认规则集、运行期变更和各内置检查
 * @dependencies testing, testify, ticketdesk-service/testutil
 * @refs rules.go
 */

package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketdesk-service/service/models"
	"ticketdesk-service/testutil"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	assert.Len(t, rules, 6)

	total := 0.0
	for _, r := range rules {
		assert.True(t, r.IsEnabled)
		assert.NotEmpty(t, r.Name)
		total += r.Weight
	}
	assert.InDelta(t, 1.0, total, 0.001)
}

func TestRuleStoreInMemory(t *testing.T) {
	store := NewRuleStore(nil)

	t.Run("播种默认规则", func(t *testing.T) {
		assert.Len(t, store.Snapshot(), 6)
	})

	t.Run("局部更新保留未出现字段", func(t *testing.T) {
		rule, err := store.Update(RuleProfessionalTone, map[string]interface{}{
			"enabled": false,
			"weight":  0.3,
		})
		assert.NoError(t, err)
		assert.False(t, rule.IsEnabled)
		assert.Equal(t, 0.3, rule.Weight)
		assert.Equal(t, "Professional Tone", rule.Name)
	})

	t.Run("更新不存在的规则报错", func(t *testing.T) {
		_, err := store.Update("no_such_rule", map[string]interface{}{"weight": 0.1})
		assert.Error(t, err)
	})

	t.Run("重复新增报错", func(t *testing.T) {
		err := store.Add(models.QARule{ID: RuleLinkConsistency, Name: "dup"})
		assert.Error(t, err)
	})

	t.Run("新增和删除自定义规则", func(t *testing.T) {
		custom := models.QARule{
			ID:        "custom_rule",
			Name:      "Custom Rule",
			IsEnabled: true,
			Weight:    0.1,
			Category:  models.RuleCategoryContent,
		}
		assert.NoError(t, store.Add(custom))
		got, ok := store.Get("custom_rule")
		assert.True(t, ok)
		assert.Equal(t, "Custom Rule", got.Name)

		assert.NoError(t, store.Remove("custom_rule"))
		_, ok = store.Get("custom_rule")
		assert.False(t, ok)
	})

	t.Run("快照是副本", func(t *testing.T) {
		snapshot := store.Snapshot()
		snapshot[0].Weight = 99
		fresh := store.Snapshot()
		assert.NotEqual(t, 99.0, fresh[0].Weight)
	})
}

func TestRuleStorePersistence(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	store := NewRuleStore(tdb.DB)
	assert.Len(t, store.Snapshot(), 6)

	var count int64
	tdb.DB.Model(&models.QARule{}).Count(&count)
	assert.Equal(t, int64(6), count)

	_, err := store.Update(RuleFormattingConsistency, map[string]interface{}{"weight": 0.5})
	assert.NoError(t, err)

	// 重建存储时加载已持久化的修改
	reloaded := NewRuleStore(tdb.DB)
	rule, ok := reloaded.Get(RuleFormattingConsistency)
	assert.True(t, ok)
	assert.Equal(t, 0.5, rule.Weight)
}

func TestRuleEngineApply(t *testing.T) {
	engine := NewRuleEngine()
	analyzer := NewHeuristicAnalyzer()
	taskCtx := models.TaskContext{Title: "Test", Status: "ongoing", Priority: "medium"}

	t.Run("禁用规则被跳过", func(t *testing.T) {
		rules := DefaultRules()
		for i := range rules {
			rules[i].IsEnabled = false
		}
		rules[0].IsEnabled = true

		content := "Hello, a well formed message."
		results := engine.Apply(rules, content, taskCtx, analyzer.Analyze(content))
		assert.Len(t, results, 1)
		assert.Equal(t, rules[0].ID, results[0].RuleID)
	})

	t.Run("全部启用时每条规则一个结果", func(t *testing.T) {
		content := "Hello team, detailed message with contact info alice@corp.com and proper structure."
		results := engine.Apply(DefaultRules(), content, taskCtx, analyzer.Analyze(content))
		assert.Len(t, results, 6)
	})

	t.Run("未识别的无脚本规则给出中性结果", func(t *testing.T) {
		rules := []models.QARule{{ID: "mystery", Name: "Mystery", IsEnabled: true, Weight: 0.1}}
		results := engine.Apply(rules, "content", taskCtx, analyzer.Analyze("content"))
		assert.Len(t, results, 1)
		assert.True(t, results[0].Passed)
		assert.Equal(t, 8.0, results[0].Score)
		assert.Equal(t, "Rule not implemented", results[0].Feedback)
	})

	t.Run("脚本运行期异常降级为中性结果", func(t *testing.T) {
		rules := []models.QARule{{
			ID:        "crashy",
			Name:      "Crashy",
			IsEnabled: true,
			Weight:    0.1,
			Script: `
	var m map[string]int
	m["boom"] = 1
	return nil, nil
`,
		}}
		results := engine.Apply(rules, "content", taskCtx, analyzer.Analyze("content"))
		assert.Len(t, results, 1)
		assert.True(t, results[0].Passed)
		assert.Equal(t, 8.0, results[0].Score)
		assert.Equal(t, "Rule script failed, skipped", results[0].Feedback)
	})
}

func TestBuiltinChecks(t *testing.T) {
	analyzer := NewHeuristicAnalyzer()

	t.Run("格式检查识别结构", func(t *testing.T) {
		content := "Update:\n- item one\n- item two"
		result := checkFormattingConsistency(content, analyzer.Analyze(content))
		assert.Equal(t, "Good formatting structure", result.Feedback)
	})

	t.Run("超长消息清晰度扣分", func(t *testing.T) {
		content := strings.Repeat("This sentence pads the message well beyond the limit. ", 40)
		result := checkClarityConciseness(content, analyzer.Analyze(content))
		assert.False(t, result.Passed)
		assert.Equal(t, "Message is too long, consider condensing", result.Feedback)
	})

	t.Run("无链接时链接检查满分通过", func(t *testing.T) {
		content := "No links here."
		result := checkLinkConsistency(content, analyzer.Analyze(content))
		assert.True(t, result.Passed)
		assert.Equal(t, 10.0, result.Score)
		assert.Equal(t, "No links to validate", result.Feedback)
	})

	t.Run("规范链接通过格式检查", func(t *testing.T) {
		content := "Docs at https://example.com/guide"
		result := checkLinkConsistency(content, analyzer.Analyze(content))
		assert.Equal(t, "Links are properly formatted", result.Feedback)
	})

	t.Run("礼貌用语识别为专业语气", func(t *testing.T) {
		content := "Hi team, please let me know if you need anything else."
		result := checkProfessionalTone(content, analyzer.Analyze(content))
		assert.Equal(t, "Professional and helpful tone", result.Feedback)
		assert.True(t, result.Passed)
	})

	t.Run("粗鲁用语未通过语气检查", func(t *testing.T) {
		content := "this whole thing is stupid and terrible"
		result := checkProfessionalTone(content, analyzer.Analyze(content))
		assert.Equal(t, "Consider more professional language", result.Feedback)
	})
}
