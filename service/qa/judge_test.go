/*
 * @module service/qa/judge_test
 * @description AI判定适配器单元测试
 * @architecture 测试层 - 以本地HTTP桩模拟模型接口，验证回退行为
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 桩服务构造 -> 判定调用 -> 回退结果验证
 * @rules 覆盖未启用路径、调用失败回退、响应解析失败回退和JSON截取
 * @dependencies testing, testify, net/http/httptest
 * @refs judge.go
 */

package qa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"

	"ticketdesk-service/service/models"
)

// newStubbedJudge 构造指向本地桩服务的判定适配器
func newStubbedJudge(baseURL string) *AIJudge {
	return &AIJudge{
		client: anthropic.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		enabled:  true,
		fallback: NewHeuristicAnalyzer(),
	}
}

func TestDisabledJudgeUsesHeuristic(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	judge := NewAIJudge()

	content := "Hello team, deployment is complete. Please let me know if anything looks off."
	got := judge.Analyze(context.Background(), content, models.TaskContext{}, nil)
	assert.Equal(t, NewHeuristicAnalyzer().Analyze(content), got)
}

func TestJudgeCallFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"broken"}}`)
	}))
	defer server.Close()

	judge := newStubbedJudge(server.URL)
	content := "Hello team, status update with enough detail to score deterministically. Please let me know."

	// 调用失败时结果与启发式路径完全一致，且不对外抛错
	got := judge.Analyze(context.Background(), content, models.TaskContext{}, nil)
	assert.Equal(t, NewHeuristicAnalyzer().Analyze(content), got)
}

func TestJudgeUnparsableResponseFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_01","type":"message","role":"assistant",`+
			`"model":"claude-3-5-sonnet-20241022",`+
			`"content":[{"type":"text","text":"I cannot produce structured output"}],`+
			`"stop_reason":"end_turn","stop_sequence":null,`+
			`"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer server.Close()

	judge := newStubbedJudge(server.URL)
	content := "Hello team, another routine update. Please let me know."

	got := judge.Analyze(context.Background(), content, models.TaskContext{}, nil)
	assert.Equal(t, NewHeuristicAnalyzer().Analyze(content), got)
}

func TestParseJudgeResponse(t *testing.T) {
	t.Run("截取正文中嵌入的JSON对象", func(t *testing.T) {
		raw := `Here is my analysis:
{"overallFeedback":"Clear and complete","formattingScore":8,"organizationScore":7,
"completenessScore":9,"clarityScore":8,"linkScore":10,"toneScore":9,
"specificIssues":[],"improvements":["Add a closing line"]}
Hope this helps.`

		analysis, err := parseJudgeResponse(raw)
		assert.NoError(t, err)
		assert.Equal(t, "Clear and complete", analysis.OverallFeedback)
		assert.Equal(t, 8.0, analysis.FormattingScore)
		assert.Equal(t, 10.0, analysis.LinkScore)
		assert.Equal(t, []string{"Add a closing line"}, analysis.Improvements)
	})

	t.Run("无JSON对象时报错", func(t *testing.T) {
		_, err := parseJudgeResponse("plain text without any structure")
		assert.Error(t, err)
	})

	t.Run("JSON格式非法时报错", func(t *testing.T) {
		_, err := parseJudgeResponse(`{"overallFeedback": broken}`)
		assert.Error(t, err)
	})
}
