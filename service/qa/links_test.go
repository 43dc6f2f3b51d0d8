/*
 * @module service/qa/links_test
 * @description 链接提取与可达性校验单元测试
 * @architecture 测试层 - 使用httptest模拟目标站点
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造目标服务 -> 校验链接 -> 验证结果分类
 * @rules 覆盖提取去重、状态分类和结果顺序
 * @dependencies testing, testify, net/http/httptest
 * @refs links.go
 */

package qa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketdesk-service/service/models"
)

func TestExtractLinks(t *testing.T) {
	t.Run("无链接返回nil", func(t *testing.T) {
		assert.Nil(t, ExtractLinks("Just a plain message without any URL"))
	})

	t.Run("提取多个链接", func(t *testing.T) {
		content := "See https://example.com/docs and http://internal.wiki/page for details"
		links := ExtractLinks(content)
		assert.Equal(t, []string{"https://example.com/docs", "http://internal.wiki/page"}, links)
	})

	t.Run("重复链接去重并保持首次出现顺序", func(t *testing.T) {
		content := "https://b.com then https://a.com then https://b.com again"
		links := ExtractLinks(content)
		assert.Equal(t, []string{"https://b.com", "https://a.com"}, links)
	})

	t.Run("链接在标点处截断", func(t *testing.T) {
		links := ExtractLinks("check <https://example.com/path> please")
		assert.Equal(t, []string{"https://example.com/path"}, links)
	})
}

func TestValidateLinks(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()

	notFoundServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFoundServer.Close()

	validator := NewLinkValidator()

	t.Run("空列表返回nil", func(t *testing.T) {
		assert.Nil(t, validator.ValidateLinks(context.Background(), nil))
	})

	t.Run("可达链接标记为valid", func(t *testing.T) {
		results := validator.ValidateLinks(context.Background(), []string{okServer.URL})
		assert.Len(t, results, 1)
		assert.Equal(t, models.LinkStatusValid, results[0].Status)
		assert.Equal(t, http.StatusOK, results[0].StatusCode)
		assert.Empty(t, results[0].Error)
	})

	t.Run("4xx链接标记为invalid", func(t *testing.T) {
		results := validator.ValidateLinks(context.Background(), []string{notFoundServer.URL})
		assert.Len(t, results, 1)
		assert.Equal(t, models.LinkStatusInvalid, results[0].Status)
		assert.Equal(t, http.StatusNotFound, results[0].StatusCode)
		assert.Equal(t, "HTTP 404: Not Found", results[0].Error)
	})

	t.Run("连接失败标记为unreachable", func(t *testing.T) {
		closedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := closedServer.URL
		closedServer.Close()

		results := validator.ValidateLinks(context.Background(), []string{url})
		assert.Len(t, results, 1)
		assert.Equal(t, models.LinkStatusUnreachable, results[0].Status)
		assert.NotEmpty(t, results[0].Error)
	})

	t.Run("结果顺序与输入一致", func(t *testing.T) {
		urls := []string{notFoundServer.URL, okServer.URL, notFoundServer.URL + "/other"}
		results := validator.ValidateLinks(context.Background(), urls)
		assert.Len(t, results, 3)
		for i, url := range urls {
			assert.Equal(t, url, results[i].URL)
		}
		assert.Equal(t, models.LinkStatusInvalid, results[0].Status)
		assert.Equal(t, models.LinkStatusValid, results[1].Status)
		assert.Equal(t, models.LinkStatusInvalid, results[2].Status)
	})
}

func TestValidateLinksFollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	validator := NewLinkValidator()
	results := validator.ValidateLinks(context.Background(), []string{redirecting.URL})

	assert.Len(t, results, 1)
	assert.Equal(t, models.LinkStatusValid, results[0].Status)
	assert.Equal(t, target.URL, results[0].RedirectedTo)
}

func TestValidateLinksRedirectLimit(t *testing.T) {
	// 每次请求都继续重定向，跳数永远超上限
	var loop *httptest.Server
	loop = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loop.URL+r.URL.Path+"/next", http.StatusFound)
	}))
	defer loop.Close()

	validator := NewLinkValidator()
	results := validator.ValidateLinks(context.Background(), []string{loop.URL})

	assert.Len(t, results, 1)
	assert.Equal(t, models.LinkStatusUnreachable, results[0].Status)
	assert.Contains(t, results[0].Error, "stopped after 3 redirects")
}
