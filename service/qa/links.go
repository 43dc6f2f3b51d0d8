/*
 * @module service/qa/links
 * @description 链接提取与可达性校验，提供消息文本中URL的抽取、去重和并发探测
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 链接提取 -> 并发探测 -> 结果分类（valid/invalid/unreachable）
 * @rules 校验永不抛错：网络异常一律降级为 unreachable 结果；输出顺序与输入一致
 * @dependencies net/http, ticketdesk-service/service/models
 * @refs service/qa/engine.go
 */

package qa

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"ticketdesk-service/service/models"
)

const (
	// 单个链接探测超时
	linkProbeTimeout = 5 * time.Second
	// 最大重定向跳数
	maxRedirects = 3
)

var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// ExtractLinks 提取消息文本中的URL，去重并保持首次出现顺序
func ExtractLinks(content string) []string {
	matches := urlPattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			links = append(links, m)
		}
	}
	return links
}

// LinkValidator 链接可达性校验器
type LinkValidator struct {
	client *http.Client
}

// NewLinkValidator 创建链接校验器，限制超时与重定向跳数
func NewLinkValidator() *LinkValidator {
	return &LinkValidator{
		client: &http.Client{
			Timeout: linkProbeTimeout,
			// 超过跳数上限视为探测失败，不以中间3xx响应作为结果
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// ValidateLinks 校验一组URL，每个URL产出一条结果，输出位置与输入一一对应
// 各URL探测相互独立并发执行，永不返回错误
func (v *LinkValidator) ValidateLinks(ctx context.Context, urls []string) []models.LinkValidationResult {
	if len(urls) == 0 {
		return nil
	}

	results := make([]models.LinkValidationResult, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			results[idx] = v.validateOne(ctx, target)
		}(i, url)
	}
	wg.Wait()

	return results
}

// validateOne 探测单个URL并分类结果
func (v *LinkValidator) validateOne(ctx context.Context, url string) models.LinkValidationResult {
	result := models.LinkValidationResult{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		result.Status = models.LinkStatusUnreachable
		result.Error = err.Error()
		return result
	}

	resp, err := v.client.Do(req)
	if err != nil {
		result.Status = models.LinkStatusUnreachable
		result.Error = classifyNetworkError(err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		result.Status = models.LinkStatusInvalid
		result.StatusCode = resp.StatusCode
		result.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return result
	}

	result.Status = models.LinkStatusValid
	result.StatusCode = resp.StatusCode
	if final := resp.Request.URL.String(); final != url {
		result.RedirectedTo = final
	}
	return result
}

// classifyNetworkError 把网络层错误翻译成可读的失败原因
func classifyNetworkError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "Domain not found"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return "Request timeout"
	}

	return err.Error()
}
