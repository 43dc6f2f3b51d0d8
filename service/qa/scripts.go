/*
 * @module service/qa/scripts
 * @description 规则脚本执行器，基于Yaegi解释器运行自定义审查规则，支持编译缓存
 * @architecture 分层架构 - 质量审查服务层
 * @dependencies github.com/traefik/yaegi
 * @refs service/qa/rules.go
 */

package qa

import (
	"crypto/sha1"
	"fmt"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptExecutor 规则脚本执行器，按脚本内容哈希缓存编译结果
type ScriptExecutor struct {
	mu    sync.RWMutex
	cache map[string]*compiledScript
}

type compiledScript struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// NewScriptExecutor 创建脚本执行器
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{
		cache: make(map[string]*compiledScript),
	}
}

// Execute 执行规则脚本，params 携带消息内容与分析结果
// 脚本运行期异常转换为错误返回，不向调用方扩散
func (e *ScriptExecutor) Execute(script string, params map[string]interface{}) (out interface{}, err error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	e.mu.RLock()
	compiled, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		compiled, err = e.compile(script, hash)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		e.cache[hash] = compiled
		e.mu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("脚本执行异常: %v", r)
		}
	}()

	return compiled.fn(params)
}

// compile 编译脚本为可执行函数
// 脚本体被包装进 Run 函数，可直接使用 content/analysis/task 三个变量
func (e *ScriptExecutor) compile(script, hash string) (*compiledScript, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strings"
	"regexp"
	"math"
)

// 必须提供一个 Run 函数作为入口
func Run(params map[string]interface{}) (interface{}, error) {
	var content interface{}
	if c, exists := params["content"]; exists {
		content = c
	}

	var analysis interface{}
	if a, exists := params["analysis"]; exists {
		analysis = a
	}

	var task interface{}
	if t, exists := params["task"]; exists {
		task = t
	}

	// 脚本内容
%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("脚本编译失败: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &compiledScript{
		fn:       runFunc,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}

// Validate 校验脚本语法，规则保存前调用
func (e *ScriptExecutor) Validate(script string) error {
	_, err := e.compile(script, "")
	return err
}

// ClearCache 清理编译缓存
func (e *ScriptExecutor) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*compiledScript)
}
