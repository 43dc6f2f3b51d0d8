/*
 * @module api/controllers/qa_controller
 * @description 质量审查控制器，提供审查触发、记录查询、规则管理和统计API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow HTTP请求 -> 审查编排 -> 结果返回与事件推送
 * @rules 手动触发的审查同步执行并落库；审查完成后推送房间事件
 * @dependencies ticketdesk-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/qa/
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ticketdesk-service/service"
	"ticketdesk-service/service/chat"
	"ticketdesk-service/service/event"
	"ticketdesk-service/service/models"
	"ticketdesk-service/service/qa"
	"ticketdesk-service/service/task"
)

// QAController 质量审查控制器
type QAController struct {
	qaService    *qa.Service
	taskService  *task.Service
	chatService  *chat.Service
	eventService *event.EventService
}

// NewQAController 创建质量审查控制器实例
func NewQAController() *QAController {
	return &QAController{
		qaService:    service.GlobalQAService,
		taskService:  service.GlobalTaskService,
		chatService:  service.GlobalChatService,
		eventService: service.GlobalEventService,
	}
}

// TriggerReviewRequest 手动触发审查请求
type TriggerReviewRequest struct {
	MessageID      string `json:"messageId"`
	TaskID         string `json:"taskId"`
	MessageContent string `json:"messageContent"`
}

// TriggerReview 手动触发质量审查
// @Summary 触发质量审查
// @Description 对指定消息内容执行完整质量审查并持久化记录
// @Tags 质量审查
// @Accept json
// @Produce json
// @Param request body TriggerReviewRequest true "审查请求"
// @Success 200 {object} APIResponse{data=models.QAReview}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /qa/review [post]
func (c *QAController) TriggerReview(w http.ResponseWriter, r *http.Request) {
	var req TriggerReviewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if req.MessageID == "" || req.TaskID == "" || req.MessageContent == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest,
			"messageId、taskId 和 messageContent 均不能为空", nil))
		return
	}

	taskCtx := c.taskService.Context(req.TaskID)
	history, err := c.chatService.History(req.TaskID)
	if err != nil {
		// 会话历史获取失败不阻断审查
		history = nil
	}

	review, err := c.qaService.ReviewAndSave(r.Context(), req.MessageID, req.TaskID, req.MessageContent, taskCtx, history)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "执行质量审查失败", err))
		return
	}

	// 推送审查完成和统计刷新事件
	c.eventService.Publish(req.TaskID, models.EventQAReviewCompleted, map[string]interface{}{
		"messageId": req.MessageID,
		"taskId":    req.TaskID,
		"qaResult":  review,
		"timestamp": time.Now(),
	})
	c.eventService.Publish(req.TaskID, models.EventQAStatsUpdated, map[string]interface{}{
		"taskId":      req.TaskID,
		"timestamp":   time.Now(),
		"triggeredBy": "manual_qa_review",
	})

	render.Render(w, r, SuccessResponse("质量审查完成", review))
}

// ListReviews 获取任务审查记录
// @Summary 获取任务审查记录
// @Description 查询任务下的审查记录，支持状态和结论过滤
// @Tags 质量审查
// @Produce json
// @Param taskId path string true "任务ID"
// @Param status query string false "状态过滤"
// @Param category query string false "结论过滤"
// @Success 200 {object} APIResponse{data=[]models.QAReview}
// @Failure 500 {object} APIResponse
// @Router /qa/reviews/{taskId} [get]
func (c *QAController) ListReviews(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	status := r.URL.Query().Get("status")
	category := r.URL.Query().Get("category")

	reviews, err := c.qaService.ListReviews(taskID, status, category)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取审查记录失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取审查记录成功", map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
		"filters": map[string]string{"status": status, "category": category},
	}))
}

// GetRules 获取审查规则
// @Summary 获取审查规则
// @Description 返回当前全部审查规则
// @Tags 质量审查
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.QARule}
// @Router /qa/rules [get]
func (c *QAController) GetRules(w http.ResponseWriter, r *http.Request) {
	rules := c.qaService.Rules()

	render.Render(w, r, SuccessResponse("获取审查规则成功", map[string]interface{}{
		"rules": rules,
		"count": len(rules),
		"categories": []string{
			models.RuleCategoryFormatting,
			models.RuleCategoryContent,
			models.RuleCategoryTechnical,
			models.RuleCategoryLinks,
		},
	}))
}

// UpdateRulesRequest 批量更新规则请求
type UpdateRulesRequest struct {
	Rules []map[string]interface{} `json:"rules"`
}

// UpdateRules 批量更新审查规则
// @Summary 批量更新审查规则
// @Description 按ID局部更新多条规则，未出现的字段保持原值
// @Tags 质量审查
// @Accept json
// @Produce json
// @Param request body UpdateRulesRequest true "规则更新列表"
// @Success 200 {object} APIResponse{data=[]models.QARule}
// @Failure 400 {object} APIResponse
// @Router /qa/rules [put]
func (c *QAController) UpdateRules(w http.ResponseWriter, r *http.Request) {
	var req UpdateRulesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.Rules == nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "rules 必须为数组", nil))
		return
	}

	for _, update := range req.Rules {
		id, _ := update["id"].(string)
		if id == "" {
			continue
		}
		if _, err := c.qaService.UpdateRule(id, update); err != nil {
			render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新审查规则失败", err))
			return
		}
	}

	render.Render(w, r, SuccessResponse("审查规则更新成功", map[string]interface{}{
		"rules": c.qaService.Rules(),
	}))
}

// AddRule 新增审查规则
// @Summary 新增审查规则
// @Description 新增自定义审查规则，带脚本的规则会先做语法校验
// @Tags 质量审查
// @Accept json
// @Produce json
// @Param request body models.QARule true "规则定义"
// @Success 200 {object} APIResponse{data=models.QARule}
// @Failure 400 {object} APIResponse
// @Router /qa/rules [post]
func (c *QAController) AddRule(w http.ResponseWriter, r *http.Request) {
	var rule models.QARule
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if rule.ID == "" || rule.Name == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "规则ID和名称不能为空", nil))
		return
	}

	if err := c.qaService.AddRule(rule); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "新增审查规则失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("新增审查规则成功", rule))
}

// RemoveRule 删除审查规则
// @Summary 删除审查规则
// @Description 按ID删除审查规则
// @Tags 质量审查
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /qa/rules/{id} [delete]
func (c *QAController) RemoveRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.qaService.RemoveRule(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "删除审查规则失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除审查规则成功", nil))
}

// GetStats 获取审查统计
// @Summary 获取审查统计
// @Description 生成任务在时间窗内的审查统计，taskId 省略时统计全部任务
// @Tags 质量审查
// @Produce json
// @Param taskId path string false "任务ID"
// @Param timeframe query string false "时间窗 1d/7d/30d" default(7d)
// @Success 200 {object} APIResponse{data=qa.QAStats}
// @Failure 500 {object} APIResponse
// @Router /qa/stats/{taskId} [get]
func (c *QAController) GetStats(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "7d"
	}

	stats, err := c.qaService.Stats(taskID, qa.ParseTimeframe(timeframe))
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取审查统计失败", err))
		return
	}

	scope := taskID
	if scope == "" {
		scope = "all_tasks"
	}

	render.Render(w, r, SuccessResponse("获取审查统计成功", map[string]interface{}{
		"stats":     stats,
		"timeframe": timeframe,
		"taskId":    scope,
	}))
}
