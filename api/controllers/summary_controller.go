/*
 * @module api/controllers/summary_controller
 * @description 任务摘要控制器，提供AI摘要生成和查询API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/task_summary.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules AI不可用时降级为规则摘要，生成结果始终落库
 * @dependencies ticketdesk-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/summary/
 */

package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"

	"ticketdesk-service/service"
	"ticketdesk-service/service/summary"
	"ticketdesk-service/service/task"
)

// SummaryController 任务摘要控制器
type SummaryController struct {
	summaryService *summary.Service
	taskService    *task.Service
}

// NewSummaryController 创建任务摘要控制器实例
func NewSummaryController() *SummaryController {
	return &SummaryController{
		summaryService: service.GlobalSummaryService,
		taskService:    service.GlobalTaskService,
	}
}

// GenerateSummary 生成任务摘要
// @Summary 生成任务摘要
// @Description 基于任务会话历史生成摘要，AI不可用时降级为规则摘要
// @Tags 任务摘要
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.TaskSummary}
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /tasks/{id}/summary [post]
func (c *SummaryController) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := c.taskService.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, ErrorResponse(http.StatusNotFound, "任务不存在", nil))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取任务失败", err))
		return
	}

	s, err := c.summaryService.Generate(r.Context(), t)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "生成任务摘要失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("生成任务摘要成功", s))
}

// GetSummary 获取任务摘要
// @Summary 获取任务摘要
// @Description 获取任务最新一份摘要
// @Tags 任务摘要
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.TaskSummary}
// @Failure 404 {object} APIResponse
// @Router /tasks/{id}/summary [get]
func (c *SummaryController) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := c.summaryService.Latest(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, ErrorResponse(http.StatusNotFound, "任务摘要不存在", nil))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取任务摘要失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取任务摘要成功", s))
}
