/*
 * @module api/controllers/task_controller
 * @description 工单任务控制器，提供任务的增删改查API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies ticketdesk-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/task/
 */

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"

	"ticketdesk-service/service"
	"ticketdesk-service/service/models"
	"ticketdesk-service/service/task"
)

// TaskController 任务控制器
type TaskController struct {
	taskService *task.Service
}

// NewTaskController 创建任务控制器实例
func NewTaskController() *TaskController {
	return &TaskController{
		taskService: service.GlobalTaskService,
	}
}

// ListTasks 获取任务列表
// @Summary 获取任务列表
// @Description 分页获取任务列表，支持状态、优先级过滤和关键字搜索
// @Tags 任务管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页大小" default(50)
// @Param status query string false "状态过滤"
// @Param priority query string false "优先级过滤"
// @Param search query string false "关键字搜索"
// @Success 200 {object} PaginatedResponse{data=[]task.TaskWithCount}
// @Failure 500 {object} APIResponse
// @Router /tasks [get]
func (c *TaskController) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := task.ListQuery{
		Page:     1,
		Limit:    50,
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
		Search:   r.URL.Query().Get("search"),
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		query.Page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 200 {
		query.Limit = l
	}

	tasks, total, err := c.taskService.List(query)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取任务列表失败", err))
		return
	}

	render.Render(w, r, SuccessPaginatedResponse("获取任务列表成功", tasks, total, query.Page, query.Limit))
}

// GetTask 获取任务详情
// @Summary 获取任务详情
// @Description 按ID获取单个任务
// @Tags 任务管理
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.Task}
// @Failure 404 {object} APIResponse
// @Router /tasks/{id} [get]
func (c *TaskController) GetTask(w http.ResponseWriter, r *http.Request) {
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

	render.Render(w, r, SuccessResponse("获取任务成功", t))
}

// CreateTask 创建任务
// @Summary 创建任务
// @Description 创建新任务，初始状态为 logged
// @Tags 任务管理
// @Accept json
// @Produce json
// @Param request body models.Task true "任务信息"
// @Success 200 {object} APIResponse{data=models.Task}
// @Failure 400 {object} APIResponse
// @Router /tasks [post]
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if err := render.DecodeJSON(r.Body, &t); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if t.Title == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "任务标题不能为空", nil))
		return
	}
	if t.RequesterName == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求人不能为空", nil))
		return
	}

	if err := c.taskService.Create(&t); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "创建任务失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("创建任务成功", t))
}

// UpdateTask 更新任务
// @Summary 更新任务
// @Description 按ID局部更新任务字段
// @Tags 任务管理
// @Accept json
// @Produce json
// @Param id path string true "任务ID"
// @Param request body map[string]interface{} true "更新字段"
// @Success 200 {object} APIResponse{data=models.Task}
// @Failure 404 {object} APIResponse
// @Router /tasks/{id} [put]
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	t, err := c.taskService.Update(id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, ErrorResponse(http.StatusNotFound, "任务不存在", nil))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新任务失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("更新任务成功", t))
}

// DeleteTask 删除任务
// @Summary 删除任务
// @Description 按ID删除任务及其关联数据
// @Tags 任务管理
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tasks/{id} [delete]
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.taskService.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, ErrorResponse(http.StatusNotFound, "任务不存在", nil))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "删除任务失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除任务成功", nil))
}
