/*
 * @module api/controllers/event_controller
 * @description 事件管理控制器，提供任务房间SSE连接和事件查询管理API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/realtime_events.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies ticketdesk-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/event/
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"ticketdesk-service/service"
	"ticketdesk-service/service/event"
	"ticketdesk-service/service/models"
)

// EventController 事件管理控制器
type EventController struct {
	eventService *event.EventService
}

// NewEventController 创建事件控制器实例
func NewEventController() *EventController {
	return &EventController{
		eventService: service.GlobalEventService,
	}
}

// === SSE连接处理 ===

// HandleSSE 处理SSE连接
// @Summary 建立任务房间SSE连接
// @Description 前端页面通过此接口加入任务房间，接收实时事件推送
// @Tags 事件管理
// @Param taskId path string true "任务ID"
// @Param user_name query string false "用户名"
// @Success 200 {string} string "SSE事件流"
// @Router /sse/{taskId} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	if taskID == "" {
		http.Error(w, "任务ID不能为空", http.StatusBadRequest)
		return
	}
	userName := r.URL.Query().Get("user_name")
	if userName == "" {
		userName = "anonymous"
	}

	// 设置SSE响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	// 生成连接ID
	connectionID := uuid.New().String()
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	// 加入任务房间
	client := c.eventService.Join(taskID, userName, connectionID, clientIP)
	defer c.eventService.Leave(taskID, connectionID)

	// 发送连接成功事件
	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"connection_id\":\"%s\",\"task_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		connectionID, taskID, time.Now().Format(time.RFC3339))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	// 处理事件推送
	for {
		select {
		case event := <-client.Channel:
			fmt.Fprintf(w, "data: %s\n\n", toJSON(event))

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// PublishEventRequest 发布事件请求
type PublishEventRequest struct {
	TaskID    string                 `json:"task_id" example:"task-1"`
	EventType string                 `json:"event_type" example:"system_notification"`
	Data      map[string]interface{} `json:"data"`
}

// PublishEvent 向任务房间发布事件
// @Summary 发布事件
// @Description 向指定任务房间发布SSE事件
// @Tags 事件管理
// @Accept json
// @Produce json
// @Param request body PublishEventRequest true "发布事件请求"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /events/publish [post]
func (c *EventController) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var req PublishEventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if req.TaskID == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "任务ID不能为空", nil))
		return
	}
	if req.EventType == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "事件类型不能为空", nil))
		return
	}

	if err := c.eventService.Publish(req.TaskID, req.EventType, req.Data); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "发布事件失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("事件发布成功", map[string]interface{}{
		"task_id":    req.TaskID,
		"event_type": req.EventType,
		"room_size":  c.eventService.RoomSize(req.TaskID),
	}))
}

// GetConnectionList 获取SSE连接列表
// @Summary 获取SSE连接列表
// @Description 分页获取SSE连接列表，支持多种过滤条件
// @Tags 事件管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param task_id query string false "任务ID过滤"
// @Param user_name query string false "用户名过滤"
// @Param is_active query bool false "连接状态过滤"
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /events/connections [get]
func (c *EventController) GetConnectionList(w http.ResponseWriter, r *http.Request) {
	page := 1
	size := 10
	taskID := r.URL.Query().Get("task_id")
	userName := r.URL.Query().Get("user_name")
	isActiveStr := r.URL.Query().Get("is_active")

	var isActive *bool
	if isActiveStr != "" {
		if isActiveStr == "true" {
			val := true
			isActive = &val
		} else if isActiveStr == "false" {
			val := false
			isActive = &val
		}
	}

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 && s <= 100 {
		size = s
	}

	connections, total, err := c.eventService.GetConnectionList(page, size, taskID, userName, isActive)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取SSE连接列表失败", err))
		return
	}

	render.Render(w, r, SuccessPaginatedResponse("获取SSE连接列表成功", connections, total, page, size))
}

// GetEventHistoryList 获取事件历史列表
// @Summary 获取事件历史列表
// @Description 分页获取已持久化的SSE事件，支持任务和类型过滤
// @Tags 事件管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param task_id query string false "任务ID过滤"
// @Param event_type query string false "事件类型过滤"
// @Param sent query bool false "发送状态过滤"
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /events/history [get]
func (c *EventController) GetEventHistoryList(w http.ResponseWriter, r *http.Request) {
	page := 1
	size := 10
	taskID := r.URL.Query().Get("task_id")
	eventType := r.URL.Query().Get("event_type")
	sentStr := r.URL.Query().Get("sent")

	var sent *bool
	if sentStr != "" {
		if sentStr == "true" {
			val := true
			sent = &val
		} else if sentStr == "false" {
			val := false
			sent = &val
		}
	}

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 && s <= 100 {
		size = s
	}

	events, total, err := c.eventService.GetEventHistoryList(page, size, taskID, eventType, sent)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取事件历史失败", err))
		return
	}

	render.Render(w, r, SuccessPaginatedResponse("获取事件历史成功", events, total, page, size))
}

// toJSON 序列化SSE事件为JSON字符串
func toJSON(event *models.SSEEvent) string {
	data, err := json.Marshal(event)
	if err != nil {
		return "{}"
	}
	return string(data)
}
