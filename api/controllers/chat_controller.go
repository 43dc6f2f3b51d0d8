/*
 * @module api/controllers/chat_controller
 * @description 任务聊天控制器，提供消息收发、删除和附件汇总API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 消息发送成功即返回，质量审查在服务层后台执行
 * @dependencies ticketdesk-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/chat/
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
	"ticketdesk-service/service/chat"
)

// ChatController 聊天控制器
type ChatController struct {
	chatService *chat.Service
}

// NewChatController 创建聊天控制器实例
func NewChatController() *ChatController {
	return &ChatController{
		chatService: service.GlobalChatService,
	}
}

// ListMessages 获取任务消息列表
// @Summary 获取任务消息列表
// @Description 分页获取任务下的消息，按创建时间正序
// @Tags 聊天管理
// @Produce json
// @Param taskId path string true "任务ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页大小" default(50)
// @Success 200 {object} PaginatedResponse{data=[]models.Message}
// @Failure 500 {object} APIResponse
// @Router /chat/{taskId}/messages [get]
func (c *ChatController) ListMessages(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")

	page := 1
	limit := 50
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	messages, total, err := c.chatService.List(taskID, page, limit)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取消息列表失败", err))
		return
	}

	render.Render(w, r, SuccessPaginatedResponse("获取消息列表成功", messages, total, page, limit))
}

// SendMessage 发送消息
// @Summary 发送消息
// @Description 向任务发送消息，内容含 @QAreview 时后台触发质量审查；响应携带 qaTriggered 标识，审查结果经 qa_review_completed 事件下发
// @Tags 聊天管理
// @Accept json
// @Produce json
// @Param taskId path string true "任务ID"
// @Param request body chat.SendInput true "消息内容"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /chat/{taskId}/messages [post]
func (c *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")

	var input chat.SendInput
	if err := render.DecodeJSON(r.Body, &input); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	message, qaTriggered, err := c.chatService.Send(taskID, input)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "发送消息失败", err))
		return
	}

	data := map[string]interface{}{
		"message":     message,
		"qaTriggered": qaTriggered,
	}
	if qaTriggered {
		// 审查在后台执行，结果经任务房间事件下发
		data["qaStatus"] = "pending"
	}

	render.Render(w, r, SuccessResponse("发送消息成功", data))
}

// DeleteMessage 删除消息
// @Summary 删除消息
// @Description 删除任务下的指定消息
// @Tags 聊天管理
// @Produce json
// @Param taskId path string true "任务ID"
// @Param messageId path string true "消息ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /chat/{taskId}/messages/{messageId} [delete]
func (c *ChatController) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	messageID := chi.URLParam(r, "messageId")

	if err := c.chatService.Delete(taskID, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, ErrorResponse(http.StatusNotFound, "消息不存在", nil))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "删除消息失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除消息成功", nil))
}

// ListAttachments 获取任务附件汇总
// @Summary 获取任务附件汇总
// @Description 汇总任务下所有消息携带的附件
// @Tags 聊天管理
// @Produce json
// @Param taskId path string true "任务ID"
// @Success 200 {object} APIResponse{data=[]chat.TaskAttachment}
// @Failure 500 {object} APIResponse
// @Router /chat/{taskId}/attachments [get]
func (c *ChatController) ListAttachments(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")

	attachments, err := c.chatService.Attachments(taskID)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取附件汇总失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取附件汇总成功", map[string]interface{}{
		"attachments": attachments,
		"total":       len(attachments),
	}))
}
