/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs dev_docs/qa_review.md
 */

package api

import (
	"ticketdesk-service/api/controllers"
	"ticketdesk-service/api/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Token鉴权（未配置 API_AUTH_TOKEN 时关闭）
	authMiddleware := middleware.NewTokenAuthMiddleware()
	r.Use(authMiddleware.Middleware)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅（按任务房间）
	eventController := controllers.NewEventController()
	r.Get("/sse/{taskId}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/publish", eventController.PublishEvent)
		r.Get("/connections", eventController.GetConnectionList)
		r.Get("/history", eventController.GetEventHistoryList)
	})

	// 任务管理
	r.Route("/tasks", func(r chi.Router) {
		taskController := controllers.NewTaskController()
		summaryController := controllers.NewSummaryController()

		r.Get("/", taskController.ListTasks)
		r.Post("/", taskController.CreateTask)
		r.Get("/{id}", taskController.GetTask)
		r.Put("/{id}", taskController.UpdateTask)
		r.Delete("/{id}", taskController.DeleteTask)

		// 任务摘要
		r.Post("/{id}/summary", summaryController.GenerateSummary)
		r.Get("/{id}/summary", summaryController.GetSummary)
	})

	// 任务聊天
	r.Route("/chat", func(r chi.Router) {
		chatController := controllers.NewChatController()

		r.Get("/{taskId}/messages", chatController.ListMessages)
		r.Post("/{taskId}/messages", chatController.SendMessage)
		r.Delete("/{taskId}/messages/{messageId}", chatController.DeleteMessage)
		r.Get("/{taskId}/attachments", chatController.ListAttachments)
	})

	// 质量审查
	r.Route("/qa", func(r chi.Router) {
		qaController := controllers.NewQAController()

		// 审查触发与记录
		r.Post("/review", qaController.TriggerReview)
		r.Get("/reviews/{taskId}", qaController.ListReviews)

		// 规则管理
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", qaController.GetRules)
			r.Put("/", qaController.UpdateRules)
			r.Post("/", qaController.AddRule)
			r.Delete("/{id}", qaController.RemoveRule)
		})

		// 审查统计
		r.Get("/stats", qaController.GetStats)
		r.Get("/stats/{taskId}", qaController.GetStats)
	})
}
