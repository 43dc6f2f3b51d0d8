/*
 * @module service/qa/service
 * @description 质量审查服务门面，聚合规则存储、审查引擎与记录服务，供控制器和聊天服务调用
 * @architecture 分层架构 - 质量审查服务层
 * @documentReference dev_docs/qa_review.md
 * @stateFlow 服务初始化 -> 审查执行 -> 记录持久化 -> 查询统计
 * @rules 门面只做编排，审查语义全部在引擎内
 * @dependencies gorm.io/gorm
 * @refs service/init.go, api/controllers/qa_controller.go, service/chat/
 */

package qa

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ticketdesk-service/service/models"
)

// Service 质量审查服务
type Service struct {
	store   *RuleStore
	engine  *Engine
	reviews *ReviewService
}

// NewService 创建质量审查服务
func NewService(db *gorm.DB) *Service {
	store := NewRuleStore(db)
	return &Service{
		store:   store,
		engine:  NewEngine(store, NewAIJudge()),
		reviews: NewReviewService(db),
	}
}

// NewServiceWithJudge 以指定判定实现创建服务，测试使用
func NewServiceWithJudge(db *gorm.DB, judge Judge) *Service {
	store := NewRuleStore(db)
	return &Service{
		store:   store,
		engine:  NewEngine(store, judge),
		reviews: NewReviewService(db),
	}
}

// Review 执行质量审查，不落库
func (s *Service) Review(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) (*models.QAResult, error) {
	return s.engine.Review(ctx, content, taskCtx, history)
}

// ReviewAndSave 执行质量审查并持久化记录
func (s *Service) ReviewAndSave(ctx context.Context, messageID, taskID, content string, taskCtx models.TaskContext, history []models.ConversationTurn) (*models.QAReview, error) {
	result, err := s.engine.Review(ctx, content, taskCtx, history)
	if err != nil {
		return nil, err
	}
	return s.reviews.SaveReview(messageID, taskID, content, result)
}

// Rules 返回当前规则集
func (s *Service) Rules() []models.QARule {
	return s.store.Snapshot()
}

// UpdateRule 局部更新单条规则
func (s *Service) UpdateRule(id string, updates map[string]interface{}) (models.QARule, error) {
	return s.store.Update(id, updates)
}

// AddRule 新增规则，带脚本的规则先做语法校验
func (s *Service) AddRule(rule models.QARule) error {
	if rule.Script != "" {
		if err := s.engine.rules.scripts.Validate(rule.Script); err != nil {
			return err
		}
	}
	return s.store.Add(rule)
}

// RemoveRule 删除规则
func (s *Service) RemoveRule(id string) error {
	return s.store.Remove(id)
}

// ListReviews 查询任务下的审查记录
func (s *Service) ListReviews(taskID, status, category string) ([]models.QAReview, error) {
	return s.reviews.ListByTask(taskID, status, category)
}

// GetReviewByMessage 查询消息的最新审查记录
func (s *Service) GetReviewByMessage(messageID string) (*models.QAReview, error) {
	return s.reviews.GetByMessage(messageID)
}

// Stats 生成审查统计
func (s *Service) Stats(taskID string, window time.Duration) (*QAStats, error) {
	return s.reviews.Stats(taskID, window)
}
