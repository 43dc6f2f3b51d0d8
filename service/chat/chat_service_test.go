/*
 * @module service/chat/chat_service_test
 * @description 任务聊天服务单元测试
 * @architecture 测试层 - sqlite内存库加判定桩验证消息流程
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 消息发送 -> 持久化验证 -> 触发词审查验证
 * @rules 覆盖入参校验、附件处理、历史提取和后台审查触发
 * @dependencies testing, testify, ticketdesk-service/testutil
 * @refs chat_service.go
 */

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"ticketdesk-service/service/event"
	"ticketdesk-service/service/models"
	"ticketdesk-service/service/qa"
	"ticketdesk-service/service/task"
	"ticketdesk-service/testutil"
)

// heuristicJudge 测试用判定桩，直接走启发式分析
type heuristicJudge struct{}

func (j *heuristicJudge) Analyze(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) *qa.Analysis {
	return qa.NewHeuristicAnalyzer().Analyze(content)
}

func newTestChatService(t *testing.T) (*Service, *testutil.TestDB, *testutil.TestDataFactory) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	events := event.NewEventService(tdb.DB, nil)
	t.Cleanup(events.Stop)

	tasks := task.NewService(tdb.DB)
	qaService := qa.NewServiceWithJudge(tdb.DB, &heuristicJudge{})
	service := NewService(tdb.DB, tasks, qaService, events)

	return service, tdb, testutil.NewTestDataFactory(tdb.DB)
}

func TestSendMessageValidation(t *testing.T) {
	service, _, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	t.Run("发送者不能为空", func(t *testing.T) {
		_, _, err := service.Send(taskRecord.ID, SendInput{Content: "hello"})
		assert.Error(t, err)
	})

	t.Run("内容和附件不能同时为空", func(t *testing.T) {
		_, _, err := service.Send(taskRecord.ID, SendInput{SenderName: "Alice"})
		assert.Error(t, err)
	})
}

func TestSendMessage(t *testing.T) {
	service, tdb, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	message, qaTriggered, err := service.Send(taskRecord.ID, SendInput{
		SenderName: "Alice",
		Content:    "Deployment finished without issues.",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, message.ID)
	assert.False(t, qaTriggered)
	assert.Equal(t, models.MessageTypeText, message.MessageType)

	// 消息事件已持久化
	var events int64
	tdb.DB.Model(&models.SSEEvent{}).
		Where("task_id = ? AND event_type = ?", taskRecord.ID, models.EventNewMessage).
		Count(&events)
	assert.Equal(t, int64(1), events)
}

func TestSendMessageWithAttachments(t *testing.T) {
	service, _, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	message, _, err := service.Send(taskRecord.ID, SendInput{
		SenderName: "Alice",
		Content:    "Attached the error log.",
		Attachments: []AttachmentInput{
			{Filename: "error.log", URL: "https://files.internal/error.log", Type: "text/plain", Size: 2048},
		},
	})
	assert.NoError(t, err)
	// 带附件的消息类型强制为file
	assert.Equal(t, models.MessageTypeFile, message.MessageType)
	assert.Len(t, message.Attachments, 1)
	assert.False(t, message.Attachments[0].UploadedAt.IsZero())
}

func TestSendMessageTriggersQAReview(t *testing.T) {
	service, tdb, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	message, qaTriggered, err := service.Send(taskRecord.ID, SendInput{
		SenderName: "Alice",
		Content:    "Hello team, the fix is deployed and verified. Please let me know if anything regresses. @QAreview",
	})
	assert.NoError(t, err)
	// 触发状态随发送响应同步返回，结果异步落库
	assert.True(t, qaTriggered)

	// 审查在后台执行，轮询等待记录落库
	assert.Eventually(t, func() bool {
		var count int64
		tdb.DB.Model(&models.QAReview{}).Where("message_id = ?", message.ID).Count(&count)
		return count == 1
	}, 5*time.Second, 50*time.Millisecond)

	var review models.QAReview
	assert.NoError(t, tdb.DB.First(&review, "message_id = ?", message.ID).Error)
	assert.Equal(t, taskRecord.ID, review.TaskID)
	assert.Greater(t, review.Score, 0.0)
}

// panicJudge 必定异常的判定桩，用于模拟审查整体失败
type panicJudge struct{}

func (j *panicJudge) Analyze(ctx context.Context, content string, taskCtx models.TaskContext, history []models.ConversationTurn) *qa.Analysis {
	panic("judge exploded")
}

func TestQAReviewFailureNotifiesRoom(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	events := event.NewEventService(tdb.DB, nil)
	t.Cleanup(events.Stop)

	service := NewService(tdb.DB, task.NewService(tdb.DB),
		qa.NewServiceWithJudge(tdb.DB, &panicJudge{}), events)
	factory := testutil.NewTestDataFactory(tdb.DB)
	taskRecord := factory.CreateTask()

	message, qaTriggered, err := service.Send(taskRecord.ID, SendInput{
		SenderName: "Alice",
		Content:    "Please take a look at this update. @QAreview",
	})
	assert.NoError(t, err)
	assert.True(t, qaTriggered)

	// 审查失败时失败说明经事件下发，消息本身不受影响
	var failureEvent models.SSEEvent
	assert.Eventually(t, func() bool {
		err := tdb.DB.Where("task_id = ? AND event_type = ?",
			taskRecord.ID, models.EventQAReviewCompleted).
			First(&failureEvent).Error
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "QA review failed but message was sent successfully", failureEvent.Data["error"])

	var reviews int64
	tdb.DB.Model(&models.QAReview{}).Where("message_id = ?", message.ID).Count(&reviews)
	assert.Equal(t, int64(0), reviews)
}

func TestSendMessageWithoutTriggerSkipsReview(t *testing.T) {
	service, tdb, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	message, qaTriggered, err := service.Send(taskRecord.ID, SendInput{
		SenderName: "Alice",
		Content:    "Just a regular update, no review needed.",
	})
	assert.NoError(t, err)
	assert.False(t, qaTriggered)

	time.Sleep(100 * time.Millisecond)
	var count int64
	tdb.DB.Model(&models.QAReview{}).Where("message_id = ?", message.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestListMessages(t *testing.T) {
	service, _, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	for i := 0; i < 3; i++ {
		factory.CreateMessage(taskRecord.ID)
	}

	messages, total, err := service.List(taskRecord.ID, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, messages, 2)
}

func TestDeleteMessage(t *testing.T) {
	service, _, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()
	message := factory.CreateMessage(taskRecord.ID)

	assert.NoError(t, service.Delete(taskRecord.ID, message.ID))
	assert.ErrorIs(t, service.Delete(taskRecord.ID, message.ID), gorm.ErrRecordNotFound)
}

func TestHistory(t *testing.T) {
	service, _, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	factory.CreateMessage(taskRecord.ID, func(m *models.Message) {
		m.SenderName = "Alice"
		m.Content = "First message"
	})
	factory.CreateMessage(taskRecord.ID, func(m *models.Message) {
		m.SenderName = "Bob"
		m.Content = "Second message"
	})

	turns, err := service.History(taskRecord.ID)
	assert.NoError(t, err)
	assert.Len(t, turns, 2)
	assert.Equal(t, "Alice", turns[0].Sender)
	assert.Equal(t, "First message", turns[0].Content)
}

func TestAttachmentsAggregation(t *testing.T) {
	service, _, factory := newTestChatService(t)
	taskRecord := factory.CreateTask()

	factory.CreateMessage(taskRecord.ID, func(m *models.Message) {
		m.SenderName = "Alice"
		m.MessageType = models.MessageTypeFile
		m.Attachments = models.AttachmentArray{
			{Filename: "report.pdf", URL: "https://files.internal/report.pdf"},
			{Filename: "trace.log", URL: "https://files.internal/trace.log"},
		}
	})
	factory.CreateMessage(taskRecord.ID)

	attachments, err := service.Attachments(taskRecord.ID)
	assert.NoError(t, err)
	assert.Len(t, attachments, 2)
	assert.Equal(t, "report.pdf", attachments[0].Filename)
	assert.Equal(t, "Alice", attachments[0].SentBy)
}
