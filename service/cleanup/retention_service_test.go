/*
 * @module service/cleanup/retention_service_test
 * @description 数据保留清理服务单元测试
 * @architecture 测试层 - sqlite内存库验证过期数据删除
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造新旧数据 -> 执行清理 -> 验证删留结果
 * @rules 覆盖事件、连接、审查记录三类数据的保留边界
 * @dependencies testing, testify, ticketdesk-service/testutil
 * @refs retention_service.go
 */

package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ticketdesk-service/service/models"
	"ticketdesk-service/testutil"
)

func createEvent(t *testing.T, tdb *testutil.TestDB, taskID string, age time.Duration) *models.SSEEvent {
	event := &models.SSEEvent{
		TaskID:    taskID,
		EventType: models.EventNewMessage,
		Data:      models.JSONB{"n": 1},
		CreatedAt: time.Now(),
	}
	assert.NoError(t, tdb.DB.Create(event).Error)
	assert.NoError(t, tdb.DB.Model(event).Update("created_at", time.Now().Add(-age)).Error)
	return event
}

func createConnection(t *testing.T, tdb *testutil.TestDB, connectionID string, age time.Duration, active bool) {
	connection := &models.SSEConnection{
		TaskID:       "task-1",
		UserName:     "Alice",
		ConnectionID: connectionID,
		ConnectedAt:  time.Now().Add(-age),
		IsActive:     active,
	}
	assert.NoError(t, tdb.DB.Create(connection).Error)
}

func TestCleanupExpired(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	service := NewRetentionService(tdb.DB)

	task := factory.CreateTask()
	message := factory.CreateMessage(task.ID)

	// 事件：8天前的删除，1天前的保留
	old := createEvent(t, tdb, task.ID, 8*24*time.Hour)
	recent := createEvent(t, tdb, task.ID, 24*time.Hour)

	// 连接：31天前已关闭的删除；同样旧但仍活跃的保留；新近关闭的保留
	createConnection(t, tdb, "stale-closed", 31*24*time.Hour, false)
	createConnection(t, tdb, "stale-active", 31*24*time.Hour, true)
	createConnection(t, tdb, "fresh-closed", 24*time.Hour, false)

	// 审查记录：91天前的删除，昨天的保留
	oldReview := factory.CreateReview(task.ID, message.ID)
	assert.NoError(t, tdb.DB.Model(&models.QAReview{}).Where("id = ?", oldReview.ID).
		Update("created_at", time.Now().AddDate(0, 0, -91)).Error)
	freshReview := factory.CreateReview(task.ID, message.ID)

	assert.NoError(t, service.CleanupExpired(context.Background()))

	var eventIDs []string
	tdb.DB.Model(&models.SSEEvent{}).Pluck("id", &eventIDs)
	assert.NotContains(t, eventIDs, old.ID)
	assert.Contains(t, eventIDs, recent.ID)

	var connectionIDs []string
	tdb.DB.Model(&models.SSEConnection{}).Pluck("connection_id", &connectionIDs)
	assert.NotContains(t, connectionIDs, "stale-closed")
	assert.Contains(t, connectionIDs, "stale-active")
	assert.Contains(t, connectionIDs, "fresh-closed")

	var reviewIDs []string
	tdb.DB.Model(&models.QAReview{}).Pluck("id", &reviewIDs)
	assert.NotContains(t, reviewIDs, oldReview.ID)
	assert.Contains(t, reviewIDs, freshReview.ID)
}

func TestRetentionDaysFromEnv(t *testing.T) {
	t.Setenv("SSE_EVENT_RETENTION_DAYS", "3")
	assert.Equal(t, 3, retentionDays("SSE_EVENT_RETENTION_DAYS", DefaultEventRetentionDays))

	t.Setenv("SSE_EVENT_RETENTION_DAYS", "not-a-number")
	assert.Equal(t, DefaultEventRetentionDays, retentionDays("SSE_EVENT_RETENTION_DAYS", DefaultEventRetentionDays))

	t.Setenv("SSE_EVENT_RETENTION_DAYS", "")
	assert.Equal(t, DefaultEventRetentionDays, retentionDays("SSE_EVENT_RETENTION_DAYS", DefaultEventRetentionDays))
}

func TestScheduledCleanupLifecycle(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewRetentionService(tdb.DB)

	assert.NoError(t, service.StartScheduledCleanup())
	assert.Error(t, service.StartScheduledCleanup())

	service.StopScheduledCleanup()
	// 重复停止不报错
	service.StopScheduledCleanup()
}
