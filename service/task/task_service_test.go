/*
 * @module service/task/task_service_test
 * @description 工单任务服务单元测试
 * @architecture 测试层 - sqlite内存库验证业务逻辑
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 数据准备 -> 服务方法调用 -> 结果验证
 * @rules 覆盖增删改查、过滤搜索、级联删除和上下文提取
 * @dependencies testing, testify, ticketdesk-service/testutil
 * @refs task_service.go
 */

package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"ticketdesk-service/service/models"
	"ticketdesk-service/testutil"
)

func TestCreateTask(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewService(tdb.DB)

	task := &models.Task{
		Title:         "New ticket",
		RequesterName: "Alice",
		Status:        models.TaskStatusDone, // 调用方传入的状态被忽略
	}
	assert.NoError(t, service.Create(task))
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusLogged, task.Status)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
}

func TestListTasks(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	service := NewService(tdb.DB)

	login := factory.CreateTask(func(task *models.Task) {
		task.Title = "Login failures after update"
		task.Status = models.TaskStatusOngoing
		task.Priority = models.TaskPriorityHigh
	})
	factory.CreateTask(func(task *models.Task) {
		task.Title = "Database slowdown"
		task.Status = models.TaskStatusLogged
	})
	factory.CreateMessage(login.ID)
	factory.CreateMessage(login.ID)

	t.Run("全量列表带消息计数", func(t *testing.T) {
		tasks, total, err := service.List(ListQuery{})
		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, tasks, 2)

		counts := map[string]int64{}
		for _, task := range tasks {
			counts[task.ID] = task.MessageCount
		}
		assert.Equal(t, int64(2), counts[login.ID])
	})

	t.Run("状态过滤", func(t *testing.T) {
		tasks, total, err := service.List(ListQuery{Status: models.TaskStatusOngoing})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, login.ID, tasks[0].ID)
	})

	t.Run("优先级过滤", func(t *testing.T) {
		_, total, err := service.List(ListQuery{Priority: models.TaskPriorityUrgent})
		assert.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("关键字搜索不区分大小写", func(t *testing.T) {
		tasks, total, err := service.List(ListQuery{Search: "LOGIN"})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, login.ID, tasks[0].ID)
	})

	t.Run("分页", func(t *testing.T) {
		tasks, total, err := service.List(ListQuery{Page: 2, Limit: 1})
		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, tasks, 1)
	})
}

func TestUpdateTask(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	service := NewService(tdb.DB)

	task := factory.CreateTask()

	updated, err := service.Update(task.ID, map[string]interface{}{
		"status":      models.TaskStatusOngoing,
		"assigned_to": "John Smith",
		"id":          "hijacked-id", // 身份字段被忽略
	})
	assert.NoError(t, err)
	assert.Equal(t, task.ID, updated.ID)
	assert.Equal(t, models.TaskStatusOngoing, updated.Status)
	assert.Equal(t, "John Smith", updated.AssignedTo)

	_, err = service.Update("missing", map[string]interface{}{"status": "done"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteTaskCascades(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	service := NewService(tdb.DB)

	task := factory.CreateTask()
	message := factory.CreateMessage(task.ID)
	factory.CreateReview(task.ID, message.ID)

	assert.NoError(t, service.Delete(task.ID))

	var messages, reviews int64
	tdb.DB.Model(&models.Message{}).Where("task_id = ?", task.ID).Count(&messages)
	tdb.DB.Model(&models.QAReview{}).Where("task_id = ?", task.ID).Count(&reviews)
	assert.Equal(t, int64(0), messages)
	assert.Equal(t, int64(0), reviews)

	assert.ErrorIs(t, service.Delete(task.ID), gorm.ErrRecordNotFound)
}

func TestTaskContext(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	service := NewService(tdb.DB)

	task := factory.CreateTask(func(task *models.Task) {
		task.Title = "Billing question"
		task.RequesterName = "Carol"
	})

	ctx := service.Context(task.ID)
	assert.Equal(t, "Billing question", ctx.Title)
	assert.Equal(t, "Carol", ctx.RequesterName)

	t.Run("任务不存在时返回占位上下文", func(t *testing.T) {
		ctx := service.Context("ghost")
		assert.Equal(t, "Task ghost", ctx.Title)
		assert.Equal(t, "Unknown User", ctx.RequesterName)
		assert.Equal(t, models.TaskPriorityMedium, ctx.Priority)
	})
}
