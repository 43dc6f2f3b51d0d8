/*
 * @module service/event/event_service
 * @description 事件管理服务，按任务房间管理SSE连接并分发事件，同时转发到外部消息通道
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference dev_docs/realtime.md
 * @stateFlow 事件产生 -> 持久化 -> 任务房间推送 -> 外部通道转发
 * @rules 房间内推送为非阻塞投递，队列满时丢弃；外部通道失败不影响房间推送
 * @dependencies ticketdesk-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs api/controllers/event_controller.go, service/event/sinks.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"ticketdesk-service/service/models"
)

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EventService 事件管理服务
type EventService struct {
	db         *gorm.DB
	rooms      map[string]map[string]*SSEClient // taskID -> connectionID -> client
	mu         sync.RWMutex
	sinks      []Sink
	dbListener *pq.Listener
	ctx        context.Context
	cancel     context.CancelFunc
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	TaskID   string
	UserName string
	Channel  chan *models.SSEEvent
	Done     chan bool
	ClientIP string
}

// NewEventService 创建事件服务实例
func NewEventService(db *gorm.DB, sinks []Sink) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:     db,
		rooms:  make(map[string]map[string]*SSEClient),
		sinks:  sinks,
		ctx:    ctx,
		cancel: cancel,
	}

	// 启动数据库变更监听器（仅PostgreSQL环境）
	if os.Getenv("ENABLE_DB_LISTENER") == "true" {
		go service.startDBListener()
	}

	// 启动连接清理器
	go service.startConnectionJanitor()

	return service
}

// === SSE连接管理 ===

// Join 加入任务房间，建立SSE连接
func (s *EventService) Join(taskID, userName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rooms[taskID] == nil {
		s.rooms[taskID] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		TaskID:   taskID,
		UserName: userName,
		Channel:  make(chan *models.SSEEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}
	s.rooms[taskID][connectionID] = client

	// 记录连接到数据库
	connection := &models.SSEConnection{
		TaskID:       taskID,
		UserName:     userName,
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		ConnectedAt:  time.Now(),
		IsActive:     true,
	}
	s.db.Create(connection)

	log.Printf("SSE连接已建立: 任务=%s, 用户=%s, 连接ID=%s", taskID, userName, connectionID)
	return client
}

// Leave 离开任务房间，断开SSE连接
func (s *EventService) Leave(taskID, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, exists := s.rooms[taskID]
	if !exists {
		return
	}
	client, exists := room[connectionID]
	if !exists {
		return
	}

	close(client.Done)
	delete(room, connectionID)
	if len(room) == 0 {
		delete(s.rooms, taskID)
	}

	now := time.Now()
	s.db.Model(&models.SSEConnection{}).
		Where("connection_id = ?", connectionID).
		Updates(map[string]interface{}{"is_active": false, "closed_at": now})

	log.Printf("SSE连接已断开: 任务=%s, 连接ID=%s", taskID, connectionID)
}

// Publish 向任务房间发布事件并转发到外部通道
func (s *EventService) Publish(taskID, eventType string, data map[string]interface{}) error {
	event := &models.SSEEvent{
		TaskID:    taskID,
		EventType: eventType,
		Data:      models.JSONB(data),
		CreatedAt: time.Now(),
	}

	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		log.Printf("保存SSE事件失败: %v", err)
		return err
	}

	s.mu.RLock()
	room := s.rooms[taskID]
	delivered := 0
	for _, client := range room {
		select {
		case client.Channel <- event:
			delivered++
		default:
			log.Printf("任务 %s 的连接 %s 事件队列已满，跳过发送", taskID, client.ID)
		}
	}
	s.mu.RUnlock()

	if delivered > 0 {
		now := time.Now()
		s.db.Model(event).Updates(map[string]interface{}{"sent": true, "sent_at": now})
	}

	// 转发到外部消息通道，失败只记录
	for _, sink := range s.sinks {
		if err := sink.Deliver(s.ctx, event); err != nil {
			log.Printf("事件转发到 %s 失败: %v", sink.Name(), err)
		}
	}

	return nil
}

// RoomSize 返回任务房间当前连接数
func (s *EventService) RoomSize(taskID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[taskID])
}

// === 数据库变更监听 ===

// startDBListener 启动PostgreSQL通知监听器
// 其它实例写入的消息通过 LISTEN/NOTIFY 同步推送到本实例的房间
func (s *EventService) startDBListener() {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "ticketdesk")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("PostgreSQL监听器事件: %v, 错误: %v", ev, err)
		}
	})

	if err := s.dbListener.Listen("ticketdesk_changes"); err != nil {
		log.Printf("监听数据库通知失败: %v", err)
		return
	}
	if err := s.ensureMessageTrigger(); err != nil {
		log.Printf("创建消息表触发器失败: %v", err)
	}

	log.Println("数据库监听器已启动")

	for {
		select {
		case notification := <-s.dbListener.Notify:
			if notification != nil {
				s.handleDBNotification(notification)
			}
		case <-s.ctx.Done():
			log.Println("数据库监听器已停止")
			return
		}
	}
}

// handleDBNotification 处理数据库变更通知
func (s *EventService) handleDBNotification(notification *pq.Notification) {
	var changeData map[string]interface{}
	if err := json.Unmarshal([]byte(notification.Extra), &changeData); err != nil {
		log.Printf("解析数据库通知失败: %v", err)
		return
	}

	tableName, _ := changeData["table"].(string)
	eventType, _ := changeData["type"].(string)
	if tableName != "messages" || eventType != "INSERT" {
		return
	}

	newData, _ := changeData["new_data"].(map[string]interface{})
	taskID, _ := newData["task_id"].(string)
	if taskID == "" {
		return
	}

	event := &models.SSEEvent{
		TaskID:    taskID,
		EventType: models.EventNewMessage,
		Data:      models.JSONB{"message": newData},
		CreatedAt: time.Now(),
	}

	s.mu.RLock()
	for _, client := range s.rooms[taskID] {
		select {
		case client.Channel <- event:
		default:
		}
	}
	s.mu.RUnlock()
}

// ensureMessageTrigger 确保消息表存在变更通知触发器
func (s *EventService) ensureMessageTrigger() error {
	createFunctionSQL := `
CREATE OR REPLACE FUNCTION notify_ticketdesk_changes()
RETURNS TRIGGER AS $$
DECLARE
    payload JSON;
BEGIN
    payload := json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'record_id', NEW.id,
        'new_data', row_to_json(NEW),
        'timestamp', extract(epoch from now())
    );
    PERFORM pg_notify('ticketdesk_changes', payload::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;`

	if err := s.db.Exec(createFunctionSQL).Error; err != nil {
		return fmt.Errorf("创建通知函数失败: %w", err)
	}

	createTriggerSQL := `
CREATE OR REPLACE TRIGGER messages_notify
AFTER INSERT ON messages
FOR EACH ROW
EXECUTE FUNCTION notify_ticketdesk_changes();`

	if err := s.db.Exec(createTriggerSQL).Error; err != nil {
		return fmt.Errorf("创建触发器失败: %w", err)
	}
	return nil
}

// startConnectionJanitor 定期清理已断开的连接
func (s *EventService) startConnectionJanitor() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupClosedConnections()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupClosedConnections 清理房间内已关闭的连接
func (s *EventService) cleanupClosedConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for taskID, room := range s.rooms {
		for connectionID, client := range room {
			select {
			case <-client.Done:
				delete(room, connectionID)
				log.Printf("清理已断开的连接: 任务=%s, 连接ID=%s", taskID, connectionID)
			default:
			}
		}
		if len(room) == 0 {
			delete(s.rooms, taskID)
		}
	}
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()

	if s.dbListener != nil {
		s.dbListener.Close()
	}

	s.mu.Lock()
	for _, room := range s.rooms {
		for _, client := range room {
			close(client.Done)
		}
	}
	s.rooms = make(map[string]map[string]*SSEClient)
	s.mu.Unlock()

	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			log.Printf("关闭 %s 失败: %v", sink.Name(), err)
		}
	}

	log.Println("事件服务已停止")
}

// GetConnectionList 分页查询SSE连接记录
func (s *EventService) GetConnectionList(page, pageSize int, taskID, userName string, isActive *bool) ([]models.SSEConnection, int64, error) {
	var connections []models.SSEConnection
	var total int64

	query := s.db.Model(&models.SSEConnection{})
	if taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}
	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("connected_at DESC").
		Offset(offset).Limit(pageSize).Find(&connections).Error

	return connections, total, err
}

// GetEventHistoryList 分页查询事件历史
func (s *EventService) GetEventHistoryList(page, pageSize int, taskID, eventType string, sent *bool) ([]models.SSEEvent, int64, error) {
	var events []models.SSEEvent
	var total int64

	query := s.db.Model(&models.SSEEvent{})
	if taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if sent != nil {
		query = query.Where("sent = ?", *sent)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&events).Error

	return events, total, err
}
