/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、表迁移、示例数据播种和各业务服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs main.go, api/routes.go
 */

package service

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ticketdesk-service/service/chat"
	"ticketdesk-service/service/cleanup"
	"ticketdesk-service/service/distributed_lock"
	"ticketdesk-service/service/event"
	"ticketdesk-service/service/models"
	"ticketdesk-service/service/qa"
	"ticketdesk-service/service/rate_limiter"
	"ticketdesk-service/service/summary"
	"ticketdesk-service/service/task"
)

var (
	DB                     *gorm.DB
	GlobalEventService     *event.EventService
	GlobalTaskService      *task.Service
	GlobalQAService        *qa.Service
	GlobalChatService      *chat.Service
	GlobalSummaryService   *summary.Service
	GlobalRetentionService *cleanup.RetentionService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
// DB_DRIVER=sqlite 时使用本地文件库，便于开发调试
func initDatabase() {
	var err error

	if getEnvWithDefault("DB_DRIVER", "postgres") == "sqlite" {
		path := getEnvWithDefault("DB_PATH", "ticketdesk.db")
		DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
		log.Printf("数据库连接成功 (sqlite: %s)", path)
		return
	}

	var dsn string
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "ticketdesk")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
			host, port, user, password, dbname, sslmode, schema)
	}

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移并播种示例数据
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	err := DB.AutoMigrate(
		&models.Task{},
		&models.Message{},
		&models.QARule{},
		&models.QAReview{},
		&models.TaskSummary{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := seedSampleData(); err != nil {
		log.Fatalf("示例数据初始化失败: %v", err)
	}
	log.Println("数据库迁移任务完成")
}

// seedSampleData 播种示例任务与消息，仅在空库时执行
func seedSampleData() error {
	var count int64
	if err := DB.Model(&models.Task{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tasks := []models.Task{
		{
			Title:          "Fix login issue for enterprise customers",
			Description:    "Multiple enterprise customers reporting login failures after the recent update",
			RequesterName:  "Alice Cooper",
			RequesterEmail: "alice@enterprise.com",
			AssignedTo:     "John Smith",
			Status:         models.TaskStatusOngoing,
			Priority:       models.TaskPriorityHigh,
			Tags:           models.JSONBStringArray{"bug", "authentication", "enterprise"},
		},
		{
			Title:          "Database performance optimization",
			Description:    "Query response times have increased significantly in the past week",
			RequesterName:  "Bob Martinez",
			RequesterEmail: "bob@company.com",
			AssignedTo:     "Sarah Johnson",
			Status:         models.TaskStatusReviewed,
			Priority:       models.TaskPriorityMedium,
			Tags:           models.JSONBStringArray{"performance", "database", "optimization"},
		},
		{
			Title:          "Add new payment gateway integration",
			Description:    "Integrate Stripe payment gateway for European customers",
			RequesterName:  "Carol Davis",
			RequesterEmail: "carol@company.com",
			Status:         models.TaskStatusLogged,
			Priority:       models.TaskPriorityMedium,
			Tags:           models.JSONBStringArray{"feature", "payment", "integration"},
		},
		{
			Title:          "Security vulnerability in file upload",
			Description:    "Potential security issue discovered in file upload functionality",
			RequesterName:  "Dave Thompson",
			RequesterEmail: "dave@security.com",
			AssignedTo:     "Mike Wilson",
			Status:         models.TaskStatusBlocked,
			Priority:       models.TaskPriorityUrgent,
			Tags:           models.JSONBStringArray{"security", "vulnerability", "upload"},
		},
	}

	for i := range tasks {
		if err := DB.Create(&tasks[i]).Error; err != nil {
			return err
		}
	}

	message := models.Message{
		TaskID:      tasks[0].ID,
		SenderName:  "Alice Cooper",
		SenderEmail: "alice@enterprise.com",
		Content:     "Hi team, we're experiencing login issues affecting 50+ users.",
		MessageType: models.MessageTypeText,
	}
	if err := DB.Create(&message).Error; err != nil {
		return err
	}

	log.Printf("示例数据播种完成: %d 个任务", len(tasks))
	return nil
}

// initServices 初始化服务
func initServices() {
	GlobalEventService = event.NewEventService(DB, event.NewSinksFromEnv())
	GlobalTaskService = task.NewService(DB)
	GlobalQAService = qa.NewService(DB)
	GlobalChatService = chat.NewService(DB, GlobalTaskService, GlobalQAService, GlobalEventService)
	GlobalSummaryService = summary.NewService(DB)
	GlobalRetentionService = cleanup.NewRetentionService(DB)

	// Redis可用时启用消息限流和清理任务分布式锁
	if limiter, err := rate_limiter.NewMessageRateLimiter(); err == nil {
		GlobalChatService.SetRateLimiter(limiter)
	} else if os.Getenv("REDIS_ADDR") != "" {
		log.Printf("消息限流器初始化失败: %v", err)
	}
	if lock, err := distributed_lock.NewRedisLock(); err == nil {
		GlobalRetentionService.SetLock(lock)
	} else if os.Getenv("REDIS_ADDR") != "" {
		log.Printf("分布式锁初始化失败: %v", err)
	}

	if err := GlobalRetentionService.StartScheduledCleanup(); err != nil {
		log.Printf("启动数据清理调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}
