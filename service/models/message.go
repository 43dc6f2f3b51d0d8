/*
 * @module service/models/message
 * @description 任务聊天消息模型定义，包括消息类型和附件元数据
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 消息创建 -> 持久化 -> 实时推送 -> （可选）质量审查
 * @rules 消息一经持久化不可修改，删除为物理删除；附件只存元数据
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/chat/
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 消息类型
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Attachment 消息附件元数据，文件本体由外部存储负责
type Attachment struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AttachmentArray 附件数组的 JSONB 存储类型
type AttachmentArray []Attachment

func (a *AttachmentArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, a)
}

func (a AttachmentArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Message 任务聊天消息模型
type Message struct {
	ID          string          `gorm:"type:uuid;primary_key" json:"id"`
	TaskID      string          `gorm:"not null;index" json:"task_id"`
	SenderName  string          `gorm:"not null;size:100" json:"sender_name"`
	SenderEmail string          `gorm:"size:200" json:"sender_email"`
	Content     string          `json:"content"`
	MessageType string          `gorm:"not null;default:'text'" json:"message_type"` // text/file/system
	Attachments AttachmentArray `gorm:"type:jsonb" json:"attachments"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate 创建前钩子
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.MessageType == "" {
		m.MessageType = MessageTypeText
	}
	return nil
}

// ConversationTurn 质量审查与摘要使用的会话历史条目
type ConversationTurn struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn 从消息构造会话历史条目
func (m *Message) Turn() ConversationTurn {
	return ConversationTurn{
		Sender:    m.SenderName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
