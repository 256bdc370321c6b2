package models

import (
	"time"
)

// MessageModel 数据库消息模型
type MessageModel struct {
	ID             string    `gorm:"primaryKey;size:64"`
	ConversationID string    `gorm:"index;size:64;not null"`
	Role           string    `gorm:"size:16;not null"` // user, agent
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"index"`
}

// TableName 指定表名
func (MessageModel) TableName() string {
	return "messages"
}
