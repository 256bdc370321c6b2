package models

import (
	"time"
)

// ConversationModel 数据库会话模型
type ConversationModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []MessageModel `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (ConversationModel) TableName() string {
	return "conversations"
}
