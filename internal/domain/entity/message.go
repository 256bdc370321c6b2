package entity

import (
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// ParseRole converts a stored role string back into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Message 消息实体. Messages are immutable once written.
type Message struct {
	id             string
	conversationID string
	role           Role
	content        string
	createdAt      time.Time
}

// NewMessage 创建新消息（工厂方法）
func NewMessage(id, conversationID string, role Role, content string, createdAt time.Time) (*Message, error) {
	if id == "" {
		return nil, ErrInvalidMessageID
	}
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	return &Message{
		id:             id,
		conversationID: conversationID,
		role:           role,
		content:        content,
		createdAt:      createdAt,
	}, nil
}

// ReconstructMessage 重建消息（用于从持久化层恢复）
func ReconstructMessage(id, conversationID string, role Role, content string, createdAt time.Time) *Message {
	return &Message{
		id:             id,
		conversationID: conversationID,
		role:           role,
		content:        content,
		createdAt:      createdAt,
	}
}

// ID 返回消息ID
func (m *Message) ID() string {
	return m.id
}

// ConversationID 返回会话ID
func (m *Message) ConversationID() string {
	return m.conversationID
}

// Role returns the author role.
func (m *Message) Role() Role {
	return m.role
}

// Content returns the message text.
func (m *Message) Content() string {
	return m.content
}

// CreatedAt is the ordering key within a conversation.
func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

// IsFromUser 判断是否来自用户（业务规则）
func (m *Message) IsFromUser() bool {
	return m.role == RoleUser
}

// IsFromAgent 判断是否来自助手（业务规则）
func (m *Message) IsFromAgent() bool {
	return m.role == RoleAgent
}
