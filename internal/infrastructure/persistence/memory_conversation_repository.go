package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelchat/reelchat/internal/domain/entity"
	"github.com/reelchat/reelchat/pkg/errors"
)

// MemoryConversationRepository 内存实现的会话仓储（用于开发/测试）
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	// 会话ID到消息列表的映射, 按时间升序
	messages map[string][]*entity.Message
	lastConv time.Time
	now      func() time.Time
}

// NewMemoryConversationRepository 创建内存会话仓储
func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		now:           time.Now,
	}
}

// Create 创建空会话
func (r *MemoryConversationRepository) Create(ctx context.Context) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 同一微秒内创建的会话也保持可排序
	r.lastConv = nextTimestamp(r.timestamp(), r.lastConv)
	conv := entity.ReconstructConversation(uuid.NewString(), r.lastConv)
	r.conversations[conv.ID()] = conv
	r.messages[conv.ID()] = make([]*entity.Message, 0)
	return conv, nil
}

// FindByID 根据ID查找会话
func (r *MemoryConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, errors.NewNotFoundError(errConversationNotFound)
	}
	return conv, nil
}

// FindLatest 返回最新的会话
func (r *MemoryConversationRepository) FindLatest(ctx context.Context) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *entity.Conversation
	for _, conv := range r.conversations {
		if latest == nil || conv.CreatedAt().After(latest.CreatedAt()) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError(errConversationNotFound)
	}
	return latest, nil
}

// List 返回会话摘要, 按创建时间倒序
func (r *MemoryConversationRepository) List(ctx context.Context) ([]entity.ConversationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]entity.ConversationSummary, 0, len(r.conversations))
	for id, conv := range r.conversations {
		msgs := r.messages[id]
		first := ""
		for _, m := range msgs {
			if m.IsFromUser() {
				first = m.Content()
				break
			}
		}
		summaries = append(summaries, entity.NewConversationSummary(conv, first, int64(len(msgs))))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// AppendMessage 追加消息, 时间戳严格递增
func (r *MemoryConversationRepository) AppendMessage(ctx context.Context, conversationID string, role entity.Role, content string) (*entity.Message, error) {
	if !role.Valid() {
		return nil, errors.NewInvalidInputError("invalid message role: " + string(role))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, errors.NewNotFoundError(errConversationNotFound)
	}

	ts := r.timestamp()
	msgs := r.messages[conversationID]
	if n := len(msgs); n > 0 {
		ts = nextTimestamp(ts, msgs[n-1].CreatedAt())
	}

	msg := entity.ReconstructMessage(uuid.NewString(), conversationID, role, content, ts)
	r.messages[conversationID] = append(msgs, msg)
	return msg, nil
}

// ListMessages 按时间升序返回会话消息
func (r *MemoryConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, errors.NewNotFoundError(errConversationNotFound)
	}

	msgs := r.messages[conversationID]
	out := make([]*entity.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Delete 删除会话及其消息
func (r *MemoryConversationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return errors.NewNotFoundError(errConversationNotFound)
	}
	delete(r.messages, id)
	delete(r.conversations, id)
	return nil
}

func (r *MemoryConversationRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}
