package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reelchat/reelchat/internal/domain/entity"
	"github.com/reelchat/reelchat/internal/infrastructure/persistence/models"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

const errConversationNotFound = "Conversation not found"

// GormConversationRepository GORM 实现的会话仓储
type GormConversationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormConversationRepository 创建 GORM 会话仓储
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{
		db:  db,
		now: time.Now,
	}
}

// Create 创建空会话
func (r *GormConversationRepository) Create(ctx context.Context) (*entity.Conversation, error) {
	now := r.timestamp()
	model := &models.ConversationModel{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, domainErrors.NewStorageUnavailableError("failed to create conversation", err)
	}
	return toConversation(model), nil
}

// FindByID 根据ID查找会话
func (r *GormConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var model models.ConversationModel
	if err := r.db.WithContext(ctx).Take(&model, "id = ?", id).Error; err != nil {
		return nil, mapError("failed to find conversation", err)
	}
	return toConversation(&model), nil
}

// FindLatest 返回最新的会话
func (r *GormConversationRepository) FindLatest(ctx context.Context) (*entity.Conversation, error) {
	var model models.ConversationModel
	if err := r.db.WithContext(ctx).Order("created_at desc").Take(&model).Error; err != nil {
		return nil, mapError("failed to find latest conversation", err)
	}
	return toConversation(&model), nil
}

type messageCountRow struct {
	ConversationID string
	Count          int64
}

type firstMessageRow struct {
	ConversationID string
	Content        string
}

// List 返回会话摘要, 按创建时间倒序
func (r *GormConversationRepository) List(ctx context.Context) ([]entity.ConversationSummary, error) {
	db := r.db.WithContext(ctx)

	var convs []models.ConversationModel
	if err := db.Order("created_at desc").Find(&convs).Error; err != nil {
		return nil, domainErrors.NewStorageUnavailableError("failed to list conversations", err)
	}
	if len(convs) == 0 {
		return []entity.ConversationSummary{}, nil
	}

	var counts []messageCountRow
	if err := db.Model(&models.MessageModel{}).
		Select("conversation_id, COUNT(*) AS count").
		Group("conversation_id").
		Scan(&counts).Error; err != nil {
		return nil, domainErrors.NewStorageUnavailableError("failed to count messages", err)
	}

	// 每个会话最早的用户消息作为标题
	firstAt := db.Model(&models.MessageModel{}).
		Select("conversation_id, MIN(created_at) AS first_at").
		Where("role = ?", string(entity.RoleUser)).
		Group("conversation_id")

	var firsts []firstMessageRow
	if err := db.Table("messages AS m").
		Select("m.conversation_id, m.content").
		Joins("JOIN (?) AS f ON f.conversation_id = m.conversation_id AND f.first_at = m.created_at", firstAt).
		Where("m.role = ?", string(entity.RoleUser)).
		Scan(&firsts).Error; err != nil {
		return nil, domainErrors.NewStorageUnavailableError("failed to load conversation titles", err)
	}

	countByID := make(map[string]int64, len(counts))
	for _, c := range counts {
		countByID[c.ConversationID] = c.Count
	}
	titleByID := make(map[string]string, len(firsts))
	for _, f := range firsts {
		titleByID[f.ConversationID] = f.Content
	}

	summaries := make([]entity.ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := toConversation(&convs[i])
		summaries = append(summaries, entity.NewConversationSummary(conv, titleByID[conv.ID()], countByID[conv.ID()]))
	}
	return summaries, nil
}

// AppendMessage 追加消息. 时间戳在事务内计算, 严格晚于该会话已有的所有消息.
func (r *GormConversationRepository) AppendMessage(ctx context.Context, conversationID string, role entity.Role, content string) (*entity.Message, error) {
	if !role.Valid() {
		return nil, domainErrors.NewInvalidInputError("invalid message role: " + string(role))
	}

	var model models.MessageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := tx
		if tx.Dialector.Name() == "postgres" {
			lookup = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var conv models.ConversationModel
		if err := lookup.Take(&conv, "id = ?", conversationID).Error; err != nil {
			return err
		}

		var last []models.MessageModel
		if err := tx.Where("conversation_id = ?", conversationID).
			Order("created_at desc").
			Limit(1).
			Find(&last).Error; err != nil {
			return err
		}

		ts := r.timestamp()
		if len(last) > 0 {
			ts = nextTimestamp(ts, last[0].CreatedAt)
		}

		model = models.MessageModel{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           string(role),
			Content:        content,
			CreatedAt:      ts,
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return nil, mapError("failed to append message", err)
	}

	return toMessage(&model), nil
}

// ListMessages 按时间升序返回会话消息
func (r *GormConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	db := r.db.WithContext(ctx)

	var conv models.ConversationModel
	if err := db.Take(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, mapError("failed to find conversation", err)
	}

	var rows []models.MessageModel
	if err := db.Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, domainErrors.NewStorageUnavailableError("failed to list messages", err)
	}

	messages := make([]*entity.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, toMessage(&rows[i]))
	}
	return messages, nil
}

// Delete 在同一事务中删除消息和会话
func (r *GormConversationRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.ConversationModel
		if err := tx.Take(&conv, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&models.MessageModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ConversationModel{}, "id = ?", id).Error
	})
	if err != nil {
		return mapError("failed to delete conversation", err)
	}
	return nil
}

func (r *GormConversationRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// nextTimestamp returns now, or last+1µs when the clock has not moved past last.
func nextTimestamp(now, last time.Time) time.Time {
	last = last.UTC()
	if now.After(last) {
		return now
	}
	return last.Add(time.Microsecond)
}

func mapError(msg string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErrors.NewNotFoundError(errConversationNotFound)
	}
	return domainErrors.NewStorageUnavailableError(msg, err)
}

// 转换方法

func toConversation(model *models.ConversationModel) *entity.Conversation {
	return entity.ReconstructConversation(model.ID, model.CreatedAt.UTC())
}

func toMessage(model *models.MessageModel) *entity.Message {
	return entity.ReconstructMessage(
		model.ID,
		model.ConversationID,
		entity.Role(model.Role),
		model.Content,
		model.CreatedAt.UTC(),
	)
}
