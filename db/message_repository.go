package db

import (
	"context"

	"github.com/chatly-app/chatly/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) (*models.Message, error)
	FindMessagesByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Message, error)
	FindMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
	FindLatestMessageBetween(ctx context.Context, a, b uuid.UUID) (*models.Message, error)
}

type messageRepo struct {
	DB *gorm.DB
}

func NewMessageRepo(db *GormDB) MessageRepository {
	return &messageRepo{DB: db.DB}
}

func (m *messageRepo) CreateMessage(ctx context.Context, message *models.Message) (*models.Message, error) {
	if message == nil {
		return nil, errors.New("message is nil")
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if err := m.DB.WithContext(ctx).Create(message).Error; err != nil {
		return nil, errors.Wrap(err, "could not insert message")
	}
	return message, nil
}

// FindMessagesByParticipant returns every message the user sent or received.
func (m *messageRepo) FindMessagesByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := m.DB.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch messages for participant")
	}
	return messages, nil
}

// FindMessagesBetween returns the full thread between two users, both
// directions, oldest first.
func (m *messageRepo) FindMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := m.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch thread")
	}
	return messages, nil
}

// FindLatestMessageBetween returns the most recent message between two users
// in either direction, or gorm.ErrRecordNotFound when the pair never spoke.
func (m *messageRepo) FindLatestMessageBetween(ctx context.Context, a, b uuid.UUID) (*models.Message, error) {
	message := &models.Message{}
	err := m.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at DESC").
		Limit(1).
		First(message).Error
	if err != nil {
		return nil, err
	}
	return message, nil
}
