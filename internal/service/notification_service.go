package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-billing/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationPublisher доставляет уведомление в открытые realtime-соединения.
type NotificationPublisher interface {
	Publish(userID uuid.UUID, notification *models.Notification)
}

// NotificationService сохраняет уведомления и пушит их в WebSocket.
type NotificationService struct {
	repo      NotificationRepository
	publisher NotificationPublisher
	log       *logrus.Entry
}

func NewNotificationService(repo NotificationRepository, publisher NotificationPublisher, log *logrus.Entry) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, log: log}
}

// Notify создаёт уведомление и отправляет его в realtime-канал.
// Сбой доставки уведомления никогда не ломает финансовую операцию,
// поэтому ошибки только логируются.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, notifType, title, body, priority string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = nil
	}

	notification := &models.Notification{
		UserID:   userID,
		Type:     notifType,
		Title:    title,
		Body:     body,
		Data:     payload,
		Priority: priority,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("не удалось сохранить уведомление")
		return
	}

	if s.publisher != nil {
		s.publisher.Publish(userID, notification)
	}
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// UnreadCount возвращает количество непрочитанных уведомлений.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
