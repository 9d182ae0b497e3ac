package services

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loro-platform/metrics"
	"loro-platform/models"
	"loro-platform/realtime"
)

type NotificationService struct {
	DB        *gorm.DB
	Publisher realtime.Publisher
}

func NewNotificationService(db *gorm.DB, pub realtime.Publisher) *NotificationService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &NotificationService{DB: db, Publisher: pub}
}

type NotificationInput struct {
	UserID         string
	OrganisationID string
	Type           models.NotificationType
	Title          string
	Message        string
	Metadata       map[string]interface{}
}

func (in NotificationInput) model() models.Notification {
	return models.Notification{
		Tenant:   models.Tenant{OrganisationID: in.OrganisationID},
		UserID:   in.UserID,
		Type:     in.Type,
		Title:    in.Title,
		Message:  in.Message,
		Metadata: datatypes.JSONMap(in.Metadata),
		Status:   models.NotificationUnread,
	}
}

// Notify stores one notification and pushes it to the recipient's live connections.
func (s *NotificationService) Notify(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	if in.UserID == "" {
		return nil, invalid("userId", "is required")
	}
	n := in.model()
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	s.push(&n)
	metrics.RecordBroadcast(string(n.Type), 1)
	return &n, nil
}

// NotifyMany inserts a batch in one statement, then publishes each row.
func (s *NotificationService) NotifyMany(ctx context.Context, ins []NotificationInput) (int, error) {
	if len(ins) == 0 {
		return 0, nil
	}
	rows := make([]models.Notification, len(ins))
	for i, in := range ins {
		rows[i] = in.model()
	}
	if err := s.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, err
	}
	for i := range rows {
		s.push(&rows[i])
	}
	metrics.RecordBroadcast(string(rows[0].Type), len(rows))
	return len(rows), nil
}

// NotifyRoles sends the same notification to every active user in the organisation
// holding one of roles, skipping except.
func (s *NotificationService) NotifyRoles(ctx context.Context, orgID string, roles []models.Role, except string, in NotificationInput) (int, error) {
	var ids []string
	q := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("organisation_id = ? AND role IN ? AND status = ?", orgID, roles, models.UserActive)
	if except != "" {
		q = q.Where("id <> ?", except)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	batch := make([]NotificationInput, 0, len(ids))
	for _, id := range ids {
		n := in
		n.UserID = id
		n.OrganisationID = orgID
		batch = append(batch, n)
	}
	return s.NotifyMany(ctx, batch)
}

func (s *NotificationService) push(n *models.Notification) {
	s.Publisher.Publish(realtime.Event{
		Name:           realtime.NotificationNew,
		OrganisationID: n.OrganisationID,
		UserID:         n.UserID,
		Data:           n,
	})
}

// ListForUser pages the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]models.Notification, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("status = ?", models.NotificationUnread)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

// Since returns notifications created after t, oldest first. The SSE stream polls this.
func (s *NotificationService) Since(ctx context.Context, userID string, t time.Time) ([]models.Notification, error) {
	var out []models.Notification
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at > ?", userID, t).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("notification")
	}
	if err != nil {
		return nil, err
	}
	if n.Status == models.NotificationRead {
		return &n, nil
	}
	n.Status = models.NotificationRead
	if err := s.DB.WithContext(ctx).Model(&n).Update("status", models.NotificationRead).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Update("status", models.NotificationRead)
	if res.Error != nil {
		log.Errorf("❌ [NOTIFY] mark all read for %s: %v", userID, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
