package services

import (
	"context"
	"fmt"

	"timekeeper/metrics"
	"timekeeper/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Notifications struct {
	db  *gorm.DB
	now Clock
}

func NewNotifications(db *gorm.DB) *Notifications {
	return &Notifications{db: db, now: systemClock}
}

// Create stores n unless another notification with the same DedupKey
// exists. It reports whether a row was written.
func (s *Notifications) Create(ctx context.Context, n models.Notification) (bool, error) {
	return createNotification(s.db.WithContext(ctx), n, s.now)
}

func (s *Notifications) List(ctx context.Context, employeeID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var out []models.Notification
	err := query.Order("created_at desc").Order("id").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Notifications) MarkRead(ctx context.Context, employeeID uint, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND employee_id = ? AND read_at IS NULL", id, employeeID).
		Update("read_at", s.now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ? AND employee_id = ?", id, employeeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func createNotification(tx *gorm.DB, n models.Notification, now Clock) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.DedupKey == "" {
		n.DedupKey = n.ID
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&n)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.NotificationsCreated.WithLabelValues(string(n.Kind)).Inc()
		return true, nil
	}
	return false, nil
}
