package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// restore undeletes a soft-deleted row scoped to the organisation and loads it into dest.
// A row that is not deleted is a conflict.
func restore(ctx context.Context, db *gorm.DB, dest interface{}, id, organisationID string) error {
	q := db.WithContext(ctx).Unscoped().Where("id = ?", id)
	if organisationID != "" {
		q = q.Where("organisation_id = ?", organisationID)
	}
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("record")
		}
		return err
	}

	res := db.WithContext(ctx).Unscoped().Model(dest).
		Where("deleted_at IS NOT NULL").
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("record is not deleted: %w", ErrConflict)
	}
	return db.WithContext(ctx).First(dest, "id = ?", id).Error
}

// likeTerm lowers and wraps a search string for a LIKE clause.
func likeTerm(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

// isUniqueViolation recognises duplicate-key errors from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
