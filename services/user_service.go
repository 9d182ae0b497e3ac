package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loro-platform/models"
)

type UserService struct {
	DB      *gorm.DB
	Rewards *RewardsService
}

func NewUserService(db *gorm.DB, rewards *RewardsService) *UserService {
	return &UserService{DB: db, Rewards: rewards}
}

type UserInput struct {
	ExternalID string  `json:"externalId" validate:"omitempty,max=128"`
	Username   string  `json:"username" validate:"required,max=64"`
	Name       string  `json:"name" validate:"max=100"`
	Surname    string  `json:"surname" validate:"max=100"`
	Email      string  `json:"email" validate:"omitempty,email"`
	Phone      string  `json:"phone" validate:"max=32"`
	PhotoURL   *string `json:"photoUrl" validate:"omitempty,url"`
	Role       string  `json:"role" validate:"omitempty,oneof=owner admin manager supervisor hr user developer"`
	Status     string  `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	BranchID   *string `json:"branchId"`
}

func (in UserInput) apply(u *models.User) {
	u.ExternalID = strings.TrimSpace(in.ExternalID)
	u.Username = strings.TrimSpace(in.Username)
	u.Name = strings.TrimSpace(in.Name)
	u.Surname = strings.TrimSpace(in.Surname)
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.Phone = in.Phone
	u.PhotoURL = in.PhotoURL
	if in.Role != "" {
		u.Role = models.Role(in.Role)
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if in.Status != "" {
		u.Status = models.UserStatus(in.Status)
	}
	if u.Status == "" {
		u.Status = models.UserActive
	}
	if in.BranchID != nil {
		u.BranchID = in.BranchID
	}
}

// Only owners may grant owner; developer is never granted through the API.
func checkRoleGrant(actor Actor, role string) error {
	switch models.Role(role) {
	case models.RoleDeveloper:
		return fmt.Errorf("developer role cannot be assigned: %w", ErrForbidden)
	case models.RoleOwner:
		if !actor.Is(models.RoleOwner) {
			return fmt.Errorf("only owners may grant owner: %w", ErrForbidden)
		}
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, actor Actor, in UserInput) (*models.User, error) {
	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, invalid("externalId", "is required")
	}
	if err := checkRoleGrant(actor, in.Role); err != nil {
		return nil, err
	}
	u := models.User{Tenant: models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID}}
	in.apply(&u)
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s already exists: %w", u.ExternalID, ErrConflict)
		}
		return nil, err
	}
	return &u, nil
}

// Search lists the organisation's users, matching q against username, name, surname and email.
func (s *UserService) Search(ctx context.Context, actor Actor, q, role string, page, limit int) ([]models.User, int64, error) {
	db := s.DB.WithContext(ctx).Model(&models.User{}).Where("organisation_id = ?", actor.OrganisationID)
	if q != "" {
		term := likeTerm(q)
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(surname) LIKE ? OR LOWER(email) LIKE ?",
			term, term, term, term,
		)
	}
	if role != "" {
		db = db.Where("role = ?", role)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := db.Order("username ASC").Limit(limit).Offset((page - 1) * limit).Find(&users).Error
	return users, total, err
}

func (s *UserService) Get(ctx context.Context, actor Actor, id string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user")
	}
	return &u, err
}

// Update lets users edit themselves; editing others needs an admin role.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, in UserInput) (*models.User, error) {
	u, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	admin := actor.Is(models.RoleOwner, models.RoleAdmin, models.RoleHR)
	if u.ID != actor.UserID && !admin {
		return nil, ErrForbidden
	}
	if !admin {
		in.Role, in.Status = "", ""
	}
	if in.Role != "" && models.Role(in.Role) != u.Role {
		if err := checkRoleGrant(actor, in.Role); err != nil {
			return nil, err
		}
	}
	in.ExternalID = u.ExternalID
	in.apply(u)
	if err := s.DB.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if id == actor.UserID {
		return fmt.Errorf("cannot delete yourself: %w", ErrForbidden)
	}
	res := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("user")
	}
	return nil
}

func (s *UserService) Restore(ctx context.Context, actor Actor, id string) (*models.User, error) {
	var u models.User
	if err := restore(ctx, s.DB, &u, id, actor.OrganisationID); err != nil {
		return nil, err
	}
	return &u, nil
}

// LoginPing records a sign-in and grants the daily login XP.
func (s *UserService) LoginPing(ctx context.Context, actor Actor) (bool, error) {
	u, err := s.Get(ctx, actor, actor.UserID)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(u).UpdateColumn("last_login_at", now).Error; err != nil {
		return false, err
	}
	if s.Rewards == nil {
		return false, nil
	}
	awarded, err := s.Rewards.RecordLogin(ctx, u)
	if err != nil {
		log.Warnf("⚠️ [USERS] login XP for %s failed: %v", u.ID, err)
		return false, nil
	}
	return awarded, nil
}

// IdentityRecord is a user as reported by the identity provider.
type IdentityRecord struct {
	ExternalID     string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Surname        string    `json:"surname"`
	PhotoURL       *string   `json:"photoUrl"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	OrganisationID string    `json:"organisationId"`
	BranchID       *string   `json:"branchId"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UpsertIdentities inserts or refreshes users keyed on their external id.
// latestIdentities drops unusable records and keeps one record per external id, the one
// with the newest UpdatedAt (later in the batch wins a tie). A single upsert statement
// cannot touch the same row twice.
func latestIdentities(recs []IdentityRecord) []IdentityRecord {
	out := make([]IdentityRecord, 0, len(recs))
	at := make(map[string]int, len(recs))
	for _, r := range recs {
		if r.ExternalID == "" || r.OrganisationID == "" {
			continue
		}
		i, seen := at[r.ExternalID]
		if !seen {
			at[r.ExternalID] = len(out)
			out = append(out, r)
			continue
		}
		if !r.UpdatedAt.Before(out[i].UpdatedAt) {
			out[i] = r
		}
	}
	return out
}

func (s *UserService) UpsertIdentities(ctx context.Context, recs []IdentityRecord) (int, error) {
	recs = latestIdentities(recs)
	users := make([]models.User, 0, len(recs))
	for _, r := range recs {
		u := models.User{Tenant: models.Tenant{OrganisationID: r.OrganisationID, BranchID: r.BranchID}}
		UserInput{
			ExternalID: r.ExternalID,
			Username:   r.Username,
			Name:       r.Name,
			Surname:    r.Surname,
			Email:      r.Email,
			PhotoURL:   r.PhotoURL,
			Role:       r.Role,
			Status:     r.Status,
		}.apply(&u)
		if u.Role == models.RoleDeveloper {
			u.Role = models.RoleUser
		}
		users = append(users, u)
	}
	if len(users) == 0 {
		return 0, nil
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "name", "surname", "email", "photo_url", "role", "status",
			"organisation_id", "branch_id", "updated_at",
		}),
	}).Create(&users).Error
	if err != nil {
		return 0, fmt.Errorf("upsert users: %w", err)
	}
	return len(users), nil
}
