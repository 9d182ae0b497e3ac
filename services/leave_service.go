package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loro-platform/models"
	"loro-platform/realtime"
)

type LeaveService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Rewards       *RewardsService
	Publisher     realtime.Publisher
	Now           func() time.Time
}

func NewLeaveService(db *gorm.DB, notifications *NotificationService, rewards *RewardsService, pub realtime.Publisher) *LeaveService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &LeaveService{
		DB:            db,
		Notifications: notifications,
		Rewards:       rewards,
		Publisher:     pub,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type LeaveInput struct {
	LeaveType  string    `json:"leaveType" validate:"required,oneof=annual sick maternity paternity study unpaid compassionate family_responsibility"`
	StartDate  time.Time `json:"startDate" validate:"required"`
	EndDate    time.Time `json:"endDate" validate:"required"`
	IsHalfDay  bool      `json:"isHalfDay"`
	Motivation string    `json:"motivation" validate:"max=2000"`
}

type LeaveFilter struct {
	Status    string
	OwnerID   string
	LeaveType string
	From      *time.Time
	To        *time.Time
}

// LeaveDuration is the number of days a request covers: inclusive calendar days,
// or half a day when isHalfDay is set (start and end must then be the same day).
func LeaveDuration(start, end time.Time, isHalfDay bool) (float64, error) {
	start, end = startOfDay(start), startOfDay(end)
	if end.Before(start) {
		return 0, invalid("endDate", "must not be before startDate")
	}
	if isHalfDay {
		if !start.Equal(end) {
			return 0, invalid("isHalfDay", "half-day leave must start and end on the same day")
		}
		return 0.5, nil
	}
	return end.Sub(start).Hours()/24 + 1, nil
}

func (s *LeaveService) Create(ctx context.Context, actor Actor, in LeaveInput) (*models.Leave, error) {
	days, err := LeaveDuration(in.StartDate, in.EndDate, in.IsHalfDay)
	if err != nil {
		return nil, err
	}

	leave := models.Leave{
		Tenant:     models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID},
		OwnerID:    actor.UserID,
		LeaveType:  models.LeaveType(in.LeaveType),
		StartDate:  startOfDay(in.StartDate),
		EndDate:    startOfDay(in.EndDate),
		IsHalfDay:  in.IsHalfDay,
		Duration:   days,
		Motivation: strings.TrimSpace(in.Motivation),
		Status:     models.LeavePending,
	}
	if err := s.DB.WithContext(ctx).Create(&leave).Error; err != nil {
		return nil, fmt.Errorf("create leave: %w", err)
	}

	if s.Notifications != nil {
		approvers := append([]models.Role{models.RoleHR, models.RoleSupervisor}, Managers...)
		if _, err := s.Notifications.NotifyRoles(ctx, actor.OrganisationID, approvers, actor.UserID, NotificationInput{
			Type:     models.NotificationLeave,
			Title:    "New leave request",
			Message:  fmt.Sprintf("%s leave requested for %.1f day(s) from %s", leave.LeaveType, leave.Duration, leave.StartDate.Format("2006-01-02")),
			Metadata: map[string]interface{}{"leaveId": leave.ID, "ownerId": leave.OwnerID},
		}); err != nil {
			log.Warnf("⚠️ [LEAVE] approver notification failed for %s: %v", leave.ID, err)
		}
	}

	log.Printf("✅ [LEAVE] %s requested %s leave (%.1f days)", actor.UserID, leave.LeaveType, leave.Duration)
	return &leave, nil
}

func (s *LeaveService) List(ctx context.Context, actor Actor, f LeaveFilter, page, limit int) ([]models.Leave, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Leave{}).Where("organisation_id = ?", actor.OrganisationID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.LeaveType != "" {
		q = q.Where("leave_type = ?", f.LeaveType)
	}
	if f.From != nil {
		q = q.Where("end_date >= ?", startOfDay(*f.From))
	}
	if f.To != nil {
		q = q.Where("start_date <= ?", startOfDay(*f.To))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Leave
	err := q.Preload("Owner").Order("start_date DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

func (s *LeaveService) Get(ctx context.Context, actor Actor, id string) (*models.Leave, error) {
	var leave models.Leave
	err := s.DB.WithContext(ctx).Preload("Owner").
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		First(&leave).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("leave")
	}
	return &leave, err
}

// Update edits a pending request; only its owner may.
func (s *LeaveService) Update(ctx context.Context, actor Actor, id string, in LeaveInput) (*models.Leave, error) {
	leave, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if leave.OwnerID != actor.UserID {
		return nil, fmt.Errorf("only the requester may edit a leave: %w", ErrForbidden)
	}
	if leave.Status != models.LeavePending {
		return nil, fmt.Errorf("leave is %s: %w", leave.Status, ErrConflict)
	}
	days, err := LeaveDuration(in.StartDate, in.EndDate, in.IsHalfDay)
	if err != nil {
		return nil, err
	}

	leave.LeaveType = models.LeaveType(in.LeaveType)
	leave.StartDate = startOfDay(in.StartDate)
	leave.EndDate = startOfDay(in.EndDate)
	leave.IsHalfDay = in.IsHalfDay
	leave.Duration = days
	leave.Motivation = strings.TrimSpace(in.Motivation)
	leave.Owner = nil
	if err := s.DB.WithContext(ctx).Save(leave).Error; err != nil {
		return nil, err
	}
	return leave, nil
}

func (s *LeaveService) Approve(ctx context.Context, actor Actor, id, comments string) (*models.Leave, error) {
	leave, err := s.decide(ctx, actor, id, models.LeaveApproved, func(l *models.Leave, now time.Time) {
		l.ApprovedByID = &actor.UserID
		l.ApprovedAt = &now
		l.Comments = strings.TrimSpace(comments)
	})
	if err != nil {
		return nil, err
	}

	if s.Rewards != nil {
		s.Rewards.AwardBestEffort(ctx, AwardXPInput{
			UserID:         actor.UserID,
			OrganisationID: actor.OrganisationID,
			BranchID:       actor.BranchID,
			Amount:         LeaveApprovalXP,
			Source:         XPSource{Type: "leave", ID: leave.ID, Details: map[string]interface{}{"action": "approve"}},
		})
	}
	return leave, nil
}

func (s *LeaveService) Reject(ctx context.Context, actor Actor, id, reason string) (*models.Leave, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("rejectionReason", "is required")
	}
	return s.decide(ctx, actor, id, models.LeaveRejected, func(l *models.Leave, now time.Time) {
		l.ApprovedByID = &actor.UserID
		l.RejectedAt = &now
		l.RejectionReason = reason
	})
}

// decide moves a pending request to approved or rejected, then tells the owner.
func (s *LeaveService) decide(ctx context.Context, actor Actor, id string, to models.LeaveStatus, apply func(*models.Leave, time.Time)) (*models.Leave, error) {
	leave, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if leave.OwnerID == actor.UserID {
		return nil, fmt.Errorf("cannot decide your own leave: %w", ErrForbidden)
	}
	if leave.Status != models.LeavePending {
		return nil, transitionError(string(leave.Status), string(to))
	}

	from := leave.Status
	leave.Status = to
	apply(leave, s.Now().UTC())
	leave.Owner = nil

	res := s.DB.WithContext(ctx).Model(leave).
		Where("status = ?", from).
		Select("status", "approved_by_id", "approved_at", "rejected_at", "rejection_reason", "comments").
		Updates(leave)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, transitionError(string(from), string(to))
	}

	s.announce(ctx, leave)
	log.Printf("✅ [LEAVE] %s → %s by %s", leave.ID, to, actor.UserID)
	return leave, nil
}

// Cancel withdraws the owner's request while pending, or while approved and not yet started.
func (s *LeaveService) Cancel(ctx context.Context, actor Actor, id string) (*models.Leave, error) {
	leave, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if leave.OwnerID != actor.UserID {
		return nil, fmt.Errorf("only the requester may cancel a leave: %w", ErrForbidden)
	}

	now := s.Now().UTC()
	switch leave.Status {
	case models.LeavePending:
	case models.LeaveApproved:
		if !startOfDay(now).Before(leave.StartDate) {
			return nil, fmt.Errorf("leave already started: %w", ErrInvalidTransition)
		}
	default:
		return nil, transitionError(string(leave.Status), string(models.LeaveCancelled))
	}

	leave.Status = models.LeaveCancelled
	leave.CancelledAt = &now
	leave.Owner = nil
	if err := s.DB.WithContext(ctx).Model(leave).
		Select("status", "cancelled_at").
		Updates(leave).Error; err != nil {
		return nil, err
	}
	s.announce(ctx, leave)
	return leave, nil
}

func (s *LeaveService) announce(ctx context.Context, leave *models.Leave) {
	s.Publisher.Publish(realtime.Event{
		Name:           realtime.LeaveStatusChanged,
		OrganisationID: leave.OrganisationID,
		UserID:         leave.OwnerID,
		Data:           payload("leaveId", leave.ID, "status", leave.Status),
	})
	if s.Notifications == nil || leave.Status == models.LeaveCancelled {
		return
	}
	msg := fmt.Sprintf("Your %s leave from %s was %s", leave.LeaveType, leave.StartDate.Format("2006-01-02"), leave.Status)
	if leave.RejectionReason != "" {
		msg += ": " + leave.RejectionReason
	}
	if _, err := s.Notifications.Notify(ctx, NotificationInput{
		UserID:         leave.OwnerID,
		OrganisationID: leave.OrganisationID,
		Type:           models.NotificationLeave,
		Title:          "Leave " + string(leave.Status),
		Message:        msg,
		Metadata:       map[string]interface{}{"leaveId": leave.ID, "status": string(leave.Status)},
	}); err != nil {
		log.Warnf("⚠️ [LEAVE] owner notification failed for %s: %v", leave.ID, err)
	}
}

// Delete soft-deletes a request. Owners may delete their own; managers and HR any.
func (s *LeaveService) Delete(ctx context.Context, actor Actor, id string) error {
	leave, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if leave.OwnerID != actor.UserID && !actor.Is(PeopleAdmins...) && !actor.Is(Managers...) {
		return ErrForbidden
	}
	return s.DB.WithContext(ctx).Delete(&models.Leave{}, "id = ?", leave.ID).Error
}

func (s *LeaveService) Restore(ctx context.Context, actor Actor, id string) (*models.Leave, error) {
	var leave models.Leave
	if err := restore(ctx, s.DB, &leave, id, actor.OrganisationID); err != nil {
		return nil, err
	}
	return &leave, nil
}
