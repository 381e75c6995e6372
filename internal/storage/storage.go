package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Storage is the persistence boundary for actors and complaints.
//
// Complaint status and assignee are only written through ApplyTransition.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserRole(ctx context.Context, email string, role models.Role) (*models.User, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, scope ComplaintScope) ([]models.Complaint, error)
	ApplyTransition(ctx context.Context, t Transition) (bool, error)
}

// ComplaintScope narrows a complaint listing. Set fields are OR-ed together;
// an empty scope matches nothing unless All is set.
type ComplaintScope struct {
	All             bool
	SubmittedBy     string
	AssignedTo      string
	IncludeReported bool
}

// Matches evaluates the scope against a single complaint.
func (sc ComplaintScope) Matches(c *models.Complaint) bool {
	if sc.All {
		return true
	}
	if sc.SubmittedBy != "" && c.SubmittedByID == sc.SubmittedBy {
		return true
	}
	if sc.AssignedTo != "" && c.IsAssignedTo(sc.AssignedTo) {
		return true
	}
	return sc.IncludeReported && c.Status == models.StatusReported
}

func (sc ComplaintScope) apply(q *gorm.DB) *gorm.DB {
	if sc.All {
		return q
	}
	var conds []string
	var args []interface{}
	if sc.SubmittedBy != "" {
		conds = append(conds, "submitted_by_id = ?")
		args = append(args, sc.SubmittedBy)
	}
	if sc.AssignedTo != "" {
		conds = append(conds, "assigned_to_id = ?")
		args = append(args, sc.AssignedTo)
	}
	if sc.IncludeReported {
		conds = append(conds, "status = ?")
		args = append(args, models.StatusReported)
	}
	if len(conds) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}

// Transition is a conditional status change. It applies only while the
// complaint is still in From (and, when RequireAssignee is set, still
// assigned to that actor).
type Transition struct {
	ComplaintID     string
	From            models.Status
	To              models.Status
	RequireAssignee string
	Assign          string
}

// Service implements Storage on top of GORM.
type Service struct {
	DB *gorm.DB
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Migrate creates or updates the tables for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Complaint{})
}

func userNotFound() error {
	return apperror.New(apperror.KindNotFound, "user not found")
}

func complaintNotFound(id string) error {
	return apperror.New(apperror.KindNotFound, fmt.Sprintf("complaint %s not found", id))
}

// CreateUser inserts a new user. A taken email yields DuplicateEmail.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	err := s.DB.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrDuplicateEmail
	}
	return err
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, userNotFound()
	}
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, userNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail looks up a user by exact, case-sensitive email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, userNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserRole changes a user's role. Only the admin CLI calls this.
func (s *Service) SetUserRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, userNotFound()
	}
	return s.GetUserByEmail(ctx, email)
}

// CreateComplaint inserts a complaint exactly as given.
func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return s.DB.WithContext(ctx).Omit("SubmittedBy", "AssignedTo").Create(complaint).Error
}

// GetComplaintByID returns the complaint with submitter and assignee loaded.
func (s *Service) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, complaintNotFound(id)
	}
	var complaint models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("SubmittedBy").
		Preload("AssignedTo").
		Where("id = ?", id).
		First(&complaint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, complaintNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// ListComplaints returns every complaint inside scope. Ordering is left to the caller.
func (s *Service) ListComplaints(ctx context.Context, scope ComplaintScope) ([]models.Complaint, error) {
	var complaints []models.Complaint
	q := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Preload("SubmittedBy").
		Preload("AssignedTo")
	if err := scope.apply(q).Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

// ApplyTransition performs the transition as one conditional UPDATE. It reports
// false when the row no longer satisfies the guard (unknown id, status moved
// on, or assignee changed); the caller decides which failure that was.
func (s *Service) ApplyTransition(ctx context.Context, t Transition) (bool, error) {
	if _, err := uuid.Parse(t.ComplaintID); err != nil {
		return false, nil
	}
	q := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND status = ?", t.ComplaintID, t.From)
	if t.RequireAssignee != "" {
		q = q.Where("assigned_to_id = ?", t.RequireAssignee)
	}

	updates := map[string]interface{}{
		"status":     t.To,
		"updated_at": time.Now(),
	}
	if t.Assign != "" {
		updates["assigned_to_id"] = t.Assign
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
