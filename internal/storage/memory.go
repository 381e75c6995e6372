package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/models"

	"github.com/google/uuid"
)

// Memory is an in-process Storage used for local runs (STORAGE_DRIVER=memory)
// and tests. A single mutex serializes transitions the way a row lock does in
// postgres.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]models.User
	emails     map[string]string
	complaints map[string]models.Complaint
	now        func() time.Time
}

var _ Storage = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]models.User),
		emails:     make(map[string]string),
		complaints: make(map[string]models.Complaint),
		now:        time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[user.Email]; taken {
		return apperror.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleCitizen
	}
	now := m.now()
	user.CreatedAt, user.UpdatedAt = now, now

	m.users[user.ID] = *user
	m.emails[user.Email] = user.ID
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, userNotFound()
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, userNotFound()
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) SetUserRole(_ context.Context, email string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, userNotFound()
	}
	u := m.users[id]
	u.Role = role
	u.UpdatedAt = m.now()
	m.users[id] = u
	return &u, nil
}

// DeleteUser removes a user. Only tests use it, to simulate an account
// removed behind a live session.
func (m *Memory) DeleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		delete(m.emails, u.Email)
		delete(m.users, id)
	}
}

func (m *Memory) CreateComplaint(_ context.Context, complaint *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if complaint.ID == "" {
		complaint.ID = uuid.New().String()
	}
	if _, exists := m.complaints[complaint.ID]; exists {
		return fmt.Errorf("complaint %s already exists", complaint.ID)
	}
	stored := *complaint
	stored.SubmittedBy, stored.AssignedTo = nil, nil
	m.complaints[complaint.ID] = stored
	return nil
}

func (m *Memory) GetComplaintByID(_ context.Context, id string) (*models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.complaints[id]
	if !ok {
		return nil, complaintNotFound(id)
	}
	m.resolveRefs(&c)
	return &c, nil
}

func (m *Memory) ListComplaints(_ context.Context, scope ComplaintScope) ([]models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Complaint, 0, len(m.complaints))
	for _, c := range m.complaints {
		if !scope.Matches(&c) {
			continue
		}
		m.resolveRefs(&c)
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) ApplyTransition(_ context.Context, t Transition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.complaints[t.ComplaintID]
	if !ok || c.Status != t.From {
		return false, nil
	}
	if t.RequireAssignee != "" && !c.IsAssignedTo(t.RequireAssignee) {
		return false, nil
	}

	c.Status = t.To
	if t.Assign != "" {
		assignee := t.Assign
		c.AssignedToID = &assignee
	}
	c.UpdatedAt = m.now()
	m.complaints[t.ComplaintID] = c
	return true, nil
}

// resolveRefs fills SubmittedBy and AssignedTo the way GORM's Preload does.
// Callers hold at least the read lock.
func (m *Memory) resolveRefs(c *models.Complaint) {
	c.SubmittedBy, c.AssignedTo = nil, nil
	if u, ok := m.users[c.SubmittedByID]; ok {
		c.SubmittedBy = &u
	}
	if c.AssignedToID != nil {
		if u, ok := m.users[*c.AssignedToID]; ok {
			c.AssignedTo = &u
		}
	}
}
