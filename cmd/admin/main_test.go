package main

import (
	"context"
	"testing"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromote(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()
	require.NoError(t, s.CreateUser(ctx, &models.User{Name: "Sam", Email: "sam@example.com", PasswordHash: "x"}))

	user, err := promote(ctx, s, "sam@example.com", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)

	_, err = promote(ctx, s, "sam@example.com", "superuser")
	assert.Error(t, err)

	_, err = promote(ctx, s, "nobody@example.com", models.RoleAdmin)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPromote_RefusesDemotingAnAssignee(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()
	staff := &models.User{Name: "Sam", Email: "sam@example.com", PasswordHash: "x", Role: models.RoleStaff}
	idle := &models.User{Name: "Ida", Email: "ida@example.com", PasswordHash: "x", Role: models.RoleStaff}
	require.NoError(t, s.CreateUser(ctx, staff))
	require.NoError(t, s.CreateUser(ctx, idle))

	c := &models.Complaint{SubmittedByID: "u1", Category: models.CategoryOther, Severity: models.SeverityLow, Status: models.StatusReported}
	require.NoError(t, s.CreateComplaint(ctx, c))
	ok, err := s.ApplyTransition(ctx, storage.Transition{
		ComplaintID: c.ID, From: models.StatusReported, To: models.StatusAssigned, Assign: staff.ID,
	})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = promote(ctx, s, "sam@example.com", models.RoleCitizen)
	assert.ErrorContains(t, err, "cannot be demoted")
	still, err := s.GetUserByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, still.Role)

	user, err := promote(ctx, s, "sam@example.com", models.RoleAdmin)
	require.NoError(t, err, "moving between triage roles keeps the invariant")
	assert.Equal(t, models.RoleAdmin, user.Role)

	user, err = promote(ctx, s, "ida@example.com", models.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCitizen, user.Role)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()
	require.NoError(t, s.CreateComplaint(ctx, &models.Complaint{
		SubmittedByID: "u1",
		Category:      models.CategoryBlockage,
		Severity:      models.SeverityHigh,
		Status:        models.StatusReported,
	}))

	m, err := metrics(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Total)
	assert.Equal(t, 1, m.BySeverity[models.SeverityHigh])
}
