package complaint_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/complaint"
	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *complaint.Service
	store *storage.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := storage.NewMemory()
	base := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return fixture{svc: complaint.NewService(store, complaint.WithClock(clock)), store: store}
}

func (f fixture) user(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func draft(category, severity string) complaint.Draft {
	lat, lon := coords(19.07, 72.87)
	return complaint.Draft{
		Address:       "12 Canal Road",
		Lat:           lat,
		Lon:           lon,
		ContactNumber: "555-0100",
		Category:      category,
		Severity:      severity,
		Description:   "drain overflowing onto the street",
	}
}

func (f fixture) submit(t *testing.T, actor *models.User, category, severity string) *models.Complaint {
	t.Helper()
	c, err := f.svc.Submit(context.Background(), actor, draft(category, severity))
	require.NoError(t, err)
	return c
}

func ids(complaints []models.Complaint) []string {
	out := make([]string, len(complaints))
	for i, c := range complaints {
		out[i] = c.ID
	}
	return out
}

func TestSubmit_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "asha", models.RoleCitizen)

	created := f.submit(t, citizen, "Foul Odor", "High")
	assert.Equal(t, models.StatusReported, created.Status)
	assert.Nil(t, created.AssignedToID)

	got, err := f.svc.Get(ctx, citizen, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFoulOdor, got.Category)
	assert.Equal(t, models.SeverityHigh, got.Severity)
	assert.Equal(t, created.Description, got.Description)
	assert.Equal(t, created.Location, got.Location)
	assert.Equal(t, models.StatusReported, got.Status)
	require.NotNil(t, got.SubmittedBy)
	assert.Equal(t, "asha", got.SubmittedBy.Name)
}

func TestSubmit_DefaultsSeverity(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t, f.user(t, "a", models.RoleCitizen), "Other", "")
	assert.Equal(t, models.SeverityMedium, c.Severity)
}

func TestSubmit_AnyRole(t *testing.T) {
	f := newFixture(t)
	for _, role := range []models.Role{models.RoleCitizen, models.RoleStaff, models.RoleAdmin} {
		_, err := f.svc.Submit(context.Background(), f.user(t, string(role), role), draft("Other", ""))
		assert.NoError(t, err, role)
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	actor := f.user(t, "a", models.RoleCitizen)
	badLat, _ := coords(91, 0)
	_, badLon := coords(0, -181)

	cases := []struct {
		field  string
		mutate func(d *complaint.Draft)
	}{
		{"location.address", func(d *complaint.Draft) { d.Address = "  " }},
		{"location.lat", func(d *complaint.Draft) { d.Lat = nil }},
		{"location.lat", func(d *complaint.Draft) { d.Lat = badLat }},
		{"location.lon", func(d *complaint.Draft) { d.Lon = nil }},
		{"location.lon", func(d *complaint.Draft) { d.Lon = badLon }},
		{"category", func(d *complaint.Draft) { d.Category = "" }},
		{"category", func(d *complaint.Draft) { d.Category = "Pothole" }},
		{"description", func(d *complaint.Draft) { d.Description = "" }},
		{"contactNumber", func(d *complaint.Draft) { d.ContactNumber = "" }},
		{"severity", func(d *complaint.Draft) { d.Severity = "Apocalyptic" }},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("%d_%s", i, tc.field), func(t *testing.T) {
			d := draft("Blockage", "Low")
			tc.mutate(&d)
			_, err := f.svc.Submit(context.Background(), actor, d)
			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}

	all, err := f.svc.List(context.Background(), f.user(t, "admin", models.RoleAdmin))
	require.NoError(t, err)
	assert.Empty(t, all, "rejected drafts are not stored")
}

func TestList_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice", models.RoleCitizen)
	bob := f.user(t, "bob", models.RoleCitizen)
	staff := f.user(t, "sam", models.RoleStaff)
	other := f.user(t, "olga", models.RoleStaff)
	admin := f.user(t, "ada", models.RoleAdmin)

	a1 := f.submit(t, alice, "Blockage", "Low")
	a2 := f.submit(t, alice, "Waterlogging", "Critical")
	b1 := f.submit(t, bob, "Foul Odor", "High")
	b2 := f.submit(t, bob, "Other", "Medium")

	_, err := f.svc.Claim(ctx, staff, a1.ID)
	require.NoError(t, err)
	_, err = f.svc.Claim(ctx, other, b1.ID)
	require.NoError(t, err)

	t.Run("citizen sees only own submissions", func(t *testing.T) {
		got, err := f.svc.List(ctx, alice)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a1.ID, a2.ID}, ids(got))
	})

	t.Run("staff sees own assignments plus unclaimed pool", func(t *testing.T) {
		got, err := f.svc.List(ctx, staff)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a1.ID, a2.ID, b2.ID}, ids(got))
	})

	t.Run("admin sees everything", func(t *testing.T) {
		got, err := f.svc.List(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("unknown role sees nothing", func(t *testing.T) {
		got, err := f.svc.List(ctx, &models.User{ID: "x", Role: "auditor"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("get hides invisible complaints", func(t *testing.T) {
		_, err := f.svc.Get(ctx, alice, b1.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		_, err = f.svc.Get(ctx, staff, b1.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		_, err = f.svc.Get(ctx, admin, b1.ID)
		assert.NoError(t, err)
	})
}

func TestList_TriageOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "c", models.RoleCitizen)
	staff := f.user(t, "s", models.RoleStaff)
	admin := f.user(t, "a", models.RoleAdmin)

	lowOld := f.submit(t, citizen, "Other", "Low")
	critical := f.submit(t, citizen, "Other", "Critical")
	assigned := f.submit(t, citizen, "Other", "Critical")
	lowNew := f.submit(t, citizen, "Other", "Low")
	_, err := f.svc.Claim(ctx, staff, assigned.ID)
	require.NoError(t, err)

	got, err := f.svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{critical.ID, lowOld.ID, lowNew.ID, assigned.ID}, ids(got))
}

func TestScenario_BlockageLow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, "a", models.RoleCitizen)
	b := f.user(t, "b", models.RoleStaff)
	c := f.user(t, "c", models.RoleStaff)

	created := f.submit(t, a, "Blockage", "Low")
	assert.Equal(t, models.StatusReported, created.Status)
	assert.Nil(t, created.AssignedToID)

	claimed, err := f.svc.Claim(ctx, b, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, claimed.Status)
	assert.True(t, claimed.IsAssignedTo(b.ID))
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, "b", claimed.AssignedTo.Name)

	advanced, err := f.svc.AdvanceStatus(ctx, b, created.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, advanced.Status)

	mine, err := f.svc.List(ctx, a)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusInProgress, mine[0].Status)

	_, err = f.svc.Claim(ctx, c, created.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestClaim_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "c", models.RoleCitizen)
	staff := f.user(t, "s", models.RoleStaff)
	admin := f.user(t, "a", models.RoleAdmin)
	created := f.submit(t, citizen, "Blockage", "High")

	_, err := f.svc.Claim(ctx, citizen, created.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Claim(ctx, staff, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	claimed, err := f.svc.Claim(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.True(t, claimed.IsAssignedTo(admin.ID))

	_, err = f.svc.Claim(ctx, staff, created.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestClaim_ConcurrentExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "c", models.RoleCitizen)
	created := f.submit(t, citizen, "Blockage", "High")

	const contenders = 8
	staff := make([]*models.User, contenders)
	for i := range staff {
		staff[i] = f.user(t, fmt.Sprintf("staff%d", i), models.RoleStaff)
	}

	errs := make(chan error, contenders)
	var start, wg sync.WaitGroup
	start.Add(1)
	for _, s := range staff {
		wg.Add(1)
		go func(actor *models.User) {
			defer wg.Done()
			start.Wait()
			_, err := f.svc.Claim(ctx, actor, created.ID)
			errs <- err
		}(s)
	}
	start.Done()
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	}
	assert.Equal(t, 1, wins)

	got, err := f.store.GetComplaintByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
	require.NotNil(t, got.AssignedToID)
}

func TestAdvanceStatus_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "c", models.RoleCitizen)
	staff := f.user(t, "s", models.RoleStaff)
	other := f.user(t, "o", models.RoleStaff)
	created := f.submit(t, citizen, "Waterlogging", "Medium")

	_, err := f.svc.AdvanceStatus(ctx, staff, created.ID, models.StatusResolved)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "Reported cannot skip to Resolved")

	_, err = f.svc.AdvanceStatus(ctx, staff, created.ID, models.StatusAssigned)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "Reported leaves only through claim")

	_, err = f.svc.Claim(ctx, staff, created.ID)
	require.NoError(t, err)

	_, err = f.svc.AdvanceStatus(ctx, citizen, created.ID, models.StatusInProgress)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.AdvanceStatus(ctx, staff, "00000000-0000-0000-0000-000000000000", models.StatusInProgress)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.AdvanceStatus(ctx, other, created.ID, models.StatusInProgress)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "only the assignee may advance")

	_, err = f.svc.AdvanceStatus(ctx, staff, created.ID, "Escalated")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.svc.AdvanceStatus(ctx, staff, created.ID, models.StatusResolved)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "Assigned cannot skip to Resolved")

	_, err = f.svc.AdvanceStatus(ctx, staff, created.ID, models.StatusReported)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "no regression")

	for _, next := range []models.Status{models.StatusInProgress, models.StatusResolved, models.StatusClosed} {
		got, err := f.svc.AdvanceStatus(ctx, staff, created.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}

	_, err = f.svc.AdvanceStatus(ctx, staff, created.ID, models.StatusClosed)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition, "Closed is terminal")
	assert.Contains(t, err.Error(), "can no longer change")
}

func TestAdvanceStatus_AdminMayAdvanceAnyClaimed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "c", models.RoleCitizen)
	staff := f.user(t, "s", models.RoleStaff)
	admin := f.user(t, "a", models.RoleAdmin)
	created := f.submit(t, citizen, "Other", "Low")

	_, err := f.svc.Claim(ctx, staff, created.ID)
	require.NoError(t, err)

	got, err := f.svc.AdvanceStatus(ctx, admin, created.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.True(t, got.IsAssignedTo(staff.ID), "advancing does not reassign")
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	citizen := f.user(t, "c", models.RoleCitizen)
	staff := f.user(t, "s", models.RoleStaff)
	admin := f.user(t, "a", models.RoleAdmin)
	first := f.submit(t, citizen, "Blockage", "Low")
	f.submit(t, citizen, "Blockage", "High")

	_, err := f.svc.Claim(ctx, staff, first.ID)
	require.NoError(t, err)

	_, err = f.svc.Metrics(ctx, staff)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	m, err := f.svc.Metrics(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Total)
	assert.Equal(t, 1, m.Reported)
	assert.Equal(t, 2, m.Pending)
	assert.Equal(t, 2, m.ByCategory[models.CategoryBlockage])
}

// MockStore lets tests inject storage failures.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockStore) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) ListComplaints(ctx context.Context, scope storage.ComplaintScope) ([]models.Complaint, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStore) ApplyTransition(ctx context.Context, tr storage.Transition) (bool, error) {
	args := m.Called(ctx, tr)
	return args.Bool(0), args.Error(1)
}

func TestStorageFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	staff := &models.User{ID: "s", Role: models.RoleStaff}
	boom := errors.New("connection reset")

	store := new(MockStore)
	store.On("ListComplaints", mock.Anything, mock.Anything).Return(nil, boom)
	store.On("CreateComplaint", mock.Anything, mock.Anything).Return(boom)
	store.On("GetComplaintByID", mock.Anything, "c1").
		Return(&models.Complaint{ID: "c1", Status: models.StatusReported}, nil)
	store.On("ApplyTransition", mock.Anything, mock.Anything).Return(false, boom)
	svc := complaint.NewService(store)

	_, err := svc.List(ctx, staff)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	_, err = svc.Submit(ctx, staff, draft("Other", ""))
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	_, err = svc.Claim(ctx, staff, "c1")
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.NotContains(t, err.Error(), "connection reset")

	store.AssertExpectations(t)
}

func TestClaim_LosingTheRaceAfterCheck(t *testing.T) {
	ctx := context.Background()
	staff := &models.User{ID: "s", Role: models.RoleStaff}

	store := new(MockStore)
	store.On("GetComplaintByID", mock.Anything, "c1").
		Return(&models.Complaint{ID: "c1", Status: models.StatusReported}, nil)
	store.On("ApplyTransition", mock.Anything, storage.Transition{
		ComplaintID: "c1",
		From:        models.StatusReported,
		To:          models.StatusAssigned,
		Assign:      "s",
	}).Return(false, nil)
	svc := complaint.NewService(store)

	_, err := svc.Claim(ctx, staff, "c1")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	store.AssertExpectations(t)
}
