// Package complaint is the complaint visibility and lifecycle engine: who may
// read which complaints, and how a complaint moves from Reported to Closed.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drainwatch/backend/internal/analysis"
	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/storage"

	"github.com/rs/zerolog"
)

// Store is the subset of storage the engine needs.
type Store interface {
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, scope storage.ComplaintScope) ([]models.Complaint, error)
	ApplyTransition(ctx context.Context, t storage.Transition) (bool, error)
}

// Draft is a complaint as submitted, before validation.
type Draft struct {
	Address       string
	Lat           *float64
	Lon           *float64
	ContactNumber string
	Landmark      string
	Category      string
	Severity      string
	Description   string
	ImageURL      string
}

// Service handles complaint submission, listing and transitions.
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new complaint service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (d Draft) validate() (*models.Complaint, error) {
	c := &models.Complaint{
		Location: models.Location{
			Address: strings.TrimSpace(d.Address),
		},
		ContactNumber: strings.TrimSpace(d.ContactNumber),
		Landmark:      strings.TrimSpace(d.Landmark),
		Category:      models.Category(strings.TrimSpace(d.Category)),
		Severity:      models.Severity(strings.TrimSpace(d.Severity)),
		Description:   strings.TrimSpace(d.Description),
		ImageURL:      strings.TrimSpace(d.ImageURL),
	}

	switch {
	case c.Location.Address == "":
		return nil, apperror.Validation("location.address", "is required")
	case d.Lat == nil:
		return nil, apperror.Validation("location.lat", "is required")
	case *d.Lat < -90 || *d.Lat > 90:
		return nil, apperror.Validation("location.lat", "must be between -90 and 90")
	case d.Lon == nil:
		return nil, apperror.Validation("location.lon", "is required")
	case *d.Lon < -180 || *d.Lon > 180:
		return nil, apperror.Validation("location.lon", "must be between -180 and 180")
	case c.Category == "":
		return nil, apperror.Validation("category", "is required")
	case !c.Category.Valid():
		return nil, apperror.Validation("category", fmt.Sprintf("unknown category %q", c.Category))
	case c.Description == "":
		return nil, apperror.Validation("description", "is required")
	case c.ContactNumber == "":
		return nil, apperror.Validation("contactNumber", "is required")
	}

	if c.Severity == "" {
		c.Severity = models.SeverityMedium
	} else if !c.Severity.Valid() {
		return nil, apperror.Validation("severity", fmt.Sprintf("unknown severity %q", c.Severity))
	}

	c.Location.Lat, c.Location.Lon = *d.Lat, *d.Lon
	return c, nil
}

// Submit validates the draft and records it as a new Reported complaint.
// Any authenticated role may submit.
func (s *Service) Submit(ctx context.Context, actor *models.User, d Draft) (*models.Complaint, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}
	c, err := d.validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	c.SubmittedByID = actor.ID
	c.Status = models.StatusReported
	c.AssignedToID = nil
	c.CreatedAt, c.UpdatedAt = now, now

	if err := s.store.CreateComplaint(ctx, c); err != nil {
		return nil, s.internal(err, "failed to create complaint")
	}
	c.SubmittedBy = actor

	s.log.Info().
		Str("complaint_id", c.ID).
		Str("user_id", actor.ID).
		Str("category", string(c.Category)).
		Str("severity", string(c.Severity)).
		Msg("complaint submitted")
	return c, nil
}

// List returns the complaints visible to actor in triage order.
func (s *Service) List(ctx context.Context, actor *models.User) ([]models.Complaint, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}
	complaints, err := s.store.ListComplaints(ctx, ScopeFor(actor))
	if err != nil {
		return nil, s.internal(err, "failed to list complaints")
	}
	return Visible(actor, complaints), nil
}

// Get returns one complaint. Complaints the actor may not see are reported as
// NotFound so their existence is not disclosed.
func (s *Service) Get(ctx context.Context, actor *models.User, id string) (*models.Complaint, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}
	c, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanSee(actor, c) {
		return nil, notFound(id)
	}
	return c, nil
}

// Claim assigns a Reported complaint to actor and moves it to Assigned.
// Of two concurrent claims exactly one succeeds.
func (s *Service) Claim(ctx context.Context, actor *models.User, id string) (*models.Complaint, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}
	if !actor.Role.CanTriage() {
		return nil, apperror.New(apperror.KindForbidden, "only staff can claim complaints")
	}
	c, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.StatusReported {
		return nil, apperror.New(apperror.KindInvalidTransition,
			fmt.Sprintf("complaint is %s, only Reported complaints can be claimed", c.Status))
	}

	ok, err := s.store.ApplyTransition(ctx, storage.Transition{
		ComplaintID: c.ID,
		From:        models.StatusReported,
		To:          models.StatusAssigned,
		Assign:      actor.ID,
	})
	if err != nil {
		return nil, s.internal(err, "failed to claim complaint")
	}
	if !ok {
		return nil, apperror.New(apperror.KindInvalidTransition, "complaint has already been claimed")
	}

	s.log.Info().Str("complaint_id", c.ID).Str("user_id", actor.ID).Msg("complaint claimed")
	return s.lookup(ctx, c.ID)
}

// AdvanceStatus moves a complaint to the immediate successor of its current
// status. Staff may only advance complaints assigned to them; admins may
// advance any claimed complaint.
func (s *Service) AdvanceStatus(ctx context.Context, actor *models.User, id string, next models.Status) (*models.Complaint, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthenticated
	}
	if !actor.Role.CanTriage() {
		return nil, apperror.New(apperror.KindForbidden, "only staff can update complaint status")
	}
	if !next.Valid() {
		return nil, apperror.New(apperror.KindInvalidTransition, fmt.Sprintf("unknown status %q", next))
	}
	c, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	t := storage.Transition{ComplaintID: c.ID, From: c.Status, To: next}
	if actor.Role != models.RoleAdmin {
		if !c.IsAssignedTo(actor.ID) {
			return nil, apperror.New(apperror.KindInvalidTransition, "complaint is not assigned to you")
		}
		t.RequireAssignee = actor.ID
	}
	if c.Status == models.StatusReported {
		return nil, apperror.New(apperror.KindInvalidTransition, "complaint must be claimed first")
	}
	if c.Status.Terminal() {
		return nil, apperror.New(apperror.KindInvalidTransition,
			fmt.Sprintf("complaint is %s and can no longer change", c.Status))
	}
	if want, ok := c.Status.Next(); !ok || next != want {
		return nil, apperror.New(apperror.KindInvalidTransition,
			fmt.Sprintf("cannot move complaint from %s to %s", c.Status, next))
	}

	ok, err := s.store.ApplyTransition(ctx, t)
	if err != nil {
		return nil, s.internal(err, "failed to update complaint status")
	}
	if !ok {
		return nil, apperror.New(apperror.KindInvalidTransition, "complaint was changed by someone else, reload and retry")
	}

	s.log.Info().
		Str("complaint_id", c.ID).
		Str("user_id", actor.ID).
		Str("from", string(t.From)).
		Str("to", string(next)).
		Msg("complaint status advanced")
	return s.lookup(ctx, c.ID)
}

// Metrics summarizes every complaint. Admin only.
func (s *Service) Metrics(ctx context.Context, actor *models.User) (analysis.Metrics, error) {
	if actor == nil {
		return analysis.Metrics{}, apperror.ErrUnauthenticated
	}
	if actor.Role != models.RoleAdmin {
		return analysis.Metrics{}, apperror.New(apperror.KindForbidden, "admin access required")
	}
	complaints, err := s.store.ListComplaints(ctx, storage.ComplaintScope{All: true})
	if err != nil {
		return analysis.Metrics{}, s.internal(err, "failed to load complaints")
	}
	return analysis.Summarize(complaints), nil
}

func (s *Service) lookup(ctx context.Context, id string) (*models.Complaint, error) {
	c, err := s.store.GetComplaintByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.internal(err, "failed to load complaint")
	}
	return c, nil
}

func (s *Service) internal(err error, msg string) error {
	s.log.Error().Err(err).Msg(msg)
	return apperror.Internal(err)
}

func notFound(id string) error {
	return apperror.New(apperror.KindNotFound, fmt.Sprintf("complaint %s not found", id))
}
