package models

import (
	"time"

	"drainwatch/backend/internal/config"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category classifies the reported drainage problem.
type Category string

const (
	CategoryWaterlogging     Category = "Waterlogging"
	CategoryOverflowingDrain Category = "Overflowing Drain"
	CategoryFoulOdor         Category = "Foul Odor"
	CategoryBlockage         Category = "Blockage"
	CategoryOther            Category = "Other"
)

// Categories lists every accepted category.
var Categories = []Category{
	CategoryWaterlogging,
	CategoryOverflowingDrain,
	CategoryFoulOdor,
	CategoryBlockage,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Severity is the reporter's urgency estimate.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists severities from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

func (s Severity) Valid() bool {
	_, ok := config.SeverityWeights[string(s)]
	return ok
}

// Weight is the triage weight of s; unknown severities weigh 0.
func (s Severity) Weight() int {
	return config.SeverityWeights[string(s)]
}

// Status is a complaint's lifecycle state.
type Status string

const (
	StatusReported   Status = "Reported"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Lifecycle is the fixed, linear status order.
var Lifecycle = []Status{StatusReported, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed}

// Rank is the position of s in Lifecycle, or -1 if s is unknown.
func (s Status) Rank() int {
	for i, known := range Lifecycle {
		if s == known {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Next returns the immediate successor of s. Closed and unknown statuses have none.
func (s Status) Next() (Status, bool) {
	r := s.Rank()
	if r < 0 || r+1 >= len(Lifecycle) {
		return "", false
	}
	return Lifecycle[r+1], true
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusClosed
}

// Location is where the problem was observed. Immutable after creation.
type Location struct {
	Address string  `gorm:"type:text;not null" json:"address"`
	Lat     float64 `gorm:"not null" json:"lat"`
	Lon     float64 `gorm:"not null" json:"lon"`
}

// Complaint is a citizen-reported drainage issue.
//
// Status and AssignedToID change only through the guarded transitions in the
// storage layer; nothing else writes them after creation.
type Complaint struct {
	ID            string   `gorm:"type:uuid;primaryKey" json:"id"`
	SubmittedByID string   `gorm:"type:uuid;not null;index" json:"-"`
	SubmittedBy   *User    `gorm:"foreignKey:SubmittedByID" json:"-"`
	Location      Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	ContactNumber string   `gorm:"type:text;not null" json:"contactNumber"`
	Landmark      string   `gorm:"type:text" json:"landmark,omitempty"`
	Category      Category `gorm:"type:text;not null;index" json:"category"`
	Severity      Severity `gorm:"type:text;not null;default:Medium" json:"severity"`
	Description   string   `gorm:"type:text;not null" json:"description"`
	Status        Status   `gorm:"type:text;not null;default:Reported;index" json:"status"`
	AssignedToID  *string  `gorm:"type:uuid;index" json:"-"`
	AssignedTo    *User    `gorm:"foreignKey:AssignedToID" json:"-"`
	ImageURL      string   `gorm:"type:text" json:"imageUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID to new complaints.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsAssignedTo reports whether the complaint is currently assigned to userID.
func (c *Complaint) IsAssignedTo(userID string) bool {
	return c.AssignedToID != nil && *c.AssignedToID == userID
}
