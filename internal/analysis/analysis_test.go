package analysis

import (
	"testing"

	"drainwatch/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	complaints := []models.Complaint{
		{Status: models.StatusReported, Severity: models.SeverityLow, Category: models.CategoryBlockage},
		{Status: models.StatusReported, Severity: models.SeverityCritical, Category: models.CategoryBlockage},
		{Status: models.StatusInProgress, Severity: models.SeverityHigh, Category: models.CategoryFoulOdor},
		{Status: models.StatusResolved, Severity: models.SeverityMedium, Category: models.CategoryWaterlogging},
		{Status: models.StatusClosed, Severity: models.SeverityMedium, Category: models.CategoryOther},
	}

	m := Summarize(complaints)

	assert.Equal(t, 5, m.Total)
	assert.Equal(t, 2, m.Reported)
	assert.Equal(t, 1, m.Resolved)
	assert.Equal(t, 4, m.Pending, "closed complaints still count as pending")
	assert.Equal(t, 2, m.ByStatus[models.StatusReported])
	assert.Equal(t, 0, m.ByStatus[models.StatusAssigned])
	assert.Equal(t, 2, m.BySeverity[models.SeverityMedium])
	assert.Equal(t, 2, m.ByCategory[models.CategoryBlockage])
	assert.Contains(t, m.ByCategory, models.CategoryOverflowingDrain)
}

func TestSummarizeEmpty(t *testing.T) {
	m := Summarize(nil)
	assert.Zero(t, m.Total)
	assert.Zero(t, m.Pending)
	assert.Len(t, m.ByStatus, len(models.Lifecycle))
	assert.Len(t, m.BySeverity, len(models.Severities))
	assert.Len(t, m.ByCategory, len(models.Categories))
}
