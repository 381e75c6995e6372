// Package analysis aggregates complaint counts for the admin dashboard.
package analysis

import "drainwatch/backend/internal/models"

// Metrics is the admin overview of the complaint collection.
type Metrics struct {
	Total    int `json:"total"`
	Reported int `json:"reported"`
	// Pending counts everything not yet Resolved, Closed included, which is
	// what the dashboard has always shown.
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`

	ByStatus   map[models.Status]int   `json:"byStatus"`
	BySeverity map[models.Severity]int `json:"bySeverity"`
	ByCategory map[models.Category]int `json:"byCategory"`
}

// Summarize counts complaints. Every known status, severity and category is
// present in the breakdowns, with zero when unused.
func Summarize(complaints []models.Complaint) Metrics {
	m := Metrics{
		Total:      len(complaints),
		ByStatus:   make(map[models.Status]int, len(models.Lifecycle)),
		BySeverity: make(map[models.Severity]int, len(models.Severities)),
		ByCategory: make(map[models.Category]int, len(models.Categories)),
	}
	for _, s := range models.Lifecycle {
		m.ByStatus[s] = 0
	}
	for _, s := range models.Severities {
		m.BySeverity[s] = 0
	}
	for _, c := range models.Categories {
		m.ByCategory[c] = 0
	}

	for _, c := range complaints {
		m.ByStatus[c.Status]++
		m.BySeverity[c.Severity]++
		m.ByCategory[c.Category]++
		switch c.Status {
		case models.StatusReported:
			m.Reported++
		case models.StatusResolved:
			m.Resolved++
		}
		if c.Status != models.StatusResolved {
			m.Pending++
		}
	}
	return m
}
