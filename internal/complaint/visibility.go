package complaint

import (
	"sort"

	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/storage"
)

// visibilityRules maps each role to the complaints it may read. Roles not
// listed see nothing.
var visibilityRules = map[models.Role]func(actorID string) storage.ComplaintScope{
	models.RoleCitizen: func(actorID string) storage.ComplaintScope {
		return storage.ComplaintScope{SubmittedBy: actorID}
	},
	models.RoleStaff: func(actorID string) storage.ComplaintScope {
		return storage.ComplaintScope{AssignedTo: actorID, IncludeReported: true}
	},
	models.RoleAdmin: func(string) storage.ComplaintScope {
		return storage.ComplaintScope{All: true}
	},
}

// ScopeFor returns the visibility scope of actor.
func ScopeFor(actor *models.User) storage.ComplaintScope {
	if actor == nil {
		return storage.ComplaintScope{}
	}
	rule, ok := visibilityRules[actor.Role]
	if !ok {
		return storage.ComplaintScope{}
	}
	return rule(actor.ID)
}

// CanSee reports whether actor may read c.
func CanSee(actor *models.User, c *models.Complaint) bool {
	return ScopeFor(actor).Matches(c)
}

// Visible returns the subset of complaints actor may read, in triage order.
// The input slice is not modified.
func Visible(actor *models.User, complaints []models.Complaint) []models.Complaint {
	scope := ScopeFor(actor)
	out := make([]models.Complaint, 0, len(complaints))
	for i := range complaints {
		if scope.Matches(&complaints[i]) {
			out = append(out, complaints[i])
		}
	}
	SortForTriage(out)
	return out
}

// SortForTriage orders complaints least-progressed first, then most severe
// first, then oldest first.
func SortForTriage(complaints []models.Complaint) {
	sort.SliceStable(complaints, func(i, j int) bool {
		a, b := &complaints[i], &complaints[j]
		if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
			return ra < rb
		}
		if wa, wb := a.Severity.Weight(), b.Severity.Weight(); wa != wb {
			return wa > wb
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
