package handler

import (
	"net/http"
	"time"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/complaint"
	"drainwatch/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type locationRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

type createComplaintRequest struct {
	Location      locationRequest `json:"location"`
	ContactNumber string          `json:"contactNumber"`
	Landmark      string          `json:"landmark"`
	Category      string          `json:"category"`
	Severity      string          `json:"severity"`
	Description   string          `json:"description"`
	ImageURL      string          `json:"imageUrl"`
}

type statusRequest struct {
	Status models.Status `json:"status"`
}

type personRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type complaintResponse struct {
	ID            string          `json:"id"`
	SubmittedBy   *personRef      `json:"submittedBy"`
	Location      models.Location `json:"location"`
	ContactNumber string          `json:"contactNumber"`
	Landmark      string          `json:"landmark,omitempty"`
	Category      models.Category `json:"category"`
	Severity      models.Severity `json:"severity"`
	Description   string          `json:"description"`
	Status        models.Status   `json:"status"`
	AssignedTo    *personRef      `json:"assignedTo"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func newComplaintResponse(c *models.Complaint) complaintResponse {
	resp := complaintResponse{
		ID:            c.ID,
		Location:      c.Location,
		ContactNumber: c.ContactNumber,
		Landmark:      c.Landmark,
		Category:      c.Category,
		Severity:      c.Severity,
		Description:   c.Description,
		Status:        c.Status,
		ImageURL:      c.ImageURL,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	// Refs whose user row is gone still report the id.
	resp.SubmittedBy = &personRef{ID: c.SubmittedByID}
	if c.SubmittedBy != nil {
		resp.SubmittedBy.Name = c.SubmittedBy.Name
		resp.SubmittedBy.Email = c.SubmittedBy.Email
	}
	if c.AssignedToID != nil {
		resp.AssignedTo = &personRef{ID: *c.AssignedToID}
		if c.AssignedTo != nil {
			resp.AssignedTo.Name = c.AssignedTo.Name
		}
	}
	return resp
}

// CreateComplaint submits a new complaint for the current actor.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badBody())
		return
	}

	created, err := h.Complaints.Submit(c.Request.Context(), actorFrom(c), complaint.Draft{
		Address:       req.Location.Address,
		Lat:           req.Location.Lat,
		Lon:           req.Location.Lon,
		ContactNumber: req.ContactNumber,
		Landmark:      req.Landmark,
		Category:      req.Category,
		Severity:      req.Severity,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newComplaintResponse(created))
}

// ListComplaints returns the complaints visible to the current actor.
func (h *Handler) ListComplaints(c *gin.Context) {
	complaints, err := h.Complaints.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]complaintResponse, 0, len(complaints))
	for i := range complaints {
		resp = append(resp, newComplaintResponse(&complaints[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	found, err := h.Complaints.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(found))
}

func (h *Handler) ClaimComplaint(c *gin.Context) {
	claimed, err := h.Complaints.Claim(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(claimed))
}

func (h *Handler) AdvanceComplaintStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badBody())
		return
	}
	if req.Status == "" {
		h.respondError(c, apperror.Validation("status", "is required"))
		return
	}

	updated, err := h.Complaints.AdvanceStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newComplaintResponse(updated))
}

// Metrics serves the admin dashboard counters.
func (h *Handler) Metrics(c *gin.Context) {
	m, err := h.Complaints.Metrics(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "drainwatch",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
