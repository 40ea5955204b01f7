package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type complaintService interface {
	Create(ctx context.Context, actor models.Actor, req models.CreateComplaintRequest) (*models.ComplaintResult, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id int64, req models.UpdateStatusRequest) (*models.ComplaintResult, error)
	Assign(ctx context.Context, actor models.Actor, id int64, req models.AssignComplaintRequest) (*models.ComplaintResult, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Complaint, error)
	List(ctx context.Context, actor models.Actor) []*models.Complaint
	Board(ctx context.Context, actor models.Actor) *models.ComplaintBoard
}

type exportService interface {
	Export(ctx context.Context, actor models.Actor, format string) (*service.ExportFile, error)
}

// ComplaintHandler serves the complaint lifecycle endpoints.
type ComplaintHandler struct {
	complaints complaintService
	exports    exportService
}

// NewComplaintHandler constructs a ComplaintHandler.
func NewComplaintHandler(complaints complaintService, exports exportService) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints, exports: exports}
}

// List godoc
// @Summary List visible complaints
// @Description Admins and master teachers see everything, teachers their categories, parents their own. view=board groups them into urgent, normal and resolved lanes.
// @Tags Complaints
// @Security BearerAuth
// @Produce json
// @Param view query string false "list or board"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if c.Query("view") == "board" {
		response.JSON(c, http.StatusOK, h.complaints.Board(c.Request.Context(), actor))
		return
	}
	list := h.complaints.List(c.Request.Context(), actor)
	response.JSON(c, http.StatusOK, list, map[string]interface{}{"total": len(list)})
}

// Create godoc
// @Summary Submit a complaint
// @Tags Complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.CreateComplaintRequest true "Complaint"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateComplaintRequest
	if !bindJSON(c, &req, "invalid complaint payload") {
		return
	}
	res, err := h.complaints.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Get godoc
// @Summary Get a complaint with its history
// @Tags Complaints
// @Security BearerAuth
// @Produce json
// @Param id path int true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := complaintID(c)
	if !ok {
		return
	}
	complaint, err := h.complaints.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint)
}

// UpdateStatus godoc
// @Summary Change complaint status
// @Description Appends a history entry. An empty note becomes "status changed: <status>".
// @Tags Complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Complaint ID"
// @Param payload body models.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	res, err := h.complaints.UpdateStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Assign godoc
// @Summary Assign a complaint to a teacher
// @Tags Complaints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Complaint ID"
// @Param payload body models.AssignComplaintRequest true "Teacher"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/assignee [patch]
func (h *ComplaintHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req models.AssignComplaintRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	res, err := h.complaints.Assign(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Export godoc
// @Summary Download visible complaints
// @Tags Complaints
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /complaints/export [get]
func (h *ComplaintHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.exports.Export(c.Request.Context(), actor, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
