package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type teacherCodeService interface {
	GenerateTeacherCode(ctx context.Context) (*models.TeacherCodeResult, error)
	ListTeacherCodes(ctx context.Context) []string
}

type assignmentService interface {
	SetAssignment(ctx context.Context, teacherID string, req models.SetAssignmentRequest) (*models.AssignmentResult, error)
	Get(ctx context.Context, teacherID string) (*models.TeacherAssignment, error)
	ListTeachers(ctx context.Context) []models.TeacherSummary
}

type registryService interface {
	ListStudents(ctx context.Context) []models.StudentRecord
	AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.StudentResult, error)
	ImportCSV(ctx context.Context, r io.Reader) (*models.ImportResult, error)
	CSVTemplate() ([]byte, error)
}

type statsService interface {
	Overview(ctx context.Context) (*models.SystemStats, bool)
}

// AdminHandler serves the administrator console.
type AdminHandler struct {
	codes       teacherCodeService
	assignments assignmentService
	registry    registryService
	stats       statsService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(codes teacherCodeService, assignments assignmentService, registry registryService, stats statsService) *AdminHandler {
	return &AdminHandler{codes: codes, assignments: assignments, registry: registry, stats: stats}
}

// CreateTeacherCode godoc
// @Summary Issue a single-use teacher signup code
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /admin/teacher-codes [post]
func (h *AdminHandler) CreateTeacherCode(c *gin.Context) {
	res, err := h.codes.GenerateTeacherCode(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListTeacherCodes godoc
// @Summary List active teacher signup codes
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/teacher-codes [get]
func (h *AdminHandler) ListTeacherCodes(c *gin.Context) {
	codes := h.codes.ListTeacherCodes(c.Request.Context())
	response.JSON(c, http.StatusOK, codes, map[string]interface{}{"total": len(codes)})
}

// ListTeachers godoc
// @Summary List teachers with their category assignments
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	teachers := h.assignments.ListTeachers(c.Request.Context())
	response.JSON(c, http.StatusOK, teachers, map[string]interface{}{"total": len(teachers)})
}

// GetAssignment godoc
// @Summary Get a teacher's assignment
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{id}/assignment [get]
func (h *AdminHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment)
}

// SetAssignment godoc
// @Summary Replace a teacher's categories and master flag
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body models.SetAssignmentRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{id}/assignment [put]
func (h *AdminHandler) SetAssignment(c *gin.Context) {
	var req models.SetAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	res, err := h.assignments.SetAssignment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// ListStudents godoc
// @Summary List the student registry
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students := h.registry.ListStudents(c.Request.Context())
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// AddStudent godoc
// @Summary Register a student
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/students [post]
func (h *AdminHandler) AddStudent(c *gin.Context) {
	var req models.CreateStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	res, err := h.registry.AddStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ImportStudents godoc
// @Summary Bulk import students from CSV
// @Description Accepts a multipart form with a "file" field or a raw text/csv body. Every row is reported.
// @Tags Admin
// @Security BearerAuth
// @Accept multipart/form-data
// @Accept text/csv
// @Produce json
// @Param file formData file false "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/students/import [post]
func (h *AdminHandler) ImportStudents(c *gin.Context) {
	body := io.Reader(c.Request.Body)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart upload needs a \"file\" field"))
			return
		}
		file, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "uploaded file could not be read"))
			return
		}
		defer file.Close()
		body = file
	}

	res, err := h.registry.ImportCSV(c.Request.Context(), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// StudentTemplate godoc
// @Summary Download the registry import template
// @Tags Admin
// @Security BearerAuth
// @Produce text/csv
// @Success 200 {file} file
// @Router /admin/students/template [get]
func (h *AdminHandler) StudentTemplate(c *gin.Context) {
	data, err := h.registry.CSVTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "student_registry_template.csv", "text/csv; charset=utf-8", data)
}

// Stats godoc
// @Summary System overview
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, hit := h.stats.Overview(c.Request.Context())
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, middleware.ExtractMeta(c))
}
