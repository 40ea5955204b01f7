package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type accountService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	SignupParent(ctx context.Context, req models.ParentSignupRequest) (*models.SignupResult, error)
	SignupTeacher(ctx context.Context, req models.TeacherSignupRequest) (*models.SignupResult, error)
	Me(ctx context.Context, actor models.Actor) (*models.Identity, error)
}

// AuthHandler wires HTTP endpoints to the account service.
type AuthHandler struct {
	service accountService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc accountService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate user
// @Description Parents log in with their child's registered name, staff with their user id
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// SignupParent godoc
// @Summary Register a parent account
// @Description The student must already be in the registry; the login id is the student's name
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ParentSignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup/parent [post]
func (h *AuthHandler) SignupParent(c *gin.Context) {
	var req models.ParentSignupRequest
	if !bindJSON(c, &req, "invalid parent signup payload") {
		return
	}
	res, err := h.service.SignupParent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// SignupTeacher godoc
// @Summary Register a teacher account
// @Description Consumes a single-use teacher code issued by an administrator
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.TeacherSignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup/teacher [post]
func (h *AuthHandler) SignupTeacher(c *gin.Context) {
	var req models.TeacherSignupRequest
	if !bindJSON(c, &req, "invalid teacher signup payload") {
		return
	}
	res, err := h.service.SignupTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	identity, err := h.service.Me(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity)
}
