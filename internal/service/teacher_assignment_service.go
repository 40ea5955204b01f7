package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type assignmentStore interface {
	User(id string) (models.User, bool)
	Users() []models.User
	Assignment(teacherID string) (models.TeacherAssignment, bool)
	SetAssignment(ctx context.Context, assignment models.TeacherAssignment) error
}

// TeacherAssignmentService manages which categories each teacher handles.
type TeacherAssignmentService struct {
	store     assignmentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherAssignmentService constructs the service.
func NewTeacherAssignmentService(store assignmentStore, validate *validator.Validate, logger *zap.Logger) *TeacherAssignmentService {
	return &TeacherAssignmentService{store: store, validator: defaultValidator(validate), logger: defaultLogger(logger)}
}

// SetAssignment replaces the categories and master flag for a teacher.
func (s *TeacherAssignmentService) SetAssignment(ctx context.Context, teacherID string, req models.SetAssignmentRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	if _, err := s.teacher(teacherID); err != nil {
		return nil, err
	}

	seen := make(map[models.Category]bool, len(req.Categories))
	categories := make([]models.Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		if !c.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", c))
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}

	assignment := models.TeacherAssignment{TeacherID: teacherID, Categories: categories, Master: req.Master}
	outcome, err := settle(fmt.Sprintf("assignment for %s updated", teacherID), s.store.SetAssignment(ctx, assignment))
	if err != nil {
		return nil, err
	}
	stored, _ := s.store.Assignment(teacherID)
	s.logger.Info("teacher assignment updated",
		zap.String("teacher_id", teacherID),
		zap.Int("categories", len(categories)),
		zap.Bool("master", req.Master),
	)
	return &models.AssignmentResult{Assignment: stored, Outcome: outcome}, nil
}

// Get returns a teacher's assignment. Teachers without a record get an empty one.
func (s *TeacherAssignmentService) Get(_ context.Context, teacherID string) (*models.TeacherAssignment, error) {
	if _, err := s.teacher(teacherID); err != nil {
		return nil, err
	}
	assignment, ok := s.store.Assignment(teacherID)
	if !ok {
		assignment = models.TeacherAssignment{TeacherID: teacherID, Categories: []models.Category{}}
	}
	return &assignment, nil
}

// ListTeachers returns every teacher with their assignment.
func (s *TeacherAssignmentService) ListTeachers(_ context.Context) []models.TeacherSummary {
	var out []models.TeacherSummary
	for _, u := range s.store.Users() {
		if u.Role != models.RoleTeacher {
			continue
		}
		assignment, ok := s.store.Assignment(u.ID)
		if !ok {
			assignment = models.TeacherAssignment{TeacherID: u.ID, Categories: []models.Category{}}
		}
		out = append(out, models.TeacherSummary{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt, Assignment: assignment})
	}
	if out == nil {
		out = []models.TeacherSummary{}
	}
	return out
}

func (s *TeacherAssignmentService) teacher(id string) (models.User, error) {
	u, ok := s.store.User(id)
	if !ok || u.Role != models.RoleTeacher {
		return models.User{}, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return u, nil
}
