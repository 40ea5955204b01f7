package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type complaintStore interface {
	User(id string) (models.User, bool)
	Complaint(id int64) (*models.Complaint, bool)
	CreateComplaint(ctx context.Context, build func(id int64, now time.Time) (*models.Complaint, error)) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, id int64, mutate func(current *models.Complaint, now time.Time) (models.ComplaintPatch, error)) (*models.Complaint, *models.Complaint, error)
}

type complaintAuthorizer interface {
	VisibleComplaints(actor models.Actor) []*models.Complaint
	CanView(actor models.Actor, complaint *models.Complaint) bool
	CanMutate(actor models.Actor, complaint *models.Complaint) bool
	IsMasterTeacher(userID string) bool
}

type complaintNotifier interface {
	ComplaintCreated(ctx context.Context, complaint *models.Complaint)
	ComplaintResolved(ctx context.Context, complaint *models.Complaint)
}

// ComplaintService owns complaint creation, status changes and history.
type ComplaintService struct {
	store     complaintStore
	authz     complaintAuthorizer
	notifier  complaintNotifier
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs a ComplaintService. notifier, cache and metrics may be nil.
func NewComplaintService(store complaintStore, authz complaintAuthorizer, notifier complaintNotifier, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	return &ComplaintService{
		store:     store,
		authz:     authz,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: defaultValidator(validate),
		logger:    defaultLogger(logger),
	}
}

// Create submits a complaint on behalf of a parent.
func (s *ComplaintService) Create(ctx context.Context, actor models.Actor, req models.CreateComplaintRequest) (*models.ComplaintResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid complaint payload")
	}
	user, ok := s.store.User(actor.ID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submitting user not found")
	}
	if user.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only parent accounts can submit complaints")
	}

	complaint, err := s.store.CreateComplaint(ctx, func(id int64, now time.Time) (*models.Complaint, error) {
		c, err := models.NewComplaint(id, req.Title, req.Content, req.Category, req.Urgency, user.ID, now)
		if err != nil {
			return nil, validationError(err, strings.TrimPrefix(err.Error(), models.ErrInvalidComplaint.Error()+": "))
		}
		return c, nil
	})
	if complaint == nil {
		return nil, err
	}
	outcome, err := settle(fmt.Sprintf("complaint #%d submitted", complaint.ID), err)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordComplaintCreated(string(complaint.Category), string(complaint.Urgency))
	invalidateStats(ctx, s.cache, s.logger)
	if s.notifier != nil {
		s.notifier.ComplaintCreated(ctx, complaint)
	}
	s.logger.Info("complaint created",
		zap.Int64("complaint_id", complaint.ID),
		zap.String("category", string(complaint.Category)),
		zap.String("urgency", string(complaint.Urgency)),
		zap.Bool("durable", outcome.Durable),
	)
	return &models.ComplaintResult{Complaint: complaint, Outcome: outcome}, nil
}

// UpdateStatus moves a complaint to req.Status and appends one history entry.
// Setting the current status again still appends an entry.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor models.Actor, id int64, req models.UpdateStatusRequest) (*models.ComplaintResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	current, ok := s.store.Complaint(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("complaint %d not found", id))
	}
	// category never changes, so the check holds for the update below
	if !s.authz.CanMutate(actor, current) {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "you cannot change the status of this complaint")
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = models.StatusChangedNote(req.Status)
	}
	before, after, err := s.store.UpdateComplaint(ctx, id, func(_ *models.Complaint, now time.Time) (models.ComplaintPatch, error) {
		status := req.Status
		return models.ComplaintPatch{
			Status:        &status,
			AppendHistory: []models.HistoryEntry{{Status: status, Timestamp: now, Note: note}},
		}, nil
	})
	if after == nil {
		return nil, err
	}
	outcome, err := settle(fmt.Sprintf("complaint #%d is now %s", id, after.Status), err)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatusTransition(string(before.Status), string(after.Status))
	invalidateStats(ctx, s.cache, s.logger)
	if after.Status == models.StatusResolved && s.notifier != nil {
		s.notifier.ComplaintResolved(ctx, after)
	}
	s.logger.Info("complaint status changed",
		zap.Int64("complaint_id", id),
		zap.String("actor", actor.ID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)),
		zap.Bool("durable", outcome.Durable),
	)
	return &models.ComplaintResult{Complaint: after, Outcome: outcome}, nil
}

// Assign sets the handling teacher. Only administrators and master teachers may assign.
func (s *ComplaintService) Assign(ctx context.Context, actor models.Actor, id int64, req models.AssignComplaintRequest) (*models.ComplaintResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleTeacher && s.authz.IsMasterTeacher(actor.ID)) {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators and master teachers can assign complaints")
	}
	teacher, ok := s.store.User(req.TeacherID)
	if !ok || teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	_, after, err := s.store.UpdateComplaint(ctx, id, func(_ *models.Complaint, _ time.Time) (models.ComplaintPatch, error) {
		assignee := teacher.ID
		return models.ComplaintPatch{AssignedTo: &assignee}, nil
	})
	if after == nil {
		return nil, err
	}
	outcome, err := settle(fmt.Sprintf("complaint #%d assigned to %s", id, teacher.Name), err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("complaint assigned", zap.Int64("complaint_id", id), zap.String("teacher_id", teacher.ID), zap.String("actor", actor.ID))
	return &models.ComplaintResult{Complaint: after, Outcome: outcome}, nil
}

// Get returns a complaint visible to actor. Invisible complaints are reported as missing.
func (s *ComplaintService) Get(_ context.Context, actor models.Actor, id int64) (*models.Complaint, error) {
	c, ok := s.store.Complaint(id)
	if !ok || !s.authz.CanView(actor, c) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("complaint %d not found", id))
	}
	return c, nil
}

// List returns the complaints visible to actor ordered by id.
func (s *ComplaintService) List(_ context.Context, actor models.Actor) []*models.Complaint {
	return s.authz.VisibleComplaints(actor)
}

// Board groups the visible complaints for display.
func (s *ComplaintService) Board(_ context.Context, actor models.Actor) *models.ComplaintBoard {
	return BuildBoard(s.authz.VisibleComplaints(actor))
}

// BuildBoard splits complaints into urgent and normal active lanes, each oldest first,
// and a resolved lane ordered by most recent activity.
func BuildBoard(complaints []*models.Complaint) *models.ComplaintBoard {
	board := &models.ComplaintBoard{
		ActiveUrgent: []*models.Complaint{},
		ActiveNormal: []*models.Complaint{},
		Resolved:     []*models.Complaint{},
	}
	for _, c := range complaints {
		switch {
		case !c.Status.Active():
			board.Resolved = append(board.Resolved, c)
		case c.Urgency == models.UrgencyUrgent:
			board.ActiveUrgent = append(board.ActiveUrgent, c)
		default:
			board.ActiveNormal = append(board.ActiveNormal, c)
		}
	}
	oldestFirst := func(list []*models.Complaint) {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return list[i].ID < list[j].ID
		})
	}
	oldestFirst(board.ActiveUrgent)
	oldestFirst(board.ActiveNormal)
	sort.SliceStable(board.Resolved, func(i, j int) bool {
		return board.Resolved[i].LastActivity().After(board.Resolved[j].LastActivity())
	})

	board.Counts = models.BoardCounts{
		Total:    len(complaints),
		Active:   len(board.ActiveUrgent) + len(board.ActiveNormal),
		Urgent:   len(board.ActiveUrgent),
		Resolved: len(board.Resolved),
	}
	return board
}
