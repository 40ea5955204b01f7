package service

import (
	"github.com/noah-isme/complaint-desk-api/internal/models"
)

type authorizationStore interface {
	Assignment(teacherID string) (models.TeacherAssignment, bool)
	Complaints() []*models.Complaint
}

// AuthorizationService decides which complaints an actor may see and change.
// It never writes.
type AuthorizationService struct {
	store authorizationStore
}

// NewAuthorizationService constructs an AuthorizationService.
func NewAuthorizationService(store authorizationStore) *AuthorizationService {
	return &AuthorizationService{store: store}
}

// IsMasterTeacher reports whether userID sees every category.
func (s *AuthorizationService) IsMasterTeacher(userID string) bool {
	if userID == models.AdminUserID {
		return true
	}
	assignment, ok := s.store.Assignment(userID)
	return ok && assignment.Master
}

// Capabilities returns the profile attached to role.
func (s *AuthorizationService) Capabilities(role models.UserRole) models.RoleProfile {
	return models.ProfileForRole(role)
}

// VisibleComplaints returns the complaints actor may view, ordered by id.
func (s *AuthorizationService) VisibleComplaints(actor models.Actor) []*models.Complaint {
	return s.filter(actor, s.store.Complaints())
}

func (s *AuthorizationService) filter(actor models.Actor, complaints []*models.Complaint) []*models.Complaint {
	visible := make([]*models.Complaint, 0, len(complaints))
	match := s.matcher(actor)
	for _, c := range complaints {
		if match(c) {
			visible = append(visible, c)
		}
	}
	return visible
}

// matcher resolves the actor's scope into a predicate.
func (s *AuthorizationService) matcher(actor models.Actor) func(*models.Complaint) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return func(*models.Complaint) bool { return true }
	case models.RoleParent:
		return func(c *models.Complaint) bool { return c.CreatedBy == actor.ID }
	case models.RoleTeacher:
		if actor.ID == models.AdminUserID {
			return func(*models.Complaint) bool { return true }
		}
		assignment, ok := s.store.Assignment(actor.ID)
		if !ok {
			return func(*models.Complaint) bool { return false }
		}
		return func(c *models.Complaint) bool { return assignment.Covers(c.Category) }
	default:
		return func(*models.Complaint) bool { return false }
	}
}

// CanView reports whether complaint is in actor's visible set.
func (s *AuthorizationService) CanView(actor models.Actor, complaint *models.Complaint) bool {
	if complaint == nil {
		return false
	}
	return s.matcher(actor)(complaint)
}

// CanMutate reports whether actor may change complaint's status.
func (s *AuthorizationService) CanMutate(actor models.Actor, complaint *models.Complaint) bool {
	if complaint == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return s.matcher(actor)(complaint)
	default:
		return false
	}
}
