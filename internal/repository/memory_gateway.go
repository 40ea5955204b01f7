package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

// MemoryGateway keeps the desk tables in process memory. It is used when no
// database is configured and as a test double.
type MemoryGateway struct {
	mu          sync.RWMutex
	users       map[string]models.User
	complaints  map[int64]*models.Complaint
	registry    map[string]models.StudentRecord
	codes       []string
	assignments map[string]models.TeacherAssignment
}

// NewMemoryGateway constructs an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		users:       make(map[string]models.User),
		complaints:  make(map[int64]*models.Complaint),
		registry:    make(map[string]models.StudentRecord),
		assignments: make(map[string]models.TeacherAssignment),
	}
}

func (g *MemoryGateway) PutUser(_ context.Context, user models.User) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[user.ID] = user
	return nil
}

func (g *MemoryGateway) GetUser(_ context.Context, id string) (*models.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &u, nil
}

func (g *MemoryGateway) ListUsers(context.Context) (map[string]models.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]models.User, len(g.users))
	for id, u := range g.users {
		out[id] = u
	}
	return out, nil
}

func (g *MemoryGateway) PutComplaint(_ context.Context, complaint *models.Complaint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.complaints[complaint.ID]; exists {
		return appErrors.Clone(appErrors.ErrAlreadyExists, fmt.Sprintf("complaint %d already exists", complaint.ID))
	}
	g.complaints[complaint.ID] = complaint.Clone()
	return nil
}

func (g *MemoryGateway) PatchComplaint(_ context.Context, id int64, patch models.ComplaintPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.complaints[id]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("complaint %d not found", id))
	}
	c.Apply(patch)
	return nil
}

func (g *MemoryGateway) ListComplaints(context.Context) ([]*models.Complaint, error) {
	g.mu.RLock()
	out := make([]*models.Complaint, 0, len(g.complaints))
	for _, c := range g.complaints {
		out = append(out, c.Clone())
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (g *MemoryGateway) PutStudentRegistry(_ context.Context, registry map[string]models.StudentRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registry = make(map[string]models.StudentRecord, len(registry))
	for name, rec := range registry {
		g.registry[name] = rec
	}
	return nil
}

func (g *MemoryGateway) GetStudentRegistry(context.Context) (map[string]models.StudentRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]models.StudentRecord, len(g.registry))
	for name, rec := range g.registry {
		out[name] = rec
	}
	return out, nil
}

func (g *MemoryGateway) PutTeacherCodes(_ context.Context, codes []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.codes = append([]string{}, codes...)
	return nil
}

func (g *MemoryGateway) GetTeacherCodes(context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string{}, g.codes...), nil
}

func (g *MemoryGateway) PutTeacherAssignment(_ context.Context, assignment models.TeacherAssignment) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assignments[assignment.TeacherID] = assignment.Clone()
	return nil
}

func (g *MemoryGateway) ListTeacherAssignments(context.Context) (map[string]models.TeacherAssignment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]models.TeacherAssignment, len(g.assignments))
	for id, a := range g.assignments {
		out[id] = a.Clone()
	}
	return out, nil
}
