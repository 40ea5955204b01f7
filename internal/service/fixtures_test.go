package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	"github.com/noah-isme/complaint-desk-api/internal/store"
)

var errGatewayDown = errors.New("gateway down")

// flakyGateway fails every write while down is set.
type flakyGateway struct {
	*repository.MemoryGateway
	down bool
}

func (g *flakyGateway) PutUser(ctx context.Context, u models.User) error {
	if g.down {
		return errGatewayDown
	}
	return g.MemoryGateway.PutUser(ctx, u)
}

func (g *flakyGateway) PutComplaint(ctx context.Context, c *models.Complaint) error {
	if g.down {
		return errGatewayDown
	}
	return g.MemoryGateway.PutComplaint(ctx, c)
}

func (g *flakyGateway) PatchComplaint(ctx context.Context, id int64, p models.ComplaintPatch) error {
	if g.down {
		return errGatewayDown
	}
	return g.MemoryGateway.PatchComplaint(ctx, id, p)
}

func (g *flakyGateway) PutStudentRegistry(ctx context.Context, r map[string]models.StudentRecord) error {
	if g.down {
		return errGatewayDown
	}
	return g.MemoryGateway.PutStudentRegistry(ctx, r)
}

var (
	adminActor   = models.Actor{ID: models.AdminUserID, Role: models.RoleAdmin}
	kimActor     = models.Actor{ID: "김철수", Role: models.RoleParent}
	leeActor     = models.Actor{ID: "이영희", Role: models.RoleParent}
	mealTeacher  = models.Actor{ID: "t-meal", Role: models.RoleTeacher}
	masterActor  = models.Actor{ID: "t-master", Role: models.RoleTeacher}
	unassignedTA = models.Actor{ID: "t-new", Role: models.RoleTeacher}
)

type fixture struct {
	store   *store.Store
	gateway *flakyGateway
	authz   *AuthorizationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := &flakyGateway{MemoryGateway: repository.NewMemoryGateway()}
	clock := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	s := store.New(gw, nil, store.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()

	_, err := s.AddStudents(ctx, store.SampleRegistry)
	require.NoError(t, err)
	for _, u := range []models.User{
		{ID: models.AdminUserID, Role: models.RoleAdmin, Name: "System Administrator"},
		{ID: "김철수", Role: models.RoleParent, Name: "김철수 parent", StudentName: "김철수"},
		{ID: "이영희", Role: models.RoleParent, Name: "이영희 parent", StudentName: "이영희"},
		{ID: "t-meal", Role: models.RoleTeacher, Name: "Meal Teacher"},
		{ID: "t-master", Role: models.RoleTeacher, Name: "Head Teacher"},
		{ID: "t-new", Role: models.RoleTeacher, Name: "New Teacher"},
	} {
		require.NoError(t, s.PutUser(ctx, u))
	}
	require.NoError(t, s.SetAssignment(ctx, models.TeacherAssignment{TeacherID: "t-meal", Categories: []models.Category{models.CategoryMeal, models.CategoryHealth}}))
	require.NoError(t, s.SetAssignment(ctx, models.TeacherAssignment{TeacherID: "t-master", Master: true}))

	return &fixture{store: s, gateway: gw, authz: NewAuthorizationService(s)}
}

func (f *fixture) complaint(t *testing.T, creator string, category models.Category, urgency models.Urgency) *models.Complaint {
	t.Helper()
	c, err := f.store.CreateComplaint(context.Background(), func(id int64, now time.Time) (*models.Complaint, error) {
		return models.NewComplaint(id, "title", "content", category, urgency, creator, now)
	})
	require.NoError(t, err)
	return c
}

func ids(list []*models.Complaint) []int64 {
	out := make([]int64, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}
