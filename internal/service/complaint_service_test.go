package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type recordingNotifier struct {
	created  []int64
	resolved []int64
}

func (n *recordingNotifier) ComplaintCreated(_ context.Context, c *models.Complaint) {
	n.created = append(n.created, c.ID)
}

func (n *recordingNotifier) ComplaintResolved(_ context.Context, c *models.Complaint) {
	n.resolved = append(n.resolved, c.ID)
}

type recordingInvalidator struct{ patterns []string }

func (r *recordingInvalidator) Invalidate(_ context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return nil
}

func newComplaintService(f *fixture) (*ComplaintService, *recordingNotifier, *recordingInvalidator) {
	notifier := &recordingNotifier{}
	cache := &recordingInvalidator{}
	return NewComplaintService(f.store, f.authz, notifier, cache, nil, nil, nil), notifier, cache
}

func TestComplaintServiceCreate(t *testing.T) {
	f := newFixture(t)
	svc, notifier, cache := newComplaintService(f)

	res, err := svc.Create(context.Background(), kimActor, models.CreateComplaintRequest{
		Title:    "  Cold lunch  ",
		Content:  "The soup was cold again.",
		Category: models.CategoryMeal,
		Urgency:  models.UrgencyUrgent,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Durable)
	assert.Equal(t, "Cold lunch", res.Complaint.Title)
	assert.Equal(t, "김철수", res.Complaint.CreatedBy)
	assert.Equal(t, models.StatusPending, res.Complaint.Status)
	require.Len(t, res.Complaint.History, 1)
	assert.Equal(t, models.NoteCreated, res.Complaint.History[0].Note)
	assert.Equal(t, []int64{res.Complaint.ID}, notifier.created)
	assert.Equal(t, []string{statsCachePattern}, cache.patterns)
}

func TestComplaintServiceCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newComplaintService(f)
	ctx := context.Background()

	cases := map[string]models.CreateComplaintRequest{
		"blank title":     {Title: "   ", Content: "body", Category: models.CategoryMeal, Urgency: models.UrgencyNormal},
		"unknown urgency": {Title: "t", Content: "body", Category: models.CategoryMeal, Urgency: "later"},
		"unknown tag":     {Title: "t", Content: "body", Category: "parking", Urgency: models.UrgencyNormal},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, kimActor, req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, f.store.Complaints())

	_, err := svc.Create(ctx, mealTeacher, models.CreateComplaintRequest{Title: "t", Content: "c", Category: models.CategoryMeal, Urgency: models.UrgencyNormal})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Create(ctx, models.Actor{ID: "ghost", Role: models.RoleParent}, models.CreateComplaintRequest{Title: "t", Content: "c", Category: models.CategoryMeal, Urgency: models.UrgencyNormal})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComplaintServiceUpdateStatus(t *testing.T) {
	f := newFixture(t)
	svc, notifier, _ := newComplaintService(f)
	ctx := context.Background()
	c := f.complaint(t, "김철수", models.CategoryMeal, models.UrgencyNormal)

	res, err := svc.UpdateStatus(ctx, mealTeacher, c.ID, models.UpdateStatusRequest{Status: models.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, res.Complaint.Status)
	require.Len(t, res.Complaint.History, 2)
	assert.Equal(t, "status changed: in_progress", res.Complaint.History[1].Note)

	res, err = svc.UpdateStatus(ctx, adminActor, c.ID, models.UpdateStatusRequest{Status: models.StatusResolved, Note: "menu fixed"})
	require.NoError(t, err)
	require.Len(t, res.Complaint.History, 3)
	assert.Equal(t, "menu fixed", res.Complaint.History[2].Note)
	assert.Equal(t, []int64{c.ID}, notifier.resolved)

	// same status again still records an entry
	res, err = svc.UpdateStatus(ctx, adminActor, c.ID, models.UpdateStatusRequest{Status: models.StatusResolved})
	require.NoError(t, err)
	assert.Len(t, res.Complaint.History, 4)

	for i := 1; i < len(res.Complaint.History); i++ {
		assert.False(t, res.Complaint.History[i].Timestamp.Before(res.Complaint.History[i-1].Timestamp))
	}
}

func TestComplaintServiceUpdateStatusErrors(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newComplaintService(f)
	ctx := context.Background()
	academic := f.complaint(t, "김철수", models.CategoryAcademic, models.UrgencyNormal)

	_, err := svc.UpdateStatus(ctx, adminActor, 9999, models.UpdateStatusRequest{Status: models.StatusResolved})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.UpdateStatus(ctx, adminActor, academic.ID, models.UpdateStatusRequest{Status: "closed"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateStatus(ctx, mealTeacher, academic.ID, models.UpdateStatusRequest{Status: models.StatusResolved})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = svc.UpdateStatus(ctx, kimActor, academic.ID, models.UpdateStatusRequest{Status: models.StatusResolved})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	current, ok := f.store.Complaint(academic.ID)
	require.True(t, ok)
	assert.Len(t, current.History, 1)
}

func TestComplaintServiceStorageFailureIsNotDurable(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newComplaintService(f)
	ctx := context.Background()
	f.gateway.down = true

	res, err := svc.Create(ctx, leeActor, models.CreateComplaintRequest{Title: "Bus late", Content: "Again", Category: models.CategorySafety, Urgency: models.UrgencyNormal})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Durable)
	assert.NotEmpty(t, res.Warning)

	upd, err := svc.UpdateStatus(ctx, adminActor, res.Complaint.ID, models.UpdateStatusRequest{Status: models.StatusInProgress})
	require.NoError(t, err)
	assert.False(t, upd.Durable)

	stored, ok := f.store.Complaint(res.Complaint.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusInProgress, stored.Status)
}

func TestComplaintServiceAssign(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newComplaintService(f)
	ctx := context.Background()
	c := f.complaint(t, "김철수", models.CategoryHealth, models.UrgencyUrgent)

	res, err := svc.Assign(ctx, masterActor, c.ID, models.AssignComplaintRequest{TeacherID: "t-meal"})
	require.NoError(t, err)
	require.NotNil(t, res.Complaint.AssignedTo)
	assert.Equal(t, "t-meal", *res.Complaint.AssignedTo)
	assert.Len(t, res.Complaint.History, 1)

	_, err = svc.Assign(ctx, mealTeacher, c.ID, models.AssignComplaintRequest{TeacherID: "t-meal"})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	_, err = svc.Assign(ctx, adminActor, c.ID, models.AssignComplaintRequest{TeacherID: "김철수"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Assign(ctx, adminActor, 4242, models.AssignComplaintRequest{TeacherID: "t-meal"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComplaintServiceGetHidesOtherFamilies(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newComplaintService(f)
	c := f.complaint(t, "이영희", models.CategoryFacility, models.UrgencyNormal)

	got, err := svc.Get(context.Background(), leeActor, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.Get(context.Background(), kimActor, c.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBuildBoardOrdering(t *testing.T) {
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	mk := func(id int64, urgency models.Urgency, status models.ComplaintStatus, created, last time.Duration) *models.Complaint {
		c := &models.Complaint{ID: id, Urgency: urgency, Status: status, CreatedAt: base.Add(created)}
		c.History = []models.HistoryEntry{{Status: models.StatusPending, Timestamp: base.Add(created)}}
		if last > 0 {
			c.History = append(c.History, models.HistoryEntry{Status: status, Timestamp: base.Add(last)})
		}
		return c
	}
	complaints := []*models.Complaint{
		mk(1, models.UrgencyNormal, models.StatusPending, 3*time.Minute, 0),
		mk(2, models.UrgencyUrgent, models.StatusInProgress, 2*time.Minute, 10*time.Minute),
		mk(3, models.UrgencyUrgent, models.StatusPending, time.Minute, 0),
		mk(4, models.UrgencyNormal, models.StatusResolved, 0, 20*time.Minute),
		mk(5, models.UrgencyUrgent, models.StatusResolved, 4*time.Minute, 30*time.Minute),
		mk(6, models.UrgencyNormal, models.StatusPending, 0, 0),
	}

	board := BuildBoard(complaints)
	assert.Equal(t, []int64{3, 2}, ids(board.ActiveUrgent))
	assert.Equal(t, []int64{6, 1}, ids(board.ActiveNormal))
	assert.Equal(t, []int64{5, 4}, ids(board.Resolved))
	assert.Equal(t, models.BoardCounts{Total: 6, Active: 4, Urgent: 2, Resolved: 2}, board.Counts)

	empty := BuildBoard(nil)
	assert.NotNil(t, empty.ActiveUrgent)
	assert.Zero(t, empty.Counts.Total)
}
