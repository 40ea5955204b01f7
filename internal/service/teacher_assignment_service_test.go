package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

func TestSetAssignmentChangesVisibility(t *testing.T) {
	f := newFixture(t)
	svc := NewTeacherAssignmentService(f.store, nil, nil)
	ctx := context.Background()
	academic := f.complaint(t, "김철수", models.CategoryAcademic, models.UrgencyNormal)

	assert.Empty(t, f.authz.VisibleComplaints(unassignedTA))

	res, err := svc.SetAssignment(ctx, "t-new", models.SetAssignmentRequest{
		Categories: []models.Category{models.CategoryAcademic, models.CategoryAcademic, models.CategoryCounseling},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.CategoryAcademic, models.CategoryCounseling}, res.Assignment.Categories)
	assert.Equal(t, []int64{academic.ID}, ids(f.authz.VisibleComplaints(unassignedTA)))

	_, err = svc.SetAssignment(ctx, "t-new", models.SetAssignmentRequest{Categories: []models.Category{"parking"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SetAssignment(ctx, "김철수", models.SetAssignmentRequest{Master: true})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGetAssignmentAndListTeachers(t *testing.T) {
	f := newFixture(t)
	svc := NewTeacherAssignmentService(f.store, nil, nil)
	ctx := context.Background()

	got, err := svc.Get(ctx, "t-meal")
	require.NoError(t, err)
	assert.True(t, got.Covers(models.CategoryHealth))

	empty, err := svc.Get(ctx, "t-new")
	require.NoError(t, err)
	assert.Empty(t, empty.Categories)

	_, err = svc.Get(ctx, models.AdminUserID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	teachers := svc.ListTeachers(ctx)
	require.Len(t, teachers, 3)
	for _, tc := range teachers {
		if tc.ID == "t-master" {
			assert.True(t, tc.Assignment.Master)
		}
	}
}
