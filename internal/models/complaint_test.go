package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComplaint(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	c, err := NewComplaint(7, "  Cold lunch ", "Soup was cold", CategoryMeal, UrgencyNormal, "Kim", now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "Cold lunch", c.Title)
	assert.Equal(t, StatusPending, c.Status)
	require.Len(t, c.History, 1)
	assert.Equal(t, HistoryEntry{Status: StatusPending, Timestamp: now, Note: NoteCreated}, c.History[0])
	assert.Nil(t, c.AssignedTo)
}

func TestNewComplaintRejectsInvalidInput(t *testing.T) {
	now := time.Now()
	cases := map[string]func() (*Complaint, error){
		"empty title":      func() (*Complaint, error) { return NewComplaint(1, " ", "x", CategoryMeal, UrgencyNormal, "Kim", now) },
		"empty content":    func() (*Complaint, error) { return NewComplaint(1, "x", "", CategoryMeal, UrgencyNormal, "Kim", now) },
		"unknown category": func() (*Complaint, error) { return NewComplaint(1, "x", "y", "sports", UrgencyNormal, "Kim", now) },
		"unknown urgency":  func() (*Complaint, error) { return NewComplaint(1, "x", "y", CategoryMeal, "asap", "Kim", now) },
		"missing creator":  func() (*Complaint, error) { return NewComplaint(1, "x", "y", CategoryMeal, UrgencyUrgent, "", now) },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := build()
			assert.True(t, errors.Is(err, ErrInvalidComplaint))
		})
	}
}

func TestComplaintApplyAndClone(t *testing.T) {
	now := time.Now()
	c, err := NewComplaint(1, "t", "c", CategoryHealth, UrgencyUrgent, "Kim", now)
	require.NoError(t, err)

	clone := c.Clone()
	status := StatusResolved
	teacher := "t-lee"
	c.Apply(ComplaintPatch{
		Status:        &status,
		AppendHistory: []HistoryEntry{{Status: StatusResolved, Timestamp: now.Add(time.Minute), Note: "done"}},
		AssignedTo:    &teacher,
	})

	assert.Equal(t, StatusResolved, c.Status)
	assert.Len(t, c.History, 2)
	assert.Equal(t, c.Status, c.History[len(c.History)-1].Status)
	assert.Equal(t, int64(2), c.Version)
	assert.Equal(t, now.Add(time.Minute), c.LastActivity())

	assert.Equal(t, StatusPending, clone.Status)
	assert.Len(t, clone.History, 1)
	assert.Nil(t, clone.AssignedTo)
}

func TestEnumerations(t *testing.T) {
	assert.True(t, CategoryCounseling.Valid())
	assert.False(t, Category("ACADEMIC").Valid())
	assert.Less(t, UrgencyUrgent.Weight(), UrgencyNormal.Weight())
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, ComplaintStatus("done").Valid())
	assert.False(t, StatusResolved.Active())
	assert.Equal(t, "status changed: resolved", StatusChangedNote(StatusResolved))
}

func TestProfileForRole(t *testing.T) {
	p := ProfileForRole(RoleTeacher)
	assert.Contains(t, p.Capabilities, CapComplaintUpdateStatus)
	p.Capabilities[0] = "mutated"
	assert.NotEqual(t, Capability("mutated"), ProfileForRole(RoleTeacher).Capabilities[0])

	assert.Empty(t, ProfileForRole("guest").Capabilities)
}

func TestTeacherAssignmentCovers(t *testing.T) {
	a := TeacherAssignment{TeacherID: "t1", Categories: []Category{CategoryMeal, CategoryHealth}}
	assert.True(t, a.Covers(CategoryMeal))
	assert.False(t, a.Covers(CategoryAcademic))
	a.Master = true
	assert.True(t, a.Covers(CategoryAcademic))
}
