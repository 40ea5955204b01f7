package models

import "time"

// TeacherAssignment lists the categories a teacher may act on.
// Master overrides the category set.
type TeacherAssignment struct {
	TeacherID  string     `db:"teacher_id" json:"teacher_id"`
	Categories []Category `db:"-" json:"categories"`
	Master     bool       `db:"is_master" json:"master"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the assignment grants access to category.
func (a TeacherAssignment) Covers(category Category) bool {
	if a.Master {
		return true
	}
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Clone copies the category slice.
func (a TeacherAssignment) Clone() TeacherAssignment {
	out := a
	out.Categories = append([]Category{}, a.Categories...)
	return out
}

// SetAssignmentRequest replaces a teacher's category assignment.
type SetAssignmentRequest struct {
	Categories []Category `json:"categories" validate:"dive,required"`
	Master     bool       `json:"master"`
}

// TeacherSummary describes a staff account with its assignment.
type TeacherSummary struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CreatedAt  time.Time         `json:"created_at"`
	Assignment TeacherAssignment `json:"assignment"`
}

// AssignmentResult carries the stored assignment and the mutation outcome.
type AssignmentResult struct {
	Assignment TeacherAssignment `json:"assignment"`
	Outcome
}
