package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category classifies the subject area of a complaint.
type Category string

const (
	CategoryAcademic   Category = "academic"
	CategoryFacility   Category = "facility"
	CategoryMeal       Category = "meal"
	CategoryHealth     Category = "health"
	CategoryCounseling Category = "counseling"
	CategorySafety     Category = "safety"
	CategoryGeneral    Category = "general"
)

// CategoryInfo pairs a category tag with its display label.
type CategoryInfo struct {
	Tag   Category `json:"tag"`
	Label string   `json:"label"`
}

// Categories lists every category in display order.
var Categories = []CategoryInfo{
	{CategoryAcademic, "Academic affairs"},
	{CategoryFacility, "Facility management"},
	{CategoryMeal, "School meals"},
	{CategoryHealth, "Health"},
	{CategoryCounseling, "Counseling"},
	{CategorySafety, "Safety"},
	{CategoryGeneral, "General inquiry"},
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, info := range Categories {
		if info.Tag == c {
			return true
		}
	}
	return false
}

// Urgency drives display grouping.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyNormal Urgency = "normal"
)

// Valid reports whether u is a recognised urgency tag.
func (u Urgency) Valid() bool {
	return u == UrgencyUrgent || u == UrgencyNormal
}

// Weight orders urgencies; lower sorts first.
func (u Urgency) Weight() int {
	if u == UrgencyUrgent {
		return 1
	}
	return 2
}

// ComplaintStatus is the lifecycle stage of a complaint.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
)

// Valid reports whether s is a recognised status.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Active reports whether the complaint still needs handling.
func (s ComplaintStatus) Active() bool {
	return s != StatusResolved
}

// Default history notes.
const (
	NoteCreated = "complaint created"
)

// StatusChangedNote is the note recorded when a status update carries none.
func StatusChangedNote(status ComplaintStatus) string {
	return fmt.Sprintf("status changed: %s", status)
}

// HistoryEntry is one immutable record in a complaint's history.
type HistoryEntry struct {
	Status    ComplaintStatus `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Note      string          `json:"note"`
}

// Complaint is the central record tracked by the desk.
type Complaint struct {
	ID         int64           `db:"id" json:"id"`
	Title      string          `db:"title" json:"title"`
	Content    string          `db:"content" json:"content"`
	Category   Category        `db:"category" json:"category"`
	Urgency    Urgency         `db:"urgency" json:"urgency"`
	Status     ComplaintStatus `db:"status" json:"status"`
	CreatedBy  string          `db:"created_by" json:"created_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	AssignedTo *string         `db:"assigned_to" json:"assigned_to,omitempty"`
	History    []HistoryEntry  `db:"-" json:"history"`
	Version    int64           `db:"version" json:"version"`
}

// ErrInvalidComplaint marks a complaint that failed construction checks.
var ErrInvalidComplaint = errors.New("invalid complaint")

// NewComplaint validates the input and builds a pending complaint with its creation entry.
func NewComplaint(id int64, title, content string, category Category, urgency Urgency, createdBy string, now time.Time) (*Complaint, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidComplaint)
	case content == "":
		return nil, fmt.Errorf("%w: content is required", ErrInvalidComplaint)
	case !category.Valid():
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidComplaint, category)
	case !urgency.Valid():
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrInvalidComplaint, urgency)
	case createdBy == "":
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidComplaint)
	}
	return &Complaint{
		ID:        id,
		Title:     title,
		Content:   content,
		Category:  category,
		Urgency:   urgency,
		Status:    StatusPending,
		CreatedBy: createdBy,
		CreatedAt: now,
		History:   []HistoryEntry{{Status: StatusPending, Timestamp: now, Note: NoteCreated}},
		Version:   1,
	}, nil
}

// Clone returns a deep copy safe to hand outside the store.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	if c.AssignedTo != nil {
		v := *c.AssignedTo
		out.AssignedTo = &v
	}
	out.History = make([]HistoryEntry, len(c.History))
	copy(out.History, c.History)
	return &out
}

// LastActivity is the timestamp of the most recent history entry.
func (c *Complaint) LastActivity() time.Time {
	if len(c.History) == 0 {
		return c.CreatedAt
	}
	return c.History[len(c.History)-1].Timestamp
}

// ComplaintPatch is a partial update applied through the persistence gateway.
// AppendHistory entries are appended after any stored entries.
type ComplaintPatch struct {
	Status        *ComplaintStatus
	AppendHistory []HistoryEntry
	AssignedTo    *string
}

// CreateComplaintRequest is the payload for submitting a complaint.
type CreateComplaintRequest struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Content  string   `json:"content" validate:"required,max=5000"`
	Category Category `json:"category" validate:"required"`
	Urgency  Urgency  `json:"urgency" validate:"required"`
}

// UpdateStatusRequest moves a complaint to a new status.
type UpdateStatusRequest struct {
	Status ComplaintStatus `json:"status" validate:"required"`
	Note   string          `json:"note" validate:"max=1000"`
}

// AssignComplaintRequest sets the handling teacher.
type AssignComplaintRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

// Outcome is the success flag and message returned by every mutation.
// Durable is false when the in-memory change could not be persisted.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Durable bool   `json:"durable"`
	Warning string `json:"warning,omitempty"`
}

// ComplaintResult carries a complaint together with the mutation outcome.
type ComplaintResult struct {
	Complaint *Complaint `json:"complaint"`
	Outcome
}

// ComplaintBoard groups visible complaints the way the desk displays them.
type ComplaintBoard struct {
	ActiveUrgent []*Complaint `json:"active_urgent"`
	ActiveNormal []*Complaint `json:"active_normal"`
	Resolved     []*Complaint `json:"resolved"`
	Counts       BoardCounts  `json:"counts"`
}

// BoardCounts summarises a board.
type BoardCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Urgent   int `json:"urgent"`
	Resolved int `json:"resolved"`
}

// Apply mutates c with the patch and bumps its version.
func (c *Complaint) Apply(p ComplaintPatch) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if len(p.AppendHistory) > 0 {
		c.History = append(c.History, p.AppendHistory...)
	}
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		c.AssignedTo = &v
	}
	c.Version++
}
