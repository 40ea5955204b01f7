package models

import "time"

// SystemStats is the administrator overview of the desk.
type SystemStats struct {
	UsersByRole          map[UserRole]int        `json:"users_by_role"`
	ComplaintsByStatus   map[ComplaintStatus]int `json:"complaints_by_status"`
	ComplaintsByCategory map[Category]int        `json:"complaints_by_category"`
	TotalComplaints      int                     `json:"total_complaints"`
	RegisteredStudents   int                     `json:"registered_students"`
	ActiveTeacherCodes   int                     `json:"active_teacher_codes"`
	GeneratedAt          time.Time               `json:"generated_at"`
}
