package models

// StudentRecord is an enrolled student in the registry gating parent signup.
type StudentRecord struct {
	Name          string `db:"name" json:"name"`
	Grade         int    `db:"grade" json:"grade"`
	ClassName     string `db:"class_name" json:"class_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
	Year          int    `db:"year" json:"year"`
}

// CreateStudentRequest adds a single student to the registry.
type CreateStudentRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Grade         int    `json:"grade" validate:"required,min=1,max=12"`
	ClassName     string `json:"class_name" validate:"required,max=20"`
	StudentNumber string `json:"student_number" validate:"required,max=20"`
	Year          int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}

// ImportRowResult reports the outcome of one CSV row.
type ImportRowResult struct {
	Line    int    `json:"line"`
	Name    string `json:"name,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ImportResult summarises a bulk registry import.
type ImportResult struct {
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
	Rows     []ImportRowResult `json:"rows"`
	Outcome
}

// StudentResult carries a created student and the mutation outcome.
type StudentResult struct {
	Student StudentRecord `json:"student"`
	Outcome
}
